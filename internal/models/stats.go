package models

type LeaderboardEntry struct {
	UserID        int64  `json:"id"`
	Name          string `json:"name"`
	IdeasCount    int    `json:"ideas_count"`
	VotesReceived int    `json:"votes_received"`
}

type DashboardKPIs struct {
	TotalIdeas   int `json:"total_ideas"`
	TotalVotes   int `json:"total_votes"`
	ApprovalRate int `json:"approval_rate"`
}

type StatusCount struct {
	Status IdeaStatus `json:"status"`
	Count  int        `json:"count"`
}

type CampaignCount struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type DashboardCharts struct {
	ByStatus   []StatusCount   `json:"by_status"`
	ByCampaign []CampaignCount `json:"by_campaign"`
	Evolution  []DayCount      `json:"evolution"`
}

type Dashboard struct {
	KPIs   DashboardKPIs   `json:"kpis"`
	Charts DashboardCharts `json:"charts"`
}
