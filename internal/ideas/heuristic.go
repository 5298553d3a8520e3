package ideas

import "strings"

const (
	compatNoCampaign = 80
	compatDefault    = 75
	compatEfficiency = 90
	compatDigital    = 100

	scoreMin = 30
	scoreMax = 100
)

// Assessment is the keyword heuristic shown to reviewers as the "AI" rating.
type Assessment struct {
	Score  int
	Compat int
}

// Assess rates an idea. campaignTitle is nil when the idea has no campaign.
// Score grows with description length (bytes / 5) and is clamped to [30, 100].
func Assess(title, description string, campaignTitle *string) Assessment {
	compat := compatNoCampaign
	if campaignTitle != nil {
		text := strings.ToLower(title + " " + description)
		campaign := strings.ToLower(*campaignTitle)

		switch {
		case strings.Contains(text, "digital") && strings.Contains(campaign, "transformação"):
			compat = compatDigital
		case strings.Contains(text, "eficiência"):
			compat = compatEfficiency
		default:
			compat = compatDefault
		}
	}

	score := min(scoreMax, max(scoreMin, len(description)/5))

	return Assessment{Score: score, Compat: compat}
}
