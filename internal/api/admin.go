package api

import (
	"net/http"

	"ideias/internal/seed"
)

type AdminHandler struct {
	seeder *seed.Seeder
}

func NewAdminHandler(seeder *seed.Seeder) *AdminHandler {
	return &AdminHandler{seeder: seeder}
}

// POST /api/v1/admin/seed
func (h *AdminHandler) Seed(w http.ResponseWriter, r *http.Request) {
	result, err := h.seeder.Seed(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": result})
}
