package handlers

import (
	"net/http"

	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/store"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/utils"
)

type AnalyticsHandler struct {
	Store store.Store
}

func NewAnalyticsHandler(s store.Store) *AnalyticsHandler {
	return &AnalyticsHandler{Store: s}
}

// GetSummary returns fleet-wide totals: asset count, status breakdown,
// coarse region distribution and recent activity.
func (h *AnalyticsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Store.Summary(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, sum)
}
