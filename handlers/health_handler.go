package handlers

import (
	"net/http"
	"time"

	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/utils"
)

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
