// routes/routes.go
package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/handlers"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/middleware"
)

// Deps carries the constructed handlers so routes stay free of wiring.
type Deps struct {
	Assets    *handlers.AssetHandler
	Analytics *handlers.AnalyticsHandler
	Auth      *handlers.AuthHandler
	WS        *handlers.WSHandler
}

func RegisterRoutes(r *mux.Router, d Deps) {
	// Public.
	r.HandleFunc("/health", handlers.HealthCheck).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/auth/register", d.Auth.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/auth/login", d.Auth.Login).Methods("POST", "OPTIONS")
	r.HandleFunc("/ws", d.WS.HandleWebSocket).Methods("GET")

	// Everything under /api except auth requires a valid token.
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth)

	// Static paths before {id} so "nearby" is never parsed as an id.
	api.HandleFunc("/assets", d.Assets.ListAssets).Methods("GET", "OPTIONS")
	api.HandleFunc("/assets/nearby", d.Assets.GetNearbyAssets).Methods("GET", "OPTIONS")
	api.HandleFunc("/assets/within-zone", d.Assets.GetAssetsInZone).Methods("POST", "OPTIONS")
	api.HandleFunc("/assets/{id}", d.Assets.GetAsset).Methods("GET", "OPTIONS")
	api.HandleFunc("/assets/{id}/history", d.Assets.GetAssetHistory).Methods("GET", "OPTIONS")
	api.HandleFunc("/analytics/summary", d.Analytics.GetSummary).Methods("GET", "OPTIONS")

	// Mutations are admin only.
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAdmin(h)
	}
	api.Handle("/assets", admin(d.Assets.CreateAsset)).Methods("POST", "OPTIONS")
	api.Handle("/assets/{id}", admin(d.Assets.UpdateAsset)).Methods("PUT", "OPTIONS")
	api.Handle("/assets/{id}", admin(d.Assets.DeleteAsset)).Methods("DELETE", "OPTIONS")
}
