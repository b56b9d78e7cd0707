package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/geo"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/store"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/utils"
)

// defaultNearbyRadiusMeters applies when the caller omits ?radius=.
const defaultNearbyRadiusMeters = 1000

type AssetHandler struct {
	Store store.Store
}

func NewAssetHandler(s store.Store) *AssetHandler {
	return &AssetHandler{Store: s}
}

func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Asset not found")
	case store.IsValidation(err):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("store error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "database error")
	}
}

// ListAssets returns all assets, unfiltered. Name/status filtering is
// a presentation concern handled by the caller.
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.Store.List(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, assets)
}

type CreateAssetRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	AssignedTo  string   `json:"assignedTo,omitempty"`
}

func (h *AssetHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req CreateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if req.Latitude == nil || req.Longitude == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Latitude and Longitude are required")
		return
	}

	asset, err := h.Store.Create(r.Context(), store.CreateAssetInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Longitude:   *req.Longitude,
		Latitude:    *req.Latitude,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, asset)
}

func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.Store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, asset)
}

type UpdateAssetRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Status      *string  `json:"status"`
	AssignedTo  *string  `json:"assignedTo"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func (h *AssetHandler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	var req UpdateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	// A location change must supply the whole pair.
	if (req.Latitude == nil) != (req.Longitude == nil) {
		utils.RespondWithError(w, http.StatusBadRequest, "a location change requires both latitude and longitude")
		return
	}

	patch := store.AssetPatch{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
	}
	if req.Latitude != nil && req.Longitude != nil {
		patch.Position = &store.Position{Longitude: *req.Longitude, Latitude: *req.Latitude}
	}

	asset, err := h.Store.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, asset)
}

func (h *AssetHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Asset removed"})
}

// GetAssetHistory returns archived positions, newest first.
func (h *AssetHandler) GetAssetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Store.History(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, history)
}

// GetNearbyAssets handles GET /api/assets/nearby?lat=..&lng=..&radius=..
func (h *AssetHandler) GetNearbyAssets(w http.ResponseWriter, r *http.Request) {
	latStr := r.URL.Query().Get("lat")
	lngStr := r.URL.Query().Get("lng")
	if latStr == "" || lngStr == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Please provide lat and lng")
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid lat")
		return
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid lng")
		return
	}

	radius := float64(defaultNearbyRadiusMeters)
	if radiusStr := r.URL.Query().Get("radius"); radiusStr != "" {
		radius, err = strconv.ParseFloat(radiusStr, 64)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid radius")
			return
		}
	}

	assets, err := h.Store.Nearby(r.Context(), lng, lat, radius)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, assets)
}

type ZoneRequest struct {
	// Coordinates is a closed ring of [lng, lat] pairs, GeoJSON order.
	Coordinates [][]float64 `json:"coordinates"`
}

// GetAssetsInZone handles POST /api/assets/within-zone.
func (h *AssetHandler) GetAssetsInZone(w http.ResponseWriter, r *http.Request) {
	var req ZoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	ring := make([]geo.Point, 0, len(req.Coordinates))
	for _, pair := range req.Coordinates {
		if len(pair) != 2 {
			utils.RespondWithError(w, http.StatusBadRequest, "each coordinate must be a [lng, lat] pair")
			return
		}
		ring = append(ring, geo.Point{Lng: pair[0], Lat: pair[1]})
	}

	assets, err := h.Store.InZone(r.Context(), ring)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, assets)
}
