package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/models"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/notifier"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/store"
)

func newTestRouter(t *testing.T) (*mux.Router, store.Store) {
	t.Helper()
	bus := notifier.New()
	t.Cleanup(bus.Close)
	s := store.NewMemory(bus)
	h := NewAssetHandler(s)

	r := mux.NewRouter()
	r.HandleFunc("/api/assets", h.ListAssets).Methods("GET")
	r.HandleFunc("/api/assets", h.CreateAsset).Methods("POST")
	r.HandleFunc("/api/assets/nearby", h.GetNearbyAssets).Methods("GET")
	r.HandleFunc("/api/assets/within-zone", h.GetAssetsInZone).Methods("POST")
	r.HandleFunc("/api/assets/{id}", h.GetAsset).Methods("GET")
	r.HandleFunc("/api/assets/{id}", h.UpdateAsset).Methods("PUT")
	r.HandleFunc("/api/assets/{id}", h.DeleteAsset).Methods("DELETE")
	r.HandleFunc("/api/assets/{id}/history", h.GetAssetHistory).Methods("GET")
	return r, s
}

func doJSON(t *testing.T, r *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createVia(t *testing.T, r *mux.Router, name string, lng, lat float64) models.Asset {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/api/assets", map[string]interface{}{
		"name":      name,
		"latitude":  lat,
		"longitude": lng,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var a models.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	return a
}

func TestCreateAssetEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	a := createVia(t, r, "Truck 7", 13.4, 52.5)
	assert.Equal(t, "Truck 7", a.Name)
	assert.Equal(t, models.StatusActive, a.Status)
	assert.Equal(t, []float64{13.4, 52.5}, a.Location.Coordinates)
	assert.False(t, a.ID.IsZero())
}

func TestCreateAssetRequiresCoordinatePair(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/assets", map[string]interface{}{
		"name":     "Truck 7",
		"latitude": 52.5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/assets", map[string]interface{}{
		"name": "Truck 7",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAssetValidationErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/assets", map[string]interface{}{
		"name":      "",
		"latitude":  0.0,
		"longitude": 0.0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/assets", map[string]interface{}{
		"name":      "Truck 7",
		"latitude":  95.0,
		"longitude": 0.0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAssetRejectsPartialCoordinatePair(t *testing.T) {
	r, s := newTestRouter(t)
	a := createVia(t, r, "Truck 7", 13.4, 52.5)

	rec := doJSON(t, r, http.MethodPut, "/api/assets/"+a.ID.Hex(), map[string]interface{}{
		"latitude": 48.1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The rejected request must not have touched the asset.
	got, err := s.Get(context.Background(), a.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []float64{13.4, 52.5}, got.Location.Coordinates)
	assert.Empty(t, got.LocationHistory)
}

func TestUpdateAssetMovesAndArchives(t *testing.T) {
	r, _ := newTestRouter(t)
	a := createVia(t, r, "Truck 7", 13.4, 52.5)

	rec := doJSON(t, r, http.MethodPut, "/api/assets/"+a.ID.Hex(), map[string]interface{}{
		"latitude":  48.1,
		"longitude": 11.6,
		"status":    models.StatusMaintenance,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, []float64{11.6, 48.1}, updated.Location.Coordinates)
	assert.Equal(t, models.StatusMaintenance, updated.Status)
	require.Len(t, updated.LocationHistory, 1)
	assert.Equal(t, []float64{13.4, 52.5}, updated.LocationHistory[0].Location.Coordinates)
}

func TestUpdateAssetUnknownID(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPut, "/api/assets/aaaaaaaaaaaaaaaaaaaaaaaa", map[string]interface{}{
		"name": "Ghost",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAssetHistoryNewestFirst(t *testing.T) {
	r, _ := newTestRouter(t)
	a := createVia(t, r, "Truck 7", 0, 0)

	for i := 1; i <= 3; i++ {
		rec := doJSON(t, r, http.MethodPut, "/api/assets/"+a.ID.Hex(), map[string]interface{}{
			"latitude":  float64(i),
			"longitude": float64(i),
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, r, http.MethodGet, "/api/assets/"+a.ID.Hex()+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history []models.HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 3)
	assert.Equal(t, []float64{2, 2}, history[0].Location.Coordinates)
	assert.Equal(t, []float64{0, 0}, history[2].Location.Coordinates)
}

func TestNearbyEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	createVia(t, r, "Center", 0, 0)
	createVia(t, r, "Close", 0.001, 0.001)
	createVia(t, r, "Far", 1, 1)

	rec := doJSON(t, r, http.MethodGet, "/api/assets/nearby?lat=0&lng=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var assets []models.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assets))
	require.Len(t, assets, 2)
	assert.Equal(t, "Center", assets[0].Name)
	assert.Equal(t, "Close", assets[1].Name)
}

func TestNearbyEndpointParamErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/assets/nearby?lat=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/assets/nearby?lat=abc&lng=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/assets/nearby?lat=0&lng=0&radius=%d", -5), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWithinZoneEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	createVia(t, r, "Inside", 0, 0)
	createVia(t, r, "Outside", 1, 1)

	ring := [][]float64{
		{-0.005, -0.005},
		{0.005, -0.005},
		{0.005, 0.005},
		{-0.005, 0.005},
		{-0.005, -0.005},
	}
	rec := doJSON(t, r, http.MethodPost, "/api/assets/within-zone", map[string]interface{}{
		"coordinates": ring,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var assets []models.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assets))
	require.Len(t, assets, 1)
	assert.Equal(t, "Inside", assets[0].Name)
}

func TestWithinZoneRejectsBadRings(t *testing.T) {
	r, _ := newTestRouter(t)

	// Unclosed ring.
	rec := doJSON(t, r, http.MethodPost, "/api/assets/within-zone", map[string]interface{}{
		"coordinates": [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Malformed pair.
	rec = doJSON(t, r, http.MethodPost, "/api/assets/within-zone", map[string]interface{}{
		"coordinates": [][]float64{{0, 0}, {1}, {1, 1}, {0, 0}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteAssetEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	a := createVia(t, r, "Truck 7", 13.4, 52.5)

	rec := doJSON(t, r, http.MethodDelete, "/api/assets/"+a.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/assets/"+a.ID.Hex(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, "/api/assets/"+a.ID.Hex(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAssetsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	createVia(t, r, "A", 0, 0)
	createVia(t, r, "B", 1, 1)

	rec := doJSON(t, r, http.MethodGet, "/api/assets", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var assets []models.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assets))
	assert.Len(t, assets, 2)
}
