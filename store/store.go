// store/store.go
//
// The asset store owns the move/archive algorithm and the spatial
// queries. Two implementations share this contract: Mongo (production,
// 2dsphere index) and an in-memory store (tests, local runs without a
// database). Both publish change events through an injected Publisher.
package store

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/geo"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/models"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/notifier"
)

var (
	// ErrNotFound means the referenced asset id does not exist.
	ErrNotFound = errors.New("asset not found")

	// ErrStorage wraps persistence failures. Callers may retry.
	ErrStorage = errors.New("storage failure")
)

// ValidationError reports malformed input. Never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErr(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is caller-correctable bad input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, geo.ErrInvalidGeometry)
}

// Publisher is the change-propagation capability injected into a
// store. *notifier.Notifier satisfies it.
type Publisher interface {
	Publish(topic string, ev notifier.Event)
}

// CreateAssetInput carries the fields accepted at creation.
type CreateAssetInput struct {
	Name        string
	Description string
	Status      string // defaults to active
	Longitude   float64
	Latitude    float64
	AssignedTo  string // optional user id hex, not validated against users
}

// Position is a complete coordinate pair. AssetPatch carries it as a
// single optional field so a partial pair cannot be expressed.
type Position struct {
	Longitude float64
	Latitude  float64
}

// AssetPatch is a structured partial update: every field is
// independently present-or-absent. Empty strings on the text fields
// mean "no change".
type AssetPatch struct {
	Name        *string
	Description *string
	Status      *string
	AssignedTo  *string
	Position    *Position
}

// Summary is the analytics rollup.
type Summary struct {
	TotalAssets        int64         `json:"totalAssets"`
	ActiveAssets       int64         `json:"activeAssets"`
	InactiveAssets     int64         `json:"inactiveAssets"`
	MaintenanceAssets  int64         `json:"maintenanceAssets"`
	StatusDistribution []StatusCount `json:"statusDistribution"`
	RegionDistribution []RegionCount `json:"regionDistribution"`
	RecentActivity     int64         `json:"recentActivity"`
}

type StatusCount struct {
	Status string `bson:"status" json:"status"`
	Count  int64  `bson:"count" json:"count"`
}

type RegionCount struct {
	Region string `json:"region"`
	Count  int64  `json:"count"`
}

// Store is the asset store plus its query engine.
type Store interface {
	Create(ctx context.Context, in CreateAssetInput) (*models.Asset, error)
	Get(ctx context.Context, id string) (*models.Asset, error)
	List(ctx context.Context) ([]models.Asset, error)
	Update(ctx context.Context, id string, patch AssetPatch) (*models.Asset, error)
	Delete(ctx context.Context, id string) error
	History(ctx context.Context, id string) ([]models.HistoryEntry, error)
	Nearby(ctx context.Context, lng, lat, radiusMeters float64) ([]models.Asset, error)
	InZone(ctx context.Context, ring []geo.Point) ([]models.Asset, error)
	Summary(ctx context.Context) (*Summary, error)
}

// newAsset validates in, then builds the document: fresh id, default
// status, empty history, both timestamps set to now.
func newAsset(in CreateAssetInput, now time.Time) (*models.Asset, error) {
	if in.Name == "" {
		return nil, validationErr("name is required")
	}
	if err := geo.ValidatePoint(in.Longitude, in.Latitude); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.StatusActive
	}
	if !models.ValidStatus(status) {
		return nil, validationErr("status must be one of active, inactive, maintenance")
	}

	a := &models.Asset{
		ID:              primitive.NewObjectID(),
		Name:            in.Name,
		Description:     in.Description,
		Status:          status,
		Location:        models.NewGeoPoint(in.Longitude, in.Latitude),
		LocationHistory: []models.HistoryEntry{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.AssignedTo != "" {
		uid, err := primitive.ObjectIDFromHex(in.AssignedTo)
		if err != nil {
			return nil, validationErr("invalid assignedTo id")
		}
		a.AssignedTo = &uid
	}
	return a, nil
}

// applyPatch mutates a in place. All validation happens before any
// field changes, so a rejected patch leaves the asset untouched.
//
// A coordinate pair archives the current location with "now" and then
// overwrites it — the history always lags the live position by one.
func applyPatch(a *models.Asset, patch AssetPatch, now time.Time) error {
	if patch.Position != nil {
		if err := geo.ValidatePoint(patch.Position.Longitude, patch.Position.Latitude); err != nil {
			return err
		}
	}
	if patch.Status != nil && *patch.Status != "" && !models.ValidStatus(*patch.Status) {
		return validationErr("status must be one of active, inactive, maintenance")
	}
	var assignedTo *primitive.ObjectID
	if patch.AssignedTo != nil && *patch.AssignedTo != "" {
		uid, err := primitive.ObjectIDFromHex(*patch.AssignedTo)
		if err != nil {
			return validationErr("invalid assignedTo id")
		}
		assignedTo = &uid
	}

	if patch.Position != nil {
		a.LocationHistory = append(a.LocationHistory, models.HistoryEntry{
			Location:  a.Location,
			Timestamp: now,
		})
		a.Location = models.NewGeoPoint(patch.Position.Longitude, patch.Position.Latitude)
	}
	if patch.Name != nil && *patch.Name != "" {
		a.Name = *patch.Name
	}
	if patch.Description != nil && *patch.Description != "" {
		a.Description = *patch.Description
	}
	if patch.Status != nil && *patch.Status != "" {
		a.Status = *patch.Status
	}
	if assignedTo != nil {
		a.AssignedTo = assignedTo
	}
	a.UpdatedAt = now
	return nil
}

// sortHistoryDesc returns a copy sorted newest-first. History is kept
// in insertion order and sorted only at read time; entries sharing a
// timestamp keep newest-insertion-first order.
func sortHistoryDesc(entries []models.HistoryEntry) []models.HistoryEntry {
	out := make([]models.HistoryEntry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// keyLock serializes mutations per asset id. Ids hash onto a fixed
// set of mutexes, so updates to the same id never interleave while
// updates to different ids (almost) never contend.
type keyLock struct {
	mus [64]sync.Mutex
}

func (k *keyLock) lock(id string) func() {
	h := fnv.New32a()
	h.Write([]byte(id))
	mu := &k.mus[h.Sum32()%uint32(len(k.mus))]
	mu.Lock()
	return mu.Unlock
}
