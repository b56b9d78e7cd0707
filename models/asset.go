// models/asset.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Asset statuses.
const (
	StatusActive      = "active"
	StatusInactive    = "inactive"
	StatusMaintenance = "maintenance"
)

// ValidStatus reports whether s is a known asset status.
func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusInactive || s == StatusMaintenance
}

// GeoPoint is a GeoJSON Point. Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

func (p GeoPoint) Longitude() float64 { return p.Coordinates[0] }
func (p GeoPoint) Latitude() float64  { return p.Coordinates[1] }

// HistoryEntry is an archived prior position. Timestamp is the moment
// the entry was archived, not the moment the position was first set.
type HistoryEntry struct {
	Location  GeoPoint  `bson:"location" json:"location"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

type Asset struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name            string              `bson:"name" json:"name"`
	Description     string              `bson:"description,omitempty" json:"description,omitempty"`
	Status          string              `bson:"status" json:"status"`
	Location        GeoPoint            `bson:"location" json:"location"`
	AssignedTo      *primitive.ObjectID `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	LocationHistory []HistoryEntry      `bson:"locationHistory" json:"locationHistory"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Clone returns a deep copy. The stores hand out and keep only clones,
// so a reader can never observe a half-applied update.
func (a *Asset) Clone() *Asset {
	c := *a
	if a.AssignedTo != nil {
		id := *a.AssignedTo
		c.AssignedTo = &id
	}
	c.Location.Coordinates = append([]float64(nil), a.Location.Coordinates...)
	c.LocationHistory = make([]HistoryEntry, len(a.LocationHistory))
	for i, h := range a.LocationHistory {
		c.LocationHistory[i] = HistoryEntry{
			Location:  GeoPoint{Type: h.Location.Type, Coordinates: append([]float64(nil), h.Location.Coordinates...)},
			Timestamp: h.Timestamp,
		}
	}
	return &c
}
