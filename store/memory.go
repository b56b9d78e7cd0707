// store/memory.go
package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/geo"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/models"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/notifier"
)

// Memory is the in-process Store. The map holds immutable snapshots:
// mutations build a new clone and swap it in whole, so readers see the
// document before or after an update, never mid-write.
type Memory struct {
	mu     sync.RWMutex
	assets map[string]*models.Asset
	locks  keyLock
	bus    Publisher
}

func NewMemory(bus Publisher) *Memory {
	return &Memory{assets: make(map[string]*models.Asset), bus: bus}
}

func (s *Memory) publish(topic string, typ string, a *models.Asset, now time.Time) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(topic, notifier.Event{Type: typ, Asset: a, Timestamp: now})
}

func (s *Memory) Create(_ context.Context, in CreateAssetInput) (*models.Asset, error) {
	now := time.Now().UTC()
	a, err := newAsset(in, now)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.assets[a.ID.Hex()] = a.Clone()
	s.mu.Unlock()

	s.publish(notifier.TopicAssetCreated, notifier.EventAssetCreated, a.Clone(), now)
	return a, nil
}

func (s *Memory) Get(_ context.Context, id string) (*models.Asset, error) {
	s.mu.RLock()
	a, ok := s.assets[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

func (s *Memory) List(_ context.Context) ([]models.Asset, error) {
	s.mu.RLock()
	out := make([]models.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, *a.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Memory) Update(_ context.Context, id string, patch AssetPatch) (*models.Asset, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	s.mu.RLock()
	cur, ok := s.assets[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	next := cur.Clone()
	if err := applyPatch(next, patch, now); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.assets[id] = next
	s.mu.Unlock()

	s.publish(notifier.TopicAssetUpdated, notifier.EventAssetUpdated, next.Clone(), now)
	s.publish(notifier.AssetTopic(id), notifier.EventAssetLocation, next.Clone(), now)
	return next.Clone(), nil
}

func (s *Memory) Delete(_ context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[id]; !ok {
		return ErrNotFound
	}
	delete(s.assets, id)
	return nil
}

func (s *Memory) History(_ context.Context, id string) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	a, ok := s.assets[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return sortHistoryDesc(a.Clone().LocationHistory), nil
}

func (s *Memory) Nearby(_ context.Context, lng, lat, radiusMeters float64) ([]models.Asset, error) {
	if err := geo.ValidatePoint(lng, lat); err != nil {
		return nil, err
	}
	if radiusMeters <= 0 {
		return nil, validationErr("radius must be a positive number of meters")
	}

	s.mu.RLock()
	type hit struct {
		asset    *models.Asset
		distance float64
	}
	var hits []hit
	for _, a := range s.assets {
		d := geo.Haversine(lng, lat, a.Location.Longitude(), a.Location.Latitude())
		if d <= radiusMeters {
			hits = append(hits, hit{asset: a.Clone(), distance: d})
		}
	}
	s.mu.RUnlock()

	// Nearest first, same as $near.
	sort.Slice(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })

	out := make([]models.Asset, len(hits))
	for i, h := range hits {
		out[i] = *h.asset
	}
	return out, nil
}

func (s *Memory) InZone(_ context.Context, ring []geo.Point) ([]models.Asset, error) {
	if err := geo.ValidateRing(ring); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := []models.Asset{}
	for _, a := range s.assets {
		if geo.PointInRing(a.Location.Longitude(), a.Location.Latitude(), ring) {
			out = append(out, *a.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Memory) Summary(_ context.Context) (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := &Summary{
		TotalAssets:        int64(len(s.assets)),
		StatusDistribution: []StatusCount{},
		RegionDistribution: []RegionCount{},
	}

	statusCounts := map[string]int64{}
	regionCounts := map[string]int64{}
	cutoff := time.Now().UTC().Add(-7 * 24 * time.Hour)

	for _, a := range s.assets {
		statusCounts[a.Status]++
		lat := math.Round(a.Location.Latitude())
		lng := math.Round(a.Location.Longitude())
		regionCounts[fmt.Sprintf("Region (%.0f, %.0f)", lat, lng)]++
		if a.UpdatedAt.After(cutoff) {
			sum.RecentActivity++
		}
	}

	for status, count := range statusCounts {
		sum.StatusDistribution = append(sum.StatusDistribution, StatusCount{Status: status, Count: count})
	}
	sort.Slice(sum.StatusDistribution, func(i, j int) bool {
		return sum.StatusDistribution[i].Status < sum.StatusDistribution[j].Status
	})

	for region, count := range regionCounts {
		sum.RegionDistribution = append(sum.RegionDistribution, RegionCount{Region: region, Count: count})
	}
	sort.Slice(sum.RegionDistribution, func(i, j int) bool {
		if sum.RegionDistribution[i].Count != sum.RegionDistribution[j].Count {
			return sum.RegionDistribution[i].Count > sum.RegionDistribution[j].Count
		}
		return sum.RegionDistribution[i].Region < sum.RegionDistribution[j].Region
	})
	if len(sum.RegionDistribution) > 10 {
		sum.RegionDistribution = sum.RegionDistribution[:10]
	}

	sum.ActiveAssets = statusCounts[models.StatusActive]
	sum.InactiveAssets = statusCounts[models.StatusInactive]
	sum.MaintenanceAssets = statusCounts[models.StatusMaintenance]
	return sum, nil
}
