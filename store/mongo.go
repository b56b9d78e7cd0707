// store/mongo.go
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/geo"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/models"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/notifier"
)

// Mongo is the durable Store. Proximity and containment are answered
// by the 2dsphere index ($near, $geoWithin); the archive-before-move
// algorithm is shared with the in-memory store via applyPatch.
//
// An update reads, patches, and replaces the whole document under a
// per-id lock, so concurrent moves on one asset cannot lose a history
// entry while moves on different assets proceed in parallel.
type Mongo struct {
	assets *mongo.Collection
	locks  keyLock
	bus    Publisher
}

func NewMongo(db *mongo.Database, bus Publisher) *Mongo {
	return &Mongo{assets: db.Collection("assets"), bus: bus}
}

// EnsureIndexes creates the 2dsphere index the geo queries rely on.
// Called once at startup.
func (s *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := s.assets.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "location", Value: "2dsphere"}},
	})
	if err != nil {
		return fmt.Errorf("%w: create 2dsphere index: %v", ErrStorage, err)
	}
	return nil
}

func (s *Mongo) publish(topic string, typ string, a *models.Asset, now time.Time) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(topic, notifier.Event{Type: typ, Asset: a, Timestamp: now})
}

func (s *Mongo) Create(ctx context.Context, in CreateAssetInput) (*models.Asset, error) {
	now := time.Now().UTC()
	a, err := newAsset(in, now)
	if err != nil {
		return nil, err
	}

	if _, err := s.assets.InsertOne(ctx, a); err != nil {
		return nil, fmt.Errorf("%w: insert asset: %v", ErrStorage, err)
	}

	s.publish(notifier.TopicAssetCreated, notifier.EventAssetCreated, a.Clone(), now)
	return a, nil
}

func (s *Mongo) Get(ctx context.Context, id string) (*models.Asset, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var a models.Asset
	err = s.assets.FindOne(ctx, bson.M{"_id": oid}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find asset: %v", ErrStorage, err)
	}
	return &a, nil
}

func (s *Mongo) List(ctx context.Context) ([]models.Asset, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.assets.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: list assets: %v", ErrStorage, err)
	}
	defer cursor.Close(ctx)

	var assets []models.Asset
	if err := cursor.All(ctx, &assets); err != nil {
		return nil, fmt.Errorf("%w: decode assets: %v", ErrStorage, err)
	}
	if assets == nil {
		assets = []models.Asset{}
	}
	return assets, nil
}

func (s *Mongo) Update(ctx context.Context, id string, patch AssetPatch) (*models.Asset, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	unlock := s.locks.lock(id)
	defer unlock()

	var a models.Asset
	err = s.assets.FindOne(ctx, bson.M{"_id": oid}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find asset: %v", ErrStorage, err)
	}

	now := time.Now().UTC()
	if err := applyPatch(&a, patch, now); err != nil {
		return nil, err
	}

	res, err := s.assets.ReplaceOne(ctx, bson.M{"_id": oid}, &a)
	if err != nil {
		return nil, fmt.Errorf("%w: replace asset: %v", ErrStorage, err)
	}
	if res.MatchedCount == 0 {
		// Deleted between read and write.
		return nil, ErrNotFound
	}

	s.publish(notifier.TopicAssetUpdated, notifier.EventAssetUpdated, a.Clone(), now)
	s.publish(notifier.AssetTopic(id), notifier.EventAssetLocation, a.Clone(), now)
	return &a, nil
}

func (s *Mongo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	unlock := s.locks.lock(id)
	defer unlock()

	// The asset document embeds its history, so one delete removes
	// both atomically.
	res, err := s.assets.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("%w: delete asset: %v", ErrStorage, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Mongo) History(ctx context.Context, id string) ([]models.HistoryEntry, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	opts := options.FindOne().SetProjection(bson.M{"locationHistory": 1, "name": 1})
	var a models.Asset
	err = s.assets.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find asset: %v", ErrStorage, err)
	}
	return sortHistoryDesc(a.LocationHistory), nil
}

func (s *Mongo) Nearby(ctx context.Context, lng, lat, radiusMeters float64) ([]models.Asset, error) {
	if err := geo.ValidatePoint(lng, lat); err != nil {
		return nil, err
	}
	if radiusMeters <= 0 {
		return nil, validationErr("radius must be a positive number of meters")
	}

	// $near returns nearest-first using the 2dsphere index.
	filter := bson.M{
		"location": bson.M{
			"$near": bson.M{
				"$geometry":    bson.M{"type": "Point", "coordinates": []float64{lng, lat}},
				"$maxDistance": radiusMeters,
			},
		},
	}

	cursor, err := s.assets.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: nearby query: %v", ErrStorage, err)
	}
	defer cursor.Close(ctx)

	var assets []models.Asset
	if err := cursor.All(ctx, &assets); err != nil {
		return nil, fmt.Errorf("%w: decode assets: %v", ErrStorage, err)
	}
	if assets == nil {
		assets = []models.Asset{}
	}
	return assets, nil
}

func (s *Mongo) InZone(ctx context.Context, ring []geo.Point) ([]models.Asset, error) {
	if err := geo.ValidateRing(ring); err != nil {
		return nil, err
	}

	coords := make([][]float64, len(ring))
	for i, p := range ring {
		coords[i] = []float64{p.Lng, p.Lat}
	}
	filter := bson.M{
		"location": bson.M{
			"$geoWithin": bson.M{
				"$geometry": bson.M{"type": "Polygon", "coordinates": [][][]float64{coords}},
			},
		},
	}

	cursor, err := s.assets.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: zone query: %v", ErrStorage, err)
	}
	defer cursor.Close(ctx)

	var assets []models.Asset
	if err := cursor.All(ctx, &assets); err != nil {
		return nil, fmt.Errorf("%w: decode assets: %v", ErrStorage, err)
	}
	if assets == nil {
		assets = []models.Asset{}
	}
	return assets, nil
}

func (s *Mongo) Summary(ctx context.Context) (*Summary, error) {
	cutoff := time.Now().UTC().Add(-7 * 24 * time.Hour)

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$facet", Value: bson.D{
			{Key: "totalAssets", Value: bson.A{
				bson.D{{Key: "$count", Value: "count"}},
			}},
			{Key: "statusDistribution", Value: bson.A{
				bson.D{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: "$status"},
					{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
				}}},
				bson.D{{Key: "$project", Value: bson.D{
					{Key: "status", Value: "$_id"},
					{Key: "count", Value: 1},
					{Key: "_id", Value: 0},
				}}},
			}},
			{Key: "regionDistribution", Value: bson.A{
				bson.D{{Key: "$project", Value: bson.D{
					{Key: "lat", Value: bson.D{{Key: "$round", Value: bson.A{
						bson.D{{Key: "$arrayElemAt", Value: bson.A{"$location.coordinates", 1}}}, 0,
					}}}},
					{Key: "lng", Value: bson.D{{Key: "$round", Value: bson.A{
						bson.D{{Key: "$arrayElemAt", Value: bson.A{"$location.coordinates", 0}}}, 0,
					}}}},
				}}},
				bson.D{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: bson.D{{Key: "lat", Value: "$lat"}, {Key: "lng", Value: "$lng"}}},
					{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
				}}},
				bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
				bson.D{{Key: "$limit", Value: 10}},
			}},
			{Key: "recentActivity", Value: bson.A{
				bson.D{{Key: "$match", Value: bson.D{
					{Key: "updatedAt", Value: bson.D{{Key: "$gte", Value: cutoff}}},
				}}},
				bson.D{{Key: "$count", Value: "count"}},
			}},
		}}},
	}

	cursor, err := s.assets.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%w: summary aggregation: %v", ErrStorage, err)
	}
	defer cursor.Close(ctx)

	var facets []struct {
		TotalAssets        []struct{ Count int64 `bson:"count"` } `bson:"totalAssets"`
		StatusDistribution []StatusCount                          `bson:"statusDistribution"`
		RegionDistribution []struct {
			ID struct {
				Lat float64 `bson:"lat"`
				Lng float64 `bson:"lng"`
			} `bson:"_id"`
			Count int64 `bson:"count"`
		} `bson:"regionDistribution"`
		RecentActivity []struct{ Count int64 `bson:"count"` } `bson:"recentActivity"`
	}
	if err := cursor.All(ctx, &facets); err != nil {
		return nil, fmt.Errorf("%w: decode summary: %v", ErrStorage, err)
	}

	sum := &Summary{
		StatusDistribution: []StatusCount{},
		RegionDistribution: []RegionCount{},
	}
	if len(facets) == 0 {
		return sum, nil
	}
	f := facets[0]

	if len(f.TotalAssets) > 0 {
		sum.TotalAssets = f.TotalAssets[0].Count
	}
	if len(f.RecentActivity) > 0 {
		sum.RecentActivity = f.RecentActivity[0].Count
	}
	if f.StatusDistribution != nil {
		sum.StatusDistribution = f.StatusDistribution
	}
	for _, r := range f.RegionDistribution {
		sum.RegionDistribution = append(sum.RegionDistribution, RegionCount{
			Region: fmt.Sprintf("Region (%.0f, %.0f)", r.ID.Lat, r.ID.Lng),
			Count:  r.Count,
		})
	}
	for _, sc := range sum.StatusDistribution {
		switch sc.Status {
		case models.StatusActive:
			sum.ActiveAssets = sc.Count
		case models.StatusInactive:
			sum.InactiveAssets = sc.Count
		case models.StatusMaintenance:
			sum.MaintenanceAssets = sc.Count
		}
	}
	return sum, nil
}
