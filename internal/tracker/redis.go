package tracker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"godispatch/internal/models"
	"godispatch/pkg/cache"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	geoKey  = "tracker:positions"
	seenKey = "tracker:seen"
)

// reportScript applies a position update only when its event timestamp is not
// older than the stored one, keeping last-write-wins semantics across
// processes.
var reportScript = redis.NewScript(`
local seen = redis.call('HGET', KEYS[2], ARGV[1])
if seen and tonumber(seen) > tonumber(ARGV[2]) then
  return 0
end
redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
redis.call('GEOADD', KEYS[1], ARGV[3], ARGV[4], ARGV[1])
return 1
`)

// RedisTracker is a LocationTracker backed by a Redis GEO set, for running
// several dispatch instances against one live view. Semantics match
// MemoryTracker.
type RedisTracker struct {
	client     *redis.Client
	staleAfter time.Duration
	now        func() time.Time
}

func NewRedisTracker(c *cache.RedisCache, staleAfter time.Duration) *RedisTracker {
	return &RedisTracker{
		client:     c.Client(),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (t *RedisTracker) Report(ctx context.Context, report models.LocationReport) (bool, error) {
	applied, err := reportScript.Run(ctx, t.client,
		[]string{geoKey, seenKey},
		report.CourierID.Hex(),
		report.Timestamp.UnixMilli(),
		report.Location.Longitude(),
		report.Location.Latitude(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to report courier location: %w", err)
	}
	return applied == 1, nil
}

func (t *RedisTracker) CurrentLocation(ctx context.Context, courierID primitive.ObjectID) (models.LocationReport, bool, error) {
	member := courierID.Hex()

	seen, err := t.client.HGet(ctx, seenKey, member).Result()
	if err == redis.Nil {
		return models.LocationReport{}, false, nil
	}
	if err != nil {
		return models.LocationReport{}, false, fmt.Errorf("failed to read courier timestamp: %w", err)
	}

	pos, err := t.client.GeoPos(ctx, geoKey, member).Result()
	if err != nil {
		return models.LocationReport{}, false, fmt.Errorf("failed to read courier position: %w", err)
	}
	if len(pos) == 0 || pos[0] == nil {
		return models.LocationReport{}, false, nil
	}

	millis, err := strconv.ParseInt(seen, 10, 64)
	if err != nil {
		return models.LocationReport{}, false, fmt.Errorf("corrupt courier timestamp %q: %w", seen, err)
	}

	loc, err := models.NewLocation(pos[0].Latitude, pos[0].Longitude)
	if err != nil {
		return models.LocationReport{}, false, err
	}
	return models.LocationReport{
		CourierID: courierID,
		Location:  loc,
		Timestamp: time.UnixMilli(millis),
	}, true, nil
}

func (t *RedisTracker) FindNearby(ctx context.Context, center models.Location, radius models.Distance) ([]NearbyCourier, error) {
	results, err := t.client.GeoSearchLocation(ctx, geoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Longitude(),
			Latitude:   center.Latitude(),
			Radius:     radius.Kilometers(),
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geo search failed: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	members := make([]string, len(results))
	for i, r := range results {
		members[i] = r.Name
	}
	seen, err := t.client.HMGet(ctx, seenKey, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read courier timestamps: %w", err)
	}

	cutoff := t.now().Add(-t.staleAfter)
	hits := make([]NearbyCourier, 0, len(results))
	for i, r := range results {
		raw, ok := seen[i].(string)
		if !ok {
			continue
		}
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		reportedAt := time.UnixMilli(millis)
		if reportedAt.Before(cutoff) {
			continue
		}
		id, err := primitive.ObjectIDFromHex(r.Name)
		if err != nil {
			continue
		}
		loc, err := models.NewLocation(r.Latitude, r.Longitude)
		if err != nil {
			continue
		}
		hits = append(hits, NearbyCourier{
			CourierID:  id,
			Location:   loc,
			Distance:   models.Distance(r.Dist * 1000),
			ReportedAt: reportedAt,
		})
	}
	return hits, nil
}

func (t *RedisTracker) Remove(ctx context.Context, courierID primitive.ObjectID) error {
	member := courierID.Hex()
	if err := t.client.ZRem(ctx, geoKey, member).Err(); err != nil {
		return fmt.Errorf("failed to remove courier position: %w", err)
	}
	return t.client.HDel(ctx, seenKey, member).Err()
}

func (t *RedisTracker) EvictStale(ctx context.Context) (int, error) {
	seen, err := t.client.HGetAll(ctx, seenKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list courier timestamps: %w", err)
	}

	cutoff := t.now().Add(-t.staleAfter).UnixMilli()
	evicted := 0
	for member, raw := range seen {
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || millis >= cutoff {
			continue
		}
		if err := t.client.ZRem(ctx, geoKey, member).Err(); err != nil {
			return evicted, err
		}
		if err := t.client.HDel(ctx, seenKey, member).Err(); err != nil {
			return evicted, err
		}
		evicted++
	}
	return evicted, nil
}
