package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"devfolio/api/models"
)

const reportTTL = 60 * time.Second

// StatsCache keeps recently computed dashboard reports in Redis so repeated
// dashboard loads do not re-run every aggregation query. All cache failures
// are logged and treated as misses.
type StatsCache struct {
	rdb *redis.Client
}

func ConnectRedis(addr, password string) (*StatsCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &StatsCache{rdb: rdb}, nil
}

func reportKey(windowDays int) string {
	return fmt.Sprintf("stats:report:%d", windowDays)
}

// GetReport returns the cached report for a window, or nil on miss.
func (c *StatsCache) GetReport(ctx context.Context, windowDays int) *models.StatsReport {
	raw, err := c.rdb.Get(ctx, reportKey(windowDays)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Stats cache read failed: %v", err)
		}
		return nil
	}

	var report models.StatsReport
	if err := json.Unmarshal(raw, &report); err != nil {
		log.Printf("Stats cache held an undecodable report, dropping it: %v", err)
		c.rdb.Del(ctx, reportKey(windowDays))
		return nil
	}
	return &report
}

// SetReport stores a computed report for its window.
func (c *StatsCache) SetReport(ctx context.Context, windowDays int, report *models.StatsReport) {
	raw, err := json.Marshal(report)
	if err != nil {
		log.Printf("Failed to encode stats report for cache: %v", err)
		return
	}
	if err := c.rdb.Set(ctx, reportKey(windowDays), raw, reportTTL).Err(); err != nil {
		log.Printf("Stats cache write failed: %v", err)
	}
}

// Invalidate drops every cached report. Called after a bulk clear so the
// dashboard never shows deleted data.
func (c *StatsCache) Invalidate(ctx context.Context) {
	keys, err := c.rdb.Keys(ctx, "stats:report:*").Result()
	if err != nil {
		log.Printf("Stats cache invalidation scan failed: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Stats cache invalidation failed: %v", err)
	}
}

func (c *StatsCache) Close() error {
	return c.rdb.Close()
}
