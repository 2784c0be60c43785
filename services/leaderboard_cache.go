package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"quizforgeAPI/internal/leaderboard"
)

const leaderboardCacheTTL = 30 * time.Second

// LeaderboardCache keeps recently computed leaderboard pages in Redis
// for a few seconds. A nil cache is valid and disables caching, so the
// engine runs fine without Redis.
type LeaderboardCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewLeaderboardCache(rdb *redis.Client) *LeaderboardCache {
	return &LeaderboardCache{rdb: rdb, ttl: leaderboardCacheTTL}
}

func (c *LeaderboardCache) Get(ctx context.Context, key string) (*leaderboard.Leaderboard, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	board := &leaderboard.Leaderboard{}
	if err := json.Unmarshal(raw, board); err != nil {
		log.Printf("Dropping unreadable leaderboard cache entry %s: %v", key, err)
		c.rdb.Del(ctx, key)
		return nil, false
	}
	return board, true
}

func (c *LeaderboardCache) Set(ctx context.Context, key string, board *leaderboard.Leaderboard) {
	if c == nil || c.rdb == nil {
		return
	}

	raw, err := json.Marshal(board)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Printf("Failed to cache leaderboard %s: %v", key, err)
	}
}
