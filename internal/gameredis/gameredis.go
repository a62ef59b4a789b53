package gameredis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playone/server/internal/game"
)

const (
	snapshotTTL    = 2 * time.Hour
	leavingLockTTL = 10 * time.Second
)

// SnapshotCache publishes a best-effort PUBLIC_STATE snapshot per room to
// Redis. It exists purely for reconnect/observability — the source of truth
// is always the in-memory Session (spec §5/§9's single-process rule); a
// cache miss or Redis outage never blocks or fails a game action, mirroring
// the teacher's fire-and-forget resetIdleTimersForGame guard style.
type SnapshotCache struct {
	client *redis.Client
}

func NewSnapshotCache(client *redis.Client) *SnapshotCache {
	return &SnapshotCache{client: client}
}

func snapshotKey(roomCode string) string { return "one:snapshot:" + roomCode }

// Store writes the latest PUBLIC_STATE for roomCode. Call this from the
// EventFanout implementation whenever an EventPublicState fires.
func (c *SnapshotCache) Store(ctx context.Context, roomCode string, state game.PublicStatePayload) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		log.Printf("[GAMEREDIS] marshal snapshot failed for room %s: %v", roomCode, err)
		return
	}
	if err := c.client.Set(ctx, snapshotKey(roomCode), data, snapshotTTL).Err(); err != nil {
		log.Printf("[GAMEREDIS] store snapshot failed for room %s: %v", roomCode, err)
	}
}

// Load fetches the last cached snapshot, used only to paint a reconnecting
// client's screen before the live Session's next PUBLIC_STATE arrives.
func (c *SnapshotCache) Load(ctx context.Context, roomCode string) (game.PublicStatePayload, bool) {
	var state game.PublicStatePayload
	if c.client == nil {
		return state, false
	}
	raw, err := c.client.Get(ctx, snapshotKey(roomCode)).Bytes()
	if err != nil {
		return state, false
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return state, false
	}
	return state, true
}

// Drop removes the cached snapshot once a room is destroyed.
func (c *SnapshotCache) Drop(ctx context.Context, roomCode string) {
	if c.client == nil {
		return
	}
	c.client.Del(ctx, snapshotKey(roomCode))
}

// LeavingGuard backs the registry's "currently leaving" single-flight lock
// with a SETNX-and-TTL, the same ZSET-adjacent pattern the teacher uses in
// resetIdleTimersForGame for per-member scheduling keys. The in-memory
// RoomRegistry already enforces this within a single process; this adds the
// same guarantee across a restart mid-leave, which the in-memory map alone
// cannot.
type LeavingGuard struct {
	client *redis.Client
}

func NewLeavingGuard(client *redis.Client) *LeavingGuard {
	return &LeavingGuard{client: client}
}

func leavingKey(roomCode, seatID string) string { return "one:leaving:" + roomCode + ":" + seatID }

// TryAcquire returns true if this caller won the single-flight race for
// (roomCode, seatID). Always true if Redis is unavailable — the in-memory
// guard in RoomRegistry is the enforcement of record; this is a best-effort
// cross-restart backstop only.
func (g *LeavingGuard) TryAcquire(ctx context.Context, roomCode, seatID string) bool {
	if g.client == nil {
		return true
	}
	ok, err := g.client.SetNX(ctx, leavingKey(roomCode, seatID), "1", leavingLockTTL).Result()
	if err != nil {
		log.Printf("[GAMEREDIS] leaving-guard acquire failed for %s/%s: %v", roomCode, seatID, err)
		return true
	}
	return ok
}

// Release clears the single-flight lock once the leave has been processed.
func (g *LeavingGuard) Release(ctx context.Context, roomCode, seatID string) {
	if g.client == nil {
		return
	}
	g.client.Del(ctx, leavingKey(roomCode, seatID))
}
