package backends

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// OpenPostgres connects the game-history write-through store. sqlx.Connect
// already pings, so there is no second verification round-trip; the pool is
// kept small because the only writer is the fire-and-forget LifecycleHooks
// dispatch at game end — there is no per-request query traffic to absorb.
func OpenPostgres(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// OpenRedis connects the snapshot cache and leaving-guard backend. The ping
// carries a bounded deadline so an unreachable Redis fails startup quickly
// instead of hanging the boot sequence.
func OpenRedis(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
