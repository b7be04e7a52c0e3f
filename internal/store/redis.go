package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"colornamer/internal/game"
)

// Redis is the external KV backend. Documents live under game:<id> and the
// update log under updates:<id>, trimmed to the last UpdateLogSize entries.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func gameKey(id string) string    { return "game:" + id }
func updatesKey(id string) string { return "updates:" + id }

func (r *Redis) Get(ctx context.Context, id string) (game.State, error) {
	data, err := r.rdb.Get(ctx, gameKey(id)).Bytes()
	if err == redis.Nil {
		return game.State{}, ErrNotFound
	}
	if err != nil {
		return game.State{}, fmt.Errorf("redis get: %w", err)
	}

	var s game.State
	if err := json.Unmarshal(data, &s); err != nil {
		return game.State{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return s, nil
}

func (r *Redis) Put(ctx context.Context, id string, s game.State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}
	if err := r.rdb.Set(ctx, gameKey(id), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, gameKey(id), updatesKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *Redis) AppendUpdate(ctx context.Context, id string, upd Update) error {
	data, err := json.Marshal(upd)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, updatesKey(id), data)
	pipe.LTrim(ctx, updatesKey(id), -UpdateLogSize, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append update: %w", err)
	}
	return nil
}

func (r *Redis) Updates(ctx context.Context, id string, since int64) ([]Update, error) {
	entries, err := r.rdb.LRange(ctx, updatesKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	var out []Update
	for _, e := range entries {
		var u Update
		if err := json.Unmarshal([]byte(e), &u); err != nil {
			continue
		}
		if u.Timestamp > since {
			out = append(out, u)
		}
	}
	return out, nil
}
