package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// UsageLedger keeps the used-question set of each level in a Redis SET.
type UsageLedger struct {
	client *redis.Client
}

func NewUsageLedger(client *redis.Client) *UsageLedger {
	return &UsageLedger{client: client}
}

func (l *UsageLedger) Used(ctx context.Context, level domain.Level) (map[string]struct{}, error) {
	members, err := l.client.SMembers(ctx, l.key(level)).Result()
	if err != nil {
		return nil, err
	}
	used := make(map[string]struct{}, len(members))
	for _, id := range members {
		used[id] = struct{}{}
	}
	return used, nil
}

// Replace swaps the level's set atomically.
func (l *UsageLedger) Replace(ctx context.Context, level domain.Level, used map[string]struct{}) error {
	key := l.key(level)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(used) == 0 {
			return nil
		}
		members := make([]interface{}, 0, len(used))
		for id := range used {
			members = append(members, id)
		}
		pipe.SAdd(ctx, key, members...)
		return nil
	})
	return err
}

func (l *UsageLedger) key(level domain.Level) string {
	return "olimpiadas:used:" + string(level)
}
