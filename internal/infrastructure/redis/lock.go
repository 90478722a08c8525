package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lostfound-api/internal/pkg/id"
)

// releaseScript deletes the key only if it still holds our token, so a lock
// that expired and was taken by another instance is left alone.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out short-lived exclusive locks backed by SET NX EX.
type Locker struct {
	client *goredis.Client
	prefix string
}

func NewLocker(client *goredis.Client, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

// TryLock attempts to take name for ttl. ok is false when another holder has it.
// The returned release func is safe to call once the work is done.
func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error) {
	key := l.prefix + name
	token := id.New()
	ok, err = l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return func() {}, false, nil
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			slog.Warn("could not release lock", "key", key, "err", err)
		}
	}, true, nil
}
