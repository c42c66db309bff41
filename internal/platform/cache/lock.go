package cache

import (
	"context"
	"time"

	"github.com/fatflowers/entitlement/pkg/tool"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out best effort mutual exclusion between replicas.
type Locker struct {
	client *redis.Client
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// TryLock acquires key for ttl. ok is false if another holder owns it.
// The returned release func is safe to call after the lock expired.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context), ok bool, err error) {
	token := tool.GenerateUUIDV7()
	ok, err = l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return func(context.Context) {}, false, err
	}
	return func(ctx context.Context) {
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}, true, nil
}
