package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const inviteLockPrefix = "invite:lock:"

// releaseScript deletes the lock only if the caller still holds it
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// InviteLock serializes invitations per normalized email across instances
type InviteLock struct {
	client *Client
	ttl    time.Duration
}

// NewInviteLock creates a new invite lock
func NewInviteLock(client *Client, ttl time.Duration) *InviteLock {
	return &InviteLock{client: client, ttl: ttl}
}

// Acquire tries to take the lock for email. The returned release func is
// nil when the lock is held by someone else.
func (l *InviteLock) Acquire(ctx context.Context, email string) (func(context.Context), error) {
	key := inviteLockPrefix + email
	token := uuid.NewString()

	ok, err := l.client.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire invite lock: %w", err)
	}
	if !ok {
		return nil, nil
	}

	return func(ctx context.Context) {
		l.client.rdb.Eval(ctx, releaseScript, []string{key}, token)
	}, nil
}
