package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/harborline/payments-core/pkg/errors"
	"github.com/harborline/payments-core/pkg/redis"
)

const (
	lockScope      = "payment_collection"
	lockTTL        = 30 * time.Second
	lockMaxRetries = 10
)

// CollectionLocker serializes mutating operations against one payment
// collection. The optimistic version column still guards every write; the
// lock only narrows the contention window across instances.
type CollectionLocker interface {
	Lock(ctx context.Context, collectionID uuid.UUID) (release func(), err error)
}

// NoopLocker is used when Redis is not configured. Correctness then rests on
// the version compare-and-swap alone.
type NoopLocker struct{}

func (NoopLocker) Lock(_ context.Context, _ uuid.UUID) (func(), error) {
	return func() {}, nil
}

type redisLocker struct {
	client *redis.Client
}

// NewRedisLocker returns a cross-instance collection lock backed by SetNX.
func NewRedisLocker(client *redis.Client) CollectionLocker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Lock(ctx context.Context, collectionID uuid.UUID) (func(), error) {
	key := l.client.LockKey(lockScope, collectionID.String())
	token := uuid.NewString()

	backoff := retry.WithMaxRetries(lockMaxRetries, retry.NewExponential(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		acquired, err := l.client.AcquireLock(ctx, key, token, lockTTL)
		if err != nil {
			return err
		}
		if !acquired {
			return retry.RetryableError(pkgerrors.Newf(pkgerrors.CodeDependency,
				"payment collection %s is locked by another operation", collectionID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.client.ReleaseLock(releaseCtx, key, token)
	}
	return release, nil
}
