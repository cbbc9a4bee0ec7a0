package redis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/autofragment/pkg/errors"
)

var ErrLockNotHeld = errors.New(errors.ErrCodeConflict, "run lock not held by this owner")

// releaseScript deletes the lock only when it still carries our owner value.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

// RunLock claims decomposition runs so that a request redelivered to several
// workers is processed by only one of them.
type RunLock struct {
	client *Client
	logger logging.Logger
	prefix string
	owner  string
	ttl    time.Duration
}

type LockOption func(*RunLock)

func WithLockTTL(ttl time.Duration) LockOption {
	return func(l *RunLock) { l.ttl = ttl }
}

// WithOwner fixes the owner value written into claimed keys.
func WithOwner(owner string) LockOption {
	return func(l *RunLock) { l.owner = owner }
}

func WithLockPrefix(prefix string) LockOption {
	return func(l *RunLock) { l.prefix = prefix }
}

func NewRunLock(client *Client, log logging.Logger, opts ...LockOption) *RunLock {
	if log == nil {
		log = logging.NewNopLogger()
	}
	l := &RunLock{
		client: client,
		logger: log,
		prefix: "autofrag:",
		owner:  uuid.NewString(),
		ttl:    10 * time.Minute,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RunLock) key(runID string) string {
	return l.prefix + "run:" + runID
}

// TryAcquire claims runID.  It returns false when another owner holds it.
func (l *RunLock) TryAcquire(ctx context.Context, runID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(runID), l.owner, l.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to claim run").WithDetail(runID)
	}
	if !ok {
		l.logger.Debug("run already claimed", logging.String("run_id", runID))
	}
	return ok, nil
}

// Release gives runID back.  Releasing a run claimed by someone else returns
// ErrLockNotHeld and leaves the claim in place.
func (l *RunLock) Release(ctx context.Context, runID string) error {
	n, err := l.client.Eval(ctx, releaseScript, []string{l.key(runID)}, l.owner).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release run").WithDetail(runID)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

//Personal.AI order the ending
