package clusterspectator

import (
	"context"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

const defaultRefreshInterval = 30 * time.Second

// refreshRetries bounds the in-place retries of one refresh pass; anything
// still dirty after that is retried on the next pass.
const refreshRetries = 4

// RefreshDriver is the single event-processing loop that serializes cache
// refreshes. Watch callbacks only flip dirty flags (and optionally Wake the
// driver); the driver alone talks to the store. Transient refresh failures
// are retried with exponential backoff, and whatever still fails stays dirty
// for the next pass.
type RefreshDriver struct {
	cache    *ClusterDataCache
	accessor Accessor
	interval time.Duration

	wake    chan struct{}
	healthy atomic.Bool
}

// NewRefreshDriver returns a driver that refreshes the cache from the given
// accessor every interval and whenever it is woken. A zero interval selects
// the default.
func NewRefreshDriver(cache *ClusterDataCache, accessor Accessor, interval time.Duration) *RefreshDriver {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}

	return &RefreshDriver{
		cache:    cache,
		accessor: accessor,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Run drives refreshes until the context is cancelled. It performs one
// refresh immediately so the initial full load does not wait for the first
// tick.
func (d *RefreshDriver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.refreshOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.wake:
		}

		d.refreshOnce(ctx)
	}
}

// Wake nudges the driver to refresh ahead of the next tick. It never blocks;
// concurrent wakes collapse into one, the same way notifications collapse
// into a single dirty flag.
func (d *RefreshDriver) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Healthy reports whether at least one refresh pass has fully succeeded.
func (d *RefreshDriver) Healthy() bool {
	return d.healthy.Load()
}

func (d *RefreshDriver) refreshOnce(ctx context.Context) {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), refreshRetries), ctx)

	err := backoff.Retry(func() error {
		return d.cache.Refresh(ctx, d.accessor)
	}, policy)
	if err != nil {
		log.Errorf("Cache refresh did not fully succeed: %v. Dirty partitions will be retried", err)
		return
	}

	d.healthy.Store(true)
}
