package scraper

import (
	"context"
	"math/rand"
	"time"

	"atlas_scraper/config"
)

// BackoffPolicy computes retry waits: Base doubling per attempt via Factor,
// with a uniform jitter factor in [0.85, 1.15] so retries do not align.
type BackoffPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Factor      float64
	rng         *rand.Rand

	// Sleep is swapped in tests; nil means a context-aware real sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultBackoff(rng *rand.Rand) *BackoffPolicy {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &BackoffPolicy{
		MaxAttempts: 3,
		Base:        500 * time.Millisecond,
		Factor:      2,
		rng:         rng,
	}
}

// NewBackoff builds a policy from the scraper settings, keeping the defaults
// for anything unset.
func NewBackoff(cfg config.ScraperConfig, rng *rand.Rand) *BackoffPolicy {
	b := DefaultBackoff(rng)
	if cfg.MaxAttempts > 0 {
		b.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BackoffBase > 0 {
		b.Base = cfg.BackoffBase
	}
	return b
}

// Delay returns the wait before retry number attempt (1-based: the delay
// taken after attempt 1 fails is Delay(1)).
func (b *BackoffPolicy) Delay(attempt int) time.Duration {
	d := float64(b.Base)
	for i := 1; i < attempt; i++ {
		d *= b.Factor
	}
	jitter := 0.85 + b.rng.Float64()*0.30
	return time.Duration(d * jitter)
}

// Wait sleeps for the attempt's delay, returning early if ctx is done.
func (b *BackoffPolicy) Wait(ctx context.Context, attempt int) error {
	d := b.Delay(attempt)
	if b.Sleep != nil {
		return b.Sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DelayFunc injects the human-pacing delay used before navigation. Production
// uses a random wait in the configured band; tests use a no-op.
type DelayFunc func(ctx context.Context, min, max time.Duration) error

// HumanDelay waits a random duration in [min, max].
func HumanDelay(rng *rand.Rand) DelayFunc {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return func(ctx context.Context, min, max time.Duration) error {
		d := min
		if max > min {
			d += time.Duration(rng.Int63n(int64(max - min)))
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}

// NoDelay skips pacing entirely.
func NoDelay(ctx context.Context, min, max time.Duration) error {
	return ctx.Err()
}
