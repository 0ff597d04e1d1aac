package scraper

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"atlas_scraper/config"
)

func TestDelayGrowsWithAttempt(t *testing.T) {
	b := DefaultBackoff(rand.New(rand.NewSource(3)))

	d1 := b.Delay(1)
	d2 := b.Delay(2)
	d3 := b.Delay(3)

	// jitter band around 500ms, 1s, 2s
	assert.InDelta(t, 500, float64(d1.Milliseconds()), 500*0.16)
	assert.InDelta(t, 1000, float64(d2.Milliseconds()), 1000*0.16)
	assert.InDelta(t, 2000, float64(d3.Milliseconds()), 2000*0.16)
}

func TestNewBackoffUsesConfiguredSettings(t *testing.T) {
	b := NewBackoff(config.ScraperConfig{MaxAttempts: 5, BackoffBase: 2 * time.Second}, rand.New(rand.NewSource(1)))
	assert.Equal(t, 5, b.MaxAttempts)
	assert.Equal(t, 2*time.Second, b.Base)

	// unset settings keep the defaults
	b = NewBackoff(config.ScraperConfig{}, nil)
	assert.Equal(t, 3, b.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, b.Base)
}

func TestWaitHonorsCancelledContext(t *testing.T) {
	b := DefaultBackoff(rand.New(rand.NewSource(1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := b.Wait(ctx, 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitUsesInjectedSleep(t *testing.T) {
	b := DefaultBackoff(rand.New(rand.NewSource(1)))
	var got time.Duration
	b.Sleep = func(_ context.Context, d time.Duration) error {
		got = d
		return nil
	}

	assert.NoError(t, b.Wait(context.Background(), 2))
	assert.Greater(t, got, time.Duration(0))
}

func TestNoDelayReturnsImmediately(t *testing.T) {
	start := time.Now()
	assert.NoError(t, NoDelay(context.Background(), time.Second, 2*time.Second))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
