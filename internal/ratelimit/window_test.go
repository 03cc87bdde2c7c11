package ratelimit

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_NeverExceedsLimitInWindow(t *testing.T) {
	const (
		limit   = 3
		callers = 10
		window  = 100 * time.Millisecond
	)
	ch := NewChannel("test", limit, window)

	var mu sync.Mutex
	var times []time.Time
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, ch.Wait(context.Background()))
			mu.Lock()
			times = append(times, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, times, callers)
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	// Any limit+1 consecutive admissions must span at least one window.
	const slack = 15 * time.Millisecond
	for i := 0; i+limit < len(times); i++ {
		span := times[i+limit].Sub(times[i])
		assert.GreaterOrEqual(t, span, window-slack, "admissions %d..%d within %v", i, i+limit, span)
	}
}

func TestChannel_BurstUpToLimitIsImmediate(t *testing.T) {
	ch := NewChannel("burst", 5, time.Hour)
	start := time.Now()
	for range 5 {
		require.NoError(t, ch.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, int64(5), ch.Stats().Admitted)
}

func TestChannel_WaitHonoursContext(t *testing.T) {
	ch := NewChannel("ctx", 1, time.Hour)
	require.NoError(t, ch.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := ch.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, ch.Stats().Waiting)
}

func TestChannel_WindowSlides(t *testing.T) {
	now := time.Unix(0, 0)
	ch := NewChannel("clock", 2, time.Second)
	ch.now = func() time.Time { return now }

	assert.Zero(t, ch.reserve())
	now = now.Add(400 * time.Millisecond)
	assert.Zero(t, ch.reserve())

	// Window full: must wait until the first admission is a second old.
	now = now.Add(100 * time.Millisecond)
	assert.Equal(t, 500*time.Millisecond, ch.reserve())

	now = now.Add(500 * time.Millisecond)
	assert.Zero(t, ch.reserve())
	assert.Equal(t, 2, ch.Stats().InWindow)
}

func TestNewChannel_ClampsInvalidRate(t *testing.T) {
	ch := NewChannel("clamp", 0, 0)
	s := ch.Stats()
	assert.Equal(t, 1, s.Limit)
	assert.Equal(t, int64(1000), s.PerMs)
}

func TestRegistry_SharesChannelPerName(t *testing.T) {
	r := NewRegistry()
	a := r.For("deepl", 5, time.Second)
	b := r.For("deepl", 99, time.Minute)
	c := r.For("baidu_fanyi", 1, time.Second)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 5, b.Stats().Limit)

	stats := r.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "baidu_fanyi", stats[0].Name)
	assert.Equal(t, "deepl", stats[1].Name)
}
