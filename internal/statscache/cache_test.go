package statscache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JacobsonMT/ndb/internal/testutil"
)

var epoch = time.Date(2015, 6, 1, 9, 0, 0, 0, time.UTC)

func newFakeCache[T any](t *testing.T, p *testutil.CountingProducer[T], opts ...Option) (*Cache[T], *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(epoch)
	opts = append([]Option{WithClock(clock)}, opts...)
	return New("test_metric", p.Produce, opts...), clock
}

func TestGet_PaperCountScenario(t *testing.T) {
	p := testutil.NewCountingProducer(42, 43)
	c, clock := newFakeCache(t, p)
	ctx := context.Background()

	v, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.EqualValues(t, 1, p.Calls())

	for i := 0; i < 5; i++ {
		clock.Advance(6 * time.Minute)
		v, err := c.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.EqualValues(t, 1, p.Calls(), "reads within the hour must not recompute")

	clock.Advance(31 * time.Minute) // 61 minutes after the first read
	v, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 43, v)
	assert.EqualValues(t, 2, p.Calls())

	s := c.Stats()
	assert.EqualValues(t, 5, s.Hits)
	assert.EqualValues(t, 2, s.Misses)
	assert.EqualValues(t, 2, s.Refreshes)
	assert.Zero(t, s.Failures)
}

func TestGet_ExpiryBoundary(t *testing.T) {
	p := testutil.NewCountingProducer("first", "second")
	c, clock := newFakeCache(t, p, WithTTL(time.Hour))
	ctx := context.Background()

	_, err := c.Get(ctx)
	require.NoError(t, err)
	at, ok := c.ComputedAt()
	require.True(t, ok)
	assert.Equal(t, epoch, at)

	clock.Advance(time.Hour - time.Nanosecond)
	v, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", v, "still fresh one tick before expiry")

	clock.Advance(time.Nanosecond)
	v, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", v, "expired exactly at computedAt+TTL")
	assert.EqualValues(t, 2, p.Calls())

	at, _ = c.ComputedAt()
	assert.Equal(t, epoch.Add(time.Hour), at)
}

func TestGet_SingleFlight(t *testing.T) {
	p := testutil.NewCountingProducer(7)
	p.Gate = make(chan struct{})
	p.Started = make(chan struct{}, 1)
	c, _ := newFakeCache(t, p)

	const callers = 50
	results := make([]int, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Get(context.Background())
		}(i)
	}

	<-p.Started
	close(p.Gate)
	wg.Wait()

	assert.EqualValues(t, 1, p.Calls(), "one producer call for all concurrent readers")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 7, results[i])
	}
	assert.EqualValues(t, callers, c.Stats().Hits+c.Stats().Misses)
}

func TestGet_FailureLeavesEntryUntouched(t *testing.T) {
	boom := errors.New("database is locked")
	p := testutil.NewCountingProducer(10, 11)
	c, clock := newFakeCache(t, p)
	ctx := context.Background()

	p.FailNext(boom)
	_, err := c.Get(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "test_metric")
	_, ok := c.ComputedAt()
	assert.False(t, ok, "failed first computation leaves the entry empty")

	v, err := c.Get(ctx)
	require.NoError(t, err, "next read retries")
	assert.Equal(t, 10, v)

	clock.Advance(2 * time.Hour)
	p.FailNext(boom)
	_, err = c.Get(ctx)
	require.ErrorIs(t, err, boom)
	at, ok := c.ComputedAt()
	require.True(t, ok, "stale value retained after failed refresh")
	assert.Equal(t, epoch, at)

	v, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, v)
	assert.EqualValues(t, 4, p.Calls())

	s := c.Stats()
	assert.EqualValues(t, 2, s.Failures)
	assert.EqualValues(t, 2, s.Refreshes)
}

func TestGet_ConcurrentFailureReachesJoinedCallers(t *testing.T) {
	boom := errors.New("timeout")
	p := testutil.NewCountingProducer(5)
	p.Gate = make(chan struct{})
	p.Started = make(chan struct{}, 64)
	p.FailNext(boom)
	c, _ := newFakeCache(t, p)

	const callers = 20
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Get(context.Background())
		}(i)
	}
	<-p.Started

	// Every caller has missed; give the last ones time to reach Do.
	require.Eventually(t, func() bool {
		return c.Stats().Misses == callers
	}, 5*time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(p.Gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		assert.ErrorIs(t, errs[i], boom, "caller %d", i)
	}
	assert.EqualValues(t, 1, p.Calls())
	assert.EqualValues(t, 1, c.Stats().Failures)

	_, ok := c.ComputedAt()
	assert.False(t, ok)
}

func TestGet_ProducerIgnoresCallerCancellation(t *testing.T) {
	c := New("ctx_metric", func(ctx context.Context) (int, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 3, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestGet_IndependentCachesDoNotBlock(t *testing.T) {
	slow := testutil.NewCountingProducer(1)
	slow.Gate = make(chan struct{})
	slow.Started = make(chan struct{}, 1)
	fast := testutil.NewCountingProducer(2)

	a, _ := newFakeCache(t, slow)
	b, _ := newFakeCache(t, fast)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = a.Get(context.Background())
	}()
	<-slow.Started

	got := make(chan int, 1)
	go func() {
		v, _ := b.Get(context.Background())
		got <- v
	}()

	select {
	case v := <-got:
		assert.Equal(t, 2, v)
	case <-time.After(5 * time.Second):
		t.Fatal("independent cache blocked behind a slow producer")
	}

	close(slow.Gate)
	<-done
}

func TestInvalidate(t *testing.T) {
	p := testutil.NewCountingProducer(1, 2)
	c, _ := newFakeCache(t, p)
	ctx := context.Background()

	_, err := c.Get(ctx)
	require.NoError(t, err)
	c.Invalidate()
	_, ok := c.ComputedAt()
	assert.False(t, ok)

	v, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestInvalidate_DuringRefreshDiscardsResult(t *testing.T) {
	p := testutil.NewCountingProducer(1, 2)
	p.Gate = make(chan struct{})
	p.Started = make(chan struct{}, 4)
	c, _ := newFakeCache(t, p)

	first := make(chan int, 1)
	go func() {
		v, _ := c.Get(context.Background())
		first <- v
	}()
	<-p.Started

	c.Invalidate()
	close(p.Gate)

	assert.Equal(t, 1, <-first, "joined waiters still receive the result")
	_, ok := c.ComputedAt()
	assert.False(t, ok, "a result computed before Invalidate is not stored")

	v, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.EqualValues(t, 2, p.Calls())
}

func TestInvalidate_NewReadsDoNotJoinOlderFlight(t *testing.T) {
	p := testutil.NewCountingProducer(1, 2)
	p.Gate = make(chan struct{})
	p.Started = make(chan struct{}, 4)
	c, _ := newFakeCache(t, p)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = c.Get(context.Background())
	}()
	<-p.Started

	c.Invalidate()

	var after int
	go func() {
		defer wg.Done()
		after, _ = c.Get(context.Background())
	}()
	select {
	case <-p.Started:
	case <-time.After(5 * time.Second):
		t.Fatal("read after Invalidate joined the older computation")
	}
	close(p.Gate)
	wg.Wait()

	assert.EqualValues(t, 2, p.Calls())
	v, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, after, v, "only the computation started after Invalidate is cached")
	assert.EqualValues(t, 2, p.Calls())
}

func TestNew_Defaults(t *testing.T) {
	c := New("x", testutil.NewCountingProducer(0).Produce, WithTTL(0), WithClock(nil))
	assert.Equal(t, DefaultTTL, c.TTL())
	assert.Equal(t, "x", c.Name())
	assert.NotNil(t, c.clock)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	p := testutil.NewCountingProducer(1)
	c, clock := newFakeCache(t, p, WithMetrics(m))
	ctx := context.Background()

	_, err = c.Get(ctx)
	require.NoError(t, err)
	_, err = c.Get(ctx)
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)
	p.FailNext(errors.New("boom"))
	_, err = c.Get(ctx)
	require.Error(t, err)

	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.requests.WithLabelValues("test_metric", "hit")))
	assert.Equal(t, 2.0, promtestutil.ToFloat64(m.requests.WithLabelValues("test_metric", "miss")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.refreshes.WithLabelValues("test_metric", "success")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.refreshes.WithLabelValues("test_metric", "error")))

	_, err = NewMetrics(reg)
	require.Error(t, err, "double registration")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeRequest("x", true)
		m.observeRefresh("x", false, time.Second)
	})
}

func TestStats_HitRatio(t *testing.T) {
	assert.Zero(t, Stats{}.HitRatio())
	assert.InDelta(t, 0.75, Stats{Hits: 3, Misses: 1}.HitRatio(), 1e-9)
}
