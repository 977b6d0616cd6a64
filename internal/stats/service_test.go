package stats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource counts calls per aggregate and fails the ones listed in fail.
type fakeSource struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
	n     []int

	papers int
	genes  []GeneCount
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls:  map[string]int{},
		fail:   map[string]error{},
		papers: 42,
		genes: []GeneCount{
			{Symbol: "TP53", Count: 9},
			{Symbol: "BRCA1", Count: 4},
		},
	}
}

func (f *fakeSource) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.fail[name]
}

func (f *fakeSource) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeSource) PaperCountWithVariants(context.Context) (int, error) {
	if err := f.record(MetricPaperCount); err != nil {
		return 0, err
	}
	return f.papers, nil
}

func (f *fakeSource) VariantCount(context.Context) (int, error) {
	return 120, f.record(MetricVariantCount)
}

func (f *fakeSource) EventCount(context.Context) (int, error) {
	return 80, f.record(MetricEventCount)
}

func (f *fakeSource) SubjectCount(context.Context) (int, error) {
	return 65, f.record(MetricSubjectCount)
}

func (f *fakeSource) TopGenesByVariantCount(_ context.Context, n int) ([]GeneCount, error) {
	f.mu.Lock()
	f.n = append(f.n, n)
	f.mu.Unlock()
	return f.genes, f.record(MetricTopGenesByVariants)
}

func (f *fakeSource) TopGenesByEventCount(_ context.Context, n int) ([]GeneCount, error) {
	return []GeneCount{{Symbol: "TP53", Count: 5}}, f.record(MetricTopGenesByEvents)
}

func (f *fakeSource) TopEffectCategories(_ context.Context, n int) ([]CategoryCount, error) {
	return []CategoryCount{{Category: "missense", Count: 30}, {Category: "lof", Count: 12}}, f.record(MetricTopEffectCategories)
}

func (f *fakeSource) TopFuncs(_ context.Context, n int) ([]FuncCount, error) {
	return []FuncCount{{Func: "exonic", Count: 100}, {Func: "splicing", Count: 7}}, f.record(MetricTopFuncs)
}

func newTestService(t *testing.T, src Source, opts Options) (*Service, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC))
	opts.Clock = clock
	return NewService(src, opts), clock
}

func TestPaperCount_CachedForAnHour(t *testing.T) {
	src := newFakeSource()
	svc, clock := newTestService(t, src, Options{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		n, err := svc.PaperCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 42, n)
		clock.Advance(6 * time.Minute)
	}
	assert.Equal(t, 1, src.count(MetricPaperCount))

	src.mu.Lock()
	src.papers = 43
	src.mu.Unlock()
	clock.Advance(31 * time.Minute)

	n, err := svc.PaperCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 43, n)
	assert.Equal(t, 2, src.count(MetricPaperCount))
}

func TestMetrics_AreIndependent(t *testing.T) {
	src := newFakeSource()
	svc, _ := newTestService(t, src, Options{})
	ctx := context.Background()

	_, err := svc.PaperCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, src.count(MetricVariantCount), "reading one figure computes only that figure")

	_, err = svc.VariantCount(ctx)
	require.NoError(t, err)
	_, err = svc.VariantCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, src.count(MetricVariantCount))
	assert.Equal(t, 1, src.count(MetricPaperCount))

	st := svc.CacheStats()
	assert.EqualValues(t, 1, st[MetricVariantCount].Hits)
	assert.EqualValues(t, 0, st[MetricPaperCount].Hits)
	assert.EqualValues(t, 0, st[MetricEventCount].Misses)
}

func TestTopGenes_UsesTopNAndReturnsCopy(t *testing.T) {
	src := newFakeSource()
	svc, _ := newTestService(t, src, Options{TopN: 3})
	ctx := context.Background()

	genes, err := svc.TopGenesByVariantCount(ctx)
	require.NoError(t, err)
	require.Len(t, genes, 2)
	assert.Equal(t, []int{3}, src.n)
	assert.Equal(t, 3, svc.TopN())

	genes[0].Symbol = "MUTATED"
	again, err := svc.TopGenesByVariantCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TP53", again[0].Symbol)
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(newFakeSource(), Options{TopN: -1})
	assert.Equal(t, DefaultTopN, svc.TopN())
}

func TestFailure_PropagatesAndRetries(t *testing.T) {
	src := newFakeSource()
	boom := errors.New("no such table: variants")
	src.fail[MetricEventCount] = boom
	svc, _ := newTestService(t, src, Options{})
	ctx := context.Background()

	_, err := svc.EventCount(ctx)
	require.ErrorIs(t, err, boom)

	src.mu.Lock()
	delete(src.fail, MetricEventCount)
	src.mu.Unlock()

	n, err := svc.EventCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 80, n)
	assert.Equal(t, 2, src.count(MetricEventCount))
}

func TestSummary(t *testing.T) {
	src := newFakeSource()
	svc, _ := newTestService(t, src, Options{})

	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{
		Papers:   42,
		Variants: 120,
		Events:   80,
		Subjects: 65,
		TopGenesByVariants: []GeneCount{
			{Symbol: "TP53", Count: 9},
			{Symbol: "BRCA1", Count: 4},
		},
		TopGenesByEvents: []GeneCount{{Symbol: "TP53", Count: 5}},
		TopEffectCategories: []CategoryCount{
			{Category: "missense", Count: 30},
			{Category: "lof", Count: 12},
		},
		TopFuncs: []FuncCount{
			{Func: "exonic", Count: 100},
			{Func: "splicing", Count: 7},
		},
	}, sum)

	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	for _, name := range []string{
		MetricPaperCount, MetricVariantCount, MetricEventCount, MetricSubjectCount,
		MetricTopGenesByVariants, MetricTopGenesByEvents, MetricTopEffectCategories,
		MetricTopFuncs,
	} {
		assert.Equal(t, 1, src.count(name), name)
	}
}

func TestSummary_FirstFailureAborts(t *testing.T) {
	src := newFakeSource()
	src.fail[MetricSubjectCount] = errors.New("disk I/O error")
	svc, _ := newTestService(t, src, Options{})

	_, err := svc.Summary(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject_count")
	assert.Zero(t, src.count(MetricTopGenesByVariants))
}

func TestInvalidate_RecomputesEverything(t *testing.T) {
	src := newFakeSource()
	svc, _ := newTestService(t, src, Options{})
	ctx := context.Background()

	_, err := svc.Summary(ctx)
	require.NoError(t, err)
	svc.Invalidate()
	_, err = svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.count(MetricPaperCount))
	assert.Equal(t, 2, src.count(MetricTopEffectCategories))
	assert.Equal(t, 2, src.count(MetricTopFuncs))
}
