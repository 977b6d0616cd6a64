package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JacobsonMT/ndb/internal/event"
	"github.com/JacobsonMT/ndb/internal/variant"
)

func ids(records []variant.Record) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestVariant(t *testing.T) {
	s := createFixtureStore(t)

	rec, err := s.Variant(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, variant.Record{
		ID:           1,
		RawVariantID: 9001,
		EventID:      7,
		SubjectID:    101,
		PaperID:      1,
		SampleID:     "11000.p1",
		Chromosome:   "17",
		Start:        41245466,
		Stop:         41245466,
		Ref:          "G",
		Alt:          "A",
		Genes:        []string{"BRCA1"},
		Effects:      []string{"missense"},
		Funcs:        []string{"exonic"},
		AAChanges:    []string{"p.R1699W"},
		Cytoband:     "17q21.31",
	}, rec)
}

func TestVariant_NotFound(t *testing.T) {
	s := createFixtureStore(t)

	_, err := s.Variant(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestVariantsByGene(t *testing.T) {
	s := createFixtureStore(t)
	ctx := context.Background()

	recs, err := s.VariantsByGene(ctx, "tp53")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids(recs), "case-insensitive, ordered by id")

	recs, err = s.VariantsByGene(ctx, "NOPE")
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	_, err = s.VariantsByGene(ctx, "  ")
	require.Error(t, err)
}

func TestVariantsByRegion(t *testing.T) {
	s := createFixtureStore(t)
	ctx := context.Background()

	tests := []struct {
		region string
		want   []int64
	}{
		{"chr2:166170000-166170100", []int64{6, 7}},
		{"17:7577000-7579000", []int64{2, 3}},
		{"X:2010-2010", []int64{4}},
		{"X:1990-1999", []int64{}},
		{"1:1-1000000000", []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			r, err := variant.ParseRegion(tt.region)
			require.NoError(t, err)
			recs, err := s.VariantsByRegion(ctx, r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(recs))
			for _, rec := range recs {
				assert.True(t, r.Overlaps(rec))
			}
		})
	}

	_, err := s.VariantsByRegion(ctx, variant.Region{Chromosome: "1", Start: 5, Stop: 1})
	require.Error(t, err)
}

func TestVariantsByEvent(t *testing.T) {
	s := createFixtureStore(t)
	ctx := context.Background()

	recs, err := s.VariantsByEvent(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 5}, ids(recs))

	recs, err = s.VariantsByEvent(ctx, 11, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 7}, ids(recs))

	recs, err = s.VariantsByEvent(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestVariantsByEvent_ManyIDs(t *testing.T) {
	s := createFixtureStore(t)

	// More ids than SQLite accepts as parameters of one statement.
	eventIDs := make([]int64, 0, 40000)
	for id := int64(40000); id >= 1; id-- {
		eventIDs = append(eventIDs, id)
	}

	recs, err := s.VariantsByEvent(context.Background(), eventIDs...)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7}, ids(recs), "merged batches stay ordered by id")
}

// TestVariantsByGene_GroupsIntoEvents feeds store output through the
// grouping engine the way the events command does.
func TestVariantsByGene_GroupsIntoEvents(t *testing.T) {
	s := createFixtureStore(t)
	ctx := context.Background()

	recs, err := s.VariantsByEvent(ctx, 7, 3)
	require.NoError(t, err)

	events, err := event.Group(recs)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, int64(7), events[0].EventID)
	assert.Equal(t, []string{"BRCA1", "TP53"}, events[0].Genes)
	assert.True(t, events[0].Complex)
	assert.Equal(t, int64(3), events[1].EventID)
	assert.False(t, events[1].Complex)
	assert.True(t, event.AnyComplex(events))
}
