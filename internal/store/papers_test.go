package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPapers(t *testing.T) {
	s := createFixtureStore(t)

	papers, err := s.Papers(context.Background())
	require.NoError(t, err)
	require.Len(t, papers, 3)
	assert.Equal(t, Paper{
		ID:       1,
		PubmedID: "25363760",
		Title:    "Synaptic, transcriptional and chromatin genes disrupted in autism",
		Author:   "De Rubeis",
		Year:     2014,
		Cohort:   "ASD",
	}, papers[0])
	assert.Equal(t, "Sanders", papers[2].Author)
}

func TestPaper_NotFound(t *testing.T) {
	s := createFixtureStore(t)

	p, err := s.Paper(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Iossifov", p.Author)

	_, err = s.Paper(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPaperStats(t *testing.T) {
	s := createFixtureStore(t)
	ctx := context.Background()

	t.Run("paper_1", func(t *testing.T) {
		ps, err := s.PaperStats(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, PaperStats{
			Variants: 4,
			Events:   2,
			Subjects: 2,
			Categories: []LabelCount{
				{Label: "missense", Variants: 2, Events: 1},
				{Label: "synonymous", Variants: 1, Events: 1},
			},
			Contexts: []LabelCount{
				{Label: "exonic", Variants: 3, Events: 2},
				{Label: "intronic", Variants: 1, Events: 1},
			},
			Overlap: []PaperOverlap{{PaperID: 2, SharedGenes: 2}},
		}, ps)
	})

	t.Run("paper_2", func(t *testing.T) {
		ps, err := s.PaperStats(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 3, ps.Variants)
		assert.Equal(t, 3, ps.Events)
		assert.Equal(t, []LabelCount{
			{Label: "lof", Variants: 2, Events: 2},
			{Label: "missense", Variants: 1, Events: 1},
			{Label: "splicing", Variants: 1, Events: 1},
		}, ps.Categories)
		assert.Equal(t, []LabelCount{
			{Label: "exonic", Variants: 3, Events: 3},
			{Label: "splicing", Variants: 1, Events: 1},
		}, ps.Contexts)
		assert.Equal(t, []PaperOverlap{{PaperID: 1, SharedGenes: 2}}, ps.Overlap)
	})

	t.Run("no_variants", func(t *testing.T) {
		ps, err := s.PaperStats(ctx, 3)
		require.NoError(t, err)
		assert.Zero(t, ps.Variants)
		assert.NotNil(t, ps.Categories)
		assert.Empty(t, ps.Categories)
		assert.Empty(t, ps.Contexts)
		assert.Empty(t, ps.Overlap)
	})
}
