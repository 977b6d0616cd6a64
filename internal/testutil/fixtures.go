package testutil

import (
	"math/rand"
	"strconv"

	"github.com/JacobsonMT/ndb/internal/variant"
)

// Variant builds a minimal variant record for tests.
//
// Subject and paper default to 1; use the With helpers to override them.
func Variant(id, eventID int64, chr string, start, stop int64, genes ...string) variant.Record {
	return variant.Record{
		ID:         id,
		EventID:    eventID,
		SubjectID:  1,
		PaperID:    1,
		Chromosome: chr,
		Start:      start,
		Stop:       stop,
		Ref:        "A",
		Alt:        "G",
		Genes:      append([]string{}, genes...),
		Effects:    []string{},
	}
}

// WithEffects returns a copy of rec carrying the given effect categories.
func WithEffects(rec variant.Record, effects ...string) variant.Record {
	rec.Effects = append([]string{}, effects...)
	return rec
}

// WithPaper returns a copy of rec reported by the given paper.
func WithPaper(rec variant.Record, paperID int64) variant.Record {
	rec.PaperID = paperID
	return rec
}

// WithSubject returns a copy of rec observed in the given subject.
func WithSubject(rec variant.Record, subjectID int64) variant.Record {
	rec.SubjectID = subjectID
	return rec
}

// Pools the random generators draw from. Small on purpose so that random
// batches collide on genes, effects and positions.
var (
	chromosomePool = []string{"1", "2", "10", "X", "Y", "M", "GL000192.1"}
	genePool       = []string{"BRCA1", "TP53", "CHD8", "SCN2A", "ADNP", "ARID1B"}
	effectPool     = []string{"missense", "synonymous", "lof", "splicing", "fusion"}
)

// RandomRecords generates n valid records spread over up to maxEvents events.
// Record ids are 1..n in order; event ids are 1..maxEvents.
func RandomRecords(r *rand.Rand, n, maxEvents int) []variant.Record {
	out := make([]variant.Record, 0, n)
	for i := 1; i <= n; i++ {
		start := int64(1 + r.Intn(500))
		rec := variant.Record{
			ID:         int64(i),
			EventID:    int64(1 + r.Intn(maxEvents)),
			SubjectID:  int64(1 + r.Intn(4)),
			PaperID:    int64(1 + r.Intn(5)),
			SampleID:   "S" + strconv.Itoa(i),
			Chromosome: chromosomePool[r.Intn(len(chromosomePool))],
			Start:      start,
			Stop:       start + int64(r.Intn(3)),
			Ref:        "C",
			Alt:        "T",
			Genes:      pick(r, genePool, 2),
			Effects:    pick(r, effectPool, 2),
		}
		out = append(out, rec)
	}
	return out
}

// pick returns up to max entries from pool, possibly none.
func pick(r *rand.Rand, pool []string, max int) []string {
	n := r.Intn(max + 1)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, pool[r.Intn(len(pool))])
	}
	return out
}
