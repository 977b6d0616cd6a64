package event

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Comparator orders two events. It returns a negative number when a sorts
// before b, a positive number when after, and zero only for events with the
// same id.
//
// Every comparator ends with an event id tie-break so that the order is
// total over a result set, and treats missing values (empty lists, empty
// chromosome) as sorting last.
type Comparator func(a, b *Event) int

// ByGenes orders events by their gene symbol lists, element-wise then by
// length.
func ByGenes(a, b *Event) int {
	if c := compareLists(a.Genes, b.Genes); c != 0 {
		return c
	}
	return cmp.Compare(a.EventID, b.EventID)
}

// ByEffects orders events by their effect category lists, element-wise then
// by length.
func ByEffects(a, b *Event) int {
	if c := compareLists(a.Effects, b.Effects); c != 0 {
		return c
	}
	return cmp.Compare(a.EventID, b.EventID)
}

// ByPapers orders events by their ascending paper id lists.
func ByPapers(a, b *Event) int {
	if c := compareLists(sortedCopy(a.Papers), sortedCopy(b.Papers)); c != 0 {
		return c
	}
	return cmp.Compare(a.EventID, b.EventID)
}

// ByLocation orders single-chromosome events by karyotype (1..22, X, Y, M,
// then other names lexically), then span start, then span stop. Multi-locus
// events come after all of them, ordered by event id.
func ByLocation(a, b *Event) int {
	aMulti, bMulti := a.MultiLocus(), b.MultiLocus()
	switch {
	case aMulti && bMulti:
		return cmp.Compare(a.EventID, b.EventID)
	case aMulti:
		return 1
	case bMulti:
		return -1
	}
	if c := compareChromosomes(a.Chromosome, b.Chromosome); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Stop, b.Stop); c != 0 {
		return c
	}
	return cmp.Compare(a.EventID, b.EventID)
}

// Sort orders events in place with the given comparator.
func Sort(events []Event, by Comparator) {
	slices.SortStableFunc(events, func(a, b Event) int {
		return by(&a, &b)
	})
}

// ComparatorNames lists the names accepted by ComparatorByName.
var ComparatorNames = []string{"genes", "effects", "papers", "location"}

// ComparatorByName resolves a sort key name to its comparator.
func ComparatorByName(name string) (Comparator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "genes":
		return ByGenes, nil
	case "effects":
		return ByEffects, nil
	case "papers":
		return ByPapers, nil
	case "location":
		return ByLocation, nil
	}
	return nil, fmt.Errorf("unknown sort key %q: must be one of %v", name, ComparatorNames)
}

// compareLists compares element-wise, then by length. An empty list sorts
// after any non-empty one.
func compareLists[T cmp.Ordered](a, b []T) int {
	if c := emptyLast(len(a) == 0, len(b) == 0); c != 0 {
		return c
	}
	return slices.Compare(a, b)
}

func emptyLast(aEmpty, bEmpty bool) int {
	switch {
	case aEmpty && !bEmpty:
		return 1
	case bEmpty && !aEmpty:
		return -1
	}
	return 0
}

func sortedCopy(ids []int64) []int64 {
	if slices.IsSorted(ids) {
		return ids
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}

// Karyotype ranks. Autosomes rank 1..22.
const (
	rankX       = 23
	rankY       = 24
	rankM       = 25
	rankOther   = 26
	rankMissing = 27
)

func karyotypeRank(chr string) int {
	if n, err := strconv.Atoi(chr); err == nil && n >= 1 && n <= 22 {
		return n
	}
	switch chr {
	case "X":
		return rankX
	case "Y":
		return rankY
	case "M":
		return rankM
	case "":
		return rankMissing
	}
	return rankOther
}

func compareChromosomes(a, b string) int {
	ra, rb := karyotypeRank(a), karyotypeRank(b)
	if c := cmp.Compare(ra, rb); c != 0 {
		return c
	}
	if ra == rankOther {
		return strings.Compare(a, b)
	}
	return 0
}
