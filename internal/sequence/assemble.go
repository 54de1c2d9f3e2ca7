package sequence

import (
	"cmp"
	"fmt"
	"slices"
)

// Discrepancy records a chunk whose actual unit count differs from its
// estimate. Undercount marks chunks that stayed below the tolerance after
// every retry.
type Discrepancy struct {
	Chunk      int  `json:"chunk"`
	Expected   int  `json:"expected"`
	Actual     int  `json:"actual"`
	Undercount bool `json:"undercount"`
}

// Assembly is the merged output of all chunks of a run.
type Assembly[U any, M any] struct {
	Units         []U
	Entities      []Entity
	Meta          *M
	Discrepancies []Discrepancy
}

// Assemble concatenates chunk results in order, checks that numbers run
// exactly 1..N and merges entities by name (first occurrence wins).
// Metadata is taken only from the first chunk.
func Assemble[U Unit[U], M any](results []ChunkResult[U, M]) (Assembly[U, M], error) {
	var out Assembly[U, M]
	total := 0
	for _, r := range results {
		total += len(r.Units)
	}
	out.Units = make([]U, 0, total)

	for _, r := range results {
		out.Units = append(out.Units, r.Units...)
		out.Entities = MergeEntities(out.Entities, r.Entities)
		if r.First && out.Meta == nil {
			out.Meta = r.Meta
		}
		if len(r.Units) != r.Expected {
			out.Discrepancies = append(out.Discrepancies, Discrepancy{
				Chunk:      r.Chunk,
				Expected:   r.Expected,
				Actual:     len(r.Units),
				Undercount: r.Undercount,
			})
		}
	}

	slices.SortStableFunc(out.Units, func(a, b U) int { return cmp.Compare(a.Number(), b.Number()) })
	for i, u := range out.Units {
		if u.Number() != i+1 {
			return Assembly[U, M]{}, fmt.Errorf("%w: position %d has number %d", ErrSequenceGap, i+1, u.Number())
		}
	}
	return out, nil
}

// Undercounted reports whether any discrepancy is an accepted undercount.
func Undercounted(ds []Discrepancy) bool {
	for _, d := range ds {
		if d.Undercount {
			return true
		}
	}
	return false
}

// MergeEntities appends the entities in add whose Name is not already in
// base. base is not modified.
func MergeEntities(base, add []Entity) []Entity {
	seen := make(map[string]bool, len(base)+len(add))
	out := make([]Entity, 0, len(base)+len(add))
	for _, e := range base {
		seen[e.Name] = true
		out = append(out, e)
	}
	for _, e := range add {
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		out = append(out, e)
	}
	return out
}
