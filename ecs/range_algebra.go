package ecs

import "sort"

// IntersectRanges computes the elementwise intersection of two canonical
// range lists using a linear two-pointer sweep, ported from
// original_source/system.h's do_intersection/intersector. The result is
// canonical and is a subset of both A and B.
func IntersectRanges(a, b []EntityRange) []EntityRange {
	var out []EntityRange
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ra, rb := a[i], b[j]
		if ra.Overlaps(rb) {
			out = append(out, Intersect(ra, rb))
		}
		if ra.Last < rb.Last {
			i++
		} else if rb.Last < ra.Last {
			j++
		} else {
			i++
			j++
		}
	}
	return out
}

// DifferenceRanges returns the entities present in A but not in B.
func DifferenceRanges(a, b []EntityRange) []EntityRange {
	var out []EntityRange
	j := 0
	for _, ra := range a {
		cur := ra
		for j < len(b) && b[j].Last < cur.First {
			j++
		}
		k := j
		for k < len(b) && b[k].First <= cur.Last {
			rb := b[k]
			if rb.First > cur.First {
				out = append(out, EntityRange{First: cur.First, Last: rb.First - 1})
			}
			if rb.Last >= cur.Last {
				cur.First = cur.Last + 1 // become empty, sentinel below
				break
			}
			cur.First = rb.Last + 1
			k++
		}
		if cur.First <= cur.Last {
			out = append(out, cur)
		}
	}
	return out
}

// CombineErase coalesces adjacent elements of an already-sorted slice for
// which merger(prev, cur) reports true, restoring the canonical run-length
// form (invariant R1) in place. It returns the (possibly shorter) slice.
func CombineErase(ranges []EntityRange, merger func(prev, cur EntityRange) bool) []EntityRange {
	if len(ranges) == 0 {
		return ranges
	}
	write := 0
	for read := 1; read < len(ranges); read++ {
		if merger(ranges[write], ranges[read]) {
			ranges[write] = Merge(ranges[write], ranges[read])
			continue
		}
		write++
		ranges[write] = ranges[read]
	}
	return ranges[:write+1]
}

// canMergeMerger is the default merger predicate used throughout the pool:
// two ranges combine whenever they are adjacent or overlapping.
func canMergeMerger(prev, cur EntityRange) bool {
	return prev.CanMerge(cur)
}

// sortRanges sorts ranges ascending by First, for inputs not already
// known to be sorted (e.g. freshly concatenated per-goroutine bags).
func sortRanges(ranges []EntityRange) {
	sort.Slice(ranges, func(i, j int) bool {
		return ranges[i].First < ranges[j].First
	})
}

// assertNoOverlap panics if any two ranges in a sorted slice overlap
// (invariant P2: no duplicate/overlapping adds within a cycle).
func assertNoOverlap(ranges []EntityRange, context string) {
	for i := 1; i < len(ranges); i++ {
		if ranges[i-1].Overlaps(ranges[i]) {
			panic("ecs: " + context + ": overlapping ranges " + ranges[i-1].String() + " and " + ranges[i].String())
		}
	}
}
