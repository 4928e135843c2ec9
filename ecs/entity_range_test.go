package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func r(first, last Entity) EntityRange { return EntityRange{First: first, Last: last} }

func TestEntityRangeCount(t *testing.T) {
	assert.Equal(t, 1, r(5, 5).Count())
	assert.Equal(t, 10, r(0, 9).Count())
}

func TestEntityRangeOverlapsAndContains(t *testing.T) {
	assert.True(t, r(0, 8).Overlaps(r(8, 17)))
	assert.False(t, r(0, 7).Overlaps(r(8, 17)))
	assert.True(t, r(0, 9).ContainsRange(r(3, 5)))
	assert.False(t, r(0, 9).ContainsRange(r(3, 10)))
	assert.True(t, r(0, 9).Contains(9))
	assert.False(t, r(0, 9).Contains(10))
}

func TestEntityRangeCanMerge(t *testing.T) {
	assert.True(t, r(0, 3).CanMerge(r(4, 6)))
	assert.True(t, r(4, 6).CanMerge(r(0, 3)))
	assert.True(t, r(0, 3).CanMerge(r(2, 6)))
	assert.False(t, r(0, 3).CanMerge(r(5, 6)))
}

func TestMerge(t *testing.T) {
	assert.Equal(t, r(0, 6), Merge(r(0, 3), r(4, 6)))
	assert.Panics(t, func() { Merge(r(0, 3), r(5, 6)) })
}

func TestIntersect(t *testing.T) {
	assert.Equal(t, r(4, 8), Intersect(r(0, 8), r(4, 17)))
	assert.Panics(t, func() { Intersect(r(0, 3), r(5, 6)) })
}

func TestRemoveSplitsAndTrims(t *testing.T) {
	left, hasLeft, right, hasRight := Remove(r(0, 9), r(3, 5))
	require.True(t, hasLeft)
	require.True(t, hasRight)
	assert.Equal(t, r(0, 2), left)
	assert.Equal(t, r(6, 9), right)

	left, hasLeft, right, hasRight = Remove(r(0, 9), r(0, 3))
	assert.False(t, hasLeft)
	require.True(t, hasRight)
	assert.Equal(t, r(4, 9), right)

	left, hasLeft, right, hasRight = Remove(r(0, 9), r(0, 9))
	assert.False(t, hasLeft)
	assert.False(t, hasRight)
	_ = left
	_ = right

	assert.Panics(t, func() { Remove(r(0, 3), r(4, 5)) })
}

// scenario 3: A=[(0,8),(9,17)], B=[(1,3),(5,7),(10,12),(14,16)]
// -> [(1,3),(5,7),(10,12),(14,16)]
func TestIntersectRangesScenario(t *testing.T) {
	a := []EntityRange{r(0, 8), r(9, 17)}
	b := []EntityRange{r(1, 3), r(5, 7), r(10, 12), r(14, 16)}
	got := IntersectRanges(a, b)
	assert.Equal(t, b, got)
}

func TestIntersectRangesIsSubsetOfBoth(t *testing.T) {
	a := []EntityRange{r(0, 20)}
	b := []EntityRange{r(5, 10), r(15, 25)}
	got := IntersectRanges(a, b)
	assert.Equal(t, []EntityRange{r(5, 10), r(15, 20)}, got)
}

func TestDifferenceRangesIdentities(t *testing.T) {
	a := []EntityRange{r(0, 9), r(20, 29)}
	assert.Empty(t, DifferenceRanges(a, a))
	assert.Equal(t, a, DifferenceRanges(a, nil))
	assert.Empty(t, IntersectRanges(a, nil))
}

func TestDifferenceRangesSubtractsOverlap(t *testing.T) {
	a := []EntityRange{r(0, 9)}
	b := []EntityRange{r(3, 5)}
	assert.Equal(t, []EntityRange{r(0, 2), r(6, 9)}, DifferenceRanges(a, b))
}

// scenario 4: combine_erase examples.
func TestCombineEraseScenario(t *testing.T) {
	in := []EntityRange{r(0, 1), r(2, 3), r(5, 6), r(7, 8)}
	got := CombineErase(in, canMergeMerger)
	assert.Equal(t, []EntityRange{r(0, 3), r(5, 8)}, got)

	in2 := []EntityRange{r(0, 1), r(2, 3), r(4, 6), r(7, 8)}
	got2 := CombineErase(in2, canMergeMerger)
	assert.Equal(t, []EntityRange{r(0, 8)}, got2)

	in3 := []EntityRange{r(0, 1), r(3, 4), r(6, 7), r(9, 10)}
	got3 := CombineErase(append([]EntityRange(nil), in3...), canMergeMerger)
	assert.Equal(t, in3, got3)
}

// property test: an overflow range at the top of the id space still yields
// exactly two entities without wraparound issues.
func TestOverflowRangeCount(t *testing.T) {
	const max = ^Entity(0)
	rng := r(max-1, max)
	assert.Equal(t, 2, rng.Count())
	ids := []Entity{}
	for e := rng.First; ; e++ {
		ids = append(ids, e)
		if e == rng.Last {
			break
		}
	}
	assert.Len(t, ids, 2)
}
