package crossroads

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePath_Table(t *testing.T) {
	testCases := []struct {
		in, out Approach
		want    Path
	}{
		{North, South, Path{Q2, Q3}},
		{North, East, Path{Q2, Q3, Q4}},
		{North, West, Path{Q2}},
		{South, North, Path{Q1, Q4}},
		{South, East, Path{Q4}},
		{South, West, Path{Q1, Q2, Q4}},
		{East, North, Path{Q1}},
		{East, South, Path{Q1, Q2, Q3}},
		{East, West, Path{Q1, Q2}},
		{West, North, Path{Q1, Q3, Q4}},
		{West, South, Path{Q3}},
		{West, East, Path{Q3, Q4}},
	}

	for _, tc := range testCases {
		t.Run(tc.in.String()+"->"+tc.out.String(), func(t *testing.T) {
			got, err := ComputePath(tc.in, tc.out)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("ComputePath(%s, %s) mismatch (-want +got):\n%s", tc.in, tc.out, diff)
			}
		})
	}
}

func TestComputePath_Properties(t *testing.T) {
	for _, in := range Approaches() {
		for _, out := range Approaches() {
			if in == out {
				continue
			}
			path, err := ComputePath(in, out)
			require.NoError(t, err)
			require.NotEmpty(t, path)
			assert.LessOrEqual(t, len(path), 3)

			seen := map[Quadrant]bool{}
			for i, q := range path {
				assert.True(t, q.Valid(), "%s->%s has invalid quadrant %d", in, out, q)
				assert.False(t, seen[q], "%s->%s repeats %s", in, out, q)
				seen[q] = true
				if i > 0 {
					assert.Less(t, int(path[i-1]), int(q), "%s->%s is not ascending: %s", in, out, path)
				}
			}

			assert.True(t, path.Contains(EntryQuadrant(in)), "%s->%s misses entry quadrant", in, out)
			assert.True(t, path.Contains(ExitQuadrant(out)), "%s->%s misses exit quadrant", in, out)
		}
	}
}

func TestComputePath_TurnLengths(t *testing.T) {
	right := map[Approach]Approach{North: West, West: South, South: East, East: North}
	left := map[Approach]Approach{North: East, East: South, South: West, West: North}
	straight := map[Approach]Approach{North: South, South: North, East: West, West: East}

	for in, out := range right {
		path, err := ComputePath(in, out)
		require.NoError(t, err)
		assert.Len(t, path, 1, "right turn %s->%s", in, out)
	}
	for in, out := range straight {
		path, err := ComputePath(in, out)
		require.NoError(t, err)
		assert.Len(t, path, 2, "straight %s->%s", in, out)
	}
	for in, out := range left {
		path, err := ComputePath(in, out)
		require.NoError(t, err)
		assert.Len(t, path, 3, "left turn %s->%s", in, out)
	}
}

func TestComputePath_UTurn(t *testing.T) {
	for _, a := range Approaches() {
		path, err := ComputePath(a, a)
		assert.Nil(t, path)
		require.Error(t, err)
		assert.True(t, IsRouteError(err))
		assert.Equal(t, ErrCodeUTurn, GetErrorCode(err))
	}
}

func TestComputePath_OutOfRange(t *testing.T) {
	testCases := []struct{ in, out Approach }{
		{Approach(4), North},
		{North, Approach(-1)},
		{Approach(9), Approach(9)},
	}
	for _, tc := range testCases {
		path, err := ComputePath(tc.in, tc.out)
		assert.Nil(t, path)
		require.Error(t, err)
		assert.Equal(t, ErrCodeInvalidApproach, GetErrorCode(err))
	}
}

func TestComputePath_ReturnsCopy(t *testing.T) {
	path, err := ComputePath(North, South)
	require.NoError(t, err)
	path[0] = Q4

	again, err := ComputePath(North, South)
	require.NoError(t, err)
	assert.Equal(t, Path{Q2, Q3}, again)
}

func TestPath_Overlaps(t *testing.T) {
	northSouth, _ := ComputePath(North, South)
	southNorth, _ := ComputePath(South, North)
	eastWest, _ := ComputePath(East, West)

	assert.False(t, northSouth.Overlaps(southNorth))
	assert.True(t, northSouth.Overlaps(eastWest))
	assert.Equal(t, "[q2 q3]", northSouth.String())
}
