package feature

import (
	"math"
	"testing"

	"github.com/akmonengine/eolcloth/actor"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createObstacles(points, boxes int) *actor.Obstacles {
	obs := &actor.Obstacles{}
	for i := 0; i < points; i++ {
		obs.AddPoint(mgl64.Vec3{float64(i), 0, 0}, mgl64.Vec3{0, 0, 2})
	}
	for i := 0; i < boxes; i++ {
		transform := actor.Transform{
			Position: mgl64.Vec3{0, 0, float64(i)},
			Rotation: mgl64.QuatRotate(0.4*float64(i), mgl64.Vec3{0, 1, 0}),
		}
		obs.AddBox(actor.NewBox(mgl64.Vec3{0.5, 0.5, 0.5}, transform))
	}
	return obs
}

func TestColumns(t *testing.T) {
	tests := []struct {
		name           string
		points, boxes  int
		expectedColumn int
	}{
		{"empty", 0, 0, 0},
		{"points only", 3, 0, 3},
		{"one box", 0, 1, 20},
		{"mixed", 2, 2, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := createObstacles(tt.points, tt.boxes)
			table := NewTable()
			table.Rebuild(obs)

			assert.Equal(t, tt.expectedColumn, Columns(obs))
			assert.Equal(t, tt.expectedColumn, table.Cols())
		})
	}
}

func TestColumnArithmetic(t *testing.T) {
	obs := createObstacles(2, 2)

	assert.Equal(t, 1, PointColumn(1))
	assert.Equal(t, 2, CornerColumn(obs, 0, 0))
	assert.Equal(t, 10, EdgeColumn(obs, 0, 0))
	assert.Equal(t, 22, CornerColumn(obs, 1, 0))
	assert.Equal(t, 41, EdgeColumn(obs, 1, 11))
}

func TestLocate(t *testing.T) {
	obs := createObstacles(2, 2)
	table := NewTable()
	table.Rebuild(obs)

	tests := []struct {
		col      int
		expected Ref
	}{
		{0, Ref{Kind: KindPoint, Box: -1, Local: 0}},
		{2, Ref{Kind: KindCorner, Box: 0, Local: 0}},
		{9, Ref{Kind: KindCorner, Box: 0, Local: 7}},
		{10, Ref{Kind: KindEdge, Box: 0, Local: 0}},
		{25, Ref{Kind: KindCorner, Box: 1, Local: 3}},
		{41, Ref{Kind: KindEdge, Box: 1, Local: 11}},
	}

	for _, tt := range tests {
		ref, ok := table.Locate(tt.col)
		require.True(t, ok, "column %d", tt.col)
		assert.Equal(t, tt.expected, ref, "column %d", tt.col)
	}

	_, ok := table.Locate(42)
	assert.False(t, ok)
}

func TestPointColumnCopiesNormal(t *testing.T) {
	obs := createObstacles(1, 0)
	table := NewTable()
	table.Rebuild(obs)

	assert.True(t, table.Normal(0).ApproxEqual(mgl64.Vec3{0, 0, 1}))
}

func TestCornerNormalsAreUnit(t *testing.T) {
	obs := createObstacles(0, 2)
	table := NewTable()
	table.Rebuild(obs)

	for b := range obs.Boxes {
		for c := 0; c < actor.BoxCorners; c++ {
			n := table.Normal(CornerColumn(obs, b, c))
			assert.InDelta(t, 1.0, n.Len(), 1e-12)
		}
	}

	// The corner with every bit set points along (1,1,1) on an unrotated box
	want := mgl64.Vec3{1, 1, 1}.Normalize()
	assert.True(t, table.Normal(CornerColumn(obs, 0, 7)).ApproxEqual(want))
}

func TestEdgeColumns(t *testing.T) {
	obs := createObstacles(0, 2)
	table := NewTable()
	table.Rebuild(obs)

	for b, box := range obs.Boxes {
		for e := 0; e < box.NumEdges(); e++ {
			col := EdgeColumn(obs, b, e)
			n1, n2, tan := table.Normal(col), table.SecondNormal(col), table.Tangent(col)

			assert.InDelta(t, 0.0, n1.Dot(n2), 1e-12)
			assert.InDelta(t, 0.0, n1.Dot(tan), 1e-12)
			assert.InDelta(t, 0.0, n2.Dot(tan), 1e-12)
			assert.InDelta(t, 1.0, tan.Len(), 1e-12)
		}
	}
}

func TestRebuildFollowsMotion(t *testing.T) {
	obs := createObstacles(0, 1)
	table := NewTable()
	table.Rebuild(obs)
	storage := table.Matrix()

	box := obs.Boxes[0]
	box.V = actor.NewTwist(mgl64.Vec3{}, mgl64.Vec3{0, 0, math.Pi / 2})
	obs.Advance(1.0)
	table.Rebuild(obs)

	// Same shape, same storage, new values
	assert.Same(t, storage, table.Matrix())
	col := EdgeColumn(obs, 0, 0)
	assert.True(t, table.Tangent(col).ApproxEqualThreshold(box.FaceNormal(0), 1e-12))
	assert.True(t, box.FaceNormal(0).ApproxEqualThreshold(mgl64.Vec3{0, 1, 0}, 1e-12))
}

func TestCornerEdgeColumns(t *testing.T) {
	obs := createObstacles(1, 1)

	cols := CornerEdgeColumns(obs, 0, 0)
	require.Len(t, cols, 3)
	for _, col := range cols {
		assert.GreaterOrEqual(t, col, EdgeColumn(obs, 0, 0))
		assert.Less(t, col, Columns(obs))
	}
}
