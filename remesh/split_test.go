package remesh

import (
	"testing"

	"github.com/akmonengine/eolcloth/mesh"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitIllConditioned_SingleEOL(t *testing.T) {
	m := createSheet(2)
	require.NoError(t, m.Attach(4, mesh.IsEOL, mesh.CornerFeature(0)))
	// Face (1,5,4) becomes a sliver over the diagonal 1-5
	m.Node(4).X = mgl64.Vec3{0.74, 0.26, 0}

	mt := createMaintainer(0.05)
	require.Equal(t, 1, mt.splitIllConditioned(m))
	assert.Equal(t, 1, mt.stats.Splits)

	p := mesh.NodeID(9)
	require.True(t, m.NodeAlive(p))
	assert.True(t, m.Node(p).U.ApproxEqual(mgl64.Vec2{0.75, 0.25}))
	assert.False(t, m.Node(p).IsEoL())
	assert.Equal(t, mesh.NoEdge, m.EdgeBetween(1, 5))
}

func TestSplitIllConditioned_PreservedEdge(t *testing.T) {
	m := createSheet(2)
	require.NoError(t, m.Attach(1, mesh.IsEOL, mesh.EdgeFeature(7)))
	require.NoError(t, m.Attach(5, mesh.IsEOL, mesh.EdgeFeature(7)))
	MarkPreserve(m)
	m.Node(4).X = mgl64.Vec3{0.74, 0.26, 0}

	var seen []mesh.EoLState
	mt := createMaintainer(0.05)
	mt.OnTransition = func(_ mesh.NodeID, _, to mesh.EoLState) { seen = append(seen, to) }

	require.Equal(t, 1, mt.splitIllConditioned(m))

	p := mesh.NodeID(9)
	node := m.Node(p)
	assert.Equal(t, mesh.NewEOLFromSplit, node.State())
	assert.Equal(t, []int{7}, node.CDEdges)
	assert.True(t, edgeBetween(t, m, 1, p).Preserve)
	assert.True(t, edgeBetween(t, m, p, 5).Preserve)
	assert.Equal(t, []mesh.EoLState{mesh.NewEOLFromSplit}, seen)
}

func TestSplitIllConditioned_WellShaped(t *testing.T) {
	m := createSheet(2)
	require.NoError(t, m.Attach(4, mesh.IsEOL, mesh.CornerFeature(0)))

	assert.Equal(t, 0, createMaintainer(0.05).splitIllConditioned(m))
	assert.Equal(t, 9, m.NumNodes())
}

func TestSplitIllConditioned_ThreeEOL(t *testing.T) {
	// Face (0,1,4) with every vertex tracked and the border edge 0-1 preserved
	create := func(t *testing.T) (*mesh.Mesh, mesh.FaceID) {
		m := createSheet(2)
		require.NoError(t, m.Attach(0, mesh.IsEOL, mesh.CornerFeature(0)))
		require.NoError(t, m.Attach(1, mesh.IsEOL, mesh.EdgeFeature(7)))
		require.NoError(t, m.Attach(4, mesh.IsEOL, mesh.EdgeFeature(9)))
		m.Edge(m.EdgeBetween(0, 1)).Preserve = true

		f := mesh.FaceID(0)
		for _, v := range []mesh.NodeID{0, 1, 4} {
			require.True(t, m.Face(f).Has(v))
		}
		return m, f
	}

	t.Run("thin", func(t *testing.T) {
		m, f := create(t)
		// Node 0 almost on the segment 1-4
		m.Node(0).X = mgl64.Vec3{0.49, 0.1, 0}

		job, ok := createMaintainer(0.05).illConditioned(m, f)
		require.True(t, ok)
		assert.False(t, job.conformal)
		assert.Equal(t, 0.5, job.d)
		assert.False(t, m.Edge(job.edge).Preserve)
		assert.Contains(t, m.Face(f).E[:], job.edge)
	})

	t.Run("single candidate edge", func(t *testing.T) {
		m, f := create(t)
		m.Edge(m.EdgeBetween(0, 4)).Preserve = true
		m.Node(0).X = mgl64.Vec3{0.49, 0.1, 0}

		job, ok := createMaintainer(0.05).illConditioned(m, f)
		require.True(t, ok)
		assert.Equal(t, m.EdgeBetween(1, 4), job.edge)
		assert.Equal(t, 0.5, job.d)
	})

	t.Run("well shaped", func(t *testing.T) {
		m, f := create(t)

		_, ok := createMaintainer(0.05).illConditioned(m, f)
		assert.False(t, ok)
	})
}

func TestAltitudeAndFoot(t *testing.T) {
	m := createSheet(2)
	f := mesh.FaceID(0) // (0,1,4)
	e := m.OppositeEdge(f, 4)

	assert.InDelta(t, 0.5, altitude(m, f, e), 1e-12)

	d := foot(m, e, mgl64.Vec3{0.1, 0.3, 0})
	if m.Edge(e).N[0] == 1 {
		d = 1 - d
	}
	assert.InDelta(t, 0.2, d, 1e-12)
}
