package remesh

import (
	"slices"

	"github.com/akmonengine/eolcloth/collision"
	"github.com/akmonengine/eolcloth/mesh"
	"go.uber.org/zap"
)

// AddGeometry inserts an EOL node for every contact that no EOL node owns yet.
// Vertex-face contacts only reconfirm existing EOL nodes.
func (mt *Maintainer) AddGeometry(m *mesh.Mesh, cls []collision.Collision) {
	for i := range cls {
		c := &cls[i]
		switch {
		case c.VertexFace():
			if n := c.Verts2[0]; m.NodeAlive(n) && m.Node(n).IsEoL() {
				mt.reconfirm(m, n)
			}
		case c.FaceVertex():
			mt.insertFaceContact(m, c)
		case c.EdgeEdge():
			mt.insertEdgeContact(m, c)
		}
	}
}

func (mt *Maintainer) reconfirm(m *mesh.Mesh, id mesh.NodeID) {
	mt.setState(m, id, mesh.IsEOL)
	mt.stats.Reconfirmed++
}

func (mt *Maintainer) skip(reason string, c *collision.Collision) {
	mt.stats.Skipped++
	mt.Logger.Debug("contact skipped",
		zap.String("reason", reason),
		zap.Int("count1", c.Count1),
		zap.Int("count2", c.Count2),
		zap.Ints("feature", c.Verts1),
	)
}

// splitPoint picks the edge of f opposite its smallest barycentric weight and
// the split parameter that lands on bary.
func splitPoint(m *mesh.Mesh, f mesh.FaceID, bary [3]float64) (mesh.EdgeID, float64) {
	face := m.Face(f)
	which := 0
	for j := 1; j < 3; j++ {
		if bary[j] < bary[which] {
			which = j
		}
	}
	e := face.E[which]
	n0 := m.Edge(e).N[0]
	for j, v := range face.V {
		if v == n0 {
			return e, 1 - bary[j]
		}
	}
	return e, 0.5
}

func (mt *Maintainer) insertFaceContact(m *mesh.Mesh, c *collision.Collision) {
	col := c.Verts1[0]
	for _, v := range c.Verts2 {
		if n := m.Node(v); n.IsEoL() && n.CornerID == col {
			mt.reconfirm(m, v)
			return
		}
	}

	cfg := mt.Config
	u := c.MaterialPoint(m)
	if mt.Boundary.Near(u, cfg.BoundaryThreshold) {
		mt.skip("border", c)
		return
	}

	f := m.EnclosingFace(u)
	if f == mesh.NoFace {
		mt.skip("no enclosing face", c)
		return
	}
	b := m.Barycentric(f, u)
	bary := [3]float64{b[0], b[1], b[2]}

	var op mesh.Op
	var err error
	if slices.Min(bary[:]) < cfg.BarycentricEpsilon {
		e, d := splitPoint(m, f, bary)
		if d <= cfg.BarycentricEpsilon || d >= 1-cfg.BarycentricEpsilon {
			mt.skip("on a mesh vertex", c)
			return
		}
		op, err = m.SplitEdge(e, d, -1)
	} else {
		op, err = m.SplitFace(f, b)
	}
	if err != nil {
		mt.Logger.Warn("contact insertion failed", zap.Int("face", int(f)), zap.Error(err))
		mt.stats.Skipped++
		return
	}

	p := op.AddedNodes[0]
	if !mt.attach(m, p, mesh.NewEOL, mesh.CornerFeature(col, c.Edge1...)) {
		return
	}
	node := m.Node(p)
	node.Preserve = true
	node.X = c.Inset
	mt.stats.Inserted++
}

func (mt *Maintainer) insertEdgeContact(m *mesh.Mesh, c *collision.Collision) {
	a, b := c.Verts2[0], c.Verts2[1]
	for _, v := range c.Verts2 {
		n := m.Node(v)
		if !n.IsEoL() {
			continue
		}
		if !n.IsCorner() && slices.Contains(n.CDEdges, c.Verts1[0]) {
			mt.reconfirm(m, v)
			return
		}
		mt.skip("endpoint is EOL", c)
		return
	}

	cfg := mt.Config
	u := c.MaterialPoint(m)
	f := m.EnclosingFace(u)
	if f == mesh.NoFace {
		mt.skip("no enclosing face", c)
		return
	}

	dir := m.DeformGrad(f).Transpose().Mul3x1(c.EdgeDir)
	if mt.Boundary.NearAligned(u, dir, cfg.BoundaryThreshold, cfg.BoundaryAngle) {
		mt.skip("border", c)
		return
	}

	// An earlier contact of the batch may already have split a-b
	var d float64
	e := m.EdgeBetween(a, b)
	switch {
	case e == mesh.NoEdge:
		bc := m.Barycentric(f, u)
		e, d = splitPoint(m, f, [3]float64{bc[0], bc[1], bc[2]})
	case m.Edge(e).N[0] == b:
		d = c.Weights2[0]
	default:
		d = c.Weights2[1]
	}

	op, err := m.SplitEdge(e, d, -1)
	if err != nil {
		mt.Logger.Warn("contact insertion failed", zap.Int("edge", int(e)), zap.Error(err))
		mt.stats.Skipped++
		return
	}

	p := op.AddedNodes[0]
	if !mt.attach(m, p, mesh.NewEOL, mesh.EdgeFeature(c.Edge1...)) {
		return
	}
	m.Node(p).X = c.Inset
	mt.stats.Inserted++
}
