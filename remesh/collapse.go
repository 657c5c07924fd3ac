package remesh

import (
	"math"

	"github.com/akmonengine/eolcloth/mesh"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// candidate is one collapse to try: N[remove] of edge merges into the other end
type candidate struct {
	edge   mesh.EdgeID
	remove int
}

func area(u0, u1, u2 mgl64.Vec2) float64 {
	d1, d2 := u1.Sub(u0), u2.Sub(u0)
	return 0.5 * (d1.X()*d2.Y() - d1.Y()*d2.X())
}

func aspect(u0, u1, u2 mgl64.Vec2) float64 {
	p := u1.Sub(u0).Len() + u2.Sub(u1).Len() + u0.Sub(u2).Len()
	if p == 0 {
		return 0
	}
	return 12 * math.Sqrt(3) * area(u0, u1, u2) / (p * p)
}

// canCollapse validates a collapse in material space. A face that would turn
// degenerate only passes when one of its edges is already short, so a later
// pass takes care of it.
func (mt *Maintainer) canCollapse(m *mesh.Mesh, c candidate) bool {
	edge := m.Edge(c.edge)
	r, k := edge.N[c.remove], edge.N[1-c.remove]
	limit := mt.Config.DegenerateArea

	for _, f := range m.Node(r).Faces {
		face := m.Face(f)
		if face.Has(k) {
			continue
		}
		var u [3]mgl64.Vec2
		for j, v := range face.V {
			u[j] = m.Node(v).U
		}
		a0 := math.Abs(area(u[0], u[1], u[2]))
		for j, v := range face.V {
			if v == r {
				u[j] = m.Node(k).U
			}
		}
		a := area(u[0], u[1], u[2])
		if (a < a0 && a < limit) || aspect(u[0], u[1], u[2]) < limit {
			if !hasShortSide(u, mt.Config.ContactThreshold) {
				return false
			}
		}
	}
	return true
}

func hasShortSide(u [3]mgl64.Vec2, thresh float64) bool {
	for j := 0; j < 3; j++ {
		if u[(j+1)%3].Sub(u[j]).Len() < thresh {
			return true
		}
	}
	return false
}

// tryCollapse applies the first candidate that validates and that the mesh
// accepts.
func (mt *Maintainer) tryCollapse(m *mesh.Mesh, candidates []candidate, reflag bool) bool {
	for _, c := range candidates {
		if mt.pinned(m.Edge(c.edge).N[c.remove]) || !mt.canCollapse(m, c) {
			continue
		}
		edge := *m.Edge(c.edge)
		survivor := edge.N[1-c.remove]

		op, err := m.CollapseEdge(c.edge, c.remove)
		if err != nil {
			mt.Logger.Debug("collapse rejected", zap.Int("edge", int(c.edge)), zap.Error(err))
			continue
		}
		mt.stats.Collapses++
		if reflag {
			passCollapse(m, op, survivor)
		}
		return true
	}
	return false
}

func (mt *Maintainer) pinned(id mesh.NodeID) bool {
	return mt.Pinned != nil && mt.Pinned(id)
}

// anchored nodes are never removed by a conformal collapse
func (mt *Maintainer) anchored(m *mesh.Mesh, id mesh.NodeID) bool {
	return m.IsBoundary(id) || m.Node(id).IsCorner() || mt.pinned(id)
}

// collapseConformal collapses the first short preserved edge it can. It
// reports whether a collapse was applied.
func (mt *Maintainer) collapseConformal(m *mesh.Mesh) bool {
	limit := 2 * mt.Config.ContactThreshold
	for _, e := range m.Edges() {
		edge := m.Edge(e)
		if !edge.Preserve || m.Length(e) >= limit {
			continue
		}
		n0, n1 := edge.N[0], edge.N[1]
		keep0, keep1 := mt.anchored(m, n0), mt.anchored(m, n1)

		var candidates []candidate
		switch {
		case keep0 && keep1:
			continue
		case keep1:
			candidates = []candidate{{e, 0}}
		case keep0:
			candidates = []candidate{{e, 1}}
		case len(m.Node(n0).Faces) <= len(m.Node(n1).Faces):
			candidates = []candidate{{e, 1}, {e, 0}}
		default:
			candidates = []candidate{{e, 0}, {e, 1}}
		}
		if mt.tryCollapse(m, candidates, true) {
			return true
		}
	}
	return false
}

// shortest reports whether e is strictly the shortest edge around both of its
// endpoints, ties excepted.
func shortest(m *mesh.Mesh, e mesh.EdgeID) bool {
	l := m.Length(e)
	edge := m.Edge(e)
	for _, n := range edge.N {
		for _, other := range m.Node(n).Edges {
			if m.Length(other) < l {
				return false
			}
		}
	}
	return true
}

// collapseNonconformal collapses the first short unflagged edge found in the
// fan of an EOL node. It never merges two EOL nodes nor crosses the border.
func (mt *Maintainer) collapseNonconformal(m *mesh.Mesh) bool {
	thresh := mt.Config.ContactThreshold
	for _, id := range m.Nodes() {
		if !m.Node(id).IsEoL() {
			continue
		}
		for _, f := range m.Node(id).Faces {
			for _, e := range m.Face(f).E {
				edge := m.Edge(e)
				if edge.Preserve || m.Length(e) >= thresh {
					continue
				}
				n0, n1 := m.Node(edge.N[0]), m.Node(edge.N[1])
				if n0.IsEoL() && n1.IsEoL() {
					continue
				}
				if m.IsBoundary(edge.N[0]) != m.IsBoundary(edge.N[1]) {
					continue
				}
				if !shortest(m, e) {
					continue
				}

				var candidates []candidate
				switch {
				case n0.IsEoL():
					candidates = []candidate{{e, 1}}
				case n1.IsEoL():
					candidates = []candidate{{e, 0}}
				case !n0.Preserve:
					candidates = []candidate{{e, 0}, {e, 1}}
				case !n1.Preserve:
					candidates = []candidate{{e, 1}, {e, 0}}
				default:
					continue
				}
				if mt.tryCollapse(m, candidates, false) {
					return true
				}
			}
		}
	}
	return false
}
