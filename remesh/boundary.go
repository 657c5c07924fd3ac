package remesh

import (
	"math"

	"github.com/akmonengine/eolcloth/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

// Boundary is the closed border loop of the cloth patch in material space.
// The last point connects back to the first.
type Boundary struct {
	Points []mgl64.Vec2
}

// Rectangle returns the border of a w x h sheet anchored at the origin
func Rectangle(w, h float64) Boundary {
	return Boundary{Points: []mgl64.Vec2{{0, 0}, {w, 0}, {w, h}, {0, h}}}
}

func (b Boundary) segment(i int) (mgl64.Vec2, mgl64.Vec2) {
	return b.Points[i], b.Points[(i+1)%len(b.Points)]
}

func segmentDistance(a, b, p mgl64.Vec2) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Sub(a).Len()
	}
	t := mgl64.Clamp(p.Sub(a).Dot(ab)/l2, 0, 1)
	return p.Sub(a.Add(ab.Mul(t))).Len()
}

// parallel reports whether a and b are within band of being (anti)parallel
func parallel(a, b mgl64.Vec2, band float64) bool {
	la, lb := a.Len(), b.Len()
	if la == 0 || lb == 0 {
		return true
	}
	angle := math.Acos(mgl64.Clamp(a.Dot(b)/(la*lb), -1, 1))
	return angle < band || angle > math.Pi-band
}

// Near reports whether p lies within r of the border
func (b Boundary) Near(p mgl64.Vec2, r float64) bool {
	for i := range b.Points {
		s0, s1 := b.segment(i)
		if segmentDistance(s0, s1, p) < r {
			return true
		}
	}
	return false
}

// NearAligned is the exclusion test for edge contacts: p is rejected when it
// sits in a border corner (near two segments) or when dir runs close to
// parallel to a near segment.
func (b Boundary) NearAligned(p, dir mgl64.Vec2, r, band float64) bool {
	near := 0
	for i := range b.Points {
		s0, s1 := b.segment(i)
		if segmentDistance(s0, s1, p) >= r {
			continue
		}
		near++
		if near > 1 {
			return true
		}
		if parallel(s0.Sub(s1), dir, band) {
			return true
		}
	}
	return false
}

// Excludes reports whether the EOL node id must be returned to Lagrangian
// status because of the border. A tracked corner near the border always is;
// an edge node is kept only while each of its preserved edges leaves the
// border at a clear angle.
func (b Boundary) Excludes(m *mesh.Mesh, id mesh.NodeID, r, band float64) bool {
	node := m.Node(id)
	if !node.IsEoL() {
		return false
	}

	near, preserved := 0, 0
	for i := range b.Points {
		s0, s1 := b.segment(i)
		if segmentDistance(s0, s1, node.U) >= r {
			continue
		}
		if node.IsCorner() {
			return true
		}
		near++
		if near > 1 {
			return true
		}
		for _, e := range node.Edges {
			edge := m.Edge(e)
			if !edge.Preserve {
				continue
			}
			preserved++
			other := m.Node(edge.Other(id))
			if parallel(s0.Sub(s1), node.U.Sub(other.U), band) {
				return true
			}
		}
		// A lone edge node on the border
		if preserved == 0 {
			return true
		}
	}
	return false
}
