package mesh

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/go-gl/mathgl/mgl64"
)

// EdgeBetween returns the edge joining a and b, or NoEdge
func (m *Mesh) EdgeBetween(a, b NodeID) EdgeID {
	if !m.NodeAlive(a) || !m.NodeAlive(b) {
		return NoEdge
	}
	for _, e := range m.nodes[a].Edges {
		if m.edges[e].Other(a) == b {
			return e
		}
	}
	return NoEdge
}

// OppositeEdge returns the edge of f opposite node n
func (m *Mesh) OppositeEdge(f FaceID, n NodeID) EdgeID {
	face := &m.faces[f]
	for i, v := range face.V {
		if v == n {
			return face.E[i]
		}
	}
	return NoEdge
}

func (m *Mesh) Neighbors(n NodeID) []NodeID {
	edges := m.nodes[n].Edges
	out := make([]NodeID, 0, len(edges))
	for _, e := range edges {
		out = append(out, m.edges[e].Other(n))
	}
	return out
}

func (m *Mesh) IsBoundaryEdge(e EdgeID) bool {
	return m.edges[e].NumFaces() < 2
}

// IsBoundary reports whether n lies on the patch border
func (m *Mesh) IsBoundary(n NodeID) bool {
	for _, e := range m.nodes[n].Edges {
		if m.IsBoundaryEdge(e) {
			return true
		}
	}
	return false
}

// BoundaryEdges returns the border edges incident to n, in adjacency order
func (m *Mesh) BoundaryEdges(n NodeID) []EdgeID {
	var out []EdgeID
	for _, e := range m.nodes[n].Edges {
		if m.IsBoundaryEdge(e) {
			out = append(out, e)
		}
	}
	return out
}

// Length is the world-space length of e
func (m *Mesh) Length(e EdgeID) float64 {
	edge := &m.edges[e]
	return m.nodes[edge.N[1]].X.Sub(m.nodes[edge.N[0]].X).Len()
}

// Barycentric returns the barycentric coordinates of u in face f, in material space.
func (m *Mesh) Barycentric(f FaceID, u mgl64.Vec2) mgl64.Vec3 {
	v := m.faces[f].V
	u0, u1, u2 := m.nodes[v[0]].U, m.nodes[v[1]].U, m.nodes[v[2]].U

	area := signedArea(u0, u1, u2)
	if area == 0 {
		return mgl64.Vec3{1, 0, 0}
	}
	b0 := signedArea(u, u1, u2) / area
	b1 := signedArea(u0, u, u2) / area
	return mgl64.Vec3{b0, b1, 1 - b0 - b1}
}

// DeformGrad returns F = dX * dU^-1, the 3x2 deformation gradient of f
func (m *Mesh) DeformGrad(f FaceID) mgl64.Mat3x2 {
	v := m.faces[f].V
	n0, n1, n2 := &m.nodes[v[0]], &m.nodes[v[1]], &m.nodes[v[2]]

	dX := mgl64.Mat3x2FromCols(n1.X.Sub(n0.X), n2.X.Sub(n0.X))
	dU := mgl64.Mat2FromCols(n1.U.Sub(n0.U), n2.U.Sub(n0.U))
	return dX.Mul2(dU.Inv())
}

type faceBounds struct {
	id   FaceID
	rect rtreego.Rect
}

func (b *faceBounds) Bounds() rtreego.Rect { return b.rect }

type faceLocator struct {
	version uint64
	tree    *rtreego.Rtree
}

const locatorTolerance = 1e-9

func (m *Mesh) faceTree() *rtreego.Rtree {
	if m.locator != nil && m.locator.version == m.version {
		return m.locator.tree
	}

	tree := rtreego.NewTree(2, 4, 16)
	for _, f := range m.Faces() {
		v := m.faces[f].V
		lo := m.nodes[v[0]].U
		hi := lo
		for _, n := range v[1:] {
			u := m.nodes[n].U
			lo = mgl64.Vec2{math.Min(lo.X(), u.X()), math.Min(lo.Y(), u.Y())}
			hi = mgl64.Vec2{math.Max(hi.X(), u.X()), math.Max(hi.Y(), u.Y())}
		}
		rect, err := rtreego.NewRectFromPoints(
			rtreego.Point{lo.X() - locatorTolerance, lo.Y() - locatorTolerance},
			rtreego.Point{hi.X() + locatorTolerance, hi.Y() + locatorTolerance},
		)
		if err != nil {
			continue
		}
		tree.Insert(&faceBounds{id: f, rect: rect})
	}

	m.locator = &faceLocator{version: m.version, tree: tree}
	return tree
}

// EnclosingFace returns the lowest-handle face containing u in material
// space. When u falls outside the mesh the face with the least negative
// barycentric coordinate is returned instead.
func (m *Mesh) EnclosingFace(u mgl64.Vec2) FaceID {
	tree := m.faceTree()

	hits := tree.SearchIntersect(rtreego.Point{u.X(), u.Y()}.ToRect(locatorTolerance))
	candidates := make([]FaceID, 0, len(hits))
	for _, h := range hits {
		candidates = append(candidates, h.(*faceBounds).id)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	for _, f := range candidates {
		b := m.Barycentric(f, u)
		if b.X() >= -1e-12 && b.Y() >= -1e-12 && b.Z() >= -1e-12 {
			return f
		}
	}

	best, bestScore := NoFace, math.Inf(-1)
	for _, f := range m.Faces() {
		b := m.Barycentric(f, u)
		score := math.Min(b.X(), math.Min(b.Y(), b.Z()))
		if score > bestScore {
			best, bestScore = f, score
		}
	}
	return best
}

// ComputeWorldSpaceData refreshes face and node normals and the dense node and
// EOL indices.
func (m *Mesh) ComputeWorldSpaceData() {
	for i := range m.faces {
		face := &m.faces[i]
		if !face.alive {
			continue
		}
		x0, x1, x2 := m.nodes[face.V[0]].X, m.nodes[face.V[1]].X, m.nodes[face.V[2]].X
		n := x1.Sub(x0).Cross(x2.Sub(x0))
		if n.Len() > 0 {
			n = n.Normalize()
		}
		face.N = n
	}

	index, eol := 0, 0
	for i := range m.nodes {
		node := &m.nodes[i]
		if !node.alive {
			continue
		}

		var n mgl64.Vec3
		for _, f := range node.Faces {
			v := m.faces[f].V
			x0, x1, x2 := m.nodes[v[0]].X, m.nodes[v[1]].X, m.nodes[v[2]].X
			n = n.Add(x1.Sub(x0).Cross(x2.Sub(x0)))
		}
		if n.Len() > 0 {
			node.N = n.Normalize()
		}

		node.Index = index
		index++
		node.EoLIndex = -1
		if node.IsEoL() {
			node.EoLIndex = eol
			eol++
		}
	}

	m.eolCount = eol
	m.indexed = true
}
