package collision

import (
	"math"

	"github.com/akmonengine/eolcloth/actor"
	"github.com/akmonengine/eolcloth/feature"
	"github.com/akmonengine/eolcloth/mesh"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

const parametricEpsilon = 1e-9

// Probe is a proximity detector: a spatial-hash broad phase over the cloth
// followed by exact distance tests against each obstacle. The hash grids are
// kept between calls, so a Probe is not safe for concurrent use.
type Probe struct {
	// Thickness is the contact distance
	Thickness float64
	// Inset is how far inside the obstacle new EOL nodes are placed
	Inset float64
	// CellSize of the broad phase; zero picks one from the mesh
	CellSize float64

	grids broadPhase
}

func NewProbe(thickness, inset float64) *Probe {
	return &Probe{Thickness: thickness, Inset: inset}
}

type broadPhase struct {
	nodes *Grid
	edges *Grid
	faces *Grid
	// cloth bounds every node
	cloth actor.AABB
}

func (p *Probe) build(m *mesh.Mesh) broadPhase {
	nodes, edges, faces := m.Nodes(), m.Edges(), m.Faces()

	cell := p.CellSize
	if cell <= 0 {
		total := 0.0
		for _, e := range edges {
			total += m.Length(e)
		}
		if len(edges) > 0 {
			cell = total / float64(len(edges))
		}
		cell = math.Max(cell, 2*p.Thickness)
		if cell <= 0 {
			cell = 1
		}
	}

	bp := broadPhase{
		nodes: p.grids.nodes.reuse(cell, len(nodes)),
		edges: p.grids.edges.reuse(cell, len(edges)),
		faces: p.grids.faces.reuse(cell, len(faces)),
	}
	for i, n := range nodes {
		x := m.Node(n).X
		bp.nodes.Insert(int(n), actor.AABB{Min: x, Max: x})
		if i == 0 {
			bp.cloth = actor.AABB{Min: x, Max: x}
		} else {
			bp.cloth = bounds(bp.cloth.Min, bp.cloth.Max, x)
		}
	}
	for _, e := range edges {
		edge := m.Edge(e)
		bp.edges.Insert(int(e), bounds(m.Node(edge.N[0]).X, m.Node(edge.N[1]).X))
	}
	for _, f := range faces {
		v := m.Face(f).V
		bp.faces.Insert(int(f), bounds(m.Node(v[0]).X, m.Node(v[1]).X, m.Node(v[2]).X))
	}
	p.grids = bp
	return bp
}

// Detect reports obstacle points first, then for each box its vertex-face,
// corner-face and edge-edge contacts, each group in ascending handle order.
func (p *Probe) Detect(m *mesh.Mesh, obs *actor.Obstacles) []Collision {
	bp := p.build(m)

	var out []Collision
	for i, x := range obs.Points.Positions {
		n := obs.Points.Normals[i]
		if !bp.cloth.Expand(p.Thickness).ContainsPoint(x) {
			continue
		}
		if c, ok := p.pointFace(m, bp, x, n, feature.PointColumn(i), nil); ok {
			c.Box = -1
			out = append(out, c)
		}
	}

	for b, box := range obs.Boxes {
		region := box.GetAABB().Expand(p.Thickness)
		if !region.Overlaps(bp.cloth) {
			continue
		}
		h := box.HalfExtents
		shape, err := sdf.Box3D(v3.Vec{X: 2 * h.X(), Y: 2 * h.Y(), Z: 2 * h.Z()}, 0)
		if err != nil {
			continue
		}

		out = append(out, p.vertexFace(m, bp, b, box, shape, region)...)

		normals := box.FaceNormals()
		for c := 0; c < box.NumCorners(); c++ {
			var n mgl64.Vec3
			for _, e := range box.VertEdges(c) {
				for _, f := range box.EdgeFaces(e) {
					n = n.Add(normals[f])
				}
			}
			col := feature.CornerColumn(obs, b, c)
			contact, ok := p.pointFace(m, bp, box.Corner(c), n.Normalize(), col, feature.CornerEdgeColumns(obs, b, c))
			if ok {
				contact.Box = b
				out = append(out, contact)
			}
		}

		for e := 0; e < box.NumEdges(); e++ {
			out = append(out, p.edgeEdge(m, bp, obs, b, e)...)
		}
	}
	return out
}

// vertexFace reports cloth nodes within Thickness of the box, against the
// nearest box face.
func (p *Probe) vertexFace(m *mesh.Mesh, bp broadPhase, b int, box *actor.Box, shape sdf.SDF3, region actor.AABB) []Collision {
	var out []Collision
	for _, idx := range bp.nodes.Query(region) {
		n := mesh.NodeID(idx)
		x := m.Node(n).X
		// hash collisions report nodes from unrelated cells
		if !region.ContainsPoint(x) {
			continue
		}
		local := box.E1inv.Mul4x1(x.Vec4(1)).Vec3()

		if shape.Evaluate(v3.Vec{X: local.X(), Y: local.Y(), Z: local.Z()}) >= p.Thickness {
			continue
		}

		axis, excess := 0, math.Inf(-1)
		for a := 0; a < 3; a++ {
			if d := math.Abs(local[a]) - box.HalfExtents[a]; d > excess {
				axis, excess = a, d
			}
		}
		face := 2 * axis
		onFace := local
		onFace[axis] = box.HalfExtents[axis]
		if local[axis] < 0 {
			face++
			onFace[axis] = -box.HalfExtents[axis]
		}

		nor := box.FaceNormal(face)
		pos := box.E1.Mul4x1(onFace.Vec4(1)).Vec3()
		out = append(out, Collision{
			Count1:   3,
			Count2:   1,
			Box:      b,
			Verts2:   []mesh.NodeID{n},
			Weights2: []float64{1},
			Nor1:     nor,
			Nor2:     nor,
			Pos1:     pos,
			Pos2:     x,
			Inset:    pos.Sub(nor.Mul(p.Inset)),
		})
	}
	return out
}

// pointFace reports the closest cloth face whose interior lies within
// Thickness of x.
func (p *Probe) pointFace(m *mesh.Mesh, bp broadPhase, x, normal mgl64.Vec3, col int, edges []int) (Collision, bool) {
	region := actor.AABB{Min: x, Max: x}.Expand(p.Thickness)

	best := mesh.NoFace
	var bestBary mgl64.Vec3
	var bestPoint mgl64.Vec3
	bestDist := p.Thickness
	for _, idx := range bp.faces.Query(region) {
		f := mesh.FaceID(idx)
		v := m.Face(f).V
		q, bary, ok := projectTriangle(x, m.Node(v[0]).X, m.Node(v[1]).X, m.Node(v[2]).X)
		if !ok {
			continue
		}
		if d := q.Sub(x).Len(); d < bestDist {
			best, bestBary, bestPoint, bestDist = f, bary, q, d
		}
	}
	if best == mesh.NoFace {
		return Collision{}, false
	}

	face := m.Face(best)
	nor := face.N
	if nor.Len() == 0 {
		nor = normal
	}
	if nor.Dot(normal) < 0 {
		nor = nor.Mul(-1)
	}

	return Collision{
		Count1:   1,
		Count2:   3,
		Verts1:   []int{col},
		Verts2:   []mesh.NodeID{face.V[0], face.V[1], face.V[2]},
		Weights1: []float64{1},
		Weights2: []float64{bestBary[0], bestBary[1], bestBary[2]},
		Nor1:     normal,
		Nor2:     nor,
		Pos1:     x,
		Pos2:     bestPoint,
		Inset:    x.Sub(normal.Mul(p.Inset)),
		Edge1:    append([]int(nil), edges...),
	}, true
}

// edgeEdge reports cloth edges crossing within Thickness of box edge e
func (p *Probe) edgeEdge(m *mesh.Mesh, bp broadPhase, obs *actor.Obstacles, b, e int) []Collision {
	box := obs.Boxes[b]
	corners := box.EdgeCorners(e)
	a0, a1 := box.Corner(corners[0]), box.Corner(corners[1])
	faces := box.EdgeFaces(e)
	outward := box.FaceNormal(faces[0]).Add(box.FaceNormal(faces[1])).Normalize()
	col := feature.EdgeColumn(obs, b, e)

	var out []Collision
	for _, idx := range bp.edges.Query(bounds(a0, a1).Expand(p.Thickness)) {
		ce := mesh.EdgeID(idx)
		edge := m.Edge(ce)
		b0, b1 := m.Node(edge.N[0]).X, m.Node(edge.N[1]).X

		s, t, pa, pb := closestSegments(a0, a1, b0, b1)
		if s <= parametricEpsilon || s >= 1-parametricEpsilon || t <= parametricEpsilon || t >= 1-parametricEpsilon {
			continue
		}
		if pb.Sub(pa).Len() >= p.Thickness {
			continue
		}

		out = append(out, Collision{
			Count1:   2,
			Count2:   2,
			Box:      b,
			Verts1:   []int{col},
			Verts2:   []mesh.NodeID{edge.N[0], edge.N[1]},
			Weights1: []float64{1 - s, s},
			Weights2: []float64{1 - t, t},
			Nor1:     outward,
			Nor2:     outward,
			Pos1:     pa,
			Pos2:     pb,
			Inset:    pa.Sub(outward.Mul(p.Inset)),
			EdgeDir:  a1.Sub(a0).Normalize(),
			Edge1:    []int{col},
		})
	}
	return out
}

func bounds(points ...mgl64.Vec3) actor.AABB {
	aabb := actor.AABB{Min: points[0], Max: points[0]}
	for _, q := range points[1:] {
		for i := 0; i < 3; i++ {
			aabb.Min[i] = math.Min(aabb.Min[i], q[i])
			aabb.Max[i] = math.Max(aabb.Max[i], q[i])
		}
	}
	return aabb
}

// projectTriangle projects x onto the plane of (a, b, c). ok is false when the
// projection falls outside the triangle.
func projectTriangle(x, a, b, c mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, bool) {
	n := b.Sub(a).Cross(c.Sub(a))
	area2 := n.Dot(n)
	if area2 == 0 {
		return mgl64.Vec3{}, mgl64.Vec3{}, false
	}

	q := x.Sub(n.Mul(x.Sub(a).Dot(n) / area2))
	wa := c.Sub(b).Cross(q.Sub(b)).Dot(n) / area2
	wb := a.Sub(c).Cross(q.Sub(c)).Dot(n) / area2
	wc := 1 - wa - wb
	if wa < 0 || wb < 0 || wc < 0 {
		return q, mgl64.Vec3{wa, wb, wc}, false
	}
	return q, mgl64.Vec3{wa, wb, wc}, true
}

// closestSegments returns the parameters and points of closest approach
// between segments [a0, a1] and [b0, b1].
func closestSegments(a0, a1, b0, b1 mgl64.Vec3) (s, t float64, pa, pb mgl64.Vec3) {
	d1 := a1.Sub(a0)
	d2 := b1.Sub(b0)
	r := a0.Sub(b0)
	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	switch {
	case a <= 1e-18 && e <= 1e-18:
		return 0, 0, a0, b0
	case a <= 1e-18:
		t = mgl64.Clamp(f/e, 0, 1)
	default:
		c := d1.Dot(r)
		if e <= 1e-18 {
			s = mgl64.Clamp(-c/a, 0, 1)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom > 1e-18 {
				s = mgl64.Clamp((b*f-c*e)/denom, 0, 1)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = mgl64.Clamp(-c/a, 0, 1)
			} else if t > 1 {
				t = 1
				s = mgl64.Clamp((b-c)/a, 0, 1)
			}
		}
	}

	return s, t, a0.Add(d1.Mul(s)), b0.Add(d2.Mul(t))
}
