package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	BoxCorners = 8
	BoxEdges   = 12
	BoxFaces   = 6
)

// boxTopology holds the fixed connectivity shared by every box.
// Corner i has bit 0/1/2 set when its x/y/z coordinate is positive.
// Faces are ordered +X, -X, +Y, -Y, +Z, -Z.
type boxTopology struct {
	edgeCorners [BoxEdges][2]int
	edgeFaces   [BoxEdges][2]int
	edgeTan     [BoxEdges]int
	vertEdges   [BoxCorners][3]int
}

var topology = buildBoxTopology()

func faceIndex(axis int, positive bool) int {
	if positive {
		return 2 * axis
	}
	return 2*axis + 1
}

func buildBoxTopology() boxTopology {
	var t boxTopology

	e := 0
	for axis := 0; axis < 3; axis++ {
		for c := 0; c < BoxCorners; c++ {
			if c&(1<<axis) != 0 {
				continue
			}
			other := c | (1 << axis)
			t.edgeCorners[e] = [2]int{c, other}

			k := 0
			for a := 0; a < 3; a++ {
				if a == axis {
					continue
				}
				t.edgeFaces[e][k] = faceIndex(a, c&(1<<a) != 0)
				k++
			}
			// The tangent of an edge is the normal of the positive face perpendicular to it
			t.edgeTan[e] = faceIndex(axis, true)

			t.vertEdges[c][axis] = e
			t.vertEdges[other][axis] = e
			e++
		}
	}

	return t
}

// Box represents an oriented box obstacle moving rigidly with twist V.
// The box is defined by its half-extents (half-width, half-height, half-depth)
type Box struct {
	HalfExtents mgl64.Vec3
	E1          mgl64.Mat4
	E1inv       mgl64.Mat4
	V           Twist

	aabb AABB
}

func NewBox(halfExtents mgl64.Vec3, transform Transform) *Box {
	b := &Box{HalfExtents: halfExtents}
	b.SetTransform(transform.Matrix())

	return b
}

// SetTransform replaces E1, refreshing its inverse and the bounding box
func (b *Box) SetTransform(E mgl64.Mat4) {
	b.E1 = E
	b.E1inv = E.Inv()
	b.ComputeAABB()
}

func (b *Box) NumCorners() int { return BoxCorners }
func (b *Box) NumEdges() int   { return BoxEdges }

// Moving reports whether the box has a nonzero linear or angular twist
func (b *Box) Moving() bool {
	return !b.V.IsZero()
}

func (b *Box) Rotation() mgl64.Mat3 {
	return b.E1.Mat3()
}

// LocalCorner returns corner c in the box frame
func (b *Box) LocalCorner(c int) mgl64.Vec3 {
	p := b.HalfExtents.Mul(-1)
	for axis := 0; axis < 3; axis++ {
		if c&(1<<axis) != 0 {
			p[axis] = b.HalfExtents[axis]
		}
	}
	return p
}

// Corner returns corner c in world space
func (b *Box) Corner(c int) mgl64.Vec3 {
	return b.E1.Mul4x1(b.LocalCorner(c).Vec4(1)).Vec3()
}

func localFaceNormal(f int) mgl64.Vec3 {
	var n mgl64.Vec3
	n[f/2] = 1
	if f%2 == 1 {
		n[f/2] = -1
	}
	return n
}

// FaceNormal returns the outward world-space normal of face f
func (b *Box) FaceNormal(f int) mgl64.Vec3 {
	return b.Rotation().Mul3x1(localFaceNormal(f)).Normalize()
}

// FaceNormals returns the 6 outward world-space face normals
func (b *Box) FaceNormals() [BoxFaces]mgl64.Vec3 {
	var normals [BoxFaces]mgl64.Vec3
	for f := range normals {
		normals[f] = b.FaceNormal(f)
	}
	return normals
}

func (b *Box) EdgeCorners(e int) [2]int { return topology.edgeCorners[e] }
func (b *Box) EdgeFaces(e int) [2]int   { return topology.edgeFaces[e] }
func (b *Box) EdgeTan(e int) int        { return topology.edgeTan[e] }
func (b *Box) VertEdges(c int) [3]int   { return topology.vertEdges[c] }

// PointVelocity finite-differences the motion of the box-attached point that
// currently sits at x, integrating the rigid transform over h.
func (b *Box) PointVelocity(x mgl64.Vec3, h float64) mgl64.Vec3 {
	xl := b.E1inv.Mul4x1(x.Vec4(1))
	et := Integrate(b.E1, b.V, h)

	return et.Mul4x1(xl).Sub(b.E1.Mul4x1(xl)).Mul(1.0 / h).Vec3()
}

// Advance moves the box along its twist for h
func (b *Box) Advance(h float64) {
	if !b.Moving() {
		return
	}
	b.SetTransform(Integrate(b.E1, b.V, h))
}

func (b *Box) ComputeAABB() {
	// Transformer le premier coin pour initialiser min/max
	worldCorner := b.Corner(0)
	min := worldCorner
	max := worldCorner

	for i := 1; i < BoxCorners; i++ {
		worldCorner = b.Corner(i)

		min[0] = math.Min(min[0], worldCorner[0])
		min[1] = math.Min(min[1], worldCorner[1])
		min[2] = math.Min(min[2], worldCorner[2])

		max[0] = math.Max(max[0], worldCorner[0])
		max[1] = math.Max(max[1], worldCorner[1])
		max[2] = math.Max(max[2], worldCorner[2])
	}

	b.aabb = AABB{Min: min, Max: max}
}

func (b *Box) GetAABB() AABB {
	return b.aabb
}
