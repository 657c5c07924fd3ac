package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func createUnitBox(position mgl64.Vec3) *Box {
	return NewBox(mgl64.Vec3{1, 1, 1}, Transform{Position: position, Rotation: mgl64.QuatIdent()})
}

func TestBoxTopology_EdgesJoinCornersDifferingOnOneAxis(t *testing.T) {
	box := createUnitBox(mgl64.Vec3{})

	for e := 0; e < box.NumEdges(); e++ {
		c := box.EdgeCorners(e)
		diff := c[0] ^ c[1]
		if diff != 1 && diff != 2 && diff != 4 {
			t.Errorf("edge %d joins corners %v which differ on more than one axis", e, c)
		}

		// The tangent must be perpendicular to both adjacent faces
		tan := box.FaceNormal(box.EdgeTan(e))
		for _, f := range box.EdgeFaces(e) {
			if math.Abs(tan.Dot(box.FaceNormal(f))) > 1e-12 {
				t.Errorf("edge %d tangent %v not perpendicular to face %d", e, tan, f)
			}
		}

		// The edge direction follows the tangent
		dir := box.Corner(c[1]).Sub(box.Corner(c[0])).Normalize()
		if !dir.ApproxEqual(tan) {
			t.Errorf("edge %d direction %v, tangent %v", e, dir, tan)
		}
	}
}

func TestBoxTopology_VertEdgesContainCorner(t *testing.T) {
	box := createUnitBox(mgl64.Vec3{})

	for c := 0; c < box.NumCorners(); c++ {
		for _, e := range box.VertEdges(c) {
			ec := box.EdgeCorners(e)
			if ec[0] != c && ec[1] != c {
				t.Errorf("corner %d lists edge %d (%v) which does not touch it", c, e, ec)
			}
		}
	}
}

func TestBoxEdgeFacesTouchCorner(t *testing.T) {
	box := createUnitBox(mgl64.Vec3{})

	// Every face adjacent to an edge must contain both edge corners
	for e := 0; e < box.NumEdges(); e++ {
		for _, f := range box.EdgeFaces(e) {
			n := box.FaceNormal(f)
			for _, c := range box.EdgeCorners(e) {
				if math.Abs(box.LocalCorner(c).Dot(n)-1.0) > 1e-12 {
					t.Errorf("edge %d corner %d not on face %d", e, c, f)
				}
			}
		}
	}
}

func TestBoxCornerWorldPosition(t *testing.T) {
	box := NewBox(mgl64.Vec3{1, 2, 3}, Transform{Position: mgl64.Vec3{10, 0, 0}, Rotation: mgl64.QuatIdent()})

	got := box.Corner(7)
	want := mgl64.Vec3{11, 2, 3}
	if !got.ApproxEqual(want) {
		t.Errorf("Corner(7) = %v, want %v", got, want)
	}

	aabb := box.GetAABB()
	if !aabb.Min.ApproxEqual(mgl64.Vec3{9, -2, -3}) || !aabb.Max.ApproxEqual(mgl64.Vec3{11, 2, 3}) {
		t.Errorf("AABB = %v", aabb)
	}
}

func TestBoxRotatedFaceNormals(t *testing.T) {
	rotation := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	box := NewBox(mgl64.Vec3{1, 1, 1}, Transform{Rotation: rotation})

	// +X rotates onto +Y
	if got := box.FaceNormal(0); !got.ApproxEqualThreshold(mgl64.Vec3{0, 1, 0}, 1e-9) {
		t.Errorf("FaceNormal(+X) = %v, want (0,1,0)", got)
	}
	for f, n := range box.FaceNormals() {
		if math.Abs(n.Len()-1.0) > 1e-12 {
			t.Errorf("face %d normal not unit: %v", f, n)
		}
	}
}

func TestBoxPointVelocity(t *testing.T) {
	tests := []struct {
		name  string
		twist Twist
		point mgl64.Vec3
		want  mgl64.Vec3
	}{
		{
			name:  "static",
			twist: Twist{},
			point: mgl64.Vec3{1, 1, 1},
			want:  mgl64.Vec3{0, 0, 0},
		},
		{
			name:  "pure translation",
			twist: NewTwist(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}),
			point: mgl64.Vec3{1, 1, 1},
			want:  mgl64.Vec3{1, 0, 0},
		},
		{
			name:  "spin about z",
			twist: NewTwist(mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}),
			point: mgl64.Vec3{1, 0, 0},
			want:  mgl64.Vec3{0, 1, 0}, // ω × r
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box := createUnitBox(mgl64.Vec3{})
			box.V = tt.twist

			got := box.PointVelocity(tt.point, 1e-6)
			if !got.ApproxEqualThreshold(tt.want, 1e-5) {
				t.Errorf("PointVelocity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoxAdvance(t *testing.T) {
	box := createUnitBox(mgl64.Vec3{})
	box.V = NewTwist(mgl64.Vec3{0, 2, 0}, mgl64.Vec3{})

	box.Advance(0.5)

	if got := box.Corner(0); !got.ApproxEqual(mgl64.Vec3{-1, 0, -1}) {
		t.Errorf("Corner(0) after advance = %v, want (-1,0,-1)", got)
	}
	if !box.E1.Mul4(box.E1inv).ApproxEqualThreshold(mgl64.Ident4(), 1e-12) {
		t.Error("E1inv is not the inverse of E1 after Advance")
	}
}
