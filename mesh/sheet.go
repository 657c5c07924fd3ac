package mesh

import "github.com/go-gl/mathgl/mgl64"

// NewSheet builds a w x h rectangle of nx x ny cells in material space. place
// maps each material coordinate to its world position; nil lays the sheet flat
// in the z=0 plane. Node (i, j) has handle j*(nx+1)+i.
func NewSheet(w, h float64, nx, ny int, place func(u mgl64.Vec2) mgl64.Vec3) *Mesh {
	if place == nil {
		place = func(u mgl64.Vec2) mgl64.Vec3 { return mgl64.Vec3{u.X(), u.Y(), 0} }
	}

	m := New()
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			u := mgl64.Vec2{w * float64(i) / float64(nx), h * float64(j) / float64(ny)}
			m.AddNode(place(u), u)
		}
	}

	at := func(i, j int) NodeID { return NodeID(j*(nx+1) + i) }
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			a, b, c, d := at(i, j), at(i+1, j), at(i+1, j+1), at(i, j+1)
			// Arguments are live and distinct by construction
			_, _ = m.AddFace(a, b, c)
			_, _ = m.AddFace(a, c, d)
		}
	}

	m.ComputeWorldSpaceData()
	return m
}
