// Package collision finds contacts between the cloth mesh and the obstacles.
//
// Side 1 of a Collision is the obstacle, side 2 the cloth. Count1/Count2 give
// the arity of each side: 1 point, 2 edge, 3 face. Three pairings exist:
// (3, 1) a cloth vertex against an obstacle face, (2, 2) a cloth edge against a
// box edge and (1, 3) an obstacle point or box corner against a cloth face.
package collision

import (
	"github.com/akmonengine/eolcloth/actor"
	"github.com/akmonengine/eolcloth/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

type Collision struct {
	Count1 int
	Count2 int

	// Box is the obstacle box, or -1 for an obstacle point
	Box int
	// Verts1 holds the feature-table column of the obstacle point, corner or edge
	Verts1 []int
	Verts2 []mesh.NodeID

	Weights1 []float64
	Weights2 []float64

	// Nor1 is the obstacle normal; Nor2 points from the obstacle to the cloth
	Nor1 mgl64.Vec3
	Nor2 mgl64.Vec3

	Pos1 mgl64.Vec3
	Pos2 mgl64.Vec3
	// Inset is Pos1 pushed slightly inside the obstacle
	Inset mgl64.Vec3

	// EdgeDir is the world direction of the box edge of a (2, 2) contact
	EdgeDir mgl64.Vec3
	// Edge1 lists the edge columns of the obstacle feature
	Edge1 []int
}

func (c *Collision) VertexFace() bool { return c.Count1 == 3 && c.Count2 == 1 }
func (c *Collision) EdgeEdge() bool   { return c.Count1 == 2 && c.Count2 == 2 }
func (c *Collision) FaceVertex() bool { return c.Count1 == 1 && c.Count2 == 3 }

// MaterialPoint returns the weighted material coordinate of the cloth side
func (c *Collision) MaterialPoint(m *mesh.Mesh) mgl64.Vec2 {
	var u mgl64.Vec2
	for i, n := range c.Verts2 {
		u = u.Add(m.Node(n).U.Mul(c.Weights2[i]))
	}
	return u
}

// Detector produces the contact list for the current geometry
type Detector interface {
	Detect(m *mesh.Mesh, obs *actor.Obstacles) []Collision
}
