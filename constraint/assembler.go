package constraint

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/eolcloth/actor"
	"github.com/akmonengine/eolcloth/collision"
	"github.com/akmonengine/eolcloth/config"
	"github.com/akmonengine/eolcloth/feature"
	"github.com/akmonengine/eolcloth/mesh"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

var (
	ErrStaleIndex       = errors.New("constraint: mesh indices are stale")
	ErrFeatureInvariant = errors.New("constraint: EOL node must track exactly one corner or edge feature")
)

// System is the assembled linear system. Columns are 3 position dofs per node
// followed by 2 drift dofs per EOL node.
type System struct {
	Aeq   Sparse
	Beq   []float64
	Aineq Sparse
	Bineq []float64

	HasFixed      bool
	HasCollisions bool

	Draw *DrawBuffer
}

// Assembler turns tracked contacts, Lagrangian contacts and pins into a System
type Assembler struct {
	Config   *config.Config
	Table    *feature.Table
	Detector collision.Detector
	Logger   *zap.Logger
	// Draw enables the visualisation buffer. The buffer is reused by every
	// Fill, so a System only holds its entries until the next call.
	Draw bool

	draw DrawBuffer
}

func NewAssembler(cfg *config.Config, detector collision.Detector, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		Config:   cfg,
		Table:    feature.NewTable(),
		Detector: detector,
		Logger:   logger,
	}
}

type builder struct {
	sys       *System
	positions int
}

func (b *builder) eq(row mgl64.Vec3, col int, rhs float64, x mgl64.Vec3) {
	r := len(b.sys.Beq)
	for i := 0; i < 3; i++ {
		b.sys.Aeq.add(r, col+i, row[i])
		if b.sys.Draw != nil {
			b.sys.Draw.Eq = append(b.sys.Draw.Eq, DrawEntry{Row: r, Position: x[i], Direction: row[i]})
		}
	}
	b.sys.Beq = append(b.sys.Beq, rhs)
}

func (b *builder) ineq(row mgl64.Vec3, col int, rhs float64, x mgl64.Vec3) {
	r := len(b.sys.Bineq)
	for i := 0; i < 3; i++ {
		b.sys.Aineq.add(r, col+i, row[i])
		if b.sys.Draw != nil {
			b.sys.Draw.Ineq = append(b.sys.Draw.Ineq, DrawEntry{Row: r, Position: x[i], Direction: row[i]})
		}
	}
	b.sys.Bineq = append(b.sys.Bineq, rhs)
}

// Fill assembles the system for the current mesh and obstacle state. The mesh
// must have been indexed by ComputeWorldSpaceData since its last change.
func (a *Assembler) Fill(m *mesh.Mesh, obs *actor.Obstacles, fixed *FixedList, h float64) (*System, error) {
	if !m.Indexed() {
		return nil, ErrStaleIndex
	}
	a.Table.Rebuild(obs)

	nodes := m.Nodes()
	b := &builder{
		sys:       &System{},
		positions: 3 * len(nodes),
	}
	if a.Draw {
		a.draw.Reset()
		b.sys.Draw = &a.draw
	}

	for _, id := range nodes {
		node := m.Node(id)
		if !node.IsEoL() {
			continue
		}
		if err := a.eolRows(b, m, obs, id, h); err != nil {
			return nil, err
		}
	}
	eolIneq := len(b.sys.Bineq)

	lagrangian := 0
	if a.Detector != nil {
		for _, c := range a.Detector.Detect(m, obs) {
			if a.lagrangianRow(b, m, obs, c, h) {
				lagrangian++
			}
		}
	}

	b.sys.HasCollisions = len(b.sys.Bineq) > 0

	if fixed != nil && fixed.Any() {
		b.sys.HasFixed = true
		for _, spec := range fixed {
			if !spec.Active {
				continue
			}
			if !m.NodeAlive(spec.Node) {
				return nil, fmt.Errorf("pin on node %d: %w", spec.Node, mesh.ErrDead)
			}
			node := m.Node(spec.Node)
			for i := 0; i < 3; i++ {
				if !spec.Select[i] {
					continue
				}
				r := len(b.sys.Beq)
				b.sys.Aeq.add(r, 3*node.Index+i, 1)
				b.sys.Beq = append(b.sys.Beq, (1-a.Config.FixedDamping)*node.V[i]+spec.Offset[i])
			}
		}
	}

	cols := b.positions + 2*m.EoLCount()
	b.sys.Aeq.Rows, b.sys.Aeq.Cols = len(b.sys.Beq), cols
	b.sys.Aineq.Rows, b.sys.Aineq.Cols = len(b.sys.Bineq), cols

	a.Logger.Debug("constraints assembled",
		zap.Int("eq", b.sys.Aeq.Rows),
		zap.Int("ineq", b.sys.Aineq.Rows),
		zap.Int("eolIneq", eolIneq),
		zap.Int("lagrangian", lagrangian),
		zap.Int("cols", cols),
		zap.Bool("fixed", b.sys.HasFixed),
	)
	return b.sys, nil
}

// obstacleVelocity returns the velocity of the box point at x, or false when
// the box owning col is static or col is a point.
func (a *Assembler) obstacleVelocity(obs *actor.Obstacles, box int, x mgl64.Vec3, h float64) (mgl64.Vec3, bool) {
	if box < 0 || box >= len(obs.Boxes) || !obs.Boxes[box].Moving() {
		return mgl64.Vec3{}, false
	}
	return obs.Boxes[box].PointVelocity(x, h), true
}

// flat reports whether every face around the node stays within limit of the first one
func flat(m *mesh.Mesh, node *mesh.Node, limit float64) bool {
	if len(node.Faces) == 0 {
		return true
	}
	n0 := m.Face(node.Faces[0]).N
	for _, f := range node.Faces[1:] {
		if angleBetween(n0, m.Face(f).N) > limit {
			return false
		}
	}
	return true
}

func (a *Assembler) eolRows(b *builder, m *mesh.Mesh, obs *actor.Obstacles, id mesh.NodeID, h float64) error {
	node := m.Node(id)
	isCorner := node.CornerID >= 0
	if isCorner == (len(node.CDEdges) > 0) {
		return fmt.Errorf("node %d (corner %d, edges %v): %w", id, node.CornerID, node.CDEdges, ErrFeatureInvariant)
	}

	col := 3 * node.Index
	if isCorner {
		ref, ok := a.Table.Locate(node.CornerID)
		if !ok {
			return fmt.Errorf("node %d corner column %d: %w", id, node.CornerID, ErrFeatureInvariant)
		}
		xdot, _ := a.obstacleVelocity(obs, ref.Box, node.X, h)

		n := a.Table.Normal(node.CornerID)
		t1, t2 := tangents(n)

		if ref.Kind == feature.KindPoint || flat(m, node, a.Config.FlatAngleCorner) {
			b.ineq(n.Mul(-1), col, -n.Dot(xdot), node.X)
			b.eq(t1, col, t1.Dot(xdot), node.X)
			b.eq(t2, col, t2.Dot(xdot), node.X)
		} else {
			// Sharp corner: no sliding direction can be trusted
			for _, row := range [3]mgl64.Vec3{n.Mul(-1), t1.Mul(-1), t2.Mul(-1)} {
				b.ineq(row, col, row.Dot(xdot), node.X)
			}
		}
		return nil
	}

	edgeCol := node.CDEdges[0]
	ref, ok := a.Table.Locate(edgeCol)
	if !ok || ref.Kind != feature.KindEdge {
		return fmt.Errorf("node %d edge column %d: %w", id, edgeCol, ErrFeatureInvariant)
	}
	xdot, _ := a.obstacleVelocity(obs, ref.Box, node.X, h)

	if flat(m, node, a.Config.FlatAngleEdge) {
		b.ineq(node.N.Mul(-1), col, -node.N.Dot(xdot), node.X)
		along := node.N.Cross(a.Table.Tangent(edgeCol)).Mul(-1)
		b.eq(along, col, along.Dot(xdot), node.X)
	} else {
		for _, n := range [2]mgl64.Vec3{a.Table.Normal(edgeCol), a.Table.SecondNormal(edgeCol)} {
			b.ineq(n.Mul(-1), col, -n.Dot(xdot), node.X)
		}
	}

	a.driftRow(b, m, id)
	return nil
}

// driftRow ties the 2 material drift dofs of an edge node to the mesh: across
// the border edge on the boundary, along the preserved edges inside.
func (a *Assembler) driftRow(b *builder, m *mesh.Mesh, id mesh.NodeID) {
	node := m.Node(id)

	var dir mgl64.Vec2
	if border := m.BoundaryEdges(id); len(border) > 0 {
		other := m.Node(m.Edge(border[0]).Other(id))
		d := node.U.Sub(other.U)
		dir = mgl64.Vec2{d.Y(), -d.X()}
	} else {
		for _, e := range node.Edges {
			edge := m.Edge(e)
			if !edge.Preserve {
				continue
			}
			u0, u1 := m.Node(edge.N[0]).U, m.Node(edge.N[1]).U
			d := u0.Sub(u1)
			if u0.Len() > u1.Len() {
				d = u1.Sub(u0)
			}
			if d.Len() > 0 {
				dir = dir.Add(d.Normalize())
			}
		}
	}
	if dir.Len() < 1e-12 {
		a.Logger.Debug("drift row skipped", zap.Int("node", int(id)))
		return
	}
	dir = dir.Normalize()

	r := len(b.sys.Beq)
	col := b.positions + 2*node.EoLIndex
	b.sys.Aeq.add(r, col, dir.X())
	b.sys.Aeq.add(r, col+1, dir.Y())
	b.sys.Beq = append(b.sys.Beq, 0)
	if b.sys.Draw != nil {
		b.sys.Draw.Eq = append(b.sys.Draw.Eq,
			DrawEntry{Row: r, Position: node.X[0], Direction: dir.X()},
			DrawEntry{Row: r, Position: node.X[1], Direction: dir.Y()},
			DrawEntry{Row: r, Position: 1, Direction: 0},
		)
	}
}

// lagrangianRow emits one inequality for a contact not already carried by an
// EOL node.
func (a *Assembler) lagrangianRow(b *builder, m *mesh.Mesh, obs *actor.Obstacles, c collision.Collision, h float64) bool {
	for _, v := range c.Verts2 {
		if m.Node(v).IsEoL() {
			return false
		}
	}

	var nor mgl64.Vec3
	var weights []float64
	switch {
	case c.VertexFace():
		nor, weights = c.Nor1, []float64{1}
	case c.EdgeEdge(), c.FaceVertex():
		nor, weights = c.Nor2, c.Weights2
	default:
		return false
	}

	xdot, _ := a.obstacleVelocity(obs, c.Box, c.Pos1, h)

	r := len(b.sys.Bineq)
	for j, v := range c.Verts2 {
		row := nor.Mul(-weights[j])
		col := 3 * m.Node(v).Index
		for i := 0; i < 3; i++ {
			b.sys.Aineq.add(r, col+i, row[i])
		}
	}
	if b.sys.Draw != nil {
		for i := 0; i < 3; i++ {
			b.sys.Draw.Ineq = append(b.sys.Draw.Ineq, DrawEntry{Row: r, Position: c.Pos2[i], Direction: c.Nor1[i]})
		}
	}
	b.sys.Bineq = append(b.sys.Bineq, -nor.Dot(xdot))
	return true
}

// tangents builds the frame t1 = (0, -n.z, n.y), t2 = t1 x n, both normalized
func tangents(n mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	t1 := mgl64.Vec3{0, -n.Z(), n.Y()}
	if t1.Len() < 1e-12 {
		t1 = n.Cross(mgl64.Vec3{0, 1, 0})
	}
	t1 = t1.Normalize()
	return t1, t1.Cross(n).Normalize()
}

func angleBetween(a, b mgl64.Vec3) float64 {
	la, lb := a.Len(), b.Len()
	if la == 0 || lb == 0 {
		return 0
	}
	return math.Acos(mgl64.Clamp(a.Dot(b)/(la*lb), -1, 1))
}
