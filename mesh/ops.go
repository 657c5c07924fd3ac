package mesh

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// RemovedEdge snapshots an edge deleted by an operation
type RemovedEdge struct {
	ID       EdgeID
	N        [2]NodeID
	Preserve bool
}

// Op describes the topology delta of an applied operation.
type Op struct {
	AddedNodes   []NodeID
	RemovedNodes []NodeID
	AddedEdges   []EdgeID
	RemovedEdges []RemovedEdge
	AddedFaces   []FaceID
	RemovedFaces []FaceID
}

func (op Op) Empty() bool {
	return len(op.AddedNodes) == 0 && len(op.RemovedNodes) == 0 &&
		len(op.AddedFaces) == 0 && len(op.RemovedFaces) == 0
}

// orient returns the vertices of f ordered (a, b, c) with e = (a, b)
func (m *Mesh) orient(f FaceID, e EdgeID) (a, b, c NodeID) {
	face := &m.faces[f]
	for i := 0; i < 3; i++ {
		if face.E[i] == e {
			return face.V[(i+1)%3], face.V[(i+2)%3], face.V[i]
		}
	}
	return NoNode, NoNode, NoNode
}

func signedArea(u0, u1, u2 mgl64.Vec2) float64 {
	d1 := u1.Sub(u0)
	d2 := u2.Sub(u0)
	return 0.5 * (d1.X()*d2.Y() - d1.Y()*d2.X())
}

// MaterialArea is the signed material-space area of f
func (m *Mesh) MaterialArea(f FaceID) float64 {
	v := m.faces[f].V
	return signedArea(m.nodes[v[0]].U, m.nodes[v[1]].U, m.nodes[v[2]].U)
}

// fits checks that add can replace remove without leaving a degenerate face
// or an edge with three faces. The mesh is not modified.
func (m *Mesh) fits(remove []FaceID, add [][3]NodeID) error {
	gone := make(map[FaceID]bool, len(remove))
	for _, f := range remove {
		gone[f] = true
	}

	uses := make(map[[2]NodeID]int)
	for _, v := range add {
		if v[0] == v[1] || v[1] == v[2] || v[2] == v[0] {
			return fmt.Errorf("face (%d,%d,%d): %w", v[0], v[1], v[2], ErrTopology)
		}
		for i := 0; i < 3; i++ {
			a, b := v[(i+1)%3], v[(i+2)%3]
			if !m.NodeAlive(a) {
				return fmt.Errorf("node %d: %w", a, ErrDead)
			}
			key := [2]NodeID{min(a, b), max(a, b)}
			if _, seen := uses[key]; !seen {
				if e := m.EdgeBetween(a, b); e != NoEdge {
					for _, f := range m.edges[e].Faces {
						if f != NoFace && !gone[f] {
							uses[key]++
						}
					}
				}
			}
			uses[key]++
			if uses[key] > 2 {
				return fmt.Errorf("edge %d-%d would get a third face: %w", a, b, ErrTopology)
			}
		}
	}
	return nil
}

// replaceFaces removes the given faces then adds the replacements, carrying
// the preserve flag of any edge that was deleted and rebuilt. Nothing changes
// when the replacement does not fit.
func (m *Mesh) replaceFaces(remove []FaceID, add [][3]NodeID, remap func(NodeID) NodeID) (Op, error) {
	if err := m.fits(remove, add); err != nil {
		return Op{}, err
	}
	edgesBefore := len(m.edges)

	var op Op
	for _, f := range remove {
		op.RemovedEdges = append(op.RemovedEdges, m.removeFace(f)...)
		op.RemovedFaces = append(op.RemovedFaces, f)
	}
	for _, v := range add {
		f, err := m.AddFace(v[0], v[1], v[2])
		if err != nil {
			return op, err
		}
		op.AddedFaces = append(op.AddedFaces, f)
	}
	for i := edgesBefore; i < len(m.edges); i++ {
		if m.edges[i].alive {
			op.AddedEdges = append(op.AddedEdges, EdgeID(i))
		}
	}

	for _, r := range op.RemovedEdges {
		if !r.Preserve {
			continue
		}
		a, b := r.N[0], r.N[1]
		if remap != nil {
			a, b = remap(a), remap(b)
		}
		if e := m.EdgeBetween(a, b); e != NoEdge {
			m.edges[e].Preserve = true
		}
	}
	return op, nil
}

// SplitEdge inserts a node at (1-d)*N[0] + d*N[1]. When minLen is positive the
// split is refused if either half would be shorter in world space.
func (m *Mesh) SplitEdge(e EdgeID, d float64, minLen float64) (Op, error) {
	if !m.EdgeAlive(e) {
		return Op{}, fmt.Errorf("split edge %d: %w", e, ErrDead)
	}
	edge := m.edges[e]
	n0, n1 := &m.nodes[edge.N[0]], &m.nodes[edge.N[1]]

	length := n1.X.Sub(n0.X).Len()
	if minLen > 0 && (d*length < minLen || (1-d)*length < minLen) {
		return Op{}, fmt.Errorf("split edge %d at %.3f: %w", e, d, ErrTooShort)
	}

	p := m.AddNode(lerp3(n0.X, n1.X, d), lerp2(n0.U, n1.U, d))
	// AddNode may have grown the arena
	n0, n1 = &m.nodes[edge.N[0]], &m.nodes[edge.N[1]]
	node := &m.nodes[p]
	node.V = lerp3(n0.V, n1.V, d)
	node.N = lerp3(n0.N, n1.N, d)
	if node.N.Len() > 0 {
		node.N = node.N.Normalize()
	}
	node.Sizing = n0.Sizing.Add(n1.Sizing).Mul(0.5)

	var remove []FaceID
	var add [][3]NodeID
	for _, f := range edge.Faces {
		if f == NoFace {
			continue
		}
		a, b, c := m.orient(f, e)
		remove = append(remove, f)
		add = append(add, [3]NodeID{a, p, c}, [3]NodeID{p, b, c})
	}

	op, err := m.replaceFaces(remove, add, nil)
	if err != nil {
		m.removeNode(p)
		return Op{}, fmt.Errorf("split edge %d: %w", e, err)
	}
	op.AddedNodes = []NodeID{p}

	for _, half := range [2]EdgeID{m.EdgeBetween(edge.N[0], p), m.EdgeBetween(p, edge.N[1])} {
		if half != NoEdge {
			m.edges[half].Preserve = edge.Preserve
		}
	}
	return op, nil
}

// SplitFace inserts a node inside f at the barycentric location bary.
func (m *Mesh) SplitFace(f FaceID, bary mgl64.Vec3) (Op, error) {
	if !m.FaceAlive(f) {
		return Op{}, fmt.Errorf("split face %d: %w", f, ErrDead)
	}
	v := m.faces[f].V

	var x, vel, n mgl64.Vec3
	var u mgl64.Vec2
	var sizing mgl64.Mat2
	for i := 0; i < 3; i++ {
		node := &m.nodes[v[i]]
		x = x.Add(node.X.Mul(bary[i]))
		vel = vel.Add(node.V.Mul(bary[i]))
		n = n.Add(node.N.Mul(bary[i]))
		u = u.Add(node.U.Mul(bary[i]))
		sizing = sizing.Add(node.Sizing.Mul(1.0 / 3.0))
	}

	p := m.AddNode(x, u)
	node := &m.nodes[p]
	node.V = vel
	if n.Len() > 0 {
		node.N = n.Normalize()
	}
	node.Sizing = sizing

	op, err := m.replaceFaces([]FaceID{f}, [][3]NodeID{
		{v[0], v[1], p},
		{v[1], v[2], p},
		{v[2], v[0], p},
	}, nil)
	if err != nil {
		m.removeNode(p)
		return Op{}, fmt.Errorf("split face %d: %w", f, err)
	}
	op.AddedNodes = []NodeID{p}
	return op, nil
}

// CollapseEdge merges N[i] of e into the other endpoint. It is refused when the
// link condition fails, when it would pull a boundary node off the boundary,
// or when a surviving face would invert in material space.
func (m *Mesh) CollapseEdge(e EdgeID, i int) (Op, error) {
	if !m.EdgeAlive(e) {
		return Op{}, fmt.Errorf("collapse edge %d: %w", e, ErrDead)
	}
	edge := m.edges[e]
	r, k := edge.N[i], edge.N[1-i]

	if m.IsBoundary(r) && !m.IsBoundaryEdge(e) {
		return Op{}, fmt.Errorf("collapse edge %d into %d: boundary node: %w", e, k, ErrTopology)
	}

	// Link condition: the only shared neighbours are the apexes of the edge faces
	common := 0
	for _, a := range m.Neighbors(r) {
		if a != k && m.EdgeBetween(a, k) != NoEdge {
			common++
		}
	}
	if common != edge.NumFaces() {
		return Op{}, fmt.Errorf("collapse edge %d: link condition: %w", e, ErrTopology)
	}

	remove := append([]FaceID(nil), m.nodes[r].Faces...)
	var add [][3]NodeID
	for _, f := range remove {
		face := m.faces[f]
		if face.Has(k) {
			continue
		}
		v := face.V
		for j := range v {
			if v[j] == r {
				v[j] = k
			}
		}
		if signedArea(m.nodes[v[0]].U, m.nodes[v[1]].U, m.nodes[v[2]].U) <= 0 {
			return Op{}, fmt.Errorf("collapse edge %d: face %d: %w", e, f, ErrInverted)
		}
		add = append(add, v)
	}
	if err := m.fits(remove, add); err != nil {
		return Op{}, fmt.Errorf("collapse edge %d: %w", e, err)
	}

	remap := func(n NodeID) NodeID {
		if n == r {
			return k
		}
		return n
	}

	edgesBefore := len(m.edges)
	var op Op
	for _, f := range remove {
		op.RemovedEdges = append(op.RemovedEdges, m.removeFace(f)...)
		op.RemovedFaces = append(op.RemovedFaces, f)
	}
	m.removeNode(r)
	op.RemovedNodes = []NodeID{r}

	rest, err := m.replaceFaces(nil, add, nil)
	op.AddedFaces = rest.AddedFaces
	for j := edgesBefore; j < len(m.edges); j++ {
		if m.edges[j].alive {
			op.AddedEdges = append(op.AddedEdges, EdgeID(j))
		}
	}
	for _, re := range op.RemovedEdges {
		if !re.Preserve {
			continue
		}
		if ne := m.EdgeBetween(remap(re.N[0]), remap(re.N[1])); ne != NoEdge {
			m.edges[ne].Preserve = true
		}
	}
	return op, err
}

// FlipEdges runs Delaunay flips in material space until a pass flips nothing or
// maxPasses is reached. Preserved and boundary edges are never flipped.
func (m *Mesh) FlipEdges(maxPasses int) int {
	total := 0
	for pass := 0; pass < maxPasses; pass++ {
		flips := 0
		count := len(m.edges)
		for i := 0; i < count; i++ {
			if m.flip(EdgeID(i)) {
				flips++
			}
		}
		total += flips
		if flips == 0 {
			break
		}
	}
	return total
}

func (m *Mesh) flip(e EdgeID) bool {
	if !m.EdgeAlive(e) {
		return false
	}
	edge := m.edges[e]
	if edge.Preserve || edge.NumFaces() < 2 {
		return false
	}

	f0, f1 := edge.Faces[0], edge.Faces[1]
	a, b, c := m.orient(f0, e)
	b1, a1, d := m.orient(f1, e)
	if a1 != a || b1 != b {
		return false
	}

	ua, ub, uc, ud := m.nodes[a].U, m.nodes[b].U, m.nodes[c].U, m.nodes[d].U
	if angle(ua.Sub(uc), ub.Sub(uc))+angle(ub.Sub(ud), ua.Sub(ud)) <= math.Pi+1e-6 {
		return false
	}
	if m.EdgeBetween(c, d) != NoEdge {
		return false
	}
	if signedArea(ua, ud, uc) <= 0 || signedArea(ud, ub, uc) <= 0 {
		return false
	}

	_, err := m.replaceFaces([]FaceID{f0, f1}, [][3]NodeID{{a, d, c}, {d, b, c}}, nil)
	return err == nil
}

func angle(a, b mgl64.Vec2) float64 {
	la, lb := a.Len(), b.Len()
	if la == 0 || lb == 0 {
		return 0
	}
	return math.Acos(mgl64.Clamp(a.Dot(b)/(la*lb), -1, 1))
}

func lerp3(a, b mgl64.Vec3, d float64) mgl64.Vec3 {
	return a.Mul(1 - d).Add(b.Mul(d))
}

func lerp2(a, b mgl64.Vec2, d float64) mgl64.Vec2 {
	return a.Mul(1 - d).Add(b.Mul(d))
}
