package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

type (
	NodeID int
	EdgeID int
	FaceID int
)

const (
	NoNode NodeID = -1
	NoEdge EdgeID = -1
	NoFace FaceID = -1
)

// Node is a cloth vertex: world position X, velocity V and material coordinate U.
type Node struct {
	X      mgl64.Vec3
	V      mgl64.Vec3
	U      mgl64.Vec2
	N      mgl64.Vec3
	Sizing mgl64.Mat2

	// CornerID is the feature column of a tracked point or box corner, or -1.
	CornerID int
	// CDEdges holds the feature columns of a tracked box edge.
	CDEdges []int
	// CornerEdges holds the incident edge columns of a tracked box corner.
	CornerEdges []int
	Preserve    bool

	// Index and EoLIndex are dense, refreshed by ComputeWorldSpaceData
	Index    int
	EoLIndex int

	Edges []EdgeID
	Faces []FaceID

	state EoLState
	alive bool
}

type Edge struct {
	N        [2]NodeID
	Faces    [2]FaceID
	Preserve bool

	alive bool
}

// Other returns the endpoint of e that is not n
func (e *Edge) Other(n NodeID) NodeID {
	if e.N[0] == n {
		return e.N[1]
	}
	return e.N[0]
}

func (e *Edge) Has(n NodeID) bool {
	return e.N[0] == n || e.N[1] == n
}

func (e *Edge) NumFaces() int {
	k := 0
	for _, f := range e.Faces {
		if f != NoFace {
			k++
		}
	}
	return k
}

// Face is a triangle, counter-clockwise in material space. E[i] is opposite V[i].
type Face struct {
	V [3]NodeID
	E [3]EdgeID
	N mgl64.Vec3

	alive bool
}

func (f *Face) Has(n NodeID) bool {
	return f.V[0] == n || f.V[1] == n || f.V[2] == n
}

// Mesh is an arena of nodes, edges and faces addressed by stable handles.
// Handles are never reused, and every iteration walks them in ascending order.
type Mesh struct {
	nodes []Node
	edges []Edge
	faces []Face

	eolCount int
	indexed  bool
	version  uint64
	locator  *faceLocator
}

func New() *Mesh {
	return &Mesh{}
}

func (m *Mesh) live(id NodeID) (*Node, error) {
	if id < 0 || int(id) >= len(m.nodes) || !m.nodes[id].alive {
		return nil, fmt.Errorf("node %d: %w", id, ErrDead)
	}
	return &m.nodes[id], nil
}

func (m *Mesh) Node(id NodeID) *Node { return &m.nodes[id] }
func (m *Mesh) Edge(id EdgeID) *Edge { return &m.edges[id] }
func (m *Mesh) Face(id FaceID) *Face { return &m.faces[id] }

func (m *Mesh) NodeAlive(id NodeID) bool {
	return id >= 0 && int(id) < len(m.nodes) && m.nodes[id].alive
}

func (m *Mesh) EdgeAlive(id EdgeID) bool {
	return id >= 0 && int(id) < len(m.edges) && m.edges[id].alive
}

func (m *Mesh) FaceAlive(id FaceID) bool {
	return id >= 0 && int(id) < len(m.faces) && m.faces[id].alive
}

// Nodes returns the live node handles in ascending order
func (m *Mesh) Nodes() []NodeID {
	ids := make([]NodeID, 0, len(m.nodes))
	for i := range m.nodes {
		if m.nodes[i].alive {
			ids = append(ids, NodeID(i))
		}
	}
	return ids
}

func (m *Mesh) Edges() []EdgeID {
	ids := make([]EdgeID, 0, len(m.edges))
	for i := range m.edges {
		if m.edges[i].alive {
			ids = append(ids, EdgeID(i))
		}
	}
	return ids
}

func (m *Mesh) Faces() []FaceID {
	ids := make([]FaceID, 0, len(m.faces))
	for i := range m.faces {
		if m.faces[i].alive {
			ids = append(ids, FaceID(i))
		}
	}
	return ids
}

func (m *Mesh) NumNodes() int { return len(m.Nodes()) }
func (m *Mesh) NumFaces() int { return len(m.Faces()) }

// EoLCount is the number of EOL nodes as of the last ComputeWorldSpaceData
func (m *Mesh) EoLCount() int { return m.eolCount }

// Indexed reports whether dense indices are current
func (m *Mesh) Indexed() bool { return m.indexed }

func (m *Mesh) touch() {
	m.version++
	m.indexed = false
}

// AddNode appends a free node; faces are attached with AddFace.
func (m *Mesh) AddNode(x mgl64.Vec3, u mgl64.Vec2) NodeID {
	m.nodes = append(m.nodes, Node{
		X:        x,
		U:        u,
		Sizing:   mgl64.Ident2(),
		CornerID: -1,
		Index:    -1,
		EoLIndex: -1,
		alive:    true,
	})
	m.touch()
	return NodeID(len(m.nodes) - 1)
}

// AddFace creates the triangle (a, b, c), sharing existing edges.
func (m *Mesh) AddFace(a, b, c NodeID) (FaceID, error) {
	for _, n := range [3]NodeID{a, b, c} {
		if _, err := m.live(n); err != nil {
			return NoFace, err
		}
	}
	if a == b || b == c || c == a {
		return NoFace, fmt.Errorf("face (%d,%d,%d): %w", a, b, c, ErrTopology)
	}

	id := FaceID(len(m.faces))
	face := Face{V: [3]NodeID{a, b, c}, alive: true}
	for i := 0; i < 3; i++ {
		n0, n1 := face.V[(i+1)%3], face.V[(i+2)%3]
		e := m.EdgeBetween(n0, n1)
		if e == NoEdge {
			e = m.addEdge(n0, n1)
		}
		edge := &m.edges[e]
		switch {
		case edge.Faces[0] == NoFace:
			edge.Faces[0] = id
		case edge.Faces[1] == NoFace:
			edge.Faces[1] = id
		default:
			return NoFace, fmt.Errorf("edge %d already has two faces: %w", e, ErrTopology)
		}
		face.E[i] = e
	}

	m.faces = append(m.faces, face)
	for _, n := range face.V {
		m.nodes[n].Faces = append(m.nodes[n].Faces, id)
	}
	m.touch()
	return id, nil
}

func (m *Mesh) addEdge(a, b NodeID) EdgeID {
	id := EdgeID(len(m.edges))
	m.edges = append(m.edges, Edge{
		N:     [2]NodeID{a, b},
		Faces: [2]FaceID{NoFace, NoFace},
		alive: true,
	})
	m.nodes[a].Edges = append(m.nodes[a].Edges, id)
	m.nodes[b].Edges = append(m.nodes[b].Edges, id)
	return id
}

// removeFace detaches a face; edges left without faces are removed too.
// The snapshots of removed edges are returned.
func (m *Mesh) removeFace(id FaceID) []RemovedEdge {
	face := &m.faces[id]
	face.alive = false
	for _, n := range face.V {
		m.nodes[n].Faces = removeID(m.nodes[n].Faces, id)
	}

	var removed []RemovedEdge
	for _, e := range face.E {
		edge := &m.edges[e]
		if edge.Faces[0] == id {
			edge.Faces[0], edge.Faces[1] = edge.Faces[1], NoFace
		} else if edge.Faces[1] == id {
			edge.Faces[1] = NoFace
		}
		if edge.Faces[0] == NoFace {
			removed = append(removed, RemovedEdge{ID: e, N: edge.N, Preserve: edge.Preserve})
			m.removeEdge(e)
		}
	}
	m.touch()
	return removed
}

func (m *Mesh) removeEdge(id EdgeID) {
	edge := &m.edges[id]
	edge.alive = false
	for _, n := range edge.N {
		m.nodes[n].Edges = removeID(m.nodes[n].Edges, id)
	}
}

func (m *Mesh) removeNode(id NodeID) {
	n := &m.nodes[id]
	n.alive = false
	n.Edges = nil
	n.Faces = nil
	m.touch()
}

func removeID[T comparable](s []T, id T) []T {
	for i, v := range s {
		if v == id {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
