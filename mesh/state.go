package mesh

import "fmt"

// EoLState tracks a node through one maintenance cycle.
type EoLState uint8

const (
	None EoLState = iota
	WasEOL
	IsEOL
	NewEOL
	NewEOLFromSplit
)

func (s EoLState) String() string {
	switch s {
	case None:
		return "None"
	case WasEOL:
		return "WasEOL"
	case IsEOL:
		return "IsEOL"
	case NewEOL:
		return "NewEOL"
	case NewEOLFromSplit:
		return "NewEOLFromSplit"
	}
	return fmt.Sprintf("EoLState(%d)", uint8(s))
}

var transitions = map[EoLState][]EoLState{
	None:            {IsEOL, NewEOL, NewEOLFromSplit},
	IsEOL:           {WasEOL, None},
	WasEOL:          {IsEOL, None},
	NewEOL:          {WasEOL, IsEOL, None},
	NewEOLFromSplit: {WasEOL, IsEOL, None},
}

// CanTransition reports whether from -> to is allowed. Self transitions always are.
func CanTransition(from, to EoLState) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Feature identifies what an EOL node tracks: a point/corner column, or a set of
// edge columns of the contact-feature table.
type Feature struct {
	Corner int
	Edges  []int
}

func CornerFeature(col int, incident ...int) Feature {
	return Feature{Corner: col, Edges: incident}
}

func EdgeFeature(cols ...int) Feature {
	return Feature{Corner: -1, Edges: cols}
}

// Feature returns the tracked feature of a node
func (n *Node) Feature() Feature {
	if n.CornerID >= 0 {
		return Feature{Corner: n.CornerID, Edges: n.CornerEdges}
	}
	return Feature{Corner: -1, Edges: n.CDEdges}
}

// FeatureEdges returns every edge column the node touches, including the
// incident edges of a tracked corner.
func (n *Node) FeatureEdges() []int {
	if n.CornerID >= 0 {
		return n.CornerEdges
	}
	return n.CDEdges
}

func (n *Node) State() EoLState { return n.state }
func (n *Node) IsEoL() bool     { return n.state != None }
func (n *Node) IsCorner() bool  { return n.CornerID >= 0 }

// SetState moves a node along the EoL state machine.
func (m *Mesh) SetState(id NodeID, to EoLState) error {
	n, err := m.live(id)
	if err != nil {
		return err
	}
	if !CanTransition(n.state, to) {
		return fmt.Errorf("node %d %s -> %s: %w", id, n.state, to, ErrIllegalTransition)
	}
	if to == None {
		n.CornerID = -1
		n.CDEdges = nil
		n.CornerEdges = nil
	}
	if n.state != to {
		m.indexed = false
	}
	n.state = to
	return nil
}

// Attach binds a node to a feature and moves it to state.
func (m *Mesh) Attach(id NodeID, state EoLState, f Feature) error {
	if state == None {
		return fmt.Errorf("attach node %d: %w", id, ErrIllegalTransition)
	}
	if err := m.SetState(id, state); err != nil {
		return err
	}
	n := &m.nodes[id]
	if f.Corner >= 0 {
		n.CornerID = f.Corner
		n.CornerEdges = append([]int(nil), f.Edges...)
		n.CDEdges = nil
	} else {
		n.CornerID = -1
		n.CornerEdges = nil
		n.CDEdges = append([]int(nil), f.Edges...)
	}
	return nil
}

// Detach returns a node to plain Lagrangian status
func (m *Mesh) Detach(id NodeID) error {
	return m.SetState(id, None)
}
