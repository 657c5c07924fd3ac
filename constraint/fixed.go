package constraint

import (
	"github.com/akmonengine/eolcloth/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

const MaxFixed = 4

// FixedSpec softly pins the selected velocity components of one node. Each
// selected component i yields the row v_i = (1 - damping) * V_i + Offset_i.
type FixedSpec struct {
	Active bool
	Select [3]bool
	Offset mgl64.Vec3
	Node   mesh.NodeID
}

type FixedList [MaxFixed]FixedSpec

// Pin fills the first inactive slot. It returns false when all slots are used.
func (l *FixedList) Pin(node mesh.NodeID, sel [3]bool, offset mgl64.Vec3) bool {
	for i := range l {
		if !l[i].Active {
			l[i] = FixedSpec{Active: true, Select: sel, Offset: offset, Node: node}
			return true
		}
	}
	return false
}

// Pinned reports whether an active slot holds node
func (l *FixedList) Pinned(node mesh.NodeID) bool {
	for _, s := range l {
		if s.Active && s.Node == node {
			return true
		}
	}
	return false
}

func (l *FixedList) Any() bool {
	for _, s := range l {
		if s.Active {
			return true
		}
	}
	return false
}
