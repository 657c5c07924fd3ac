package remesh

import (
	"github.com/akmonengine/eolcloth/mesh"
	"github.com/samber/lo"
)

// MarkPreserve recomputes the preserve flag of every edge and returns how many
// edges are flagged.
func MarkPreserve(m *mesh.Mesh) int {
	count := 0
	for _, e := range m.Edges() {
		edge := m.Edge(e)
		edge.Preserve = sameFeature(m.Node(edge.N[0]), m.Node(edge.N[1]))
		if edge.Preserve {
			count++
		}
	}
	return count
}

// sameFeature reports whether two EOL nodes track the same obstacle feature
// line. Two corners are never bridged.
func sameFeature(a, b *mesh.Node) bool {
	if !a.IsEoL() || !b.IsEoL() {
		return false
	}
	switch {
	case a.IsCorner() && b.IsCorner():
		return false
	case a.IsCorner():
		return len(b.CDEdges) > 0 && lo.Contains(a.CornerEdges, b.CDEdges[0])
	case b.IsCorner():
		return len(a.CDEdges) > 0 && lo.Contains(b.CornerEdges, a.CDEdges[0])
	}
	return len(a.CDEdges) > 0 && len(b.CDEdges) > 0 && a.CDEdges[0] == b.CDEdges[0]
}

// passCollapse carries the preserve flag of edges deleted by a collapse onto
// the matching edges of the surviving node, so a tracked feature polyline
// stays connected.
func passCollapse(m *mesh.Mesh, op mesh.Op, survivor mesh.NodeID) int {
	count := 0
	for _, re := range op.RemovedEdges {
		if !re.Preserve || re.N[0] == survivor || re.N[1] == survivor {
			continue
		}
		e := m.EdgeBetween(survivor, re.N[0])
		if e == mesh.NoEdge {
			e = m.EdgeBetween(survivor, re.N[1])
		}
		if e != mesh.NoEdge && !m.Edge(e).Preserve {
			m.Edge(e).Preserve = true
			count++
		}
	}
	return count
}
