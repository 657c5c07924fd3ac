package eolcloth

import (
	"cmp"
	"slices"

	"github.com/akmonengine/eolcloth/mesh"
	"github.com/samber/lo"
)

const (
	EOL_ENTER EventType = iota
	EOL_STAY
	EOL_EXIT
	EOL_REVERT
)

// trackKey identifies one node tracking one obstacle feature. A node that
// switches feature exits the old key and enters the new one.
type trackKey struct {
	node   mesh.NodeID
	corner int
	edge   int
}

func makeTrackKey(id mesh.NodeID, n *mesh.Node) trackKey {
	key := trackKey{node: id, corner: n.CornerID, edge: -1}
	if key.corner < 0 && len(n.CDEdges) > 0 {
		key.edge = n.CDEdges[0]
	}
	return key
}

func (k trackKey) feature() mesh.Feature {
	if k.corner >= 0 {
		return mesh.CornerFeature(k.corner)
	}
	if k.edge >= 0 {
		return mesh.EdgeFeature(k.edge)
	}
	return mesh.EdgeFeature()
}

func sortedKeys(set map[trackKey]bool) []trackKey {
	keys := lo.Keys(set)
	slices.SortFunc(keys, func(a, b trackKey) int {
		return cmp.Or(cmp.Compare(a.node, b.node), cmp.Compare(a.corner, b.corner), cmp.Compare(a.edge, b.edge))
	})
	return keys
}

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// EOLEnterEvent fires the first step a node tracks a feature
type EOLEnterEvent struct {
	Node    mesh.NodeID
	Feature mesh.Feature
}

func (e EOLEnterEvent) Type() EventType { return EOL_ENTER }

type EOLStayEvent struct {
	Node    mesh.NodeID
	Feature mesh.Feature
}

func (e EOLStayEvent) Type() EventType { return EOL_STAY }

// EOLExitEvent fires when a node stops tracking a feature, whether it was
// released, collapsed away or moved to another feature.
type EOLExitEvent struct {
	Node    mesh.NodeID
	Feature mesh.Feature
}

func (e EOLExitEvent) Type() EventType { return EOL_EXIT }

// EOLRevertEvent fires when the maintainer returns a node to Lagrangian status
type EOLRevertEvent struct {
	Node mesh.NodeID
	From mesh.EoLState
}

func (e EOLRevertEvent) Type() EventType { return EOL_REVERT }

// EventListener - callback for events
type EventListener func(event Event)

// Events manager
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	// Tracking for Enter/Stay/Exit detection
	previousActive map[trackKey]bool
	currentActive  map[trackKey]bool
}

func NewEvents() Events {
	return Events{
		listeners:      make(map[EventType][]EventListener),
		buffer:         make([]Event, 0, 256),
		previousActive: make(map[trackKey]bool),
		currentActive:  make(map[trackKey]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordTransition is hooked on the maintainer and buffers reverts as they happen
func (e *Events) recordTransition(id mesh.NodeID, from, to mesh.EoLState) {
	if to == mesh.None {
		e.buffer = append(e.buffer, EOLRevertEvent{Node: id, From: from})
	}
}

// recordNodes snapshots the EOL nodes of m after maintenance
func (e *Events) recordNodes(m *mesh.Mesh) {
	for _, id := range m.Nodes() {
		n := m.Node(id)
		if n.IsEoL() {
			e.currentActive[makeTrackKey(id, n)] = true
		}
	}
}

// processEOLEvents compares current and previous keys to detect Enter/Stay/Exit.
// Keys are emitted in ascending node order so listeners see a stable sequence.
func (e *Events) processEOLEvents() {
	for _, key := range sortedKeys(e.currentActive) {
		if e.previousActive[key] {
			e.buffer = append(e.buffer, EOLStayEvent{Node: key.node, Feature: key.feature()})
		} else {
			e.buffer = append(e.buffer, EOLEnterEvent{Node: key.node, Feature: key.feature()})
		}
	}

	for _, key := range sortedKeys(e.previousActive) {
		if !e.currentActive[key] {
			e.buffer = append(e.buffer, EOLExitEvent{Node: key.node, Feature: key.feature()})
		}
	}

	// Swap for next step and clear current
	e.previousActive, e.currentActive = e.currentActive, e.previousActive
	clear(e.currentActive)
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	e.processEOLEvents()

	for _, event := range e.buffer {
		if listeners, ok := e.listeners[event.Type()]; ok {
			for _, listener := range listeners {
				listener(event)
			}
		}
	}
	e.buffer = e.buffer[:0]
}
