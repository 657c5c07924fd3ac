package eolcloth

import (
	"testing"

	"github.com/akmonengine/eolcloth/mesh"
	"github.com/google/go-cmp/cmp"
)

// createTrackedSheet returns a 2x2 sheet whose centre node tracks corner 0
// and whose node 1 tracks edge 7
func createTrackedSheet(t *testing.T) *mesh.Mesh {
	t.Helper()
	m := mesh.NewSheet(1, 1, 2, 2, nil)
	if err := m.Attach(4, mesh.IsEOL, mesh.CornerFeature(0, 3, 5)); err != nil {
		t.Fatal(err)
	}
	if err := m.Attach(1, mesh.NewEOL, mesh.EdgeFeature(7)); err != nil {
		t.Fatal(err)
	}
	return m
}

type eventCapture struct {
	events []Event
}

func (ec *eventCapture) capture(event Event) {
	ec.events = append(ec.events, event)
}

func (ec *eventCapture) reset() {
	ec.events = ec.events[:0]
}

func (ec *eventCapture) count() int {
	return len(ec.events)
}

func (ec *eventCapture) hasEventType(eventType EventType) bool {
	for _, e := range ec.events {
		if e.Type() == eventType {
			return true
		}
	}
	return false
}

func subscribeAll(events *Events, capture *eventCapture) {
	for _, eventType := range []EventType{EOL_ENTER, EOL_STAY, EOL_EXIT, EOL_REVERT} {
		events.Subscribe(eventType, capture.capture)
	}
}

// =============================================================================
// Subscribe and Listeners Tests
// =============================================================================

func TestEvents_Subscribe(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}

	events.Subscribe(EOL_ENTER, capture.capture)

	if len(events.listeners[EOL_ENTER]) != 1 {
		t.Errorf("Expected 1 listener for EOL_ENTER, got %d", len(events.listeners[EOL_ENTER]))
	}
}

func TestEvents_MultipleListeners(t *testing.T) {
	events := NewEvents()
	captures := []*eventCapture{{}, {}, {}}
	for _, c := range captures {
		events.Subscribe(EOL_ENTER, c.capture)
	}

	events.recordNodes(createTrackedSheet(t))
	events.flush()

	for i, c := range captures {
		if c.count() != 2 {
			t.Errorf("Capture%d expected 2 events, got %d", i+1, c.count())
		}
	}
}

func TestEvents_DifferentEventTypes(t *testing.T) {
	events := NewEvents()
	captureEnter := &eventCapture{}
	captureRevert := &eventCapture{}

	events.Subscribe(EOL_ENTER, captureEnter.capture)
	events.Subscribe(EOL_REVERT, captureRevert.capture)

	events.recordNodes(createTrackedSheet(t))
	events.flush()

	if captureEnter.count() != 2 {
		t.Errorf("Enter capture expected 2 events, got %d", captureEnter.count())
	}
	if captureRevert.count() != 0 {
		t.Errorf("Revert capture expected 0 events, got %d", captureRevert.count())
	}
}

// =============================================================================
// trackKey Tests
// =============================================================================

func TestMakeTrackKey(t *testing.T) {
	m := createTrackedSheet(t)

	tests := []struct {
		name string
		node mesh.NodeID
		want trackKey
	}{
		{"corner", 4, trackKey{node: 4, corner: 0, edge: -1}},
		{"edge", 1, trackKey{node: 1, corner: -1, edge: 7}},
		{"lagrangian", 0, trackKey{node: 0, corner: -1, edge: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := makeTrackKey(tt.node, m.Node(tt.node))
			if got != tt.want {
				t.Errorf("makeTrackKey(%d) = %+v, want %+v", tt.node, got, tt.want)
			}
		})
	}
}

func TestTrackKey_Feature(t *testing.T) {
	corner := trackKey{node: 4, corner: 2, edge: -1}.feature()
	if corner.Corner != 2 || len(corner.Edges) != 0 {
		t.Errorf("corner feature = %+v", corner)
	}

	edge := trackKey{node: 1, corner: -1, edge: 7}.feature()
	if edge.Corner != -1 || cmp.Diff([]int{7}, edge.Edges) != "" {
		t.Errorf("edge feature = %+v", edge)
	}
}

// =============================================================================
// Enter / Stay / Exit Tests
// =============================================================================

func TestEvents_Lifecycle(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)
	m := createTrackedSheet(t)

	// Step 1: both nodes enter, in node order
	events.recordNodes(m)
	events.flush()

	want := []Event{
		EOLEnterEvent{Node: 1, Feature: mesh.EdgeFeature(7)},
		EOLEnterEvent{Node: 4, Feature: mesh.CornerFeature(0)},
	}
	if d := cmp.Diff(want, capture.events); d != "" {
		t.Errorf("step 1 events (-want +got):\n%s", d)
	}

	// Step 2: still tracked
	capture.reset()
	events.recordNodes(m)
	events.flush()

	want = []Event{
		EOLStayEvent{Node: 1, Feature: mesh.EdgeFeature(7)},
		EOLStayEvent{Node: 4, Feature: mesh.CornerFeature(0)},
	}
	if d := cmp.Diff(want, capture.events); d != "" {
		t.Errorf("step 2 events (-want +got):\n%s", d)
	}

	// Step 3: node 1 is released by the maintainer
	capture.reset()
	if err := m.Detach(1); err != nil {
		t.Fatal(err)
	}
	events.recordTransition(1, mesh.WasEOL, mesh.None)
	events.recordNodes(m)
	events.flush()

	want = []Event{
		EOLRevertEvent{Node: 1, From: mesh.WasEOL},
		EOLStayEvent{Node: 4, Feature: mesh.CornerFeature(0)},
		EOLExitEvent{Node: 1, Feature: mesh.EdgeFeature(7)},
	}
	if d := cmp.Diff(want, capture.events); d != "" {
		t.Errorf("step 3 events (-want +got):\n%s", d)
	}
}

func TestEvents_FeatureSwitch(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)
	m := createTrackedSheet(t)

	events.recordNodes(m)
	events.flush()
	capture.reset()

	// Node 1 moves from edge 7 to edge 8 without leaving EOL status
	if err := m.Attach(1, mesh.IsEOL, mesh.EdgeFeature(8)); err != nil {
		t.Fatal(err)
	}
	events.recordNodes(m)
	events.flush()

	if !capture.hasEventType(EOL_ENTER) || !capture.hasEventType(EOL_EXIT) {
		t.Errorf("Expected enter and exit for the switched node, got %v", capture.events)
	}
	if capture.hasEventType(EOL_REVERT) {
		t.Error("A feature switch is not a revert")
	}
}

func TestEvents_RecordTransition(t *testing.T) {
	events := NewEvents()

	events.recordTransition(3, mesh.None, mesh.NewEOL)
	events.recordTransition(3, mesh.NewEOL, mesh.WasEOL)
	if len(events.buffer) != 0 {
		t.Fatalf("Expected no buffered events, got %d", len(events.buffer))
	}

	events.recordTransition(3, mesh.WasEOL, mesh.None)
	if len(events.buffer) != 1 {
		t.Fatalf("Expected 1 buffered event, got %d", len(events.buffer))
	}
	if got, ok := events.buffer[0].(EOLRevertEvent); !ok || got.Node != 3 || got.From != mesh.WasEOL {
		t.Errorf("Unexpected buffered event %+v", events.buffer[0])
	}
}

func TestEvents_FlushClearsBuffer(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	events.recordTransition(3, mesh.IsEOL, mesh.None)
	events.flush()
	events.flush()

	if capture.count() != 1 {
		t.Errorf("Expected the revert once, got %d events", capture.count())
	}
	if len(events.buffer) != 0 {
		t.Errorf("Expected empty buffer after flush, got %d", len(events.buffer))
	}
}
