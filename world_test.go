package eolcloth

import (
	"testing"

	"github.com/akmonengine/eolcloth/actor"
	"github.com/akmonengine/eolcloth/collision"
	"github.com/akmonengine/eolcloth/config"
	"github.com/akmonengine/eolcloth/mesh"
	"github.com/akmonengine/eolcloth/remesh"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedDetector replays whatever contacts the test staged for the step
type scriptedDetector struct {
	contacts []collision.Collision
	calls    int
}

func (d *scriptedDetector) Detect(*mesh.Mesh, *actor.Obstacles) []collision.Collision {
	d.calls++
	return d.contacts
}

func createWorld(obs *actor.Obstacles) (*World, *scriptedDetector) {
	detector := &scriptedDetector{}
	cloth := mesh.NewSheet(1, 1, 2, 2, nil)
	return NewWorld(config.Default(), cloth, obs, remesh.Rectangle(1, 1), detector, nil), detector
}

func pointContact(verts [3]mesh.NodeID, weights [3]float64) collision.Collision {
	return collision.Collision{
		Count1:   1,
		Count2:   3,
		Box:      -1,
		Verts1:   []int{0},
		Verts2:   verts[:],
		Weights2: weights[:],
		Nor1:     mgl64.Vec3{0, 0, 1},
		Nor2:     mgl64.Vec3{0, 0, 1},
		Pos1:     mgl64.Vec3{0.8, 0.2, -0.01},
		Pos2:     mgl64.Vec3{0.8, 0.2, 0},
		Inset:    mgl64.Vec3{0.8, 0.2, -0.01},
	}
}

func TestWorld_Step_PointLifecycle(t *testing.T) {
	obs := &actor.Obstacles{}
	obs.AddPoint(mgl64.Vec3{0.8, 0.2, -0.01}, mgl64.Vec3{0, 0, 1})
	w, detector := createWorld(obs)

	capture := &eventCapture{}
	subscribeAll(&w.Events, capture)

	// Step 1: the point touches face (1,2,5) and a node is inserted under it
	detector.contacts = []collision.Collision{pointContact([3]mesh.NodeID{1, 2, 5}, [3]float64{0.4, 0.2, 0.4})}
	sys, err := w.Step(0.01)
	require.NoError(t, err)

	assert.Equal(t, 2, detector.calls)
	assert.Equal(t, 10, w.Cloth.NumNodes())
	assert.Equal(t, 1, w.Cloth.EoLCount())
	assert.True(t, sys.HasCollisions)
	assert.False(t, sys.HasFixed)
	assert.Len(t, sys.Beq, 2)
	// One EOL normal row and the Lagrangian row of the same contact
	assert.Len(t, sys.Bineq, 2)
	assert.Equal(t, 3*10+2, sys.Aeq.Cols)

	if d := cmp.Diff([]Event{EOLEnterEvent{Node: 9, Feature: mesh.CornerFeature(0)}}, capture.events); d != "" {
		t.Errorf("step 1 events (-want +got):\n%s", d)
	}

	// Step 2: the contact is reported on the fan of the new node
	capture.reset()
	detector.contacts = []collision.Collision{pointContact([3]mesh.NodeID{1, 2, 9}, [3]float64{0.1, 0.1, 0.8})}
	sys, err = w.Step(0.01)
	require.NoError(t, err)

	assert.Equal(t, mesh.IsEOL, w.Cloth.Node(9).State())
	assert.Len(t, sys.Bineq, 1)
	if d := cmp.Diff([]Event{EOLStayEvent{Node: 9, Feature: mesh.CornerFeature(0)}}, capture.events); d != "" {
		t.Errorf("step 2 events (-want +got):\n%s", d)
	}

	// Step 3: contact lost
	capture.reset()
	detector.contacts = nil
	sys, err = w.Step(0.01)
	require.NoError(t, err)

	assert.Equal(t, 0, w.Cloth.EoLCount())
	assert.False(t, sys.HasCollisions)
	assert.Equal(t, 3*10, sys.Aeq.Cols)
	want := []Event{
		EOLRevertEvent{Node: 9, From: mesh.WasEOL},
		EOLExitEvent{Node: 9, Feature: mesh.CornerFeature(0)},
	}
	if d := cmp.Diff(want, capture.events); d != "" {
		t.Errorf("step 3 events (-want +got):\n%s", d)
	}
	assert.Equal(t, 3, w.StepCount())
}

func TestWorld_Pin(t *testing.T) {
	w, _ := createWorld(&actor.Obstacles{})

	offset := mgl64.Vec3{0, 0, 0.5}
	require.NoError(t, w.Pin(0, [3]bool{true, true, true}, offset))
	require.NoError(t, w.Pin(2, [3]bool{false, false, true}, offset))

	sys, err := w.Step(0.01)
	require.NoError(t, err)
	assert.True(t, sys.HasFixed)
	assert.Empty(t, cmp.Diff([]float64{0, 0, 0.5, 0.5}, sys.Beq))

	// The remesher leaves pinned nodes in place
	assert.True(t, w.Maintainer.Pinned(2))
	assert.False(t, w.Maintainer.Pinned(1))

	t.Run("slots exhausted", func(t *testing.T) {
		require.NoError(t, w.Pin(6, [3]bool{true, false, false}, mgl64.Vec3{}))
		require.NoError(t, w.Pin(8, [3]bool{true, false, false}, mgl64.Vec3{}))
		assert.ErrorIs(t, w.Pin(4, [3]bool{true, false, false}, mgl64.Vec3{}), ErrTooManyPins)
	})

	t.Run("removed node", func(t *testing.T) {
		assert.ErrorIs(t, w.Pin(42, [3]bool{true, false, false}, mgl64.Vec3{}), mesh.ErrDead)
	})
}

func TestWorld_Step_AdvancesObstacles(t *testing.T) {
	tests := []struct {
		name    string
		workers int
	}{
		{"default workers", 0},
		{"single worker", 1},
		{"more workers than boxes", 8},
		{"split across workers", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &actor.Obstacles{}
			for i := 0; i < 3; i++ {
				box := actor.NewBox(mgl64.Vec3{0.1, 0.1, 0.1}, actor.Transform{
					Position: mgl64.Vec3{float64(i), 0, 10},
					Rotation: mgl64.QuatIdent(),
				})
				box.V = actor.NewTwist(mgl64.Vec3{0, 0, 1}, mgl64.Vec3{})
				obs.AddBox(box)
			}
			static := actor.NewBox(mgl64.Vec3{0.1, 0.1, 0.1}, actor.Transform{
				Position: mgl64.Vec3{0, 5, 10},
				Rotation: mgl64.QuatIdent(),
			})
			obs.AddBox(static)

			w, _ := createWorld(obs)
			w.Workers = tt.workers

			_, err := w.Step(0.5)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, w.Workers, DEFAULT_WORKERS)

			for i, box := range obs.Boxes[:3] {
				p := box.E1.Col(3).Vec3()
				assert.InDelta(t, float64(i), p.X(), 1e-9)
				assert.InDelta(t, 10.5, p.Z(), 1e-9)
			}
			assert.InDelta(t, 10, static.E1.Col(3).Z(), 1e-12)
		})
	}
}

func TestTask_VisitsEveryItem(t *testing.T) {
	data := make([]*int, 10)
	for i := range data {
		data[i] = new(int)
	}

	for _, workers := range []int{1, 3, 4, 16} {
		task(workers, data, func(p *int) { *p++ })
	}

	for i, p := range data {
		if *p != 4 {
			t.Errorf("item %d visited %d times, want 4", i, *p)
		}
	}
}
