// Package eolcloth sequences one simulation step of a cloth with tracked
// contact lines: contacts are detected, the mesh is remeshed around them and
// the constraint system for the external solver is assembled.
package eolcloth

import (
	"errors"
	"fmt"

	"github.com/akmonengine/eolcloth/actor"
	"github.com/akmonengine/eolcloth/collision"
	"github.com/akmonengine/eolcloth/config"
	"github.com/akmonengine/eolcloth/constraint"
	"github.com/akmonengine/eolcloth/mesh"
	"github.com/akmonengine/eolcloth/remesh"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

const DEFAULT_WORKERS = 1

var ErrTooManyPins = errors.New("eolcloth: every pin slot is in use")

type World struct {
	Config    *config.Config
	Cloth     *mesh.Mesh
	Obstacles *actor.Obstacles
	Fixed     constraint.FixedList

	Detector   collision.Detector
	Maintainer *remesh.Maintainer
	Assembler  *constraint.Assembler

	Logger  *zap.Logger
	Workers int
	Events  Events

	steps int
}

// NewWorld wires the maintainer and the assembler around the cloth. The
// detector serves both the remesher and the Lagrangian contact rows.
func NewWorld(cfg *config.Config, cloth *mesh.Mesh, obs *actor.Obstacles, boundary remesh.Boundary, detector collision.Detector, logger *zap.Logger) *World {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &World{
		Config:     cfg,
		Cloth:      cloth,
		Obstacles:  obs,
		Detector:   detector,
		Maintainer: remesh.NewMaintainer(cfg, boundary, logger.Named("remesh")),
		Assembler:  constraint.NewAssembler(cfg, detector, logger.Named("constraint")),
		Logger:     logger,
		Events:     NewEvents(),
	}
	w.Maintainer.OnTransition = func(id mesh.NodeID, from, to mesh.EoLState) {
		w.Events.recordTransition(id, from, to)
	}
	w.Maintainer.Pinned = w.Fixed.Pinned
	cloth.ComputeWorldSpaceData()
	return w
}

// Pin softly fixes the selected velocity components of a node
func (w *World) Pin(node mesh.NodeID, sel [3]bool, offset mgl64.Vec3) error {
	if !w.Cloth.NodeAlive(node) {
		return fmt.Errorf("pin node %d: %w", node, mesh.ErrDead)
	}
	if !w.Fixed.Pin(node, sel, offset) {
		return fmt.Errorf("pin node %d: %w", node, ErrTooManyPins)
	}
	return nil
}

// StepCount returns the number of completed steps
func (w *World) StepCount() int {
	return w.steps
}

// Step maintains the mesh against the current contacts, assembles the
// constraint system for h and moves the obstacles to the end of the step.
// Events are delivered before Step returns.
func (w *World) Step(h float64) (*constraint.System, error) {
	w.Workers = max(DEFAULT_WORKERS, w.Workers)

	// Phase 1: contacts against the geometry at the start of the step
	cls := w.Detector.Detect(w.Cloth, w.Obstacles)

	// Phase 2: topology maintenance
	stats, err := w.Maintainer.Preprocess(w.Cloth, cls)
	if err != nil {
		return nil, fmt.Errorf("step %d: %w", w.steps, err)
	}
	w.Events.recordNodes(w.Cloth)

	// Phase 3: constraint assembly
	sys, err := w.Assembler.Fill(w.Cloth, w.Obstacles, &w.Fixed, h)
	if err != nil {
		return nil, fmt.Errorf("step %d: %w", w.steps, err)
	}

	// Phase 4: obstacles move along their twist
	w.advance(h)

	w.Events.flush()

	w.Logger.Debug("step",
		zap.Int("step", w.steps),
		zap.Int("contacts", len(cls)),
		zap.Int("nodes", w.Cloth.NumNodes()),
		zap.Int("eol", w.Cloth.EoLCount()),
		zap.Int("inserted", stats.Inserted),
		zap.Int("reverted", stats.Reverted),
		zap.Int("eq", len(sys.Beq)),
		zap.Int("ineq", len(sys.Bineq)),
	)
	w.steps++
	return sys, nil
}

func (w *World) advance(h float64) {
	task(w.Workers, w.Obstacles.Boxes, func(box *actor.Box) {
		box.Advance(h)
	})
}
