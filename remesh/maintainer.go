// Package remesh keeps the cloth mesh conforming to the tracked contacts: it
// inserts EOL nodes where new contacts appear, flags the edges that follow an
// obstacle feature, repairs ill-conditioned triangles and releases nodes whose
// contact was lost.
package remesh

import (
	"github.com/akmonengine/eolcloth/collision"
	"github.com/akmonengine/eolcloth/config"
	"github.com/akmonengine/eolcloth/mesh"
	"go.uber.org/zap"
)

// Stats counts what one maintenance call did
type Stats struct {
	Inserted    int
	Reconfirmed int
	Skipped     int
	Reverted    int

	Flips      int
	Collapses  int
	Splits     int
	Iterations int
}

// Maintainer runs the per-step topology maintenance
type Maintainer struct {
	Config   *config.Config
	Boundary Boundary
	Logger   *zap.Logger

	// OnTransition observes every EoL state change made by the maintainer
	OnTransition func(id mesh.NodeID, from, to mesh.EoLState)
	// Pinned nodes are never removed by a collapse
	Pinned func(id mesh.NodeID) bool

	stats Stats
}

func NewMaintainer(cfg *config.Config, boundary Boundary, logger *zap.Logger) *Maintainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Maintainer{
		Config:   cfg,
		Boundary: boundary,
		Logger:   logger,
	}
}

// Preprocess runs one full maintenance cycle against the contacts detected
// this step, then refreshes the world-space data of the mesh.
func (mt *Maintainer) Preprocess(m *mesh.Mesh, cls []collision.Collision) (Stats, error) {
	mt.stats = Stats{}

	mt.MarkWasEOL(m)
	mt.AddGeometry(m, cls)
	if err := mt.cleanup(m); err != nil {
		return mt.stats, err
	}
	mt.RevertWasEOL(m)
	MarkPreserve(m)
	m.ComputeWorldSpaceData()

	mt.Logger.Debug("preprocess",
		zap.Int("contacts", len(cls)),
		zap.Int("inserted", mt.stats.Inserted),
		zap.Int("reconfirmed", mt.stats.Reconfirmed),
		zap.Int("skipped", mt.stats.Skipped),
		zap.Int("reverted", mt.stats.Reverted),
		zap.Int("flips", mt.stats.Flips),
		zap.Int("collapses", mt.stats.Collapses),
		zap.Int("splits", mt.stats.Splits),
		zap.Int("iterations", mt.stats.Iterations),
	)
	return mt.stats, nil
}

// Clean repairs the mesh without new contacts
func (mt *Maintainer) Clean(m *mesh.Mesh) (Stats, error) {
	stats, err := mt.Cleanup(m)
	if err != nil {
		return stats, err
	}
	m.ComputeWorldSpaceData()
	return stats, nil
}

// Cleanup runs the repair fixed point on its own
func (mt *Maintainer) Cleanup(m *mesh.Mesh) (Stats, error) {
	mt.stats = Stats{}
	err := mt.cleanup(m)
	return mt.stats, err
}

// MarkWasEOL puts every EOL node on probation for this cycle
func (mt *Maintainer) MarkWasEOL(m *mesh.Mesh) {
	for _, id := range m.Nodes() {
		if m.Node(id).IsEoL() {
			mt.setState(m, id, mesh.WasEOL)
		}
	}
}

// RevertWasEOL releases the nodes whose contact was not reconfirmed, and the
// ones the border excludes.
func (mt *Maintainer) RevertWasEOL(m *mesh.Mesh) {
	cfg := mt.Config
	for _, id := range m.Nodes() {
		node := m.Node(id)
		switch {
		case node.State() == mesh.WasEOL:
			mt.Logger.Debug("lift off", zap.Int("node", int(id)))
		case mt.Boundary.Excludes(m, id, cfg.BoundaryThreshold, cfg.BoundaryAngle):
			mt.Logger.Debug("border exclusion", zap.Int("node", int(id)))
		default:
			continue
		}
		mt.release(m, id)
		mt.stats.Reverted++
	}
}

func (mt *Maintainer) notify(id mesh.NodeID, from, to mesh.EoLState) {
	if from != to && mt.OnTransition != nil {
		mt.OnTransition(id, from, to)
	}
}

func (mt *Maintainer) setState(m *mesh.Mesh, id mesh.NodeID, to mesh.EoLState) {
	from := m.Node(id).State()
	if err := m.SetState(id, to); err != nil {
		mt.Logger.Warn("state change refused", zap.Int("node", int(id)), zap.Error(err))
		return
	}
	mt.notify(id, from, to)
}

func (mt *Maintainer) attach(m *mesh.Mesh, id mesh.NodeID, to mesh.EoLState, f mesh.Feature) bool {
	from := m.Node(id).State()
	if err := m.Attach(id, to, f); err != nil {
		mt.Logger.Warn("attach refused", zap.Int("node", int(id)), zap.Error(err))
		return false
	}
	mt.notify(id, from, to)
	return true
}

func (mt *Maintainer) release(m *mesh.Mesh, id mesh.NodeID) {
	from := m.Node(id).State()
	if err := m.Detach(id); err != nil {
		mt.Logger.Warn("detach refused", zap.Int("node", int(id)), zap.Error(err))
		return
	}
	m.Node(id).Preserve = false
	mt.notify(id, from, mesh.None)
}
