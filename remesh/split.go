package remesh

import (
	"github.com/akmonengine/eolcloth/mesh"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

type splitJob struct {
	edge mesh.EdgeID
	d    float64
	// conformal splits a preserved edge: the new node joins the feature line
	conformal bool
}

// altitude is the world-space height of f over its edge e
func altitude(m *mesh.Mesh, f mesh.FaceID, e mesh.EdgeID) float64 {
	l := m.Length(e)
	if l == 0 {
		return 0
	}
	v := m.Face(f).V
	x0, x1, x2 := m.Node(v[0]).X, m.Node(v[1]).X, m.Node(v[2]).X
	return x1.Sub(x0).Cross(x2.Sub(x0)).Len() / l
}

// foot returns the parameter along e of the projection of x
func foot(m *mesh.Mesh, e mesh.EdgeID, x mgl64.Vec3) float64 {
	edge := m.Edge(e)
	a, b := m.Node(edge.N[0]).X, m.Node(edge.N[1]).X
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return 0.5
	}
	return x.Sub(a).Dot(ab) / l2
}

func (mt *Maintainer) illConditioned(m *mesh.Mesh, f mesh.FaceID) (splitJob, bool) {
	limit := mt.Config.ContactThreshold / 2
	face := m.Face(f)

	var eol []mesh.NodeID
	for _, v := range face.V {
		if m.Node(v).IsEoL() {
			eol = append(eol, v)
		}
	}

	switch len(eol) {
	case 1:
		n := eol[0]
		e := m.OppositeEdge(f, n)
		alt := altitude(m, f, e)
		if alt >= limit {
			return splitJob{}, false
		}
		// The thinnest triangle of the fan gets the split
		for _, g := range m.Node(n).Faces {
			if g == f {
				continue
			}
			ge := m.OppositeEdge(g, n)
			if a := altitude(m, g, ge); a < alt {
				e, alt = ge, a
			}
		}
		d := foot(m, e, m.Node(n).X)
		if d < 0 || d > 1 {
			d = 0.5
		}
		return splitJob{edge: e, d: d}, true

	case 2:
		for _, e := range face.E {
			if m.Edge(e).Preserve {
				return splitJob{edge: e, d: 0.5, conformal: true}, altitude(m, f, e) < limit
			}
		}

	case 3:
		for _, e := range face.E {
			if !m.Edge(e).Preserve {
				return splitJob{edge: e, d: 0.5}, altitude(m, f, e) < limit
			}
		}
	}
	return splitJob{}, false
}

// splitIllConditioned splits the bottleneck edge of every thin face touching
// EOL nodes and returns how many splits were applied.
func (mt *Maintainer) splitIllConditioned(m *mesh.Mesh) int {
	var jobs []splitJob
	for _, f := range m.Faces() {
		if job, ok := mt.illConditioned(m, f); ok {
			jobs = append(jobs, job)
		}
	}

	applied := 0
	for _, job := range jobs {
		// An earlier split of the batch may have consumed the edge
		if !m.EdgeAlive(job.edge) {
			continue
		}
		edge := *m.Edge(job.edge)

		op, err := m.SplitEdge(job.edge, job.d, mt.Config.ContactThreshold)
		if err != nil {
			mt.Logger.Debug("split rejected", zap.Int("edge", int(job.edge)), zap.Error(err))
			continue
		}
		applied++
		mt.stats.Splits++

		if !job.conformal {
			continue
		}
		n0, n1 := m.Node(edge.N[0]), m.Node(edge.N[1])
		state := mesh.NewEOL
		if n0.State() == mesh.IsEOL && n1.State() == mesh.IsEOL {
			state = mesh.NewEOLFromSplit
		}
		source := n0
		if n0.IsCorner() {
			source = n1
		}
		mt.attach(m, op.AddedNodes[0], state, mesh.EdgeFeature(source.CDEdges...))
	}
	return applied
}
