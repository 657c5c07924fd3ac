package remesh

import (
	"errors"
	"fmt"

	"github.com/akmonengine/eolcloth/mesh"
)

var ErrNoConvergence = errors.New("remesh: cleanup did not converge")

// cleanup alternates flips, collapses and splits until a sweep changes
// nothing. Every applied collapse removes a node and every split removes a
// sub-threshold face, so the bound only trips on a defect.
func (mt *Maintainer) cleanup(m *mesh.Mesh) error {
	cfg := mt.Config
	for iter := 0; ; iter++ {
		if iter >= cfg.MaxCleanupIterations {
			return fmt.Errorf("%d iterations: %w", iter, ErrNoConvergence)
		}
		mt.stats.Iterations++

		MarkPreserve(m)
		mt.stats.Flips += m.FlipEdges(cfg.MaxFlipPasses)
		MarkPreserve(m)

		collapses := 0
		for {
			n := 0
			for mt.collapseNonconformal(m) {
				n++
			}
			MarkPreserve(m)
			for mt.collapseConformal(m) {
				n++
			}
			if n == 0 {
				break
			}
			collapses += n
		}

		if splits := mt.splitIllConditioned(m); splits == 0 && collapses == 0 {
			break
		}
	}
	MarkPreserve(m)
	return nil
}
