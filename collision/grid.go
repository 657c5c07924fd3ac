package collision

import (
	"math"
	"slices"

	"github.com/akmonengine/eolcloth/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// ============================================================================
// Types
// ============================================================================

// CellKey - Coordonnées d'une cellule dans l'espace 3D
type CellKey struct {
	X, Y, Z int
}

// Cell - Conteneur d'indices d'éléments dans une cellule
type Cell struct {
	indices []int
}

// Grid - Grille spatiale uniforme avec hashing pour broad phase. Elle range des
// éléments de la toile (noeuds, arêtes, faces) par leur AABB.
type Grid struct {
	cellSize float64
	cells    []Cell
	cellMask int
}

// ============================================================================
// Constructeur
// ============================================================================

// NewGrid - Crée une nouvelle grille spatiale
func NewGrid(cellSize float64, numCells int) *Grid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].indices = make([]int, 0, 8)
	}

	return &Grid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
	}
}

// nextPowerOfTwo - Arrondit à la puissance de 2 supérieure
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// Insert - Insère un élément dans toutes les cellules que son AABB occupe
func (g *Grid) Insert(index int, aabb actor.AABB) {
	minCell := g.worldToCell(aabb.Min)
	maxCell := g.worldToCell(aabb.Max)

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				cellIdx := g.hashCell(CellKey{x, y, z})
				g.cells[cellIdx].indices = append(g.cells[cellIdx].indices, index)
			}
		}
	}
}

// reuse clears g when it already matches cellSize and holds enough cells for
// numCells elements, and allocates a fresh grid otherwise. g may be nil.
func (g *Grid) reuse(cellSize float64, numCells int) *Grid {
	if g == nil || g.cellSize != cellSize || len(g.cells) < nextPowerOfTwo(numCells) {
		return NewGrid(cellSize, numCells)
	}
	g.Clear()
	return g
}

func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i].indices = g.cells[i].indices[:0]
	}
}

// Query - Renvoie les éléments des cellules couvertes par aabb, triés et sans
// doublon. Le hash peut renvoyer des faux positifs, jamais de faux négatifs.
func (g *Grid) Query(aabb actor.AABB) []int {
	minCell := g.worldToCell(aabb.Min)
	maxCell := g.worldToCell(aabb.Max)

	var found []int
	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				found = append(found, g.cells[g.hashCell(CellKey{x, y, z})].indices...)
			}
		}
	}

	// ========== ORDRE DÉTERMINISTE ==========
	slices.Sort(found)
	return slices.Compact(found)
}

// worldToCell - Convertit une position monde en coordonnées de cellule
func (g *Grid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / g.cellSize)),
		Y: int(math.Floor(pos.Y() / g.cellSize)),
		Z: int(math.Floor(pos.Z() / g.cellSize)),
	}
}

// hashCell - Hash une cellule vers un index dans l'array
func (g *Grid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & g.cellMask
}
