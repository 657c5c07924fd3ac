// Package feature holds the contact-feature table: one 9-row column per
// obstacle point, box corner and box edge.
//
// Rows 0-2 hold the feature normal (the first adjacent face normal for an
// edge), rows 3-5 the second face normal of an edge and rows 6-8 the edge
// tangent. Columns are laid out as all points first, then for each box its
// corners followed by its edges.
package feature

import (
	"github.com/akmonengine/eolcloth/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const Rows = 9

type Kind uint8

const (
	KindPoint Kind = iota
	KindCorner
	KindEdge
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindCorner:
		return "corner"
	case KindEdge:
		return "edge"
	}
	return "unknown"
}

// Ref locates a column on its obstacle. Box is -1 for points; Local is the
// point, corner or edge index.
type Ref struct {
	Kind  Kind
	Box   int
	Local int
}

// Columns returns F = P + sum over boxes of corners + edges
func Columns(obs *actor.Obstacles) int {
	f := obs.Points.Len()
	for _, box := range obs.Boxes {
		f += box.NumCorners() + box.NumEdges()
	}
	return f
}

func boxOffset(obs *actor.Obstacles, b int) int {
	offset := obs.Points.Len()
	for _, box := range obs.Boxes[:b] {
		offset += box.NumCorners() + box.NumEdges()
	}
	return offset
}

func PointColumn(p int) int {
	return p
}

func CornerColumn(obs *actor.Obstacles, b, c int) int {
	return boxOffset(obs, b) + c
}

func EdgeColumn(obs *actor.Obstacles, b, e int) int {
	return boxOffset(obs, b) + obs.Boxes[b].NumCorners() + e
}

// CornerEdgeColumns returns the columns of the 3 box edges meeting at corner c
func CornerEdgeColumns(obs *actor.Obstacles, b, c int) []int {
	edges := obs.Boxes[b].VertEdges(c)
	cols := make([]int, 0, len(edges))
	for _, e := range edges {
		cols = append(cols, EdgeColumn(obs, b, e))
	}
	return cols
}

// Table is the 9xF contact-feature matrix
type Table struct {
	mat    *mgl64.MatMxN
	points int
	boxes  [][2]int
}

func NewTable() *Table {
	return &Table{}
}

// Rebuild refreshes every column from the current obstacle state, resizing
// only when the column count changes.
func (t *Table) Rebuild(obs *actor.Obstacles) {
	cols := Columns(obs)
	switch {
	case cols == 0:
		t.mat = nil
	case t.mat == nil || t.mat.NumCols() != cols:
		t.mat = mgl64.NewMatrix(Rows, cols)
	}

	t.points = obs.Points.Len()
	t.boxes = t.boxes[:0]
	for p, n := range obs.Points.Normals {
		t.setVec(0, PointColumn(p), n)
	}

	col := t.points
	for _, box := range obs.Boxes {
		t.boxes = append(t.boxes, [2]int{box.NumCorners(), box.NumEdges()})
		normals := box.FaceNormals()

		for c := 0; c < box.NumCorners(); c++ {
			var n mgl64.Vec3
			for _, e := range box.VertEdges(c) {
				for _, f := range box.EdgeFaces(e) {
					n = n.Add(normals[f])
				}
			}
			t.setVec(0, col, n.Normalize())
			col++
		}

		for e := 0; e < box.NumEdges(); e++ {
			faces := box.EdgeFaces(e)
			t.setVec(0, col, normals[faces[0]])
			t.setVec(3, col, normals[faces[1]])
			t.setVec(6, col, normals[box.EdgeTan(e)])
			col++
		}
	}
}

func (t *Table) setVec(row, col int, v mgl64.Vec3) {
	for i := 0; i < 3; i++ {
		t.mat.Set(row+i, col, v[i])
	}
}

func (t *Table) vec(row, col int) mgl64.Vec3 {
	return mgl64.Vec3{t.mat.At(row, col), t.mat.At(row+1, col), t.mat.At(row+2, col)}
}

// Cols is the number of columns of the last build
func (t *Table) Cols() int {
	if t.mat == nil {
		return 0
	}
	return t.mat.NumCols()
}

// Matrix exposes the raw 9xF storage
func (t *Table) Matrix() *mgl64.MatMxN { return t.mat }

func (t *Table) Normal(col int) mgl64.Vec3       { return t.vec(0, col) }
func (t *Table) SecondNormal(col int) mgl64.Vec3 { return t.vec(3, col) }
func (t *Table) Tangent(col int) mgl64.Vec3      { return t.vec(6, col) }

// Locate maps a column back to its obstacle feature
func (t *Table) Locate(col int) (Ref, bool) {
	if col < 0 || col >= t.Cols() {
		return Ref{}, false
	}
	if col < t.points {
		return Ref{Kind: KindPoint, Box: -1, Local: col}, true
	}

	offset := t.points
	for b, counts := range t.boxes {
		corners, edges := counts[0], counts[1]
		switch {
		case col < offset+corners:
			return Ref{Kind: KindCorner, Box: b, Local: col - offset}, true
		case col < offset+corners+edges:
			return Ref{Kind: KindEdge, Box: b, Local: col - offset - corners}, true
		}
		offset += corners + edges
	}
	return Ref{}, false
}
