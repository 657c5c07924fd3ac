package constraint

import "github.com/go-gl/mathgl/mgl64"

// Triplet is one nonzero entry of a sparse matrix
type Triplet struct {
	Row int
	Col int
	Val float64
}

// Sparse is a row-major triplet list. Duplicate entries add up.
type Sparse struct {
	Rows    int
	Cols    int
	Entries []Triplet
}

func (s *Sparse) add(row, col int, val float64) {
	s.Entries = append(s.Entries, Triplet{Row: row, Col: col, Val: val})
}

// Row returns the entries of row i in insertion order
func (s *Sparse) Row(i int) []Triplet {
	var out []Triplet
	for _, t := range s.Entries {
		if t.Row == i {
			out = append(out, t)
		}
	}
	return out
}

// Dense expands the matrix. Intended for inspection and small systems.
func (s *Sparse) Dense() *mgl64.MatMxN {
	if s.Rows == 0 || s.Cols == 0 {
		return nil
	}
	dense := mgl64.NewMatrix(s.Rows, s.Cols)
	for _, t := range s.Entries {
		dense.Set(t.Row, t.Col, dense.At(t.Row, t.Col)+t.Val)
	}
	return dense
}
