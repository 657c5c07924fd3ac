package constraint

// DrawEntry is one (row, position component, direction component) triple
type DrawEntry struct {
	Row       int
	Position  float64
	Direction float64
}

// DrawBuffer records constraint rows for visualisation, one triple per
// component. Drift rows carry a trailing (row, 1, 0) marker.
type DrawBuffer struct {
	Eq   []DrawEntry
	Ineq []DrawEntry
}

func (d *DrawBuffer) Reset() {
	d.Eq = d.Eq[:0]
	d.Ineq = d.Ineq[:0]
}
