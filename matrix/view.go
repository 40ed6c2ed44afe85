package matrix

// View is a cheap projection over a Dense: it redefines (rows, cols,
// accessor(i,j)) without copying data. Operations that need a deep copy
// call Materialize(); operations tolerant of view-wrapped inputs read
// through At directly. Per DESIGN NOTES §9, composition is normalized at
// construction to the canonical (partial ∘ transpose) form — Transpose()
// toggles a bit rather than nesting wrapper types, and Partial() composes
// offsets rather than nesting partial windows.
type View struct {
	base         *Dense
	rowOff       int
	colOff       int
	rows         int
	cols         int
	transposed   bool
}

// ViewOf returns the canonical, untransposed, full-extent view of m.
func ViewOf(m *Dense) View {
	rows, cols := m.Dims()
	return View{base: m, rows: rows, cols: cols}
}

// Dims returns the view's logical row and column counts (post-transpose).
func (v View) Dims() (rows, cols int) {
	if v.transposed {
		return v.cols, v.rows
	}
	return v.rows, v.cols
}

// At returns the (i,j) element through the view, honoring the transposed
// bit and the row/column offsets.
func (v View) At(i, j int) float64 {
	if v.transposed {
		i, j = j, i
	}
	return v.base.At(v.rowOff+i, v.colOff+j)
}

// Set assigns the (i,j) element through the view, mutating the underlying
// Dense. Per the shared-resource policy, callers must ensure single-writer
// access to base.
func (v View) Set(i, j int, val float64) {
	if v.transposed {
		i, j = j, i
	}
	v.base.Set(v.rowOff+i, v.colOff+j, val)
}

// Transpose returns a view with the transposed bit flipped, composing with
// any existing transposition rather than nesting.
func (v View) Transpose() View {
	v.transposed = !v.transposed
	return v
}

// Partial returns a sub-window of rows×cols starting at (rowOff,colOff) in
// the view's current (post-transpose) coordinate system, composing offsets
// with any existing partial window rather than nesting.
func (v View) Partial(rows, cols, rowOff, colOff int) View {
	if v.transposed {
		// Translate the requested window into base (pre-transpose)
		// coordinates by swapping roles, keeping the transposed bit set.
		v.rowOff += colOff
		v.colOff += rowOff
		v.rows = cols
		v.cols = rows
		return v
	}
	v.rowOff += rowOff
	v.colOff += colOff
	v.rows = rows
	v.cols = cols
	return v
}

// Row returns a 1×n view of the given row.
func (v View) Row(row int) View {
	_, cols := v.Dims()
	return v.Partial(1, cols, row, 0)
}

// Column returns an n×1 view of the given column.
func (v View) Column(col int) View {
	rows, _ := v.Dims()
	return v.Partial(rows, 1, 0, col)
}

// Materialize copies the view's logical contents into a fresh, view-less
// Dense. All decompositions in this package require materialized inputs;
// this is the boundary where a view crosses into owned storage.
func (v View) Materialize() *Dense {
	rows, cols := v.Dims()
	out := NewDense(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, v.At(i, j))
		}
	}
	return out
}
