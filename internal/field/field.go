// Package field generates the synthetic scalar potential A(x,t) on a Grid and
// embeds bit sequences in it under a fixed set of modulation schemes.
package field

import "fmt"

// Field is a dense [time][space] array of real samples stored row-major.
type Field struct {
	nt, nx int
	data   []float64
}

// New allocates a zero field of shape (nt, nx).
func New(nt, nx int) *Field {
	return &Field{nt: nt, nx: nx, data: make([]float64, nt*nx)}
}

// FromRows builds a field from a [time][space] slice. Every row must have the same length.
func FromRows(rows [][]float64) (*Field, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("field: no rows")
	}
	nx := len(rows[0])
	f := New(len(rows), nx)
	for t, row := range rows {
		if len(row) != nx {
			return nil, fmt.Errorf("field: row %d has %d samples, want %d", t, len(row), nx)
		}
		copy(f.Row(t), row)
	}
	return f, nil
}

// Nt returns the number of time samples.
func (f *Field) Nt() int { return f.nt }

// Nx returns the number of space samples.
func (f *Field) Nx() int { return f.nx }

// At returns A at time index t and space index x.
func (f *Field) At(t, x int) float64 { return f.data[t*f.nx+x] }

// Set stores v at (t, x).
func (f *Field) Set(t, x int, v float64) { f.data[t*f.nx+x] = v }

// Add accumulates v into (t, x).
func (f *Field) Add(t, x int, v float64) { f.data[t*f.nx+x] += v }

// Row returns the spatial profile at time index t. The slice aliases the field.
func (f *Field) Row(t int) []float64 {
	return f.data[t*f.nx : (t+1)*f.nx]
}

// Column returns a copy of the time series at space index x.
func (f *Field) Column(x int) []float64 {
	out := make([]float64, f.nt)
	for t := range out {
		out[t] = f.data[t*f.nx+x]
	}
	return out
}

// Clone returns a deep copy.
func (f *Field) Clone() *Field {
	return &Field{nt: f.nt, nx: f.nx, data: append([]float64(nil), f.data...)}
}

// SameShape reports whether g has the same (nt, nx) shape as f.
func (f *Field) SameShape(g *Field) bool {
	return g != nil && f.nt == g.nt && f.nx == g.nx
}
