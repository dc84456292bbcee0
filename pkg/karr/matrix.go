package karr

import (
	"fmt"
	"strings"
)

// Row is one linear constraint over a signature of width n: if Eq, the row
// denotes A·x + B = 0; otherwise A·x + B >= 0. Basis rows reuse the
// same shape: Eq is always true for a basis row, and B in {0,1} distinguishes
// a homogeneous direction (B=0) from the anchoring affine point (B=1).
type Row struct {
	A  []Rational
	B  Rational
	Eq bool
}

// NewRow builds a row of the given width with all-zero coefficients.
func NewRow(width int, b Rational, eq bool) Row {
	a := make([]Rational, width)
	for i := range a {
		a[i] = RationalFromInt(0)
	}
	return Row{A: a, B: b, Eq: eq}
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	a := make([]Rational, len(r.A))
	copy(a, r.A)
	return Row{A: a, B: r.B, Eq: r.Eq}
}

// Equal reports componentwise equality of A, B, and Eq, the equality used to
// deduplicate basis rows in MkUnion.
func (r Row) Equal(other Row) bool {
	if r.Eq != other.Eq || !r.B.Equals(other.B) || len(r.A) != len(other.A) {
		return false
	}
	for i := range r.A {
		if !r.A[i].Equals(other.A[i]) {
			return false
		}
	}
	return true
}

// String renders a row for debug output, e.g. "2*x0 - x1 + 3 >= 0".
func (r Row) String() string {
	var sb strings.Builder
	wrote := false
	for i, c := range r.A {
		if c.IsZero() {
			continue
		}
		term := formatCoeffTerm(c, i, !wrote)
		sb.WriteString(term)
		wrote = true
	}
	if !r.B.IsZero() || !wrote {
		if wrote {
			if r.B.Num > 0 || (r.B.Num == 0 && r.B.Den == 1) {
				sb.WriteString(fmt.Sprintf(" + %s", r.B))
			} else {
				sb.WriteString(fmt.Sprintf(" - %s", r.B.Neg()))
			}
		} else {
			sb.WriteString(r.B.String())
		}
	}
	op := " >= 0"
	if r.Eq {
		op = " = 0"
	}
	return sb.String() + op
}

func formatCoeffTerm(c Rational, col int, first bool) string {
	sign := " + "
	mag := c
	if c.Num < 0 {
		sign = " - "
		mag = c.Neg()
	}
	if first && sign == " + " {
		sign = ""
	} else if first && sign == " - " {
		sign = "-"
	}
	if mag.Equals(RationalFromInt(1)) {
		return fmt.Sprintf("%sx%d", sign, col)
	}
	return fmt.Sprintf("%s%s*x%d", sign, mag, col)
}

// Matrix is an ordered, width-homogeneous sequence of rows. It is a plain
// value container with no algebraic logic of its own: rows are immutable
// once built, and the matrix itself is freely cloned by copying the slice.
type Matrix struct {
	Width int
	Rows  []Row
}

// NewMatrix returns an empty matrix of the given width.
func NewMatrix(width int) *Matrix {
	return &Matrix{Width: width}
}

// Reset discards all rows, keeping the width.
func (m *Matrix) Reset() {
	m.Rows = nil
}

// Append adds a single row. Panics if the row's width disagrees with the
// matrix's width, a programmer error rather than a data error.
func (m *Matrix) Append(r Row) {
	if len(r.A) != m.Width {
		panic(fmt.Sprintf("karr: row width %d does not match matrix width %d", len(r.A), m.Width))
	}
	m.Rows = append(m.Rows, r)
}

// AppendMatrix appends every row of other, which must share this matrix's
// width.
func (m *Matrix) AppendMatrix(other *Matrix) {
	if other == nil {
		return
	}
	if other.Width != m.Width {
		panic(fmt.Sprintf("karr: matrix width %d does not match matrix width %d", other.Width, m.Width))
	}
	m.Rows = append(m.Rows, other.Rows...)
}

// Size returns the number of rows.
func (m *Matrix) Size() int { return len(m.Rows) }

// Row returns row i.
func (m *Matrix) Row(i int) Row { return m.Rows[i] }

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	rows := make([]Row, len(m.Rows))
	for i, r := range m.Rows {
		rows[i] = r.Clone()
	}
	return &Matrix{Width: m.Width, Rows: rows}
}

// String renders the matrix as one row per line. Row order is insignificant
// for semantics but stable for debug output.
func (m *Matrix) String() string {
	if len(m.Rows) == 0 {
		return "{}"
	}
	lines := make([]string, len(m.Rows))
	for i, r := range m.Rows {
		lines[i] = r.String()
	}
	return strings.Join(lines, "\n")
}
