package karr

// ConstraintParser recognizes linear equalities, inequalities, and
// integer-equality disjunctions in symbolic form and emits Matrix rows.
// Atoms it cannot classify are silently dropped: the result is
// always a sound overapproximation, never a rejection.
type ConstraintParser struct{}

// NewConstraintParser returns a parser. It carries no state: parsing is a
// pure function of the input formula and signature width.
func NewConstraintParser() *ConstraintParser {
	return &ConstraintParser{}
}

// Parse flattens f into a conjunction of atoms (Conjuncts) and classifies
// each one independently, accumulating every recognized row into a single
// matrix of the given width.
func (p *ConstraintParser) Parse(f Term, width int) *Matrix {
	m := NewMatrix(width)
	for _, atom := range Conjuncts(f) {
		rows, ok := ParseAtom(atom, width)
		if !ok {
			continue
		}
		for _, r := range rows {
			m.Append(r)
		}
	}
	return m
}

// ParseAtom classifies a single atom into one of the recognized comparison
// shapes and returns the matrix row(s) it denotes, or ok=false if the atom
// isn't recognized.
func ParseAtom(atom Term, width int) ([]Row, bool) {
	switch t := atom.(type) {
	case *Eq:
		acc := newAccum(width)
		if !linInto(t.X, RationalFromInt(1), acc) || !linInto(t.Y, RationalFromInt(-1), acc) {
			return nil, false
		}
		return []Row{{A: acc.A, B: acc.B, Eq: true}}, true

	case *Le: // e1 <= e2
		row, ok := buildLe(t.X, t.Y, width)
		if !ok {
			return nil, false
		}
		return []Row{row}, true

	case *Lt: // e1 < e2
		row, ok := buildLt(t.X, t.Y, width)
		if !ok {
			return nil, false
		}
		return []Row{row}, true

	case *Not:
		switch inner := t.X.(type) {
		case *Lt: // not(a < b)  ==  b <= a
			row, ok := buildLe(inner.Y, inner.X, width)
			if !ok {
				return nil, false
			}
			return []Row{row}, true
		case *Le: // not(a <= b)  ==  b < a
			row, ok := buildLt(inner.Y, inner.X, width)
			if !ok {
				return nil, false
			}
			return []Row{row}, true
		default:
			return nil, false
		}

	case *Or: // (v = n1) \/ (v = n2) \/ ... -> convex hull [min, max]
		return parseEqualityDisjunction(t, width)

	default:
		return nil, false
	}
}

// buildLe emits the row for p <= q, i.e. q - p >= 0.
func buildLe(p, q Term, width int) (Row, bool) {
	acc := newAccum(width)
	ok := linInto(q, RationalFromInt(1), acc) && linInto(p, RationalFromInt(-1), acc)
	return Row{A: acc.A, B: acc.B, Eq: false}, ok
}

// buildLt emits the row for p < q, i.e. q - p - 1 >= 0 (integer tightening).
func buildLt(p, q Term, width int) (Row, bool) {
	row, ok := buildLe(p, q, width)
	if !ok {
		return row, false
	}
	row.B = row.B.Sub(RationalFromInt(1))
	return row, true
}

// parseEqualityDisjunction recognizes (v = n1) \/ ... \/ (v = nk) for a
// single variable v and integer constants n1..nk, emitting the convex hull
// v >= min(n) and v <= max(n).
func parseEqualityDisjunction(o *Or, width int) ([]Row, bool) {
	if len(o.Terms) < 2 {
		return nil, false
	}
	varIdx := -1
	consts := make([]int, 0, len(o.Terms))
	for _, term := range o.Terms {
		eq, ok := term.(*Eq)
		if !ok {
			return nil, false
		}
		v, n, ok := varIntEquality(eq)
		if !ok {
			return nil, false
		}
		if varIdx == -1 {
			varIdx = v
		} else if varIdx != v {
			return nil, false
		}
		consts = append(consts, n)
	}
	minV, maxV := consts[0], consts[0]
	for _, c := range consts[1:] {
		if c < minV {
			minV = c
		}
		if c > maxV {
			maxV = c
		}
	}
	lower := NewRow(width, RationalFromInt(-minV), false) // x - min >= 0
	lower.A[varIdx] = RationalFromInt(1)
	upper := NewRow(width, RationalFromInt(maxV), false) // -x + max >= 0
	upper.A[varIdx] = RationalFromInt(-1)
	return []Row{lower, upper}, true
}

// varIntEquality reports whether eq is "var = int" or "int = var", returning
// the variable's column index and the integer value.
func varIntEquality(eq *Eq) (varIdx int, constVal int, ok bool) {
	if v, isVar := eq.X.(*Var); isVar {
		if n, isInt := eq.Y.(*Int); isInt {
			return v.Index, n.Value, true
		}
	}
	if v, isVar := eq.Y.(*Var); isVar {
		if n, isInt := eq.X.(*Int); isInt {
			return v.Index, n.Value, true
		}
	}
	return 0, 0, false
}

// linAccumulator collects a linear combination's coefficient vector and
// constant while walking an arithmetic term.
type linAccumulator struct {
	A []Rational
	B Rational
}

func newAccum(width int) *linAccumulator {
	a := make([]Rational, width)
	for i := range a {
		a[i] = RationalFromInt(0)
	}
	return &linAccumulator{A: a, B: RationalFromInt(0)}
}

// linInto recognizes integers only: variables, integer numerals, addition,
// subtraction, unary minus, and multiplication where at least one side is a
// numeral. Anything else fails the atom.
func linInto(e Term, sign Rational, acc *linAccumulator) bool {
	switch t := e.(type) {
	case *Var:
		if t.Index < 0 || t.Index >= len(acc.A) {
			return false
		}
		acc.A[t.Index] = acc.A[t.Index].Add(sign)
		return true
	case *Int:
		acc.B = acc.B.Add(sign.Mul(RationalFromInt(t.Value)))
		return true
	case *Add:
		return linInto(t.X, sign, acc) && linInto(t.Y, sign, acc)
	case *Sub:
		return linInto(t.X, sign, acc) && linInto(t.Y, sign.Neg(), acc)
	case *Neg:
		return linInto(t.X, sign.Neg(), acc)
	case *Mul:
		if n, ok := t.X.(*Int); ok {
			return linInto(t.Y, sign.Mul(RationalFromInt(n.Value)), acc)
		}
		if n, ok := t.Y.(*Int); ok {
			return linInto(t.X, sign.Mul(RationalFromInt(n.Value)), acc)
		}
		return false
	default:
		return false
	}
}
