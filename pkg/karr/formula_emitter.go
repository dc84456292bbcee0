package karr

// FormulaEmitter is ConstraintParser's inverse: it renders a Matrix
// back into a symbolic Term, eliding zero coefficients and treating the
// degenerate empty cases specially.
type FormulaEmitter struct{}

// NewFormulaEmitter returns an emitter. Like ConstraintParser, it is
// stateless.
func NewFormulaEmitter() *FormulaEmitter {
	return &FormulaEmitter{}
}

// Emit renders m as a conjunction of atoms. An empty matrix (no constraints
// at all) denotes "true". A matrix that is unsatisfiable by construction has
// no special row marker here; infeasibility is a KarrRelation-level notion
// (empty==true), so the only degenerate case Emit itself recognizes is
// the zero-row matrix.
func (e *FormulaEmitter) Emit(m *Matrix) Term {
	if m == nil || m.Size() == 0 {
		return NewAnd()
	}
	atoms := make([]Term, m.Size())
	for i := 0; i < m.Size(); i++ {
		atoms[i] = emitRow(m.Row(i))
	}
	return NewAnd(atoms...)
}

// EmitInfeasible returns the formula for an infeasible (empty) relation:
// "false", rendered as an empty disjunction per expr.go's Or convention.
func (e *FormulaEmitter) EmitInfeasible() Term {
	return NewOr()
}

// emitRow renders a single row as "<linear expr> = 0" or "<linear expr> >= 0",
// coefficient 1 bare, -1 negated, and zero coefficients dropped entirely.
func emitRow(r Row) Term {
	lhs := emitLinear(r)
	rhs := Term(NewInt(0))
	if r.Eq {
		return NewEq(lhs, rhs)
	}
	return NewLe(rhs, lhs) // 0 <= lhs  ==  lhs >= 0
}

// emitLinear builds the sum of the row's nonzero terms (coefficient*var, then
// the constant), in column order. A row with nothing nonzero renders as the
// integer literal 0.
func emitLinear(r Row) Term {
	var acc Term
	for col, c := range r.A {
		if c.IsZero() {
			continue
		}
		term := emitCoeffVar(c, col)
		if acc == nil {
			acc = term
		} else {
			acc = NewAdd(acc, term)
		}
	}
	if !r.B.IsZero() {
		if acc == nil {
			acc = emitConst(r.B)
		} else {
			acc = addConst(acc, r.B)
		}
	}
	if acc == nil {
		return NewInt(0)
	}
	return acc
}

func emitCoeffVar(c Rational, col int) Term {
	v := Term(NewVar(col))
	one := RationalFromInt(1)
	negOne := RationalFromInt(-1)
	switch {
	case c.Equals(one):
		return v
	case c.Equals(negOne):
		return NewNeg(v)
	default:
		return NewMul(coeffTerm(c), v)
	}
}

func emitConst(b Rational) Term {
	if b.Num < 0 {
		return NewNeg(coeffTerm(b.Neg()))
	}
	return coeffTerm(b)
}

func addConst(acc Term, b Rational) Term {
	if b.Num < 0 {
		return NewSub(acc, coeffTerm(b.Neg()))
	}
	return NewAdd(acc, coeffTerm(b))
}

// coeffTerm renders a rational coefficient as an Int. Rows in this package
// are always built from integer arithmetic, so a non-integer
// coefficient here indicates a caller bug upstream; it still renders the
// numerator rather than panicking, since Emit is a debug/output path.
func coeffTerm(r Rational) Term {
	return NewInt(r.Num)
}
