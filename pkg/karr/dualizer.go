package karr

import "github.com/gitrdm/karrinvariants/internal/hilbert"

// Dualizer converts between the two dual representations of an
// affine/polyhedral set: an inequality/equality constraint matrix and an
// integer generator (basis) matrix of the same Row shape (Eq always true,
// B in {0,1} distinguishing a direction from the affine anchor, per Row's
// doc comment). Both directions run the same Hilbert-basis saturation; what
// differs is which side of the duality the saturator's unknowns live on.
type Dualizer struct{}

// NewDualizer returns a dualizer. It carries no state of its own; each call
// builds a fresh internal/hilbert.Saturator sized to the input's width.
func NewDualizer() *Dualizer {
	return &Dualizer{}
}

// DualizeI computes the generator (basis) representation of the set
// described by the inequality/equality matrix ineqs: the saturator's
// unknowns are the points themselves, initial solutions are concrete points
// of the set and non-initial ones its directions. cancel, if true, is
// forwarded to the saturator so a caller can abandon an in-progress
// dualization cooperatively.
//
// The returned status is hilbert.Sat on success, hilbert.Unsat if ineqs is
// infeasible (the saturation found directions but no point), or
// hilbert.Undef if the search was cancelled, overran its bound, or ineqs
// carries a non-integer coefficient this saturator cannot represent.
func (d *Dualizer) DualizeI(ineqs *Matrix, cancel bool) (*Matrix, hilbert.Status) {
	sat := hilbert.NewSaturator(ineqs.Width)
	for _, r := range ineqs.Rows {
		row, rhs, ok := rowToInts(r)
		if !ok {
			return nil, hilbert.Undef
		}
		if r.Eq {
			sat.AddEq(row, rhs)
		} else {
			sat.AddGe(row, rhs)
		}
	}
	for i := 0; i < ineqs.Width; i++ {
		sat.SetIsInt(i)
	}
	sat.SetCancel(cancel)

	status := sat.Saturate()
	if status != hilbert.Sat {
		return nil, status
	}

	dst := NewMatrix(ineqs.Width)
	anchored := false
	for i := 0; i < sat.GetBasisSize(); i++ {
		vec, initial := sat.GetBasisSolution(i)
		b := RationalFromInt(0)
		if initial {
			b = RationalFromInt(1)
			anchored = true
		}
		dst.Append(Row{A: intsToRationals(vec), B: b, Eq: true})
	}
	if !anchored {
		// Directions but no point: the constraint system admits no
		// integer solution at all.
		return nil, hilbert.Unsat
	}
	return dst, hilbert.Sat
}

// DualizeH computes the constraint representation of the set generated by
// basis (the anchor plus non-negative integer combinations of the
// directions). Here the saturator's unknowns are candidate constraint rows
// (A, b) over width+1 columns: the anchor v0 contributes the equation
// A·v0 + b = 0 and each direction vi the inequality A·vi >= 0, so every
// solution is a linear inequality A·x + b >= 0 valid on the whole generated
// set. Equalities the set satisfies come out as pairs of opposite
// inequality rows.
//
// An empty basis denotes top and maps to an empty constraint matrix, as
// does Undef (a cancelled or overrun search loses information but stays
// sound).
func (d *Dualizer) DualizeH(basis *Matrix, cancel bool) (*Matrix, hilbert.Status) {
	dst := NewMatrix(basis.Width)
	sat := hilbert.NewSaturator(basis.Width + 1)
	fed := 0
	for _, r := range basis.Rows {
		row, bVal, ok := rowToInts(r)
		if !ok {
			return dst, hilbert.Undef
		}
		ext := append(append(make([]int, 0, basis.Width+1), row...), bVal)
		if allZero(ext) {
			continue
		}
		if bVal != 0 {
			sat.AddEq(ext, 0)
		} else {
			sat.AddGe(ext, 0)
		}
		fed++
	}
	if fed == 0 {
		return dst, hilbert.Sat
	}
	for i := 0; i <= basis.Width; i++ {
		sat.SetIsInt(i)
	}
	sat.SetCancel(cancel)

	status := sat.Saturate()
	if status != hilbert.Sat {
		// Unsat cannot arise from an all-homogeneous system; treat any
		// failure as top.
		return dst, hilbert.Undef
	}

	for i := 0; i < sat.GetBasisSize(); i++ {
		vec, initial := sat.GetBasisSolution(i)
		if initial || allZero(vec) {
			continue
		}
		a := intsToRationals(vec[:basis.Width])
		dst.Append(Row{A: a, B: RationalFromInt(vec[basis.Width]), Eq: false})
	}
	return dst, hilbert.Sat
}

func allZero(v []int) bool {
	for _, c := range v {
		if c != 0 {
			return false
		}
	}
	return true
}

// rowToInts converts a row's rational coefficients and constant to plain
// ints for the saturator, which operates on exact integer Diophantine
// systems. ok is false if any component isn't integral; this domain never
// produces such a row, but the check keeps the dualizer's Undef-on-overrun
// discipline total rather than panicking on a malformed input.
func rowToInts(r Row) ([]int, int, bool) {
	row := make([]int, len(r.A))
	for i, c := range r.A {
		if !c.IsInteger() {
			return nil, 0, false
		}
		row[i] = c.Num
	}
	if !r.B.IsInteger() {
		return nil, 0, false
	}
	return row, r.B.Num, true
}

func intsToRationals(vec []int) []Rational {
	out := make([]Rational, len(vec))
	for i, v := range vec {
		out[i] = RationalFromInt(v)
	}
	return out
}
