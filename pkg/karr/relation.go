package karr

import (
	"fmt"

	"github.com/hashicorp/go-set/v3"

	"github.com/gitrdm/karrinvariants/internal/hilbert"
)

// KarrRelation is one predicate's current abstract interpretation: a set of
// integer tuples of width Decl.Arity, represented redundantly as an
// inequality/equality constraint matrix (ineqs) and an integer generator
// matrix (basis), each lazily derivable from the other via a Dualizer.
//
// Invariants:
//  1. Width consistency: whichever of ineqs/basis is valid has
//     Width == Decl.Arity; the other, once materialized, matches it too.
//  2. Duality: at least one of ineqsValid/basisValid is true whenever
//     Empty is false. GetIneqs/GetBasis materialize and cache the missing
//     side on demand; they never invalidate the side that's already valid.
//  3. Bottom is explicit: Empty marks "no tuples at all" (the relation has
//     derived nothing yet). When Empty is true, ineqs and basis are nil and
//     must not be read directly.
//  4. Feasibility: whenever Empty is false, ineqs (once materialized) is
//     feasible; an operation that would otherwise produce an infeasible
//     system instead sets Empty true and discards both matrices.
//  5. Single anchor: whenever Empty is false, basis (once materialized)
//     contains exactly one row with B=1 (the affine anchor); every other
//     row has B=0 (a homogeneous direction). mk_union is responsible for
//     preserving this by converting all but the first anchor it sees into a
//     direction (see MkUnion).
type KarrRelation struct {
	Decl Predicate

	Empty bool

	ineqs      *Matrix
	ineqsValid bool

	basis      *Matrix
	basisValid bool

	// Cancel, if set, is polled by GetIneqs/GetBasis before each
	// dualization so a long-running saturation can be abandoned
	// cooperatively. It propagates to every relation derived from this one.
	Cancel func() bool
}

func (r *KarrRelation) cancelled() bool {
	return r.Cancel != nil && r.Cancel()
}

// MkEmpty returns the bottom relation over decl: no tuples derived.
func MkEmpty(decl Predicate) *KarrRelation {
	return &KarrRelation{Decl: decl, Empty: true}
}

// MkFull returns the top relation over decl: every integer tuple of the
// right width, i.e. the unconstrained set (an empty constraint matrix).
func MkFull(decl Predicate) *KarrRelation {
	return &KarrRelation{
		Decl:       decl,
		Empty:      false,
		ineqs:      NewMatrix(decl.Arity),
		ineqsValid: true,
	}
}

// AddFact returns the union of r with the singleton relation denoting
// exactly the tuple values, growing r the way inserting an EDB fact does.
func (r *KarrRelation) AddFact(values []int) (*KarrRelation, bool) {
	if len(values) != r.Decl.Arity {
		panic(fmt.Sprintf("karr: fact of width %d does not match %s", len(values), r.Decl))
	}
	s := singleton(r.Decl, values)
	s.Cancel = r.Cancel
	return r.MkUnion(s)
}

func singleton(decl Predicate, values []int) *KarrRelation {
	ineqs := NewMatrix(decl.Arity)
	for i, v := range values {
		row := NewRow(decl.Arity, RationalFromInt(-v), true)
		row.A[i] = RationalFromInt(1)
		ineqs.Append(row)
	}
	return &KarrRelation{Decl: decl, Empty: false, ineqs: ineqs, ineqsValid: true}
}

// Clone returns a deep, independent copy.
func (r *KarrRelation) Clone() *KarrRelation {
	out := &KarrRelation{Decl: r.Decl, Empty: r.Empty, Cancel: r.Cancel}
	if r.ineqsValid {
		out.ineqs = r.ineqs.Clone()
		out.ineqsValid = true
	}
	if r.basisValid {
		out.basis = r.basis.Clone()
		out.basisValid = true
	}
	return out
}

// GetIneqs materializes and returns the constraint-matrix representation,
// dualizing from basis if needed. Precondition: !r.Empty.
func (r *KarrRelation) GetIneqs() *Matrix {
	if r.Empty {
		panic("karr: GetIneqs called on an empty relation")
	}
	if r.ineqsValid {
		return r.ineqs
	}
	m, status := NewDualizer().DualizeH(r.basis, r.cancelled())
	switch status {
	case hilbert.Sat:
		r.ineqs = m
	case hilbert.Unsat:
		r.markEmpty()
		return nil
	default: // Undef: degrade to top rather than lose soundness
		r.ineqs = NewMatrix(r.Decl.Arity)
	}
	r.ineqsValid = true
	return r.ineqs
}

// GetBasis materializes and returns the generator-matrix representation,
// dualizing from ineqs if needed. Precondition: !r.Empty.
func (r *KarrRelation) GetBasis() *Matrix {
	if r.Empty {
		panic("karr: GetBasis called on an empty relation")
	}
	if r.basisValid {
		return r.basis
	}
	m, status := NewDualizer().DualizeI(r.ineqs, r.cancelled())
	switch status {
	case hilbert.Sat:
		r.basis = m
	case hilbert.Unsat:
		r.markEmpty()
		return nil
	default: // Undef: degrade to top
		r.basis = &Matrix{Width: r.Decl.Arity}
	}
	r.basisValid = true
	return r.basis
}

func (r *KarrRelation) markEmpty() {
	r.Empty = true
	r.ineqs = nil
	r.ineqsValid = false
	r.basis = nil
	r.basisValid = false
}

// MkJoin embeds r and other into a wider variable space of the given width
// via colMap slices (colMap[i] is the target column for source column i)
// and conjoins their constraint systems, the relational-algebra join used
// to combine two body atoms that share variables (shared variables appear
// in both colMap[r] and colMap[other] at the same target index, which is
// exactly how the shared binding gets enforced: both atoms' constraints
// land on the same column).
func (r *KarrRelation) MkJoin(other *KarrRelation, width int, colMapR, colMapOther []int) *KarrRelation {
	decl := Predicate{Name: "", Arity: width}
	if r.Empty || other.Empty {
		return MkEmpty(decl)
	}
	ineqs := NewMatrix(width)
	ineqs.AppendMatrix(embedMatrix(r.GetIneqs(), colMapR, width))
	ineqs.AppendMatrix(embedMatrix(other.GetIneqs(), colMapOther, width))
	out := &KarrRelation{Decl: decl, Empty: false, ineqs: ineqs, ineqsValid: true, Cancel: r.Cancel}
	out.checkFeasible()
	return out
}

func embedMatrix(src *Matrix, colMap []int, width int) *Matrix {
	dst := NewMatrix(width)
	for _, row := range src.Rows {
		a := make([]Rational, width)
		for i := range a {
			a[i] = RationalFromInt(0)
		}
		for i, c := range row.A {
			a[colMap[i]] = a[colMap[i]].Add(c)
		}
		dst.Append(Row{A: a, B: row.B, Eq: row.Eq})
	}
	return dst
}

// MkProject existentially quantifies out every column not in cols, keeping
// the kept columns in the given order. Projection is the image of a linear
// map, so it is computed in generator form (dropping the eliminated
// coordinates from each generator) rather than by constraint elimination.
func (r *KarrRelation) MkProject(cols []int) *KarrRelation {
	decl := Predicate{Name: "", Arity: len(cols)}
	if r.Empty {
		return MkEmpty(decl)
	}
	seen := set.New[int](len(cols))
	for _, c := range cols {
		if c < 0 || c >= r.Decl.Arity {
			panic(fmt.Sprintf("karr: project column %d out of range for width %d", c, r.Decl.Arity))
		}
		if !seen.Insert(c) {
			panic(fmt.Sprintf("karr: project column %d repeated", c))
		}
	}

	basis := r.GetBasis()
	if r.Empty {
		return MkEmpty(decl)
	}
	dst := NewMatrix(len(cols))
	for _, row := range basis.Rows {
		a := make([]Rational, len(cols))
		for i, c := range cols {
			a[i] = row.A[c]
		}
		dst.Append(Row{A: a, B: row.B, Eq: row.Eq})
	}
	return &KarrRelation{Decl: decl, Empty: false, basis: dst, basisValid: true, Cancel: r.Cancel}
}

// MkRename permutes columns according to perm (perm[i] is column i's new
// index). Unlike join/project this needs no dualization: it is applied
// directly to whichever representation(s) are already valid.
func (r *KarrRelation) MkRename(perm []int) *KarrRelation {
	decl := Predicate{Name: r.Decl.Name, Arity: r.Decl.Arity}
	if r.Empty {
		return MkEmpty(decl)
	}
	out := &KarrRelation{Decl: decl, Empty: false, Cancel: r.Cancel}
	if r.ineqsValid {
		out.ineqs = permuteMatrix(r.ineqs, perm)
		out.ineqsValid = true
	}
	if r.basisValid {
		out.basis = permuteMatrix(r.basis, perm)
		out.basisValid = true
	}
	return out
}

func permuteMatrix(src *Matrix, perm []int) *Matrix {
	dst := NewMatrix(src.Width)
	for _, row := range src.Rows {
		a := make([]Rational, src.Width)
		for i, c := range row.A {
			a[perm[i]] = c
		}
		dst.Append(Row{A: a, B: row.B, Eq: row.Eq})
	}
	return dst
}

// MkUnion returns r's abstraction widened to also cover other, and reports
// delta: whether the result is strictly larger than r (the chaotic
// iteration driver uses delta to decide whether to keep iterating). Since a
// general union of two polyhedra is not itself a polyhedron, this domain's
// union keeps a single anchor (invariant 5): the first anchor encountered
// becomes the result's anchor, and every other anchor is folded in as the
// homogeneous direction from the kept anchor to it.
func (r *KarrRelation) MkUnion(other *KarrRelation) (*KarrRelation, bool) {
	if other.Empty {
		return r.Clone(), false
	}
	if r.Empty {
		return other.Clone(), true
	}

	basisR := r.GetBasis()
	if r.Empty {
		return other.Clone(), true
	}
	basisOther := other.GetBasis()
	if other.Empty {
		return r.Clone(), false
	}

	merged := basisR.Clone()
	var anchor *Row
	for i := range merged.Rows {
		if merged.Rows[i].B.Equals(RationalFromInt(1)) {
			anchor = &merged.Rows[i]
			break
		}
	}

	grew := false
	for _, row := range basisOther.Rows {
		candidate := row
		if row.B.Equals(RationalFromInt(1)) {
			if anchor == nil {
				anchor = &row
				merged.Append(row)
				grew = !containsRow(basisR.Rows, row)
				continue
			}
			direction := make([]Rational, merged.Width)
			zero := true
			for i := range direction {
				direction[i] = row.A[i].Sub(anchor.A[i])
				if !direction[i].IsZero() {
					zero = false
				}
			}
			if zero {
				// Same anchor: nothing new to cover.
				continue
			}
			candidate = Row{A: direction, B: RationalFromInt(0), Eq: true}
		}
		if !containsRow(merged.Rows, candidate) {
			merged.Append(candidate)
			grew = true
		}
	}

	out := &KarrRelation{Decl: r.Decl, Empty: false, basis: merged, basisValid: true, Cancel: r.Cancel}
	return out, grew
}

func containsRow(rows []Row, r Row) bool {
	for _, existing := range rows {
		if existing.Equal(r) {
			return true
		}
	}
	return false
}

// FilterIdentical constrains columns i and j to be equal (x_i = x_j).
func (r *KarrRelation) FilterIdentical(i, j int) *KarrRelation {
	row := NewRow(r.Decl.Arity, RationalFromInt(0), true)
	row.A[i] = RationalFromInt(1)
	row.A[j] = RationalFromInt(-1)
	return r.filterRow(row)
}

// FilterEqual constrains column col to equal the integer value.
func (r *KarrRelation) FilterEqual(col, value int) *KarrRelation {
	row := NewRow(r.Decl.Arity, RationalFromInt(-value), true)
	row.A[col] = RationalFromInt(1)
	return r.filterRow(row)
}

// FilterInterpreted conjoins an arbitrary interpreted formula, parsed via
// ConstraintParser; every row the parser recognizes is added.
func (r *KarrRelation) FilterInterpreted(formula Term) *KarrRelation {
	if r.Empty {
		return r.Clone()
	}
	rows := NewConstraintParser().Parse(formula, r.Decl.Arity)
	out := r.Clone()
	ineqs := out.GetIneqs()
	if out.Empty {
		return out
	}
	ineqs.AppendMatrix(rows)
	out.basisValid = false
	out.basis = nil
	out.checkFeasible()
	return out
}

func (r *KarrRelation) filterRow(row Row) *KarrRelation {
	if r.Empty {
		return r.Clone()
	}
	out := r.Clone()
	ineqs := out.GetIneqs()
	if out.Empty {
		return out
	}
	ineqs.Append(row)
	out.basisValid = false
	out.basis = nil
	out.checkFeasible()
	return out
}

// checkFeasible forces basis materialization once, which will flip Empty to
// true if the current constraint system turns out to be infeasible.
func (r *KarrRelation) checkFeasible() {
	if r.Empty {
		return
	}
	r.GetBasis()
}
