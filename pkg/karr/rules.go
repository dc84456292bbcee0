package karr

import "fmt"

// Predicate names an IDB or EDB relation and fixes its arity (its argument
// count is the width every KarrRelation over it must share).
type Predicate struct {
	Name  string
	Arity int
}

// NewPredicate returns the predicate name/arity.
func NewPredicate(name string, arity int) Predicate {
	return Predicate{Name: name, Arity: arity}
}

// String renders "name/arity", the conventional Datalog predicate notation.
func (p Predicate) String() string {
	return fmt.Sprintf("%s/%d", p.Name, p.Arity)
}

// Atom is an uninterpreted literal: a predicate applied to argument terms,
// each of which is a Var or an Int (constants are allowed directly as
// arguments; arithmetic expressions are not. Those belong in a separate
// interpreted BodyLiteral constraint).
type Atom struct {
	Pred Predicate
	Args []Term
}

// NewAtom builds an atom, panicking if the argument count disagrees with the
// predicate's arity, a programmer error rather than a data error.
func NewAtom(pred Predicate, args ...Term) Atom {
	if len(args) != pred.Arity {
		panic(fmt.Sprintf("karr: %s given %d arguments, want %d", pred, len(args), pred.Arity))
	}
	return Atom{Pred: pred, Args: args}
}

// String renders "name(arg0, arg1, ...)".
func (a Atom) String() string {
	s := a.Pred.Name + "("
	for i, arg := range a.Args {
		if i > 0 {
			s += ", "
		}
		s += arg.String()
	}
	return s + ")"
}

// BodyLiteral is one conjunct of a rule body: either a call to another
// predicate (Atom non-nil) or an interpreted arithmetic/formula constraint
// (Constraint non-nil) over variables already bound elsewhere in the body.
// Exactly one of Atom/Constraint is set.
type BodyLiteral struct {
	Atom       *Atom
	Constraint Term
	Negated    bool
}

// AtomLiteral wraps an uninterpreted call to another predicate.
func AtomLiteral(a Atom) BodyLiteral {
	return BodyLiteral{Atom: &a}
}

// NegatedAtomLiteral wraps a negated call. Negation is accepted here so
// Rule.Validate has something concrete to reject (the evaluator has no
// mechanism to compute over incomplete, possibly-growing negated
// predicates, so such rules are refused rather than silently miscomputed).
func NegatedAtomLiteral(a Atom) BodyLiteral {
	return BodyLiteral{Atom: &a, Negated: true}
}

// ConstraintLiteral wraps an interpreted arithmetic/formula constraint.
func ConstraintLiteral(t Term) BodyLiteral {
	return BodyLiteral{Constraint: t}
}

// Rule is a single Horn clause: Head :- Body1, Body2, ....
type Rule struct {
	Head Atom
	Body []BodyLiteral
}

// NewRule builds a rule from a head and its body literals.
func NewRule(head Atom, body ...BodyLiteral) *Rule {
	return &Rule{Head: head, Body: body}
}

// Safe reports whether the rule is range-restricted: every variable
// appearing in the head is bound, directly or transitively, by the body. A
// rule that fails this can derive a fact with an argument never actually
// bound by anything, which this evaluator refuses to evaluate.
func (r *Rule) Safe() bool {
	bound := boundHeadVars(r)
	for _, arg := range r.Head.Args {
		if v, ok := arg.(*Var); ok {
			if !bound[v.Index] {
				return false
			}
		}
	}
	return true
}

// boundHeadVars computes every variable index the body binds: directly, by
// appearing as an argument of a non-negated uninterpreted atom, and
// transitively, by being the sole subject of a top-level equality constraint
// literal (x = e or e = x) whose other side's variables are all already
// bound. The transitive case is what makes the canonical Karr-method rule
// shape safe: `counter(N) :- counter(M), N = M + 1` binds N only
// through the equality, never as an atom argument, so a single pass over
// atoms alone would wrongly reject it; binding is grown to a fixed point
// since one equality's subject can in turn unblock another's.
func boundHeadVars(r *Rule) map[int]bool {
	bound := make(map[int]bool)
	var eqs []*Eq
	for _, lit := range r.Body {
		if lit.Atom != nil {
			if !lit.Negated {
				for _, arg := range lit.Atom.Args {
					if v, ok := arg.(*Var); ok {
						bound[v.Index] = true
					}
				}
			}
			continue
		}
		if eq, ok := lit.Constraint.(*Eq); ok {
			eqs = append(eqs, eq)
		}
	}

	for changed := true; changed; {
		changed = false
		for _, eq := range eqs {
			if bindEqualitySubject(eq.X, eq.Y, bound) {
				changed = true
			}
			if bindEqualitySubject(eq.Y, eq.X, bound) {
				changed = true
			}
		}
	}
	return bound
}

// bindEqualitySubject binds subject's index and reports true if subject is
// an unbound bare Var and every variable free in other is already bound.
func bindEqualitySubject(subject, other Term, bound map[int]bool) bool {
	v, ok := subject.(*Var)
	if !ok || bound[v.Index] {
		return false
	}
	if !allVarsBound(other, bound) {
		return false
	}
	bound[v.Index] = true
	return true
}

// allVarsBound reports whether every Var in the linear term t is already
// bound (the same shape linInto recognizes in constraint_parser.go: Var,
// Int, Add, Sub, Mul, Neg).
func allVarsBound(t Term, bound map[int]bool) bool {
	switch n := t.(type) {
	case *Var:
		return bound[n.Index]
	case *Int:
		return true
	case *Add:
		return allVarsBound(n.X, bound) && allVarsBound(n.Y, bound)
	case *Sub:
		return allVarsBound(n.X, bound) && allVarsBound(n.Y, bound)
	case *Mul:
		return allVarsBound(n.X, bound) && allVarsBound(n.Y, bound)
	case *Neg:
		return allVarsBound(n.X, bound)
	default:
		return false
	}
}

// HasNegation reports whether any body literal is negated.
func (r *Rule) HasNegation() bool {
	for _, lit := range r.Body {
		if lit.Negated {
			return true
		}
	}
	return false
}

// Validate checks the rule against the evaluator's two hard requirements
// (no negation, and range restriction), returning a descriptive error for
// the first one violated.
func (r *Rule) Validate() error {
	if r.HasNegation() {
		return fmt.Errorf("karr: rule for %s has a negated body literal, which this evaluator does not support", r.Head.Pred)
	}
	if !r.Safe() {
		return fmt.Errorf("karr: rule for %s is not range-restricted: a head variable does not appear in any body atom", r.Head.Pred)
	}
	return nil
}

// AtomPredicates returns every predicate the rule's body calls, in body
// order, including duplicates; the evaluator uses this to find a rule's
// dependencies when scheduling the worklist.
func (r *Rule) AtomPredicates() []Predicate {
	var preds []Predicate
	for _, lit := range r.Body {
		if lit.Atom != nil {
			preds = append(preds, lit.Atom.Pred)
		}
	}
	return preds
}
