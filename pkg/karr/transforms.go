package karr

import "fmt"

// LoopCounterTransform threads an extra iteration-count argument through
// every self-recursive rule of a predicate, turning plain recursion into a
// form whose generated counter variable Karr's method can directly bound.
// Reverting (Revert) drops that argument again once the solve is
// done, so callers never see the counter column in a final invariant.
type LoopCounterTransform struct{}

// NewLoopCounterTransform returns the transform. It is stateless.
func NewLoopCounterTransform() *LoopCounterTransform {
	return &LoopCounterTransform{}
}

// Apply rewrites every rule in rules whose head predicate is pred, adding
// one trailing counter argument: self-recursive calls to pred in the body
// get the counter incremented by one, the head gets the counter as-is, and
// a fresh rule base case (counter = 0) is NOT introduced here; callers
// seed the counter's base value themselves by adding each of pred's facts
// to the widened predicate with a trailing counter of 0, as
// InvariantDriver.Discover does.
//
// It returns the transformed predicate (pred with arity+1) and the rewritten
// rule set; rules whose head predicate is not pred pass through unchanged,
// except that any call to pred within their body is also widened to match.
func (t *LoopCounterTransform) Apply(pred Predicate, rules []*Rule) (Predicate, []*Rule) {
	widened := Predicate{Name: pred.Name, Arity: pred.Arity + 1}

	out := make([]*Rule, 0, len(rules))
	for _, r := range rules {
		if r.Head.Pred != pred {
			out = append(out, widenCallsTo(r, pred, widened))
			continue
		}
		freeVar := maxVarIndex(r) + 1
		counterVar := NewVar(freeVar)

		newHeadArgs := append(append([]Term{}, r.Head.Args...), counterVar)
		newHead := NewAtom(widened, newHeadArgs...)

		newBody := make([]BodyLiteral, 0, len(r.Body)+1)
		selfRecursive := false
		for _, lit := range r.Body {
			if lit.Atom != nil && lit.Atom.Pred == pred {
				selfRecursive = true
				prevVar := NewVar(freeVar + 1)
				args := append(append([]Term{}, lit.Atom.Args...), Term(prevVar))
				call := NewAtom(widened, args...)
				if lit.Negated {
					newBody = append(newBody, NegatedAtomLiteral(call))
				} else {
					newBody = append(newBody, AtomLiteral(call))
				}
				newBody = append(newBody, ConstraintLiteral(NewEq(counterVar, NewAdd(prevVar, NewInt(1)))))
				continue
			}
			newBody = append(newBody, lit)
		}
		if !selfRecursive {
			// Non-recursive base rule: the counter stays whatever it was
			// seeded as for this derivation; nothing to increment.
			newBody = append(newBody, ConstraintLiteral(NewEq(counterVar, counterVar)))
		}
		out = append(out, NewRule(newHead, newBody...))
	}
	return widened, out
}

// Revert drops the trailing counter column from rel, projecting it back to
// the original predicate's arity. Used after the driver has finished
// discovering invariants over the widened predicate.
func (t *LoopCounterTransform) Revert(rel *KarrRelation, original Predicate) *KarrRelation {
	cols := make([]int, original.Arity)
	for i := range cols {
		cols[i] = i
	}
	out := rel.MkProject(cols)
	out.Decl = original
	return out
}

func widenCallsTo(r *Rule, pred, widened Predicate) *Rule {
	changed := false
	newBody := make([]BodyLiteral, len(r.Body))
	for i, lit := range r.Body {
		if lit.Atom != nil && lit.Atom.Pred == pred {
			changed = true
			extra := NewVar(maxVarIndex(r) + 1 + i)
			args := append(append([]Term{}, lit.Atom.Args...), Term(extra))
			call := NewAtom(widened, args...)
			if lit.Negated {
				newBody[i] = NegatedAtomLiteral(call)
			} else {
				newBody[i] = AtomLiteral(call)
			}
			continue
		}
		newBody[i] = lit
	}
	if !changed {
		return r
	}
	return NewRule(r.Head, newBody...)
}

func maxVarIndex(r *Rule) int {
	max := -1
	scan := func(args []Term) {
		for _, a := range args {
			if v, ok := a.(*Var); ok && v.Index > max {
				max = v.Index
			}
		}
	}
	scan(r.Head.Args)
	for _, lit := range r.Body {
		if lit.Atom != nil {
			scan(lit.Atom.Args)
		}
	}
	return max
}

// BackwardTransform reverses each rule H :- B1,...,Bk into one "_rev"-suffixed
// rule per uninterpreted body atom Bi, swapping the roles of head and that
// atom: Bi_rev :- H, B1,...,Bi-1,Bi+1,...,Bk. This lets the evaluator derive
// facts for a predicate's callers from facts about the predicate itself, the
// complementary direction to ordinary forward evaluation; the driver runs
// both directions and merges the results.
type BackwardTransform struct{}

// NewBackwardTransform returns the transform. It is stateless.
func NewBackwardTransform() *BackwardTransform {
	return &BackwardTransform{}
}

// Apply produces the reversed rule set for rules. Rules with no uninterpreted
// body atoms (pure constraint facts) contribute nothing, since there is
// nothing to reverse into.
func (t *BackwardTransform) Apply(rules []*Rule) []*Rule {
	var out []*Rule
	for _, r := range rules {
		for i, lit := range r.Body {
			if lit.Atom == nil || lit.Negated {
				continue
			}
			revHead := NewAtom(revPredicate(lit.Atom.Pred), lit.Atom.Args...)
			revBody := make([]BodyLiteral, 0, len(r.Body))
			revBody = append(revBody, AtomLiteral(r.Head))
			for j, other := range r.Body {
				if j == i {
					continue
				}
				revBody = append(revBody, other)
			}
			out = append(out, NewRule(revHead, revBody...))
		}
	}
	return out
}

// Revert maps a reversed predicate's discovered relation back onto the
// original predicate it was derived from, by undoing the _rev name suffix.
// The arity is unchanged by the backward transform, so no projection is
// needed, only a Decl rename.
func (t *BackwardTransform) Revert(rel *KarrRelation, original Predicate) *KarrRelation {
	out := rel.Clone()
	out.Decl = original
	return out
}

func revPredicate(p Predicate) Predicate {
	return Predicate{Name: fmt.Sprintf("%s_rev", p.Name), Arity: p.Arity}
}
