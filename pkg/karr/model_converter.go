package karr

// Branch is one guarded case of a predicate's interpretation: Guard nil
// marks the unconditional "else" branch taken when no other guard matches.
type Branch struct {
	Guard Term
	Body  Term
}

// Interpretation is a predicate's case-based semantic description: an
// ordered list of guarded branches, at most one of which (Guard == nil) is
// the default/else branch.
type Interpretation struct {
	Pred     Predicate
	Branches []Branch
}

// ModelConverter grafts a discovered invariant onto a predicate's
// interpretation. Three cases: a total interpretation (one with an else
// branch) gets the invariant conjoined into that branch; an absent one
// (no branches at all) gets a "false" default installed; a partial one
// (guarded branches, no default) is left untouched. The absent case's
// fragility is deliberate and noted as an open question in DESIGN.md.
type ModelConverter struct{}

// NewModelConverter returns a converter. It is stateless.
func NewModelConverter() *ModelConverter {
	return &ModelConverter{}
}

// Graft returns interp with invariant conjoined onto its else branch.
// An interpretation with no branches at all gets a "false" default
// installed regardless of the invariant: no interpretation means the
// solver never saw the predicate, which is read (conservatively) as the
// relation having been pruned as infeasible. A partial interpretation
// (guarded branches but no default) is returned untouched.
func (mc *ModelConverter) Graft(interp *Interpretation, invariant *KarrRelation) *Interpretation {
	return mc.graftFormula(interp, invariantFormula(invariant))
}

// GraftAtCallSite is Graft, but first instantiates invariant's variables
// (Var{0..arity-1}) at a specific call's actual arguments via
// InstantiateInvariant, so the grafted formula refers to the caller's
// variables rather than the predicate's canonical argument positions.
func (mc *ModelConverter) GraftAtCallSite(interp *Interpretation, invariant *KarrRelation, args []Term) *Interpretation {
	formula := invariantFormula(invariant)
	if invariant != nil && !invariant.Empty {
		formula = InstantiateInvariant(formula, args)
	}
	return mc.graftFormula(interp, formula)
}

func invariantFormula(invariant *KarrRelation) Term {
	if invariant == nil || invariant.Empty {
		return NewOr() // "false"
	}
	return NewFormulaEmitter().Emit(invariant.GetIneqs())
}

func (mc *ModelConverter) graftFormula(interp *Interpretation, formula Term) *Interpretation {
	out := &Interpretation{Pred: interp.Pred, Branches: append([]Branch{}, interp.Branches...)}
	idx := findElseBranch(out.Branches)
	if idx < 0 {
		if len(out.Branches) > 0 {
			// Partial interpretation: guarded branches with no default.
			// Left untouched.
			return out
		}
		// No interpretation at all: assume the relation was pruned as
		// infeasible and install an unreachable default, whatever the
		// discovered invariant says.
		out.Branches = append(out.Branches, Branch{Guard: nil, Body: NewOr()})
		return out
	}

	existing := out.Branches[idx].Body
	switch {
	case isTotalFormula(existing):
		// The branch previously fired unconditionally; the invariant
		// narrows it.
		out.Branches[idx].Body = NewAnd(existing, formula)
	case existing == nil || isFalseFormula(existing):
		// Nothing (or nothing reachable) was there before: the invariant
		// becomes the whole branch outright rather than being conjoined
		// onto "false", which would just produce "false" again for no
		// useful reason.
		out.Branches[idx].Body = formula
	default:
		out.Branches[idx].Body = NewAnd(existing, formula)
	}
	return out
}

func findElseBranch(branches []Branch) int {
	for i, b := range branches {
		if b.Guard == nil {
			return i
		}
	}
	return -1
}

func isTotalFormula(t Term) bool {
	and, ok := t.(*And)
	return ok && len(and.Terms) == 0
}

func isFalseFormula(t Term) bool {
	or, ok := t.(*Or)
	return ok && len(or.Terms) == 0
}

// Translate remaps every Var{i} in t to Var{varMap[i]}, leaving indices
// absent from varMap untouched. This is the cross-context equivalent of
// InstantiateInvariant: where that substitutes in concrete call arguments,
// Translate substitutes in a different variable numbering entirely, for
// carrying a formula between two ASTs that each number the same predicate's
// arguments differently.
func Translate(t Term, varMap map[int]int) Term {
	subst := make(map[int]Term, len(varMap))
	for from, to := range varMap {
		subst[from] = NewVar(to)
	}
	return SafeReplace(t, subst)
}
