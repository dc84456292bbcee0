package karr

// DriverConfig controls InvariantDriver's pipeline: a plain exported
// struct plus a matching constructor, no builder, no functional options.
type DriverConfig struct {
	// Enabled lets a caller wire the driver into a larger pipeline and
	// still turn invariant discovery off without removing the call site.
	Enabled bool

	// UseLoopCounter applies the loop-counter transform to every
	// self-recursive predicate before the forward pass.
	UseLoopCounter bool

	// UseBackwardPass runs the backward-rule transform after the forward
	// pass and merges its result into the forward invariants.
	UseBackwardPass bool
}

// DefaultDriverConfig returns the driver's default configuration: enabled,
// with both the loop-counter and backward passes turned on.
func DefaultDriverConfig() *DriverConfig {
	return &DriverConfig{Enabled: true, UseLoopCounter: true, UseBackwardPass: true}
}

// Problem is everything InvariantDriver needs to run a discovery pass: the
// predicates of interest, their EDB facts, and the Horn-clause rules
// defining the IDB predicates among them.
type Problem struct {
	Predicates []Predicate
	Facts      map[Predicate][][]int
	Rules      []*Rule
}

// DiscoveryResult is the outcome of a successful Discover call.
type DiscoveryResult struct {
	// Invariants maps each of the problem's predicates to the relation
	// discovered for it (its sound overapproximation of every tuple it can
	// ever derive).
	Invariants map[Predicate]*KarrRelation

	// RewrittenRules is the input rule set with each uninterpreted body
	// atom's discovered invariant spliced in as an extra interpreted
	// constraint, instantiated at that atom's actual call arguments via
	// SafeReplace.
	RewrittenRules []*Rule
}

// InvariantDriver runs the end-to-end discovery pipeline: validate the
// input rules, apply the loop-counter transform to self-recursive
// predicates, run the forward chaotic-iteration pass, optionally run the
// backward-rule pass and merge it in, then rewrite the original rules with
// the discovered invariants.
type InvariantDriver struct {
	Config *DriverConfig

	cancelFn func() bool
}

// NewInvariantDriver returns a driver with cfg, or DefaultDriverConfig if
// cfg is nil.
func NewInvariantDriver(cfg *DriverConfig) *InvariantDriver {
	if cfg == nil {
		cfg = DefaultDriverConfig()
	}
	return &InvariantDriver{Config: cfg}
}

// SetCancel installs a cooperative cancellation probe, checked before
// entering each inner engine's solve and forwarded to every relation the
// driver creates.
func (d *InvariantDriver) SetCancel(fn func() bool) {
	d.cancelFn = fn
}

func (d *InvariantDriver) cancelled() bool {
	return d.cancelFn != nil && d.cancelFn()
}

// Discover runs the full pipeline and returns the result, or nil if any
// rule is rejected (negation, or not range-restricted) or the probe fires
// before a pass can start.
func (d *InvariantDriver) Discover(problem *Problem) *DiscoveryResult {
	if !d.Config.Enabled {
		return nil
	}
	for _, r := range problem.Rules {
		if err := r.Validate(); err != nil {
			return nil
		}
	}
	if d.cancelled() {
		return nil
	}

	widenMap := make(map[Predicate]Predicate)
	workingRules := problem.Rules
	if d.Config.UseLoopCounter {
		lct := NewLoopCounterTransform()
		for _, p := range detectSelfRecursive(problem.Rules) {
			widened, rewritten := lct.Apply(p, workingRules)
			widenMap[p] = widened
			workingRules = rewritten
		}
	}

	if d.cancelled() {
		return nil
	}
	forward := NewEngine()
	forward.SetCancel(d.cancelFn)
	for pred, tuples := range problem.Facts {
		target := pred
		widened, wasWidened := widenMap[pred]
		if wasWidened {
			target = widened
		}
		for _, tuple := range tuples {
			t := tuple
			if wasWidened {
				t = append(append([]int{}, tuple...), 0)
			}
			forward.AddFact(target, t)
		}
	}
	for _, r := range workingRules {
		if err := forward.AddRule(r); err != nil {
			return nil
		}
	}
	forward.Solve()
	if d.cancelled() {
		return nil
	}

	lct := NewLoopCounterTransform()
	forwardResults := make(map[Predicate]*KarrRelation)
	// Widened-space relations, kept around so the backward pass can be
	// seeded before the counter column is projected away.
	forwardRaw := make(map[Predicate]*KarrRelation)
	for _, p := range problem.Predicates {
		target := p
		if widened, ok := widenMap[p]; ok {
			target = widened
		}
		rel := forward.Relation(target)
		if rel == nil {
			continue
		}
		forwardRaw[target] = rel
		if _, ok := widenMap[p]; ok {
			rel = lct.Revert(rel, p)
		}
		forwardResults[p] = rel
	}

	results := forwardResults
	if d.Config.UseBackwardPass {
		if d.cancelled() {
			return nil
		}
		// The backward pass runs over the same loop-counter-widened rule
		// set as the forward pass, seeded with the forward pass's
		// widened-space relations; its results are unwidened the same way
		// the forward ones were before merging.
		bt := NewBackwardTransform()
		backward := NewEngine()
		backward.SetCancel(d.cancelFn)
		for _, p := range problem.Predicates {
			target := p
			if widened, ok := widenMap[p]; ok {
				target = widened
			}
			if rel, ok := forwardRaw[target]; ok {
				backward.SeedRelation(target, rel)
			}
		}
		for _, r := range bt.Apply(workingRules) {
			// A reversed rule failing validation (e.g. it isn't
			// range-restricted for some odd rule shape) only weakens the
			// backward refinement; it never invalidates the forward result,
			// so it is skipped rather than aborting discovery.
			_ = backward.AddRule(r)
		}
		backward.Solve()
		if d.cancelled() {
			return nil
		}
		for _, p := range problem.Predicates {
			target := p
			widened, wasWidened := widenMap[p]
			if wasWidened {
				target = widened
			}
			rel := backward.Relation(revPredicate(target))
			if rel == nil {
				continue
			}
			reverted := bt.Revert(rel, target)
			if wasWidened {
				reverted = lct.Revert(reverted, p)
			}
			results[p] = mergeRelations(results[p], reverted)
		}
	}

	return &DiscoveryResult{
		Invariants:     results,
		RewrittenRules: rewriteRules(problem.Rules, results),
	}
}

func detectSelfRecursive(rules []*Rule) []Predicate {
	seen := make(map[Predicate]bool)
	var out []Predicate
	for _, r := range rules {
		if seen[r.Head.Pred] {
			continue
		}
		for _, p := range r.AtomPredicates() {
			if p == r.Head.Pred {
				seen[r.Head.Pred] = true
				out = append(out, r.Head.Pred)
				break
			}
		}
	}
	return out
}

// mergeRelations conjoins b's constraints onto a, used to combine the
// forward and backward passes' results for the same predicate. A nil input
// passes the other straight through.
func mergeRelations(a, b *KarrRelation) *KarrRelation {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Empty || b.Empty {
		return MkEmpty(a.Decl)
	}
	return a.FilterInterpreted(NewFormulaEmitter().Emit(b.GetIneqs()))
}

// InstantiateInvariant rewrites invariant (stated over Var{0},...,Var{n-1})
// into the caller's variable space by substituting Var{i} with args[i],
// via SafeReplace. This is how a predicate's discovered invariant gets
// spliced into a specific call site.
func InstantiateInvariant(invariant Term, args []Term) Term {
	subst := make(map[int]Term, len(args))
	for i, a := range args {
		subst[i] = a
	}
	return SafeReplace(invariant, subst)
}

func rewriteRules(rules []*Rule, results map[Predicate]*KarrRelation) []*Rule {
	emitter := NewFormulaEmitter()
	out := make([]*Rule, len(rules))
	for ri, r := range rules {
		newBody := append([]BodyLiteral{}, r.Body...)
		for _, lit := range r.Body {
			if lit.Atom == nil || lit.Negated {
				continue
			}
			rel, ok := results[lit.Atom.Pred]
			if !ok || rel == nil || rel.Empty {
				continue
			}
			invariant := emitter.Emit(rel.GetIneqs())
			newBody = append(newBody, ConstraintLiteral(InstantiateInvariant(invariant, lit.Atom.Args)))
		}
		out[ri] = NewRule(r.Head, newBody...)
	}
	return out
}
