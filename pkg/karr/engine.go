package karr

import (
	"github.com/hashicorp/go-set/v3"
)

// Engine is a single-threaded, bottom-up chaotic-iteration Datalog
// evaluator driven entirely through a KarrPlugin's closures. It holds one
// relation per declared predicate and a worklist of rule heads still to
// (re-)evaluate, draining the worklist to a least fixed point with no
// coroutines and no parallel work: every step runs on the calling
// goroutine, and SetCancel gives a caller a cooperative way to stop
// between steps.
//
// evaluateRule never calls a *KarrRelation method directly; it only ever
// invokes the closures Plugin hands out, the same way a generic evaluator
// for a different abstract domain would. The one place the engine still
// reaches for the concrete type is bookkeeping outside the plugin's
// capability set: stamping a derived relation's Decl and threading the
// cancellation probe, both internal details this plugin's relations happen
// to carry.
//
// This package has no tabling, no answer streams, and no negation, so the
// worklist only ever carries predicate keys, not goals.
type Engine struct {
	plugin *KarrPlugin

	joinFn              func(a, b Relation, width int, mapA, mapB []int) Relation
	projectFn           func(a Relation, cols []int) Relation
	unionFn             func(a, b Relation) (Relation, bool)
	filterEqualFn       func(a Relation, col, value int) Relation
	filterInterpretedFn func(a Relation, formula Term) Relation
	addFactFn           func(a Relation, values []int) (Relation, bool)

	decls       map[string]Predicate
	relations   map[string]Relation
	rulesByHead map[string][]*Rule

	cancelFn func() bool
}

// NewEngine returns an empty engine wired against a fresh KarrPlugin.
func NewEngine() *Engine {
	p := NewKarrPlugin()
	return &Engine{
		plugin:              p,
		joinFn:              p.JoinClosure(),
		projectFn:           p.ProjectClosure(),
		unionFn:             p.UnionClosure(),
		filterEqualFn:       p.FilterEqualClosure(),
		filterInterpretedFn: p.FilterInterpretedClosure(),
		addFactFn:           p.AddFactClosure(),
		decls:               make(map[string]Predicate),
		relations:           make(map[string]Relation),
		rulesByHead:         make(map[string][]*Rule),
	}
}

// SetCancel installs a cooperative cancellation probe, polled between
// worklist steps and forwarded into every relation's dualizations.
func (e *Engine) SetCancel(fn func() bool) {
	e.cancelFn = fn
}

func (e *Engine) cancelled() bool {
	return e.cancelFn != nil && e.cancelFn()
}

// withCancel threads the engine's cancellation probe through rel if it is a
// *KarrRelation, the only concrete kind this plugin ever produces. A future
// plugin for a different domain would thread its own cancellation the same
// way behind its own closures.
func (e *Engine) withCancel(rel Relation) Relation {
	if kr, ok := rel.(*KarrRelation); ok {
		kr.Cancel = e.cancelFn
	}
	return rel
}

// asKarrRelation unwraps a Relation this plugin is known to own. Every
// relation this engine stores came from Plugin's own factories or closures,
// so a failed assertion means the engine mixed in a foreign relation, a
// programmer error, not a data error.
func asKarrRelation(rel Relation) *KarrRelation {
	if rel == nil {
		return nil
	}
	kr, ok := rel.(*KarrRelation)
	if !ok {
		panic("karr: engine holds a Relation this plugin does not own")
	}
	return kr
}

// Declare registers pred with the bottom relation if it hasn't been seen
// before. Safe to call repeatedly.
func (e *Engine) Declare(pred Predicate) {
	key := pred.String()
	if _, ok := e.decls[key]; ok {
		return
	}
	e.decls[key] = pred
	e.relations[key] = e.withCancel(e.plugin.MkEmpty(pred))
}

// SeedRelation installs rel as pred's current relation outright (rather
// than unioning a fact into it), used by InvariantDriver to carry a
// forward pass's results into a backward pass's starting state.
func (e *Engine) SeedRelation(pred Predicate, rel *KarrRelation) {
	e.Declare(pred)
	e.relations[pred.String()] = e.withCancel(rel.Clone())
}

// AddFact unions the tuple values into pred's current relation via the
// plugin's add_fact closure.
func (e *Engine) AddFact(pred Predicate, values []int) {
	e.Declare(pred)
	key := pred.String()
	out, _ := e.addFactFn(e.relations[key], values)
	e.relations[key] = e.withCancel(out)
}

// AddRule validates and registers r, declaring every predicate it mentions.
// It returns the validation error (negation or non-range-restriction) if
// any, and does not register an invalid rule.
func (e *Engine) AddRule(r *Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	e.Declare(r.Head.Pred)
	for _, p := range r.AtomPredicates() {
		e.Declare(p)
	}
	headKey := r.Head.Pred.String()
	e.rulesByHead[headKey] = append(e.rulesByHead[headKey], r)
	return nil
}

// Relation returns the current relation for pred, or nil if pred was never
// declared.
func (e *Engine) Relation(pred Predicate) *KarrRelation {
	return asKarrRelation(e.relations[pred.String()])
}

// Relations returns every declared predicate's current relation, keyed by
// "name/arity".
func (e *Engine) Relations() map[string]*KarrRelation {
	out := make(map[string]*KarrRelation, len(e.relations))
	for key, rel := range e.relations {
		out[key] = asKarrRelation(rel)
	}
	return out
}

// Solve drains the worklist to a least fixed point: every predicate with at
// least one rule starts dirty, and re-evaluating a rule head that grows
// re-dirties every rule head whose body calls it. It returns once the
// worklist empties or SetCancel's probe fires.
func (e *Engine) Solve() {
	consumers := e.buildConsumers()

	queue := make([]string, 0, len(e.rulesByHead))
	queued := set.New[string](len(e.rulesByHead))
	for headKey := range e.rulesByHead {
		queue = append(queue, headKey)
		queued.Insert(headKey)
	}

	for len(queue) > 0 {
		if e.cancelled() {
			return
		}
		headKey := queue[0]
		queue = queue[1:]
		queued.Remove(headKey)

		if e.evaluateHead(headKey) {
			if deps, ok := consumers[headKey]; ok {
				for _, dep := range deps.Slice() {
					if !queued.Contains(dep) {
						queue = append(queue, dep)
						queued.Insert(dep)
					}
				}
			}
		}
	}
}

func (e *Engine) buildConsumers() map[string]*set.Set[string] {
	consumers := make(map[string]*set.Set[string])
	for headKey, rules := range e.rulesByHead {
		for _, r := range rules {
			for _, p := range r.AtomPredicates() {
				bodyKey := p.String()
				if consumers[bodyKey] == nil {
					consumers[bodyKey] = set.New[string](4)
				}
				consumers[bodyKey].Insert(headKey)
			}
		}
	}
	return consumers
}

func (e *Engine) evaluateHead(headKey string) bool {
	grewAny := false
	for _, r := range e.rulesByHead[headKey] {
		if e.cancelled() {
			return grewAny
		}
		derived := e.evaluateRule(r)
		if derived == nil {
			continue
		}
		cur := e.relations[headKey]
		union, grew := e.unionFn(cur, derived)
		e.relations[headKey] = e.withCancel(union)
		if grew {
			grewAny = true
		}
	}
	return grewAny
}

// evaluateRule computes the relation a single rule derives for its head:
// join every body atom's current relation into a shared rule-wide variable
// space, apply interpreted constraints and constant-argument pins, then
// project down to the head's argument layout. Every relational-algebra step
// goes through Plugin's closures rather than a *KarrRelation method call, so
// the evaluator itself stays generic over any plugin exposing the same
// capability set; only the final Decl stamp below reaches past that
// boundary, since labeling a derived relation with its head predicate is
// engine bookkeeping, not a relational operation a plugin exposes.
func (e *Engine) evaluateRule(r *Rule) *KarrRelation {
	width, bodyColMaps, headColMap, constEqs := ruleWidthAndMaps(r)

	var acc Relation = e.withCancel(e.plugin.MkFull(Predicate{Name: "", Arity: width}))

	identity := make([]int, width)
	for i := range identity {
		identity[i] = i
	}

	for i, lit := range r.Body {
		if e.cancelled() {
			return nil
		}
		if lit.Atom != nil {
			bodyRel := e.relations[lit.Atom.Pred.String()]
			if bodyRel == nil {
				return MkEmpty(r.Head.Pred)
			}
			acc = e.withCancel(e.joinFn(acc, bodyRel, width, identity, bodyColMaps[i]))
			continue
		}
		acc = e.withCancel(e.filterInterpretedFn(acc, lit.Constraint))
	}

	for _, ce := range constEqs {
		acc = e.withCancel(e.filterEqualFn(acc, ce.Col, ce.Val))
	}

	projected := asKarrRelation(e.withCancel(e.projectFn(acc, headColMap)))
	if projected == nil {
		return MkEmpty(r.Head.Pred)
	}
	projected.Decl = r.Head.Pred
	return projected
}

type constEq struct {
	Col int
	Val int
}

// ruleWidthAndMaps assigns every Var appearing anywhere in the rule its own
// column (the Var's own Index, since this package's rule variables are
// already numbered per-rule) and assigns every Int-literal argument
// occurrence a fresh trailing column pinned to that value by a constEq;
// constants need a column of their own so join/project's column-indexed
// representation has somewhere to put them.
func ruleWidthAndMaps(r *Rule) (width int, bodyColMaps [][]int, headColMap []int, constEqs []constEq) {
	next := maxVarIndex(r) + 1

	assign := func(args []Term) []int {
		m := make([]int, len(args))
		for i, a := range args {
			switch t := a.(type) {
			case *Var:
				m[i] = t.Index
			case *Int:
				m[i] = next
				constEqs = append(constEqs, constEq{Col: next, Val: t.Value})
				next++
			default:
				panic("karr: rule atom argument must be Var or Int")
			}
		}
		return m
	}

	bodyColMaps = make([][]int, len(r.Body))
	for i, lit := range r.Body {
		if lit.Atom != nil {
			bodyColMaps[i] = assign(lit.Atom.Args)
		}
	}
	headColMap = assign(r.Head.Args)

	width = next
	return width, bodyColMaps, headColMap, constEqs
}
