package karr

// Relation is the opaque value an evaluator worklist passes between
// predicates. KarrPlugin only ever produces and consumes *KarrRelation
// values underneath it, but the engine is written against this interface so
// a future plugin for a different abstract domain can coexist in the same
// registry and share one evaluator loop.
type Relation interface{}

// KarrPlugin is the factory/closure bundle the evaluator (engine.go) drives
// to build and combine KarrRelations without depending on this package's
// concrete types directly. Every closure it hands out type-asserts its
// Relation arguments first and returns a nil Relation/false delta when the
// assertion fails, rather than panicking, so an evaluator holding relations
// from several plugins can probe each in turn.
type KarrPlugin struct{}

// NewKarrPlugin returns the plugin. It is stateless.
func NewKarrPlugin() *KarrPlugin {
	return &KarrPlugin{}
}

// Name identifies the plugin for registries that key by domain name.
func (p *KarrPlugin) Name() string { return "karr" }

// CanHandle reports whether v is a relation this plugin produced.
func (p *KarrPlugin) CanHandle(v Relation) bool {
	_, ok := v.(*KarrRelation)
	return ok
}

// MkEmpty returns the bottom relation over decl.
func (p *KarrPlugin) MkEmpty(decl Predicate) Relation {
	return MkEmpty(decl)
}

// MkFull returns the top (unconstrained) relation over decl.
func (p *KarrPlugin) MkFull(decl Predicate) Relation {
	return MkFull(decl)
}

// CloneClosure returns a function that deep-copies a Relation this plugin
// owns, or nil if given one it doesn't.
func (p *KarrPlugin) CloneClosure() func(Relation) Relation {
	return func(a Relation) Relation {
		ra, ok := a.(*KarrRelation)
		if !ok {
			return nil
		}
		return ra.Clone()
	}
}

// AddFactClosure returns the add_fact closure.
func (p *KarrPlugin) AddFactClosure() func(Relation, []int) (Relation, bool) {
	return func(a Relation, values []int) (Relation, bool) {
		ra, ok := a.(*KarrRelation)
		if !ok {
			return nil, false
		}
		out, delta := ra.AddFact(values)
		return out, delta
	}
}

// JoinClosure returns the mk_join closure.
func (p *KarrPlugin) JoinClosure() func(a, b Relation, width int, mapA, mapB []int) Relation {
	return func(a, b Relation, width int, mapA, mapB []int) Relation {
		ra, ok1 := a.(*KarrRelation)
		rb, ok2 := b.(*KarrRelation)
		if !ok1 || !ok2 {
			return nil
		}
		return ra.MkJoin(rb, width, mapA, mapB)
	}
}

// ProjectClosure returns the mk_project closure.
func (p *KarrPlugin) ProjectClosure() func(a Relation, cols []int) Relation {
	return func(a Relation, cols []int) Relation {
		ra, ok := a.(*KarrRelation)
		if !ok {
			return nil
		}
		return ra.MkProject(cols)
	}
}

// RenameClosure returns the mk_rename closure.
func (p *KarrPlugin) RenameClosure() func(a Relation, perm []int) Relation {
	return func(a Relation, perm []int) Relation {
		ra, ok := a.(*KarrRelation)
		if !ok {
			return nil
		}
		return ra.MkRename(perm)
	}
}

// UnionClosure returns the mk_union closure, reporting the delta flag the
// evaluator uses to decide whether to keep iterating.
func (p *KarrPlugin) UnionClosure() func(a, b Relation) (Relation, bool) {
	return func(a, b Relation) (Relation, bool) {
		ra, ok1 := a.(*KarrRelation)
		rb, ok2 := b.(*KarrRelation)
		if !ok1 || !ok2 {
			return nil, false
		}
		return ra.MkUnion(rb)
	}
}

// FilterIdenticalClosure returns the filter_identical closure.
func (p *KarrPlugin) FilterIdenticalClosure() func(a Relation, i, j int) Relation {
	return func(a Relation, i, j int) Relation {
		ra, ok := a.(*KarrRelation)
		if !ok {
			return nil
		}
		return ra.FilterIdentical(i, j)
	}
}

// FilterEqualClosure returns the filter_equal closure.
func (p *KarrPlugin) FilterEqualClosure() func(a Relation, col, value int) Relation {
	return func(a Relation, col, value int) Relation {
		ra, ok := a.(*KarrRelation)
		if !ok {
			return nil
		}
		return ra.FilterEqual(col, value)
	}
}

// FilterInterpretedClosure returns the filter_interpreted closure.
func (p *KarrPlugin) FilterInterpretedClosure() func(a Relation, formula Term) Relation {
	return func(a Relation, formula Term) Relation {
		ra, ok := a.(*KarrRelation)
		if !ok {
			return nil
		}
		return ra.FilterInterpreted(formula)
	}
}
