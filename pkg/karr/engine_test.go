package karr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_DeclareIsIdempotentAndStartsEmpty(t *testing.T) {
	e := NewEngine()
	p := NewPredicate("p", 1)
	e.Declare(p)
	e.Declare(p)
	rel := e.Relation(p)
	require.NotNil(t, rel)
	assert.True(t, rel.Empty)
}

func TestEngine_AddFactGrowsRelation(t *testing.T) {
	e := NewEngine()
	p := NewPredicate("p", 1)
	e.AddFact(p, []int{3})
	rel := e.Relation(p)
	require.False(t, rel.Empty)
	assert.Equal(t, 1, rel.GetBasis().Size())
}

func TestEngine_AddRuleRejectsUnsafeRule(t *testing.T) {
	e := NewEngine()
	p := NewPredicate("p", 1)
	rule := NewRule(NewAtom(p, NewVar(0))) // unbound head var
	err := e.AddRule(rule)
	assert.Error(t, err)
}

func TestEngine_AddRuleDeclaresEveryMentionedPredicate(t *testing.T) {
	e := NewEngine()
	p := NewPredicate("p", 1)
	q := NewPredicate("q", 1)
	rule := NewRule(NewAtom(p, NewVar(0)), AtomLiteral(NewAtom(q, NewVar(0))))
	require.NoError(t, e.AddRule(rule))
	assert.NotNil(t, e.Relation(p))
	assert.NotNil(t, e.Relation(q))
}

func TestEngine_SolveDiscoversCounterInvariant(t *testing.T) {
	e := NewEngine()
	counter := NewPredicate("counter", 1)
	n, m := NewVar(0), NewVar(1)
	rule := NewRule(
		NewAtom(counter, n),
		AtomLiteral(NewAtom(counter, m)),
		ConstraintLiteral(NewEq(n, NewAdd(m, NewInt(1)))),
	)
	require.NoError(t, e.AddRule(rule))
	e.AddFact(counter, []int{0})

	e.Solve()

	rel := e.Relation(counter)
	require.False(t, rel.Empty)
	require.Greater(t, rel.GetBasis().Size(), 0)

	// The sound invariant for a counter seeded at 0 and incremented by one
	// is n >= 0: a value actually on the counter's trajectory must still be
	// consistent once pinned, while a negative one must collapse to bottom.
	reachable := rel.Clone().FilterEqual(0, 5)
	assert.False(t, reachable.Empty)

	unreachable := rel.Clone().FilterEqual(0, -1)
	assert.True(t, unreachable.Empty)
}

func TestEngine_SolveJoinsTwoFacts(t *testing.T) {
	e := NewEngine()
	a := NewPredicate("a", 1)
	b := NewPredicate("b", 1)
	c := NewPredicate("c", 2)
	x, y := NewVar(0), NewVar(1)
	rule := NewRule(
		NewAtom(c, x, y),
		AtomLiteral(NewAtom(a, x)),
		AtomLiteral(NewAtom(b, y)),
	)
	require.NoError(t, e.AddRule(rule))
	e.AddFact(a, []int{5})
	e.AddFact(b, []int{7})

	e.Solve()

	rel := e.Relation(c)
	require.False(t, rel.Empty)
	basis := rel.GetBasis()
	require.Equal(t, 1, basis.Size())
	row := basis.Row(0)
	assert.Equal(t, 5, row.A[0].Num)
	assert.Equal(t, 7, row.A[1].Num)
}

func TestEngine_SolveWithNoRulesTerminatesImmediately(t *testing.T) {
	e := NewEngine()
	e.Solve() // no rules registered: the worklist starts empty
}

func TestEngine_SetCancelStopsSolveEarly(t *testing.T) {
	e := NewEngine()
	counter := NewPredicate("counter", 1)
	n, m := NewVar(0), NewVar(1)
	rule := NewRule(
		NewAtom(counter, n),
		AtomLiteral(NewAtom(counter, m)),
		ConstraintLiteral(NewEq(n, NewAdd(m, NewInt(1)))),
	)
	require.NoError(t, e.AddRule(rule))
	e.AddFact(counter, []int{0})
	e.SetCancel(func() bool { return true })

	e.Solve() // must return promptly rather than hang
}

func TestEngine_SeedRelationInstallsRelationOutright(t *testing.T) {
	e := NewEngine()
	p := NewPredicate("p", 1)
	seed := MkEmpty(p)
	seed, _ = seed.AddFact([]int{42})

	e.SeedRelation(p, seed)
	rel := e.Relation(p)
	require.False(t, rel.Empty)
	assert.Equal(t, 1, rel.GetBasis().Size())
}
