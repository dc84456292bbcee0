package karr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAtom_PanicsOnArityMismatch(t *testing.T) {
	p := NewPredicate("p", 2)
	assert.Panics(t, func() { NewAtom(p, NewVar(0)) })
}

func TestRule_SafeAcceptsRangeRestrictedRule(t *testing.T) {
	p := NewPredicate("p", 1)
	q := NewPredicate("q", 1)
	r := NewRule(
		NewAtom(p, NewVar(0)),
		AtomLiteral(NewAtom(q, NewVar(0))),
	)
	assert.True(t, r.Safe())
}

func TestRule_SafeRejectsUnboundHeadVar(t *testing.T) {
	p := NewPredicate("p", 1)
	q := NewPredicate("q", 1)
	r := NewRule(
		NewAtom(p, NewVar(0)),
		AtomLiteral(NewAtom(q, NewVar(1))), // doesn't bind var 0
	)
	assert.False(t, r.Safe())
}

func TestRule_SafeIgnoresNegatedBindings(t *testing.T) {
	p := NewPredicate("p", 1)
	q := NewPredicate("q", 1)
	r := NewRule(
		NewAtom(p, NewVar(0)),
		NegatedAtomLiteral(NewAtom(q, NewVar(0))),
	)
	assert.False(t, r.Safe())
}

func TestRule_SafeAcceptsVarBoundOnlyThroughEquality(t *testing.T) {
	counter := NewPredicate("counter", 1)
	n, m := NewVar(0), NewVar(1)
	r := NewRule(
		NewAtom(counter, n),
		AtomLiteral(NewAtom(counter, m)),
		ConstraintLiteral(NewEq(n, NewAdd(m, NewInt(1)))),
	)
	assert.True(t, r.Safe())
}

func TestRule_SafeRejectsEqualityChainedToUnboundVar(t *testing.T) {
	p := NewPredicate("p", 1)
	n, m := NewVar(0), NewVar(1)
	r := NewRule(
		NewAtom(p, n),
		ConstraintLiteral(NewEq(n, NewAdd(m, NewInt(1)))), // m is never bound
	)
	assert.False(t, r.Safe())
}

func TestRule_SafeIgnoresConstantHeadArgs(t *testing.T) {
	p := NewPredicate("p", 1)
	r := NewRule(NewAtom(p, NewInt(5)))
	assert.True(t, r.Safe())
}

func TestRule_HasNegation(t *testing.T) {
	p := NewPredicate("p", 1)
	q := NewPredicate("q", 1)
	withNeg := NewRule(NewAtom(p, NewVar(0)), NegatedAtomLiteral(NewAtom(q, NewVar(0))))
	withoutNeg := NewRule(NewAtom(p, NewVar(0)), AtomLiteral(NewAtom(q, NewVar(0))))
	assert.True(t, withNeg.HasNegation())
	assert.False(t, withoutNeg.HasNegation())
}

func TestRule_ValidateRejectsNegation(t *testing.T) {
	p := NewPredicate("p", 1)
	q := NewPredicate("q", 1)
	r := NewRule(NewAtom(p, NewVar(0)), NegatedAtomLiteral(NewAtom(q, NewVar(0))))
	err := r.Validate()
	require.Error(t, err)
}

func TestRule_ValidateRejectsUnsafeRule(t *testing.T) {
	p := NewPredicate("p", 1)
	r := NewRule(NewAtom(p, NewVar(0))) // no body atom binds var 0
	err := r.Validate()
	require.Error(t, err)
}

func TestRule_ValidateAcceptsGoodRule(t *testing.T) {
	p := NewPredicate("p", 1)
	q := NewPredicate("q", 1)
	r := NewRule(NewAtom(p, NewVar(0)), AtomLiteral(NewAtom(q, NewVar(0))))
	assert.NoError(t, r.Validate())
}

func TestRule_AtomPredicatesIncludesDuplicatesInOrder(t *testing.T) {
	p := NewPredicate("p", 1)
	q := NewPredicate("q", 1)
	r := NewRule(
		NewAtom(p, NewVar(0)),
		AtomLiteral(NewAtom(q, NewVar(0))),
		ConstraintLiteral(NewEq(NewVar(0), NewInt(1))),
		AtomLiteral(NewAtom(q, NewVar(0))),
	)
	assert.Equal(t, []Predicate{q, q}, r.AtomPredicates())
}

func TestPredicate_String(t *testing.T) {
	assert.Equal(t, "foo/2", NewPredicate("foo", 2).String())
}
