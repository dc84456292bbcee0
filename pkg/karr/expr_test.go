package karr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermString(t *testing.T) {
	tests := []struct {
		name string
		term Term
		want string
	}{
		{"var", NewVar(2), "x2"},
		{"int", NewInt(-7), "-7"},
		{"add", NewAdd(NewVar(0), NewInt(1)), "(x0 + 1)"},
		{"sub", NewSub(NewVar(0), NewVar(1)), "(x0 - x1)"},
		{"mul", NewMul(NewInt(3), NewVar(0)), "(3 * x0)"},
		{"neg", NewNeg(NewVar(4)), "-x4"},
		{"eq", NewEq(NewVar(0), NewInt(5)), "x0 = 5"},
		{"le", NewLe(NewInt(0), NewVar(0)), "0 <= x0"},
		{"lt", NewLt(NewVar(0), NewVar(1)), "x0 < x1"},
		{"true", NewAnd(), "true"},
		{"false", NewOr(), "false"},
		{"not", NewNot(NewLe(NewVar(0), NewInt(3))), "not(x0 <= 3)"},
		{"conjunction", NewAnd(NewEq(NewVar(0), NewInt(1)), NewLe(NewInt(0), NewVar(1))), "x0 = 1 /\\ 0 <= x1"},
		{"disjunction", NewOr(NewEq(NewVar(0), NewInt(1)), NewEq(NewVar(0), NewInt(3))), "x0 = 1 \\/ x0 = 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.term.String())
		})
	}
}

func TestNewAnd_FlattensNestedConjunctions(t *testing.T) {
	inner := NewAnd(NewEq(NewVar(0), NewInt(1)), NewEq(NewVar(1), NewInt(2)))
	outer := NewAnd(inner, NewLe(NewInt(0), NewVar(0)))
	assert.Len(t, outer.Terms, 3)
}

func TestNewOr_FlattensNestedDisjunctions(t *testing.T) {
	inner := NewOr(NewEq(NewVar(0), NewInt(1)), NewEq(NewVar(0), NewInt(2)))
	outer := NewOr(inner, NewEq(NewVar(0), NewInt(3)))
	assert.Len(t, outer.Terms, 3)
}

func TestConjuncts(t *testing.T) {
	a := NewEq(NewVar(0), NewInt(1))
	b := NewLe(NewInt(0), NewVar(0))

	got := Conjuncts(NewAnd(a, b))
	require.Len(t, got, 2)

	// A bare atom is a one-element conjunction.
	single := Conjuncts(a)
	require.Len(t, single, 1)
	assert.Equal(t, Term(a), single[0])

	assert.Empty(t, Conjuncts(NewAnd()))
}

func TestSafeReplace_SubstitutesMappedVars(t *testing.T) {
	f := NewEq(NewVar(0), NewAdd(NewVar(1), NewInt(1)))
	got := SafeReplace(f, map[int]Term{0: NewVar(7), 1: NewInt(3)})

	eq := got.(*Eq)
	assert.Equal(t, 7, eq.X.(*Var).Index)
	add := eq.Y.(*Add)
	assert.Equal(t, 3, add.X.(*Int).Value)
}

func TestSafeReplace_LeavesUnmappedVarsAndOriginalIntact(t *testing.T) {
	f := NewAnd(NewEq(NewVar(0), NewInt(1)), NewLe(NewVar(2), NewVar(0)))
	got := SafeReplace(f, map[int]Term{0: NewInt(9)})

	// Var{2} is untouched in the result.
	and := got.(*And)
	le := and.Terms[1].(*Le)
	assert.Equal(t, 2, le.X.(*Var).Index)

	// The original tree still refers to Var{0}.
	origEq := f.Terms[0].(*Eq)
	_, isVar := origEq.X.(*Var)
	assert.True(t, isVar)
}

func TestSafeReplace_NilFormula(t *testing.T) {
	assert.Nil(t, SafeReplace(nil, map[int]Term{0: NewInt(1)}))
}

func TestSafeReplace_SubstitutesInsideNotAndOr(t *testing.T) {
	f := NewNot(NewOr(NewEq(NewVar(0), NewInt(1)), NewLt(NewVar(0), NewInt(0))))
	got := SafeReplace(f, map[int]Term{0: NewVar(5)})

	not := got.(*Not)
	or := not.X.(*Or)
	eq := or.Terms[0].(*Eq)
	assert.Equal(t, 5, eq.X.(*Var).Index)
}
