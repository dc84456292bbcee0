package karr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMkEmpty_IsBottom(t *testing.T) {
	decl := NewPredicate("p", 2)
	r := MkEmpty(decl)
	assert.True(t, r.Empty)
	assert.Equal(t, decl, r.Decl)
}

func TestMkFull_HasNoConstraints(t *testing.T) {
	decl := NewPredicate("p", 2)
	r := MkFull(decl)
	require.False(t, r.Empty)
	assert.Equal(t, 0, r.GetIneqs().Size())
}

func TestAddFact_GrowsFromEmpty(t *testing.T) {
	decl := NewPredicate("p", 2)
	r := MkEmpty(decl)
	grown, grew := r.AddFact([]int{1, 2})
	require.True(t, grew)
	require.False(t, grown.Empty)

	basis := grown.GetBasis()
	require.Equal(t, 1, basis.Size())
	row := basis.Row(0)
	assert.Equal(t, 1, row.B.Num) // the anchor row
	assert.Equal(t, 1, row.A[0].Num)
	assert.Equal(t, 2, row.A[1].Num)
}

func TestAddFact_PanicsOnWidthMismatch(t *testing.T) {
	r := MkEmpty(NewPredicate("p", 2))
	assert.Panics(t, func() { r.AddFact([]int{1}) })
}

func TestAddFact_UnioningSameFactDoesNotGrow(t *testing.T) {
	decl := NewPredicate("p", 1)
	r := MkEmpty(decl)
	r, _ = r.AddFact([]int{3})
	_, grew := r.AddFact([]int{3})
	assert.False(t, grew)
}

func TestFilterEqual_ConstrainsColumn(t *testing.T) {
	decl := NewPredicate("p", 1)
	r := MkFull(decl)
	r = r.FilterEqual(0, 7)
	require.False(t, r.Empty)
	basis := r.GetBasis()
	foundAnchorAtSeven := false
	for i := 0; i < basis.Size(); i++ {
		row := basis.Row(i)
		if row.B.Num == 1 && row.A[0].Num == 7 {
			foundAnchorAtSeven = true
		}
	}
	assert.True(t, foundAnchorAtSeven)
}

func TestFilterEqual_ContradictionIsEmpty(t *testing.T) {
	decl := NewPredicate("p", 1)
	r := MkFull(decl)
	r = r.FilterEqual(0, 1)
	r = r.FilterEqual(0, 2)
	assert.True(t, r.Empty)
}

func TestFilterIdentical_TiesTwoColumns(t *testing.T) {
	decl := NewPredicate("p", 2)
	r := MkFull(decl)
	r = r.FilterIdentical(0, 1)
	r = r.FilterEqual(0, 4)
	require.False(t, r.Empty)
	basis := r.GetBasis()
	for i := 0; i < basis.Size(); i++ {
		row := basis.Row(i)
		if row.B.Num == 1 {
			assert.Equal(t, row.A[0].Num, row.A[1].Num)
		}
	}
}

func TestFilterInterpreted_ConjoinsFormula(t *testing.T) {
	decl := NewPredicate("p", 1)
	r := MkFull(decl)
	r = r.FilterInterpreted(NewEq(NewVar(0), NewInt(10)))
	require.False(t, r.Empty)
	basis := r.GetBasis()
	anchorFound := false
	for i := 0; i < basis.Size(); i++ {
		row := basis.Row(i)
		if row.B.Num == 1 {
			assert.Equal(t, 10, row.A[0].Num)
			anchorFound = true
		}
	}
	assert.True(t, anchorFound)
}

func TestFilterInterpreted_OnEmptyIsNoOp(t *testing.T) {
	decl := NewPredicate("p", 1)
	r := MkEmpty(decl)
	out := r.FilterInterpreted(NewEq(NewVar(0), NewInt(1)))
	assert.True(t, out.Empty)
}

func TestClone_IsIndependent(t *testing.T) {
	decl := NewPredicate("p", 1)
	r := MkEmpty(decl)
	r, _ = r.AddFact([]int{1})
	c := r.Clone()
	c, _ = c.AddFact([]int{2})

	assert.Equal(t, 1, r.GetBasis().Size())
	assert.Equal(t, 2, c.GetBasis().Size())
}

func TestMkJoin_CombinesTwoFacts(t *testing.T) {
	a := MkEmpty(NewPredicate("a", 1))
	a, _ = a.AddFact([]int{5})
	b := MkEmpty(NewPredicate("b", 1))
	b, _ = b.AddFact([]int{7})

	joined := a.MkJoin(b, 2, []int{0}, []int{1})
	require.False(t, joined.Empty)
	basis := joined.GetBasis()
	require.Equal(t, 1, basis.Size())
	row := basis.Row(0)
	assert.Equal(t, 5, row.A[0].Num)
	assert.Equal(t, 7, row.A[1].Num)
}

func TestMkJoin_EitherEmptyIsEmpty(t *testing.T) {
	a := MkEmpty(NewPredicate("a", 1))
	b := MkEmpty(NewPredicate("b", 1))
	b, _ = b.AddFact([]int{1})

	assert.True(t, a.MkJoin(b, 2, []int{0}, []int{1}).Empty)
	assert.True(t, b.MkJoin(a, 2, []int{0}, []int{1}).Empty)
}

func TestMkJoin_SharedColumnEnforcesEquality(t *testing.T) {
	// a(x), b(x): both map column 0 to the shared target column 0.
	a := MkEmpty(NewPredicate("a", 1))
	a, _ = a.AddFact([]int{5})
	b := MkEmpty(NewPredicate("b", 1))
	b, _ = b.AddFact([]int{5})
	bMismatch := MkEmpty(NewPredicate("b", 1))
	bMismatch, _ = bMismatch.AddFact([]int{9})

	joined := a.MkJoin(b, 1, []int{0}, []int{0})
	assert.False(t, joined.Empty)

	mismatched := a.MkJoin(bMismatch, 1, []int{0}, []int{0})
	assert.True(t, mismatched.Empty)
}

func TestMkProject_DropsColumn(t *testing.T) {
	r := MkEmpty(NewPredicate("p", 2))
	r, _ = r.AddFact([]int{3, 9})
	projected := r.MkProject([]int{1})
	require.False(t, projected.Empty)
	basis := projected.GetBasis()
	require.Equal(t, 1, basis.Size())
	assert.Equal(t, 9, basis.Row(0).A[0].Num)
}

func TestMkProject_PanicsOnOutOfRangeColumn(t *testing.T) {
	r := MkFull(NewPredicate("p", 2))
	assert.Panics(t, func() { r.MkProject([]int{2}) })
}

func TestMkProject_PanicsOnRepeatedColumn(t *testing.T) {
	r := MkFull(NewPredicate("p", 2))
	assert.Panics(t, func() { r.MkProject([]int{0, 0}) })
}

func TestMkProject_EmptyStaysEmpty(t *testing.T) {
	r := MkEmpty(NewPredicate("p", 2))
	assert.True(t, r.MkProject([]int{0}).Empty)
}

func TestMkRename_PermutesColumns(t *testing.T) {
	r := MkEmpty(NewPredicate("p", 2))
	r, _ = r.AddFact([]int{3, 9})
	renamed := r.MkRename([]int{1, 0}) // column 0 -> 1, column 1 -> 0
	basis := renamed.GetBasis()
	require.Equal(t, 1, basis.Size())
	row := basis.Row(0)
	assert.Equal(t, 9, row.A[0].Num)
	assert.Equal(t, 3, row.A[1].Num)
}

func TestMkUnion_WithEmptyIsIdentity(t *testing.T) {
	r := MkEmpty(NewPredicate("p", 1))
	r, _ = r.AddFact([]int{1})
	empty := MkEmpty(NewPredicate("p", 1))

	union, grew := r.MkUnion(empty)
	assert.False(t, grew)
	assert.False(t, union.Empty)

	union2, grew2 := empty.MkUnion(r)
	assert.True(t, grew2)
	assert.False(t, union2.Empty)
}

func TestMkUnion_SecondAnchorBecomesDirection(t *testing.T) {
	r := MkEmpty(NewPredicate("p", 1))
	r, _ = r.AddFact([]int{1})
	other := MkEmpty(NewPredicate("p", 1))
	other, _ = other.AddFact([]int{4})

	union, grew := r.MkUnion(other)
	require.True(t, grew)
	basis := union.GetBasis()

	anchors := 0
	for i := 0; i < basis.Size(); i++ {
		if basis.Row(i).B.Num == 1 {
			anchors++
		}
	}
	assert.Equal(t, 1, anchors)
}

func TestMkUnion_DuplicateFactDoesNotGrow(t *testing.T) {
	r := MkEmpty(NewPredicate("p", 1))
	r, _ = r.AddFact([]int{1})
	dup := MkEmpty(NewPredicate("p", 1))
	dup, _ = dup.AddFact([]int{1})

	_, grew := r.MkUnion(dup)
	assert.False(t, grew)
}

func TestCancel_PropagatesThroughDerivedRelations(t *testing.T) {
	cancelled := false
	r := MkEmpty(NewPredicate("p", 1))
	r.Cancel = func() bool { return cancelled }
	r, _ = r.AddFact([]int{1})

	clone := r.Clone()
	require.NotNil(t, clone.Cancel)

	proj := r.MkProject([]int{0})
	require.NotNil(t, proj.Cancel)
}
