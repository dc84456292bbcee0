// Package main demonstrates invariant discovery over a handful of small
// Horn-clause programs.
package main

import (
	"fmt"

	"github.com/gitrdm/karrinvariants/pkg/karr"
)

func main() {
	fmt.Println("=== Karr Invariant Discovery Examples ===")
	fmt.Println()

	counter()
	parallelCounters()
	joinOfTwoFacts()
	disjunctiveInitialisation()
	infeasibleFilter()
	renameCycle()
}

func printResult(name string, result *karr.DiscoveryResult, preds ...karr.Predicate) {
	fmt.Printf("   %s:\n", name)
	if result == nil {
		fmt.Printf("     (rejected: unsafe rule or cancelled)\n\n")
		return
	}
	emitter := karr.NewFormulaEmitter()
	for _, p := range preds {
		rel := result.Invariants[p]
		if rel == nil {
			fmt.Printf("     %s: (no relation)\n", p)
			continue
		}
		if rel.Empty {
			fmt.Printf("     %s: false (no tuples derivable)\n", p)
			continue
		}
		fmt.Printf("     %s: %s\n", p, emitter.Emit(rel.GetIneqs()))
	}
	fmt.Println()
}

// counter demonstrates the canonical loop-counter scenario: a single
// self-recursive predicate incremented by one each step, starting from
// zero, whose only sound invariant is n >= 0.
func counter() {
	fmt.Println("1. Counter:")

	counter := karr.NewPredicate("counter", 1)
	n := karr.NewVar(0)
	m := karr.NewVar(1)

	rule := karr.NewRule(
		karr.NewAtom(counter, n),
		karr.AtomLiteral(karr.NewAtom(counter, m)),
		karr.ConstraintLiteral(karr.NewEq(n, karr.NewAdd(m, karr.NewInt(1)))),
	)

	problem := &karr.Problem{
		Predicates: []karr.Predicate{counter},
		Facts:      map[karr.Predicate][][]int{counter: {{0}}},
		Rules:      []*karr.Rule{rule},
	}

	driver := karr.NewInvariantDriver(karr.DefaultDriverConfig())
	result := driver.Discover(problem)
	printResult("counter(N) :- counter(M), N = M + 1", result, counter)
}

// parallelCounters increments two counters together from a shared base
// case, whose sound invariant ties the two arguments to each other (x = y)
// as well as bounding each below.
func parallelCounters() {
	fmt.Println("2. Parallel counters:")

	pair := karr.NewPredicate("pair", 2)
	x1, y1, x, y := karr.NewVar(0), karr.NewVar(1), karr.NewVar(2), karr.NewVar(3)

	rule := karr.NewRule(
		karr.NewAtom(pair, x1, y1),
		karr.AtomLiteral(karr.NewAtom(pair, x, y)),
		karr.ConstraintLiteral(karr.NewEq(x1, karr.NewAdd(x, karr.NewInt(1)))),
		karr.ConstraintLiteral(karr.NewEq(y1, karr.NewAdd(y, karr.NewInt(1)))),
	)

	problem := &karr.Problem{
		Predicates: []karr.Predicate{pair},
		Facts:      map[karr.Predicate][][]int{pair: {{0, 0}}},
		Rules:      []*karr.Rule{rule},
	}

	driver := karr.NewInvariantDriver(karr.DefaultDriverConfig())
	result := driver.Discover(problem)
	printResult("pair(X1,Y1) :- pair(X,Y), X1=X+1, Y1=Y+1", result, pair)
}

// joinOfTwoFacts derives a relation from the cross product of two
// independent unary facts, exercising MkJoin directly rather than
// recursion.
func joinOfTwoFacts() {
	fmt.Println("3. Join of two facts:")

	a := karr.NewPredicate("a", 1)
	b := karr.NewPredicate("b", 1)
	c := karr.NewPredicate("c", 2)
	x, y := karr.NewVar(0), karr.NewVar(1)

	rule := karr.NewRule(
		karr.NewAtom(c, x, y),
		karr.AtomLiteral(karr.NewAtom(a, x)),
		karr.AtomLiteral(karr.NewAtom(b, y)),
	)

	problem := &karr.Problem{
		Predicates: []karr.Predicate{a, b, c},
		Facts: map[karr.Predicate][][]int{
			a: {{5}},
			b: {{7}},
		},
		Rules: []*karr.Rule{rule},
	}

	driver := karr.NewInvariantDriver(karr.DefaultDriverConfig())
	result := driver.Discover(problem)
	printResult("c(X,Y) :- a(X), b(Y)", result, c)
}

// disjunctiveInitialisation seeds a predicate with two base facts and lets
// the union-based fixed point compute their convex overapproximation.
func disjunctiveInitialisation() {
	fmt.Println("4. Disjunctive initialisation:")

	counter := karr.NewPredicate("start", 1)
	n := karr.NewVar(0)
	m := karr.NewVar(1)

	rule := karr.NewRule(
		karr.NewAtom(counter, n),
		karr.AtomLiteral(karr.NewAtom(counter, m)),
		karr.ConstraintLiteral(karr.NewEq(n, karr.NewAdd(m, karr.NewInt(1)))),
	)

	problem := &karr.Problem{
		Predicates: []karr.Predicate{counter},
		Facts:      map[karr.Predicate][][]int{counter: {{1}, {2}}},
		Rules:      []*karr.Rule{rule},
	}

	driver := karr.NewInvariantDriver(karr.DefaultDriverConfig())
	result := driver.Discover(problem)
	printResult("start(N) :- start(M), N=M+1, seeded from start(1) and start(2)", result, counter)
}

// infeasibleFilter applies two contradictory constraints to the same
// variable, which FilterInterpreted collapses to bottom: the
// head's relation comes back Empty rather than a relation with zero rows.
func infeasibleFilter() {
	fmt.Println("5. Infeasible filter:")

	bad := karr.NewPredicate("bad", 1)
	x := karr.NewVar(0)

	rule := karr.NewRule(
		karr.NewAtom(bad, x),
		karr.ConstraintLiteral(karr.NewEq(x, karr.NewInt(1))),
		karr.ConstraintLiteral(karr.NewEq(x, karr.NewInt(2))),
	)

	problem := &karr.Problem{
		Predicates: []karr.Predicate{bad},
		Facts:      map[karr.Predicate][][]int{},
		Rules:      []*karr.Rule{rule},
	}

	driver := karr.NewInvariantDriver(karr.DefaultDriverConfig())
	result := driver.Discover(problem)
	printResult("bad(X) :- X=1, X=2", result, bad)
}

// renameCycle swaps a pair's arguments each step; the sound invariant is
// that the two arguments' sum stays fixed at the seed's sum. The swap is
// written as equality constraints, so the evaluator handles it by join,
// filter and projection; MkRename is not called.
func renameCycle() {
	fmt.Println("6. Rename cycle:")

	swap := karr.NewPredicate("swap", 2)
	x1, y1, x, y := karr.NewVar(0), karr.NewVar(1), karr.NewVar(2), karr.NewVar(3)

	rule := karr.NewRule(
		karr.NewAtom(swap, x1, y1),
		karr.AtomLiteral(karr.NewAtom(swap, x, y)),
		karr.ConstraintLiteral(karr.NewEq(x1, y)),
		karr.ConstraintLiteral(karr.NewEq(y1, x)),
	)

	problem := &karr.Problem{
		Predicates: []karr.Predicate{swap},
		Facts:      map[karr.Predicate][][]int{swap: {{3, 9}}},
		Rules:      []*karr.Rule{rule},
	}

	driver := karr.NewInvariantDriver(karr.DefaultDriverConfig())
	result := driver.Discover(problem)
	printResult("swap(X1,Y1) :- swap(X,Y), X1=Y, Y1=X", result, swap)
}
