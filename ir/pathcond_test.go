// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ir

import (
	"fmt"
	"testing"
)

// testPred is a boolean variable with a polarity, the smallest predicate
// satisfying the lattice's requirements.
type testPred struct {
	id  int
	pos bool
}

func (p testPred) Not() testPred {
	p.pos = !p.pos
	return p
}

func (p testPred) Compare(other testPred) int {
	if p.id != other.id {
		if p.id < other.id {
			return -1
		}
		return 1
	}
	switch {
	case p.pos == other.pos:
		return 0
	case p.pos:
		return 1
	default:
		return -1
	}
}

func (p testPred) String() string {
	if p.pos {
		return fmt.Sprintf("v%d", p.id)
	}
	return fmt.Sprintf("!v%d", p.id)
}

func v(id int) testPred     { return testPred{id: id, pos: true} }
func notV(id int) testPred  { return testPred{id: id} }

// evaluateUnder assigns variable i the i-th bit of mask.
func evaluateUnder(cond PathCondition[testPred], mask int) bool {
	return cond.Evaluate(func(p testPred) bool {
		set := mask&(1<<p.id) != 0
		return set == p.pos
	})
}

// checkEquivalent verifies two conditions agree under every assignment of
// the variables 0..vars-1.
func checkEquivalent(t *testing.T, vars int, a, b PathCondition[testPred], context string) {
	t.Helper()
	for mask := 0; mask < 1<<vars; mask++ {
		if evaluateUnder(a, mask) != evaluateUnder(b, mask) {
			t.Errorf("%s: conditions disagree under assignment %b (%s vs %s)",
				context, mask, a, b)
			return
		}
	}
}

func TestPathConditionConstants(t *testing.T) {
	taut := Tautology[testPred]()
	contra := Contradiction[testPred]()

	if !taut.IsTautology() || taut.IsContradiction() {
		t.Error("tautology classification failed")
	}
	if !contra.IsContradiction() || contra.IsTautology() {
		t.Error("contradiction classification failed")
	}
	if !evaluateUnder(taut, 0) {
		t.Error("evaluate(⊤) got false, want true")
	}
	if evaluateUnder(contra, 0) {
		t.Error("evaluate(⊥) got true, want false")
	}
}

func TestPathConditionSimplifyAbsorption(t *testing.T) {
	// {{a}, {!a, b}} simplifies to {{a}, {b}}.
	cond := Of(v(0)).Or(Of(notV(0), v(1)))
	simplified := cond.Simplify()
	want := Of(v(0)).Or(Of(v(1)))
	if !simplified.Equal(want) {
		t.Errorf("absorption got %s, want %s", simplified, want)
	}
}

func TestPathConditionSimplifySubsumption(t *testing.T) {
	// {{a, b}, {a}} simplifies to {{a}}.
	cond := Of(v(0), v(1)).Or(Of(v(0)))
	simplified := cond.Simplify()
	want := Of(v(0))
	if !simplified.Equal(want) {
		t.Errorf("subsumption got %s, want %s", simplified, want)
	}
}

func TestPathConditionSimplifyTautology(t *testing.T) {
	if got := Tautology[testPred]().Simplify(); !got.IsTautology() {
		t.Errorf("simplify(⊤) got %s, want ⊤", got)
	}
	if got := Contradiction[testPred]().Simplify(); !got.IsContradiction() {
		t.Errorf("simplify(⊥) got %s, want ⊥", got)
	}
}

// Simplification must preserve the condition's truth table.
func TestPathConditionSimplifySound(t *testing.T) {

	tests := []PathCondition[testPred]{
		Of(v(0)),
		Of(v(0)).Or(Of(notV(0))),
		Of(v(0), v(1)).Or(Of(v(0), notV(1))),
		Of(v(0)).Or(Of(notV(0), v(1))).Or(Of(notV(0), notV(1), v(2))),
		Of(v(0), notV(1)).Or(Of(notV(0), v(1))).Or(Of(v(2))),
		Of(v(0), v(1), v(2)).Or(Of(v(0), v(1))).Or(Of(v(0))),
		Of(notV(0), notV(1)).Or(Of(v(1), v(2))).Or(Of(notV(0), v(2))),
		Tautology[testPred](),
		Contradiction[testPred](),
	}

	for i, cond := range tests {
		simplified := cond.Simplify()
		checkEquivalent(t, 3, cond, simplified, fmt.Sprintf("case %d", i))
	}
}

func TestPathConditionAlgebra(t *testing.T) {
	conds := []PathCondition[testPred]{
		Of(v(0)),
		Of(notV(1)),
		Of(v(0), v(1)),
		Of(v(1)).Or(Of(v(2))),
		Of(notV(0), v(2)).Or(Of(v(1))),
		Tautology[testPred](),
		Contradiction[testPred](),
	}

	for _, a := range conds {
		for _, b := range conds {
			and := a.And(b)
			or := a.Or(b)
			for mask := 0; mask < 1<<3; mask++ {
				wantAnd := evaluateUnder(a, mask) && evaluateUnder(b, mask)
				wantOr := evaluateUnder(a, mask) || evaluateUnder(b, mask)
				if evaluateUnder(and, mask) != wantAnd {
					t.Fatalf("(%s) ∧ (%s) wrong under %b", a, b, mask)
				}
				if evaluateUnder(or, mask) != wantOr {
					t.Fatalf("(%s) ∨ (%s) wrong under %b", a, b, mask)
				}
			}
		}
	}
}

func TestPathConditionAndDistributes(t *testing.T) {
	// (a + b)(c) = ac + bc, as product sets.
	got := Of(v(0)).Or(Of(v(1))).And(Of(v(2)))
	want := Of(v(0), v(2)).Or(Of(v(1), v(2)))
	if !got.Equal(want) {
		t.Errorf("product got %s, want %s", got, want)
	}
}
