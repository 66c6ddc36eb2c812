// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ir

import (
	"errors"
	"testing"

	jclass "github.com/saferwall/jclass"
)

func TestNormalizePolarityFlip(t *testing.T) {
	cond := Condition{Kind: CondIsZero, Lhs: Just(Arg(0))}
	pred := Normalize(cond)

	if pred.Kind != PredEqual || pred.Negative {
		t.Fatalf("normalization got %+v, want Positive(Equal(..))", pred)
	}
	// Zero lands on the right of the unary comparison.
	if pred.Rhs.Compare(ConstantOf(jclass.IntegerValue(0))) != 0 {
		t.Errorf("rhs got %v, want 0", pred.Rhs)
	}

	negated := pred.Not()
	if !negated.Negative {
		t.Errorf("negation got %+v, want Negative polarity", negated)
	}
	if roundTrip := negated.Not(); roundTrip.Compare(pred) != 0 {
		t.Errorf("double negation got %+v, want %+v", roundTrip, pred)
	}
}

func TestNormalizeBinaryOrdering(t *testing.T) {
	a := Just(Arg(0)) // renders as %arg0
	b := Just(Arg(1)) // renders as %arg1

	// Whichever way the condition is written, the smaller operand lands
	// on the left.
	forward := Normalize(Condition{Kind: CondEqual, Lhs: a, Rhs: b})
	backward := Normalize(Condition{Kind: CondEqual, Lhs: b, Rhs: a})
	if forward.Compare(backward) != 0 {
		t.Errorf("equal normalization is not canonical: %+v vs %+v",
			forward, backward)
	}

	// Greater-than becomes swapped-operand less-than.
	gt := Normalize(Condition{Kind: CondGreaterThan, Lhs: a, Rhs: b})
	lt := Normalize(Condition{Kind: CondLessThan, Lhs: b, Rhs: a})
	if gt.Compare(lt) != 0 {
		t.Errorf("greater-than normalization got %+v, want %+v", gt, lt)
	}

	// Disequality is a negative equality.
	ne := Normalize(Condition{Kind: CondNotEqual, Lhs: a, Rhs: b})
	if ne.Kind != PredEqual || !ne.Negative {
		t.Errorf("not-equal normalization got %+v, want Negative(Equal)", ne)
	}
}

// Path conditions of a diamond:
//
//	0: iload_0
//	1: ifeq 8
//	4: iconst_1
//	5: goto 9
//	8: iconst_2
//	9: ireturn
//
// The branch targets see the branch predicate and its negation; the merge
// point simplifies back to the tautology.
func TestAnalyzePathConditions(t *testing.T) {
	insns := jclass.NewInstructionMap()
	insns.Put(0, jclass.LocalInsn{Op: jclass.OpILoad0, Index: 0})
	insns.Put(1, jclass.BranchInsn{Op: jclass.OpIfEq, Target: 8})
	insns.Put(4, jclass.SimpleInsn{Op: jclass.OpIConst1})
	insns.Put(5, jclass.BranchInsn{Op: jclass.OpGoto, Target: 9})
	insns.Put(8, jclass.SimpleInsn{Op: jclass.OpIConst2})
	insns.Put(9, jclass.SimpleInsn{Op: jclass.OpIReturn})
	method := makeMethod(t, "(I)I", jclass.AccStatic, 1, 1,
		&jclass.MethodBody{Instructions: insns})

	lifted, err := LiftMethod(method)
	if err != nil {
		t.Fatalf("LiftMethod failed, reason: %v", err)
	}
	conds, err := AnalyzePathConditions(lifted, nil)
	if err != nil {
		t.Fatalf("AnalyzePathConditions failed, reason: %v", err)
	}

	if got := conds[0]; !got.IsTautology() {
		t.Errorf("entry condition got %s, want ⊤", got)
	}

	isZero := Normalize(Condition{Kind: CondIsZero, Lhs: Just(Arg(0))})
	wantTaken := Of(isZero)
	wantFallThrough := Of(isZero.Not())
	if got := conds[8]; !got.Equal(wantTaken) {
		t.Errorf("taken branch condition got %s, want %s", got, wantTaken)
	}
	if got := conds[4]; !got.Equal(wantFallThrough) {
		t.Errorf("fall-through condition got %s, want %s", got, wantFallThrough)
	}

	// p ∨ ¬p at the merge simplifies to the tautology.
	if got := conds[9]; !got.IsTautology() {
		t.Errorf("merge condition got %s, want ⊤", got)
	}
}

func TestAnalyzePathConditionsPredicateLimit(t *testing.T) {
	insns := jclass.NewInstructionMap()
	// Three distinct predicates over three arguments, one per branch.
	var pc jclass.ProgramCounter
	for arg := uint16(0); arg < 3; arg++ {
		insns.Put(pc, jclass.LocalInsn{
			Op: jclass.OpILoad, Index: arg})
		insns.Put(pc+2, jclass.BranchInsn{Op: jclass.OpIfEq, Target: pc + 5})
		insns.Put(pc+5, jclass.SimpleInsn{Op: jclass.OpNop})
		pc += 6
	}
	insns.Put(pc, jclass.SimpleInsn{Op: jclass.OpReturn})
	method := makeMethod(t, "(III)V", jclass.AccStatic, 1, 3,
		&jclass.MethodBody{Instructions: insns})

	lifted, err := LiftMethod(method)
	if err != nil {
		t.Fatalf("LiftMethod failed, reason: %v", err)
	}

	_, err = AnalyzePathConditions(lifted, &PathConditionOptions{MaxPredicates: 2})
	if !errors.Is(err, ErrTooManyPredicates) {
		t.Errorf("limited analysis got %v, want ErrTooManyPredicates", err)
	}

	if _, err := AnalyzePathConditions(lifted, nil); err != nil {
		t.Errorf("default analysis failed, reason: %v", err)
	}
}
