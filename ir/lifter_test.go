// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ir

import (
	"sync"
	"testing"

	jclass "github.com/saferwall/jclass"
)

// makeMethod assembles a synthetic method around an instruction list.
func makeMethod(t *testing.T, desc string, flags jclass.AccessFlags,
	maxStack, maxLocals uint16, body *jclass.MethodBody) *jclass.Method {
	t.Helper()
	body.MaxStack = maxStack
	body.MaxLocals = maxLocals
	return &jclass.Method{
		Flags:      flags,
		Name:       "probe",
		Descriptor: mustDescriptor(t, desc),
		Owner:      jclass.ClassRef{BinaryName: "com/example/Probe"},
		Body:       body,
	}
}

// Lifting `iconst_1; ireturn` yields exactly a definition of the constant
// and a return referencing it.
func TestLiftConstantReturn(t *testing.T) {
	insns := jclass.NewInstructionMap()
	insns.Put(0, jclass.SimpleInsn{Op: jclass.OpIConst1})
	insns.Put(1, jclass.SimpleInsn{Op: jclass.OpIReturn})
	method := makeMethod(t, "()I", jclass.AccStatic, 1, 0,
		&jclass.MethodBody{Instructions: insns})

	lifted, err := LiftMethod(method)
	if err != nil {
		t.Fatalf("LiftMethod failed, reason: %v", err)
	}
	if len(lifted.Instructions) != 2 {
		t.Fatalf("instruction count got %d, want 2", len(lifted.Instructions))
	}

	def, ok := lifted.Instructions[0].(Definition)
	if !ok {
		t.Fatalf("instruction at 0 got %T, want Definition", lifted.Instructions[0])
	}
	constant, ok := def.Expr.(ConstExpr)
	if !ok || constant.Value != jclass.IntegerValue(1) {
		t.Errorf("definition expr got %v, want the constant 1", def.Expr)
	}

	ret, ok := lifted.Instructions[1].(Return)
	if !ok || ret.Value == nil {
		t.Fatalf("instruction at 1 got %v, want a valued return", lifted.Instructions[1])
	}
	if !ret.Value.Equal(Just(Local(def.Value))) {
		t.Errorf("return operand got %v, want %v", ret.Value, Just(Local(def.Value)))
	}
}

// Two branches each pushing a distinct value merge into a Phi on the
// stack.
//
//	0: iload_0
//	1: ifeq 8
//	4: iconst_1
//	5: goto 9
//	8: iconst_2
//	9: ireturn
func TestLiftBranchMergePhi(t *testing.T) {
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

	ret, ok := lifted.Instructions[9].(Return)
	if !ok || ret.Value == nil {
		t.Fatalf("merge point instruction got %v, want a valued return",
			lifted.Instructions[9])
	}
	want := Phi(Local(4), Local(8))
	if !ret.Value.Equal(want) {
		t.Errorf("merged operand got %v, want %v", ret.Value, want)
	}

	// The conditional branch carries labeled edges both ways.
	edges := lifted.ControlFlowGraph.EdgesFrom(1)
	if len(edges) != 2 {
		t.Fatalf("branch out-degree got %d, want 2", len(edges))
	}
	for _, edge := range edges {
		if _, ok := edge.Data.(TransferConditional); !ok {
			t.Errorf("edge 1 -> %v labeled %T, want TransferConditional",
				edge.To, edge.Data)
		}
	}
}

// A covered instruction transfers to its handler with the caught
// exception on the stack.
func TestLiftExceptionEdges(t *testing.T) {
	insns := jclass.NewInstructionMap()
	insns.Put(0, jclass.SimpleInsn{Op: jclass.OpIConst1})
	insns.Put(1, jclass.SimpleInsn{Op: jclass.OpIReturn})
	insns.Put(4, jclass.SimpleInsn{Op: jclass.OpAThrow})
	exception := jclass.ClassRef{BinaryName: "java/lang/Exception"}
	body := &jclass.MethodBody{
		Instructions: insns,
		ExceptionTable: []jclass.ExceptionTableEntry{{
			StartPC:   0,
			EndPC:     1,
			HandlerPC: 4,
			CatchType: &exception,
		}},
	}
	method := makeMethod(t, "()I", jclass.AccStatic, 1, 0, body)

	lifted, err := LiftMethod(method)
	if err != nil {
		t.Fatalf("LiftMethod failed, reason: %v", err)
	}

	handler, ok := lifted.Instructions[4].(Definition)
	if !ok {
		t.Fatalf("handler instruction got %v, want Definition",
			lifted.Instructions[4])
	}
	throw, ok := handler.Expr.(ThrowExpr)
	if !ok {
		t.Fatalf("handler expr got %T, want ThrowExpr", handler.Expr)
	}
	if !throw.Operand.Equal(Just(CaughtException())) {
		t.Errorf("thrown operand got %v, want %%caught_exception", throw.Operand)
	}

	for _, from := range []jclass.ProgramCounter{0, 1} {
		found := false
		for _, edge := range lifted.ControlFlowGraph.EdgesFrom(from) {
			exc, ok := edge.Data.(TransferException)
			if ok && edge.To == 4 {
				found = true
				if exc.CatchAll || len(exc.Catches) != 1 || exc.Catches[0] != exception {
					t.Errorf("exception edge %v -> 4 catch set got %+v", from, exc)
				}
			}
		}
		if !found {
			t.Errorf("missing exception edge %v -> 4", from)
		}
	}
}

// A lookupswitch deduplicates edges to shared targets and lifts to a
// Switch instruction.
func TestLiftSwitch(t *testing.T) {
	insns := jclass.NewInstructionMap()
	insns.Put(0, jclass.LocalInsn{Op: jclass.OpILoad0, Index: 0})
	insns.Put(1, jclass.LookupSwitchInsn{
		Default: 28,
		Matches: map[int32]jclass.ProgramCounter{
			1: 30,
			2: 28, // shares the default target
		},
	})
	insns.Put(28, jclass.SimpleInsn{Op: jclass.OpIConst1})
	insns.Put(29, jclass.SimpleInsn{Op: jclass.OpIReturn})
	insns.Put(30, jclass.SimpleInsn{Op: jclass.OpIConst2})
	insns.Put(31, jclass.SimpleInsn{Op: jclass.OpIReturn})
	method := makeMethod(t, "(I)I", jclass.AccStatic, 1, 1,
		&jclass.MethodBody{Instructions: insns})

	lifted, err := LiftMethod(method)
	if err != nil {
		t.Fatalf("LiftMethod failed, reason: %v", err)
	}
	sw, ok := lifted.Instructions[1].(Switch)
	if !ok {
		t.Fatalf("instruction at 1 got %T, want Switch", lifted.Instructions[1])
	}
	if sw.Default != 28 || len(sw.Cases) != 2 {
		t.Errorf("switch shape got %+v", sw)
	}
	if got := len(lifted.ControlFlowGraph.EdgesFrom(1)); got != 2 {
		t.Errorf("switch out-degree got %d, want 2 (deduplicated)", got)
	}
}

// A loop converges: the back edge merges the incremented value into a Phi
// without growing forever.
//
//	0: iconst_0
//	1: istore_1
//	2: iload_1
//	3: ifeq 10
//	6: iinc 1, 1
//	7: goto 2
//	10: return
func TestLiftLoopConverges(t *testing.T) {
	insns := jclass.NewInstructionMap()
	insns.Put(0, jclass.SimpleInsn{Op: jclass.OpIConst0})
	insns.Put(1, jclass.LocalInsn{Op: jclass.OpIStore1, Index: 1})
	insns.Put(2, jclass.LocalInsn{Op: jclass.OpILoad1, Index: 1})
	insns.Put(3, jclass.BranchInsn{Op: jclass.OpIfEq, Target: 10})
	insns.Put(6, jclass.IIncInsn{Index: 1, Increment: 1})
	insns.Put(7, jclass.BranchInsn{Op: jclass.OpGoto, Target: 2})
	insns.Put(10, jclass.SimpleInsn{Op: jclass.OpReturn})
	method := makeMethod(t, "(I)V", jclass.AccStatic, 1, 2,
		&jclass.MethodBody{Instructions: insns})

	lifted, err := LiftMethod(method)
	if err != nil {
		t.Fatalf("LiftMethod failed, reason: %v", err)
	}
	jump, ok := lifted.Instructions[3].(Jump)
	if !ok || jump.Condition == nil {
		t.Fatalf("loop header instruction got %v, want conditional jump",
			lifted.Instructions[3])
	}
	want := Phi(Local(0), Local(6))
	if !jump.Condition.Lhs.Equal(want) {
		t.Errorf("loop condition operand got %v, want %v", jump.Condition.Lhs, want)
	}
}

// jsr/ret: the subroutine records its return addresses and materializes
// subroutine-return edges.
//
//	0: jsr 6
//	3: nop          <- also a return site
//	4: return
//	6: astore_0     <- subroutine entry, stores the return address
//	7: ret 0
func TestLiftSubroutine(t *testing.T) {
	insns := jclass.NewInstructionMap()
	insns.Put(0, jclass.BranchInsn{Op: jclass.OpJsr, Target: 6})
	insns.Put(3, jclass.SimpleInsn{Op: jclass.OpNop})
	insns.Put(4, jclass.SimpleInsn{Op: jclass.OpReturn})
	insns.Put(6, jclass.LocalInsn{Op: jclass.OpAStore0, Index: 0})
	insns.Put(7, jclass.LocalInsn{Op: jclass.OpRet, Index: 0})
	method := makeMethod(t, "()V", jclass.AccStatic, 1, 1,
		&jclass.MethodBody{Instructions: insns})

	lifted, err := LiftMethod(method)
	if err != nil {
		t.Fatalf("LiftMethod failed, reason: %v", err)
	}

	if _, ok := lifted.Instructions[7].(SubroutineRet); !ok {
		t.Fatalf("instruction at 7 got %T, want SubroutineRet", lifted.Instructions[7])
	}
	found := false
	for _, edge := range lifted.ControlFlowGraph.EdgesFrom(7) {
		if edge.To == 3 {
			found = true
			if _, ok := edge.Data.(TransferSubroutineReturn); !ok {
				t.Errorf("edge 7 -> 3 labeled %T, want TransferSubroutineReturn",
					edge.Data)
			}
		}
	}
	if !found {
		t.Error("missing subroutine return edge 7 -> 3")
	}
}

// Lifted methods are immutable; lifting all methods of a class
// concurrently is a supported pattern.
func TestLiftConcurrently(t *testing.T) {
	build := func() *jclass.Method {
		insns := jclass.NewInstructionMap()
		insns.Put(0, jclass.SimpleInsn{Op: jclass.OpIConst1})
		insns.Put(1, jclass.SimpleInsn{Op: jclass.OpIReturn})
		return makeMethod(t, "()I", jclass.AccStatic, 1, 0,
			&jclass.MethodBody{Instructions: insns})
	}
	method := build()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lifted, err := LiftMethod(method)
			if err != nil {
				t.Errorf("LiftMethod failed, reason: %v", err)
				return
			}
			if len(lifted.Instructions) != 2 {
				t.Errorf("instruction count got %d, want 2", len(lifted.Instructions))
			}
		}()
	}
	wg.Wait()
}

// Def/use queries over a lifted method.
func TestDefUseChain(t *testing.T) {
	insns := jclass.NewInstructionMap()
	insns.Put(0, jclass.SimpleInsn{Op: jclass.OpIConst1})
	insns.Put(1, jclass.SimpleInsn{Op: jclass.OpIReturn})
	method := makeMethod(t, "()I", jclass.AccStatic, 1, 0,
		&jclass.MethodBody{Instructions: insns})

	lifted, err := LiftMethod(method)
	if err != nil {
		t.Fatalf("LiftMethod failed, reason: %v", err)
	}
	chain := NewDefUseChain(lifted)

	defPC, ok := chain.DefinedAt(LocalValueID(0))
	if !ok || defPC != 0 {
		t.Errorf("DefinedAt(%%0) got (%v, %v), want #0000", defPC, ok)
	}
	uses := chain.UsedAt(Local(0))
	if len(uses) != 1 || uses[0] != 1 {
		t.Errorf("UsedAt(%%0) got %v, want [#0001]", uses)
	}
}
