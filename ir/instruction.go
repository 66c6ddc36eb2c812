// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ir

import (
	"fmt"
	"sort"
	"strings"

	jclass "github.com/saferwall/jclass"
)

// Instruction is a single lifted IR instruction. The set of
// implementations is closed.
type Instruction interface {
	// Def returns the value defined by the instruction, if any.
	Def() (LocalValueID, bool)

	// Uses returns the identifiers the instruction reads.
	Uses() []Identifier

	fmt.Stringer

	isInstruction()
}

// Nop does nothing. Stack shuffling and local moves lift to Nop because
// the IR tracks values, not slots.
type Nop struct{}

func (Nop) Def() (LocalValueID, bool) { return 0, false }
func (Nop) Uses() []Identifier        { return nil }
func (Nop) String() string            { return "nop" }
func (Nop) isInstruction()            {}

// Definition binds the value of an expression to a local value.
type Definition struct {
	Value LocalValueID
	Expr  Expression
}

func (d Definition) Def() (LocalValueID, bool) { return d.Value, true }
func (d Definition) Uses() []Identifier        { return d.Expr.Uses() }
func (d Definition) String() string {
	return fmt.Sprintf("%s = %s", d.Value, d.Expr)
}
func (Definition) isInstruction() {}

// Jump transfers control to Target; unconditionally when Condition is nil.
type Jump struct {
	Condition *Condition
	Target    jclass.ProgramCounter
}

func (Jump) Def() (LocalValueID, bool) { return 0, false }
func (j Jump) Uses() []Identifier {
	if j.Condition == nil {
		return nil
	}
	return j.Condition.Uses()
}
func (j Jump) String() string {
	if j.Condition == nil {
		return fmt.Sprintf("goto %s", j.Target)
	}
	return fmt.Sprintf("if %s goto %s", j.Condition, j.Target)
}
func (Jump) isInstruction() {}

// Switch jumps to the case matching the discriminant, or Default.
type Switch struct {
	Discriminant Operand
	Cases        map[int32]jclass.ProgramCounter
	Default      jclass.ProgramCounter
}

func (Switch) Def() (LocalValueID, bool) { return 0, false }
func (s Switch) Uses() []Identifier      { return s.Discriminant.Identifiers() }
func (s Switch) String() string {
	keys := make([]int, 0, len(s.Cases))
	for k := range s.Cases {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)
	branches := make([]string, 0, len(keys))
	for _, k := range keys {
		branches = append(branches, fmt.Sprintf("%d => %s", k, s.Cases[int32(k)]))
	}
	return fmt.Sprintf("switch %s { %s, else => %s }",
		s.Discriminant, strings.Join(branches, ", "), s.Default)
}
func (Switch) isInstruction() {}

// Return leaves the method, with a value when Value is non-nil.
type Return struct {
	Value *Operand
}

func (Return) Def() (LocalValueID, bool) { return 0, false }
func (r Return) Uses() []Identifier {
	if r.Value == nil {
		return nil
	}
	return r.Value.Identifiers()
}
func (r Return) String() string {
	if r.Value == nil {
		return "return"
	}
	return fmt.Sprintf("return %s", r.Value)
}
func (Return) isInstruction() {}

// SubroutineRet returns from a subroutine through the given return
// address operand.
type SubroutineRet struct {
	Target Operand
}

func (SubroutineRet) Def() (LocalValueID, bool) { return 0, false }
func (s SubroutineRet) Uses() []Identifier      { return s.Target.Identifiers() }
func (s SubroutineRet) String() string {
	return fmt.Sprintf("subroutine_ret %s", s.Target)
}
func (SubroutineRet) isInstruction() {}
