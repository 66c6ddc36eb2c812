// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ir

import (
	"sort"
	"strings"

	jclass "github.com/saferwall/jclass"
)

// Method is a JVM method lifted into the IR: the original identity and
// exception table, the instruction per program counter, and the control
// flow graph. A Method is immutable after construction and safe to share
// across goroutines.
type Method struct {
	Flags      jclass.AccessFlags
	Name       string
	Descriptor jclass.MethodDescriptor
	Owner      jclass.ClassRef

	Instructions     map[jclass.ProgramCounter]Instruction
	ExceptionTable   []jclass.ExceptionTableEntry
	ControlFlowGraph *CFG[struct{}, ControlTransfer]
}

// PCs returns the instruction program counters in ascending order.
func (m *Method) PCs() []jclass.ProgramCounter {
	out := make([]jclass.ProgramCounter, 0, len(m.Instructions))
	for pc := range m.Instructions {
		out = append(out, pc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// String renders the lifted body one instruction per line, in program
// counter order.
func (m *Method) String() string {
	var sb strings.Builder
	for _, pc := range m.PCs() {
		sb.WriteString(pc.String())
		sb.WriteString("  ")
		sb.WriteString(m.Instructions[pc].String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
