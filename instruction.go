// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"fmt"
	"sort"
	"strings"
)

// Instruction is a decoded JVM instruction. The set of implementations is
// closed; instructions are grouped by operand shape and each value records
// the exact opcode it was decoded from so that re-encoding reproduces the
// original byte layout and program counter offsets.
type Instruction interface {
	// Opcode returns the instruction's opcode.
	Opcode() Opcode

	fmt.Stringer

	isInstruction()
}

// SimpleInsn is an instruction with no operands.
type SimpleInsn struct {
	Op Opcode
}

func (i SimpleInsn) Opcode() Opcode { return i.Op }
func (i SimpleInsn) String() string { return i.Op.String() }
func (SimpleInsn) isInstruction()   {}

// LocalInsn is a load, store or ret addressing a local variable slot. Wide
// records whether the instruction was wide-prefixed; a fixed-slot short
// form keeps its own opcode in Op and has Wide false.
type LocalInsn struct {
	Op    Opcode
	Index uint16
	Wide  bool
}

func (i LocalInsn) Opcode() Opcode { return i.Op }
func (i LocalInsn) String() string {
	return fmt.Sprintf("%s %d", i.Op, i.Index)
}
func (LocalInsn) isInstruction() {}

// IIncInsn increments a local variable slot by a constant.
type IIncInsn struct {
	Index     uint16
	Increment int16
	Wide      bool
}

func (IIncInsn) Opcode() Opcode { return OpIInc }
func (i IIncInsn) String() string {
	return fmt.Sprintf("iinc %d %d", i.Index, i.Increment)
}
func (IIncInsn) isInstruction() {}

// PushInsn is bipush or sipush.
type PushInsn struct {
	Op    Opcode
	Value int32
}

func (i PushInsn) Opcode() Opcode { return i.Op }
func (i PushInsn) String() string { return fmt.Sprintf("%s %d", i.Op, i.Value) }
func (PushInsn) isInstruction()   {}

// LoadConstInsn is an ldc-family instruction with its resolved constant.
type LoadConstInsn struct {
	Op    Opcode
	Value ConstantValue
}

func (i LoadConstInsn) Opcode() Opcode { return i.Op }
func (i LoadConstInsn) String() string { return fmt.Sprintf("%s %s", i.Op, i.Value) }
func (LoadConstInsn) isInstruction()   {}

// FieldInsn is getstatic, putstatic, getfield or putfield.
type FieldInsn struct {
	Op    Opcode
	Field FieldRef
}

func (i FieldInsn) Opcode() Opcode { return i.Op }
func (i FieldInsn) String() string { return fmt.Sprintf("%s %s", i.Op, i.Field) }
func (FieldInsn) isInstruction()   {}

// MethodInsn is invokevirtual, invokespecial or invokestatic.
type MethodInsn struct {
	Op     Opcode
	Method MethodRef
}

func (i MethodInsn) Opcode() Opcode { return i.Op }
func (i MethodInsn) String() string { return fmt.Sprintf("%s %s", i.Op, i.Method) }
func (MethodInsn) isInstruction()   {}

// InvokeInterfaceInsn is invokeinterface with its historical count operand.
type InvokeInterfaceInsn struct {
	Method MethodRef
	Count  uint8
}

func (InvokeInterfaceInsn) Opcode() Opcode { return OpInvokeInterface }
func (i InvokeInterfaceInsn) String() string {
	return fmt.Sprintf("invokeinterface %s", i.Method)
}
func (InvokeInterfaceInsn) isInstruction() {}

// InvokeDynamicInsn is invokedynamic with its resolved call site.
type InvokeDynamicInsn struct {
	BootstrapMethodIndex uint16
	Name                 string
	Descriptor           MethodDescriptor
}

func (InvokeDynamicInsn) Opcode() Opcode { return OpInvokeDynamic }
func (i InvokeDynamicInsn) String() string {
	return fmt.Sprintf("invokedynamic %s#%d", i.Name, i.BootstrapMethodIndex)
}
func (InvokeDynamicInsn) isInstruction() {}

// TypeInsn is new, anewarray, checkcast or instanceof.
type TypeInsn struct {
	Op    Opcode
	Class ClassRef
}

func (i TypeInsn) Opcode() Opcode { return i.Op }
func (i TypeInsn) String() string { return fmt.Sprintf("%s %s", i.Op, i.Class) }
func (TypeInsn) isInstruction()   {}

// NewArrayInsn is newarray with its primitive element type.
type NewArrayInsn struct {
	ElementType BaseType
}

func (NewArrayInsn) Opcode() Opcode { return OpNewArray }
func (i NewArrayInsn) String() string {
	return fmt.Sprintf("newarray %s", i.ElementType.Descriptor())
}
func (NewArrayInsn) isInstruction() {}

// MultiANewArrayInsn is multianewarray.
type MultiANewArrayInsn struct {
	Class      ClassRef
	Dimensions uint8
}

func (MultiANewArrayInsn) Opcode() Opcode { return OpMultiANewArray }
func (i MultiANewArrayInsn) String() string {
	return fmt.Sprintf("multianewarray %s %d", i.Class, i.Dimensions)
}
func (MultiANewArrayInsn) isInstruction() {}

// BranchInsn is a conditional or unconditional branch with an absolute
// target. The opcode distinguishes 16-bit and 32-bit offset encodings
// (goto vs goto_w, jsr vs jsr_w).
type BranchInsn struct {
	Op     Opcode
	Target ProgramCounter
}

func (i BranchInsn) Opcode() Opcode { return i.Op }
func (i BranchInsn) String() string { return fmt.Sprintf("%s %s", i.Op, i.Target) }
func (BranchInsn) isInstruction()   {}

// TableSwitchInsn is tableswitch with absolute jump targets for the
// contiguous range Low..High.
type TableSwitchInsn struct {
	Default ProgramCounter
	Low     int32
	High    int32
	Targets []ProgramCounter
}

func (TableSwitchInsn) Opcode() Opcode { return OpTableSwitch }
func (i TableSwitchInsn) String() string {
	return fmt.Sprintf("tableswitch %d..%d default %s", i.Low, i.High, i.Default)
}
func (TableSwitchInsn) isInstruction() {}

// LookupSwitchInsn is lookupswitch with sorted match/target pairs.
type LookupSwitchInsn struct {
	Default ProgramCounter
	Matches map[int32]ProgramCounter
}

func (LookupSwitchInsn) Opcode() Opcode { return OpLookupSwitch }
func (i LookupSwitchInsn) String() string {
	keys := make([]int, 0, len(i.Matches))
	for k := range i.Matches {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)
	var sb strings.Builder
	sb.WriteString("lookupswitch {")
	for n, k := range keys {
		if n > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d => %s", k, i.Matches[int32(k)])
	}
	fmt.Fprintf(&sb, "} default %s", i.Default)
	return sb.String()
}
func (LookupSwitchInsn) isInstruction() {}
