// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import "sort"

// InstructionMap is an ordered map from program counter to instruction.
type InstructionMap struct {
	insns map[ProgramCounter]Instruction
	order []ProgramCounter
}

// NewInstructionMap returns an empty instruction map.
func NewInstructionMap() *InstructionMap {
	return &InstructionMap{insns: make(map[ProgramCounter]Instruction)}
}

// Put stores the instruction decoded at pc.
func (m *InstructionMap) Put(pc ProgramCounter, insn Instruction) {
	if _, exists := m.insns[pc]; !exists {
		m.order = append(m.order, pc)
	}
	m.insns[pc] = insn
}

// Get returns the instruction at pc, or nil.
func (m *InstructionMap) Get(pc ProgramCounter) Instruction {
	return m.insns[pc]
}

// Len returns the number of instructions.
func (m *InstructionMap) Len() int {
	return len(m.insns)
}

// PCs returns the program counters in ascending order.
func (m *InstructionMap) PCs() []ProgramCounter {
	out := make([]ProgramCounter, len(m.order))
	copy(out, m.order)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NextPC returns the program counter following pc in the instruction
// stream, i.e. the fall-through location.
func (m *InstructionMap) NextPC(pc ProgramCounter) (ProgramCounter, bool) {
	pcs := m.PCs()
	i := sort.Search(len(pcs), func(i int) bool { return pcs[i] > pc })
	if i == len(pcs) {
		return 0, false
	}
	return pcs[i], true
}

// ExceptionTableEntry covers an inclusive PC range with a handler. A nil
// CatchType denotes a catch-all handler (finally blocks).
type ExceptionTableEntry struct {
	StartPC   ProgramCounter `json:"start_pc"`
	EndPC     ProgramCounter `json:"end_pc"`
	HandlerPC ProgramCounter `json:"handler_pc"`
	CatchType *ClassRef      `json:"catch_type,omitempty"`
}

// Covers reports whether the entry's range contains pc.
func (e ExceptionTableEntry) Covers(pc ProgramCounter) bool {
	return e.StartPC <= pc && pc <= e.EndPC
}

// LineNumberEntry associates an instruction with a source line.
type LineNumberEntry struct {
	StartPC    ProgramCounter `json:"start_pc"`
	LineNumber uint16         `json:"line_number"`
}

// LocalVariableEntry describes a named local variable slot over a PC range.
// Signature carries the generic signature for LocalVariableTypeTable
// entries and is empty for LocalVariableTable entries.
type LocalVariableEntry struct {
	StartPC   ProgramCounter `json:"start_pc"`
	Length    uint16         `json:"length"`
	Name      string         `json:"name"`
	Descriptor string        `json:"descriptor"`
	Signature string         `json:"signature,omitempty"`
	Index     uint16         `json:"index"`
}

// MethodBody is the decoded Code attribute of a method.
type MethodBody struct {
	MaxStack       uint16                `json:"max_stack"`
	MaxLocals      uint16                `json:"max_locals"`
	Instructions   *InstructionMap       `json:"-"`
	ExceptionTable []ExceptionTableEntry `json:"exception_table,omitempty"`

	LineNumbers        []LineNumberEntry    `json:"line_numbers,omitempty"`
	LocalVariables     []LocalVariableEntry `json:"local_variables,omitempty"`
	LocalVariableTypes []LocalVariableEntry `json:"local_variable_types,omitempty"`
	StackMapTable      []StackMapFrame      `json:"-"`

	TypeAnnotations          []TypeAnnotation `json:"-"`
	InvisibleTypeAnnotations []TypeAnnotation `json:"-"`

	// FreeAttributes preserves unrecognized Code sub-attributes verbatim.
	FreeAttributes []RawAttribute `json:"-"`
}

// VerificationType is a verification type tag in a stack map frame.
type VerificationType interface {
	isVerificationType()
}

// Verification types per JVMS §4.7.4.
type (
	// VTTop is the top (unusable) verification type.
	VTTop struct{}
	// VTInteger marks an int-kinded slot.
	VTInteger struct{}
	// VTFloat marks a float slot.
	VTFloat struct{}
	// VTLong marks a long slot pair.
	VTLong struct{}
	// VTDouble marks a double slot pair.
	VTDouble struct{}
	// VTNull marks the null reference.
	VTNull struct{}
	// VTUninitializedThis marks `this` before the constructor call.
	VTUninitializedThis struct{}
	// VTObject marks a reference of a known class.
	VTObject struct {
		Class ClassRef
	}
	// VTUninitialized marks a reference created by a new at Offset.
	VTUninitialized struct {
		Offset ProgramCounter
	}
)

func (VTTop) isVerificationType()               {}
func (VTInteger) isVerificationType()           {}
func (VTFloat) isVerificationType()             {}
func (VTLong) isVerificationType()              {}
func (VTDouble) isVerificationType()            {}
func (VTNull) isVerificationType()              {}
func (VTUninitializedThis) isVerificationType() {}
func (VTObject) isVerificationType()            {}
func (VTUninitialized) isVerificationType()     {}

// StackMapFrame is one frame of a StackMapTable attribute. FrameType keeps
// the raw tag so the frame re-serializes in its original form.
type StackMapFrame struct {
	FrameType   uint8              `json:"frame_type"`
	OffsetDelta uint16             `json:"offset_delta"`
	Locals      []VerificationType `json:"-"`
	Stack       []VerificationType `json:"-"`
}
