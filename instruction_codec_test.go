// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"errors"
	"reflect"
	"testing"
)

// assembleAndReload encodes the instruction map and decodes it again with
// the same pool.
func assembleAndReload(t *testing.T, insns *InstructionMap) *InstructionMap {
	t.Helper()
	cp := NewConstantPool()
	code, err := encodeInstructions(insns, cp)
	if err != nil {
		t.Fatalf("encodeInstructions failed, reason: %v", err)
	}
	reloaded, err := decodeInstructions(code, cp)
	if err != nil {
		t.Fatalf("decodeInstructions failed, reason: %v", err)
	}
	return reloaded
}

func TestInstructionRoundTrip(t *testing.T) {
	desc, _ := ParseMethodDescriptor("(I)I")
	insns := NewInstructionMap()
	put := func(pc ProgramCounter, insn Instruction) {
		insns.Put(pc, insn)
	}
	put(0, SimpleInsn{Op: OpNop})
	put(1, PushInsn{Op: OpBiPush, Value: -7})
	put(3, PushInsn{Op: OpSiPush, Value: 300})
	put(6, LocalInsn{Op: OpILoad0, Index: 0})
	put(7, LocalInsn{Op: OpILoad, Index: 200})
	put(9, LocalInsn{Op: OpIStore, Index: 300, Wide: true})
	put(13, IIncInsn{Index: 2, Increment: -1})
	put(16, IIncInsn{Index: 300, Increment: 1000, Wide: true})
	put(22, BranchInsn{Op: OpGoto, Target: 0})
	put(25, BranchInsn{Op: OpIfICmpLt, Target: 6})
	put(28, FieldInsn{Op: OpGetStatic, Field: FieldRef{
		Owner: ClassRef{BinaryName: "com/example/A"}, Name: "x", Type: TypeInt}})
	put(31, MethodInsn{Op: OpInvokeStatic, Method: MethodRef{
		Owner: ClassRef{BinaryName: "com/example/A"}, Name: "f", Descriptor: desc}})
	put(34, InvokeInterfaceInsn{Method: MethodRef{
		Owner:      ClassRef{BinaryName: "com/example/I"},
		Name:       "g",
		Descriptor: desc,
		Interface:  true,
	}, Count: 2})
	put(39, TypeInsn{Op: OpNew, Class: ClassRef{BinaryName: "com/example/A"}})
	put(42, NewArrayInsn{ElementType: TypeLong})
	put(44, MultiANewArrayInsn{
		Class: ClassRef{BinaryName: "[[I"}, Dimensions: 2})
	put(48, SimpleInsn{Op: OpReturn})

	reloaded := assembleAndReload(t, insns)
	if reloaded.Len() != insns.Len() {
		t.Fatalf("instruction count got %d, want %d", reloaded.Len(), insns.Len())
	}
	for _, pc := range insns.PCs() {
		want := insns.Get(pc)
		got := reloaded.Get(pc)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("instruction at %s got %#v, want %#v", pc, got, want)
		}
	}
}

func TestInstructionRoundTripLoadConst(t *testing.T) {
	insns := NewInstructionMap()
	insns.Put(0, LoadConstInsn{Op: OpLdc, Value: IntegerValue(1000)})
	insns.Put(2, LoadConstInsn{Op: OpLdc2W, Value: LongValue(1 << 40)})
	insns.Put(5, LoadConstInsn{Op: OpLdc2W, Value: DoubleValue(2.5)})
	insns.Put(8, SimpleInsn{Op: OpReturn})

	reloaded := assembleAndReload(t, insns)
	for _, pc := range insns.PCs() {
		if !reflect.DeepEqual(reloaded.Get(pc), insns.Get(pc)) {
			t.Errorf("instruction at %s got %#v, want %#v",
				pc, reloaded.Get(pc), insns.Get(pc))
		}
	}
}

// The switch operand padding depends on the opcode's program counter; try
// every alignment.
func TestSwitchPaddingAlignment(t *testing.T) {
	for pad := ProgramCounter(0); pad < 4; pad++ {
		insns := NewInstructionMap()
		var pc ProgramCounter
		for ; pc < pad; pc++ {
			insns.Put(pc, SimpleInsn{Op: OpNop})
		}
		tableEnd := pc + 1
		for (int(tableEnd))%4 != 0 {
			tableEnd++
		}
		tableEnd += 12 + 8 // default/low/high plus two offsets
		insns.Put(pc, TableSwitchInsn{
			Default: 0,
			Low:     3,
			High:    4,
			Targets: []ProgramCounter{0, pad},
		})
		insns.Put(tableEnd, SimpleInsn{Op: OpReturn})

		reloaded := assembleAndReload(t, insns)
		got := reloaded.Get(pc)
		want := insns.Get(pc)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("pad %d: tableswitch got %#v, want %#v", pad, got, want)
		}
	}
}

func TestLookupSwitchRoundTrip(t *testing.T) {
	insns := NewInstructionMap()
	insns.Put(0, LookupSwitchInsn{
		Default: 36,
		Matches: map[int32]ProgramCounter{
			-10: 36,
			0:   37,
			999: 38,
		},
	})
	insns.Put(36, SimpleInsn{Op: OpNop})
	insns.Put(37, SimpleInsn{Op: OpNop})
	insns.Put(38, SimpleInsn{Op: OpReturn})

	reloaded := assembleAndReload(t, insns)
	if !reflect.DeepEqual(reloaded.Get(0), insns.Get(0)) {
		t.Errorf("lookupswitch got %#v, want %#v", reloaded.Get(0), insns.Get(0))
	}
}

func TestDecodeUnexpectedOpcode(t *testing.T) {
	cp := NewConstantPool()
	_, err := decodeInstructions([]byte{0xCB}, cp)
	var unexpected UnexpectedOpcodeError
	if !errors.As(err, &unexpected) {
		t.Fatalf("decode got %v, want UnexpectedOpcodeError", err)
	}
	if unexpected.Opcode != 0xCB {
		t.Errorf("opcode byte got %#02x, want 0xcb", unexpected.Opcode)
	}
}

func TestDecodeTruncatedInstruction(t *testing.T) {
	cp := NewConstantPool()
	// bipush with its operand byte missing.
	_, err := decodeInstructions([]byte{0x10}, cp)
	var m MalformedClassError
	if !errors.As(err, &m) {
		t.Errorf("decode got %v, want MalformedClassError", err)
	}
}

func TestBranchOffsetOutOfRange(t *testing.T) {
	insns := NewInstructionMap()
	insns.Put(0, BranchInsn{Op: OpIfEq, Target: 0x7FFF + 10})
	cp := NewConstantPool()
	_, err := encodeInstructions(insns, cp)
	if !errors.Is(err, ErrInvalidOffset) {
		t.Errorf("encode got %v, want ErrInvalidOffset", err)
	}
}
