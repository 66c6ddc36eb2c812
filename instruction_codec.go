// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// newarray atype codes per JVMS §6.5.
var arrayTypeCodes = map[uint8]BaseType{
	4:  TypeBoolean,
	5:  TypeChar,
	6:  TypeFloat,
	7:  TypeDouble,
	8:  TypeByte,
	9:  TypeShort,
	10: TypeInt,
	11: TypeLong,
}

var arrayTypeBytes = map[BaseType]uint8{
	TypeBoolean: 4,
	TypeChar:    5,
	TypeFloat:   6,
	TypeDouble:  7,
	TypeByte:    8,
	TypeShort:   9,
	TypeInt:     10,
	TypeLong:    11,
}

// codeReader decodes instructions from a method's code array, tracking the
// byte offset that becomes each instruction's program counter.
type codeReader struct {
	code []byte
	pos  int
}

func (r *codeReader) remaining() int { return len(r.code) - r.pos }

func (r *codeReader) u8() (uint8, error) {
	if r.remaining() < 1 {
		return 0, malformed("truncated instruction at offset %d", r.pos)
	}
	v := r.code[r.pos]
	r.pos++
	return v, nil
}

func (r *codeReader) u16() (uint16, error) {
	if r.remaining() < 2 {
		return 0, malformed("truncated instruction at offset %d", r.pos)
	}
	v := binary.BigEndian.Uint16(r.code[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *codeReader) i16() (int16, error) {
	v, err := r.u16()
	return int16(v), err
}

func (r *codeReader) i32() (int32, error) {
	if r.remaining() < 4 {
		return 0, malformed("truncated instruction at offset %d", r.pos)
	}
	v := binary.BigEndian.Uint32(r.code[r.pos:])
	r.pos += 4
	return int32(v), nil
}

// decodeInstructions decodes a code array into the map from program counter
// to instruction. Branch offsets are converted into absolute targets.
func decodeInstructions(code []byte, cp *ConstantPool) (*InstructionMap, error) {
	if len(code) > 0xFFFF+1 {
		return nil, malformed("code array of %d bytes exceeds the PC range", len(code))
	}
	r := &codeReader{code: code}
	insns := NewInstructionMap()
	for r.remaining() > 0 {
		pc := ProgramCounter(r.pos)
		insn, err := decodeInstruction(r, pc, cp)
		if err != nil {
			return nil, err
		}
		insns.Put(pc, insn)
	}
	return insns, nil
}

func decodeInstruction(r *codeReader, pc ProgramCounter, cp *ConstantPool) (Instruction, error) {
	b, err := r.u8()
	if err != nil {
		return nil, err
	}
	op := Opcode(b)
	if !op.IsDefined() {
		return nil, UnexpectedOpcodeError{Opcode: b}
	}
	switch op {
	case OpBiPush:
		v, err := r.u8()
		return PushInsn{Op: op, Value: int32(int8(v))}, err
	case OpSiPush:
		v, err := r.i16()
		return PushInsn{Op: op, Value: int32(v)}, err

	case OpLdc:
		idx, err := r.u8()
		if err != nil {
			return nil, err
		}
		value, err := cp.GetConstantValue(uint16(idx))
		return LoadConstInsn{Op: op, Value: value}, err
	case OpLdcW, OpLdc2W:
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		value, err := cp.GetConstantValue(idx)
		return LoadConstInsn{Op: op, Value: value}, err

	case OpILoad, OpLLoad, OpFLoad, OpDLoad, OpALoad,
		OpIStore, OpLStore, OpFStore, OpDStore, OpAStore, OpRet:
		idx, err := r.u8()
		return LocalInsn{Op: op, Index: uint16(idx)}, err

	// The fixed-slot short forms decode to LocalInsn so consumers see a
	// uniform load/store shape; the recorded opcode keeps the one-byte
	// encoding on write.
	case OpILoad0, OpILoad1, OpILoad2, OpILoad3,
		OpLLoad0, OpLLoad1, OpLLoad2, OpLLoad3,
		OpFLoad0, OpFLoad1, OpFLoad2, OpFLoad3,
		OpDLoad0, OpDLoad1, OpDLoad2, OpDLoad3,
		OpALoad0, OpALoad1, OpALoad2, OpALoad3:
		return LocalInsn{Op: op, Index: uint16(op-OpILoad0) % 4}, nil
	case OpIStore0, OpIStore1, OpIStore2, OpIStore3,
		OpLStore0, OpLStore1, OpLStore2, OpLStore3,
		OpFStore0, OpFStore1, OpFStore2, OpFStore3,
		OpDStore0, OpDStore1, OpDStore2, OpDStore3,
		OpAStore0, OpAStore1, OpAStore2, OpAStore3:
		return LocalInsn{Op: op, Index: uint16(op-OpIStore0) % 4}, nil

	case OpIInc:
		idx, err := r.u8()
		if err != nil {
			return nil, err
		}
		inc, err := r.u8()
		return IIncInsn{Index: uint16(idx), Increment: int16(int8(inc))}, err

	case OpWide:
		return decodeWide(r)

	case OpIfEq, OpIfNe, OpIfLt, OpIfGe, OpIfGt, OpIfLe,
		OpIfICmpEq, OpIfICmpNe, OpIfICmpLt, OpIfICmpGe, OpIfICmpGt,
		OpIfICmpLe, OpIfACmpEq, OpIfACmpNe, OpGoto, OpJsr,
		OpIfNull, OpIfNonNull:
		offset, err := r.i16()
		if err != nil {
			return nil, err
		}
		target, err := pc.Offset(int32(offset))
		return BranchInsn{Op: op, Target: target}, err
	case OpGotoW, OpJsrW:
		offset, err := r.i32()
		if err != nil {
			return nil, err
		}
		target, err := pc.Offset(offset)
		return BranchInsn{Op: op, Target: target}, err

	case OpTableSwitch:
		if err := skipSwitchPadding(r); err != nil {
			return nil, err
		}
		defaultOff, err := r.i32()
		if err != nil {
			return nil, err
		}
		low, err := r.i32()
		if err != nil {
			return nil, err
		}
		high, err := r.i32()
		if err != nil {
			return nil, err
		}
		if low > high {
			return nil, malformed("tableswitch low %d above high %d", low, high)
		}
		defaultPC, err := pc.Offset(defaultOff)
		if err != nil {
			return nil, err
		}
		count := int64(high) - int64(low) + 1
		targets := make([]ProgramCounter, 0, count)
		for i := int64(0); i < count; i++ {
			off, err := r.i32()
			if err != nil {
				return nil, err
			}
			target, err := pc.Offset(off)
			if err != nil {
				return nil, err
			}
			targets = append(targets, target)
		}
		return TableSwitchInsn{
			Default: defaultPC, Low: low, High: high, Targets: targets}, nil

	case OpLookupSwitch:
		if err := skipSwitchPadding(r); err != nil {
			return nil, err
		}
		defaultOff, err := r.i32()
		if err != nil {
			return nil, err
		}
		defaultPC, err := pc.Offset(defaultOff)
		if err != nil {
			return nil, err
		}
		npairs, err := r.i32()
		if err != nil {
			return nil, err
		}
		if npairs < 0 {
			return nil, malformed("lookupswitch with negative pair count %d", npairs)
		}
		matches := make(map[int32]ProgramCounter, npairs)
		for i := int32(0); i < npairs; i++ {
			match, err := r.i32()
			if err != nil {
				return nil, err
			}
			off, err := r.i32()
			if err != nil {
				return nil, err
			}
			target, err := pc.Offset(off)
			if err != nil {
				return nil, err
			}
			matches[match] = target
		}
		return LookupSwitchInsn{Default: defaultPC, Matches: matches}, nil

	case OpGetStatic, OpPutStatic, OpGetField, OpPutField:
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		field, err := cp.GetFieldRef(idx)
		return FieldInsn{Op: op, Field: field}, err

	case OpInvokeVirtual, OpInvokeSpecial, OpInvokeStatic:
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		method, err := cp.GetMethodRef(idx)
		return MethodInsn{Op: op, Method: method}, err

	case OpInvokeInterface:
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		method, err := cp.GetMethodRef(idx)
		if err != nil {
			return nil, err
		}
		count, err := r.u8()
		if err != nil {
			return nil, err
		}
		zero, err := r.u8()
		if err != nil {
			return nil, err
		}
		if zero != 0 {
			return nil, malformed("invokeinterface fourth operand byte is %d, not zero", zero)
		}
		return InvokeInterfaceInsn{Method: method, Count: count}, nil

	case OpInvokeDynamic:
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		zero, err := r.u16()
		if err != nil {
			return nil, err
		}
		if zero != 0 {
			return nil, malformed("invokedynamic trailing operand bytes are %d, not zero", zero)
		}
		entry, err := cp.entry(idx)
		if err != nil {
			return nil, err
		}
		indy, ok := entry.(ConstantInvokeDynamic)
		if !ok {
			return nil, MismatchedKindError{Expected: "InvokeDynamic", Found: entry.Kind()}
		}
		nt, err := cp.GetNameAndType(indy.NameAndTypeIndex)
		if err != nil {
			return nil, err
		}
		desc, err := ParseMethodDescriptor(nt.Descriptor)
		if err != nil {
			return nil, err
		}
		return InvokeDynamicInsn{
			BootstrapMethodIndex: indy.BootstrapMethodAttrIndex,
			Name:                 nt.Name,
			Descriptor:           desc,
		}, nil

	case OpNew, OpANewArray, OpCheckCast, OpInstanceOf:
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		class, err := cp.GetClassRef(idx)
		return TypeInsn{Op: op, Class: class}, err

	case OpNewArray:
		atype, err := r.u8()
		if err != nil {
			return nil, err
		}
		elem, ok := arrayTypeCodes[atype]
		if !ok {
			return nil, malformed("newarray atype %d", atype)
		}
		return NewArrayInsn{ElementType: elem}, nil

	case OpMultiANewArray:
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		class, err := cp.GetClassRef(idx)
		if err != nil {
			return nil, err
		}
		dims, err := r.u8()
		if err != nil {
			return nil, err
		}
		if dims == 0 {
			return nil, malformed("multianewarray with zero dimensions")
		}
		return MultiANewArrayInsn{Class: class, Dimensions: dims}, nil

	default:
		return SimpleInsn{Op: op}, nil
	}
}

// decodeWide reinterprets the next opcode with 16-bit operand widths.
func decodeWide(r *codeReader) (Instruction, error) {
	b, err := r.u8()
	if err != nil {
		return nil, err
	}
	op := Opcode(b)
	switch op {
	case OpILoad, OpLLoad, OpFLoad, OpDLoad, OpALoad,
		OpIStore, OpLStore, OpFStore, OpDStore, OpAStore, OpRet:
		idx, err := r.u16()
		return LocalInsn{Op: op, Index: idx, Wide: true}, err
	case OpIInc:
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		inc, err := r.i16()
		return IIncInsn{Index: idx, Increment: inc, Wide: true}, err
	default:
		return nil, UnexpectedOpcodeError{Opcode: b}
	}
}

// skipSwitchPadding consumes 0-3 pad bytes so the following operands start
// at a 4-byte boundary from the start of the code array.
func skipSwitchPadding(r *codeReader) error {
	for r.pos%4 != 0 {
		if _, err := r.u8(); err != nil {
			return err
		}
	}
	return nil
}

// encodeInstructions serializes the instruction map back into a code array,
// registering referenced constants in the pool. Instructions are written at
// their recorded program counters; the encoding of every supported shape is
// deterministic, so the offsets line up by construction.
func encodeInstructions(insns *InstructionMap, cp *ConstantPool) ([]byte, error) {
	var buf bytes.Buffer
	for _, pc := range insns.PCs() {
		if int(pc) != buf.Len() {
			return nil, malformed("instruction at %s does not follow its "+
				"predecessor (writer is at offset %d)", pc, buf.Len())
		}
		if err := encodeInstruction(&buf, pc, insns.Get(pc), cp); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func relativeOffset16(pc, target ProgramCounter) (int16, error) {
	delta := int32(target) - int32(pc)
	if delta < -0x8000 || delta > 0x7FFF {
		return 0, ErrInvalidOffset
	}
	return int16(delta), nil
}

func encodeInstruction(buf *bytes.Buffer, pc ProgramCounter, insn Instruction, cp *ConstantPool) error {
	w := func(v ...byte) { buf.Write(v) }
	w16 := func(v uint16) {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], v)
		buf.Write(b[:])
	}
	w32 := func(v uint32) {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		buf.Write(b[:])
	}

	switch i := insn.(type) {
	case SimpleInsn:
		w(byte(i.Op))

	case PushInsn:
		w(byte(i.Op))
		if i.Op == OpBiPush {
			w(byte(int8(i.Value)))
		} else {
			w16(uint16(int16(i.Value)))
		}

	case LoadConstInsn:
		idx, err := cp.putConstantValue(i.Value)
		if err != nil {
			return err
		}
		switch i.Op {
		case OpLdc:
			if idx > 0xFF {
				return malformed("ldc constant landed at pool index %d, "+
					"which needs ldc_w", idx)
			}
			w(byte(OpLdc), byte(idx))
		default:
			w(byte(i.Op))
			w16(idx)
		}

	case LocalInsn:
		if i.Wide {
			w(byte(OpWide), byte(i.Op))
			w16(i.Index)
		} else if short, ok := shortFormLocal(i.Op, i.Index); ok {
			w(byte(short))
		} else {
			w(byte(i.Op), byte(i.Index))
		}

	case IIncInsn:
		if i.Wide {
			w(byte(OpWide), byte(OpIInc))
			w16(i.Index)
			w16(uint16(i.Increment))
		} else {
			w(byte(OpIInc), byte(i.Index), byte(int8(i.Increment)))
		}

	case BranchInsn:
		switch i.Op {
		case OpGotoW, OpJsrW:
			w(byte(i.Op))
			w32(uint32(int32(i.Target) - int32(pc)))
		default:
			off, err := relativeOffset16(pc, i.Target)
			if err != nil {
				return err
			}
			w(byte(i.Op))
			w16(uint16(off))
		}

	case TableSwitchInsn:
		w(byte(OpTableSwitch))
		for buf.Len()%4 != 0 {
			w(0)
		}
		w32(uint32(int32(i.Default) - int32(pc)))
		w32(uint32(i.Low))
		w32(uint32(i.High))
		for _, target := range i.Targets {
			w32(uint32(int32(target) - int32(pc)))
		}

	case LookupSwitchInsn:
		w(byte(OpLookupSwitch))
		for buf.Len()%4 != 0 {
			w(0)
		}
		w32(uint32(int32(i.Default) - int32(pc)))
		matches := make([]int, 0, len(i.Matches))
		for match := range i.Matches {
			matches = append(matches, int(match))
		}
		sort.Ints(matches)
		w32(uint32(len(matches)))
		for _, match := range matches {
			w32(uint32(int32(match)))
			w32(uint32(int32(i.Matches[int32(match)]) - int32(pc)))
		}

	case FieldInsn:
		w(byte(i.Op))
		w16(cp.putFieldRef(i.Field))

	case MethodInsn:
		w(byte(i.Op))
		w16(cp.putMethodRef(i.Method))

	case InvokeInterfaceInsn:
		w(byte(OpInvokeInterface))
		method := i.Method
		method.Interface = true
		w16(cp.putMethodRef(method))
		w(i.Count, 0)

	case InvokeDynamicInsn:
		ntIdx := cp.putNameAndType(i.Name, i.Descriptor.Descriptor())
		idx := cp.Put(ConstantInvokeDynamic{
			BootstrapMethodAttrIndex: i.BootstrapMethodIndex,
			NameAndTypeIndex:         ntIdx,
		})
		w(byte(OpInvokeDynamic))
		w16(idx)
		w(0, 0)

	case TypeInsn:
		w(byte(i.Op))
		w16(cp.putClass(i.Class))

	case NewArrayInsn:
		w(byte(OpNewArray), arrayTypeBytes[i.ElementType])

	case MultiANewArrayInsn:
		w(byte(OpMultiANewArray))
		w16(cp.putClass(i.Class))
		w(i.Dimensions)

	default:
		panic("jclass: instruction of unknown concrete type")
	}
	return nil
}

// shortFormLocal maps a short-form load or store opcode back to itself.
// Decoded short forms keep their original opcode, so a LocalInsn carrying
// one is re-encoded as the single opcode byte.
func shortFormLocal(op Opcode, index uint16) (Opcode, bool) {
	switch {
	case op >= OpILoad0 && op <= OpALoad3, op >= OpIStore0 && op <= OpAStore3:
		return op, true
	default:
		return 0, false
	}
}
