// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ir

import (
	jclass "github.com/saferwall/jclass"
)

// mathShape describes the operand and result widths of an arithmetic
// opcode.
type mathShape struct {
	op         MathOp
	dualA      bool
	dualB      bool
	dualResult bool
	nan        NaNTreatment
}

var mathShapes = map[jclass.Opcode]mathShape{
	jclass.OpIAdd: {op: MathAdd},
	jclass.OpLAdd: {op: MathAdd, dualA: true, dualB: true, dualResult: true},
	jclass.OpFAdd: {op: MathAdd},
	jclass.OpDAdd: {op: MathAdd, dualA: true, dualB: true, dualResult: true},
	jclass.OpISub: {op: MathSubtract},
	jclass.OpLSub: {op: MathSubtract, dualA: true, dualB: true, dualResult: true},
	jclass.OpFSub: {op: MathSubtract},
	jclass.OpDSub: {op: MathSubtract, dualA: true, dualB: true, dualResult: true},
	jclass.OpIMul: {op: MathMultiply},
	jclass.OpLMul: {op: MathMultiply, dualA: true, dualB: true, dualResult: true},
	jclass.OpFMul: {op: MathMultiply},
	jclass.OpDMul: {op: MathMultiply, dualA: true, dualB: true, dualResult: true},
	jclass.OpIDiv: {op: MathDivide},
	jclass.OpLDiv: {op: MathDivide, dualA: true, dualB: true, dualResult: true},
	jclass.OpFDiv: {op: MathDivide},
	jclass.OpDDiv: {op: MathDivide, dualA: true, dualB: true, dualResult: true},
	jclass.OpIRem: {op: MathRemainder},
	jclass.OpLRem: {op: MathRemainder, dualA: true, dualB: true, dualResult: true},
	jclass.OpFRem: {op: MathRemainder},
	jclass.OpDRem: {op: MathRemainder, dualA: true, dualB: true, dualResult: true},

	// The shift amount of a long shift is an int and takes one slot.
	jclass.OpIShl:  {op: MathShiftLeft},
	jclass.OpLShl:  {op: MathShiftLeft, dualA: true, dualResult: true},
	jclass.OpIShr:  {op: MathShiftRight},
	jclass.OpLShr:  {op: MathShiftRight, dualA: true, dualResult: true},
	jclass.OpIUShr: {op: MathLogicalShiftRight},
	jclass.OpLUShr: {op: MathLogicalShiftRight, dualA: true, dualResult: true},

	jclass.OpIAnd: {op: MathBitwiseAnd},
	jclass.OpLAnd: {op: MathBitwiseAnd, dualA: true, dualB: true, dualResult: true},
	jclass.OpIOr:  {op: MathBitwiseOr},
	jclass.OpLOr:  {op: MathBitwiseOr, dualA: true, dualB: true, dualResult: true},
	jclass.OpIXor: {op: MathBitwiseXor},
	jclass.OpLXor: {op: MathBitwiseXor, dualA: true, dualB: true, dualResult: true},

	jclass.OpLCmp:  {op: MathLongComparison, dualA: true, dualB: true},
	jclass.OpFCmpL: {op: MathFloatComparison, nan: NaNIsSmallest},
	jclass.OpFCmpG: {op: MathFloatComparison, nan: NaNIsLargest},
	jclass.OpDCmpL: {op: MathFloatComparison, dualA: true, dualB: true, nan: NaNIsSmallest},
	jclass.OpDCmpG: {op: MathFloatComparison, dualA: true, dualB: true, nan: NaNIsLargest},
}

// conversionShape describes the operand and result widths of a primitive
// conversion opcode.
type conversionShape struct {
	op         ConversionOp
	dualIn     bool
	dualResult bool
}

var conversionShapes = map[jclass.Opcode]conversionShape{
	jclass.OpI2L: {op: ConvInt2Long, dualResult: true},
	jclass.OpI2F: {op: ConvInt2Float},
	jclass.OpI2D: {op: ConvInt2Double, dualResult: true},
	jclass.OpL2I: {op: ConvLong2Int, dualIn: true},
	jclass.OpL2F: {op: ConvLong2Float, dualIn: true},
	jclass.OpL2D: {op: ConvLong2Double, dualIn: true, dualResult: true},
	jclass.OpF2I: {op: ConvFloat2Int},
	jclass.OpF2L: {op: ConvFloat2Long, dualResult: true},
	jclass.OpF2D: {op: ConvFloat2Double, dualResult: true},
	jclass.OpD2I: {op: ConvDouble2Int, dualIn: true},
	jclass.OpD2L: {op: ConvDouble2Long, dualIn: true, dualResult: true},
	jclass.OpD2F: {op: ConvDouble2Float, dualIn: true},
	jclass.OpI2B: {op: ConvInt2Byte},
	jclass.OpI2C: {op: ConvInt2Char},
	jclass.OpI2S: {op: ConvInt2Short},
}

// wideArrayAccess tells whether an array load or store moves a two-slot
// element.
var wideArrayAccess = map[jclass.Opcode]bool{
	jclass.OpLALoad:  true,
	jclass.OpDALoad:  true,
	jclass.OpLAStore: true,
	jclass.OpDAStore: true,
}

// simpleConstants maps the constant-pushing opcodes to their values.
var simpleConstants = map[jclass.Opcode]struct {
	value jclass.ConstantValue
	dual  bool
}{
	jclass.OpAConstNull: {value: jclass.NullValue{}},
	jclass.OpIConstM1:   {value: jclass.IntegerValue(-1)},
	jclass.OpIConst0:    {value: jclass.IntegerValue(0)},
	jclass.OpIConst1:    {value: jclass.IntegerValue(1)},
	jclass.OpIConst2:    {value: jclass.IntegerValue(2)},
	jclass.OpIConst3:    {value: jclass.IntegerValue(3)},
	jclass.OpIConst4:    {value: jclass.IntegerValue(4)},
	jclass.OpIConst5:    {value: jclass.IntegerValue(5)},
	jclass.OpLConst0:    {value: jclass.LongValue(0), dual: true},
	jclass.OpLConst1:    {value: jclass.LongValue(1), dual: true},
	jclass.OpFConst0:    {value: jclass.FloatValue(0)},
	jclass.OpFConst1:    {value: jclass.FloatValue(1)},
	jclass.OpFConst2:    {value: jclass.FloatValue(2)},
	jclass.OpDConst0:    {value: jclass.DoubleValue(0), dual: true},
	jclass.OpDConst1:    {value: jclass.DoubleValue(1), dual: true},
}

// executeSimple lifts the no-operand opcodes.
func (l *lifter) executeSimple(pc jclass.ProgramCounter, op jclass.Opcode, frame *Frame) ([]successor, error) {
	if c, ok := simpleConstants[op]; ok {
		v := l.define(pc, ConstExpr{Value: c.value})
		if err := frame.PushValue(v, c.dual); err != nil {
			return nil, err
		}
		return l.fallThrough(pc, frame)
	}

	if shape, ok := mathShapes[op]; ok {
		b, err := frame.PopValue(shape.dualB)
		if err != nil {
			return nil, err
		}
		a, err := frame.PopValue(shape.dualA)
		if err != nil {
			return nil, err
		}
		v := l.define(pc, MathExpr{Op: shape.op, A: a, B: b, NaN: shape.nan})
		if err := frame.PushValue(v, shape.dualResult); err != nil {
			return nil, err
		}
		return l.fallThrough(pc, frame)
	}

	if shape, ok := conversionShapes[op]; ok {
		value, err := frame.PopValue(shape.dualIn)
		if err != nil {
			return nil, err
		}
		v := l.define(pc, ConversionExpr{Op: shape.op, Operand: value})
		if err := frame.PushValue(v, shape.dualResult); err != nil {
			return nil, err
		}
		return l.fallThrough(pc, frame)
	}

	switch op {
	case jclass.OpNop:
		l.emit(pc, Nop{})
		return l.fallThrough(pc, frame)

	case jclass.OpINeg, jclass.OpFNeg:
		value, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		v := l.define(pc, MathExpr{Op: MathNegate, A: value})
		if err := frame.PushValue(v, false); err != nil {
			return nil, err
		}
		return l.fallThrough(pc, frame)

	case jclass.OpLNeg, jclass.OpDNeg:
		value, err := frame.PopValue(true)
		if err != nil {
			return nil, err
		}
		v := l.define(pc, MathExpr{Op: MathNegate, A: value})
		if err := frame.PushValue(v, true); err != nil {
			return nil, err
		}
		return l.fallThrough(pc, frame)

	case jclass.OpIALoad, jclass.OpLALoad, jclass.OpFALoad, jclass.OpDALoad,
		jclass.OpAALoad, jclass.OpBALoad, jclass.OpCALoad, jclass.OpSALoad:
		index, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		array, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		v := l.define(pc, ArrayExpr{Op: ArrayRead, Array: array, Index: index})
		if err := frame.PushValue(v, wideArrayAccess[op]); err != nil {
			return nil, err
		}
		return l.fallThrough(pc, frame)

	case jclass.OpIAStore, jclass.OpLAStore, jclass.OpFAStore, jclass.OpDAStore,
		jclass.OpAAStore, jclass.OpBAStore, jclass.OpCAStore, jclass.OpSAStore:
		value, err := frame.PopValue(wideArrayAccess[op])
		if err != nil {
			return nil, err
		}
		index, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		array, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		l.define(pc, ArrayExpr{
			Op: ArrayWrite, Array: array, Index: index, Value: value})
		return l.fallThrough(pc, frame)

	case jclass.OpArrayLength:
		array, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		v := l.define(pc, ArrayExpr{Op: ArrayLength, Array: array})
		if err := frame.PushValue(v, false); err != nil {
			return nil, err
		}
		return l.fallThrough(pc, frame)

	case jclass.OpPop:
		if err := frame.Pop(); err != nil {
			return nil, err
		}
		l.emit(pc, Nop{})
		return l.fallThrough(pc, frame)
	case jclass.OpPop2:
		if err := frame.Pop2(); err != nil {
			return nil, err
		}
		l.emit(pc, Nop{})
		return l.fallThrough(pc, frame)
	case jclass.OpDup:
		if err := frame.Dup(); err != nil {
			return nil, err
		}
		l.emit(pc, Nop{})
		return l.fallThrough(pc, frame)
	case jclass.OpDupX1:
		if err := frame.DupX1(); err != nil {
			return nil, err
		}
		l.emit(pc, Nop{})
		return l.fallThrough(pc, frame)
	case jclass.OpDupX2:
		if err := frame.DupX2(); err != nil {
			return nil, err
		}
		l.emit(pc, Nop{})
		return l.fallThrough(pc, frame)
	case jclass.OpDup2:
		if err := frame.Dup2(); err != nil {
			return nil, err
		}
		l.emit(pc, Nop{})
		return l.fallThrough(pc, frame)
	case jclass.OpDup2X1:
		if err := frame.Dup2X1(); err != nil {
			return nil, err
		}
		l.emit(pc, Nop{})
		return l.fallThrough(pc, frame)
	case jclass.OpDup2X2:
		if err := frame.Dup2X2(); err != nil {
			return nil, err
		}
		l.emit(pc, Nop{})
		return l.fallThrough(pc, frame)
	case jclass.OpSwap:
		if err := frame.Swap(); err != nil {
			return nil, err
		}
		l.emit(pc, Nop{})
		return l.fallThrough(pc, frame)

	case jclass.OpIReturn, jclass.OpFReturn, jclass.OpAReturn:
		value, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		l.emit(pc, Return{Value: &value})
		return nil, nil
	case jclass.OpLReturn, jclass.OpDReturn:
		value, err := frame.PopValue(true)
		if err != nil {
			return nil, err
		}
		l.emit(pc, Return{Value: &value})
		return nil, nil
	case jclass.OpReturn:
		l.emit(pc, Return{})
		return nil, nil

	case jclass.OpAThrow:
		value, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		l.define(pc, ThrowExpr{Operand: value})
		return nil, nil

	case jclass.OpMonitorEnter:
		value, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		l.define(pc, MonitorExpr{Enter: true, Operand: value})
		return l.fallThrough(pc, frame)
	case jclass.OpMonitorExit:
		value, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		l.define(pc, MonitorExpr{Enter: false, Operand: value})
		return l.fallThrough(pc, frame)

	default:
		// breakpoint and the impdep opcodes are reserved and never appear
		// in a well-formed class file.
		return nil, jclass.UnexpectedOpcodeError{Opcode: uint8(op)}
	}
}
