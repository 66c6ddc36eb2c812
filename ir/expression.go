// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ir

import (
	"fmt"
	"strings"

	jclass "github.com/saferwall/jclass"
)

// Expression is the right-hand side of a definition. It may or may not
// produce a value. The set of implementations is closed.
type Expression interface {
	// Uses returns the identifiers the expression reads.
	Uses() []Identifier

	fmt.Stringer

	isExpression()
}

// ConstExpr is a constant value.
type ConstExpr struct {
	Value jclass.ConstantValue
}

func (e ConstExpr) Uses() []Identifier { return nil }
func (e ConstExpr) String() string     { return e.Value.String() }
func (ConstExpr) isExpression()        {}

// CallKind discriminates the four JVM invocation styles.
type CallKind uint8

// Call kinds.
const (
	CallStatic CallKind = iota
	CallVirtual
	CallSpecial
	CallInterface
)

// CallExpr is a method call. Receiver is nil for static calls.
type CallExpr struct {
	Kind     CallKind
	Method   jclass.MethodRef
	Receiver *Operand
	Args     []Operand
}

func (e CallExpr) Uses() []Identifier {
	var uses []Identifier
	if e.Receiver != nil {
		uses = append(uses, e.Receiver.Identifiers()...)
	}
	for _, arg := range e.Args {
		uses = append(uses, arg.Identifiers()...)
	}
	return uses
}

func (e CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i, arg := range e.Args {
		args[i] = arg.String()
	}
	if e.Receiver == nil {
		return fmt.Sprintf("call %s(%s)", e.Method, strings.Join(args, ", "))
	}
	return fmt.Sprintf("call %s@%s::%s(%s)",
		e.Receiver, e.Method.Owner, e.Method.Name, strings.Join(args, ", "))
}
func (CallExpr) isExpression() {}

// ClosureExpr is an invokedynamic call site: a bootstrap method reference
// plus the operands it captures.
type ClosureExpr struct {
	Name                 string
	BootstrapMethodIndex uint16
	Captures             []Operand
	Descriptor           jclass.MethodDescriptor
}

func (e ClosureExpr) Uses() []Identifier {
	var uses []Identifier
	for _, capture := range e.Captures {
		uses = append(uses, capture.Identifiers()...)
	}
	return uses
}

func (e ClosureExpr) String() string {
	captures := make([]string, len(e.Captures))
	for i, capture := range e.Captures {
		captures[i] = capture.String()
	}
	return fmt.Sprintf("closure %s#%d(%s)",
		e.Name, e.BootstrapMethodIndex, strings.Join(captures, ", "))
}
func (ClosureExpr) isExpression() {}

// MathOp discriminates the arithmetic operations.
type MathOp uint8

// Arithmetic operations.
const (
	MathAdd MathOp = iota
	MathSubtract
	MathMultiply
	MathDivide
	MathRemainder
	MathNegate
	MathIncrement
	MathShiftLeft
	MathShiftRight
	MathLogicalShiftRight
	MathBitwiseAnd
	MathBitwiseOr
	MathBitwiseXor
	MathLongComparison
	MathFloatComparison
)

// NaNTreatment tells how a floating point comparison ranks NaN.
type NaNTreatment uint8

// NaN treatments of fcmpg/fcmpl and dcmpg/dcmpl.
const (
	NaNIsLargest NaNTreatment = iota
	NaNIsSmallest
)

// MathExpr is an arithmetic operation. B is unused for the unary
// operations; Increment carries the iinc constant; NaN applies only to
// MathFloatComparison.
type MathExpr struct {
	Op        MathOp
	A         Operand
	B         Operand
	Increment int32
	NaN       NaNTreatment
}

func (e MathExpr) Uses() []Identifier {
	uses := e.A.Identifiers()
	if e.Op != MathNegate && e.Op != MathIncrement {
		uses = append(uses, e.B.Identifiers()...)
	}
	return uses
}

func (e MathExpr) String() string {
	switch e.Op {
	case MathAdd:
		return fmt.Sprintf("%s + %s", e.A, e.B)
	case MathSubtract:
		return fmt.Sprintf("%s - %s", e.A, e.B)
	case MathMultiply:
		return fmt.Sprintf("%s * %s", e.A, e.B)
	case MathDivide:
		return fmt.Sprintf("%s / %s", e.A, e.B)
	case MathRemainder:
		return fmt.Sprintf("%s mod %s", e.A, e.B)
	case MathNegate:
		return fmt.Sprintf("-%s", e.A)
	case MathIncrement:
		return fmt.Sprintf("%s + %d", e.A, e.Increment)
	case MathShiftLeft:
		return fmt.Sprintf("%s << %s", e.A, e.B)
	case MathShiftRight:
		return fmt.Sprintf("%s >> %s", e.A, e.B)
	case MathLogicalShiftRight:
		return fmt.Sprintf("%s >>> %s", e.A, e.B)
	case MathBitwiseAnd:
		return fmt.Sprintf("%s & %s", e.A, e.B)
	case MathBitwiseOr:
		return fmt.Sprintf("%s | %s", e.A, e.B)
	case MathBitwiseXor:
		return fmt.Sprintf("%s ^ %s", e.A, e.B)
	case MathLongComparison:
		return fmt.Sprintf("cmp(%s, %s)", e.A, e.B)
	case MathFloatComparison:
		if e.NaN == NaNIsLargest {
			return fmt.Sprintf("cmp(%s, %s) nan is largest", e.A, e.B)
		}
		return fmt.Sprintf("cmp(%s, %s) nan is smallest", e.A, e.B)
	default:
		return "<invalid math op>"
	}
}
func (MathExpr) isExpression() {}

// FieldAccessKind discriminates field accesses.
type FieldAccessKind uint8

// Field access kinds.
const (
	FieldReadStatic FieldAccessKind = iota
	FieldWriteStatic
	FieldReadInstance
	FieldWriteInstance
)

// FieldExpr is a field read or write. Object is set for instance accesses
// and Value for writes.
type FieldExpr struct {
	Access FieldAccessKind
	Field  jclass.FieldRef
	Object Operand
	Value  Operand
}

func (e FieldExpr) Uses() []Identifier {
	switch e.Access {
	case FieldReadStatic:
		return nil
	case FieldWriteStatic:
		return e.Value.Identifiers()
	case FieldReadInstance:
		return e.Object.Identifiers()
	default:
		return append(e.Object.Identifiers(), e.Value.Identifiers()...)
	}
}

func (e FieldExpr) String() string {
	switch e.Access {
	case FieldReadStatic:
		return fmt.Sprintf("read %s", e.Field)
	case FieldWriteStatic:
		return fmt.Sprintf("write %s, %s", e.Field, e.Value)
	case FieldReadInstance:
		return fmt.Sprintf("read %s.%s", e.Object, e.Field.Name)
	default:
		return fmt.Sprintf("write %s.%s, %s", e.Object, e.Field.Name, e.Value)
	}
}
func (FieldExpr) isExpression() {}

// ArrayOp discriminates the array operations.
type ArrayOp uint8

// Array operations.
const (
	ArrayNew ArrayOp = iota
	ArrayNewMultiDim
	ArrayRead
	ArrayWrite
	ArrayLength
)

// ArrayExpr is an array operation. The populated fields depend on Op.
type ArrayExpr struct {
	Op          ArrayOp
	ElementType jclass.FieldType
	Length      Operand
	Dimensions  []Operand
	Array       Operand
	Index       Operand
	Value       Operand
}

func (e ArrayExpr) Uses() []Identifier {
	switch e.Op {
	case ArrayNew:
		return e.Length.Identifiers()
	case ArrayNewMultiDim:
		var uses []Identifier
		for _, dim := range e.Dimensions {
			uses = append(uses, dim.Identifiers()...)
		}
		return uses
	case ArrayRead:
		return append(e.Array.Identifiers(), e.Index.Identifiers()...)
	case ArrayWrite:
		uses := append(e.Array.Identifiers(), e.Index.Identifiers()...)
		return append(uses, e.Value.Identifiers()...)
	default:
		return e.Array.Identifiers()
	}
}

func (e ArrayExpr) String() string {
	switch e.Op {
	case ArrayNew:
		return fmt.Sprintf("new %s[%s]", e.ElementType.Descriptor(), e.Length)
	case ArrayNewMultiDim:
		dims := make([]string, len(e.Dimensions))
		for i, dim := range e.Dimensions {
			dims[i] = dim.String()
		}
		return fmt.Sprintf("new %s[%s]", e.ElementType.Descriptor(),
			strings.Join(dims, ", "))
	case ArrayRead:
		return fmt.Sprintf("%s[%s]", e.Array, e.Index)
	case ArrayWrite:
		return fmt.Sprintf("%s[%s] = %s", e.Array, e.Index, e.Value)
	default:
		return fmt.Sprintf("array_len(%s)", e.Array)
	}
}
func (ArrayExpr) isExpression() {}

// ConversionOp discriminates the type conversions: the fifteen primitive
// conversions plus checkcast and instanceof.
type ConversionOp uint8

// Conversion operations.
const (
	ConvInt2Long ConversionOp = iota
	ConvInt2Float
	ConvInt2Double
	ConvLong2Int
	ConvLong2Float
	ConvLong2Double
	ConvFloat2Int
	ConvFloat2Long
	ConvFloat2Double
	ConvDouble2Int
	ConvDouble2Long
	ConvDouble2Float
	ConvInt2Byte
	ConvInt2Char
	ConvInt2Short
	ConvCheckCast
	ConvInstanceOf
)

var conversionNames = map[ConversionOp]string{
	ConvInt2Long:     "int -> long",
	ConvInt2Float:    "int -> float",
	ConvInt2Double:   "int -> double",
	ConvLong2Int:     "long -> int",
	ConvLong2Float:   "long -> float",
	ConvLong2Double:  "long -> double",
	ConvFloat2Int:    "float -> int",
	ConvFloat2Long:   "float -> long",
	ConvFloat2Double: "float -> double",
	ConvDouble2Int:   "double -> int",
	ConvDouble2Long:  "double -> long",
	ConvDouble2Float: "double -> float",
	ConvInt2Byte:     "int -> byte",
	ConvInt2Char:     "int -> char",
	ConvInt2Short:    "int -> short",
}

// ConversionExpr converts an operand. Target is set for checkcast and
// instanceof.
type ConversionExpr struct {
	Op      ConversionOp
	Operand Operand
	Target  jclass.FieldType
}

func (e ConversionExpr) Uses() []Identifier {
	return e.Operand.Identifiers()
}

func (e ConversionExpr) String() string {
	switch e.Op {
	case ConvCheckCast:
		return fmt.Sprintf("%s as %s", e.Operand, e.Target.Descriptor())
	case ConvInstanceOf:
		return fmt.Sprintf("%s is %s", e.Operand, e.Target.Descriptor())
	default:
		return fmt.Sprintf("%s (%s)", e.Operand, conversionNames[e.Op])
	}
}
func (ConversionExpr) isExpression() {}

// ThrowExpr throws an exception.
type ThrowExpr struct {
	Operand Operand
}

func (e ThrowExpr) Uses() []Identifier { return e.Operand.Identifiers() }
func (e ThrowExpr) String() string     { return fmt.Sprintf("throw %s", e.Operand) }
func (ThrowExpr) isExpression()        {}

// MonitorExpr acquires or releases an object's monitor.
type MonitorExpr struct {
	Enter   bool
	Operand Operand
}

func (e MonitorExpr) Uses() []Identifier { return e.Operand.Identifiers() }
func (e MonitorExpr) String() string {
	if e.Enter {
		return fmt.Sprintf("monitor_enter(%s)", e.Operand)
	}
	return fmt.Sprintf("monitor_exit(%s)", e.Operand)
}
func (MonitorExpr) isExpression() {}

// NewExpr allocates an object.
type NewExpr struct {
	Class jclass.ClassRef
}

func (e NewExpr) Uses() []Identifier { return nil }
func (e NewExpr) String() string     { return fmt.Sprintf("new %s", e.Class) }
func (NewExpr) isExpression()        {}

// SubroutineExpr is a jsr: the produced value is the return address.
type SubroutineExpr struct {
	Target        jclass.ProgramCounter
	ReturnAddress jclass.ProgramCounter
}

func (e SubroutineExpr) Uses() []Identifier { return nil }
func (e SubroutineExpr) String() string {
	return fmt.Sprintf("subroutine %s, return to %s", e.Target, e.ReturnAddress)
}
func (SubroutineExpr) isExpression() {}
