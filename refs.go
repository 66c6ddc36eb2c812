// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"fmt"
	"strconv"
)

// ClassRef is a symbolic reference to a class by binary name, e.g.
// java/lang/String. For array classes the binary name holds the array
// descriptor, as in the class file itself.
type ClassRef struct {
	BinaryName string `json:"binary_name"`
}

func (r ClassRef) String() string {
	return r.BinaryName
}

// FieldRef is a symbolic reference to a field.
type FieldRef struct {
	Owner ClassRef  `json:"owner"`
	Name  string    `json:"name"`
	Type  FieldType `json:"type"`
}

func (r FieldRef) String() string {
	return r.Owner.BinaryName + "." + r.Name
}

// MethodRef is a symbolic reference to a method or interface method.
type MethodRef struct {
	Owner      ClassRef         `json:"owner"`
	Name       string           `json:"name"`
	Descriptor MethodDescriptor `json:"descriptor"`

	// Interface records whether the reference came from an
	// InterfaceMethodref entry.
	Interface bool `json:"interface"`
}

func (r MethodRef) String() string {
	return r.Owner.BinaryName + "::" + r.Name
}

// ModuleRef is a symbolic reference to a module.
type ModuleRef struct {
	Name string `json:"name"`
}

// PackageRef is a symbolic reference to a package.
type PackageRef struct {
	Name string `json:"name"`
}

// NameAndType pairs a member name with its descriptor string.
type NameAndType struct {
	Name       string `json:"name"`
	Descriptor string `json:"descriptor"`
}

// MethodHandleKind is the reference_kind of a MethodHandle constant, in the
// range 1..9 per JVMS §4.4.8.
type MethodHandleKind uint8

// Method handle reference kinds.
const (
	RefGetField MethodHandleKind = iota + 1
	RefGetStatic
	RefPutField
	RefPutStatic
	RefInvokeVirtual
	RefInvokeStatic
	RefInvokeSpecial
	RefNewInvokeSpecial
	RefInvokeInterface
)

// MethodHandle is a loadable constant describing a field or method handle.
type MethodHandle struct {
	Kind MethodHandleKind `json:"kind"`

	// Exactly one of Field and Method is set, depending on Kind.
	Field  *FieldRef  `json:"field,omitempty"`
	Method *MethodRef `json:"method,omitempty"`
}

// ConstantValue is a loadable constant: a value an ldc-family instruction or
// a ConstantValue attribute can produce. It is a closed sum.
type ConstantValue interface {
	fmt.Stringer
	isConstantValue()
}

// NullValue is the null reference. It never appears in a constant pool; the
// IR uses it to model aconst_null.
type NullValue struct{}

func (NullValue) String() string  { return "null" }
func (NullValue) isConstantValue() {}

// IntegerValue is a 32-bit integer constant.
type IntegerValue int32

func (v IntegerValue) String() string  { return strconv.FormatInt(int64(v), 10) }
func (v IntegerValue) isConstantValue() {}

// LongValue is a 64-bit integer constant.
type LongValue int64

func (v LongValue) String() string  { return strconv.FormatInt(int64(v), 10) + "L" }
func (v LongValue) isConstantValue() {}

// FloatValue is a 32-bit floating point constant.
type FloatValue float32

func (v FloatValue) String() string  { return strconv.FormatFloat(float64(v), 'g', -1, 32) + "f" }
func (v FloatValue) isConstantValue() {}

// DoubleValue is a 64-bit floating point constant.
type DoubleValue float64

func (v DoubleValue) String() string  { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v DoubleValue) isConstantValue() {}

// StringValue is a string literal. When the underlying modified UTF-8 entry
// is not valid UTF-8 the raw bytes are preserved and Valid is false.
type StringValue struct {
	Value string
	Raw   []byte
	Valid bool
}

func (v StringValue) String() string {
	if v.Valid {
		return strconv.Quote(v.Value)
	}
	return fmt.Sprintf("<broken utf8 %x>", v.Raw)
}
func (v StringValue) isConstantValue() {}

// ClassValue is a java.lang.Class constant.
type ClassValue struct {
	Class ClassRef
}

func (v ClassValue) String() string  { return v.Class.BinaryName + ".class" }
func (v ClassValue) isConstantValue() {}

// MethodTypeValue is a java.lang.invoke.MethodType constant.
type MethodTypeValue struct {
	Descriptor MethodDescriptor
}

func (v MethodTypeValue) String() string  { return v.Descriptor.Descriptor() }
func (v MethodTypeValue) isConstantValue() {}

// MethodHandleValue is a java.lang.invoke.MethodHandle constant.
type MethodHandleValue struct {
	Handle MethodHandle
}

func (v MethodHandleValue) String() string  { return fmt.Sprintf("handle(%d)", v.Handle.Kind) }
func (v MethodHandleValue) isConstantValue() {}

// DynamicValue is a dynamically computed constant.
type DynamicValue struct {
	BootstrapMethodIndex uint16
	Name                 string
	Descriptor           FieldType
}

func (v DynamicValue) String() string {
	return fmt.Sprintf("dynamic(%d, %s)", v.BootstrapMethodIndex, v.Name)
}
func (v DynamicValue) isConstantValue() {}
