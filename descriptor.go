// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import "strings"

// FieldType is a JVM field type as encoded by a field descriptor. It is a
// closed sum: BaseType, ObjectType or ArrayType.
type FieldType interface {
	// Descriptor formats the type in JVMS §4.3 grammar.
	Descriptor() string

	// IsWide reports whether values of the type occupy two slots.
	IsWide() bool

	isFieldType()
}

// BaseType is one of the eight JVM primitive types.
type BaseType uint8

// Primitive types.
const (
	TypeBoolean BaseType = iota
	TypeChar
	TypeByte
	TypeShort
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
)

var baseTypeDescriptors = map[BaseType]string{
	TypeBoolean: "Z",
	TypeChar:    "C",
	TypeByte:    "B",
	TypeShort:   "S",
	TypeInt:     "I",
	TypeLong:    "J",
	TypeFloat:   "F",
	TypeDouble:  "D",
}

// Descriptor formats the primitive's single-letter descriptor.
func (t BaseType) Descriptor() string {
	return baseTypeDescriptors[t]
}

// IsWide reports whether the primitive occupies two slots.
func (t BaseType) IsWide() bool {
	return t == TypeLong || t == TypeDouble
}

func (t BaseType) isFieldType() {}

// ObjectType is a reference type carrying the referenced class.
type ObjectType struct {
	Class ClassRef
}

// Descriptor formats the type as L<binary name>;.
func (t ObjectType) Descriptor() string {
	return "L" + t.Class.BinaryName + ";"
}

// IsWide always returns false for references.
func (t ObjectType) IsWide() bool { return false }

func (t ObjectType) isFieldType() {}

// ArrayType is an array type with an element type.
type ArrayType struct {
	Element FieldType
}

// Descriptor formats the type as [<element descriptor>.
func (t ArrayType) Descriptor() string {
	return "[" + t.Element.Descriptor()
}

// IsWide always returns false for references.
func (t ArrayType) IsWide() bool { return false }

func (t ArrayType) isFieldType() {}

// MethodDescriptor is a return type plus an ordered parameter list. A nil
// Return denotes void.
type MethodDescriptor struct {
	Parameters []FieldType
	Return     FieldType
}

// Descriptor formats the descriptor in JVMS grammar, e.g. (I[J)V.
func (d MethodDescriptor) Descriptor() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range d.Parameters {
		sb.WriteString(p.Descriptor())
	}
	sb.WriteByte(')')
	if d.Return == nil {
		sb.WriteByte('V')
	} else {
		sb.WriteString(d.Return.Descriptor())
	}
	return sb.String()
}

// ParseFieldType parses a field descriptor. The whole input must be
// consumed.
func ParseFieldType(desc string) (FieldType, error) {
	t, rest, err := parseFieldType(desc)
	if err != nil || rest != "" {
		return nil, InvalidDescriptorError{Descriptor: desc}
	}
	return t, nil
}

func parseFieldType(desc string) (FieldType, string, error) {
	if desc == "" {
		return nil, "", InvalidDescriptorError{Descriptor: desc}
	}
	switch desc[0] {
	case 'Z':
		return TypeBoolean, desc[1:], nil
	case 'C':
		return TypeChar, desc[1:], nil
	case 'B':
		return TypeByte, desc[1:], nil
	case 'S':
		return TypeShort, desc[1:], nil
	case 'I':
		return TypeInt, desc[1:], nil
	case 'J':
		return TypeLong, desc[1:], nil
	case 'F':
		return TypeFloat, desc[1:], nil
	case 'D':
		return TypeDouble, desc[1:], nil
	case 'L':
		end := strings.IndexByte(desc, ';')
		if end <= 1 {
			return nil, "", InvalidDescriptorError{Descriptor: desc}
		}
		return ObjectType{Class: ClassRef{BinaryName: desc[1:end]}}, desc[end+1:], nil
	case '[':
		elem, rest, err := parseFieldType(desc[1:])
		if err != nil {
			return nil, "", err
		}
		return ArrayType{Element: elem}, rest, nil
	default:
		return nil, "", InvalidDescriptorError{Descriptor: desc}
	}
}

// ParseMethodDescriptor parses a method descriptor such as
// (Ljava/lang/String;I)V.
func ParseMethodDescriptor(desc string) (MethodDescriptor, error) {
	if desc == "" || desc[0] != '(' {
		return MethodDescriptor{}, InvalidDescriptorError{Descriptor: desc}
	}
	rest := desc[1:]
	var params []FieldType
	for rest != "" && rest[0] != ')' {
		t, r, err := parseFieldType(rest)
		if err != nil {
			return MethodDescriptor{}, InvalidDescriptorError{Descriptor: desc}
		}
		params = append(params, t)
		rest = r
	}
	if rest == "" {
		return MethodDescriptor{}, InvalidDescriptorError{Descriptor: desc}
	}
	rest = rest[1:]
	if rest == "V" {
		return MethodDescriptor{Parameters: params}, nil
	}
	ret, trailing, err := parseFieldType(rest)
	if err != nil || trailing != "" {
		return MethodDescriptor{}, InvalidDescriptorError{Descriptor: desc}
	}
	return MethodDescriptor{Parameters: params, Return: ret}, nil
}
