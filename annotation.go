// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

// Annotation is a runtime (in)visible annotation per JVMS §4.7.16.
type Annotation struct {
	Type     FieldType          `json:"type"`
	Elements []ElementValuePair `json:"elements,omitempty"`
}

// ElementValuePair is one name/value element of an annotation.
type ElementValuePair struct {
	Name  string       `json:"name"`
	Value ElementValue `json:"value"`
}

// ElementValue is an annotation element value. The set of implementations
// is closed.
type ElementValue interface {
	isElementValue()
}

// ConstElement is a primitive or string element value. ElementTag keeps the
// element_value tag byte so the value re-serializes under its original tag
// (a boolean and an int share the Integer pool representation).
type ConstElement struct {
	ElementTag uint8
	Value      ConstantValue
}

func (ConstElement) isElementValue() {}

// EnumElement references an enum constant.
type EnumElement struct {
	TypeName  string
	ConstName string
}

func (EnumElement) isElementValue() {}

// ClassElement references a class by return descriptor.
type ClassElement struct {
	Descriptor string
}

func (ClassElement) isElementValue() {}

// AnnotationElement is a nested annotation.
type AnnotationElement struct {
	Annotation Annotation
}

func (AnnotationElement) isElementValue() {}

// ArrayElement is an array of element values.
type ArrayElement struct {
	Values []ElementValue
}

func (ArrayElement) isElementValue() {}

// TypeAnnotation is a runtime (in)visible type annotation per JVMS §4.7.20.
type TypeAnnotation struct {
	TargetType uint8             `json:"target_type"`
	TargetInfo TargetInfo        `json:"-"`
	TargetPath []TypePathSegment `json:"target_path,omitempty"`
	Annotation Annotation        `json:"annotation"`
}

// TypePathSegment is one step of a type_path.
type TypePathSegment struct {
	Kind          uint8 `json:"kind"`
	ArgumentIndex uint8 `json:"argument_index"`
}

// TargetInfo locates the annotated type use. The set of implementations is
// closed.
type TargetInfo interface {
	isTargetInfo()
}

// Target info variants per JVMS Table 4.7.20-A.
type (
	// TypeParameterTarget annotates the i-th type parameter.
	TypeParameterTarget struct {
		Index uint8
	}
	// SupertypeTarget annotates a supertype in the interfaces table, or
	// the superclass when Index is 0xFFFF.
	SupertypeTarget struct {
		Index uint16
	}
	// TypeParameterBoundTarget annotates a bound of a type parameter.
	TypeParameterBoundTarget struct {
		ParameterIndex uint8
		BoundIndex     uint8
	}
	// EmptyTarget annotates a field type, return type or receiver type.
	EmptyTarget struct{}
	// FormalParameterTarget annotates a formal parameter type.
	FormalParameterTarget struct {
		Index uint8
	}
	// ThrowsTarget annotates a throws clause entry.
	ThrowsTarget struct {
		Index uint16
	}
	// LocalvarTarget annotates a local variable over its live ranges.
	LocalvarTarget struct {
		Entries []LocalvarTargetEntry
	}
	// CatchTarget annotates an exception table entry's catch type.
	CatchTarget struct {
		ExceptionTableIndex uint16
	}
	// OffsetTarget annotates the type at an instruction offset.
	OffsetTarget struct {
		Offset ProgramCounter
	}
	// TypeArgumentTarget annotates a type argument at an instruction.
	TypeArgumentTarget struct {
		Offset        ProgramCounter
		ArgumentIndex uint8
	}
)

// LocalvarTargetEntry is one live range of a localvar target.
type LocalvarTargetEntry struct {
	StartPC ProgramCounter
	Length  uint16
	Index   uint16
}

func (TypeParameterTarget) isTargetInfo()      {}
func (SupertypeTarget) isTargetInfo()          {}
func (TypeParameterBoundTarget) isTargetInfo() {}
func (EmptyTarget) isTargetInfo()              {}
func (FormalParameterTarget) isTargetInfo()    {}
func (ThrowsTarget) isTargetInfo()             {}
func (LocalvarTarget) isTargetInfo()           {}
func (CatchTarget) isTargetInfo()              {}
func (OffsetTarget) isTargetInfo()             {}
func (TypeArgumentTarget) isTargetInfo()       {}

func parseAnnotation(cr *countingReader, cp *ConstantPool) (Annotation, error) {
	typeIdx, err := cr.u16()
	if err != nil {
		return Annotation{}, err
	}
	typeDesc, err := cp.GetUTF8(typeIdx)
	if err != nil {
		return Annotation{}, err
	}
	fieldType, err := ParseFieldType(typeDesc)
	if err != nil {
		return Annotation{}, err
	}
	count, err := cr.u16()
	if err != nil {
		return Annotation{}, err
	}
	elements := make([]ElementValuePair, 0, count)
	for i := uint16(0); i < count; i++ {
		nameIdx, err := cr.u16()
		if err != nil {
			return Annotation{}, err
		}
		name, err := cp.GetUTF8(nameIdx)
		if err != nil {
			return Annotation{}, err
		}
		value, err := parseElementValue(cr, cp)
		if err != nil {
			return Annotation{}, err
		}
		elements = append(elements, ElementValuePair{Name: name, Value: value})
	}
	return Annotation{Type: fieldType, Elements: elements}, nil
}

func parseElementValue(cr *countingReader, cp *ConstantPool) (ElementValue, error) {
	tag, err := cr.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		idx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		value, err := cp.GetConstantValue(idx)
		if err != nil {
			return nil, err
		}
		return ConstElement{ElementTag: tag, Value: value}, nil
	case 'e':
		typeIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		typeName, err := cp.GetUTF8(typeIdx)
		if err != nil {
			return nil, err
		}
		constIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		constName, err := cp.GetUTF8(constIdx)
		if err != nil {
			return nil, err
		}
		return EnumElement{TypeName: typeName, ConstName: constName}, nil
	case 'c':
		idx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		desc, err := cp.GetUTF8(idx)
		if err != nil {
			return nil, err
		}
		return ClassElement{Descriptor: desc}, nil
	case '@':
		anno, err := parseAnnotation(cr, cp)
		if err != nil {
			return nil, err
		}
		return AnnotationElement{Annotation: anno}, nil
	case '[':
		count, err := cr.u16()
		if err != nil {
			return nil, err
		}
		values := make([]ElementValue, 0, count)
		for i := uint16(0); i < count; i++ {
			v, err := parseElementValue(cr, cp)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return ArrayElement{Values: values}, nil
	default:
		return nil, UnknownAttributeTagError{Attribute: "element_value", Tag: tag}
	}
}

func parseTypeAnnotation(cr *countingReader, cp *ConstantPool) (TypeAnnotation, error) {
	targetType, err := cr.u8()
	if err != nil {
		return TypeAnnotation{}, err
	}
	info, err := parseTargetInfo(cr, targetType)
	if err != nil {
		return TypeAnnotation{}, err
	}
	pathLen, err := cr.u8()
	if err != nil {
		return TypeAnnotation{}, err
	}
	path := make([]TypePathSegment, 0, pathLen)
	for i := uint8(0); i < pathLen; i++ {
		kind, err := cr.u8()
		if err != nil {
			return TypeAnnotation{}, err
		}
		argIdx, err := cr.u8()
		if err != nil {
			return TypeAnnotation{}, err
		}
		path = append(path, TypePathSegment{Kind: kind, ArgumentIndex: argIdx})
	}
	anno, err := parseAnnotation(cr, cp)
	if err != nil {
		return TypeAnnotation{}, err
	}
	return TypeAnnotation{
		TargetType: targetType,
		TargetInfo: info,
		TargetPath: path,
		Annotation: anno,
	}, nil
}

func parseTargetInfo(cr *countingReader, targetType uint8) (TargetInfo, error) {
	switch {
	case targetType <= 0x01:
		idx, err := cr.u8()
		return TypeParameterTarget{Index: idx}, err
	case targetType == 0x10:
		idx, err := cr.u16()
		return SupertypeTarget{Index: idx}, err
	case targetType == 0x11 || targetType == 0x12:
		paramIdx, err := cr.u8()
		if err != nil {
			return nil, err
		}
		boundIdx, err := cr.u8()
		return TypeParameterBoundTarget{
			ParameterIndex: paramIdx, BoundIndex: boundIdx}, err
	case targetType >= 0x13 && targetType <= 0x15:
		return EmptyTarget{}, nil
	case targetType == 0x16:
		idx, err := cr.u8()
		return FormalParameterTarget{Index: idx}, err
	case targetType == 0x17:
		idx, err := cr.u16()
		return ThrowsTarget{Index: idx}, err
	case targetType == 0x40 || targetType == 0x41:
		count, err := cr.u16()
		if err != nil {
			return nil, err
		}
		entries := make([]LocalvarTargetEntry, 0, count)
		for i := uint16(0); i < count; i++ {
			startPC, err := cr.u16()
			if err != nil {
				return nil, err
			}
			length, err := cr.u16()
			if err != nil {
				return nil, err
			}
			index, err := cr.u16()
			if err != nil {
				return nil, err
			}
			entries = append(entries, LocalvarTargetEntry{
				StartPC: ProgramCounter(startPC), Length: length, Index: index})
		}
		return LocalvarTarget{Entries: entries}, nil
	case targetType == 0x42:
		idx, err := cr.u16()
		return CatchTarget{ExceptionTableIndex: idx}, err
	case targetType >= 0x43 && targetType <= 0x46:
		offset, err := cr.u16()
		return OffsetTarget{Offset: ProgramCounter(offset)}, err
	case targetType >= 0x47 && targetType <= 0x4B:
		offset, err := cr.u16()
		if err != nil {
			return nil, err
		}
		argIdx, err := cr.u8()
		return TypeArgumentTarget{
			Offset: ProgramCounter(offset), ArgumentIndex: argIdx}, err
	default:
		return nil, UnknownAttributeTagError{Attribute: "type_annotation", Tag: targetType}
	}
}

func writeAnnotation(cw *countingWriter, cp *ConstantPool, a Annotation) error {
	if err := cw.u16(cp.putUTF8(a.Type.Descriptor())); err != nil {
		return err
	}
	if err := cw.u16(uint16(len(a.Elements))); err != nil {
		return err
	}
	for _, pair := range a.Elements {
		if err := cw.u16(cp.putUTF8(pair.Name)); err != nil {
			return err
		}
		if err := writeElementValue(cw, cp, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

func writeElementValue(cw *countingWriter, cp *ConstantPool, v ElementValue) error {
	switch e := v.(type) {
	case ConstElement:
		if err := cw.u8(e.ElementTag); err != nil {
			return err
		}
		idx, err := cp.putConstantValue(e.Value)
		if err != nil {
			return err
		}
		return cw.u16(idx)
	case EnumElement:
		if err := cw.u8('e'); err != nil {
			return err
		}
		if err := cw.u16(cp.putUTF8(e.TypeName)); err != nil {
			return err
		}
		return cw.u16(cp.putUTF8(e.ConstName))
	case ClassElement:
		if err := cw.u8('c'); err != nil {
			return err
		}
		return cw.u16(cp.putUTF8(e.Descriptor))
	case AnnotationElement:
		if err := cw.u8('@'); err != nil {
			return err
		}
		return writeAnnotation(cw, cp, e.Annotation)
	case ArrayElement:
		if err := cw.u8('['); err != nil {
			return err
		}
		if err := cw.u16(uint16(len(e.Values))); err != nil {
			return err
		}
		for _, inner := range e.Values {
			if err := writeElementValue(cw, cp, inner); err != nil {
				return err
			}
		}
		return nil
	default:
		panic("jclass: element value of unknown concrete type")
	}
}

func writeTypeAnnotation(cw *countingWriter, cp *ConstantPool, ta TypeAnnotation) error {
	if err := cw.u8(ta.TargetType); err != nil {
		return err
	}
	if err := writeTargetInfo(cw, ta.TargetInfo); err != nil {
		return err
	}
	if err := cw.u8(uint8(len(ta.TargetPath))); err != nil {
		return err
	}
	for _, seg := range ta.TargetPath {
		if err := cw.u8(seg.Kind); err != nil {
			return err
		}
		if err := cw.u8(seg.ArgumentIndex); err != nil {
			return err
		}
	}
	return writeAnnotation(cw, cp, ta.Annotation)
}

func writeTargetInfo(cw *countingWriter, info TargetInfo) error {
	switch t := info.(type) {
	case TypeParameterTarget:
		return cw.u8(t.Index)
	case SupertypeTarget:
		return cw.u16(t.Index)
	case TypeParameterBoundTarget:
		if err := cw.u8(t.ParameterIndex); err != nil {
			return err
		}
		return cw.u8(t.BoundIndex)
	case EmptyTarget:
		return nil
	case FormalParameterTarget:
		return cw.u8(t.Index)
	case ThrowsTarget:
		return cw.u16(t.Index)
	case LocalvarTarget:
		if err := cw.u16(uint16(len(t.Entries))); err != nil {
			return err
		}
		for _, e := range t.Entries {
			if err := cw.u16(uint16(e.StartPC)); err != nil {
				return err
			}
			if err := cw.u16(e.Length); err != nil {
				return err
			}
			if err := cw.u16(e.Index); err != nil {
				return err
			}
		}
		return nil
	case CatchTarget:
		return cw.u16(t.ExceptionTableIndex)
	case OffsetTarget:
		return cw.u16(uint16(t.Offset))
	case TypeArgumentTarget:
		if err := cw.u16(uint16(t.Offset)); err != nil {
			return err
		}
		return cw.u8(t.ArgumentIndex)
	default:
		panic("jclass: target info of unknown concrete type")
	}
}
