// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"bytes"
	"io"
)

// Attribute is a decoded class file attribute. Unrecognized attribute names
// are preserved verbatim as RawAttribute values so they survive a
// round-trip unchanged.
type Attribute interface {
	// Name returns the attribute's name as it appears in the class file.
	Name() string

	isAttribute()
}

// RawAttribute preserves an unrecognized attribute verbatim.
type RawAttribute struct {
	AttrName string `json:"name"`
	Data     []byte `json:"data"`
}

func (a RawAttribute) Name() string { return a.AttrName }
func (RawAttribute) isAttribute()   {}

// ConstantValueAttr is the ConstantValue attribute of a field.
type ConstantValueAttr struct {
	Value ConstantValue
}

func (ConstantValueAttr) Name() string { return "ConstantValue" }
func (ConstantValueAttr) isAttribute() {}

// CodeAttr is the Code attribute of a method.
type CodeAttr struct {
	Body MethodBody
}

func (CodeAttr) Name() string { return "Code" }
func (CodeAttr) isAttribute() {}

// StackMapTableAttr is the StackMapTable attribute of a Code attribute.
type StackMapTableAttr struct {
	Frames []StackMapFrame
}

func (StackMapTableAttr) Name() string { return "StackMapTable" }
func (StackMapTableAttr) isAttribute() {}

// ExceptionsAttr lists the checked exceptions a method declares.
type ExceptionsAttr struct {
	Exceptions []ClassRef
}

func (ExceptionsAttr) Name() string { return "Exceptions" }
func (ExceptionsAttr) isAttribute() {}

// SourceFileAttr names the source file the class was compiled from.
type SourceFileAttr struct {
	Value string
}

func (SourceFileAttr) Name() string { return "SourceFile" }
func (SourceFileAttr) isAttribute() {}

// SourceDebugExtensionAttr carries extended debugging information.
type SourceDebugExtensionAttr struct {
	Data []byte
}

func (SourceDebugExtensionAttr) Name() string { return "SourceDebugExtension" }
func (SourceDebugExtensionAttr) isAttribute() {}

// LineNumberTableAttr maps instructions to source lines.
type LineNumberTableAttr struct {
	Entries []LineNumberEntry
}

func (LineNumberTableAttr) Name() string { return "LineNumberTable" }
func (LineNumberTableAttr) isAttribute() {}

// LocalVariableTableAttr names local variable slots.
type LocalVariableTableAttr struct {
	Entries []LocalVariableEntry
}

func (LocalVariableTableAttr) Name() string { return "LocalVariableTable" }
func (LocalVariableTableAttr) isAttribute() {}

// LocalVariableTypeTableAttr carries generic signatures of local slots.
type LocalVariableTypeTableAttr struct {
	Entries []LocalVariableEntry
}

func (LocalVariableTypeTableAttr) Name() string { return "LocalVariableTypeTable" }
func (LocalVariableTypeTableAttr) isAttribute() {}

// InnerClassEntry is one row of the InnerClasses attribute.
type InnerClassEntry struct {
	Inner     ClassRef    `json:"inner"`
	Outer     *ClassRef   `json:"outer,omitempty"`
	InnerName string      `json:"inner_name,omitempty"`
	Flags     AccessFlags `json:"flags"`
}

// InnerClassesAttr records the nesting of inner classes.
type InnerClassesAttr struct {
	Entries []InnerClassEntry
}

func (InnerClassesAttr) Name() string { return "InnerClasses" }
func (InnerClassesAttr) isAttribute() {}

// EnclosingMethodAttr locates a local or anonymous class's enclosure.
type EnclosingMethodAttr struct {
	Class  ClassRef
	Method *NameAndType
}

func (EnclosingMethodAttr) Name() string { return "EnclosingMethod" }
func (EnclosingMethodAttr) isAttribute() {}

// SyntheticAttr marks a compiler-generated member.
type SyntheticAttr struct{}

func (SyntheticAttr) Name() string { return "Synthetic" }
func (SyntheticAttr) isAttribute() {}

// DeprecatedAttr marks a deprecated member.
type DeprecatedAttr struct{}

func (DeprecatedAttr) Name() string { return "Deprecated" }
func (DeprecatedAttr) isAttribute() {}

// SignatureAttr carries a generic signature.
type SignatureAttr struct {
	Signature string
}

func (SignatureAttr) Name() string { return "Signature" }
func (SignatureAttr) isAttribute() {}

// Annotation attributes, in the four visibility by target flavors.
type (
	// RuntimeVisibleAnnotationsAttr holds runtime-visible annotations.
	RuntimeVisibleAnnotationsAttr struct {
		Annotations []Annotation
	}
	// RuntimeInvisibleAnnotationsAttr holds runtime-invisible annotations.
	RuntimeInvisibleAnnotationsAttr struct {
		Annotations []Annotation
	}
	// RuntimeVisibleParameterAnnotationsAttr holds per-parameter
	// runtime-visible annotations.
	RuntimeVisibleParameterAnnotationsAttr struct {
		Parameters [][]Annotation
	}
	// RuntimeInvisibleParameterAnnotationsAttr holds per-parameter
	// runtime-invisible annotations.
	RuntimeInvisibleParameterAnnotationsAttr struct {
		Parameters [][]Annotation
	}
	// RuntimeVisibleTypeAnnotationsAttr holds runtime-visible type
	// annotations.
	RuntimeVisibleTypeAnnotationsAttr struct {
		Annotations []TypeAnnotation
	}
	// RuntimeInvisibleTypeAnnotationsAttr holds runtime-invisible type
	// annotations.
	RuntimeInvisibleTypeAnnotationsAttr struct {
		Annotations []TypeAnnotation
	}
)

func (RuntimeVisibleAnnotationsAttr) Name() string { return "RuntimeVisibleAnnotations" }
func (RuntimeVisibleAnnotationsAttr) isAttribute() {}

func (RuntimeInvisibleAnnotationsAttr) Name() string { return "RuntimeInvisibleAnnotations" }
func (RuntimeInvisibleAnnotationsAttr) isAttribute() {}

func (RuntimeVisibleParameterAnnotationsAttr) Name() string {
	return "RuntimeVisibleParameterAnnotations"
}
func (RuntimeVisibleParameterAnnotationsAttr) isAttribute() {}

func (RuntimeInvisibleParameterAnnotationsAttr) Name() string {
	return "RuntimeInvisibleParameterAnnotations"
}
func (RuntimeInvisibleParameterAnnotationsAttr) isAttribute() {}

func (RuntimeVisibleTypeAnnotationsAttr) Name() string {
	return "RuntimeVisibleTypeAnnotations"
}
func (RuntimeVisibleTypeAnnotationsAttr) isAttribute() {}

func (RuntimeInvisibleTypeAnnotationsAttr) Name() string {
	return "RuntimeInvisibleTypeAnnotations"
}
func (RuntimeInvisibleTypeAnnotationsAttr) isAttribute() {}

// AnnotationDefaultAttr is the default value of an annotation interface
// method.
type AnnotationDefaultAttr struct {
	Value ElementValue
}

func (AnnotationDefaultAttr) Name() string { return "AnnotationDefault" }
func (AnnotationDefaultAttr) isAttribute() {}

// BootstrapMethod is one entry of the BootstrapMethods attribute.
type BootstrapMethod struct {
	Handle    MethodHandle    `json:"handle"`
	Arguments []ConstantValue `json:"arguments,omitempty"`
}

// BootstrapMethodsAttr holds bootstrap methods for dynamic constants and
// invokedynamic call sites.
type BootstrapMethodsAttr struct {
	Methods []BootstrapMethod
}

func (BootstrapMethodsAttr) Name() string { return "BootstrapMethods" }
func (BootstrapMethodsAttr) isAttribute() {}

// MethodParameter is one entry of the MethodParameters attribute.
type MethodParameter struct {
	ParamName string      `json:"name,omitempty"`
	Flags     AccessFlags `json:"flags"`
}

// MethodParametersAttr records parameter names and flags.
type MethodParametersAttr struct {
	Parameters []MethodParameter
}

func (MethodParametersAttr) Name() string { return "MethodParameters" }
func (MethodParametersAttr) isAttribute() {}

// ModuleRequire is one requires entry of a module descriptor.
type ModuleRequire struct {
	Module  ModuleRef   `json:"module"`
	Flags   AccessFlags `json:"flags"`
	Version string      `json:"version,omitempty"`
}

// ModuleExport is one exports entry of a module descriptor.
type ModuleExport struct {
	Package PackageRef  `json:"package"`
	Flags   AccessFlags `json:"flags"`
	To      []ModuleRef `json:"to,omitempty"`
}

// ModuleOpen is one opens entry of a module descriptor.
type ModuleOpen struct {
	Package PackageRef  `json:"package"`
	Flags   AccessFlags `json:"flags"`
	To      []ModuleRef `json:"to,omitempty"`
}

// ModuleProvide is one provides entry of a module descriptor.
type ModuleProvide struct {
	Service ClassRef   `json:"service"`
	With    []ClassRef `json:"with"`
}

// Module is a decoded module descriptor.
type Module struct {
	Name     ModuleRef       `json:"name"`
	Flags    AccessFlags     `json:"flags"`
	Version  string          `json:"version,omitempty"`
	Requires []ModuleRequire `json:"requires,omitempty"`
	Exports  []ModuleExport  `json:"exports,omitempty"`
	Opens    []ModuleOpen    `json:"opens,omitempty"`
	Uses     []ClassRef      `json:"uses,omitempty"`
	Provides []ModuleProvide `json:"provides,omitempty"`
}

// ModuleAttr is the Module attribute of a module-info class.
type ModuleAttr struct {
	Module Module
}

func (ModuleAttr) Name() string { return "Module" }
func (ModuleAttr) isAttribute() {}

// ModulePackagesAttr lists all packages of a module.
type ModulePackagesAttr struct {
	Packages []PackageRef
}

func (ModulePackagesAttr) Name() string { return "ModulePackages" }
func (ModulePackagesAttr) isAttribute() {}

// ModuleMainClassAttr names a module's main class.
type ModuleMainClassAttr struct {
	Class ClassRef
}

func (ModuleMainClassAttr) Name() string { return "ModuleMainClass" }
func (ModuleMainClassAttr) isAttribute() {}

// NestHostAttr names the host of the nest this class belongs to.
type NestHostAttr struct {
	Class ClassRef
}

func (NestHostAttr) Name() string { return "NestHost" }
func (NestHostAttr) isAttribute() {}

// NestMembersAttr lists the members of the nest this class hosts.
type NestMembersAttr struct {
	Classes []ClassRef
}

func (NestMembersAttr) Name() string { return "NestMembers" }
func (NestMembersAttr) isAttribute() {}

// RecordComponent is one component of a Record attribute.
type RecordComponent struct {
	ComponentName string    `json:"name"`
	Type          FieldType `json:"type"`

	Signature                string           `json:"signature,omitempty"`
	Annotations              []Annotation     `json:"-"`
	InvisibleAnnotations     []Annotation     `json:"-"`
	TypeAnnotations          []TypeAnnotation `json:"-"`
	InvisibleTypeAnnotations []TypeAnnotation `json:"-"`
	FreeAttributes           []RawAttribute   `json:"-"`
}

// RecordAttr describes the components of a record class.
type RecordAttr struct {
	Components []RecordComponent
}

func (RecordAttr) Name() string { return "Record" }
func (RecordAttr) isAttribute() {}

// PermittedSubclassesAttr lists the permitted direct subclasses of a
// sealed class.
type PermittedSubclassesAttr struct {
	Classes []ClassRef
}

func (PermittedSubclassesAttr) Name() string { return "PermittedSubclasses" }
func (PermittedSubclassesAttr) isAttribute() {}

// parseAttributeList reads attributes_count and the attribute windows.
func parseAttributeList(cr *countingReader, cp *ConstantPool) ([]Attribute, error) {
	count, err := cr.u16()
	if err != nil {
		return nil, err
	}
	attrs := make([]Attribute, 0, count)
	for i := uint16(0); i < count; i++ {
		attr, err := parseAttribute(cr, cp)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

// parseAttribute reads one attribute: name index, length, then exactly
// attribute_length bytes dispatched to the named parser. A parser that
// leaves part of its window unread makes the attribute malformed.
func parseAttribute(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	nameIdx, err := cr.u16()
	if err != nil {
		return nil, err
	}
	name, err := cp.GetUTF8(nameIdx)
	if err != nil {
		return nil, err
	}
	length, err := cr.u32()
	if err != nil {
		return nil, err
	}
	window, err := cr.bytes(int(length))
	if err != nil {
		return nil, err
	}
	parser, known := attributeParsers[name]
	if !known {
		return RawAttribute{AttrName: name, Data: window}, nil
	}
	wr := newCountingReader(bytes.NewReader(window))
	attr, err := parser(wr, cp)
	if err != nil {
		return nil, err
	}
	if wr.offset != uint64(len(window)) {
		return nil, malformed("attribute %s consumed %d of its %d bytes",
			name, wr.offset, len(window))
	}
	return attr, nil
}

type attributeParser func(*countingReader, *ConstantPool) (Attribute, error)

var attributeParsers map[string]attributeParser

func init() {
	attributeParsers = map[string]attributeParser{
		"ConstantValue":          parseConstantValueAttr,
		"Code":                   parseCodeAttr,
		"StackMapTable":          parseStackMapTableAttr,
		"Exceptions":             parseExceptionsAttr,
		"SourceFile":             parseSourceFileAttr,
		"SourceDebugExtension":   parseSourceDebugExtensionAttr,
		"LineNumberTable":        parseLineNumberTableAttr,
		"LocalVariableTable":     parseLocalVariableTableAttr,
		"LocalVariableTypeTable": parseLocalVariableTypeTableAttr,
		"InnerClasses":           parseInnerClassesAttr,
		"EnclosingMethod":        parseEnclosingMethodAttr,
		"Synthetic":              parseSyntheticAttr,
		"Deprecated":             parseDeprecatedAttr,
		"Signature":              parseSignatureAttr,
		"RuntimeVisibleAnnotations":            parseRuntimeVisibleAnnotationsAttr,
		"RuntimeInvisibleAnnotations":          parseRuntimeInvisibleAnnotationsAttr,
		"RuntimeVisibleParameterAnnotations":   parseRuntimeVisibleParameterAnnotationsAttr,
		"RuntimeInvisibleParameterAnnotations": parseRuntimeInvisibleParameterAnnotationsAttr,
		"RuntimeVisibleTypeAnnotations":        parseRuntimeVisibleTypeAnnotationsAttr,
		"RuntimeInvisibleTypeAnnotations":      parseRuntimeInvisibleTypeAnnotationsAttr,
		"AnnotationDefault":    parseAnnotationDefaultAttr,
		"BootstrapMethods":     parseBootstrapMethodsAttr,
		"MethodParameters":     parseMethodParametersAttr,
		"Module":               parseModuleAttr,
		"ModulePackages":       parseModulePackagesAttr,
		"ModuleMainClass":      parseModuleMainClassAttr,
		"NestHost":             parseNestHostAttr,
		"NestMembers":          parseNestMembersAttr,
		"Record":               parseRecordAttr,
		"PermittedSubclasses":  parsePermittedSubclassesAttr,
	}
}

func parseConstantValueAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	idx, err := cr.u16()
	if err != nil {
		return nil, err
	}
	value, err := cp.GetConstantValue(idx)
	if err != nil {
		return nil, err
	}
	return ConstantValueAttr{Value: value}, nil
}

func parseCodeAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	maxStack, err := cr.u16()
	if err != nil {
		return nil, err
	}
	maxLocals, err := cr.u16()
	if err != nil {
		return nil, err
	}
	codeLen, err := cr.u32()
	if err != nil {
		return nil, err
	}
	code, err := cr.bytes(int(codeLen))
	if err != nil {
		return nil, err
	}
	insns, err := decodeInstructions(code, cp)
	if err != nil {
		return nil, err
	}
	handlerCount, err := cr.u16()
	if err != nil {
		return nil, err
	}
	table := make([]ExceptionTableEntry, 0, handlerCount)
	for i := uint16(0); i < handlerCount; i++ {
		startPC, err := cr.u16()
		if err != nil {
			return nil, err
		}
		endPC, err := cr.u16()
		if err != nil {
			return nil, err
		}
		handlerPC, err := cr.u16()
		if err != nil {
			return nil, err
		}
		catchIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		var catchType *ClassRef
		if catchIdx != 0 {
			ref, err := cp.GetClassRef(catchIdx)
			if err != nil {
				return nil, err
			}
			catchType = &ref
		}
		table = append(table, ExceptionTableEntry{
			StartPC:   ProgramCounter(startPC),
			EndPC:     ProgramCounter(endPC),
			HandlerPC: ProgramCounter(handlerPC),
			CatchType: catchType,
		})
	}
	nested, err := parseAttributeList(cr, cp)
	if err != nil {
		return nil, err
	}
	body := MethodBody{
		MaxStack:       maxStack,
		MaxLocals:      maxLocals,
		Instructions:   insns,
		ExceptionTable: table,
	}
	for _, attr := range nested {
		switch a := attr.(type) {
		case LineNumberTableAttr:
			body.LineNumbers = append(body.LineNumbers, a.Entries...)
		case LocalVariableTableAttr:
			body.LocalVariables = append(body.LocalVariables, a.Entries...)
		case LocalVariableTypeTableAttr:
			body.LocalVariableTypes = append(body.LocalVariableTypes, a.Entries...)
		case StackMapTableAttr:
			if body.StackMapTable != nil {
				return nil, malformed("duplicate StackMapTable attribute")
			}
			body.StackMapTable = a.Frames
		case RuntimeVisibleTypeAnnotationsAttr:
			body.TypeAnnotations = append(body.TypeAnnotations, a.Annotations...)
		case RuntimeInvisibleTypeAnnotationsAttr:
			body.InvisibleTypeAnnotations = append(body.InvisibleTypeAnnotations, a.Annotations...)
		case RawAttribute:
			body.FreeAttributes = append(body.FreeAttributes, a)
		default:
			return nil, malformed("attribute %s is not allowed inside Code", attr.Name())
		}
	}
	return CodeAttr{Body: body}, nil
}

func parseVerificationType(cr *countingReader, cp *ConstantPool) (VerificationType, error) {
	tag, err := cr.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return VTTop{}, nil
	case 1:
		return VTInteger{}, nil
	case 2:
		return VTFloat{}, nil
	case 3:
		return VTDouble{}, nil
	case 4:
		return VTLong{}, nil
	case 5:
		return VTNull{}, nil
	case 6:
		return VTUninitializedThis{}, nil
	case 7:
		idx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		ref, err := cp.GetClassRef(idx)
		return VTObject{Class: ref}, err
	case 8:
		offset, err := cr.u16()
		return VTUninitialized{Offset: ProgramCounter(offset)}, err
	default:
		return nil, UnknownAttributeTagError{Attribute: "StackMapTable", Tag: tag}
	}
}

func parseStackMapTableAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	count, err := cr.u16()
	if err != nil {
		return nil, err
	}
	frames := make([]StackMapFrame, 0, count)
	for i := uint16(0); i < count; i++ {
		frameType, err := cr.u8()
		if err != nil {
			return nil, err
		}
		frame := StackMapFrame{FrameType: frameType}
		switch {
		case frameType <= 63:
			frame.OffsetDelta = uint16(frameType)
		case frameType <= 127:
			frame.OffsetDelta = uint16(frameType - 64)
			vt, err := parseVerificationType(cr, cp)
			if err != nil {
				return nil, err
			}
			frame.Stack = []VerificationType{vt}
		case frameType == 247:
			delta, err := cr.u16()
			if err != nil {
				return nil, err
			}
			frame.OffsetDelta = delta
			vt, err := parseVerificationType(cr, cp)
			if err != nil {
				return nil, err
			}
			frame.Stack = []VerificationType{vt}
		case frameType >= 248 && frameType <= 251:
			delta, err := cr.u16()
			if err != nil {
				return nil, err
			}
			frame.OffsetDelta = delta
		case frameType >= 252 && frameType <= 254:
			delta, err := cr.u16()
			if err != nil {
				return nil, err
			}
			frame.OffsetDelta = delta
			for k := 0; k < int(frameType)-251; k++ {
				vt, err := parseVerificationType(cr, cp)
				if err != nil {
					return nil, err
				}
				frame.Locals = append(frame.Locals, vt)
			}
		case frameType == 255:
			delta, err := cr.u16()
			if err != nil {
				return nil, err
			}
			frame.OffsetDelta = delta
			localCount, err := cr.u16()
			if err != nil {
				return nil, err
			}
			for k := uint16(0); k < localCount; k++ {
				vt, err := parseVerificationType(cr, cp)
				if err != nil {
					return nil, err
				}
				frame.Locals = append(frame.Locals, vt)
			}
			stackCount, err := cr.u16()
			if err != nil {
				return nil, err
			}
			for k := uint16(0); k < stackCount; k++ {
				vt, err := parseVerificationType(cr, cp)
				if err != nil {
					return nil, err
				}
				frame.Stack = append(frame.Stack, vt)
			}
		default:
			return nil, UnknownAttributeTagError{Attribute: "StackMapTable", Tag: frameType}
		}
		frames = append(frames, frame)
	}
	return StackMapTableAttr{Frames: frames}, nil
}

func parseClassRefList(cr *countingReader, cp *ConstantPool) ([]ClassRef, error) {
	count, err := cr.u16()
	if err != nil {
		return nil, err
	}
	refs := make([]ClassRef, 0, count)
	for i := uint16(0); i < count; i++ {
		idx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		ref, err := cp.GetClassRef(idx)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func parseExceptionsAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	refs, err := parseClassRefList(cr, cp)
	if err != nil {
		return nil, err
	}
	return ExceptionsAttr{Exceptions: refs}, nil
}

func parseSourceFileAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	idx, err := cr.u16()
	if err != nil {
		return nil, err
	}
	value, err := cp.GetUTF8(idx)
	if err != nil {
		return nil, err
	}
	return SourceFileAttr{Value: value}, nil
}

func parseSourceDebugExtensionAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	data, err := io.ReadAll(cr.r)
	if err != nil {
		return nil, err
	}
	cr.offset += uint64(len(data))
	return SourceDebugExtensionAttr{Data: data}, nil
}

func parseLineNumberTableAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	count, err := cr.u16()
	if err != nil {
		return nil, err
	}
	entries := make([]LineNumberEntry, 0, count)
	for i := uint16(0); i < count; i++ {
		startPC, err := cr.u16()
		if err != nil {
			return nil, err
		}
		line, err := cr.u16()
		if err != nil {
			return nil, err
		}
		entries = append(entries, LineNumberEntry{
			StartPC: ProgramCounter(startPC), LineNumber: line})
	}
	return LineNumberTableAttr{Entries: entries}, nil
}

func parseLocalVariableEntries(cr *countingReader, cp *ConstantPool, typeTable bool) ([]LocalVariableEntry, error) {
	count, err := cr.u16()
	if err != nil {
		return nil, err
	}
	entries := make([]LocalVariableEntry, 0, count)
	for i := uint16(0); i < count; i++ {
		startPC, err := cr.u16()
		if err != nil {
			return nil, err
		}
		length, err := cr.u16()
		if err != nil {
			return nil, err
		}
		nameIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		name, err := cp.GetUTF8(nameIdx)
		if err != nil {
			return nil, err
		}
		descIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		desc, err := cp.GetUTF8(descIdx)
		if err != nil {
			return nil, err
		}
		index, err := cr.u16()
		if err != nil {
			return nil, err
		}
		entry := LocalVariableEntry{
			StartPC: ProgramCounter(startPC),
			Length:  length,
			Name:    name,
			Index:   index,
		}
		if typeTable {
			entry.Signature = desc
		} else {
			entry.Descriptor = desc
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseLocalVariableTableAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	entries, err := parseLocalVariableEntries(cr, cp, false)
	if err != nil {
		return nil, err
	}
	return LocalVariableTableAttr{Entries: entries}, nil
}

func parseLocalVariableTypeTableAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	entries, err := parseLocalVariableEntries(cr, cp, true)
	if err != nil {
		return nil, err
	}
	return LocalVariableTypeTableAttr{Entries: entries}, nil
}

func parseInnerClassesAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	count, err := cr.u16()
	if err != nil {
		return nil, err
	}
	entries := make([]InnerClassEntry, 0, count)
	for i := uint16(0); i < count; i++ {
		innerIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		inner, err := cp.GetClassRef(innerIdx)
		if err != nil {
			return nil, err
		}
		outerIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		var outer *ClassRef
		if outerIdx != 0 {
			ref, err := cp.GetClassRef(outerIdx)
			if err != nil {
				return nil, err
			}
			outer = &ref
		}
		nameIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		var innerName string
		if nameIdx != 0 {
			innerName, err = cp.GetUTF8(nameIdx)
			if err != nil {
				return nil, err
			}
		}
		rawFlags, err := cr.u16()
		if err != nil {
			return nil, err
		}
		flags, err := checkFlags("inner class", rawFlags, innerClassFlagsMask)
		if err != nil {
			return nil, err
		}
		entries = append(entries, InnerClassEntry{
			Inner: inner, Outer: outer, InnerName: innerName, Flags: flags})
	}
	return InnerClassesAttr{Entries: entries}, nil
}

func parseEnclosingMethodAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	classIdx, err := cr.u16()
	if err != nil {
		return nil, err
	}
	class, err := cp.GetClassRef(classIdx)
	if err != nil {
		return nil, err
	}
	methodIdx, err := cr.u16()
	if err != nil {
		return nil, err
	}
	var method *NameAndType
	if methodIdx != 0 {
		nt, err := cp.GetNameAndType(methodIdx)
		if err != nil {
			return nil, err
		}
		method = &nt
	}
	return EnclosingMethodAttr{Class: class, Method: method}, nil
}

func parseSyntheticAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	return SyntheticAttr{}, nil
}

func parseDeprecatedAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	return DeprecatedAttr{}, nil
}

func parseSignatureAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	idx, err := cr.u16()
	if err != nil {
		return nil, err
	}
	sig, err := cp.GetUTF8(idx)
	if err != nil {
		return nil, err
	}
	return SignatureAttr{Signature: sig}, nil
}

func parseAnnotationList(cr *countingReader, cp *ConstantPool) ([]Annotation, error) {
	count, err := cr.u16()
	if err != nil {
		return nil, err
	}
	annos := make([]Annotation, 0, count)
	for i := uint16(0); i < count; i++ {
		a, err := parseAnnotation(cr, cp)
		if err != nil {
			return nil, err
		}
		annos = append(annos, a)
	}
	return annos, nil
}

func parseParameterAnnotations(cr *countingReader, cp *ConstantPool) ([][]Annotation, error) {
	paramCount, err := cr.u8()
	if err != nil {
		return nil, err
	}
	params := make([][]Annotation, 0, paramCount)
	for i := uint8(0); i < paramCount; i++ {
		annos, err := parseAnnotationList(cr, cp)
		if err != nil {
			return nil, err
		}
		params = append(params, annos)
	}
	return params, nil
}

func parseTypeAnnotationList(cr *countingReader, cp *ConstantPool) ([]TypeAnnotation, error) {
	count, err := cr.u16()
	if err != nil {
		return nil, err
	}
	annos := make([]TypeAnnotation, 0, count)
	for i := uint16(0); i < count; i++ {
		a, err := parseTypeAnnotation(cr, cp)
		if err != nil {
			return nil, err
		}
		annos = append(annos, a)
	}
	return annos, nil
}

func parseRuntimeVisibleAnnotationsAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	annos, err := parseAnnotationList(cr, cp)
	return RuntimeVisibleAnnotationsAttr{Annotations: annos}, err
}

func parseRuntimeInvisibleAnnotationsAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	annos, err := parseAnnotationList(cr, cp)
	return RuntimeInvisibleAnnotationsAttr{Annotations: annos}, err
}

func parseRuntimeVisibleParameterAnnotationsAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	params, err := parseParameterAnnotations(cr, cp)
	return RuntimeVisibleParameterAnnotationsAttr{Parameters: params}, err
}

func parseRuntimeInvisibleParameterAnnotationsAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	params, err := parseParameterAnnotations(cr, cp)
	return RuntimeInvisibleParameterAnnotationsAttr{Parameters: params}, err
}

func parseRuntimeVisibleTypeAnnotationsAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	annos, err := parseTypeAnnotationList(cr, cp)
	return RuntimeVisibleTypeAnnotationsAttr{Annotations: annos}, err
}

func parseRuntimeInvisibleTypeAnnotationsAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	annos, err := parseTypeAnnotationList(cr, cp)
	return RuntimeInvisibleTypeAnnotationsAttr{Annotations: annos}, err
}

func parseAnnotationDefaultAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	value, err := parseElementValue(cr, cp)
	if err != nil {
		return nil, err
	}
	return AnnotationDefaultAttr{Value: value}, nil
}

func parseBootstrapMethodsAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	count, err := cr.u16()
	if err != nil {
		return nil, err
	}
	methods := make([]BootstrapMethod, 0, count)
	for i := uint16(0); i < count; i++ {
		handleIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		handle, err := cp.GetMethodHandle(handleIdx)
		if err != nil {
			return nil, err
		}
		argCount, err := cr.u16()
		if err != nil {
			return nil, err
		}
		args := make([]ConstantValue, 0, argCount)
		for k := uint16(0); k < argCount; k++ {
			argIdx, err := cr.u16()
			if err != nil {
				return nil, err
			}
			arg, err := cp.GetConstantValue(argIdx)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		methods = append(methods, BootstrapMethod{Handle: handle, Arguments: args})
	}
	return BootstrapMethodsAttr{Methods: methods}, nil
}

func parseMethodParametersAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	count, err := cr.u8()
	if err != nil {
		return nil, err
	}
	params := make([]MethodParameter, 0, count)
	for i := uint8(0); i < count; i++ {
		nameIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		var name string
		if nameIdx != 0 {
			name, err = cp.GetUTF8(nameIdx)
			if err != nil {
				return nil, err
			}
		}
		rawFlags, err := cr.u16()
		if err != nil {
			return nil, err
		}
		flags, err := checkFlags("method parameter", rawFlags, parameterFlagsMask)
		if err != nil {
			return nil, err
		}
		params = append(params, MethodParameter{ParamName: name, Flags: flags})
	}
	return MethodParametersAttr{Parameters: params}, nil
}

func parseModuleAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	moduleIdx, err := cr.u16()
	if err != nil {
		return nil, err
	}
	name, err := cp.GetModuleRef(moduleIdx)
	if err != nil {
		return nil, err
	}
	rawFlags, err := cr.u16()
	if err != nil {
		return nil, err
	}
	flags, err := checkFlags("module", rawFlags, moduleFlagsMask)
	if err != nil {
		return nil, err
	}
	versionIdx, err := cr.u16()
	if err != nil {
		return nil, err
	}
	var version string
	if versionIdx != 0 {
		version, err = cp.GetUTF8(versionIdx)
		if err != nil {
			return nil, err
		}
	}
	m := Module{Name: name, Flags: flags, Version: version}

	requiresCount, err := cr.u16()
	if err != nil {
		return nil, err
	}
	for i := uint16(0); i < requiresCount; i++ {
		reqIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		reqModule, err := cp.GetModuleRef(reqIdx)
		if err != nil {
			return nil, err
		}
		rawReqFlags, err := cr.u16()
		if err != nil {
			return nil, err
		}
		reqFlags, err := checkFlags("module requires", rawReqFlags, requiresFlagsMask)
		if err != nil {
			return nil, err
		}
		reqVersionIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		var reqVersion string
		if reqVersionIdx != 0 {
			reqVersion, err = cp.GetUTF8(reqVersionIdx)
			if err != nil {
				return nil, err
			}
		}
		m.Requires = append(m.Requires, ModuleRequire{
			Module: reqModule, Flags: reqFlags, Version: reqVersion})
	}

	exportsCount, err := cr.u16()
	if err != nil {
		return nil, err
	}
	for i := uint16(0); i < exportsCount; i++ {
		pkgIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		pkg, err := cp.GetPackageRef(pkgIdx)
		if err != nil {
			return nil, err
		}
		rawExpFlags, err := cr.u16()
		if err != nil {
			return nil, err
		}
		expFlags, err := checkFlags("module exports", rawExpFlags, exportsFlagsMask)
		if err != nil {
			return nil, err
		}
		to, err := parseModuleRefList(cr, cp)
		if err != nil {
			return nil, err
		}
		m.Exports = append(m.Exports, ModuleExport{
			Package: pkg, Flags: expFlags, To: to})
	}

	opensCount, err := cr.u16()
	if err != nil {
		return nil, err
	}
	for i := uint16(0); i < opensCount; i++ {
		pkgIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		pkg, err := cp.GetPackageRef(pkgIdx)
		if err != nil {
			return nil, err
		}
		rawOpenFlags, err := cr.u16()
		if err != nil {
			return nil, err
		}
		openFlags, err := checkFlags("module opens", rawOpenFlags, exportsFlagsMask)
		if err != nil {
			return nil, err
		}
		to, err := parseModuleRefList(cr, cp)
		if err != nil {
			return nil, err
		}
		m.Opens = append(m.Opens, ModuleOpen{
			Package: pkg, Flags: openFlags, To: to})
	}

	uses, err := parseClassRefList(cr, cp)
	if err != nil {
		return nil, err
	}
	m.Uses = uses

	providesCount, err := cr.u16()
	if err != nil {
		return nil, err
	}
	for i := uint16(0); i < providesCount; i++ {
		serviceIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		service, err := cp.GetClassRef(serviceIdx)
		if err != nil {
			return nil, err
		}
		with, err := parseClassRefList(cr, cp)
		if err != nil {
			return nil, err
		}
		m.Provides = append(m.Provides, ModuleProvide{Service: service, With: with})
	}
	return ModuleAttr{Module: m}, nil
}

func parseModuleRefList(cr *countingReader, cp *ConstantPool) ([]ModuleRef, error) {
	count, err := cr.u16()
	if err != nil {
		return nil, err
	}
	refs := make([]ModuleRef, 0, count)
	for i := uint16(0); i < count; i++ {
		idx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		ref, err := cp.GetModuleRef(idx)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func parseModulePackagesAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	count, err := cr.u16()
	if err != nil {
		return nil, err
	}
	pkgs := make([]PackageRef, 0, count)
	for i := uint16(0); i < count; i++ {
		idx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		pkg, err := cp.GetPackageRef(idx)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}
	return ModulePackagesAttr{Packages: pkgs}, nil
}

func parseModuleMainClassAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	idx, err := cr.u16()
	if err != nil {
		return nil, err
	}
	class, err := cp.GetClassRef(idx)
	return ModuleMainClassAttr{Class: class}, err
}

func parseNestHostAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	idx, err := cr.u16()
	if err != nil {
		return nil, err
	}
	class, err := cp.GetClassRef(idx)
	return NestHostAttr{Class: class}, err
}

func parseNestMembersAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	refs, err := parseClassRefList(cr, cp)
	return NestMembersAttr{Classes: refs}, err
}

func parsePermittedSubclassesAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	refs, err := parseClassRefList(cr, cp)
	return PermittedSubclassesAttr{Classes: refs}, err
}

func parseRecordAttr(cr *countingReader, cp *ConstantPool) (Attribute, error) {
	count, err := cr.u16()
	if err != nil {
		return nil, err
	}
	components := make([]RecordComponent, 0, count)
	for i := uint16(0); i < count; i++ {
		nameIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		name, err := cp.GetUTF8(nameIdx)
		if err != nil {
			return nil, err
		}
		descIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		desc, err := cp.GetUTF8(descIdx)
		if err != nil {
			return nil, err
		}
		fieldType, err := ParseFieldType(desc)
		if err != nil {
			return nil, err
		}
		attrs, err := parseAttributeList(cr, cp)
		if err != nil {
			return nil, err
		}
		component := RecordComponent{ComponentName: name, Type: fieldType}
		for _, attr := range attrs {
			switch a := attr.(type) {
			case SignatureAttr:
				component.Signature = a.Signature
			case RuntimeVisibleAnnotationsAttr:
				component.Annotations = append(component.Annotations, a.Annotations...)
			case RuntimeInvisibleAnnotationsAttr:
				component.InvisibleAnnotations = append(component.InvisibleAnnotations, a.Annotations...)
			case RuntimeVisibleTypeAnnotationsAttr:
				component.TypeAnnotations = append(component.TypeAnnotations, a.Annotations...)
			case RuntimeInvisibleTypeAnnotationsAttr:
				component.InvisibleTypeAnnotations = append(component.InvisibleTypeAnnotations, a.Annotations...)
			case RawAttribute:
				component.FreeAttributes = append(component.FreeAttributes, a)
			default:
				return nil, malformed("attribute %s is not allowed on a record component",
					attr.Name())
			}
		}
		components = append(components, component)
	}
	return RecordAttr{Components: components}, nil
}
