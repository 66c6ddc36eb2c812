// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import "bytes"

// writeAttributeList serializes attributes_count and the attribute windows.
// Each attribute body is rendered into a scratch buffer first so the
// length prefix can be emitted, registering pool entries along the way.
func writeAttributeList(cw *countingWriter, cp *ConstantPool, attrs []Attribute) error {
	if err := cw.u16(uint16(len(attrs))); err != nil {
		return err
	}
	for _, attr := range attrs {
		if err := writeAttribute(cw, cp, attr); err != nil {
			return err
		}
	}
	return nil
}

func writeAttribute(cw *countingWriter, cp *ConstantPool, attr Attribute) error {
	nameIdx := cp.putUTF8(attr.Name())
	var buf bytes.Buffer
	bw := newCountingWriter(&buf)
	if err := writeAttributeBody(bw, cp, attr); err != nil {
		return err
	}
	if err := cw.u16(nameIdx); err != nil {
		return err
	}
	if err := cw.u32(uint32(buf.Len())); err != nil {
		return err
	}
	return cw.bytes(buf.Bytes())
}

func writeClassRefList(cw *countingWriter, cp *ConstantPool, refs []ClassRef) error {
	if err := cw.u16(uint16(len(refs))); err != nil {
		return err
	}
	for _, ref := range refs {
		if err := cw.u16(cp.putClass(ref)); err != nil {
			return err
		}
	}
	return nil
}

func writeModuleRefList(cw *countingWriter, cp *ConstantPool, refs []ModuleRef) error {
	if err := cw.u16(uint16(len(refs))); err != nil {
		return err
	}
	for _, ref := range refs {
		if err := cw.u16(cp.putModule(ref)); err != nil {
			return err
		}
	}
	return nil
}

func writeAttributeBody(cw *countingWriter, cp *ConstantPool, attr Attribute) error {
	switch a := attr.(type) {
	case RawAttribute:
		return cw.bytes(a.Data)

	case ConstantValueAttr:
		idx, err := cp.putConstantValue(a.Value)
		if err != nil {
			return err
		}
		return cw.u16(idx)

	case CodeAttr:
		return writeCodeBody(cw, cp, a.Body)

	case StackMapTableAttr:
		return writeStackMapTable(cw, cp, a.Frames)

	case ExceptionsAttr:
		return writeClassRefList(cw, cp, a.Exceptions)

	case SourceFileAttr:
		return cw.u16(cp.putUTF8(a.Value))

	case SourceDebugExtensionAttr:
		return cw.bytes(a.Data)

	case LineNumberTableAttr:
		if err := cw.u16(uint16(len(a.Entries))); err != nil {
			return err
		}
		for _, e := range a.Entries {
			if err := cw.u16(uint16(e.StartPC)); err != nil {
				return err
			}
			if err := cw.u16(e.LineNumber); err != nil {
				return err
			}
		}
		return nil

	case LocalVariableTableAttr:
		return writeLocalVariableEntries(cw, cp, a.Entries, false)

	case LocalVariableTypeTableAttr:
		return writeLocalVariableEntries(cw, cp, a.Entries, true)

	case InnerClassesAttr:
		if err := cw.u16(uint16(len(a.Entries))); err != nil {
			return err
		}
		for _, e := range a.Entries {
			if err := cw.u16(cp.putClass(e.Inner)); err != nil {
				return err
			}
			var outerIdx uint16
			if e.Outer != nil {
				outerIdx = cp.putClass(*e.Outer)
			}
			if err := cw.u16(outerIdx); err != nil {
				return err
			}
			var nameIdx uint16
			if e.InnerName != "" {
				nameIdx = cp.putUTF8(e.InnerName)
			}
			if err := cw.u16(nameIdx); err != nil {
				return err
			}
			if err := cw.u16(uint16(e.Flags)); err != nil {
				return err
			}
		}
		return nil

	case EnclosingMethodAttr:
		if err := cw.u16(cp.putClass(a.Class)); err != nil {
			return err
		}
		var methodIdx uint16
		if a.Method != nil {
			methodIdx = cp.putNameAndType(a.Method.Name, a.Method.Descriptor)
		}
		return cw.u16(methodIdx)

	case SyntheticAttr, DeprecatedAttr:
		return nil

	case SignatureAttr:
		return cw.u16(cp.putUTF8(a.Signature))

	case RuntimeVisibleAnnotationsAttr:
		return writeAnnotationList(cw, cp, a.Annotations)
	case RuntimeInvisibleAnnotationsAttr:
		return writeAnnotationList(cw, cp, a.Annotations)
	case RuntimeVisibleParameterAnnotationsAttr:
		return writeParameterAnnotations(cw, cp, a.Parameters)
	case RuntimeInvisibleParameterAnnotationsAttr:
		return writeParameterAnnotations(cw, cp, a.Parameters)
	case RuntimeVisibleTypeAnnotationsAttr:
		return writeTypeAnnotationList(cw, cp, a.Annotations)
	case RuntimeInvisibleTypeAnnotationsAttr:
		return writeTypeAnnotationList(cw, cp, a.Annotations)

	case AnnotationDefaultAttr:
		return writeElementValue(cw, cp, a.Value)

	case BootstrapMethodsAttr:
		if err := cw.u16(uint16(len(a.Methods))); err != nil {
			return err
		}
		for _, m := range a.Methods {
			handleIdx, err := cp.putMethodHandle(m.Handle)
			if err != nil {
				return err
			}
			if err := cw.u16(handleIdx); err != nil {
				return err
			}
			if err := cw.u16(uint16(len(m.Arguments))); err != nil {
				return err
			}
			for _, arg := range m.Arguments {
				argIdx, err := cp.putConstantValue(arg)
				if err != nil {
					return err
				}
				if err := cw.u16(argIdx); err != nil {
					return err
				}
			}
		}
		return nil

	case MethodParametersAttr:
		if err := cw.u8(uint8(len(a.Parameters))); err != nil {
			return err
		}
		for _, p := range a.Parameters {
			var nameIdx uint16
			if p.ParamName != "" {
				nameIdx = cp.putUTF8(p.ParamName)
			}
			if err := cw.u16(nameIdx); err != nil {
				return err
			}
			if err := cw.u16(uint16(p.Flags)); err != nil {
				return err
			}
		}
		return nil

	case ModuleAttr:
		return writeModuleBody(cw, cp, a.Module)

	case ModulePackagesAttr:
		if err := cw.u16(uint16(len(a.Packages))); err != nil {
			return err
		}
		for _, pkg := range a.Packages {
			if err := cw.u16(cp.putPackage(pkg)); err != nil {
				return err
			}
		}
		return nil

	case ModuleMainClassAttr:
		return cw.u16(cp.putClass(a.Class))

	case NestHostAttr:
		return cw.u16(cp.putClass(a.Class))

	case NestMembersAttr:
		return writeClassRefList(cw, cp, a.Classes)

	case PermittedSubclassesAttr:
		return writeClassRefList(cw, cp, a.Classes)

	case RecordAttr:
		if err := cw.u16(uint16(len(a.Components))); err != nil {
			return err
		}
		for _, c := range a.Components {
			if err := cw.u16(cp.putUTF8(c.ComponentName)); err != nil {
				return err
			}
			if err := cw.u16(cp.putUTF8(c.Type.Descriptor())); err != nil {
				return err
			}
			if err := writeAttributeList(cw, cp, recordComponentAttrs(c)); err != nil {
				return err
			}
		}
		return nil

	default:
		panic("jclass: attribute of unknown concrete type")
	}
}

func writeAnnotationList(cw *countingWriter, cp *ConstantPool, annos []Annotation) error {
	if err := cw.u16(uint16(len(annos))); err != nil {
		return err
	}
	for _, a := range annos {
		if err := writeAnnotation(cw, cp, a); err != nil {
			return err
		}
	}
	return nil
}

func writeParameterAnnotations(cw *countingWriter, cp *ConstantPool, params [][]Annotation) error {
	if err := cw.u8(uint8(len(params))); err != nil {
		return err
	}
	for _, annos := range params {
		if err := writeAnnotationList(cw, cp, annos); err != nil {
			return err
		}
	}
	return nil
}

func writeTypeAnnotationList(cw *countingWriter, cp *ConstantPool, annos []TypeAnnotation) error {
	if err := cw.u16(uint16(len(annos))); err != nil {
		return err
	}
	for _, a := range annos {
		if err := writeTypeAnnotation(cw, cp, a); err != nil {
			return err
		}
	}
	return nil
}

func writeLocalVariableEntries(cw *countingWriter, cp *ConstantPool, entries []LocalVariableEntry, typeTable bool) error {
	if err := cw.u16(uint16(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.u16(uint16(e.StartPC)); err != nil {
			return err
		}
		if err := cw.u16(e.Length); err != nil {
			return err
		}
		if err := cw.u16(cp.putUTF8(e.Name)); err != nil {
			return err
		}
		desc := e.Descriptor
		if typeTable {
			desc = e.Signature
		}
		if err := cw.u16(cp.putUTF8(desc)); err != nil {
			return err
		}
		if err := cw.u16(e.Index); err != nil {
			return err
		}
	}
	return nil
}

func writeVerificationType(cw *countingWriter, cp *ConstantPool, vt VerificationType) error {
	switch t := vt.(type) {
	case VTTop:
		return cw.u8(0)
	case VTInteger:
		return cw.u8(1)
	case VTFloat:
		return cw.u8(2)
	case VTDouble:
		return cw.u8(3)
	case VTLong:
		return cw.u8(4)
	case VTNull:
		return cw.u8(5)
	case VTUninitializedThis:
		return cw.u8(6)
	case VTObject:
		if err := cw.u8(7); err != nil {
			return err
		}
		return cw.u16(cp.putClass(t.Class))
	case VTUninitialized:
		if err := cw.u8(8); err != nil {
			return err
		}
		return cw.u16(uint16(t.Offset))
	default:
		panic("jclass: verification type of unknown concrete type")
	}
}

func writeStackMapTable(cw *countingWriter, cp *ConstantPool, frames []StackMapFrame) error {
	if err := cw.u16(uint16(len(frames))); err != nil {
		return err
	}
	for _, frame := range frames {
		if err := cw.u8(frame.FrameType); err != nil {
			return err
		}
		frameType := frame.FrameType
		switch {
		case frameType <= 63:
			// offset delta is the frame type itself
		case frameType <= 127:
			if err := writeVerificationType(cw, cp, frame.Stack[0]); err != nil {
				return err
			}
		case frameType == 247:
			if err := cw.u16(frame.OffsetDelta); err != nil {
				return err
			}
			if err := writeVerificationType(cw, cp, frame.Stack[0]); err != nil {
				return err
			}
		case frameType >= 248 && frameType <= 251:
			if err := cw.u16(frame.OffsetDelta); err != nil {
				return err
			}
		case frameType >= 252 && frameType <= 254:
			if err := cw.u16(frame.OffsetDelta); err != nil {
				return err
			}
			for _, vt := range frame.Locals {
				if err := writeVerificationType(cw, cp, vt); err != nil {
					return err
				}
			}
		case frameType == 255:
			if err := cw.u16(frame.OffsetDelta); err != nil {
				return err
			}
			if err := cw.u16(uint16(len(frame.Locals))); err != nil {
				return err
			}
			for _, vt := range frame.Locals {
				if err := writeVerificationType(cw, cp, vt); err != nil {
					return err
				}
			}
			if err := cw.u16(uint16(len(frame.Stack))); err != nil {
				return err
			}
			for _, vt := range frame.Stack {
				if err := writeVerificationType(cw, cp, vt); err != nil {
					return err
				}
			}
		default:
			return UnknownAttributeTagError{Attribute: "StackMapTable", Tag: frameType}
		}
	}
	return nil
}

func writeCodeBody(cw *countingWriter, cp *ConstantPool, body MethodBody) error {
	if err := cw.u16(body.MaxStack); err != nil {
		return err
	}
	if err := cw.u16(body.MaxLocals); err != nil {
		return err
	}
	code, err := encodeInstructions(body.Instructions, cp)
	if err != nil {
		return err
	}
	if err := cw.u32(uint32(len(code))); err != nil {
		return err
	}
	if err := cw.bytes(code); err != nil {
		return err
	}
	if err := cw.u16(uint16(len(body.ExceptionTable))); err != nil {
		return err
	}
	for _, e := range body.ExceptionTable {
		if err := cw.u16(uint16(e.StartPC)); err != nil {
			return err
		}
		if err := cw.u16(uint16(e.EndPC)); err != nil {
			return err
		}
		if err := cw.u16(uint16(e.HandlerPC)); err != nil {
			return err
		}
		var catchIdx uint16
		if e.CatchType != nil {
			catchIdx = cp.putClass(*e.CatchType)
		}
		if err := cw.u16(catchIdx); err != nil {
			return err
		}
	}
	var nested []Attribute
	if len(body.LineNumbers) > 0 {
		nested = append(nested, LineNumberTableAttr{Entries: body.LineNumbers})
	}
	if len(body.LocalVariables) > 0 {
		nested = append(nested, LocalVariableTableAttr{Entries: body.LocalVariables})
	}
	if len(body.LocalVariableTypes) > 0 {
		nested = append(nested, LocalVariableTypeTableAttr{Entries: body.LocalVariableTypes})
	}
	if body.StackMapTable != nil {
		nested = append(nested, StackMapTableAttr{Frames: body.StackMapTable})
	}
	if len(body.TypeAnnotations) > 0 {
		nested = append(nested, RuntimeVisibleTypeAnnotationsAttr{
			Annotations: body.TypeAnnotations})
	}
	if len(body.InvisibleTypeAnnotations) > 0 {
		nested = append(nested, RuntimeInvisibleTypeAnnotationsAttr{
			Annotations: body.InvisibleTypeAnnotations})
	}
	for _, raw := range body.FreeAttributes {
		nested = append(nested, raw)
	}
	return writeAttributeList(cw, cp, nested)
}

func writeModuleBody(cw *countingWriter, cp *ConstantPool, m Module) error {
	if err := cw.u16(cp.putModule(m.Name)); err != nil {
		return err
	}
	if err := cw.u16(uint16(m.Flags)); err != nil {
		return err
	}
	var versionIdx uint16
	if m.Version != "" {
		versionIdx = cp.putUTF8(m.Version)
	}
	if err := cw.u16(versionIdx); err != nil {
		return err
	}
	if err := cw.u16(uint16(len(m.Requires))); err != nil {
		return err
	}
	for _, req := range m.Requires {
		if err := cw.u16(cp.putModule(req.Module)); err != nil {
			return err
		}
		if err := cw.u16(uint16(req.Flags)); err != nil {
			return err
		}
		var reqVersionIdx uint16
		if req.Version != "" {
			reqVersionIdx = cp.putUTF8(req.Version)
		}
		if err := cw.u16(reqVersionIdx); err != nil {
			return err
		}
	}
	if err := cw.u16(uint16(len(m.Exports))); err != nil {
		return err
	}
	for _, exp := range m.Exports {
		if err := cw.u16(cp.putPackage(exp.Package)); err != nil {
			return err
		}
		if err := cw.u16(uint16(exp.Flags)); err != nil {
			return err
		}
		if err := writeModuleRefList(cw, cp, exp.To); err != nil {
			return err
		}
	}
	if err := cw.u16(uint16(len(m.Opens))); err != nil {
		return err
	}
	for _, open := range m.Opens {
		if err := cw.u16(cp.putPackage(open.Package)); err != nil {
			return err
		}
		if err := cw.u16(uint16(open.Flags)); err != nil {
			return err
		}
		if err := writeModuleRefList(cw, cp, open.To); err != nil {
			return err
		}
	}
	if err := writeClassRefList(cw, cp, m.Uses); err != nil {
		return err
	}
	if err := cw.u16(uint16(len(m.Provides))); err != nil {
		return err
	}
	for _, prov := range m.Provides {
		if err := cw.u16(cp.putClass(prov.Service)); err != nil {
			return err
		}
		if err := writeClassRefList(cw, cp, prov.With); err != nil {
			return err
		}
	}
	return nil
}

// recordComponentAttrs rebuilds a component's attribute list for writing.
func recordComponentAttrs(c RecordComponent) []Attribute {
	var attrs []Attribute
	if c.Signature != "" {
		attrs = append(attrs, SignatureAttr{Signature: c.Signature})
	}
	if len(c.Annotations) > 0 {
		attrs = append(attrs, RuntimeVisibleAnnotationsAttr{Annotations: c.Annotations})
	}
	if len(c.InvisibleAnnotations) > 0 {
		attrs = append(attrs, RuntimeInvisibleAnnotationsAttr{Annotations: c.InvisibleAnnotations})
	}
	if len(c.TypeAnnotations) > 0 {
		attrs = append(attrs, RuntimeVisibleTypeAnnotationsAttr{Annotations: c.TypeAnnotations})
	}
	if len(c.InvisibleTypeAnnotations) > 0 {
		attrs = append(attrs, RuntimeInvisibleTypeAnnotationsAttr{Annotations: c.InvisibleTypeAnnotations})
	}
	for _, raw := range c.FreeAttributes {
		attrs = append(attrs, raw)
	}
	return attrs
}
