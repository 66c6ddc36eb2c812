// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"bytes"
	"io"
)

// Write serializes the class back into class file format. The constant
// pool is rebuilt from the model with deduplicating insertion; the pool's
// byte layout may therefore differ from the file the class was parsed
// from, but re-parsing the output yields a semantically equal class.
func (c *Class) Write(w io.Writer) error {
	cp := NewConstantPool()

	// The member and attribute tables are rendered first so that every
	// entry they need lands in the pool before the pool itself is emitted.
	var bodyBuf bytes.Buffer
	bw := newCountingWriter(&bodyBuf)

	thisIdx := cp.putClass(c.ThisClass)
	var superIdx uint16
	if c.SuperClass != nil {
		superIdx = cp.putClass(*c.SuperClass)
	}
	interfaceIdxs := make([]uint16, 0, len(c.Interfaces))
	for _, itf := range c.Interfaces {
		interfaceIdxs = append(interfaceIdxs, cp.putClass(itf))
	}

	if err := bw.u16(uint16(len(c.Fields))); err != nil {
		return err
	}
	for i := range c.Fields {
		if err := writeFieldInfo(bw, cp, &c.Fields[i]); err != nil {
			return err
		}
	}
	if err := bw.u16(uint16(len(c.Methods))); err != nil {
		return err
	}
	for i := range c.Methods {
		if err := writeMethodInfo(bw, cp, &c.Methods[i]); err != nil {
			return err
		}
	}
	if err := writeAttributeList(bw, cp, c.classAttributes()); err != nil {
		return err
	}

	cw := newCountingWriter(w)
	if err := cw.u32(Magic); err != nil {
		return err
	}
	if err := cw.u16(c.Version.Minor); err != nil {
		return err
	}
	if err := cw.u16(c.Version.Major); err != nil {
		return err
	}
	if err := cp.write(cw); err != nil {
		return err
	}
	if err := cw.u16(uint16(c.Flags)); err != nil {
		return err
	}
	if err := cw.u16(thisIdx); err != nil {
		return err
	}
	if err := cw.u16(superIdx); err != nil {
		return err
	}
	if err := cw.u16(uint16(len(interfaceIdxs))); err != nil {
		return err
	}
	for _, idx := range interfaceIdxs {
		if err := cw.u16(idx); err != nil {
			return err
		}
	}
	return cw.bytes(bodyBuf.Bytes())
}

// classAttributes rebuilds the class-level attribute list from the
// extracted grab-bag.
func (c *Class) classAttributes() []Attribute {
	var attrs []Attribute
	if c.SourceFile != "" {
		attrs = append(attrs, SourceFileAttr{Value: c.SourceFile})
	}
	if c.SourceDebugExtension != nil {
		attrs = append(attrs, SourceDebugExtensionAttr{Data: c.SourceDebugExtension})
	}
	if len(c.InnerClasses) > 0 {
		attrs = append(attrs, InnerClassesAttr{Entries: c.InnerClasses})
	}
	if c.EnclosingMethod != nil {
		attrs = append(attrs, *c.EnclosingMethod)
	}
	if len(c.BootstrapMethods) > 0 {
		attrs = append(attrs, BootstrapMethodsAttr{Methods: c.BootstrapMethods})
	}
	if c.Module != nil {
		attrs = append(attrs, ModuleAttr{Module: *c.Module})
	}
	if len(c.ModulePackages) > 0 {
		attrs = append(attrs, ModulePackagesAttr{Packages: c.ModulePackages})
	}
	if c.ModuleMainClass != nil {
		attrs = append(attrs, ModuleMainClassAttr{Class: *c.ModuleMainClass})
	}
	if c.NestHost != nil {
		attrs = append(attrs, NestHostAttr{Class: *c.NestHost})
	}
	if len(c.NestMembers) > 0 {
		attrs = append(attrs, NestMembersAttr{Classes: c.NestMembers})
	}
	if len(c.PermittedSubclasses) > 0 {
		attrs = append(attrs, PermittedSubclassesAttr{Classes: c.PermittedSubclasses})
	}
	if c.IsRecord {
		attrs = append(attrs, RecordAttr{Components: c.RecordComponents})
	}
	if c.Synthetic {
		attrs = append(attrs, SyntheticAttr{})
	}
	if c.Deprecated {
		attrs = append(attrs, DeprecatedAttr{})
	}
	if c.Signature != "" {
		attrs = append(attrs, SignatureAttr{Signature: c.Signature})
	}
	attrs = appendAnnotationAttrs(attrs, c.Annotations, c.InvisibleAnnotations,
		c.TypeAnnotations, c.InvisibleTypeAnnotations)
	for _, raw := range c.FreeAttributes {
		attrs = append(attrs, raw)
	}
	return attrs
}

func appendAnnotationAttrs(attrs []Attribute, visible, invisible []Annotation,
	visibleType, invisibleType []TypeAnnotation) []Attribute {
	if len(visible) > 0 {
		attrs = append(attrs, RuntimeVisibleAnnotationsAttr{Annotations: visible})
	}
	if len(invisible) > 0 {
		attrs = append(attrs, RuntimeInvisibleAnnotationsAttr{Annotations: invisible})
	}
	if len(visibleType) > 0 {
		attrs = append(attrs, RuntimeVisibleTypeAnnotationsAttr{Annotations: visibleType})
	}
	if len(invisibleType) > 0 {
		attrs = append(attrs, RuntimeInvisibleTypeAnnotationsAttr{Annotations: invisibleType})
	}
	return attrs
}

func writeFieldInfo(cw *countingWriter, cp *ConstantPool, f *Field) error {
	if err := cw.u16(uint16(f.Flags)); err != nil {
		return err
	}
	if err := cw.u16(cp.putUTF8(f.Name)); err != nil {
		return err
	}
	if err := cw.u16(cp.putUTF8(f.Type.Descriptor())); err != nil {
		return err
	}
	var attrs []Attribute
	if f.ConstantValue != nil {
		attrs = append(attrs, ConstantValueAttr{Value: f.ConstantValue})
	}
	if f.Synthetic {
		attrs = append(attrs, SyntheticAttr{})
	}
	if f.Deprecated {
		attrs = append(attrs, DeprecatedAttr{})
	}
	if f.Signature != "" {
		attrs = append(attrs, SignatureAttr{Signature: f.Signature})
	}
	attrs = appendAnnotationAttrs(attrs, f.Annotations, f.InvisibleAnnotations,
		f.TypeAnnotations, f.InvisibleTypeAnnotations)
	for _, raw := range f.FreeAttributes {
		attrs = append(attrs, raw)
	}
	return writeAttributeList(cw, cp, attrs)
}

func writeMethodInfo(cw *countingWriter, cp *ConstantPool, m *Method) error {
	if err := cw.u16(uint16(m.Flags)); err != nil {
		return err
	}
	if err := cw.u16(cp.putUTF8(m.Name)); err != nil {
		return err
	}
	if err := cw.u16(cp.putUTF8(m.Descriptor.Descriptor())); err != nil {
		return err
	}
	var attrs []Attribute
	if m.Body != nil {
		attrs = append(attrs, CodeAttr{Body: *m.Body})
	}
	if len(m.Exceptions) > 0 {
		attrs = append(attrs, ExceptionsAttr{Exceptions: m.Exceptions})
	}
	if len(m.Parameters) > 0 {
		attrs = append(attrs, MethodParametersAttr{Parameters: m.Parameters})
	}
	if m.AnnotationDefault != nil {
		attrs = append(attrs, AnnotationDefaultAttr{Value: m.AnnotationDefault})
	}
	if m.Synthetic {
		attrs = append(attrs, SyntheticAttr{})
	}
	if m.Deprecated {
		attrs = append(attrs, DeprecatedAttr{})
	}
	if m.Signature != "" {
		attrs = append(attrs, SignatureAttr{Signature: m.Signature})
	}
	if len(m.ParameterAnnotations) > 0 {
		attrs = append(attrs, RuntimeVisibleParameterAnnotationsAttr{
			Parameters: m.ParameterAnnotations})
	}
	if len(m.InvisibleParameterAnnotations) > 0 {
		attrs = append(attrs, RuntimeInvisibleParameterAnnotationsAttr{
			Parameters: m.InvisibleParameterAnnotations})
	}
	attrs = appendAnnotationAttrs(attrs, m.Annotations, m.InvisibleAnnotations,
		m.TypeAnnotations, m.InvisibleTypeAnnotations)
	for _, raw := range m.FreeAttributes {
		attrs = append(attrs, raw)
	}
	return writeAttributeList(cw, cp, attrs)
}
