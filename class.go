// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

// Special method names.
const (
	ConstructorName = "<init>"
	ClassInitName   = "<clinit>"
)

// Class is the semantic model of a class file. It owns its fields, methods
// and attributes; it is immutable after parsing unless the consumer mutates
// it before re-serialization.
type Class struct {
	Version    Version     `json:"version"`
	Flags      AccessFlags `json:"flags"`
	ThisClass  ClassRef    `json:"this_class"`
	SuperClass *ClassRef   `json:"super_class,omitempty"`
	Interfaces []ClassRef  `json:"interfaces,omitempty"`
	Fields     []Field     `json:"fields,omitempty"`
	Methods    []Method    `json:"methods,omitempty"`

	SourceFile           string              `json:"source_file,omitempty"`
	SourceDebugExtension []byte              `json:"-"`
	InnerClasses         []InnerClassEntry   `json:"inner_classes,omitempty"`
	EnclosingMethod      *EnclosingMethodAttr `json:"-"`
	BootstrapMethods     []BootstrapMethod   `json:"bootstrap_methods,omitempty"`
	Module               *Module             `json:"module,omitempty"`
	ModulePackages       []PackageRef        `json:"module_packages,omitempty"`
	ModuleMainClass      *ClassRef           `json:"module_main_class,omitempty"`
	NestHost             *ClassRef           `json:"nest_host,omitempty"`
	NestMembers          []ClassRef          `json:"nest_members,omitempty"`
	PermittedSubclasses  []ClassRef          `json:"permitted_subclasses,omitempty"`
	IsRecord             bool                `json:"is_record,omitempty"`
	RecordComponents     []RecordComponent   `json:"record_components,omitempty"`
	Synthetic            bool                `json:"synthetic,omitempty"`
	Deprecated           bool                `json:"deprecated,omitempty"`
	Signature            string              `json:"signature,omitempty"`

	Annotations              []Annotation     `json:"-"`
	InvisibleAnnotations     []Annotation     `json:"-"`
	TypeAnnotations          []TypeAnnotation `json:"-"`
	InvisibleTypeAnnotations []TypeAnnotation `json:"-"`

	// FreeAttributes preserves unrecognized class-level attributes.
	FreeAttributes []RawAttribute `json:"-"`
}

// MakeRef returns the class's own reference.
func (c *Class) MakeRef() ClassRef {
	return c.ThisClass
}

// IsInterface reports whether the class is an interface.
func (c *Class) IsInterface() bool {
	return c.Flags.Has(AccInterface)
}

// Field is the semantic model of a field_info structure.
type Field struct {
	Flags AccessFlags `json:"flags"`
	Name  string      `json:"name"`
	Type  FieldType   `json:"type"`

	ConstantValue ConstantValue `json:"constant_value,omitempty"`
	Synthetic     bool          `json:"synthetic,omitempty"`
	Deprecated    bool          `json:"deprecated,omitempty"`
	Signature     string        `json:"signature,omitempty"`

	Annotations              []Annotation     `json:"-"`
	InvisibleAnnotations     []Annotation     `json:"-"`
	TypeAnnotations          []TypeAnnotation `json:"-"`
	InvisibleTypeAnnotations []TypeAnnotation `json:"-"`

	FreeAttributes []RawAttribute `json:"-"`
}

// MakeRef returns a symbolic reference to the field within owner.
func (f *Field) MakeRef(owner ClassRef) FieldRef {
	return FieldRef{Owner: owner, Name: f.Name, Type: f.Type}
}

// Method is the semantic model of a method_info structure.
type Method struct {
	Flags      AccessFlags      `json:"flags"`
	Name       string           `json:"name"`
	Descriptor MethodDescriptor `json:"descriptor"`
	Owner      ClassRef         `json:"owner"`

	// Body is nil for abstract and native methods.
	Body *MethodBody `json:"body,omitempty"`

	Exceptions        []ClassRef        `json:"exceptions,omitempty"`
	Parameters        []MethodParameter `json:"parameters,omitempty"`
	AnnotationDefault ElementValue      `json:"-"`
	Synthetic         bool              `json:"synthetic,omitempty"`
	Deprecated        bool              `json:"deprecated,omitempty"`
	Signature         string            `json:"signature,omitempty"`

	Annotations                    []Annotation     `json:"-"`
	InvisibleAnnotations           []Annotation     `json:"-"`
	ParameterAnnotations           [][]Annotation   `json:"-"`
	InvisibleParameterAnnotations  [][]Annotation   `json:"-"`
	TypeAnnotations                []TypeAnnotation `json:"-"`
	InvisibleTypeAnnotations       []TypeAnnotation `json:"-"`

	FreeAttributes []RawAttribute `json:"-"`
}

// MakeRef returns a symbolic reference to the method.
func (m *Method) MakeRef() MethodRef {
	return MethodRef{Owner: m.Owner, Name: m.Name, Descriptor: m.Descriptor}
}

// IsStatic reports whether the method is static.
func (m *Method) IsStatic() bool {
	return m.Flags.Has(AccStatic)
}

// attrSeen tracks the at-most-once extraction rule for semantic attributes.
type attrSeen map[string]bool

func (s attrSeen) mark(name string) error {
	if s[name] {
		return malformed("attribute %s appears more than once", name)
	}
	s[name] = true
	return nil
}

// extractClassAttributes materializes the class-level attribute grab-bag.
func (c *Class) extractClassAttributes(attrs []Attribute) error {
	seen := attrSeen{}
	for _, attr := range attrs {
		if raw, ok := attr.(RawAttribute); ok {
			c.FreeAttributes = append(c.FreeAttributes, raw)
			continue
		}
		if err := seen.mark(attr.Name()); err != nil {
			return err
		}
		switch a := attr.(type) {
		case SourceFileAttr:
			c.SourceFile = a.Value
		case SourceDebugExtensionAttr:
			c.SourceDebugExtension = a.Data
		case InnerClassesAttr:
			c.InnerClasses = a.Entries
		case EnclosingMethodAttr:
			enclosing := a
			c.EnclosingMethod = &enclosing
		case BootstrapMethodsAttr:
			c.BootstrapMethods = a.Methods
		case ModuleAttr:
			module := a.Module
			c.Module = &module
		case ModulePackagesAttr:
			c.ModulePackages = a.Packages
		case ModuleMainClassAttr:
			class := a.Class
			c.ModuleMainClass = &class
		case NestHostAttr:
			class := a.Class
			c.NestHost = &class
		case NestMembersAttr:
			c.NestMembers = a.Classes
		case PermittedSubclassesAttr:
			c.PermittedSubclasses = a.Classes
		case RecordAttr:
			c.IsRecord = true
			c.RecordComponents = a.Components
		case SyntheticAttr:
			c.Synthetic = true
		case DeprecatedAttr:
			c.Deprecated = true
		case SignatureAttr:
			c.Signature = a.Signature
		case RuntimeVisibleAnnotationsAttr:
			c.Annotations = a.Annotations
		case RuntimeInvisibleAnnotationsAttr:
			c.InvisibleAnnotations = a.Annotations
		case RuntimeVisibleTypeAnnotationsAttr:
			c.TypeAnnotations = a.Annotations
		case RuntimeInvisibleTypeAnnotationsAttr:
			c.InvisibleTypeAnnotations = a.Annotations
		default:
			return malformed("attribute %s is not allowed on a class", attr.Name())
		}
	}
	return nil
}

// extractFieldAttributes materializes a field's attributes.
func (f *Field) extractFieldAttributes(attrs []Attribute) error {
	seen := attrSeen{}
	for _, attr := range attrs {
		if raw, ok := attr.(RawAttribute); ok {
			f.FreeAttributes = append(f.FreeAttributes, raw)
			continue
		}
		if err := seen.mark(attr.Name()); err != nil {
			return err
		}
		switch a := attr.(type) {
		case ConstantValueAttr:
			f.ConstantValue = a.Value
		case SyntheticAttr:
			f.Synthetic = true
		case DeprecatedAttr:
			f.Deprecated = true
		case SignatureAttr:
			f.Signature = a.Signature
		case RuntimeVisibleAnnotationsAttr:
			f.Annotations = a.Annotations
		case RuntimeInvisibleAnnotationsAttr:
			f.InvisibleAnnotations = a.Annotations
		case RuntimeVisibleTypeAnnotationsAttr:
			f.TypeAnnotations = a.Annotations
		case RuntimeInvisibleTypeAnnotationsAttr:
			f.InvisibleTypeAnnotations = a.Annotations
		default:
			return malformed("attribute %s is not allowed on a field", attr.Name())
		}
	}
	return nil
}

// extractMethodAttributes materializes a method's attributes and enforces
// the Code presence rules.
func (m *Method) extractMethodAttributes(attrs []Attribute, version Version) error {
	seen := attrSeen{}
	for _, attr := range attrs {
		if raw, ok := attr.(RawAttribute); ok {
			m.FreeAttributes = append(m.FreeAttributes, raw)
			continue
		}
		if err := seen.mark(attr.Name()); err != nil {
			return err
		}
		switch a := attr.(type) {
		case CodeAttr:
			body := a.Body
			m.Body = &body
		case ExceptionsAttr:
			m.Exceptions = a.Exceptions
		case MethodParametersAttr:
			m.Parameters = a.Parameters
		case AnnotationDefaultAttr:
			m.AnnotationDefault = a.Value
		case SyntheticAttr:
			m.Synthetic = true
		case DeprecatedAttr:
			m.Deprecated = true
		case SignatureAttr:
			m.Signature = a.Signature
		case RuntimeVisibleAnnotationsAttr:
			m.Annotations = a.Annotations
		case RuntimeInvisibleAnnotationsAttr:
			m.InvisibleAnnotations = a.Annotations
		case RuntimeVisibleParameterAnnotationsAttr:
			m.ParameterAnnotations = a.Parameters
		case RuntimeInvisibleParameterAnnotationsAttr:
			m.InvisibleParameterAnnotations = a.Parameters
		case RuntimeVisibleTypeAnnotationsAttr:
			m.TypeAnnotations = a.Annotations
		case RuntimeInvisibleTypeAnnotationsAttr:
			m.InvisibleTypeAnnotations = a.Annotations
		default:
			return malformed("attribute %s is not allowed on a method", attr.Name())
		}
	}
	bodyAllowed := !m.Flags.Has(AccNative) && !m.Flags.Has(AccAbstract)
	if bodyAllowed && m.Body == nil {
		return malformed("method %s has no Code attribute", m.Name)
	}
	if !bodyAllowed && m.Body != nil {
		return malformed("abstract or native method %s has a Code attribute", m.Name)
	}
	if m.Name == ClassInitName && version.Major > MajorJava7 {
		if !m.Flags.Has(AccStatic) || len(m.Descriptor.Parameters) != 0 {
			return malformed("<clinit> must be static and take no parameters " +
				"in class files newer than major version 51")
		}
	}
	return nil
}
