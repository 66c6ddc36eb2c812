// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"bytes"
	"math"
)

// Constant pool entry tags per JVMS §4.4.
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// ConstantPoolEntry is a raw, index-carrying constant pool entry. The set of
// implementations is closed.
type ConstantPoolEntry interface {
	// Tag returns the entry's JVMS tag byte.
	Tag() uint8

	// Kind returns a human readable kind name used in error messages.
	Kind() string

	isConstantPoolEntry()
}

// ConstantUTF8 is a modified UTF-8 entry. When the bytes are not valid
// modified UTF-8 they are preserved raw and Valid is false.
type ConstantUTF8 struct {
	Value string
	Raw   []byte
	Valid bool
}

func (ConstantUTF8) Tag() uint8           { return TagUtf8 }
func (ConstantUTF8) Kind() string         { return "Utf8" }
func (ConstantUTF8) isConstantPoolEntry() {}

// ConstantInteger is a 32-bit integer entry.
type ConstantInteger struct {
	Value int32
}

func (ConstantInteger) Tag() uint8           { return TagInteger }
func (ConstantInteger) Kind() string         { return "Integer" }
func (ConstantInteger) isConstantPoolEntry() {}

// ConstantFloat is a 32-bit float entry.
type ConstantFloat struct {
	Value float32
}

func (ConstantFloat) Tag() uint8           { return TagFloat }
func (ConstantFloat) Kind() string         { return "Float" }
func (ConstantFloat) isConstantPoolEntry() {}

// ConstantLong is a 64-bit integer entry. It occupies two pool slots.
type ConstantLong struct {
	Value int64
}

func (ConstantLong) Tag() uint8           { return TagLong }
func (ConstantLong) Kind() string         { return "Long" }
func (ConstantLong) isConstantPoolEntry() {}

// ConstantDouble is a 64-bit float entry. It occupies two pool slots.
type ConstantDouble struct {
	Value float64
}

func (ConstantDouble) Tag() uint8           { return TagDouble }
func (ConstantDouble) Kind() string         { return "Double" }
func (ConstantDouble) isConstantPoolEntry() {}

// ConstantClass points to the UTF-8 entry holding the binary name.
type ConstantClass struct {
	NameIndex uint16
}

func (ConstantClass) Tag() uint8           { return TagClass }
func (ConstantClass) Kind() string         { return "Class" }
func (ConstantClass) isConstantPoolEntry() {}

// ConstantString points to the UTF-8 entry holding the literal.
type ConstantString struct {
	StringIndex uint16
}

func (ConstantString) Tag() uint8           { return TagString }
func (ConstantString) Kind() string         { return "String" }
func (ConstantString) isConstantPoolEntry() {}

// ConstantFieldref points to a class entry and a name-and-type entry.
type ConstantFieldref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (ConstantFieldref) Tag() uint8           { return TagFieldref }
func (ConstantFieldref) Kind() string         { return "Fieldref" }
func (ConstantFieldref) isConstantPoolEntry() {}

// ConstantMethodref points to a class entry and a name-and-type entry.
type ConstantMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (ConstantMethodref) Tag() uint8           { return TagMethodref }
func (ConstantMethodref) Kind() string         { return "Methodref" }
func (ConstantMethodref) isConstantPoolEntry() {}

// ConstantInterfaceMethodref points to a class entry and a name-and-type
// entry.
type ConstantInterfaceMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (ConstantInterfaceMethodref) Tag() uint8           { return TagInterfaceMethodref }
func (ConstantInterfaceMethodref) Kind() string         { return "InterfaceMethodref" }
func (ConstantInterfaceMethodref) isConstantPoolEntry() {}

// ConstantNameAndType points to two UTF-8 entries.
type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (ConstantNameAndType) Tag() uint8           { return TagNameAndType }
func (ConstantNameAndType) Kind() string         { return "NameAndType" }
func (ConstantNameAndType) isConstantPoolEntry() {}

// ConstantMethodHandle holds a reference kind and the referenced member.
type ConstantMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (ConstantMethodHandle) Tag() uint8           { return TagMethodHandle }
func (ConstantMethodHandle) Kind() string         { return "MethodHandle" }
func (ConstantMethodHandle) isConstantPoolEntry() {}

// ConstantMethodType points to the UTF-8 entry holding a method descriptor.
type ConstantMethodType struct {
	DescriptorIndex uint16
}

func (ConstantMethodType) Tag() uint8           { return TagMethodType }
func (ConstantMethodType) Kind() string         { return "MethodType" }
func (ConstantMethodType) isConstantPoolEntry() {}

// ConstantDynamic references a bootstrap method and a name-and-type entry.
type ConstantDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (ConstantDynamic) Tag() uint8           { return TagDynamic }
func (ConstantDynamic) Kind() string         { return "Dynamic" }
func (ConstantDynamic) isConstantPoolEntry() {}

// ConstantInvokeDynamic references a bootstrap method and a name-and-type
// entry.
type ConstantInvokeDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (ConstantInvokeDynamic) Tag() uint8           { return TagInvokeDynamic }
func (ConstantInvokeDynamic) Kind() string         { return "InvokeDynamic" }
func (ConstantInvokeDynamic) isConstantPoolEntry() {}

// ConstantModule points to the UTF-8 entry holding the module name.
type ConstantModule struct {
	NameIndex uint16
}

func (ConstantModule) Tag() uint8           { return TagModule }
func (ConstantModule) Kind() string         { return "Module" }
func (ConstantModule) isConstantPoolEntry() {}

// ConstantPackage points to the UTF-8 entry holding the package name.
type ConstantPackage struct {
	NameIndex uint16
}

func (ConstantPackage) Tag() uint8           { return TagPackage }
func (ConstantPackage) Kind() string         { return "Package" }
func (ConstantPackage) isConstantPoolEntry() {}

// constantPadding fills the slot following a Long or Double entry. It must
// never be addressed directly.
type constantPadding struct{}

func (constantPadding) Tag() uint8           { return 0 }
func (constantPadding) Kind() string         { return "<padding>" }
func (constantPadding) isConstantPoolEntry() {}

// ConstantPool is the indexed table of constants of a class file. Index 0
// is a reserved sentinel; Long and Double entries occupy two consecutive
// slots. During parsing the pool is read-only; during writing entries are
// inserted monotonically with structural deduplication.
type ConstantPool struct {
	entries []ConstantPoolEntry
}

// NewConstantPool returns an empty pool ready for writer-side insertion.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{entries: []ConstantPoolEntry{nil}}
}

// Count returns the constant_pool_count value, i.e. the number of slots
// including the reserved index 0.
func (cp *ConstantPool) Count() uint16 {
	return uint16(len(cp.entries))
}

// entry returns the raw entry at idx, rejecting index 0, out-of-range
// indices and padding slots.
func (cp *ConstantPool) entry(idx uint16) (ConstantPoolEntry, error) {
	if idx == 0 || int(idx) >= len(cp.entries) {
		return nil, BadConstantPoolIndexError{Index: idx}
	}
	e := cp.entries[idx]
	if _, pad := e.(constantPadding); pad {
		return nil, BadConstantPoolIndexError{Index: idx}
	}
	return e, nil
}

// GetUTF8 returns the decoded string at idx. It fails with ErrBrokenUTF8
// when the entry's bytes are preserved raw.
func (cp *ConstantPool) GetUTF8(idx uint16) (string, error) {
	e, err := cp.entry(idx)
	if err != nil {
		return "", err
	}
	utf8, ok := e.(ConstantUTF8)
	if !ok {
		return "", MismatchedKindError{Expected: "Utf8", Found: e.Kind()}
	}
	if !utf8.Valid {
		return "", ErrBrokenUTF8
	}
	return utf8.Value, nil
}

// getRawUTF8 returns the UTF-8 entry at idx with raw bytes preserved.
func (cp *ConstantPool) getRawUTF8(idx uint16) (ConstantUTF8, error) {
	e, err := cp.entry(idx)
	if err != nil {
		return ConstantUTF8{}, err
	}
	utf8, ok := e.(ConstantUTF8)
	if !ok {
		return ConstantUTF8{}, MismatchedKindError{Expected: "Utf8", Found: e.Kind()}
	}
	return utf8, nil
}

// GetClassRef returns the class reference at idx.
func (cp *ConstantPool) GetClassRef(idx uint16) (ClassRef, error) {
	e, err := cp.entry(idx)
	if err != nil {
		return ClassRef{}, err
	}
	c, ok := e.(ConstantClass)
	if !ok {
		return ClassRef{}, MismatchedKindError{Expected: "Class", Found: e.Kind()}
	}
	name, err := cp.GetUTF8(c.NameIndex)
	if err != nil {
		return ClassRef{}, err
	}
	return ClassRef{BinaryName: name}, nil
}

// GetNameAndType returns the name-and-type pair at idx.
func (cp *ConstantPool) GetNameAndType(idx uint16) (NameAndType, error) {
	e, err := cp.entry(idx)
	if err != nil {
		return NameAndType{}, err
	}
	nt, ok := e.(ConstantNameAndType)
	if !ok {
		return NameAndType{}, MismatchedKindError{Expected: "NameAndType", Found: e.Kind()}
	}
	name, err := cp.GetUTF8(nt.NameIndex)
	if err != nil {
		return NameAndType{}, err
	}
	desc, err := cp.GetUTF8(nt.DescriptorIndex)
	if err != nil {
		return NameAndType{}, err
	}
	return NameAndType{Name: name, Descriptor: desc}, nil
}

// GetFieldRef returns the field reference at idx.
func (cp *ConstantPool) GetFieldRef(idx uint16) (FieldRef, error) {
	e, err := cp.entry(idx)
	if err != nil {
		return FieldRef{}, err
	}
	f, ok := e.(ConstantFieldref)
	if !ok {
		return FieldRef{}, MismatchedKindError{Expected: "Fieldref", Found: e.Kind()}
	}
	owner, err := cp.GetClassRef(f.ClassIndex)
	if err != nil {
		return FieldRef{}, err
	}
	nt, err := cp.GetNameAndType(f.NameAndTypeIndex)
	if err != nil {
		return FieldRef{}, err
	}
	fieldType, err := ParseFieldType(nt.Descriptor)
	if err != nil {
		return FieldRef{}, err
	}
	return FieldRef{Owner: owner, Name: nt.Name, Type: fieldType}, nil
}

// GetMethodRef returns the method reference at idx. Both Methodref and
// InterfaceMethodref entries are accepted.
func (cp *ConstantPool) GetMethodRef(idx uint16) (MethodRef, error) {
	e, err := cp.entry(idx)
	if err != nil {
		return MethodRef{}, err
	}
	var classIdx, ntIdx uint16
	var itf bool
	switch m := e.(type) {
	case ConstantMethodref:
		classIdx, ntIdx = m.ClassIndex, m.NameAndTypeIndex
	case ConstantInterfaceMethodref:
		classIdx, ntIdx, itf = m.ClassIndex, m.NameAndTypeIndex, true
	default:
		return MethodRef{}, MismatchedKindError{Expected: "Methodref", Found: e.Kind()}
	}
	owner, err := cp.GetClassRef(classIdx)
	if err != nil {
		return MethodRef{}, err
	}
	nt, err := cp.GetNameAndType(ntIdx)
	if err != nil {
		return MethodRef{}, err
	}
	desc, err := ParseMethodDescriptor(nt.Descriptor)
	if err != nil {
		return MethodRef{}, err
	}
	return MethodRef{Owner: owner, Name: nt.Name, Descriptor: desc, Interface: itf}, nil
}

// GetModuleRef returns the module reference at idx.
func (cp *ConstantPool) GetModuleRef(idx uint16) (ModuleRef, error) {
	e, err := cp.entry(idx)
	if err != nil {
		return ModuleRef{}, err
	}
	m, ok := e.(ConstantModule)
	if !ok {
		return ModuleRef{}, MismatchedKindError{Expected: "Module", Found: e.Kind()}
	}
	name, err := cp.GetUTF8(m.NameIndex)
	if err != nil {
		return ModuleRef{}, err
	}
	return ModuleRef{Name: name}, nil
}

// GetPackageRef returns the package reference at idx.
func (cp *ConstantPool) GetPackageRef(idx uint16) (PackageRef, error) {
	e, err := cp.entry(idx)
	if err != nil {
		return PackageRef{}, err
	}
	p, ok := e.(ConstantPackage)
	if !ok {
		return PackageRef{}, MismatchedKindError{Expected: "Package", Found: e.Kind()}
	}
	name, err := cp.GetUTF8(p.NameIndex)
	if err != nil {
		return PackageRef{}, err
	}
	return PackageRef{Name: name}, nil
}

// GetMethodHandle returns the method handle at idx.
func (cp *ConstantPool) GetMethodHandle(idx uint16) (MethodHandle, error) {
	e, err := cp.entry(idx)
	if err != nil {
		return MethodHandle{}, err
	}
	h, ok := e.(ConstantMethodHandle)
	if !ok {
		return MethodHandle{}, MismatchedKindError{Expected: "MethodHandle", Found: e.Kind()}
	}
	kind := MethodHandleKind(h.ReferenceKind)
	switch kind {
	case RefGetField, RefGetStatic, RefPutField, RefPutStatic:
		field, err := cp.GetFieldRef(h.ReferenceIndex)
		if err != nil {
			return MethodHandle{}, err
		}
		return MethodHandle{Kind: kind, Field: &field}, nil
	case RefInvokeVirtual, RefInvokeStatic, RefInvokeSpecial,
		RefNewInvokeSpecial, RefInvokeInterface:
		method, err := cp.GetMethodRef(h.ReferenceIndex)
		if err != nil {
			return MethodHandle{}, err
		}
		return MethodHandle{Kind: kind, Method: &method}, nil
	default:
		return MethodHandle{}, malformed("method handle reference kind %d", h.ReferenceKind)
	}
}

// GetConstantValue returns the loadable constant at idx.
func (cp *ConstantPool) GetConstantValue(idx uint16) (ConstantValue, error) {
	e, err := cp.entry(idx)
	if err != nil {
		return nil, err
	}
	switch c := e.(type) {
	case ConstantInteger:
		return IntegerValue(c.Value), nil
	case ConstantFloat:
		return FloatValue(c.Value), nil
	case ConstantLong:
		return LongValue(c.Value), nil
	case ConstantDouble:
		return DoubleValue(c.Value), nil
	case ConstantString:
		raw, err := cp.getRawUTF8(c.StringIndex)
		if err != nil {
			return nil, err
		}
		return StringValue{Value: raw.Value, Raw: raw.Raw, Valid: raw.Valid}, nil
	case ConstantClass:
		name, err := cp.GetUTF8(c.NameIndex)
		if err != nil {
			return nil, err
		}
		return ClassValue{Class: ClassRef{BinaryName: name}}, nil
	case ConstantMethodType:
		desc, err := cp.GetUTF8(c.DescriptorIndex)
		if err != nil {
			return nil, err
		}
		md, err := ParseMethodDescriptor(desc)
		if err != nil {
			return nil, err
		}
		return MethodTypeValue{Descriptor: md}, nil
	case ConstantMethodHandle:
		handle, err := cp.GetMethodHandle(idx)
		if err != nil {
			return nil, err
		}
		return MethodHandleValue{Handle: handle}, nil
	case ConstantDynamic:
		nt, err := cp.GetNameAndType(c.NameAndTypeIndex)
		if err != nil {
			return nil, err
		}
		fieldType, err := ParseFieldType(nt.Descriptor)
		if err != nil {
			return nil, err
		}
		return DynamicValue{
			BootstrapMethodIndex: c.BootstrapMethodAttrIndex,
			Name:                 nt.Name,
			Descriptor:           fieldType,
		}, nil
	default:
		return nil, MismatchedKindError{Expected: "a loadable constant", Found: e.Kind()}
	}
}

// Put inserts an entry, deduplicating by structural equality: inserting an
// entry equal to an existing one returns the existing index. Long and
// Double entries claim an extra padding slot.
func (cp *ConstantPool) Put(entry ConstantPoolEntry) uint16 {
	for i := 1; i < len(cp.entries); i++ {
		if constantEntryEqual(cp.entries[i], entry) {
			return uint16(i)
		}
	}
	idx := uint16(len(cp.entries))
	cp.entries = append(cp.entries, entry)
	if entry.Tag() == TagLong || entry.Tag() == TagDouble {
		cp.entries = append(cp.entries, constantPadding{})
	}
	return idx
}

// constantEntryEqual compares two raw entries structurally. UTF-8 entries
// compare by bytes; float entries compare by bit pattern so that NaN
// constants deduplicate deterministically.
func constantEntryEqual(a, b ConstantPoolEntry) bool {
	if a == nil || b == nil || a.Tag() != b.Tag() {
		return false
	}
	if ua, ok := a.(ConstantUTF8); ok {
		ub := b.(ConstantUTF8)
		return bytes.Equal(utf8Bytes(ua), utf8Bytes(ub))
	}
	if fa, ok := a.(ConstantFloat); ok {
		fb := b.(ConstantFloat)
		return math.Float32bits(fa.Value) == math.Float32bits(fb.Value)
	}
	if da, ok := a.(ConstantDouble); ok {
		db := b.(ConstantDouble)
		return math.Float64bits(da.Value) == math.Float64bits(db.Value)
	}
	return a == b
}

// utf8Bytes returns the wire bytes of a UTF-8 entry.
func utf8Bytes(u ConstantUTF8) []byte {
	if !u.Valid {
		return u.Raw
	}
	return encodeMUTF8(u.Value)
}

// Writer-side convenience insertions. They build referenced entries first
// so that deduplication applies bottom-up.

func (cp *ConstantPool) putUTF8(s string) uint16 {
	return cp.Put(ConstantUTF8{Value: s, Valid: true})
}

func (cp *ConstantPool) putRawUTF8(u ConstantUTF8) uint16 {
	return cp.Put(u)
}

func (cp *ConstantPool) putClass(ref ClassRef) uint16 {
	nameIdx := cp.putUTF8(ref.BinaryName)
	return cp.Put(ConstantClass{NameIndex: nameIdx})
}

func (cp *ConstantPool) putNameAndType(name, descriptor string) uint16 {
	nameIdx := cp.putUTF8(name)
	descIdx := cp.putUTF8(descriptor)
	return cp.Put(ConstantNameAndType{NameIndex: nameIdx, DescriptorIndex: descIdx})
}

func (cp *ConstantPool) putFieldRef(ref FieldRef) uint16 {
	classIdx := cp.putClass(ref.Owner)
	ntIdx := cp.putNameAndType(ref.Name, ref.Type.Descriptor())
	return cp.Put(ConstantFieldref{ClassIndex: classIdx, NameAndTypeIndex: ntIdx})
}

func (cp *ConstantPool) putMethodRef(ref MethodRef) uint16 {
	classIdx := cp.putClass(ref.Owner)
	ntIdx := cp.putNameAndType(ref.Name, ref.Descriptor.Descriptor())
	if ref.Interface {
		return cp.Put(ConstantInterfaceMethodref{
			ClassIndex: classIdx, NameAndTypeIndex: ntIdx})
	}
	return cp.Put(ConstantMethodref{ClassIndex: classIdx, NameAndTypeIndex: ntIdx})
}

func (cp *ConstantPool) putModule(ref ModuleRef) uint16 {
	nameIdx := cp.putUTF8(ref.Name)
	return cp.Put(ConstantModule{NameIndex: nameIdx})
}

func (cp *ConstantPool) putPackage(ref PackageRef) uint16 {
	nameIdx := cp.putUTF8(ref.Name)
	return cp.Put(ConstantPackage{NameIndex: nameIdx})
}

func (cp *ConstantPool) putMethodHandle(h MethodHandle) (uint16, error) {
	var refIdx uint16
	switch h.Kind {
	case RefGetField, RefGetStatic, RefPutField, RefPutStatic:
		if h.Field == nil {
			return 0, malformed("method handle kind %d requires a field reference", h.Kind)
		}
		refIdx = cp.putFieldRef(*h.Field)
	case RefInvokeVirtual, RefInvokeStatic, RefInvokeSpecial,
		RefNewInvokeSpecial, RefInvokeInterface:
		if h.Method == nil {
			return 0, malformed("method handle kind %d requires a method reference", h.Kind)
		}
		refIdx = cp.putMethodRef(*h.Method)
	default:
		return 0, malformed("method handle reference kind %d", h.Kind)
	}
	return cp.Put(ConstantMethodHandle{
		ReferenceKind: uint8(h.Kind), ReferenceIndex: refIdx}), nil
}

func (cp *ConstantPool) putConstantValue(v ConstantValue) (uint16, error) {
	switch c := v.(type) {
	case IntegerValue:
		return cp.Put(ConstantInteger{Value: int32(c)}), nil
	case FloatValue:
		return cp.Put(ConstantFloat{Value: float32(c)}), nil
	case LongValue:
		return cp.Put(ConstantLong{Value: int64(c)}), nil
	case DoubleValue:
		return cp.Put(ConstantDouble{Value: float64(c)}), nil
	case StringValue:
		strIdx := cp.putRawUTF8(ConstantUTF8{Value: c.Value, Raw: c.Raw, Valid: c.Valid})
		return cp.Put(ConstantString{StringIndex: strIdx}), nil
	case ClassValue:
		return cp.putClass(c.Class), nil
	case MethodTypeValue:
		descIdx := cp.putUTF8(c.Descriptor.Descriptor())
		return cp.Put(ConstantMethodType{DescriptorIndex: descIdx}), nil
	case MethodHandleValue:
		return cp.putMethodHandle(c.Handle)
	case DynamicValue:
		ntIdx := cp.putNameAndType(c.Name, c.Descriptor.Descriptor())
		return cp.Put(ConstantDynamic{
			BootstrapMethodAttrIndex: c.BootstrapMethodIndex,
			NameAndTypeIndex:         ntIdx,
		}), nil
	default:
		return 0, malformed("constant value %v cannot be stored in a constant pool", v)
	}
}

// parseConstantPool reads constant_pool_count and the entries.
func parseConstantPool(cr *countingReader) (*ConstantPool, error) {
	count, err := cr.u16()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, malformed("constant pool count is zero")
	}
	cp := &ConstantPool{entries: make([]ConstantPoolEntry, 1, count)}
	for uint16(len(cp.entries)) < count {
		entry, err := parseConstantPoolEntry(cr)
		if err != nil {
			return nil, err
		}
		cp.entries = append(cp.entries, entry)
		if entry.Tag() == TagLong || entry.Tag() == TagDouble {
			if uint16(len(cp.entries)) == count {
				return nil, malformed("wide constant at index %d has no room "+
					"for its padding slot", len(cp.entries)-1)
			}
			cp.entries = append(cp.entries, constantPadding{})
		}
	}
	return cp, nil
}

func parseConstantPoolEntry(cr *countingReader) (ConstantPoolEntry, error) {
	tag, err := cr.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagUtf8:
		length, err := cr.u16()
		if err != nil {
			return nil, err
		}
		raw, err := cr.bytes(int(length))
		if err != nil {
			return nil, err
		}
		if s, ok := decodeMUTF8(raw); ok {
			return ConstantUTF8{Value: s, Valid: true}, nil
		}
		return ConstantUTF8{Raw: raw}, nil
	case TagInteger:
		v, err := cr.i32()
		return ConstantInteger{Value: v}, err
	case TagFloat:
		bits, err := cr.u32()
		return ConstantFloat{Value: math.Float32frombits(bits)}, err
	case TagLong:
		bits, err := cr.u64()
		return ConstantLong{Value: int64(bits)}, err
	case TagDouble:
		bits, err := cr.u64()
		return ConstantDouble{Value: math.Float64frombits(bits)}, err
	case TagClass:
		idx, err := cr.u16()
		return ConstantClass{NameIndex: idx}, err
	case TagString:
		idx, err := cr.u16()
		return ConstantString{StringIndex: idx}, err
	case TagFieldref:
		classIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		ntIdx, err := cr.u16()
		return ConstantFieldref{ClassIndex: classIdx, NameAndTypeIndex: ntIdx}, err
	case TagMethodref:
		classIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		ntIdx, err := cr.u16()
		return ConstantMethodref{ClassIndex: classIdx, NameAndTypeIndex: ntIdx}, err
	case TagInterfaceMethodref:
		classIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		ntIdx, err := cr.u16()
		return ConstantInterfaceMethodref{
			ClassIndex: classIdx, NameAndTypeIndex: ntIdx}, err
	case TagNameAndType:
		nameIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		descIdx, err := cr.u16()
		return ConstantNameAndType{NameIndex: nameIdx, DescriptorIndex: descIdx}, err
	case TagMethodHandle:
		kind, err := cr.u8()
		if err != nil {
			return nil, err
		}
		refIdx, err := cr.u16()
		return ConstantMethodHandle{ReferenceKind: kind, ReferenceIndex: refIdx}, err
	case TagMethodType:
		idx, err := cr.u16()
		return ConstantMethodType{DescriptorIndex: idx}, err
	case TagDynamic:
		bsmIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		ntIdx, err := cr.u16()
		return ConstantDynamic{
			BootstrapMethodAttrIndex: bsmIdx, NameAndTypeIndex: ntIdx}, err
	case TagInvokeDynamic:
		bsmIdx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		ntIdx, err := cr.u16()
		return ConstantInvokeDynamic{
			BootstrapMethodAttrIndex: bsmIdx, NameAndTypeIndex: ntIdx}, err
	case TagModule:
		idx, err := cr.u16()
		return ConstantModule{NameIndex: idx}, err
	case TagPackage:
		idx, err := cr.u16()
		return ConstantPackage{NameIndex: idx}, err
	default:
		return nil, malformed("unknown constant pool tag %d", tag)
	}
}

// write serializes constant_pool_count and the entries.
func (cp *ConstantPool) write(cw *countingWriter) error {
	if err := cw.u16(cp.Count()); err != nil {
		return err
	}
	for i := 1; i < len(cp.entries); i++ {
		entry := cp.entries[i]
		if _, pad := entry.(constantPadding); pad {
			continue
		}
		if err := writeConstantPoolEntry(cw, entry); err != nil {
			return err
		}
	}
	return nil
}

func writeConstantPoolEntry(cw *countingWriter, entry ConstantPoolEntry) error {
	if err := cw.u8(entry.Tag()); err != nil {
		return err
	}
	switch e := entry.(type) {
	case ConstantUTF8:
		wire := utf8Bytes(e)
		if err := cw.u16(uint16(len(wire))); err != nil {
			return err
		}
		return cw.bytes(wire)
	case ConstantInteger:
		return cw.i32(e.Value)
	case ConstantFloat:
		return cw.u32(math.Float32bits(e.Value))
	case ConstantLong:
		return cw.u64(uint64(e.Value))
	case ConstantDouble:
		return cw.u64(math.Float64bits(e.Value))
	case ConstantClass:
		return cw.u16(e.NameIndex)
	case ConstantString:
		return cw.u16(e.StringIndex)
	case ConstantFieldref:
		if err := cw.u16(e.ClassIndex); err != nil {
			return err
		}
		return cw.u16(e.NameAndTypeIndex)
	case ConstantMethodref:
		if err := cw.u16(e.ClassIndex); err != nil {
			return err
		}
		return cw.u16(e.NameAndTypeIndex)
	case ConstantInterfaceMethodref:
		if err := cw.u16(e.ClassIndex); err != nil {
			return err
		}
		return cw.u16(e.NameAndTypeIndex)
	case ConstantNameAndType:
		if err := cw.u16(e.NameIndex); err != nil {
			return err
		}
		return cw.u16(e.DescriptorIndex)
	case ConstantMethodHandle:
		if err := cw.u8(e.ReferenceKind); err != nil {
			return err
		}
		return cw.u16(e.ReferenceIndex)
	case ConstantMethodType:
		return cw.u16(e.DescriptorIndex)
	case ConstantDynamic:
		if err := cw.u16(e.BootstrapMethodAttrIndex); err != nil {
			return err
		}
		return cw.u16(e.NameAndTypeIndex)
	case ConstantInvokeDynamic:
		if err := cw.u16(e.BootstrapMethodAttrIndex); err != nil {
			return err
		}
		return cw.u16(e.NameAndTypeIndex)
	case ConstantModule:
		return cw.u16(e.NameIndex)
	case ConstantPackage:
		return cw.u16(e.NameIndex)
	default:
		panic("jclass: constant pool entry of unknown concrete type")
	}
}
