// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"errors"
	"testing"
)

func TestConstantPoolDeduplication(t *testing.T) {
	cp := NewConstantPool()

	first := cp.putUTF8("java/lang/Object")
	second := cp.putUTF8("java/lang/Object")
	if first != second {
		t.Errorf("UTF-8 dedup failed, got %d and %d", first, second)
	}

	classA := cp.putClass(ClassRef{BinaryName: "java/lang/Object"})
	classB := cp.putClass(ClassRef{BinaryName: "java/lang/Object"})
	if classA != classB {
		t.Errorf("class dedup failed, got %d and %d", classA, classB)
	}

	other := cp.putUTF8("java/lang/String")
	if other == first {
		t.Errorf("distinct strings deduplicated to the same index %d", other)
	}
}

func TestConstantPoolWidePadding(t *testing.T) {
	cp := NewConstantPool()

	longIdx := cp.Put(ConstantLong{Value: 42})
	after := cp.putUTF8("next")
	if after != longIdx+2 {
		t.Errorf("wide entry padding failed, long at %d, next at %d", longIdx, after)
	}

	// The padding slot after a Long must not be addressable.
	_, err := cp.GetConstantValue(longIdx + 1)
	var badIdx BadConstantPoolIndexError
	if !errors.As(err, &badIdx) {
		t.Errorf("padding slot lookup got %v, want BadConstantPoolIndexError", err)
	}

	value, err := cp.GetConstantValue(longIdx)
	if err != nil {
		t.Fatalf("GetConstantValue(%d) failed, reason: %v", longIdx, err)
	}
	if value != LongValue(42) {
		t.Errorf("long value got %v, want 42", value)
	}
}

func TestConstantPoolIndexErrors(t *testing.T) {
	cp := NewConstantPool()
	cp.putUTF8("only")

	tests := []uint16{0, 2, 100}
	for _, idx := range tests {
		_, err := cp.GetUTF8(idx)
		var badIdx BadConstantPoolIndexError
		if !errors.As(err, &badIdx) {
			t.Errorf("GetUTF8(%d) got %v, want BadConstantPoolIndexError", idx, err)
		}
	}
}

func TestConstantPoolMismatchedKind(t *testing.T) {
	cp := NewConstantPool()
	utf8Idx := cp.putUTF8("not a class")

	_, err := cp.GetClassRef(utf8Idx)
	var mismatch MismatchedKindError
	if !errors.As(err, &mismatch) {
		t.Fatalf("GetClassRef on a Utf8 entry got %v, want MismatchedKindError", err)
	}
	if mismatch.Expected != "Class" || mismatch.Found != "Utf8" {
		t.Errorf("mismatch kinds got (%s, %s), want (Class, Utf8)",
			mismatch.Expected, mismatch.Found)
	}
}

func TestConstantPoolTypedGetters(t *testing.T) {
	cp := NewConstantPool()

	fieldRef := FieldRef{
		Owner: ClassRef{BinaryName: "com/example/Holder"},
		Name:  "count",
		Type:  TypeInt,
	}
	fieldIdx := cp.putFieldRef(fieldRef)
	gotField, err := cp.GetFieldRef(fieldIdx)
	if err != nil {
		t.Fatalf("GetFieldRef failed, reason: %v", err)
	}
	if gotField.Owner != fieldRef.Owner || gotField.Name != fieldRef.Name ||
		gotField.Type != TypeInt {
		t.Errorf("field ref got %+v, want %+v", gotField, fieldRef)
	}

	desc, _ := ParseMethodDescriptor("(I)V")
	methodRef := MethodRef{
		Owner:      ClassRef{BinaryName: "com/example/Holder"},
		Name:       "setCount",
		Descriptor: desc,
	}
	methodIdx := cp.putMethodRef(methodRef)
	gotMethod, err := cp.GetMethodRef(methodIdx)
	if err != nil {
		t.Fatalf("GetMethodRef failed, reason: %v", err)
	}
	if gotMethod.Owner != methodRef.Owner || gotMethod.Name != methodRef.Name ||
		gotMethod.Descriptor.Descriptor() != "(I)V" {
		t.Errorf("method ref got %+v, want %+v", gotMethod, methodRef)
	}

	moduleIdx := cp.putModule(ModuleRef{Name: "com.example"})
	gotModule, err := cp.GetModuleRef(moduleIdx)
	if err != nil || gotModule.Name != "com.example" {
		t.Errorf("module ref got (%v, %v), want com.example", gotModule, err)
	}

	pkgIdx := cp.putPackage(PackageRef{Name: "com/example"})
	gotPkg, err := cp.GetPackageRef(pkgIdx)
	if err != nil || gotPkg.Name != "com/example" {
		t.Errorf("package ref got (%v, %v), want com/example", gotPkg, err)
	}
}

func TestConstantPoolBrokenUTF8(t *testing.T) {
	cp := NewConstantPool()
	rawIdx := cp.putRawUTF8(ConstantUTF8{Raw: []byte{0xED, 0xA0, 0x80}})

	// APIs that demand a Go string must refuse the preserved raw bytes.
	_, err := cp.GetUTF8(rawIdx)
	if !errors.Is(err, ErrBrokenUTF8) {
		t.Errorf("GetUTF8 on broken entry got %v, want ErrBrokenUTF8", err)
	}

	strIdx := cp.Put(ConstantString{StringIndex: rawIdx})
	value, err := cp.GetConstantValue(strIdx)
	if err != nil {
		t.Fatalf("GetConstantValue failed, reason: %v", err)
	}
	sv, ok := value.(StringValue)
	if !ok || sv.Valid || len(sv.Raw) != 3 {
		t.Errorf("broken string literal got %#v, want preserved raw bytes", value)
	}
}
