// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
)

// buildTestClass assembles a small but representative class in memory:
//
//	public class com/example/Counter extends java/lang/Object
//	implements java/lang/Runnable {
//	    static int count;
//	    static int next(int)   { return arg + 1; }
//	    void <init>()          { super(); }
//	}
func buildTestClass(t *testing.T) *Class {
	t.Helper()

	object := ClassRef{BinaryName: "java/lang/Object"}
	runnable := ClassRef{BinaryName: "java/lang/Runnable"}
	this := ClassRef{BinaryName: "com/example/Counter"}

	nextDesc, err := ParseMethodDescriptor("(I)I")
	if err != nil {
		t.Fatalf("ParseMethodDescriptor failed, reason: %v", err)
	}
	initDesc, err := ParseMethodDescriptor("()V")
	if err != nil {
		t.Fatalf("ParseMethodDescriptor failed, reason: %v", err)
	}

	nextBody := MethodBody{MaxStack: 2, MaxLocals: 1,
		Instructions: NewInstructionMap()}
	nextBody.Instructions.Put(0, LocalInsn{Op: OpILoad0, Index: 0})
	nextBody.Instructions.Put(1, SimpleInsn{Op: OpIConst1})
	nextBody.Instructions.Put(2, SimpleInsn{Op: OpIAdd})
	nextBody.Instructions.Put(3, SimpleInsn{Op: OpIReturn})

	initBody := MethodBody{MaxStack: 1, MaxLocals: 1,
		Instructions: NewInstructionMap()}
	initBody.Instructions.Put(0, LocalInsn{Op: OpALoad0, Index: 0})
	initBody.Instructions.Put(1, MethodInsn{Op: OpInvokeSpecial, Method: MethodRef{
		Owner: object, Name: ConstructorName, Descriptor: initDesc}})
	initBody.Instructions.Put(4, SimpleInsn{Op: OpReturn})

	return &Class{
		Version:    Version{Major: MajorJava17},
		Flags:      AccPublic | AccSuper,
		ThisClass:  this,
		SuperClass: &object,
		Interfaces: []ClassRef{runnable},
		SourceFile: "Counter.java",
		Fields: []Field{{
			Flags: AccStatic,
			Name:  "count",
			Type:  TypeInt,
		}},
		Methods: []Method{
			{
				Flags:      AccStatic,
				Name:       "next",
				Descriptor: nextDesc,
				Owner:      this,
				Body:       &nextBody,
			},
			{
				Flags:      AccPublic,
				Name:       ConstructorName,
				Descriptor: initDesc,
				Owner:      this,
				Body:       &initBody,
			},
		},
		FreeAttributes: []RawAttribute{
			{AttrName: "X-Custom", Data: []byte{1, 2, 3}},
		},
	}
}

func writeClass(t *testing.T, class *Class) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := class.Write(&buf); err != nil {
		t.Fatalf("Write failed, reason: %v", err)
	}
	return buf.Bytes()
}

func TestClassRoundTrip(t *testing.T) {
	original := buildTestClass(t)
	data := writeClass(t, original)

	file, err := NewBytes(data, nil)
	if err != nil {
		t.Fatalf("NewBytes failed, reason: %v", err)
	}
	if err := file.Parse(); err != nil {
		t.Fatalf("Parse failed, reason: %v", err)
	}
	got := file.Class

	if got.Version != original.Version {
		t.Errorf("version got %v, want %v", got.Version, original.Version)
	}
	if got.Flags != original.Flags {
		t.Errorf("flags got %v, want %v", got.Flags, original.Flags)
	}
	if got.ThisClass != original.ThisClass {
		t.Errorf("this class got %v, want %v", got.ThisClass, original.ThisClass)
	}
	if got.SuperClass == nil || *got.SuperClass != *original.SuperClass {
		t.Errorf("super class got %v, want %v", got.SuperClass, original.SuperClass)
	}
	if !reflect.DeepEqual(got.Interfaces, original.Interfaces) {
		t.Errorf("interfaces got %v, want %v", got.Interfaces, original.Interfaces)
	}
	if got.SourceFile != original.SourceFile {
		t.Errorf("source file got %q, want %q", got.SourceFile, original.SourceFile)
	}
	if !reflect.DeepEqual(got.FreeAttributes, original.FreeAttributes) {
		t.Errorf("free attributes got %v, want %v",
			got.FreeAttributes, original.FreeAttributes)
	}
	if len(got.Fields) != 1 || got.Fields[0].Name != "count" ||
		got.Fields[0].Type != TypeInt {
		t.Errorf("fields got %+v, want the count field", got.Fields)
	}
	if len(got.Methods) != 2 {
		t.Fatalf("method count got %d, want 2", len(got.Methods))
	}
	next := got.Methods[0]
	if next.Name != "next" || next.Descriptor.Descriptor() != "(I)I" {
		t.Errorf("method identity got %s%s, want next(I)I",
			next.Name, next.Descriptor.Descriptor())
	}
	if next.Body == nil || next.Body.Instructions.Len() != 4 {
		t.Fatalf("next body instructions got %v, want 4", next.Body)
	}
	for _, pc := range original.Methods[0].Body.Instructions.PCs() {
		want := original.Methods[0].Body.Instructions.Get(pc)
		gotInsn := next.Body.Instructions.Get(pc)
		if !reflect.DeepEqual(gotInsn, want) {
			t.Errorf("instruction at %s got %#v, want %#v", pc, gotInsn, want)
		}
	}

	// Serializing the re-parsed class again must converge to the same
	// bytes, since both pools are rebuilt from equal models.
	again := writeClass(t, got)
	if !bytes.Equal(data, again) {
		t.Error("second serialization diverged from the first")
	}
}

func TestParseNotAClassFile(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(0xDEADBEEF))
	buf.Write(make([]byte, 16))

	file, err := NewBytes(buf.Bytes(), nil)
	if err != nil {
		t.Fatalf("NewBytes failed, reason: %v", err)
	}
	if got := file.Parse(); !errors.Is(got, ErrNotAClassFile) {
		t.Errorf("Parse got %v, want ErrNotAClassFile", got)
	}
}

func TestParseTrailingBytes(t *testing.T) {
	data := writeClass(t, buildTestClass(t))
	data = append(data, 0x00)

	file, err := NewBytes(data, nil)
	if err != nil {
		t.Fatalf("NewBytes failed, reason: %v", err)
	}
	var m MalformedClassError
	if got := file.Parse(); !errors.As(got, &m) {
		t.Errorf("Parse got %v, want MalformedClassError", got)
	}
}

func TestMethodCodePresenceRules(t *testing.T) {
	class := buildTestClass(t)

	// An abstract method must not carry a Code attribute.
	abstract := class.Methods[0]
	abstract.Flags = AccAbstract | AccPublic
	class.Methods = append(class.Methods, abstract)
	class.Flags |= AccAbstract
	data := writeClass(t, class)

	file, err := NewBytes(data, nil)
	if err != nil {
		t.Fatalf("NewBytes failed, reason: %v", err)
	}
	var m MalformedClassError
	if got := file.Parse(); !errors.As(got, &m) {
		t.Errorf("Parse got %v, want MalformedClassError", got)
	}
}

func TestUnknownClassFlags(t *testing.T) {
	data := writeClass(t, buildTestClass(t))

	// The class access flags live right after the constant pool; patch an
	// undefined bit in place. Locate them by re-parsing the header.
	file, err := NewBytes(data, nil)
	if err != nil {
		t.Fatalf("NewBytes failed, reason: %v", err)
	}
	if err := file.Parse(); err != nil {
		t.Fatalf("Parse failed, reason: %v", err)
	}
	// Find the two bytes holding the flags by scanning for the known
	// value followed by this_class/super_class pattern.
	want := uint16(AccPublic | AccSuper)
	patched := false
	for i := 8; i+2 <= len(data); i++ {
		if binary.BigEndian.Uint16(data[i:]) == want {
			candidate := make([]byte, len(data))
			copy(candidate, data)
			binary.BigEndian.PutUint16(candidate[i:], want|0x0040)
			f, err := NewBytes(candidate, nil)
			if err != nil {
				t.Fatalf("NewBytes failed, reason: %v", err)
			}
			var unknown UnknownFlagsError
			if got := f.Parse(); errors.As(got, &unknown) {
				if unknown.Context != "class" {
					t.Errorf("flags context got %q, want class", unknown.Context)
				}
				patched = true
				break
			}
		}
	}
	if !patched {
		t.Skip("could not locate the class flags bytes to patch")
	}
}
