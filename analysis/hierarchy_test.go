// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

import (
	"testing"

	jclass "github.com/saferwall/jclass"
)

func ref(name string) jclass.ClassRef {
	return jclass.ClassRef{BinaryName: name}
}

func class(name, super string, interfaces ...string) *jclass.Class {
	c := &jclass.Class{ThisClass: ref(name)}
	if super != "" {
		superRef := ref(super)
		c.SuperClass = &superRef
	}
	for _, itf := range interfaces {
		c.Interfaces = append(c.Interfaces, ref(itf))
	}
	return c
}

// java/lang/Object
//
//	└ A
//	   ├ B (implements I)
//	   └ C
//	      └ D (implements J; J extends I via the interface classes below)
func testClasses() []*jclass.Class {
	return []*jclass.Class{
		class("A", "java/lang/Object"),
		class("B", "A", "I"),
		class("C", "A"),
		class("D", "C", "J"),
		class("I", "java/lang/Object"),
		{
			ThisClass:  ref("J"),
			SuperClass: &jclass.ClassRef{BinaryName: "java/lang/Object"},
			Interfaces: []jclass.ClassRef{ref("I")},
			Flags:      jclass.AccInterface,
		},
	}
}

func TestClassHierarchyQueries(t *testing.T) {
	h := NewClassHierarchy(testClasses())

	supers := h.SuperClasses(ref("D"))
	for _, want := range []string{"C", "A", "java/lang/Object"} {
		if !supers.Contains(ref(want)) {
			t.Errorf("super classes of D missing %s, got %v", want, supers)
		}
	}
	if len(supers) != 3 {
		t.Errorf("super class count got %d, want 3", len(supers))
	}

	subs := h.SubClasses(ref("A"))
	for _, want := range []string{"B", "C", "D"} {
		if !subs.Contains(ref(want)) {
			t.Errorf("subclasses of A missing %s, got %v", want, subs)
		}
	}
	if subs.Contains(ref("A")) {
		t.Error("subclasses of A must not contain A itself")
	}

	if _, ok := h.SuperClass(ref("java/lang/Object")); ok {
		t.Error("the root class must have no superclass entry")
	}
}

func TestInterfaceImplHierarchyQueries(t *testing.T) {
	h := NewInterfaceImplHierarchy(testClasses())

	// D implements J directly and I through J.
	interfaces := h.ImplementedInterfaces(ref("D"))
	for _, want := range []string{"J", "I"} {
		if !interfaces.Contains(ref(want)) {
			t.Errorf("interfaces of D missing %s, got %v", want, interfaces)
		}
	}

	impls := h.Implementers(ref("I"))
	for _, want := range []string{"B", "J", "D"} {
		if !impls.Contains(ref(want)) {
			t.Errorf("implementers of I missing %s, got %v", want, impls)
		}
	}
}

// Interface cycles must not loop the traversal.
func TestHierarchyCycleDefense(t *testing.T) {
	classes := []*jclass.Class{
		class("X", "", "Y"),
		class("Y", "", "X"),
	}
	h := NewInterfaceImplHierarchy(classes)

	interfaces := h.ImplementedInterfaces(ref("X"))
	if !interfaces.Contains(ref("Y")) {
		t.Errorf("interfaces of X got %v, want it to contain Y", interfaces)
	}
}
