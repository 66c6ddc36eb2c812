// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

import (
	jclass "github.com/saferwall/jclass"
)

// ClassSet is a set of class references.
type ClassSet map[jclass.ClassRef]struct{}

// Contains reports membership.
func (s ClassSet) Contains(ref jclass.ClassRef) bool {
	_, ok := s[ref]
	return ok
}

func (s ClassSet) add(ref jclass.ClassRef) {
	s[ref] = struct{}{}
}

// ClassHierarchy indexes the superclass relation of a set of classes:
// child to unique parent, and parent to its direct subclasses.
type ClassHierarchy struct {
	superClasses map[jclass.ClassRef]jclass.ClassRef
	inheritance  map[jclass.ClassRef]ClassSet
}

// NewClassHierarchy builds the hierarchy from parsed classes.
func NewClassHierarchy(classes []*jclass.Class) *ClassHierarchy {
	h := &ClassHierarchy{
		superClasses: make(map[jclass.ClassRef]jclass.ClassRef),
		inheritance:  make(map[jclass.ClassRef]ClassSet),
	}
	for _, class := range classes {
		if class.SuperClass == nil {
			continue
		}
		child := class.MakeRef()
		parent := *class.SuperClass
		h.superClasses[child] = parent
		subs, ok := h.inheritance[parent]
		if !ok {
			subs = ClassSet{}
			h.inheritance[parent] = subs
		}
		subs.add(child)
	}
	return h
}

// SuperClass returns the direct superclass, if the hierarchy knows one.
func (h *ClassHierarchy) SuperClass(class jclass.ClassRef) (jclass.ClassRef, bool) {
	super, ok := h.superClasses[class]
	return super, ok
}

// SuperClasses returns all transitive superclasses. The walk follows
// parent pointers and terminates at the root, which has no entry.
func (h *ClassHierarchy) SuperClasses(class jclass.ClassRef) ClassSet {
	supers := ClassSet{}
	current := class
	for {
		super, ok := h.superClasses[current]
		if !ok || supers.Contains(super) {
			break
		}
		supers.add(super)
		current = super
	}
	return supers
}

// SubClasses returns all transitive subclasses, walking the reverse edges
// depth-first. The relation is a forest in well-formed bytecode, but the
// traversal still prunes on revisit.
func (h *ClassHierarchy) SubClasses(class jclass.ClassRef) ClassSet {
	subs := ClassSet{}
	dfsReachable(class, func(ref jclass.ClassRef) []jclass.ClassRef {
		return setToSlice(h.inheritance[ref])
	}, subs)
	delete(subs, class)
	return subs
}

// InterfaceImplHierarchy indexes interface implementation: class to its
// directly declared interfaces, and interface to its direct implementors.
type InterfaceImplHierarchy struct {
	implementations map[jclass.ClassRef]ClassSet
	implementers    map[jclass.ClassRef]ClassSet
}

// NewInterfaceImplHierarchy builds the index from parsed classes.
func NewInterfaceImplHierarchy(classes []*jclass.Class) *InterfaceImplHierarchy {
	h := &InterfaceImplHierarchy{
		implementations: make(map[jclass.ClassRef]ClassSet),
		implementers:    make(map[jclass.ClassRef]ClassSet),
	}
	for _, class := range classes {
		ref := class.MakeRef()
		for _, itf := range class.Interfaces {
			impls, ok := h.implementations[ref]
			if !ok {
				impls = ClassSet{}
				h.implementations[ref] = impls
			}
			impls.add(itf)
			impl, ok := h.implementers[itf]
			if !ok {
				impl = ClassSet{}
				h.implementers[itf] = impl
			}
			impl.add(ref)
		}
	}
	return h
}

// ImplementedInterfaces returns the transitively implemented interfaces.
// Interface inheritance permits diamonds, so the traversal carries a
// visited set.
func (h *InterfaceImplHierarchy) ImplementedInterfaces(class jclass.ClassRef) ClassSet {
	interfaces := ClassSet{}
	dfsReachable(class, func(ref jclass.ClassRef) []jclass.ClassRef {
		return setToSlice(h.implementations[ref])
	}, interfaces)
	delete(interfaces, class)
	return interfaces
}

// Implementers returns all classes that transitively implement the
// interface.
func (h *InterfaceImplHierarchy) Implementers(itf jclass.ClassRef) ClassSet {
	impls := ClassSet{}
	dfsReachable(itf, func(ref jclass.ClassRef) []jclass.ClassRef {
		return setToSlice(h.implementers[ref])
	}, impls)
	delete(impls, itf)
	return impls
}

func setToSlice(s ClassSet) []jclass.ClassRef {
	out := make([]jclass.ClassRef, 0, len(s))
	for ref := range s {
		out = append(out, ref)
	}
	return out
}

// dfsReachable collects everything reachable from start via next, pruning
// on revisit so cycles cannot loop the traversal.
func dfsReachable(start jclass.ClassRef, next func(jclass.ClassRef) []jclass.ClassRef, visited ClassSet) {
	stack := []jclass.ClassRef{start}
	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, succ := range next(ref) {
			if visited.Contains(succ) {
				continue
			}
			visited.add(succ)
			stack = append(stack, succ)
		}
	}
}
