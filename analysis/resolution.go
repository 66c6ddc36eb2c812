// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

import (
	"fmt"
	"io"

	jclass "github.com/saferwall/jclass"
)

// ResolutionContext is the class resolution surface whole-program analyses
// consume. It holds every class the application and library class sources
// advertise, plus the hierarchy indices built over their union.
type ResolutionContext struct {
	ApplicationClasses map[jclass.ClassRef]*jclass.Class
	LibraryClasses     map[jclass.ClassRef]*jclass.Class

	ClassHierarchy           *ClassHierarchy
	InterfaceImplementations *InterfaceImplHierarchy
}

// NewResolutionContext loads all classes from the application and library
// class sources and builds the hierarchy indices.
func NewResolutionContext(appSources, libSources []jclass.ClassSource) (*ResolutionContext, error) {
	appClasses, err := loadClasses(appSources)
	if err != nil {
		return nil, err
	}
	libClasses, err := loadClasses(libSources)
	if err != nil {
		return nil, err
	}
	all := make([]*jclass.Class, 0, len(appClasses)+len(libClasses))
	for _, class := range appClasses {
		all = append(all, class)
	}
	for _, class := range libClasses {
		all = append(all, class)
	}
	return &ResolutionContext{
		ApplicationClasses:       appClasses,
		LibraryClasses:           libClasses,
		ClassHierarchy:           NewClassHierarchy(all),
		InterfaceImplementations: NewInterfaceImplHierarchy(all),
	}, nil
}

// Lookup finds a class by reference, application classes first.
func (ctx *ResolutionContext) Lookup(ref jclass.ClassRef) (*jclass.Class, bool) {
	if class, ok := ctx.ApplicationClasses[ref]; ok {
		return class, true
	}
	class, ok := ctx.LibraryClasses[ref]
	return class, ok
}

func loadClasses(sources []jclass.ClassSource) (map[jclass.ClassRef]*jclass.Class, error) {
	classes := make(map[jclass.ClassRef]*jclass.Class)
	for _, source := range sources {
		names, err := source.ClassNames()
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			class, err := loadClass(source, name)
			if err != nil {
				return nil, fmt.Errorf("loading class %s: %w", name, err)
			}
			classes[class.MakeRef()] = class
		}
	}
	return classes, nil
}

func loadClass(source jclass.ClassSource, name string) (*jclass.Class, error) {
	r, err := source.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	file, err := jclass.NewBytes(data, nil)
	if err != nil {
		return nil, err
	}
	if err := file.Parse(); err != nil {
		return nil, err
	}
	return file.Class, nil
}
