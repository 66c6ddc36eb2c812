// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package analysis

import (
	"bytes"
	"testing"

	jclass "github.com/saferwall/jclass"
)

// classBytes serializes a minimal class with the given name and super.
func classBytes(t *testing.T, name, super string) []byte {
	t.Helper()
	superRef := ref(super)
	class := &jclass.Class{
		Version:    jclass.Version{Major: jclass.MajorJava8},
		Flags:      jclass.AccPublic | jclass.AccSuper,
		ThisClass:  ref(name),
		SuperClass: &superRef,
	}
	var buf bytes.Buffer
	if err := class.Write(&buf); err != nil {
		t.Fatalf("Write failed, reason: %v", err)
	}
	return buf.Bytes()
}

func TestResolutionContext(t *testing.T) {
	app := jclass.MemClassSource{
		"com/example/App":  classBytes(t, "com/example/App", "com/example/Base"),
		"com/example/Base": classBytes(t, "com/example/Base", "java/lang/Object"),
	}
	lib := jclass.MemClassSource{
		"com/example/Lib": classBytes(t, "com/example/Lib", "java/lang/Object"),
	}

	ctx, err := NewResolutionContext(
		[]jclass.ClassSource{app}, []jclass.ClassSource{lib})
	if err != nil {
		t.Fatalf("NewResolutionContext failed, reason: %v", err)
	}

	if len(ctx.ApplicationClasses) != 2 {
		t.Errorf("application class count got %d, want 2",
			len(ctx.ApplicationClasses))
	}
	if len(ctx.LibraryClasses) != 1 {
		t.Errorf("library class count got %d, want 1", len(ctx.LibraryClasses))
	}

	if _, ok := ctx.Lookup(ref("com/example/Lib")); !ok {
		t.Error("Lookup failed to find a library class")
	}
	if _, ok := ctx.Lookup(ref("com/example/Missing")); ok {
		t.Error("Lookup found a class that was never loaded")
	}

	// The hierarchy spans both class path halves.
	supers := ctx.ClassHierarchy.SuperClasses(ref("com/example/App"))
	if !supers.Contains(ref("com/example/Base")) ||
		!supers.Contains(ref("java/lang/Object")) {
		t.Errorf("super classes of App got %v", supers)
	}
}
