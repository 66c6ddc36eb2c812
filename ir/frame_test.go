// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ir

import (
	"errors"
	"testing"

	jclass "github.com/saferwall/jclass"
)

func mustDescriptor(t *testing.T, desc string) jclass.MethodDescriptor {
	t.Helper()
	parsed, err := jclass.ParseMethodDescriptor(desc)
	if err != nil {
		t.Fatalf("ParseMethodDescriptor(%q) failed, reason: %v", desc, err)
	}
	return parsed
}

func TestNewFrameLayout(t *testing.T) {
	// Instance method (IJ)V: this, arg0, then a wide arg1 with a filler.
	frame, err := NewFrame(false, mustDescriptor(t, "(IJ)V"), 6, 4)
	if err != nil {
		t.Fatalf("NewFrame failed, reason: %v", err)
	}

	this, err := frame.GetLocal(0, false)
	if err != nil || !this.Equal(Just(This())) {
		t.Errorf("local 0 got (%v, %v), want %%this", this, err)
	}
	arg0, err := frame.GetLocal(1, false)
	if err != nil || !arg0.Equal(Just(Arg(0))) {
		t.Errorf("local 1 got (%v, %v), want %%arg0", arg0, err)
	}
	arg1, err := frame.GetLocal(2, true)
	if err != nil || !arg1.Equal(Just(Arg(1))) {
		t.Errorf("local 2 got (%v, %v), want %%arg1", arg1, err)
	}
	// The filler above the wide argument is not directly readable.
	if _, err := frame.GetLocal(3, false); !errors.Is(err, ErrValueMismatch) {
		t.Errorf("filler read got %v, want ErrValueMismatch", err)
	}
	// Slot 4 was never written.
	if _, err := frame.GetLocal(4, false); !errors.Is(err, ErrLocalUninitialized) {
		t.Errorf("uninitialized read got %v, want ErrLocalUninitialized", err)
	}
}

func TestNewFrameLocalLimit(t *testing.T) {
	_, err := NewFrame(false, mustDescriptor(t, "(IJ)V"), 2, 4)
	if !errors.Is(err, ErrLocalLimitExceeded) {
		t.Errorf("NewFrame got %v, want ErrLocalLimitExceeded", err)
	}
}

func TestFrameStackUnderflowOverflow(t *testing.T) {
	frame, err := NewFrame(true, mustDescriptor(t, "()V"), 0, 2)
	if err != nil {
		t.Fatalf("NewFrame failed, reason: %v", err)
	}

	if _, err := frame.PopRaw(); !errors.Is(err, jclass.ErrStackUnderflow) {
		t.Errorf("pop on empty stack got %v, want ErrStackUnderflow", err)
	}

	if err := frame.PushValue(Just(Arg(0)), false); err != nil {
		t.Fatalf("push failed, reason: %v", err)
	}
	if err := frame.PushValue(Just(Arg(1)), false); err != nil {
		t.Fatalf("push failed, reason: %v", err)
	}
	if err := frame.PushValue(Just(Arg(2)), false); !errors.Is(err, jclass.ErrStackOverflow) {
		t.Errorf("push beyond max_stack got %v, want ErrStackOverflow", err)
	}
}

func TestFrameDualSlotValues(t *testing.T) {
	frame, err := NewFrame(true, mustDescriptor(t, "()V"), 4, 4)
	if err != nil {
		t.Fatalf("NewFrame failed, reason: %v", err)
	}

	if err := frame.PushValue(Just(Local(1)), true); err != nil {
		t.Fatalf("dual push failed, reason: %v", err)
	}
	if frame.StackDepth() != 2 {
		t.Errorf("dual value depth got %d, want 2", frame.StackDepth())
	}

	// Popping it as a single slot hits the value, leaving the filler.
	value, err := frame.PopValue(false)
	if err != nil || !value.Equal(Just(Local(1))) {
		t.Fatalf("single pop got (%v, %v)", value, err)
	}
	if _, err := frame.PopValue(false); !errors.Is(err, ErrValueMismatch) {
		t.Errorf("popping the filler as a value got %v, want ErrValueMismatch", err)
	}
}

// dup2_x2 must move raw slots, preserving the widths of a long beneath
// two ints.
func TestFrameDup2X2PreservesWidths(t *testing.T) {
	frame, err := NewFrame(true, mustDescriptor(t, "()V"), 0, 8)
	if err != nil {
		t.Fatalf("NewFrame failed, reason: %v", err)
	}
	if err := frame.PushValue(Just(Local(1)), true); err != nil { // long
		t.Fatal(err)
	}
	if err := frame.PushValue(Just(Local(2)), false); err != nil { // int
		t.Fatal(err)
	}
	if err := frame.PushValue(Just(Local(3)), false); err != nil { // int
		t.Fatal(err)
	}
	if err := frame.Dup2X2(); err != nil {
		t.Fatalf("dup2_x2 failed, reason: %v", err)
	}

	// Stack, top first: 3, 2, long, 3, 2.
	for _, want := range []LocalValueID{3, 2} {
		got, err := frame.PopValue(false)
		if err != nil || !got.Equal(Just(Local(want))) {
			t.Fatalf("pop got (%v, %v), want %%%d", got, err, want)
		}
	}
	long, err := frame.PopValue(true)
	if err != nil || !long.Equal(Just(Local(1))) {
		t.Fatalf("dual pop got (%v, %v), want %%1", long, err)
	}
	for _, want := range []LocalValueID{3, 2} {
		got, err := frame.PopValue(false)
		if err != nil || !got.Equal(Just(Local(want))) {
			t.Fatalf("pop got (%v, %v), want %%%d", got, err, want)
		}
	}
}

func TestFrameMerge(t *testing.T) {
	a, err := NewFrame(true, mustDescriptor(t, "(I)V"), 2, 4)
	if err != nil {
		t.Fatal(err)
	}
	b := a.Clone()

	if err := a.PushValue(Just(Local(4)), false); err != nil {
		t.Fatal(err)
	}
	if err := b.PushValue(Just(Local(8)), false); err != nil {
		t.Fatal(err)
	}

	merged, err := a.Merge(b)
	if err != nil {
		t.Fatalf("Merge failed, reason: %v", err)
	}
	top, err := merged.PopValue(false)
	if err != nil {
		t.Fatal(err)
	}
	if !top.Equal(Phi(Local(4), Local(8))) {
		t.Errorf("merged stack top got %v, want Phi(%%4, %%8)", top)
	}

	// Monotonicity: a ⊑ a ⊔ b, witnessed by a ⊔ (a ⊔ b) = a ⊔ b.
	ab, err := a.Merge(b)
	if err != nil {
		t.Fatal(err)
	}
	again, err := a.Merge(ab)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Equal(ab) {
		t.Error("join is not monotone: a ⊔ (a ⊔ b) differs from a ⊔ b")
	}
}

func TestFrameMergeShapeMismatch(t *testing.T) {
	a, err := NewFrame(true, mustDescriptor(t, "()V"), 1, 4)
	if err != nil {
		t.Fatal(err)
	}
	b := a.Clone()
	if err := b.PushValue(Just(Local(1)), false); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Merge(b); !errors.Is(err, ErrStackSizeMismatch) {
		t.Errorf("depth mismatch merge got %v, want ErrStackSizeMismatch", err)
	}
}

func TestEntryJoin(t *testing.T) {
	value := EntryValue(Just(Local(1)))
	other := EntryValue(Just(Local(2)))

	tests := []struct {
		name string
		a    Entry
		b    Entry
		want Entry
	}{
		{"uninitialized yields the other", EntryUninitialized(), value, value},
		{"uninitialized on the right", value, EntryUninitialized(), value},
		{"values union", value, other, EntryValue(Phi(Local(1), Local(2)))},
		{"tops join", EntryTop(), EntryTop(), EntryTop()},
		{"mismatch keeps the left", value, EntryTop(), value},
		{"mismatch keeps the left top", EntryTop(), value, EntryTop()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Join(tt.b); !got.Equal(tt.want) {
				t.Errorf("join got %v, want %v", got, tt.want)
			}
		})
	}
}
