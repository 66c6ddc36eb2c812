// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import "testing"

func TestProgramCounterOffset(t *testing.T) {

	tests := []struct {
		pc      ProgramCounter
		delta   int32
		want    ProgramCounter
		wantErr error
	}{
		{pc: 10, delta: 5, want: 15},
		{pc: 10, delta: -5, want: 5},
		{pc: 10, delta: -10, want: 0},
		{pc: 10, delta: -11, wantErr: ErrInvalidOffset},
		{pc: 0xFFFF, delta: 0, want: 0xFFFF},
		{pc: 0xFFFF, delta: 1, wantErr: ErrInvalidOffset},
		{pc: 0, delta: 0xFFFF, want: 0xFFFF},
		{pc: 10, delta: 1<<31 - 1, wantErr: ErrInvalidOffset},
		{pc: 10, delta: -1 << 31, wantErr: ErrInvalidOffset},
	}

	for _, tt := range tests {
		got, err := tt.pc.Offset(tt.delta)
		if err != tt.wantErr {
			t.Errorf("Offset(%v, %v) error got %v, want %v",
				tt.pc, tt.delta, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("Offset(%v, %v) got %v, want %v", tt.pc, tt.delta, got, tt.want)
		}
	}
}

// The inverse offset recovers the base program counter.
func TestProgramCounterOffsetInverse(t *testing.T) {
	bases := []ProgramCounter{0, 1, 100, 0x7FFF, 0xFFFE}
	deltas := []int32{0, 1, -1, 200, -100, 0x4000}
	for _, pc := range bases {
		for _, delta := range deltas {
			target, err := pc.Offset(delta)
			if err != nil {
				continue
			}
			back, err := target.Offset(-delta)
			if err != nil {
				t.Fatalf("inverse offset of (%v, %v) failed, reason: %v", pc, delta, err)
			}
			if back != pc {
				t.Errorf("inverse offset got %v, want %v", back, pc)
			}
		}
	}
}

func TestProgramCounterDisplay(t *testing.T) {
	if got := ProgramCounter(10).String(); got != "#000A" {
		t.Errorf("String() got %q, want %q", got, "#000A")
	}
	if !EntryPoint.IsEntryPoint() {
		t.Error("entry point assertion failed")
	}
	if ProgramCounter(1).IsEntryPoint() {
		t.Error("non-entry point assertion failed")
	}
}
