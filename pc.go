// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import "fmt"

// ProgramCounter denotes a byte offset into a method's bytecode. The JVM
// limits method bodies to 65535 bytes, so the counter is 16-bit.
type ProgramCounter uint16

// EntryPoint is the program counter of a method's first instruction.
const EntryPoint ProgramCounter = 0

// Offset computes pc + delta. The sum is computed in int64, which cannot
// overflow for any uint16 base and int32 delta.
func (pc ProgramCounter) Offset(delta int32) (ProgramCounter, error) {
	target := int64(pc) + int64(delta)
	if target < 0 || target > 0xFFFF {
		return 0, ErrInvalidOffset
	}
	return ProgramCounter(target), nil
}

// IsEntryPoint reports whether the counter addresses the method entry.
func (pc ProgramCounter) IsEntryPoint() bool {
	return pc == EntryPoint
}

// String renders the counter the way the disassembler prints locations.
func (pc ProgramCounter) String() string {
	return fmt.Sprintf("#%04X", uint16(pc))
}
