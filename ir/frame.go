// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ir

import (
	"errors"

	jclass "github.com/saferwall/jclass"
)

// Frame errors.
var (

	// ErrValueMismatch is returned when a slot holds the wrong entry kind,
	// e.g. the filler half of a wide value where a value is expected.
	ErrValueMismatch = errors.New("value type in the stack or local variable table mismatch")

	// ErrLocalLimitExceeded is returned when a local index is outside
	// max_locals.
	ErrLocalLimitExceeded = errors.New("the local variable index exceeds the max local variable size")

	// ErrLocalUninitialized is returned when reading a local slot that was
	// never written.
	ErrLocalUninitialized = errors.New("the local variable is not initialized")

	// ErrStackSizeMismatch is returned when merging frames of different
	// stack depths.
	ErrStackSizeMismatch = errors.New("stack size mismatch at merge point")

	// ErrLocalLimitMismatch is returned when merging frames of different
	// local table lengths.
	ErrLocalLimitMismatch = errors.New("local table length mismatch at merge point")
)

type entryKind uint8

const (
	entryValue entryKind = iota
	entryTop
	entryUninitialized
)

// Entry is one slot of the symbolic frame: a value, the filler slot above
// a wide value, or an untouched local.
type Entry struct {
	kind  entryKind
	value Operand
}

// EntryValue wraps an operand as a slot entry.
func EntryValue(op Operand) Entry {
	return Entry{kind: entryValue, value: op}
}

// EntryTop is the filler slot occupying the upper half of a long or
// double.
func EntryTop() Entry {
	return Entry{kind: entryTop}
}

// EntryUninitialized is a local slot that has not been written yet.
func EntryUninitialized() Entry {
	return Entry{kind: entryUninitialized}
}

// IsValue reports whether the entry holds an operand, returning it.
func (e Entry) IsValue() (Operand, bool) {
	return e.value, e.kind == entryValue
}

// IsTop reports whether the entry is the wide-value filler.
func (e Entry) IsTop() bool {
	return e.kind == entryTop
}

// Join merges two entries pointwise. An uninitialized slot yields the
// other entry; two values union into a Phi; mismatched kinds yield the
// left entry, which models legal slot reuse across merges (the slot is
// re-defined before any read).
func (e Entry) Join(other Entry) Entry {
	switch {
	case e.kind == entryUninitialized:
		return other
	case other.kind == entryUninitialized:
		return e
	case e.kind == entryValue && other.kind == entryValue:
		return EntryValue(e.value.Union(other.value))
	case e.kind == entryTop && other.kind == entryTop:
		return e
	default:
		return e
	}
}

// Equal reports structural equality.
func (e Entry) Equal(other Entry) bool {
	if e.kind != other.kind {
		return false
	}
	if e.kind != entryValue {
		return true
	}
	return e.value.Equal(other.value)
}

func (e Entry) String() string {
	switch e.kind {
	case entryValue:
		return e.value.String()
	case entryTop:
		return "<top>"
	default:
		return "<uninitialized_local>"
	}
}

// Frame is the symbolic JVM frame at a program point: the local variable
// table, the operand stack, and the subroutine return addresses observed
// so far. Frames form a join-semilattice pointwise.
type Frame struct {
	maxStack     uint16
	locals       []Entry
	stack        []Entry
	retAddresses map[jclass.ProgramCounter]struct{}
}

// NewFrame builds the method entry frame from the descriptor: slot zero is
// `this` for instance methods, each parameter takes its slots (with a
// filler above wide parameters), and the remaining locals are
// uninitialized.
func NewFrame(isStatic bool, desc jclass.MethodDescriptor, maxLocals, maxStack uint16) (*Frame, error) {
	locals := make([]Entry, 0, maxLocals)
	if !isStatic {
		locals = append(locals, EntryValue(Just(This())))
	}
	for i, param := range desc.Parameters {
		locals = append(locals, EntryValue(Just(Arg(uint16(i)))))
		if param.IsWide() {
			locals = append(locals, EntryTop())
		}
	}
	if len(locals) > int(maxLocals) {
		return nil, ErrLocalLimitExceeded
	}
	for len(locals) < int(maxLocals) {
		locals = append(locals, EntryUninitialized())
	}
	return &Frame{
		maxStack:     maxStack,
		locals:       locals,
		stack:        make([]Entry, 0, maxStack),
		retAddresses: make(map[jclass.ProgramCounter]struct{}),
	}, nil
}

// Clone returns an independent copy.
func (f *Frame) Clone() *Frame {
	locals := make([]Entry, len(f.locals))
	copy(locals, f.locals)
	stack := make([]Entry, len(f.stack), f.maxStack)
	copy(stack, f.stack)
	rets := make(map[jclass.ProgramCounter]struct{}, len(f.retAddresses))
	for pc := range f.retAddresses {
		rets[pc] = struct{}{}
	}
	return &Frame{
		maxStack:     f.maxStack,
		locals:       locals,
		stack:        stack,
		retAddresses: rets,
	}
}

// StackDepth returns the current operand stack depth.
func (f *Frame) StackDepth() int {
	return len(f.stack)
}

// PopRaw pops one slot entry.
func (f *Frame) PopRaw() (Entry, error) {
	if len(f.stack) == 0 {
		return Entry{}, jclass.ErrStackUnderflow
	}
	top := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return top, nil
}

// PushRaw pushes one slot entry, bounded by max_stack.
func (f *Frame) PushRaw(e Entry) error {
	if len(f.stack) >= int(f.maxStack) {
		return jclass.ErrStackOverflow
	}
	f.stack = append(f.stack, e)
	return nil
}

// PopValue pops a value of the given slot width. For a dual-slot value the
// Top filler beneath it is consumed as well.
func (f *Frame) PopValue(dual bool) (Operand, error) {
	top, err := f.PopRaw()
	if err != nil {
		return Operand{}, err
	}
	value, ok := top.IsValue()
	if !ok {
		return Operand{}, ErrValueMismatch
	}
	if dual {
		filler, err := f.PopRaw()
		if err != nil {
			return Operand{}, err
		}
		if !filler.IsTop() {
			return Operand{}, ErrValueMismatch
		}
	}
	return value, nil
}

// PushValue pushes a value of the given slot width.
func (f *Frame) PushValue(op Operand, dual bool) error {
	if dual {
		if err := f.PushRaw(EntryTop()); err != nil {
			return err
		}
	}
	return f.PushRaw(EntryValue(op))
}

// TypedPop pops a value whose width is chosen by the field type.
func (f *Frame) TypedPop(t jclass.FieldType) (Operand, error) {
	return f.PopValue(t.IsWide())
}

// TypedPush pushes a value whose width is chosen by the field type.
func (f *Frame) TypedPush(t jclass.FieldType, op Operand) error {
	return f.PushValue(op, t.IsWide())
}

// PopArgs pops a call's arguments in reverse and returns them in
// declaration order.
func (f *Frame) PopArgs(desc jclass.MethodDescriptor) ([]Operand, error) {
	args := make([]Operand, len(desc.Parameters))
	for i := len(desc.Parameters) - 1; i >= 0; i-- {
		arg, err := f.TypedPop(desc.Parameters[i])
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return args, nil
}

// GetLocal reads a local variable of the given width.
func (f *Frame) GetLocal(idx uint16, dual bool) (Operand, error) {
	if int(idx) >= len(f.locals) {
		return Operand{}, ErrLocalLimitExceeded
	}
	lower := f.locals[idx]
	value, ok := lower.IsValue()
	if !ok {
		if lower.IsTop() {
			return Operand{}, ErrValueMismatch
		}
		return Operand{}, ErrLocalUninitialized
	}
	if dual {
		if int(idx)+1 >= len(f.locals) {
			return Operand{}, ErrLocalLimitExceeded
		}
		if !f.locals[idx+1].IsTop() {
			return Operand{}, ErrValueMismatch
		}
	}
	return value, nil
}

// SetLocal writes a local variable of the given width, placing the filler
// above wide values.
func (f *Frame) SetLocal(idx uint16, op Operand, dual bool) error {
	if int(idx) >= len(f.locals) {
		return ErrLocalLimitExceeded
	}
	f.locals[idx] = EntryValue(op)
	if dual {
		if int(idx)+1 >= len(f.locals) {
			return ErrLocalLimitExceeded
		}
		f.locals[idx+1] = EntryTop()
	}
	return nil
}

// AddRetAddress records a possible subroutine return address.
func (f *Frame) AddRetAddress(pc jclass.ProgramCounter) {
	f.retAddresses[pc] = struct{}{}
}

// RetAddresses returns the possible subroutine return addresses.
func (f *Frame) RetAddresses() []jclass.ProgramCounter {
	out := make([]jclass.ProgramCounter, 0, len(f.retAddresses))
	for pc := range f.retAddresses {
		out = append(out, pc)
	}
	return out
}

// SameLocals1StackItem builds a handler entry frame: same locals, a
// one-entry stack.
func (f *Frame) SameLocals1StackItem(stackValue Entry) *Frame {
	handler := f.Clone()
	handler.stack = handler.stack[:0]
	handler.stack = append(handler.stack, stackValue)
	return handler
}

// Merge joins two frames pointwise. Frames are mergeable only when their
// shapes agree: same max_stack, same local table length, same stack depth.
func (f *Frame) Merge(other *Frame) (*Frame, error) {
	if f.maxStack != other.maxStack {
		return nil, ErrStackSizeMismatch
	}
	if len(f.locals) != len(other.locals) {
		return nil, ErrLocalLimitMismatch
	}
	if len(f.stack) != len(other.stack) {
		return nil, ErrStackSizeMismatch
	}
	merged := f.Clone()
	for i := range merged.locals {
		merged.locals[i] = f.locals[i].Join(other.locals[i])
	}
	for i := range merged.stack {
		merged.stack[i] = f.stack[i].Join(other.stack[i])
	}
	for pc := range other.retAddresses {
		merged.retAddresses[pc] = struct{}{}
	}
	return merged, nil
}

// Equal reports structural equality of two frames.
func (f *Frame) Equal(other *Frame) bool {
	if f.maxStack != other.maxStack ||
		len(f.locals) != len(other.locals) ||
		len(f.stack) != len(other.stack) ||
		len(f.retAddresses) != len(other.retAddresses) {
		return false
	}
	for i := range f.locals {
		if !f.locals[i].Equal(other.locals[i]) {
			return false
		}
	}
	for i := range f.stack {
		if !f.stack[i].Equal(other.stack[i]) {
			return false
		}
	}
	for pc := range f.retAddresses {
		if _, ok := other.retAddresses[pc]; !ok {
			return false
		}
	}
	return true
}

// Stack manipulation operations per JVMS §6.5. They move raw entries so
// slot width information survives.

// Pop drops the top slot.
func (f *Frame) Pop() error {
	_, err := f.PopRaw()
	return err
}

// Pop2 drops the top two slots.
func (f *Frame) Pop2() error {
	if _, err := f.PopRaw(); err != nil {
		return err
	}
	_, err := f.PopRaw()
	return err
}

// Dup duplicates the top slot.
func (f *Frame) Dup() error {
	top, err := f.PopRaw()
	if err != nil {
		return err
	}
	if err := f.PushRaw(top); err != nil {
		return err
	}
	return f.PushRaw(top)
}

// DupX1 duplicates the top slot beneath the second.
func (f *Frame) DupX1() error {
	top, err := f.PopRaw()
	if err != nil {
		return err
	}
	second, err := f.PopRaw()
	if err != nil {
		return err
	}
	if err := f.PushRaw(top); err != nil {
		return err
	}
	if err := f.PushRaw(second); err != nil {
		return err
	}
	return f.PushRaw(top)
}

// DupX2 duplicates the top slot beneath the third.
func (f *Frame) DupX2() error {
	top, err := f.PopRaw()
	if err != nil {
		return err
	}
	second, err := f.PopRaw()
	if err != nil {
		return err
	}
	third, err := f.PopRaw()
	if err != nil {
		return err
	}
	if err := f.PushRaw(top); err != nil {
		return err
	}
	if err := f.PushRaw(third); err != nil {
		return err
	}
	if err := f.PushRaw(second); err != nil {
		return err
	}
	return f.PushRaw(top)
}

// Dup2 duplicates the top two slots.
func (f *Frame) Dup2() error {
	top, err := f.PopRaw()
	if err != nil {
		return err
	}
	second, err := f.PopRaw()
	if err != nil {
		return err
	}
	for _, e := range []Entry{second, top, second, top} {
		if err := f.PushRaw(e); err != nil {
			return err
		}
	}
	return nil
}

// Dup2X1 duplicates the top two slots beneath the third.
func (f *Frame) Dup2X1() error {
	top, err := f.PopRaw()
	if err != nil {
		return err
	}
	second, err := f.PopRaw()
	if err != nil {
		return err
	}
	third, err := f.PopRaw()
	if err != nil {
		return err
	}
	for _, e := range []Entry{second, top, third, second, top} {
		if err := f.PushRaw(e); err != nil {
			return err
		}
	}
	return nil
}

// Dup2X2 duplicates the top two slots beneath the fourth.
func (f *Frame) Dup2X2() error {
	top, err := f.PopRaw()
	if err != nil {
		return err
	}
	second, err := f.PopRaw()
	if err != nil {
		return err
	}
	third, err := f.PopRaw()
	if err != nil {
		return err
	}
	fourth, err := f.PopRaw()
	if err != nil {
		return err
	}
	for _, e := range []Entry{second, top, fourth, third, second, top} {
		if err := f.PushRaw(e); err != nil {
			return err
		}
	}
	return nil
}

// Swap exchanges the top two slots.
func (f *Frame) Swap() error {
	top, err := f.PopRaw()
	if err != nil {
		return err
	}
	second, err := f.PopRaw()
	if err != nil {
		return err
	}
	if err := f.PushRaw(top); err != nil {
		return err
	}
	return f.PushRaw(second)
}
