// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ir

import (
	"fmt"
	"strings"

	jclass "github.com/saferwall/jclass"
	"github.com/saferwall/jclass/analysis"
)

// LiftMethod converts a method's stack-machine bytecode into the IR. The
// lifter runs an abstract interpretation over symbolic frames to a least
// fixed point; every reachable instruction is translated exactly once per
// converged frame, and the control flow graph is labeled with the
// transfer that takes each edge.
func LiftMethod(m *jclass.Method) (*Method, error) {
	if m.Body == nil {
		return nil, fmt.Errorf("method %s has no body to lift", m.Name)
	}
	l := &lifter{
		method: m,
		body:   m.Body,
		insns:  make(map[jclass.ProgramCounter]Instruction),
		edges:  make(map[edgeKey]ControlTransfer),
	}
	if _, err := analysis.Solve[jclass.ProgramCounter, *Frame](l); err != nil {
		return nil, err
	}
	cfg := NewCFG[struct{}, ControlTransfer]()
	for key, label := range l.edges {
		if err := cfg.AddEdge(key.from, key.to, label); err != nil {
			return nil, err
		}
	}
	if len(l.insns) > 0 && !cfg.HasNode(jclass.EntryPoint) {
		cfg.SetNodeData(jclass.EntryPoint, struct{}{})
	}
	return &Method{
		Flags:            m.Flags,
		Name:             m.Name,
		Descriptor:       m.Descriptor,
		Owner:            m.Owner,
		Instructions:     l.insns,
		ExceptionTable:   m.Body.ExceptionTable,
		ControlFlowGraph: cfg,
	}, nil
}

// LiftClass lifts every method of the class that has a body. The returned
// methods are independent; lifting them concurrently is equally safe.
func LiftClass(c *jclass.Class) ([]*Method, error) {
	var out []*Method
	for i := range c.Methods {
		if c.Methods[i].Body == nil {
			continue
		}
		lifted, err := LiftMethod(&c.Methods[i])
		if err != nil {
			return nil, fmt.Errorf("lifting %s::%s: %w",
				c.ThisClass, c.Methods[i].Name, err)
		}
		out = append(out, lifted)
	}
	return out, nil
}

type edgeKey struct {
	from, to jclass.ProgramCounter
}

// lifter is the dataflow problem whose facts are symbolic frames and whose
// transfer function is the per-opcode lifting step.
type lifter struct {
	method *jclass.Method
	body   *jclass.MethodBody
	insns  map[jclass.ProgramCounter]Instruction
	edges  map[edgeKey]ControlTransfer
}

// successor is one propagation target of a transfer step.
type successor struct {
	pc    jclass.ProgramCounter
	frame *Frame
	label ControlTransfer
}

// EntryFacts seeds program counter zero with the frame built from the
// method descriptor.
func (l *lifter) EntryFacts() (map[jclass.ProgramCounter]*Frame, error) {
	frame, err := NewFrame(l.method.IsStatic(), l.method.Descriptor,
		l.body.MaxLocals, l.body.MaxStack)
	if err != nil {
		return nil, err
	}
	return map[jclass.ProgramCounter]*Frame{jclass.EntryPoint: frame}, nil
}

// Merge joins two frames; a shape mismatch is a structural error the
// lifter surfaces rather than discarding state.
func (l *lifter) Merge(current, incoming *Frame) (*Frame, error) {
	return current.Merge(incoming)
}

// FactsEqual bounds the iteration.
func (l *lifter) FactsEqual(a, b *Frame) bool {
	return a.Equal(b)
}

// Transfer lifts the instruction at the location under the inbound frame.
func (l *lifter) Transfer(pc jclass.ProgramCounter, inbound *Frame) (map[jclass.ProgramCounter]*Frame, error) {
	insn := l.body.Instructions.Get(pc)
	if insn == nil {
		return nil, fmt.Errorf("no instruction at %s", pc)
	}
	frame := inbound.Clone()
	successors, err := l.execute(pc, insn, frame)
	if err != nil {
		return nil, fmt.Errorf("lifting %s at %s: %w", insn, pc, err)
	}

	// Every covered instruction may transfer to its handlers; the handler
	// frame keeps the inbound locals and a one-entry stack holding the
	// caught exception.
	for _, entry := range l.body.ExceptionTable {
		if !entry.Covers(pc) {
			continue
		}
		handlerFrame := inbound.SameLocals1StackItem(
			EntryValue(Just(CaughtException())))
		successors = append(successors, successor{
			pc:    entry.HandlerPC,
			frame: handlerFrame,
			label: exceptionLabel(entry),
		})
	}

	out := make(map[jclass.ProgramCounter]*Frame, len(successors))
	for _, s := range successors {
		l.recordEdge(pc, s.pc, s.label)
		if existing, ok := out[s.pc]; ok {
			merged, err := existing.Merge(s.frame)
			if err != nil {
				return nil, err
			}
			out[s.pc] = merged
		} else {
			out[s.pc] = s.frame
		}
	}
	return out, nil
}

func exceptionLabel(entry jclass.ExceptionTableEntry) ControlTransfer {
	if entry.CatchType == nil {
		return TransferException{CatchAll: true}
	}
	return TransferException{Catches: []jclass.ClassRef{*entry.CatchType}}
}

// recordEdge stores an edge label, unioning the catch sets of exception
// edges that share both endpoints.
func (l *lifter) recordEdge(from, to jclass.ProgramCounter, label ControlTransfer) {
	key := edgeKey{from: from, to: to}
	existing, ok := l.edges[key]
	if !ok {
		l.edges[key] = label
		return
	}
	prev, prevExc := existing.(TransferException)
	next, nextExc := label.(TransferException)
	if prevExc && nextExc {
		merged := TransferException{CatchAll: prev.CatchAll || next.CatchAll}
		merged.Catches = append(merged.Catches, prev.Catches...)
		for _, ref := range next.Catches {
			dup := false
			for _, have := range merged.Catches {
				if have == ref {
					dup = true
					break
				}
			}
			if !dup {
				merged.Catches = append(merged.Catches, ref)
			}
		}
		l.edges[key] = merged
		return
	}
	l.edges[key] = existing
}

// emit records the IR instruction lifted at pc.
func (l *lifter) emit(pc jclass.ProgramCounter, insn Instruction) {
	l.insns[pc] = insn
}

// nextPC returns the fall-through location after pc.
func (l *lifter) nextPC(pc jclass.ProgramCounter) (jclass.ProgramCounter, error) {
	next, ok := l.body.Instructions.NextPC(pc)
	if !ok {
		return 0, fmt.Errorf("instruction at %s falls off the end of the method", pc)
	}
	return next, nil
}

// define emits a definition at pc and returns the operand referencing it.
// The local value handle is the defining program counter.
func (l *lifter) define(pc jclass.ProgramCounter, expr Expression) Operand {
	value := LocalValueID(pc)
	l.emit(pc, Definition{Value: value, Expr: expr})
	return Just(Local(value))
}

// fallThrough wraps the common case of a single unconditional successor.
func (l *lifter) fallThrough(pc jclass.ProgramCounter, frame *Frame) ([]successor, error) {
	next, err := l.nextPC(pc)
	if err != nil {
		return nil, err
	}
	return []successor{{pc: next, frame: frame, label: TransferUnconditional{}}}, nil
}

// classRefToFieldType views a class operand of anewarray, checkcast or
// instanceof as a field type: array class names are descriptors, anything
// else is an object type.
func classRefToFieldType(ref jclass.ClassRef) (jclass.FieldType, error) {
	if strings.HasPrefix(ref.BinaryName, "[") {
		return jclass.ParseFieldType(ref.BinaryName)
	}
	return jclass.ObjectType{Class: ref}, nil
}

// execute lifts one instruction: it pops the declared operands, emits the
// IR instruction, pushes produced values, and names the successors.
func (l *lifter) execute(pc jclass.ProgramCounter, insn jclass.Instruction, frame *Frame) ([]successor, error) {
	switch i := insn.(type) {
	case jclass.SimpleInsn:
		return l.executeSimple(pc, i.Op, frame)
	case jclass.PushInsn:
		v := l.define(pc, ConstExpr{Value: jclass.IntegerValue(i.Value)})
		if err := frame.PushValue(v, false); err != nil {
			return nil, err
		}
		return l.fallThrough(pc, frame)
	case jclass.LoadConstInsn:
		v := l.define(pc, ConstExpr{Value: i.Value})
		wide := i.Op == jclass.OpLdc2W
		if err := frame.PushValue(v, wide); err != nil {
			return nil, err
		}
		return l.fallThrough(pc, frame)
	case jclass.LocalInsn:
		return l.executeLocal(pc, i, frame)
	case jclass.IIncInsn:
		local, err := frame.GetLocal(i.Index, false)
		if err != nil {
			return nil, err
		}
		v := l.define(pc, MathExpr{
			Op: MathIncrement, A: local, Increment: int32(i.Increment)})
		if err := frame.SetLocal(i.Index, v, false); err != nil {
			return nil, err
		}
		return l.fallThrough(pc, frame)
	case jclass.BranchInsn:
		return l.executeBranch(pc, i, frame)
	case jclass.TableSwitchInsn:
		discriminant, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		cases := make(map[int32]jclass.ProgramCounter, len(i.Targets))
		for n, target := range i.Targets {
			cases[i.Low+int32(n)] = target
		}
		return l.executeSwitch(pc, discriminant, cases, i.Default, frame)
	case jclass.LookupSwitchInsn:
		discriminant, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		cases := make(map[int32]jclass.ProgramCounter, len(i.Matches))
		for match, target := range i.Matches {
			cases[match] = target
		}
		return l.executeSwitch(pc, discriminant, cases, i.Default, frame)
	case jclass.FieldInsn:
		return l.executeField(pc, i, frame)
	case jclass.MethodInsn:
		kind := CallVirtual
		switch i.Op {
		case jclass.OpInvokeStatic:
			kind = CallStatic
		case jclass.OpInvokeSpecial:
			kind = CallSpecial
		}
		return l.executeCall(pc, kind, i.Method, frame)
	case jclass.InvokeInterfaceInsn:
		return l.executeCall(pc, CallInterface, i.Method, frame)
	case jclass.InvokeDynamicInsn:
		captures, err := frame.PopArgs(i.Descriptor)
		if err != nil {
			return nil, err
		}
		v := l.define(pc, ClosureExpr{
			Name:                 i.Name,
			BootstrapMethodIndex: i.BootstrapMethodIndex,
			Captures:             captures,
			Descriptor:           i.Descriptor,
		})
		if i.Descriptor.Return != nil {
			if err := frame.TypedPush(i.Descriptor.Return, v); err != nil {
				return nil, err
			}
		}
		return l.fallThrough(pc, frame)
	case jclass.TypeInsn:
		return l.executeType(pc, i, frame)
	case jclass.NewArrayInsn:
		length, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		v := l.define(pc, ArrayExpr{
			Op: ArrayNew, ElementType: i.ElementType, Length: length})
		if err := frame.PushValue(v, false); err != nil {
			return nil, err
		}
		return l.fallThrough(pc, frame)
	case jclass.MultiANewArrayInsn:
		arrayType, err := classRefToFieldType(i.Class)
		if err != nil {
			return nil, err
		}
		dims := make([]Operand, i.Dimensions)
		for n := int(i.Dimensions) - 1; n >= 0; n-- {
			dim, err := frame.PopValue(false)
			if err != nil {
				return nil, err
			}
			dims[n] = dim
		}
		v := l.define(pc, ArrayExpr{
			Op: ArrayNewMultiDim, ElementType: arrayType, Dimensions: dims})
		if err := frame.PushValue(v, false); err != nil {
			return nil, err
		}
		return l.fallThrough(pc, frame)
	default:
		return nil, jclass.UnexpectedOpcodeError{Opcode: uint8(insn.Opcode())}
	}
}

// executeLocal lifts the load, store and ret family.
func (l *lifter) executeLocal(pc jclass.ProgramCounter, i jclass.LocalInsn, frame *Frame) ([]successor, error) {
	op := i.Op
	switch {
	case op == jclass.OpRet:
		target, err := frame.GetLocal(i.Index, false)
		if err != nil {
			return nil, err
		}
		l.emit(pc, SubroutineRet{Target: target})
		var out []successor
		for _, ret := range frame.RetAddresses() {
			out = append(out, successor{
				pc: ret, frame: frame, label: TransferSubroutineReturn{}})
		}
		return out, nil

	case isLoadOp(op):
		dual := isWideLocalOp(op)
		value, err := frame.GetLocal(i.Index, dual)
		if err != nil {
			return nil, err
		}
		if err := frame.PushValue(value, dual); err != nil {
			return nil, err
		}
		l.emit(pc, Nop{})
		return l.fallThrough(pc, frame)

	default:
		dual := isWideLocalOp(op)
		value, err := frame.PopValue(dual)
		if err != nil {
			return nil, err
		}
		if err := frame.SetLocal(i.Index, value, dual); err != nil {
			return nil, err
		}
		l.emit(pc, Nop{})
		return l.fallThrough(pc, frame)
	}
}

func isLoadOp(op jclass.Opcode) bool {
	return (op >= jclass.OpILoad && op <= jclass.OpALoad) ||
		(op >= jclass.OpILoad0 && op <= jclass.OpALoad3)
}

// isWideLocalOp reports whether the load or store moves a two-slot value.
func isWideLocalOp(op jclass.Opcode) bool {
	switch op {
	case jclass.OpLLoad, jclass.OpDLoad, jclass.OpLStore, jclass.OpDStore:
		return true
	}
	switch {
	case op >= jclass.OpLLoad0 && op <= jclass.OpLLoad3,
		op >= jclass.OpDLoad0 && op <= jclass.OpDLoad3,
		op >= jclass.OpLStore0 && op <= jclass.OpLStore3,
		op >= jclass.OpDStore0 && op <= jclass.OpDStore3:
		return true
	}
	return false
}

// executeBranch lifts jumps, conditional branches and jsr.
func (l *lifter) executeBranch(pc jclass.ProgramCounter, i jclass.BranchInsn, frame *Frame) ([]successor, error) {
	switch i.Op {
	case jclass.OpGoto, jclass.OpGotoW:
		l.emit(pc, Jump{Target: i.Target})
		return []successor{{pc: i.Target, frame: frame, label: TransferUnconditional{}}}, nil

	case jclass.OpJsr, jclass.OpJsrW:
		next, err := l.nextPC(pc)
		if err != nil {
			return nil, err
		}
		v := l.define(pc, SubroutineExpr{Target: i.Target, ReturnAddress: next})
		if err := frame.PushValue(v, false); err != nil {
			return nil, err
		}
		frame.AddRetAddress(next)
		return []successor{{pc: i.Target, frame: frame, label: TransferUnconditional{}}}, nil
	}

	cond, err := popBranchCondition(i.Op, frame)
	if err != nil {
		return nil, err
	}
	l.emit(pc, Jump{Condition: &cond, Target: i.Target})
	next, err := l.nextPC(pc)
	if err != nil {
		return nil, err
	}
	return []successor{
		{pc: i.Target, frame: frame,
			label: TransferConditional{Condition: Of(cond)}},
		{pc: next, frame: frame,
			label: TransferConditional{Condition: Of(cond.Not())}},
	}, nil
}

// popBranchCondition pops the operands of a conditional branch and builds
// its predicate.
func popBranchCondition(op jclass.Opcode, frame *Frame) (Condition, error) {
	unary := func(kind ConditionKind) (Condition, error) {
		v, err := frame.PopValue(false)
		if err != nil {
			return Condition{}, err
		}
		return Condition{Kind: kind, Lhs: v}, nil
	}
	binary := func(kind ConditionKind) (Condition, error) {
		rhs, err := frame.PopValue(false)
		if err != nil {
			return Condition{}, err
		}
		lhs, err := frame.PopValue(false)
		if err != nil {
			return Condition{}, err
		}
		return Condition{Kind: kind, Lhs: lhs, Rhs: rhs}, nil
	}
	switch op {
	case jclass.OpIfEq:
		return unary(CondIsZero)
	case jclass.OpIfNe:
		return unary(CondIsNonZero)
	case jclass.OpIfLt:
		return unary(CondIsNegative)
	case jclass.OpIfGe:
		return unary(CondIsNonNegative)
	case jclass.OpIfGt:
		return unary(CondIsPositive)
	case jclass.OpIfLe:
		return unary(CondIsNonPositive)
	case jclass.OpIfNull:
		return unary(CondIsNull)
	case jclass.OpIfNonNull:
		return unary(CondIsNotNull)
	case jclass.OpIfICmpEq, jclass.OpIfACmpEq:
		return binary(CondEqual)
	case jclass.OpIfICmpNe, jclass.OpIfACmpNe:
		return binary(CondNotEqual)
	case jclass.OpIfICmpLt:
		return binary(CondLessThan)
	case jclass.OpIfICmpGe:
		return binary(CondGreaterThanOrEqual)
	case jclass.OpIfICmpGt:
		return binary(CondGreaterThan)
	case jclass.OpIfICmpLe:
		return binary(CondLessThanOrEqual)
	default:
		return Condition{}, jclass.UnexpectedOpcodeError{Opcode: uint8(op)}
	}
}

// executeSwitch lifts tableswitch and lookupswitch. Edges are deduplicated
// by target, since several cases commonly share one.
func (l *lifter) executeSwitch(pc jclass.ProgramCounter, discriminant Operand,
	cases map[int32]jclass.ProgramCounter, defaultPC jclass.ProgramCounter,
	frame *Frame) ([]successor, error) {

	l.emit(pc, Switch{Discriminant: discriminant, Cases: cases, Default: defaultPC})
	targets := map[jclass.ProgramCounter]struct{}{defaultPC: {}}
	for _, target := range cases {
		targets[target] = struct{}{}
	}
	out := make([]successor, 0, len(targets))
	for target := range targets {
		out = append(out, successor{
			pc: target, frame: frame, label: TransferUnconditional{}})
	}
	return out, nil
}

// executeField lifts the field access family.
func (l *lifter) executeField(pc jclass.ProgramCounter, i jclass.FieldInsn, frame *Frame) ([]successor, error) {
	switch i.Op {
	case jclass.OpGetStatic:
		v := l.define(pc, FieldExpr{Access: FieldReadStatic, Field: i.Field})
		if err := frame.TypedPush(i.Field.Type, v); err != nil {
			return nil, err
		}
	case jclass.OpPutStatic:
		value, err := frame.TypedPop(i.Field.Type)
		if err != nil {
			return nil, err
		}
		l.define(pc, FieldExpr{Access: FieldWriteStatic, Field: i.Field, Value: value})
	case jclass.OpGetField:
		object, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		v := l.define(pc, FieldExpr{
			Access: FieldReadInstance, Field: i.Field, Object: object})
		if err := frame.TypedPush(i.Field.Type, v); err != nil {
			return nil, err
		}
	default: // putfield
		value, err := frame.TypedPop(i.Field.Type)
		if err != nil {
			return nil, err
		}
		object, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		l.define(pc, FieldExpr{
			Access: FieldWriteInstance, Field: i.Field,
			Object: object, Value: value})
	}
	return l.fallThrough(pc, frame)
}

// executeCall lifts the four invocation styles.
func (l *lifter) executeCall(pc jclass.ProgramCounter, kind CallKind,
	method jclass.MethodRef, frame *Frame) ([]successor, error) {

	args, err := frame.PopArgs(method.Descriptor)
	if err != nil {
		return nil, err
	}
	var receiver *Operand
	if kind != CallStatic {
		object, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		receiver = &object
	}
	v := l.define(pc, CallExpr{
		Kind: kind, Method: method, Receiver: receiver, Args: args})
	if method.Descriptor.Return != nil {
		if err := frame.TypedPush(method.Descriptor.Return, v); err != nil {
			return nil, err
		}
	}
	return l.fallThrough(pc, frame)
}

// executeType lifts new, anewarray, checkcast and instanceof.
func (l *lifter) executeType(pc jclass.ProgramCounter, i jclass.TypeInsn, frame *Frame) ([]successor, error) {
	switch i.Op {
	case jclass.OpNew:
		v := l.define(pc, NewExpr{Class: i.Class})
		if err := frame.PushValue(v, false); err != nil {
			return nil, err
		}
	case jclass.OpANewArray:
		elementType, err := classRefToFieldType(i.Class)
		if err != nil {
			return nil, err
		}
		length, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		v := l.define(pc, ArrayExpr{
			Op: ArrayNew, ElementType: elementType, Length: length})
		if err := frame.PushValue(v, false); err != nil {
			return nil, err
		}
	case jclass.OpCheckCast:
		target, err := classRefToFieldType(i.Class)
		if err != nil {
			return nil, err
		}
		value, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		v := l.define(pc, ConversionExpr{
			Op: ConvCheckCast, Operand: value, Target: target})
		if err := frame.PushValue(v, false); err != nil {
			return nil, err
		}
	default: // instanceof
		target, err := classRefToFieldType(i.Class)
		if err != nil {
			return nil, err
		}
		value, err := frame.PopValue(false)
		if err != nil {
			return nil, err
		}
		v := l.define(pc, ConversionExpr{
			Op: ConvInstanceOf, Operand: value, Target: target})
		if err := frame.PushValue(v, false); err != nil {
			return nil, err
		}
	}
	return l.fallThrough(pc, frame)
}
