// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ir

import (
	"errors"
	"fmt"
	"strings"

	jclass "github.com/saferwall/jclass"
	"github.com/saferwall/jclass/analysis"
)

// ErrTooManyPredicates is returned when a method's distinct predicate
// count exceeds the analyzer's limit. Path conditions grow exponentially
// in the number of distinct predicates, so callers typically skip such
// methods.
var ErrTooManyPredicates = errors.New("too many distinct predicates for path condition analysis")

// Value is an atom a normalized predicate ranges over: a variable operand
// or a constant.
type Value struct {
	Var      *Operand
	Constant jclass.ConstantValue
}

// VariableValue wraps an operand.
func VariableValue(op Operand) Value {
	return Value{Var: &op}
}

// ConstantOf wraps a constant.
func ConstantOf(c jclass.ConstantValue) Value {
	return Value{Constant: c}
}

func (v Value) String() string {
	if v.Var != nil {
		return v.Var.String()
	}
	if v.Constant == nil {
		return "<invalid>"
	}
	return v.Constant.String()
}

// Compare is the total order on values: lexicographic on the rendering.
func (v Value) Compare(other Value) int {
	return strings.Compare(v.String(), other.String())
}

// PredicateKind discriminates the canonical predicate shapes.
type PredicateKind uint8

// Canonical predicate shapes.
const (
	PredEqual PredicateKind = iota
	PredLessThan
	PredLessThanOrEqual
	PredIsNull
)

// NormalizedPredicate is a predicate in canonical form: one of the four
// shapes with a polarity, so that negation is syntactically representable
// as a polarity flip.
type NormalizedPredicate struct {
	Kind     PredicateKind
	Lhs      Value
	Rhs      Value
	Negative bool
}

// Not flips the polarity.
func (p NormalizedPredicate) Not() NormalizedPredicate {
	p.Negative = !p.Negative
	return p
}

// Compare orders predicates by shape, operands, then polarity.
func (p NormalizedPredicate) Compare(other NormalizedPredicate) int {
	if p.Kind != other.Kind {
		if p.Kind < other.Kind {
			return -1
		}
		return 1
	}
	if c := p.Lhs.Compare(other.Lhs); c != 0 {
		return c
	}
	if c := p.Rhs.Compare(other.Rhs); c != 0 {
		return c
	}
	switch {
	case p.Negative == other.Negative:
		return 0
	case other.Negative:
		return -1
	default:
		return 1
	}
}

func (p NormalizedPredicate) String() string {
	var body string
	switch p.Kind {
	case PredEqual:
		body = fmt.Sprintf("%s == %s", p.Lhs, p.Rhs)
	case PredLessThan:
		body = fmt.Sprintf("%s < %s", p.Lhs, p.Rhs)
	case PredLessThanOrEqual:
		body = fmt.Sprintf("%s <= %s", p.Lhs, p.Rhs)
	case PredIsNull:
		body = fmt.Sprintf("%s == null", p.Lhs)
	default:
		body = "<invalid predicate>"
	}
	if p.Negative {
		return "!(" + body + ")"
	}
	return body
}

// zeroValue is the integer zero constant used by the unary comparisons.
func zeroValue() Value {
	return ConstantOf(jclass.IntegerValue(0))
}

// Normalize converts a branch condition into canonical predicate form:
// zero lands on the right of unary comparisons, binary operands are
// ordered by the total order on values, strict and non-strict greater-than
// become swapped-operand less-than, and disequalities become negative
// equalities.
func Normalize(c Condition) NormalizedPredicate {
	switch c.Kind {
	case CondIsZero:
		return orderedEqual(VariableValue(c.Lhs), zeroValue(), false)
	case CondIsNonZero:
		return orderedEqual(VariableValue(c.Lhs), zeroValue(), true)
	case CondIsPositive:
		return NormalizedPredicate{Kind: PredLessThanOrEqual,
			Lhs: VariableValue(c.Lhs), Rhs: zeroValue(), Negative: true}
	case CondIsNegative:
		return NormalizedPredicate{Kind: PredLessThan,
			Lhs: VariableValue(c.Lhs), Rhs: zeroValue()}
	case CondIsNonPositive:
		return NormalizedPredicate{Kind: PredLessThanOrEqual,
			Lhs: VariableValue(c.Lhs), Rhs: zeroValue()}
	case CondIsNonNegative:
		return NormalizedPredicate{Kind: PredLessThan,
			Lhs: VariableValue(c.Lhs), Rhs: zeroValue(), Negative: true}
	case CondEqual:
		return orderedEqual(VariableValue(c.Lhs), VariableValue(c.Rhs), false)
	case CondNotEqual:
		return orderedEqual(VariableValue(c.Lhs), VariableValue(c.Rhs), true)
	case CondLessThan:
		return NormalizedPredicate{Kind: PredLessThan,
			Lhs: VariableValue(c.Lhs), Rhs: VariableValue(c.Rhs)}
	case CondLessThanOrEqual:
		return NormalizedPredicate{Kind: PredLessThanOrEqual,
			Lhs: VariableValue(c.Lhs), Rhs: VariableValue(c.Rhs)}
	case CondGreaterThan:
		return NormalizedPredicate{Kind: PredLessThan,
			Lhs: VariableValue(c.Rhs), Rhs: VariableValue(c.Lhs)}
	case CondGreaterThanOrEqual:
		return NormalizedPredicate{Kind: PredLessThanOrEqual,
			Lhs: VariableValue(c.Rhs), Rhs: VariableValue(c.Lhs)}
	case CondIsNull:
		return NormalizedPredicate{Kind: PredIsNull, Lhs: VariableValue(c.Lhs)}
	case CondIsNotNull:
		return NormalizedPredicate{Kind: PredIsNull,
			Lhs: VariableValue(c.Lhs), Negative: true}
	default:
		panic("ir: condition of unknown kind")
	}
}

// orderedEqual places the smaller operand on the left.
func orderedEqual(a, b Value, negative bool) NormalizedPredicate {
	if a.Compare(b) > 0 {
		a, b = b, a
	}
	return NormalizedPredicate{Kind: PredEqual, Lhs: a, Rhs: b, Negative: negative}
}

// normalizeCondition lifts a PathCondition over raw conditions into one
// over normalized predicates.
func normalizeCondition(cond PathCondition[Condition]) PathCondition[NormalizedPredicate] {
	out := Contradiction[NormalizedPredicate]()
	for _, product := range cond.Products() {
		preds := make([]NormalizedPredicate, 0, product.Len())
		for _, c := range product.Predicates() {
			preds = append(preds, Normalize(c))
		}
		out = out.Or(Of(preds...))
	}
	return out
}

// PathConditionOptions tunes the analyzer.
type PathConditionOptions struct {

	// MaxPredicates bounds the number of distinct predicates per method;
	// methods above the bound fail with ErrTooManyPredicates. Zero means
	// the default of 20.
	MaxPredicates int
}

const defaultMaxPredicates = 20

// AnalyzePathConditions computes, for every reachable program counter of
// a lifted method, the disjunction of predicates under which it is
// reachable. The analysis runs on the fixed-point solver: facts are path
// conditions, the entry fact is the tautology, conditional edges conjoin
// their label, and merges disjoin and simplify.
func AnalyzePathConditions(m *Method, opts *PathConditionOptions) (map[jclass.ProgramCounter]PathCondition[NormalizedPredicate], error) {
	limit := defaultMaxPredicates
	if opts != nil && opts.MaxPredicates > 0 {
		limit = opts.MaxPredicates
	}
	if n := countDistinctPredicates(m.ControlFlowGraph); n > limit {
		return nil, fmt.Errorf("%w: %d distinct predicates, limit %d",
			ErrTooManyPredicates, n, limit)
	}
	return analysis.Solve[jclass.ProgramCounter, PathCondition[NormalizedPredicate]](
		&pathConditionAnalyzer{cfg: m.ControlFlowGraph})
}

func countDistinctPredicates(cfg *CFG[struct{}, ControlTransfer]) int {
	distinct := 0
	var seen []NormalizedPredicate
	for _, edge := range cfg.Edges() {
		conditional, ok := edge.Data.(TransferConditional)
		if !ok {
			continue
		}
		for _, product := range conditional.Condition.Products() {
			for _, c := range product.Predicates() {
				p := Normalize(c)
				// Polarity does not add a distinct atom.
				p.Negative = false
				dup := false
				for _, q := range seen {
					if q.Compare(p) == 0 {
						dup = true
						break
					}
				}
				if !dup {
					seen = append(seen, p)
					distinct++
				}
			}
		}
	}
	return distinct
}

type pathConditionAnalyzer struct {
	cfg *CFG[struct{}, ControlTransfer]
}

func (a *pathConditionAnalyzer) EntryFacts() (map[jclass.ProgramCounter]PathCondition[NormalizedPredicate], error) {
	return map[jclass.ProgramCounter]PathCondition[NormalizedPredicate]{
		a.cfg.EntryPoint(): Tautology[NormalizedPredicate](),
	}, nil
}

func (a *pathConditionAnalyzer) Transfer(pc jclass.ProgramCounter,
	fact PathCondition[NormalizedPredicate]) (map[jclass.ProgramCounter]PathCondition[NormalizedPredicate], error) {

	out := make(map[jclass.ProgramCounter]PathCondition[NormalizedPredicate])
	for _, edge := range a.cfg.EdgesFrom(pc) {
		propagated := fact
		if conditional, ok := edge.Data.(TransferConditional); ok {
			propagated = fact.And(normalizeCondition(conditional.Condition))
		}
		if existing, seen := out[edge.To]; seen {
			propagated = existing.Or(propagated)
		}
		out[edge.To] = propagated
	}
	return out, nil
}

func (a *pathConditionAnalyzer) Merge(current, incoming PathCondition[NormalizedPredicate]) (PathCondition[NormalizedPredicate], error) {
	return current.Or(incoming).Simplify(), nil
}

func (a *pathConditionAnalyzer) FactsEqual(x, y PathCondition[NormalizedPredicate]) bool {
	return x.Equal(y)
}
