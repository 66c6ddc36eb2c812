// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ir

import "strings"

// Predicate is the constraint on path condition atoms: a syntactic
// negation and a total order.
type Predicate[P any] interface {
	// Not returns the negated predicate.
	Not() P

	// Compare orders predicates; it returns a negative, zero or positive
	// value like strings.Compare.
	Compare(other P) int
}

// Conjunction is a set of predicates interpreted as their conjunction.
// The empty conjunction is a tautology.
type Conjunction[P Predicate[P]] struct {
	preds []P // sorted, deduplicated
}

// ConjunctionOf builds a conjunction from predicates.
func ConjunctionOf[P Predicate[P]](preds ...P) Conjunction[P] {
	var c Conjunction[P]
	for _, p := range preds {
		c = c.with(p)
	}
	return c
}

// Predicates returns the conjunction's atoms in sorted order.
func (c Conjunction[P]) Predicates() []P {
	out := make([]P, len(c.preds))
	copy(out, c.preds)
	return out
}

// Len returns the number of atoms.
func (c Conjunction[P]) Len() int {
	return len(c.preds)
}

func (c Conjunction[P]) with(p P) Conjunction[P] {
	lo, hi := 0, len(c.preds)
	for lo < hi {
		mid := (lo + hi) / 2
		if c.preds[mid].Compare(p) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(c.preds) && c.preds[lo].Compare(p) == 0 {
		return c
	}
	preds := make([]P, 0, len(c.preds)+1)
	preds = append(preds, c.preds[:lo]...)
	preds = append(preds, p)
	preds = append(preds, c.preds[lo:]...)
	return Conjunction[P]{preds: preds}
}

func (c Conjunction[P]) contains(p P) bool {
	for _, q := range c.preds {
		if q.Compare(p) == 0 {
			return true
		}
	}
	return false
}

// and unions the predicate sets of two conjunctions.
func (c Conjunction[P]) and(other Conjunction[P]) Conjunction[P] {
	merged := c
	for _, p := range other.preds {
		merged = merged.with(p)
	}
	return merged
}

// isSubsetOf reports whether every atom of c appears in other.
func (c Conjunction[P]) isSubsetOf(other Conjunction[P]) bool {
	for _, p := range c.preds {
		if !other.contains(p) {
			return false
		}
	}
	return true
}

// difference returns the atoms of c that are not in other.
func (c Conjunction[P]) difference(other Conjunction[P]) []P {
	var out []P
	for _, p := range c.preds {
		if !other.contains(p) {
			out = append(out, p)
		}
	}
	return out
}

// intersection returns the atoms present in both conjunctions.
func (c Conjunction[P]) intersection(other Conjunction[P]) []P {
	var out []P
	for _, p := range c.preds {
		if other.contains(p) {
			out = append(out, p)
		}
	}
	return out
}

// compare orders conjunctions by size, then lexicographically.
func (c Conjunction[P]) compare(other Conjunction[P]) int {
	if len(c.preds) != len(other.preds) {
		if len(c.preds) < len(other.preds) {
			return -1
		}
		return 1
	}
	for i := range c.preds {
		if cmp := c.preds[i].Compare(other.preds[i]); cmp != 0 {
			return cmp
		}
	}
	return 0
}

func (c Conjunction[P]) String() string {
	if len(c.preds) == 0 {
		return "true"
	}
	parts := make([]string, len(c.preds))
	for i, p := range c.preds {
		parts[i] = predString(p)
	}
	return strings.Join(parts, " && ")
}

func predString[P any](p P) string {
	if s, ok := any(p).(interface{ String() string }); ok {
		return s.String()
	}
	return "<predicate>"
}

// PathCondition is a set of conjunctions interpreted as their disjunction
// (disjunctive normal form). The empty set is a contradiction; the set
// holding only the empty conjunction is a tautology.
type PathCondition[P Predicate[P]] struct {
	products []Conjunction[P] // sorted, deduplicated
}

// Tautology returns the always-true condition.
func Tautology[P Predicate[P]]() PathCondition[P] {
	return PathCondition[P]{products: []Conjunction[P]{{}}}
}

// Contradiction returns the always-false condition.
func Contradiction[P Predicate[P]]() PathCondition[P] {
	return PathCondition[P]{}
}

// Of builds the condition holding a single conjunction of predicates.
func Of[P Predicate[P]](preds ...P) PathCondition[P] {
	return PathCondition[P]{products: []Conjunction[P]{ConjunctionOf(preds...)}}
}

// Products returns the conjunctions in sorted order.
func (pc PathCondition[P]) Products() []Conjunction[P] {
	out := make([]Conjunction[P], len(pc.products))
	copy(out, pc.products)
	return out
}

// IsContradiction reports whether the condition is the empty disjunction.
func (pc PathCondition[P]) IsContradiction() bool {
	return len(pc.products) == 0
}

// IsTautology reports whether the condition is the single empty
// conjunction.
func (pc PathCondition[P]) IsTautology() bool {
	return len(pc.products) == 1 && pc.products[0].Len() == 0
}

func (pc PathCondition[P]) withProduct(c Conjunction[P]) PathCondition[P] {
	lo, hi := 0, len(pc.products)
	for lo < hi {
		mid := (lo + hi) / 2
		if pc.products[mid].compare(c) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(pc.products) && pc.products[lo].compare(c) == 0 {
		return pc
	}
	products := make([]Conjunction[P], 0, len(pc.products)+1)
	products = append(products, pc.products[:lo]...)
	products = append(products, c)
	products = append(products, pc.products[lo:]...)
	return PathCondition[P]{products: products}
}

// Or returns the disjunction of two conditions: the union of their
// product sets.
func (pc PathCondition[P]) Or(other PathCondition[P]) PathCondition[P] {
	out := pc
	for _, product := range other.products {
		out = out.withProduct(product)
	}
	return out
}

// And returns the conjunction of two conditions: the Cartesian product of
// their product sets, unioning predicate sets pairwise.
func (pc PathCondition[P]) And(other PathCondition[P]) PathCondition[P] {
	var out PathCondition[P]
	for _, lhs := range pc.products {
		for _, rhs := range other.products {
			out = out.withProduct(lhs.and(rhs))
		}
	}
	return out
}

// Equal reports structural equality.
func (pc PathCondition[P]) Equal(other PathCondition[P]) bool {
	if len(pc.products) != len(other.products) {
		return false
	}
	for i := range pc.products {
		if pc.products[i].compare(other.products[i]) != 0 {
			return false
		}
	}
	return true
}

// Simplify rewrites the condition with the absorption law
// (A·q + A·¬q·B = A·q + A·B) and removes subsumed products (A·B + A = A),
// repeating until a fixed point. The result is logically equivalent to
// the input.
func (pc PathCondition[P]) Simplify() PathCondition[P] {
	current := pc
	for {
		changed := false

		// Absorption: whenever lhs \ rhs is a single predicate q and
		// rhs \ lhs contains ¬q, rhs can drop ¬q.
		var additions []Conjunction[P]
		for _, lhs := range current.products {
			for _, rhs := range current.products {
				diff := lhs.difference(rhs)
				if len(diff) != 1 {
					continue
				}
				negated := diff[0].Not()
				if !rhs.contains(negated) {
					continue
				}
				rebuilt := ConjunctionOf[P]()
				for _, p := range rhs.difference(lhs) {
					if p.Compare(negated) != 0 {
						rebuilt = rebuilt.with(p)
					}
				}
				for _, p := range lhs.intersection(rhs) {
					rebuilt = rebuilt.with(p)
				}
				additions = append(additions, rebuilt)
			}
		}
		next := current
		for _, add := range additions {
			grown := next.withProduct(add)
			if !grown.Equal(next) {
				changed = true
				next = grown
			}
		}

		// Subsumption: a strict superset of another product is redundant.
		var kept []Conjunction[P]
		for i, product := range next.products {
			redundant := false
			for j, other := range next.products {
				if i == j {
					continue
				}
				if product.Len() > other.Len() && other.isSubsetOf(product) {
					redundant = true
					break
				}
			}
			if redundant {
				changed = true
			} else {
				kept = append(kept, product)
			}
		}
		next = PathCondition[P]{products: kept}

		if !changed {
			return next
		}
		current = next
	}
}

// Evaluate computes the condition's truth value under an assignment of
// the atoms.
func (pc PathCondition[P]) Evaluate(assign func(P) bool) bool {
	for _, product := range pc.products {
		all := true
		for _, p := range product.preds {
			if !assign(p) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func (pc PathCondition[P]) String() string {
	if len(pc.products) == 0 {
		return "false"
	}
	parts := make([]string, len(pc.products))
	for i, product := range pc.products {
		parts[i] = product.String()
	}
	return strings.Join(parts, " || ")
}
