// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package analysis provides the building blocks shared by the static
// analyses: a generic fixed-point solver and the class hierarchy indices.
package analysis

// Problem is a forward dataflow problem over locations of type L with
// facts of type F.
type Problem[L comparable, F any] interface {
	// EntryFacts seeds the analysis, typically with a single fact at the
	// entry location.
	EntryFacts() (map[L]F, error)

	// Transfer applies the effect of the location under the given fact and
	// returns the facts it propagates to the affected locations.
	Transfer(location L, fact F) (map[L]F, error)

	// Merge joins an incoming fact into the current fact at a location.
	Merge(current, incoming F) (F, error)

	// FactsEqual reports whether two facts are equal; it bounds the
	// iteration.
	FactsEqual(a, b F) bool
}

// Solve iterates the problem's transfer function to its least fixed point
// and returns the fact computed at every reached location.
//
// The worklist is FIFO, but the processing order is not part of the
// contract; termination relies on the facts forming a join-semilattice of
// finite height.
func Solve[L comparable, F any](p Problem[L, F]) (map[L]F, error) {
	facts, err := p.EntryFacts()
	if err != nil {
		return nil, err
	}
	worklist := make([]L, 0, len(facts))
	queued := make(map[L]bool, len(facts))
	enqueue := func(loc L) {
		if !queued[loc] {
			queued[loc] = true
			worklist = append(worklist, loc)
		}
	}
	for loc := range facts {
		enqueue(loc)
	}
	for len(worklist) > 0 {
		loc := worklist[0]
		worklist = worklist[1:]
		queued[loc] = false

		affected, err := p.Transfer(loc, facts[loc])
		if err != nil {
			return nil, err
		}
		for succ, incoming := range affected {
			current, known := facts[succ]
			if !known {
				facts[succ] = incoming
				enqueue(succ)
				continue
			}
			merged, err := p.Merge(current, incoming)
			if err != nil {
				return nil, err
			}
			if !p.FactsEqual(merged, current) {
				facts[succ] = merged
				enqueue(succ)
			}
		}
	}
	return facts, nil
}
