// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ir

import (
	"sort"

	jclass "github.com/saferwall/jclass"
)

// DefUseChain indexes where each value of a lifted method is defined and
// where each identifier is used.
type DefUseChain struct {
	defs map[LocalValueID]jclass.ProgramCounter
	uses map[Identifier]map[jclass.ProgramCounter]struct{}
}

// NewDefUseChain builds the chain from a lifted method.
func NewDefUseChain(m *Method) *DefUseChain {
	chain := &DefUseChain{
		defs: make(map[LocalValueID]jclass.ProgramCounter),
		uses: make(map[Identifier]map[jclass.ProgramCounter]struct{}),
	}
	for pc, insn := range m.Instructions {
		if value, ok := insn.Def(); ok {
			chain.defs[value] = pc
		}
		for _, id := range insn.Uses() {
			sites, ok := chain.uses[id]
			if !ok {
				sites = make(map[jclass.ProgramCounter]struct{})
				chain.uses[id] = sites
			}
			sites[pc] = struct{}{}
		}
	}
	return chain
}

// DefinedAt returns the program counter defining the value.
func (c *DefUseChain) DefinedAt(value LocalValueID) (jclass.ProgramCounter, bool) {
	pc, ok := c.defs[value]
	return pc, ok
}

// UsedAt returns the program counters using the identifier, in ascending
// order.
func (c *DefUseChain) UsedAt(id Identifier) []jclass.ProgramCounter {
	sites, ok := c.uses[id]
	if !ok {
		return nil
	}
	out := make([]jclass.ProgramCounter, 0, len(sites))
	for pc := range sites {
		out = append(out, pc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
