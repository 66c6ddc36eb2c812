// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ir

import (
	"fmt"
	"sort"
	"strings"

	jclass "github.com/saferwall/jclass"
)

// CFG is a control flow graph keyed by program counter, generic over the
// data attached to nodes and edges. Node identity is the program counter;
// back edges and loops are ordinary entries in the node-indexed maps, so
// the graph itself contains no pointer cycles.
type CFG[N, E any] struct {
	nodes map[jclass.ProgramCounter]*cfgNode[N, E]
}

type cfgNode[N, E any] struct {
	data  N
	edges map[jclass.ProgramCounter]E
}

// Edge is one edge of a CFG together with its data.
type Edge[E any] struct {
	From jclass.ProgramCounter
	To   jclass.ProgramCounter
	Data E
}

// NewCFG returns an empty graph.
func NewCFG[N, E any]() *CFG[N, E] {
	return &CFG[N, E]{nodes: make(map[jclass.ProgramCounter]*cfgNode[N, E])}
}

// FromEdges builds a graph from an edge list. Every edge endpoint becomes
// a node. Duplicate edges between the same pair of nodes are rejected.
func FromEdges[E any](edges []Edge[E]) (*CFG[struct{}, E], error) {
	g := NewCFG[struct{}, E]()
	for _, e := range edges {
		if err := g.AddEdge(e.From, e.To, e.Data); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// EntryPoint returns the graph's entry, program counter zero.
func (g *CFG[N, E]) EntryPoint() jclass.ProgramCounter {
	return jclass.EntryPoint
}

// ensureNode materializes the node for pc.
func (g *CFG[N, E]) ensureNode(pc jclass.ProgramCounter) *cfgNode[N, E] {
	node, ok := g.nodes[pc]
	if !ok {
		node = &cfgNode[N, E]{edges: make(map[jclass.ProgramCounter]E)}
		g.nodes[pc] = node
	}
	return node
}

// AddEdge inserts an edge, materializing both endpoints as nodes. A second
// edge between the same endpoints is an error.
func (g *CFG[N, E]) AddEdge(from, to jclass.ProgramCounter, data E) error {
	node := g.ensureNode(from)
	if _, dup := node.edges[to]; dup {
		return fmt.Errorf("duplicate edge %s -> %s", from, to)
	}
	node.edges[to] = data
	g.ensureNode(to)
	return nil
}

// SetNodeData attaches data to a node, materializing it if needed.
func (g *CFG[N, E]) SetNodeData(pc jclass.ProgramCounter, data N) {
	g.ensureNode(pc).data = data
}

// NodeData returns the data attached to pc.
func (g *CFG[N, E]) NodeData(pc jclass.ProgramCounter) (N, bool) {
	node, ok := g.nodes[pc]
	if !ok {
		var zero N
		return zero, false
	}
	return node.data, true
}

// HasNode reports whether pc is a node of the graph.
func (g *CFG[N, E]) HasNode(pc jclass.ProgramCounter) bool {
	_, ok := g.nodes[pc]
	return ok
}

// Nodes returns the node program counters in ascending order.
func (g *CFG[N, E]) Nodes() []jclass.ProgramCounter {
	out := make([]jclass.ProgramCounter, 0, len(g.nodes))
	for pc := range g.nodes {
		out = append(out, pc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Edges returns every edge, ordered by source then target.
func (g *CFG[N, E]) Edges() []Edge[E] {
	var out []Edge[E]
	for _, from := range g.Nodes() {
		node := g.nodes[from]
		targets := make([]jclass.ProgramCounter, 0, len(node.edges))
		for to := range node.edges {
			targets = append(targets, to)
		}
		sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
		for _, to := range targets {
			out = append(out, Edge[E]{From: from, To: to, Data: node.edges[to]})
		}
	}
	return out
}

// EdgesFrom returns the outgoing edges of pc.
func (g *CFG[N, E]) EdgesFrom(pc jclass.ProgramCounter) []Edge[E] {
	node, ok := g.nodes[pc]
	if !ok {
		return nil
	}
	targets := make([]jclass.ProgramCounter, 0, len(node.edges))
	for to := range node.edges {
		targets = append(targets, to)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	out := make([]Edge[E], 0, len(targets))
	for _, to := range targets {
		out = append(out, Edge[E]{From: pc, To: to, Data: node.edges[to]})
	}
	return out
}

// Exits returns the nodes with no outgoing edges.
func (g *CFG[N, E]) Exits() []jclass.ProgramCounter {
	var out []jclass.ProgramCounter
	for _, pc := range g.Nodes() {
		if len(g.nodes[pc].edges) == 0 {
			out = append(out, pc)
		}
	}
	return out
}

// ControlTransfer labels a CFG edge of a lifted method. The set of
// implementations is closed.
type ControlTransfer interface {
	fmt.Stringer
	isControlTransfer()
}

// TransferUnconditional is an unconditional control transfer.
type TransferUnconditional struct{}

func (TransferUnconditional) String() string     { return "goto" }
func (TransferUnconditional) isControlTransfer() {}

// TransferConditional is a conditional control transfer labeled with the
// path condition under which the edge is taken.
type TransferConditional struct {
	Condition PathCondition[Condition]
}

func (t TransferConditional) String() string {
	return "if " + t.Condition.String()
}
func (TransferConditional) isControlTransfer() {}

// TransferException is a transfer into an exception handler, labeled with
// the set of caught classes. CatchAll marks a catch-all entry.
type TransferException struct {
	Catches  []jclass.ClassRef
	CatchAll bool
}

func (t TransferException) String() string {
	if t.CatchAll {
		return "catch *"
	}
	names := make([]string, len(t.Catches))
	for i, ref := range t.Catches {
		names[i] = ref.BinaryName
	}
	return "catch " + strings.Join(names, ", ")
}
func (TransferException) isControlTransfer() {}

// TransferSubroutineReturn is a transfer caused by a subroutine return.
type TransferSubroutineReturn struct{}

func (TransferSubroutineReturn) String() string     { return "subroutine return" }
func (TransferSubroutineReturn) isControlTransfer() {}
