// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ir

import (
	"testing"

	jclass "github.com/saferwall/jclass"
)

func linearEdges() []Edge[struct{}] {
	return []Edge[struct{}]{
		{From: 0, To: 1},
		{From: 1, To: 2},
		{From: 2, To: 3},
		{From: 3, To: 4},
	}
}

func TestCFGLinear(t *testing.T) {
	cfg, err := FromEdges(linearEdges())
	if err != nil {
		t.Fatalf("FromEdges failed, reason: %v", err)
	}

	nodes := cfg.Nodes()
	if len(nodes) != 5 {
		t.Errorf("node count got %d, want 5", len(nodes))
	}
	for i, pc := range nodes {
		if pc != jclass.ProgramCounter(i) {
			t.Errorf("node %d got %v", i, pc)
		}
	}

	edges := cfg.Edges()
	if len(edges) != 4 {
		t.Errorf("edge count got %d, want 4", len(edges))
	}

	exits := cfg.Exits()
	if len(exits) != 1 || exits[0] != 4 {
		t.Errorf("exits got %v, want [#0004]", exits)
	}

	if cfg.EntryPoint() != 0 {
		t.Errorf("entry point got %v, want 0", cfg.EntryPoint())
	}
}

func TestCFGDuplicateEdge(t *testing.T) {
	edges := append(linearEdges(), Edge[struct{}]{From: 0, To: 1})
	if _, err := FromEdges(edges); err == nil {
		t.Error("FromEdges accepted a duplicate edge")
	}
}

// Every edge target must also be a node.
func TestCFGEdgeTargetsAreNodes(t *testing.T) {
	cfg, err := FromEdges(linearEdges())
	if err != nil {
		t.Fatalf("FromEdges failed, reason: %v", err)
	}
	for _, edge := range cfg.Edges() {
		if !cfg.HasNode(edge.To) {
			t.Errorf("edge target %v is not a node", edge.To)
		}
		if !cfg.HasNode(edge.From) {
			t.Errorf("edge source %v is not a node", edge.From)
		}
	}
}

// Back edges are ordinary map entries; a loop does not break traversal.
func TestCFGLoop(t *testing.T) {
	edges := []Edge[struct{}]{
		{From: 0, To: 1},
		{From: 1, To: 2},
		{From: 2, To: 1}, // back edge
		{From: 2, To: 3},
	}
	cfg, err := FromEdges(edges)
	if err != nil {
		t.Fatalf("FromEdges failed, reason: %v", err)
	}
	if got := len(cfg.Nodes()); got != 4 {
		t.Errorf("node count got %d, want 4", got)
	}
	if got := len(cfg.EdgesFrom(2)); got != 2 {
		t.Errorf("out-degree of 2 got %d, want 2", got)
	}
	exits := cfg.Exits()
	if len(exits) != 1 || exits[0] != 3 {
		t.Errorf("exits got %v, want [#0003]", exits)
	}
}
