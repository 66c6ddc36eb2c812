// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ir

import "testing"

func TestOperandUnion(t *testing.T) {

	tests := []struct {
		name string
		a    Operand
		b    Operand
		want Operand
	}{
		{
			name: "identical plain references collapse",
			a:    Just(This()),
			b:    Just(This()),
			want: Just(This()),
		},
		{
			name: "distinct references form a phi",
			a:    Just(This()),
			b:    Just(Arg(0)),
			want: Phi(This(), Arg(0)),
		},
		{
			name: "plain reference joins a phi",
			a:    Just(Arg(0)),
			b:    Phi(Arg(1), Arg(2)),
			want: Phi(Arg(0), Arg(1), Arg(2)),
		},
		{
			name: "phi sets merge",
			a:    Phi(Arg(1), Arg(2)),
			b:    Phi(Arg(0), Arg(1), Arg(3)),
			want: Phi(Arg(0), Arg(1), Arg(2), Arg(3)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Union(tt.b)
			if !got.Equal(tt.want) {
				t.Errorf("union got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOperandUnionLaws(t *testing.T) {
	operands := []Operand{
		Just(This()),
		Just(Arg(0)),
		Just(Local(7)),
		Just(CaughtException()),
		Phi(Arg(0), Arg(1)),
		Phi(Local(1), Local(2), Local(3)),
	}

	for _, a := range operands {
		// Idempotence.
		if got := a.Union(a); !got.Equal(a) {
			t.Errorf("a ∪ a got %v, want %v", got, a)
		}
		for _, b := range operands {
			// Commutativity.
			ab, ba := a.Union(b), b.Union(a)
			if !ab.Equal(ba) {
				t.Errorf("a ∪ b = %v but b ∪ a = %v", ab, ba)
			}
			for _, c := range operands {
				// Associativity.
				left := a.Union(b).Union(c)
				right := a.Union(b.Union(c))
				if !left.Equal(right) {
					t.Errorf("(a ∪ b) ∪ c = %v but a ∪ (b ∪ c) = %v", left, right)
				}
			}
		}
	}
}

func TestOperandDisplay(t *testing.T) {

	tests := []struct {
		in   Operand
		want string
	}{
		{Just(This()), "%this"},
		{Just(Arg(3)), "%arg3"},
		{Just(Local(5)), "%5"},
		{Just(CaughtException()), "%caught_exception"},
		{Phi(This(), Arg(0)), "Phi(%this, %arg0)"},
	}

	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() got %q, want %q", got, tt.want)
		}
	}
}
