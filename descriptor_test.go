// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"errors"
	"testing"
)

func TestParseFieldTypeRoundTrip(t *testing.T) {

	tests := []string{
		"Z", "C", "B", "S", "I", "J", "F", "D",
		"Ljava/lang/String;",
		"[I",
		"[[J",
		"[Ljava/util/List;",
		"[[[Ljava/lang/Object;",
	}

	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			parsed, err := ParseFieldType(tt)
			if err != nil {
				t.Fatalf("ParseFieldType(%q) failed, reason: %v", tt, err)
			}
			got := parsed.Descriptor()
			if got != tt {
				t.Errorf("field type round trip failed, got %q, want %q", got, tt)
			}
		})
	}
}

func TestParseFieldTypeInvalid(t *testing.T) {

	tests := []string{
		"", "V", "L;", "Ljava/lang/String", "[", "X", "II",
	}

	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			_, err := ParseFieldType(tt)
			var invalid InvalidDescriptorError
			if !errors.As(err, &invalid) {
				t.Errorf("ParseFieldType(%q) got %v, want InvalidDescriptorError", tt, err)
			}
		})
	}
}

func TestParseMethodDescriptorRoundTrip(t *testing.T) {

	tests := []string{
		"()V",
		"()I",
		"(I)V",
		"(IJ)J",
		"(Ljava/lang/String;I)Ljava/lang/String;",
		"([I[[Ljava/lang/Object;)[B",
		"(BCDFIJSZ)V",
	}

	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			parsed, err := ParseMethodDescriptor(tt)
			if err != nil {
				t.Fatalf("ParseMethodDescriptor(%q) failed, reason: %v", tt, err)
			}
			got := parsed.Descriptor()
			if got != tt {
				t.Errorf("method descriptor round trip failed, got %q, want %q", got, tt)
			}
		})
	}
}

func TestParseMethodDescriptorInvalid(t *testing.T) {

	tests := []string{
		"", "I", "(", "()", "()VV", "()X", "(V)V", "(I",
	}

	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			_, err := ParseMethodDescriptor(tt)
			var invalid InvalidDescriptorError
			if !errors.As(err, &invalid) {
				t.Errorf("ParseMethodDescriptor(%q) got %v, want InvalidDescriptorError",
					tt, err)
			}
		})
	}
}

func TestMethodDescriptorWideParameters(t *testing.T) {
	desc, err := ParseMethodDescriptor("(JDI)V")
	if err != nil {
		t.Fatalf("ParseMethodDescriptor failed, reason: %v", err)
	}
	wants := []bool{true, true, false}
	for i, want := range wants {
		if got := desc.Parameters[i].IsWide(); got != want {
			t.Errorf("parameter %d wide assertion failed, got %v, want %v", i, got, want)
		}
	}
	if desc.Return != nil {
		t.Errorf("void return assertion failed, got %v", desc.Return)
	}
}
