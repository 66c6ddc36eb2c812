// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"bytes"
	"testing"
)

func TestMUTF8RoundTrip(t *testing.T) {

	tests := []string{
		"",
		"hello",
		"java/lang/String",
		"h\u00e9llo w\u00f6rld",
		"\u65e5\u672c\u8a9e",
		"a\x00b",
		"\U0001F600", // supplementary plane, CESU-8 surrogate pair
	}

	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			encoded := encodeMUTF8(tt)
			decoded, ok := decodeMUTF8(encoded)
			if !ok {
				t.Fatalf("decodeMUTF8(encodeMUTF8(%q)) reported invalid", tt)
			}
			if decoded != tt {
				t.Errorf("round trip failed, got %q, want %q", decoded, tt)
			}
		})
	}
}

func TestMUTF8NulEncoding(t *testing.T) {
	encoded := encodeMUTF8("a\x00b")
	if !bytes.Equal(encoded, []byte{'a', 0xC0, 0x80, 'b'}) {
		t.Errorf("NUL encoding got %x, want 61c08062", encoded)
	}
}

func TestMUTF8Invalid(t *testing.T) {

	tests := [][]byte{
		{0x00},             // raw NUL is not allowed
		{0xC0},             // truncated two-byte sequence
		{0xE0, 0x80},       // truncated three-byte sequence
		{0xF0, 0x90, 0x80}, // four-byte sequences do not exist in CESU-8
		{0xED, 0xA0, 0x80}, // lone high surrogate
		{0xED, 0xB0, 0x80}, // lone low surrogate
		{0x80},             // continuation byte with no lead
	}

	for _, tt := range tests {
		if _, ok := decodeMUTF8(tt); ok {
			t.Errorf("decodeMUTF8(%x) accepted invalid input", tt)
		}
	}
}
