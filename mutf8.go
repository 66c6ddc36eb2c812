// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import "unicode/utf16"

// The JVM stores strings in modified UTF-8 (CESU-8): U+0000 is encoded as
// the two-byte sequence C0 80, and supplementary characters are encoded as
// CESU-8 surrogate pairs of three bytes each. decodeMUTF8 performs a strict
// decode; the caller preserves the raw bytes when it fails.

// decodeMUTF8 decodes modified UTF-8 into a Go string. The second return
// value reports whether the input was well-formed.
func decodeMUTF8(data []byte) (string, bool) {
	units := make([]uint16, 0, len(data))
	for i := 0; i < len(data); {
		b := data[i]
		switch {
		case b&0x80 == 0:
			if b == 0 {
				// A raw NUL must be encoded as C0 80.
				return "", false
			}
			units = append(units, uint16(b))
			i++
		case b&0xE0 == 0xC0:
			if i+1 >= len(data) || data[i+1]&0xC0 != 0x80 {
				return "", false
			}
			units = append(units, uint16(b&0x1F)<<6|uint16(data[i+1]&0x3F))
			i += 2
		case b&0xF0 == 0xE0:
			if i+2 >= len(data) || data[i+1]&0xC0 != 0x80 || data[i+2]&0xC0 != 0x80 {
				return "", false
			}
			units = append(units,
				uint16(b&0x0F)<<12|uint16(data[i+1]&0x3F)<<6|uint16(data[i+2]&0x3F))
			i += 3
		default:
			return "", false
		}
	}
	for i := 0; i < len(units); i++ {
		switch {
		case units[i] >= 0xD800 && units[i] < 0xDC00:
			if i+1 >= len(units) || units[i+1] < 0xDC00 || units[i+1] >= 0xE000 {
				return "", false
			}
			i++
		case units[i] >= 0xDC00 && units[i] < 0xE000:
			// Low surrogate with no preceding high surrogate.
			return "", false
		}
	}
	return string(utf16.Decode(units)), true
}

// encodeMUTF8 encodes a Go string into modified UTF-8.
func encodeMUTF8(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, len(s))
	for _, u := range units {
		switch {
		case u == 0:
			out = append(out, 0xC0, 0x80)
		case u < 0x80:
			out = append(out, byte(u))
		case u < 0x800:
			out = append(out, 0xC0|byte(u>>6), 0x80|byte(u&0x3F))
		default:
			out = append(out, 0xE0|byte(u>>12), 0x80|byte(u>>6&0x3F), 0x80|byte(u&0x3F))
		}
	}
	return out
}
