// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"encoding/binary"
	"io"
)

// countingReader reads big-endian primitives from an underlying stream and
// tracks the absolute offset of the next byte. The class file format is
// big-endian throughout, so all accessors decode accordingly.
type countingReader struct {
	r      io.Reader
	offset uint64
}

func newCountingReader(r io.Reader) *countingReader {
	return &countingReader{r: r}
}

// bytes reads exactly n bytes from the stream.
func (cr *countingReader) bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(cr.r, buf); err != nil {
		return nil, err
	}
	cr.offset += uint64(n)
	return buf, nil
}

func (cr *countingReader) u8() (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(cr.r, b[:]); err != nil {
		return 0, err
	}
	cr.offset++
	return b[0], nil
}

func (cr *countingReader) u16() (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(cr.r, b[:]); err != nil {
		return 0, err
	}
	cr.offset += 2
	return binary.BigEndian.Uint16(b[:]), nil
}

func (cr *countingReader) u32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(cr.r, b[:]); err != nil {
		return 0, err
	}
	cr.offset += 4
	return binary.BigEndian.Uint32(b[:]), nil
}

func (cr *countingReader) u64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(cr.r, b[:]); err != nil {
		return 0, err
	}
	cr.offset += 8
	return binary.BigEndian.Uint64(b[:]), nil
}

func (cr *countingReader) i8() (int8, error) {
	v, err := cr.u8()
	return int8(v), err
}

func (cr *countingReader) i16() (int16, error) {
	v, err := cr.u16()
	return int16(v), err
}

func (cr *countingReader) i32() (int32, error) {
	v, err := cr.u32()
	return int32(v), err
}
