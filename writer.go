// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"encoding/binary"
	"io"
)

// countingWriter writes big-endian primitives to an underlying stream and
// tracks the number of bytes written so far.
type countingWriter struct {
	w      io.Writer
	offset uint64
}

func newCountingWriter(w io.Writer) *countingWriter {
	return &countingWriter{w: w}
}

func (cw *countingWriter) bytes(p []byte) error {
	n, err := cw.w.Write(p)
	cw.offset += uint64(n)
	return err
}

func (cw *countingWriter) u8(v uint8) error {
	return cw.bytes([]byte{v})
}

func (cw *countingWriter) u16(v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return cw.bytes(b[:])
}

func (cw *countingWriter) u32(v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return cw.bytes(b[:])
}

func (cw *countingWriter) u64(v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return cw.bytes(b[:])
}

func (cw *countingWriter) i8(v int8) error {
	return cw.u8(uint8(v))
}

func (cw *countingWriter) i16(v int16) error {
	return cw.u16(uint16(v))
}

func (cw *countingWriter) i32(v int32) error {
	return cw.u32(uint32(v))
}
