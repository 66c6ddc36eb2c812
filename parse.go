// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import (
	"bytes"
	"io"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/saferwall/jclass/log"
)

// The class file magic number.
const Magic = 0xCAFEBABE

// Options for parsing.
type Options struct {

	// A custom logger.
	Logger log.Logger
}

// A File represents an open class file.
type File struct {
	Class *Class

	data   mmap.MMap
	buf    []byte
	f      *os.File
	opts   *Options
	logger *log.Helper
}

// New instantiates a file instance with options given a file name. The file
// is memory mapped instead of read into a buffer.
func New(name string, opts *Options) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	file := File{data: data, f: f}
	file.init(opts)
	return &file, nil
}

// NewBytes instantiates a file instance with options given a memory buffer.
func NewBytes(data []byte, opts *Options) (*File, error) {
	file := File{buf: data}
	file.init(opts)
	return &file, nil
}

func (f *File) init(opts *Options) {
	if opts != nil {
		f.opts = opts
	} else {
		f.opts = &Options{}
	}
	if f.opts.Logger == nil {
		logger := log.NewStdLogger(os.Stdout)
		f.logger = log.NewHelper(log.NewFilter(logger,
			log.FilterLevel(log.LevelError)))
	} else {
		f.logger = log.NewHelper(f.opts.Logger)
	}
}

// raw returns the underlying class file bytes.
func (f *File) raw() []byte {
	if f.data != nil {
		return f.data
	}
	return f.buf
}

// Parse decodes the class file into the semantic model. Trailing bytes
// after the class-level attribute table make the file malformed; a failed
// parse yields no partial result.
func (f *File) Parse() error {
	data := f.raw()
	class, err := ParseClass(bytes.NewReader(data), uint64(len(data)))
	if err != nil {
		f.logger.Errorf("class parsing failed: %v", err)
		return err
	}
	f.Class = class
	return nil
}

// Close unmaps the underlying file mapping.
func (f *File) Close() error {
	if f.data != nil {
		if err := f.data.Unmap(); err != nil {
			return err
		}
		f.data = nil
	}
	if f.f != nil {
		err := f.f.Close()
		f.f = nil
		return err
	}
	return nil
}

// ParseClass reads one class file from r. When size is non-zero, the parser
// verifies that exactly size bytes were consumed.
func ParseClass(r io.Reader, size uint64) (*Class, error) {
	cr := newCountingReader(r)
	magic, err := cr.u32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, ErrNotAClassFile
	}
	minor, err := cr.u16()
	if err != nil {
		return nil, err
	}
	major, err := cr.u16()
	if err != nil {
		return nil, err
	}
	version := Version{Major: major, Minor: minor}

	cp, err := parseConstantPool(cr)
	if err != nil {
		return nil, err
	}

	rawFlags, err := cr.u16()
	if err != nil {
		return nil, err
	}
	flags, err := checkFlags("class", rawFlags, classFlagsMask)
	if err != nil {
		return nil, err
	}

	thisIdx, err := cr.u16()
	if err != nil {
		return nil, err
	}
	thisClass, err := cp.GetClassRef(thisIdx)
	if err != nil {
		return nil, err
	}

	superIdx, err := cr.u16()
	if err != nil {
		return nil, err
	}
	var superClass *ClassRef
	if superIdx != 0 {
		ref, err := cp.GetClassRef(superIdx)
		if err != nil {
			return nil, err
		}
		superClass = &ref
	}

	interfaceCount, err := cr.u16()
	if err != nil {
		return nil, err
	}
	interfaces := make([]ClassRef, 0, interfaceCount)
	for i := uint16(0); i < interfaceCount; i++ {
		idx, err := cr.u16()
		if err != nil {
			return nil, err
		}
		ref, err := cp.GetClassRef(idx)
		if err != nil {
			return nil, err
		}
		interfaces = append(interfaces, ref)
	}

	class := &Class{
		Version:    version,
		Flags:      flags,
		ThisClass:  thisClass,
		SuperClass: superClass,
		Interfaces: interfaces,
	}

	fieldCount, err := cr.u16()
	if err != nil {
		return nil, err
	}
	for i := uint16(0); i < fieldCount; i++ {
		field, err := parseFieldInfo(cr, cp)
		if err != nil {
			return nil, err
		}
		class.Fields = append(class.Fields, field)
	}

	methodCount, err := cr.u16()
	if err != nil {
		return nil, err
	}
	for i := uint16(0); i < methodCount; i++ {
		method, err := parseMethodInfo(cr, cp, class)
		if err != nil {
			return nil, err
		}
		class.Methods = append(class.Methods, method)
	}

	attrs, err := parseAttributeList(cr, cp)
	if err != nil {
		return nil, err
	}
	if err := class.extractClassAttributes(attrs); err != nil {
		return nil, err
	}

	if size != 0 && cr.offset != size {
		return nil, malformed("%d trailing bytes after the class structure",
			size-cr.offset)
	}
	return class, nil
}

func parseFieldInfo(cr *countingReader, cp *ConstantPool) (Field, error) {
	rawFlags, err := cr.u16()
	if err != nil {
		return Field{}, err
	}
	flags, err := checkFlags("field", rawFlags, fieldFlagsMask)
	if err != nil {
		return Field{}, err
	}
	nameIdx, err := cr.u16()
	if err != nil {
		return Field{}, err
	}
	name, err := cp.GetUTF8(nameIdx)
	if err != nil {
		return Field{}, err
	}
	descIdx, err := cr.u16()
	if err != nil {
		return Field{}, err
	}
	desc, err := cp.GetUTF8(descIdx)
	if err != nil {
		return Field{}, err
	}
	fieldType, err := ParseFieldType(desc)
	if err != nil {
		return Field{}, err
	}
	attrs, err := parseAttributeList(cr, cp)
	if err != nil {
		return Field{}, err
	}
	field := Field{Flags: flags, Name: name, Type: fieldType}
	if err := field.extractFieldAttributes(attrs); err != nil {
		return Field{}, err
	}
	return field, nil
}

func parseMethodInfo(cr *countingReader, cp *ConstantPool, class *Class) (Method, error) {
	rawFlags, err := cr.u16()
	if err != nil {
		return Method{}, err
	}
	flags, err := checkFlags("method", rawFlags, methodFlagsMask)
	if err != nil {
		return Method{}, err
	}
	nameIdx, err := cr.u16()
	if err != nil {
		return Method{}, err
	}
	name, err := cp.GetUTF8(nameIdx)
	if err != nil {
		return Method{}, err
	}
	descIdx, err := cr.u16()
	if err != nil {
		return Method{}, err
	}
	desc, err := cp.GetUTF8(descIdx)
	if err != nil {
		return Method{}, err
	}
	descriptor, err := ParseMethodDescriptor(desc)
	if err != nil {
		return Method{}, err
	}
	attrs, err := parseAttributeList(cr, cp)
	if err != nil {
		return Method{}, err
	}
	method := Method{
		Flags:      flags,
		Name:       name,
		Descriptor: descriptor,
		Owner:      class.ThisClass,
	}
	if err := method.extractMethodAttributes(attrs, class.Version); err != nil {
		return Method{}, err
	}
	return method, nil
}
