// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package jclass implements a reader and writer for the JVM class file
// format. It decodes the constant pool, the attribute table and the
// bytecode instruction stream into a semantic model that can be inspected,
// modified and serialized back; re-parsing the output yields a class equal
// to the model (the constant pool is rebuilt, so its byte layout may
// differ).
//
// The ir sub-package lifts method bytecode into a register-based IR for
// static analysis, and the analysis sub-package provides the fixed-point
// solver and type hierarchy indices the analyses build on.
package jclass
