// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

// AccessFlags is a bit set of access and property flags. The meaning of
// each bit depends on the context the flags appear in.
type AccessFlags uint16

// Access and property flags per JVMS Table 4.1-B and friends.
const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSuper        AccessFlags = 0x0020 // class
	AccSynchronized AccessFlags = 0x0020 // method
	AccOpen         AccessFlags = 0x0020 // module
	AccTransitive   AccessFlags = 0x0020 // module requires
	AccVolatile     AccessFlags = 0x0040 // field
	AccBridge       AccessFlags = 0x0040 // method
	AccStaticPhase  AccessFlags = 0x0040 // module requires
	AccTransient    AccessFlags = 0x0080 // field
	AccVarargs      AccessFlags = 0x0080 // method
	AccNative       AccessFlags = 0x0100
	AccInterface    AccessFlags = 0x0200
	AccAbstract     AccessFlags = 0x0400
	AccStrict       AccessFlags = 0x0800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
	AccModule       AccessFlags = 0x8000 // class
	AccMandated     AccessFlags = 0x8000 // parameter, module
)

// Has reports whether all bits of flag are set.
func (f AccessFlags) Has(flag AccessFlags) bool {
	return f&flag == flag
}

// Defined flag masks per context.
const (
	classFlagsMask = AccPublic | AccFinal | AccSuper | AccInterface |
		AccAbstract | AccSynthetic | AccAnnotation | AccEnum | AccModule

	fieldFlagsMask = AccPublic | AccPrivate | AccProtected | AccStatic |
		AccFinal | AccVolatile | AccTransient | AccSynthetic | AccEnum

	methodFlagsMask = AccPublic | AccPrivate | AccProtected | AccStatic |
		AccFinal | AccSynchronized | AccBridge | AccVarargs | AccNative |
		AccAbstract | AccStrict | AccSynthetic

	innerClassFlagsMask = AccPublic | AccPrivate | AccProtected | AccStatic |
		AccFinal | AccInterface | AccAbstract | AccSynthetic |
		AccAnnotation | AccEnum

	parameterFlagsMask = AccFinal | AccSynthetic | AccMandated

	moduleFlagsMask = AccOpen | AccSynthetic | AccMandated

	requiresFlagsMask = AccTransitive | AccStaticPhase | AccSynthetic |
		AccMandated

	exportsFlagsMask = AccSynthetic | AccMandated
)

// checkFlags validates raw against the mask of bits defined for the given
// context.
func checkFlags(context string, raw uint16, mask AccessFlags) (AccessFlags, error) {
	if AccessFlags(raw)&^mask != 0 {
		return 0, UnknownFlagsError{Context: context, Flags: raw &^ uint16(mask)}
	}
	return AccessFlags(raw), nil
}
