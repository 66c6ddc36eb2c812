// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package jclass

import "fmt"

// Version identifies the class file format version, decoded from the major
// and minor version numbers.
type Version struct {
	Major uint16 `json:"major"`
	Minor uint16 `json:"minor"`
}

// Known major version numbers.
const (
	MajorJDK1_0_2 = 45
	MajorJDK1_2   = 46
	MajorJDK1_3   = 47
	MajorJDK1_4   = 48
	MajorJava5    = 49
	MajorJava6    = 50
	MajorJava7    = 51
	MajorJava8    = 52
	MajorJava9    = 53
	MajorJava10   = 54
	MajorJava11   = 55
	MajorJava12   = 56
	MajorJava13   = 57
	MajorJava14   = 58
	MajorJava15   = 59
	MajorJava16   = 60
	MajorJava17   = 61
	MajorJava18   = 62
	MajorJava19   = 63
	MajorJava20   = 64
	MajorJava21   = 65
	MajorJava22   = 66
)

// previewMinor marks class files compiled with preview features enabled.
const previewMinor = 0xFFFF

// IsPreview reports whether the class file was compiled with preview
// features enabled (Java 12 and later use minor 0xFFFF for this).
func (v Version) IsPreview() bool {
	return v.Major >= MajorJava12 && v.Minor == previewMinor
}

var versionNames = map[uint16]string{
	45: "JDK 1.1",
	46: "JDK 1.2",
	47: "JDK 1.3",
	48: "JDK 1.4",
	49: "Java SE 5",
	50: "Java SE 6",
	51: "Java SE 7",
	52: "Java SE 8",
	53: "Java SE 9",
	54: "Java SE 10",
	55: "Java SE 11",
	56: "Java SE 12",
	57: "Java SE 13",
	58: "Java SE 14",
	59: "Java SE 15",
	60: "Java SE 16",
	61: "Java SE 17",
	62: "Java SE 18",
	63: "Java SE 19",
	64: "Java SE 20",
	65: "Java SE 21",
	66: "Java SE 22",
}

// String names the release the version belongs to; unknown majors render
// as other(major, minor).
func (v Version) String() string {
	name, ok := versionNames[v.Major]
	if !ok {
		return fmt.Sprintf("other(%d, %d)", v.Major, v.Minor)
	}
	if v.Major == MajorJDK1_0_2 && v.Minor < 3 {
		name = "JDK 1.0.2"
	}
	if v.IsPreview() {
		return name + " (preview)"
	}
	return name
}
