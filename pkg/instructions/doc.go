// SPDX-License-Identifier: MPL-2.0

// Package instructions parses bundle processing instructions out of a URL-style
// query string.
//
// An instruction query is a list of `key=value` segments joined by `&`:
//
//	Bundle-SymbolicName=org.acme.widgets&Import-Package=com.acme.*;resolution:%3Doptional
//
// Keys are made of letters, digits, underscores and hyphens. Values are drawn from a
// restricted printable alphabet and are percent-decoded (with `+` decoding to a space)
// before they are stored. Blank segments are ignored and an empty query yields an empty
// instruction set.
//
// Parsing is done by an explicit scanner rather than a regular expression so that a
// rejected segment is reported with the byte offset of the offending character and a
// description of what was expected there:
//
//	_, err := instructions.Parse("foo=bar&baz")
//	var malformed *instructions.MalformedInstructionError
//	if errors.As(err, &malformed) {
//	    fmt.Println(malformed.Offset, malformed.Expected) // 11 '='
//	}
package instructions
