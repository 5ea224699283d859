// SPDX-License-Identifier: MPL-2.0

package instructions

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	segmentSeparator  = '&'
	keyValueSeparator = '='

	// valueAlphabet lists the punctuation accepted in instruction values
	// in addition to ASCII letters and digits.
	valueAlphabet = "-!\"'()*+,._%;:=/"

	// safeValueChars are emitted verbatim by Encode. Everything else is escaped.
	safeValueChars = "-!'()*,._;:/"
)

var (
	// ErrMalformedInstruction is the sentinel error wrapped by MalformedInstructionError.
	ErrMalformedInstruction = errors.New("malformed instruction")
	// ErrDecode is returned when a percent-decoded value is not valid UTF-8 text.
	ErrDecode = errors.New("failed to decode instruction value")
)

// MalformedInstructionError describes a query segment that does not follow the
// `key=value` grammar. It wraps ErrMalformedInstruction for errors.Is() compatibility.
type MalformedInstructionError struct {
	// Query is the complete query being parsed.
	Query string
	// Segment is the offending `&`-separated segment.
	Segment string
	// Offset is the byte offset of the offending character within Query.
	Offset int
	// Expected describes the token the scanner was looking for.
	Expected string
	// Found describes what was there instead.
	Found string
}

// Error implements the error interface.
func (e *MalformedInstructionError) Error() string {
	return fmt.Sprintf("invalid syntax for instruction [%s] at offset %d: expected %s, found %s",
		e.Segment, e.Offset, e.Expected, e.Found)
}

// Unwrap returns ErrMalformedInstruction.
func (e *MalformedInstructionError) Unwrap() error { return ErrMalformedInstruction }

// Parse parses an instruction query string. An empty query yields an empty set.
// The first malformed segment aborts parsing with a *MalformedInstructionError.
func Parse(query string) (*Instructions, error) {
	in := New()
	start := 0
	for {
		end := strings.IndexByte(query[start:], segmentSeparator)
		if end < 0 {
			end = len(query)
		} else {
			end += start
		}

		segment := query[start:end]
		if strings.TrimSpace(segment) != "" {
			key, value, err := scanSegment(query, segment, start)
			if err != nil {
				return nil, err
			}
			decoded, err := decodeValue(query, segment, start, len(key)+1, value)
			if err != nil {
				return nil, err
			}
			in.Set(key, decoded)
		}

		if end == len(query) {
			return in, nil
		}
		start = end + 1
	}
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(query string) *Instructions {
	in, err := Parse(query)
	if err != nil {
		panic(err)
	}
	return in
}

// scanSegment splits one segment into its raw key and value, validating both
// against the instruction alphabet. base is the offset of segment within query.
func scanSegment(query, segment string, base int) (key, value string, err error) {
	pos := 0
	for pos < len(segment) && isKeyChar(segment[pos]) {
		pos++
	}
	if pos == 0 {
		return "", "", malformed(query, segment, base, pos, "instruction key [A-Za-z0-9_-]")
	}
	if pos == len(segment) || segment[pos] != keyValueSeparator {
		return "", "", malformed(query, segment, base, pos, "'='")
	}
	key = segment[:pos]
	pos++

	valueStart := pos
	if pos == len(segment) {
		return "", "", malformed(query, segment, base, pos, "instruction value")
	}
	for pos < len(segment) {
		if !isValueChar(segment[pos]) {
			return "", "", malformed(query, segment, base, pos, "value character [-!\"'()*+,.0-9A-Z_a-z%;:=/]")
		}
		pos++
	}
	return key, segment[valueStart:], nil
}

// decodeValue percent-decodes a raw value. base is the offset of segment within
// query and valueStart the offset of value within segment.
func decodeValue(query, segment string, base, valueStart int, value string) (string, error) {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return "", malformed(query, segment, base, valueStart+badEscape(value), "two hex digits after '%'")
	}
	if !utf8.ValidString(decoded) {
		return "", fmt.Errorf("%w: value of [%s] is not UTF-8", ErrDecode, segment)
	}
	return decoded, nil
}

// badEscape returns the index of the first '%' in s that does not start a
// valid escape sequence, or len(s) if there is none.
func badEscape(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
			return i
		}
		i += 2
	}
	return len(s)
}

func malformed(query, segment string, base, pos int, expected string) *MalformedInstructionError {
	found := "end of segment"
	if pos < len(segment) {
		r, _ := utf8.DecodeRuneInString(segment[pos:])
		found = fmt.Sprintf("%q", r)
	}
	return &MalformedInstructionError{
		Query:    query,
		Segment:  segment,
		Offset:   base + pos,
		Expected: expected,
		Found:    found,
	}
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isKeyChar(c byte) bool {
	return isAlnum(c) || c == '_' || c == '-'
}

func isValueChar(c byte) bool {
	return isAlnum(c) || strings.IndexByte(valueAlphabet, c) >= 0
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func escapeValue(v string) string {
	const hexDigits = "0123456789ABCDEF"
	var sb strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case isAlnum(c) || strings.IndexByte(safeValueChars, c) >= 0:
			sb.WriteByte(c)
		case c == ' ':
			sb.WriteByte('+')
		default:
			sb.WriteByte('%')
			sb.WriteByte(hexDigits[c>>4])
			sb.WriteByte(hexDigits[c&0x0f])
		}
	}
	return sb.String()
}
