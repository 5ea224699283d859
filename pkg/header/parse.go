// SPDX-License-Identifier: MPL-2.0

package header

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is the sentinel error wrapped by SyntaxError.
var ErrSyntax = errors.New("invalid header syntax")

// SyntaxError reports a header value that cannot be split into clauses.
type SyntaxError struct {
	Header string
	Clause string
	Reason string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if e.Clause == "" {
		return fmt.Sprintf("invalid header %q: %s", e.Header, e.Reason)
	}
	return fmt.Sprintf("invalid header clause %q: %s", e.Clause, e.Reason)
}

// Unwrap returns ErrSyntax.
func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Parse splits a header value into clauses. A blank value yields no clauses.
// Blank clauses (for instance from a trailing comma) are skipped.
func Parse(text string) (Clauses, error) {
	parts, err := splitQuoted(text, ',')
	if err != nil {
		return nil, &SyntaxError{Header: text, Reason: err.Error()}
	}

	var out Clauses
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		clauses, err := parseClause(part)
		if err != nil {
			return nil, err
		}
		out = append(out, clauses...)
	}
	return out, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) Clauses {
	cs, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return cs
}

// parseClause parses one clause. Leading bare tokens are names sharing the
// clause's attributes, so "a;b;version=1" yields two clauses.
func parseClause(text string) (Clauses, error) {
	tokens, err := splitQuoted(text, ';')
	if err != nil {
		return nil, &SyntaxError{Clause: text, Reason: err.Error()}
	}

	var (
		names []string
		attrs []Attr
	)
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		eq := indexUnquoted(tok, '=')
		if eq < 0 {
			if len(attrs) > 0 {
				return nil, &SyntaxError{Clause: text, Reason: fmt.Sprintf("name %q follows an attribute", tok)}
			}
			if tok == "" {
				return nil, &SyntaxError{Clause: text, Reason: "empty clause name"}
			}
			names = append(names, tok)
			continue
		}

		key := strings.TrimSpace(tok[:eq])
		if key == "" || key == ":" {
			return nil, &SyntaxError{Clause: text, Reason: fmt.Sprintf("attribute %q has no key", tok)}
		}
		value, err := unquote(strings.TrimSpace(tok[eq+1:]))
		if err != nil {
			return nil, &SyntaxError{Clause: text, Reason: err.Error()}
		}
		attrs = append(attrs, Attr{Key: key, Value: value})
	}
	if len(names) == 0 {
		return nil, &SyntaxError{Clause: text, Reason: "empty clause name"}
	}

	out := make(Clauses, 0, len(names))
	for _, name := range names {
		c := Clause{Name: name}
		if attrs != nil {
			c.Attrs = make([]Attr, len(attrs))
			copy(c.Attrs, attrs)
		}
		out = append(out, c)
	}
	return out, nil
}

// splitQuoted splits s on sep, ignoring separators inside double quotes.
func splitQuoted(s string, sep byte) ([]string, error) {
	var (
		parts  []string
		start  int
		quoted bool
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case quoted && c == '\\':
			i++
		case c == '"':
			quoted = !quoted
		case !quoted && c == sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	if quoted {
		return nil, errors.New("unterminated quoted string")
	}
	return append(parts, s[start:]), nil
}

// indexUnquoted returns the index of the first c outside double quotes.
func indexUnquoted(s string, c byte) int {
	quoted := false
	for i := 0; i < len(s); i++ {
		switch {
		case quoted && s[i] == '\\':
			i++
		case s[i] == '"':
			quoted = !quoted
		case !quoted && s[i] == c:
			return i
		}
	}
	return -1
}

func unquote(v string) (string, error) {
	if !strings.HasPrefix(v, `"`) {
		return v, nil
	}
	if len(v) < 2 || !strings.HasSuffix(v, `"`) {
		return "", fmt.Errorf("malformed quoted value %s", v)
	}
	inner := v[1 : len(v)-1]
	if !strings.Contains(inner, `\`) {
		return inner, nil
	}
	var sb strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
		}
		sb.WriteByte(inner[i])
	}
	return sb.String(), nil
}
