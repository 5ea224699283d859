// SPDX-License-Identifier: MPL-2.0

package header

import (
	"regexp"
	"strings"
)

type (
	// Instruction is a package selection pattern taken from an instruction
	// header such as Import-Package or Export-Package. A leading '!' negates
	// the pattern, '*' matches any sequence, and a trailing ".*" also matches
	// the parent package itself.
	Instruction struct {
		// Clause is the originating clause with the '!' prefix removed from Name.
		Clause  Clause
		negated bool
		literal bool
		re      *regexp.Regexp
	}

	// Instructions is an ordered pattern list; the first match decides.
	Instructions []Instruction
)

// ParseInstructions parses header text into an ordered pattern list.
func ParseInstructions(text string) (Instructions, error) {
	cs, err := Parse(text)
	if err != nil {
		return nil, err
	}
	out := make(Instructions, 0, len(cs))
	for _, c := range cs {
		out = append(out, compileInstruction(c))
	}
	return out, nil
}

func compileInstruction(c Clause) Instruction {
	in := Instruction{Clause: c.Clone()}
	name := c.Name
	if strings.HasPrefix(name, "!") {
		in.negated = true
		name = name[1:]
	}
	in.Clause.Name = name
	in.literal = !strings.Contains(name, "*")

	var expr string
	if base, ok := strings.CutSuffix(name, ".*"); ok {
		expr = globToRegexp(base) + `(\..*)?`
	} else {
		expr = globToRegexp(name)
	}
	in.re = regexp.MustCompile("^" + expr + "$")
	return in
}

func globToRegexp(s string) string {
	return strings.ReplaceAll(regexp.QuoteMeta(s), `\*`, ".*")
}

// Negated reports whether the pattern excludes matching packages.
func (in Instruction) Negated() bool { return in.negated }

// Literal reports whether the pattern names a single package.
func (in Instruction) Literal() bool { return in.literal }

// Matches reports whether pkg matches the pattern, ignoring negation.
func (in Instruction) Matches(pkg string) bool { return in.re.MatchString(pkg) }

// Select returns the first instruction matching pkg. ok is false when nothing
// matches or when the first match is negated.
func (ins Instructions) Select(pkg string) (Instruction, bool) {
	for _, in := range ins {
		if in.Matches(pkg) {
			return in, !in.negated
		}
	}
	return Instruction{}, false
}
