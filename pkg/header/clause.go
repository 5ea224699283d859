// SPDX-License-Identifier: MPL-2.0

package header

import "strings"

const (
	// VersionAttribute is the attribute carrying a package version or version range.
	VersionAttribute = "version"
	// ResolutionDirective marks whether an import is mandatory or optional.
	ResolutionDirective = "resolution:"
	// ResolutionOptional is the ResolutionDirective value for optional imports.
	ResolutionOptional = "optional"
)

type (
	// Attr is one attribute or directive of a clause. Directive keys keep
	// their trailing colon.
	Attr struct {
		Key   string
		Value string
	}

	// Clause is one comma-separated unit of a header value.
	Clause struct {
		Name  string
		Attrs []Attr
	}

	// Clauses is an ordered header value. Order is preserved through parsing,
	// merging and printing.
	Clauses []Clause
)

// IsDirective reports whether the attribute is a directive.
func (a Attr) IsDirective() bool { return strings.HasSuffix(a.Key, ":") }

// Get returns the value stored under key.
func (c *Clause) Get(key string) (string, bool) {
	for _, a := range c.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Has reports whether the clause carries key.
func (c *Clause) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set stores value under key, replacing an existing value in place.
func (c *Clause) Set(key, value string) {
	for i := range c.Attrs {
		if c.Attrs[i].Key == key {
			c.Attrs[i].Value = value
			return
		}
	}
	c.Attrs = append(c.Attrs, Attr{Key: key, Value: value})
}

// Merge folds other's attributes into c. Conflicting keys take other's value;
// keys only present in other are appended in other's order.
func (c *Clause) Merge(other Clause) {
	for _, a := range other.Attrs {
		c.Set(a.Key, a.Value)
	}
}

// IsOptional reports whether the clause carries resolution:=optional.
func (c *Clause) IsOptional() bool {
	v, _ := c.Get(ResolutionDirective)
	return v == ResolutionOptional
}

// Clone returns a deep copy.
func (c Clause) Clone() Clause {
	out := Clause{Name: c.Name}
	if c.Attrs != nil {
		out.Attrs = make([]Attr, len(c.Attrs))
		copy(out.Attrs, c.Attrs)
	}
	return out
}

// Index returns the position of the first clause named name, or -1.
func (cs Clauses) Index(name string) int {
	for i := range cs {
		if cs[i].Name == name {
			return i
		}
	}
	return -1
}

// Find returns the first clause named name, or nil.
func (cs Clauses) Find(name string) *Clause {
	if i := cs.Index(name); i >= 0 {
		return &cs[i]
	}
	return nil
}

// Names returns the clause names in order.
func (cs Clauses) Names() []string {
	out := make([]string, len(cs))
	for i := range cs {
		out[i] = cs[i].Name
	}
	return out
}

// Clone returns a deep copy.
func (cs Clauses) Clone() Clauses {
	if cs == nil {
		return nil
	}
	out := make(Clauses, len(cs))
	for i := range cs {
		out[i] = cs[i].Clone()
	}
	return out
}

// String prints every attribute.
func (cs Clauses) String() string { return Print(cs, nil) }
