// SPDX-License-Identifier: MPL-2.0

package instructions

import (
	"iter"
	"strings"
)

// Instructions is an ordered set of instruction key/value pairs.
// Keys keep the position of their first insertion; setting an existing key
// replaces its value in place. The zero value is not usable; use New or Parse.
type Instructions struct {
	keys   []string
	values map[string]string
}

// New returns an empty instruction set.
func New() *Instructions {
	return &Instructions{values: make(map[string]string)}
}

// FromPairs builds an instruction set from alternating key/value arguments.
// A trailing key without a value is ignored.
func FromPairs(kv ...string) *Instructions {
	in := New()
	for i := 0; i+1 < len(kv); i += 2 {
		in.Set(kv[i], kv[i+1])
	}
	return in
}

// Len returns the number of instructions.
func (in *Instructions) Len() int { return len(in.keys) }

// Get returns the value for key, or "" when the key is absent.
func (in *Instructions) Get(key string) string {
	return in.values[key]
}

// Lookup returns the value for key and whether it is present.
func (in *Instructions) Lookup(key string) (string, bool) {
	v, ok := in.values[key]
	return v, ok
}

// Has reports whether key is present.
func (in *Instructions) Has(key string) bool {
	_, ok := in.values[key]
	return ok
}

// Set stores value under key.
func (in *Instructions) Set(key, value string) {
	if _, ok := in.values[key]; !ok {
		in.keys = append(in.keys, key)
	}
	in.values[key] = value
}

// SetDefault stores value under key only when the key is absent or blank.
// It reports whether the value was stored.
func (in *Instructions) SetDefault(key, value string) bool {
	if strings.TrimSpace(in.values[key]) != "" {
		return false
	}
	in.Set(key, value)
	return true
}

// Delete removes key.
func (in *Instructions) Delete(key string) {
	if _, ok := in.values[key]; !ok {
		return
	}
	delete(in.values, key)
	for i, k := range in.keys {
		if k == key {
			in.keys = append(in.keys[:i], in.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (in *Instructions) Keys() []string {
	out := make([]string, len(in.keys))
	copy(out, in.keys)
	return out
}

// All iterates over the instructions in insertion order.
func (in *Instructions) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, k := range in.keys {
			if !yield(k, in.values[k]) {
				return
			}
		}
	}
}

// Clone returns an independent copy.
func (in *Instructions) Clone() *Instructions {
	out := &Instructions{
		keys:   in.Keys(),
		values: make(map[string]string, len(in.values)),
	}
	for k, v := range in.values {
		out.values[k] = v
	}
	return out
}

// Encode serializes the instructions back to query form, keys in insertion
// order and values percent-encoded so that Parse(in.Encode()) yields the same pairs.
func (in *Instructions) Encode() string {
	var sb strings.Builder
	for i, k := range in.keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(escapeValue(in.values[k]))
	}
	return sb.String()
}

// String returns the encoded query form.
func (in *Instructions) String() string { return in.Encode() }
