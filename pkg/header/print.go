// SPDX-License-Identifier: MPL-2.0

package header

import "strings"

// Directives lists the OSGi directive keys kept by DefaultAllowList.
var Directives = []string{
	"resolution:",
	"uses:",
	"include:",
	"exclude:",
	"mandatory:",
	"visibility:",
	"singleton:",
	"fragment-attachment:",
	"extension:",
	"effective:",
	"-split-package:",
	"-noimport:",
	"-import:",
}

// DefaultAllowList keeps the OSGi directives and the version attribute.
var DefaultAllowList = NewAllowList(append([]string{VersionAttribute}, Directives...)...)

// AllowList is the set of attribute keys emitted by Print. A nil AllowList
// emits every attribute.
type AllowList map[string]struct{}

// NewAllowList builds an allow-list from keys.
func NewAllowList(keys ...string) AllowList {
	al := make(AllowList, len(keys))
	for _, k := range keys {
		al[k] = struct{}{}
	}
	return al
}

// Allows reports whether key passes the list.
func (al AllowList) Allows(key string) bool {
	if al == nil {
		return true
	}
	_, ok := al[key]
	return ok
}

// Print serializes clauses to header text, emitting only attributes allowed
// by al. Values are quoted only when they contain reserved characters.
func Print(cs Clauses, al AllowList) string {
	var sb strings.Builder
	for i := range cs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(cs[i].Name)
		for _, a := range cs[i].Attrs {
			if !al.Allows(a.Key) {
				continue
			}
			sb.WriteByte(';')
			sb.WriteString(a.Key)
			sb.WriteByte('=')
			writeValue(&sb, a.Value)
		}
	}
	return sb.String()
}

func writeValue(sb *strings.Builder, v string) {
	if !needsQuote(v) {
		sb.WriteString(v)
		return
	}
	sb.WriteByte('"')
	for i := 0; i < len(v); i++ {
		if v[i] == '"' || v[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(v[i])
	}
	sb.WriteByte('"')
}

func needsQuote(v string) bool {
	return v == "" || strings.ContainsAny(v, ",;=\"\\ \t\r\n")
}
