// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"
)

const testSchema = `
#Table: {
	name:  string
	size?: int & >=0
	items: [...string]
}
`

type table struct {
	Name  string   `json:"name"`
	Size  int      `json:"size"`
	Items []string `json:"items"`
}

func TestDecode(t *testing.T) {
	t.Parallel()

	got, err := Decode[table]([]byte(testSchema), []byte(`name: "t", size: 3, items: ["a", "b"]`), "#Table")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Name != "t" || got.Size != 3 || len(got.Items) != 2 {
		t.Errorf("Decode() = %+v", got)
	}
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		opts    []Option
		wantErr string
	}{
		{name: "wrong type", data: `name: 1, items: []`, wantErr: "table.cue: name"},
		{name: "constraint", data: `name: "x", size: -1, items: []`, wantErr: "table.cue: size"},
		{name: "closed definition", data: `name: "x", items: [], extra: true`, wantErr: "table.cue"},
		{name: "syntax", data: `name: `, wantErr: "table.cue"},
		{name: "too large", data: `name: "xxxxxxxx", items: []`, opts: []Option{WithMaxFileSize(4)}, wantErr: "exceeds maximum 4 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := append([]Option{WithFilename("table.cue")}, tt.opts...)
			_, err := Decode[table]([]byte(testSchema), []byte(tt.data), "#Table", opts...)
			if err == nil {
				t.Fatal("Decode() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Decode() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestDecode_MissingDefinition(t *testing.T) {
	t.Parallel()

	_, err := Decode[table]([]byte(testSchema), []byte(`name: "x"`), "#Nope")
	if err == nil || !strings.Contains(err.Error(), "#Nope") {
		t.Errorf("Decode() error = %v, want missing definition", err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := map[string][]string{
		"":                   nil,
		"packages":           {"packages"},
		"items[0].name":      {"items", "0", "name"},
		"0.items":            {"0", "items"},
		"stream.buffer_size": {"stream", "buffer_size"},
	}
	for want, in := range tests {
		if got := formatPath(in); got != want {
			t.Errorf("formatPath(%v) = %q, want %q", in, got, want)
		}
	}
}
