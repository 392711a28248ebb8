// Package model defines events, their editable attribute tables and the
// validation rules applied before any write.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Attributes maps attribute names to prompt text.
type Attributes map[string]string

// Event is the record managed by the panel: an operator-chosen id plus its
// attribute mapping.
type Event struct {
	ID         string     `json:"id"`
	Attributes Attributes `json:"attributes"`
}

// Names returns the attribute names in ascending order.
func (a Attributes) Names() []string {
	names := make([]string, 0, len(a))
	for k := range a {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a shallow copy of the mapping. A nil mapping clones to an
// empty one.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Equal reports whether both mappings hold the same entries.
func (a Attributes) Equal(b Attributes) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// Sanitize drops every entry whose name or prompt is empty. Only the
// remaining entries are ever persisted.
func Sanitize(a Attributes) Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// EncodeAttributes sanitizes a and returns the JSON text stored in the
// backend's data column.
func EncodeAttributes(a Attributes) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Sanitize(a)); err != nil {
		return "", fmt.Errorf("encode attributes: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// DecodeAttributes parses a data column value. The value may be the JSON
// object itself (jsonb columns, SQL drivers reading the raw text) or a JSON
// string literal wrapping that object (text columns served over REST).
// Null and empty values decode to an empty mapping. Non-string attribute
// values written by other tools are kept as their JSON text.
func DecodeAttributes(raw []byte) (Attributes, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Attributes{}, nil
	}

	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("decode attributes text: %w", err)
		}
		return DecodeAttributes([]byte(text))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	attrs := make(Attributes, len(fields))
	for name, v := range fields {
		attrs[name] = promptText(v)
	}
	return attrs, nil
}

// promptText renders one attribute value as prompt text. Strings are
// unquoted (null reads as empty); other values keep their compact JSON form.
func promptText(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return string(v)
	}
	return buf.String()
}
