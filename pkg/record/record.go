// Package record parses the comma-delimited reference tables published in the
// diribon2gg database into ordered sequences of field maps.
//
// The format is deliberately naive: the first line lists field names, every
// following non-blank line lists values in the same order, and values are
// split on every comma. There is no quoting or escaping. Rows shorter than the
// header are padded with empty strings; values beyond the header are ignored.
//
// Every parsed record carries a derived [IDField] populated from [KeyField],
// so the English name doubles as the primary identifier.
package record

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

const (
	// KeyField is the column that uniquely identifies a row within its table.
	KeyField = "name_en"

	// IDField is the derived identifier copied from KeyField on every record.
	IDField = "id"

	// Delimiter separates field names and values on a line.
	Delimiter = ","
)

// Record is one parsed row. Records are immutable once parsed; reading a field
// that the row did not provide yields the empty string.
type Record struct {
	fields map[string]string
	header []string
}

// New builds a Record from a field map. It is mainly useful in tests and for
// callers that assemble records by hand. The derived id is set from
// [KeyField] the same way [Parse] does.
func New(fields map[string]string) Record {
	f := make(map[string]string, len(fields)+1)
	header := make([]string, 0, len(fields)+1)
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		f[k] = fields[k]
		header = append(header, k)
	}
	if _, ok := f[IDField]; !ok {
		header = append(header, IDField)
	}
	f[IDField] = f[KeyField]
	return Record{fields: f, header: header}
}

// Get returns the value of field, or "" when the record has no such field.
func (r Record) Get(field string) string {
	return r.fields[field]
}

// ID returns the derived identifier.
func (r Record) ID() string {
	return r.fields[IDField]
}

// Fields returns the field names in header order, with [IDField] last unless
// the header already declared it.
func (r Record) Fields() []string {
	return slices.Clone(r.header)
}

// Map returns a copy of the record's field values.
func (r Record) Map() map[string]string {
	return maps.Clone(r.fields)
}

// IsZero reports whether r is the zero Record (no fields at all).
func (r Record) IsZero() bool {
	return r.fields == nil
}

// MarshalJSON encodes the record as a flat JSON object whose keys follow
// header order. A repeated header name is written once.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	seen := make(map[string]struct{}, len(r.header))
	for _, name := range r.header {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if len(seen) > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.fields[name])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Parse splits text into records. Empty input and header-only input both yield
// an empty, non-nil slice. Line endings may be "\n" or "\r\n".
func Parse(text string) []Record {
	lines := strings.Split(text, "\n")
	result := []Record{}

	header := splitTrim(lines[0])
	if len(lines) < 2 {
		return result
	}

	// The id column is appended once so every record shares the same slice.
	fields := header
	if !slices.Contains(header, IDField) {
		fields = append(slices.Clip(header), IDField)
	}

	for _, raw := range lines[1:] {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		values := strings.Split(line, Delimiter)

		rec := make(map[string]string, len(fields))
		for i, name := range header {
			var v string
			if i < len(values) {
				v = strings.TrimSpace(values[i])
			}
			rec[name] = v
		}
		rec[IDField] = rec[KeyField]

		result = append(result, Record{fields: rec, header: fields})
	}
	return result
}

// ParseBytes is [Parse] for raw response bodies.
func ParseBytes(data []byte) []Record {
	return Parse(string(data))
}

func splitTrim(line string) []string {
	parts := strings.Split(line, Delimiter)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
