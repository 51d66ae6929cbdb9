package intake

// AliasMethod records how a header became a candidate for a field
type AliasMethod string

const (
	MethodVariant    AliasMethod = "variant"
	MethodConfigured AliasMethod = "configured"
	MethodSimilarity AliasMethod = "similarity"
	MethodManual     AliasMethod = "manual"
)

// AliasEntry is one confirmed field to header mapping
type AliasEntry struct {
	Field       Field       `json:"field"`
	Header      string      `json:"header"`
	Token       string      `json:"token"`
	Method      AliasMethod `json:"method"`
	Score       float64     `json:"score"`
	ConfirmedBy string      `json:"confirmed_by"`
}

// AliasMap holds the confirmed mappings of one file, in schema order
type AliasMap struct {
	Role    FileRole     `json:"role"`
	Entries []AliasEntry `json:"entries"`
}

// Header returns the raw header confirmed for f
func (m AliasMap) Header(f Field) (string, bool) {
	for _, e := range m.Entries {
		if e.Field == f {
			return e.Header, true
		}
	}
	return "", false
}

// FieldFor returns the field a raw header was confirmed for
func (m AliasMap) FieldFor(header string) (Field, bool) {
	for _, e := range m.Entries {
		if e.Header == header {
			return e.Field, true
		}
	}
	return "", false
}

// Has reports whether f resolved
func (m AliasMap) Has(f Field) bool {
	_, ok := m.Header(f)
	return ok
}

// Value reads the canonical field f from a raw row. A field with no confirmed column reads
// as ("", false).
func (m AliasMap) Value(row RawRow, f Field) (string, bool) {
	header, ok := m.Header(f)
	if !ok {
		return "", false
	}
	return row.Value(header)
}

// Attributes collects the passthrough attribute values of row, keyed by field name. Empty
// values are omitted.
func (m AliasMap) Attributes(row RawRow) map[string]string {
	var attrs map[string]string
	for _, f := range SchemaFor(m.Role).Attributes() {
		v, ok := m.Value(row, f)
		if !ok || v == "" {
			continue
		}
		if attrs == nil {
			attrs = map[string]string{}
		}
		attrs[string(f)] = v
	}
	return attrs
}

// Confirmation is the operator's approval of one proposed mapping
type Confirmation struct {
	File        FileRole `json:"file" yaml:"file"`
	Field       Field    `json:"field" yaml:"field"`
	Header      string   `json:"header" yaml:"header"`
	Token       string   `json:"token" yaml:"token"`
	ConfirmedBy string   `json:"confirmed_by" yaml:"confirmed_by"`
}

// Rejection is a confirmation that was refused, with why
type Rejection struct {
	Confirmation Confirmation `json:"confirmation"`
	Reason       string       `json:"reason"`
}
