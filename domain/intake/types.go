// Package intake holds the data model of the incident/consequence intake gate: raw rows,
// typed records, the exclusion log, halt causes and the readiness report.
package intake

import (
	"fmt"

	"intakegate/domain/core"
)

// FileRole identifies which of the two inputs a value came from
type FileRole string

const (
	RoleIncident    FileRole = "incident"
	RoleConsequence FileRole = "consequence"
)

// Roles lists both inputs in processing order
func Roles() []FileRole { return []FileRole{RoleIncident, RoleConsequence} }

// Valid reports whether r is one of the two known roles
func (r FileRole) Valid() bool { return r == RoleIncident || r == RoleConsequence }

// HeaderRowIndex is the RowRef index used for header cells
const HeaderRowIndex = -1

// RowRef is a stable reference to a source row, used throughout the audit trail.
// Index counts data rows from zero; Line is the 1-based line or sheet row the row
// started on in the source file, zero when unknown.
type RowRef struct {
	File  FileRole `json:"file"`
	Index int      `json:"index"`
	Line  int      `json:"line,omitempty"`
}

func (r RowRef) String() string {
	if r.Index == HeaderRowIndex {
		return fmt.Sprintf("%s:header", r.File)
	}
	if r.Line > 0 {
		return fmt.Sprintf("%s:row %d (line %d)", r.File, r.Index, r.Line)
	}
	return fmt.Sprintf("%s:row %d", r.File, r.Index)
}

// Less orders refs incident file first, then by row index
func (r RowRef) Less(o RowRef) bool {
	if r.File != o.File {
		return r.File == RoleIncident
	}
	return r.Index < o.Index
}

// FileFormat is the tabular container the loader detected
type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatTSV  FileFormat = "tsv"
	FormatXLSX FileFormat = "xlsx"
)

// FileIdentity describes one input as it was read
type FileIdentity struct {
	Role      FileRole   `json:"role"`
	Name      string     `json:"name"`
	Format    FileFormat `json:"format"`
	Encoding  string     `json:"encoding"`
	Delimiter string     `json:"delimiter,omitempty"`
	SHA256    core.Hash  `json:"sha256"`
	SizeBytes int64      `json:"size_bytes"`
	RowCount  int        `json:"row_count"`
	Headers   []string   `json:"headers"`
}

// HasHeader reports whether the file carries a header with exactly this text
func (f FileIdentity) HasHeader(header string) bool {
	for _, h := range f.Headers {
		if h == header {
			return true
		}
	}
	return false
}

// Transformation records one mechanical normalization of a header or value
type Transformation struct {
	Ref        RowRef   `json:"row_ref"`
	Field      string   `json:"field"`
	Original   string   `json:"original"`
	Normalized string   `json:"normalized"`
	Steps      []string `json:"steps"`
}

// Header is the ordered, unique header row of a file
type Header struct {
	names []string
	index map[string]int
}

// NewHeader builds a header, rejecting blank and duplicate names
func NewHeader(names []string) (*Header, error) {
	h := &Header{names: append([]string(nil), names...), index: make(map[string]int, len(names))}
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("column %d has a blank header", i+1)
		}
		if prev, dup := h.index[name]; dup {
			return nil, fmt.Errorf("header %q appears in columns %d and %d", name, prev+1, i+1)
		}
		h.index[name] = i
	}
	return h, nil
}

// Names returns a copy of the header names in file order
func (h *Header) Names() []string { return append([]string(nil), h.names...) }

// Len returns the number of columns
func (h *Header) Len() int { return len(h.names) }

// RawRow is one data row keyed by original header text. Immutable once built.
type RawRow struct {
	Ref    RowRef
	header *Header
	values []string
}

// NewRawRow binds values to a header; len(values) must equal header.Len()
func NewRawRow(ref RowRef, header *Header, values []string) (RawRow, error) {
	if len(values) != header.Len() {
		return RawRow{}, fmt.Errorf("%s has %d fields, header has %d", ref, len(values), header.Len())
	}
	return RawRow{Ref: ref, header: header, values: append([]string(nil), values...)}, nil
}

// Value returns the value under header, and whether that header exists
func (r RawRow) Value(header string) (string, bool) {
	if r.header == nil {
		return "", false
	}
	i, ok := r.header.index[header]
	if !ok {
		return "", false
	}
	return r.values[i], true
}

// Values returns a copy of the values in header order
func (r RawRow) Values() []string { return append([]string(nil), r.values...) }

// LoadedFile is the loader's output for one input
type LoadedFile struct {
	Identity        FileIdentity
	Header          *Header
	Rows            []RawRow
	Transformations []Transformation
}
