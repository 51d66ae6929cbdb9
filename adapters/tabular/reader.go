// Package tabular reads incident and consequence files (CSV, TSV, delimited text and XLSX)
// into raw rows, logging every mechanical normalization.
package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"intakegate/domain/core"
	"intakegate/domain/intake"
	"intakegate/internal"
	"intakegate/ports"
)

// DataReader reads delimited text and Excel files
type DataReader struct {
	cfg    ReaderConfig
	logger *internal.Logger
}

var _ ports.TabularReader = (*DataReader)(nil)

// NewDataReader creates a reader. A nil logger discards output.
func NewDataReader(cfg ReaderConfig, logger *internal.Logger) *DataReader {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &DataReader{cfg: cfg, logger: logger}
}

var sniffCandidates = []rune{',', '\t', ';', '|'}

// FormatOf maps a file extension to its container format
func FormatOf(path string) (intake.FileFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return intake.FormatCSV, nil
	case ".tsv", ".tab":
		return intake.FormatTSV, nil
	case ".txt":
		return intake.FormatCSV, nil
	case ".xlsx":
		return intake.FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported file extension %q; use .csv, .tsv, .txt or .xlsx", filepath.Ext(path))
	}
}

// Read loads one file. Any failure to read or parse is an UnparseableFile halt; only
// context cancellation is returned as a plain error.
func (r *DataReader) Read(ctx context.Context, src ports.FileSource) (*intake.LoadedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := src.Name
	if name == "" {
		name = filepath.Base(src.Path)
	}
	fail := func(err error) (*intake.LoadedFile, error) {
		r.logger.Warn("input file unparseable", "file", src.Role, "name", name, "error", err)
		return nil, intake.UnparseableFile(src.Role, name, err)
	}

	start := time.Now()
	format, err := FormatOf(src.Path)
	if err != nil {
		return fail(err)
	}
	data, err := os.ReadFile(src.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fail(fmt.Errorf("file not found: %s", src.Path))
		}
		return fail(err)
	}

	identity := intake.FileIdentity{
		Role:      src.Role,
		Name:      name,
		Format:    format,
		SHA256:    core.NewHash(data),
		SizeBytes: int64(len(data)),
	}

	var records *sheetRows
	switch format {
	case intake.FormatXLSX:
		identity.Encoding = EncodingUTF8
		records, err = readExcel(data)
	default:
		var text string
		text, identity.Encoding, err = decode(data, r.cfg.Encoding)
		if err != nil {
			return fail(err)
		}
		// The parser would reject a quoted first header behind a BOM, so the mark is
		// lifted here and handed back to normalization, which logs it.
		bom := strings.HasPrefix(text, "\ufeff")
		text = strings.TrimPrefix(text, "\ufeff")
		delim := r.delimiter(format, strings.ToLower(filepath.Ext(src.Path)), text)
		identity.Delimiter = string(delim)
		records, err = readDelimited(text, delim)
		if err == nil && bom && len(records.records) > 0 && len(records.records[0]) > 0 {
			records.records[0][0] = "\ufeff" + records.records[0][0]
		}
	}
	if err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loaded, err := processRows(src.Role, identity, records)
	if err != nil {
		return fail(err)
	}

	r.logger.Info("input file loaded",
		"file", src.Role,
		"name", name,
		"format", format,
		"encoding", identity.Encoding,
		"columns", loaded.Header.Len(),
		"rows", len(loaded.Rows),
		"transformations", len(loaded.Transformations),
		"sha256", identity.SHA256.Short(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return loaded, nil
}

func (r *DataReader) delimiter(format intake.FileFormat, ext, text string) rune {
	if d := []rune(r.cfg.Delimiter); len(d) == 1 {
		return d[0]
	}
	switch {
	case format == intake.FormatTSV:
		return '\t'
	case ext == ".txt":
		return sniff(text)
	default:
		return ','
	}
}

// sniff picks the candidate delimiter that occurs most often in the header line
func sniff(text string) rune {
	line, _, _ := strings.Cut(text, "\n")
	best, bestCount := ',', 0
	for _, c := range sniffCandidates {
		if n := strings.Count(line, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

// sheetRows holds the parsed records and, for each, the 1-based line or sheet row it
// started on in the source file
type sheetRows struct {
	records [][]string
	lines   []int
}

func (s *sheetRows) add(record []string, line int) {
	s.records = append(s.records, record)
	s.lines = append(s.lines, line)
}

// readDelimited parses text, rejecting rows whose field count differs from the header.
// Blank lines are skipped by the parser; line numbers still refer to the source text.
func readDelimited(text string, delim rune) (*sheetRows, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.FieldsPerRecord = 0

	out := &sheetRows{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) && errors.Is(parseErr.Err, csv.ErrFieldCount) {
				return nil, fmt.Errorf("ragged row at line %d: field count differs from the header", parseErr.Line)
			}
			return nil, fmt.Errorf("malformed delimited text: %w", err)
		}
		line, _ := reader.FieldPos(0)
		out.add(record, line)
	}
}

// readExcel reads the first sheet. Excel omits trailing empty cells, so short rows are
// padded; cells beyond the header are an error. Blank rows are skipped but every kept
// row remembers its sheet row number.
func readExcel(data []byte) (*sheetRows, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	out := &sheetRows{}
	width := 0
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		if len(out.records) == 0 {
			width = len(row)
			out.add(row, i+1)
			continue
		}
		if len(row) > width {
			return nil, fmt.Errorf("ragged row at sheet row %d: %d cells, header has %d", i+1, len(row), width)
		}
		padded := make([]string, width)
		copy(padded, row)
		out.add(padded, i+1)
	}
	return out, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// processRows normalizes the header and every value and binds them into RawRows
func processRows(role intake.FileRole, identity intake.FileIdentity, sheet *sheetRows) (*intake.LoadedFile, error) {
	records := sheet.records
	if len(records) == 0 {
		return nil, fmt.Errorf("file is empty; a header row is required")
	}

	n := &normalizer{role: role}
	names := make([]string, len(records[0]))
	for i, h := range records[0] {
		names[i] = n.apply(intake.HeaderRowIndex, fmt.Sprintf("column %d", i+1), h)
	}
	header, err := intake.NewHeader(names)
	if err != nil {
		return nil, err
	}

	rows := make([]intake.RawRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		values := make([]string, len(rec))
		for j, v := range rec {
			values[j] = n.apply(i, names[j], v)
		}
		row, err := intake.NewRawRow(intake.RowRef{File: role, Index: i, Line: sheet.lines[i+1]}, header, values)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	identity.Headers = header.Names()
	identity.RowCount = len(rows)
	return &intake.LoadedFile{
		Identity:        identity,
		Header:          header,
		Rows:            rows,
		Transformations: n.log,
	}, nil
}
