package testkit

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// WriteFile writes raw bytes into a fresh temp dir and returns the path
func WriteFile(t testing.TB, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("testkit: write %s: %v", name, err)
	}
	return path
}

// CSVBytes renders a header and rows as comma-separated text
func CSVBytes(t testing.TB, header []string, rows ...[]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		t.Fatalf("testkit: %v", err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("testkit: %v", err)
	}
	return buf.Bytes()
}

// WriteCSV writes a CSV file and returns its path
func WriteCSV(t testing.TB, name string, header []string, rows ...[]string) string {
	t.Helper()
	return WriteFile(t, name, CSVBytes(t, header, rows...))
}

// WriteXLSX writes a single-sheet workbook and returns its path
func WriteXLSX(t testing.TB, name string, header []string, rows ...[]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	all := append([][]string{header}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("testkit: %v", err)
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("testkit: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("testkit: save %s: %v", name, err)
	}
	return path
}

// IncidentValues is the value grid behind Incidents, for file fixtures
func IncidentValues(keys ...string) [][]string {
	values := make([][]string, len(keys))
	for i, k := range keys {
		values[i] = []string{k, "1/8/2024 9:15 AM", "North High"}
	}
	return values
}

// ConsequenceValues is the value grid behind Consequences, for file fixtures
func ConsequenceValues(cs ...Consequence) [][]string {
	values := make([][]string, len(cs))
	for i, c := range cs {
		values[i] = []string{c.Key, c.Type, c.Start, c.End, c.Minutes}
	}
	return values
}

// SISIncidentHeader and SISConsequenceHeader mimic a Skyward export
var (
	SISIncidentHeader    = []string{"Incident Number", "Incident Date & Time", "Entity Code"}
	SISConsequenceHeader = []string{"Incident_Number", "Consequence Type", "Start Date", "End Date", "Instructional Minutes Lost"}
)

// WriteSISPair writes a Skyward-style incident and consequence CSV pair
func WriteSISPair(t testing.TB, incidents []string, cs ...Consequence) (string, string) {
	t.Helper()
	inc := WriteCSV(t, "incidents.csv", SISIncidentHeader, IncidentValues(incidents...)...)
	con := WriteCSV(t, "consequences.csv", SISConsequenceHeader, ConsequenceValues(cs...)...)
	return inc, con
}
