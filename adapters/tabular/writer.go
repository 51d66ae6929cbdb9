package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"intakegate/domain/intake"
)

// RecordsHeader is the fixed leading column set of an exported joined dataset. Passthrough
// attributes follow, prefixed with their source role.
var RecordsHeader = []string{
	"incident_number", "date_time", "building", "entity_code",
	"consequence_type", "start_date", "end_date", "explicit_minutes",
	"minutes", "minutes_method", "incident_row", "consequence_row",
}

// RecordsTable flattens joined records into a header and string rows in record order
func RecordsTable(records []intake.JoinedRecord) ([]string, [][]string) {
	incAttrs, conAttrs := attributeKeys(records)
	header := append([]string{}, RecordsHeader...)
	for _, k := range incAttrs {
		header = append(header, "incident."+k)
	}
	for _, k := range conAttrs {
		header = append(header, "consequence."+k)
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, 0, len(header))
		dt := ""
		if r.Incident.DateTime != nil {
			dt = r.Incident.DateTime.Format(time.RFC3339)
		}
		row = append(row,
			r.Incident.IncidentNumber, dt, r.Incident.Building, r.Incident.EntityCode,
			string(r.Consequence.Type), dateCell(r.Consequence.StartDate), dateCell(r.Consequence.EndDate),
			intCell(r.Consequence.ExplicitMinutes),
			strconv.Itoa(r.Minutes), string(r.MinutesMethod),
			strconv.Itoa(r.Incident.SourceRow.Index), strconv.Itoa(r.Consequence.SourceRow.Index),
		)
		for _, k := range incAttrs {
			row = append(row, r.Incident.Attributes[k])
		}
		for _, k := range conAttrs {
			row = append(row, r.Consequence.Attributes[k])
		}
		rows[i] = row
	}
	return header, rows
}

// WriteRecords exports joined records as CSV, TSV or XLSX chosen by the path extension
func WriteRecords(path string, records []intake.JoinedRecord) error {
	header, rows := RecordsTable(records)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return writeDelimited(path, ',', header, rows)
	case ".tsv", ".tab":
		return writeDelimited(path, '\t', header, rows)
	case ".xlsx":
		return writeXLSX(path, header, rows)
	default:
		return fmt.Errorf("unsupported export format %q (use .csv, .tsv or .xlsx)", ext)
	}
}

func writeDelimited(path string, comma rune, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = comma
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func writeXLSX(path string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}
	for i, row := range append([][]string{header}, rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := sw.SetRow(cell, values); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func attributeKeys(records []intake.JoinedRecord) (incident, consequence []string) {
	inc, con := map[string]bool{}, map[string]bool{}
	for _, r := range records {
		for k := range r.Incident.Attributes {
			inc[k] = true
		}
		for k := range r.Consequence.Attributes {
			con[k] = true
		}
	}
	return sortedKeys(inc), sortedKeys(con)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dateCell(d *intake.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func intCell(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
