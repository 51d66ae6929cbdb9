// Package testkit builds intake fixtures for tests: in-memory row sets keyed by canonical
// field names, and CSV/XLSX files written into a test's temp dir.
package testkit

import (
	"fmt"
	"testing"

	"intakegate/domain/core"
	"intakegate/domain/intake"
)

// IncidentHeader is the header used by Incidents
var IncidentHeader = []string{"incident_number", "date_time", "building"}

// ConsequenceHeader is the header used by Consequences
var ConsequenceHeader = []string{"incident_number", "consequence_type", "start_date", "end_date", "explicit_minutes"}

// Consequence is one consequence fixture row
type Consequence struct {
	Key     string
	Type    string
	Start   string
	End     string
	Minutes string
}

// Week is a Monday to Friday ISS consequence for key
func Week(key string) Consequence {
	return Consequence{Key: key, Type: "ISS", Start: "2024-01-08", End: "2024-01-12"}
}

// Keys returns n keys "prefix-001" ... in order
func Keys(prefix string, n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%03d", prefix, i+1)
	}
	return keys
}

// Rows binds value rows to header for the given file
func Rows(t testing.TB, role intake.FileRole, header []string, values ...[]string) []intake.RawRow {
	t.Helper()
	h, err := intake.NewHeader(header)
	if err != nil {
		t.Fatalf("testkit: %v", err)
	}
	rows := make([]intake.RawRow, 0, len(values))
	for i, v := range values {
		row, err := intake.NewRawRow(intake.RowRef{File: role, Index: i}, h, v)
		if err != nil {
			t.Fatalf("testkit: %v", err)
		}
		rows = append(rows, row)
	}
	return rows
}

// Incidents builds one incident row per key
func Incidents(t testing.TB, keys ...string) []intake.RawRow {
	t.Helper()
	return Rows(t, intake.RoleIncident, IncidentHeader, IncidentValues(keys...)...)
}

// Consequences builds one consequence row per fixture
func Consequences(t testing.TB, cs ...Consequence) []intake.RawRow {
	t.Helper()
	return Rows(t, intake.RoleConsequence, ConsequenceHeader, ConsequenceValues(cs...)...)
}

// Weeks builds a Week consequence per key
func Weeks(t testing.TB, keys ...string) []intake.RawRow {
	t.Helper()
	cs := make([]Consequence, len(keys))
	for i, k := range keys {
		cs[i] = Week(k)
	}
	return Consequences(t, cs...)
}

// AliasMap confirms every listed header as the canonical field of the same name
func AliasMap(role intake.FileRole, headers []string) intake.AliasMap {
	m := intake.AliasMap{Role: role}
	for _, h := range headers {
		m.Entries = append(m.Entries, intake.AliasEntry{
			Field:       intake.Field(h),
			Header:      h,
			Token:       "test",
			Method:      intake.MethodVariant,
			Score:       1,
			ConfirmedBy: "testkit",
		})
	}
	return m
}

// IncidentMap is the alias map matching Incidents
func IncidentMap() intake.AliasMap { return AliasMap(intake.RoleIncident, IncidentHeader) }

// ConsequenceMap is the alias map matching Consequences
func ConsequenceMap() intake.AliasMap { return AliasMap(intake.RoleConsequence, ConsequenceHeader) }

// Identity describes an in-memory file for resolver tests
func Identity(role intake.FileRole, headers ...string) intake.FileIdentity {
	return intake.FileIdentity{
		Role:    role,
		Name:    string(role) + ".csv",
		Format:  intake.FormatCSV,
		SHA256:  core.NewHash([]byte(fmt.Sprint(role, headers))),
		Headers: headers,
	}
}
