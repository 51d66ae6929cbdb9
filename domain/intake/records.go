package intake

import (
	"strings"
	"time"
)

// ConsequenceType is the approved set of disciplinary consequences
type ConsequenceType string

const (
	ConsequenceISS       ConsequenceType = "ISS"
	ConsequenceOSS       ConsequenceType = "OSS"
	ConsequenceDAEP      ConsequenceType = "DAEP"
	ConsequenceJJAEP     ConsequenceType = "JJAEP"
	ConsequenceExpulsion ConsequenceType = "EXPULSION"
	ConsequenceLocalOnly ConsequenceType = "LOCAL_ONLY"
)

// ConsequenceTypes lists the enum in its canonical order
func ConsequenceTypes() []ConsequenceType {
	return []ConsequenceType{
		ConsequenceISS, ConsequenceOSS, ConsequenceDAEP,
		ConsequenceJJAEP, ConsequenceExpulsion, ConsequenceLocalOnly,
	}
}

// ParseConsequenceType matches s case-insensitively against the enum. No other spelling
// is accepted.
func ParseConsequenceType(s string) (ConsequenceType, bool) {
	candidate := ConsequenceType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range ConsequenceTypes() {
		if t == candidate {
			return t, true
		}
	}
	return "", false
}

// IncidentRecord is a validated incident row
type IncidentRecord struct {
	IncidentNumber string            `json:"incident_number"`
	DateTime       *time.Time        `json:"date_time"`
	DateTimeRaw    string            `json:"date_time_raw,omitempty"`
	Building       string            `json:"building,omitempty"`
	EntityCode     string            `json:"entity_code,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	SourceRow      RowRef            `json:"source_row_ref"`
}

// ConsequenceRecord is a consequence row that passed integrity validation
type ConsequenceRecord struct {
	IncidentNumber  string            `json:"incident_number"`
	Type            ConsequenceType   `json:"consequence_type"`
	StartDate       *Date             `json:"start_date"`
	EndDate         *Date             `json:"end_date"`
	ExplicitMinutes *int              `json:"explicit_minutes"`
	Attributes      map[string]string `json:"attributes,omitempty"`
	SourceRow       RowRef            `json:"source_row_ref"`
}

// MinutesMethod records how a JoinedRecord's minutes were obtained
type MinutesMethod string

const (
	MinutesExplicit    MinutesMethod = "explicit"
	MinutesDateDerived MinutesMethod = "date_derived"
)

// JoinedRecord is one certified incident/consequence pair
type JoinedRecord struct {
	Incident      IncidentRecord    `json:"incident"`
	Consequence   ConsequenceRecord `json:"consequence"`
	Minutes       int               `json:"minutes"`
	MinutesMethod MinutesMethod     `json:"minutes_method"`
}

// MatchedPair is a join result awaiting integrity validation. Consequence values are still
// raw at this point.
type MatchedPair struct {
	Incident    IncidentRecord
	Consequence RawRow
}

// ValidatedPair is a matched pair whose consequence passed integrity validation
type ValidatedPair struct {
	Incident    IncidentRecord
	Consequence ConsequenceRecord
}

// NewIncidentRecord reads an incident row through its alias map. An unparseable date_time
// is kept raw with a nil timestamp; nothing is inferred.
func NewIncidentRecord(row RawRow, m AliasMap) IncidentRecord {
	rec := IncidentRecord{SourceRow: row.Ref, Attributes: m.Attributes(row)}
	rec.IncidentNumber, _ = m.Value(row, FieldIncidentNumber)
	rec.Building, _ = m.Value(row, FieldBuilding)
	rec.EntityCode, _ = m.Value(row, FieldEntityCode)
	if raw, ok := m.Value(row, FieldDateTime); ok && raw != "" {
		rec.DateTimeRaw = raw
		if t, err := ParseDateTime(raw); err == nil {
			rec.DateTime = &t
		}
	}
	return rec
}
