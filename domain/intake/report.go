package intake

import (
	"time"

	"intakegate/domain/core"
)

// ReportSchemaVersion changes whenever the report layout changes
const ReportSchemaVersion = "1"

// MinutesPerDay is the fixed value of one instructional day
const MinutesPerDay = 480

// Verdict is the terminal decision of a run
type Verdict string

const (
	VerdictProceed Verdict = "proceed"
	VerdictHalt    Verdict = "halt"
)

// ReportFiles carries the identity of each input that was read
type ReportFiles struct {
	Incident    *FileIdentity `json:"incident"`
	Consequence *FileIdentity `json:"consequence"`
}

// ReportAliases carries the confirmed alias map of each input
type ReportAliases struct {
	Incident    *AliasMap `json:"incident"`
	Consequence *AliasMap `json:"consequence"`
}

// UnmatchedHeaders lists raw headers that no field claimed
type UnmatchedHeaders struct {
	Incident    []string `json:"incident"`
	Consequence []string `json:"consequence"`
}

// ReportOptions records the engine settings that shaped the run
type ReportOptions struct {
	CaseInsensitiveKeys   bool    `json:"case_insensitive_keys"`
	IncidentDuplicates    string  `json:"incident_duplicates"`
	ConsequenceDuplicates string  `json:"consequence_duplicates"`
	SimilarityFloor       float64 `json:"similarity_floor"`
}

// ReportCounts are the aggregate row counts
type ReportCounts struct {
	TotalIncidents             int `json:"total_incidents"`
	TotalConsequences          int `json:"total_consequences"`
	MatchedIncidents           int `json:"matched_incidents"`
	UnmatchedIncidents         int `json:"unmatched_incidents"`
	DuplicateExcludedIncidents int `json:"duplicate_excluded_incidents"`
	JoinedRecords              int `json:"joined_records"`
}

// IgnoredValue is an explicit-minutes cell that was not a valid non-negative integer
type IgnoredValue struct {
	Ref   RowRef `json:"row_ref"`
	Value string `json:"value"`
}

// TypeMinutes totals minutes for one consequence type
type TypeMinutes struct {
	Type    ConsequenceType `json:"consequence_type"`
	Records int             `json:"records"`
	Minutes int             `json:"minutes"`
}

// MinutesSummary describes the distribution of per-record minutes
type MinutesSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	Max    float64 `json:"max"`
}

// MinutesBreakdown tallies how minutes were obtained
type MinutesBreakdown struct {
	Explicit               int             `json:"explicit"`
	DateDerived            int             `json:"date_derived"`
	TotalMinutes           int             `json:"total_minutes"`
	Summary                *MinutesSummary `json:"summary"`
	ByConsequenceType      []TypeMinutes   `json:"by_consequence_type"`
	IgnoredExplicitMinutes []IgnoredValue  `json:"ignored_explicit_minutes"`
}

// ReadinessReport is the audit and gate artifact of one run
type ReadinessReport struct {
	SchemaVersion    string           `json:"schema_version"`
	EngineVersion    string           `json:"engine_version"`
	GeneratedAt      time.Time        `json:"generated_at"`
	Fingerprint      core.Hash        `json:"fingerprint"`
	Options          ReportOptions    `json:"options"`
	Files            ReportFiles      `json:"files"`
	AliasMaps        ReportAliases    `json:"alias_maps"`
	AliasRejections  []Rejection      `json:"alias_rejections"`
	UnmatchedHeaders UnmatchedHeaders `json:"unmatched_headers"`
	Transformations  []Transformation `json:"transformations"`
	Counts           ReportCounts     `json:"counts"`
	JoinSuccessRate  *float64         `json:"join_success_rate"`
	JoinThreshold    float64          `json:"join_threshold"`
	Exclusions       []ExclusionEntry `json:"exclusions"`
	ExclusionCounts  ExclusionCounts  `json:"exclusion_counts"`
	Minutes          MinutesBreakdown `json:"minutes"`
	Assumptions      []string         `json:"assumptions"`
	StagesCompleted  []Stage          `json:"stages_completed"`
	Verdict          Verdict          `json:"verdict"`
	Failure          *FailureRecord   `json:"failure"`
}

// Halted reports whether the run stopped
func (r *ReadinessReport) Halted() bool { return r.Verdict == VerdictHalt }

// Assumptions are the fixed rules behind every minutes figure
func Assumptions() []string {
	return []string{
		"One instructional day equals 480 minutes.",
		"Saturdays and Sundays are not instructional days; no holiday calendar is applied.",
		"Date ranges are counted inclusively from start date to end date.",
		"No partial days are inferred; a single weekday removal counts as one full day.",
		"Explicit minutes, when present and valid, override date-derived minutes.",
		"Dates are read month-first; day-first dates are not inferred.",
	}
}
