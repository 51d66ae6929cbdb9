package intake

// Stage names a pipeline step
type Stage string

const (
	StageLoad      Stage = "load"
	StageAlias     Stage = "alias"
	StageJoin      Stage = "join"
	StageIntegrity Stage = "integrity"
	StageMinutes   Stage = "minutes"
	StageReport    Stage = "report"
)

// ExclusionReason classifies why a row left the dataset
type ExclusionReason string

const (
	ReasonMissingRequiredValue       ExclusionReason = "missing_required_value"
	ReasonInvalidDateRange           ExclusionReason = "invalid_date_range"
	ReasonDuplicateKey               ExclusionReason = "duplicate_key"
	ReasonUnmatched                  ExclusionReason = "unmatched"
	ReasonInvalidConsequenceType     ExclusionReason = "invalid_consequence_type"
	ReasonInsufficientDataForMinutes ExclusionReason = "insufficient_data_for_minutes"
)

// ExclusionReasons lists every reason in report order
func ExclusionReasons() []ExclusionReason {
	return []ExclusionReason{
		ReasonMissingRequiredValue,
		ReasonInvalidDateRange,
		ReasonDuplicateKey,
		ReasonUnmatched,
		ReasonInvalidConsequenceType,
		ReasonInsufficientDataForMinutes,
	}
}

// ExclusionEntry records one excluded row
type ExclusionEntry struct {
	Ref    RowRef          `json:"row_ref"`
	Reason ExclusionReason `json:"reason"`
	File   FileRole        `json:"file"`
	Stage  Stage           `json:"stage"`
	Field  Field           `json:"field,omitempty"`
	Value  string          `json:"value,omitempty"`
	Key    string          `json:"incident_number,omitempty"`
}

// NewExclusion builds an entry whose File always agrees with its RowRef
func NewExclusion(ref RowRef, reason ExclusionReason, stage Stage) ExclusionEntry {
	return ExclusionEntry{Ref: ref, Reason: reason, File: ref.File, Stage: stage}
}

// ExclusionLog is an append-only sequence of exclusions
type ExclusionLog struct {
	entries []ExclusionEntry
}

// Append adds entries in the order given
func (l *ExclusionLog) Append(entries ...ExclusionEntry) {
	l.entries = append(l.entries, entries...)
}

// Entries returns a copy of the log
func (l *ExclusionLog) Entries() []ExclusionEntry {
	return append([]ExclusionEntry(nil), l.entries...)
}

func (l *ExclusionLog) Len() int { return len(l.entries) }

// Counts tallies the log by reason
func (l *ExclusionLog) Counts() ExclusionCounts {
	counts := ExclusionCounts{}
	for _, e := range l.entries {
		counts.add(e.Reason)
	}
	return counts
}

// ExclusionCounts is the per-reason tally; every reason is always present in JSON
type ExclusionCounts struct {
	MissingRequiredValue       int `json:"missing_required_value"`
	InvalidDateRange           int `json:"invalid_date_range"`
	DuplicateKey               int `json:"duplicate_key"`
	Unmatched                  int `json:"unmatched"`
	InvalidConsequenceType     int `json:"invalid_consequence_type"`
	InsufficientDataForMinutes int `json:"insufficient_data_for_minutes"`
}

func (c *ExclusionCounts) add(reason ExclusionReason) {
	switch reason {
	case ReasonMissingRequiredValue:
		c.MissingRequiredValue++
	case ReasonInvalidDateRange:
		c.InvalidDateRange++
	case ReasonDuplicateKey:
		c.DuplicateKey++
	case ReasonUnmatched:
		c.Unmatched++
	case ReasonInvalidConsequenceType:
		c.InvalidConsequenceType++
	case ReasonInsufficientDataForMinutes:
		c.InsufficientDataForMinutes++
	}
}

// Total sums every reason
func (c ExclusionCounts) Total() int {
	return c.MissingRequiredValue + c.InvalidDateRange + c.DuplicateKey + c.Unmatched +
		c.InvalidConsequenceType + c.InsufficientDataForMinutes
}

// Of returns the count for one reason
func (c ExclusionCounts) Of(reason ExclusionReason) int {
	switch reason {
	case ReasonMissingRequiredValue:
		return c.MissingRequiredValue
	case ReasonInvalidDateRange:
		return c.InvalidDateRange
	case ReasonDuplicateKey:
		return c.DuplicateKey
	case ReasonUnmatched:
		return c.Unmatched
	case ReasonInvalidConsequenceType:
		return c.InvalidConsequenceType
	case ReasonInsufficientDataForMinutes:
		return c.InsufficientDataForMinutes
	}
	return 0
}
