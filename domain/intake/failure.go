package intake

import (
	"errors"
	"fmt"
	"strings"
)

// FailureReason is the single primary cause of a halted run
type FailureReason string

const (
	FailureUnparseableFile               FailureReason = "UnparseableFile"
	FailureMissingRequiredColumn         FailureReason = "MissingRequiredColumn"
	FailureJoinThresholdNotMet           FailureReason = "JoinThresholdNotMet"
	FailureConsequenceIntegrityViolation FailureReason = "ConsequenceIntegrityViolation"
	FailureInsufficientDataForMinutes    FailureReason = "InsufficientDataForMinutes"
)

// AffectedBoth is the affected_file value for failures that span both inputs
const AffectedBoth = "incident+consequence"

// FailureRecord is the structured cause attached to a halt report
type FailureRecord struct {
	Reason           FailureReason `json:"reason"`
	Stage            Stage         `json:"stage"`
	AffectedFile     string        `json:"affected_file"`
	Fields           []string      `json:"fields"`
	JoinSuccessRate  *float64      `json:"join_success_rate"`
	Matched          *int          `json:"matched,omitempty"`
	Total            *int          `json:"total,omitempty"`
	RowRef           *RowRef       `json:"row_ref"`
	Message          string        `json:"message"`
	RemediationSteps []string      `json:"remediation_steps"`
}

// Halt is the error every stage returns to stop the run. It carries exactly one cause.
type Halt struct {
	Failure FailureRecord
	cause   error
}

func (h *Halt) Error() string {
	return fmt.Sprintf("intake halted at %s: %s: %s", h.Failure.Stage, h.Failure.Reason, h.Failure.Message)
}

func (h *Halt) Unwrap() error { return h.cause }

// AsHalt extracts a halt from an error chain
func AsHalt(err error) (*Halt, bool) {
	var h *Halt
	if errors.As(err, &h) {
		return h, true
	}
	return nil, false
}

// IsHalt reports whether err stopped the run with the given reason
func IsHalt(err error, reason FailureReason) bool {
	h, ok := AsHalt(err)
	return ok && h.Failure.Reason == reason
}

func rateFields(matched, total int) (*float64, *int, *int) {
	rate := JoinRate(matched, total)
	return &rate, &matched, &total
}

// UnparseableFile halts the load stage
func UnparseableFile(role FileRole, name string, cause error) *Halt {
	msg := fmt.Sprintf("%s file %q is not machine-readable", role, name)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &Halt{
		cause: cause,
		Failure: FailureRecord{
			Reason:       FailureUnparseableFile,
			Stage:        StageLoad,
			AffectedFile: string(role),
			Fields:       []string{},
			Message:      msg,
			RemediationSteps: []string{
				fmt.Sprintf("Verify the %s file path is correct and the file was fully uploaded.", role),
				"Export the file again from the SIS as CSV (UTF-8) or XLSX.",
				"Ensure every row has the same number of columns as the header and that header names are unique.",
			},
		},
	}
}

// MissingRequiredColumn halts the alias stage before any row is processed
func MissingRequiredColumn(role FileRole, missing []Field) *Halt {
	names := FieldNames(missing)
	return &Halt{Failure: FailureRecord{
		Reason:       FailureMissingRequiredColumn,
		Stage:        StageAlias,
		AffectedFile: string(role),
		Fields:       names,
		Message:      fmt.Sprintf("%s file has no confirmed column for: %s", role, strings.Join(names, ", ")),
		RemediationSteps: []string{
			fmt.Sprintf("Add or rename the missing column(s) in the %s file: %s.", role, strings.Join(names, ", ")),
			"Run propose again and confirm a header for every required field.",
			"If the SIS uses a different header name, add it to intake.extra_aliases.",
		},
	}}
}

// JoinThresholdNotMet halts the join stage
func JoinThresholdNotMet(matched, total int) *Halt {
	rate, m, t := rateFields(matched, total)
	return &Halt{Failure: FailureRecord{
		Reason:          FailureJoinThresholdNotMet,
		Stage:           StageJoin,
		AffectedFile:    AffectedBoth,
		Fields:          []string{string(FieldIncidentNumber)},
		JoinSuccessRate: rate,
		Matched:         m,
		Total:           t,
		Message:         fmt.Sprintf("join success %d/%d (%.2f%%) is below the required %.0f%%", matched, total, *rate*100, JoinThreshold*100),
		RemediationSteps: []string{
			fmt.Sprintf("Join success is %d of %d incidents; at least %.0f%% must match.", matched, total, JoinThreshold*100),
			"Verify both files come from the same SIS export run and date range.",
			"Check that incident numbers are formatted identically in both files (no dropped leading zeros, no extra spaces).",
			"Review the unmatched and duplicate_key exclusions in the report to find the missing incidents.",
		},
	}}
}

// ConsequenceIntegrityViolation halts the integrity stage. matched is the count that would
// remain had the offending row been excluded.
func ConsequenceIntegrityViolation(ref RowRef, field Field, value string, matched, total int) *Halt {
	rate, m, t := rateFields(matched, total)
	return &Halt{Failure: FailureRecord{
		Reason:          FailureConsequenceIntegrityViolation,
		Stage:           StageIntegrity,
		AffectedFile:    string(RoleConsequence),
		Fields:          []string{string(field)},
		JoinSuccessRate: rate,
		Matched:         m,
		Total:           t,
		RowRef:          &ref,
		Message:         fmt.Sprintf("%s has invalid %s %q and excluding it would drop join success to %d/%d", ref, field, value, matched, total),
		RemediationSteps: []string{
			fmt.Sprintf("Correct %s at %s in the consequence file.", field, ref),
			fmt.Sprintf("consequence_type must be one of %s; dates must be month-first and start on or before the end date.", consequenceTypeList()),
			"Fix every row listed in the report exclusions; the run cannot exclude more without breaching the join threshold.",
		},
	}}
}

// InsufficientDataForMinutes halts the minutes stage
func InsufficientDataForMinutes(ref RowRef, matched, total int) *Halt {
	rate, m, t := rateFields(matched, total)
	return &Halt{Failure: FailureRecord{
		Reason:          FailureInsufficientDataForMinutes,
		Stage:           StageMinutes,
		AffectedFile:    string(RoleConsequence),
		Fields:          []string{string(FieldExplicitMinutes), string(FieldStartDate), string(FieldEndDate)},
		JoinSuccessRate: rate,
		Matched:         m,
		Total:           t,
		RowRef:          &ref,
		Message:         fmt.Sprintf("%s has neither explicit minutes nor a valid date range", ref),
		RemediationSteps: []string{
			"Provide either an explicit instructional minutes value or valid start and end dates for every consequence.",
			"Without one of them the lost minutes cannot be stated honestly.",
		},
	}}
}

func consequenceTypeList() string {
	types := ConsequenceTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
