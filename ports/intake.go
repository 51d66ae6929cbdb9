package ports

import (
	"context"
	"time"

	"intakegate/domain/core"
	"intakegate/domain/intake"
)

// FileSource names one input on disk
type FileSource struct {
	Role intake.FileRole
	Path string
	// Name is what the report shows; defaults to the base name of Path
	Name string
}

// TabularReader loads one input into raw rows. Unreadable input is an UnparseableFile halt.
type TabularReader interface {
	Read(ctx context.Context, src FileSource) (*intake.LoadedFile, error)
}

// StoredRun is a finished run as persisted by a RunRepository
type StoredRun struct {
	ID        core.RunID             `json:"run_id"`
	CreatedAt time.Time              `json:"created_at"`
	Report    intake.ReadinessReport `json:"report"`
	Records   []intake.JoinedRecord  `json:"records"`
}

// RunSummary is the list view of a stored run
type RunSummary struct {
	ID                core.RunID           `json:"run_id" db:"id"`
	CreatedAt         time.Time            `json:"created_at" db:"created_at"`
	Fingerprint       core.Hash            `json:"fingerprint" db:"fingerprint"`
	Verdict           intake.Verdict       `json:"verdict" db:"verdict"`
	FailureReason     intake.FailureReason `json:"failure_reason,omitempty" db:"failure_reason"`
	JoinSuccessRate   *float64             `json:"join_success_rate" db:"join_success_rate"`
	IncidentSHA256    core.Hash            `json:"incident_sha256" db:"incident_sha256"`
	ConsequenceSHA256 core.Hash            `json:"consequence_sha256" db:"consequence_sha256"`
}

// RunFilter narrows List
type RunFilter struct {
	Verdict intake.Verdict
	Limit   int
	Offset  int
}

// RunRepository persists audit trails so they remain retrievable after the run
type RunRepository interface {
	Save(ctx context.Context, run *StoredRun) error
	Get(ctx context.Context, id core.RunID) (*StoredRun, error)
	List(ctx context.Context, filter RunFilter) ([]RunSummary, error)
}

// Summarize derives the list view of a stored run
func Summarize(run *StoredRun) RunSummary {
	s := RunSummary{
		ID:              run.ID,
		CreatedAt:       run.CreatedAt,
		Fingerprint:     run.Report.Fingerprint,
		Verdict:         run.Report.Verdict,
		JoinSuccessRate: run.Report.JoinSuccessRate,
	}
	if run.Report.Failure != nil {
		s.FailureReason = run.Report.Failure.Reason
	}
	if f := run.Report.Files.Incident; f != nil {
		s.IncidentSHA256 = f.SHA256
	}
	if f := run.Report.Files.Consequence; f != nil {
		s.ConsequenceSHA256 = f.SHA256
	}
	return s
}
