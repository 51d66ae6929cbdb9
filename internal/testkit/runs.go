package testkit

import (
	"time"

	"intakegate/domain/core"
	"intakegate/domain/intake"
	"intakegate/ports"
)

// StoredRun builds a small persisted run. A halted run carries a join failure and no records.
func StoredRun(verdict intake.Verdict, createdAt time.Time) *ports.StoredRun {
	inc := Identity(intake.RoleIncident, IncidentHeader...)
	inc.SHA256 = core.NewHash([]byte("incidents"))
	con := Identity(intake.RoleConsequence, ConsequenceHeader...)
	con.SHA256 = core.NewHash([]byte("consequences"))

	report := intake.ReadinessReport{
		SchemaVersion: intake.ReportSchemaVersion,
		EngineVersion: "test",
		GeneratedAt:   createdAt,
		Fingerprint:   core.NewHash([]byte(string(verdict) + createdAt.String())),
		Files:         intake.ReportFiles{Incident: &inc, Consequence: &con},
		JoinThreshold: intake.JoinThreshold,
		Assumptions:   intake.Assumptions(),
		Verdict:       verdict,
	}

	run := &ports.StoredRun{ID: core.NewRunID(), CreatedAt: createdAt, Report: report}
	if verdict == intake.VerdictHalt {
		halt := intake.JoinThresholdNotMet(94, 100)
		report.Failure = &halt.Failure
		report.JoinSuccessRate = halt.Failure.JoinSuccessRate
		run.Report = report
		return run
	}

	rate := 1.0
	run.Report.JoinSuccessRate = &rate
	start, end := intake.NewDate(2024, time.January, 8), intake.NewDate(2024, time.January, 12)
	run.Records = []intake.JoinedRecord{{
		Incident: intake.IncidentRecord{
			IncidentNumber: "INC-001",
			SourceRow:      intake.RowRef{File: intake.RoleIncident, Index: 0},
		},
		Consequence: intake.ConsequenceRecord{
			IncidentNumber: "INC-001",
			Type:           intake.ConsequenceISS,
			StartDate:      &start,
			EndDate:        &end,
			SourceRow:      intake.RowRef{File: intake.RoleConsequence, Index: 0},
		},
		Minutes:       2400,
		MinutesMethod: intake.MinutesDateDerived,
	}}
	return run
}
