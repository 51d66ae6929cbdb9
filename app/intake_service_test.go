package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intakegate/adapters/sqlite"
	"intakegate/domain/core"
	"intakegate/domain/intake"
	"intakegate/internal/config"
	"intakegate/internal/errors"
	"intakegate/internal/testkit"
	"intakegate/ports"
)

func newService(t *testing.T, runs ports.RunRepository) *IntakeService {
	t.Helper()
	svc, err := NewIntakeServiceFromConfig(config.Default(), runs, nil)
	require.NoError(t, err)
	return svc
}

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func inputs(incident, consequence string) Inputs {
	return Inputs{
		Incident:    ports.FileSource{Path: incident},
		Consequence: ports.FileSource{Path: consequence},
	}
}

// confirmAll accepts the proposal draft the way an operator would
func confirmAll(t *testing.T, svc *IntakeService, in Inputs) []intake.Confirmation {
	t.Helper()
	set, err := svc.Propose(context.Background(), in)
	require.NoError(t, err)
	for i := range set.Draft {
		set.Draft[i].ConfirmedBy = "registrar"
	}
	return set.Draft
}

func weeks(keys []string) []testkit.Consequence {
	cs := make([]testkit.Consequence, len(keys))
	for i, k := range keys {
		cs[i] = testkit.Week(k)
	}
	return cs
}

func TestPropose_SkywardExport(t *testing.T) {
	svc := newService(t, nil)
	keys := testkit.Keys("INC", 3)
	in := inputs(testkit.WriteSISPair(t, keys, weeks(keys)...))

	set, err := svc.Propose(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, set.Files, 2)
	assert.Equal(t, intake.RoleIncident, set.Files[0].File.Role)
	assert.Equal(t, intake.RoleConsequence, set.Files[1].File.Role)

	type key struct {
		file  intake.FileRole
		field intake.Field
	}
	got := map[key]string{}
	for _, c := range set.Draft {
		got[key{c.File, c.Field}] = c.Header
		assert.Empty(t, c.ConfirmedBy)
	}
	assert.Equal(t, map[key]string{
		{intake.RoleIncident, intake.FieldIncidentNumber}:     "Incident Number",
		{intake.RoleIncident, intake.FieldDateTime}:           "Incident Date & Time",
		{intake.RoleIncident, intake.FieldEntityCode}:         "Entity Code",
		{intake.RoleConsequence, intake.FieldIncidentNumber}:  "Incident_Number",
		{intake.RoleConsequence, intake.FieldConsequenceType}: "Consequence Type",
		{intake.RoleConsequence, intake.FieldStartDate}:       "Start Date",
		{intake.RoleConsequence, intake.FieldEndDate}:         "End Date",
		{intake.RoleConsequence, intake.FieldExplicitMinutes}: "Instructional Minutes Lost",
	}, got)
}

func TestRun_Proceed(t *testing.T) {
	store := newStore(t)
	svc := newService(t, store)
	keys := testkit.Keys("INC", 20)
	in := inputs(testkit.WriteSISPair(t, keys, weeks(keys)...))

	res, err := svc.Run(context.Background(), in, confirmAll(t, svc, in))
	require.NoError(t, err)

	report := res.Report
	require.Equal(t, intake.VerdictProceed, report.Verdict, "failure: %+v", report.Failure)
	assert.True(t, res.Persisted)
	assert.Len(t, res.Records, 20)
	assert.Equal(t, 20*2400, report.Minutes.TotalMinutes)
	assert.Equal(t, 20, report.Minutes.DateDerived)
	assert.Equal(t, []intake.Stage{
		intake.StageLoad, intake.StageAlias, intake.StageJoin, intake.StageIntegrity, intake.StageMinutes, intake.StageReport,
	}, report.StagesCompleted)
	assert.Equal(t, "registrar", report.AliasMaps.Incident.Entries[0].ConfirmedBy)
	assert.Empty(t, report.AliasRejections)

	first := res.Records[0]
	assert.Equal(t, "INC-001", first.Incident.IncidentNumber)
	require.NotNil(t, first.Incident.DateTime)
	assert.Equal(t, time.Date(2024, 1, 8, 9, 15, 0, 0, time.UTC), *first.Incident.DateTime)

	stored, err := svc.GetRun(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Fingerprint, stored.Report.Fingerprint)
	assert.Len(t, stored.Records, 20)

	summaries, err := svc.ListRuns(context.Background(), ports.RunFilter{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, res.ID, summaries[0].ID)
}

func TestRun_IdempotentExceptTimestamp(t *testing.T) {
	svc := newService(t, nil)
	keys := testkit.Keys("INC", 20)
	in := inputs(testkit.WriteSISPair(t, keys, weeks(keys)...))
	confirmations := confirmAll(t, svc, in)

	render := func() []byte {
		res, err := svc.Run(context.Background(), in, confirmations)
		require.NoError(t, err)
		assert.False(t, res.Persisted)
		report := *res.Report
		report.GeneratedAt = time.Time{}
		out, err := json.Marshal(report)
		require.NoError(t, err)
		return out
	}
	assert.Equal(t, string(render()), string(render()))
}

func TestRun_JoinBelowGateHalts(t *testing.T) {
	store := newStore(t)
	svc := newService(t, store)
	keys := testkit.Keys("INC", 100)
	in := inputs(testkit.WriteSISPair(t, keys, weeks(keys[:94])...))

	res, err := svc.Run(context.Background(), in, confirmAll(t, svc, in))
	require.NoError(t, err)

	report := res.Report
	require.Equal(t, intake.VerdictHalt, report.Verdict)
	assert.Equal(t, intake.FailureJoinThresholdNotMet, report.Failure.Reason)
	assert.InDelta(t, 0.94, *report.Failure.JoinSuccessRate, 1e-12)
	assert.Empty(t, res.Records)
	assert.NotNil(t, res.Records)
	assert.Equal(t, []intake.Stage{intake.StageLoad, intake.StageAlias}, report.StagesCompleted)
	assert.Equal(t, 6, report.ExclusionCounts.Unmatched)
	assert.True(t, res.Persisted)

	halted, err := svc.ListRuns(context.Background(), ports.RunFilter{Verdict: intake.VerdictHalt})
	require.NoError(t, err)
	assert.Len(t, halted, 1)
}

func TestRun_MissingConsequenceTypeHaltsBeforeJoin(t *testing.T) {
	svc := newService(t, nil)
	keys := testkit.Keys("INC", 5)
	incidents := testkit.WriteCSV(t, "incidents.csv", testkit.SISIncidentHeader, testkit.IncidentValues(keys...)...)
	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{k, "2024-01-08", "2024-01-12"}
	}
	consequences := testkit.WriteCSV(t, "consequences.csv", []string{"Incident Number", "Start Date", "End Date"}, rows...)
	in := inputs(incidents, consequences)

	res, err := svc.Run(context.Background(), in, confirmAll(t, svc, in))
	require.NoError(t, err)

	report := res.Report
	require.Equal(t, intake.VerdictHalt, report.Verdict)
	assert.Equal(t, intake.FailureMissingRequiredColumn, report.Failure.Reason)
	assert.Equal(t, intake.StageAlias, report.Failure.Stage)
	assert.Equal(t, []string{"consequence_type"}, report.Failure.Fields)
	assert.Equal(t, 0, report.Counts.TotalIncidents, "join never ran")
	assert.Nil(t, report.JoinSuccessRate)
	assert.Empty(t, res.Records)
}

func TestRun_TamperedTokenIsRejected(t *testing.T) {
	svc := newService(t, nil)
	keys := testkit.Keys("INC", 5)
	in := inputs(testkit.WriteSISPair(t, keys, weeks(keys)...))
	confirmations := confirmAll(t, svc, in)
	for i := range confirmations {
		if confirmations[i].Field == intake.FieldStartDate {
			confirmations[i].Token = "000000000000"
		}
	}

	res, err := svc.Run(context.Background(), in, confirmations)
	require.NoError(t, err)

	report := res.Report
	require.Len(t, report.AliasRejections, 1)
	assert.Equal(t, intake.FieldStartDate, report.AliasRejections[0].Confirmation.Field)
	assert.Equal(t, intake.FailureMissingRequiredColumn, report.Failure.Reason)
	assert.Equal(t, []string{"start_date"}, report.Failure.Fields)
}

func TestRun_UnreadableFileHalts(t *testing.T) {
	svc := newService(t, nil)
	keys := testkit.Keys("INC", 5)
	incidents, _ := testkit.WriteSISPair(t, keys)

	res, err := svc.Run(context.Background(), inputs(incidents, "/nonexistent/consequences.csv"), nil)
	require.NoError(t, err)
	assert.Equal(t, intake.FailureUnparseableFile, res.Report.Failure.Reason)
	assert.Equal(t, "consequence", res.Report.Failure.AffectedFile)
	assert.NotNil(t, res.Report.Files.Incident)
	assert.Nil(t, res.Report.Files.Consequence)
}

func TestRun_CancelledIsAnError(t *testing.T) {
	store := newStore(t)
	svc := newService(t, store)
	keys := testkit.Keys("INC", 5)
	in := inputs(testkit.WriteSISPair(t, keys, weeks(keys)...))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := svc.Run(ctx, in, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)

	summaries, err := svc.ListRuns(context.Background(), ports.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestGetRun_Errors(t *testing.T) {
	_, err := newService(t, nil).GetRun(context.Background(), core.NewRunID())
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))

	_, err = newService(t, newStore(t)).GetRun(context.Background(), core.NewRunID())
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
	assert.ErrorIs(t, err, core.ErrRunNotFound)
}

func TestNewIntakeServiceFromConfig_RejectsUnknownAliasField(t *testing.T) {
	cfg := config.Default()
	cfg.Intake.ExtraAliases = map[string][]string{"favourite_colour": {"Colour"}}
	_, err := NewIntakeServiceFromConfig(cfg, nil, nil)
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}
