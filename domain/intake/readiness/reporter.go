// Package readiness assembles the readiness report from each stage's output and sets the
// verdict exactly once.
package readiness

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/montanaflynn/stats"

	"intakegate/domain/core"
	"intakegate/domain/intake"
	"intakegate/domain/intake/integrity"
	"intakegate/domain/intake/join"
	"intakegate/domain/intake/minutes"
)

// EngineVersion is stamped into every report and its fingerprint
const EngineVersion = "intakegate/1.0.0"

// ErrFinalized is returned when a verdict is requested twice
var ErrFinalized = errors.New("readiness report already finalized")

// Builder accumulates stage outputs for one run. It is not safe for concurrent use.
type Builder struct {
	clock      core.Clock
	report     intake.ReadinessReport
	exclusions intake.ExclusionLog
	rateSet    bool
	finalized  bool
}

// NewBuilder starts a report for one run
func NewBuilder(clock core.Clock, opts intake.ReportOptions) *Builder {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Builder{
		clock: clock,
		report: intake.ReadinessReport{
			SchemaVersion:   intake.ReportSchemaVersion,
			EngineVersion:   EngineVersion,
			Options:         opts,
			AliasRejections: []intake.Rejection{},
			UnmatchedHeaders: intake.UnmatchedHeaders{
				Incident:    []string{},
				Consequence: []string{},
			},
			Transformations: []intake.Transformation{},
			JoinThreshold:   intake.JoinThreshold,
			Minutes: intake.MinutesBreakdown{
				ByConsequenceType:      []intake.TypeMinutes{},
				IgnoredExplicitMinutes: []intake.IgnoredValue{},
			},
			Assumptions:     intake.Assumptions(),
			StagesCompleted: []intake.Stage{},
		},
	}
}

// AddFile records a loaded input and its transformation log
func (b *Builder) AddFile(file *intake.LoadedFile) {
	identity := file.Identity
	switch identity.Role {
	case intake.RoleIncident:
		b.report.Files.Incident = &identity
	case intake.RoleConsequence:
		b.report.Files.Consequence = &identity
	}
	b.report.Transformations = append(b.report.Transformations, file.Transformations...)
}

// AddAlias records the confirmed alias map, rejections and unclaimed headers of one file
func (b *Builder) AddAlias(role intake.FileRole, m intake.AliasMap, rejections []intake.Rejection, unmatched []string) {
	mapped := m
	switch role {
	case intake.RoleIncident:
		b.report.AliasMaps.Incident = &mapped
		b.report.UnmatchedHeaders.Incident = append([]string{}, unmatched...)
	case intake.RoleConsequence:
		b.report.AliasMaps.Consequence = &mapped
		b.report.UnmatchedHeaders.Consequence = append([]string{}, unmatched...)
	}
	b.report.AliasRejections = append(b.report.AliasRejections, rejections...)
}

// AddJoin records join counts and exclusions
func (b *Builder) AddJoin(res *join.Result) {
	b.report.Counts.TotalIncidents = res.TotalIncidents
	b.report.Counts.TotalConsequences = res.TotalConsequences
	b.report.Counts.UnmatchedIncidents = res.UnmatchedIncidents
	b.report.Counts.DuplicateExcludedIncidents = res.DuplicateExcludedIncidents
	b.setMatched(res.MatchedIncidents)
	b.exclusions.Append(res.Exclusions...)
}

// AddIntegrity records integrity exclusions and ignored explicit minutes
func (b *Builder) AddIntegrity(res *integrity.Result) {
	b.moveToUnmatched(res.MatchedIncidents)
	b.exclusions.Append(res.Exclusions...)
	b.report.Minutes.IgnoredExplicitMinutes = append(b.report.Minutes.IgnoredExplicitMinutes, res.IgnoredExplicitMinutes...)
}

// AddMinutes records the minutes tallies and distribution
func (b *Builder) AddMinutes(res *minutes.Result) {
	b.moveToUnmatched(res.MatchedIncidents)
	b.exclusions.Append(res.Exclusions...)
	b.report.Minutes.Explicit = res.Explicit
	b.report.Minutes.DateDerived = res.DateDerived
	b.report.Counts.JoinedRecords = len(res.Records)

	values := make(stats.Float64Data, 0, len(res.Records))
	byType := map[intake.ConsequenceType]*intake.TypeMinutes{}
	total := 0
	for _, r := range res.Records {
		total += r.Minutes
		values = append(values, float64(r.Minutes))
		tm, ok := byType[r.Consequence.Type]
		if !ok {
			tm = &intake.TypeMinutes{Type: r.Consequence.Type}
			byType[r.Consequence.Type] = tm
		}
		tm.Records++
		tm.Minutes += r.Minutes
	}
	b.report.Minutes.TotalMinutes = total
	for _, t := range intake.ConsequenceTypes() {
		if tm, ok := byType[t]; ok {
			b.report.Minutes.ByConsequenceType = append(b.report.Minutes.ByConsequenceType, *tm)
		}
	}
	b.report.Minutes.Summary = summarize(values)
}

// CompleteStage marks a stage as having run to completion
func (b *Builder) CompleteStage(stage intake.Stage) {
	b.report.StagesCompleted = append(b.report.StagesCompleted, stage)
}

// Halt finalizes the report with the given cause
func (b *Builder) Halt(h *intake.Halt) (*intake.ReadinessReport, error) {
	if b.finalized {
		return nil, ErrFinalized
	}
	failure := h.Failure
	b.report.Verdict = intake.VerdictHalt
	b.report.Failure = &failure
	return b.finalize(), nil
}

// Proceed finalizes a run in which no stage halted. If the rate is somehow below the gate
// the verdict is still halt.
func (b *Builder) Proceed() (*intake.ReadinessReport, error) {
	if b.finalized {
		return nil, ErrFinalized
	}
	c := b.report.Counts
	if !b.rateSet || !intake.MeetsJoinThreshold(c.MatchedIncidents, c.TotalIncidents) {
		return b.Halt(intake.JoinThresholdNotMet(c.MatchedIncidents, c.TotalIncidents))
	}
	b.report.Verdict = intake.VerdictProceed
	return b.finalize(), nil
}

func (b *Builder) finalize() *intake.ReadinessReport {
	b.finalized = true
	b.report.Exclusions = b.exclusions.Entries()
	if b.report.Exclusions == nil {
		b.report.Exclusions = []intake.ExclusionEntry{}
	}
	b.report.ExclusionCounts = b.exclusions.Counts()
	b.report.Fingerprint = Fingerprint(&b.report)
	b.report.GeneratedAt = b.clock.Now()
	if b.report.Verdict == intake.VerdictProceed {
		b.report.StagesCompleted = append(b.report.StagesCompleted, intake.StageReport)
	}
	report := b.report
	return &report
}

func (b *Builder) setMatched(matched int) {
	b.report.Counts.MatchedIncidents = matched
	rate := intake.JoinRate(matched, b.report.Counts.TotalIncidents)
	b.report.JoinSuccessRate = &rate
	b.rateSet = true
}

// moveToUnmatched accounts for incidents that lost every pair after the join, so the
// count invariant keeps holding.
func (b *Builder) moveToUnmatched(matched int) {
	if lost := b.report.Counts.MatchedIncidents - matched; lost > 0 {
		b.report.Counts.UnmatchedIncidents += lost
	}
	b.setMatched(matched)
}

func summarize(values stats.Float64Data) *intake.MinutesSummary {
	if len(values) == 0 {
		return nil
	}
	mean, _ := values.Mean()
	median, _ := values.Median()
	p90, _ := values.Percentile(90)
	peak, _ := values.Max()
	return &intake.MinutesSummary{
		Mean:   round2(mean),
		Median: round2(median),
		P90:    round2(p90),
		Max:    peak,
	}
}

func round2(v float64) float64 {
	r, err := stats.Round(v, 2)
	if err != nil {
		return v
	}
	return r
}

// Fingerprint digests everything that determines a report's content: engine and schema
// versions, options, input hashes and confirmed alias maps. Equal inputs and confirmations
// give an equal fingerprint.
func Fingerprint(r *intake.ReadinessReport) core.Hash {
	fp := core.NewFingerprint().Add(r.EngineVersion, r.SchemaVersion)
	fp.Add(
		strconv.FormatBool(r.Options.CaseInsensitiveKeys),
		r.Options.IncidentDuplicates,
		r.Options.ConsequenceDuplicates,
		strconv.FormatFloat(r.Options.SimilarityFloor, 'f', -1, 64),
	)
	for _, f := range []*intake.FileIdentity{r.Files.Incident, r.Files.Consequence} {
		if f == nil {
			fp.Add("-")
			continue
		}
		fp.Add(string(f.Role), f.SHA256.String(), f.Encoding, f.Delimiter)
	}
	for _, m := range []*intake.AliasMap{r.AliasMaps.Incident, r.AliasMaps.Consequence} {
		if m == nil {
			fp.Add("-")
			continue
		}
		entries := append([]intake.AliasEntry(nil), m.Entries...)
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Field < entries[j].Field })
		fp.Add(string(m.Role), strconv.Itoa(len(entries)))
		for _, e := range entries {
			fp.Add(string(e.Field), e.Header, e.Token, e.ConfirmedBy)
		}
	}
	return fp.Sum()
}

// Summary is a one-line description of a finished report for logs
func Summary(r *intake.ReadinessReport) string {
	if r.Failure != nil {
		return fmt.Sprintf("%s: %s", r.Verdict, r.Failure.Reason)
	}
	rate := 0.0
	if r.JoinSuccessRate != nil {
		rate = *r.JoinSuccessRate
	}
	return fmt.Sprintf("%s: %d records, join %.2f%%, %d minutes", r.Verdict, r.Counts.JoinedRecords, rate*100, r.Minutes.TotalMinutes)
}
