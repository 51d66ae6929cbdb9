package app

import (
	"context"
	"fmt"
	"time"

	"intakegate/adapters/tabular"
	"intakegate/domain/core"
	"intakegate/domain/intake"
	"intakegate/domain/intake/alias"
	"intakegate/domain/intake/integrity"
	"intakegate/domain/intake/join"
	"intakegate/domain/intake/minutes"
	"intakegate/domain/intake/readiness"
	"intakegate/internal"
	"intakegate/internal/config"
	"intakegate/internal/errors"
	"intakegate/ports"
)

// Inputs names the two files of one run
type Inputs struct {
	Incident    ports.FileSource
	Consequence ports.FileSource
}

func (in Inputs) sources() []ports.FileSource {
	incident, consequence := in.Incident, in.Consequence
	incident.Role = intake.RoleIncident
	consequence.Role = intake.RoleConsequence
	return []ports.FileSource{incident, consequence}
}

// FileProposals is the proposal phase output for one file
type FileProposals struct {
	File      intake.FileIdentity `json:"file" yaml:"file"`
	Proposals []alias.Proposal    `json:"proposals" yaml:"proposals"`
}

// ProposalSet is what an operator reviews before confirming mappings
type ProposalSet struct {
	Files []FileProposals `json:"files" yaml:"files"`
	// Draft holds the best candidate per field; nothing in it applies until it is sent back
	// as confirmations.
	Draft []intake.Confirmation `json:"draft" yaml:"draft"`
}

// RunResult is a finished run. A halted run has a report and no records.
type RunResult struct {
	ID        core.RunID              `json:"run_id"`
	Report    *intake.ReadinessReport `json:"report"`
	Records   []intake.JoinedRecord   `json:"records"`
	Persisted bool                    `json:"persisted"`
}

// Stored is the run as a RunRepository keeps it
func (r *RunResult) Stored() *ports.StoredRun {
	return &ports.StoredRun{ID: r.ID, CreatedAt: r.Report.GeneratedAt, Report: *r.Report, Records: r.Records}
}

// ErrNoRunStore is returned by run lookups when no store is configured
var ErrNoRunStore = errors.ConfigInvalid("no run store configured; set database.driver")

// IntakeService runs the intake stages in order and persists the audit trail
type IntakeService struct {
	reader     ports.TabularReader
	resolver   *alias.Resolver
	engine     *join.Engine
	validator  *integrity.Validator
	calculator *minutes.Calculator
	runs       ports.RunRepository
	clock      core.Clock
	opts       intake.ReportOptions
	logger     *internal.Logger
}

// ServiceDeps are the collaborators of an IntakeService. Runs may be nil.
type ServiceDeps struct {
	Reader     ports.TabularReader
	Resolver   *alias.Resolver
	Engine     *join.Engine
	Validator  *integrity.Validator
	Calculator *minutes.Calculator
	Runs       ports.RunRepository
	Clock      core.Clock
	Options    intake.ReportOptions
	Logger     *internal.Logger
}

// NewIntakeService creates a new intake service
func NewIntakeService(deps ServiceDeps) *IntakeService {
	if deps.Clock == nil {
		deps.Clock = core.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = internal.NewNopLogger()
	}
	if deps.Calculator == nil {
		deps.Calculator = minutes.NewCalculator()
	}
	return &IntakeService{
		reader:     deps.Reader,
		resolver:   deps.Resolver,
		engine:     deps.Engine,
		validator:  deps.Validator,
		calculator: deps.Calculator,
		runs:       deps.Runs,
		clock:      deps.Clock,
		opts:       deps.Options,
		logger:     deps.Logger,
	}
}

// NewIntakeServiceFromConfig wires the engine from configuration
func NewIntakeServiceFromConfig(cfg *config.Config, runs ports.RunRepository, logger *internal.Logger) (*IntakeService, error) {
	in := cfg.Intake

	library, err := alias.DefaultLibrary(alias.ParseConfigured(in.ExtraAliases))
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to build alias library")
	}
	incidentPolicy, err := join.ParsePolicy(in.IncidentDuplicates, false)
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "intake.incident_duplicates")
	}
	consequencePolicy, err := join.ParsePolicy(in.ConsequenceDuplicates, true)
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "intake.consequence_duplicates")
	}
	engine, err := join.NewEngine(join.Options{
		CaseInsensitiveKeys: in.CaseInsensitiveKeys,
		Incidents:           incidentPolicy,
		Consequences:        consequencePolicy,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to create join engine")
	}

	return NewIntakeService(ServiceDeps{
		Reader:     tabular.NewDataReader(tabular.ReaderConfig{Encoding: in.Encoding, Delimiter: in.Delimiter}, logger),
		Resolver:   alias.NewResolver(library, in.SimilarityFloor),
		Engine:     engine,
		Validator:  integrity.NewValidator(in.IntegrityWorkers),
		Calculator: minutes.NewCalculator(),
		Runs:       runs,
		Options: intake.ReportOptions{
			CaseInsensitiveKeys:   in.CaseInsensitiveKeys,
			IncidentDuplicates:    string(incidentPolicy),
			ConsequenceDuplicates: string(consequencePolicy),
			SimilarityFloor:       in.SimilarityFloor,
		},
		Logger: logger,
	}), nil
}

// Propose loads both files and lists candidate mappings. It applies nothing. A file that
// cannot be loaded returns its UnparseableFile halt.
func (s *IntakeService) Propose(ctx context.Context, in Inputs) (*ProposalSet, error) {
	set := &ProposalSet{}
	var all []alias.Proposal
	for _, src := range in.sources() {
		file, err := s.reader.Read(ctx, src)
		if err != nil {
			return nil, err
		}
		proposals := s.resolver.Propose(file.Identity)
		set.Files = append(set.Files, FileProposals{File: file.Identity, Proposals: proposals})
		all = append(all, proposals...)
	}
	set.Draft = alias.Draft(all, "")
	s.logger.Info("mapping proposals ready", "fields", len(all), "draft", len(set.Draft))
	return set, nil
}

// Run executes every stage with the caller's confirmations. A halt is a result, not an
// error: the returned report carries the failure. Errors are cancellation, programming
// faults and storage failures.
func (s *IntakeService) Run(ctx context.Context, in Inputs, confirmations []intake.Confirmation) (*RunResult, error) {
	id := core.NewRunID()
	logger := s.logger.With("run_id", id)
	start := time.Now()
	logger.Info("intake run started",
		"incident", in.Incident.Path,
		"consequence", in.Consequence.Path,
		"confirmations", len(confirmations),
	)

	report, records, err := s.execute(ctx, logger, in, confirmations)
	if err != nil {
		logger.Error("intake run aborted", "error", err)
		return nil, err
	}

	if records == nil {
		records = []intake.JoinedRecord{}
	}
	result := &RunResult{ID: id, Report: report, Records: records}
	if report.Halted() {
		f := report.Failure
		logger.Warn("intake run halted",
			"reason", f.Reason,
			"stage", f.Stage,
			"affected_file", f.AffectedFile,
			"message", f.Message,
		)
	} else {
		logger.Info("intake run proceeded", "summary", readiness.Summary(report))
	}

	if s.runs != nil {
		if err := s.runs.Save(ctx, result.Stored()); err != nil {
			return nil, errors.Wrap(errors.DatabaseError("save run", err), "failed to persist run")
		}
		result.Persisted = true
	}

	logger.Info("intake run finished",
		"verdict", report.Verdict,
		"fingerprint", report.Fingerprint.Short(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// execute drives the stages. Each stage's halt is checked before the next runs.
func (s *IntakeService) execute(ctx context.Context, logger *internal.Logger, in Inputs, confirmations []intake.Confirmation) (*intake.ReadinessReport, []intake.JoinedRecord, error) {
	b := readiness.NewBuilder(s.clock, s.opts)
	halt := func(err error) (*intake.ReadinessReport, []intake.JoinedRecord, error) {
		h, ok := intake.AsHalt(err)
		if !ok {
			return nil, nil, err
		}
		report, ferr := b.Halt(h)
		if ferr != nil {
			return nil, nil, ferr
		}
		return report, nil, nil
	}

	// load
	files := map[intake.FileRole]*intake.LoadedFile{}
	for _, src := range in.sources() {
		file, err := s.reader.Read(ctx, src)
		if err != nil {
			return halt(err)
		}
		b.AddFile(file)
		files[src.Role] = file
	}
	b.CompleteStage(intake.StageLoad)

	// alias
	maps := map[intake.FileRole]intake.AliasMap{}
	for _, role := range intake.Roles() {
		identity := files[role].Identity
		m, rejections, err := s.resolver.Apply(identity, s.resolver.Propose(identity), confirmations)
		for _, r := range rejections {
			logger.Warn("alias confirmation rejected",
				"file", role, "field", r.Confirmation.Field, "header", r.Confirmation.Header, "reason", r.Reason)
		}
		unmatched := alias.Unmatched(identity, m)
		b.AddAlias(role, m, rejections, unmatched)
		if err != nil {
			return halt(err)
		}
		for _, e := range m.Entries {
			logger.Debug("alias applied",
				"file", role, "field", e.Field, "header", e.Header, "method", e.Method, "confirmed_by", e.ConfirmedBy)
		}
		if len(unmatched) > 0 {
			logger.Info("headers left unmapped", "file", role, "headers", unmatched)
		}
		maps[role] = m
	}
	b.CompleteStage(intake.StageAlias)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// join
	jr, err := s.engine.Join(join.Input{
		Incidents:      files[intake.RoleIncident].Rows,
		IncidentMap:    maps[intake.RoleIncident],
		Consequences:   files[intake.RoleConsequence].Rows,
		ConsequenceMap: maps[intake.RoleConsequence],
	})
	if jr != nil {
		b.AddJoin(jr)
		logger.Info("join complete",
			"matched", jr.MatchedIncidents,
			"total", jr.TotalIncidents,
			"rate", fmt.Sprintf("%.4f", jr.Rate()),
			"exclusions", len(jr.Exclusions),
		)
	}
	if err != nil {
		return halt(err)
	}
	b.CompleteStage(intake.StageJoin)

	// integrity
	ir, err := s.validator.Validate(ctx, jr.Pairs, maps[intake.RoleConsequence], jr.MatchedIncidents, jr.TotalIncidents)
	if ir != nil {
		b.AddIntegrity(ir)
	}
	if err != nil {
		return halt(err)
	}
	b.CompleteStage(intake.StageIntegrity)

	// minutes
	mr, err := s.calculator.Compute(ir.Pairs, ir.MatchedIncidents, jr.TotalIncidents)
	if mr != nil {
		b.AddMinutes(mr)
		for _, e := range mr.Exclusions {
			logger.Warn("record excluded from minutes", "row", e.Ref, "incident_number", e.Key)
		}
	}
	if err != nil {
		return halt(err)
	}
	b.CompleteStage(intake.StageMinutes)

	report, err := b.Proceed()
	if err != nil {
		return nil, nil, err
	}
	if report.Halted() {
		return report, nil, nil
	}
	return report, mr.Records, nil
}

// GetRun returns a stored run
func (s *IntakeService) GetRun(ctx context.Context, id core.RunID) (*ports.StoredRun, error) {
	if s.runs == nil {
		return nil, ErrNoRunStore
	}
	run, err := s.runs.Get(ctx, id)
	if err != nil {
		if core.IsNotFoundError(err) {
			return nil, errors.WithCode(errors.CodeNotFound, err)
		}
		return nil, errors.Wrap(errors.DatabaseError("get run", err), "failed to load run")
	}
	return run, nil
}

// ListRuns returns recent run summaries
func (s *IntakeService) ListRuns(ctx context.Context, filter ports.RunFilter) ([]ports.RunSummary, error) {
	if s.runs == nil {
		return nil, ErrNoRunStore
	}
	summaries, err := s.runs.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(errors.DatabaseError("list runs", err), "failed to list runs")
	}
	return summaries, nil
}
