// Package integrity validates the consequence side of every matched pair and decides
// whether a bad row may be excluded or must halt the run.
package integrity

import (
	"context"
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"intakegate/domain/intake"
)

// Result holds the surviving pairs and what was removed. Pairs is nil on halt.
type Result struct {
	Pairs                  []intake.ValidatedPair
	Exclusions             []intake.ExclusionEntry
	IgnoredExplicitMinutes []intake.IgnoredValue
	MatchedIncidents       int
}

// Validator checks consequence type and date range integrity
type Validator struct {
	workers int
}

// NewValidator creates a validator that checks rows on up to workers goroutines
func NewValidator(workers int) *Validator {
	if workers < 1 {
		workers = 1
	}
	return &Validator{workers: workers}
}

// finding is the outcome of checking one pair
type finding struct {
	record  intake.ConsequenceRecord
	ignored *intake.IgnoredValue
	failed  bool
	reason  intake.ExclusionReason
	field   intake.Field
	value   string
}

// Validate checks every pair. A failing pair is excluded only when its column exists and
// the join success rate stays at or above the gate without it; otherwise the run halts
// with ConsequenceIntegrityViolation. Exclusions are emitted in pair order regardless of
// how many workers ran.
func (v *Validator) Validate(ctx context.Context, pairs []intake.MatchedPair, m intake.AliasMap, matched, total int) (*Result, error) {
	findings := make([]finding, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)
	for i := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			findings[i] = check(pairs[i], m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{MatchedIncidents: matched}

	// An incident stays matched while at least one of its pairs survives.
	remaining := map[intake.RowRef]int{}
	for _, p := range pairs {
		remaining[p.Incident.SourceRow]++
	}

	var kept []intake.ValidatedPair
	for i, f := range findings {
		p := pairs[i]
		if f.ignored != nil {
			res.IgnoredExplicitMinutes = append(res.IgnoredExplicitMinutes, *f.ignored)
		}
		if !f.failed {
			kept = append(kept, intake.ValidatedPair{Incident: p.Incident, Consequence: f.record})
			continue
		}

		after := res.MatchedIncidents
		if remaining[p.Incident.SourceRow] == 1 {
			after--
		}
		if !m.Has(f.field) || !intake.MeetsJoinThreshold(after, total) {
			return res, intake.ConsequenceIntegrityViolation(p.Consequence.Ref, f.field, f.value, after, total)
		}

		remaining[p.Incident.SourceRow]--
		res.MatchedIncidents = after
		entry := intake.NewExclusion(p.Consequence.Ref, f.reason, intake.StageIntegrity)
		entry.Field = f.field
		entry.Value = f.value
		entry.Key = p.Incident.IncidentNumber
		res.Exclusions = append(res.Exclusions, entry)
	}

	res.Pairs = kept
	return res, nil
}

func check(p intake.MatchedPair, m intake.AliasMap) finding {
	row := p.Consequence
	f := finding{record: intake.ConsequenceRecord{
		IncidentNumber: p.Incident.IncidentNumber,
		Attributes:     m.Attributes(row),
		SourceRow:      row.Ref,
	}}

	if raw, ok := m.Value(row, intake.FieldExplicitMinutes); ok && raw != "" {
		if minutes, valid := ParseExplicitMinutes(raw); valid {
			f.record.ExplicitMinutes = &minutes
		} else {
			f.ignored = &intake.IgnoredValue{Ref: row.Ref, Value: raw}
		}
	}

	rawType, _ := m.Value(row, intake.FieldConsequenceType)
	if strings.TrimSpace(rawType) == "" {
		return f.fail(intake.ReasonMissingRequiredValue, intake.FieldConsequenceType, rawType)
	}
	ct, ok := intake.ParseConsequenceType(rawType)
	if !ok {
		return f.fail(intake.ReasonInvalidConsequenceType, intake.FieldConsequenceType, rawType)
	}
	f.record.Type = ct

	start, failed := f.date(m, row, intake.FieldStartDate)
	if failed {
		return f
	}
	end, failed := f.date(m, row, intake.FieldEndDate)
	if failed {
		return f
	}
	if start.After(end) {
		rawEnd, _ := m.Value(row, intake.FieldEndDate)
		return f.fail(intake.ReasonInvalidDateRange, intake.FieldEndDate, rawEnd)
	}
	f.record.StartDate = &start
	f.record.EndDate = &end
	return f
}

func (f *finding) date(m intake.AliasMap, row intake.RawRow, field intake.Field) (intake.Date, bool) {
	raw, _ := m.Value(row, field)
	if strings.TrimSpace(raw) == "" {
		*f = f.fail(intake.ReasonMissingRequiredValue, field, raw)
		return intake.Date{}, true
	}
	d, err := intake.ParseDate(raw)
	if err != nil {
		*f = f.fail(intake.ReasonInvalidDateRange, field, raw)
		return intake.Date{}, true
	}
	return d, false
}

func (f finding) fail(reason intake.ExclusionReason, field intake.Field, value string) finding {
	f.failed = true
	f.reason = reason
	f.field = field
	f.value = value
	return f
}

// ParseExplicitMinutes accepts plain decimal digits, optionally followed by a zero
// fraction as spreadsheets export it ("120.0"). Signs, exponents and real fractions are
// invalid.
func ParseExplicitMinutes(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || !allDigits(whole) {
		return 0, false
	}
	if hasFrac && (frac == "" || strings.Trim(frac, "0") != "") {
		return 0, false
	}
	n, err := strconv.Atoi(whole)
	if err != nil || n > math.MaxInt32 {
		return 0, false
	}
	return n, true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
