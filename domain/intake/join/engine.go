// Package join matches incident rows to consequence rows on incident_number and enforces
// the join success gate.
package join

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"intakegate/domain/core"
	"intakegate/domain/intake"
)

// DuplicatePolicy decides which rows survive when a key repeats within one file
type DuplicatePolicy string

const (
	PolicyExclude DuplicatePolicy = "exclude"
	PolicyFirst   DuplicatePolicy = "first"
	PolicyLast    DuplicatePolicy = "last"
	// PolicyAll keeps every row; only valid for consequences, one JoinedRecord each.
	PolicyAll DuplicatePolicy = "all"
)

// ParsePolicy validates a policy name. allowAll is true for the consequence file only.
func ParsePolicy(s string, allowAll bool) (DuplicatePolicy, error) {
	p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return PolicyExclude, nil
	case PolicyExclude, PolicyFirst, PolicyLast:
		return p, nil
	case PolicyAll:
		if allowAll {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", core.ErrInvalidPolicy, s)
}

// Options configure key comparison and duplicate handling
type Options struct {
	CaseInsensitiveKeys bool
	Incidents           DuplicatePolicy
	Consequences        DuplicatePolicy
}

// DefaultOptions excludes every duplicated key and compares keys exactly
func DefaultOptions() Options {
	return Options{Incidents: PolicyExclude, Consequences: PolicyExclude}
}

// Input is the aliased row sets of both files
type Input struct {
	Incidents      []intake.RawRow
	IncidentMap    intake.AliasMap
	Consequences   []intake.RawRow
	ConsequenceMap intake.AliasMap
}

// Result carries the counts and exclusions of a join. Pairs is empty when the gate halts.
type Result struct {
	Pairs                      []intake.MatchedPair
	Exclusions                 []intake.ExclusionEntry
	TotalIncidents             int
	TotalConsequences          int
	MatchedIncidents           int
	UnmatchedIncidents         int
	DuplicateExcludedIncidents int
}

// Rate is the join success rate
func (r *Result) Rate() float64 {
	return intake.JoinRate(r.MatchedIncidents, r.TotalIncidents)
}

// Engine performs the exact-key join
type Engine struct {
	opts Options
}

// NewEngine validates options and creates an engine
func NewEngine(opts Options) (*Engine, error) {
	if opts.Incidents == "" {
		opts.Incidents = PolicyExclude
	}
	if opts.Consequences == "" {
		opts.Consequences = PolicyExclude
	}
	if _, err := ParsePolicy(string(opts.Incidents), false); err != nil {
		return nil, fmt.Errorf("incident duplicates: %w", err)
	}
	if _, err := ParsePolicy(string(opts.Consequences), true); err != nil {
		return nil, fmt.Errorf("consequence duplicates: %w", err)
	}
	return &Engine{opts: opts}, nil
}

// Options returns the engine configuration
func (e *Engine) Options() Options { return e.opts }

type keyed struct {
	key string
	raw string
	row intake.RawRow
}

// Join matches the two row sets. The returned result is always populated for reporting;
// when the join success rate is below the gate the error is a JoinThresholdNotMet halt and
// Pairs is nil.
func (e *Engine) Join(in Input) (*Result, error) {
	res := &Result{
		TotalIncidents:    len(in.Incidents),
		TotalConsequences: len(in.Consequences),
	}
	var exclusions []intake.ExclusionEntry

	// A Caser is stateful, so each join folds keys with its own.
	normalize := func(raw string) string { return raw }
	if e.opts.CaseInsensitiveKeys {
		folder := cases.Fold()
		normalize = folder.String
	}

	incidents, dropped := keyRows(in.Incidents, in.IncidentMap, normalize)
	exclusions = append(exclusions, dropped...)
	res.UnmatchedIncidents += len(dropped)

	consequences, dropped := keyRows(in.Consequences, in.ConsequenceMap, normalize)
	exclusions = append(exclusions, dropped...)

	keptIncidents, dupIncidents := applyPolicy(incidents, e.opts.Incidents)
	exclusions = append(exclusions, dupIncidents...)
	res.DuplicateExcludedIncidents = len(dupIncidents)

	keptConsequences, dupConsequences := applyPolicy(consequences, e.opts.Consequences)
	exclusions = append(exclusions, dupConsequences...)

	byKey := map[string][]intake.RawRow{}
	for _, c := range keptConsequences {
		byKey[c.key] = append(byKey[c.key], c.row)
	}

	var pairs []intake.MatchedPair
	incidentKeys := map[string]bool{}
	for _, inc := range keptIncidents {
		incidentKeys[inc.key] = true
		partners := byKey[inc.key]
		if len(partners) == 0 {
			exclusions = append(exclusions, unmatched(inc))
			res.UnmatchedIncidents++
			continue
		}
		res.MatchedIncidents++
		record := intake.NewIncidentRecord(inc.row, in.IncidentMap)
		for _, c := range partners {
			pairs = append(pairs, intake.MatchedPair{Incident: record, Consequence: c})
		}
	}
	for _, c := range keptConsequences {
		if !incidentKeys[c.key] {
			exclusions = append(exclusions, unmatched(c))
		}
	}

	sort.SliceStable(exclusions, func(i, j int) bool { return exclusions[i].Ref.Less(exclusions[j].Ref) })
	res.Exclusions = exclusions

	if !intake.MeetsJoinThreshold(res.MatchedIncidents, res.TotalIncidents) {
		return res, intake.JoinThresholdNotMet(res.MatchedIncidents, res.TotalIncidents)
	}
	res.Pairs = pairs
	return res, nil
}

// keyRows reads the join key of every row; blank keys become exclusions
func keyRows(rows []intake.RawRow, m intake.AliasMap, normalize func(string) string) ([]keyed, []intake.ExclusionEntry) {
	out := make([]keyed, 0, len(rows))
	var excluded []intake.ExclusionEntry
	for _, row := range rows {
		raw, _ := m.Value(row, intake.FieldIncidentNumber)
		if strings.TrimSpace(raw) == "" {
			entry := intake.NewExclusion(row.Ref, intake.ReasonMissingRequiredValue, intake.StageJoin)
			entry.Field = intake.FieldIncidentNumber
			excluded = append(excluded, entry)
			continue
		}
		out = append(out, keyed{key: normalize(raw), raw: raw, row: row})
	}
	return out, excluded
}

// applyPolicy splits rows into survivors and duplicate_key exclusions, preserving row order
func applyPolicy(rows []keyed, policy DuplicatePolicy) ([]keyed, []intake.ExclusionEntry) {
	groups := map[string][]int{}
	for i, r := range rows {
		groups[r.key] = append(groups[r.key], i)
	}

	keep := make([]bool, len(rows))
	for _, idx := range groups {
		if len(idx) == 1 || policy == PolicyAll {
			for _, i := range idx {
				keep[i] = true
			}
			continue
		}
		switch policy {
		case PolicyFirst:
			keep[idx[0]] = true
		case PolicyLast:
			keep[idx[len(idx)-1]] = true
		}
	}

	var kept []keyed
	var excluded []intake.ExclusionEntry
	for i, r := range rows {
		if keep[i] {
			kept = append(kept, r)
			continue
		}
		entry := intake.NewExclusion(r.row.Ref, intake.ReasonDuplicateKey, intake.StageJoin)
		entry.Field = intake.FieldIncidentNumber
		entry.Key = r.raw
		excluded = append(excluded, entry)
	}
	return kept, excluded
}

func unmatched(r keyed) intake.ExclusionEntry {
	entry := intake.NewExclusion(r.row.Ref, intake.ReasonUnmatched, intake.StageJoin)
	entry.Field = intake.FieldIncidentNumber
	entry.Key = r.raw
	return entry
}
