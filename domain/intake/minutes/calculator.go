// Package minutes computes instructional minutes lost for each validated pair.
package minutes

import (
	"time"

	"intakegate/domain/intake"
)

// InstructionalDays counts weekdays from start to end inclusive in constant time.
// It returns 0 when end precedes start.
func InstructionalDays(start, end intake.Date) int {
	if end.Before(start) {
		return 0
	}
	// Unix seconds, not a Duration, which saturates past roughly 292 years
	days := int((end.Time().Unix()-start.Time().Unix())/86400) + 1
	weeks, rest := days/7, days%7

	count := weeks * 5
	wd := start.Weekday()
	for i := 0; i < rest; i++ {
		if d := (wd + time.Weekday(i)) % 7; d != time.Saturday && d != time.Sunday {
			count++
		}
	}
	return count
}

// Result holds the joined records and the method tallies
type Result struct {
	Records          []intake.JoinedRecord
	Exclusions       []intake.ExclusionEntry
	Explicit         int
	DateDerived      int
	MatchedIncidents int
}

// Calculator applies the minutes precedence: explicit minutes, then date-derived minutes
type Calculator struct{}

// NewCalculator creates a calculator
func NewCalculator() *Calculator { return &Calculator{} }

// Minutes returns the minutes and method for one consequence. ok is false when neither an
// explicit value nor a valid date range is present.
func (c *Calculator) Minutes(rec intake.ConsequenceRecord) (int, intake.MinutesMethod, bool) {
	if rec.ExplicitMinutes != nil && *rec.ExplicitMinutes >= 0 {
		return *rec.ExplicitMinutes, intake.MinutesExplicit, true
	}
	if rec.StartDate != nil && rec.EndDate != nil && !rec.EndDate.Before(*rec.StartDate) {
		return InstructionalDays(*rec.StartDate, *rec.EndDate) * intake.MinutesPerDay, intake.MinutesDateDerived, true
	}
	return 0, "", false
}

// Compute turns validated pairs into joined records. A pair with no usable input is
// excluded as insufficient_data_for_minutes if the join success rate survives it; otherwise
// the run halts with InsufficientDataForMinutes.
func (c *Calculator) Compute(pairs []intake.ValidatedPair, matched, total int) (*Result, error) {
	res := &Result{MatchedIncidents: matched, Records: make([]intake.JoinedRecord, 0, len(pairs))}

	remaining := map[intake.RowRef]int{}
	for _, p := range pairs {
		remaining[p.Incident.SourceRow]++
	}

	for _, p := range pairs {
		minutes, method, ok := c.Minutes(p.Consequence)
		if !ok {
			after := res.MatchedIncidents
			if remaining[p.Incident.SourceRow] == 1 {
				after--
			}
			if !intake.MeetsJoinThreshold(after, total) {
				res.Records, res.Explicit, res.DateDerived = nil, 0, 0
				return res, intake.InsufficientDataForMinutes(p.Consequence.SourceRow, after, total)
			}
			remaining[p.Incident.SourceRow]--
			res.MatchedIncidents = after
			entry := intake.NewExclusion(p.Consequence.SourceRow, intake.ReasonInsufficientDataForMinutes, intake.StageMinutes)
			entry.Key = p.Incident.IncidentNumber
			res.Exclusions = append(res.Exclusions, entry)
			continue
		}

		switch method {
		case intake.MinutesExplicit:
			res.Explicit++
		case intake.MinutesDateDerived:
			res.DateDerived++
		}
		res.Records = append(res.Records, intake.JoinedRecord{
			Incident:      p.Incident,
			Consequence:   p.Consequence,
			Minutes:       minutes,
			MinutesMethod: method,
		})
	}
	return res, nil
}
