package minutes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intakegate/domain/intake"
)

func d(year int, month time.Month, day int) *intake.Date {
	date := intake.NewDate(year, month, day)
	return &date
}

func pair(index int, start, end *intake.Date, explicit *int) intake.ValidatedPair {
	key := string(rune('A' + index))
	return intake.ValidatedPair{
		Incident: intake.IncidentRecord{IncidentNumber: key, SourceRow: intake.RowRef{File: intake.RoleIncident, Index: index}},
		Consequence: intake.ConsequenceRecord{
			IncidentNumber:  key,
			Type:            intake.ConsequenceISS,
			StartDate:       start,
			EndDate:         end,
			ExplicitMinutes: explicit,
			SourceRow:       intake.RowRef{File: intake.RoleConsequence, Index: index},
		},
	}
}

func intPtr(n int) *int { return &n }

func TestInstructionalDays(t *testing.T) {
	tests := []struct {
		name       string
		start, end *intake.Date
		want       int
	}{
		{"monday to friday", d(2024, 1, 8), d(2024, 1, 12), 5},
		{"single weekday", d(2024, 1, 10), d(2024, 1, 10), 1},
		{"single saturday", d(2024, 1, 13), d(2024, 1, 13), 0},
		{"pure weekend", d(2024, 1, 13), d(2024, 1, 14), 0},
		{"friday to monday", d(2024, 1, 12), d(2024, 1, 15), 2},
		{"two full weeks", d(2024, 1, 8), d(2024, 1, 21), 10},
		{"sunday start", d(2024, 1, 7), d(2024, 1, 20), 10},
		{"across leap day", d(2024, 2, 26), d(2024, 3, 1), 5},
		{"across year end", d(2023, 12, 29), d(2024, 1, 2), 3},
		{"school year", d(2023, 8, 21), d(2024, 5, 31), 205},
		{"reversed", d(2024, 1, 12), d(2024, 1, 8), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InstructionalDays(*tt.start, *tt.end))
		})
	}
}

func TestInstructionalDaysMatchesDayByDayCount(t *testing.T) {
	start := intake.NewDate(2024, time.January, 1)
	for span := 0; span < 60; span++ {
		for offset := 0; offset < 7; offset++ {
			s := intake.DateOf(start.Time().AddDate(0, 0, offset))
			e := intake.DateOf(s.Time().AddDate(0, 0, span))
			want := 0
			for cur := s.Time(); !cur.After(e.Time()); cur = cur.AddDate(0, 0, 1) {
				if cur.Weekday() != time.Saturday && cur.Weekday() != time.Sunday {
					want++
				}
			}
			require.Equal(t, want, InstructionalDays(s, e), "%s..%s", s, e)
		}
	}
}

func TestInstructionalDays_LongRange(t *testing.T) {
	s := intake.NewDate(1700, time.January, 1)
	e := intake.NewDate(2024, time.January, 1)
	want := 0
	for cur := s.Time(); !cur.After(e.Time()); cur = cur.AddDate(0, 0, 1) {
		if cur.Weekday() != time.Saturday && cur.Weekday() != time.Sunday {
			want++
		}
	}
	assert.Equal(t, 84527, want)
	assert.Equal(t, want, InstructionalDays(s, e))
}

func TestCompute_OffsetTimestampsStayOnWeekend(t *testing.T) {
	start, err := intake.ParseDate("2024-01-06T09:00:00-06:00")
	require.NoError(t, err)
	end, err := intake.ParseDate("2024-01-07T20:00:00-05:00")
	require.NoError(t, err)

	res, err := NewCalculator().Compute([]intake.ValidatedPair{pair(0, &start, &end, nil)}, 1, 1)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 0, res.Records[0].Minutes)
	assert.Equal(t, intake.MinutesDateDerived, res.Records[0].MinutesMethod)
}

func TestCompute(t *testing.T) {
	pairs := []intake.ValidatedPair{
		pair(0, d(2024, 1, 8), d(2024, 1, 12), nil),
		pair(1, d(2024, 1, 8), d(2024, 1, 12), intPtr(95)),
		pair(2, d(2024, 1, 10), d(2024, 1, 10), nil),
		pair(3, d(2024, 1, 13), d(2024, 1, 14), nil),
		pair(4, d(2024, 1, 13), d(2024, 1, 14), intPtr(0)),
	}

	res, err := NewCalculator().Compute(pairs, 5, 5)
	require.NoError(t, err)
	require.Len(t, res.Records, 5)

	assert.Equal(t, 2400, res.Records[0].Minutes)
	assert.Equal(t, intake.MinutesDateDerived, res.Records[0].MinutesMethod)
	assert.Equal(t, 95, res.Records[1].Minutes)
	assert.Equal(t, intake.MinutesExplicit, res.Records[1].MinutesMethod)
	assert.Equal(t, 480, res.Records[2].Minutes)
	assert.Equal(t, 0, res.Records[3].Minutes)
	assert.Equal(t, intake.MinutesDateDerived, res.Records[3].MinutesMethod)
	assert.Equal(t, 0, res.Records[4].Minutes)
	assert.Equal(t, intake.MinutesExplicit, res.Records[4].MinutesMethod)

	assert.Equal(t, 2, res.Explicit)
	assert.Equal(t, 3, res.DateDerived)
	assert.Empty(t, res.Exclusions)
}

func TestCompute_InsufficientData(t *testing.T) {
	var pairs []intake.ValidatedPair
	for i := 0; i < 20; i++ {
		pairs = append(pairs, pair(i, d(2024, 1, 8), d(2024, 1, 8), nil))
	}
	pairs[4] = pair(4, nil, nil, nil)

	res, err := NewCalculator().Compute(pairs, 20, 20)
	require.NoError(t, err)
	assert.Len(t, res.Records, 19)
	assert.Equal(t, 19, res.MatchedIncidents)
	require.Len(t, res.Exclusions, 1)
	assert.Equal(t, intake.ReasonInsufficientDataForMinutes, res.Exclusions[0].Reason)

	pairs[9] = pair(9, d(2024, 1, 8), nil, nil)
	res, err = NewCalculator().Compute(pairs, 20, 20)
	require.Error(t, err)
	halt, ok := intake.AsHalt(err)
	require.True(t, ok)
	assert.Equal(t, intake.FailureInsufficientDataForMinutes, halt.Failure.Reason)
	assert.Equal(t, 9, halt.Failure.RowRef.Index)
	assert.Nil(t, res.Records)
}
