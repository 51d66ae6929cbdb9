package tabular

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intakegate/domain/intake"
)

func joined() []intake.JoinedRecord {
	at := time.Date(2024, 1, 8, 9, 15, 0, 0, time.UTC)
	start := intake.Date{Year: 2024, Month: time.January, Day: 8}
	end := intake.Date{Year: 2024, Month: time.January, Day: 9}
	explicit := 120
	return []intake.JoinedRecord{
		{
			Incident: intake.IncidentRecord{
				IncidentNumber: "INC-001", DateTime: &at, Building: "North",
				Attributes: map[string]string{"grade": "07"},
				SourceRow:  intake.RowRef{File: intake.RoleIncident, Index: 0},
			},
			Consequence: intake.ConsequenceRecord{
				IncidentNumber: "INC-001", Type: intake.ConsequenceISS, StartDate: &start, EndDate: &end,
				SourceRow: intake.RowRef{File: intake.RoleConsequence, Index: 3},
			},
			Minutes: 960, MinutesMethod: intake.MinutesDateDerived,
		},
		{
			Incident: intake.IncidentRecord{
				IncidentNumber: "INC-002", DateTimeRaw: "someday",
				SourceRow: intake.RowRef{File: intake.RoleIncident, Index: 1},
			},
			Consequence: intake.ConsequenceRecord{
				IncidentNumber: "INC-002", Type: intake.ConsequenceOSS, ExplicitMinutes: &explicit,
				Attributes: map[string]string{"campus": "East"},
				SourceRow:  intake.RowRef{File: intake.RoleConsequence, Index: 0},
			},
			Minutes: 120, MinutesMethod: intake.MinutesExplicit,
		},
	}
}

func TestRecordsTable(t *testing.T) {
	header, rows := RecordsTable(joined())

	assert.Equal(t, append(append([]string{}, RecordsHeader...), "incident.grade", "consequence.campus"), header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{
		"INC-001", "2024-01-08T09:15:00Z", "North", "", "ISS", "2024-01-08", "2024-01-09", "",
		"960", "date_derived", "0", "3", "07", "",
	}, rows[0])
	assert.Equal(t, []string{
		"INC-002", "", "", "", "OSS", "", "", "120",
		"120", "explicit", "1", "0", "", "East",
	}, rows[1])
}

func TestWriteRecords_ReadsBack(t *testing.T) {
	for _, name := range []string{"joined.csv", "joined.tsv", "joined.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, WriteRecords(path, joined()))

			file, err := read(t, DefaultReaderConfig(), intake.RoleIncident, path)
			require.NoError(t, err)
			header, _ := RecordsTable(joined())
			assert.Equal(t, header, file.Identity.Headers)
			require.Equal(t, 2, file.Identity.RowCount)
			v, _ := file.Rows[1].Value("minutes_method")
			assert.Equal(t, "explicit", v)
		})
	}
}

func TestWriteRecords_UnsupportedFormat(t *testing.T) {
	err := WriteRecords(filepath.Join(t.TempDir(), "joined.json"), joined())
	assert.ErrorContains(t, err, "unsupported export format")
}
