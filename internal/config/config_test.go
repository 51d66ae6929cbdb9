package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intakegate/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "none", cfg.Database.Driver)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "auto", cfg.Intake.Encoding)
	assert.InDelta(t, 0.80, cfg.Intake.SimilarityFloor, 1e-9)
	assert.Equal(t, "exclude", cfg.Intake.IncidentDuplicates)
	assert.Equal(t, "exclude", cfg.Intake.ConsequenceDuplicates)
	assert.Equal(t, 1, cfg.Intake.IntegrityWorkers)
	require.NoError(t, validateConfig(cfg))
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intake.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: SQLite
  url: /var/lib/intake/runs.db
intake:
  encoding: Windows-1252
  delimiter: '\t'
  consequence_duplicates: all
  integrity_workers: 4
  extra_aliases:
    incident_number:
      - Referral ID
log:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/var/lib/intake/runs.db", cfg.Database.URL)
	assert.Equal(t, "windows-1252", cfg.Intake.Encoding)
	assert.Equal(t, "\t", cfg.Intake.Delimiter)
	assert.Equal(t, "all", cfg.Intake.ConsequenceDuplicates)
	assert.Equal(t, 4, cfg.Intake.IntegrityWorkers)
	assert.Equal(t, []string{"Referral ID"}, cfg.Intake.ExtraAliases["incident_number"])
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("INTAKE_DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://intake@localhost/intake?sslmode=disable")
	t.Setenv("PORT", "9090")
	t.Setenv("INTAKE_INTAKE_CASE_INSENSITIVE_KEYS", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://intake@localhost/intake?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.Intake.CaseInsensitiveKeys)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  interface{}
	}{
		{"unknown driver", "database.driver", "mongo"},
		{"store without url", "database.driver", "sqlite"},
		{"empty port", "server.port", ""},
		{"unknown encoding", "intake.encoding", "ebcdic"},
		{"long delimiter", "intake.delimiter", ";;"},
		{"zero similarity floor", "intake.similarity_floor", 0},
		{"similarity floor above one", "intake.similarity_floor", 1.5},
		{"incident duplicates all", "intake.incident_duplicates", "all"},
		{"unknown consequence policy", "intake.consequence_duplicates", "merge"},
		{"no workers", "intake.integrity_workers", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.val)
			_, err := LoadWithViper(v)
			assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid), "got %v", err)
		})
	}
}
