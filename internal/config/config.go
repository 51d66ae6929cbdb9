package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"intakegate/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Intake   IntakeConfig   `mapstructure:"intake"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig selects the run store. Driver "none" keeps reports on disk/stdout only.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port          string `mapstructure:"port"`
	MaxUploadMB   int64  `mapstructure:"max_upload_mb"`
	ReadTimeoutS  int    `mapstructure:"read_timeout_s"`
	WriteTimeoutS int    `mapstructure:"write_timeout_s"`
}

// IntakeConfig holds the engine knobs an operator is allowed to turn
type IntakeConfig struct {
	Encoding              string              `mapstructure:"encoding"`
	Delimiter             string              `mapstructure:"delimiter"`
	SimilarityFloor       float64             `mapstructure:"similarity_floor"`
	CaseInsensitiveKeys   bool                `mapstructure:"case_insensitive_keys"`
	IncidentDuplicates    string              `mapstructure:"incident_duplicates"`
	ConsequenceDuplicates string              `mapstructure:"consequence_duplicates"`
	IntegrityWorkers      int                 `mapstructure:"integrity_workers"`
	ExtraAliases          map[string][]string `mapstructure:"extra_aliases"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var (
	validDrivers               = []string{"none", "postgres", "sqlite"}
	validEncodings             = []string{"auto", "utf-8", "utf-16", "windows-1252", "latin1"}
	validIncidentDuplicates    = []string{"exclude", "first", "last"}
	validConsequenceDuplicates = []string{"exclude", "first", "last", "all"}
)

// SetDefaults registers every key so environment overrides are picked up by Unmarshal
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "none")
	v.SetDefault("database.url", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.read_timeout_s", 30)
	v.SetDefault("server.write_timeout_s", 60)
	v.SetDefault("intake.encoding", "auto")
	v.SetDefault("intake.delimiter", "")
	v.SetDefault("intake.similarity_floor", 0.80)
	v.SetDefault("intake.case_insensitive_keys", false)
	v.SetDefault("intake.incident_duplicates", "exclude")
	v.SetDefault("intake.consequence_duplicates", "exclude")
	v.SetDefault("intake.integrity_workers", 1)
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "console")
}

// Load reads configuration from an optional file and INTAKE_* environment variables
func Load(configFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("INTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keep the conventional names working alongside the prefixed ones.
	_ = v.BindEnv("database.url", "INTAKE_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("server.port", "INTAKE_SERVER_PORT", "PORT")
	_ = v.BindEnv("log.level", "INTAKE_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "INTAKE_LOG_FORMAT", "LOG_FORMAT")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(errors.ConfigInvalid(err.Error()), "failed to read config file %s", configFile)
		}
	}

	return LoadWithViper(v)
}

// LoadWithViper unmarshals and validates configuration from a prepared viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to unmarshal configuration")
	}
	config.normalize()

	if err := validateConfig(&config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return &config, nil
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	config.normalize()
	return &config
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Intake.Encoding = strings.ToLower(strings.TrimSpace(c.Intake.Encoding))
	c.Intake.IncidentDuplicates = strings.ToLower(strings.TrimSpace(c.Intake.IncidentDuplicates))
	c.Intake.ConsequenceDuplicates = strings.ToLower(strings.TrimSpace(c.Intake.ConsequenceDuplicates))
	if c.Intake.Delimiter == `\t` {
		c.Intake.Delimiter = "\t"
	}
}

func validateConfig(config *Config) error {
	if !contains(validDrivers, config.Database.Driver) {
		return errors.ConfigInvalid(fmt.Sprintf("database.driver must be one of %v, got %q", validDrivers, config.Database.Driver))
	}
	if config.Database.Driver != "none" && config.Database.URL == "" {
		return errors.ConfigInvalid("database.url is required when database.driver is " + config.Database.Driver)
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server.port is required")
	}
	if !contains(validEncodings, config.Intake.Encoding) {
		return errors.ConfigInvalid(fmt.Sprintf("intake.encoding must be one of %v, got %q", validEncodings, config.Intake.Encoding))
	}
	if len([]rune(config.Intake.Delimiter)) > 1 {
		return errors.ConfigInvalid("intake.delimiter must be a single character")
	}
	if config.Intake.SimilarityFloor <= 0 || config.Intake.SimilarityFloor > 1 {
		return errors.ConfigInvalid("intake.similarity_floor must be in (0, 1]")
	}
	if !contains(validIncidentDuplicates, config.Intake.IncidentDuplicates) {
		return errors.ConfigInvalid(fmt.Sprintf("intake.incident_duplicates must be one of %v", validIncidentDuplicates))
	}
	if !contains(validConsequenceDuplicates, config.Intake.ConsequenceDuplicates) {
		return errors.ConfigInvalid(fmt.Sprintf("intake.consequence_duplicates must be one of %v", validConsequenceDuplicates))
	}
	if config.Intake.IntegrityWorkers < 1 {
		return errors.ConfigInvalid("intake.integrity_workers must be at least 1")
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
