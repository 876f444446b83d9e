package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env string

	Database DatabaseConfig
	Seasons  SeasonConfig
	Roster   RosterConfig
	Log      LogConfig
	Jobs     JobsConfig
	Exports  ExportsConfig
}

// DatabaseConfig locates the attendance store on disk.
type DatabaseConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// SeasonConfig holds the two reporting window anchors as month+day pairs.
// Each resolves to the most recent occurrence of that month and day on or
// before the reference date.
type SeasonConfig struct {
	SchoolYearMonth  int
	SchoolYearDay    int
	BuildSeasonMonth int
	BuildSeasonDay   int
}

// RosterConfig carries roster policy switches.
type RosterConfig struct {
	EnforceUniqueEmail bool
}

type LogConfig struct {
	Level    string
	Format   string
	File     string
	MaxSize  int
	MaxAge   int
	Backups  int
	Compress bool
}

// JobsConfig tunes the background worker queue used by bulk operations.
type JobsConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// ExportsConfig controls where rendered report files land.
type ExportsConfig struct {
	Dir string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing .env is fine; defaults and the environment cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Database = DatabaseConfig{
		Path:        v.GetString("DB_PATH"),
		BusyTimeout: parseDuration(v.GetString("DB_BUSY_TIMEOUT"), 5*time.Second),
	}

	cfg.Seasons = SeasonConfig{
		SchoolYearMonth:  v.GetInt("SCHOOL_YEAR_START_MONTH"),
		SchoolYearDay:    v.GetInt("SCHOOL_YEAR_START_DAY"),
		BuildSeasonMonth: v.GetInt("BUILD_SEASON_START_MONTH"),
		BuildSeasonDay:   v.GetInt("BUILD_SEASON_START_DAY"),
	}
	if err := cfg.Seasons.validate(); err != nil {
		return nil, err
	}

	cfg.Roster = RosterConfig{
		EnforceUniqueEmail: v.GetBool("ENFORCE_UNIQUE_EMAIL"),
	}

	cfg.Log = LogConfig{
		Level:    v.GetString("LOG_LEVEL"),
		Format:   v.GetString("LOG_FORMAT"),
		File:     v.GetString("LOG_FILE"),
		MaxSize:  v.GetInt("LOG_MAX_SIZE_MB"),
		MaxAge:   v.GetInt("LOG_MAX_AGE_DAYS"),
		Backups:  v.GetInt("LOG_MAX_BACKUPS"),
		Compress: v.GetBool("LOG_COMPRESS"),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		BufferSize: v.GetInt("JOBS_BUFFER_SIZE"),
		MaxRetries: v.GetInt("JOBS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOBS_RETRY_DELAY"), time.Second),
	}

	cfg.Exports = ExportsConfig{
		Dir: v.GetString("EXPORTS_DIR"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("DB_PATH", "attendance.db")
	v.SetDefault("DB_BUSY_TIMEOUT", "5s")

	v.SetDefault("SCHOOL_YEAR_START_MONTH", 9)
	v.SetDefault("SCHOOL_YEAR_START_DAY", 1)
	v.SetDefault("BUILD_SEASON_START_MONTH", 1)
	v.SetDefault("BUILD_SEASON_START_DAY", 6)

	v.SetDefault("ENFORCE_UNIQUE_EMAIL", true)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 10)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_COMPRESS", false)

	v.SetDefault("JOBS_WORKERS", 1)
	v.SetDefault("JOBS_BUFFER_SIZE", 8)
	v.SetDefault("JOBS_MAX_RETRIES", 1)
	v.SetDefault("JOBS_RETRY_DELAY", "1s")

	v.SetDefault("EXPORTS_DIR", "./exports")
}

func (s SeasonConfig) validate() error {
	for _, anchor := range []struct {
		name       string
		month, day int
	}{
		{"school year start", s.SchoolYearMonth, s.SchoolYearDay},
		{"build season start", s.BuildSeasonMonth, s.BuildSeasonDay},
	} {
		if anchor.month < 1 || anchor.month > 12 {
			return fmt.Errorf("%s month out of range: %d", anchor.name, anchor.month)
		}
		if anchor.day < 1 || anchor.day > 31 {
			return fmt.Errorf("%s day out of range: %d", anchor.name, anchor.day)
		}
	}
	return nil
}

// SeasonWindows resolves the configured month+day anchors to concrete dates
// relative to the reference time: the most recent occurrence of each anchor
// on or before that date.
func (s SeasonConfig) SeasonWindows(now time.Time) (yearStart, buildStart time.Time) {
	yearStart = resolveAnchor(now, s.SchoolYearMonth, s.SchoolYearDay)
	buildStart = resolveAnchor(now, s.BuildSeasonMonth, s.BuildSeasonDay)
	return yearStart, buildStart
}

func resolveAnchor(now time.Time, month, day int) time.Time {
	anchor := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, now.Location())
	if anchor.After(now) {
		anchor = anchor.AddDate(-1, 0, 0)
	}
	return anchor
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
