package config

import (
	"errors"
	"io/fs"
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

	Log     LogConfig
	Data    DataConfig
	Exports ExportsConfig
	Backup  BackupConfig
	Reports ReportsConfig
	Imports ImportsConfig
	Grading GradingConfig
}

// LogConfig selects level and encoding. File, when set, receives a copy of every entry.
type LogConfig struct {
	Level  string
	Format string
	File   string
}

// DataConfig points at the directory holding import CSV files.
type DataConfig struct {
	Dir string
}

// ExportsConfig controls where exports are written and how long they are kept.
type ExportsConfig struct {
	Dir       string
	Retention time.Duration
}

// BackupConfig configures the directory backup utility.
type BackupConfig struct {
	Source   string
	Dir      string
	Compress bool
}

// ReportsConfig tunes on-demand reports.
type ReportsConfig struct {
	TopStudentsLimit int
}

// ImportsConfig configures the background import worker pool.
type ImportsConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// GradingConfig carries the raw marks-to-grade cutpoint policy.
type GradingConfig struct {
	Cutpoints string
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
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
		File:   v.GetString("LOG_FILE"),
	}

	cfg.Data = DataConfig{Dir: v.GetString("DATA_DIR")}

	cfg.Exports = ExportsConfig{
		Dir:       v.GetString("EXPORT_DIR"),
		Retention: parseDuration(v.GetString("EXPORT_RETENTION"), 0),
	}

	cfg.Backup = BackupConfig{
		Source:   v.GetString("BACKUP_SOURCE"),
		Dir:      v.GetString("BACKUP_DIR"),
		Compress: v.GetBool("BACKUP_COMPRESS"),
	}

	topLimit := v.GetInt("TOP_STUDENTS_LIMIT")
	if topLimit <= 0 {
		topLimit = 5
	}
	cfg.Reports = ReportsConfig{TopStudentsLimit: topLimit}

	cfg.Imports = ImportsConfig{
		Workers:    v.GetInt("IMPORT_WORKERS"),
		MaxRetries: v.GetInt("IMPORT_RETRIES"),
		RetryDelay: parseDuration(v.GetString("IMPORT_RETRY_DELAY"), 500*time.Millisecond),
	}

	cfg.Grading = GradingConfig{Cutpoints: v.GetString("GRADE_CUTPOINTS")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_FILE", "")

	v.SetDefault("DATA_DIR", "./test-data")
	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_RETENTION", "0")

	v.SetDefault("BACKUP_SOURCE", ".")
	v.SetDefault("BACKUP_DIR", "./backups")
	v.SetDefault("BACKUP_COMPRESS", false)

	v.SetDefault("TOP_STUDENTS_LIMIT", 5)

	v.SetDefault("IMPORT_WORKERS", 2)
	v.SetDefault("IMPORT_RETRIES", 1)
	v.SetDefault("IMPORT_RETRY_DELAY", "500ms")

	v.SetDefault("GRADE_CUTPOINTS", "S:90,A:80,B:70,C:60,D:50,E:40,F:0")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" || raw == "0" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
