package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/sloppy/nucleireport/internal/export"
	"github.com/sloppy/nucleireport/internal/inventory"
)

// EnvPrefix is prepended to every environment override, e.g.
// NUCLEI_REPORT_LOG_LEVEL.
const EnvPrefix = "NUCLEI_REPORT"

// DefaultName is the config file looked up in the working directory when no
// explicit file is given.
const DefaultName = "nuclei-report"

const (
	KeyMode      = "mode"
	KeyWorkers   = "workers"
	KeyOutput    = "output"
	KeyFormat    = "format"
	KeyLocale    = "locale"
	KeyDB        = "db"
	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"
	KeyServeAddr = "serve.addr"
)

// Settings is the resolved configuration for one invocation.
type Settings struct {
	Mode      inventory.Mode
	Workers   int
	Output    string
	Formats   []export.Format
	Locale    string
	DB        string
	LogLevel  string
	LogFormat string
	ServeAddr string
}

// New returns a viper instance with defaults and env overrides applied. When
// file is empty, nuclei-report.yaml in the working directory is read if it
// exists; an explicit file must exist.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
		return v, nil
	}

	v.SetConfigName(DefaultName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyMode, string(inventory.ModeDevice))
	v.SetDefault(KeyWorkers, defaultWorkers())
	v.SetDefault(KeyOutput, ".")
	v.SetDefault(KeyFormat, string(export.FormatCSV))
	v.SetDefault(KeyLocale, "en")
	v.SetDefault(KeyDB, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyServeAddr, "127.0.0.1:8080")
}

// Resolve validates the values held by v.
func Resolve(v *viper.Viper) (Settings, error) {
	mode, err := inventory.ParseMode(v.GetString(KeyMode))
	if err != nil {
		return Settings{}, err
	}
	formats, err := export.ParseFormats(v.GetStringSlice(KeyFormat))
	if err != nil {
		return Settings{}, err
	}
	if len(formats) == 0 {
		return Settings{}, fmt.Errorf("%w: no format given", export.ErrUnknownFormat)
	}
	workers := v.GetInt(KeyWorkers)
	if workers < 1 {
		return Settings{}, fmt.Errorf("workers must be at least 1, got %d", workers)
	}
	locale := strings.ToLower(strings.TrimSpace(v.GetString(KeyLocale)))
	if locale != "en" && locale != "zh" {
		return Settings{}, fmt.Errorf("unknown locale %q (want en or zh)", v.GetString(KeyLocale))
	}

	return Settings{
		Mode:      mode,
		Workers:   workers,
		Output:    v.GetString(KeyOutput),
		Formats:   formats,
		Locale:    locale,
		DB:        v.GetString(KeyDB),
		LogLevel:  v.GetString(KeyLogLevel),
		LogFormat: v.GetString(KeyLogFormat),
		ServeAddr: v.GetString(KeyServeAddr),
	}, nil
}

// WantsArchive reports whether runs should be stored in the SQLite archive.
func (s Settings) WantsArchive() bool {
	if s.DB != "" {
		return true
	}
	for _, f := range s.Formats {
		if f == export.FormatSQLite {
			return true
		}
	}
	return false
}

// ArchivePath is where runs are stored: the configured db, or
// nuclei-report.db in the output directory when only the sqlite format asked
// for it.
func (s Settings) ArchivePath() string {
	if s.DB != "" {
		return s.DB
	}
	return filepath.Join(s.Output, DefaultName+".db")
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n > 8 {
		return 8
	}
	return n
}
