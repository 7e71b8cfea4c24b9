// Package config provides configuration loading and validation for scovat.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/scovat/pkg/report"
)

// Sentinel validation errors.
var (
	ErrInvalidWorkers      = errors.New("fold workers must not be negative")
	ErrInvalidLogLevel     = errors.New("invalid log level")
	ErrInvalidLogFormat    = errors.New("invalid log format")
	ErrInvalidReportFormat = errors.New("invalid report format")
	ErrInvalidFileSize     = errors.New("invalid max file size")
	ErrInvalidSampleRatio  = errors.New("sample ratio must be between 0 and 1")
)

// Log output formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

const (
	configName = "scovat"
	envPrefix  = "SCOVAT"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Config holds all configuration for scovat.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Fold      FoldConfig      `mapstructure:"fold"`
	Codec     CodecConfig     `mapstructure:"codec"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FoldConfig holds fold configuration.
type FoldConfig struct {
	Workers   int  `mapstructure:"workers"`
	Overwrite bool `mapstructure:"overwrite"`
}

// CodecConfig holds intermediate format decoding configuration.
type CodecConfig struct {
	SkipUnknownTokens bool   `mapstructure:"skip_unknown_tokens"`
	MaxFileSize       string `mapstructure:"max_file_size"`
}

// AnalysisConfig holds analysis configuration.
type AnalysisConfig struct {
	Strict bool   `mapstructure:"strict"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry and metrics export configuration.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	MetricsFile  string  `mapstructure:"metrics_file"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	DebugTrace   bool    `mapstructure:"debug_trace"`
}

// LoadConfig loads configuration from file and environment variables. An
// empty configPath searches for scovat.yaml; a missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME/.config/scovat")
		viperCfg.AddConfigPath("/etc/scovat")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return &Config{
		Logging:  LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Fold:     FoldConfig{Workers: DefaultFoldWorkers, Overwrite: DefaultFoldOverwrite},
		Codec:    CodecConfig{SkipUnknownTokens: DefaultSkipUnknownTokens, MaxFileSize: DefaultMaxFileSize},
		Analysis: AnalysisConfig{Strict: DefaultAnalysisStrict, Format: DefaultAnalysisFormat},
		Telemetry: TelemetryConfig{
			SampleRatio: DefaultSampleRatio,
		},
	}
}

// LogLevel returns the configured slog level. Unknown levels map to info.
func (c *Config) LogLevel() slog.Level {
	level, ok := logLevels[strings.ToLower(c.Logging.Level)]
	if !ok {
		return slog.LevelInfo
	}

	return level
}

// MaxFileSizeBytes parses codec.max_file_size. Zero disables the limit.
func (c *Config) MaxFileSizeBytes() (int64, error) {
	if c.Codec.MaxFileSize == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(c.Codec.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidFileSize, c.Codec.MaxFileSize, err)
	}

	return int64(size), nil //nolint:gosec // bounded by humanize's parser to realistic sizes
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	def := Default()

	viperCfg.SetDefault("logging.level", def.Logging.Level)
	viperCfg.SetDefault("logging.format", def.Logging.Format)

	viperCfg.SetDefault("fold.workers", def.Fold.Workers)
	viperCfg.SetDefault("fold.overwrite", def.Fold.Overwrite)

	viperCfg.SetDefault("codec.skip_unknown_tokens", def.Codec.SkipUnknownTokens)
	viperCfg.SetDefault("codec.max_file_size", def.Codec.MaxFileSize)

	viperCfg.SetDefault("analysis.strict", def.Analysis.Strict)
	viperCfg.SetDefault("analysis.format", def.Analysis.Format)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.metrics_file", "")
	viperCfg.SetDefault("telemetry.sample_ratio", def.Telemetry.SampleRatio)
	viperCfg.SetDefault("telemetry.debug_trace", false)
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if config.Fold.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, config.Fold.Workers)
	}

	if _, ok := logLevels[strings.ToLower(config.Logging.Level)]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, config.Logging.Level)
	}

	if !slices.Contains([]string{LogFormatText, LogFormatJSON}, strings.ToLower(config.Logging.Format)) {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if _, err := report.ParseFormat(config.Analysis.Format); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidReportFormat, config.Analysis.Format)
	}

	if _, err := config.MaxFileSizeBytes(); err != nil {
		return err
	}

	if config.Telemetry.SampleRatio < 0 || config.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, config.Telemetry.SampleRatio)
	}

	return nil
}
