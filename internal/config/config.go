package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Filter   FilterConfig   `yaml:"filter" envconfig:"FILTER"`
	Export   ExportConfig   `yaml:"export" envconfig:"EXPORT"`
	Otel     OtelConfig     `yaml:"otel" envconfig:"OTEL"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port             int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout      time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout     time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout      time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes   int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	OperationTimeout time.Duration `yaml:"operation_timeout" envconfig:"OPERATION_TIMEOUT" validate:"gt=0"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" validate:"min=1"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// FilterConfig describes where keyword and name data come from and how rows
// are classified.
type FilterConfig struct {
	KeywordsFile     string `yaml:"keywords_file" envconfig:"KEYWORDS_FILE"`
	TranslationsFile string `yaml:"translations_file" envconfig:"TRANSLATIONS_FILE"`
	// NamesFile replaces the embedded first-name table when set.
	NamesFile     string `yaml:"names_file" envconfig:"NAMES_FILE"`
	TextColumn    string `yaml:"text_column" envconfig:"TEXT_COLUMN" validate:"required"`
	NameColumn    string `yaml:"name_column" envconfig:"NAME_COLUMN" validate:"required"`
	GenderColumn  string `yaml:"gender_column" envconfig:"GENDER_COLUMN" validate:"required"`
	PartitionMode string `yaml:"partition_mode" envconfig:"PARTITION_MODE" validate:"oneof=copy split"`
	GenderOrder   string `yaml:"gender_order" envconfig:"GENDER_ORDER" validate:"oneof=before after off"`
	PreviewRows   int    `yaml:"preview_rows" envconfig:"PREVIEW_ROWS" validate:"min=0,max=1000"`
}

// ExportConfig controls the produced workbook and its download lifetime.
type ExportConfig struct {
	IncludeEmptySheets bool          `yaml:"include_empty_sheets" envconfig:"INCLUDE_EMPTY_SHEETS"`
	FilenameSuffix     string        `yaml:"filename_suffix" envconfig:"FILENAME_SUFFIX"`
	PrimarySheet       string        `yaml:"primary_sheet" envconfig:"PRIMARY_SHEET" validate:"omitempty,max=31"`
	TaggedSheet        string        `yaml:"tagged_sheet" envconfig:"TAGGED_SHEET" validate:"omitempty,max=31"`
	RemainingSheet     string        `yaml:"remaining_sheet" envconfig:"REMAINING_SHEET" validate:"omitempty,max=31"`
	FilteredSheet      string        `yaml:"filtered_sheet" envconfig:"FILTERED_SHEET" validate:"omitempty,max=31"`
	ArtifactTTL        time.Duration `yaml:"artifact_ttl" envconfig:"ARTIFACT_TTL" validate:"gt=0"`
	MaxUploadBytes     int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" validate:"gt=0"`
}

// OtelConfig selects the telemetry exporters
type OtelConfig struct {
	ServiceName     string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TracesExporter  string `yaml:"traces_exporter" envconfig:"TRACES_EXPORTER" validate:"oneof=none stdout"`
	MetricsExporter string `yaml:"metrics_exporter" envconfig:"METRICS_EXPORTER" validate:"oneof=none prometheus"`
}

// Load loads configuration from defaults, the config file and the environment.
// Environment variables win over the file, the file wins over defaults.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file. An empty path skips the file.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			if err := loadFromFile(configFile, cfg); err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	// Fields without a matching variable are left untouched, so env
	// processing happens last.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// resolvePaths turns relative data file paths into absolute ones
func (c *Config) resolvePaths() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	c.Filter.KeywordsFile = paths.Resolve(c.Filter.KeywordsFile)
	c.Filter.TranslationsFile = paths.Resolve(c.Filter.TranslationsFile)
	c.Filter.NamesFile = paths.Resolve(c.Filter.NamesFile)
	if c.Logging.FilePath != "" {
		c.Logging.FilePath = paths.Resolve(c.Logging.FilePath)
	}
	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Output = strings.ToLower(c.Logging.Output)
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	c.Filter.PartitionMode = strings.ToLower(c.Filter.PartitionMode)
	c.Filter.GenderOrder = strings.ToLower(c.Filter.GenderOrder)

	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive when rate limiting is enabled")
	}

	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.FilePath == "" {
		return fmt.Errorf("logging file path is required for output %q", c.Logging.Output)
	}

	names := []string{c.Export.PrimarySheet, c.Export.TaggedSheet, c.Export.RemainingSheet}
	for _, n := range names {
		if n != "" && strings.EqualFold(n, c.Export.FilteredSheet) {
			return fmt.Errorf("sheet name %q is used twice", n)
		}
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG_FILE"); p != "" {
		return p
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      60 * time.Second,
			MaxHeaderBytes:   1 << 20, // 1MB
			ShutdownTimeout:  15 * time.Second,
			OperationTimeout: DefaultOperationTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Filter: FilterConfig{
			KeywordsFile:     DefaultKeywordsFile,
			TranslationsFile: DefaultTranslationsFile,
			TextColumn:       DefaultTextColumn,
			NameColumn:       DefaultNameColumn,
			GenderColumn:     DefaultGenderColumn,
			PartitionMode:    "copy",
			GenderOrder:      "after",
			PreviewRows:      DefaultPreviewRows,
		},
		Export: ExportConfig{
			IncludeEmptySheets: true,
			FilenameSuffix:     DefaultFilenameSuffix,
			PrimarySheet:       SheetOriginal,
			TaggedSheet:        SheetTagged,
			RemainingSheet:     SheetRemaining,
			FilteredSheet:      SheetFiltered,
			ArtifactTTL:        DefaultArtifactTTL,
			MaxUploadBytes:     DefaultMaxUploadBytes,
		},
		Otel: OtelConfig{
			ServiceName:     ServiceName,
			TracesExporter:  "none",
			MetricsExporter: "prometheus",
		},
	}
}
