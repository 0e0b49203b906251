package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/csvscope/internal/analysis"
	"github.com/KaramelBytes/csvscope/internal/charts"
)

// Global configuration structure.
type Global struct {
	// HTTP server
	Addr            string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	MaxUploadMB     int           `mapstructure:"max_upload_mb" yaml:"max_upload_mb" validate:"min=1,max=1024"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst" validate:"gte=0"`

	// Sessions
	SessionTTL  time.Duration `mapstructure:"session_ttl" yaml:"session_ttl" validate:"gte=0"`
	MaxSessions int           `mapstructure:"max_sessions" yaml:"max_sessions" validate:"gte=0"`

	// Tables and charts
	MaxRows     int    `mapstructure:"max_rows" yaml:"max_rows" validate:"gte=0"`
	FillText    string `mapstructure:"fill_text" yaml:"fill_text" validate:"required,notnull"`
	PreviewRows int    `mapstructure:"preview_rows" yaml:"preview_rows" validate:"min=1,max=1000"`
	TopGroups   int    `mapstructure:"top_groups" yaml:"top_groups" validate:"min=1,max=100"`
	MaxBins     int    `mapstructure:"max_bins" yaml:"max_bins" validate:"min=1,max=500"`
	ChartWidth  int    `mapstructure:"chart_width" yaml:"chart_width" validate:"min=200,max=4000"`
	ChartHeight int    `mapstructure:"chart_height" yaml:"chart_height" validate:"min=150,max=4000"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=json text"`
	LogOutput string `mapstructure:"log_output" yaml:"log_output" validate:"required"`
}

// Keys lists every configuration key in display order.
func Keys() []string {
	t := reflect.TypeOf(Global{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		keys = append(keys, t.Field(i).Tag.Get("mapstructure"))
	}
	return keys
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("shutdown_timeout", 15*time.Second)
	v.SetDefault("rate_limit_rps", 20.0)
	v.SetDefault("rate_limit_burst", 40)
	v.SetDefault("session_ttl", 30*time.Minute)
	v.SetDefault("max_sessions", 100)
	v.SetDefault("max_rows", 1_000_000)
	v.SetDefault("fill_text", analysis.DefaultFillText)
	v.SetDefault("preview_rows", 50)
	v.SetDefault("top_groups", 20)
	v.SetDefault("max_bins", 50)
	v.SetDefault("chart_width", 800)
	v.SetDefault("chart_height", 480)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_output", "stderr")
}

// Default returns the built-in configuration without reading files or env.
func Default() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	// defaults always decode
	_ = v.Unmarshal(&c)
	return &c
}

// DefaultPath returns ~/.csvscope/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".csvscope", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.csvscope/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults; command flags are applied by callers.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CSVSCOPE")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".csvscope"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Use config key names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("mapstructure")
	})
	// Filled cells must not read back as missing
	_ = v.RegisterValidation("notnull", func(fl validator.FieldLevel) bool {
		return !analysis.IsNullToken(fl.Field().String())
	})
	return v
}

// Validate checks value ranges and enumerations.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (%s)", fe.Field(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Set parses value into the field named key and validates the result.
func (c *Global) Set(key, value string) error {
	next := *c
	var err error
	switch key {
	case "addr":
		next.Addr = value
	case "fill_text":
		next.FillText = value
	case "log_level":
		next.LogLevel = strings.ToLower(value)
	case "log_format":
		next.LogFormat = strings.ToLower(value)
	case "log_output":
		next.LogOutput = value
	case "max_upload_mb":
		next.MaxUploadMB, err = strconv.Atoi(value)
	case "rate_limit_burst":
		next.RateLimitBurst, err = strconv.Atoi(value)
	case "max_sessions":
		next.MaxSessions, err = strconv.Atoi(value)
	case "max_rows":
		next.MaxRows, err = strconv.Atoi(value)
	case "preview_rows":
		next.PreviewRows, err = strconv.Atoi(value)
	case "top_groups":
		next.TopGroups, err = strconv.Atoi(value)
	case "max_bins":
		next.MaxBins, err = strconv.Atoi(value)
	case "chart_width":
		next.ChartWidth, err = strconv.Atoi(value)
	case "chart_height":
		next.ChartHeight, err = strconv.Atoi(value)
	case "rate_limit_rps":
		next.RateLimitRPS, err = strconv.ParseFloat(value, 64)
	case "shutdown_timeout":
		next.ShutdownTimeout, err = time.ParseDuration(value)
	case "session_ttl":
		next.SessionTTL, err = time.ParseDuration(value)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Get returns the value of key formatted for display.
func (c *Global) Get(key string) (string, bool) {
	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(*c)
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("mapstructure") == key {
			return fmt.Sprint(v.Field(i).Interface()), true
		}
	}
	return "", false
}

// AnalysisOptions returns table loading options.
func (c *Global) AnalysisOptions() analysis.Options {
	opt := analysis.DefaultOptions()
	opt.MaxRows = c.MaxRows
	return opt
}

// ChartOptions returns chart geometry and binning options.
func (c *Global) ChartOptions() charts.Options {
	return charts.Options{
		Width:     c.ChartWidth,
		Height:    c.ChartHeight,
		MaxBins:   c.MaxBins,
		TopGroups: c.TopGroups,
	}
}

// MaxUploadBytes returns the upload size cap in bytes.
func (c *Global) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
