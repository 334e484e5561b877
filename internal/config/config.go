// Package config loads kiosk settings from defaults, a .env file, GATECHECK_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "GATECHECK"

// Camera sources
const (
	CameraBrowser = "browser"
	CameraSpool   = "spool"
)

// Config holds the process configuration
type Config struct {
	Addr           string        `mapstructure:"addr" validate:"required,hostname_port"`
	DBPath         string        `mapstructure:"db" validate:"required"`
	CheckInURL     string        `mapstructure:"checkin_url" validate:"omitempty,http_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	DedupeWindow   time.Duration `mapstructure:"dedupe_window" validate:"gte=0"`
	LogLevel       string        `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat      string        `mapstructure:"log_format" validate:"oneof=text json"`
	Camera         string        `mapstructure:"camera" validate:"oneof=browser spool"`
	CameraTimeout  time.Duration `mapstructure:"camera_timeout" validate:"gt=0"`
	SpoolDir       string        `mapstructure:"spool_dir" validate:"required_if=Camera spool"`
	SpoolInterval  time.Duration `mapstructure:"spool_interval" validate:"gt=0"`
	SpoolConsume   bool          `mapstructure:"spool_consume"`
	KafkaBrokers   string        `mapstructure:"kafka_brokers"`
	KafkaTopic     string        `mapstructure:"kafka_topic" validate:"required_with=KafkaBrokers"`
	TicketBaseURL  string        `mapstructure:"ticket_base_url" validate:"omitempty,http_url"`
	EventLabel     string        `mapstructure:"event_label" validate:"max=80"`
	OpenBrowser    bool          `mapstructure:"open_browser"`
	BrowserKiosk   bool          `mapstructure:"browser_kiosk"`
}

// defaults lists every key viper should know about
var defaults = map[string]interface{}{
	"addr":            ":8080",
	"db":              "gatecheck.db",
	"checkin_url":     "",
	"request_timeout": 10 * time.Second,
	"dedupe_window":   1500 * time.Millisecond,
	"log_level":       "info",
	"log_format":      "text",
	"camera":          CameraBrowser,
	"camera_timeout":  15 * time.Second,
	"spool_dir":       "",
	"spool_interval":  200 * time.Millisecond,
	"spool_consume":   true,
	"kafka_brokers":   "",
	"kafka_topic":     "gatecheck.scans",
	"ticket_base_url": "",
	"event_label":     "",
	"open_browser":    false,
	"browser_kiosk":   false,
}

var usage = map[string]string{
	"addr":            "HTTP listen address",
	"db":              "SQLite database path",
	"checkin_url":     "check-in endpoint; a value saved in settings wins",
	"request_timeout": "timeout for one check-in request",
	"dedupe_window":   "ignore a repeat of the last answered code for this long",
	"log_level":       "log level: debug, info, warn, error",
	"log_format":      "log format: text or json",
	"camera":          "camera source: browser or spool",
	"camera_timeout":  "how long to wait for a kiosk page to start its camera",
	"spool_dir":       "directory polled for frame images (camera=spool)",
	"spool_interval":  "spool polling interval",
	"spool_consume":   "delete spool frames after reading them",
	"kafka_brokers":   "comma-separated Kafka brokers for check-in events",
	"kafka_topic":     "Kafka topic for check-in events",
	"ticket_base_url": "URL printed into ticket QR labels",
	"event_label":     "event label shown on the kiosk",
	"open_browser":    "open the kiosk page in a local browser on start",
	"browser_kiosk":   "open the page full screen in Chrome or Chromium when one is installed",
}

// RegisterFlags defines a flag for every key on fs
func RegisterFlags(fs *pflag.FlagSet) {
	for _, key := range Keys() {
		name, help := FlagName(key), usage[key]+" ("+EnvName(key)+")"
		switch def := defaults[key].(type) {
		case time.Duration:
			fs.Duration(name, def, help)
		case bool:
			fs.Bool(name, def, help)
		case string:
			fs.String(name, def, help)
		}
	}
}

// Keys returns every configuration key, sorted
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FlagName is the command-line flag bound to key
func FlagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// EnvName is the environment variable read for key
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

// Load reads envFile (a missing file is not an error), the environment and
// any changed flags in flags, which may be nil.
func Load(envFile string, flags *pflag.FlagSet) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if flags != nil {
		for key := range defaults {
			if f := flags.Lookup(FlagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: binding flag %s: %w", f.Name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.CheckInURL = strings.TrimSpace(cfg.CheckInURL)
	cfg.Camera = strings.ToLower(strings.TrimSpace(cfg.Camera))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report keys instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("mapstructure")
	})
	return v
}

// Validate checks the loaded values
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	key := fe.Field()
	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "required_if", "required_with":
		return fmt.Sprintf("%s is required (set %s)", key, EnvName(key))
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value())
	case "http_url":
		return fmt.Sprintf("%s must be an http or https URL, got %q", key, fe.Value())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port, got %q", key, fe.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", key, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s=%s", key, fe.Tag(), fe.Param())
	}
}
