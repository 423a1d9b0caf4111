package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// Detector kinds.
const (
	KindSleepingPerson = "sleeping_person"
	KindColorMarker    = "color_marker"
)

// Qualify modes.
const (
	QualifyHorizontal = "horizontal"
	QualifyAny        = "any"
)

type Config struct {
	Receiver      ReceiverConfig
	Webhook       WebhookConfig
	Dispatch      DispatchConfig
	Storage       StorageConfig
	Logging       LoggingConfig
	Metrics       MetricsConfig
	Notifications NotificationConfig
	Detectors     []DetectorConfig
}

// ReceiverConfig configures the OTLP detection receivers. DebugLog, when
// set, names a JSONL file that records every received sample.
type ReceiverConfig struct {
	Enabled  bool   `toml:"enabled"`
	GRPCPort int    `toml:"grpc_port"`
	HTTPPort int    `toml:"http_port"`
	Bind     string `toml:"bind"`
	DebugLog string `toml:"debug_log"`
}

// WebhookConfig configures alert delivery. An empty URL disables delivery;
// alerts are still logged and recorded.
type WebhookConfig struct {
	URL               string  `toml:"url"`
	TimeoutSeconds    float64 `toml:"timeout_seconds"`
	RetryAttempts     int     `toml:"retry_attempts"`
	RetryDelaySeconds float64 `toml:"retry_delay_seconds"`
	SenderID          string  `toml:"sender_id"`
	ProbeOnStart      bool    `toml:"probe_on_start"`
}

type DispatchConfig struct {
	QueueSize              int     `toml:"queue_size"`
	Workers                int     `toml:"workers"`
	ShutdownTimeoutSeconds float64 `toml:"shutdown_timeout_seconds"`
}

type StorageConfig struct {
	DBPath        string `toml:"db_path"`
	LogDir        string `toml:"log_dir"`
	RetentionDays int    `toml:"retention_days"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type NotificationConfig struct {
	SystemNotify bool `toml:"system_notify"`
}

// DetectorConfig describes one detector instance. Durations are in seconds.
type DetectorConfig struct {
	ID                   string
	Kind                 string
	Location             string
	Enabled              bool
	ConfidenceThreshold  float64
	PersistenceSeconds   float64
	CheckIntervalSeconds float64
	CooldownSeconds      float64
	RetentionSeconds     float64
	RequiredRatio        float64
	MinSamples           int
	Qualify              string
}

type LoadResult struct {
	Config   Config
	Warnings []string
}

var knownTopLevel = map[string]bool{
	"receiver":      true,
	"webhook":       true,
	"dispatch":      true,
	"storage":       true,
	"logging":       true,
	"metrics":       true,
	"notifications": true,
	"detectors":     true,
}

var knownSectionKeys = map[string]map[string]bool{
	"receiver":      keySet("enabled", "grpc_port", "http_port", "bind", "debug_log"),
	"webhook":       keySet("url", "timeout_seconds", "retry_attempts", "retry_delay_seconds", "sender_id", "probe_on_start"),
	"dispatch":      keySet("queue_size", "workers", "shutdown_timeout_seconds"),
	"storage":       keySet("db_path", "log_dir", "retention_days"),
	"logging":       keySet("level", "format", "file"),
	"metrics":       keySet("enabled", "addr"),
	"notifications": keySet("system_notify"),
	"detectors": keySet("id", "kind", "location", "enabled", "confidence_threshold",
		"persistence_seconds", "check_interval_seconds", "cooldown_seconds",
		"retention_seconds", "required_ratio", "min_samples", "qualify"),
}

func keySet(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// DefaultConfigPath returns ~/.config/camwatch/config.toml, or "" when the
// home directory cannot be determined.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "camwatch", "config.toml")
}

func Load() (*LoadResult, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom reads the TOML file at path. A missing file yields the defaults.
func LoadFrom(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return load("")
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return load(string(data))
}

// LoadFromString parses TOML held in memory.
func LoadFromString(data string) (*LoadResult, error) {
	return load(data)
}

func load(data string) (*LoadResult, error) {
	result := &LoadResult{Config: DefaultConfig()}

	if data != "" {
		var raw map[string]any
		if _, err := toml.Decode(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		result.Warnings = unknownKeys(raw)

		var tf tomlFile
		if _, err := toml.Decode(data, &tf); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		mergeFromRaw(&result.Config, &tf, raw)
		if err := mergeDetectorsFromRaw(&result.Config, raw); err != nil {
			return nil, err
		}
	}

	ApplyEnv(&result.Config, os.Getenv)

	if err := validate(&result.Config); err != nil {
		return nil, err
	}
	return result, nil
}

func unknownKeys(raw map[string]any) []string {
	var warnings []string
	for key, val := range raw {
		if !knownTopLevel[key] {
			warnings = append(warnings, fmt.Sprintf("unknown config key: %q", key))
			continue
		}
		known := knownSectionKeys[key]
		switch v := val.(type) {
		case map[string]any:
			for sub := range v {
				if !known[sub] {
					warnings = append(warnings, fmt.Sprintf("unknown config key: %q", key+"."+sub))
				}
			}
		case []map[string]any:
			for i, entry := range v {
				for sub := range entry {
					if !known[sub] {
						warnings = append(warnings, fmt.Sprintf("unknown config key: %q", fmt.Sprintf("%s[%d].%s", key, i, sub)))
					}
				}
			}
		}
	}
	return warnings
}

// tomlFile mirrors the scalar sections. Detectors are merged from the raw
// map because every entry starts from the defaults of its kind.
type tomlFile struct {
	Receiver      *ReceiverConfig     `toml:"receiver"`
	Webhook       *WebhookConfig      `toml:"webhook"`
	Dispatch      *DispatchConfig     `toml:"dispatch"`
	Storage       *StorageConfig      `toml:"storage"`
	Logging       *LoggingConfig      `toml:"logging"`
	Metrics       *MetricsConfig      `toml:"metrics"`
	Notifications *NotificationConfig `toml:"notifications"`
}

func mergeFromRaw(cfg *Config, tf *tomlFile, raw map[string]any) {
	if tf.Receiver != nil {
		if section, ok := rawSection(raw, "receiver"); ok {
			if has(section, "enabled") {
				cfg.Receiver.Enabled = tf.Receiver.Enabled
			}
			if has(section, "grpc_port") {
				cfg.Receiver.GRPCPort = tf.Receiver.GRPCPort
			}
			if has(section, "http_port") {
				cfg.Receiver.HTTPPort = tf.Receiver.HTTPPort
			}
			if has(section, "bind") {
				cfg.Receiver.Bind = tf.Receiver.Bind
			}
			if has(section, "debug_log") {
				cfg.Receiver.DebugLog = tf.Receiver.DebugLog
			}
		}
	}
	if tf.Webhook != nil {
		if section, ok := rawSection(raw, "webhook"); ok {
			if has(section, "url") {
				cfg.Webhook.URL = tf.Webhook.URL
			}
			if has(section, "timeout_seconds") {
				cfg.Webhook.TimeoutSeconds = tf.Webhook.TimeoutSeconds
			}
			if has(section, "retry_attempts") {
				cfg.Webhook.RetryAttempts = tf.Webhook.RetryAttempts
			}
			if has(section, "retry_delay_seconds") {
				cfg.Webhook.RetryDelaySeconds = tf.Webhook.RetryDelaySeconds
			}
			if has(section, "sender_id") {
				cfg.Webhook.SenderID = tf.Webhook.SenderID
			}
			if has(section, "probe_on_start") {
				cfg.Webhook.ProbeOnStart = tf.Webhook.ProbeOnStart
			}
		}
	}
	if tf.Dispatch != nil {
		if section, ok := rawSection(raw, "dispatch"); ok {
			if has(section, "queue_size") {
				cfg.Dispatch.QueueSize = tf.Dispatch.QueueSize
			}
			if has(section, "workers") {
				cfg.Dispatch.Workers = tf.Dispatch.Workers
			}
			if has(section, "shutdown_timeout_seconds") {
				cfg.Dispatch.ShutdownTimeoutSeconds = tf.Dispatch.ShutdownTimeoutSeconds
			}
		}
	}
	if tf.Storage != nil {
		if section, ok := rawSection(raw, "storage"); ok {
			if has(section, "db_path") {
				cfg.Storage.DBPath = tf.Storage.DBPath
			}
			if has(section, "log_dir") {
				cfg.Storage.LogDir = tf.Storage.LogDir
			}
			if has(section, "retention_days") {
				cfg.Storage.RetentionDays = tf.Storage.RetentionDays
			}
		}
	}
	if tf.Logging != nil {
		if section, ok := rawSection(raw, "logging"); ok {
			if has(section, "level") {
				cfg.Logging.Level = tf.Logging.Level
			}
			if has(section, "format") {
				cfg.Logging.Format = tf.Logging.Format
			}
			if has(section, "file") {
				cfg.Logging.File = tf.Logging.File
			}
		}
	}
	if tf.Metrics != nil {
		if section, ok := rawSection(raw, "metrics"); ok {
			if has(section, "enabled") {
				cfg.Metrics.Enabled = tf.Metrics.Enabled
			}
			if has(section, "addr") {
				cfg.Metrics.Addr = tf.Metrics.Addr
			}
		}
	}
	if tf.Notifications != nil {
		if section, ok := rawSection(raw, "notifications"); ok {
			if has(section, "system_notify") {
				cfg.Notifications.SystemNotify = tf.Notifications.SystemNotify
			}
		}
	}
}

func rawSection(raw map[string]any, key string) (map[string]any, bool) {
	v, ok := raw[key]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func has(section map[string]any, key string) bool {
	_, ok := section[key]
	return ok
}

// mergeDetectorsFromRaw replaces the default detector list when the file
// declares any [[detectors]]. Each entry starts from its kind's defaults.
func mergeDetectorsFromRaw(cfg *Config, raw map[string]any) error {
	v, ok := raw["detectors"]
	if !ok {
		return nil
	}
	entries, ok := v.([]map[string]any)
	if !ok {
		return fmt.Errorf("parsing config: detectors must be an array of tables")
	}

	detectors := make([]DetectorConfig, 0, len(entries))
	for i, entry := range entries {
		kind := KindSleepingPerson
		if s, ok := entry["kind"].(string); ok {
			kind = s
		}
		d := DefaultDetector(kind)
		d.ID = fmt.Sprintf("%s-%d", kind, i+1)

		var errs []string
		str := func(key string, dst *string) {
			if val, ok := entry[key]; ok {
				s, ok := val.(string)
				if !ok {
					errs = append(errs, fmt.Sprintf("%s must be a string", key))
					return
				}
				*dst = s
			}
		}
		num := func(key string, dst *float64) {
			if val, ok := entry[key]; ok {
				n, ok := number(val)
				if !ok {
					errs = append(errs, fmt.Sprintf("%s must be a number", key))
					return
				}
				*dst = n
			}
		}

		str("id", &d.ID)
		str("location", &d.Location)
		str("qualify", &d.Qualify)
		num("confidence_threshold", &d.ConfidenceThreshold)
		num("persistence_seconds", &d.PersistenceSeconds)
		num("check_interval_seconds", &d.CheckIntervalSeconds)
		num("cooldown_seconds", &d.CooldownSeconds)
		num("retention_seconds", &d.RetentionSeconds)
		num("required_ratio", &d.RequiredRatio)
		if val, ok := entry["min_samples"]; ok {
			n, ok := val.(int64)
			if !ok {
				errs = append(errs, "min_samples must be an integer")
			} else {
				d.MinSamples = int(n)
			}
		}
		if val, ok := entry["enabled"]; ok {
			b, ok := val.(bool)
			if !ok {
				errs = append(errs, "enabled must be a boolean")
			} else {
				d.Enabled = b
			}
		}

		if len(errs) > 0 {
			return fmt.Errorf("parsing config: detectors[%d]: %s", i, strings.Join(errs, "; "))
		}
		detectors = append(detectors, d)
	}

	cfg.Detectors = detectors
	return nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.Receiver.GRPCPort < 1 || cfg.Receiver.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("grpc_port must be 1-65535, got %d", cfg.Receiver.GRPCPort))
	}
	if cfg.Receiver.HTTPPort < 1 || cfg.Receiver.HTTPPort > 65535 {
		errs = append(errs, fmt.Sprintf("http_port must be 1-65535, got %d", cfg.Receiver.HTTPPort))
	}

	if cfg.Webhook.URL != "" {
		u, err := url.Parse(cfg.Webhook.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("webhook url must be an absolute http(s) URL, got %q", cfg.Webhook.URL))
		}
	}
	if cfg.Webhook.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Sprintf("webhook timeout_seconds must be positive, got %g", cfg.Webhook.TimeoutSeconds))
	}
	if cfg.Webhook.RetryAttempts < 1 {
		errs = append(errs, fmt.Sprintf("webhook retry_attempts must be at least 1, got %d", cfg.Webhook.RetryAttempts))
	}
	if cfg.Webhook.RetryDelaySeconds < 0 {
		errs = append(errs, fmt.Sprintf("webhook retry_delay_seconds must not be negative, got %g", cfg.Webhook.RetryDelaySeconds))
	}

	if cfg.Dispatch.QueueSize < 1 {
		errs = append(errs, fmt.Sprintf("dispatch queue_size must be positive, got %d", cfg.Dispatch.QueueSize))
	}
	if cfg.Dispatch.Workers < 1 {
		errs = append(errs, fmt.Sprintf("dispatch workers must be positive, got %d", cfg.Dispatch.Workers))
	}
	if cfg.Dispatch.ShutdownTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Sprintf("dispatch shutdown_timeout_seconds must be positive, got %g", cfg.Dispatch.ShutdownTimeoutSeconds))
	}

	if cfg.Storage.RetentionDays <= 0 {
		errs = append(errs, fmt.Sprintf("storage retention_days must be positive, got %d", cfg.Storage.RetentionDays))
	}

	if _, err := logrus.ParseLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, fmt.Sprintf("logging level %q is not a valid level", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("logging format must be \"text\" or \"json\", got %q", cfg.Logging.Format))
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		errs = append(errs, "metrics addr must be set when metrics are enabled")
	}

	seen := make(map[string]bool, len(cfg.Detectors))
	enabled := 0
	for i, d := range cfg.Detectors {
		prefix := fmt.Sprintf("detectors[%d]", i)
		if d.ID == "" {
			errs = append(errs, prefix+" id must not be empty")
		} else if seen[d.ID] {
			errs = append(errs, fmt.Sprintf("%s duplicate id %q", prefix, d.ID))
		}
		seen[d.ID] = true
		if d.Enabled {
			enabled++
		}

		switch d.Kind {
		case KindSleepingPerson, KindColorMarker:
		default:
			errs = append(errs, fmt.Sprintf("%s unknown kind %q", prefix, d.Kind))
		}
		switch d.Qualify {
		case QualifyHorizontal, QualifyAny:
		default:
			errs = append(errs, fmt.Sprintf("%s qualify must be %q or %q, got %q", prefix, QualifyHorizontal, QualifyAny, d.Qualify))
		}
	}
	if enabled == 0 {
		errs = append(errs, "at least one detector must be enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation error: %s", strings.Join(errs, "; "))
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (w WebhookConfig) Timeout() time.Duration    { return seconds(w.TimeoutSeconds) }
func (w WebhookConfig) RetryDelay() time.Duration { return seconds(w.RetryDelaySeconds) }

func (d DispatchConfig) ShutdownTimeout() time.Duration { return seconds(d.ShutdownTimeoutSeconds) }

func (d DetectorConfig) Persistence() time.Duration   { return seconds(d.PersistenceSeconds) }
func (d DetectorConfig) CheckInterval() time.Duration { return seconds(d.CheckIntervalSeconds) }
func (d DetectorConfig) Cooldown() time.Duration      { return seconds(d.CooldownSeconds) }
func (d DetectorConfig) Retention() time.Duration     { return seconds(d.RetentionSeconds) }

// EnabledDetectors returns the detectors that should run.
func (c Config) EnabledDetectors() []DetectorConfig {
	var out []DetectorConfig
	for _, d := range c.Detectors {
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out
}
