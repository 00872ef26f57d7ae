// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/portana/portana-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete portana configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	API     APIConfig     `toml:"api" json:"api"`
	Session SessionConfig `toml:"session" json:"session"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// APIConfig describes how to reach the backend.
type APIConfig struct {
	// BaseURL is the origin serving /api/*.
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs bounds non-streaming requests and the wait for stream headers.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries applies to idempotent GETs only.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// RatePerSec is the client-side request rate (0 = unlimited).
	RatePerSec float64 `toml:"rate_per_sec" json:"rate_per_sec"`
	// Stream sends natural language to /api/chat/ask instead of /api/chat/message.
	Stream bool `toml:"stream" json:"stream"`
	// TopK is passed as options.top_k on streaming requests (0 = server default).
	TopK int `toml:"top_k" json:"top_k"`
	// Token is sent as a bearer token when set.
	Token string `toml:"token" json:"token"`
}

// SessionConfig selects where the session id and gate flags live.
type SessionConfig struct {
	// Store is one of memory, file, sqlite, redis.
	Store string `toml:"store" json:"store"`
	// Path is the file or sqlite database path (empty = default under ~/.portana).
	Path string `toml:"path" json:"path"`
	// RedisAddr is host:port or a redis:// URL.
	RedisAddr string `toml:"redis_addr" json:"redis_addr"`
	// PersistGate keeps one-time command flags in the store across runs.
	PersistGate bool `toml:"persist_gate" json:"persist_gate"`
	// GatedCommands lists commands limited to one success per session.
	GatedCommands []string `toml:"gated_commands" json:"gated_commands"`
	// MaxTranscripts caps saved transcripts (0 = unlimited).
	MaxTranscripts int `toml:"max_transcripts" json:"max_transcripts"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// Theme is auto, dark or light.
	Theme string `toml:"theme" json:"theme"`
	// Markdown renders assistant text with glamour.
	Markdown bool `toml:"markdown" json:"markdown"`
	// WordWrap is the render width (0 = terminal width).
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
	// Greeting shows the welcome entry when a conversation starts.
	Greeting bool `toml:"greeting" json:"greeting"`
}

// LogConfig controls diagnostics.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	// File receives logs instead of stderr. The TUI always logs to a file.
	File string `toml:"file" json:"file"`
}

// Timeout returns TimeoutSecs as a duration.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1",
		API: APIConfig{
			BaseURL:     "http://localhost:3000",
			TimeoutSecs: 30,
			MaxRetries:  2,
			RatePerSec:  5,
		},
		Session: SessionConfig{
			Store:          "file",
			GatedCommands:  []string{"start"},
			MaxTranscripts: 100,
		},
		UI: UIConfig{
			Theme:    "auto",
			Markdown: true,
			Greeting: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// SetDefaults fills empty values that have no meaningful zero.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = d.API.TimeoutSecs
	}
	if c.Session.Store == "" {
		c.Session.Store = d.Session.Store
	}
	if c.Session.GatedCommands == nil {
		c.Session.GatedCommands = d.Session.GatedCommands
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	c.Session.Store = strings.ToLower(c.Session.Store)
	c.Log.Level = strings.ToLower(c.Log.Level)
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the portana configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".portana"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default location. TOML is tried first,
// then JSON. When neither exists the defaults are used. A file that fails to
// parse is reported alongside the defaults so callers can warn and continue.
func Load() (*Config, error) {
	var loadErr error

	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		if err == nil {
			return cfg, nil
		}
		loadErr = err
		break
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loadErr
}

// LoadFromPath loads a specific file with full validation. Files ending in
// .json are decoded as JSON, everything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# portana configuration file\n")
	b.WriteString("# Generated by portana - edit with care\n\n")

	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg as indented JSON with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

var (
	validStores = map[string]bool{"memory": true, "file": true, "sqlite": true, "redis": true}
	validThemes = map[string]bool{"auto": true, "dark": true, "light": true}
	validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// Validate checks every field and returns all problems at once as
// ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("api.base_url", "must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 600 {
		add("api.timeout_secs", "must be between 1 and 600, got %d", c.API.TimeoutSecs)
	}
	if c.API.MaxRetries < 0 || c.API.MaxRetries > 10 {
		add("api.max_retries", "must be between 0 and 10, got %d", c.API.MaxRetries)
	}
	if c.API.RatePerSec < 0 {
		add("api.rate_per_sec", "must not be negative")
	}
	if c.API.TopK < 0 || c.API.TopK > 50 {
		add("api.top_k", "must be between 0 and 50, got %d", c.API.TopK)
	}

	if !validStores[c.Session.Store] {
		add("session.store", "must be one of memory, file, sqlite, redis, got %q", c.Session.Store)
	}
	if c.Session.Store == "redis" && c.Session.RedisAddr == "" {
		add("session.redis_addr", "required when session.store is redis")
	}
	for _, name := range c.Session.GatedCommands {
		if strings.TrimSpace(strings.TrimPrefix(name, "/")) == "" {
			add("session.gated_commands", "contains an empty command name")
			break
		}
	}
	if c.Session.MaxTranscripts < 0 {
		add("session.max_transcripts", "must not be negative")
	}

	if !validThemes[c.UI.Theme] {
		add("ui.theme", "must be auto, dark or light, got %q", c.UI.Theme)
	}
	if c.UI.WordWrap != 0 && c.UI.WordWrap < 20 {
		add("ui.word_wrap", "must be 0 or at least 20, got %d", c.UI.WordWrap)
	}

	if !validLevels[c.Log.Level] {
		add("log.level", "must be debug, info, warn or error, got %q", c.Log.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - PORTANA_API_URL: overrides api.base_url
//   - PORTANA_API_TOKEN: overrides api.token
//   - PORTANA_STREAM: overrides api.stream
//   - PORTANA_STORE: overrides session.store
//   - PORTANA_REDIS_ADDR: overrides session.redis_addr
//   - PORTANA_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PORTANA_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("PORTANA_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("PORTANA_STREAM"); v != "" {
		c.API.Stream = parseBool(v)
	}
	if v := os.Getenv("PORTANA_STORE"); v != "" {
		c.Session.Store = v
	}
	if v := os.Getenv("PORTANA_REDIS_ADDR"); v != "" {
		c.Session.RedisAddr = v
	}
	if v := os.Getenv("PORTANA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "api.base_url").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type; comma separated strings fill slices.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts snake_case or kebab-case to the Go field name.
// Acronyms such as API and URL match through EqualFold.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

func setFieldValue(field reflect.Value, value any) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, s := range strings.Split(strVal, ",") {
					if s = strings.TrimSpace(s); s != "" {
						items = append(items, s)
					}
				}
				if items == nil {
					items = []string{}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && field.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"api.base_url",
		"api.timeout_secs",
		"api.max_retries",
		"api.rate_per_sec",
		"api.stream",
		"api.top_k",
		"api.token",
		"session.store",
		"session.path",
		"session.redis_addr",
		"session.persist_gate",
		"session.gated_commands",
		"session.max_transcripts",
		"ui.theme",
		"ui.markdown",
		"ui.word_wrap",
		"ui.greeting",
		"log.level",
		"log.file",
	}
}

// =============================================================================
// COPY AND DISPLAY
// =============================================================================

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Session.GatedCommands != nil {
		clone.Session.GatedCommands = append([]string(nil), c.Session.GatedCommands...)
	}
	return &clone
}

// String renders the config as JSON with the API token redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.API.Token != "" {
		safe.API.Token = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
