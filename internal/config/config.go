package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/prosecore/internal/config/loader"
	"github.com/dshills/prosecore/internal/engine/history"
	"github.com/dshills/prosecore/internal/logging"
)

// Settings is the typed view of a loaded configuration.
type Settings struct {
	History HistorySettings
	Collab  CollabSettings
	Logging LoggingSettings
	Schema  SchemaSettings
}

// HistorySettings configures undo history.
type HistorySettings struct {
	Depth         int
	NewGroupDelay time.Duration
	PreserveItems bool
}

// CollabSettings identifies this replica to an authority.
type CollabSettings struct {
	ClientID string
	Version  int
}

// LoggingSettings configures the logger.
type LoggingSettings struct {
	Level  string
	Format string
}

// SchemaSettings locates the document schema.
type SchemaSettings struct {
	Path string
}

// HistoryConfig converts the settings to a history configuration.
func (s Settings) HistoryConfig() history.Config {
	return history.Config{
		Depth:         s.History.Depth,
		NewGroupDelay: s.History.NewGroupDelay,
		PreserveItems: s.History.PreserveItems,
	}
}

// LoggerConfig converts the settings to a logger configuration writing to
// stderr.
func (s Settings) LoggerConfig() logging.LoggerConfig {
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = logging.ParseLogLevel(s.Logging.Level)
	cfg.Format = s.Logging.Format
	return cfg
}

// Config holds the merged configuration layers.
type Config struct {
	mu   sync.RWMutex
	data map[string]any

	fs        loader.FileSystem
	path      string
	envPrefix string
	useEnv    bool
}

// Option configures a Config instance.
type Option func(*Config)

// WithFile sets the TOML file layered over the defaults.
func WithFile(path string) Option {
	return func(c *Config) {
		c.path = path
	}
}

// WithFS sets the file system the TOML file is read from.
func WithFS(fsys loader.FileSystem) Option {
	return func(c *Config) {
		c.fs = fsys
	}
}

// WithEnvPrefix sets the environment variable prefix. It should end in an
// underscore.
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) {
		c.envPrefix = prefix
	}
}

// WithoutEnv ignores the environment.
func WithoutEnv() Option {
	return func(c *Config) {
		c.useEnv = false
	}
}

// New creates a Config holding only the defaults. Call Load to read the
// file and environment.
func New(opts ...Option) *Config {
	c := &Config{
		data:      defaultConfig(),
		fs:        loader.DefaultFS(),
		envPrefix: loader.EnvPrefix,
		useEnv:    true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load rebuilds the configuration from the defaults, the file and the
// environment, then validates it. On error the previous configuration is
// kept.
func (c *Config) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := defaultConfig()

	if c.path != "" {
		fileCfg, err := loader.NewTOMLLoaderWithFS(c.fs, c.path).Load()
		if err != nil {
			return err
		}
		data = loader.DeepMerge(data, fileCfg)
	}
	if c.useEnv {
		envCfg, err := loader.NewEnvLoader(c.envPrefix).Load()
		if err != nil {
			return err
		}
		data = loader.DeepMerge(data, envCfg)
	}

	if id, _ := getPath(data, "collab.clientID"); id == nil || id == "" {
		if err := setPath(data, "collab.clientID", uuid.NewString()); err != nil {
			return err
		}
	}
	if err := validate(data); err != nil {
		return err
	}

	c.mu.Lock()
	c.data = data
	c.mu.Unlock()
	return nil
}

// Path returns the configured TOML file, if any.
func (c *Config) Path() string { return c.path }

// Get returns the value at the given path.
func (c *Config) Get(path string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return getPath(c.data, path)
}

// Set overrides the value at the given path until the next Load.
func (c *Config) Set(path string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return setPath(c.data, path, value)
}

// Merged returns a copy of the merged configuration.
func (c *Config) Merged() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return loader.DeepMerge(nil, c.data)
}

// GetString returns a string value at the given path.
func (c *Config) GetString(path string) (string, error) {
	v, ok := c.Get(path)
	if !ok {
		return "", ErrSettingNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{Path: path, Expected: "string", Actual: typeName(v)}
	}
	return s, nil
}

// GetInt returns an integer value at the given path.
func (c *Config) GetInt(path string) (int, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	return toInt(path, v)
}

// GetBool returns a boolean value at the given path.
func (c *Config) GetBool(path string) (bool, error) {
	v, ok := c.Get(path)
	if !ok {
		return false, ErrSettingNotFound
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{Path: path, Expected: "bool", Actual: typeName(v)}
	}
	return b, nil
}

// GetDuration returns a duration at the given path. Strings are parsed
// with time.ParseDuration; bare numbers are milliseconds.
func (c *Config) GetDuration(path string) (time.Duration, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	return toDuration(path, v)
}

// Settings returns the typed settings.
func (c *Config) Settings() (Settings, error) {
	var s Settings
	var err error
	if s.History.Depth, err = c.GetInt("history.depth"); err != nil {
		return s, err
	}
	if s.History.NewGroupDelay, err = c.GetDuration("history.newGroupDelay"); err != nil {
		return s, err
	}
	if s.History.PreserveItems, err = c.GetBool("history.preserveItems"); err != nil {
		return s, err
	}
	if s.Collab.ClientID, err = c.GetString("collab.clientID"); err != nil {
		return s, err
	}
	if s.Collab.Version, err = c.GetInt("collab.version"); err != nil {
		return s, err
	}
	if s.Logging.Level, err = c.GetString("logging.level"); err != nil {
		return s, err
	}
	if s.Logging.Format, err = c.GetString("logging.format"); err != nil {
		return s, err
	}
	if s.Schema.Path, err = c.GetString("schema.path"); err != nil {
		return s, err
	}
	return s, nil
}

func defaultConfig() map[string]any {
	hc := history.DefaultConfig()
	return map[string]any{
		"history": map[string]any{
			"depth":         hc.Depth,
			"newGroupDelay": hc.NewGroupDelay.String(),
			"preserveItems": hc.PreserveItems,
		},
		"collab": map[string]any{
			"clientID": "",
			"version":  0,
		},
		"logging": map[string]any{
			"level":  "info",
			"format": logging.FormatConsole,
		},
		"schema": map[string]any{
			"path": "",
		},
	}
}

func validate(data map[string]any) error {
	v, _ := getPath(data, "history.depth")
	depth, err := toInt("history.depth", v)
	if err != nil {
		return err
	}
	if depth < 1 {
		return &ValidationError{Path: "history.depth", Message: "must be at least 1", Value: depth}
	}

	v, _ = getPath(data, "history.newGroupDelay")
	delay, err := toDuration("history.newGroupDelay", v)
	if err != nil {
		return err
	}
	if delay < 0 {
		return &ValidationError{Path: "history.newGroupDelay", Message: "must not be negative", Value: delay}
	}

	v, _ = getPath(data, "collab.version")
	version, err := toInt("collab.version", v)
	if err != nil {
		return err
	}
	if version < 0 {
		return &ValidationError{Path: "collab.version", Message: "must not be negative", Value: version}
	}

	v, _ = getPath(data, "logging.format")
	if v != logging.FormatConsole && v != logging.FormatJSON {
		return &ValidationError{Path: "logging.format", Message: "must be console or json", Value: v}
	}

	v, _ = getPath(data, "logging.level")
	level, _ := v.(string)
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "logging.level", Message: "unknown level", Value: v}
	}
	return nil
}

func toInt(path string, v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		if val != float64(int(val)) {
			return 0, &TypeError{Path: path, Expected: "int", Actual: "float64"}
		}
		return int(val), nil
	default:
		return 0, &TypeError{Path: path, Expected: "int", Actual: typeName(v)}
	}
}

func toDuration(path string, v any) (time.Duration, error) {
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case string:
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, &TypeError{Path: path, Expected: "duration", Actual: fmt.Sprintf("%q", val)}
		}
		return d, nil
	case int:
		return time.Duration(val) * time.Millisecond, nil
	case int64:
		return time.Duration(val) * time.Millisecond, nil
	default:
		return 0, &TypeError{Path: path, Expected: "duration", Actual: typeName(v)}
	}
}

// getPath retrieves a value from a nested map using a dot-separated path.
func getPath(m map[string]any, path string) (any, bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, false
	}
	current := any(m)
	for _, part := range parts {
		cm, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = cm[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

// setPath sets a value in a nested map using a dot-separated path.
func setPath(m map[string]any, path string, value any) error {
	parts := splitPath(path)
	if len(parts) == 0 {
		return ErrInvalidPath
	}
	current := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part]
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		nextMap, ok := next.(map[string]any)
		if !ok {
			return ErrInvalidPath
		}
		current = nextMap
	}
	current[parts[len(parts)-1]] = value
	return nil
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, ".") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// typeName returns the type name for error messages.
func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	switch v.(type) {
	case string:
		return "string"
	case int, int64:
		return "int"
	case float64:
		return "float64"
	case bool:
		return "bool"
	case time.Duration:
		return "duration"
	case []any:
		return "[]any"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// DefaultPath returns the user configuration file, prosecore/config.toml
// under the user configuration directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "prosecore", "config.toml")
}
