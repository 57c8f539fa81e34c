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
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/patentchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete patentchat configuration.
type Config struct {
	Version string `toml:"version" json:"version" yaml:"version"`

	// Chatbot backend connection
	Server ServerConfig `toml:"server" json:"server" yaml:"server"`

	// Local chat cache
	Cache CacheConfig `toml:"cache" json:"cache" yaml:"cache"`

	// Terminal UI
	UI UIConfig `toml:"ui" json:"ui" yaml:"ui"`

	// Log output
	Log LogConfig `toml:"log" json:"log" yaml:"log"`
}

// ServerConfig contains chatbot backend settings.
type ServerConfig struct {
	// URL is the scheme and host of the backend, e.g. http://127.0.0.1:8000
	URL string `toml:"url" json:"url" yaml:"url"`
	// BasePath prefixes every endpoint
	BasePath string `toml:"base_path" json:"base_path" yaml:"base_path"`
	// Token is sent as a bearer token when set
	Token string `toml:"token" json:"token,omitempty" yaml:"token,omitempty"`
	// SendTimeoutSecs bounds a single question; keep it above the server's
	// generation budget
	SendTimeoutSecs int `toml:"send_timeout_secs" json:"send_timeout_secs" yaml:"send_timeout_secs"`
	// ReadTimeoutSecs bounds list, history and delete calls
	ReadTimeoutSecs int `toml:"read_timeout_secs" json:"read_timeout_secs" yaml:"read_timeout_secs"`
	// RateLimit is the maximum requests per second (0 = unlimited)
	RateLimit float64 `toml:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
	// RateBurst is the limiter burst size
	RateBurst int `toml:"rate_burst" json:"rate_burst" yaml:"rate_burst"`
}

// CacheConfig contains local cache settings.
type CacheConfig struct {
	// Backend is "sqlite", "file" or "memory"
	Backend string `toml:"backend" json:"backend" yaml:"backend"`
	// Dir holds the cache; empty means ~/.patentchat/cache
	Dir string `toml:"dir" json:"dir" yaml:"dir"`
	// SessionTTLMinutes bounds how long the cached session list is trusted
	SessionTTLMinutes int `toml:"session_ttl_minutes" json:"session_ttl_minutes" yaml:"session_ttl_minutes"`
	// Watch reloads the session list when another process changes the
	// cache (file backend only)
	Watch bool `toml:"watch" json:"watch" yaml:"watch"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme is "dark", "light" or "auto"
	Theme string `toml:"theme" json:"theme" yaml:"theme"`
	// WatchdogSecs is how long a history load may take before the timeout
	// banner appears
	WatchdogSecs int `toml:"watchdog_secs" json:"watchdog_secs" yaml:"watchdog_secs"`
	// Markdown renders assistant answers as markdown
	Markdown bool `toml:"markdown" json:"markdown" yaml:"markdown"`
	// SidebarWidth is the session list width in cells
	SidebarWidth int `toml:"sidebar_width" json:"sidebar_width" yaml:"sidebar_width"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// File receives the log while the TUI owns the terminal; empty means
	// ~/.patentchat/patentchat.log
	File string `toml:"file" json:"file" yaml:"file"`
	// Verbose also logs to stderr in line-mode commands
	Verbose bool `toml:"verbose" json:"verbose" yaml:"verbose"`
}

// Cache backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			URL:             "http://127.0.0.1:8000",
			BasePath:        "/api/chatbot",
			SendTimeoutSecs: 300,
			ReadTimeoutSecs: 30,
			RateLimit:       5,
			RateBurst:       10,
		},
		Cache: CacheConfig{
			Backend:           BackendSQLite,
			SessionTTLMinutes: 30,
			Watch:             true,
		},
		UI: UIConfig{
			Theme:        "dark",
			WatchdogSecs: 10,
			Markdown:     true,
			SidebarWidth: 28,
		},
	}
}

// SendTimeout returns Server.SendTimeoutSecs as a duration.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Server.SendTimeoutSecs) * time.Second
}

// ReadTimeout returns Server.ReadTimeoutSecs as a duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSecs) * time.Second
}

// SessionTTL returns Cache.SessionTTLMinutes as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Cache.SessionTTLMinutes) * time.Minute
}

// Watchdog returns UI.WatchdogSecs as a duration.
func (c *Config) Watchdog() time.Duration {
	return time.Duration(c.UI.WatchdogSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the patentchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".patentchat"), nil
}

// configPath returns a file inside ConfigDir.
func configPath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) { return configPath("config.toml") }

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) { return configPath("config.json") }

// ConfigPathYAML returns the path to the YAML config file.
func ConfigPathYAML() (string, error) { return configPath("config.yaml") }

// CacheDir returns the directory of the local cache.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return expandHome(c.Cache.Dir)
	}
	return configPath("cache")
}

// LogPath returns the log file used while the TUI runs.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return expandHome(c.Log.File)
	}
	return configPath("patentchat.log")
}

// expandHome replaces a leading ~ with the home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ensureSecurePermissions tightens config files to 0600; they may hold the
// API token.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config directory. It tries TOML, then
// JSON, then YAML, and falls back to defaults. Environment overrides are
// applied last. A file that fails to parse is reported alongside the
// defaults.
func Load() (*Config, error) {
	type candidate struct {
		path func() (string, error)
		load func(*Config, string) error
		kind string
	}
	candidates := []candidate{
		{ConfigPathTOML, LoadTOML, "TOML"},
		{ConfigPathJSON, LoadJSON, "JSON"},
		{ConfigPathYAML, LoadYAML, "YAML"},
	}

	var loadErr error
	for _, c := range candidates {
		path, err := c.path()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg := Default()
		if err := c.load(cfg, path); err != nil {
			loadErr = fmt.Errorf("failed to load %s config: %w", c.kind, err)
			continue
		}
		return finish(cfg)
	}

	cfg, err := finish(Default())
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file. The format follows
// the extension; anything unknown is read as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = LoadJSON(cfg, path)
	case ".yaml", ".yml":
		err = LoadYAML(cfg, path)
	default:
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

// finish applies env overrides and defaults, then validates.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	warnPermissions(path)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	warnPermissions(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadYAML decodes a YAML file over cfg.
func LoadYAML(cfg *Config, path string) error {
	warnPermissions(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read YAML file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode YAML file: %w", err)
	}
	return nil
}

func warnPermissions(path string) {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# patentchat configuration file\n")
	b.WriteString("# Environment variables PATENTCHAT_* override these values.\n\n")

	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, []byte(b.String()), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ErrInvalidConfig matches every validation failure with errors.Is.
var ErrInvalidConfig = errors.New("invalid config")

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
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is reports whether target is ErrInvalidConfig.
func (e ValidateErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if u, err := url.Parse(c.Server.URL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		add("server.url", "invalid URL '%s', must be http(s)://host[:port]", c.Server.URL)
	}
	if c.Server.SendTimeoutSecs <= 0 {
		add("server.send_timeout_secs", "must be positive, got %d", c.Server.SendTimeoutSecs)
	}
	if c.Server.ReadTimeoutSecs <= 0 {
		add("server.read_timeout_secs", "must be positive, got %d", c.Server.ReadTimeoutSecs)
	}
	if c.Server.RateLimit < 0 {
		add("server.rate_limit", "must not be negative, got %g", c.Server.RateLimit)
	}
	if c.Server.RateBurst < 0 {
		add("server.rate_burst", "must not be negative, got %d", c.Server.RateBurst)
	}

	switch strings.ToLower(c.Cache.Backend) {
	case BackendSQLite, BackendFile, BackendMemory:
	default:
		add("cache.backend", "invalid backend '%s', must be one of: sqlite, file, memory", c.Cache.Backend)
	}
	if c.Cache.SessionTTLMinutes <= 0 {
		add("cache.session_ttl_minutes", "must be positive, got %d", c.Cache.SessionTTLMinutes)
	}

	switch strings.ToLower(c.UI.Theme) {
	case "dark", "light", "auto":
	default:
		add("ui.theme", "invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme)
	}
	if c.UI.WatchdogSecs <= 0 {
		add("ui.watchdog_secs", "must be positive, got %d", c.UI.WatchdogSecs)
	}
	if c.UI.SidebarWidth < 12 || c.UI.SidebarWidth > 80 {
		add("ui.sidebar_width", "must be between 12 and 80, got %d", c.UI.SidebarWidth)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero-value fields from Default.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Server.URL == "" {
		c.Server.URL = d.Server.URL
	}
	c.Server.URL = strings.TrimSuffix(c.Server.URL, "/")
	if c.Server.BasePath == "" {
		c.Server.BasePath = d.Server.BasePath
	}
	if c.Server.SendTimeoutSecs == 0 {
		c.Server.SendTimeoutSecs = d.Server.SendTimeoutSecs
	}
	if c.Server.ReadTimeoutSecs == 0 {
		c.Server.ReadTimeoutSecs = d.Server.ReadTimeoutSecs
	}
	if c.Server.RateBurst == 0 && c.Server.RateLimit > 0 {
		c.Server.RateBurst = d.Server.RateBurst
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = d.Cache.Backend
	}
	c.Cache.Backend = strings.ToLower(c.Cache.Backend)
	if c.Cache.SessionTTLMinutes == 0 {
		c.Cache.SessionTTLMinutes = d.Cache.SessionTTLMinutes
	}

	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.WatchdogSecs == 0 {
		c.UI.WatchdogSecs = d.UI.WatchdogSecs
	}
	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = d.UI.SidebarWidth
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - PATENTCHAT_SERVER_URL: overrides server.url
//   - PATENTCHAT_TOKEN: overrides server.token
//   - PATENTCHAT_CACHE_BACKEND: overrides cache.backend
//   - PATENTCHAT_CACHE_DIR: overrides cache.dir
//   - PATENTCHAT_SEND_TIMEOUT: overrides server.send_timeout_secs; accepts
//     seconds ("300") or a duration ("5m")
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PATENTCHAT_SERVER_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("PATENTCHAT_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("PATENTCHAT_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("PATENTCHAT_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("PATENTCHAT_SEND_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Server.SendTimeoutSecs = secs
		} else if d, err := time.ParseDuration(v); err == nil {
			c.Server.SendTimeoutSecs = int(d / time.Second)
		} else {
			fmt.Fprintf(os.Stderr, "Warning: ignoring PATENTCHAT_SEND_TIMEOUT=%q: not seconds or a duration\n", v)
		}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the configuration as JSON with the token redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Server.Token != "" {
		safe.Server.Token = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil && cfg == nil {
		return err
	}
	SetGlobal(cfg)
	return err
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
