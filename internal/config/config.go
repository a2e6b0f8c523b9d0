/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	TelemetryOptIn   bool   `yaml:"telemetry_opt_in"`
	TelemetryURL     string `yaml:"telemetry_url"`
	DefaultWorkspace string `yaml:"default_workspace"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// PrintConfig configures printer polling and the print collaborators.
type PrintConfig struct {
	PollIntervalSec int `yaml:"poll_interval_sec"`
	SettleDelayMs   int `yaml:"settle_delay_ms"`
	// EnumerateCommand prints {success, printers:[{name,status}], error} on stdout.
	EnumerateCommand []string `yaml:"enumerate_command"`
	// SubmitCommand gets the print document path and the printer name appended as args.
	SubmitCommand   []string `yaml:"submit_command"`
	ChromeRemoteURL string   `yaml:"chrome_remote_url"`
	ChromeTimeoutMs int      `yaml:"chrome_timeout_ms"`
	PDFOutputDir    string   `yaml:"pdf_output_dir"`
}

type LayoutConfig struct {
	MarginMM  float64 `yaml:"margin_mm"`
	SpacingMM float64 `yaml:"spacing_mm"`
}

type StorageConfig struct {
	PreviewCacheMaxBytes int64 `yaml:"preview_cache_max_bytes"`
	SnapshotsPerSession  int   `yaml:"snapshots_per_session"`
	BackupsKept          int   `yaml:"backups_kept"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Logging       LoggingConfig `yaml:"logging"`
	Print         PrintConfig   `yaml:"print"`
	Layout        LayoutConfig  `yaml:"layout"`
	Storage       StorageConfig `yaml:"storage"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		Print: PrintConfig{
			PollIntervalSec: 30,
			SettleDelayMs:   500,
			ChromeTimeoutMs: 30000,
		},
		Layout:  LayoutConfig{MarginMM: 5, SpacingMM: 10},
		Storage: StorageConfig{PreviewCacheMaxBytes: 32 << 20, SnapshotsPerSession: 50, BackupsKept: 10},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath      = "PLY_CONFIG"
	EnvTelemetryOptIn  = "PLY_TELEMETRY_OPT_IN"
	EnvWorkspace       = "PLY_WORKSPACE"
	EnvPollIntervalSec = "PLY_PRINT_POLL_SEC"
	EnvSettleDelayMs   = "PLY_PRINT_SETTLE_MS"
	EnvChromeURL       = "PLY_CHROME_URL"
	EnvPDFOutputDir    = "PLY_PDF_DIR"
	// logging
	EnvLogLevel  = "PLY_LOG_LEVEL"
	EnvLogFormat = "PLY_LOG_FORMAT"
	EnvLogSource = "PLY_LOG_SOURCE"
	EnvLogFile   = "PLY_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PhotoLayout")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PhotoLayout")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "photolayout")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges environment overrides.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return Defaults(), err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path. A missing file is not an error.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		applyEnvOverrides(&cfg)
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes cfg as YAML to path, creating parent directories.
func SaveTo(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if s := strings.TrimSpace(src.General.TelemetryURL); s != "" {
		dst.General.TelemetryURL = s
	}
	if s := strings.TrimSpace(src.General.DefaultWorkspace); s != "" {
		dst.General.DefaultWorkspace = s
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	// print
	if src.Print.PollIntervalSec > 0 {
		dst.Print.PollIntervalSec = src.Print.PollIntervalSec
	}
	if src.Print.SettleDelayMs > 0 {
		dst.Print.SettleDelayMs = src.Print.SettleDelayMs
	}
	if len(src.Print.EnumerateCommand) > 0 {
		dst.Print.EnumerateCommand = append([]string(nil), src.Print.EnumerateCommand...)
	}
	if len(src.Print.SubmitCommand) > 0 {
		dst.Print.SubmitCommand = append([]string(nil), src.Print.SubmitCommand...)
	}
	if s := strings.TrimSpace(src.Print.ChromeRemoteURL); s != "" {
		dst.Print.ChromeRemoteURL = s
	}
	if src.Print.ChromeTimeoutMs > 0 {
		dst.Print.ChromeTimeoutMs = src.Print.ChromeTimeoutMs
	}
	if s := strings.TrimSpace(src.Print.PDFOutputDir); s != "" {
		dst.Print.PDFOutputDir = s
	}
	// layout
	if src.Layout.MarginMM > 0 {
		dst.Layout.MarginMM = src.Layout.MarginMM
	}
	if src.Layout.SpacingMM > 0 {
		dst.Layout.SpacingMM = src.Layout.SpacingMM
	}
	// storage
	if src.Storage.PreviewCacheMaxBytes > 0 {
		dst.Storage.PreviewCacheMaxBytes = src.Storage.PreviewCacheMaxBytes
	}
	if src.Storage.SnapshotsPerSession > 0 {
		dst.Storage.SnapshotsPerSession = src.Storage.SnapshotsPerSession
	}
	if src.Storage.BackupsKept > 0 {
		dst.Storage.BackupsKept = src.Storage.BackupsKept
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkspace)); v != "" {
		cfg.General.DefaultWorkspace = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPollIntervalSec)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Print.PollIntervalSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSettleDelayMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Print.SettleDelayMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvChromeURL)); v != "" {
		cfg.Print.ChromeRemoteURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPDFOutputDir)); v != "" {
		cfg.Print.PDFOutputDir = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"general.telemetry_opt_in":  EnvTelemetryOptIn,
	"general.default_workspace": EnvWorkspace,
	"print.poll_interval_sec":   EnvPollIntervalSec,
	"print.settle_delay_ms":     EnvSettleDelayMs,
	"print.chrome_remote_url":   EnvChromeURL,
	"print.pdf_output_dir":      EnvPDFOutputDir,
	"logging.level":             EnvLogLevel,
	"logging.format":            EnvLogFormat,
	"logging.source":            EnvLogSource,
	"logging.file":              EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// PollInterval returns the printer poll interval, falling back to the default.
func (p PrintConfig) PollInterval() time.Duration {
	if p.PollIntervalSec <= 0 {
		return time.Duration(Defaults().Print.PollIntervalSec) * time.Second
	}
	return time.Duration(p.PollIntervalSec) * time.Second
}

// SettleDelay is the wait between capturing successive preview pages.
func (p PrintConfig) SettleDelay() time.Duration {
	if p.SettleDelayMs < 0 {
		return 0
	}
	return time.Duration(p.SettleDelayMs) * time.Millisecond
}

// ChromeTimeout bounds a single PDF render.
func (p PrintConfig) ChromeTimeout() time.Duration {
	if p.ChromeTimeoutMs <= 0 {
		return time.Duration(Defaults().Print.ChromeTimeoutMs) * time.Millisecond
	}
	return time.Duration(p.ChromeTimeoutMs) * time.Millisecond
}
