package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for the ayaka tutor bot.
type Config struct {
	General     GeneralConfig     `json:"general"`
	Telegram    TelegramConfig    `json:"telegram"`
	Gemini      GeminiConfig      `json:"gemini"`
	Storage     StorageConfig     `json:"storage"`
	Roster      RosterConfig      `json:"roster"`
	Curriculum  CurriculumConfig  `json:"curriculum"`
	Maintenance MaintenanceConfig `json:"maintenance"`
}

type GeneralConfig struct {
	DataDir               string `json:"dataDir"`
	LogLevel              string `json:"logLevel"`
	LogFile               string `json:"logFile,omitempty"`
	BotName               string `json:"botName"`
	MaxConcurrentMessages int    `json:"maxConcurrentMessages"`
}

type TelegramConfig struct {
	Enabled   bool   `json:"enabled"`
	Token     string `json:"token"`
	ParseMode string `json:"parseMode"`
}

type GeminiConfig struct {
	APIKey          string  `json:"apiKey"`
	Model           string  `json:"model"`
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type StorageConfig struct {
	DBPath        string `json:"dbPath"`
	BackupDir     string `json:"backupDir"`
	RetentionDays int    `json:"retentionDays"`
}

// RosterConfig points at the YAML file listing known users. When the file is
// absent the built-in roster is used.
type RosterConfig struct {
	Path string `json:"path,omitempty"`
}

// CurriculumConfig points at the YAML file overriding the built-in learning
// modules and quiz bank.
type CurriculumConfig struct {
	Path string `json:"path,omitempty"`
}

type MaintenanceConfig struct {
	Enabled        bool   `json:"enabled"`
	BackupSchedule string `json:"backupSchedule"` // cron expression
	PurgeSchedule  string `json:"purgeSchedule"`  // cron expression
}

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{(\w+)(?::-([^}]*))?\}`)

// Load reads and parses the config file, applying defaults for missing
// fields, environment variable substitution, and ~ expansion on paths.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.DataDir = ExpandPath(cfg.General.DataDir)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Storage.DBPath = ExpandPath(cfg.Storage.DBPath)
	cfg.Storage.BackupDir = ExpandPath(cfg.Storage.BackupDir)
	cfg.Roster.Path = ExpandPath(cfg.Roster.Path)
	cfg.Curriculum.Path = ExpandPath(cfg.Curriculum.Path)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ExpandEnvVars substitutes ${VAR} and ${VAR:-default} references.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// Save writes the config as indented JSON, creating the directory if needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has usable values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.MaxConcurrentMessages < 1 || cfg.General.MaxConcurrentMessages > 100 {
		errs = append(errs, "general.maxConcurrentMessages must be between 1 and 100")
	}
	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of debug, info, warn, error")
	}
	if cfg.Gemini.Temperature < 0 || cfg.Gemini.Temperature > 2 {
		errs = append(errs, "gemini.temperature must be between 0 and 2")
	}
	if cfg.Gemini.MaxOutputTokens < 1 {
		errs = append(errs, "gemini.maxOutputTokens must be positive")
	}
	if cfg.Storage.RetentionDays < 1 {
		errs = append(errs, "storage.retentionDays must be positive")
	}
	if cfg.Telegram.Enabled && cfg.Telegram.Token == "" {
		errs = append(errs, "telegram.token is required when telegram is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DefaultConfigDir returns the default config directory (~/.ayaka).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ayaka"
	}
	return filepath.Join(home, ".ayaka")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
