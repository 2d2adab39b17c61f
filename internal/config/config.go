package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for linelogger.
type Config struct {
	General       GeneralConfig       `json:"general"`
	Line          LineConfig          `json:"line"`
	Sheets        SheetsConfig        `json:"sheets"`
	Storage       StorageConfig       `json:"storage"`
	Transcription TranscriptionConfig `json:"transcription"`
	Journal       JournalConfig       `json:"journal"`
	Replies       RepliesConfig       `json:"replies"`
	Metrics       MetricsConfig       `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel            string `json:"logLevel"`
	LogFile             string `json:"logFile,omitempty"`
	MaxConcurrentEvents int    `json:"maxConcurrentEvents"`
}

// LineConfig configures the LINE messaging platform channel.
type LineConfig struct {
	ChannelSecret string `json:"channelSecret"`
	ChannelToken  string `json:"channelToken"`
	Port          int    `json:"port"`
	WebhookPath   string `json:"webhookPath"`
}

// SheetsConfig configures the Google Sheets log sink.
type SheetsConfig struct {
	SpreadsheetID string            `json:"spreadsheetId"`
	SheetName     string            `json:"sheetName"`
	Credentials   CredentialsConfig `json:"credentials"`
}

// CredentialsConfig holds the alternative service-account credential sources.
// One is enough; resolution priority is file > fields > base64 > json.
type CredentialsConfig struct {
	File   string                 `json:"file,omitempty"`   // path to service-account JSON
	JSON   string                 `json:"json,omitempty"`   // inline service-account JSON
	Base64 string                 `json:"base64,omitempty"` // base64-encoded service-account JSON
	Fields CredentialFieldsConfig `json:"fields,omitempty"` // individual fields
}

type CredentialFieldsConfig struct {
	ProjectID    string `json:"projectId,omitempty"`
	ClientEmail  string `json:"clientEmail,omitempty"`
	PrivateKey   string `json:"privateKey,omitempty"`
	PrivateKeyID string `json:"privateKeyId,omitempty"`
	ClientID     string `json:"clientId,omitempty"`
}

// StorageConfig configures Cloud Storage media archiving.
type StorageConfig struct {
	Enabled       bool   `json:"enabled"`
	Bucket        string `json:"bucket"`
	Prefix        string `json:"prefix,omitempty"`        // object key prefix
	PublicBaseURL string `json:"publicBaseUrl,omitempty"` // override for the public URL base
}

// TranscriptionConfig configures the speech-to-text backend chain.
type TranscriptionConfig struct {
	Enabled        bool               `json:"enabled"`
	Language       string             `json:"language,omitempty"` // BCP-47, e.g. "zh-TW"
	StopOnNoSpeech bool               `json:"stopOnNoSpeech,omitempty"`
	Whisper        WhisperConfig      `json:"whisper"`
	Google         GoogleSpeechConfig `json:"google"`
}

type WhisperConfig struct {
	Enabled bool   `json:"enabled"`
	APIBase string `json:"apiBase,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
	Model   string `json:"model,omitempty"`
}

type GoogleSpeechConfig struct {
	Enabled bool `json:"enabled"`
}

// JournalConfig configures the optional processed-event journal.
type JournalConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

// RepliesConfig configures user-facing reply templates.
type RepliesConfig struct {
	TemplatesFile string `json:"templatesFile,omitempty"` // optional YAML override
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.linelogger).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".linelogger"
	}
	return filepath.Join(home, ".linelogger")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Journal.DBPath = ExpandPath(cfg.Journal.DBPath)
	cfg.Sheets.Credentials.File = ExpandPath(cfg.Sheets.Credentials.File)
	cfg.Replies.TemplatesFile = ExpandPath(cfg.Replies.TemplatesFile)

	// Validation is the caller's call: `config set` must be able to load a
	// config that is still missing its secrets.
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
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
			return match // keep original if no env var and no default
		}
		return val
	})
}

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

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.MaxConcurrentEvents < 1 || cfg.General.MaxConcurrentEvents > 100 {
		errs = append(errs, "general.maxConcurrentEvents must be between 1 and 100")
	}
	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Line.Port < 0 || cfg.Line.Port > 65535 {
		errs = append(errs, "line.port must be between 0 and 65535")
	}
	if cfg.Line.ChannelSecret == "" {
		errs = append(errs, "line.channelSecret is required")
	}
	if cfg.Line.ChannelToken == "" {
		errs = append(errs, "line.channelToken is required")
	}

	if cfg.Sheets.SpreadsheetID == "" {
		errs = append(errs, "sheets.spreadsheetId is required")
	}
	if !cfg.Sheets.Credentials.hasAny() {
		errs = append(errs, "sheets.credentials: provide one of file, fields, base64, or json")
	}

	if cfg.Storage.Enabled && cfg.Storage.Bucket == "" {
		errs = append(errs, "storage.bucket is required when storage.enabled is true")
	}

	if cfg.Transcription.Enabled && !cfg.Transcription.Whisper.Enabled && !cfg.Transcription.Google.Enabled {
		errs = append(errs, "transcription: at least one backend must be enabled")
	}
	if cfg.Transcription.Whisper.Enabled && cfg.Transcription.Whisper.APIKey == "" {
		errs = append(errs, "transcription.whisper.apiKey is required when whisper is enabled")
	}

	if cfg.Journal.Enabled && cfg.Journal.DBPath == "" {
		errs = append(errs, "journal.dbPath is required when journal.enabled is true")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c CredentialsConfig) hasAny() bool {
	if c.File != "" || c.JSON != "" || c.Base64 != "" {
		return true
	}
	f := c.Fields
	return f.ProjectID != "" && f.ClientEmail != "" && f.PrivateKey != ""
}

// Sanitize returns a copy with secrets masked, for `config list`.
func Sanitize(cfg *Config) *Config {
	out := *cfg
	out.Line.ChannelSecret = mask(cfg.Line.ChannelSecret)
	out.Line.ChannelToken = mask(cfg.Line.ChannelToken)
	out.Sheets.Credentials.JSON = mask(cfg.Sheets.Credentials.JSON)
	out.Sheets.Credentials.Base64 = mask(cfg.Sheets.Credentials.Base64)
	out.Sheets.Credentials.Fields.PrivateKey = mask(cfg.Sheets.Credentials.Fields.PrivateKey)
	out.Transcription.Whisper.APIKey = mask(cfg.Transcription.Whisper.APIKey)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
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
