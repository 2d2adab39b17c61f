package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"linelogger/internal/archive"
	"linelogger/internal/bus"
	"linelogger/internal/channel"
	"linelogger/internal/config"
	"linelogger/internal/creds"
	"linelogger/internal/domain"
	"linelogger/internal/gcs"
	"linelogger/internal/journal"
	"linelogger/internal/line"
	"linelogger/internal/orchestrator"
	"linelogger/internal/sheet"
	"linelogger/internal/sink"
	"linelogger/internal/transcribe"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

const (
	scopeSpreadsheets  = "https://www.googleapis.com/auth/spreadsheets"
	scopeCloudPlatform = "https://www.googleapis.com/auth/cloud-platform"
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:     "linelogger",
		Short:   "linelogger: LINE message logging bridge to Google Sheets",
		Long:    "linelogger receives LINE webhook events and records every message as a row in a Google Sheets spreadsheet, archiving images to Cloud Storage and transcribing audio.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.linelogger/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := resolveConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists at %s", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook gateway",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err = buildLogger(cfg.General)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := creds.Resolve(ctx, cfg.Sheets.Credentials, logger,
		scopeSpreadsheets, scopeCloudPlatform)
	if err != nil {
		return fmt.Errorf("resolve credentials: %w", err)
	}

	sheetClient, err := sheet.New(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName, logger, opts...)
	if err != nil {
		return err
	}
	logSink := sink.New(sheetClient, logger)

	lineClient, err := line.New(cfg.Line.ChannelSecret, cfg.Line.ChannelToken, logger)
	if err != nil {
		return err
	}

	archiver, closeStore, err := buildArchiver(ctx, cfg.Storage, logger, opts)
	if err != nil {
		return err
	}
	defer closeStore()

	transcriber, closeSpeech, err := buildTranscriber(ctx, cfg.Transcription, logger, opts)
	if err != nil {
		return err
	}
	defer closeSpeech()

	var eventJournal orchestrator.Journal
	if cfg.Journal.Enabled {
		store, err := journal.NewStore(config.ExpandPath(cfg.Journal.DBPath), logger)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer store.Close()
		eventJournal = store
	}

	templates, err := orchestrator.LoadTemplates(cfg.Replies.TemplatesFile, logger)
	if err != nil {
		return err
	}

	eventBus := bus.New(100, logger)
	defer eventBus.Close()

	orch := orchestrator.New(orchestrator.Config{
		Sink:                 logSink,
		Media:                lineClient,
		Profiles:             lineClient,
		Archiver:             archiver,
		Transcriber:          transcriber,
		Replier:              lineClient,
		Journal:              eventJournal,
		Bus:                  eventBus,
		Logger:               logger,
		TranscriptionEnabled: cfg.Transcription.Enabled,
		Templates:            templates,
		Concurrency:          cfg.General.MaxConcurrentEvents,
	})
	go orch.Run(ctx)

	webhook := channel.NewWebhook(channel.WebhookConfig{
		Port:            cfg.Line.Port,
		Path:            cfg.Line.WebhookPath,
		Bot:             lineClient.Bot(),
		Bus:             eventBus,
		Sheet:           sheetClient,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		Logger:          logger,
	})
	return webhook.Start(ctx)
}

// buildArchiver wires Cloud Storage when archiving is enabled; otherwise the
// archiver runs in disabled mode and images are recorded without uploads.
func buildArchiver(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger, opts []option.ClientOption) (*archive.Archiver, func(), error) {
	if !cfg.Enabled {
		return archive.New(nil, false, cfg.Prefix, logger), func() {}, nil
	}

	store, err := gcs.New(ctx, cfg.Bucket, cfg.PublicBaseURL, logger, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("storage client: %w", err)
	}
	closer := func() {
		if err := store.Close(); err != nil {
			logger.Warn("storage client close failed", "error", err)
		}
	}
	return archive.New(store, true, cfg.Prefix, logger), closer, nil
}

// buildTranscriber assembles the backend chain in fixed order: Whisper first
// when configured, Cloud Speech second.
func buildTranscriber(ctx context.Context, cfg config.TranscriptionConfig, logger *slog.Logger, opts []option.ClientOption) (*transcribe.Chain, func(), error) {
	closer := func() {}
	if !cfg.Enabled {
		return transcribe.NewChain(nil, cfg.StopOnNoSpeech, logger), closer, nil
	}

	var backends []domain.SpeechBackend
	if cfg.Whisper.Enabled {
		backends = append(backends, transcribe.NewWhisperBackend(transcribe.WhisperConfig{
			APIBase:  cfg.Whisper.APIBase,
			APIKey:   cfg.Whisper.APIKey,
			Model:    cfg.Whisper.Model,
			Language: whisperLanguage(cfg.Language),
			Logger:   logger,
		}))
	}
	if cfg.Google.Enabled {
		gb, err := transcribe.NewGoogleBackend(ctx, cfg.Language, logger, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("speech backend: %w", err)
		}
		backends = append(backends, gb)
		closer = func() {
			if err := gb.Close(); err != nil {
				logger.Warn("speech client close failed", "error", err)
			}
		}
	}
	return transcribe.NewChain(backends, cfg.StopOnNoSpeech, logger), closer, nil
}

// whisperLanguage reduces a BCP-47 tag to the ISO-639-1 code Whisper expects.
func whisperLanguage(tag string) string {
	if i := strings.IndexByte(tag, '-'); i > 0 {
		return tag[:i]
	}
	return tag
}

func buildLogger(cfg config.GeneralConfig) (*slog.Logger, error) {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(config.ExpandPath(cfg.LogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check config and connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				return err
			}
			logger.Info("config", "path", cfgPath, "loaded", true)
			if err := config.Validate(cfg); err != nil {
				logger.Warn("config invalid", "error", err)
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			opts, err := creds.Resolve(ctx, cfg.Sheets.Credentials, logger, scopeSpreadsheets)
			if err != nil {
				logger.Error("credentials", "resolved", false, "error", err)
				return err
			}
			logger.Info("credentials", "resolved", true)

			sheetClient, err := sheet.New(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName, logger, opts...)
			if err != nil {
				return err
			}
			if err := sheetClient.Ping(ctx); err != nil {
				logger.Error("sheet", "reachable", false, "error", err)
				return err
			}
			logger.Info("sheet", "reachable", true, "spreadsheet", cfg.Sheets.SpreadsheetID)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. sheets.sheetName)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. storage.enabled false)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
