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

	"ayaka/internal/bus"
	"ayaka/internal/channel"
	"ayaka/internal/config"
	"ayaka/internal/curriculum"
	"ayaka/internal/generator"
	"ayaka/internal/ledger"
	"ayaka/internal/maintenance"
	"ayaka/internal/metrics"
	"ayaka/internal/progress"
	"ayaka/internal/roster"
	"ayaka/internal/store"
	"ayaka/internal/tutor"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "ayaka",
		Short: "Ayaka: AI tutor for crypto and stocks learning",
		Long:  "Ayaka is a Telegram learning assistant that teaches crypto and stock trading, tracks per-user progress, and remembers conversations.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.ayaka/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(backupCmd())
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

// configureLogger rebuilds the package logger from loaded config.
func configureLogger(cfg *config.Config) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.General.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := io.Writer(os.Stderr)
	if cfg.General.LogFile != "" {
		path := config.ExpandPath(cfg.General.LogFile)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Warn("cannot open log file, logging to stderr", "path", path, "err", err)
		} else {
			out = f
		}
	}

	logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			dataDir := config.ExpandPath(cfg.General.DataDir)
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "data_dir", dataDir)
			logger.Info("set TELEGRAM_BOT_TOKEN and GEMINI_API_KEY, then start with: ayaka run")
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot (Telegram + tutor + maintenance)",
		Long:  "Starts the Telegram channel, the tutor loop, and the maintenance scheduler. Press Ctrl+C to stop.",
		RunE:  runBot,
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start interactive chat (CLI)",
		RunE:  runChat,
	}
}

// deps is everything the tutor needs, built from config.
type deps struct {
	cfg   *config.Config
	bus   *bus.InMemoryBus
	store *store.SQLiteStore
	tutor *tutor.Tutor
}

func buildDeps(ctx context.Context) (*deps, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
	}
	configureLogger(cfg)

	dataDir := config.ExpandPath(cfg.General.DataDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	st, err := store.NewSQLiteStore(config.ExpandPath(cfg.Storage.DBPath), logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ros, err := roster.Load(config.ExpandPath(cfg.Roster.Path))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load roster: %w", err)
	}
	course, err := curriculum.Load(config.ExpandPath(cfg.Curriculum.Path))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load curriculum: %w", err)
	}

	gen, err := generator.NewGemini(ctx, cfg.Gemini, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("gemini: %w", err)
	}

	messageBus := bus.New(100, logger)

	tut := tutor.New(tutor.Config{
		BotName:     cfg.General.BotName,
		Bus:         messageBus,
		Directory:   roster.NewDirectory(ros, st, logger),
		Roster:      ros,
		Progress:    progress.NewEngine(st, logger),
		Ledger:      ledger.New(st, logger),
		Curriculum:  course,
		Generator:   gen,
		Logger:      logger,
		Concurrency: cfg.General.MaxConcurrentMessages,
	})

	return &deps{cfg: cfg, bus: messageBus, store: st, tutor: tut}, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.store.Close()
	defer d.bus.Close()

	go d.tutor.Run(ctx)

	cliCh := channel.NewCLI(channel.CLIConfig{Logger: logger, BotName: d.cfg.General.BotName})
	return cliCh.Start(ctx, d.bus)
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.store.Close()

	go d.tutor.Run(ctx)

	if d.cfg.Maintenance.Enabled {
		svc := maintenance.New(maintenance.Config{
			Store:         d.store,
			Ledger:        ledger.New(d.store, logger),
			BackupDir:     config.ExpandPath(d.cfg.Storage.BackupDir),
			RetentionDays: d.cfg.Storage.RetentionDays,
			Logger:        logger,
		})
		if err := svc.Start(ctx, d.cfg.Maintenance.BackupSchedule, d.cfg.Maintenance.PurgeSchedule); err != nil {
			return fmt.Errorf("maintenance: %w", err)
		}
	}

	var telegramCh *channel.Telegram
	if d.cfg.Telegram.Enabled && d.cfg.Telegram.Token != "" {
		telegramCh = channel.NewTelegram(channel.TelegramConfig{
			Token:     d.cfg.Telegram.Token,
			ParseMode: d.cfg.Telegram.ParseMode,
			BotName:   d.cfg.General.BotName,
			Logger:    logger,
		})
		go func() {
			if err := telegramCh.Start(ctx, d.bus); err != nil {
				logger.Error("telegram channel error", "err", err)
			}
		}()
		logger.Info("telegram channel enabled")
	} else {
		logger.Warn("telegram channel disabled, bot is only reachable via 'ayaka chat'")
	}

	logger.Info("bot started", "version", version, "bot_name", d.cfg.General.BotName)

	<-ctx.Done()
	logger.Info("shutting down...")

	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if telegramCh != nil {
			telegramCh.Stop()
		}
		d.bus.Close()
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		return fmt.Errorf("shutdown timed out")
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}

			dbPath := config.ExpandPath(cfg.Storage.DBPath)
			st, err := store.NewSQLiteStore(dbPath, logger)
			if err != nil {
				logger.Info("store", "path", dbPath, "open", false, "err", err)
				return nil
			}
			defer st.Close()

			ctx := context.Background()
			ids, err := st.AllIdentities(ctx)
			if err != nil {
				return err
			}
			recs, err := st.AllProgress(ctx)
			if err != nil {
				return err
			}
			logger.Info("store", "path", dbPath, "users", len(ids), "progress_records", len(recs))
			logger.Info("telegram", "enabled", cfg.Telegram.Enabled, "token_set", cfg.Telegram.Token != "")
			logger.Info("gemini", "model", cfg.Gemini.Model, "key_set", cfg.Gemini.APIKey != "")

			fmt.Print(metrics.Collector.Render())
			return nil
		},
	}
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Take a database backup now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			st, err := store.NewSQLiteStore(config.ExpandPath(cfg.Storage.DBPath), logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			svc := maintenance.New(maintenance.Config{
				Store:         st,
				Ledger:        ledger.New(st, logger),
				BackupDir:     config.ExpandPath(cfg.Storage.BackupDir),
				RetentionDays: cfg.Storage.RetentionDays,
				Logger:        logger,
			})
			path, err := svc.Backup(context.Background())
			if err != nil {
				return err
			}
			fmt.Println(path)
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
		Short: "Get a config value (e.g. gemini.model)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
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
		Short: "Set a config value (e.g. gemini.temperature 0.8)",
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
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
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
