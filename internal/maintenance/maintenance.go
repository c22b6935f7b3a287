// Package maintenance runs the scheduled housekeeping jobs: nightly database
// backups and conversation retention purges.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"ayaka/internal/domain"
	"ayaka/internal/ledger"
	"ayaka/internal/metrics"
)

// Service owns the cron scheduler.
type Service struct {
	store     domain.Store
	ledger    *ledger.Ledger
	backupDir string
	retention time.Duration
	logger    *slog.Logger
	cron      *cron.Cron
	now       func() time.Time
}

type Config struct {
	Store         domain.Store
	Ledger        *ledger.Ledger
	BackupDir     string
	RetentionDays int
	Logger        *slog.Logger
}

func New(cfg Config) *Service {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	return &Service{
		store:     cfg.Store,
		ledger:    cfg.Ledger,
		backupDir: cfg.BackupDir,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

// SetClock overrides the service clock. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Start schedules the jobs and runs them until the context is cancelled.
func (s *Service) Start(ctx context.Context, backupSchedule, purgeSchedule string) error {
	s.cron = cron.New()

	if _, err := s.cron.AddFunc(backupSchedule, func() {
		if _, err := s.Backup(ctx); err != nil {
			s.logger.Error("scheduled backup failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule backup %q: %w", backupSchedule, err)
	}

	if _, err := s.cron.AddFunc(purgeSchedule, func() {
		if _, err := s.Purge(ctx); err != nil {
			s.logger.Error("scheduled purge failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule purge %q: %w", purgeSchedule, err)
	}

	s.cron.Start()
	s.logger.Info("maintenance scheduler started",
		"backup", backupSchedule,
		"purge", purgeSchedule,
		"retention", s.retention,
	)

	go func() {
		<-ctx.Done()
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
		s.logger.Info("maintenance scheduler stopped")
	}()
	return nil
}

// Backup writes a timestamped snapshot of the database and returns its path.
func (s *Service) Backup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	dest := filepath.Join(s.backupDir, fmt.Sprintf("ayaka-%s.db", s.now().Format("20060102-150405")))
	if err := s.store.Backup(ctx, dest); err != nil {
		return "", fmt.Errorf("backup database: %w", err)
	}

	metrics.BackupsTotal.Inc()
	s.logger.Info("database backed up", "path", dest)
	return dest, nil
}

// Purge drops conversation turns older than the retention window and logs a
// metrics snapshot alongside.
func (s *Service) Purge(ctx context.Context) (int, error) {
	dropped, err := s.ledger.PurgeAll(ctx, s.retention)
	if err != nil {
		return dropped, err
	}
	metrics.TurnsPurgedTotal.Add(int64(dropped))

	s.logger.Info("retention purge finished",
		"dropped", dropped,
		"retention", s.retention,
		"uptime", metrics.Collector.Uptime().Round(time.Second),
		"messages_total", metrics.MessagesTotal.Value(),
		"replies_total", metrics.RepliesTotal.Value(),
		"generation_fails", metrics.GenerationFails.Value(),
	)
	return dropped, nil
}
