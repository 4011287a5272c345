package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/altafino/imap-attachment-downloader/internal/config"
	"github.com/altafino/imap-attachment-downloader/internal/email"
	"github.com/altafino/imap-attachment-downloader/internal/models"
	"github.com/altafino/imap-attachment-downloader/internal/scheduler"
	"github.com/altafino/imap-attachment-downloader/internal/types"
)

// App wires configuration loading, the config watcher and the scheduler
// for long-running operation.
type App struct {
	logger    *slog.Logger
	scheduler *scheduler.Scheduler
	configs   []*types.Config
	configDir string
	configID  string
	watcher   *config.ConfigWatcher
	wg        sync.WaitGroup
}

// New loads configurations and prepares the application. When configID
// is set only that configuration is used, otherwise all enabled ones.
func New(logger *slog.Logger, configDir string, configID string) (*App, error) {
	app := &App{
		logger:    logger,
		configDir: configDir,
		configID:  configID,
	}

	if err := config.LoadConfigs(configDir); err != nil {
		return nil, fmt.Errorf("failed to load configs: %w", err)
	}

	configs, err := app.selectConfigs()
	if err != nil {
		return nil, err
	}
	app.configs = configs

	app.scheduler = scheduler.NewScheduler(logger)
	return app, nil
}

// Configs returns the configurations this app instance operates on.
func (a *App) Configs() []*types.Config {
	return a.configs
}

func (a *App) selectConfigs() ([]*types.Config, error) {
	if a.configID != "" {
		cfg, err := config.GetConfig(a.configID)
		if err != nil {
			return nil, fmt.Errorf("failed to get config %s: %w", a.configID, err)
		}
		return []*types.Config{cfg}, nil
	}
	return config.GetEnabledConfigs(), nil
}

// RunOnce executes the pipeline once for every selected configuration
// and returns the combined per-attachment results.
func (a *App) RunOnce(ctx context.Context) ([]models.DownloadResult, error) {
	if len(a.configs) == 0 {
		return nil, fmt.Errorf("no enabled configurations")
	}

	var all []models.DownloadResult
	var firstErr error
	for _, cfg := range a.configs {
		svc := email.NewService(cfg, a.logger)
		results, err := svc.Run(ctx)
		all = append(all, results...)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("config %s: %w", cfg.Meta.ID, err)
		}
	}
	return all, firstErr
}

// Start begins scheduled operation: config watcher plus one recurring
// job per configuration.
func (a *App) Start() error {
	watcher, err := config.StartWatcher(a.configDir, a.logger)
	if err != nil {
		return fmt.Errorf("failed to start config watcher: %w", err)
	}
	a.watcher = watcher

	a.scheduler.Start()

	for _, cfg := range a.configs {
		if err := a.scheduler.UpdateJob(cfg); err != nil {
			return fmt.Errorf("failed to schedule config %s: %w", cfg.Meta.ID, err)
		}
	}

	a.wg.Add(1)
	go a.watchConfigs()

	return nil
}

// Stop gracefully stops all application services
func (a *App) Stop() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	a.wg.Wait()
}

func (a *App) watchConfigs() {
	defer a.wg.Done()

	for range a.watcher.ReloadChan() {
		a.logger.Info("rescheduling due to configuration change")

		configs, err := a.selectConfigs()
		if err != nil {
			a.logger.Error("failed to get updated configs", "error", err)
			continue
		}
		a.configs = configs

		for _, cfg := range configs {
			if err := a.scheduler.UpdateJob(cfg); err != nil {
				a.logger.Error("failed to reschedule config",
					"config_id", cfg.Meta.ID,
					"error", err,
				)
			}
		}
	}
}
