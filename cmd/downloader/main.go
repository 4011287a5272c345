package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/altafino/imap-attachment-downloader/internal/app"
	"github.com/altafino/imap-attachment-downloader/internal/config"
	"github.com/altafino/imap-attachment-downloader/internal/email"
	"github.com/altafino/imap-attachment-downloader/internal/logger"
	"github.com/altafino/imap-attachment-downloader/internal/types"
)

var (
	configDir string
	configID  string
	logLevel  string
	logFormat string
	parallel  bool
	dryRun    bool

	log *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "attachment-downloader",
	Short: "Email attachment download service",
	Long: `Connects to IMAP or POP3 mailboxes, extracts attachments from matching
emails and saves them with configurable renaming. Runs once or on a schedule.`,
	RunE: runScheduled,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the download pipeline once",
	RunE:  runOnce,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Report what a run would download, without saving anything",
	RunE:  runSummary,
}

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List mailbox folders (IMAP only)",
	RunE:  runFolders,
}

func init() {
	log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(log)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "./config", "config directory")
	rootCmd.PersistentFlags().StringVar(&configID, "config-id", "", "specific config ID to use")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override logging format (text, json, dev)")

	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	runCmd.Flags().BoolVar(&parallel, "parallel", false, "save attachments with the parallel worker pool")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be downloaded without saving")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(foldersCmd)
	rootCmd.AddCommand(newOAuth2Command())
}

func initConfig() {
	config.InitLogger(log)

	if err := config.LoadConfigs(configDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configs: %v\n", err)
		os.Exit(1)
	}

	configs := config.ListConfigs()
	if len(configs) == 0 {
		fmt.Fprintf(os.Stderr, "No configurations found in %s\n", configDir)
		os.Exit(1)
	}

	log.Info("loaded configurations",
		"count", len(configs),
		"enabled", len(config.GetEnabledConfigs()),
	)
}

// applyOverrides pushes command-line flags into a loaded config.
func applyOverrides(cfg *types.Config, cmd *cobra.Command) {
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if cmd.Flags().Changed("parallel") {
		cfg.Email.Download.Parallel = parallel
	}
}

func selectedConfigs() ([]*types.Config, error) {
	if configID != "" {
		cfg, err := config.GetConfig(configID)
		if err != nil {
			return nil, err
		}
		return []*types.Config{cfg}, nil
	}
	configs := config.GetEnabledConfigs()
	if len(configs) == 0 {
		return nil, fmt.Errorf("no enabled configurations")
	}
	return configs, nil
}

func runScheduled(cmd *cobra.Command, args []string) error {
	application, err := app.New(log, configDir, configID)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer application.Stop()

	for _, cfg := range application.Configs() {
		applyOverrides(cfg, cmd)
	}

	if err := application.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	return nil
}

func runOnce(cmd *cobra.Command, args []string) error {
	if dryRun {
		return runSummary(cmd, args)
	}

	configs, err := selectedConfigs()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var failures int
	for _, cfg := range configs {
		applyOverrides(cfg, cmd)
		svc := email.NewService(cfg, logger.Setup(cfg))

		results, err := svc.Run(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config %s failed: %v\n", cfg.Meta.ID, err)
			failures++
			continue
		}

		saved := 0
		for _, res := range results {
			if res.Success {
				saved++
			} else {
				failures++
			}
		}
		fmt.Printf("%s: saved %d of %d attachments\n", cfg.Meta.ID, saved, len(results))
	}

	if failures > 0 {
		return fmt.Errorf("%d failures", failures)
	}
	return nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	configs, err := selectedConfigs()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	for _, cfg := range configs {
		applyOverrides(cfg, cmd)
		svc := email.NewService(cfg, logger.Setup(cfg))

		summary, attachments, err := svc.Summary(ctx)
		if err != nil {
			return fmt.Errorf("config %s: %w", cfg.Meta.ID, err)
		}

		fmt.Printf("%s: %d emails, %d attachments, %d bytes total\n",
			cfg.Meta.ID, summary.EmailCount, summary.AttachmentCount, summary.TotalSize)
		for _, att := range attachments {
			fmt.Printf("  %s (%d bytes) from %s\n", att.Filename, att.Size, att.EmailSender)
		}
	}
	return nil
}

func runFolders(cmd *cobra.Command, args []string) error {
	configs, err := selectedConfigs()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	for _, cfg := range configs {
		applyOverrides(cfg, cmd)
		svc := email.NewService(cfg, logger.Setup(cfg))

		folders, err := svc.ListFolders(ctx)
		if err != nil {
			return fmt.Errorf("config %s: %w", cfg.Meta.ID, err)
		}

		fmt.Printf("%s:\n", cfg.Meta.ID)
		for _, folder := range folders {
			fmt.Printf("  %s\n", folder)
		}
	}
	return nil
}
