package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/schaermu/cmksync/internal/config"
	"github.com/schaermu/cmksync/internal/gitrepo"
	"github.com/schaermu/cmksync/internal/omd"
	"github.com/schaermu/cmksync/internal/sync"
	"github.com/schaermu/cmksync/internal/ui"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string

	// Sync flags
	siteName   string
	noReload   bool
	fullReload bool
	assumeYes  bool
	dryRun     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cmksync",
	Short: "Sync the last commit into a local OMD site",
	Long: `cmksync copies the files changed by the last git commit into the runtime
tree of a local OMD site and restarts the services that pick them up.

Changed paths are classified against allow/block prefix rules, mapped to
their destination inside the site, copied with sudo, and followed by a core
restart - plus a web frontend reload and UI scheduler restart when the
commit touched the interactive UI.`,
	SilenceUsage: true,
	RunE:         runSync,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cmksync %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/cmksync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "pretty", "log format (pretty, text, json)")

	// Sync flags
	rootCmd.Flags().StringVar(&siteName, "site", "", "target site (skips interactive selection)")
	rootCmd.Flags().BoolVar(&noReload, "no-reload", false, "don't reload services")
	rootCmd.Flags().BoolVar(&fullReload, "full-reload", false, "force a full reload of services")
	rootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "don't ask for confirmation")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")

	rootCmd.AddCommand(versionCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	repo, err := gitrepo.Open(ctx, ".")
	if err != nil {
		return fmt.Errorf("make sure you're in a git repository: %w", err)
	}

	console := ui.NewConsole(os.Stdout, os.Stdin)
	engine := sync.NewEngine(cfg, repo, omd.NewShellHost(), console, console, logger, sync.Options{
		Site:       siteName,
		NoReload:   noReload,
		FullReload: fullReload,
		AssumeYes:  assumeYes,
		DryRun:     dryRun,
	})

	return engine.Run(ctx)
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	// Logs go to stderr; stdout belongs to the interactive console.
	var handler slog.Handler
	switch logFormat {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	default:
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:   level,
			NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
		})
	}

	return slog.New(handler)
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	if cfgFile != "" {
		logger.Debug("loading configuration", "path", cfgFile)
		return config.Load(cfgFile)
	}

	path, err := config.DefaultPath()
	if err != nil {
		return nil, err
	}

	logger.Debug("loading configuration", "path", path)
	return config.LoadIfPresent(path)
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
