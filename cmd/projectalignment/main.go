// projectalignment is the document alignment engine daemon.
//
// It tracks project documents, versions their structure, and surfaces
// alignment suggestions, drift assessments, and generated artifacts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rbagg/ProjectAlignment/config"
	"github.com/rbagg/ProjectAlignment/document"
)

// Version information (set by build flags)
var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "projectalignment",
	Short: "Document alignment engine",
	Long: `projectalignment watches a project's documents, records structural
versions of each one, and turns changes into alignment suggestions,
drift assessments, and regenerated artifacts.

Configuration is read from ~/.config/projectalignment/config.yaml and a
projectalignment.yaml in the working tree, in that order. The project
file is watched and re-merged on change.`,
	RunE: runDaemon,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("projectalignment %s (commit %s, built %s)\n", buildVersion, buildCommit, buildDate)
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Extract and validate a document without recording a version",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

var inspectType string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (overrides discovery)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	inspectCmd.Flags().StringVarP(&inspectType, "type", "t", "", "document type (default: detect from filename)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
		}
		applyOverrides(cfg)
		return cfg, nil
	}

	loader := config.NewLoader(slog.Default())
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg)
	return cfg, nil
}

// applyOverrides layers environment and flag overrides on top of file config.
func applyOverrides(cfg *config.Config) {
	if url := os.Getenv("NATS_URL"); url != "" {
		cfg.NATS.URL = url
		cfg.NATS.Embedded = false
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
	return logger
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := setupLogger(cfg.Logging.Level)

	printBanner(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	if err := app.Start(ctx); err != nil {
		return wrapNATSError(err, cfg)
	}
	defer app.Shutdown(10 * time.Second)

	logger.Info("engine ready",
		"nats", app.natsMode(),
		"metrics", cfg.Metrics.Listen)

	<-ctx.Done()
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var docType document.Type
	if inspectType != "" {
		docType, err = document.ParseType(inspectType)
		if err != nil {
			return err
		}
	} else {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		detected, ok := document.DetectType(path, cfg.TypeRules())
		if !ok {
			return fmt.Errorf("could not detect document type for %s; use --type", path)
		}
		docType = detected
	}

	structure, report := document.Extract(document.NormalizeHTML(string(raw)), docType)

	fmt.Printf("Document type: %s\n", docType)
	fmt.Printf("Sections (%d):\n", structure.Len())
	for _, section := range structure.Sections {
		fmt.Printf("  %s (%d chars)\n", section.Name, len(section.Content.FlatText()))
	}
	if len(report.SuggestedAdditions) > 0 {
		fmt.Println("Missing expected sections:")
		for _, name := range report.SuggestedAdditions {
			fmt.Printf("  %s\n", name)
		}
	}
	for _, s := range report.LengthSuggestions {
		fmt.Printf("Length: %s: %s\n", s.Section, s.Recommendation)
	}
	if report.OverallSuggestion != "" {
		fmt.Printf("Overall: %s\n", report.OverallSuggestion)
	}
	return nil
}

func printBanner(cfg *config.Config) {
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║         projectalignment             ║")
	fmt.Println("║   document alignment engine          ║")
	fmt.Println("╚══════════════════════════════════════╝")
	fmt.Printf("Version: %s\n", buildVersion)
	if cfg.NATS.URL != "" && !cfg.NATS.Embedded {
		fmt.Printf("NATS:    %s\n", cfg.NATS.URL)
	} else {
		fmt.Println("NATS:    embedded")
	}
	fmt.Println()
}

// wrapNATSError adds connection guidance to NATS startup failures.
func wrapNATSError(err error, cfg *config.Config) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "no servers available") {
		return fmt.Errorf(`%w

Could not reach NATS at %s.
  - Check that the server is running and reachable
  - Unset NATS_URL (or nats.url in config) to use the embedded server`, err, cfg.NATS.URL)
	}
	return err
}
