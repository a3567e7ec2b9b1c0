package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cfgpkg "github.com/KaramelBytes/segmenta-cli/internal/config"
	"github.com/KaramelBytes/segmenta-cli/internal/runstore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	cfgFile     string
	debug       bool
	flagRunsDir string

	// Loaded configuration
	cfg *cfgpkg.Global

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "segmenta",
	Short: "Segmenta CLI: K-Means segmentation for tabular product data",
	Long: `Segmenta cleans a CSV/XLSX table, picks the number of clusters with the elbow and
silhouette methods, fits K-Means and explains every segment in business terms.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle (loadConfig refers back to rootCmd).
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loadConfig()
		l, err := newLogger()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.segmenta/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagRunsDir, "runs-dir", "", "directory for stored runs (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
	if rootCmd.PersistentFlags().Changed("runs-dir") && flagRunsDir != "" {
		cfg.RunsDir = flagRunsDir
	}
}

func newLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	level := "warn"
	if cfg != nil && cfg.LogLevel != "" {
		level = cfg.LogLevel
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	if debug {
		lvl = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// runStore opens the run store from --runs-dir, config, or ~/.segmenta/runs.
func runStore() (*runstore.Store, error) {
	dir := flagRunsDir
	if dir == "" && cfg != nil {
		dir = cfg.RunsDir
	}
	if dir == "" {
		base, err := cfgpkg.Dir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "runs")
	}
	return runstore.NewStore(dir), nil
}
