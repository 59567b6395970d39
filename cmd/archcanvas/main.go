package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"archcanvas/internal/config"
)

// Version is the current archcanvas version
var Version = "0.3.0"

var (
	configFlag  string
	baseURLFlag string
	timeoutFlag time.Duration
	dbFlag      string
	verboseFlag bool

	// populated by loadConfig before any subcommand runs
	cfg     *config.Config
	cfgPath string
	dbPath  string
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:     "archcanvas",
	Short:   "archcanvas - build architecture graphs against a graph service",
	Long:    `archcanvas places components and links on a local canvas, confirming each step with the operator and keeping the remote graph service in step.`,
	Version: Version,

	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to the config file (default: search standard locations)")
	rootCmd.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "Graph service base URL")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 0, "Bound on each graph service call")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "SQLite database path")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	if configFlag != "" {
		cfg, cfgPath, err = config.LoadFromPath(configFlag)
	} else {
		cfg, cfgPath, err = config.Load()
	}
	if err != nil {
		return err
	}

	if baseURLFlag != "" {
		cfg.Remote.BaseURL = baseURLFlag
	}
	if timeoutFlag > 0 {
		cfg.Remote.Timeout = config.Duration(timeoutFlag)
	}
	if dbFlag != "" {
		cfg.Database.Path = dbFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	dbPath = cfg.ResolveDatabasePath(cfgPath)

	level := slog.LevelInfo
	if verboseFlag {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
