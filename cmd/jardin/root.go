package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jardin/internal/config"
	"jardin/internal/logging"
)

var (
	configPath string
	verbose    bool
	noColor    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "jardin",
	Short: "Plant-spotting progress tracker",
	Long: `jardin tracks which plants of the garden catalog you have confirmed with a
photo, computes your level and keeps captures taken offline until the
classification endpoint is reachable again.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd)

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Logging.Format)
		if err != nil {
			return err
		}
		applyColorProfile()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to jardin.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().String("store", "", "Store engine: sqlite or json (overrides JARDIN_STORE)")
	rootCmd.PersistentFlags().String("data", "", "Path to the data file (overrides JARDIN_DATA_FILE)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(queueCmd)
}

func applyFlagOverrides(cmd *cobra.Command) {
	if v, _ := cmd.Flags().GetString("store"); strings.TrimSpace(v) != "" {
		cfg.Store.Engine = strings.ToLower(strings.TrimSpace(v))
		if !cmd.Flags().Changed("data") && os.Getenv("JARDIN_DATA_FILE") == "" {
			cfg.Store.Path = ""
		}
	}
	if v, _ := cmd.Flags().GetString("data"); strings.TrimSpace(v) != "" {
		cfg.Store.Path = strings.TrimSpace(v)
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultDataFile(cfg.Store.Engine)
	}
}

func applyColorProfile() {
	if noColor || strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
