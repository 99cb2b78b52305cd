package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scxtools/kernelctl/cmd/kernelctl/tui"
	"github.com/scxtools/kernelctl/pkg/kernelctl/catalog"
	"github.com/scxtools/kernelctl/pkg/kernelctl/config"
	"github.com/scxtools/kernelctl/pkg/kernelctl/logging"
	"github.com/scxtools/kernelctl/pkg/kernelctl/privexec"
	"github.com/scxtools/kernelctl/pkg/kernelctl/schedext"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "kernelctl",
		Short: "Manage kernels and sched_ext schedulers",
		Long: `Kernelctl manages installed kernels through pacman and controls the
sched_ext scheduler service.

By default, kernelctl launches an interactive TUI for browsing kernels
and switching schedulers. Subcommands cover scripted use.

Examples:
  kernelctl                          # Interactive TUI
  kernelctl list --installed         # Installed kernels as a table
  kernelctl apply -i linux-zen       # Install a kernel
  kernelctl sched status --watch     # Follow scheduler state
  kernelctl sched apply scx_lavd     # Switch scheduler
  kernelctl history                  # Past transactions`,
		Args: cobra.NoArgs,
		RunE: runTUI,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/kernelctl/config.yaml)")
	rootCmd.PersistentFlags().String("pacman-bin", "", "pacman executable path")
	rootCmd.PersistentFlags().String("helper", "", "privilege elevation helper")
	rootCmd.PersistentFlags().BoolP("dry-run", "d", false, "stage and print transactions without committing")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	_ = viper.BindPFlag("pacman_bin", rootCmd.PersistentFlags().Lookup("pacman-bin"))
	_ = viper.BindPFlag("helper", rootCmd.PersistentFlags().Lookup("helper"))
	_ = viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "kernelctl"))
		}
		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "kernelctl"))
		}
	}

	viper.SetEnvPrefix("KERNELCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads the full configuration, folding in flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if bin := viper.GetString("pacman_bin"); bin != "" {
		cfg.PacmanBin = bin
	}
	if helper := viper.GetString("helper"); helper != "" {
		cfg.Helper = helper
	}
	return cfg, nil
}

// initLogging initializes the logging system from configuration.
func initLogging(cfg *config.Config, tuiMode bool) error {
	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Components: cfg.Logging.Components,
		TUIMode:    tuiMode,
		Rotation: logging.RotationConfig{
			MaxSize:    int64(cfg.Logging.Rotation.MaxSizeMB) * 1024 * 1024,
			MaxAge:     cfg.Logging.Rotation.MaxAge,
			MaxBackups: cfg.Logging.Rotation.MaxBackups,
		},
	}
	if viper.GetBool("verbose") {
		logCfg.Level = "debug"
		if !tuiMode {
			logCfg.ConsoleLevel = "debug"
		}
	}
	return logging.Init(logCfg)
}

// buildCatalog constructs the pacman catalog from configuration.
func buildCatalog(cfg *config.Config) *catalog.Pacman {
	return catalog.NewPacman(catalog.Options{
		PacmanBin:  cfg.PacmanBin,
		ModulesDir: cfg.ModulesDir,
		Elevated:   privexec.NewElevated(cfg.Helper),
		DryRun:     viper.GetBool("dry_run"),
	})
}

// buildController constructs the scheduler controller from configuration.
func buildController(cfg *config.Config) *schedext.Controller {
	c := schedext.NewController(
		schedext.WithElevated(privexec.NewElevated(cfg.Helper)),
	)
	if cfg.Sched.Service != "" {
		c.Service = cfg.Sched.Service
	}
	if cfg.Sched.ConfPath != "" {
		c.ConfPath = cfg.Sched.ConfPath
	}
	return c
}

// buildStatusReader constructs the sysfs status reader from configuration.
func buildStatusReader(cfg *config.Config) schedext.StatusReader {
	reader := schedext.NewStatusReader()
	if cfg.Sched.StateFile != "" {
		reader.StateFile = cfg.Sched.StateFile
	}
	if cfg.Sched.OpsFile != "" {
		reader.OpsFile = cfg.Sched.OpsFile
	}
	return reader
}

// runTUI launches the interactive interface.
func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg, true); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	return tui.Run(tui.Options{
		Catalog:      buildCatalog(cfg),
		Controller:   buildController(cfg),
		StatusReader: buildStatusReader(cfg),
		PollInterval: cfg.Sched.PollInterval,
		HistoryPath:  historyPath(cfg),
	})
}

// historyPath resolves the history store path, or empty when disabled.
func historyPath(cfg *config.Config) string {
	if !cfg.History.Enabled {
		return ""
	}
	if cfg.History.Path != "" {
		return cfg.History.Path
	}
	if err := config.EnsureDataDir(); err != nil {
		return ""
	}
	return config.DefaultDBPath()
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
