// Package commands implements the espflash CLI commands.
package commands

import (
	"fmt"
	"os"

	"github.com/marmos91/espflash/internal/cli/output"
	"github.com/marmos91/espflash/internal/logger"
	"github.com/marmos91/espflash/pkg/config"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Flags holds the global, persistent flag values shared by every subcommand.
var Flags struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	Output     string
	NoColor    bool
}

// Cfg is the configuration loaded during PersistentPreRunE, available to
// every subcommand once the root command starts running.
var Cfg *config.Config

// Printer is the output.Printer constructed from the resolved --output and
// --no-color flags, available to every subcommand.
var Printer *output.Printer

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "espflash",
	Short: "Flash and inspect ESP32/ESP8266 devices over a serial bootloader",
	Long: `espflash talks to the ROM or stub bootloader of an ESP32/ESP8266 device
over a serial port: it can sync, identify the chip, upload a RAM stub,
and flash a full image or individual partitions, as well as build and
inspect partition-table and NVS binaries offline.

Use "espflash [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.MustLoad(Flags.ConfigPath)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level = Flags.LogLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Logging.Format = Flags.LogFormat
		}
		config.ApplyDefaults(cfg)
		if err := config.Validate(cfg); err != nil {
			return err
		}

		if err := logger.Init(logger.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cfg.Logging.Output,
		}); err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		format, err := output.ParseFormat(Flags.Output)
		if err != nil {
			return err
		}

		Cfg = cfg
		Printer = output.NewPrinter(os.Stdout, format, !Flags.NoColor)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&Flags.ConfigPath, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/espflash/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&Flags.LogLevel, "log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&Flags.LogFormat, "log-format", "", "Log format override (text, json)")
	rootCmd.PersistentFlags().StringVarP(&Flags.Output, "output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().BoolVar(&Flags.NoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(chipIDCmd)
	rootCmd.AddCommand(writeFlashCmd)
	rootCmd.AddCommand(partitionTableCmd)
	rootCmd.AddCommand(nvsCmd)
	rootCmd.AddCommand(configCmd)

	// Hide the default completion command (we provide our own).
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
