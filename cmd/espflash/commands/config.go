package commands

import (
	"fmt"

	"github.com/marmos91/espflash/pkg/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the espflash configuration file",
}

var configInitForce bool
var configInitPath string

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file with defaults and comments",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configInitPath != "" {
			if err := config.InitConfigToPath(configInitPath, configInitForce); err != nil {
				return err
			}
			Printer.Success(fmt.Sprintf("wrote config to %s", configInitPath))
			return nil
		}

		path, err := config.InitConfig(configInitForce)
		if err != nil {
			return err
		}
		Printer.Success(fmt.Sprintf("wrote config to %s", path))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the default config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		Printer.Println(config.GetDefaultConfigPath())
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "Write to this path instead of the default location")

	configCmd.AddCommand(configInitCmd, configPathCmd)
}
