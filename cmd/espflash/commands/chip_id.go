package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/espflash/internal/logger"
	"github.com/spf13/cobra"
)

var chipIDFlags deviceFlags

var chipIDCmd = &cobra.Command{
	Use:   "chip-id",
	Short: "Reset, sync, and report the attached chip family",
	Long: `chip-id resets the target into its ROM bootloader, synchronizes with
it, and reads the chip-magic register to report which ESP32/ESP8266
family is attached. It does not upload a stub or touch flash.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, _, port, err := newSession(&chipIDFlags)
		if err != nil {
			return err
		}

		ctx := logger.WithContext(context.Background(), logger.NewLogContext(port))

		if err := sess.Open(ctx); err != nil {
			return fmt.Errorf("opening port: %w", err)
		}
		defer sess.Disconnect()

		if err := sess.Sync(ctx); err != nil {
			return fmt.Errorf("sync: %w", err)
		}

		chip, err := sess.DetectChip(ctx)
		if err != nil {
			return fmt.Errorf("detecting chip: %w", err)
		}

		Printer.Println(string(chip))
		return nil
	},
}

func init() {
	addDeviceFlags(chipIDCmd, &chipIDFlags)
}
