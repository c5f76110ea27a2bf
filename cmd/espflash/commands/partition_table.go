package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/marmos91/espflash/internal/bytesize"
	"github.com/marmos91/espflash/internal/cli/output"
	"github.com/marmos91/espflash/pkg/parttable"
	"github.com/spf13/cobra"
)

var partitionTableCmd = &cobra.Command{
	Use:   "partition-table",
	Short: "Build or inspect a partition-table binary",
}

var ptGenerateInput, ptGenerateOutput string

var partitionTableGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build a partition-table binary from a CSV definition list",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(ptGenerateInput)
		if err != nil {
			return fmt.Errorf("opening %s: %w", ptGenerateInput, err)
		}
		defer f.Close()

		defs, err := parttable.LoadCSV(f)
		if err != nil {
			return err
		}

		table, err := parttable.Build(defs)
		if err != nil {
			return err
		}

		if err := os.WriteFile(ptGenerateOutput, table, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", ptGenerateOutput, err)
		}

		Printer.Success(fmt.Sprintf("wrote %s partition table (%d entries) to %s", bytesize.ByteSize(len(table)), len(defs), ptGenerateOutput))
		return nil
	},
}

var ptDumpInput string

var partitionTableDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the entries of a partition-table binary",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(ptDumpInput)
		if err != nil {
			return fmt.Errorf("reading %s: %w", ptDumpInput, err)
		}

		entries, err := parttable.Parse(raw)
		if err != nil {
			return err
		}

		table := output.NewTableData("Name", "Type", "Subtype", "Offset", "Size", "Flags")
		for _, e := range entries {
			table.AddRow(
				e.Name,
				"0x"+strconv.FormatUint(uint64(e.Type), 16),
				"0x"+strconv.FormatUint(uint64(e.Subtype), 16),
				"0x"+strconv.FormatUint(uint64(e.Offset), 16),
				"0x"+strconv.FormatUint(uint64(e.Size), 16),
				"0x"+strconv.FormatUint(uint64(e.Flags), 16),
			)
		}
		return Printer.Print(table)
	},
}

func init() {
	partitionTableGenerateCmd.Flags().StringVar(&ptGenerateInput, "input", "", "Path to the CSV partition definition file")
	partitionTableGenerateCmd.Flags().StringVar(&ptGenerateOutput, "output", "", "Path to write the partition-table binary")
	_ = partitionTableGenerateCmd.MarkFlagRequired("input")
	_ = partitionTableGenerateCmd.MarkFlagRequired("output")

	partitionTableDumpCmd.Flags().StringVar(&ptDumpInput, "input", "", "Path to the partition-table binary")
	_ = partitionTableDumpCmd.MarkFlagRequired("input")

	partitionTableCmd.AddCommand(partitionTableGenerateCmd, partitionTableDumpCmd)
}
