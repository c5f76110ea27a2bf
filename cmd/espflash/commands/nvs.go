package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/marmos91/espflash/internal/bytesize"
	"github.com/marmos91/espflash/internal/cli/output"
	"github.com/marmos91/espflash/pkg/nvs"
	"github.com/spf13/cobra"
)

var nvsCmd = &cobra.Command{
	Use:   "nvs",
	Short: "Build or inspect an NVS key-value binary",
}

var nvsGenerateInput, nvsGenerateOutput, nvsGenerateSize string

var nvsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build an NVS binary from a CSV key-value list",
	RunE: func(cmd *cobra.Command, args []string) error {
		size, err := bytesize.ParseByteSize(nvsGenerateSize)
		if err != nil {
			return fmt.Errorf("invalid --size %q: %w", nvsGenerateSize, err)
		}

		f, err := os.Open(nvsGenerateInput)
		if err != nil {
			return fmt.Errorf("opening %s: %w", nvsGenerateInput, err)
		}
		defer f.Close()

		b, err := nvs.LoadCSV(f)
		if err != nil {
			return err
		}

		binary := b.GetBinary(int(size.Uint64()))
		if err := os.WriteFile(nvsGenerateOutput, binary, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", nvsGenerateOutput, err)
		}

		Printer.Success(fmt.Sprintf("wrote %s NVS partition to %s", bytesize.ByteSize(len(binary)), nvsGenerateOutput))
		return nil
	},
}

var nvsDumpInput string

var nvsDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the entries of an NVS binary",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(nvsDumpInput)
		if err != nil {
			return fmt.Errorf("reading %s: %w", nvsDumpInput, err)
		}

		entries, err := nvs.Parse(raw)
		if err != nil {
			return err
		}

		table := output.NewTableData("Namespace", "Key", "Type", "Value")
		for _, e := range entries {
			table.AddRow(e.Namespace, e.Key, strconv.Itoa(int(e.Type)), formatParsedValue(e))
		}
		return Printer.Print(table)
	},
}

func formatParsedValue(e nvs.ParsedEntry) string {
	switch {
	case e.Str != "":
		return e.Str
	case len(e.Blob) > 0:
		return fmt.Sprintf("<%d bytes>", len(e.Blob))
	case e.Int != 0:
		return strconv.FormatInt(e.Int, 10)
	default:
		return strconv.FormatUint(e.Uint, 10)
	}
}

func init() {
	nvsGenerateCmd.Flags().StringVar(&nvsGenerateInput, "input", "", "Path to the CSV key-value file")
	nvsGenerateCmd.Flags().StringVar(&nvsGenerateOutput, "output", "", "Path to write the NVS binary")
	nvsGenerateCmd.Flags().StringVar(&nvsGenerateSize, "size", "24Ki", "NVS partition size (e.g. 24Ki, 500KB, 24576)")
	_ = nvsGenerateCmd.MarkFlagRequired("input")
	_ = nvsGenerateCmd.MarkFlagRequired("output")

	nvsDumpCmd.Flags().StringVar(&nvsDumpInput, "input", "", "Path to the NVS binary")
	_ = nvsDumpCmd.MarkFlagRequired("input")

	nvsCmd.AddCommand(nvsGenerateCmd, nvsDumpCmd)
}
