package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/marmos91/espflash/internal/bytesize"
	"github.com/marmos91/espflash/internal/logger"
	"github.com/marmos91/espflash/internal/metrics"
	"github.com/marmos91/espflash/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var writeFlashFlags deviceFlags
var writeFlashPartitions []string

var writeFlashCmd = &cobra.Command{
	Use:   "write-flash",
	Short: "Flash one or more partitions to an attached device",
	Long: `write-flash drives the full bootloader session: reset, sync, detect
chip, upload stub, attach flash, and write every --partition given, in
the order listed. Each --partition is name@offset=file, where offset is
a decimal or 0x-prefixed hex byte address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		image, err := buildImage(writeFlashPartitions)
		if err != nil {
			return err
		}

		sess, collectors, port, err := newSession(&writeFlashFlags)
		if err != nil {
			return err
		}

		ctx := logger.WithContext(context.Background(), logger.NewLogContext(port))

		var stopMetrics func()
		if collectors != nil {
			stopMetrics = serveMetrics(collectors)
			defer stopMetrics()
		}

		if err := sess.Open(ctx); err != nil {
			return fmt.Errorf("opening port: %w", err)
		}
		defer sess.Disconnect()

		if err := sess.FlashImage(ctx, image); err != nil {
			return fmt.Errorf("flashing image: %w", err)
		}

		var total int64
		for _, p := range image.Partitions {
			total += int64(len(p.Binary))
		}
		Printer.Success(fmt.Sprintf("flashed %d partition(s) (%s) to %s", len(image.Partitions), bytesize.ByteSize(total), sess.Chip()))
		return nil
	},
}

func init() {
	addDeviceFlags(writeFlashCmd, &writeFlashFlags)
	writeFlashCmd.Flags().StringArrayVar(&writeFlashPartitions, "partition", nil, "name@offset=file, repeatable")
	_ = writeFlashCmd.MarkFlagRequired("partition")
}

// buildImage reads every --partition spec into a session.Image, acting as
// the CLI's own PartitionSource-equivalent: the session package itself
// never reads the filesystem directly. [spec.md §1 source-agnostic library]
func buildImage(specs []string) (session.Image, error) {
	var image session.Image
	for _, spec := range specs {
		p, err := parsePartitionSpec(spec)
		if err != nil {
			return session.Image{}, err
		}
		image.Partitions = append(image.Partitions, p)
	}
	return image, nil
}

func parsePartitionSpec(spec string) (session.Partition, error) {
	nameRest := strings.SplitN(spec, "@", 2)
	if len(nameRest) != 2 {
		return session.Partition{}, fmt.Errorf("invalid --partition %q: want name@offset=file", spec)
	}

	offsetFile := strings.SplitN(nameRest[1], "=", 2)
	if len(offsetFile) != 2 {
		return session.Partition{}, fmt.Errorf("invalid --partition %q: want name@offset=file", spec)
	}

	offset, err := strconv.ParseUint(strings.TrimSpace(offsetFile[0]), 0, 32)
	if err != nil {
		return session.Partition{}, fmt.Errorf("invalid offset in --partition %q: %w", spec, err)
	}

	binary, err := os.ReadFile(strings.TrimSpace(offsetFile[1]))
	if err != nil {
		return session.Partition{}, fmt.Errorf("reading partition file for %q: %w", spec, err)
	}

	return session.Partition{Name: nameRest[0], Offset: uint32(offset), Binary: binary}, nil
}

// serveMetrics starts the Prometheus metrics HTTP server for the duration
// of a flash, returning a function that shuts it down.
func serveMetrics(collectors *metrics.Collectors) func() {
	reg := prometheus.NewRegistry()
	collectors.MustRegister(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf(":%d", Cfg.Metrics.Port)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()

	return func() {
		_ = srv.Close()
	}
}
