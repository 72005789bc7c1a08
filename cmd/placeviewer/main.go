package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/canvasdb/placeviewer/internal/dataset"
	"github.com/canvasdb/placeviewer/internal/httpapi"
	"github.com/canvasdb/placeviewer/internal/ingest"
	"github.com/canvasdb/placeviewer/internal/keyframe"
)

var (
	prefix   string
	sizeX    uint16
	sizeY    uint16
	sizeTile uint16
	verbose  bool

	interval    uint32
	concurrency int

	host string
	port int
)

var rootCmd = &cobra.Command{
	Use:          "placeviewer",
	Short:        "tile-sharded pixel-canvas replay engine",
	SilenceUsage: true,
}

var parseCmd = &cobra.Command{
	Use:   "parse <csv>",
	Short: "ingest a CSV of placements into per-tile placement logs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := ingest.Run(args[0], prefix, sizeX, sizeY, sizeTile, verbose)
		if err != nil {
			return err
		}
		fmt.Printf("parsed %d rows (%d skipped) into %d tiles\n", stats.RowsProcessed, stats.RowsSkipped, stats.TilesWritten)
		return nil
	},
}

var keyframeCmd = &cobra.Command{
	Use:   "keyframe <log...>",
	Short: "build keyframe files for one or more placement logs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return keyframe.Build(cmd.Context(), args, interval, concurrency)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve <config.yaml>",
	Short: "load a dataset registry and serve the HTTP query API",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := dataset.LoadConfig(args[0])
		if err != nil {
			return err
		}
		reg, err := dataset.LoadRegistry(".", cfg)
		if err != nil {
			return err
		}
		defer reg.Close()

		srv := httpapi.NewServer(reg)
		addr := fmt.Sprintf("%s:%d", host, port)
		fmt.Printf("listening on %s\n", addr)
		return http.ListenAndServe(addr, srv)
	},
}

func init() {
	parseCmd.Flags().StringVar(&prefix, "prefix", "out", "output file prefix")
	parseCmd.Flags().Uint16Var(&sizeX, "size-x", 1000, "canvas width")
	parseCmd.Flags().Uint16Var(&sizeY, "size-y", 1000, "canvas height")
	parseCmd.Flags().Uint16Var(&sizeTile, "size-tile", 100, "tile edge length")
	parseCmd.Flags().BoolVar(&verbose, "verbose", false, "verbose progress output")

	keyframeCmd.Flags().Uint32Var(&interval, "interval", 1000, "placements per keyframe snapshot")
	keyframeCmd.Flags().IntVar(&concurrency, "concurrency", 0, "tile build concurrency (0 = auto, sized from available RAM)")

	serveCmd.Flags().StringVar(&host, "host", "0.0.0.0", "bind host")
	serveCmd.Flags().IntVar(&port, "port", 8080, "bind port")

	rootCmd.AddCommand(parseCmd, keyframeCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
