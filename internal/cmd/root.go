package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/zfogg/sidechain/reader/pkg/client"
	"github.com/zfogg/sidechain/reader/pkg/config"
	"github.com/zfogg/sidechain/reader/pkg/credentials"
	clierrors "github.com/zfogg/sidechain/reader/pkg/errors"
	"github.com/zfogg/sidechain/reader/pkg/logger"
	"github.com/zfogg/sidechain/reader/pkg/metrics"
	"github.com/zfogg/sidechain/reader/pkg/output"
)

var (
	verbose    bool
	configPath string
	outputFmt  string

	// collector is shared by every command; nil until PersistentPreRun
	collector *metrics.Collector
)

var rootCmd = &cobra.Command{
	Use:   "sidechain-reader",
	Short: "Sidechain Reader - Browse Sidechain feeds from the terminal",
	Long: `Sidechain Reader is a terminal feed reader for the Sidechain
social music production platform. Feeds load page by page as you
scroll and waveform previews download only when they come into view.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize config and logger
		if err := config.Init(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
			os.Exit(1)
		}

		logger.Init(verbose)

		if cmd.Flags().Changed("output") {
			config.Set("output.format", outputFmt)
		}
		if !output.ValidateOutputFormat(config.GetString("output.format")) {
			fmt.Fprintf(os.Stderr, "Error: unknown output format %q\n", config.GetString("output.format"))
			os.Exit(1)
		}

		client.Init()
		if _, err := credentials.Apply(); err != nil {
			logger.Warn("Ignoring unreadable credentials", "error", err)
		}

		reg := prometheus.NewRegistry()
		collector = metrics.New(reg)
		if addr := config.GetString("metrics.addr"); addr != "" {
			serveMetrics(addr, reg)
		}
	},
}

// serveMetrics exposes the registry on addr for the life of the process
func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", "error", err)
		}
	}()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, clierrors.FormatError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ~/.config/sidechain/reader/config.toml)")
	rootCmd.PersistentFlags().StringVar(&outputFmt, "output", "text", "Output format: text, json, table")

	// Add subcommands
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(mediaCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
