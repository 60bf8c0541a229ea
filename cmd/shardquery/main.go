// Command shardquery serves single-shard indexes over HTTP and validates
// queries against index definitions from the command line.
//
// The base logger is created here and injected into every component.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var (
		logFormat string
		logLevel  string
		logger    *slog.Logger
	)

	rootCmd := &cobra.Command{
		Use:           "shardquery",
		Short:         "Per-shard query compilation and search",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(logFormat, logLevel)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format: text or json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "minimum log level: debug, info, warn or error")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := serveOptionsFromFlags(cmd)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), logger, opts)
		},
	}
	serveCmd.Flags().String("addr", ":8080", "listen address (host:port)")
	serveCmd.Flags().String("settings", "", "settings file (YAML or JSON) of an index to create at startup")
	serveCmd.Flags().String("mapping", "", "mapping file (YAML or JSON) of the startup index")
	serveCmd.Flags().String("documents", "", "documents file (YAML or JSON array) to index into the startup index")
	serveCmd.Flags().Int("action-workers", 4, "number of workers running async query actions")
	serveCmd.Flags().Int64("max-body-bytes", 10<<20, "maximum size of a request body")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Compile a query against an index definition and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			settingsPath, _ := cmd.Flags().GetString("settings")
			mappingPath, _ := cmd.Flags().GetString("mapping")
			query, _ := cmd.Flags().GetString("query")
			return validate(cmd.Context(), logger, cmd.OutOrStdout(), settingsPath, mappingPath, query)
		},
	}
	validateCmd.Flags().String("settings", "", "settings file (YAML or JSON)")
	validateCmd.Flags().String("mapping", "", "mapping file (YAML or JSON)")
	validateCmd.Flags().String("query", "", "query as inline JSON, or @path to read it from a file")
	_ = validateCmd.MarkFlagRequired("settings")
	_ = validateCmd.MarkFlagRequired("query")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	rootCmd.AddCommand(serveCmd, validateCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be text or json", format)
	}
}
