package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shpitdev/pdl-enricher/internal/app"
	"github.com/shpitdev/pdl-enricher/internal/config"
	"github.com/shpitdev/pdl-enricher/internal/logging"
	"github.com/shpitdev/pdl-enricher/internal/version"
	"github.com/shpitdev/pdl-enricher/pkg/pdl"
	"github.com/shpitdev/pdl-enricher/pkg/pipeline/redact"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	c := &cli{getenv: getenv, stdout: stdout}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		msg := redact.Value(redact.Secrets(err.Error()), c.cfg.APIKey)
		_, _ = fmt.Fprintf(stderr, "error: %s\n", msg)
		return 1
	}
	return 0
}

// cli holds state shared by the root command and its subcommands.
type cli struct {
	getenv func(string) string
	stdout io.Writer

	configPath string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pdl",
		Short: "Enrich LinkedIn profiles with the People Data Labs bulk person API",
		Long: `pdl submits a list of profile URLs to the People Data Labs Bulk Person
Enrichment API and stores each matched person as <linkedin_username>.json.

The API key is read from PDL_API_KEY.

Example:
  pdl enrich --input profiles.csv --output out/
  pdl flatten --input out/ --output out/`,
		Version:       version.Current,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath, c.getenv)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = c.logLevel
			}
			logger, err := logging.New(cfg.LogLevel, c.stdout)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "info", "Log level: debug, info, warn, error (env: LOG_LEVEL); per-item enrichment failures log at warn, so error hides them")

	root.AddCommand(newEnrichCmd(c), newFlattenCmd(c))
	return root
}

func newEnrichCmd(c *cli) *cobra.Command {
	var (
		opts     app.EnrichOptions
		endpoint string
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich every profile in a CSV file with one bulk request",
		Long: `Reads a header-less CSV whose first column holds profile URLs, sends them in a
single bulk request, and writes each successful match to the output directory.
Items the API could not match are logged and skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("endpoint") {
				c.cfg.Endpoint = endpoint
			}
			if flags.Changed("timeout") {
				if timeout < 0 {
					return fmt.Errorf("--timeout must not be negative (got %s)", timeout)
				}
				c.cfg.RequestTimeout = timeout
			}
			if !flags.Changed("strict") {
				opts.Strict = c.cfg.Strict
			}

			key, err := config.ResolveAPIKey(c.getenv)
			if err != nil {
				return err
			}
			c.cfg.APIKey = key

			client, err := pdl.NewClient(pdl.Config{
				Endpoint: c.cfg.Endpoint,
				APIKey:   c.cfg.APIKey,
				Timeout:  c.cfg.RequestTimeout,
			})
			if err != nil {
				return err
			}

			_, err = app.RunEnrich(cmd.Context(), opts, client, c.logger)
			return err
		},
	}
	cmd.Flags().StringVar(&opts.InputPath, "input", "", "CSV file of profile URLs, one per row, no header")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "", "Existing directory for <linkedin_username>.json files")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Bulk enrichment endpoint override (env: PDL_ENDPOINT)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Request timeout, e.g. 2m; 0 waits indefinitely (env: PDL_REQUEST_TIMEOUT)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Reject a second record for a username already written (env: PDL_STRICT)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newFlattenCmd(c *cli) *cobra.Command {
	var opts app.FlattenOptions
	cmd := &cobra.Command{
		Use:   "flatten",
		Short: "Collapse a directory of person records into linkedin.csv",
		Long: `Reads every .json record in the input directory and writes a tab-delimited,
UTF-8 (with BOM) linkedin.csv into the output directory. The header is taken from
the first record's keys.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("strict") {
				opts.Strict = c.cfg.Strict
			}
			_, err := app.RunFlatten(opts, c.logger)
			return err
		},
	}
	cmd.Flags().StringVar(&opts.InputDir, "input", "", "Directory of <linkedin_username>.json records")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "", "Existing directory for linkedin.csv")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Fail when a record's keys differ from the header (env: PDL_STRICT)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
