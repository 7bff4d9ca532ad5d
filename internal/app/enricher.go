package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shpitdev/pdl-enricher/pkg/pdl"
	"github.com/shpitdev/pdl-enricher/pkg/pipeline/flatten"
	localio "github.com/shpitdev/pdl-enricher/pkg/pipeline/io/local"
	"github.com/shpitdev/pdl-enricher/pkg/pipeline/redact"
)

// FailureMessage is logged once per item that could not be materialized.
const FailureMessage = "Bulk Person Enrichment Error"

// BulkEnricher performs one bulk person enrichment call.
type BulkEnricher interface {
	BulkEnrich(ctx context.Context, req pdl.BulkRequest) ([]pdl.Outcome, error)
}

// EnrichOptions configures RunEnrich.
type EnrichOptions struct {
	InputPath string
	// OutputDir must already exist.
	OutputDir string
	Strict    bool
}

// EnrichSummary counts what a run did.
type EnrichSummary struct {
	RunID     string
	Requested int
	// Written is the number of distinct files written; overwrites count once.
	Written int
	Failed  int
}

// RunEnrich reads profile identifiers from a local CSV, submits them as one bulk request,
// and writes each successful record to <OutputDir>/<linkedin_username>.json.
//
// Failed items are logged and skipped. Only configuration, input, transport, and
// filesystem errors are returned.
func RunEnrich(ctx context.Context, opts EnrichOptions, client BulkEnricher, logger *zap.Logger) (EnrichSummary, error) {
	summary := EnrichSummary{RunID: uuid.NewString()}
	logger = logger.With(zap.String("run", summary.RunID))
	runStart := time.Now()

	if err := requireDir(opts.OutputDir); err != nil {
		return summary, err
	}

	profiles, err := localio.ReadProfilesFile(opts.InputPath)
	if err != nil {
		return summary, err
	}
	summary.Requested = len(profiles)
	logger.Info("loaded profiles",
		zap.Int("count", len(profiles)),
		zap.String("input", opts.InputPath),
		zap.String("output", opts.OutputDir),
		zap.Bool("strict", opts.Strict),
	)

	callStart := time.Now()
	outcomes, err := client.BulkEnrich(ctx, pdl.NewBulkRequest(profiles))
	if err != nil {
		return summary, err
	}
	logger.Debug("bulk response decoded",
		zap.Int("items", len(outcomes)),
		zap.Duration("duration", time.Since(callStart).Round(time.Millisecond)),
	)
	if len(outcomes) != len(profiles) {
		logger.Warn("bulk response item count differs from request",
			zap.Int("requested", len(profiles)),
			zap.Int("received", len(outcomes)),
		)
	}

	writer := localio.NewRecordWriter(opts.OutputDir, opts.Strict)
	for _, outcome := range outcomes {
		switch o := outcome.(type) {
		case pdl.Success:
			path, err := writer.Write(o.Record.Username, o.Record.JSON())
			var collision *localio.CollisionError
			if errors.As(err, &collision) {
				summary.Failed++
				logger.Warn(FailureMessage,
					zap.Int("index", o.Index),
					zap.String("profile", o.Profile),
					zap.Int("status", 200),
					zap.String("reason", err.Error()),
				)
				continue
			}
			if err != nil {
				return summary, fmt.Errorf("write record for %q: %w", o.Record.Username, err)
			}
			logger.Debug("record written", zap.String("profile", o.Profile), zap.String("path", path))
		case pdl.Failure:
			summary.Failed++
			logger.Warn(FailureMessage,
				zap.Int("index", o.Index),
				zap.String("profile", o.Profile),
				zap.Int("status", o.Status),
				zap.String("reason", o.Reason),
				zap.String("response", redact.Secrets(string(o.Raw))),
			)
		}
	}
	summary.Written = writer.Written()

	logger.Info(
		fmt.Sprintf("enrichment complete: requested=%d written=%d failed=%d",
			summary.Requested, summary.Written, summary.Failed),
		zap.Duration("duration", time.Since(runStart).Round(time.Millisecond)),
	)
	return summary, nil
}

// FlattenOptions configures RunFlatten.
type FlattenOptions struct {
	InputDir  string
	OutputDir string
	Strict    bool
}

// RunFlatten collapses the JSON records in InputDir into <OutputDir>/linkedin.csv.
func RunFlatten(opts FlattenOptions, logger *zap.Logger) (flatten.Result, error) {
	if err := requireDir(opts.OutputDir); err != nil {
		return flatten.Result{}, err
	}

	res, err := flatten.Dir(opts.InputDir, opts.OutputDir, flatten.Options{Strict: opts.Strict})
	if err != nil {
		return res, err
	}
	for _, name := range res.Skipped {
		logger.Debug("skipped non-record entry", zap.String("name", name))
	}
	logger.Info("flatten complete",
		zap.String("path", res.Path),
		zap.Int("rows", res.Rows),
		zap.Int("columns", len(res.Header)),
	)
	return res, nil
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output directory %s is not a directory", path)
	}
	return nil
}
