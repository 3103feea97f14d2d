package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"storefront-importer/extractor"
	"storefront-importer/internal/types"
	"storefront-importer/orchestrator"
)

// ProductExtractor is the extraction surface the CLI drives
type ProductExtractor interface {
	Detect(rawURL string) types.PlatformID
	Extract(ctx context.Context, rawURL string) (types.CanonicalProduct, error)
	ExtractListing(ctx context.Context, rawURL string) ([]types.CanonicalProduct, error)
	ExtractMany(ctx context.Context, urls []string) []extractor.Result
}

// JobQuerier fetches backend job state
type JobQuerier interface {
	GetJobStatus(ctx context.Context, jobID string) (types.JobStatus, error)
}

// ActivityHistory reads back the newest activity records
type ActivityHistory interface {
	Recent(ctx context.Context, n int64) ([]types.ActivityRecord, error)
}

// Pipeline holds what the commands run against. History is nil when no
// Redis activity sink is configured.
type Pipeline struct {
	Extractor    ProductExtractor
	Orchestrator *orchestrator.Orchestrator
	Jobs         JobQuerier
	History      ActivityHistory
	Logger       *logrus.Logger
}

var (
	pipeline *Pipeline
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "storefront-importer",
	Short: "Extract marketplace products and import them into your store",
	Long: `Detects the marketplace of a product URL, extracts a normalized product
record from the page and submits it to the import backend.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose && pipeline != nil && pipeline.Logger != nil {
			pipeline.Logger.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// ExecuteContext runs the command line against p
func ExecuteContext(ctx context.Context, p *Pipeline) error {
	pipeline = p
	return rootCmd.ExecuteContext(ctx)
}

func requirePipeline() (*Pipeline, error) {
	if pipeline == nil {
		return nil, errors.New("pipeline not configured")
	}
	return pipeline, nil
}

// writeJSON prints v as indented JSON, or writes it to path when set
func writeJSON(cmd *cobra.Command, v interface{}, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if path == "" {
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Results written to: %s\n", path)
	return nil
}
