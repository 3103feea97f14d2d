package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storefront-importer/fanout"
	"storefront-importer/internal/types"
	"storefront-importer/orchestrator"
)

var (
	importPreset string
	importRetry  bool
	fanoutDests  []string
	statusWatch  time.Duration
)

var importCmd = &cobra.Command{
	Use:   "import [url]",
	Short: "Extract a product and import it",
	Long: `Extracts the product at the URL and submits it to the import backend.
Presets: quick (no enrichment), full (all enrichment), reviews (import reviews).
With --retry a fallback-eligible failure is replayed once with the same payload.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var importListingCmd = &cobra.Command{
	Use:   "import-listing [url]",
	Short: "Import every product on a search or category page in one bulk call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := requirePipeline()
		if err != nil {
			return err
		}

		options, err := orchestrator.ParsePreset(importPreset)
		if err != nil {
			return err
		}

		result := p.Orchestrator.ImportListing(cmd.Context(), strings.TrimSpace(args[0]), options)
		return report(cmd, result)
	},
}

var fanoutCmd = &cobra.Command{
	Use:   "fanout [url]",
	Short: "Import a product into several destination stores at once",
	Example: `  storefront-importer fanout https://www.etsy.com/listing/1/mug \
    --dest shop-eu="EU Store" --dest shop-us="US Store"`,
	Args: cobra.ExactArgs(1),
	RunE: runFanOut,
}

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show the state of a backend import job",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var debugCmd = &cobra.Command{
	Use:       "debug [on|off]",
	Short:     "Show or set persistent debug mode",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := requirePipeline()
		if err != nil {
			return err
		}

		debug := p.Orchestrator.Debug()
		if len(args) == 1 {
			if err := debug.Set(args[0] == "on"); err != nil {
				return fmt.Errorf("failed to persist debug mode: %w", err)
			}
		}

		state := "off"
		if debug.Enabled() {
			state = "on"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Debug mode: %s\n", state)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importPreset, "preset", "p", orchestrator.PresetQuick, "import preset: quick, full or reviews")
	importCmd.Flags().BoolVar(&importRetry, "retry", false, "replay once if the failure is fallback-eligible")
	importListingCmd.Flags().StringVarP(&importPreset, "preset", "p", orchestrator.PresetQuick, "import preset: quick, full or reviews")
	fanoutCmd.Flags().StringVarP(&importPreset, "preset", "p", orchestrator.PresetQuick, "import preset: quick, full or reviews")
	fanoutCmd.Flags().StringArrayVar(&fanoutDests, "dest", nil, "destination as id or id=name (repeatable)")
	statusCmd.Flags().DurationVar(&statusWatch, "watch", 0, "poll at this interval until the job finishes")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(importListingCmd)
	rootCmd.AddCommand(fanoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(debugCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	p, err := requirePipeline()
	if err != nil {
		return err
	}

	options, err := orchestrator.ParsePreset(importPreset)
	if err != nil {
		return err
	}

	result := p.Orchestrator.Import(cmd.Context(), strings.TrimSpace(args[0]), options)
	if !result.OK && result.CanFallback && importRetry {
		p.Logger.Infof("Retrying after %s", result.Code)
		if retried, ok := p.Orchestrator.Retry(cmd.Context()); ok {
			result = retried
		}
	}

	return report(cmd, result)
}

func runFanOut(cmd *cobra.Command, args []string) error {
	p, err := requirePipeline()
	if err != nil {
		return err
	}

	options, err := orchestrator.ParsePreset(importPreset)
	if err != nil {
		return err
	}

	destinations := parseDestinations(fanoutDests)
	result, err := p.Orchestrator.ImportToDestinations(cmd.Context(), strings.TrimSpace(args[0]), options, destinations, func(completed, total int) {
		p.Logger.Infof("Progress: %d/%d destinations settled", completed, total)
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Message())
	for _, r := range result.Results {
		if r.Success {
			fmt.Fprintf(cmd.OutOrStdout(), "  ok    %s (%s) %s\n", r.DestinationID, r.DestinationName, r.CreatedID)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "  fail  %s (%s) %s\n", r.DestinationID, r.DestinationName, r.Error)
		}
	}

	if result.Outcome() == types.FanOutTotalFailure {
		return errors.New(result.Message())
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	p, err := requirePipeline()
	if err != nil {
		return err
	}
	if p.Jobs == nil {
		return errors.New("import backend is not configured")
	}

	for {
		job, err := p.Jobs.GetJobStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		line := fmt.Sprintf("%s: %s", job.JobID, job.State)
		if job.Progress != nil {
			line += fmt.Sprintf(" (%d/%d", job.Progress.Current, job.Progress.Total)
			if job.Progress.Stage != "" {
				line += " " + job.Progress.Stage
			}
			line += ")"
		}
		if job.Error != "" {
			line += ": " + job.Error
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)

		if statusWatch <= 0 || job.State.Terminal() {
			return nil
		}

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(statusWatch):
		}
	}
}

// parseDestinations reads "id" or "id=name" values
func parseDestinations(values []string) []fanout.Destination {
	destinations := make([]fanout.Destination, 0, len(values))
	for _, v := range values {
		id, name, found := strings.Cut(strings.TrimSpace(v), "=")
		if id == "" {
			continue
		}
		if !found || name == "" {
			name = id
		}
		destinations = append(destinations, fanout.Destination{ID: id, Name: name})
	}
	return destinations
}

func report(cmd *cobra.Command, result types.ImportResult) error {
	if err := writeJSON(cmd, result, ""); err != nil {
		return err
	}
	if !result.OK {
		return fmt.Errorf("import failed: %s", result.Code)
	}
	return nil
}
