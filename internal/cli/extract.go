package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storefront-importer/internal/types"
)

var (
	extractOutput string
	listingOutput string
)

var detectCmd = &cobra.Command{
	Use:   "detect [url]",
	Short: "Print the marketplace a URL belongs to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := requirePipeline()
		if err != nil {
			return err
		}

		platform := p.Extractor.Detect(strings.TrimSpace(args[0]))
		if platform == types.PlatformUnknown {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (unsupported, generic extraction only)\n", platform)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), platform)
		return nil
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract [url...]",
	Short: "Extract product records from product pages",
	Long: `Loads each product page, extracts a normalized product record and prints
the results as JSON. Several URLs are extracted concurrently.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

var listingCmd = &cobra.Command{
	Use:   "listing [url]",
	Short: "Extract every product card on a search or category page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := requirePipeline()
		if err != nil {
			return err
		}

		items, err := p.Extractor.ExtractListing(cmd.Context(), strings.TrimSpace(args[0]))
		if err != nil {
			return fmt.Errorf("listing extraction failed: %w", err)
		}

		p.Logger.Infof("Found %d products on listing page", len(items))
		return writeJSON(cmd, items, listingOutput)
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output file path (default: stdout)")
	listingCmd.Flags().StringVarP(&listingOutput, "output", "o", "", "output file path (default: stdout)")

	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(listingCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	p, err := requirePipeline()
	if err != nil {
		return err
	}

	startTime := time.Now()
	p.Logger.Infof("Starting extraction of %d URLs at %v", len(args), startTime.Format("15:04:05.000"))

	if len(args) == 1 {
		product, err := p.Extractor.Extract(cmd.Context(), strings.TrimSpace(args[0]))
		if err != nil {
			return fmt.Errorf("extraction failed: %w", err)
		}
		p.Logger.Infof("Extraction completed in %v", time.Since(startTime))
		return writeJSON(cmd, product, extractOutput)
	}

	urls := make([]string, len(args))
	for i, arg := range args {
		urls[i] = strings.TrimSpace(arg)
	}

	results := p.Extractor.ExtractMany(cmd.Context(), urls)

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	p.Logger.Infof("Extraction completed in %v: %d succeeded, %d failed", time.Since(startTime), len(results)-failed, failed)

	return writeJSON(cmd, results, extractOutput)
}
