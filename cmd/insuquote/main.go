package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/coolbeans/insuquote/pkg/aggregate"
	"github.com/coolbeans/insuquote/pkg/catalog"
	"github.com/coolbeans/insuquote/pkg/match"
	"github.com/coolbeans/insuquote/pkg/parse"
	"github.com/coolbeans/insuquote/pkg/pricing"
	"github.com/coolbeans/insuquote/pkg/watch"
)

var version = "0.1.0"

// pipelineFlags are the inputs shared by every subcommand.
type pipelineFlags struct {
	source     string
	catalogVal string
	brand      string
	tuningPath string
	verbose    bool
	asJSON     bool
}

// tuningFile is the optional thresholds override file. The defaults are
// empirical constants with no documented derivation, so they stay
// configurable rather than hard-coded.
type tuningFile struct {
	match.Tuning         `yaml:",inline"`
	DiscrepancyTolerance float64 `yaml:"discrepancy_tolerance"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "insuquote",
		Short: "Insulation quote text parser",
		Long: `Insuquote converts pasted scope-of-works text into a structured
worksheet of grouped material line items, matched against a materials
and labour-rate catalog.

It produces:
  - A raw worksheet for review (groups, line items, match suggestions)
  - An aggregated worksheet with duplicates merged across locations
  - Quote totals with margin and GST via the pricing calculator`,
		Version: version,
	}

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(aggregateCmd())
	rootCmd.AddCommand(priceCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addPipelineFlags(cmd *cobra.Command, f *pipelineFlags) {
	cmd.Flags().StringVar(&f.source, "source", "", "quote text file to parse (required)")
	cmd.Flags().StringVar(&f.catalogVal, "catalog", "", "catalog snapshot YAML file")
	cmd.Flags().StringVar(&f.brand, "brand", "", "operator-selected insulation brand filter")
	cmd.Flags().StringVar(&f.tuningPath, "tuning", "", "thresholds override YAML file")
	cmd.Flags().BoolVar(&f.verbose, "verbose", false, "debug classification tracing")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "emit JSON instead of a summary")
	cmd.MarkFlagRequired("source")
}

func parseCmd() *cobra.Command {
	f := &pipelineFlags{}
	var stats bool
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse quote text into a raw worksheet",
		Long: `Parse pasted quote text into a raw worksheet of groups and line items.

Example:
  insuquote parse --source quote.txt --catalog catalog.yaml
  insuquote parse --source quote.txt --catalog catalog.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, err := runParse(f)
			if err != nil {
				return err
			}
			if stats {
				return printJSON(ws.Statistics())
			}
			if f.asJSON {
				return printJSON(ws)
			}
			printRawWorksheet(ws)
			return nil
		},
	}
	addPipelineFlags(cmd, f)
	cmd.Flags().BoolVar(&stats, "stats", false, "print parse statistics only")
	return cmd
}

func aggregateCmd() *cobra.Command {
	f := &pipelineFlags{}
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Parse and aggregate quote text",
		Long: `Parse quote text and merge equivalent line items across groups that
share a location, category and item type.

Example:
  insuquote aggregate --source quote.txt --catalog catalog.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			aggregated, _, err := runAggregate(f)
			if err != nil {
				return err
			}
			if f.asJSON {
				return printJSON(aggregated)
			}
			printAggregatedWorksheet(aggregated)
			return nil
		},
	}
	addPipelineFlags(cmd, f)
	return cmd
}

func priceCmd() *cobra.Command {
	f := &pipelineFlags{}
	params := pricing.DefaultParams()
	var frame string
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Parse, aggregate and price a quote",
		Long: `Run the full pipeline and compute quote totals with margin and GST.

Example:
  insuquote price --source quote.txt --catalog catalog.yaml --margin 0.3 --gst 0.1 --frame timber`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.catalogVal == "" {
				return fmt.Errorf("pricing requires --catalog")
			}
			aggregated, snap, err := runAggregate(f)
			if err != nil {
				return err
			}
			params.Frame = catalog.FrameType(strings.ToLower(frame))
			quote := pricing.Calculate(aggregated, snap, params)
			if f.asJSON {
				return printJSON(quote)
			}
			printQuote(quote)
			return nil
		},
	}
	addPipelineFlags(cmd, f)
	cmd.Flags().Float64Var(&params.MarginRate, "margin", params.MarginRate, "margin rate applied to cost")
	cmd.Flags().Float64Var(&params.GSTRate, "gst", params.GSTRate, "GST rate")
	cmd.Flags().StringVar(&frame, "frame", string(params.Frame), "frame type for labour rates (timber|steel)")
	return cmd
}

func watchCmd() *cobra.Command {
	f := &pipelineFlags{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-parse and re-aggregate whenever the source file changes",
		Long: `Watch the quote text file and re-run parse+aggregate on every edit.
Each change re-reads the text and the catalog from scratch.

Example:
  insuquote watch --source quote.txt --catalog catalog.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(f.verbose)

			rerun := func(path string) {
				aggregated, _, err := runAggregate(f)
				if err != nil {
					log.Error().Err(err).Msg("re-parse failed")
					return
				}
				fmt.Printf("--- %s changed ---\n", path)
				printAggregatedWorksheet(aggregated)
			}

			w, err := watch.New([]string{f.source}, rerun, watch.WithLogger(log))
			if err != nil {
				return err
			}
			defer w.Stop()

			fmt.Printf("Watching %s (Ctrl-C to stop)\n", f.source)
			w.Run()
			return nil
		},
	}
	addPipelineFlags(cmd, f)
	return cmd
}

// runParse loads inputs and builds the raw worksheet.
func runParse(f *pipelineFlags) (*parse.RawWorksheet, *catalog.Snapshot, error) {
	text, err := os.ReadFile(f.source)
	if err != nil {
		return nil, nil, fmt.Errorf("reading source: %w", err)
	}

	var snap *catalog.Snapshot
	if f.catalogVal != "" {
		snap, err = catalog.LoadSnapshot(f.catalogVal)
		if err != nil {
			return nil, nil, err
		}
	}

	opts := []parse.Option{parse.WithLogger(newLogger(f.verbose))}
	if f.brand != "" {
		opts = append(opts, parse.WithBrandHint(f.brand))
	}
	if f.tuningPath != "" {
		tf, err := loadTuning(f.tuningPath)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, parse.WithTuning(tf.Tuning))
		if tf.DiscrepancyTolerance > 0 {
			opts = append(opts, parse.WithTolerance(tf.DiscrepancyTolerance))
		}
	}

	builder := parse.NewBuilder(snap, opts...)
	return builder.Build(string(text)), snap, nil
}

// runAggregate runs parse then aggregation, validating the result.
func runAggregate(f *pipelineFlags) (*aggregate.Worksheet, *catalog.Snapshot, error) {
	raw, snap, err := runParse(f)
	if err != nil {
		return nil, nil, err
	}
	agg := aggregate.New(aggregate.WithLogger(newLogger(f.verbose)))
	ws := agg.Aggregate(raw)
	if err := agg.Validate(ws); err != nil {
		// Invariant violations are defects, not parse failures; report and
		// keep the output usable for review.
		fmt.Fprintln(os.Stderr, err)
	}
	return ws, snap, nil
}

func loadTuning(path string) (*tuningFile, error) {
	tf := &tuningFile{Tuning: match.DefaultTuning()}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tuning: %w", err)
	}
	if err := yaml.Unmarshal(data, tf); err != nil {
		return nil, fmt.Errorf("parsing tuning: %w", err)
	}
	return tf, nil
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printRawWorksheet(ws *parse.RawWorksheet) {
	stats := ws.Statistics()
	fmt.Printf("Parsed %d groups, %d items (%d matched, %d unmatched)\n\n",
		stats.Groups, stats.Items, stats.Matched, stats.Unmatched)

	for _, g := range ws.Groups {
		fmt.Printf("%s\n", g.Name)
		if g.Block != "" {
			fmt.Printf("  [block: %s]\n", g.Block)
		}
		for _, it := range g.Items {
			fmt.Printf("  - %s", it.Description)
			if it.FullRValue() != "" {
				fmt.Printf(" R%s", it.FullRValue())
			}
			fmt.Printf(" | %.2f %s", it.Quantity, it.Unit)
			if it.ProductCount > 0 {
				fmt.Printf(" | %d %ss", it.ProductCount, it.ProductUnit)
			}
			if it.MaterialID != "" {
				fmt.Printf(" | material %s", it.MaterialID)
			}
			if it.SupplyOnly {
				fmt.Printf(" | supply only")
			}
			fmt.Println()
			for _, note := range it.Notes {
				fmt.Printf("      note: %s\n", note)
			}
		}
		fmt.Println()
	}
}

func printAggregatedWorksheet(ws *aggregate.Worksheet) {
	fmt.Printf("%d aggregated groups\n\n", len(ws.Groups))
	for _, g := range ws.Groups {
		fmt.Printf("%s  (from %d groups)\n", g.Name, len(g.SourceGroupIDs))
		for _, it := range g.Items {
			fmt.Printf("  - %s | %.2f %s", it.Description, it.Quantity, it.Unit)
			if it.MaterialID != "" {
				fmt.Printf(" | material %s", it.MaterialID)
			}
			fmt.Println()
		}
		fmt.Println()
	}
}

func printQuote(q pricing.Quote) {
	for _, g := range q.Groups {
		fmt.Printf("%s\n", g.Name)
		for _, line := range g.Lines {
			fmt.Printf("  - %-40s %10.2f %-5s material %9.2f  labour %9.2f",
				line.Description, line.Quantity, line.Unit, line.MaterialCost, line.LabourCost)
			if line.Unmatched {
				fmt.Printf("  (unmatched)")
			}
			fmt.Println()
		}
	}
	t := q.Totals
	fmt.Printf("\nMaterials: %10.2f\nLabour:    %10.2f\nSubtotal:  %10.2f\nMargin:    %10.2f\nGST:       %10.2f\nTotal:     %10.2f\n",
		t.MaterialCost, t.LabourCost, t.Subtotal, t.Margin, t.GST, t.Total)
	if t.Unmatched > 0 {
		fmt.Printf("\n%d line item(s) unmatched; totals exclude their material cost\n", t.Unmatched)
	}
}
