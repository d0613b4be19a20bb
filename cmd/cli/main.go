package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"terptracker/internal/app"
	"terptracker/internal/classifier"
	"terptracker/internal/effects"
	"terptracker/pkg/logger"
	"terptracker/pkg/models"
	"terptracker/pkg/utils"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var timeout time.Duration

	root := &cobra.Command{
		Use:           "terptracker",
		Short:         "TerpTracker strain analysis CLI",
		SilenceUsage:  true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "analysis timeout")

	root.AddCommand(
		analyzeURLCommand(&timeout),
		strainCommand(&timeout),
		classifyCommand(),
	)
	return root
}

func analyzeURLCommand(timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze-url <url>",
		Short: "Scrape a product page and print the merged analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *timeout, func(ctx context.Context, a *app.App) (any, error) {
				return a.Analyzer.AnalyzeURL(ctx, args[0])
			})
		},
	}
}

func strainCommand(timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "strain <name>",
		Short: "Print the stored analysis for a strain name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			return withApp(cmd, *timeout, func(ctx context.Context, a *app.App) (any, error) {
				return a.Analyzer.AnalyzeStrain(ctx, name)
			})
		},
	}
}

type classifyOutput struct {
	Category         models.Category        `json:"category"`
	TraditionalLabel string                 `json:"traditional_label"`
	Effects          *models.EffectsProfile `json:"effects"`
}

func classifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "classify key=value...",
		Short:   "Classify a terpene/cannabinoid profile given on the command line",
		Example: "  terptracker classify myrcene=0.6 limonene=0.2 thca=24.5",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			terps, totals, err := parseAssignments(args)
			if err != nil {
				return err
			}
			category := classifier.Classify(terps)
			return printJSON(cmd, classifyOutput{
				Category:         category,
				TraditionalLabel: classifier.TraditionalLabel(category),
				Effects:          effects.Generate(terps, totals, category),
			})
		},
	}
}

// parseAssignments splits key=value pairs into terpenes and cannabinoids.
// Cannabinoid names win; everything else is read as a terpene.
func parseAssignments(args []string) (models.TerpeneMap, models.CannabinoidTotals, error) {
	terps := models.TerpeneMap{}
	totals := models.CannabinoidTotals{}
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		v, ok := utils.ParseFraction(raw)
		if !ok {
			continue
		}
		if c, ok := models.CanonicalCannabinoidKey(key); ok {
			totals.Set(c, v)
			continue
		}
		terps.Set(key, v)
	}
	if len(terps) == 0 {
		return nil, nil, fmt.Errorf("no terpene values given")
	}
	return terps, totals, nil
}

func withApp(cmd *cobra.Command, timeout time.Duration, run func(context.Context, *app.App) (any, error)) error {
	cfg := utils.LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		zap.NewExample().Sugar().Fatalf("init logger: %v", err)
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	out, err := run(ctx, a)
	if err != nil {
		return err
	}
	return printJSON(cmd, out)
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
