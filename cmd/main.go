package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/geoseo-backend/internal/app"
	"github.com/yungbote/geoseo-backend/internal/batch"
	types "github.com/yungbote/geoseo-backend/internal/domain"
)

var version = "dev"

var (
	batchStatus   string
	batchLimit    int
	batchDelay    time.Duration
	minConfidence float64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "geoseo",
	Short:        "Geo landing-page generation pipeline",
	Long:         "geoseo generates, validates and publishes state and city landing pages for the dental directory.",
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(batchCmd)

	batchCmd.AddCommand(batchGenerateCmd)
	batchCmd.AddCommand(batchPublishCmd)
	batchCmd.PersistentFlags().IntVar(&batchLimit, "limit", 50, "Maximum items to process")
	batchCmd.PersistentFlags().DurationVar(&batchDelay, "delay", 0, "Pause between items (default BATCH_DELAY_MS)")
	batchGenerateCmd.Flags().StringVar(&batchStatus, "status", string(types.QueueStatusPending), "Queue status to drain (pending or failed)")
	batchPublishCmd.Flags().Float64Var(&minConfidence, "min-confidence", 0.85, "Minimum confidence score to publish")
}

// withApp builds the app under a context cancelled by SIGINT/SIGTERM and
// applies the schema when DB_AUTO_MIGRATE is set.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Cfg.AutoMigrate {
		if err := a.Migrate(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, a)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the geo-expansion and seo-expert endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return a.Run(ctx)
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema, indexes and default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		a, err := app.New(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Migrate(ctx); err != nil {
			return err
		}
		fmt.Println("Migration complete")
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print entity and queue counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			s, err := a.Services.Stats.Get(ctx)
			if err != nil {
				return fmt.Errorf("getting stats: %w", err)
			}
			fmt.Println("States:")
			fmt.Printf("  Total: %d  Live: %d  Draft: %d  Inactive: %d\n", s.States.Total, s.States.Live, s.States.Draft, s.States.Inactive)
			fmt.Println("Cities:")
			fmt.Printf("  Total: %d  Live: %d  Draft: %d  Inactive: %d\n", s.Cities.Total, s.Cities.Live, s.Cities.Draft, s.Cities.Inactive)
			fmt.Println("Queue:")
			fmt.Printf("  Pending: %d  Processing: %d  Generated: %d  Published: %d  Failed: %d\n",
				s.Queue.Pending, s.Queue.Processing, s.Queue.Generated, s.Queue.Published, s.Queue.Failed)
			return nil
		})
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run sequential generate or publish jobs; Ctrl-C stops before the next item",
}

var batchGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate content for queued items in priority order",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			sum, err := a.GenerateQueue(ctx, app.GenerateBatchInput{
				Status:   types.QueueStatus(batchStatus),
				Limit:    batchLimit,
				Delay:    delayOr(a.Cfg.BatchDelay),
				OnResult: printResult,
			})
			if err != nil {
				return err
			}
			printSummary(sum)
			return nil
		})
	},
}

var batchPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish generated items at or above a confidence threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			sum, err := a.PublishGenerated(ctx, app.PublishBatchInput{
				MinConfidence: minConfidence,
				Limit:         batchLimit,
				Delay:         delayOr(a.Cfg.BatchDelay),
				OnResult:      printResult,
			})
			if err != nil {
				return err
			}
			printSummary(sum)
			return nil
		})
	},
}

func delayOr(def time.Duration) time.Duration {
	if batchDelay > 0 {
		return batchDelay
	}
	return def
}

func printResult(r batch.ItemResult) {
	switch r.Outcome {
	case batch.OutcomeFailed:
		fmt.Printf("  ✗ %s: %s\n", r.ID, r.Error)
	case batch.OutcomeStopped:
		fmt.Printf("  - %s: stopped\n", r.ID)
	default:
		fmt.Printf("  ✓ %s\n", r.ID)
	}
}

func printSummary(s batch.Summary) {
	fmt.Printf("\nSucceeded: %d  Failed: %d  Stopped: %d\n", s.Succeeded, s.Failed, s.Stopped)
}
