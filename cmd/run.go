package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/warehouse-ingress/pkg/catalog"
	"github.com/David-Botos/warehouse-ingress/pkg/connector"
	"github.com/David-Botos/warehouse-ingress/pkg/pipeline"
	"github.com/David-Botos/warehouse-ingress/pkg/quarantine"
)

var (
	runEntities []string
	noProgress  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the entity pipelines",
	Long: `Run captures every entity's extract into bronze (once per file, as
recorded in the ledger) and rebuilds its silver table. Use --entity to run
a subset; the order of the catalog is kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		entities, err := loadEntities()
		if err != nil {
			return err
		}

		factory, err := connector.NewConnectorFactory(logger)
		if err != nil {
			return err
		}
		defer factory.Close()

		bronze, err := factory.CreateSink(ctx, "bronze", cfg.Bronze, catalog.BronzeTables(entities))
		if err != nil {
			return err
		}
		silver, err := factory.CreateSink(ctx, "silver", cfg.Silver, catalog.SilverTables(entities))
		if err != nil {
			return err
		}

		metrics := pipeline.NewMetrics(cfg.Metrics.Namespace)
		opts := pipeline.Options{
			DataDir: cfg.Paths.DataDir,
			Ledger:  openLedger(),
			Bronze:  bronze,
			Silver:  silver,
			Metrics: metrics,
		}

		if cfg.Quarantine.URL != "" {
			q, err := quarantine.Open(ctx, cfg.Quarantine.URL, cfg.Quarantine.Prefix, logger)
			if err != nil {
				return err
			}
			defer q.Close()
			opts.Quarantine = q
		}

		total := len(entities)
		if len(runEntities) > 0 {
			total = len(runEntities)
		}
		if !noProgress {
			uiprogress.Start()
			bar := uiprogress.AddBar(total).AppendCompleted().PrependElapsed()
			var current atomic.Value
			current.Store("starting")
			bar.PrependFunc(func(b *uiprogress.Bar) string {
				return fmt.Sprintf("%-20s", current.Load())
			})
			opts.OnEntity = func(r *pipeline.EntityResult) {
				current.Store(r.Entity)
				bar.Incr()
			}
		}

		runner, err := pipeline.NewRunner(logger, opts, entities...)
		if err != nil {
			return err
		}

		summary, err := runner.RunSelected(ctx, runEntities)
		if !noProgress {
			uiprogress.Stop()
		}
		if err != nil {
			return err
		}

		if path := cfg.Metrics.TextfilePath; path != "" {
			if err := metrics.WriteTextfile(path); err != nil {
				logger.Warn("Failed to export metrics", zap.Error(err))
			}
		}

		printSummary(summary)
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d entities failed: %v", summary.Failed, summary.Total, summary.FailedEntities())
		}
		return nil
	},
}

func printSummary(s *pipeline.RunSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "ENTITY\tSTATUS\tCAPTURED\tBRONZE\tVALID\tINVALID\tDROPPED\tSUPERSEDED\tWRITTEN\t")
	for _, r := range s.Results {
		status := "ok"
		switch {
		case !r.Success:
			status = "failed"
		case r.BronzeSkipped:
			status = "ok (bronze skipped)"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t\n", r.Entity, status,
			r.RowsCaptured, r.RowsBronze, r.RowsValid, r.RowsInvalid, r.RowsDropped, r.RowsSuperseded, r.RowsWritten)
	}
	w.Flush()

	for _, r := range s.Results {
		if r.Error != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", r.Entity, r.Error)
		}
	}
	fmt.Printf("run %s: %d/%d entities succeeded (%.0f%%), %d rows written in %s\n",
		s.RunID, s.Succeeded, s.Total, s.SuccessRate(), s.TotalRows, s.Duration.Round(time.Millisecond))
}

func init() {
	runCmd.Flags().StringSliceVar(&runEntities, "entity", nil, "entity to run (repeatable); default is all")
	runCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	RootCmd.AddCommand(runCmd)
}

