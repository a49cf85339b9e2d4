package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"emergence/internal/storage"
	"emergence/pkg/emergence"
)

const defaultDBPath = "emergence.db"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	storeKind string
	dbPath    string
	logLevel  string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "emergencectl",
		Short:         "Run and inspect bounded capability-growth simulations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&g.storeKind, "store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	root.PersistentFlags().StringVar(&g.dbPath, "db-path", defaultDBPath, "sqlite database path")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "log level: debug|info|warn|error")

	root.AddCommand(
		newRunCommand(g),
		newRunsCommand(g),
		newDiagnosticsCommand(g),
		newLineageCommand(g),
		newTopCommand(g),
		newExportCommand(g),
	)
	return root
}

func (g *globalFlags) logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", g.logLevel)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func (g *globalFlags) client(cmd *cobra.Command) (*emergence.Client, error) {
	logger, err := g.logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return emergence.New(emergence.Options{
		StoreKind: g.storeKind,
		DBPath:    g.dbPath,
		Logger:    logger,
	})
}

func newRunCommand(g *globalFlags) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the growth loop until interrupted or the cycle limit is reached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := opts.request(cmd.Flags())
			if err != nil {
				return err
			}
			client, err := g.client(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			out := cmd.OutOrStdout()
			req.OnGeneration = func(report string) {
				fmt.Fprintln(out, report)
			}
			summary, err := client.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "run_id=%s cycles=%s generation=%d attempts=%s solved=%s population=%d best_score=%.4f\n",
				summary.RunID,
				humanize.Comma(int64(summary.Cycles)),
				summary.Generation,
				humanize.Comma(int64(summary.Counters.Attempts)),
				humanize.Comma(int64(summary.Counters.Solved)),
				summary.Summary.Population,
				summary.BestScore,
			)
			if opts.showTop {
				top, err := client.TopEntities(context.WithoutCancel(cmd.Context()), emergence.RecordRequest{RunID: summary.RunID})
				if err != nil {
					return err
				}
				printTop(out, top)
			}
			return nil
		},
	}
	opts.register(cmd.Flags())
	return cmd
}

func newRunsCommand(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := g.client(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()
			runs, err := client.Runs(cmd.Context(), emergence.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				fmt.Fprintf(out, "run_id=%s created_at=%s seed=%d cycles=%s generation=%d solved=%s/%s population=%d best_score=%.4f\n",
					r.ID, r.CreatedAtUTC, r.Seed,
					humanize.Comma(int64(r.Cycles)), r.Generation,
					humanize.Comma(int64(r.Solved)), humanize.Comma(int64(r.Attempts)),
					r.FinalPopulation, r.BestScore,
				)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to show")
	return cmd
}

type recordFlags struct {
	runID  string
	latest bool
	limit  int
}

func (f *recordFlags) register(cmd *cobra.Command, defaultLimit int) {
	cmd.Flags().StringVar(&f.runID, "run-id", "", "run id")
	cmd.Flags().BoolVar(&f.latest, "latest", false, "use the newest archived run")
	cmd.Flags().IntVar(&f.limit, "limit", defaultLimit, "max rows to show (0 for all)")
}

func (f *recordFlags) request() emergence.RecordRequest {
	return emergence.RecordRequest{RunID: f.runID, Latest: f.latest, Limit: f.limit}
}

func newDiagnosticsCommand(g *globalFlags) *cobra.Command {
	f := &recordFlags{}
	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Show per-generation diagnostics for a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := g.client(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()
			diagnostics, err := client.Diagnostics(cmd.Context(), f.request())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range diagnostics {
				fmt.Fprintf(out, "generation=%d population=%d best=%.4f mean=%.4f min=%.4f mean_capability=%.4f max_capability=%.4f attempts=%d solved=%d spawned=%d pruned=%d breakthroughs=%d transitions=%d\n",
					d.Generation, d.PopulationSize, d.BestScore, d.MeanScore, d.MinScore,
					d.MeanCapability, d.MaxCapability, d.Attempts, d.Solved,
					d.Spawned, d.Pruned, d.Breakthroughs, d.PhaseTransitions,
				)
			}
			return nil
		},
	}
	f.register(cmd, 0)
	return cmd
}

func newLineageCommand(g *globalFlags) *cobra.Command {
	f := &recordFlags{}
	cmd := &cobra.Command{
		Use:   "lineage",
		Short: "Show entity lineage records for a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := g.client(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()
			lineage, err := client.Lineage(cmd.Context(), f.request())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, rec := range lineage {
				parents := "-"
				if len(rec.ParentIDs) > 0 {
					parents = strings.Join(rec.ParentIDs, ",")
				}
				fmt.Fprintf(out, "entity_id=%s generation=%d operation=%s parents=%s\n",
					rec.EntityID, rec.Generation, rec.Operation, parents)
			}
			return nil
		},
	}
	f.register(cmd, 50)
	return cmd
}

func newTopCommand(g *globalFlags) *cobra.Command {
	f := &recordFlags{}
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the top-ranked entities of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := g.client(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()
			top, err := client.TopEntities(cmd.Context(), f.request())
			if err != nil {
				return err
			}
			printTop(cmd.OutOrStdout(), top)
			return nil
		},
	}
	f.register(cmd, 10)
	return cmd
}

func newExportCommand(g *globalFlags) *cobra.Command {
	var (
		runID  string
		latest bool
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a run's archived records as JSON and CSV files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := g.client(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()
			exported, err := client.Export(cmd.Context(), emergence.ExportRequest{RunID: runID, Latest: latest, OutDir: outDir})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "run id")
	cmd.Flags().BoolVar(&latest, "latest", false, "use the newest archived run")
	cmd.Flags().StringVar(&outDir, "out", "exports", "output directory")
	return cmd
}

func printTop(w io.Writer, top []emergence.TopEntityRecord) {
	for _, item := range top {
		e := item.Entity
		fmt.Fprintf(w, "rank=%d score=%.4f entity_id=%s generation=%d capability=%.4f reflection=%.4f meta_reflection=%.4f solved=%d domains=%d insights=%d\n",
			item.Rank, item.Score, e.ID, e.Generation,
			e.Capability, e.Reflection, e.MetaReflection,
			e.ProblemsSolved, len(e.Domains), len(e.Insights),
		)
	}
}
