package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"fleetd/internal/httpapi"
	"fleetd/internal/orchestrator"
	"fleetd/pkg/types"
)

func newRootCmd() *cobra.Command {
	var (
		cfgPath  string
		logLevel string
		logJSON  bool
	)

	root := &cobra.Command{
		Use:           "fleetd",
		Short:         "Android instance fleet orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to config file (.yaml|.json|.toml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit JSON logs instead of console output")

	withApp := func(run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cfgPath, logLevel, logJSON)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, a, cmd, args)
		}
	}

	// batch
	var batchOpts orchestrator.BatchOptions
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Plan and execute one batch over the fleet",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			return runOneBatch(ctx, a, batchOpts)
		}),
	}
	batchCmd.Flags().StringVar(&batchOpts.Profile, "profile", "", "Performance profile (default: chosen from load)")
	batchCmd.Flags().IntVar(&batchOpts.Size, "size", 0, "Batch size (default: optimal for the profile)")
	batchCmd.Flags().StringVar(&batchOpts.ProfileFilter, "filter", "", "Only consider instances assigned this profile")
	root.AddCommand(batchCmd)

	// continuous
	var maxBatches int
	contOpts := orchestrator.BatchOptions{}
	contCmd := &cobra.Command{
		Use:   "continuous",
		Short: "Run batches on an interval until interrupted",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			err := a.orch.RunContinuous(ctx, contOpts, maxBatches)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}),
	}
	contCmd.Flags().StringVar(&contOpts.Profile, "profile", "", "Performance profile (default: chosen from load each cycle)")
	contCmd.Flags().StringVar(&contOpts.ProfileFilter, "filter", "", "Only consider instances assigned this profile")
	contCmd.Flags().IntVar(&maxBatches, "max-batches", 0, "Stop after this many batches (0 = unlimited)")
	root.AddCommand(contCmd)

	// status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print aggregated system status",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			printStatus(cmd.OutOrStdout(), a.orch.SystemStatus(ctx))
			return nil
		}),
	}
	root.AddCommand(statusCmd)

	// list
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered instances",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			printInstances(cmd.OutOrStdout(), a)
			return nil
		}),
	}
	root.AddCommand(listCmd)

	// serve
	var (
		addr        string
		corsOrigins []string
	)
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the status HTTP API",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			return serveAPI(ctx, a, addr, corsOrigins)
		}),
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	serveCmd.Flags().StringSliceVar(&corsOrigins, "cors-origin", nil, "Allowed CORS origins (enables CORS when set)")
	root.AddCommand(serveCmd)

	return root
}

func runOneBatch(ctx context.Context, a *app, opts orchestrator.BatchOptions) error {
	plan, err := a.orch.PlanBatch(ctx, opts)
	if err != nil {
		if orchestrator.IsPlanRejected(err) {
			var warner interface{ Warnings() []string }
			if errors.As(err, &warner) {
				for _, w := range warner.Warnings() {
					fmt.Fprintln(os.Stderr, "  warning:", w)
				}
			}
		}
		return err
	}
	fmt.Printf("plan %s: profile=%s instances=%v estimated=%s\n",
		plan.ID, plan.Profile, plan.InstanceIDs, plan.EstimatedTime.Round(time.Second))

	results := a.orch.RunBatch(ctx, plan)
	fmt.Printf("batch %s: processed %d/%d in %s (success %.0f%%)\n",
		results.PlanID, results.Processed(), len(results.Planned),
		results.Duration.Round(time.Second), results.SuccessRate*100)
	for _, e := range results.Errors {
		fmt.Fprintln(os.Stderr, "  error:", e)
	}
	return nil
}

func printStatus(w io.Writer, st types.SystemStatus) {
	fmt.Fprintf(w, "Load:       %s (cpu %.1f%%, mem %.1f%%, %.1f GB free, disk %.1f%%)\n",
		st.System.LoadLevel, st.System.CPUPct, st.System.MemoryPct,
		st.System.MemoryAvailableGB, st.System.DiskPct)
	fmt.Fprintf(w, "Instances:  %d total, %d enabled, %d running (%d instance processes)\n",
		st.Instances.Total, st.Instances.Enabled, st.Instances.Running,
		st.System.InstanceProcesses)
	fmt.Fprintf(w, "Components: console %s, adb %s\n",
		okOrDown(st.Components.ConsoleHealthy), okOrDown(st.Components.ProbeHealthy))
	for _, issue := range st.Components.Issues {
		fmt.Fprintln(w, "  issue:", issue)
	}
	fmt.Fprintf(w, "Session:    %d batches, %d instances processed, %d errors, started %s\n",
		st.Session.BatchesExecuted, st.Session.InstancesProcessed,
		st.Session.TotalErrors, humanTime(st.Session.StartedAt))
	if st.Session.LastBatchAt != "" {
		fmt.Fprintf(w, "Last batch: %s\n", humanTime(st.Session.LastBatchAt))
	}
	for _, r := range st.Recommendations {
		fmt.Fprintln(w, "  hint:", r)
	}
}

func okOrDown(ok bool) string {
	if ok {
		return "ok"
	}
	return "down"
}

// humanTime renders an RFC3339 stamp as a relative time, falling back to the
// raw string if it does not parse.
func humanTime(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return humanize.Time(t)
}

func printInstances(w io.Writer, a *app) {
	records := a.reg.All()
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	fmt.Fprintf(w, "%-4s %-20s %-8s %-12s %-8s %s\n", "ID", "NAME", "ENABLED", "PROFILE", "PRIO", "ENDPOINT")
	for _, r := range records {
		fmt.Fprintf(w, "%-4d %-20s %-8t %-12s %-8d %s\n",
			r.ID, r.Name, r.Enabled, r.Profile, r.Priority, r.Endpoint)
	}
}

func serveAPI(ctx context.Context, a *app, addr string, corsOrigins []string) error {
	if addr == "" {
		addr = a.cfg.Addr
	}
	httpapi.SetLogger(a.log)
	httpapi.SetBaseContext(ctx)
	if len(corsOrigins) > 0 {
		httpapi.SetCORSOptions(true, corsOrigins,
			[]string{"GET", "OPTIONS"}, []string{"Accept", "Content-Type"})
	}

	srv := &http.Server{Addr: addr, Handler: httpapi.NewMux(a.orch)}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("event", "http_listen").Str("addr", addr).Msg("serving status API")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("graceful shutdown")
	}
	return nil
}
