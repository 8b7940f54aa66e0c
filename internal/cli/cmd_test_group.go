package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ingestlab/ingest-harness/internal/catalog"
	"github.com/ingestlab/ingest-harness/internal/fixture"
	"github.com/ingestlab/ingest-harness/internal/gc"
	"github.com/ingestlab/ingest-harness/internal/history"
	"github.com/ingestlab/ingest-harness/internal/populate"
	"github.com/ingestlab/ingest-harness/internal/registry"
	"github.com/ingestlab/ingest-harness/internal/report"
	"github.com/ingestlab/ingest-harness/internal/runner"
	"github.com/ingestlab/ingest-harness/internal/schema"
	"github.com/ingestlab/ingest-harness/internal/store"
)

type runFlags struct {
	id       string
	suite    string
	group    string
	parallel int

	skipTests    bool
	skipMedia    bool
	skipJudge    bool
	forceFixture bool
	registryPath string

	cleanupDryRun bool
}

func newTestCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run, capture, and inspect integration tests",
	}
	cmd.AddCommand(
		newTestRunCommand(app),
		newTestIntegrationCommand(app),
		newTestCaptureCommand(app),
		newTestForwardCommand(app),
		newTestStatusCommand(app),
		newTestRunsCommand(app),
		newTestHistoryCommand(app),
	)
	return cmd
}

func addSelectionFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVar(&f.id, "id", "", "run a single test by id (TEST-XXX-NNN)")
	cmd.Flags().StringVar(&f.suite, "suite", "", "run every test in a category")
	cmd.Flags().StringVar(&f.group, "group", "", "run every test tagged with a group")
	cmd.Flags().IntVar(&f.parallel, "parallel", 0, "worker ceiling override (default from config)")
	cmd.Flags().BoolVar(&f.skipJudge, "skip-llm-judge", false, "skip semantic judging even when a spec requests it")
	cmd.Flags().BoolVar(&f.cleanupDryRun, "cleanup-dry-run", false, "after the run, list vault files carrying the [TEST- prefix (never deletes)")
}

func newTestRunCommand(app *App) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a selection of tests against the live pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, selection, err := selectSpecs(f)
			if err != nil {
				return err
			}
			return executeRun(cmd, app, specs, selection, f)
		},
	}
	addSelectionFlags(cmd, f)
	return cmd
}

func newTestIntegrationCommand(app *App) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "integration",
		Short: "Populate fixtures, then run the full catalog end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			client, err := app.Backend()
			if err != nil {
				return err
			}
			fixtures, err := app.Fixtures()
			if err != nil {
				return err
			}

			rows, err := registry.LoadXLSX(registryPath(f, cfg.FixtureRoot))
			if err != nil {
				return fmt.Errorf("load registry: %w", err)
			}
			if f.skipMedia {
				rows = textOnly(rows)
			}
			mode := populate.Smart
			if f.forceFixture {
				mode = populate.Force
			}
			if app.DryRun {
				fmt.Fprintf(app.Stdout, "dry-run: would populate %d registry rows (%s mode), then run the catalog\n", len(rows), mode)
				return nil
			}

			summary, err := populate.Run(cmd.Context(), rows, fixtures, client, populate.Options{
				ChannelID: cfg.TestInputChannelID,
				Mode:      mode,
				AssetRoot: filepath.Join(cfg.FixtureRoot, "assets"),
				// Sweep a little past the recorded ids so force-mode also
				// clears messages sent between captures.
				PaddedRange: 10,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout, "populate: %d existing, %d sent, %d skipped, %d errors\n",
				summary.Existing, summary.Sent, summary.Skipped, len(summary.Errors))
			for _, e := range summary.Errors {
				fmt.Fprintf(app.Stderr, "  %s: %s\n", e.TestID, e.Reason)
			}
			if f.skipTests {
				return nil
			}

			specs, selection, err := selectSpecs(f)
			if err != nil {
				return err
			}
			return executeRun(cmd, app, specs, selection, f)
		},
	}
	addSelectionFlags(cmd, f)
	cmd.Flags().BoolVar(&f.skipTests, "skip-tests", false, "populate fixtures only, do not run tests")
	cmd.Flags().BoolVar(&f.skipMedia, "skip-media", false, "populate text fixtures only")
	cmd.Flags().BoolVar(&f.forceFixture, "force", false, "delete and recreate every fixture")
	cmd.Flags().StringVar(&f.registryPath, "registry", "", "registry workbook path (default <fixtureRoot>/registry.xlsx)")
	return cmd
}

// selectSpecs resolves the id/suite/group flags against the compiled
// catalog; with none set the whole catalog runs.
func selectSpecs(f *runFlags) ([]catalog.TestSpec, schema.Selection, error) {
	cat, err := catalog.Load()
	if err != nil {
		return nil, schema.Selection{}, err
	}
	switch {
	case f.id != "":
		spec, ok := cat.ByID(f.id)
		if !ok {
			return nil, schema.Selection{}, fmt.Errorf("no such test %q", f.id)
		}
		return []catalog.TestSpec{spec}, schema.Selection{ID: f.id}, nil
	case f.suite != "":
		specs := cat.ByCategory(catalog.Category(f.suite))
		if len(specs) == 0 {
			return nil, schema.Selection{}, fmt.Errorf("no tests in suite %q", f.suite)
		}
		return specs, schema.Selection{Suite: f.suite}, nil
	case f.group != "":
		specs := cat.ByGroup(f.group)
		if len(specs) == 0 {
			return nil, schema.Selection{}, fmt.Errorf("no tests in group %q", f.group)
		}
		return specs, schema.Selection{Group: f.group}, nil
	default:
		return cat.All(), schema.Selection{Suite: "all"}, nil
	}
}

// executeRun drives the Integration Runner over specs and renders the
// outcome: terminal table, Markdown report on disk, and the exit-code
// contract via errTestsFailed.
func executeRun(cmd *cobra.Command, app *App, specs []catalog.TestSpec, selection schema.Selection, f *runFlags) error {
	cfg, err := app.Config()
	if err != nil {
		return err
	}
	if f.parallel > 0 {
		cfg.Concurrency = f.parallel
	}
	if app.DryRun {
		fmt.Fprintf(app.Stdout, "dry-run: would run %d specs:\n", len(specs))
		for _, s := range specs {
			fmt.Fprintf(app.Stdout, "  %s  %s\n", s.ID, s.Name)
		}
		return nil
	}

	client, err := app.Backend()
	if err != nil {
		return err
	}
	fixtures, err := app.Fixtures()
	if err != nil {
		return err
	}
	tracker := history.New(cfg.RunsRoot)

	opts := runner.Options{SkipJudge: f.skipJudge}
	if app.Verbose {
		opts.Verbose = app.Stdout
	}
	r := runner.New(cfg, fixtures, client, tracker, app.Judge(f.skipJudge), opts)

	run, err := r.Run(cmd.Context(), specs, selection)
	if err != nil {
		return err
	}

	fmt.Fprintln(app.Stdout, report.RenderRunTable(run))
	reportPath := cfg.RunsRoot + "/integration-report.md"
	if err := store.WriteFileAtomic(reportPath, []byte(report.RenderMarkdown(run))); err != nil {
		fmt.Fprintf(app.Stderr, "warning: write report: %v\n", err)
	} else {
		fmt.Fprintf(app.Stdout, "report: %s\n", reportPath)
	}

	if f.cleanupDryRun {
		listTestArtifacts(app, cfg.VaultRoot)
	}

	if run.Summary.Failed > 0 {
		return errTestsFailed
	}
	return nil
}

// listTestArtifacts prints every vault file whose name begins with the
// [TEST- prefix. Cleanup stays the operator's responsibility; this only
// shows what a cleanup would touch.
func listTestArtifacts(app *App, vaultRoot string) {
	fmt.Fprintln(app.Stdout, "vault artifacts left behind (cleanup is manual):")
	found := false
	_ = filepath.WalkDir(vaultRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), "[TEST-") {
			fmt.Fprintf(app.Stdout, "  %s\n", path)
			found = true
		}
		return nil
	})
	if !found {
		fmt.Fprintln(app.Stdout, "  (none with the [TEST- filename prefix)")
	}
}

func registryPath(f *runFlags, fixtureRoot string) string {
	if f.registryPath != "" {
		return f.registryPath
	}
	return fixtureRoot + "/registry.xlsx"
}

func textOnly(rows []registry.Row) []registry.Row {
	var out []registry.Row
	for _, r := range rows {
		switch r.InputType {
		case catalog.InputText, catalog.InputURL, "":
			out = append(out, r)
		}
	}
	return out
}

func newTestCaptureCommand(app *App) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture the newest message on the input channel as a fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id is required")
			}
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			client, err := app.Backend()
			if err != nil {
				return err
			}
			fixtures, err := app.Fixtures()
			if err != nil {
				return err
			}

			msgs, err := client.PollNotifications(cmd.Context(), cfg.TestInputChannelID, 0)
			if err != nil {
				return fmt.Errorf("poll input channel: %w", err)
			}
			if len(msgs) == 0 {
				return fmt.Errorf("no message waiting on the input channel")
			}
			msg := msgs[len(msgs)-1]
			msg.ChatID = schema.PlaceholderChatID

			category := fixture.CategoryForTestID(id)
			f := schema.Fixture{
				Meta: schema.FixtureMeta{
					TestID:      id,
					CapturedAt:  time.Now().UTC(),
					CapturedBy:  "manual",
					Description: strings.TrimSpace(msg.Text),
				},
				Message: msg,
			}
			if app.DryRun {
				fmt.Fprintf(app.Stdout, "dry-run: would write %s/%s.json\n", category, id)
				return nil
			}
			if err := fixtures.Write(id, category, f); err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout, "captured %s (message %d) into %s/%s.json\n", id, msg.MessageID, category, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "test id the capture belongs to")
	return cmd
}

func newTestForwardCommand(app *App) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "forward",
		Short: "Forward an existing fixture into the input channel without validating",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id is required")
			}
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			fixtures, err := app.Fixtures()
			if err != nil {
				return err
			}
			fx, found, err := fixtures.Find(id)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no fixture for %s", id)
			}
			if app.DryRun {
				fmt.Fprintf(app.Stdout, "dry-run: would forward %s (%s) to %s\n", id, fx.Message.Kind, cfg.TestInputChannelID)
				return nil
			}
			client, err := app.Backend()
			if err != nil {
				return err
			}
			sent, err := client.Send(cmd.Context(), runner.ForwardRequest(fx, cfg.TestInputChannelID))
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout, "forwarded %s as message %d\n", id, sent.MessageID)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "test id whose fixture to forward")
	return cmd
}

func newTestStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status [runId]",
		Short: "Show one run's results (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			tracker := history.New(cfg.RunsRoot)

			runID := ""
			if len(args) == 1 {
				runID = args[0]
			} else {
				runIDs, err := tracker.ListRuns()
				if err != nil {
					return err
				}
				if len(runIDs) == 0 {
					fmt.Fprintln(app.Stdout, "no runs recorded yet")
					return nil
				}
				runID = runIDs[0]
			}

			run, err := tracker.LoadRun(runID)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Stdout, report.RenderRunTable(run))
			return nil
		},
	}
}

func newTestRunsCommand(app *App) *cobra.Command {
	var pruneAfterDays, keepRuns int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			tracker := history.New(cfg.RunsRoot)

			if pruneAfterDays > 0 || keepRuns > 0 {
				res, err := gc.Run(gc.Opts{
					RunsRoot:   cfg.RunsRoot,
					MaxAgeDays: pruneAfterDays,
					MaxRuns:    keepRuns,
					DryRun:     app.DryRun,
				})
				if err != nil {
					return err
				}
				verb := "pruned"
				if res.DryRun {
					verb = "would prune"
				}
				fmt.Fprintf(app.Stdout, "%s %d runs, kept %d\n", verb, len(res.Deleted), len(res.Kept))
			}

			runIDs, err := tracker.ListRuns()
			if err != nil {
				return err
			}
			var runs []*schema.Run
			for _, id := range runIDs {
				run, err := tracker.LoadRun(id)
				if err != nil {
					continue
				}
				runs = append(runs, run)
			}
			fmt.Fprintln(app.Stdout, report.RenderRunsTable(runs))
			return nil
		},
	}
	cmd.Flags().IntVar(&pruneAfterDays, "prune-age-days", 0, "delete runs older than this many days before listing")
	cmd.Flags().IntVar(&keepRuns, "prune-keep", 0, "keep at most this many newest runs before listing")
	return cmd
}

func newTestHistoryCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "history [testId]",
		Short: "Show cross-run history for one test, or the aggregate",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			tracker := history.New(cfg.RunsRoot)

			if len(args) == 1 {
				th, err := tracker.HistoryFor(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(app.Stdout, report.RenderTestHistory(th))
				return nil
			}

			h, err := tracker.LoadHistory()
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Stdout, report.RenderHistoryTable(h))
			return nil
		},
	}
}
