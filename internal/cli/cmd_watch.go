package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ingestlab/ingest-harness/internal/history"
	"github.com/ingestlab/ingest-harness/internal/report"
)

// newWatchCommand tails the fixture and runs roots and re-renders the
// latest-run table whenever either changes, so an operator can leave a
// terminal open while runs happen elsewhere.
func newWatchCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the fixture and runs roots and re-render status on change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer func() { _ = watcher.Close() }()

			for _, root := range []string{cfg.FixtureRoot, cfg.RunsRoot} {
				_ = os.MkdirAll(root, 0o755)
				if err := watcher.Add(root); err != nil {
					return fmt.Errorf("watch %s: %w", root, err)
				}
			}

			render := func() {
				tracker := history.New(cfg.RunsRoot)
				runIDs, err := tracker.ListRuns()
				if err != nil || len(runIDs) == 0 {
					fmt.Fprintln(app.Stdout, "no runs recorded yet")
					return
				}
				run, err := tracker.LoadRun(runIDs[0])
				if err != nil {
					return
				}
				fmt.Fprintln(app.Stdout, report.RenderRunTable(run))
			}
			render()

			// Coalesce event bursts: a run seal is a temp-write plus a
			// rename, and populate touches many fixtures back to back.
			var pending <-chan time.Time
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case ev, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
						pending = time.After(500 * time.Millisecond)
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					fmt.Fprintf(app.Stderr, "watch: %v\n", err)
				case <-pending:
					pending = nil
					render()
				}
			}
		},
	}
}
