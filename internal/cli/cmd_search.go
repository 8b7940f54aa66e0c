package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ingestlab/ingest-harness/internal/history"
	"github.com/ingestlab/ingest-harness/internal/schema"
)

// newSearchCommand greps fixture captions/descriptions and the latest run's
// check reasonings for a query, case-insensitively.
func newSearchCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search fixtures and the latest run for a phrase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			query := strings.ToLower(args[0])
			matches := 0

			for _, hit := range searchFixtures(cfg.FixtureRoot, query) {
				fmt.Fprintln(app.Stdout, hit)
				matches++
			}

			tracker := history.New(cfg.RunsRoot)
			runIDs, err := tracker.ListRuns()
			if err == nil && len(runIDs) > 0 {
				if run, err := tracker.LoadRun(runIDs[0]); err == nil {
					for _, hit := range searchRun(run, query) {
						fmt.Fprintln(app.Stdout, hit)
						matches++
					}
				}
			}

			if matches == 0 {
				fmt.Fprintf(app.Stdout, "no matches for %q\n", args[0])
			}
			return nil
		},
	}
}

func searchFixtures(fixtureRoot, query string) []string {
	var hits []string
	_ = filepath.WalkDir(fixtureRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var f schema.Fixture
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil
		}
		haystack := strings.ToLower(f.Meta.Description + " " + f.Message.Text)
		if media := f.Message.Media(); media != nil {
			haystack += " " + strings.ToLower(media.Caption)
		}
		if strings.Contains(haystack, query) {
			hits = append(hits, fmt.Sprintf("fixture %s: %s", f.Meta.TestID, firstLine(f.Meta.Description)))
		}
		return nil
	})
	return hits
}

func searchRun(run *schema.Run, query string) []string {
	var hits []string
	for _, res := range run.OrderedResults() {
		for _, c := range res.Checks {
			if strings.Contains(strings.ToLower(c.Reasoning), query) {
				hits = append(hits, fmt.Sprintf("%s %s %s: %s", run.ID, res.TestID, c.Name, c.Reasoning))
			}
		}
	}
	return hits
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
