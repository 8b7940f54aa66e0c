// Package populate implements the Fixture Populator: it drives the
// Messaging Backend Client from a declarative registry, producing or
// refreshing fixtures in smart (skip existing valid fixtures) or force
// (delete & recreate) mode.
package populate

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ingestlab/ingest-harness/internal/backend"
	"github.com/ingestlab/ingest-harness/internal/fixture"
	"github.com/ingestlab/ingest-harness/internal/registry"
	"github.com/ingestlab/ingest-harness/internal/schema"
)

// Mode closes the populate-run strategy.
type Mode string

const (
	Smart Mode = "smart"
	Force Mode = "force"
)

// Summary is the deterministic outcome of one populate run, for a given
// registry + fixture state: a smart run over unchanged state sends nothing.
type Summary struct {
	Existing int        `json:"existing"`
	Sent     int        `json:"sent"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

// RowError records a row that could not be populated, without aborting the
// rest of the run: populate errors are counted, never aborting the
// whole populate step.
type RowError struct {
	TestID string `json:"testId"`
	Reason string `json:"reason"`
}

// Clock is overridable for deterministic tests.
type Clock func() time.Time

// Options configures one populate run.
type Options struct {
	ChannelID string
	Mode      Mode
	Now       Clock
	// AssetRoot is the directory local media assets resolve against,
	// conventionally <fixtureRoot>/assets.
	AssetRoot string
	// PaddedRange extends the force-mode delete sweep beyond the min/max
	// message ids recorded in existing fixtures.
	PaddedRange int64
}

// Run drives rows through the backend client against store, implementing
// the populate algorithm: force-mode teardown, smart-mode skip, then one
// paced send plus fixture write per remaining row.
func Run(ctx context.Context, rows []registry.Row, store *fixture.Store, client backend.Client, opts Options) (Summary, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	if opts.Mode == Force {
		if err := deleteKnownMessages(ctx, rows, store, client, opts); err != nil {
			return Summary{}, err
		}
	}

	var summary Summary
	for _, row := range rows {
		if row.Status == registry.StatusSkip {
			summary.Skipped++
			continue
		}

		if opts.Mode == Smart {
			if existing, found, err := store.Find(row.TestID); err == nil && found && fixture.IsValid(existing) {
				summary.Existing++
				continue
			}
		}

		msg, reused, err := buildSend(row, store, opts)
		if err != nil {
			summary.Errors = append(summary.Errors, RowError{TestID: row.TestID, Reason: err.Error()})
			continue
		}
		_ = reused

		sent, err := client.Send(ctx, msg)
		if err != nil {
			summary.Errors = append(summary.Errors, RowError{TestID: row.TestID, Reason: err.Error()})
			continue
		}

		sent.ChatID = schema.PlaceholderChatID
		category := fixture.CategoryForTestID(row.TestID)
		f := schema.Fixture{
			Meta: schema.FixtureMeta{
				TestID:      row.TestID,
				CapturedAt:  now(),
				CapturedBy:  "populator",
				Description: row.Caption,
			},
			Message: sent,
		}
		if err := store.Write(row.TestID, category, f); err != nil {
			summary.Errors = append(summary.Errors, RowError{TestID: row.TestID, Reason: err.Error()})
			continue
		}
		summary.Sent++
	}

	return summary, nil
}

// buildSend maps a row onto a send request: text/url rows send as text; media rows
// reference a prior remote handle when one is available, else upload the
// local asset, else fail with MissingAsset.
func buildSend(row registry.Row, store *fixture.Store, opts Options) (backend.SendRequest, bool, error) {
	channelID := opts.ChannelID
	switch row.InputType {
	case "text", "url", "":
		return backend.SendRequest{
			ChannelID: channelID,
			Kind:      schema.MessageText,
			Text:      row.Caption,
		}, false, nil
	case "photo", "document", "voice", "audio":
		kind := schema.MessageKind(row.InputType)
		if existing, found, _ := store.Find(row.TestID); found {
			if media := existing.Message.Media(); media != nil && media.FileID != "" {
				return backend.SendRequest{
					ChannelID: channelID,
					Kind:      kind,
					Caption:   row.Caption,
					FileID:    media.FileID,
				}, true, nil
			}
		}
		if row.LocalAsset != "" {
			return backend.SendRequest{
				ChannelID: channelID,
				Kind:      kind,
				Caption:   row.Caption,
				LocalPath: filepath.Join(opts.AssetRoot, row.LocalAsset),
			}, false, nil
		}
		return backend.SendRequest{}, false, fmt.Errorf("MissingAsset: no remote handle or local asset for %s", row.TestID)
	default:
		return backend.SendRequest{}, false, fmt.Errorf("unsupported inputType %q", row.InputType)
	}
}

// deleteKnownMessages runs the force-mode sweep: delete every message id
// recorded in an existing fixture plus a padded range spanning min..max.
func deleteKnownMessages(ctx context.Context, rows []registry.Row, store *fixture.Store, client backend.Client, opts Options) error {
	var ids []int64
	var min, max int64
	for _, row := range rows {
		existing, found, err := store.Find(row.TestID)
		if err != nil || !found {
			continue
		}
		id := existing.Message.MessageID
		if id <= 0 {
			continue
		}
		ids = append(ids, id)
		if min == 0 || id < min {
			min = id
		}
		if id > max {
			max = id
		}
	}
	if min > 0 && opts.PaddedRange > 0 {
		for id := min - opts.PaddedRange; id <= max+opts.PaddedRange; id++ {
			if id > 0 {
				ids = append(ids, id)
			}
		}
	}

	seen := map[int64]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		_ = client.DeleteMessage(ctx, opts.ChannelID, id)
	}
	return nil
}
