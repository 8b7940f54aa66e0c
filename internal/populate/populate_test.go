package populate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ingestlab/ingest-harness/internal/backend"
	"github.com/ingestlab/ingest-harness/internal/fixture"
	"github.com/ingestlab/ingest-harness/internal/registry"
	"github.com/ingestlab/ingest-harness/internal/schema"
)

type fakeClient struct {
	nextID  int64
	sent    []backend.SendRequest
	deleted []int64
}

func (f *fakeClient) Send(ctx context.Context, req backend.SendRequest) (schema.Message, error) {
	f.sent = append(f.sent, req)
	f.nextID++
	return schema.Message{Kind: req.Kind, ChatID: req.ChannelID, MessageID: f.nextID, Text: req.Text}, nil
}

func (f *fakeClient) DeleteMessage(ctx context.Context, channelID string, messageID int64) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeClient) PollNotifications(ctx context.Context, channelID string, afterMessageID int64) ([]schema.Message, error) {
	return nil, nil
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestRun_SmartModeSendsMissingAndSkipsExisting(t *testing.T) {
	store := fixture.New(t.TempDir())
	client := &fakeClient{}
	rows := []registry.Row{
		{TestID: "TEST-SCOPE-001", InputType: "text", Caption: "a private note", Status: registry.StatusActive},
		{TestID: "TEST-SCOPE-002", InputType: "text", Caption: "work note", Status: registry.StatusActive},
		{TestID: "TEST-SCOPE-003", InputType: "text", Caption: "deprecated", Status: registry.StatusSkip},
	}

	require.NoError(t, store.Write("TEST-SCOPE-002", "scope", schema.Fixture{
		Meta:    schema.FixtureMeta{TestID: "TEST-SCOPE-002", CapturedBy: "populator", CapturedAt: time.Now()},
		Message: schema.Message{Kind: schema.MessageText, MessageID: 99, ChatID: "chat"},
	}))

	summary, err := Run(context.Background(), rows, store, client, Options{
		ChannelID: "test-chat",
		Mode:      Smart,
		Now:       fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Sent)
	require.Equal(t, 1, summary.Existing)
	require.Equal(t, 1, summary.Skipped)
	require.Empty(t, summary.Errors)

	f, found, err := store.Find("TEST-SCOPE-001")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "populator", f.Meta.CapturedBy)
}

func TestRun_SmartModeIdempotentOnSecondRun(t *testing.T) {
	store := fixture.New(t.TempDir())
	client := &fakeClient{}
	rows := []registry.Row{
		{TestID: "TEST-SCOPE-001", InputType: "text", Caption: "a private note", Status: registry.StatusActive},
	}
	opts := Options{ChannelID: "test-chat", Mode: Smart, Now: fixedClock(time.Now())}

	first, err := Run(context.Background(), rows, store, client, opts)
	require.NoError(t, err)
	require.Equal(t, 1, first.Sent)

	second, err := Run(context.Background(), rows, store, client, opts)
	require.NoError(t, err)
	require.Equal(t, 0, second.Sent)
	require.Equal(t, 1, second.Existing)
}

func TestRun_MediaRowWithoutHandleOrAssetRecordsMissingAsset(t *testing.T) {
	store := fixture.New(t.TempDir())
	client := &fakeClient{}
	rows := []registry.Row{
		{TestID: "TEST-ARC-001", InputType: "document", Caption: "archive this receipt", Status: registry.StatusActive},
	}

	summary, err := Run(context.Background(), rows, store, client, Options{ChannelID: "test-chat", Mode: Smart, Now: fixedClock(time.Now())})
	require.NoError(t, err)
	require.Equal(t, 0, summary.Sent)
	require.Len(t, summary.Errors, 1)
	require.Contains(t, summary.Errors[0].Reason, "MissingAsset")
}

func TestRun_ForceModeDeletesThenRecreates(t *testing.T) {
	store := fixture.New(t.TempDir())
	client := &fakeClient{}
	rows := []registry.Row{
		{TestID: "TEST-SCOPE-001", InputType: "text", Caption: "a private note", Status: registry.StatusActive},
	}
	require.NoError(t, store.Write("TEST-SCOPE-001", "scope", schema.Fixture{
		Meta:    schema.FixtureMeta{TestID: "TEST-SCOPE-001", CapturedBy: "populator", CapturedAt: time.Now()},
		Message: schema.Message{Kind: schema.MessageText, MessageID: 7, ChatID: "chat"},
	}))

	forceSummary, err := Run(context.Background(), rows, store, client, Options{ChannelID: "test-chat", Mode: Force, Now: fixedClock(time.Now())})
	require.NoError(t, err)
	require.Equal(t, 1, forceSummary.Sent)
	require.Contains(t, client.deleted, int64(7))

	smartSummary, err := Run(context.Background(), rows, store, client, Options{ChannelID: "test-chat", Mode: Smart, Now: fixedClock(time.Now())})
	require.NoError(t, err)
	require.Equal(t, 1, smartSummary.Existing)
	require.Equal(t, 0, smartSummary.Sent)
}
