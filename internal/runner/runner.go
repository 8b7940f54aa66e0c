// Package runner implements the Integration Runner: it resolves each test
// spec to a fixture, triggers the external production pipeline by forwarding
// the fixture into the test input channel, awaits the pipeline's
// notification, reads the produced vault artifacts, and hands expectations
// plus observations to the Validation Engine. The runner never invokes the
// pipeline in-process and is read-only against the vault.
package runner

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ingestlab/ingest-harness/internal/backend"
	"github.com/ingestlab/ingest-harness/internal/catalog"
	"github.com/ingestlab/ingest-harness/internal/config"
	"github.com/ingestlab/ingest-harness/internal/fixture"
	"github.com/ingestlab/ingest-harness/internal/history"
	"github.com/ingestlab/ingest-harness/internal/ids"
	"github.com/ingestlab/ingest-harness/internal/schema"
	"github.com/ingestlab/ingest-harness/internal/validate"
	"github.com/ingestlab/ingest-harness/internal/vault"
)

// JudgeFunc is the Semantic Judge Driver boundary. It must never fail the
// runner: an unreachable judge degrades to the fixed "judge unavailable"
// result inside the driver itself.
type JudgeFunc func(ctx context.Context, vaultPath string, sub catalog.SemanticSpec) schema.SemanticResult

// Options tunes one Runner instance.
type Options struct {
	// PollInterval is the gap between notification-channel polls.
	PollInterval time.Duration
	// SkipJudge disables semantic judging even for specs that carry a
	// semantic sub-spec; the result is still flagged semanticRequired.
	SkipJudge bool
	// Verbose, when non-nil, receives progress lines as specs execute.
	Verbose io.Writer
}

// Runner executes test specs against a live pipeline.
type Runner struct {
	cfg      config.Resolved
	fixtures *fixture.Store
	client   backend.Client
	tracker  *history.Tracker
	judge    JudgeFunc
	opts     Options
	now      func() time.Time
}

// New wires a Runner from its collaborators. judge may be nil when semantic
// judging is disabled entirely.
func New(cfg config.Resolved, fixtures *fixture.Store, client backend.Client, tracker *history.Tracker, judge JudgeFunc, opts Options) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &Runner{
		cfg:      cfg,
		fixtures: fixtures,
		client:   client,
		tracker:  tracker,
		judge:    judge,
		opts:     opts,
		now:      time.Now,
	}
}

// Run executes specs concurrently, bounded by the configured ceiling, and
// returns the sealed run. Results land in the run in catalog order
// regardless of completion order because the tracker seeds the order at
// creation and results are keyed by test id. A context cancellation marks
// every spec that has not produced a result as cancelled; vault artifacts
// already written by the pipeline are left untouched.
func (r *Runner) Run(ctx context.Context, specs []catalog.TestSpec, selection schema.Selection) (*schema.Run, error) {
	if _, err := r.tracker.CreateRun(specs, selection); err != nil {
		return nil, err
	}

	limit := r.cfg.Concurrency
	if limit <= 0 {
		limit = 5
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			res := r.executeSpec(gctx, spec)
			sem := res.Semantic
			res.Semantic = nil
			if err := r.tracker.RecordResult(spec.ID, res); err != nil {
				return err
			}
			if sem != nil {
				if err := r.tracker.RecordSemanticResult(spec.ID, *sem); err != nil {
					return err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	run, completeErr := r.tracker.CompleteRun()
	if err != nil {
		return run, err
	}
	return run, completeErr
}

// executeSpec runs a single spec end to end and always produces a result,
// never an error: failures become failed/timeout/error/cancelled statuses.
func (r *Runner) executeSpec(ctx context.Context, spec catalog.TestSpec) schema.TestResult {
	res := schema.TestResult{
		TestID:           spec.ID,
		ExecutionID:      uuid.NewString(),
		SemanticRequired: spec.HasSemantic(),
	}

	if skipped, reason := spec.Skipped(); skipped {
		res.Status = schema.StatusSkipped
		res.Reason = reason
		return res
	}

	if err := ctx.Err(); err != nil {
		res.Status = schema.StatusCancelled
		res.Reason = "run cancelled before start"
		return res
	}

	fx, found, err := r.fixtures.Find(spec.ID)
	if err != nil {
		res.Status = schema.StatusError
		res.Reason = err.Error()
		return res
	}
	if !found {
		res.Status = schema.StatusSkipped
		res.Reason = "fixture missing: " + spec.FixtureRef
		return res
	}
	if !fixture.IsValid(fx) {
		res.Status = schema.StatusSkipped
		res.Reason = "fixture invalid (placeholder or redacted handle)"
		return res
	}

	t0 := r.now()
	res.StartedAt = t0.UTC()
	r.logf("→ %s (%s) forwarding fixture", spec.ID, res.ExecutionID)

	if _, err := r.client.Send(ctx, ForwardRequest(fx, r.cfg.TestInputChannelID)); err != nil {
		res.Status = schema.StatusError
		res.Reason = "trigger send failed: " + err.Error()
		res.Duration = r.now().Sub(t0)
		return res
	}

	notif, ok := r.awaitNotification(ctx, spec)
	res.Duration = r.now().Sub(t0)
	if !ok {
		if ctx.Err() == context.Canceled {
			res.Status = schema.StatusCancelled
			res.Reason = "run cancelled while awaiting notification"
			return res
		}
		res.Status = schema.StatusTimeout
		res.Reason = fmt.Sprintf("no notification carrying %s within %s", ids.Bracketed(spec.ID), r.timeoutFor(spec))
		res.Checks = validate.Evaluate(spec.Expectations, res.Actual)
		return res
	}

	res.Actual = r.collectActuals(notif)
	res.Checks = validate.Evaluate(spec.Expectations, res.Actual)
	res.Duration = r.now().Sub(t0)

	if validate.Passed(res.Checks) {
		res.Status = schema.StatusPassed
	} else {
		res.Status = schema.StatusFailed
	}

	if spec.HasSemantic() && res.Status == schema.StatusPassed && !r.opts.SkipJudge && r.judge != nil {
		target := judgeTarget(notif, spec.Expectations.Semantic.TargetClass, r.cfg.VaultRoot)
		sem := r.judge(ctx, target, *spec.Expectations.Semantic)
		res.Semantic = &sem
	}

	r.logf("← %s %s in %s", spec.ID, res.Status, res.Duration.Round(time.Millisecond))
	return res
}

// timeoutFor honors a spec-level override (capped at the voice/audio
// ceiling) over the configured per-kind default.
func (r *Runner) timeoutFor(spec catalog.TestSpec) time.Duration {
	voiceOrAudio := spec.Input.Type == catalog.InputVoice || spec.Input.Type == catalog.InputAudio
	d := r.cfg.TimeoutFor(voiceOrAudio)
	if spec.TimeoutMS > 0 {
		requested := time.Duration(spec.TimeoutMS) * time.Millisecond
		if max := r.cfg.TimeoutFor(true); requested > max {
			requested = max
		}
		d = requested
	}
	return d
}

// awaitNotification polls the test notification channel until a message
// correlates with spec or the per-spec deadline expires. Correlation is the
// bracketed identifier anywhere in the body; for voice and audio inputs,
// where the identifier is spoken rather than captioned, a notification with
// no bracket match is additionally correlated by searching the content of
// every file it references.
func (r *Runner) awaitNotification(ctx context.Context, spec catalog.TestSpec) (schema.Notification, bool) {
	deadline := r.timeoutFor(spec)
	pollCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	token := ids.Bracketed(spec.ID)
	voiceOrAudio := spec.Input.Type == catalog.InputVoice || spec.Input.Type == catalog.InputAudio
	var after int64

	for {
		msgs, err := r.client.PollNotifications(pollCtx, r.cfg.TestNotificationChannelID, after)
		if err == nil {
			for _, m := range msgs {
				if m.MessageID > after {
					after = m.MessageID
				}
				if strings.Contains(m.Text, token) {
					return schema.ParseNotification(m.Text), true
				}
				if voiceOrAudio {
					n := schema.ParseNotification(m.Text)
					if r.outputsMention(n, spec.ID) {
						return n, true
					}
				}
			}
		}

		select {
		case <-pollCtx.Done():
			return schema.Notification{}, false
		case <-time.After(r.opts.PollInterval):
		}
	}
}

// outputsMention reports whether any vault file referenced by n contains the
// spec identifier, covering transcribed audio where the id is spoken.
func (r *Runner) outputsMention(n schema.Notification, testID string) bool {
	for _, rel := range n.OutputPaths {
		f, err := vault.Read(r.cfg.VaultRoot, rel)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToUpper(f.Content), strings.ToUpper(testID)) {
			return true
		}
	}
	return false
}

// collectActuals reads the primary vault artifact and probes the archive,
// assembling everything the Validation Engine compares against.
func (r *Runner) collectActuals(n schema.Notification) schema.Actual {
	actual := schema.Actual{
		Pipeline:     n.Pipeline,
		Notification: n,
		ArchivePath:  n.DropboxPath,
	}
	if len(n.OutputPaths) > 0 {
		primary := n.OutputPaths[0]
		actual.VaultPath = primary
		if f, err := vault.Read(r.cfg.VaultRoot, primary); err == nil {
			actual.Tags = f.Tags
			actual.Frontmatter = f.Frontmatter
			actual.Content = f.Content
		}
	}
	if n.DropboxPath != "" {
		actual.ArchiveExists = vault.ArchiveExists("", n.DropboxPath)
	}
	return actual
}

// ForwardRequest rebuilds a send request from a stored fixture so the
// production pipeline sees the same payload the original capture carried.
// Media is always sent by reference: a valid fixture's handle is known to
// the backend already.
func ForwardRequest(fx schema.Fixture, channelID string) backend.SendRequest {
	req := backend.SendRequest{
		ChannelID: channelID,
		Kind:      fx.Message.Kind,
		Text:      fx.Message.Text,
	}
	if media := fx.Message.Media(); media != nil {
		req.FileID = media.FileID
		req.Caption = media.Caption
		req.FileName = media.FileName
	}
	return req
}

// judgeTarget picks which produced file the semantic judge reads. The
// pipeline lists the raw capture first and any derived notes after it, so
// "raw" selects the first path and "derived" the last.
func judgeTarget(n schema.Notification, targetClass, vaultRoot string) string {
	if len(n.OutputPaths) == 0 {
		return ""
	}
	rel := n.OutputPaths[0]
	if strings.EqualFold(targetClass, "derived") {
		rel = n.OutputPaths[len(n.OutputPaths)-1]
	}
	return vault.FullPath(vaultRoot, rel)
}

func (r *Runner) logf(format string, args ...any) {
	if r.opts.Verbose == nil {
		return
	}
	fmt.Fprintf(r.opts.Verbose, format+"\n", args...)
}
