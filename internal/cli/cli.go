// Package cli assembles the ingest command tree. Every leaf command
// delegates into an internal package immediately and maps internal error
// kinds onto the process exit codes: 0 when everything passed, 1 when one
// or more tests failed, 2 on configuration or fatal errors.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"

	"github.com/ingestlab/ingest-harness/internal/backend"
	"github.com/ingestlab/ingest-harness/internal/catalog"
	"github.com/ingestlab/ingest-harness/internal/config"
	"github.com/ingestlab/ingest-harness/internal/fixture"
	"github.com/ingestlab/ingest-harness/internal/runner"
	"github.com/ingestlab/ingest-harness/internal/schema"
	"github.com/ingestlab/ingest-harness/internal/semantic"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitFatal  = 2
)

// errTestsFailed marks the "work completed, some tests failed" outcome so
// Execute can separate exit code 1 from fatal errors.
var errTestsFailed = errors.New("one or more tests failed")

// App carries the state shared across the command tree: resolved config,
// output streams, and the global flags.
type App struct {
	Version string

	Stdout io.Writer
	Stderr io.Writer

	Verbose   bool
	DryRun    bool
	TimeoutMS int

	// ResolveConfig is overridable in tests to avoid touching the real
	// environment or home directory.
	ResolveConfig func() (config.Resolved, error)

	// NewBackend is overridable in tests to substitute a fake client.
	NewBackend func(token string) (backend.Client, error)

	cfg      *config.Resolved
	loadedOK bool
}

// Config resolves and caches the runtime configuration.
func (a *App) Config() (config.Resolved, error) {
	if a.loadedOK {
		return *a.cfg, nil
	}
	resolve := a.ResolveConfig
	if resolve == nil {
		resolve = config.Resolve
	}
	cfg, err := resolve()
	if err != nil {
		return config.Resolved{}, err
	}
	if a.TimeoutMS > 0 {
		cfg.SpecTimeout = time.Duration(a.TimeoutMS) * time.Millisecond
	}
	a.cfg = &cfg
	a.loadedOK = true
	return cfg, nil
}

// Backend builds the messaging client from the resolved credential.
func (a *App) Backend() (backend.Client, error) {
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	if a.NewBackend != nil {
		return a.NewBackend(cfg.BackendToken)
	}
	return backend.NewTelegramClient(cfg.BackendToken)
}

// Fixtures opens the fixture store at the configured root.
func (a *App) Fixtures() (*fixture.Store, error) {
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	return fixture.New(cfg.FixtureRoot), nil
}

// Judge builds the semantic judge boundary the runner calls, honoring an
// overridden endpoint. skip short-circuits to nil so the runner records
// results as judge-not-run rather than judge-unavailable.
func (a *App) Judge(skip bool) runner.JudgeFunc {
	if skip {
		return nil
	}
	cfg, err := a.Config()
	if err != nil {
		return nil
	}
	var opts []option.RequestOption
	if cfg.JudgeEndpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.JudgeEndpoint))
	}
	client := anthropic.NewClient(opts...)
	return func(ctx context.Context, vaultPath string, sub catalog.SemanticSpec) schema.SemanticResult {
		res, _ := semantic.Judge(ctx, &client, vaultPath, sub, "")
		return res
	}
}

// Execute builds the command tree, runs it, and maps the outcome to an
// exit code.
func Execute(version string, args []string) int {
	app := &App{Version: version, Stdout: os.Stdout, Stderr: os.Stderr}
	return run(app, args)
}

func run(app *App, args []string) int {
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(app.Stdout)
	root.SetErr(app.Stderr)

	if err := root.Execute(); err != nil {
		if errors.Is(err, errTestsFailed) {
			return exitFailed
		}
		fmt.Fprintf(app.Stderr, "ingest: %v\n", err)
		return exitFatal
	}
	return exitOK
}

// NewRootCommand assembles the full ingest command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "ingest",
		Short:         "Drive and validate the message-ingestion pipeline end to end",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&app.Verbose, "verbose", false, "print progress as specs execute")
	root.PersistentFlags().BoolVar(&app.DryRun, "dry-run", false, "describe work without sending or writing anything")
	root.PersistentFlags().IntVar(&app.TimeoutMS, "timeout", 0, "per-spec timeout override in milliseconds")

	root.AddCommand(newTestCommand(app))
	root.AddCommand(newDirectCommand(app))
	root.AddCommand(newSearchCommand(app))
	root.AddCommand(newWatchCommand(app))
	return root
}
