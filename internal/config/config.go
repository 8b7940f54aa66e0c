// Package config resolves the harness's runtime configuration. It is the
// only package that reads the process environment; every other component
// receives a fully-resolved Resolved struct.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrorCode closes the set of config-layer error kinds surfaced to the CLI.
type ErrorCode string

const (
	ConfigMissing ErrorCode = "ConfigMissing"
	UnsafeConfig  ErrorCode = "UnsafeConfig"
)

// Error is the typed error the resolver returns. Callers test for a kind
// with errors.As and IsCode.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if cerr, ok := err.(*Error); ok {
		e = cerr
	} else {
		return false
	}
	return e.Code == code
}

// Resolved is the fully-resolved configuration record threaded through every
// other component.
type Resolved struct {
	BackendToken               string
	TestInputChannelID         string
	TestNotificationChannelID  string
	ProductionChannelID        string
	VaultRoot                  string
	FixtureRoot                string
	RunsRoot                   string
	Concurrency                int
	SpecTimeout                time.Duration
	VoiceAudioSpecTimeout      time.Duration
	JudgeEndpoint              string
}

// fileConfigV1 is the well-known config file's shape: equivalent keys to the
// environment variables, for operators who prefer a committed file over
// exported env vars.
type fileConfigV1 struct {
	SchemaVersion             int    `json:"schemaVersion"`
	BackendToken              string `json:"backendToken,omitempty"`
	TestInputChannelID        string `json:"testInputChannelId,omitempty"`
	TestNotificationChannelID string `json:"testNotificationChannelId,omitempty"`
	ProductionChannelID       string `json:"productionChannelId,omitempty"`
	VaultRoot                 string `json:"vaultRoot,omitempty"`
	FixtureRoot               string `json:"fixtureRoot,omitempty"`
	RunsRoot                  string `json:"runsRoot,omitempty"`
	RunnerConcurrency         int    `json:"runnerConcurrency,omitempty"`
	SpecTimeoutMS             int    `json:"specTimeoutMs,omitempty"`
	JudgeEndpoint             string `json:"judgeEndpoint,omitempty"`
}

// DefaultConfigPath returns the resolver-defined well-known config file
// location, ~/.ingest/config.json.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ingest", "config.json"), nil
}

func loadFile(path string) (fileConfigV1, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileConfigV1{}, false, nil
		}
		return fileConfigV1{}, false, err
	}
	var cfg fileConfigV1
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fileConfigV1{}, false, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, true, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Resolve builds a Resolved configuration from the process environment,
// falling back to the well-known config file, then to defaults.
//
// Precedence per field: environment variable, then config file, then
// default (where a sane default exists). Fails with ConfigMissing if the
// test input channel is unset, and UnsafeConfig if the test input channel
// equals the production channel.
func Resolve() (Resolved, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return Resolved{}, err
	}
	fileCfg, _, err := loadFile(path)
	if err != nil {
		return Resolved{}, err
	}
	return resolveFrom(fileCfg)
}

func resolveFrom(fileCfg fileConfigV1) (Resolved, error) {
	r := Resolved{
		BackendToken:              firstNonEmpty(os.Getenv("BACKEND_TOKEN"), fileCfg.BackendToken),
		TestInputChannelID:        firstNonEmpty(os.Getenv("TEST_INPUT_CHANNEL_ID"), fileCfg.TestInputChannelID),
		TestNotificationChannelID: firstNonEmpty(os.Getenv("TEST_NOTIFICATION_CHANNEL_ID"), fileCfg.TestNotificationChannelID),
		ProductionChannelID:       firstNonEmpty(os.Getenv("PRODUCTION_CHANNEL_ID"), fileCfg.ProductionChannelID),
		VaultRoot:                 firstNonEmpty(os.Getenv("VAULT_ROOT"), fileCfg.VaultRoot, "./vault"),
		FixtureRoot:               firstNonEmpty(os.Getenv("FIXTURE_ROOT"), fileCfg.FixtureRoot, "./fixtures"),
		RunsRoot:                  firstNonEmpty(os.Getenv("RUNS_ROOT"), fileCfg.RunsRoot, "./runs"),
		Concurrency:               5,
		SpecTimeout:               90 * time.Second,
		VoiceAudioSpecTimeout:     180 * time.Second,
		JudgeEndpoint:             firstNonEmpty(os.Getenv("JUDGE_ENDPOINT"), fileCfg.JudgeEndpoint),
	}

	if v := os.Getenv("RUNNER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			r.Concurrency = n
		}
	} else if fileCfg.RunnerConcurrency > 0 {
		r.Concurrency = fileCfg.RunnerConcurrency
	}

	if v := os.Getenv("SPEC_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			r.SpecTimeout = time.Duration(n) * time.Millisecond
		}
	} else if fileCfg.SpecTimeoutMS > 0 {
		r.SpecTimeout = time.Duration(fileCfg.SpecTimeoutMS) * time.Millisecond
	}

	if strings.TrimSpace(r.TestInputChannelID) == "" {
		return Resolved{}, &Error{Code: ConfigMissing, Message: "TEST_INPUT_CHANNEL_ID is required"}
	}
	if r.ProductionChannelID != "" && r.ProductionChannelID == r.TestInputChannelID {
		return Resolved{}, &Error{Code: UnsafeConfig, Message: "TEST_INPUT_CHANNEL_ID must not equal PRODUCTION_CHANNEL_ID"}
	}

	return r, nil
}

// TimeoutFor returns the per-spec deadline, honoring the voice/audio
// extension when isVoiceOrAudio is set.
func (r Resolved) TimeoutFor(isVoiceOrAudio bool) time.Duration {
	if isVoiceOrAudio && r.VoiceAudioSpecTimeout > r.SpecTimeout {
		return r.VoiceAudioSpecTimeout
	}
	return r.SpecTimeout
}
