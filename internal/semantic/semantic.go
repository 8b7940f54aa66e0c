// Package semantic implements the Semantic Judge Driver: it dispatches
// Claude-as-judge prompts against a vault file and a checkpoint-bearing
// sub-spec, and parses confidence and pass/fail out of the response.
package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ingestlab/ingest-harness/internal/catalog"
	"github.com/ingestlab/ingest-harness/internal/schema"
)

// unavailable is the fixed result the driver returns whenever the judge
// cannot be reached: advisory, never surfaced as an
// error up to the runner.
var unavailable = schema.SemanticResult{Passed: false, Confidence: 0, Reasoning: "judge unavailable"}

// DefaultModel is used when the caller does not override it.
const DefaultModel = anthropic.ModelClaude3_7SonnetLatest

// Judge reads filePath, builds one checkpoint-grounded prompt from sub, and
// asks client for a JSON-shaped verdict. Any transport/context error
// (including a deliberately unreachable judge endpoint) degrades to the
// offline-fallback result rather than propagating an error, since the
// overall test's passed status is unaffected by the judge when the
// deterministic checks already pass.
func Judge(ctx context.Context, client *anthropic.Client, filePath string, sub catalog.SemanticSpec, model anthropic.Model) (schema.SemanticResult, error) {
	if client == nil {
		return unavailable, nil
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return unavailable, nil
	}
	if model == "" {
		model = DefaultModel
	}

	prompt := buildPrompt(sub, string(content))
	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return unavailable, nil
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	verdict, err := parseVerdict(text.String())
	if err != nil {
		return unavailable, nil
	}

	threshold := sub.Threshold
	if threshold <= 0 {
		threshold = 80
	}
	verdict.Passed = verdict.Confidence >= threshold
	return verdict, nil
}

func buildPrompt(sub catalog.SemanticSpec, content string) string {
	var b strings.Builder
	b.WriteString("You are judging whether an AI-generated note satisfies a set of checkpoints.\n\n")
	fmt.Fprintf(&b, "Description: %s\n\n", sub.Description)
	b.WriteString("Checkpoints:\n")
	for i, cp := range sub.Checkpoints {
		fmt.Fprintf(&b, "%d. %s\n", i+1, cp)
	}
	b.WriteString("\nFile content:\n---\n")
	b.WriteString(content)
	b.WriteString("\n---\n\n")
	b.WriteString("Respond with ONLY a JSON object of the shape " +
		`{"confidence": <0-100 integer>, "reasoning": "<one paragraph>", ` +
		`"checkpoints": [{"checkpoint": "<text>", "satisfied": <bool>, "reasoning": "<one sentence>"}]}` +
		". Do not include any other text.")
	return b.String()
}

type verdictJSON struct {
	Confidence  int                      `json:"confidence"`
	Reasoning   string                   `json:"reasoning"`
	Checkpoints []schema.CheckpointResult `json:"checkpoints"`
}

func parseVerdict(text string) (schema.SemanticResult, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return schema.SemanticResult{}, fmt.Errorf("semantic: no JSON object found in judge response")
	}
	var v verdictJSON
	if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
		return schema.SemanticResult{}, fmt.Errorf("semantic: decode verdict: %w", err)
	}
	return schema.SemanticResult{
		Confidence:  v.Confidence,
		Reasoning:   v.Reasoning,
		Checkpoints: v.Checkpoints,
	}, nil
}
