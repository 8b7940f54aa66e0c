package semantic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ingestlab/ingest-harness/internal/catalog"
)

func TestJudge_NilClientIsAdvisoryUnavailable(t *testing.T) {
	res, err := Judge(context.Background(), nil, "/nonexistent/path.md", catalog.SemanticSpec{Threshold: 80}, "")
	require.NoError(t, err)
	require.False(t, res.Passed)
	require.Equal(t, 0, res.Confidence)
	require.Equal(t, "judge unavailable", res.Reasoning)
}

func TestParseVerdict_ExtractsJSONEvenWithSurroundingText(t *testing.T) {
	text := "Here is my verdict:\n" +
		`{"confidence": 92, "reasoning": "checkpoints satisfied", "checkpoints": [{"checkpoint": "c1", "satisfied": true}]}` +
		"\nthanks"
	v, err := parseVerdict(text)
	require.NoError(t, err)
	require.Equal(t, 92, v.Confidence)
	require.Len(t, v.Checkpoints, 1)
}

func TestParseVerdict_ErrorsWithoutJSONObject(t *testing.T) {
	_, err := parseVerdict("no json here")
	require.Error(t, err)
}
