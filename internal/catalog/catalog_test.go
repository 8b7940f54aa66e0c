package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_UniqueAndOrdered(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, c.All())

	seen := map[string]bool{}
	prev := ""
	for _, s := range c.All() {
		require.False(t, seen[s.ID], "duplicate id %s", s.ID)
		seen[s.ID] = true
		require.GreaterOrEqual(t, s.ID, prev)
		prev = s.ID
	}
}

func TestLoad_FixtureRefMatchesCategory(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	for _, s := range c.All() {
		require.Contains(t, s.FixtureRef, string(s.Category)+"/")
	}
}

func TestByID(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	s, ok := c.ByID("TEST-SCOPE-001")
	require.True(t, ok)
	require.Equal(t, CategoryScope, s.Category)

	_, ok = c.ByID("TEST-NOPE-999")
	require.False(t, ok)
}

func TestWithSemantic(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	for _, s := range c.WithSemantic() {
		require.NotNil(t, s.Expectations.Semantic)
	}
}

func TestLoadFromSpecs_RejectsDuplicateID(t *testing.T) {
	specs := []TestSpec{
		{ID: "TEST-DUP-001", Category: CategoryScope, FixtureRef: "scope/a.json"},
		{ID: "TEST-DUP-001", Category: CategoryScope, FixtureRef: "scope/b.json"},
	}
	_, err := LoadFromSpecs(specs)
	require.Error(t, err)
}

func TestLoadFromSpecs_RejectsMismatchedFixtureRef(t *testing.T) {
	specs := []TestSpec{
		{ID: "TEST-BAD-001", Category: CategoryScope, FixtureRef: "archive/a.json"},
	}
	_, err := LoadFromSpecs(specs)
	require.Error(t, err)
}
