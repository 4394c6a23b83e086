package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/plandit-scraper/internal/domain"
)

func TestLoadTargets(t *testing.T) {
	csv := "\uFEFFname,type\n" +
		"golang,subreddit\n" +
		"r/rust,\n" +
		"someone,user\n" +
		"x,\n" + // too short, skipped
		"bad name!,\n" // invalid characters, skipped

	path := filepath.Join(t.TempDir(), "targets.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	targets, err := LoadTargets(path)
	require.NoError(t, err)

	assert.Equal(t, []domain.Target{
		{Name: "golang"},
		{Name: "rust"},
		{Name: "someone", IsUser: true},
	}, targets)
}

func TestLoadTargetsMissingFile(t *testing.T) {
	_, err := LoadTargets(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestParseTargets(t *testing.T) {
	targets, err := ParseTargets("golang, u/someone ,r/rust")
	require.NoError(t, err)

	assert.Equal(t, []domain.Target{
		{Name: "golang"},
		{Name: "someone", IsUser: true},
		{Name: "rust"},
	}, targets)
}

func TestParseTargetsInvalid(t *testing.T) {
	_, err := ParseTargets("golang,bad name!")
	assert.Error(t, err)
}

func TestParseTargetsEmpty(t *testing.T) {
	targets, err := ParseTargets("")
	require.NoError(t, err)
	assert.Empty(t, targets)
}
