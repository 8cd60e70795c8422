package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HRemonen/ljgrawlr/internal/crawler"
	"github.com/HRemonen/ljgrawlr/internal/post"
	"github.com/HRemonen/ljgrawlr/internal/records"
)

func notATerminal(t *testing.T) *os.File {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	return f
}

func TestCredentialsFromEnvironment(t *testing.T) {
	env := map[string]string{usernameEnv: " alice ", passwordEnv: "secret"}

	username, password, err := credentials(notATerminal(t), &bytes.Buffer{}, func(k string) string { return env[k] })
	require.NoError(t, err)

	assert.Equal(t, "alice", username)
	assert.Equal(t, "secret", password)
}

func TestCredentialsWithoutTerminal(t *testing.T) {
	env := map[string]string{usernameEnv: "alice"}

	_, _, err := credentials(notATerminal(t), &bytes.Buffer{}, func(k string) string { return env[k] })
	assert.ErrorIs(t, err, errNoCredentials)
}

func TestRenderSummary(t *testing.T) {
	started := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	renderSummary(&buf, crawler.Summary{
		RunID:       "run-1",
		Strategy:    crawler.Archival,
		Final:       crawler.Halted,
		Started:     started,
		Finished:    started.Add(1500 * time.Millisecond),
		Attempted:   4,
		Saved:       3,
		FilesBefore: 2,
		FilesOnDisk: 4,
		Discrepancy: true,
		Halted:      true,
		HaltReason:  "cancelled",
	}, "out/alice")

	out := buf.String()
	assert.Contains(t, out, "Crawl run-1")
	assert.Contains(t, out, "archival")
	assert.Contains(t, out, "out/alice")
	assert.Contains(t, out, "cancelled")
	assert.Contains(t, out, "expected 5 files")
	assert.Contains(t, out, "1.5s")
}

func TestRenderIndex(t *testing.T) {
	dir := t.TempDir()
	w, err := records.NewWriter(dir)
	require.NoError(t, err)

	for _, rec := range []post.Record{
		{Title: "Riga", Date: time.Date(2019, 12, 24, 0, 0, 0, 0, time.UTC), URL: "https://alice.livejournal.com/90.html", Tags: post.NewTags("travel")},
		{Title: "Home", Date: time.Date(2020, 1, 10, 0, 0, 0, 0, time.UTC), URL: "https://alice.livejournal.com/110.html", Tags: post.NoTags()},
	} {
		require.Equal(t, records.Saved, w.Write(rec).Outcome)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.md"), []byte("no front matter"), 0o644))

	list, err := records.List(dir)
	require.NoError(t, err)

	var buf bytes.Buffer
	renderIndex(&buf, records.BuildIndex(list), list)

	out := buf.String()
	assert.Contains(t, out, "By year")
	assert.Contains(t, out, "2019-12-24 Riga")
	assert.Contains(t, out, "2020-01-10 Home")
	assert.Contains(t, out, "travel")
	assert.Contains(t, out, "broken.md")
}
