package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const standaloneYAML = `
deployment:
  mode: standalone
server:
  addr: 127.0.0.1:0
logging:
  console:
    enabled: false
  file:
    enabled: false
storage:
  backend: memory
pubsub:
  engine: memory
`

// configDir writes a standalone configuration and returns its directory.
func configDir(t *testing.T, yml string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0644))
	return dir
}

func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	rootCmd := NewRootCmd()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestRootCmd_ListsCommands(t *testing.T) {
	out, err := execute(t, context.Background(), "--help")
	require.NoError(t, err)
	for _, name := range []string{"serve", "reindex", "search", "migrate", "deadletters"} {
		assert.Contains(t, out, name)
	}
}

func TestRootCmd_BadConfig(t *testing.T) {
	dir := configDir(t, "deployment: [broken")
	_, err := execute(t, context.Background(), "--config", dir, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestSearchCmd_Validation(t *testing.T) {
	dir := configDir(t, standaloneYAML)

	_, err := execute(t, context.Background(), "-c", dir, "search")
	assert.ErrorContains(t, err, "a query is required")

	_, err = execute(t, context.Background(), "-c", dir, "search", "bread", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = execute(t, context.Background(), "-c", dir, "search", "bread", "--scope", "SERVICES")
	assert.Error(t, err)

	_, err = execute(t, context.Background(), "-c", dir, "search", "--featured", "service")
	assert.Error(t, err)
}

func TestSearchCmd_Text(t *testing.T) {
	dir := configDir(t, standaloneYAML)

	out, err := execute(t, context.Background(), "-c", dir, "search", "sourdough", "bread", "--page", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "0 results (page 2, limit 10)")
}

func TestSearchCmd_FeaturedJSON(t *testing.T) {
	dir := configDir(t, standaloneYAML)

	out, err := execute(t, context.Background(), "-c", dir, "search", "--featured", "product", "--limit", "5", "-f", "json")
	require.NoError(t, err)

	var res struct {
		Items []json.RawMessage `json:"items"`
		Total int               `json:"total"`
		Limit int               `json:"limit"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Empty(t, res.Items)
	assert.Equal(t, 5, res.Limit)
}

func TestReindexCmd(t *testing.T) {
	dir := configDir(t, standaloneYAML)

	_, err := execute(t, context.Background(), "-c", dir, "reindex", "service", "1")
	assert.Error(t, err)

	_, err = execute(t, context.Background(), "-c", dir, "reindex", "product", "abc")
	assert.ErrorContains(t, err, `invalid id "abc"`)

	_, err = execute(t, context.Background(), "-c", dir, "reindex", "product")
	assert.Error(t, err)

	out, err := execute(t, context.Background(), "-c", dir, "reindex", "product", "5", "6", "--direct")
	require.NoError(t, err)
	assert.Equal(t, "reindexed 5\nreindexed 6\n", out)

	out, err = execute(t, context.Background(), "-c", dir, "reindex", "business", "7")
	require.NoError(t, err)
	assert.Equal(t, "queued 7\n", out)
}

func TestMigrateCmd_Memory(t *testing.T) {
	dir := configDir(t, standaloneYAML)

	out, err := execute(t, context.Background(), "-c", dir, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "index schema is up to date")
}

func TestDeadLettersCmd_Disabled(t *testing.T) {
	dir := configDir(t, standaloneYAML)

	_, err := execute(t, context.Background(), "-c", dir, "deadletters", "list")
	assert.ErrorIs(t, err, errDeadLettersDisabled)

	_, err = execute(t, context.Background(), "-c", dir, "deadletters", "replay", "--limit", "3")
	assert.ErrorIs(t, err, errDeadLettersDisabled)
}

func TestServeCmd_StopsOnCancel(t *testing.T) {
	dir := configDir(t, standaloneYAML)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := execute(t, ctx, "-c", dir, "serve", "--server=false")
		done <- err
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not stop after the context was canceled")
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1", "42"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 42}, ids)

	_, err = parseIDs([]string{"0"})
	assert.Error(t, err)
}
