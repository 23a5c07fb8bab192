package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeData(t *testing.T, out string) map[string]any {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return data
}

func TestIndexCommand(t *testing.T) {
	out, err := execute(t, "index", "testdata/v1.html", "--path", "/docs/guide", "--tree")
	require.NoError(t, err)
	assert.Contains(t, out, "path:        /docs/guide")
	assert.Contains(t, out, "nodes:       13 (8 elements, 5 text)")
	assert.Contains(t, out, " /html/body[0]/h1[0] [heading]")
	assert.Contains(t, out, " /html/body[0]/a[0] [link]")
	assert.Contains(t, out, " /html/head[0]/title[0]/#text[0]")
}

func TestIndexCommandJSONIsStable(t *testing.T) {
	first, err := execute(t, "--format", "json", "index", "testdata/v1.html", "--path", "/docs/guide")
	require.NoError(t, err)
	second, err := execute(t, "--format", "json", "index", "testdata/v1.html", "--path", "/docs/guide")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := execute(t, "--format", "json", "index", "testdata/v1.html", "--path", "/docs/other")
	require.NoError(t, err)

	a, b := decodeData(t, first), decodeData(t, other)
	assert.NotEqual(t, a["root_id"], b["root_id"], "page seed must separate ids")
	assert.Equal(t, a["fingerprint"], b["fingerprint"], "content hash does not depend on the page")
}

func TestIndexCommandMissingFile(t *testing.T) {
	out, err := execute(t, "index", "testdata/nope.html")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [")
}

func TestDiffCommand(t *testing.T) {
	out, err := execute(t, "diff", "testdata/v1.html", "testdata/v2.html", "--path", "/docs/guide")
	require.NoError(t, err)
	assert.Equal(t, "1 operations\n  update_text /html/body[0]/p[1]/#text[0] \"Second, revised\"\n", out)
}

func TestDiffCommandJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "diff", "testdata/v1.html", "testdata/v2.html", "--process")
	require.NoError(t, err)

	data := decodeData(t, out)
	assert.Equal(t, false, data["reload"])
	ops, ok := data["ops"].([]any)
	require.True(t, ok)
	require.Len(t, ops, 1)
	op := ops[0].(map[string]any)
	assert.Equal(t, "update_text", op["op"])
	assert.Equal(t, "Second, revised", op["text"])
	assert.NotEmpty(t, op["target"])
}

func TestDiffCommandIdentical(t *testing.T) {
	out, err := execute(t, "diff", "testdata/v1.html", "testdata/v1.html")
	require.NoError(t, err)
	assert.Equal(t, "0 operations\n", out)
}

func TestDiffCommandFailOnReload(t *testing.T) {
	out, err := execute(t, "diff", "testdata/fragment.html", "testdata/rewrite.html", "--fragment")
	require.NoError(t, err)
	assert.Contains(t, out, "reload: top-level change ratio 2.00 exceeds 0.50")

	_, err = execute(t, "diff", "testdata/fragment.html", "testdata/rewrite.html", "--fragment", "--fail-on-reload")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestDiffCommandConfigMaxOps(t *testing.T) {
	out, err := execute(t, "diff", "testdata/v1.html", "testdata/v3.html")
	require.NoError(t, err)
	assert.NotContains(t, out, "reload:")
	assert.Contains(t, out, "2 operations")

	cfg := filepath.Join(t.TempDir(), "vtree.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("diff:\n  max_ops: 1\n"), 0o644))

	out, err = execute(t, "--config", cfg, "diff", "testdata/v1.html", "testdata/v3.html")
	require.NoError(t, err)
	assert.Contains(t, out, "reload: patch has 2 operations, limit 1\n2 operations")
}

func TestRenderCommand(t *testing.T) {
	out, err := execute(t, "render", "testdata/v1.html", "--path", "/docs/guide", "--doctype")
	require.NoError(t, err)
	assert.Contains(t, out, "<!DOCTYPE html><html>")
	assert.Contains(t, out, `<h1 id="guide">Guide</h1>`)
	assert.Contains(t, out, `href="/docs/setup"`)
}

func TestRenderCommandJSON(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "guide.html")
	out, err := execute(t, "--format", "json", "render", "testdata/v1.html", "--path", "/docs/guide", "-o", dest, "--ids")
	require.NoError(t, err)

	data := decodeData(t, out)
	assert.Equal(t, "/docs/guide", data["path"])
	assert.Equal(t, dest, data["output"])
	assert.Nil(t, data["html"])
	assert.Contains(t, data["capabilities"], "LinksResolved")

	outline := data["outline"].([]any)
	require.Len(t, outline, 1)
	assert.Equal(t, "guide", outline[0].(map[string]any)["anchor"])

	links := data["links"].([]any)
	require.Len(t, links, 1)
	assert.Equal(t, "/docs/setup", links[0].(map[string]any)["href"])
	assert.Equal(t, "absolute", links[0].(map[string]any)["type"])

	html, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(html), `data-vid="`)
}

func TestWatchCommandRequiresDirectory(t *testing.T) {
	_, err := execute(t, "watch")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "watch", "testdata/v1.html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content directory not found")
}
