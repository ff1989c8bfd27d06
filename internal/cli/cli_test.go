package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(BuildInfo{Version: "1.2.3", Commit: "abc", Date: "today"})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--color", "never"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// languageTool answers every request with one match for "wrld", located in
// the text items of the annotation.
func languageTool(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		data := r.PostForm.Get("data")
		if !strings.Contains(data, "wrld") {
			fmt.Fprint(w, `{"matches":[]}`)
			return
		}
		fmt.Fprint(w, `{"matches":[{"message":"Possible spelling mistake found.","offset":6,"length":4,
			"replacements":[{"value":"world"}],"context":{"text":"wrld","offset":0,"length":4},
			"rule":{"id":"MORFOLOGIK_RULE_EN_US","description":"Possible Typo","issueType":"misspelling"}}]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "grammarls 1.2.3 (commit abc, built today)\n", out)
}

func TestCheckReportsIssues(t *testing.T) {
	srv := languageTool(t)
	path := writeFile(t, "note.typ", "Hello wrld.\n")

	out, err := execute(t, "check", "--server", srv.URL, path)
	assert.ErrorIs(t, err, ErrIssuesFound)
	assert.Contains(t, out, path+":1:7 warning Possible spelling mistake found. \"wrld\" [MORFOLOGIK_RULE_EN_US] -> world")
	assert.Contains(t, out, "1 issues found")
}

func TestCheckAllowedWord(t *testing.T) {
	srv := languageTool(t)
	path := writeFile(t, "note.md", "Hello wrld.\n")

	out, err := execute(t, "check", "--server", srv.URL, "--allow", "wrld", path)
	require.NoError(t, err)
	assert.Contains(t, out, "no issues found")
}

func TestCheckUnreachableServer(t *testing.T) {
	srv := languageTool(t)
	url := srv.URL
	srv.Close()

	_, err := execute(t, "check", "--server", url, writeFile(t, "note.typ", "Hello wrld.\n"))
	assert.ErrorContains(t, err, "requests to LanguageTool failed")
}

func TestCheckMissingFile(t *testing.T) {
	_, err := execute(t, "check", filepath.Join(t.TempDir(), "missing.typ"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestChunks(t *testing.T) {
	path := writeFile(t, "note.typ", "= Title\n\nSome *strong* prose.\n")
	out, err := execute(t, "chunks", path)
	require.NoError(t, err)
	assert.Contains(t, out, "chunks (")
	assert.Contains(t, out, `"Title"`)
	assert.Contains(t, out, "batches (1)")
	assert.Contains(t, out, `markup "*"`)

	out, err = execute(t, "chunks", "--annotation", path)
	require.NoError(t, err)
	assert.Contains(t, out, `{"annotation":[`)
}

func TestChunksWithConfigRules(t *testing.T) {
	cfgPath := writeFile(t, "grammarls.yaml", "rules:\n  note:\n    before: \"NOTE \"\n")
	path := writeFile(t, "doc.typ", "#note[Be careful.]\n")

	out, err := execute(t, "--config", cfgPath, "chunks", path)
	require.NoError(t, err)
	assert.Contains(t, out, `as "NOTE "`)
}

func TestCheckDirectory(t *testing.T) {
	srv := languageTool(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.typ"), []byte("Hello wrld.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("Hello wrld.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.go"), []byte("package wrld\n"), 0o644))

	out, err := execute(t, "check", "--server", srv.URL, dir)
	assert.ErrorIs(t, err, ErrIssuesFound)
	assert.Contains(t, out, "2 issues found")
	assert.NotContains(t, out, "c.go")
}

func TestExpandKeepsScannedContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("# Notes\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.typ"), []byte("= Title\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.go"), []byte("package c\n"), 0o644))
	single := writeFile(t, "single.typ", "Single file.\n")

	inputs, err := expand([]string{dir, single})
	require.NoError(t, err)
	require.Len(t, inputs, 3)
	assert.Equal(t, filepath.Join(dir, "a.typ"), inputs[0].path)
	assert.Equal(t, "= Title\n", string(inputs[0].content))
	assert.Equal(t, filepath.Join(dir, "b.md"), inputs[1].path)
	assert.Equal(t, single, inputs[2].path)
	assert.Nil(t, inputs[2].content)

	// Scanned documents open without touching the file again.
	require.NoError(t, os.RemoveAll(dir))
	doc, err := inputs[1].open(context.Background())
	require.NoError(t, err)
	defer doc.Close()
	assert.Equal(t, "# Notes\n", doc.String())
}
