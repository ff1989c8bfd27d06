package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grammarls/internal/convert"
)

func TestLoadOverridesOnlyPresentFields(t *testing.T) {
	cfg, err := Load(map[string]any{
		"lt_api_port":    "8010",
		"disabled_rules": []string{"WHITESPACE_RULE"},
		"check_on_open":  false,
	})
	require.NoError(t, err)

	want := Default()
	want.LTPort = "8010"
	want.DisabledRules = []string{"WHITESPACE_RULE"}
	want.CheckOnOpen = false
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "http://127.0.0.1:8010", cfg.BaseURL())
}

func TestLoadNil(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromJSON(t *testing.T) {
	cfg, err := LoadFromJSON(strings.NewReader(`{"lt_enabled": false, "rules": {"note": {"before": "\n\n"}}}`))
	require.NoError(t, err)
	assert.False(t, cfg.LTEnabled)
	assert.Equal(t, convert.Rules{"note": {Before: "\n\n"}}, cfg.Rules)
	assert.Equal(t, convert.DefaultMaxLength, cfg.MaxBatchLength)

	_, err = LoadFromJSON(strings.NewReader(`{`))
	assert.Error(t, err)
}

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	files := map[string]string{
		"grammarls.json": `{"language": "en-GB", "concurrency": 2, "rules": {"note": {"before": "N", "after": "."}}}`,
		"grammarls.yaml": "language: en-GB\nconcurrency: 2\nrules:\n  note:\n    before: N\n    after: .\n",
		"grammarls.toml": "language = \"en-GB\"\nconcurrency = 2\n[rules.note]\nbefore = \"N\"\nafter = \".\"\n",
	}
	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			cfg, err := LoadFile(write(t, name, content))
			require.NoError(t, err)
			assert.Equal(t, "en-GB", cfg.Language)
			assert.Equal(t, 2, cfg.Concurrency)
			assert.Equal(t, convert.Rules{"note": {Before: "N", After: "."}}, cfg.Rules)
			assert.True(t, cfg.LTEnabled)
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(write(t, "grammarls.ini", "x=1"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = LoadFile(write(t, "grammarls.yaml", "concurrency: [1"))
	assert.ErrorContains(t, err, "failed to decode")

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMerge(t *testing.T) {
	base, err := Load(map[string]any{"lt_api_port": "9000", "language": "de-DE"})
	require.NoError(t, err)
	cfg, err := base.Merge(write(t, "override.toml", "language = \"fr\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.LTPort)
	assert.Equal(t, "fr", cfg.Language)
}

func TestLanguageToolConfig(t *testing.T) {
	cfg := Default()
	cfg.LTHostname = "https://api.languagetool.org/"
	cfg.LTPort = ""
	cfg.MotherTongue = "de"
	lt := cfg.LanguageTool()
	assert.Equal(t, "https://api.languagetool.org", lt.BaseURL)
	assert.Equal(t, "de", lt.MotherTongue)
	assert.Equal(t, "auto", lt.Language)
}

func TestCompactEvery(t *testing.T) {
	cfg := Default()
	assert.Equal(t, time.Minute, cfg.CompactEvery())
	cfg.CompactInterval = -1
	assert.Equal(t, time.Minute, cfg.CompactEvery())
	cfg.CompactInterval = 5
	assert.Equal(t, 5*time.Second, cfg.CompactEvery())
}

func TestLoadRules(t *testing.T) {
	rules, err := LoadRules(write(t, "rules.yaml", "theorem:\n  before: \"\\n\\n\"\n  after: \"\\n\\n\"\n"))
	require.NoError(t, err)
	assert.Equal(t, convert.Rules{"theorem": {Before: "\n\n", After: "\n\n"}}, rules)
}

func TestMergeRules(t *testing.T) {
	cfg := Default()
	cfg.Rules = convert.Rules{"note": {Before: "N"}, "box": {Before: "inline"}}

	merged := cfg.MergeRules(convert.Rules{"box": {Before: "file"}, "theorem": {After: "."}})
	assert.Equal(t, convert.Rules{
		"note":    {Before: "N"},
		"box":     {Before: "file"},
		"theorem": {After: "."},
	}, merged)
	assert.Equal(t, convert.Rules{"note": {Before: "N"}, "box": {Before: "inline"}}, cfg.MergeRules(nil))
}

func TestWatchRules(t *testing.T) {
	path := write(t, "rules.json", `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan convert.Rules, 8)
	require.NoError(t, WatchRules(ctx, path, func(r convert.Rules) { got <- r }))

	// A broken file is skipped, the next valid write is delivered.
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(`{"box": {"before": "B"}}`), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case r := <-got:
			if _, ok := r["box"]; ok {
				assert.Equal(t, "B", r["box"].Before)
				return
			}
		case <-deadline:
			t.Fatal("rules were not reloaded")
		}
	}
}
