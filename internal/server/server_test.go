package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"grammarls/internal/annotate"
	"grammarls/internal/convert"
	"grammarls/internal/document"
	"grammarls/internal/languagetool"
	"grammarls/internal/replay"
)

// typoClient flags every occurrence of "wrld".
type typoClient struct{}

func (typoClient) Check(_ context.Context, batch annotate.Batch) (*languagetool.Response, error) {
	src := batch.Source()
	resp := &languagetool.Response{}
	for from := 0; ; {
		i := strings.Index(src[from:], "wrld")
		if i < 0 {
			return resp, nil
		}
		at := from + i
		resp.Matches = append(resp.Matches, languagetool.Match{
			Message:      "Possible spelling mistake found.",
			Offset:       replay.Len(src[:at]),
			Length:       4,
			Replacements: []languagetool.Replacement{{Value: "world"}, {Value: "wild"}},
			Context:      languagetool.Context{Text: "wrld", Length: 4},
			Rule:         languagetool.Rule{ID: "MORFOLOGIK_RULE_EN_US", Description: "Possible Typo", IssueType: languagetool.IssueMisspelling},
		})
		from = at + 4
	}
}

type recorder struct {
	mu        sync.Mutex
	published map[string][]protocol.PublishDiagnosticsParams
	methods   []string
}

func (r *recorder) notify(method string, params any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods = append(r.methods, method)
	if p, ok := params.(protocol.PublishDiagnosticsParams); ok {
		if r.published == nil {
			r.published = map[string][]protocol.PublishDiagnosticsParams{}
		}
		r.published[p.URI] = append(r.published[p.URI], p)
	}
}

func (r *recorder) last(uri string) []protocol.Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.published[uri]
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1].Diagnostics
}

func rng(startLine, startChar, endLine, endChar int) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(startLine), Character: protocol.UInteger(startChar)},
		End:   protocol.Position{Line: protocol.UInteger(endLine), Character: protocol.UInteger(endChar)},
	}
}

const uri = "file:///notes/hello.typ"

func setup(t *testing.T, options map[string]any) (*Server, *recorder, *glsp.Context) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	words := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(words, []byte("world\nwork\nworry\nwild\n"), 0o644))

	opts := map[string]any{
		"check_on_open":      false,
		"completion_enabled": true,
		"word_list":          words,
		"dictionary_db":      filepath.Join(dir, "dictionary.db"),
	}
	for k, v := range options {
		opts[k] = v
	}

	s := New(Options{Client: typoClient{}, Version: "test"})
	rec := &recorder{}
	ctx := &glsp.Context{Notify: rec.notify}
	result, err := s.initialize(ctx, &protocol.InitializeParams{InitializationOptions: opts})
	require.NoError(t, err)
	res := result.(protocol.InitializeResult)
	assert.Equal(t, commands, res.Capabilities.ExecuteCommandProvider.Commands)
	assert.Equal(t, "test", *res.ServerInfo.Version)
	t.Cleanup(func() { assert.NoError(t, s.shutdown(ctx)) })
	return s, rec, ctx
}

func open(t *testing.T, s *Server, ctx *glsp.Context, text string) {
	t.Helper()
	require.NoError(t, s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "typst", Version: 1, Text: text},
	}))
}

func TestCheckEditAndCodeActions(t *testing.T) {
	s, rec, ctx := setup(t, nil)
	open(t, s, ctx, "Hello wrld.\n")
	assert.Empty(t, rec.last(uri))

	require.NoError(t, s.runCheck(ctx.Notify, uri))
	diags := rec.last(uri)
	require.Len(t, diags, 1)
	assert.Equal(t, rng(0, 6, 0, 10), diags[0].Range)
	assert.Equal(t, "Possible spelling mistake found.", diags[0].Message)

	// An edit before the diagnostic moves it.
	start := rng(0, 0, 0, 0)
	require.NoError(t, s.textDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEvent{Range: &start, Text: "Oh. "}},
	}))
	diags = rec.last(uri)
	require.Len(t, diags, 1)
	assert.Equal(t, rng(0, 10, 0, 14), diags[0].Range)

	result, err := s.textDocumentCodeAction(ctx, &protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Range:        rng(0, 11, 0, 11),
	})
	require.NoError(t, err)
	actions := result.([]protocol.CodeAction)
	var titles []string
	for _, a := range actions {
		titles = append(titles, a.Title)
	}
	assert.Equal(t, []string{
		"Rule: Possible Typo | Replacement: world",
		"Rule: Possible Typo | Replacement: wild",
		`Add "wrld" to dictionary`,
		"Check document",
		"Clear diagnostics",
	}, titles)
	edit := actions[0].Edit.Changes[uri]
	require.Len(t, edit, 1)
	assert.Equal(t, rng(0, 10, 0, 14), edit[0].Range)
	assert.Equal(t, "world", edit[0].NewText)

	// Accepting the word drops the diagnostic for good.
	add := actions[2].Command
	_, err = s.workspaceExecuteCommand(ctx, &protocol.ExecuteCommandParams{Command: add.Command, Arguments: add.Arguments})
	require.NoError(t, err)
	assert.Empty(t, rec.last(uri))
	require.NoError(t, s.runCheck(ctx.Notify, uri))
	assert.Empty(t, rec.last(uri))
}

func TestEditInsideDiagnosticDropsIt(t *testing.T) {
	s, rec, ctx := setup(t, nil)
	open(t, s, ctx, "Hello wrld and wrld.")
	require.NoError(t, s.runCheck(ctx.Notify, uri))
	require.Len(t, rec.last(uri), 2)

	inside := rng(0, 7, 0, 8)
	require.NoError(t, s.textDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEvent{Range: &inside, Text: "o"}},
	}))
	diags := rec.last(uri)
	require.Len(t, diags, 1)
	assert.Equal(t, rng(0, 15, 0, 19), diags[0].Range)

	// Changes for an outdated version are rejected.
	err := s.textDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "x"}},
	})
	assert.Error(t, err)
}

func TestCheckOnOpenAndSave(t *testing.T) {
	s, rec, ctx := setup(t, map[string]any{"check_on_open": true})
	open(t, s, ctx, "A wrld.")
	assert.Eventually(t, func() bool { return len(rec.last(uri)) == 1 }, 5*time.Second, 10*time.Millisecond)

	_, err := s.workspaceExecuteCommand(ctx, &protocol.ExecuteCommandParams{Command: CommandClear, Arguments: []any{uri}})
	require.NoError(t, err)
	assert.Empty(t, rec.last(uri))

	require.NoError(t, s.textDocumentDidSave(ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}))
	assert.Eventually(t, func() bool { return len(rec.last(uri)) == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestShowChunksToggles(t *testing.T) {
	s, rec, ctx := setup(t, nil)
	open(t, s, ctx, "Some prose here.\n\n$x^2$ and more prose.")

	run := func() {
		_, err := s.workspaceExecuteCommand(ctx, &protocol.ExecuteCommandParams{Command: CommandShowChunks, Arguments: []any{uri}})
		require.NoError(t, err)
	}
	run()
	chunks := rec.last(uri)
	require.NotEmpty(t, chunks)
	for _, d := range chunks {
		assert.Equal(t, "chunks", *d.Source)
	}
	run()
	assert.Empty(t, rec.last(uri))
}

func TestClearKeepsChunkMarks(t *testing.T) {
	s, rec, ctx := setup(t, nil)
	open(t, s, ctx, "Hello wrld, some prose.")

	command := func(name string) {
		_, err := s.workspaceExecuteCommand(ctx, &protocol.ExecuteCommandParams{Command: name, Arguments: []any{uri}})
		require.NoError(t, err)
	}
	command(CommandShowChunks)
	require.NoError(t, s.runCheck(ctx.Notify, uri))
	sources := func() map[string]int {
		out := map[string]int{}
		for _, d := range rec.last(uri) {
			out[*d.Source]++
		}
		return out
	}
	require.Equal(t, 1, sources()["languagetool"])
	require.NotZero(t, sources()["chunks"])

	command(CommandClear)
	got := sources()
	assert.Zero(t, got["languagetool"])
	assert.NotZero(t, got["chunks"])
}

func TestExecuteCommandErrors(t *testing.T) {
	s, _, ctx := setup(t, nil)
	_, err := s.workspaceExecuteCommand(ctx, &protocol.ExecuteCommandParams{Command: CommandCheck})
	assert.ErrorContains(t, err, "missing argument")

	_, err = s.workspaceExecuteCommand(ctx, &protocol.ExecuteCommandParams{Command: "grammarls.unknown", Arguments: []any{uri}})
	assert.ErrorContains(t, err, "unknown command")

	_, err = s.workspaceExecuteCommand(ctx, &protocol.ExecuteCommandParams{Command: CommandAddWord, Arguments: []any{uri, 3}})
	assert.ErrorContains(t, err, "expected string")
}

func TestCompletion(t *testing.T) {
	s, _, ctx := setup(t, nil)
	open(t, s, ctx, "The wor")

	result, err := s.textDocumentCompletion(ctx, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 0, Character: 7},
		},
	})
	require.NoError(t, err)
	var labels []string
	for _, item := range result.([]protocol.CompletionItem) {
		labels = append(labels, item.Label)
	}
	assert.Equal(t, []string{"work", "world", "worry"}, labels)
}

func TestCompletionDisabled(t *testing.T) {
	s, _, ctx := setup(t, map[string]any{"completion_enabled": false})
	open(t, s, ctx, "The wor")
	result, err := s.textDocumentCompletion(ctx, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 0, Character: 7},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestHoverWithoutDefinition(t *testing.T) {
	s, _, ctx := setup(t, map[string]any{"sdcv_data_dir": t.TempDir()})
	s.mu.Lock()
	s.definer.Command = filepath.Join(t.TempDir(), "no-sdcv")
	s.mu.Unlock()
	open(t, s, ctx, "Hello world")

	hover, err := s.textDocumentHover(ctx, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 0, Character: 2},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, hover)
}

func TestCloseClearsDiagnostics(t *testing.T) {
	s, rec, ctx := setup(t, nil)
	open(t, s, ctx, "Hello wrld.")
	require.NoError(t, s.runCheck(ctx.Notify, uri))
	require.Len(t, rec.last(uri), 1)

	require.NoError(t, s.textDocumentDidClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}))
	assert.NotNil(t, rec.last(uri))
	assert.Empty(t, rec.last(uri))
	assert.Error(t, s.runCheck(ctx.Notify, uri))
}

func TestCompactKeepsAnchoredVersions(t *testing.T) {
	s, _, ctx := setup(t, nil)
	open(t, s, ctx, "Hello wrld.")
	require.NoError(t, s.runCheck(ctx.Notify, uri))

	for v := 2; v <= 4; v++ {
		end := rng(0, 0, 0, 0)
		require.NoError(t, s.textDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
			TextDocument: protocol.VersionedTextDocumentIdentifier{
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
				Version:                protocol.Integer(v),
			},
			ContentChanges: []any{protocol.TextDocumentContentChangeEvent{Range: &end, Text: "x"}},
		}))
	}
	require.NoError(t, s.compact())

	var doc = s.registry.Snapshot(uri)
	require.Len(t, doc, 1)
	err := s.manager.With(uri, func(d *document.Document) error {
		assert.Equal(t, 3, d.LogSize())
		got, ok := d.CorrectRange(1, doc[0].Range)
		assert.True(t, ok)
		assert.Equal(t, 9, got.Start)
		return nil
	})
	require.NoError(t, err)
}

func TestRulesReloadKeepsInlineRules(t *testing.T) {
	rulesFile := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(rulesFile, []byte(`{"box": {"before": "B"}}`), 0o644))

	s, _, _ := setup(t, map[string]any{
		"rules":      map[string]any{"note": map[string]any{"before": "N"}},
		"rules_file": rulesFile,
	})
	rules := func() convert.Rules {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.rules
	}
	assert.Equal(t, convert.Rules{"note": {Before: "N"}, "box": {Before: "B"}}, rules())

	require.NoError(t, os.WriteFile(rulesFile, []byte(`{"box": {"after": "!"}}`), 0o644))
	assert.Eventually(t, func() bool {
		got := rules()
		return got["box"].After == "!" && got["note"].Before == "N"
	}, 2*time.Second, 10*time.Millisecond)
}
