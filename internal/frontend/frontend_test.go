package frontend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"grammarls/internal/frontend"
	"grammarls/internal/sitteradapter"
	"grammarls/internal/syntax/markdown"
	"grammarls/internal/syntax/typst"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		languageID string
		uri        string
		want       frontend.Language
	}{
		{"language id wins", "markdown", "file:///tmp/a.typ", frontend.Markdown},
		{"typst extension", "", "file:///tmp/paper.typ", frontend.Typst},
		{"markdown extension", "", "file:///tmp/README.md", frontend.Markdown},
		{"html extension", "", "file:///tmp/index.html", frontend.HTML},
		{"unknown defaults to typst", "", "file:///tmp/notes", frontend.Typst},
		{"html id", "HTML", "untitled:1", frontend.HTML},
		{"ambiguous md extension", "", "file:///docs/CHANGES.md", frontend.Markdown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, frontend.Detect(tt.languageID, tt.uri, nil))
		})
	}
}

func TestNew(t *testing.T) {
	assert.IsType(t, &typst.Parser{}, frontend.New(frontend.Typst))
	assert.IsType(t, &markdown.Parser{}, frontend.New(frontend.Markdown))
	p := frontend.New(frontend.HTML)
	assert.IsType(t, &sitteradapter.Parser{}, p)
	_ = p.(*sitteradapter.Parser).Close()
}

func TestSupported(t *testing.T) {
	for name, want := range map[string]bool{
		"paper.typ":      true,
		"README.md":      true,
		"index.html":     true,
		"notes.markdown": true,
		"page.htm":       true,
		"/a/b/c.md":      true,
		"main.go":        false,
		"notes":          false,
	} {
		assert.Equal(t, want, frontend.Supported(name), name)
	}
}
