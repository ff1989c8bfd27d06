// Package frontend picks the syntax parser for a document.
package frontend

import (
	"net/url"
	"path"
	"strings"

	"github.com/go-enry/go-enry/v2"
	"github.com/tliron/commonlog"

	"grammarls/internal/sitteradapter"
	"grammarls/internal/syntax"
	"grammarls/internal/syntax/markdown"
	"grammarls/internal/syntax/typst"
)

var log = commonlog.GetLogger("grammarls.frontend")

type Language string

const (
	Typst    Language = "typst"
	Markdown Language = "markdown"
	HTML     Language = "html"
)

// Detect resolves the language from the editor's languageId, then from the
// file name and content, and defaults to Typst.
func Detect(languageID, uri string, content []byte) Language {
	switch strings.ToLower(languageID) {
	case "typst", "typ":
		return Typst
	case "markdown", "md":
		return Markdown
	case "html":
		return HTML
	}

	name := uri
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		name = u.Path
	}
	name = path.Base(name)

	if lang, ok := byExtension(name); ok {
		return lang
	}
	detected := enry.GetLanguage(name, content)
	switch detected {
	case "Markdown":
		return Markdown
	case "HTML":
		return HTML
	}
	log.Debugf("no frontend for %q (detected %q), using typst", name, detected)
	return Typst
}

// Supported reports whether a file name has the extension of a language
// with a frontend.
func Supported(name string) bool {
	_, ok := byExtension(name)
	return ok
}

// byExtension looks at every language enry associates with the extension of
// name. Extensions are ambiguous (".md" is also GCC Machine Description), so
// the first candidate is not enough.
func byExtension(name string) (Language, bool) {
	if strings.HasSuffix(name, ".typ") {
		return Typst, true
	}
	for _, candidate := range enry.GetLanguagesByExtension(name, nil, nil) {
		switch candidate {
		case "Markdown":
			return Markdown, true
		case "HTML":
			return HTML, true
		}
	}
	return "", false
}

// New returns a fresh parser for lang. HTML parsers hold tree-sitter state
// and must be closed.
func New(lang Language) syntax.Parser {
	switch lang {
	case Markdown:
		return markdown.New()
	case HTML:
		return sitteradapter.NewParser()
	default:
		return typst.New()
	}
}
