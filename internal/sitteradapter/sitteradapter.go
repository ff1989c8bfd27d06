// Package sitteradapter maps tree-sitter HTML trees onto syntax trees and
// keeps the previous tree around for incremental reparsing.
package sitteradapter

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/tliron/commonlog"

	"grammarls/internal/syntax"
)

var (
	log  = commonlog.GetLogger("grammarls.sitteradapter")
	lang = html.GetLanguage()
)

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"body": true, "dd": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "figure": true, "footer": true, "form": true,
	"header": true, "hr": true, "html": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "section": true, "table": true,
	"tbody": true, "td": true, "tfoot": true, "th": true, "thead": true,
	"tr": true, "ul": true, "br": true, "head": true, "title": true,
}

var rawTags = map[string]bool{
	"code": true, "pre": true, "kbd": true, "samp": true, "var": true,
	"script": true, "style": true, "textarea": true, "svg": true, "math": true,
}

// Parser wraps a tree-sitter parser along with the tree of the last parse.
type Parser struct {
	parser *sitter.Parser
	tree   *sitter.Tree
	mu     sync.Mutex
}

func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(lang)
	return &Parser{parser: p}
}

// Edit records an edit on the previous tree so the next Parse can reuse it.
func (p *Parser) Edit(e syntax.Edit) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tree != nil {
		p.tree.Edit(CreateTSEditAdapter(e))
	}
}

func (p *Parser) Parse(ctx context.Context, source []byte) (*syntax.Node, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.parser == nil {
		return nil, fmt.Errorf("parser is closed")
	}
	tree, err := p.parser.ParseCtx(ctx, p.tree, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	if p.tree != nil {
		p.tree.Close()
	}
	p.tree = tree

	root := &syntax.Node{Kind: syntax.KindMarkup}
	top := tree.RootNode()
	for i := 0; i < int(top.NamedChildCount()); i++ {
		if n := mapNode(top.NamedChild(i), source); n != nil {
			root.Children = append(root.Children, n)
		}
	}
	syntax.Fill(root, source, 0, len(source), syntax.WhitespaceGaps)
	log.Debugf("parsed %d bytes of html into %d top-level nodes", len(source), len(root.Children))
	return root, nil
}

// Close frees any resources held by the Parser.
func (p *Parser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tree != nil {
		p.tree.Close()
		p.tree = nil
	}
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
	return nil
}

// CreateTSEditAdapter converts a byte-level edit into a tree-sitter EditInput.
func CreateTSEditAdapter(e syntax.Edit) sitter.EditInput {
	return sitter.EditInput{
		StartIndex:  uint32(e.StartByte),
		OldEndIndex: uint32(e.OldEndByte),
		NewEndIndex: uint32(e.NewEndByte),
		StartPoint:  toPoint(e.StartPoint),
		OldEndPoint: toPoint(e.OldEndPoint),
		NewEndPoint: toPoint(e.NewEndPoint),
	}
}

func toPoint(p syntax.Point) sitter.Point {
	return sitter.Point{Row: uint32(p.Row), Column: uint32(p.Column)}
}

func span(kind syntax.Kind, n *sitter.Node) *syntax.Node {
	return &syntax.Node{Kind: kind, Start: int(n.StartByte()), End: int(n.EndByte())}
}

func mapNode(n *sitter.Node, source []byte) *syntax.Node {
	switch n.Type() {
	case "text":
		return mapText(n, source)
	case "comment":
		return span(syntax.KindComment, n)
	case "script_element", "style_element":
		return span(syntax.KindRaw, n)
	case "element":
		return mapElement(n, source)
	default:
		// doctype, entities, stray end tags
		return span(syntax.KindDelim, n)
	}
}

// mapText splits a text node into words and the whitespace between them, the
// way the Typst parser emits Text and Space leaves.
func mapText(n *sitter.Node, source []byte) *syntax.Node {
	start, end := int(n.StartByte()), int(n.EndByte())
	if start >= end {
		return nil
	}
	var runs []*syntax.Node
	for i := start; i < end; {
		ws := isSpace(source[i])
		j := i
		for j < end && isSpace(source[j]) == ws {
			j++
		}
		kind := syntax.KindText
		if ws {
			kind = syntax.WhitespaceGaps(string(source[i:j]))
		}
		runs = append(runs, syntax.Leaf(kind, source, i, j))
		i = j
	}
	if len(runs) == 1 {
		return runs[0]
	}
	return syntax.Inner(syntax.KindMarkup, runs...)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func tagName(n *sitter.Node, source []byte) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "start_tag", "self_closing_tag":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				if name := c.NamedChild(j); name.Type() == "tag_name" {
					return strings.ToLower(name.Content(source))
				}
			}
		}
	}
	return ""
}

func mapElement(n *sitter.Node, source []byte) *syntax.Node {
	name := tagName(n, source)
	if rawTags[name] {
		return span(syntax.KindRaw, n)
	}

	kind, tagKind := syntax.KindMarkup, syntax.KindDelim
	switch {
	case len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6':
		kind = syntax.KindHeading
	case blockTags[name]:
		tagKind = syntax.KindParbreak
	}

	el := &syntax.Node{Kind: kind, Start: int(n.StartByte()), End: int(n.EndByte())}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "start_tag", "end_tag", "self_closing_tag":
			el.Children = append(el.Children, span(tagKind, c))
		default:
			if m := mapNode(c, source); m != nil {
				el.Children = append(el.Children, m)
			}
		}
	}
	return el
}
