// Package markdown provides a syntax.Parser for Markdown using goldmark.
package markdown

import (
	"context"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"grammarls/internal/syntax"
)

// Parser implements syntax.Parser using goldmark with the GFM extensions.
type Parser struct {
	md goldmark.Markdown
}

func New() *Parser {
	return &Parser{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Parse maps the goldmark AST onto syntax kinds and fills every byte goldmark
// does not attribute to a node (markers, fences, blank lines) with gap leaves.
func (p *Parser) Parse(ctx context.Context, source []byte) (*syntax.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse cancelled: %w", err)
	}

	doc := p.md.Parser().Parse(text.NewReader(source), parser.WithContext(parser.NewContext()))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse cancelled: %w", err)
	}

	m := &mapper{content: source}
	root := &syntax.Node{Kind: syntax.KindMarkup}
	m.mapChildren(doc, root)
	syntax.Fill(root, source, 0, len(source), syntax.WhitespaceGaps)
	return root, nil
}

type mapper struct {
	content []byte
}

func (m *mapper) mapChildren(gmParent ast.Node, parent *syntax.Node) {
	for child := gmParent.FirstChild(); child != nil; child = child.NextSibling() {
		if n := m.mapNode(child); n != nil {
			parent.Children = append(parent.Children, n)
		}
	}
}

// mapNode converts one goldmark node. Nodes without a recoverable byte range
// return nil and end up as gap leaves.
func (m *mapper) mapNode(gmNode ast.Node) *syntax.Node {
	switch gmn := gmNode.(type) {
	case *ast.Heading:
		return m.block(gmn, syntax.KindHeading)

	case *ast.Paragraph, *ast.TextBlock:
		return m.block(gmn, syntax.KindMarkup)

	case *ast.List, *ast.ListItem, *ast.Blockquote,
		*east.Table, *east.TableHeader, *east.TableRow, *east.TableCell:
		return m.container(gmn, syntax.KindMarkup)

	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
		start, end := m.linesRange(gmn)
		return m.leaf(rawKind(gmn), start, end)

	case *ast.Text:
		return m.leaf(syntax.KindText, gmn.Segment.Start, gmn.Segment.Stop)

	case *ast.String:
		// Strings carry no segment; the gap filler recovers their bytes.
		return nil

	case *ast.CodeSpan:
		start, end := m.inlineRange(gmn)
		return m.leaf(syntax.KindRaw, start, end)

	case *ast.RawHTML:
		start, end := -1, -1
		for i := 0; i < gmn.Segments.Len(); i++ {
			seg := gmn.Segments.At(i)
			if start == -1 {
				start = seg.Start
			}
			end = seg.Stop
		}
		return m.leaf(syntax.KindDelim, start, end)

	case *ast.Emphasis:
		kind := syntax.KindEmph
		if gmn.Level >= 2 {
			kind = syntax.KindStrong
		}
		return m.container(gmn, kind)

	case *ast.Link, *ast.Image:
		return m.container(gmn, syntax.KindLink)

	case *east.Strikethrough:
		return m.container(gmn, syntax.KindMarkup)

	default:
		// AutoLink, ThematicBreak, TaskCheckBox and friends.
		return nil
	}
}

func rawKind(n ast.Node) syntax.Kind {
	if _, ok := n.(*ast.HTMLBlock); ok {
		return syntax.KindDelim
	}
	return syntax.KindRaw
}

func (m *mapper) leaf(kind syntax.Kind, start, end int) *syntax.Node {
	if start < 0 || end <= start {
		return nil
	}
	return &syntax.Node{Kind: kind, Start: start, End: end}
}

// block maps a node whose extent is given by its lines and whose children are inlines.
func (m *mapper) block(gmNode ast.Node, kind syntax.Kind) *syntax.Node {
	n := &syntax.Node{Kind: kind}
	m.mapChildren(gmNode, n)
	start, end := m.linesRange(gmNode)
	if len(n.Children) > 0 {
		if start < 0 || n.Children[0].Start < start {
			start = n.Children[0].Start
		}
		if last := n.Children[len(n.Children)-1]; last.End > end {
			end = last.End
		}
	}
	if start < 0 || end <= start {
		return nil
	}
	n.Start, n.End = start, end
	return n
}

// container maps a node whose extent is the union of its children.
func (m *mapper) container(gmNode ast.Node, kind syntax.Kind) *syntax.Node {
	n := &syntax.Node{Kind: kind}
	m.mapChildren(gmNode, n)
	if len(n.Children) == 0 {
		return nil
	}
	n.Start = n.Children[0].Start
	n.End = n.Children[len(n.Children)-1].End
	return n
}

// linesRange returns the extent of a block's lines with trailing whitespace
// trimmed, so blank lines between blocks surface as paragraph breaks.
func (m *mapper) linesRange(gmNode ast.Node) (int, int) {
	if gmNode.Type() == ast.TypeInline {
		return -1, -1
	}
	lines := gmNode.Lines()
	if lines == nil || lines.Len() == 0 {
		return -1, -1
	}
	start := lines.At(0).Start
	end := lines.At(lines.Len() - 1).Stop
	for end > start && isSpace(m.content[end-1]) {
		end--
	}
	return start, end
}

// inlineRange is the union of the text segments below an inline node.
func (m *mapper) inlineRange(gmNode ast.Node) (int, int) {
	start, end := -1, -1
	_ = ast.Walk(gmNode, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			if start == -1 || t.Segment.Start < start {
				start = t.Segment.Start
			}
			if t.Segment.Stop > end {
				end = t.Segment.Stop
			}
		}
		return ast.WalkContinue, nil
	})
	return start, end
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
