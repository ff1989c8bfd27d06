// Package convert walks a syntax tree and produces the annotated batches that
// are sent to LanguageTool.
package convert

import (
	"grammarls/internal/annotate"
	"grammarls/internal/replay"
	"grammarls/internal/syntax"
)

// DefaultMaxLength is the batch size, in UTF-16 units, above which the
// converter splits at the next paragraph break.
const DefaultMaxLength = 10000

type Mode int

const (
	Prose Mode = iota
	Code
)

// FunctionRule adds synthetic text around a function call, for example to
// make the checker see a paragraph break around a custom block function.
type FunctionRule struct {
	Before string `json:"before" yaml:"before" toml:"before"`
	After  string `json:"after" yaml:"after" toml:"after"`
}

type Rules map[string]FunctionRule

type Converter struct {
	Rules     Rules
	MaxLength int
}

func New(rules Rules, maxLength int) *Converter {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Converter{Rules: rules, MaxLength: maxLength}
}

// Convert walks root in prose mode and returns the batches in source order.
// Concatenating the source text of all batches yields the source of root.
func (c *Converter) Convert(root *syntax.Node) []annotate.Batch {
	b := annotate.NewBuilder()
	c.convert(root, Prose, b)
	return b.Batches()
}

func (c *Converter) convert(n *syntax.Node, mode Mode, b *annotate.Builder) {
	switch n.Kind {
	case syntax.KindText, syntax.KindSpace, syntax.KindSmartQuote:
		if mode == Prose {
			b.AddText(n.Text)
			return
		}
		c.passThrough(n, mode, b)
	case syntax.KindEquation:
		b.AddInterpreted(n.Text, "0")
		skip(n, b)
	case syntax.KindRef:
		b.AddInterpreted(n.Text, "X")
		skip(n, b)
	case syntax.KindFuncCall:
		rule, ok := c.Rules[calleeName(n)]
		if ok {
			b.AddInterpreted("", rule.Before)
		}
		c.inner(n, Code, b)
		if ok {
			b.AddInterpreted("", rule.After)
		}
	case syntax.KindCode, syntax.KindCodeBlock, syntax.KindModuleImport, syntax.KindModuleInclude,
		syntax.KindLetBinding, syntax.KindShowRule, syntax.KindSetRule:
		c.inner(n, Code, b)
	case syntax.KindHeading:
		b.AddInterpreted("", "\n\n")
		c.inner(n, mode, b)
		b.AddInterpreted("", "\n\n")
	case syntax.KindLeftBracket, syntax.KindRightBracket:
		b.AddInterpreted(n.Text, "\n\n")
	case syntax.KindMarkup:
		c.inner(n, Prose, b)
	case syntax.KindShorthand:
		if n.Text == "~" {
			b.AddInterpreted(n.Text, " ")
			return
		}
		c.passThrough(n, mode, b)
	case syntax.KindParbreak:
		b.AddInterpreted(n.Text, "\n\n")
	default:
		c.passThrough(n, mode, b)
	}
}

func (c *Converter) passThrough(n *syntax.Node, mode Mode, b *annotate.Builder) {
	b.AddMarkup(n.Text)
	c.children(n, mode, b)
}

// inner converts the children of a container node. A container without
// children is a leaf that owns its text (a paragraph holding only an autolink,
// say), which is kept as markup.
func (c *Converter) inner(n *syntax.Node, mode Mode, b *annotate.Builder) {
	if n.IsLeaf() {
		b.AddMarkup(n.Text)
		return
	}
	c.children(n, mode, b)
}

// children converts the children of n. After each paragraph break it starts
// a new batch if the next paragraph would push the batch over the maximum.
func (c *Converter) children(n *syntax.Node, mode Mode, b *annotate.Builder) {
	for i, child := range n.Children {
		c.convert(child, mode, b)
		if child.Kind == syntax.KindParbreak && !b.Empty() && b.Len()+paragraphLen(n.Children[i+1:]) > c.MaxLength {
			b.Split()
		}
	}
}

// skip emits every leaf below n as markup.
func skip(n *syntax.Node, b *annotate.Builder) {
	b.AddMarkup(n.Text)
	for _, child := range n.Children {
		skip(child, b)
	}
}

func calleeName(n *syntax.Node) string {
	if len(n.Children) == 0 {
		return ""
	}
	return n.Children[0].Text
}

// paragraphLen is the source length of the siblings up to and including the
// next paragraph break.
func paragraphLen(siblings []*syntax.Node) int {
	total := 0
	for _, s := range siblings {
		for _, l := range syntax.Leaves(s) {
			total += replay.Len(l.Text)
		}
		if s.Kind == syntax.KindParbreak {
			break
		}
	}
	return total
}
