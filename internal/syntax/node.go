package syntax

import (
	"context"
	"strings"
)

// Kind tags a syntax node. The set is closed; the converter matches on it exhaustively.
type Kind int

const (
	KindError Kind = iota
	KindMarkup
	KindText
	KindSpace
	KindParbreak
	KindSmartQuote
	KindShorthand
	KindEscape
	KindLinebreak
	KindStrong
	KindEmph
	KindRaw
	KindLink
	KindLabel
	KindRef
	KindHeading
	KindHeadingMarker
	KindListItem
	KindEnumItem
	KindTermItem
	KindListMarker
	KindEquation
	KindMath
	KindFuncCall
	KindIdent
	KindArgs
	KindCode
	KindCodeBlock
	KindContentBlock
	KindModuleImport
	KindModuleInclude
	KindLetBinding
	KindSetRule
	KindShowRule
	KindLeftBracket
	KindRightBracket
	KindLeftParen
	KindRightParen
	KindLeftBrace
	KindRightBrace
	KindHash
	KindDollar
	KindStr
	KindDelim
	KindComment
)

var kindNames = [...]string{
	KindError:         "error",
	KindMarkup:        "markup",
	KindText:          "text",
	KindSpace:         "space",
	KindParbreak:      "parbreak",
	KindSmartQuote:    "smart-quote",
	KindShorthand:     "shorthand",
	KindEscape:        "escape",
	KindLinebreak:     "linebreak",
	KindStrong:        "strong",
	KindEmph:          "emph",
	KindRaw:           "raw",
	KindLink:          "link",
	KindLabel:         "label",
	KindRef:           "ref",
	KindHeading:       "heading",
	KindHeadingMarker: "heading-marker",
	KindListItem:      "list-item",
	KindEnumItem:      "enum-item",
	KindTermItem:      "term-item",
	KindListMarker:    "list-marker",
	KindEquation:      "equation",
	KindMath:          "math",
	KindFuncCall:      "func-call",
	KindIdent:         "ident",
	KindArgs:          "args",
	KindCode:          "code",
	KindCodeBlock:     "code-block",
	KindContentBlock:  "content-block",
	KindModuleImport:  "module-import",
	KindModuleInclude: "module-include",
	KindLetBinding:    "let-binding",
	KindSetRule:       "set-rule",
	KindShowRule:      "show-rule",
	KindLeftBracket:   "[",
	KindRightBracket:  "]",
	KindLeftParen:     "(",
	KindRightParen:    ")",
	KindLeftBrace:     "{",
	KindRightBrace:    "}",
	KindHash:          "#",
	KindDollar:        "$",
	KindStr:           "str",
	KindDelim:         "delim",
	KindComment:       "comment",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Node is one node of a lossless syntax tree. Leaves carry their source text,
// inner nodes carry none; concatenating the leaves in order yields the source.
type Node struct {
	Kind     Kind
	Start    int
	End      int
	Text     string
	Children []*Node
}

// Leaf creates a leaf covering source[start:end].
func Leaf(kind Kind, source []byte, start, end int) *Node {
	return &Node{Kind: kind, Start: start, End: end, Text: string(source[start:end])}
}

// Inner creates an inner node spanning its children.
func Inner(kind Kind, children ...*Node) *Node {
	n := &Node{Kind: kind, Children: children}
	if len(children) > 0 {
		n.Start = children[0].Start
		n.End = children[len(children)-1].End
	}
	return n
}

// Append adds a child and widens the node's range to cover it.
func (n *Node) Append(child *Node) {
	if len(n.Children) == 0 {
		n.Start = child.Start
	}
	n.Children = append(n.Children, child)
	n.End = child.End
}

func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

func (n *Node) Len() int {
	return n.End - n.Start
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Leaves returns the leaves of n in source order.
func Leaves(n *Node) []*Node {
	var leaves []*Node
	Walk(n, func(c *Node) bool {
		if c.IsLeaf() {
			leaves = append(leaves, c)
		}
		return true
	})
	return leaves
}

// Source reassembles the text covered by n from its leaves.
func Source(n *Node) string {
	var b strings.Builder
	for _, l := range Leaves(n) {
		b.WriteString(l.Text)
	}
	return b.String()
}

// Point is a row and a byte column, the coordinates tree-sitter edits use.
type Point struct {
	Row    int
	Column int
}

// Edit describes a byte-level replacement, used by incremental parsers.
type Edit struct {
	StartByte   int
	OldEndByte  int
	NewEndByte  int
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// NewEdit describes replacing old[start:end] with newText.
func NewEdit(old []byte, start, end int, newText string) Edit {
	startPoint := pointAt(old, start)
	newEnd := startPoint
	if i := strings.LastIndexByte(newText, '\n'); i >= 0 {
		newEnd.Row += strings.Count(newText, "\n")
		newEnd.Column = len(newText) - i - 1
	} else {
		newEnd.Column += len(newText)
	}
	return Edit{
		StartByte:   start,
		OldEndByte:  end,
		NewEndByte:  start + len(newText),
		StartPoint:  startPoint,
		OldEndPoint: pointAt(old, end),
		NewEndPoint: newEnd,
	}
}

func pointAt(src []byte, off int) Point {
	var p Point
	for i := 0; i < off && i < len(src); i++ {
		if src[i] == '\n' {
			p.Row++
			p.Column = 0
		} else {
			p.Column++
		}
	}
	return p
}

// Parser turns source text into a lossless tree rooted at a Markup node.
type Parser interface {
	Parse(ctx context.Context, source []byte) (*Node, error)
}

// IncrementalParser keeps state between parses and is told about edits
// before the next Parse call.
type IncrementalParser interface {
	Parser
	Edit(e Edit)
	Close() error
}
