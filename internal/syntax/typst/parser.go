// Package typst parses Typst markup into a lossless syntax tree.
//
// The parser covers the markup layer in detail and the embedded code layer
// only as far as is needed to tell prose from code: statements, calls,
// argument lists, strings, and code and content blocks.
package typst

import (
	"context"
	"fmt"
	"unicode"
	"unicode/utf8"

	"grammarls/internal/syntax"
)

// Parser implements syntax.Parser for Typst sources.
type Parser struct{}

func New() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(ctx context.Context, source []byte) (*syntax.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse cancelled: %w", err)
	}
	return Parse(source), nil
}

// Parse returns the Markup root for source. It never fails: unterminated
// constructs run to the end of their enclosing context.
func Parse(source []byte) *syntax.Node {
	p := &parser{src: source}
	root := p.markup(stop{})
	root.Start, root.End = 0, len(source)
	return root
}

// stop describes where the markup currently being parsed ends.
type stop struct {
	delim   byte // closing '*' or '_'
	line    bool // end at the next newline
	bracket bool // end at an unbalanced ']'
}

type parser struct {
	src   []byte
	pos   int
	stops []stop
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek(off int) byte {
	if p.pos+off < len(p.src) && p.pos+off >= 0 {
		return p.src[p.pos+off]
	}
	return 0
}

func (p *parser) hasPrefix(s string) bool {
	return len(p.src)-p.pos >= len(s) && string(p.src[p.pos:p.pos+len(s)]) == s
}

func (p *parser) leaf(kind syntax.Kind, end int) *syntax.Node {
	n := syntax.Leaf(kind, p.src, p.pos, end)
	p.pos = end
	return n
}

func (p *parser) atLineStart() bool {
	for i := p.pos - 1; i >= 0; i-- {
		switch p.src[i] {
		case ' ', '\t':
			continue
		case '\n':
			return true
		default:
			return false
		}
	}
	return true
}

// whitespace returns the end of the whitespace run at pos and its newline count.
func (p *parser) whitespace() (int, int) {
	end, lines := p.pos, 0
	for end < len(p.src) {
		switch p.src[end] {
		case '\n':
			lines++
		case ' ', '\t', '\r':
		default:
			return end, lines
		}
		end++
	}
	return end, lines
}

// stopped reports whether any enclosing context ends at pos.
func (p *parser) stopped(depth int) bool {
	if p.eof() {
		return true
	}
	c := p.src[p.pos]
	for i := len(p.stops) - 1; i >= 0; i-- {
		s := p.stops[i]
		switch {
		case s.delim != 0 && c == s.delim:
			return true
		case s.bracket && c == ']' && (i < len(p.stops)-1 || depth == 0):
			return true
		case s.line && c == '\n':
			return true
		case s.delim != 0 && isSpace(c):
			if _, lines := p.whitespace(); lines >= 2 {
				return true
			}
		}
	}
	return false
}

func (p *parser) markup(s stop) *syntax.Node {
	p.stops = append(p.stops, s)
	defer func() { p.stops = p.stops[:len(p.stops)-1] }()

	m := &syntax.Node{Kind: syntax.KindMarkup, Start: p.pos, End: p.pos}
	depth := 0
	for !p.stopped(depth) {
		c := p.src[p.pos]
		if s.bracket && c == '[' {
			depth++
			m.Append(p.leaf(syntax.KindText, p.pos+1))
			continue
		}
		if s.bracket && c == ']' {
			depth--
			m.Append(p.leaf(syntax.KindText, p.pos+1))
			continue
		}
		for _, n := range p.markupItem() {
			m.Append(n)
		}
	}
	return m
}

// markupItem parses one construct at pos; some constructs yield siblings.
func (p *parser) markupItem() []*syntax.Node {
	c := p.src[p.pos]
	start := p.pos
	switch {
	case isSpace(c):
		end, lines := p.whitespace()
		if p.inLine() && lines > 0 {
			// A leading newline would have stopped the line already.
			end = start + indexByte(p.src[start:end], '\n')
		}
		if lines >= 2 && !p.inLine() {
			return one(p.leaf(syntax.KindParbreak, end))
		}
		return one(p.leaf(syntax.KindSpace, end))
	case c == '\\':
		return one(p.escape())
	case c == '`':
		return one(p.raw())
	case c == '$':
		return one(p.equation())
	case c == '#':
		return p.embedded()
	case c == '@' && isLabelChar(p.peek(1)):
		return one(p.ref())
	case c == '<':
		if n := p.label(); n != nil {
			return one(n)
		}
	case c == '*' || c == '_':
		if start == 0 || !isAlnumByte(p.src[start-1]) {
			return one(p.delimited(c))
		}
	case c == '=' && p.atLineStart():
		if n := p.heading(); n != nil {
			return one(n)
		}
	case (c == '-' || c == '+' || c == '/' || isDigit(c)) && p.atLineStart():
		if n := p.listItem(); n != nil {
			return one(n)
		}
	case c == '~':
		return one(p.leaf(syntax.KindShorthand, start+1))
	case c == '"' || c == '\'':
		return one(p.leaf(syntax.KindSmartQuote, start+1))
	}
	switch {
	case p.hasPrefix("---"):
		return one(p.leaf(syntax.KindShorthand, start+3))
	case p.hasPrefix("--"):
		return one(p.leaf(syntax.KindShorthand, start+2))
	case p.hasPrefix("..."):
		return one(p.leaf(syntax.KindShorthand, start+3))
	case p.hasPrefix("//"):
		return one(p.lineComment())
	case p.hasPrefix("/*"):
		return one(p.blockComment())
	case p.hasPrefix("https://") || p.hasPrefix("http://"):
		return one(p.link())
	}
	return one(p.text())
}

func (p *parser) innermost() stop {
	return p.stops[len(p.stops)-1]
}

func (p *parser) inLine() bool {
	for _, s := range p.stops {
		if s.line {
			return true
		}
	}
	return false
}

func (p *parser) text() *syntax.Node {
	end := p.pos + 1
	for end < len(p.src) {
		c := p.src[end]
		if isSpace(c) || isMarkupSpecial(c) {
			break
		}
		if c == '-' && end+1 < len(p.src) && p.src[end+1] == '-' {
			break
		}
		if c == '.' && end+2 < len(p.src) && p.src[end+1] == '.' && p.src[end+2] == '.' {
			break
		}
		if c == '/' && end+1 < len(p.src) && (p.src[end+1] == '/' || p.src[end+1] == '*') {
			break
		}
		end++
	}
	return p.leaf(syntax.KindText, end)
}

func (p *parser) escape() *syntax.Node {
	start := p.pos
	next := p.peek(1)
	if p.pos+1 >= len(p.src) || isSpace(next) {
		return p.leaf(syntax.KindLinebreak, start+1)
	}
	if next == 'u' && p.peek(2) == '{' {
		end := start + 3
		for end < len(p.src) && p.src[end] != '}' && p.src[end] != '\n' {
			end++
		}
		if end < len(p.src) && p.src[end] == '}' {
			return p.leaf(syntax.KindEscape, end+1)
		}
	}
	_, size := utf8.DecodeRune(p.src[start+1:])
	return p.leaf(syntax.KindEscape, start+1+size)
}

func (p *parser) raw() *syntax.Node {
	start := p.pos
	n := 0
	for start+n < len(p.src) && p.src[start+n] == '`' {
		n++
	}
	if n == 2 {
		return p.leaf(syntax.KindRaw, start+2)
	}
	fence := string(p.src[start : start+n])
	for i := start + n; i+n <= len(p.src); i++ {
		if string(p.src[i:i+n]) == fence {
			return p.leaf(syntax.KindRaw, i+n)
		}
	}
	return p.leaf(syntax.KindRaw, len(p.src))
}

func (p *parser) equation() *syntax.Node {
	eq := &syntax.Node{Kind: syntax.KindEquation}
	eq.Append(p.leaf(syntax.KindDollar, p.pos+1))
	end := p.pos
	for end < len(p.src) && p.src[end] != '$' {
		if p.src[end] == '\\' && end+1 < len(p.src) {
			end++
		}
		end++
	}
	if end > len(p.src) {
		end = len(p.src)
	}
	if end > p.pos {
		eq.Append(p.leaf(syntax.KindMath, end))
	}
	if !p.eof() {
		eq.Append(p.leaf(syntax.KindDollar, p.pos+1))
	}
	return eq
}

func (p *parser) ref() *syntax.Node {
	end := p.pos + 1
	for end < len(p.src) && isLabelChar(p.src[end]) {
		end++
	}
	for end > p.pos+2 && (p.src[end-1] == '.' || p.src[end-1] == ':') {
		end--
	}
	ref := &syntax.Node{Kind: syntax.KindRef}
	ref.Append(p.leaf(syntax.KindLabel, end))
	if !p.eof() && p.src[p.pos] == '[' {
		ref.Append(p.contentBlock())
	}
	return ref
}

func (p *parser) label() *syntax.Node {
	end := p.pos + 1
	for end < len(p.src) && isLabelChar(p.src[end]) {
		end++
	}
	if end == p.pos+1 || end >= len(p.src) || p.src[end] != '>' {
		return nil
	}
	return p.leaf(syntax.KindLabel, end+1)
}

func (p *parser) delimited(c byte) *syntax.Node {
	kind := syntax.KindStrong
	if c == '_' {
		kind = syntax.KindEmph
	}
	n := &syntax.Node{Kind: kind}
	n.Append(p.leaf(syntax.KindDelim, p.pos+1))
	n.Append(p.markup(stop{delim: c}))
	if !p.eof() && p.src[p.pos] == c {
		n.Append(p.leaf(syntax.KindDelim, p.pos+1))
	}
	return n
}

func (p *parser) heading() *syntax.Node {
	end := p.pos
	for end < len(p.src) && p.src[end] == '=' {
		end++
	}
	if end < len(p.src) && p.src[end] != ' ' && p.src[end] != '\t' && p.src[end] != '\n' {
		return nil
	}
	h := &syntax.Node{Kind: syntax.KindHeading}
	h.Append(p.leaf(syntax.KindHeadingMarker, end))
	p.lineBody(h)
	return h
}

func (p *parser) listItem() *syntax.Node {
	start := p.pos
	end := start
	kind := syntax.KindListItem
	switch c := p.src[start]; {
	case c == '-':
		end++
	case c == '+':
		kind, end = syntax.KindEnumItem, end+1
	case c == '/':
		kind, end = syntax.KindTermItem, end+1
	default:
		for end < len(p.src) && isDigit(p.src[end]) {
			end++
		}
		if end >= len(p.src) || p.src[end] != '.' {
			return nil
		}
		kind, end = syntax.KindEnumItem, end+1
	}
	if end < len(p.src) && p.src[end] != ' ' && p.src[end] != '\t' {
		return nil
	}
	item := &syntax.Node{Kind: kind}
	item.Append(p.leaf(syntax.KindListMarker, end))
	p.lineBody(item)
	return item
}

// lineBody appends the blank after a marker and the markup up to the newline.
func (p *parser) lineBody(n *syntax.Node) {
	end := p.pos
	for end < len(p.src) && (p.src[end] == ' ' || p.src[end] == '\t') {
		end++
	}
	if end > p.pos {
		n.Append(p.leaf(syntax.KindSpace, end))
	}
	n.Append(p.markup(stop{line: true}))
}

func (p *parser) lineComment() *syntax.Node {
	end := p.pos
	for end < len(p.src) && p.src[end] != '\n' {
		end++
	}
	return p.leaf(syntax.KindComment, end)
}

func (p *parser) blockComment() *syntax.Node {
	for end := p.pos + 2; end+1 < len(p.src); end++ {
		if p.src[end] == '*' && p.src[end+1] == '/' {
			return p.leaf(syntax.KindComment, end+2)
		}
	}
	return p.leaf(syntax.KindComment, len(p.src))
}

func (p *parser) link() *syntax.Node {
	end := p.pos
	parens := 0
	for end < len(p.src) && !isSpace(p.src[end]) && p.src[end] != '<' && p.src[end] != '>' {
		switch p.src[end] {
		case '(':
			parens++
		case ')':
			parens--
		case ']':
			if len(p.stops) > 0 && p.innermost().bracket {
				parens = -1
			}
		}
		if parens < 0 {
			break
		}
		end++
	}
	for end > p.pos && isTrailingPunct(p.src[end-1]) {
		end--
	}
	return p.leaf(syntax.KindLink, end)
}

func one(n *syntax.Node) []*syntax.Node {
	return []*syntax.Node{n}
}

func indexByte(b []byte, c byte) int {
	for i := range b {
		if b[i] == c {
			return i
		}
	}
	return len(b)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlnumByte(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= utf8.RuneSelf
}

func isLabelChar(c byte) bool {
	return isAlnumByte(c) || c == '_' || c == '-' || c == ':' || c == '.'
}

func isMarkupSpecial(c byte) bool {
	switch c {
	case '\\', '*', '_', '`', '$', '@', '<', '#', '~', '"', '\'', '[', ']':
		return true
	}
	return false
}

func isTrailingPunct(c byte) bool {
	switch c {
	case '.', ',', ';', ':', '!', '?', '\'', '"', ')':
		return true
	}
	return false
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentContinue(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r) || r == '-'
}
