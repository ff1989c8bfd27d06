package typst

import (
	"unicode/utf8"

	"grammarls/internal/syntax"
)

var statements = map[string]syntax.Kind{
	"let":     syntax.KindLetBinding,
	"set":     syntax.KindSetRule,
	"show":    syntax.KindShowRule,
	"import":  syntax.KindModuleImport,
	"include": syntax.KindModuleInclude,
	"if":      syntax.KindCode,
	"for":     syntax.KindCode,
	"while":   syntax.KindCode,
	"return":  syntax.KindCode,
	"context": syntax.KindCode,
}

// embedded parses '#' followed by an expression. A lone '#' is text.
func (p *parser) embedded() []*syntax.Node {
	hash := syntax.Leaf(syntax.KindHash, p.src, p.pos, p.pos+1)
	r, _ := utf8.DecodeRune(p.src[p.pos+1:])
	switch {
	case p.pos+1 >= len(p.src):
	case isIdentStart(r):
		p.pos++
		return []*syntax.Node{hash, p.embeddedIdent()}
	case r == '{':
		p.pos++
		return []*syntax.Node{hash, p.codeBlock()}
	case r == '[':
		p.pos++
		return []*syntax.Node{hash, p.contentBlock()}
	case r == '(':
		p.pos++
		return []*syntax.Node{hash, p.parenthesized(syntax.KindCode)}
	}
	return one(p.leaf(syntax.KindText, p.pos+1))
}

func (p *parser) ident() *syntax.Node {
	end := p.pos
	for end < len(p.src) {
		r, size := utf8.DecodeRune(p.src[end:])
		if !isIdentContinue(r) {
			break
		}
		end += size
	}
	return p.leaf(syntax.KindIdent, end)
}

// dottedIdent reads a callee such as `text` or `math.frac` as one leaf.
func (p *parser) dottedIdent() *syntax.Node {
	start := p.pos
	p.ident()
	for p.peek(0) == '.' {
		r, _ := utf8.DecodeRune(p.src[p.pos+1:])
		if p.pos+1 >= len(p.src) || !isIdentStart(r) {
			break
		}
		p.pos++
		p.ident()
	}
	end := p.pos
	p.pos = start
	return p.leaf(syntax.KindIdent, end)
}

func (p *parser) embeddedIdent() *syntax.Node {
	start := p.pos
	name := p.ident()
	if kind, ok := statements[name.Text]; ok {
		stmt := &syntax.Node{Kind: kind}
		stmt.Append(name)
		for _, n := range p.code(true) {
			stmt.Append(n)
		}
		return stmt
	}
	p.pos = start
	return p.call(p.dottedIdent())
}

// call wraps callee into a FuncCall when an argument list or trailing
// content blocks follow it directly.
func (p *parser) call(callee *syntax.Node) *syntax.Node {
	if p.peek(0) != '(' && p.peek(0) != '[' {
		return callee
	}
	args := &syntax.Node{Kind: syntax.KindArgs}
	if p.peek(0) == '(' {
		for _, n := range p.parenthesized(syntax.KindArgs).Children {
			args.Append(n)
		}
	}
	for p.peek(0) == '[' {
		args.Append(p.contentBlock())
	}
	return syntax.Inner(syntax.KindFuncCall, callee, args)
}

func (p *parser) contentBlock() *syntax.Node {
	block := &syntax.Node{Kind: syntax.KindContentBlock}
	block.Append(p.leaf(syntax.KindLeftBracket, p.pos+1))
	block.Append(p.markup(stop{bracket: true}))
	if !p.eof() && p.src[p.pos] == ']' {
		block.Append(p.leaf(syntax.KindRightBracket, p.pos+1))
	}
	return block
}

func (p *parser) codeBlock() *syntax.Node {
	block := &syntax.Node{Kind: syntax.KindCodeBlock}
	block.Append(p.leaf(syntax.KindLeftBrace, p.pos+1))
	for _, n := range p.code(false) {
		block.Append(n)
	}
	if !p.eof() && p.src[p.pos] == '}' {
		block.Append(p.leaf(syntax.KindRightBrace, p.pos+1))
	}
	return block
}

func (p *parser) parenthesized(kind syntax.Kind) *syntax.Node {
	n := &syntax.Node{Kind: kind}
	n.Append(p.leaf(syntax.KindLeftParen, p.pos+1))
	for _, c := range p.code(false) {
		n.Append(c)
	}
	if !p.eof() && p.src[p.pos] == ')' {
		n.Append(p.leaf(syntax.KindRightParen, p.pos+1))
	}
	return n
}

// code tokenizes code until an unbalanced closer, or, for a statement,
// until the end of the line or a semicolon.
func (p *parser) code(statement bool) []*syntax.Node {
	var out []*syntax.Node
	for !p.eof() {
		c := p.src[p.pos]
		if c == ')' || c == ']' || c == '}' {
			return out
		}
		if statement && (c == '\n' || c == ';') {
			return out
		}
		r, _ := utf8.DecodeRune(p.src[p.pos:])
		switch {
		case isSpace(c):
			end := p.pos
			for end < len(p.src) && isSpace(p.src[end]) && !(statement && p.src[end] == '\n') {
				end++
			}
			out = append(out, p.leaf(syntax.KindSpace, end))
		case c == '"':
			out = append(out, p.str())
		case c == '[':
			out = append(out, p.contentBlock())
		case c == '{':
			out = append(out, p.codeBlock())
		case c == '(':
			out = append(out, p.parenthesized(syntax.KindCode))
		case c == '$':
			out = append(out, p.equation())
		case p.hasPrefix("//"):
			out = append(out, p.lineComment())
		case p.hasPrefix("/*"):
			out = append(out, p.blockComment())
		case isIdentStart(r):
			out = append(out, p.call(p.dottedIdent()))
		default:
			_, size := utf8.DecodeRune(p.src[p.pos:])
			out = append(out, p.leaf(syntax.KindDelim, p.pos+size))
		}
	}
	return out
}

func (p *parser) str() *syntax.Node {
	end := p.pos + 1
	for end < len(p.src) && p.src[end] != '"' {
		if p.src[end] == '\\' {
			end++
		}
		end++
	}
	if end < len(p.src) {
		end++
	}
	if end > len(p.src) {
		end = len(p.src)
	}
	return p.leaf(syntax.KindStr, end)
}
