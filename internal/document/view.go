package document

import (
	"sort"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"grammarls/internal/replay"
)

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r Range) Len() int {
	return r.End - r.Start
}

// Overlaps reports whether r and o share at least one byte.
func (r Range) Overlaps(o Range) bool {
	return o.Start < r.End && r.Start < o.End
}

// View is an immutable text with a line index. Columns are UTF-16 code units.
type View struct {
	text  string
	lines []int
}

func NewView(text string) *View {
	lines := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &View{text: text, lines: lines}
}

func (v *View) String() string {
	return v.text
}

func (v *View) Len() int {
	return len(v.text)
}

func (v *View) LineCount() int {
	return len(v.lines)
}

// Text returns the text in r, or false when r is out of bounds.
func (v *View) Text(r Range) (string, bool) {
	if r.Start < 0 || r.Start > r.End || r.End > len(v.text) {
		return "", false
	}
	return v.text[r.Start:r.End], true
}

// ByteToLineColumn converts a byte offset. Offsets past the end or inside a
// multi-byte character are out of bounds.
func (v *View) ByteToLineColumn(off int) (line, column int, ok bool) {
	if off < 0 || off > len(v.text) {
		return 0, 0, false
	}
	if off < len(v.text) && !utf8.RuneStart(v.text[off]) {
		return 0, 0, false
	}
	line = sort.Search(len(v.lines), func(i int) bool { return v.lines[i] > off }) - 1
	return line, replay.Len(v.text[v.lines[line]:off]), true
}

// LineColumnToByte converts a line and UTF-16 column. The column may point at
// the end of the line but not beyond it.
func (v *View) LineColumnToByte(line, column int) (int, bool) {
	if line < 0 || line >= len(v.lines) || column < 0 {
		return 0, false
	}
	off := v.lines[line]
	end := len(v.text)
	if line+1 < len(v.lines) {
		end = v.lines[line+1] - 1
	}
	units := 0
	for off < end && units < column {
		r, size := utf8.DecodeRuneInString(v.text[off:])
		units += replay.Units(r)
		off += size
	}
	if units != column {
		return 0, false
	}
	return off, true
}

func (v *View) LSPPosition(off int) (protocol.Position, bool) {
	line, col, ok := v.ByteToLineColumn(off)
	if !ok {
		return protocol.Position{}, false
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}, true
}

func (v *View) LSPRange(r Range) (protocol.Range, bool) {
	start, ok := v.LSPPosition(r.Start)
	if !ok {
		return protocol.Range{}, false
	}
	end, ok := v.LSPPosition(r.End)
	if !ok {
		return protocol.Range{}, false
	}
	return protocol.Range{Start: start, End: end}, true
}

func (v *View) ByteOffset(p protocol.Position) (int, bool) {
	return v.LineColumnToByte(int(p.Line), int(p.Character))
}

func (v *View) ByteRange(r protocol.Range) (Range, bool) {
	start, ok := v.ByteOffset(r.Start)
	if !ok {
		return Range{}, false
	}
	end, ok := v.ByteOffset(r.End)
	if !ok || end < start {
		return Range{}, false
	}
	return Range{Start: start, End: end}, true
}

// WordAt returns the run of letters around p. The character at p must be a letter.
func (v *View) WordAt(p protocol.Position) (string, bool) {
	off, ok := v.ByteOffset(p)
	if !ok || off >= len(v.text) {
		return "", false
	}
	r, _ := utf8.DecodeRuneInString(v.text[off:])
	if !isLetter(r) {
		return "", false
	}
	start := off
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(v.text[:start])
		if !isLetter(r) {
			break
		}
		start -= size
	}
	end := off
	for end < len(v.text) {
		r, size := utf8.DecodeRuneInString(v.text[end:])
		if !isLetter(r) {
			break
		}
		end += size
	}
	return v.text[start:end], true
}
