// Package replay walks document text to turn flat checker offsets back into
// document coordinates.
package replay

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	ErrEndOfText      = errors.New("advance past end of text")
	ErrSurrogateSplit = errors.New("advance splits a surrogate pair")
)

// Position is a point in the text. Column counts UTF-16 code units, Offset
// counts bytes.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Cursor is a stateful position over a borrowed text. Copying a Cursor by
// value (or Clone) yields an independent cursor.
type Cursor struct {
	text string
	pos  Position
}

// New starts a cursor at the beginning of text.
func New(text string) *Cursor {
	return &Cursor{text: text}
}

// NewAt starts a cursor at a known position of text.
func NewAt(text string, pos Position) *Cursor {
	return &Cursor{text: text, pos: pos}
}

func (c *Cursor) Position() Position {
	return c.pos
}

func (c *Cursor) Clone() *Cursor {
	clone := *c
	return &clone
}

// Advance consumes exactly n UTF-16 code units. On error the cursor is left
// unchanged.
func (c *Cursor) Advance(n int) error {
	if n < 0 {
		return fmt.Errorf("advance by %d: negative count", n)
	}
	pos := c.pos
	for n > 0 {
		if pos.Offset >= len(c.text) {
			return fmt.Errorf("%w: %d units left at line %d", ErrEndOfText, n, pos.Line)
		}
		r, size := utf8.DecodeRuneInString(c.text[pos.Offset:])
		units := Units(r)
		if units > n {
			return fmt.Errorf("%w at line %d column %d", ErrSurrogateSplit, pos.Line, pos.Column)
		}
		pos.Offset += size
		n -= units
		if r == '\n' {
			pos.Line++
			pos.Column = 0
		} else {
			pos.Column += units
		}
	}
	c.pos = pos
	return nil
}

// Units is the number of UTF-16 code units that encode r.
func Units(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

// Len is the length of s in UTF-16 code units.
func Len(s string) int {
	n := 0
	for _, r := range s {
		n += Units(r)
	}
	return n
}
