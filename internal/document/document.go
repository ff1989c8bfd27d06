// Package document keeps the text, syntax tree and edit log of one open
// document, and re-anchors byte ranges captured at older versions.
package document

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"unicode"

	"github.com/tliron/commonlog"

	"grammarls/internal/syntax"
)

var log = commonlog.GetLogger("grammarls.document")

var (
	ErrVersionOrder = errors.New("version is not newer than the current version")
	ErrOutOfBounds  = errors.New("range out of bounds")
)

// SourceChange is one replaced byte range and the net length change.
type SourceChange struct {
	Range Range
	Delta int
}

// Change replaces Range with Text. A nil Range replaces the whole document.
type Change struct {
	Range *Range
	Text  string
}

// Document is owned by a single writer. Readers that outlive a call take a
// Snapshot.
type Document struct {
	*View
	tree    *syntax.Node
	parser  syntax.Parser
	chunks  []Range
	changes map[int][]SourceChange
	version int
	// floor is the oldest version CorrectRange can still replay from.
	floor int
}

// New parses text and computes its chunks.
func New(ctx context.Context, version int, text string, parser syntax.Parser) (*Document, error) {
	d := &Document{
		View:    NewView(text),
		parser:  parser,
		changes: map[int][]SourceChange{},
		version: version,
		floor:   math.MinInt,
	}
	if err := d.reparse(ctx); err != nil {
		return d, err
	}
	return d, nil
}

func (d *Document) Version() int {
	return d.version
}

func (d *Document) Tree() *syntax.Node {
	return d.tree
}

func (d *Document) Chunks() []Range {
	return d.chunks
}

// Apply applies changes in order and moves the document to version. The
// changes are logged under the version they transition away from. On error
// nothing is applied, except that a failed reparse leaves the new text with
// an opaque tree.
func (d *Document) Apply(ctx context.Context, version int, changes ...Change) error {
	if version <= d.version {
		return fmt.Errorf("%w: got %d, have %d", ErrVersionOrder, version, d.version)
	}

	text := d.text
	var edits []syntax.Edit
	var logged []SourceChange
	for _, c := range changes {
		r := Range{Start: 0, End: len(text)}
		if c.Range != nil {
			r = *c.Range
		}
		if r.Start < 0 || r.Start > r.End || r.End > len(text) {
			return fmt.Errorf("%w: [%d,%d) in %d bytes", ErrOutOfBounds, r.Start, r.End, len(text))
		}
		edits = append(edits, syntax.NewEdit([]byte(text), r.Start, r.End, c.Text))
		logged = append(logged, SourceChange{Range: r, Delta: len(c.Text) - r.Len()})
		text = text[:r.Start] + c.Text + text[r.End:]
	}

	if inc, ok := d.parser.(syntax.IncrementalParser); ok {
		for _, e := range edits {
			inc.Edit(e)
		}
	}
	d.changes[d.version] = append(d.changes[d.version], logged...)
	d.version = version
	d.View = NewView(text)
	return d.reparse(ctx)
}

func (d *Document) reparse(ctx context.Context) error {
	tree, err := d.parser.Parse(ctx, []byte(d.text))
	if err != nil {
		d.tree = opaque(d.text)
		d.chunks = nil
		return fmt.Errorf("parse version %d: %w", d.version, err)
	}
	d.tree = tree
	d.chunks = CleanupRanges(rawChunks(tree))
	return nil
}

// CorrectRange maps r, captured at version asOf, onto the current text. It
// reports false when a later edit overlaps r, when asOf predates the
// compacted log, or when the result falls outside the text. Logged changes
// are always in bounds of the text they were applied to; Apply rejects the
// rest.
func (d *Document) CorrectRange(asOf int, r Range) (Range, bool) {
	if asOf < d.floor {
		return Range{}, false
	}
	var replayed []SourceChange
	for _, v := range d.loggedVersions() {
		if v >= asOf {
			replayed = append(replayed, d.changes[v]...)
		}
	}

	for _, c := range replayed {
		if c.Range.Overlaps(r) {
			return Range{}, false
		}
		if r.Start < c.Range.Start {
			continue
		}
		r.Start += c.Delta
		r.End += c.Delta
	}
	if r.Start < 0 || r.End > len(d.text) {
		return Range{}, false
	}
	return r, true
}

func (d *Document) loggedVersions() []int {
	versions := make([]int, 0, len(d.changes))
	for v := range d.changes {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions
}

// Compact drops the log entries of versions older than before. Ranges
// captured before that version can no longer be corrected.
func (d *Document) Compact(before int) int {
	if before > d.floor {
		d.floor = before
	}
	dropped := 0
	for v, changes := range d.changes {
		if v < before {
			dropped += len(changes)
			delete(d.changes, v)
		}
	}
	if dropped > 0 {
		log.Debugf("compacted %d changes logged before version %d", dropped, before)
	}
	return dropped
}

// LogSize is the number of logged changes.
func (d *Document) LogSize() int {
	n := 0
	for _, changes := range d.changes {
		n += len(changes)
	}
	return n
}

// ChunkAt returns the chunk containing off, end inclusive.
func (d *Document) ChunkAt(off int) (Range, bool) {
	for _, c := range d.chunks {
		if c.Start <= off && off <= c.End {
			return c, true
		}
	}
	return Range{}, false
}

// Close releases parser resources.
func (d *Document) Close() error {
	if inc, ok := d.parser.(syntax.IncrementalParser); ok {
		return inc.Close()
	}
	return nil
}

// Snapshot is an immutable copy of a document version for a check run.
type Snapshot struct {
	*View
	Tree    *syntax.Node
	Version int
}

func (d *Document) Snapshot() Snapshot {
	return Snapshot{View: d.View, Tree: d.tree, Version: d.version}
}

// opaque wraps text that could not be parsed so nothing of it is checked.
func opaque(text string) *syntax.Node {
	root := &syntax.Node{Kind: syntax.KindMarkup, End: len(text)}
	if text != "" {
		root.Children = []*syntax.Node{syntax.Leaf(syntax.KindRaw, []byte(text), 0, len(text))}
	}
	return root
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}
