// Package annotate builds the annotated text LanguageTool checks: runs of
// prose, markup it skips, and markup it reads as a substitute.
package annotate

import (
	"encoding/json"

	"grammarls/internal/replay"
)

type Kind int

const (
	Text Kind = iota
	Markup
	Interpreted
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Markup:
		return "markup"
	case Interpreted:
		return "interpreted"
	}
	return "unknown"
}

// Item is one annotation. Text holds the source text; Substitute is what the
// checker reads in place of an Interpreted item.
type Item struct {
	Kind       Kind
	Text       string
	Substitute string
}

func (i Item) MarshalJSON() ([]byte, error) {
	switch i.Kind {
	case Text:
		return json.Marshal(struct {
			Text string `json:"text"`
		}{i.Text})
	case Markup:
		return json.Marshal(struct {
			Markup string `json:"markup"`
		}{i.Text})
	default:
		return json.Marshal(struct {
			Markup      string `json:"markup"`
			InterpretAs string `json:"interpretAs"`
		}{i.Text, i.Substitute})
	}
}

// Batch is one unit submitted to the checker. Length is the source length of
// its items in UTF-16 code units.
type Batch struct {
	Items  []Item
	Length int
}

// Data encodes the batch as LanguageTool's data parameter.
func (b Batch) Data() (string, error) {
	items := b.Items
	if items == nil {
		items = []Item{}
	}
	out, err := json.Marshal(struct {
		Annotation []Item `json:"annotation"`
	}{items})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Source concatenates the source text of the batch.
func (b Batch) Source() string {
	n := 0
	for _, it := range b.Items {
		n += len(it.Text)
	}
	buf := make([]byte, 0, n)
	for _, it := range b.Items {
		buf = append(buf, it.Text...)
	}
	return string(buf)
}

// Builder accumulates spans, coalescing adjacent spans of the same kind.
type Builder struct {
	batches []Batch
	open    Item
	hasOpen bool
}

func NewBuilder() *Builder {
	return &Builder{batches: []Batch{{}}}
}

func (b *Builder) AddText(s string) {
	b.add(Item{Kind: Text, Text: s})
}

func (b *Builder) AddMarkup(s string) {
	b.add(Item{Kind: Markup, Text: s})
}

func (b *Builder) AddInterpreted(original, substitute string) {
	b.add(Item{Kind: Interpreted, Text: original, Substitute: substitute})
}

func (b *Builder) add(it Item) {
	if it.Text == "" && it.Substitute == "" {
		return
	}
	if b.hasOpen && b.open.Kind == it.Kind {
		b.open.Text += it.Text
		b.open.Substitute += it.Substitute
		return
	}
	b.flush()
	b.open, b.hasOpen = it, true
}

func (b *Builder) flush() {
	if !b.hasOpen {
		return
	}
	last := &b.batches[len(b.batches)-1]
	last.Items = append(last.Items, b.open)
	last.Length += replay.Len(b.open.Text)
	b.open, b.hasOpen = Item{}, false
}

// Len is the source length of the current batch including the open span.
func (b *Builder) Len() int {
	n := b.batches[len(b.batches)-1].Length
	if b.hasOpen {
		n += replay.Len(b.open.Text)
	}
	return n
}

// Empty reports whether the current batch holds nothing yet.
func (b *Builder) Empty() bool {
	return !b.hasOpen && len(b.batches[len(b.batches)-1].Items) == 0
}

// Split closes the current batch and starts a new one. Splitting an empty
// batch is a no-op.
func (b *Builder) Split() {
	if b.Empty() {
		return
	}
	b.flush()
	b.batches = append(b.batches, Batch{})
}

// Batches flushes the open span and returns all non-empty batches.
func (b *Builder) Batches() []Batch {
	b.flush()
	out := make([]Batch, 0, len(b.batches))
	for _, batch := range b.batches {
		if len(batch.Items) > 0 {
			out = append(out, batch)
		}
	}
	return out
}
