package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"grammarls/internal/document"
	"grammarls/internal/frontend"
)

var ErrNotFound = errors.New("document not found")

// DocumentManager encapsulates the versioned document for each open URI.
type DocumentManager struct {
	mu   sync.Mutex
	docs map[string]*document.Document
}

// NewDocumentManager creates an initialized DocumentManager.
func NewDocumentManager() *DocumentManager {
	return &DocumentManager{
		docs: make(map[string]*document.Document),
	}
}

// Open parses text with the frontend for languageID and replaces any
// document already open under uri.
func (dm *DocumentManager) Open(ctx context.Context, uri, languageID string, version int, text string) error {
	parser := frontend.New(frontend.Detect(languageID, uri, []byte(text)))
	doc, err := document.New(ctx, version, text, parser)

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if old, ok := dm.docs[uri]; ok {
		_ = old.Close()
	}
	dm.docs[uri] = doc
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", uri, err)
	}
	return nil
}

// Apply converts LSP content changes to byte changes and applies them as
// one transition to version.
func (dm *DocumentManager) Apply(ctx context.Context, uri string, version int, events []any) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	doc, ok := dm.docs[uri]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, uri)
	}
	changes, err := ByteChanges(doc.View, events)
	if err != nil {
		return fmt.Errorf("%s: %w", uri, err)
	}
	return doc.Apply(ctx, version, changes...)
}

// ByteChanges converts content change events, each relative to the text the
// previous one produced, into byte changes.
func ByteChanges(view *document.View, events []any) ([]document.Change, error) {
	changes := make([]document.Change, 0, len(events))
	for _, raw := range events {
		var change document.Change
		switch ev := raw.(type) {
		case protocol.TextDocumentContentChangeEvent:
			change.Text = ev.Text
			if ev.Range != nil {
				r, ok := view.ByteRange(*ev.Range)
				if !ok {
					return nil, fmt.Errorf("%w: change range %v", document.ErrOutOfBounds, *ev.Range)
				}
				change.Range = &r
			}
		case protocol.TextDocumentContentChangeEventWhole:
			change.Text = ev.Text
		default:
			return nil, fmt.Errorf("unexpected change event type %T", raw)
		}
		changes = append(changes, change)

		next := change.Text
		if change.Range != nil {
			s := view.String()
			next = s[:change.Range.Start] + change.Text + s[change.Range.End:]
		}
		view = document.NewView(next)
	}
	return changes, nil
}

// With runs fn on the document for uri while holding the manager lock.
func (dm *DocumentManager) With(uri string, fn func(*document.Document) error) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	doc, ok := dm.docs[uri]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, uri)
	}
	return fn(doc)
}

// Snapshot returns an immutable copy of the current version of uri.
func (dm *DocumentManager) Snapshot(uri string) (document.Snapshot, error) {
	var snap document.Snapshot
	err := dm.With(uri, func(d *document.Document) error {
		snap = d.Snapshot()
		return nil
	})
	return snap, err
}

// Each runs fn for every open document in URI order.
func (dm *DocumentManager) Each(fn func(uri string, doc *document.Document)) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	uris := make([]string, 0, len(dm.docs))
	for uri := range dm.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	for _, uri := range uris {
		fn(uri, dm.docs[uri])
	}
}

// Release frees the document for a URI.
func (dm *DocumentManager) Release(uri string) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	doc, ok := dm.docs[uri]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, uri)
	}
	delete(dm.docs, uri)
	return doc.Close()
}

// CloseAll cleans up all documents.
func (dm *DocumentManager) CloseAll() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	var errs []error
	for uri, doc := range dm.docs {
		if err := doc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", uri, err))
		}
	}
	dm.docs = make(map[string]*document.Document)
	return errors.Join(errs...)
}
