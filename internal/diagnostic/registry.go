package diagnostic

import (
	"sort"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"grammarls/internal/document"
)

// Corrector re-anchors ranges captured at older versions. *document.Document
// implements it.
type Corrector interface {
	CorrectRange(asOf int, r document.Range) (document.Range, bool)
	LSPRange(r document.Range) (protocol.Range, bool)
}

// Resolved is a diagnostic re-expressed against the current version.
type Resolved struct {
	Diagnostic
	Current document.Range
}

// Protocol returns the LSP diagnostic with its range moved to Current.
func (r Resolved) Protocol(lspRange protocol.Range) protocol.Diagnostic {
	d := r.LSP
	d.Range = lspRange
	return d
}

// Registry stores the diagnostics of every document by source. Writers
// replace a whole source at once so readers never see a partial check run.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]map[Source][]Diagnostic
}

func NewRegistry() *Registry {
	return &Registry{entries: map[string]map[Source][]Diagnostic{}}
}

// Replace drops every diagnostic of source for uri and stores diags.
func (r *Registry) Replace(uri string, source Source, diags []Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bySource, ok := r.entries[uri]
	if !ok {
		bySource = map[Source][]Diagnostic{}
		r.entries[uri] = bySource
	}
	bySource[source] = append([]Diagnostic(nil), diags...)
}

// Clear drops the diagnostics of source for uri, or of every source when
// source is empty.
func (r *Registry) Clear(uri string, source Source) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if source == "" {
		delete(r.entries, uri)
		return
	}
	delete(r.entries[uri], source)
}

// Remove drops the diagnostics of source for uri matching drop and reports
// how many were dropped.
func (r *Registry) Remove(uri string, source Source, drop func(Diagnostic) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	bySource := r.entries[uri]
	kept := make([]Diagnostic, 0, len(bySource[source]))
	for _, d := range bySource[source] {
		if !drop(d) {
			kept = append(kept, d)
		}
	}
	n := len(bySource[source]) - len(kept)
	if n > 0 {
		bySource[source] = kept
	}
	return n
}

// Snapshot returns a copy of the stored diagnostics for uri, unresolved.
func (r *Registry) Snapshot(uri string) []Diagnostic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Diagnostic
	for _, source := range sortedSources(r.entries[uri]) {
		out = append(out, r.entries[uri][source]...)
	}
	return out
}

// Resolve re-anchors every diagnostic of uri to the current version of doc.
// Diagnostics whose text was edited since are dropped for good.
func (r *Registry) Resolve(uri string, doc Corrector) []Resolved {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Resolved
	bySource := r.entries[uri]
	for _, source := range sortedSources(bySource) {
		kept := bySource[source][:0]
		for _, d := range bySource[source] {
			current, ok := doc.CorrectRange(d.Version, d.Range)
			if !ok {
				continue
			}
			kept = append(kept, d)
			out = append(out, Resolved{Diagnostic: d, Current: current})
		}
		bySource[source] = kept
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Current.Start < out[j].Current.Start })
	return out
}

// Publish resolves the diagnostics of uri into protocol diagnostics. The
// result is never nil so it can clear an editor's list.
func (r *Registry) Publish(uri string, doc Corrector) []protocol.Diagnostic {
	out := []protocol.Diagnostic{}
	for _, res := range r.Resolve(uri, doc) {
		lspRange, ok := doc.LSPRange(res.Current)
		if !ok {
			continue
		}
		out = append(out, res.Protocol(lspRange))
	}
	return out
}

// At returns the resolved diagnostics of uri that overlap or touch rng.
func (r *Registry) At(uri string, doc Corrector, rng document.Range) []Resolved {
	var out []Resolved
	for _, res := range r.Resolve(uri, doc) {
		if res.Current.Start <= rng.End && rng.Start <= res.Current.End {
			out = append(out, res)
		}
	}
	return out
}

// MinVersion is the oldest version a stored diagnostic of uri is anchored to.
func (r *Registry) MinVersion(uri string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	min, found := 0, false
	for _, diags := range r.entries[uri] {
		for _, d := range diags {
			if !found || d.Version < min {
				min, found = d.Version, true
			}
		}
	}
	return min, found
}

func sortedSources(m map[Source][]Diagnostic) []Source {
	sources := make([]Source, 0, len(m))
	for s := range m {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	return sources
}
