// Package diagnostic projects checker matches onto documents and keeps the
// diagnostics of every open document.
package diagnostic

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"grammarls/internal/annotate"
	"grammarls/internal/document"
	"grammarls/internal/languagetool"
	"grammarls/internal/replay"
)

// Source identifies what produced a diagnostic.
type Source string

const (
	SourceLanguageTool Source = "languagetool"
	SourceChunks       Source = "chunks"
)

var log = commonlog.GetLogger("grammarls.diagnostic")

var ErrMalformed = errors.New("malformed checker response")

// SourceData is the source specific payload of a diagnostic.
type SourceData interface {
	Source() Source
}

type LanguageToolData struct {
	// Word is the flagged text as the checker saw it.
	Word         string
	Replacements []string
	Rule         languagetool.Rule
}

func (LanguageToolData) Source() Source { return SourceLanguageTool }

// ChunkData marks a checkable chunk, for debugging the chunker.
type ChunkData struct {
	Content string
}

func (ChunkData) Source() Source { return SourceChunks }

// Diagnostic is anchored to the byte range it had at Version.
type Diagnostic struct {
	Range   document.Range
	Version int
	LSP     protocol.Diagnostic
	Data    SourceData
}

func (d Diagnostic) Source() Source {
	if d.Data == nil {
		return ""
	}
	return d.Data.Source()
}

// Project turns the matches of one batch into diagnostics. The cursor must
// sit at the start of the batch; it is left at the end of the batch even when
// a match is rejected. Offsets must be non-decreasing and inside the batch.
func Project(cursor *replay.Cursor, batch annotate.Batch, matches []languagetool.Match, version int) (_ []Diagnostic, err error) {
	batchStart := cursor.Clone()
	defer func() {
		*cursor = *batchStart
		if advErr := cursor.Advance(batch.Length); advErr != nil {
			log.Errorf("batch of %d units does not fit the text at %+v: %s", batch.Length, batchStart.Position(), advErr.Error())
			err = errors.Join(err, fmt.Errorf("%w: batch end: %w", ErrMalformed, advErr))
		}
	}()

	var out []Diagnostic
	start := batchStart.Clone()
	last := 0
	for i, m := range matches {
		if m.Offset < last || m.Length < 0 || m.Offset+m.Length > batch.Length {
			return out, fmt.Errorf("%w: match %d at [%d,+%d) after offset %d in batch of %d",
				ErrMalformed, i, m.Offset, m.Length, last, batch.Length)
		}
		if err := start.Advance(m.Offset - last); err != nil {
			return out, fmt.Errorf("%w: match %d: %w", ErrMalformed, i, err)
		}
		end := start.Clone()
		if err := end.Advance(m.Length); err != nil {
			return out, fmt.Errorf("%w: match %d: %w", ErrMalformed, i, err)
		}
		out = append(out, fromMatch(m, start.Position(), end.Position(), version))
		last = m.Offset
	}
	return out, nil
}

func fromMatch(m languagetool.Match, start, end replay.Position, version int) Diagnostic {
	severity := severityFor(m.Rule.IssueType)
	code := protocol.IntegerOrString{Value: m.Rule.ID}
	source := string(SourceLanguageTool)
	replacements := make([]string, 0, len(m.Replacements))
	for _, r := range m.Replacements {
		replacements = append(replacements, r.Value)
	}
	return Diagnostic{
		Range:   document.Range{Start: start.Offset, End: end.Offset},
		Version: version,
		LSP: protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: protocol.UInteger(start.Line), Character: protocol.UInteger(start.Column)},
				End:   protocol.Position{Line: protocol.UInteger(end.Line), Character: protocol.UInteger(end.Column)},
			},
			Severity: &severity,
			Code:     &code,
			Source:   &source,
			Message:  m.Message,
		},
		Data: LanguageToolData{Word: m.Word(), Replacements: replacements, Rule: m.Rule},
	}
}

func severityFor(issueType string) protocol.DiagnosticSeverity {
	switch issueType {
	case languagetool.IssueMisspelling, "grammar":
		return protocol.DiagnosticSeverityWarning
	case "style", "typographical", "whitespace", "register":
		return protocol.DiagnosticSeverityHint
	}
	return protocol.DiagnosticSeverityInformation
}

// Filter drops misspelling matches whose word is allowed. Other matches pass.
func Filter(matches []languagetool.Match, allowed func(word string) bool) []languagetool.Match {
	if allowed == nil {
		return matches
	}
	out := make([]languagetool.Match, 0, len(matches))
	for _, m := range matches {
		if m.Rule.IssueType == languagetool.IssueMisspelling && allowed(m.Word()) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Chunks marks every chunk of a document, with its content as the message.
func Chunks(view *document.View, chunks []document.Range, version int) []Diagnostic {
	severity := protocol.DiagnosticSeverityHint
	source := string(SourceChunks)
	var out []Diagnostic
	for _, c := range chunks {
		text, ok := view.Text(c)
		if !ok {
			continue
		}
		r, ok := view.LSPRange(c)
		if !ok {
			continue
		}
		out = append(out, Diagnostic{
			Range:   c,
			Version: version,
			LSP: protocol.Diagnostic{
				Range:    r,
				Severity: &severity,
				Source:   &source,
				Message: fmt.Sprintf("startLine: %d, startChar: %d | endLine: %d, endChar: %d | content: %q",
					r.Start.Line, r.Start.Character, r.End.Line, r.End.Character, text),
			},
			Data: ChunkData{Content: text},
		})
	}
	return out
}
