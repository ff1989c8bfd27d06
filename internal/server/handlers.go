package server

import (
	"fmt"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"grammarls/internal/diagnostic"
	"grammarls/internal/document"
	"grammarls/internal/languagetool"
)

func (s *Server) textDocumentCodeAction(
	context *glsp.Context,
	params *protocol.CodeActionParams,
) (any, error) {
	uri := params.TextDocument.URI
	quickfix := protocol.CodeActionKindQuickFix
	actions := []protocol.CodeAction{}

	err := s.manager.With(uri, func(doc *document.Document) error {
		rng, ok := doc.ByteRange(params.Range)
		if !ok {
			return fmt.Errorf("%w: %v", document.ErrOutOfBounds, params.Range)
		}
		for _, res := range s.registry.At(uri, doc, rng) {
			data, ok := res.Data.(diagnostic.LanguageToolData)
			if !ok {
				continue
			}
			lspRange, ok := doc.LSPRange(res.Current)
			if !ok {
				continue
			}
			related := []protocol.Diagnostic{res.Protocol(lspRange)}
			for _, value := range data.Replacements {
				actions = append(actions, protocol.CodeAction{
					Title:       fmt.Sprintf("Rule: %s | Replacement: %s", data.Rule.Description, value),
					Kind:        &quickfix,
					Diagnostics: related,
					Edit: &protocol.WorkspaceEdit{
						Changes: map[protocol.DocumentUri][]protocol.TextEdit{
							uri: {{Range: lspRange, NewText: value}},
						},
					},
				})
			}
			if data.Rule.IssueType == languagetool.IssueMisspelling {
				word, _ := doc.Text(res.Current)
				title := fmt.Sprintf("Add %q to dictionary", word)
				actions = append(actions, protocol.CodeAction{
					Title:       title,
					Kind:        &quickfix,
					Diagnostics: related,
					Command:     &protocol.Command{Title: title, Command: CommandAddWord, Arguments: []any{uri, word}},
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	actions = append(actions,
		protocol.CodeAction{
			Title:   "Check document",
			Command: &protocol.Command{Title: "Check document", Command: CommandCheck, Arguments: []any{uri}},
		},
		protocol.CodeAction{
			Title:   "Clear diagnostics",
			Command: &protocol.Command{Title: "Clear diagnostics", Command: CommandClear, Arguments: []any{uri}},
		},
	)
	return actions, nil
}

func (s *Server) textDocumentCompletion(
	context *glsp.Context,
	params *protocol.CompletionParams,
) (any, error) {
	s.mu.RLock()
	enabled, words := s.config.CompletionEnabled, s.words
	s.mu.RUnlock()
	if !enabled {
		return nil, nil
	}

	// The word being typed ends just before the cursor.
	pos := params.Position
	if pos.Character > 0 {
		pos.Character--
	}
	var prefix string
	err := s.manager.With(params.TextDocument.URI, func(doc *document.Document) error {
		prefix, _ = doc.WordAt(pos)
		return nil
	})
	if err != nil || prefix == "" {
		return nil, err
	}

	kind := protocol.CompletionItemKindText
	items := []protocol.CompletionItem{}
	for _, w := range words.Query(prefix) {
		items = append(items, protocol.CompletionItem{Label: w, Kind: &kind})
	}
	return items, nil
}

func (s *Server) textDocumentHover(
	context *glsp.Context,
	params *protocol.HoverParams,
) (*protocol.Hover, error) {
	var word string
	err := s.manager.With(params.TextDocument.URI, func(doc *document.Document) error {
		word, _ = doc.WordAt(params.Position)
		return nil
	})
	if err != nil || word == "" {
		return nil, err
	}

	s.mu.RLock()
	definer := s.definer
	s.mu.RUnlock()
	if definer == nil {
		return nil, nil
	}
	definition, err := definer.Define(s.ctx, word)
	if err != nil {
		log.Debugf("define %q: %s", word, err.Error())
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindPlainText, Value: definition},
	}, nil
}
