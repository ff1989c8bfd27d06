package server

import (
	"fmt"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"grammarls/internal/diagnostic"
	"grammarls/internal/document"
	"grammarls/internal/languagetool"
)

func (s *Server) workspaceExecuteCommand(
	context *glsp.Context,
	params *protocol.ExecuteCommandParams,
) (any, error) {
	uri, err := stringArg(params.Arguments, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", params.Command, err)
	}
	log.Debugf("command %s %v", params.Command, params.Arguments)

	switch params.Command {
	case CommandCheck:
		s.scheduleCheck(context.Notify, uri)
	case CommandClear:
		s.registry.Clear(uri, diagnostic.SourceLanguageTool)
		s.publish(context.Notify, uri)
	case CommandAddWord:
		word, err := stringArg(params.Arguments, 1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", params.Command, err)
		}
		return nil, s.addWord(context.Notify, uri, word)
	case CommandShowChunks:
		return nil, s.toggleChunks(context.Notify, uri)
	default:
		return nil, fmt.Errorf("unknown command %q", params.Command)
	}
	return nil, nil
}

// addWord allows word and drops the diagnostics it no longer deserves.
func (s *Server) addWord(notify glsp.NotifyFunc, uri, word string) error {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if err := store.Add(word); err != nil {
		return err
	}
	log.Infof("added %q to the dictionary", word)

	dropped := s.registry.Remove(uri, diagnostic.SourceLanguageTool, func(d diagnostic.Diagnostic) bool {
		data, ok := d.Data.(diagnostic.LanguageToolData)
		if !ok || data.Rule.IssueType != languagetool.IssueMisspelling {
			return false
		}
		allowed, _ := store.Contains(data.Word)
		return allowed
	})
	log.Debugf("dropped %d diagnostics of %s", dropped, uri)
	s.publish(notify, uri)
	return nil
}

// toggleChunks shows the checkable chunks of uri, or hides them if shown.
func (s *Server) toggleChunks(notify glsp.NotifyFunc, uri string) error {
	for _, d := range s.registry.Snapshot(uri) {
		if d.Source() == diagnostic.SourceChunks {
			s.registry.Clear(uri, diagnostic.SourceChunks)
			s.publish(notify, uri)
			return nil
		}
	}
	err := s.manager.With(uri, func(doc *document.Document) error {
		s.registry.Replace(uri, diagnostic.SourceChunks, diagnostic.Chunks(doc.View, doc.Chunks(), doc.Version()))
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(notify, uri)
	return nil
}
