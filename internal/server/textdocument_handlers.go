package server

import (
	"errors"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"grammarls/internal/diagnostic"
	"grammarls/internal/document"
	"grammarls/internal/scheduler"
)

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	item := params.TextDocument
	s.registry.Clear(item.URI, "")
	err := s.manager.Open(s.ctx, item.URI, item.LanguageID, int(item.Version), item.Text)
	if err != nil {
		// The document stays open with an opaque tree.
		log.Warningf("open %s: %s", item.URI, err.Error())
	}
	s.publish(context.Notify, item.URI)

	s.mu.RLock()
	checkOnOpen := s.config.CheckOnOpen && s.config.LTEnabled
	s.mu.RUnlock()
	if checkOnOpen {
		s.scheduleCheck(context.Notify, item.URI)
	}
	return nil
}

func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	err := s.manager.Apply(s.ctx, uri, int(params.TextDocument.Version), params.ContentChanges)
	if err != nil && (errors.Is(err, document.ErrVersionOrder) || errors.Is(err, document.ErrOutOfBounds)) {
		return err
	}
	if err != nil {
		log.Warningf("change %s: %s", uri, err.Error())
	}
	s.publish(context.Notify, uri)
	return nil
}

func (s *Server) textDocumentDidSave(
	context *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	s.mu.RLock()
	checkOnSave := s.config.CheckOnSave && s.config.LTEnabled
	s.mu.RUnlock()
	if checkOnSave {
		s.scheduleCheck(context.Notify, params.TextDocument.URI)
	}
	return nil
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	s.registry.Clear(uri, "")
	context.Notify("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return s.manager.Release(uri)
}

// publish sends the diagnostics of uri, re-anchored to its current version.
func (s *Server) publish(notify glsp.NotifyFunc, uri string) {
	err := s.manager.With(uri, func(doc *document.Document) error {
		diagnostics := s.registry.Publish(uri, doc)
		notify("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
			URI:         uri,
			Version:     protocolVersion(doc.Version()),
			Diagnostics: diagnostics,
		})
		return nil
	})
	if err != nil {
		log.Debugf("publish %s: %s", uri, err.Error())
	}
}

func protocolVersion(v int) *protocol.UInteger {
	if v < 0 {
		return nil
	}
	u := protocol.UInteger(v)
	return &u
}

func (s *Server) scheduleCheck(notify glsp.NotifyFunc, uri string) {
	queued, err := s.scheduler.ScheduleHighPriorityTask(scheduler.Task{
		Name:    "check " + uri,
		Key:     uri,
		Execute: func() error { return s.runCheck(notify, uri) },
	})
	if err != nil {
		log.Warningf("check %s: %s", uri, err.Error())
	} else if !queued {
		log.Debugf("check %s already queued", uri)
	}
}

// runCheck checks the current version of uri and publishes the result.
func (s *Server) runCheck(notify glsp.NotifyFunc, uri string) error {
	snap, err := s.manager.Snapshot(uri)
	if err != nil {
		return err
	}
	s.mu.RLock()
	checker := s.checker
	s.mu.RUnlock()

	res, err := checker.Run(s.ctx, snap)
	if err != nil {
		return err
	}
	s.registry.Replace(uri, diagnostic.SourceLanguageTool, res.Diagnostics)
	s.publish(notify, uri)
	if res.Failed > 0 {
		notify("window/showMessage", protocol.ShowMessageParams{
			Type:    protocol.MessageTypeWarning,
			Message: "grammarls: LanguageTool did not answer for part of the document",
		})
	}
	return nil
}
