package server

import (
	"context"
	"sync"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"grammarls/internal/check"
	"grammarls/internal/config"
	"grammarls/internal/convert"
	"grammarls/internal/diagnostic"
	"grammarls/internal/dictionary"
	"grammarls/internal/manager"
	"grammarls/internal/scheduler"
)

const Name = "grammarls"

var log = commonlog.GetLogger("grammarls.server")

// Commands understood by workspace/executeCommand.
const (
	CommandCheck      = "grammarls.check"
	CommandClear      = "grammarls.clear"
	CommandAddWord    = "grammarls.addWord"
	CommandShowChunks = "grammarls.showChunks"
)

var commands = []string{CommandCheck, CommandClear, CommandAddWord, CommandShowChunks}

type Options struct {
	// ConfigFile is merged over the client's initialization options.
	ConfigFile string
	Version    string
	// Client replaces the LanguageTool client, for tests.
	Client check.Client
}

type Server struct {
	handler   *protocol.Handler
	opts      Options
	ctx       context.Context
	cancel    context.CancelFunc
	manager   *manager.DocumentManager
	registry  *diagnostic.Registry
	scheduler *scheduler.Scheduler

	mu      sync.RWMutex
	config  config.Config
	rules   convert.Rules
	checker *check.Checker
	store   dictionary.Store
	words   *dictionary.WordList
	definer *dictionary.Definer
}

func New(opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	ls := &Server{
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		manager:   manager.NewDocumentManager(),
		registry:  diagnostic.NewRegistry(),
		scheduler: scheduler.NewScheduler(64),
		config:    config.Default(),
		store:     dictionary.NewMemoryStore(),
		words:     dictionary.NewWordList(nil),
	}
	ls.handler = &protocol.Handler{
		Initialize:              ls.initialize,
		Initialized:             ls.initialized,
		Shutdown:                ls.shutdown,
		SetTrace:                ls.setTrace,
		TextDocumentDidOpen:     ls.textDocumentDidOpen,
		TextDocumentDidChange:   ls.textDocumentDidChange,
		TextDocumentDidSave:     ls.textDocumentDidSave,
		TextDocumentDidClose:    ls.textDocumentDidClose,
		TextDocumentCodeAction:  ls.textDocumentCodeAction,
		TextDocumentCompletion:  ls.textDocumentCompletion,
		TextDocumentHover:       ls.textDocumentHover,
		WorkspaceExecuteCommand: ls.workspaceExecuteCommand,
	}
	ls.checker = ls.newChecker()
	return ls
}

func NewServer(opts Options) (*server.Server, error) {
	ls := New(opts)
	return server.NewServer(ls.handler, Name, false), nil
}

func (s *Server) Handler() *protocol.Handler {
	return s.handler
}
