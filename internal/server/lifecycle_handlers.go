package server

import (
	"errors"
	"path/filepath"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"grammarls/internal/check"
	"grammarls/internal/config"
	"grammarls/internal/convert"
	"grammarls/internal/dictionary"
	"grammarls/internal/document"
	"grammarls/internal/languagetool"
	"grammarls/internal/scheduler"
)

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	cfg, err := config.Load(params.InitializationOptions)
	if err != nil {
		return nil, err
	}
	if s.opts.ConfigFile != "" {
		if cfg, err = cfg.Merge(s.opts.ConfigFile); err != nil {
			return nil, err
		}
	}
	log.Infof("config: %+v", cfg)
	if err := s.configure(cfg); err != nil {
		return nil, err
	}

	s.scheduler.RunScheduler()
	s.scheduler.SchedulePeriodicTask(cfg.CompactEvery(), scheduler.Task{
		Name:    "compact edit logs",
		Key:     "compact",
		Execute: s.compact,
	})

	syncKind := protocol.TextDocumentSyncKindIncremental

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.False},
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{Commands: commands}
	capabilities.CodeActionProvider = true
	capabilities.HoverProvider = true
	capabilities.CompletionProvider = &protocol.CompletionOptions{}

	version := s.opts.Version
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &version,
		},
	}, nil
}

// configure builds the checker and the dictionaries from cfg.
func (s *Server) configure(cfg config.Config) error {
	var fileRules convert.Rules
	if cfg.RulesFile != "" {
		var err error
		if fileRules, err = config.LoadRules(cfg.RulesFile); err != nil {
			return err
		}
		if err := config.WatchRules(s.ctx, cfg.RulesFile, s.setRules); err != nil {
			log.Warningf("cannot watch %s: %s", cfg.RulesFile, err.Error())
		}
	}

	var store dictionary.Store
	dbPath := cfg.DictionaryDB
	if dbPath == "" {
		if dir, err := getXDGStateHome(Name); err == nil {
			dbPath = filepath.Join(dir, "dictionary.db")
		}
	}
	if dbPath != "" {
		db, err := dictionary.OpenSQLite(dbPath)
		if err != nil {
			log.Warningf("dictionary %s unavailable, words are kept in memory: %s", dbPath, err.Error())
		} else {
			store = db
		}
	}
	if store == nil {
		store = dictionary.NewMemoryStore()
	}

	words := dictionary.NewWordList(nil)
	if cfg.WordList != "" {
		loaded, err := dictionary.LoadWordList(cfg.WordList)
		if err != nil {
			log.Warningf("word list %s: %s", cfg.WordList, err.Error())
		} else {
			words = loaded
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.store
	s.config = cfg
	s.rules = cfg.MergeRules(fileRules)
	s.store = store
	s.words = words
	s.definer = dictionary.NewDefiner(cfg.SdcvDataDir)
	s.checker = s.newChecker()
	if old != nil {
		return old.Close()
	}
	return nil
}

// newChecker must be called with s.mu held.
func (s *Server) newChecker() *check.Checker {
	var client check.Client = languagetool.NewClient(s.config.LanguageTool())
	if s.opts.Client != nil {
		client = s.opts.Client
	}
	return check.New(client,
		convert.New(s.rules, s.config.MaxBatchLength),
		check.WithAllowed(dictionary.Allowed(s.store)),
		check.WithConcurrency(s.config.Concurrency),
	)
}

// setRules installs reloaded rules file contents over the inline rules.
func (s *Server) setRules(fileRules convert.Rules) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = s.config.MergeRules(fileRules)
	s.checker = s.newChecker()
}

// compact trims the edit log of every document up to the oldest version a
// stored diagnostic is anchored to.
func (s *Server) compact() error {
	dropped := 0
	s.manager.Each(func(uri string, doc *document.Document) {
		before, ok := s.registry.MinVersion(uri)
		if !ok {
			before = doc.Version()
		}
		dropped += doc.Compact(before)
	})
	if dropped > 0 {
		log.Debugf("compacted %d logged changes", dropped)
	}
	return nil
}

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Infof("client initialized")
	return nil
}

func (s *Server) setTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	s.cancel()
	s.scheduler.StopScheduler()

	s.mu.Lock()
	store := s.store
	s.mu.Unlock()
	return errors.Join(s.manager.CloseAll(), store.Close())
}
