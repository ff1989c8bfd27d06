package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/tliron/commonlog"

	"grammarls/internal/convert"
)

var log = commonlog.GetLogger("grammarls.config")

// LoadRules reads function rules, keyed by function name, from a .json,
// .yaml/.yml or .toml file.
func LoadRules(path string) (convert.Rules, error) {
	rules := convert.Rules{}
	if err := decodeFile(path, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// MergeRules layers rules loaded from the rules file over the inline rules
// of cfg. Either side may be nil.
func (cfg Config) MergeRules(fileRules convert.Rules) convert.Rules {
	rules := convert.Rules{}
	for name, rule := range cfg.Rules {
		rules[name] = rule
	}
	for name, rule := range fileRules {
		rules[name] = rule
	}
	return rules
}

// WatchRules calls onChange with the reloaded rules whenever the file at
// path is written or replaced, until ctx is done. Rules that fail to load
// are logged and skipped.
func WatchRules(ctx context.Context, path string, onChange func(convert.Rules)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors often replace files, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}
	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				rules, err := LoadRules(path)
				if err != nil {
					log.Warningf("reload %s: %s", path, err.Error())
					continue
				}
				log.Infof("reloaded %d rules from %s", len(rules), path)
				onChange(rules)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Errorf("watch %s: %s", path, err.Error())
			}
		}
	}()
	return nil
}
