// Package scanner walks directories for documents to check.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("grammarls.scanner")

// Scan walks the entire subtree under root. Any file or directory
// whose name begins with "." is skipped entirely. For each remaining
// file, we apply the skip predicate, and if that returns false
// we read the file and invoke callback(path, contents).
// Scan will only return once all callbacks have completed.
func Scan(
	root string,
	skip func(path string, info fs.FileInfo) bool,
	callback func(path string, document []byte),
) error {
	fileCh := make(chan string, 100)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for path := range fileCh {
			data, err := os.ReadFile(path)
			if err != nil {
				log.Warningf("read %s: %s", path, err.Error())
				continue
			}
			callback(path, data)
		}
	}()

	log.Debugf("walking %q", root)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Warningf("walk %s: %s", path, err.Error())
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if skip(path, info) {
			return nil
		}
		fileCh <- path
		return nil
	})

	close(fileCh)
	wg.Wait()
	return err
}
