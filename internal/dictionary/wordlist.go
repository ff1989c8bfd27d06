package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// MaxCompletions bounds the result of WordList.Query.
const MaxCompletions = 10

// WordList is a sorted, deduplicated list of lowercase words.
type WordList struct {
	words []string
}

func NewWordList(words []string) *WordList {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = normalize(w)
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.Strings(out)
	return &WordList{words: out}
}

// ReadWordList reads one word per line.
func ReadWordList(r io.Reader) (*WordList, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read word list: %w", err)
	}
	return NewWordList(words), nil
}

func LoadWordList(path string) (*WordList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadWordList(f)
}

func (l *WordList) Len() int {
	return len(l.words)
}

// Query returns up to MaxCompletions words starting with prefix, in order.
func (l *WordList) Query(prefix string) []string {
	prefix = normalize(prefix)
	if prefix == "" || l == nil {
		return nil
	}
	i := sort.SearchStrings(l.words, prefix)
	var out []string
	for ; i < len(l.words) && len(out) < MaxCompletions; i++ {
		if !strings.HasPrefix(l.words[i], prefix) {
			break
		}
		out = append(out, l.words[i])
	}
	return out
}
