package dictionary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrNoDefinition = errors.New("no definition found")

// Definer looks words up with the sdcv command line dictionary.
type Definer struct {
	Command string
	DataDir string
}

func NewDefiner(dataDir string) *Definer {
	return &Definer{Command: "sdcv", DataDir: dataDir}
}

func (d *Definer) args(word string) []string {
	args := []string{"-n", "-e"}
	if d.DataDir != "" {
		args = append(args, "-2", d.DataDir)
	}
	return append(args, "--", word)
}

// Define returns the plain text definition of word.
func (d *Definer) Define(ctx context.Context, word string) (string, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return "", ErrEmptyWord
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.Command, d.args(word)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %q: %w: %s", d.Command, word, err, strings.TrimSpace(stderr.String()))
	}
	out := strings.TrimSpace(stdout.String())
	if out == "" || strings.HasPrefix(out, "Nothing similar to") {
		return "", fmt.Errorf("%w: %s", ErrNoDefinition, word)
	}
	return out, nil
}
