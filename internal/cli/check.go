package cli

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"grammarls/internal/check"
	"grammarls/internal/config"
	"grammarls/internal/convert"
	"grammarls/internal/diagnostic"
	"grammarls/internal/dictionary"
	"grammarls/internal/document"
	"grammarls/internal/frontend"
	"grammarls/internal/languagetool"
	"grammarls/internal/scanner"
)

// input is a document to check. content is nil until the file is read.
type input struct {
	path    string
	content []byte
}

// openDocument parses a file with the frontend its name and content suggest.
func openDocument(ctx context.Context, path string) (*document.Document, error) {
	return input{path: path}.open(ctx)
}

func (in input) open(ctx context.Context) (*document.Document, error) {
	content := in.content
	if content == nil {
		var err error
		if content, err = os.ReadFile(in.path); err != nil {
			return nil, err
		}
	}
	abs, err := filepath.Abs(in.path)
	if err != nil {
		return nil, err
	}
	lang := frontend.Detect("", "file://"+filepath.ToSlash(abs), content)
	return document.New(ctx, 0, string(content), frontend.New(lang))
}

func rulesFor(cfg config.Config) (convert.Rules, error) {
	if cfg.RulesFile == "" {
		return cfg.MergeRules(nil), nil
	}
	fileRules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	return cfg.MergeRules(fileRules), nil
}

func newCheckCommand(g *globalFlags) *cobra.Command {
	var serverURL string
	var words []string

	cmd := &cobra.Command{
		Use:   "check PATH...",
		Short: "Check files, or the documents under directories, and print the diagnostics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			rules, err := rulesFor(cfg)
			if err != nil {
				return err
			}
			ltConfig := cfg.LanguageTool()
			if serverURL != "" {
				ltConfig.BaseURL = serverURL
			}
			checker := check.New(languagetool.NewClient(ltConfig),
				convert.New(rules, cfg.MaxBatchLength),
				check.WithConcurrency(cfg.Concurrency),
				check.WithAllowed(dictionary.Allowed(dictionary.NewMemoryStore(words...))),
			)

			inputs, err := expand(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			st := newStyles(colorEnabled(g.color, out))
			total := 0
			for _, in := range inputs {
				n, err := checkFile(cmd.Context(), out, st, checker, in)
				if err != nil {
					return fmt.Errorf("%s: %w", in.path, err)
				}
				total += n
			}
			if total == 0 {
				fmt.Fprintln(out, st.Success.Render("no issues found"))
				return nil
			}
			fmt.Fprintln(out, st.Failure.Render(fmt.Sprintf("%d issues found", total)))
			return ErrIssuesFound
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "LanguageTool base URL, overrides the config")
	cmd.Flags().StringSliceVar(&words, "allow", nil, "words to accept as correctly spelled")
	return cmd
}

// expand replaces every directory in args by the supported documents below
// it. Scanned documents keep the content the scanner read.
func expand(args []string) ([]input, error) {
	var inputs []input
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			inputs = append(inputs, input{path: arg})
			continue
		}
		var found []input
		err = scanner.Scan(arg,
			func(path string, _ fs.FileInfo) bool { return !frontend.Supported(path) },
			func(path string, content []byte) { found = append(found, input{path: path, content: content}) },
		)
		if err != nil {
			return nil, err
		}
		sort.Slice(found, func(i, j int) bool { return found[i].path < found[j].path })
		inputs = append(inputs, found...)
	}
	return inputs, nil
}

func checkFile(ctx context.Context, out io.Writer, st *styles, checker *check.Checker, in input) (int, error) {
	doc, err := in.open(ctx)
	if err != nil {
		return 0, err
	}
	defer doc.Close()

	res, err := checker.Run(ctx, doc.Snapshot())
	if err != nil {
		return 0, err
	}
	if res.Failed > 0 {
		return 0, fmt.Errorf("%d of %d requests to LanguageTool failed", res.Failed, res.Batches)
	}
	for _, d := range res.Diagnostics {
		printDiagnostic(out, st, doc.View, in.path, d)
	}
	return len(res.Diagnostics), nil
}

func printDiagnostic(out io.Writer, st *styles, view *document.View, path string, d diagnostic.Diagnostic) {
	start := d.LSP.Range.Start
	loc := fmt.Sprintf("%d:%d", start.Line+1, start.Character+1)
	text, _ := view.Text(d.Range)

	line := fmt.Sprintf("%s:%s %s %s %q",
		st.FilePath.Render(path), st.Location.Render(loc), st.severity(d.LSP.Severity),
		st.Message.Render(d.LSP.Message), text)
	if data, ok := d.Data.(diagnostic.LanguageToolData); ok {
		line += " " + st.RuleID.Render("["+data.Rule.ID+"]")
		if len(data.Replacements) > 0 {
			shown := data.Replacements
			if len(shown) > 3 {
				shown = shown[:3]
			}
			line += " " + st.Suggestion.Render("-> "+strings.Join(shown, ", "))
		}
	}
	fmt.Fprintln(out, line)
}
