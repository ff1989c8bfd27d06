package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"grammarls/internal/annotate"
	"grammarls/internal/convert"
	"grammarls/internal/document"
)

func newChunksCommand(g *globalFlags) *cobra.Command {
	var annotation bool

	cmd := &cobra.Command{
		Use:   "chunks FILE",
		Short: "Print the prose chunks and checker batches of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			rules, err := rulesFor(cfg)
			if err != nil {
				return err
			}
			doc, err := openDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer doc.Close()

			out := cmd.OutOrStdout()
			st := newStyles(colorEnabled(g.color, out))
			printChunks(out, st, doc)
			batches := convert.New(rules, cfg.MaxBatchLength).Convert(doc.Tree())
			return printBatches(out, st, batches, annotation)
		},
	}

	cmd.Flags().BoolVar(&annotation, "annotation", false, "print the annotation JSON sent to LanguageTool")
	return cmd
}

func printChunks(out io.Writer, st *styles, doc *document.Document) {
	fmt.Fprintln(out, st.FilePath.Render(fmt.Sprintf("chunks (%d)", len(doc.Chunks()))))
	for _, c := range doc.Chunks() {
		r, ok := doc.LSPRange(c)
		if !ok {
			continue
		}
		text, _ := doc.Text(c)
		fmt.Fprintf(out, "  %s %q\n",
			st.Location.Render(fmt.Sprintf("%d:%d-%d:%d", r.Start.Line+1, r.Start.Character+1, r.End.Line+1, r.End.Character+1)),
			text)
	}
}

func printBatches(out io.Writer, st *styles, batches []annotate.Batch, annotation bool) error {
	fmt.Fprintln(out, st.FilePath.Render(fmt.Sprintf("batches (%d)", len(batches))))
	for i, b := range batches {
		fmt.Fprintf(out, "  %s\n", st.Dim.Render(fmt.Sprintf("#%d length %d", i, b.Length)))
		if annotation {
			data, err := b.Data()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  %s\n", data)
			continue
		}
		for _, it := range b.Items {
			switch it.Kind {
			case annotate.Text:
				fmt.Fprintf(out, "    %q\n", it.Text)
			case annotate.Markup:
				fmt.Fprintf(out, "    %s\n", st.Markup.Render(fmt.Sprintf("markup %q", it.Text)))
			default:
				fmt.Fprintf(out, "    %s\n", st.Markup.Render(fmt.Sprintf("markup %q as %q", it.Text, it.Substitute)))
			}
		}
	}
	return nil
}
