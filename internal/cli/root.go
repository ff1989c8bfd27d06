// Package cli provides the cobra commands of grammarls.
package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"grammarls/internal/config"
)

// ErrIssuesFound signals that a check reported diagnostics.
var ErrIssuesFound = errors.New("issues found")

// BuildInfo holds build-time version information.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type globalFlags struct {
	configPath string
	color      string
}

// load reads the config file if one was given.
func (g *globalFlags) load() (config.Config, error) {
	if g.configPath == "" {
		return config.Default(), nil
	}
	return config.LoadFile(g.configPath)
}

func NewRootCommand(info BuildInfo) *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "grammarls",
		Short: "A grammar checking language server for Typst and Markdown",
		Long: `grammarls checks the prose of Typst, Markdown and HTML documents with
LanguageTool. It runs as a language server over stdio, or checks single files
from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "path to a .json, .yaml or .toml config file")
	rootCmd.PersistentFlags().StringVar(&g.color, "color", "auto", "colorize output: auto, always, never")

	rootCmd.AddCommand(newServeCommand(g, info))
	rootCmd.AddCommand(newCheckCommand(g))
	rootCmd.AddCommand(newChunksCommand(g))
	rootCmd.AddCommand(newVersionCommand(info))

	rootCmd.SetOut(os.Stdout)
	return rootCmd
}
