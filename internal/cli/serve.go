package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"grammarls/internal/server"
)

func newServeCommand(g *globalFlags, info BuildInfo) *cobra.Command {
	var logfile string
	var verbose int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the language server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			runtime.GOMAXPROCS(4)

			// stdout carries the protocol, so logs go to a file or stderr.
			if logfile != "" {
				commonlog.Configure(verbose, &logfile)
			} else {
				commonlog.Configure(verbose, nil)
			}
			log := commonlog.GetLogger("grammarls")
			log.Infof("starting grammarls %s", info.Version)

			srv, err := server.NewServer(server.Options{ConfigFile: g.configPath, Version: info.Version})
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			if err := srv.RunStdio(); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logfile, "logfile", "", "path to log file")
	cmd.Flags().CountVarP(&verbose, "verbose", "v", "increase log verbosity")
	return cmd
}
