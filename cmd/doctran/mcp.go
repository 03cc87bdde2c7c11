package main

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/doctran/internal/mcpserver"
)

func newMCPCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the translate_document tool over MCP stdio.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.log.Info("starting mcp server", "version", mcpserver.Version)
			return mcpserver.ServeStdio(mcpserver.Options{
				Registry: a.registry,
				Base:     a.pipeline,
				Config:   a.cfg,
				Log:      a.log,
			})
		},
	}
}
