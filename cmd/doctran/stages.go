package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/doctran/internal/pipeline"
)

func newStagesCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List the variants of every stage; the selected one is starred.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			selected := map[string]string{
				pipeline.StageParse:         a.pipeline.Parse,
				pipeline.StageProcess:       a.pipeline.Process,
				pipeline.StageFilterWork:    a.pipeline.FilterWork,
				pipeline.StageFilterProcess: a.pipeline.FilterProcess,
				pipeline.StageWork:          a.pipeline.Work,
				pipeline.StageRender:        a.pipeline.Render,
			}
			out := cmd.OutOrStdout()
			for _, stage := range pipeline.StageNames {
				names := a.registry.Variants(stage)
				for i, n := range names {
					if n == selected[stage] {
						names[i] = n + "*"
					}
				}
				fmt.Fprintf(out, "%-15s %s\n", stage, strings.Join(names, " "))
			}
			return nil
		},
	}
}
