package main

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/scenegest/internal/script"
)

func newRewriteCmd(a *app) *cobra.Command {
	var (
		file string
		req  script.RewriteRequest
	)
	cmd := &cobra.Command{
		Use:   "rewrite",
		Short: "Recast existing text as a narration script of a given length",
		Example: `  scenegest rewrite --file article.txt --target 600
  pbpaste | scenegest rewrite --file - --target 300 -o rewrite.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			req.Text = text
			out, err := script.NewWriter(a.gen, a.log).Rewrite(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.write(cmd, out)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "text to rewrite, or - for stdin")
	cmd.Flags().IntVar(&req.TargetWordCount, "target", 500, "target length in words")
	return cmd
}
