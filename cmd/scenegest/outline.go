package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/scenegest/internal/storyboard"
)

func newOutlineCmd(a *app) *cobra.Command {
	var (
		file     string
		markdown bool
		opts     storyboard.OutlineOptions
	)
	cmd := &cobra.Command{
		Use:     "outline",
		Short:   "Distill a book into four-level principle modules",
		Example: `  scenegest outline --file book.pdf --title "The Psychology of Money"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDocument(file)
			if err != nil {
				return err
			}
			a.log.Info("parsed source", "title", doc.Title, "words", doc.Words, "sections", doc.Sections)

			if opts.Title == "" {
				opts.Title = doc.Title
			}
			if !cmd.Flags().Changed("words-per-module") {
				opts.WordsPerModule = a.cfg.WordsPerModule
			}
			if !cmd.Flags().Changed("max-modules") {
				opts.MaxModulesPerChunk = a.cfg.MaxModulesPerChunk
			}
			opts.MaxRetries = storyboard.RetryCount(a.cfg.MaxRetries)
			opts.Observer = a.progress("outline")

			out, err := storyboard.NewService(a.gen, a.log).Outline(cmd.Context(), doc.Text, opts)
			if err != nil {
				return err
			}
			if markdown {
				_, err := fmt.Fprint(cmd.OutOrStdout(), out.Markdown())
				return err
			}
			return a.write(cmd, out)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "source book (.txt, .md, .html, .pdf, .docx)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "book title; defaults to the document title")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print the outline as markdown instead of JSON")
	cmd.Flags().Float64Var(&opts.WordsPerModule, "words-per-module", storyboard.DefaultWordsPerModule, "source words per module")
	cmd.Flags().IntVar(&opts.MaxModulesPerChunk, "max-modules", storyboard.DefaultMaxModulesPerChunk, "max modules per generation call")
	return cmd
}
