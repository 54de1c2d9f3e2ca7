package main

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/scenegest/internal/script"
	"github.com/dgallion1/scenegest/internal/storyboard"
)

type scriptOutput struct {
	*script.Result
	Outline    *storyboard.Outline    `json:"outline,omitempty"`
	Storyboard *storyboard.Storyboard `json:"storyboard,omitempty"`
}

func newScriptCmd(a *app) *cobra.Command {
	var (
		brief          script.Brief
		bookFile       string
		withStoryboard bool
	)
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Write a narration script that answers one question from a book",
		Example: `  scenegest script --topic "saving" --context "first job" --book "The Richest Man in Babylon"
  scenegest script --topic "focus" --context "students" --book "Deep Work" --book-file deep-work.pdf --storyboard`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := storyboard.NewService(a.gen, a.log)
			out := &scriptOutput{}

			// A book file is outlined first; the modules replace the
			// model's own principle list.
			if bookFile != "" {
				doc, err := a.readDocument(bookFile)
				if err != nil {
					return err
				}
				outline, err := svc.Outline(ctx, doc.Text, storyboard.OutlineOptions{
					Title:              brief.Book,
					WordsPerModule:     a.cfg.WordsPerModule,
					MaxModulesPerChunk: a.cfg.MaxModulesPerChunk,
					MaxRetries:         storyboard.RetryCount(a.cfg.MaxRetries),
					Observer:           a.progress("outline"),
				})
				if err != nil {
					return err
				}
				out.Outline = outline
				brief.Outline = outline.Markdown()
			}

			res, err := script.NewWriter(a.gen, a.log).Write(ctx, brief)
			if err != nil {
				return err
			}
			out.Result = res

			if withStoryboard {
				sb, err := svc.Storyboard(ctx, res.Script.Content, storyboard.SceneOptions{
					WordsPerScene:        a.cfg.WordsPerScene,
					SceneDurationSeconds: a.cfg.SceneDurationSeconds,
					MaxScenesPerChunk:    a.cfg.MaxScenesPerChunk,
					MaxRetries:           storyboard.RetryCount(a.cfg.MaxRetries),
					Observer:             a.progress("storyboard"),
				})
				if err != nil {
					return err
				}
				out.Storyboard = sb
			}
			return a.write(cmd, out)
		},
	}
	cmd.Flags().StringVar(&brief.Topic, "topic", "", "what the video is about")
	cmd.Flags().StringVar(&brief.Context, "context", "", "who is watching and why")
	cmd.Flags().StringVar(&brief.Book, "book", "", "book the script draws on")
	cmd.Flags().IntVar(&brief.TargetWordCount, "target", 1000, "target script length in words")
	cmd.Flags().StringVar(&bookFile, "book-file", "", "outline this book file and write from its modules")
	cmd.Flags().BoolVar(&withStoryboard, "storyboard", false, "also storyboard the finished script")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("context")
	_ = cmd.MarkFlagRequired("book")
	return cmd
}
