package main

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/scenegest/internal/storyboard"
)

func newStoryboardCmd(a *app) *cobra.Command {
	var (
		file      string
		narrative bool
		opts      storyboard.SceneOptions
	)
	cmd := &cobra.Command{
		Use:   "storyboard",
		Short: "Break a narration script into numbered scenes",
		Example: `  scenegest storyboard --file script.txt --narrative --out scenes.json
  cat script.txt | scenegest storyboard --file -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("words-per-scene") {
				opts.WordsPerScene = a.cfg.WordsPerScene
			}
			if !cmd.Flags().Changed("scene-seconds") {
				opts.SceneDurationSeconds = a.cfg.SceneDurationSeconds
			}
			if !cmd.Flags().Changed("max-scenes") {
				opts.MaxScenesPerChunk = a.cfg.MaxScenesPerChunk
			}
			opts.MaxRetries = storyboard.RetryCount(a.cfg.MaxRetries)
			opts.NarrativePrepass = narrative
			opts.Observer = a.progress("storyboard")

			sb, err := storyboard.NewService(a.gen, a.log).Storyboard(cmd.Context(), text, opts)
			if err != nil {
				return err
			}
			if len(sb.Discrepancies) > 0 {
				a.log.Warn("scene counts differ from estimate", "discrepancies", len(sb.Discrepancies))
			}
			return a.write(cmd, sb)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "script file, or - for stdin")
	cmd.Flags().BoolVar(&narrative, "narrative", false, "plan scene briefs first, then generate scenes from them")
	cmd.Flags().Float64Var(&opts.WordsPerScene, "words-per-scene", storyboard.DefaultWordsPerScene, "script words per scene")
	cmd.Flags().Float64Var(&opts.SceneDurationSeconds, "scene-seconds", storyboard.DefaultSceneDurationSeconds, "seconds per scene with --narrative")
	cmd.Flags().IntVar(&opts.MaxScenesPerChunk, "max-scenes", storyboard.DefaultMaxScenesPerChunk, "max scenes per generation call")
	return cmd
}
