package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/scenegest/internal/config"
	"github.com/dgallion1/scenegest/internal/llm"
	"github.com/dgallion1/scenegest/internal/parser"
	"github.com/dgallion1/scenegest/internal/sequence"
)

// app holds what every subcommand shares. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfg config.Config
	log *slog.Logger
	gen llm.Generator

	provider string
	model    string
	out      string
	verbose  bool

	// newGenerator is swapped in tests.
	newGenerator func(cfg config.Config, log *slog.Logger) (llm.Generator, error)
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&app{newGenerator: func(cfg config.Config, log *slog.Logger) (llm.Generator, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return llm.NewFromConfig(cfg, llm.NewStats(time.Hour), log)
	}})
}

func newRootCmdWith(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "scenegest",
		Short:         "Turn narration scripts and books into numbered scenes, outlines and scripts",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.provider, "provider", "", "LLM provider (openai or anthropic); defaults to LLM_PROVIDER")
	root.PersistentFlags().StringVar(&a.model, "model", "", "model name; defaults to OPENAI_MODEL or ANTHROPIC_MODEL")
	root.PersistentFlags().StringVarP(&a.out, "out", "o", "", "write JSON output to this file instead of stdout")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newStoryboardCmd(a),
		newOutlineCmd(a),
		newScriptCmd(a),
		newRewriteCmd(a),
	)
	return root
}

func (a *app) init(stderr io.Writer) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	a.cfg = config.Load()
	if a.provider != "" {
		a.cfg.LLMProvider = a.provider
	}
	if a.model != "" {
		a.cfg.OpenAIModel = a.model
		a.cfg.AnthropicModel = a.model
	}

	gen, err := a.newGenerator(a.cfg, a.log)
	if err != nil {
		return err
	}
	a.gen = gen
	return nil
}

// progress logs runner events.
func (a *app) progress(label string) sequence.Observer {
	return func(ev sequence.Event) {
		if ev.Chunks == 0 {
			a.log.Debug(label, "run_id", ev.RunID, "state", ev.State)
			return
		}
		a.log.Info(label, "run_id", ev.RunID, "chunk", ev.Chunk+1, "chunks", ev.Chunks, "units", ev.Units, "undercount", ev.Undercount)
	}
}

// readInput reads a plain text file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("--file is required")
	}
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readDocument parses any supported source format.
func (a *app) readDocument(path string) (*parser.Document, error) {
	if path == "" {
		return nil, fmt.Errorf("--file is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parser.Read(f, path, parser.Options{FallbackPdftotext: a.cfg.PDFFallbackPdftotext})
}

func (a *app) write(cmd *cobra.Command, v any) error {
	var w io.Writer = cmd.OutOrStdout()
	if a.out != "" {
		f, err := os.Create(a.out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if a.out != "" {
		a.log.Info("wrote output", "path", a.out)
	}
	return nil
}
