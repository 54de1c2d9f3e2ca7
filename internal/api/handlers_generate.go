package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/scenegest/internal/parser"
	"github.com/dgallion1/scenegest/internal/pipeline"
	"github.com/dgallion1/scenegest/internal/script"
	"github.com/dgallion1/scenegest/internal/storyboard"
)

type storyboardRequest struct {
	Script               string  `json:"script"`
	NarrativePrepass     bool    `json:"narrative_prepass"`
	WordsPerScene        float64 `json:"words_per_scene"`
	SceneDurationSeconds float64 `json:"scene_duration_seconds"`
	MaxScenesPerChunk    int     `json:"max_scenes_per_chunk"`
	Force                bool    `json:"force"`
}

func (s *Server) handleStoryboard(w http.ResponseWriter, r *http.Request) {
	var req storyboardRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Script) == "" {
		jsonError(w, "script is required", http.StatusBadRequest)
		return
	}

	opts := s.sceneOptions(req.NarrativePrepass)
	if req.WordsPerScene > 0 {
		opts.WordsPerScene = req.WordsPerScene
	}
	if req.SceneDurationSeconds > 0 {
		opts.SceneDurationSeconds = req.SceneDurationSeconds
	}
	if req.MaxScenesPerChunk > 0 {
		opts.MaxScenesPerChunk = req.MaxScenesPerChunk
	}

	s.submit(w, pipeline.NewJob(pipeline.KindStoryboard, pipeline.Input{
		Text:   req.Script,
		Scenes: opts,
		Force:  req.Force,
	}))
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	// Extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	err := r.ParseMultipartForm(32 << 20)
	switch {
	case errors.Is(err, http.ErrNotMultipart):
		if err := r.ParseForm(); err != nil {
			jsonError(w, "invalid form: "+err.Error(), http.StatusBadRequest)
			return
		}
	case err != nil:
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	default:
		defer r.MultipartForm.RemoveAll()
	}

	opts := storyboard.OutlineOptions{
		Title:              strings.TrimSpace(r.FormValue("title")),
		WordsPerModule:     formFloat(r, "words_per_module", s.cfg.WordsPerModule),
		MaxModulesPerChunk: formInt(r, "max_modules_per_chunk", s.cfg.MaxModulesPerChunk),
		MaxRetries:         storyboard.RetryCount(s.cfg.MaxRetries),
	}
	in := pipeline.Input{Outline: opts, Force: r.FormValue("force") == "true"}

	var filename string
	if r.MultipartForm != nil && len(r.MultipartForm.File["file"]) > 0 {
		file, header, err := r.FormFile("file")
		if err != nil {
			jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()

		filename = sanitizeFilename(header.Filename)
		if !parser.IsSupportedExtension(filename) {
			jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
		if err != nil {
			jsonError(w, "failed to read file", http.StatusInternalServerError)
			return
		}
		if int64(len(data)) > s.cfg.MaxUploadBytes {
			jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		in.FileData = data
	} else {
		in.Text = r.FormValue("text")
		if strings.TrimSpace(in.Text) == "" {
			jsonError(w, "file or text is required", http.StatusBadRequest)
			return
		}
	}

	job := pipeline.NewJob(pipeline.KindOutline, in)
	job.Filename = filename
	job.Title = opts.Title
	s.submit(w, job)
}

type scriptRequest struct {
	Topic            string `json:"topic"`
	Context          string `json:"context"`
	Book             string `json:"book"`
	Outline          string `json:"outline"`
	TargetWordCount  int    `json:"target_word_count"`
	Storyboard       bool   `json:"storyboard"`
	NarrativePrepass bool   `json:"narrative_prepass"`
	Force            bool   `json:"force"`
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	var req scriptRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	for _, f := range []struct{ name, value string }{
		{"topic", req.Topic}, {"context", req.Context}, {"book", req.Book},
	} {
		if strings.TrimSpace(f.value) == "" {
			jsonError(w, f.name+" is required", http.StatusBadRequest)
			return
		}
	}
	if req.TargetWordCount < script.MinTargetWords {
		jsonError(w, fmt.Sprintf("target_word_count must be at least %d", script.MinTargetWords), http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(pipeline.KindScript, pipeline.Input{
		Brief: script.Brief{
			Topic:           req.Topic,
			Context:         req.Context,
			Book:            req.Book,
			Outline:         req.Outline,
			TargetWordCount: req.TargetWordCount,
		},
		Storyboard: req.Storyboard,
		Scenes:     s.sceneOptions(req.NarrativePrepass),
		Force:      req.Force,
	})
	job.Title = req.Book
	s.submit(w, job)
}

func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	var req script.RewriteRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Text)) < script.MinRewriteChars {
		jsonError(w, fmt.Sprintf("input_text must be at least %d characters", script.MinRewriteChars), http.StatusBadRequest)
		return
	}
	if req.TargetWordCount < script.MinRewriteWords || req.TargetWordCount > script.MaxRewriteWords {
		jsonError(w, fmt.Sprintf("target_word_count must be between %d and %d", script.MinRewriteWords, script.MaxRewriteWords), http.StatusBadRequest)
		return
	}
	s.submit(w, pipeline.NewJob(pipeline.KindRewrite, pipeline.Input{Rewrite: req}))
}

func (s *Server) sceneOptions(prepass bool) storyboard.SceneOptions {
	return storyboard.SceneOptions{
		WordsPerScene:        s.cfg.WordsPerScene,
		SceneDurationSeconds: s.cfg.SceneDurationSeconds,
		MaxScenesPerChunk:    s.cfg.MaxScenesPerChunk,
		MaxRetries:           storyboard.RetryCount(s.cfg.MaxRetries),
		NarrativePrepass:     prepass,
	}
}

func (s *Server) submit(w http.ResponseWriter, job *pipeline.Job) {
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	snap := job.Snapshot()
	s.log.Info("job queued", "job_id", snap.ID, "kind", snap.Kind)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   snap.ID,
		"kind":     snap.Kind,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/jobs/%s", snap.ID),
	})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func formInt(r *http.Request, key string, fallback int) int {
	if v := r.FormValue(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func formFloat(r *http.Request, key string, fallback float64) float64 {
	if v := r.FormValue(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
