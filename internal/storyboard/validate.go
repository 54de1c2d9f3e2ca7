package storyboard

import (
	"regexp"
	"strings"

	"github.com/dgallion1/scenegest/internal/sequence"
)

const (
	maxSnippetLen = 600
	maxPromptLen  = 1200
	maxSteps      = 7
)

// ValidateScene checks a scene and normalizes it in place. Returns true if
// the scene is usable.
func ValidateScene(s *Scene) bool {
	if s == nil {
		return false
	}
	s.ScriptSnippet = strings.TrimSpace(s.ScriptSnippet)
	s.VisualPrompt = strings.TrimSpace(s.VisualPrompt)
	if s.ScriptSnippet == "" || len(s.ScriptSnippet) > maxSnippetLen {
		return false
	}
	if len(s.VisualPrompt) < 3 || len(s.VisualPrompt) > maxPromptLen {
		return false
	}
	s.LayoutType = LayoutType(strings.ToLower(strings.TrimSpace(string(s.LayoutType))))
	if !s.LayoutType.Valid() {
		s.LayoutType = ""
	}
	s.Characters = uniqueTrimmed(s.Characters)
	s.ExternalAssetSuggestion = nonEmpty(s.ExternalAssetSuggestion)
	return true
}

// ValidateBrief checks a scene brief and normalizes it in place.
func ValidateBrief(b *SceneBrief) bool {
	if b == nil {
		return false
	}
	b.FocalElement = strings.TrimSpace(b.FocalElement)
	if b.FocalElement == "" {
		return false
	}
	b.EmotionalBeat = strings.TrimSpace(b.EmotionalBeat)
	b.NarrativeRole = strings.TrimSpace(b.NarrativeRole)
	b.VisualTone = VisualTone(strings.ToLower(strings.TrimSpace(string(b.VisualTone))))
	if !b.VisualTone.Valid() {
		b.VisualTone = ToneNeutral
	}
	b.LayoutType = LayoutType(strings.ToLower(strings.TrimSpace(string(b.LayoutType))))
	if !b.LayoutType.Valid() {
		b.LayoutType = LayoutCharacter
	}
	b.OverlaySuggestion = nonEmpty(b.OverlaySuggestion)
	return true
}

// ValidateModule checks a principle module and normalizes it in place.
func ValidateModule(m *Module) bool {
	if m == nil {
		return false
	}
	m.PrincipleName = strings.TrimSpace(m.PrincipleName)
	m.Principle = strings.TrimSpace(m.Principle)
	m.Strategy = strings.TrimSpace(m.Strategy)
	m.ReflectionQuestion = strings.TrimSpace(m.ReflectionQuestion)
	if m.PrincipleName == "" || m.Principle == "" {
		return false
	}
	steps := m.ActionableSteps[:0]
	for _, st := range m.ActionableSteps {
		if st = strings.TrimSpace(strings.TrimLeft(st, "-*• ")); st != "" {
			steps = append(steps, st)
		}
	}
	if len(steps) > maxSteps {
		steps = steps[:maxSteps]
	}
	m.ActionableSteps = steps
	return true
}

// normalizeEntities drops nameless entities and fills missing IDs.
func normalizeEntities(in []sequence.Entity, prefix string) []sequence.Entity {
	out := make([]sequence.Entity, 0, len(in))
	for _, e := range in {
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			continue
		}
		e.ID = strings.TrimSpace(e.ID)
		if e.ID == "" {
			e.ID = prefix + Slugify(e.Name)
		}
		e.Description = strings.TrimSpace(e.Description)
		out = append(out, e)
	}
	return out
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9_]+`)
	slugRepeat  = regexp.MustCompile(`_+`)
)

// Slugify converts a name to an identifier-safe slug ("Jerome Powell" ->
// "jerome_powell").
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalid.ReplaceAllString(s, "_")
	s = slugRepeat.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 50 {
		s = s[:50]
	}
	return s
}

func uniqueTrimmed(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func nonEmpty(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}
