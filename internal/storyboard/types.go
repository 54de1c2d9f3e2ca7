// Package storyboard holds the domain records (scenes, scene briefs,
// principle modules) and the strategies that generate them through the
// sequence package.
package storyboard

import (
	"slices"

	"github.com/dgallion1/scenegest/internal/sequence"
)

// LayoutType is the visual composition of a scene.
type LayoutType string

const (
	LayoutSplit     LayoutType = "split"
	LayoutOverlay   LayoutType = "overlay"
	LayoutUI        LayoutType = "ui"
	LayoutDiagram   LayoutType = "diagram"
	LayoutCharacter LayoutType = "character"
	LayoutObject    LayoutType = "object"
)

var layouts = []LayoutType{LayoutSplit, LayoutOverlay, LayoutUI, LayoutDiagram, LayoutCharacter, LayoutObject}

// Valid reports whether l is one of the known layouts.
func (l LayoutType) Valid() bool { return slices.Contains(layouts, l) }

// VisualTone is the mood a scene brief asks for.
type VisualTone string

const (
	ToneTriumphant VisualTone = "triumphant"
	ToneDefeated   VisualTone = "defeated"
	ToneNeutral    VisualTone = "neutral"
	ToneChaotic    VisualTone = "chaotic"
	ToneCalm       VisualTone = "calm"
)

var tones = []VisualTone{ToneTriumphant, ToneDefeated, ToneNeutral, ToneChaotic, ToneCalm}

func (t VisualTone) Valid() bool { return slices.Contains(tones, t) }

// Scene is one storyboard frame covering a literal span of the script.
type Scene struct {
	SceneNumber             int        `json:"scene_number"`
	ScriptSnippet           string     `json:"script_snippet"`
	VisualPrompt            string     `json:"visual_prompt"`
	Characters              []string   `json:"characters"`
	LayoutType              LayoutType `json:"layout_type,omitempty"`
	ExternalAssetSuggestion *string    `json:"external_asset_suggestion"`
}

func (s Scene) Number() int { return s.SceneNumber }

func (s Scene) WithNumber(n int) Scene {
	s.SceneNumber = n
	return s
}

// Story is the story-level metadata returned with the first chunk.
type Story struct {
	StoryArc             string   `json:"story_arc"`
	KeyThemes            []string `json:"key_themes"`
	EmotionalProgression []string `json:"emotional_progression"`
}

// SceneBrief is the pre-pass plan for one scene.
type SceneBrief struct {
	SceneNumber       int        `json:"scene_number"`
	FocalElement      string     `json:"focal_element"`
	EmotionalBeat     string     `json:"emotional_beat"`
	VisualTone        VisualTone `json:"visual_tone"`
	NarrativeRole     string     `json:"narrative_role"`
	ConnectsTo        []int      `json:"connects_to"`
	LayoutType        LayoutType `json:"layout_type"`
	OverlaySuggestion *string    `json:"overlay_suggestion"`
}

func (b SceneBrief) Number() int { return b.SceneNumber }

func (b SceneBrief) WithNumber(n int) SceneBrief {
	b.SceneNumber = n
	return b
}

// NarrativeContext is the output of the narrative pre-pass. It is read-only
// once built and shared by every scene chunk of the run.
type NarrativeContext struct {
	Story
	SceneBriefs []SceneBrief `json:"scene_briefs"`
}

// BriefsFor returns the briefs numbered first..last inclusive.
func (n *NarrativeContext) BriefsFor(first, last int) []SceneBrief {
	if n == nil {
		return nil
	}
	var out []SceneBrief
	for _, b := range n.SceneBriefs {
		if b.SceneNumber >= first && b.SceneNumber <= last {
			out = append(out, b)
		}
	}
	return out
}

// Storyboard is a completed scene breakdown.
type Storyboard struct {
	RunID         string                 `json:"run_id"`
	Mode          sequence.Mode          `json:"mode"`
	Estimated     int                    `json:"estimated_scenes"`
	Characters    []sequence.Entity      `json:"characters"`
	Scenes        []Scene                `json:"scenes"`
	Story         *Story                 `json:"story,omitempty"`
	Narrative     *NarrativeContext      `json:"narrative,omitempty"`
	Discrepancies []sequence.Discrepancy `json:"discrepancies,omitempty"`
}

// Module is one principle of a book outline, broken into four levels.
type Module struct {
	ModuleNumber       int      `json:"module_number"`
	PrincipleName      string   `json:"principle_name"`
	Principle          string   `json:"level_1_principle"`
	Strategy           string   `json:"level_2_strategy"`
	ActionableSteps    []string `json:"level_3_actionable_steps"`
	ReflectionQuestion string   `json:"level_4_reflection_question"`
}

func (m Module) Number() int { return m.ModuleNumber }

func (m Module) WithNumber(n int) Module {
	m.ModuleNumber = n
	return m
}

// BookOverview is the book-level metadata returned with the first chunk.
type BookOverview struct {
	Title        string   `json:"title"`
	CoreQuestion string   `json:"core_question"`
	Thesis       string   `json:"thesis"`
	KeyThemes    []string `json:"key_themes"`
}

// Outline is a completed principle-module breakdown of a source book.
type Outline struct {
	RunID         string                 `json:"run_id"`
	Mode          sequence.Mode          `json:"mode"`
	Estimated     int                    `json:"estimated_modules"`
	Overview      *BookOverview          `json:"overview,omitempty"`
	Modules       []Module               `json:"modules"`
	Concepts      []sequence.Entity      `json:"concepts"`
	Discrepancies []sequence.Discrepancy `json:"discrepancies,omitempty"`
}
