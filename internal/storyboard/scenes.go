package storyboard

import (
	"encoding/json"
	"fmt"

	"github.com/dgallion1/scenegest/internal/llm"
	"github.com/dgallion1/scenegest/internal/sequence"
)

const (
	sceneTemperature = 0.5
	sceneMaxTokens   = 16384
)

type scenePayload struct {
	Characters []sequence.Entity `json:"characters"`
	Scenes     []Scene           `json:"scenes"`
	Story      *Story            `json:"story,omitempty"`
}

var sceneSchema = llm.GenerateSchema[scenePayload]()

// SceneStrategy asks for storyboard scenes. When Narrative is set, each
// chunk is given the scene briefs for its own number range and story-level
// metadata is taken from the narrative instead of being requested.
type SceneStrategy struct {
	Narrative *NarrativeContext
}

func (s SceneStrategy) BuildRequest(c sequence.Chunk, short *sequence.Shortfall) llm.Request {
	return llm.Request{
		System:          buildSceneSystem(c, short, s.Narrative),
		Prompt:          buildUserPrompt("SCRIPT SEGMENT TO TRANSLATE", c),
		Structured:      true,
		Schema:          sceneSchema,
		SchemaName:      "storyboard_scenes",
		Temperature:     sceneTemperature,
		MaxOutputTokens: sceneMaxTokens,
	}
}

// Parse decodes a scene response. Invalid scenes are dropped, which counts
// against the chunk's expected total.
func (s SceneStrategy) Parse(raw string) (sequence.Batch[Scene, Story], error) {
	var p scenePayload
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &p); err != nil {
		return sequence.Batch[Scene, Story]{}, fmt.Errorf("%w: %v", llm.ErrMalformed, err)
	}
	scenes := make([]Scene, 0, len(p.Scenes))
	for i := range p.Scenes {
		if ValidateScene(&p.Scenes[i]) {
			scenes = append(scenes, p.Scenes[i])
		}
	}
	return sequence.Batch[Scene, Story]{
		Units:    scenes,
		Entities: normalizeEntities(p.Characters, "char_"),
		Meta:     p.Story,
	}, nil
}

type briefPayload struct {
	SceneBriefs []SceneBrief `json:"scene_briefs"`
	Story       *Story       `json:"story,omitempty"`
}

var briefSchema = llm.GenerateSchema[briefPayload]()

// NarrativeStrategy asks for scene briefs: the cheap pre-pass that plans the
// story before scenes are drawn.
type NarrativeStrategy struct{}

func (NarrativeStrategy) BuildRequest(c sequence.Chunk, short *sequence.Shortfall) llm.Request {
	return llm.Request{
		System:          buildNarrativeSystem(c, short),
		Prompt:          buildUserPrompt("SCRIPT TO ANALYZE", c),
		Structured:      true,
		Schema:          briefSchema,
		SchemaName:      "narrative_plan",
		Temperature:     0.7,
		MaxOutputTokens: sceneMaxTokens,
	}
}

func (NarrativeStrategy) Parse(raw string) (sequence.Batch[SceneBrief, Story], error) {
	var p briefPayload
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &p); err != nil {
		return sequence.Batch[SceneBrief, Story]{}, fmt.Errorf("%w: %v", llm.ErrMalformed, err)
	}
	briefs := make([]SceneBrief, 0, len(p.SceneBriefs))
	for i := range p.SceneBriefs {
		if ValidateBrief(&p.SceneBriefs[i]) {
			briefs = append(briefs, p.SceneBriefs[i])
		}
	}
	return sequence.Batch[SceneBrief, Story]{Units: briefs, Meta: p.Story}, nil
}
