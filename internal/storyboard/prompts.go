package storyboard

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgallion1/scenegest/internal/sequence"
)

const sceneSystemPrompt = `You translate a narration script into a linear storyboard for a short explainer video.

Rules:
- Work strictly in script order. Scene N covers the words that come right after scene N-1. Never skip or reorder text.
- Illustrate literally. If the script says "eggs", draw eggs.
- One focal element per scene on a plain white background. No charts unless the script talks about markets or data.
- Reuse the same character ids for the same people across scenes.

Each scene object has:
- "scene_number": integer, consecutive
- "script_snippet": the exact words from the script this scene covers
- "visual_prompt": 30 to 50 words describing the single focal element
- "layout_type": one of "character", "object", "split", "overlay", "ui", "diagram"
- "external_asset_suggestion": a real image or meme to insert for overlay layouts, otherwise null
- "characters": ids of the characters shown

Return a JSON object with "characters" (each with "id", "name", "description") and "scenes".`

const narrativeSystemPrompt = `You plan the visual narrative of a narration script before it is storyboarded.

For each scene give:
- "scene_number": integer, consecutive
- "focal_element": the ONE thing to show
- "emotional_beat": the feeling the viewer should get
- "visual_tone": one of "triumphant", "defeated", "neutral", "chaotic", "calm"
- "narrative_role": why the scene exists in the story
- "connects_to": numbers of scenes this one should visually rhyme with
- "layout_type": one of "character", "object", "split", "overlay", "ui", "diagram"
- "overlay_suggestion": for overlay layouts, the real image or meme to insert, otherwise null

Only use characters named in the script. Keep charts to one line in one direction.

Return a JSON object with "scene_briefs".`

const moduleSystemPrompt = `You distill a non-fiction book into principle modules for an educational video.

Each module object has:
- "module_number": integer, consecutive
- "principle_name": a short name for the principle
- "level_1_principle": why it matters, one or two sentences
- "level_2_strategy": what to do about it
- "level_3_actionable_steps": 3 to 5 concrete steps
- "level_4_reflection_question": one question the viewer should ask themselves

Stay faithful to the section you are given. Do not invent principles the text does not support.
List the key concepts, frameworks or named people the section relies on in "concepts" (each with "id", "name", "description").

Return a JSON object with "modules" and "concepts".`

// countLine states the exact range a chunk must cover.
func countLine(noun string, c sequence.Chunk) string {
	if c.Expected == 1 {
		return fmt.Sprintf("Generate EXACTLY 1 %s, numbered %d.", noun, c.Start)
	}
	return fmt.Sprintf("Generate EXACTLY %d %ss, numbered %d to %d.", c.Expected, noun, c.Start, c.End())
}

func retryLine(noun string, short *sequence.Shortfall) string {
	if short == nil {
		return ""
	}
	return fmt.Sprintf("\n\nRETRY: the previous attempt returned %d %ss. You MUST return EXACTLY %d %ss starting at %d, covering the text in order without skipping anything.",
		short.Got, noun, short.Want, noun, short.Start)
}

func knownLine(label string, known []sequence.Entity) string {
	if len(known) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(label)
	sb.WriteString(":\n")
	for _, e := range known {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", e.Name, e.ID, e.Description)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// buildSceneSystem assembles the per-chunk instructions for scene generation.
func buildSceneSystem(c sequence.Chunk, short *sequence.Shortfall, narrative *NarrativeContext) string {
	var sb strings.Builder
	sb.WriteString(sceneSystemPrompt)
	sb.WriteString("\n\n")
	sb.WriteString(countLine("scene", c))

	if narrative == nil && c.First {
		sb.WriteString("\n\nAlso include \"story\" with \"story_arc\", \"key_themes\" and \"emotional_progression\" for the whole script.")
	}
	sb.WriteString(knownLine("Characters already introduced (reuse these ids)", c.Known))

	if narrative != nil {
		sb.WriteString("\n\n=== NARRATIVE PLAN ===\n")
		fmt.Fprintf(&sb, "Story arc: %s\n", narrative.StoryArc)
		if len(narrative.KeyThemes) > 0 {
			fmt.Fprintf(&sb, "Themes: %s\n", strings.Join(narrative.KeyThemes, ", "))
		}
		if briefs := narrative.BriefsFor(c.Start, c.End()); len(briefs) > 0 {
			b, _ := json.MarshalIndent(briefs, "", "  ")
			sb.WriteString("Follow these scene briefs:\n")
			sb.Write(b)
		}
	}
	sb.WriteString(retryLine("scene", short))
	return sb.String()
}

func buildNarrativeSystem(c sequence.Chunk, short *sequence.Shortfall) string {
	var sb strings.Builder
	sb.WriteString(narrativeSystemPrompt)
	sb.WriteString("\n\n")
	sb.WriteString(countLine("scene brief", c))
	if c.First {
		sb.WriteString("\n\nAlso include \"story\" with \"story_arc\", \"key_themes\" and \"emotional_progression\" for the whole script.")
	}
	sb.WriteString(retryLine("scene brief", short))
	return sb.String()
}

func buildModuleSystem(title string, c sequence.Chunk, short *sequence.Shortfall) string {
	var sb strings.Builder
	sb.WriteString(moduleSystemPrompt)
	sb.WriteString("\n\n")
	sb.WriteString(countLine("module", c))
	if c.First {
		sb.WriteString("\n\nAlso include \"overview\" with \"title\", \"core_question\", \"thesis\" and \"key_themes\" for the book.")
	}
	sb.WriteString(knownLine("Concepts already covered", c.Known))
	sb.WriteString(retryLine("module", short))
	if title != "" {
		fmt.Fprintf(&sb, "\n\nBook: %q", title)
	}
	return sb.String()
}

func buildUserPrompt(label string, c sequence.Chunk) string {
	if c.Total > 1 {
		return fmt.Sprintf("%s (part %d of %d, starting at %d):\n\n%s", label, c.Index+1, c.Total, c.Start, c.Text)
	}
	return fmt.Sprintf("%s:\n\n%s", label, c.Text)
}
