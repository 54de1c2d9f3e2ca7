package storyboard

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/scenegest/internal/llm"
	"github.com/dgallion1/scenegest/internal/sequence"
)

type modulePayload struct {
	Modules  []Module          `json:"modules"`
	Concepts []sequence.Entity `json:"concepts"`
	Overview *BookOverview     `json:"overview,omitempty"`
}

var moduleSchema = llm.GenerateSchema[modulePayload]()

// ModuleStrategy asks for principle modules from a section of a source book.
type ModuleStrategy struct {
	Title string
}

func (s ModuleStrategy) BuildRequest(c sequence.Chunk, short *sequence.Shortfall) llm.Request {
	return llm.Request{
		System:          buildModuleSystem(s.Title, c, short),
		Prompt:          buildUserPrompt("BOOK SECTION", c),
		Structured:      true,
		Schema:          moduleSchema,
		SchemaName:      "principle_modules",
		Temperature:     0.7,
		MaxOutputTokens: 4096,
	}
}

// Parse reads the JSON form and falls back to the markdown module layout
// ("**Module 1: Name**" followed by the four levels) that models sometimes
// produce instead.
func (s ModuleStrategy) Parse(raw string) (sequence.Batch[Module, BookOverview], error) {
	var p modulePayload
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &p); err != nil {
		mods := ParseModulesMarkdown(raw)
		if len(mods) == 0 {
			return sequence.Batch[Module, BookOverview]{}, fmt.Errorf("%w: %v", llm.ErrMalformed, err)
		}
		p = modulePayload{Modules: mods}
	}
	modules := make([]Module, 0, len(p.Modules))
	for i := range p.Modules {
		if ValidateModule(&p.Modules[i]) {
			modules = append(modules, p.Modules[i])
		}
	}
	return sequence.Batch[Module, BookOverview]{
		Units:    modules,
		Entities: normalizeEntities(p.Concepts, "concept_"),
		Meta:     p.Overview,
	}, nil
}

var (
	moduleHeaderRe = regexp.MustCompile(`\*\*Module (\d+):\s*([^*\n]+)\*\*`)
	level1Re       = regexp.MustCompile(`\*\*Level 1:[^*]*\*\*\s*([^\n]+)`)
	level2Re       = regexp.MustCompile(`\*\*Level 2:[^*]*\*\*\s*([^\n]+)`)
	level3Re       = regexp.MustCompile(`(?s)\*\*Level 3:[^*]*\*\*\s*(.*?)\*\*Level 4:`)
	level4Re       = regexp.MustCompile(`\*\*Level 4:[^*]*\*\*\s*([^\n]+)`)
	bulletRe       = regexp.MustCompile(`(?m)^\s*[-*•]\s*(.+)$`)
)

// ParseModulesMarkdown extracts modules from the markdown outline layout.
// Modules missing any of the four levels are skipped.
func ParseModulesMarkdown(text string) []Module {
	headers := moduleHeaderRe.FindAllStringSubmatchIndex(text, -1)
	var out []Module
	for i, h := range headers {
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		body := text[h[1]:end]

		l1 := level1Re.FindStringSubmatch(body)
		l2 := level2Re.FindStringSubmatch(body)
		l3 := level3Re.FindStringSubmatch(body)
		l4 := level4Re.FindStringSubmatch(body)
		if l1 == nil || l2 == nil || l3 == nil || l4 == nil {
			continue
		}

		var n int
		fmt.Sscanf(text[h[2]:h[3]], "%d", &n)
		var steps []string
		for _, m := range bulletRe.FindAllStringSubmatch(l3[1], -1) {
			if st := strings.TrimSpace(m[1]); st != "" {
				steps = append(steps, st)
			}
		}
		out = append(out, Module{
			ModuleNumber:       n,
			PrincipleName:      strings.TrimSpace(text[h[4]:h[5]]),
			Principle:          strings.TrimSpace(l1[1]),
			Strategy:           strings.TrimSpace(l2[1]),
			ActionableSteps:    steps,
			ReflectionQuestion: strings.TrimSpace(l4[1]),
		})
	}
	return out
}

// Markdown renders the outline in the module layout ParseModulesMarkdown
// reads, for feeding into the script writer.
func (o *Outline) Markdown() string {
	var sb strings.Builder
	if o.Overview != nil && o.Overview.CoreQuestion != "" {
		fmt.Fprintf(&sb, "**Core Question:** %s\n\n", o.Overview.CoreQuestion)
	}
	for _, m := range o.Modules {
		fmt.Fprintf(&sb, "**Module %d: %s**\n", m.ModuleNumber, m.PrincipleName)
		fmt.Fprintf(&sb, "- **Level 1: The Principle (Why):** %s\n", m.Principle)
		fmt.Fprintf(&sb, "- **Level 2: The Strategy (What):** %s\n", m.Strategy)
		sb.WriteString("- **Level 3: Actionable Steps (How):**\n")
		for _, st := range m.ActionableSteps {
			fmt.Fprintf(&sb, "    - %s\n", st)
		}
		fmt.Fprintf(&sb, "- **Level 4: The Reflection Question (Internalize):** %s\n\n", m.ReflectionQuestion)
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}
