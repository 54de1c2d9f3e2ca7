package storyboard

import (
	"strings"
	"testing"
)

func validScene() Scene {
	return Scene{
		SceneNumber:   1,
		ScriptSnippet: "Meet Max. He works hard.",
		VisualPrompt:  "Max standing next to a gold trophy labeled Good Guy.",
		Characters:    []string{"char_max"},
		LayoutType:    LayoutCharacter,
	}
}

func TestValidateScene_ValidPasses(t *testing.T) {
	s := validScene()
	if !ValidateScene(&s) {
		t.Error("expected valid scene to pass validation")
	}
}

func TestValidateScene_Nil(t *testing.T) {
	if ValidateScene(nil) {
		t.Error("expected nil scene to fail validation")
	}
}

func TestValidateScene_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Scene)
	}{
		{"empty snippet", func(s *Scene) { s.ScriptSnippet = "   " }},
		{"snippet too long", func(s *Scene) { s.ScriptSnippet = strings.Repeat("a", maxSnippetLen+1) }},
		{"prompt too short", func(s *Scene) { s.VisualPrompt = "ab" }},
		{"prompt too long", func(s *Scene) { s.VisualPrompt = strings.Repeat("a", maxPromptLen+1) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := validScene()
			tc.mutate(&s)
			if ValidateScene(&s) {
				t.Errorf("expected %s to fail validation", tc.name)
			}
		})
	}
}

func TestValidateScene_NormalizesLayout(t *testing.T) {
	tests := []struct {
		in   LayoutType
		want LayoutType
	}{
		{"split", LayoutSplit},
		{" Overlay ", LayoutOverlay},
		{"UI", LayoutUI},
		{"collage", ""},
		{"", ""},
	}
	for _, tc := range tests {
		s := validScene()
		s.LayoutType = tc.in
		if !ValidateScene(&s) {
			t.Fatalf("layout %q: expected scene to stay valid", tc.in)
		}
		if s.LayoutType != tc.want {
			t.Errorf("layout %q: expected %q, got %q", tc.in, tc.want, s.LayoutType)
		}
	}
}

func TestValidateScene_CleansCharactersAndAsset(t *testing.T) {
	s := validScene()
	s.Characters = []string{" char_max ", "char_eve", "char_max", ""}
	null := "null"
	s.ExternalAssetSuggestion = &null

	if !ValidateScene(&s) {
		t.Fatal("expected scene to pass")
	}
	if len(s.Characters) != 2 || s.Characters[0] != "char_max" || s.Characters[1] != "char_eve" {
		t.Errorf("expected [char_max char_eve], got %v", s.Characters)
	}
	if s.ExternalAssetSuggestion != nil {
		t.Errorf("expected null asset suggestion to be cleared, got %q", *s.ExternalAssetSuggestion)
	}
}

func TestValidateBrief_Defaults(t *testing.T) {
	b := SceneBrief{SceneNumber: 3, FocalElement: " empty wallet ", VisualTone: "Gloomy", LayoutType: "poster"}
	if !ValidateBrief(&b) {
		t.Fatal("expected brief to pass")
	}
	if b.FocalElement != "empty wallet" {
		t.Errorf("expected trimmed focal element, got %q", b.FocalElement)
	}
	if b.VisualTone != ToneNeutral {
		t.Errorf("expected unknown tone to become neutral, got %q", b.VisualTone)
	}
	if b.LayoutType != LayoutCharacter {
		t.Errorf("expected unknown layout to become character, got %q", b.LayoutType)
	}

	empty := SceneBrief{SceneNumber: 1}
	if ValidateBrief(&empty) {
		t.Error("expected brief without focal element to fail")
	}
}

func TestValidateModule(t *testing.T) {
	m := Module{
		PrincipleName:   " Compounding ",
		Principle:       "Small gains add up.",
		Strategy:        "Automate saving.",
		ActionableSteps: []string{"- open an account", "  ", "* set a transfer", "a", "b", "c", "d", "e", "f"},
	}
	if !ValidateModule(&m) {
		t.Fatal("expected module to pass")
	}
	if m.PrincipleName != "Compounding" {
		t.Errorf("expected trimmed name, got %q", m.PrincipleName)
	}
	if len(m.ActionableSteps) != maxSteps {
		t.Fatalf("expected %d steps, got %d: %v", maxSteps, len(m.ActionableSteps), m.ActionableSteps)
	}
	if m.ActionableSteps[0] != "open an account" || m.ActionableSteps[1] != "set a transfer" {
		t.Errorf("expected bullet markers stripped, got %v", m.ActionableSteps[:2])
	}

	bad := Module{PrincipleName: "x"}
	if ValidateModule(&bad) {
		t.Error("expected module without principle to fail")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Max", "max"},
		{"Jerome Powell", "jerome_powell"},
		{"  TikTok  Bro! ", "tiktok_bro"},
		{"already_snake", "already_snake"},
		{strings.Repeat("x", 60), strings.Repeat("x", 50)},
	}
	for _, tc := range tests {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
