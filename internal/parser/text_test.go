package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/scenegest/internal/chunker"
)

func TestReadBytes_PlainTextScript(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantText  string
		wantWords int
	}{
		{
			name:      "paragraphs keep their line breaks",
			input:     "Max opens the app.\nThe balance is low.\n\nHe closes it again.",
			wantText:  "Max opens the app.\nThe balance is low.\n\nHe closes it again.",
			wantWords: 12,
		},
		{
			name:      "runs of blank lines collapse",
			input:     "One.\n\n\n\nTwo.\n   \n\tThree.",
			wantText:  "One.\n\nTwo.\n\nThree.",
			wantWords: 3,
		},
		{
			name:      "crlf input",
			input:     "Spend less.\r\n\r\nSave more.\r\n",
			wantText:  "Spend less.\n\nSave more.",
			wantWords: 4,
		},
		{
			name:      "empty file",
			input:     "",
			wantText:  "",
			wantWords: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ReadBytes([]byte(tt.input), "episode-01.txt", Options{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if doc.Title != "episode-01" {
				t.Errorf("expected title %q, got %q", "episode-01", doc.Title)
			}
			if doc.Text != tt.wantText {
				t.Errorf("expected text %q, got %q", tt.wantText, doc.Text)
			}
			if doc.Words != tt.wantWords {
				t.Errorf("expected %d words, got %d", tt.wantWords, doc.Words)
			}
			if doc.Sections != 0 {
				t.Errorf("plain text has no sections, got %d", doc.Sections)
			}
		})
	}
}

func TestRead_PlainTextFeedsSegmentSplitter(t *testing.T) {
	input := "First beat. Second beat.\n\nThird beat is longer than the rest."
	doc, err := Read(strings.NewReader(input), "notes.TXT", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Words != chunker.CountWords(input) {
		t.Errorf("word count %d does not match the source %d", doc.Words, chunker.CountWords(input))
	}
	segs := chunker.SplitSegments(doc.Text, 2)
	if got := strings.Join(segs, " "); got != chunker.Normalize(input) {
		t.Errorf("segments lost text: %q", got)
	}
}

func TestTextParser_LongLine(t *testing.T) {
	line := strings.Repeat("word ", 100_000)
	tree, err := (&TextParser{}).Parse(strings.NewReader(line), "long.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 1 || tree.Children[0].Page != 0 {
		t.Fatalf("expected one leaf node, got %d", len(tree.Children))
	}
}
