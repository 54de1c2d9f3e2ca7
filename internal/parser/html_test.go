package parser

import (
	"strings"
	"testing"
)

func TestHTMLParser_HeadingsAndTitle(t *testing.T) {
	input := `<html><head><title>The Habit Book</title><style>p{}</style></head>
<body>
<nav><p>Home | About</p></nav>
<h1>Part One</h1>
<p>Habits   compound
over time.</p>
<h2>Cues</h2>
<p>Make it <b>obvious</b>.</p>
<script>var x = 1;</script>
<footer><p>copyright</p></footer>
</body></html>`

	p := &HTMLParser{}
	tree, err := p.Parse(strings.NewReader(input), "habits.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "The Habit Book" {
		t.Errorf("expected <title> to win, got %q", tree.Title)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 top-level section, got %d", len(tree.Children))
	}
	part := tree.Children[0]
	if part.Text != "Habits compound over time." {
		t.Errorf("unexpected part text %q", part.Text)
	}
	if len(part.Children) != 1 || part.Children[0].Text != "Make it obvious." {
		t.Fatalf("unexpected subsections %+v", part.Children)
	}
	flat := strings.Join([]string{part.Title, part.Text, part.Children[0].Text}, " ")
	for _, banned := range []string{"Home", "copyright", "var x"} {
		if strings.Contains(flat, banned) {
			t.Errorf("expected %q to be skipped", banned)
		}
	}
}

func TestHTMLParser_FilenameTitle(t *testing.T) {
	p := &HTMLParser{}
	tree, err := p.Parse(strings.NewReader("<p>hi</p>"), "dir/page.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "page" {
		t.Errorf("expected title %q, got %q", "page", tree.Title)
	}
}

func TestHeadingLevel(t *testing.T) {
	tests := map[string]int{"h1": 1, "h6": 6, "h7": 0, "hr": 0, "p": 0, "h10": 0}
	for tag, want := range tests {
		if got := headingLevel(tag); got != want {
			t.Errorf("headingLevel(%q) = %d, want %d", tag, got, want)
		}
	}
}
