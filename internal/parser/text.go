package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/scenegest/internal/doctree"
)

// TextParser handles plain text. Blank lines separate paragraphs and
// each paragraph becomes its own node.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := doctree.NewBuilder(titleFromFilename(filename))
	var current []string
	emit := func() {
		if len(current) > 0 {
			b.Page(0, strings.Join(current, "\n"))
			current = current[:0]
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			emit()
			continue
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	emit()

	return b.Tree(), nil
}
