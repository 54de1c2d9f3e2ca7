// Package doctree is the intermediate form of a parsed source document:
// headings nest, paragraphs attach to the nearest heading above them.
package doctree

import (
	"strings"
)

// DocTree is the root of a parsed document.
type DocTree struct {
	Title    string
	Children []*DocNode
}

// DocNode is a section. Leaf text nodes have no Title.
type DocNode struct {
	Title    string
	Text     string
	Page     int // 1-based source page, 0 if unknown
	Children []*DocNode
}

type level struct {
	node  *DocNode
	depth int
}

// Builder turns a flat stream of headings and paragraphs into a DocTree.
// Every format parser feeds it in document order.
type Builder struct {
	title string
	root  *DocNode
	stack []level
	text  []string
}

func NewBuilder(title string) *Builder {
	root := &DocNode{Title: title}
	return &Builder{
		title: title,
		root:  root,
		stack: []level{{node: root, depth: 0}},
	}
}

// SetTitle replaces the document title (e.g. from an HTML <title>).
func (b *Builder) SetTitle(title string) {
	if title = strings.TrimSpace(title); title != "" {
		b.title = title
		b.root.Title = title
	}
}

// Heading opens a section at depth (1 = top level). Deeper open sections
// and siblings at the same depth are closed first.
func (b *Builder) Heading(depth int, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	b.flush()
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].depth >= depth {
		b.stack = b.stack[:len(b.stack)-1]
	}
	n := &DocNode{Title: title}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, n)
	b.stack = append(b.stack, level{node: n, depth: depth})
}

// Paragraph adds body text to the current section.
func (b *Builder) Paragraph(text string) {
	if text = strings.TrimSpace(text); text != "" {
		b.text = append(b.text, text)
	}
}

// Page adds a page of text as its own leaf node.
func (b *Builder) Page(n int, text string) {
	if text = strings.TrimSpace(text); text == "" {
		return
	}
	b.flush()
	top := b.stack[len(b.stack)-1].node
	top.Children = append(top.Children, &DocNode{Text: text, Page: n})
}

func (b *Builder) flush() {
	if len(b.text) == 0 {
		return
	}
	top := b.stack[len(b.stack)-1].node
	t := strings.Join(b.text, "\n\n")
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
	b.text = b.text[:0]
}

// Tree finishes the document. Text before the first heading becomes a
// leading untitled node.
func (b *Builder) Tree() *DocTree {
	b.flush()
	tree := &DocTree{Title: b.title}
	if b.root.Text != "" {
		tree.Children = append(tree.Children, &DocNode{Text: b.root.Text})
	}
	tree.Children = append(tree.Children, b.root.Children...)
	return tree
}

// Flatten renders the tree as plain prose in document order. Headings
// become standalone sentences so the segment splitter never glues a
// heading onto the paragraph after it.
func Flatten(t *DocTree) string {
	var parts []string
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			if n.Title != "" {
				parts = append(parts, asSentence(n.Title))
			}
			if n.Text != "" {
				parts = append(parts, n.Text)
			}
			walk(n.Children)
		}
	}
	walk(t.Children)
	return strings.Join(parts, "\n\n")
}

func asSentence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") {
		return s
	}
	return s + "."
}

// Sections counts the titled nodes in the tree.
func Sections(t *DocTree) int {
	count := 0
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			if n.Title != "" {
				count++
			}
			walk(n.Children)
		}
	}
	walk(t.Children)
	return count
}
