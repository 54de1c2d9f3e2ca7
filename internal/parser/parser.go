// Package parser reduces uploaded books and scripts (txt, md, html, pdf,
// docx) to a doctree and then to plain text.
package parser

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/scenegest/internal/chunker"
	"github.com/dgallion1/scenegest/internal/doctree"
)

// Parser converts raw document bytes into a DocTree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.DocTree, error)
}

// Options tune format-specific behaviour.
type Options struct {
	// FallbackPdftotext shells out to pdftotext when the Go PDF reader fails.
	FallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.FallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Document is an uploaded file flattened for generation.
type Document struct {
	Title    string
	Text     string
	Words    int
	Sections int
}

// Read parses r with the parser for filename and flattens the result.
func Read(r io.Reader, filename string, opts Options) (*Document, error) {
	p, err := ForFile(filename, opts)
	if err != nil {
		return nil, err
	}
	tree, err := p.Parse(r, filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	text := doctree.Flatten(tree)
	return &Document{
		Title:    tree.Title,
		Text:     text,
		Words:    chunker.CountWords(text),
		Sections: doctree.Sections(tree),
	}, nil
}

// ReadBytes is Read over an in-memory upload.
func ReadBytes(data []byte, filename string, opts Options) (*Document, error) {
	return Read(bytes.NewReader(data), filename, opts)
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
