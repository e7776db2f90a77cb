package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// SourceDoc is a parsed input document flattened to analysis-ready
// text. Headings survive as markdown marker lines so document structure
// reaches the language model intact.
type SourceDoc struct {
	Title string
	Text  string
}

// Parser converts raw document bytes into a SourceDoc.
type Parser interface {
	Parse(r io.Reader, filename string) (*SourceDoc, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// flatWriter accumulates headings and paragraphs into markdown-flavored
// flat text, collapsing repeated blank lines.
type flatWriter struct {
	sb strings.Builder
}

func (w *flatWriter) heading(level int, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	w.gap()
	w.sb.WriteString(strings.Repeat("#", level))
	w.sb.WriteString(" ")
	w.sb.WriteString(title)
}

func (w *flatWriter) paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	w.gap()
	w.sb.WriteString(text)
}

func (w *flatWriter) gap() {
	if w.sb.Len() > 0 {
		w.sb.WriteString("\n\n")
	}
}

func (w *flatWriter) String() string {
	return w.sb.String()
}
