package indexer

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Default chunking parameters, measured in runes.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// ErrUnsupportedContent is returned for uploads whose text cannot be extracted.
var ErrUnsupportedContent = errors.New("unsupported content type")

// Chunker extracts plain text from uploads and splits it into overlapping windows.
type Chunker struct {
	parser  goldmark.Markdown
	size    int
	overlap int
}

// NewChunker creates a chunker. Non-positive size and out-of-range overlap fall back to the defaults.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = min(DefaultChunkOverlap, size/4)
	}
	return &Chunker{
		parser:  goldmark.New(goldmark.WithExtensions(extension.Table)),
		size:    size,
		overlap: overlap,
	}
}

// Chunk extracts the text of content and splits it.
func (c *Chunker) Chunk(content []byte, filename, mimeType string) ([]Chunk, error) {
	extracted, err := c.ExtractText(content, filename, mimeType)
	if err != nil {
		return nil, err
	}
	return c.Split(extracted), nil
}

// ExtractText returns the plain text of an upload. Markdown is rendered to text through
// its AST; plain text is used as-is. Anything else is rejected with ErrUnsupportedContent.
func (c *Chunker) ExtractText(content []byte, filename, mimeType string) (string, error) {
	switch contentKind(filename, mimeType) {
	case kindMarkdown:
		return c.markdownText(content), nil
	case kindText:
		if !utf8.Valid(content) {
			return "", ErrUnsupportedContent
		}
		return string(content), nil
	default:
		return "", ErrUnsupportedContent
	}
}

type kind int

const (
	kindUnknown kind = iota
	kindText
	kindMarkdown
)

func contentKind(filename, mimeType string) kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return kindMarkdown
	case ".txt", ".text", ".csv", ".log":
		return kindText
	}
	mt := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch {
	case mt == "text/markdown" || mt == "text/x-markdown":
		return kindMarkdown
	case strings.HasPrefix(mt, "text/"):
		return kindText
	}
	return kindUnknown
}

// SupportedFile reports whether filename has an extension the chunker can extract.
func SupportedFile(filename string) bool {
	return contentKind(filename, "") != kindUnknown
}

// markdownText walks the goldmark AST and emits block text separated by blank lines.
// Headings and list items keep their text, table rows are joined with " | ".
func (c *Chunker) markdownText(content []byte) string {
	doc := c.parser.Parser().Parse(text.NewReader(content))

	var b strings.Builder
	block := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s)
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
			block(nodeText(node, content))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			var code strings.Builder
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				code.Write(line.Value(content))
			}
			block(code.String())
			return ast.WalkSkipChildren, nil
		}
		if strings.Contains(n.Kind().String(), "Table") && n.Kind().String() != "Table" {
			block(tableRowText(n, content))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return b.String()
}

// nodeText concatenates the inline text below n.
func nodeText(n ast.Node, content []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func tableRowText(row ast.Node, content []byte) string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		cells = append(cells, strings.TrimSpace(nodeText(cell, content)))
	}
	return strings.Join(cells, " | ")
}

// Split cuts text into windows of at most size runes, each starting overlap runes
// before the end of the previous one. A cut prefers the last paragraph break,
// line break, sentence end or space in the second half of the window.
func (c *Chunker) Split(s string) []Chunk {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) == 0 {
		return []Chunk{}
	}

	var chunks []Chunk
	start := 0
	for {
		end := start + c.size
		if end >= len(runes) {
			chunks = appendChunk(chunks, runes[start:])
			break
		}

		cut := boundary(runes, start+c.size/2, end)
		chunks = appendChunk(chunks, runes[start:cut])

		next := cut - c.overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

func appendChunk(chunks []Chunk, runes []rune) []Chunk {
	t := strings.TrimSpace(string(runes))
	if t == "" {
		return chunks
	}
	return append(chunks, Chunk{Index: len(chunks), Text: t})
}

// boundary returns the rune offset in (from, to] to cut at, or to when none is found.
func boundary(runes []rune, from, to int) int {
	window := string(runes[from:to])
	for _, sep := range []string{"\n\n", "\n", ". ", " "} {
		if i := strings.LastIndex(window, sep); i >= 0 {
			return from + utf8.RuneCountInString(window[:i+len(sep)])
		}
	}
	return to
}
