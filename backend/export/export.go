package export

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/spf13/afero"
)

type Format string

const (
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"

	DefaultHistoryName = "prompts"
	DefaultPromptFile  = "prompt.txt"
)

func Formats() []Format {
	return []Format{FormatPDF, FormatMarkdown, FormatText}
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf":
		return FormatPDF, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	}
	return "", fmt.Errorf("unsupported export format %q, must be one of pdf, markdown, text", s)
}

func (f Format) Extension() string {
	switch f {
	case FormatPDF:
		return ".pdf"
	case FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

// Label is the heading of the n-th prompt, counting from 1.
func Label(n int) string {
	return fmt.Sprintf("Prompt %d:", n)
}

type Exporter struct {
	fs       *afero.Afero
	fontPath string
	compress bool
}

type Option func(*Exporter)

// WithFont embeds a TrueType font so prompts outside Latin-1 render correctly.
func WithFont(path string) Option {
	return func(e *Exporter) {
		e.fontPath = path
	}
}

func NewExporter(fs *afero.Afero, opts ...Option) *Exporter {
	e := &Exporter{
		fs:       fs,
		compress: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WriteHistory renders prompts in the given format and writes them to path. The
// returned path carries the extension of the format when path has none.
func (e *Exporter) WriteHistory(path string, format Format, prompts []string) (string, error) {
	if len(prompts) == 0 {
		return "", fmt.Errorf("history is empty, nothing to export")
	}
	if filepath.Ext(path) == "" {
		path += format.Extension()
	}

	var buf bytes.Buffer
	if err := e.Render(&buf, format, prompts); err != nil {
		return "", err
	}

	if err := e.write(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// WritePrompt stores a single prompt as plain text.
func (e *Exporter) WritePrompt(path string, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("prompt is empty, nothing to save")
	}
	return e.write(path, []byte(prompt+"\n"))
}

func (e *Exporter) Render(w io.Writer, format Format, prompts []string) error {
	switch format {
	case FormatPDF:
		return e.renderPDF(w, prompts)
	case FormatMarkdown:
		return renderMarkdown(w, prompts)
	case FormatText:
		return renderText(w, prompts)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

func (e *Exporter) write(path string, content []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := e.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := e.fs.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (e *Exporter) renderPDF(w io.Writer, prompts []string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(e.compress)
	pdf.SetTitle("Prompt History", true)
	pdf.AddPage()

	translate := func(s string) string { return s }
	if e.fontPath != "" {
		font, err := e.fs.ReadFile(e.fontPath)
		if err != nil {
			return fmt.Errorf("font file not found: %s: %w", e.fontPath, err)
		}
		pdf.AddUTF8FontFromBytes("Prompt", "", font)
		pdf.SetFont("Prompt", "", 12)
	} else {
		pdf.SetFont("Helvetica", "", 12)
		translate = pdf.UnicodeTranslatorFromDescriptor("")
	}

	for i, prompt := range prompts {
		pdf.MultiCell(0, 10, Label(i+1), "", "", false)
		pdf.MultiCell(0, 10, translate(prompt), "", "", false)
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

func renderMarkdown(w io.Writer, prompts []string) error {
	var b strings.Builder
	b.WriteString("# Prompt History\n")
	for i, prompt := range prompts {
		fmt.Fprintf(&b, "\n## %s\n\n```\n%s\n```\n", Label(i+1), prompt)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderText(w io.Writer, prompts []string) error {
	var b strings.Builder
	for i, prompt := range prompts {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\n%s\n", Label(i+1), prompt)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
