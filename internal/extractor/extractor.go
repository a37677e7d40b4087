// Package extractor turns uploaded files into plain text for the prompt.
package extractor

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"chatrelay/internal/observability"
)

// DefaultFilename is used when the upload carries no name.
const DefaultFilename = "arquivo"

// Handler extracts text from the raw bytes of one file format.
type Handler interface {
	Extract(content []byte) (string, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(content []byte) (string, error)

// Extract calls f(content).
func (f HandlerFunc) Extract(content []byte) (string, error) {
	return f(content)
}

// Result is the outcome of one extraction. When Supported is false the
// extension has no handler and Text is empty.
type Result struct {
	Text      string
	Filename  string
	Supported bool
}

// codeExtensions are prompted with the "code file" header.
var codeExtensions = []string{
	".py", ".js", ".html", ".css", ".json", ".c", ".cpp", ".java",
	".sql", ".xml", ".md", ".ts", ".yml", ".yaml",
}

// Extractor dispatches on the lowercase file extension.
type Extractor struct {
	handlers map[string]Handler
}

// New creates an Extractor with the PDF, DOCX and plain text handlers.
// tempDir is where DOCX uploads are staged; empty means os.TempDir().
func New(tempDir string) *Extractor {
	e := &Extractor{handlers: make(map[string]Handler)}

	e.Register(".pdf", HandlerFunc(extractPDF))
	e.Register(".docx", &docxHandler{dir: tempDir})

	text := HandlerFunc(extractText)
	e.Register(".txt", text)
	for _, ext := range codeExtensions {
		e.Register(ext, text)
	}

	return e
}

// Register binds a handler to an extension such as ".pdf".
func (e *Extractor) Register(ext string, h Handler) {
	e.handlers[strings.ToLower(ext)] = h
}

// Extract reads the upload and returns its text. An unknown extension is not
// an error: the result has Supported == false. Read and parse failures are
// returned as errors.
func (e *Extractor) Extract(filename string, r io.Reader) (Result, error) {
	if filename == "" {
		filename = DefaultFilename
	}
	ext := Ext(filename)
	res := Result{Filename: filename}

	h, ok := e.handlers[ext]
	if !ok {
		observability.RecordExtraction(ext, observability.OutcomeUnsupported)
		return res, nil
	}
	res.Supported = true

	content, err := io.ReadAll(r)
	if err != nil {
		observability.RecordExtraction(ext, observability.OutcomeError)
		return res, fmt.Errorf("read upload %s: %w", filename, err)
	}

	text, err := h.Extract(content)
	if err != nil {
		observability.RecordExtraction(ext, observability.OutcomeError)
		return res, fmt.Errorf("extract %s: %w", filename, err)
	}

	observability.RecordExtraction(ext, observability.OutcomeOK)
	res.Text = text
	return res, nil
}

// SupportedExtensions lists the registered extensions in sorted order.
func (e *Extractor) SupportedExtensions() []string {
	exts := make([]string, 0, len(e.handlers))
	for ext := range e.handlers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Ext returns the lowercase extension of filename, including the dot.
func Ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// IsCode reports whether filename has a source code or markup extension.
func IsCode(filename string) bool {
	ext := Ext(filename)
	for _, c := range codeExtensions {
		if ext == c {
			return true
		}
	}
	return false
}
