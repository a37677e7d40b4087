package extractor

import (
	"fmt"
	"os"
	"strings"

	"code.sajari.com/docconv/v2"
)

// docxHandler stages the upload on disk because extraction works from a path.
type docxHandler struct {
	dir string
}

func (h *docxHandler) Extract(content []byte) (string, error) {
	f, err := os.CreateTemp(h.dir, "chatrelay-*.docx")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer func() {
		_ = os.Remove(path) //nolint:errcheck
	}()

	if _, err := f.Write(content); err != nil {
		_ = f.Close() //nolint:errcheck
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return docxText(path)
}

// docxText converts the DOCX at path. The path must keep its .docx suffix,
// docconv picks the converter from it.
func docxText(path string) (text string, err error) {
	// Archives without [Content_Types].xml make the converter panic.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("open DOCX: %v", r)
		}
	}()

	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", fmt.Errorf("open DOCX: %w", err)
	}
	return strings.TrimSpace(res.Body), nil
}
