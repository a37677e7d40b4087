// Package prompt assembles the single query string sent upstream.
package prompt

import (
	"fmt"
	"strings"

	"chatrelay/internal/core"
	"chatrelay/internal/extractor"
)

// MaxFileChars is the number of characters of file text included in a query.
// Longer text is cut without notice.
const MaxFileChars = 14000

const (
	codeHeader = "📄 Arquivo de código: %s\nExplique, debug ou responda conforme a solicitação do usuário.\n\n"
	fileHeader = "📄 Conteúdo do arquivo: %s\n\n"
	separator  = "\n\n"
)

// Assemble joins the trimmed message and the headed, truncated file text.
// It returns an empty-input error when both are blank.
func Assemble(message, fileText, filename string) (string, error) {
	var parts []string

	if m := strings.TrimSpace(message); m != "" {
		parts = append(parts, m)
	}

	if strings.TrimSpace(fileText) != "" {
		parts = append(parts, Header(filename)+Truncate(fileText, MaxFileChars))
	}

	if len(parts) == 0 {
		return "", core.NewEmptyInputError()
	}
	return strings.Join(parts, separator), nil
}

// Header returns the line introducing the file's content.
func Header(filename string) string {
	format := fileHeader
	if extractor.IsCode(filename) {
		format = codeHeader
	}
	return fmt.Sprintf(format, filename)
}

// Truncate returns at most n characters (runes) of s.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
