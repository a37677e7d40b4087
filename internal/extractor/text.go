package extractor

import "strings"

// extractText decodes content as UTF-8, dropping invalid byte sequences.
func extractText(content []byte) (string, error) {
	return strings.ToValidUTF8(string(content), ""), nil
}
