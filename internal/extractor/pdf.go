package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pageSource is the paginated view extractPages works on.
type pageSource interface {
	NumPage() int
	PageText(i int) (string, error)
}

type pdfPages struct {
	r *pdf.Reader
}

func (p pdfPages) NumPage() int {
	return p.r.NumPage()
}

// PageText returns the text of page i (1-based). The parser opens every
// text object with a newline; the one before the first line is dropped.
func (p pdfPages) PageText(i int) (string, error) {
	page := p.r.Page(i)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", err
	}
	return strings.TrimLeft(text, "\n"), nil
}

// extractPDF extracts every page of a PDF, one page per line group.
func extractPDF(content []byte) (text string, err error) {
	// The parser panics on some malformed inputs instead of returning errors.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("open PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	return extractPages(pdfPages{r: reader}), nil
}

// extractPages joins page texts with "\n". A page that fails, by error or
// panic, contributes an empty string so one bad page does not lose the rest.
func extractPages(src pageSource) string {
	n := src.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		pages = append(pages, pageText(src, i))
	}
	return strings.Join(pages, "\n")
}

func pageText(src pageSource, i int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	text, err := src.PageText(i)
	if err != nil {
		return ""
	}
	return text
}
