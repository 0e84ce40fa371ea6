package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/clearpath/clearpath/errs"
)

// extractTextFromPDF opens path and extracts all page text, appending a
// [PAGE_BREAK:N] marker after each page (N is 1-indexed). Returns the
// annotated full text and the page count. A document whose text is
// empty after stripping markers fails with errs.ErrNoExtractableText.
func extractTextFromPDF(path string) (fullText string, totalPages int, err error) {
	// The pdf reader panics on some malformed documents; fold those into
	// the internal error kind instead of crashing the process.
	defer func() {
		if r := recover(); r != nil {
			err = errs.Internal("read pdf", fmt.Errorf("%v", r))
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", 0, errs.Internal("open pdf", err)
	}
	defer f.Close()

	totalPages = reader.NumPage()
	var b strings.Builder
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := reader.Page(pageNum)
		pageText := ""
		if !page.V.IsNull() {
			text, err := page.GetPlainText(nil)
			if err == nil {
				pageText = text
			}
			// A single unreadable page is tolerated; the document fails
			// only when nothing at all is extractable.
		}
		b.WriteString(sanitizePageText(pageText))
		fmt.Fprintf(&b, "\n[PAGE_BREAK:%d]\n", pageNum)
	}
	fullText = b.String()

	stripped := strings.TrimSpace(markerRe.ReplaceAllString(fullText, ""))
	if stripped == "" {
		return "", 0, fmt.Errorf("%w: %q contains no extractable text (scanned image-only PDFs are not supported)",
			errs.ErrNoExtractableText, filepath.Base(path))
	}
	return fullText, totalPages, nil
}
