package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

// extractPDF reads every page in one pass. When the full pass faults it
// retries page by page and keeps whatever pages decode.
func extractPDF(data []byte) (string, error) {
	reader, err := openPDF(data)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return "", domain.NewExtractionError(domain.ErrEmptyContent, emptyPDFMessage, err)
		}
		return "", err
	}

	text, err := pdfFullText(reader)
	if err != nil {
		slog.Warn("pdf_full_pass_failed", "pages", reader.NumPage(), "error", err)
		text = pdfPageText(reader)
	}

	if strings.TrimSpace(text) == "" {
		return "", domain.NewExtractionError(domain.ErrEmptyContent, emptyPDFMessage, errors.New("no text layer"))
	}
	return text, nil
}

func openPDF(data []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("open pdf: %v", r)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func pdfFullText(reader *pdf.Reader) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf text extraction panicked: %v", r)
		}
	}()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func pdfPageText(reader *pdf.Reader) string {
	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		text, err := pdfSinglePage(reader, i)
		if err != nil {
			slog.Warn("pdf_page_skipped", "page", i, "error", err)
			continue
		}
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	return b.String()
}

func pdfSinglePage(reader *pdf.Reader, index int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d panicked: %v", index, r)
		}
	}()

	page := reader.Page(index)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
