package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

const (
	unsupportedHint = "Please upload PDF, DOCX, XLSX, or text files"
	emptyPDFMessage = "No text content found in PDF. The PDF might be image-based or password-protected."
)

// Extractor turns uploaded bytes into plain text in-process.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) DetectFormat(name, declaredType string) string {
	return string(Classify(name, declaredType))
}

func (e *Extractor) Extract(ctx context.Context, name, declaredType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	format := Classify(name, declaredType)
	var (
		text string
		err  error
	)
	switch format {
	case FormatPlainText:
		text, err = decodeText(data, declaredType)
	case FormatPDF:
		text, err = extractPDF(data)
	case FormatDOCX:
		text, err = extractDOCX(data)
	case FormatXLSX:
		text, err = extractXLSX(data)
	default:
		return "", unsupportedError(name, declaredType)
	}
	if err != nil {
		var extractErr *domain.ExtractionError
		if errors.As(err, &extractErr) {
			return "", err
		}
		slog.Warn("document_parse_failed", "name", name, "format", string(format), "error", err)
		return "", domain.NewExtractionError(
			domain.ErrParseFailure,
			fmt.Sprintf("failed to parse %s file: %v", format.label(), err),
			err,
		)
	}
	return text, nil
}

func unsupportedError(name, declaredType string) error {
	kind := strings.ToLower(filepath.Ext(name))
	if kind == "" {
		kind = strings.TrimSpace(declaredType)
	}
	if kind == "" {
		kind = "unknown"
	}
	return domain.NewExtractionError(
		domain.ErrUnsupportedFormat,
		fmt.Sprintf("unsupported file type: %s. %s", kind, unsupportedHint),
		fmt.Errorf("no extractor for %q", name),
	)
}
