package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/core/ports"
)

// ProcessDocumentUseCase is the synchronous extraction path behind the
// document-processing endpoint: extract, normalize and report sizes.
type ProcessDocumentUseCase struct {
	extractor  ports.TextExtractor
	detector   ports.FormatDetector
	normalizer *Normalizer
}

func NewProcessDocumentUseCase(
	extractor ports.TextExtractor,
	detector ports.FormatDetector,
	normalizer *Normalizer,
) *ProcessDocumentUseCase {
	if normalizer == nil {
		normalizer = NewNormalizer(DefaultMaxContentChars)
	}
	return &ProcessDocumentUseCase{
		extractor:  extractor,
		detector:   detector,
		normalizer: normalizer,
	}
}

func (uc *ProcessDocumentUseCase) Process(ctx context.Context, name, declaredType string, data []byte) (*domain.ExtractedDocument, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process document", errors.New("file name is required"))
	}

	text, err := uc.extractor.Extract(ctx, name, declaredType, data)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	content, err := uc.normalizer.Normalize(text)
	if err != nil {
		return nil, fmt.Errorf("normalize text: %w", err)
	}

	format := formatLabel(name)
	if uc.detector != nil {
		format = uc.detector.DetectFormat(name, declaredType)
	}
	return &domain.ExtractedDocument{
		Content:         content,
		Format:          format,
		OriginalSize:    int64(len(data)),
		ProcessedLength: utf8.RuneCountInString(content),
	}, nil
}
