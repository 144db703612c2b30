package document

import (
	"mime"
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatPlainText   Format = "text"
	FormatPDF         Format = "pdf"
	FormatDOCX        Format = "docx"
	FormatXLSX        Format = "xlsx"
	FormatUnsupported Format = "unsupported"
)

const (
	mediaTypePDF  = "application/pdf"
	mediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mediaTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var textExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".markdown": {}, ".json": {}, ".csv": {}, ".log": {},
	".yaml": {}, ".yml": {}, ".xml": {}, ".html": {}, ".htm": {},
}

// Classify picks the extraction strategy for a file. The declared media type
// wins over the extension when it is specific.
func Classify(name, declaredType string) Format {
	mediaType := baseMediaType(declaredType)
	ext := strings.ToLower(filepath.Ext(name))

	switch {
	case mediaType == mediaTypePDF || ext == ".pdf":
		return FormatPDF
	case mediaType == mediaTypeDOCX || ext == ".docx":
		return FormatDOCX
	case mediaType == mediaTypeXLSX || ext == ".xlsx":
		return FormatXLSX
	case strings.HasPrefix(mediaType, "text/") || mediaType == "application/json":
		return FormatPlainText
	}
	if _, ok := textExtensions[ext]; ok {
		return FormatPlainText
	}
	return FormatUnsupported
}

func (f Format) label() string {
	switch f {
	case FormatPDF:
		return "PDF"
	case FormatDOCX:
		return "DOCX"
	case FormatXLSX:
		return "XLSX"
	default:
		return string(f)
	}
}

func baseMediaType(declaredType string) string {
	declaredType = strings.TrimSpace(declaredType)
	if declaredType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(declaredType)
	if err != nil {
		mediaType, _, _ = strings.Cut(declaredType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
