package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

// multipartOverhead leaves room for boundaries and part headers on top of
// the file size limit.
const multipartOverhead = 1 << 20

var errFileRequired = domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("multipart field 'file' is required"))

type uploadedPart struct {
	name        string
	contentType string
	data        []byte
}

// readUploads parses the multipart body and returns every "file" part.
// ok is false when a response was already written.
func (rt *Router) readUploads(w http.ResponseWriter, r *http.Request) ([]uploadedPart, bool) {
	limit := rt.cfg.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeTooLarge(w, limit)
			return nil, false
		}
		writeError(w, r, errFileRequired)
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeError(w, r, errFileRequired)
		return nil, false
	}

	parts := make([]uploadedPart, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > limit {
			writeTooLarge(w, limit)
			return nil, false
		}
		data, err := readPart(fh)
		if err != nil {
			writeError(w, r, fmt.Errorf("read upload %s: %w", fh.Filename, err))
			return nil, false
		}
		parts = append(parts, uploadedPart{
			name:        fh.Filename,
			contentType: fh.Header.Get("Content-Type"),
			data:        data,
		})
	}
	return parts, true
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func writeTooLarge(w http.ResponseWriter, limit int64) {
	writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
		Error: fmt.Sprintf("file is too large: limit is %d bytes", limit),
	})
}

func (rt *Router) processFile(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Processor == nil {
		unavailable(w, "document processing")
		return
	}
	parts, ok := rt.readUploads(w, r)
	if !ok {
		return
	}
	part := parts[0]

	doc, err := rt.svc.Processor.Process(r.Context(), part.name, part.contentType, part.data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) listFiles(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Uploads == nil {
		unavailable(w, "file uploads")
		return
	}
	files, err := rt.svc.Uploads.List(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (rt *Router) uploadFiles(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Uploads == nil {
		unavailable(w, "file uploads")
		return
	}
	conversationID := r.PathValue("id")
	parts, ok := rt.readUploads(w, r)
	if !ok {
		return
	}

	records := make([]domain.UploadedFile, 0, len(parts))
	for _, part := range parts {
		record, err := rt.svc.Uploads.Submit(r.Context(), conversationID, part.name, part.contentType, part.data)
		if err != nil {
			writeError(w, r, err)
			return
		}
		records = append(records, *record)
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"files": records})
}

func (rt *Router) clearFiles(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Uploads == nil {
		unavailable(w, "file uploads")
		return
	}
	if err := rt.svc.Uploads.Clear(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) removeFile(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Uploads == nil {
		unavailable(w, "file uploads")
		return
	}
	if err := rt.svc.Uploads.Remove(r.Context(), r.PathValue("id"), r.PathValue("fileID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
