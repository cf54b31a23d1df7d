package http

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/sagarc03/davgate"
)

// handlePost stores every "file" part of a multipart/form-data body in the
// target collection, creating it if needed.
func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	t, ok := h.target(w, r)
	if !ok {
		return
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Expected multipart/form-data")
		return
	}

	h.limitBody(w, r)

	mr, err := r.MultipartReader()
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed multipart body")
		return
	}

	created := []davgate.ResourceEntry{}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				HandleError(w, err)
				return
			}
			WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed multipart body")
			return
		}

		if part.FormName() != "file" || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		entry, err := h.storePart(r, t, part.FileName(), part.Header.Get("Content-Type"), part)
		_ = part.Close()
		if err != nil {
			HandleError(w, err)
			return
		}
		created = append(created, entry)
	}

	if len(created) == 0 {
		WriteError(w, http.StatusBadRequest, "invalid_request", "No file parts in upload")
		return
	}

	_ = WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) storePart(r *http.Request, t Target, filename, declared string, content io.Reader) (davgate.ResourceEntry, error) {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	key := name
	if t.Key != "" {
		key = t.Key + "/" + name
	}
	if !davgate.IsValidKey(key) {
		return davgate.ResourceEntry{}, fmt.Errorf("upload %q: %w", filename, davgate.ErrInvalidInput)
	}

	if declared == "application/octet-stream" {
		declared = ""
	}
	contentType, body, err := detectContentType(key, declared, content)
	if err != nil {
		return davgate.ResourceEntry{}, err
	}

	entry, _, err := t.Bucket.Put(r.Context(), key, davgate.PutOptions{ContentType: contentType}, body)
	if err != nil {
		return davgate.ResourceEntry{}, err
	}

	h.logger.DebugContext(r.Context(), "stored upload", "bucket", t.Bucket.Name(), "key", key, "size", entry.Size)
	return entry, nil
}
