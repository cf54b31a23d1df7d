package http

import (
	"net/http"
	"strings"

	"github.com/sagarc03/davgate"
)

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	t, ok := h.target(w, r)
	if !ok {
		return
	}

	if t.Key == "" {
		HandleError(w, davgate.ErrMethodNotAllowed)
		return
	}

	h.limitBody(w, r)

	contentType, body, err := detectContentType(t.Key, r.Header.Get("Content-Type"), r.Body)
	if err != nil {
		HandleError(w, err)
		return
	}

	entry, created, err := t.Bucket.Put(r.Context(), t.Key, davgate.PutOptions{
		ContentType:    contentType,
		IfMatch:        r.Header.Get("If-Match"),
		IfNoneMatchAny: strings.TrimSpace(r.Header.Get("If-None-Match")) == "*",
	}, body)
	if err != nil {
		HandleError(w, err)
		return
	}

	if entry.ETag != "" {
		w.Header().Set("ETag", quoteETag(entry.ETag))
	}

	if created {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	t, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := t.Bucket.Delete(r.Context(), t.Key); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMkcol(w http.ResponseWriter, r *http.Request) {
	t, ok := h.target(w, r)
	if !ok {
		return
	}

	// MKCOL with a body asks for server-defined content we do not support.
	if r.ContentLength > 0 {
		WriteError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "MKCOL body not supported")
		return
	}

	if _, err := t.Bucket.Mkcol(r.Context(), t.Key); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}
