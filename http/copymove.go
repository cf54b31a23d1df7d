package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sagarc03/davgate"
)

func (h *Handler) handleCopy(w http.ResponseWriter, r *http.Request) {
	h.transfer(w, r, false)
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request) {
	h.transfer(w, r, true)
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request, move bool) {
	src, ok := h.target(w, r)
	if !ok {
		return
	}

	dst, err := h.resolver.ResolveDestination(r.Header.Get("Destination"))
	if err != nil {
		HandleError(w, err)
		return
	}

	opts, err := transferOptions(r, move)
	if err != nil {
		HandleError(w, err)
		return
	}

	var result davgate.TransferResult
	if move {
		result, err = davgate.Move(r.Context(), src.Bucket, src.Key, dst.Bucket, dst.Key, opts)
	} else {
		result, err = davgate.Copy(r.Context(), src.Bucket, src.Key, dst.Bucket, dst.Key, opts)
	}
	if err != nil {
		HandleError(w, err)
		return
	}

	h.logger.DebugContext(r.Context(), "transfer complete",
		"method", r.Method,
		"source", src.Bucket.Name()+"/"+src.Key,
		"destination", dst.Bucket.Name()+"/"+dst.Key,
		"objects", result.Objects,
	)

	if result.Created {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// transferOptions reads Overwrite and Depth. COPY accepts depth 0 or
// infinity; MOVE only infinity.
func transferOptions(r *http.Request, move bool) (davgate.TransferOptions, error) {
	opts := davgate.TransferOptions{Overwrite: true, Depth: davgate.DepthInfinity}

	switch strings.ToUpper(strings.TrimSpace(r.Header.Get("Overwrite"))) {
	case "", "T":
	case "F":
		opts.Overwrite = false
	default:
		return opts, fmt.Errorf("overwrite header: %w", davgate.ErrInvalidInput)
	}

	depth, ok := davgate.ParseDepth(r.Header.Get("Depth"))
	if !ok || depth == davgate.DepthOne || (move && depth != davgate.DepthInfinity) {
		return opts, fmt.Errorf("depth header: %w", davgate.ErrInvalidInput)
	}
	opts.Depth = depth

	return opts, nil
}
