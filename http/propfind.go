package http

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sagarc03/davgate"
)

type multistatus struct {
	XMLName   xml.Name       `xml:"D:multistatus"`
	XMLNS     string         `xml:"xmlns:D,attr"`
	Responses []propResponse `xml:"D:response"`
}

type propResponse struct {
	Href     string   `xml:"D:href"`
	Propstat propstat `xml:"D:propstat"`
}

type propstat struct {
	Prop   prop   `xml:"D:prop"`
	Status string `xml:"D:status"`
}

type prop struct {
	DisplayName   string       `xml:"D:displayname"`
	ResourceType  resourceType `xml:"D:resourcetype"`
	ContentLength *int64       `xml:"D:getcontentlength,omitempty"`
	ContentType   string       `xml:"D:getcontenttype,omitempty"`
	LastModified  string       `xml:"D:getlastmodified,omitempty"`
	ETag          string       `xml:"D:getetag,omitempty"`
}

type resourceType struct {
	Collection *struct{} `xml:"D:collection,omitempty"`
}

// propfindRequest is only decoded to reject malformed bodies; every
// request is answered as allprop.
type propfindRequest struct {
	XMLName xml.Name `xml:"DAV: propfind"`
}

// handlePropfind lists the target (Depth 0) or the target and its immediate
// members (Depth 1). Depth infinity is answered as Depth 1.
func (h *Handler) handlePropfind(w http.ResponseWriter, r *http.Request) {
	t, ok := h.target(w, r)
	if !ok {
		return
	}

	depth, ok := davgate.ParseDepth(r.Header.Get("Depth"))
	if !ok {
		HandleError(w, fmt.Errorf("depth header: %w", davgate.ErrInvalidInput))
		return
	}

	if err := readPropfindBody(r.Body); err != nil {
		HandleError(w, err)
		return
	}

	self, err := t.Bucket.Stat(r.Context(), t.Key)
	if err != nil {
		HandleError(w, err)
		return
	}

	entries := []davgate.ResourceEntry{self}
	if self.IsCollection && depth != davgate.DepthZero {
		children, err := t.Bucket.Children(r.Context(), t.Key)
		if err != nil {
			HandleError(w, err)
			return
		}
		entries = append(entries, children...)
	}

	ms := multistatus{XMLNS: "DAV:"}
	for _, e := range entries {
		ms.Responses = append(ms.Responses, h.propResponse(t.Bucket.Name(), e))
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	_, _ = io.WriteString(w, xml.Header)
	if err := xml.NewEncoder(w).Encode(ms); err != nil {
		h.logger.Error("encode multistatus", "error", err)
	}
}

func readPropfindBody(body io.Reader) error {
	var req propfindRequest
	err := xml.NewDecoder(io.LimitReader(body, 1<<20)).Decode(&req)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("propfind body: %w: %w", davgate.ErrInvalidInput, err)
}

func (h *Handler) propResponse(bucket string, e davgate.ResourceEntry) propResponse {
	p := prop{DisplayName: e.Name()}
	if e.Path == "" {
		p.DisplayName = bucket
	}

	if e.IsCollection {
		p.ResourceType.Collection = &struct{}{}
	} else {
		size := e.Size
		p.ContentLength = &size
		p.ContentType = e.ContentType
		if e.ETag != "" {
			p.ETag = quoteETag(e.ETag)
		}
	}

	if !e.LastModified.IsZero() {
		p.LastModified = e.LastModified.UTC().Format(http.TimeFormat)
	}

	return propResponse{
		Href: h.resolver.Href(bucket, e.Path, e.IsCollection),
		Propstat: propstat{
			Prop:   p,
			Status: "HTTP/1.1 200 OK",
		},
	}
}
