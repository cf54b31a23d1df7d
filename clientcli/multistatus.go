package clientcli

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
)

const allpropBody = `<?xml version="1.0" encoding="utf-8"?><D:propfind xmlns:D="DAV:"><D:allprop/></D:propfind>`

type multistatus struct {
	XMLName   xml.Name     `xml:"DAV: multistatus"`
	Responses []msResponse `xml:"DAV: response"`
}

type msResponse struct {
	Href      string       `xml:"DAV: href"`
	Propstats []msPropstat `xml:"DAV: propstat"`
}

type msPropstat struct {
	Prop   msProp `xml:"DAV: prop"`
	Status string `xml:"DAV: status"`
}

type msProp struct {
	DisplayName   string `xml:"DAV: displayname"`
	ContentLength string `xml:"DAV: getcontentlength"`
	ContentType   string `xml:"DAV: getcontenttype"`
	ETag          string `xml:"DAV: getetag"`
	LastModified  string `xml:"DAV: getlastmodified"`
	ResourceType  struct {
		Collection *struct{} `xml:"DAV: collection"`
	} `xml:"DAV: resourcetype"`
}

// parseMultistatus decodes a 207 body into one ObjectInfo per response.
// Path holds the decoded href path. Only 200 propstats are read.
func parseMultistatus(r io.Reader) ([]ObjectInfo, error) {
	var ms multistatus
	if err := xml.NewDecoder(r).Decode(&ms); err != nil {
		return nil, err
	}

	out := make([]ObjectInfo, 0, len(ms.Responses))
	for _, resp := range ms.Responses {
		u, err := url.Parse(resp.Href)
		if err != nil {
			return nil, fmt.Errorf("href %q: %w", resp.Href, err)
		}

		info := ObjectInfo{Path: u.Path}
		for _, ps := range resp.Propstats {
			if ps.Status != "" && !strings.Contains(ps.Status, " 200 ") {
				continue
			}
			p := ps.Prop
			info.Name = p.DisplayName
			info.IsCollection = p.ResourceType.Collection != nil
			info.ContentType = p.ContentType
			info.ETag = strings.Trim(p.ETag, `"`)
			if p.ContentLength != "" {
				info.Size, _ = strconv.ParseInt(p.ContentLength, 10, 64)
			}
			if p.LastModified != "" {
				if t, err := http.ParseTime(p.LastModified); err == nil {
					info.UpdatedAt = t
				}
			}
		}
		if info.Name == "" {
			info.Name = path.Base(strings.TrimSuffix(info.Path, "/"))
		}
		out = append(out, info)
	}

	return out, nil
}
