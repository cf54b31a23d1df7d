package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how much of a body is buffered for content sniffing.
const sniffLen = 3072

// detectContentType returns declared when set, else the type implied by the
// key's extension, else a type sniffed from the first bytes of body. The
// returned reader replays any bytes consumed while sniffing.
func detectContentType(key, declared string, body io.Reader) (string, io.Reader, error) {
	if declared != "" {
		return declared, body, nil
	}

	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t, body, nil
	}

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(body, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("detect content type: %w", err)
	}
	buf = buf[:n]

	return mimetype.Detect(buf).String(), io.MultiReader(bytes.NewReader(buf), body), nil
}
