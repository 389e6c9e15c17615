package extraction

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// Payload is the inline transferable form of an uploaded file: the raw bytes
// base64-encoded (no data-URI prefix) plus the declared MIME type.
type Payload struct {
	Data     string
	MIMEType string
}

// Encode reads a file and produces its inline payload. A failed read is
// returned to the caller, not retried.
func Encode(r io.Reader, mimeType string) (Payload, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Payload{}, fmt.Errorf("reading file: %w", err)
	}
	return Payload{
		Data:     base64.StdEncoding.EncodeToString(raw),
		MIMEType: mimeType,
	}, nil
}

// Bytes decodes the payload back to the raw file bytes
func (p Payload) Bytes() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return raw, nil
}

// IsVideo reports whether the payload is a video rather than a document
func (p Payload) IsVideo() bool {
	return strings.HasPrefix(p.MIMEType, "video/")
}
