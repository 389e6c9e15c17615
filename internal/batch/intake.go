package batch

import (
	"path/filepath"
	"strings"
)

// allowedTypes is the intake filter: PDFs plus the video container types
// phone screen recordings come in
var allowedTypes = map[string]bool{
	"application/pdf": true,
	"video/mp4":       true,
	"video/quicktime": true,
	"video/x-m4v":     true,
}

// normalizeContentType lowercases the declared content type and falls back to
// the file extension when the browser sends none
func normalizeContentType(filename, contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType != "" {
		return contentType
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".m4v":
		return "video/x-m4v"
	default:
		return "application/octet-stream"
	}
}

// typeAllowed reports whether a content type is accepted at intake
func typeAllowed(contentType string) bool {
	return allowedTypes[contentType]
}
