package media

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// Kind distinguishes the two media families the pipeline accepts.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Preview is the lightweight stand-in stored on the placeholder record while
// the full asset uploads. Deriving real thumbnails is a codec concern handled
// elsewhere; this step is intentionally opaque and cheap.
type Preview struct {
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	Checksum    string `json:"checksum"`
	Kind        Kind   `json:"kind"`
}

// Derive builds a preview synchronously from the raw payload. Falls back to
// content sniffing when the declared type is missing or generic.
func Derive(payload []byte, declaredType string) Preview {
	ct := declaredType
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(payload)
	}
	sum := sha256.Sum256(payload)
	return Preview{
		ContentType: ct,
		SizeBytes:   int64(len(payload)),
		Checksum:    hex.EncodeToString(sum[:]),
		Kind:        DetectKind(ct),
	}
}

func DetectKind(contentType string) Kind {
	if strings.HasPrefix(contentType, "video/") {
		return KindVideo
	}
	return KindImage
}

// FileExt maps a content type to the filename extension used in destination
// paths. Unrecognized types get ".bin" rather than no extension so storage
// listings stay legible.
func FileExt(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	case "video/webm":
		return ".webm"
	default:
		return ".bin"
	}
}
