package domain

import (
	"net/url"
	"strings"
)

// Storage kinds for attachments.
const (
	StorageRemote = "remote"
	StorageLocal  = "local"
)

// Attachment kinds for the renderer.
const (
	KindImage = "image"
	KindVideo = "video"
	KindPDF   = "pdf"
	KindFile  = "file"
)

// Attachment is a canonical attachment record. After normalization URL is
// always an absolute, loadable reference.
type Attachment struct {
	URL          string  `json:"url"`
	OriginalName string  `json:"originalName"`
	MimeType     string  `json:"mimeType"`
	Size         int64   `json:"size"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	ThumbnailURL string  `json:"thumbnailUrl,omitempty"`
	Storage      string  `json:"storage"`
}

// Kind classifies the attachment MIME family for the renderer.
func (a Attachment) Kind() string {
	mt := strings.ToLower(a.MimeType)
	switch {
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case strings.HasPrefix(mt, "video/"):
		return KindVideo
	case mt == "application/pdf":
		return KindPDF
	default:
		return KindFile
	}
}

// NormalizeAttachments converts heterogeneous raw attachment payloads into
// canonical records. For each entry the URL is resolved from the first of:
// explicit url, storage path, storage-internal filename, against fileBase
// when not already absolute. Entries with no resolvable reference are
// dropped.
func NormalizeAttachments(raw []interface{}, fileBase string) []Attachment {
	out := make([]Attachment, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}

		ref := asString(m["url"])
		if ref == "" {
			ref = asString(m["path"])
		}
		if ref == "" {
			ref = asString(m["filename"])
		}
		if ref == "" {
			continue
		}

		a := Attachment{
			URL:          ResolveFileURL(ref, fileBase),
			OriginalName: asString(m["originalName"]),
			MimeType:     asString(m["mimeType"]),
			Size:         asInt64(m["size"]),
			Width:        int(asInt64(m["width"])),
			Height:       int(asInt64(m["height"])),
			Duration:     asFloat64(m["duration"]),
			Storage:      asString(m["storage"]),
		}
		if a.OriginalName == "" {
			a.OriginalName = asString(m["name"])
		}
		if a.MimeType == "" {
			a.MimeType = asString(m["contentType"])
		}
		if thumb := asString(m["thumbnailUrl"]); thumb != "" {
			a.ThumbnailURL = ResolveFileURL(thumb, fileBase)
		}
		if a.Storage != StorageLocal {
			a.Storage = StorageRemote
		}

		out = append(out, a)
	}
	return out
}

// ResolveFileURL resolves ref against fileBase unless it is already an
// absolute URL.
func ResolveFileURL(ref, fileBase string) string {
	if ref == "" {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}
	base := strings.TrimRight(fileBase, "/")
	return base + "/" + strings.TrimLeft(ref, "/")
}
