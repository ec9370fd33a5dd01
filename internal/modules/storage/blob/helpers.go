package blob

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// randomName returns an unguessable file name that keeps the lower-cased
// original extension.
func randomName(original string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(original)))
	if ext == "" || len(ext) > 10 || !isSafeSegment(ext) {
		ext = ".dat"
	}
	return randomID() + ext
}

// randomID is 32 hex characters drawn from a v4 UUID.
func randomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SafeName returns the base name of raw only when it passes isSafeSegment.
func SafeName(raw string) string {
	name := filepath.Base(strings.TrimSpace(raw))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return ""
	}
	if strings.HasPrefix(name, ".") || !isSafeSegment(name) {
		return ""
	}
	return name
}

// isSafeSegment returns true when s contains only alphanumerics, hyphens,
// underscores, or dots.
func isSafeSegment(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			continue
		}
		return false
	}
	return true
}

// resourceTypeOf mirrors the object-storage convention of filing audio with video.
func resourceTypeOf(mimeType string) string {
	mimeType = strings.ToLower(mimeType)
	if strings.HasPrefix(mimeType, "video/") || strings.HasPrefix(mimeType, "audio/") {
		return "video"
	}
	return "image"
}

func normalizeObjectKey(key string) string {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	return key
}

func encodeObjectKey(key string) string {
	parts := strings.Split(normalizeObjectKey(key), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func joinURLPath(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		for _, seg := range strings.Split(strings.TrimSpace(p), "/") {
			if seg = strings.TrimSpace(seg); seg != "" {
				segments = append(segments, seg)
			}
		}
	}
	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}
