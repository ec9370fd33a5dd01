package submission

import (
	"mime"
	"path/filepath"
	"strings"
)

// allowedTypes maps each accepted MIME type to the extensions a file of
// that type may carry.
var allowedTypes = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/gif":  {".gif"},
	"image/webp": {".webp"},
	"audio/mpeg": {".mp3"},
	"audio/wav":  {".wav"},
	"audio/ogg":  {".ogg"},
	"video/mp4":  {".mp4"},
	"video/webm": {".webm"},
}

// NormalizeMIME strips parameters and lower-cases a Content-Type value.
func NormalizeMIME(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(raw); err == nil {
		return mediaType
	}
	if i := strings.IndexByte(raw, ';'); i >= 0 {
		raw = raw[:i]
	}
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidateType rejects a file unless its declared MIME type is allowed and
// its extension is one of those mapped to that type.
func ValidateType(mimeType, name string) error {
	exts, ok := allowedTypes[NormalizeMIME(mimeType)]
	if !ok {
		return ErrTypeNotAllowed
	}
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	for _, allowed := range exts {
		if ext == allowed {
			return nil
		}
	}
	return ErrExtensionMismatch
}

// ValidateUpload checks type and size of a fully read upload.
func ValidateUpload(u Upload) error {
	if err := ValidateType(u.MimeType, u.Name); err != nil {
		return err
	}
	if u.Size() > MaxFileSize {
		return ErrFileTooLarge
	}
	return nil
}

// ValidateUploads checks the count and every file. Nothing is stored until
// all of them pass.
func ValidateUploads(files []Upload) error {
	if len(files) > MaxFiles {
		return ErrTooManyFiles
	}
	for _, f := range files {
		if err := ValidateUpload(f); err != nil {
			return err
		}
	}
	return nil
}
