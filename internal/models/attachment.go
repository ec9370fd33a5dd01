package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/vbg-space/core/internal/modules/storage/blob"
)

// Category groups attachments for display.
type Category string

const (
	CategoryImage Category = "image"
	CategoryVideo Category = "video"
	CategoryAudio Category = "audio"
	CategoryOther Category = "other"
)

var extCategories = map[string]Category{
	".jpg": CategoryImage, ".jpeg": CategoryImage, ".png": CategoryImage,
	".gif": CategoryImage, ".webp": CategoryImage,
	".mp3": CategoryAudio, ".wav": CategoryAudio, ".ogg": CategoryAudio,
	".mp4": CategoryVideo, ".webm": CategoryVideo,
}

// CategoryOf derives the category from the MIME type, falling back to the
// file extension.
func CategoryOf(mimeType, name string) Category {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return CategoryImage
	case strings.HasPrefix(mimeType, "video/"):
		return CategoryVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return CategoryAudio
	}
	if c, ok := extCategories[strings.ToLower(filepath.Ext(name))]; ok {
		return c
	}
	return CategoryOther
}

// Attachment is one stored file of a testimonial.
type Attachment struct {
	Name       string          `json:"name"`
	Descriptor blob.Descriptor `json:"descriptor"`
	MimeType   string          `json:"mime_type"`
	Size       int64           `json:"size"`
	Category   Category        `json:"category"`
}

type attachmentWire struct {
	Name       string           `json:"name"`
	Descriptor *blob.Descriptor `json:"descriptor"`
	MimeType   string           `json:"mime_type"`
	Size       int64            `json:"size"`
	Category   Category         `json:"category"`

	// flat shape written by the first version of the service
	Nom          string `json:"nom"`
	URL          string `json:"url"`
	SecureURL    string `json:"secure_url"`
	PublicID     string `json:"public_id"`
	ResourceType string `json:"resource_type"`
	Type         string `json:"type"`
	Taille       int64  `json:"taille"`
}

// UnmarshalJSON reads both the current shape and the legacy flat shape.
func (a *Attachment) UnmarshalJSON(data []byte) error {
	var w attachmentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Descriptor != nil {
		*a = Attachment{
			Name:       w.Name,
			Descriptor: *w.Descriptor,
			MimeType:   w.MimeType,
			Size:       w.Size,
			Category:   w.Category,
		}
		if a.Category == "" {
			a.Category = CategoryOf(a.MimeType, a.Name)
		}
		return nil
	}

	name := w.Nom
	if name == "" {
		name = w.Name
	}
	mimeType := w.Type
	if mimeType == "" {
		mimeType = w.MimeType
	}
	size := w.Taille
	if size == 0 {
		size = w.Size
	}
	*a = Attachment{
		Name:       name,
		Descriptor: legacyDescriptor(w),
		MimeType:   mimeType,
		Size:       size,
		Category:   CategoryOf(mimeType, name),
	}
	return nil
}

func legacyDescriptor(w attachmentWire) blob.Descriptor {
	url := strings.TrimSpace(w.SecureURL)
	if url == "" {
		url = strings.TrimSpace(w.URL)
	}
	resourceType := "image"
	if w.ResourceType == "video" || w.ResourceType == "audio" {
		resourceType = "video"
	}
	if id := strings.TrimSpace(w.PublicID); id != "" {
		return blob.Remote(url, id, resourceType)
	}
	lower := strings.ToLower(url)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return blob.Remote(url, "", resourceType)
	}
	return blob.Local(path.Base(strings.ReplaceAll(url, "\\", "/")))
}

// Attachments stores an attachment list as a JSON column, tolerating
// legacy rows.
type Attachments []Attachment

func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Attachment(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *Attachments) Scan(value interface{}) error {
	if a == nil {
		return fmt.Errorf("models.Attachments: Scan on nil pointer")
	}
	if value == nil {
		*a = Attachments{}
		return nil
	}

	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("models.Attachments: unsupported Scan type %T", value)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		*a = Attachments{}
		return nil
	}
	var list []Attachment
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return fmt.Errorf("models.Attachments: %w", err)
	}
	*a = list
	return nil
}
