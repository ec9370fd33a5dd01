package moderation

import (
	"time"

	"github.com/vbg-space/core/internal/models"
	"github.com/vbg-space/core/internal/pkg/apperr"
)

const (
	PageSize      = 20
	previewLength = 180
)

var (
	ErrInvalidID     = apperr.New(apperr.KindValidation, "invalid id")
	ErrNotFound      = apperr.New(apperr.KindNotFound, "testimonial not found")
	ErrInvalidStatus = apperr.New(apperr.KindInvalidStatus, "invalid status")
)

// Stats counts testimonials per status.
type Stats struct {
	Total      int64 `json:"total"`
	New        int64 `json:"new"`
	InProgress int64 `json:"in_progress"`
	Resolved   int64 `json:"resolved"`
	Archived   int64 `json:"archived"`
}

// Summary is one row of the moderation list.
type Summary struct {
	ID              uint              `json:"id"`
	Preview         string            `json:"preview"`
	Status          models.Status     `json:"status"`
	AttachmentCount int               `json:"attachment_count"`
	Categories      []models.Category `json:"categories"`
	HasNotes        bool              `json:"has_notes"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// AttachmentView is an attachment with its URL resolved.
type AttachmentView struct {
	Name     string          `json:"name"`
	URL      string          `json:"url"`
	MimeType string          `json:"mime_type"`
	Size     int64           `json:"size"`
	Category models.Category `json:"category"`
}

// Detail is the full record shown to a moderator.
type Detail struct {
	ID          uint             `json:"id"`
	Message     *string          `json:"message"`
	Status      models.Status    `json:"status"`
	AdminNotes  *string          `json:"admin_notes"`
	Attachments []AttachmentView `json:"attachments"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type UpdateDTO struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}
