package models

import (
	"strings"
	"time"
)

// Status is the moderation state of a testimonial.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusArchived   Status = "archived"
)

// Statuses lists every valid status in workflow order.
var Statuses = []Status{StatusNew, StatusInProgress, StatusResolved, StatusArchived}

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusResolved, StatusArchived:
		return true
	}
	return false
}

// ParseStatus accepts only the exact enum values, after trimming.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.TrimSpace(raw))
	return s, s.Valid()
}

const (
	MaxMessageLength = 5000
	MaxNotesLength   = 2000
	MaxAttachments   = 3
)

// TestimonialModel is a submitted testimonial and its moderation state.
type TestimonialModel struct {
	ID          uint        `json:"id"          gorm:"primaryKey;autoIncrement"`
	Message     *string     `json:"message"     gorm:"type:text"`
	Attachments Attachments `json:"attachments" gorm:"type:longtext"`
	Status      Status      `json:"status"      gorm:"type:varchar(20);not null;default:'new';index"`
	AdminNotes  *string     `json:"admin_notes" gorm:"type:text"`
	CreatedAt   time.Time   `json:"created_at"  gorm:"index"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (TestimonialModel) TableName() string { return "testimonials" }
