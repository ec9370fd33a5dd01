package moderation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vbg-space/core/internal/models"
	"github.com/vbg-space/core/internal/modules/storage/blob"
	"github.com/vbg-space/core/internal/pkg/apperr"
	"github.com/vbg-space/core/internal/pkg/metrics"
	"github.com/vbg-space/core/internal/pkg/pagination"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const blobCleanupTimeout = 30 * time.Second

type Service struct {
	db      *gorm.DB
	store   blob.Backend
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(db *gorm.DB, store blob.Backend, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, store: store, logger: logger, metrics: m, now: time.Now}
}

// ParseID reads a positive numeric id.
func ParseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 1 {
		return 0, ErrInvalidID
	}
	return uint(id), nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var rows []struct {
		Status models.Status
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.TestimonialModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return Stats{}, apperr.Wrap(apperr.KindInternal, "load stats failed", err)
	}

	var st Stats
	for _, r := range rows {
		st.Total += r.Count
		switch r.Status {
		case models.StatusNew:
			st.New = r.Count
		case models.StatusInProgress:
			st.InProgress = r.Count
		case models.StatusResolved:
			st.Resolved = r.Count
		case models.StatusArchived:
			st.Archived = r.Count
		}
	}
	return st, nil
}

// List returns one page of testimonials, newest first. An unknown status
// filter is ignored.
func (s *Service) List(ctx context.Context, page int, status string) ([]Summary, pagination.Page, error) {
	tx := s.db.WithContext(ctx).
		Model(&models.TestimonialModel{}).
		Order("created_at DESC").
		Order("id DESC")
	if st, ok := models.ParseStatus(status); ok {
		tx = tx.Where("status = ?", st)
	}

	var rows []models.TestimonialModel
	pag, err := pagination.Paginate(tx, pagination.NewQuery(page, PageSize), &rows)
	if err != nil {
		return nil, pagination.Page{}, apperr.Wrap(apperr.KindInternal, "list testimonials failed", err)
	}

	items := make([]Summary, len(rows))
	for i, r := range rows {
		items[i] = toSummary(r)
	}
	return items, pag, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*Detail, error) {
	var row models.TestimonialModel
	if err := s.db.WithContext(ctx).Take(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load testimonial failed", err)
	}

	views := make([]AttachmentView, len(row.Attachments))
	for i, a := range row.Attachments {
		views[i] = AttachmentView{
			Name:     a.Name,
			URL:      s.store.Resolve(a.Descriptor),
			MimeType: a.MimeType,
			Size:     a.Size,
			Category: a.Category,
		}
	}
	return &Detail{
		ID:          row.ID,
		Message:     row.Message,
		Status:      row.Status,
		AdminNotes:  row.AdminNotes,
		Attachments: views,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

// Update sets status and notes in one statement. Concurrent updates are
// last-write-wins.
func (s *Service) Update(ctx context.Context, id uint, status string, notes *string) error {
	st, ok := models.ParseStatus(status)
	if !ok {
		return ErrInvalidStatus
	}

	var notesValue interface{}
	if notes != nil {
		if n := truncateRunes(strings.TrimSpace(*notes), models.MaxNotesLength); n != "" {
			notesValue = n
		}
	}

	db := s.db.WithContext(ctx)
	res := db.Model(&models.TestimonialModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      st,
			"admin_notes": notesValue,
			"updated_at":  s.now(),
		})
	if res.Error != nil {
		return apperr.Wrap(apperr.KindInternal, "update testimonial failed", res.Error)
	}
	if res.RowsAffected == 0 {
		// MySQL reports zero affected rows when nothing changed.
		var count int64
		if err := db.Model(&models.TestimonialModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return apperr.Wrap(apperr.KindInternal, "update testimonial failed", err)
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	s.logger.Info("testimonial updated", zap.Uint("id", id), zap.String("status", string(st)))
	return nil
}

// Delete removes the row, then its blobs. Blob failures are logged only.
func (s *Service) Delete(ctx context.Context, id uint) error {
	var row models.TestimonialModel
	db := s.db.WithContext(ctx)
	if err := db.Select("id", "attachments").Take(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return apperr.Wrap(apperr.KindInternal, "load testimonial failed", err)
	}

	res := db.Delete(&models.TestimonialModel{}, id)
	if res.Error != nil {
		return apperr.Wrap(apperr.KindInternal, "delete testimonial failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	s.deleteBlobs(ctx, id, row.Attachments)
	s.logger.Info("testimonial deleted", zap.Uint("id", id), zap.Int("attachments", len(row.Attachments)))
	return nil
}

func (s *Service) deleteBlobs(ctx context.Context, id uint, attachments models.Attachments) {
	if len(attachments) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), blobCleanupTimeout)
	defer cancel()
	for _, a := range attachments {
		err := s.store.Delete(ctx, a.Descriptor)
		if errors.Is(err, blob.ErrForeignDescriptor) {
			s.logger.Info("attachment left on its original host",
				zap.Uint("testimonial_id", id),
				zap.String("url", a.Descriptor.URL),
				zap.String("public_id", a.Descriptor.PublicID),
			)
			continue
		}
		s.metrics.BlobOperation(string(a.Descriptor.Kind), "delete", err)
		if err != nil {
			s.logger.Warn("attachment delete failed",
				zap.Uint("testimonial_id", id),
				zap.String("kind", string(a.Descriptor.Kind)),
				zap.String("path", a.Descriptor.Path),
				zap.String("public_id", a.Descriptor.PublicID),
				zap.Error(err),
			)
		}
	}
}

func toSummary(r models.TestimonialModel) Summary {
	preview := ""
	if r.Message != nil {
		preview = truncateRunes(*r.Message, previewLength)
	}
	categories := make([]models.Category, 0, len(r.Attachments))
	for _, a := range r.Attachments {
		categories = append(categories, a.Category)
	}
	return Summary{
		ID:              r.ID,
		Preview:         preview,
		Status:          r.Status,
		AttachmentCount: len(r.Attachments),
		Categories:      categories,
		HasNotes:        r.AdminNotes != nil && *r.AdminNotes != "",
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
