package submission

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vbg-space/core/internal/models"
	"github.com/vbg-space/core/internal/modules/storage/blob"
	"github.com/vbg-space/core/internal/pkg/apperr"
	"github.com/vbg-space/core/internal/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	storeTimeout   = 60 * time.Second
	cleanupTimeout = 30 * time.Second
)

type Service struct {
	db      *gorm.DB
	store   blob.Backend
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewService(db *gorm.DB, store blob.Backend, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, store: store, logger: logger, metrics: m}
}

// Submit validates and persists a testimonial, returning its id.
func (s *Service) Submit(ctx context.Context, message string, files []Upload) (uint, error) {
	id, err := s.submit(ctx, message, files)
	switch {
	case err == nil:
		s.metrics.Submission("accepted")
	case apperr.IsKind(err, apperr.KindValidation), apperr.IsKind(err, apperr.KindRejectedFile):
		s.metrics.Submission("rejected")
	default:
		s.metrics.Submission("error")
	}
	return id, err
}

func (s *Service) submit(ctx context.Context, message string, files []Upload) (uint, error) {
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > models.MaxMessageLength {
		return 0, ErrMessageTooLong
	}
	if message == "" && len(files) == 0 {
		return 0, ErrEmptySubmission
	}
	if err := ValidateUploads(files); err != nil {
		return 0, err
	}

	attachments := make(models.Attachments, 0, len(files))
	stored := make([]blob.Descriptor, 0, len(files))
	for _, f := range files {
		desc, err := s.storeOne(ctx, f)
		if err != nil {
			s.logger.Error("store attachment failed", zap.String("name", f.Name), zap.Error(err))
			s.discard(ctx, stored, "store failed")
			return 0, apperr.Wrap(apperr.KindStorage, msgStorageFailed, err)
		}
		stored = append(stored, desc)
		attachments = append(attachments, models.Attachment{
			Name:       truncateRunes(f.Name, maxNameLength),
			Descriptor: desc,
			MimeType:   f.MimeType,
			Size:       f.Size(),
			Category:   models.CategoryOf(f.MimeType, f.Name),
		})
	}

	row := models.TestimonialModel{
		Attachments: attachments,
		Status:      models.StatusNew,
	}
	if message != "" {
		row.Message = &message
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.logger.Error("insert testimonial failed", zap.Int("attachments", len(stored)), zap.Error(err))
		s.discard(ctx, stored, "insert failed")
		return 0, apperr.Wrap(apperr.KindInternal, msgInsertFailed, err)
	}

	s.logger.Info("testimonial received", zap.Uint("id", row.ID), zap.Int("attachments", len(stored)))
	return row.ID, nil
}

func (s *Service) storeOne(ctx context.Context, f Upload) (blob.Descriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	desc, err := s.store.Store(ctx, f.Reader(), f.Size(), f.MimeType, f.Name)
	s.metrics.BlobOperation(string(s.store.Kind()), "store", err)
	return desc, err
}

// discard is the compensating delete for blobs whose row was never written.
// Failures are logged only.
func (s *Service) discard(ctx context.Context, descs []blob.Descriptor, reason string) {
	if len(descs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	for _, d := range descs {
		err := s.store.Delete(ctx, d)
		s.metrics.BlobOperation(string(d.Kind), "delete", err)
		if err != nil {
			s.logger.Warn("compensating blob delete failed",
				zap.String("reason", reason),
				zap.String("kind", string(d.Kind)),
				zap.String("path", d.Path),
				zap.String("public_id", d.PublicID),
				zap.Error(err),
			)
		}
	}
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
