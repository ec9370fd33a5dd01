// Package orphan removes local upload files no testimonial references.
package orphan

import (
	"context"
	"fmt"
	"time"

	"github.com/vbg-space/core/internal/models"
	"github.com/vbg-space/core/internal/modules/storage/blob"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const batchSize = 200

type Sweeper struct {
	db     *gorm.DB
	local  *blob.LocalBackend
	age    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewSweeper(db *gorm.DB, local *blob.LocalBackend, age time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{db: db, local: local, age: age, logger: logger, now: time.Now}
}

// Sweep deletes files older than the configured age that no row
// references, returning how many were removed. Younger files are left
// alone so an in-flight submission never loses its blobs.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	candidates, err := s.local.List(s.now().Add(-s.age))
	if err != nil {
		return 0, fmt.Errorf("list uploads: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	referenced, err := s.referencedPaths(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range candidates {
		if _, ok := referenced[e.Name]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := s.local.DeleteName(e.Name); err != nil {
			s.logger.Warn("orphan delete failed", zap.String("file", e.Name), zap.Error(err))
			continue
		}
		removed++
		s.logger.Info("orphan upload removed",
			zap.String("file", e.Name),
			zap.Int64("size", e.Size),
			zap.Time("modified", e.ModTime),
		)
	}
	return removed, nil
}

func (s *Sweeper) referencedPaths(ctx context.Context) (map[string]struct{}, error) {
	refs := make(map[string]struct{})
	var rows []models.TestimonialModel
	res := s.db.WithContext(ctx).
		Select("id", "attachments").
		FindInBatches(&rows, batchSize, func(tx *gorm.DB, _ int) error {
			for _, r := range rows {
				for _, a := range r.Attachments {
					if a.Descriptor.Kind == blob.KindLocal && a.Descriptor.Path != "" {
						refs[a.Descriptor.Path] = struct{}{}
					}
				}
			}
			return nil
		})
	if res.Error != nil {
		return nil, fmt.Errorf("load attachment references: %w", res.Error)
	}
	return refs, nil
}
