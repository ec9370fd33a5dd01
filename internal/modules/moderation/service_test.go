package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbg-space/core/internal/database"
	"github.com/vbg-space/core/internal/models"
	"github.com/vbg-space/core/internal/modules/storage/blob"
	"github.com/vbg-space/core/internal/modules/storage/blob/blobtest"
	"github.com/vbg-space/core/internal/pkg/apperr"
	"github.com/vbg-space/core/internal/pkg/pagination"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var epoch = time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func strPtr(s string) *string { return &s }

func seed(t *testing.T, db *gorm.DB, message string, createdAt time.Time, attachments ...models.Attachment) uint {
	t.Helper()
	row := models.TestimonialModel{
		Attachments: attachments,
		Status:      models.StatusNew,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if message != "" {
		row.Message = &message
	}
	require.NoError(t, db.Create(&row).Error)
	return row.ID
}

func newService(t *testing.T) (*Service, *gorm.DB, *blobtest.Backend) {
	db := newTestDB(t)
	store := blobtest.New()
	return NewService(db, store, nil, nil), db, store
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	for _, raw := range []string{"", "0", "-1", "abc", "1.5", "99999999999999999999"} {
		_, err := ParseID(raw)
		assert.ErrorIs(t, err, ErrInvalidID, raw)
	}
}

func TestStats(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		seed(t, db, "m", epoch)
	}
	id := seed(t, db, "m", epoch)
	require.NoError(t, svc.Update(ctx, id, "resolved", nil))
	id = seed(t, db, "m", epoch)
	require.NoError(t, svc.Update(ctx, id, "archived", nil))

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 5, New: 3, Resolved: 1, Archived: 1}, st)
}

func TestListOrderingAndPaging(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()

	var ids []uint
	for i := 0; i < 25; i++ {
		ids = append(ids, seed(t, db, fmt.Sprintf("message %d", i), epoch.Add(time.Duration(i)*time.Minute)))
	}
	// same timestamp as the newest row, higher id
	tie := seed(t, db, "tie", epoch.Add(24*time.Minute))

	items, pag, err := svc.List(ctx, 1, "")
	require.NoError(t, err)
	require.Len(t, items, PageSize)
	assert.EqualValues(t, 26, pag.Total)
	assert.Equal(t, 2, pag.PageCount)
	assert.Equal(t, tie, items[0].ID)
	assert.Equal(t, ids[24], items[1].ID)
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].CreatedAt.After(items[i-1].CreatedAt))
	}

	items, pag, err = svc.List(ctx, 2, "")
	require.NoError(t, err)
	assert.Len(t, items, 6)
	assert.Equal(t, ids[0], items[5].ID)

	items, pag, err = svc.List(ctx, 9, "")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.EqualValues(t, 26, pag.Total)
	assert.Equal(t, 2, pag.PageCount)
	assert.Equal(t, 9, pag.Page)
}

func TestListHugePageIsEmpty(t *testing.T) {
	svc, db, _ := newService(t)
	for i := 0; i < 3; i++ {
		seed(t, db, fmt.Sprintf("message %d", i), epoch.Add(time.Duration(i)*time.Minute))
	}

	page := pagination.ParsePage("461168601842738792")
	items, pag, err := svc.List(context.Background(), page, "")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.EqualValues(t, 3, pag.Total)
	assert.Equal(t, 1, pag.PageCount)
	assert.Equal(t, page, pag.Page)
}

func TestListEmptyHasOnePage(t *testing.T) {
	svc, _, _ := newService(t)
	items, pag, err := svc.List(context.Background(), 0, "")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 1, pag.Page)
	assert.Equal(t, 1, pag.PageCount)
}

func TestListStatusFilter(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	a := seed(t, db, "a", epoch)
	seed(t, db, "b", epoch)
	require.NoError(t, svc.Update(ctx, a, "in_progress", nil))

	items, _, err := svc.List(ctx, 1, "in_progress")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, a, items[0].ID)

	items, _, err = svc.List(ctx, 1, "nonsense")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestListPreviewAndAttachments(t *testing.T) {
	svc, db, _ := newService(t)
	long := strings.Repeat("é", 300)
	seed(t, db, long, epoch,
		models.Attachment{Name: "a.png", Descriptor: blob.Local("a.png"), Category: models.CategoryImage},
		models.Attachment{Name: "b.mp3", Descriptor: blob.Local("b.mp3"), Category: models.CategoryAudio},
	)
	seed(t, db, "", epoch.Add(time.Minute))

	items, _, err := svc.List(context.Background(), 1, "")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Empty(t, items[0].Preview)
	assert.Equal(t, strings.Repeat("é", previewLength), items[1].Preview)
	assert.Equal(t, 2, items[1].AttachmentCount)
	assert.Equal(t, []models.Category{models.CategoryImage, models.CategoryAudio}, items[1].Categories)
}

func TestGetResolvesAttachments(t *testing.T) {
	svc, db, _ := newService(t)
	id := seed(t, db, "hello", epoch,
		models.Attachment{Name: "a.png", Descriptor: blob.Local("a.png"), MimeType: "image/png", Size: 3, Category: models.CategoryImage},
		models.Attachment{Name: "v.mp4", Descriptor: blob.Remote("https://cdn.example.com/v.mp4", "k/v", "video"), Category: models.CategoryVideo},
	)

	d, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "hello", *d.Message)
	require.Len(t, d.Attachments, 2)
	assert.Equal(t, "/media/a.png", d.Attachments[0].URL)
	assert.Equal(t, "https://cdn.example.com/v.mp4", d.Attachments[1].URL)

	_, err = svc.Get(context.Background(), id+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	id := seed(t, db, "m", epoch)
	later := epoch.Add(time.Hour)
	svc.now = func() time.Time { return later }

	require.NoError(t, svc.Update(ctx, id, "resolved", strPtr("  called back  ")))
	d, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, d.Status)
	assert.Equal(t, "called back", *d.AdminNotes)
	assert.True(t, d.UpdatedAt.Equal(later))

	require.NoError(t, svc.Update(ctx, id, "archived", strPtr("   ")))
	d, err = svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, d.AdminNotes)

	require.NoError(t, svc.Update(ctx, id, "new", strPtr(strings.Repeat("n", 2500))))
	d, err = svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, *d.AdminNotes, models.MaxNotesLength)
}

func TestUpdateInvalidStatusLeavesRow(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	id := seed(t, db, "m", epoch)
	require.NoError(t, svc.Update(ctx, id, "in_progress", strPtr("keep")))
	before, err := svc.Get(ctx, id)
	require.NoError(t, err)

	err = svc.Update(ctx, id, "bogus_status", strPtr(""))
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidStatus))

	after, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdateMissing(t *testing.T) {
	svc, _, _ := newService(t)
	assert.ErrorIs(t, svc.Update(context.Background(), 77, "new", nil), ErrNotFound)
}

func TestConcurrentUpdatesStayConsistent(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	id := seed(t, db, "m", epoch)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		st := models.Statuses[i%len(models.Statuses)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Update(ctx, id, string(st), strPtr("note-"+string(st))))
		}()
	}
	wg.Wait()

	d, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, d.AdminNotes)
	assert.Equal(t, "note-"+string(d.Status), *d.AdminNotes)
}

func TestDeleteRemovesRowAndBlobs(t *testing.T) {
	svc, db, store := newService(t)
	store.DeleteErr = errors.New("backend unavailable")
	ctx := context.Background()
	id := seed(t, db, "m", epoch,
		models.Attachment{Name: "a.png", Descriptor: blob.Local("a.png")},
		models.Attachment{Name: "b.png", Descriptor: blob.Local("b.png")},
	)

	require.NoError(t, svc.Delete(ctx, id))
	assert.Equal(t, 2, store.DeleteCalls())

	_, err := svc.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, id), ErrNotFound)
	assert.Equal(t, 2, store.DeleteCalls())
}

func TestDeletePassesStoredDescriptor(t *testing.T) {
	svc, db, store := newService(t)
	id := seed(t, db, "m", epoch, models.Attachment{Name: "a.png", Descriptor: blob.Local("a.png")})

	require.NoError(t, svc.Delete(context.Background(), id))
	assert.Equal(t, []blob.Descriptor{blob.Local("a.png")}, store.Deleted)
}

func TestDeleteLogsLegacyRemoteBlobs(t *testing.T) {
	db := newTestDB(t)
	store := blobtest.New()
	store.DeleteErr = fmt.Errorf("%w: https://res.example.com/v/abc", blob.ErrForeignDescriptor)
	core, logs := observer.New(zapcore.InfoLevel)
	svc := NewService(db, store, zap.New(core), nil)

	legacy := blob.Remote("https://res.example.com/v/abc", "vbg-temoignages/abc", "video")
	id := seed(t, db, "m", epoch, models.Attachment{Name: "clip.mp4", Descriptor: legacy})

	require.NoError(t, svc.Delete(context.Background(), id))
	assert.Equal(t, 1, store.DeleteCalls())

	entries := logs.FilterMessage("attachment left on its original host").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "https://res.example.com/v/abc", entries[0].ContextMap()["url"])
	assert.Empty(t, logs.FilterMessage("attachment delete failed").All())
}
