package submission

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbg-space/core/internal/database"
	"github.com/vbg-space/core/internal/models"
	"github.com/vbg-space/core/internal/modules/storage/blob/blobtest"
	"github.com/vbg-space/core/internal/pkg/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func png(name string) Upload {
	return Upload{Name: name, MimeType: "image/png", Data: []byte("\x89PNG" + name)}
}

func TestSubmitPersistsRow(t *testing.T) {
	db := newTestDB(t)
	store := blobtest.New()
	svc := NewService(db, store, nil, nil)

	id, err := svc.Submit(context.Background(), "  merci beaucoup  ", []Upload{png("a.png"), png("b.png")})
	require.NoError(t, err)
	require.NotZero(t, id)

	var row models.TestimonialModel
	require.NoError(t, db.First(&row, id).Error)
	require.NotNil(t, row.Message)
	assert.Equal(t, "merci beaucoup", *row.Message)
	assert.Equal(t, models.StatusNew, row.Status)
	assert.Nil(t, row.AdminNotes)
	require.Len(t, row.Attachments, 2)
	assert.Equal(t, "a.png", row.Attachments[0].Name)
	assert.Equal(t, models.CategoryImage, row.Attachments[0].Category)
	assert.EqualValues(t, len("\x89PNGa.png"), row.Attachments[0].Size)
	assert.Equal(t, store.Stored[0], row.Attachments[0].Descriptor)
	assert.Equal(t, 2, store.Live())
}

func TestSubmitFilesOnly(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, blobtest.New(), nil, nil)

	id, err := svc.Submit(context.Background(), "   ", []Upload{png("a.png")})
	require.NoError(t, err)

	var row models.TestimonialModel
	require.NoError(t, db.First(&row, id).Error)
	assert.Nil(t, row.Message)
	assert.Len(t, row.Attachments, 1)
}

func TestSubmitRejectsEmpty(t *testing.T) {
	svc := NewService(newTestDB(t), blobtest.New(), nil, nil)
	_, err := svc.Submit(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrEmptySubmission)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.Submit(context.Background(), " \n\t ", nil)
	assert.ErrorIs(t, err, ErrEmptySubmission)
}

func TestSubmitMessageLengthBoundary(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, blobtest.New(), nil, nil)

	_, err := svc.Submit(context.Background(), strings.Repeat("a", 5001), nil)
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = svc.Submit(context.Background(), strings.Repeat("a", 5000), nil)
	assert.NoError(t, err)

	// runes, not bytes
	_, err = svc.Submit(context.Background(), strings.Repeat("é", 5000), nil)
	assert.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.TestimonialModel{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestSubmitValidatesAllBeforeStoring(t *testing.T) {
	store := blobtest.New()
	svc := NewService(newTestDB(t), store, nil, nil)

	bad := Upload{Name: "x.png", MimeType: "image/jpeg", Data: []byte("x")}
	_, err := svc.Submit(context.Background(), "hi", []Upload{png("a.png"), bad})
	assert.ErrorIs(t, err, ErrExtensionMismatch)
	assert.Empty(t, store.Stored)
}

func TestSubmitStoreFailureCleansUp(t *testing.T) {
	db := newTestDB(t)
	store := blobtest.New()
	store.StoreErr = errors.New("disk full")
	store.FailOnNth = 3
	svc := NewService(db, store, nil, nil)

	_, err := svc.Submit(context.Background(), "hi", []Upload{png("a.png"), png("b.png"), png("c.png")})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindStorage))
	assert.Len(t, store.Deleted, 2)
	assert.Zero(t, store.Live())

	var count int64
	require.NoError(t, db.Model(&models.TestimonialModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSubmitInsertFailureDeletesStoredBlobs(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&models.TestimonialModel{}))
	store := blobtest.New()
	svc := NewService(db, store, nil, nil)

	_, err := svc.Submit(context.Background(), "hi", []Upload{png("a.png"), png("b.png")})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))
	assert.ElementsMatch(t, store.Stored, store.Deleted)
	assert.Zero(t, store.Live())
}

func TestSubmitInsertFailureWithFailingCleanup(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&models.TestimonialModel{}))
	store := blobtest.New()
	store.DeleteErr = errors.New("gone")
	svc := NewService(db, store, nil, nil)

	_, err := svc.Submit(context.Background(), "hi", []Upload{png("a.png")})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))
	assert.Equal(t, 1, store.DeleteCalls())
}

func TestSubmitTruncatesDisplayName(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, blobtest.New(), nil, nil)

	long := strings.Repeat("n", 120) + ".png"
	id, err := svc.Submit(context.Background(), "", []Upload{png(long)})
	require.NoError(t, err)

	var row models.TestimonialModel
	require.NoError(t, db.First(&row, id).Error)
	assert.Len(t, row.Attachments[0].Name, 100)
}
