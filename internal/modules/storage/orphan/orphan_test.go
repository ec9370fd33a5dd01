package orphan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbg-space/core/internal/database"
	"github.com/vbg-space/core/internal/models"
	"github.com/vbg-space/core/internal/modules/storage/blob"
	"gorm.io/gorm/logger"
)

func touch(t *testing.T, dir, name string, mod time.Time) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
	require.NoError(t, os.Chtimes(p, mod, mod))
}

func TestSweepRemovesOnlyOldUnreferencedFiles(t *testing.T) {
	db, err := database.OpenSQLite(":memory:", logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	local, err := blob.NewLocalBackend(t.TempDir(), "")
	require.NoError(t, err)

	now := time.Now()
	old := now.Add(-48 * time.Hour)
	touch(t, local.Root(), "kept.png", old)
	touch(t, local.Root(), "orphan.png", old)
	touch(t, local.Root(), "fresh.png", now.Add(-time.Hour))

	msg := "hi"
	require.NoError(t, db.Create(&models.TestimonialModel{
		Message: &msg,
		Status:  models.StatusNew,
		Attachments: models.Attachments{
			{Name: "kept.png", Descriptor: blob.Local("kept.png")},
			{Name: "remote.png", Descriptor: blob.Remote("https://cdn/x.png", "x", "image")},
		},
	}).Error)

	s := NewSweeper(db, local, 24*time.Hour, nil)
	s.now = func() time.Time { return now }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(filepath.Join(local.Root(), "orphan.png"))
	assert.True(t, os.IsNotExist(err))
	for _, name := range []string{"kept.png", "fresh.png"} {
		_, err = os.Stat(filepath.Join(local.Root(), name))
		assert.NoError(t, err, name)
	}

	n, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
