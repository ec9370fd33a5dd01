package submission

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vbg-space/core/internal/models"
)

func TestValidateTypeCrossChecksExtension(t *testing.T) {
	assert.ErrorIs(t, ValidateType("image/jpeg", "photo.png"), ErrExtensionMismatch)
	assert.NoError(t, ValidateType("image/jpeg", "photo.jpg"))
	assert.NoError(t, ValidateType("image/jpeg", "PHOTO.JPEG"))
	assert.NoError(t, ValidateType("Image/JPEG; charset=binary", "photo.jpg"))
	assert.NoError(t, ValidateType("audio/mpeg", "voice.mp3"))
	assert.NoError(t, ValidateType("video/webm", "clip.webm"))

	assert.ErrorIs(t, ValidateType("application/pdf", "doc.pdf"), ErrTypeNotAllowed)
	assert.ErrorIs(t, ValidateType("", "photo.jpg"), ErrTypeNotAllowed)
	assert.ErrorIs(t, ValidateType("image/png", "photo"), ErrExtensionMismatch)
	assert.ErrorIs(t, ValidateType("image/png", "photo.png.exe"), ErrExtensionMismatch)
}

func TestValidateUploads(t *testing.T) {
	ok := Upload{Name: "a.png", MimeType: "image/png", Data: []byte("x")}
	assert.NoError(t, ValidateUploads([]Upload{ok, ok, ok}))
	assert.ErrorIs(t, ValidateUploads([]Upload{ok, ok, ok, ok}), ErrTooManyFiles)
	assert.Equal(t, models.MaxAttachments, MaxFiles)

	big := Upload{Name: "a.png", MimeType: "image/png", Data: make([]byte, MaxFileSize+1)}
	assert.ErrorIs(t, ValidateUploads([]Upload{ok, big}), ErrFileTooLarge)

	exact := Upload{Name: "a.png", MimeType: "image/png", Data: make([]byte, MaxFileSize)}
	assert.NoError(t, ValidateUpload(exact))
}

func TestNormalizeMIME(t *testing.T) {
	assert.Equal(t, "image/png", NormalizeMIME(" IMAGE/PNG "))
	assert.Equal(t, "audio/ogg", NormalizeMIME("audio/ogg; codecs=opus"))
	assert.Equal(t, "", NormalizeMIME(""))
	assert.Equal(t, "bad", NormalizeMIME("BAD;;=="))
}

func TestTruncateRunes(t *testing.T) {
	name := strings.Repeat("é", 150) + ".png"
	assert.Equal(t, 100, len([]rune(truncateRunes(name, 100))))
	assert.Equal(t, "a.png", truncateRunes("a.png", 100))
}
