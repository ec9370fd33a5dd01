package submission

import (
	"bytes"
	"io"

	"github.com/vbg-space/core/internal/models"
	"github.com/vbg-space/core/internal/pkg/apperr"
)

const (
	MaxFileSize  = 20 << 20
	MaxFiles     = models.MaxAttachments
	MaxFields    = 5
	MaxFieldSize = 20 << 10

	maxNameLength = 100

	// maxRequestBytes bounds the whole multipart body: every file at the cap,
	// every field at the cap, plus room for part headers.
	maxRequestBytes = MaxFiles*MaxFileSize + MaxFields*MaxFieldSize + 1<<20
)

var (
	ErrTypeNotAllowed    = apperr.New(apperr.KindRejectedFile, "file type not allowed")
	ErrExtensionMismatch = apperr.New(apperr.KindRejectedFile, "file extension does not match its type")
	ErrFileTooLarge      = apperr.New(apperr.KindRejectedFile, "file too large (max 20 MB)")
	ErrTooManyFiles      = apperr.New(apperr.KindRejectedFile, "at most 3 files")
	ErrUnexpectedFile    = apperr.New(apperr.KindRejectedFile, "unexpected file field")

	ErrFormTooLarge    = apperr.New(apperr.KindValidation, "form data too large")
	ErrTooManyFields   = apperr.New(apperr.KindValidation, "too many form fields")
	ErrMalformedForm   = apperr.New(apperr.KindValidation, "malformed form data")
	ErrEmptySubmission = apperr.New(apperr.KindValidation, "empty submission")
	ErrMessageTooLong  = apperr.New(apperr.KindValidation, "message too long (max 5000 characters)")
)

const (
	msgStorageFailed = "could not store attachment"
	msgInsertFailed  = "could not save testimonial"
)

// Upload is one file accepted from the multipart form.
type Upload struct {
	Name     string
	MimeType string
	Data     []byte
}

func (u Upload) Size() int64 { return int64(len(u.Data)) }

func (u Upload) Reader() io.Reader { return bytes.NewReader(u.Data) }

// Form is the parsed submission body.
type Form struct {
	Message string
	Files   []Upload
}
