package submission

import (
	"errors"
	"io"
	"net/http"
	"strings"
)

const messageField = "message"

// fileFields are the accepted names for file parts. "fichiers" is what the
// first version of the public form posted.
var fileFields = map[string]bool{"files": true, "fichiers": true}

// ReadForm streams the multipart body, validating each file part from its
// headers before reading its content.
func ReadForm(r *http.Request) (*Form, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, ErrMalformedForm
	}

	form := &Form{}
	fields := 0
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, classifyReadError(err)
		}

		if part.FileName() == "" {
			fields++
			if fields > MaxFields {
				_ = part.Close()
				return nil, ErrTooManyFields
			}
			data, err := readCapped(part, MaxFieldSize)
			_ = part.Close()
			if err != nil {
				return nil, classifyReadError(err)
			}
			if data == nil {
				return nil, ErrFormTooLarge
			}
			if part.FormName() == messageField {
				form.Message = string(data)
			}
			continue
		}

		if !fileFields[part.FormName()] {
			_ = part.Close()
			return nil, ErrUnexpectedFile
		}
		if len(form.Files) >= MaxFiles {
			_ = part.Close()
			return nil, ErrTooManyFiles
		}
		mimeType := NormalizeMIME(part.Header.Get("Content-Type"))
		name := strings.TrimSpace(part.FileName())
		if err := ValidateType(mimeType, name); err != nil {
			_ = part.Close()
			return nil, err
		}
		data, err := readCapped(part, MaxFileSize)
		_ = part.Close()
		if err != nil {
			return nil, classifyReadError(err)
		}
		if data == nil {
			return nil, ErrFileTooLarge
		}
		form.Files = append(form.Files, Upload{Name: name, MimeType: mimeType, Data: data})
	}
	return form, nil
}

// readCapped reads at most limit bytes. It returns nil data when the part
// is longer than limit.
func readCapped(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, nil
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func classifyReadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return ErrFormTooLarge
	}
	return ErrMalformedForm
}
