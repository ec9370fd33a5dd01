package pagination

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
)

const (
	DefaultPage = 1
	DefaultSize = 20
)

// Query holds parsed pagination parameters.
type Query struct {
	Page int
	Size int
}

// Page is the metadata returned with a paginated result.
type Page struct {
	Total     int64 `json:"total"`
	Page      int   `json:"page"`
	PageCount int   `json:"page_count"`
	Size      int   `json:"size"`
}

// NewQuery clamps page and size to sane values.
func NewQuery(page, size int) Query {
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultSize
	}
	return Query{Page: page, Size: size}
}

// ParsePage reads a page number from a raw query value; anything unparsable is page 1.
func ParsePage(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 1 {
		return DefaultPage
	}
	return v
}

// Paginate counts the rows matched by db, then loads the requested window into dest.
// PageCount is never below 1, so an empty table still reports one page.
func Paginate[T any](db *gorm.DB, q Query, dest *[]T) (Page, error) {
	q = NewQuery(q.Page, q.Size)

	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page{}, err
	}

	pageCount := int((total + int64(q.Size) - 1) / int64(q.Size))
	if pageCount < 1 {
		pageCount = 1
	}

	// Past the last page there is nothing to load, and large page numbers
	// would overflow the offset.
	if q.Page > pageCount {
		*dest = []T{}
	} else {
		offset := (q.Page - 1) * q.Size
		if err := db.Session(&gorm.Session{}).Offset(offset).Limit(q.Size).Find(dest).Error; err != nil {
			return Page{}, err
		}
	}

	return Page{
		Total:     total,
		Page:      q.Page,
		PageCount: pageCount,
		Size:      q.Size,
	}, nil
}
