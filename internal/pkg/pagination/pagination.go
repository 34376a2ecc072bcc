package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	DefaultPage = 1
	DefaultSize = 20
	MaxSize     = 100
)

// Query holds parsed pagination parameters.
type Query struct {
	Page int
	Size int
}

// Page is a paginated result envelope.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalPages int   `json:"total_pages"`
}

// FromContext extracts and clamps pagination params from the request query.
func FromContext(c *gin.Context) Query {
	page := parseIntOr(c.DefaultQuery("page", "1"), DefaultPage)
	size := parseIntOr(c.DefaultQuery("size", "20"), DefaultSize)

	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	return Query{Page: page, Size: size}
}

// Paginate applies limit/offset to a GORM query and wraps the rows with
// pagination metadata.
func Paginate[T any](db *gorm.DB, q Query) (*Page[T], error) {
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	items := make([]T, 0, q.Size)
	offset := (q.Page - 1) * q.Size
	if err := db.Offset(offset).Limit(q.Size).Find(&items).Error; err != nil {
		return nil, err
	}

	totalPages := int((total + int64(q.Size) - 1) / int64(q.Size))
	return &Page[T]{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		Size:       q.Size,
		TotalPages: totalPages,
	}, nil
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
