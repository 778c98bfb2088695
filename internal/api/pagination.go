package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Page is one slice of a fully loaded list.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

// paginate reads page and size from the query and slices items. Pages past
// the end are empty rather than an error.
func paginate[T any](c *gin.Context, items []T) Page[T] {
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	size := queryInt(c, "size", defaultPageSize)
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	total := len(items)
	pages := (total + size - 1) / size
	// Compare page numbers before multiplying so huge pages cannot overflow.
	start := total
	if page <= pages {
		start = (page - 1) * size
	}
	end := start + size
	if end > total {
		end = total
	}

	return Page[T]{
		Items: append(make([]T, 0, end-start), items[start:end]...),
		Total: total,
		Page:  page,
		Size:  size,
		Pages: pages,
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}

// matches reports whether any of fields contains search, ignoring case.
// An empty search matches everything.
func matches(search string, fields ...string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}
