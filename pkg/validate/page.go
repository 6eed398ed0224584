package validate

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ovaphlow/pitchfork/service-learning/pkg/apperr"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is a 1-based page request.
type Page struct {
	Page int `json:"page" validate:"gte=1"`
	Size int `json:"size" validate:"gte=1,lte=100"`
}

func (p Page) Offset() int { return (p.Page - 1) * p.Size }

// ParsePage reads page and size from the query string.
func ParsePage(r *http.Request) (Page, error) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		return Page{}, err
	}
	size, err := queryInt(r, "size", DefaultPageSize)
	if err != nil {
		return Page{}, err
	}
	p := Page{Page: page, Size: size}
	if err := Struct(p); err != nil {
		return Page{}, err
	}
	return p, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Newf(apperr.KindValidation, "%s must be numeric", key).
			WithDetails(map[string]string{key: "must be numeric"})
	}
	return v, nil
}

// ParseID parses a positive int64 path value. Anything else is reported as
// not found so malformed ids look like missing ones.
func ParseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Newf(apperr.KindNotFound, "%s not found", what)
	}
	return id, nil
}
