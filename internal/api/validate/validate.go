// Package validate parses query parameters with the lenient defaults the
// listing endpoints use: malformed or negative numbers fall back.
package validate

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/baharkarakas/shop-backend/internal/catalog"
)

func NonNegInt(q url.Values, key string, def int) int {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func Offset(q url.Values) int { return NonNegInt(q, "offset", 0) }

// Limit is clamped to 1..catalog.MaxPageSize.
func Limit(q url.Values) int {
	return catalog.Limit(NonNegInt(q, "limit", catalog.DefaultPageSize))
}
