// Package catalog holds the product query rules shared by every store that
// keeps products in process memory: the in-memory repository, the local
// client backend and the search pass of the Redis backend.
package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/baharkarakas/shop-backend/internal/models"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

// Limit clamps a requested page size to 1..MaxPageSize, using the default for
// non-positive values.
func Limit(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// Cursor returns offset+size when more rows remain after this page.
func Cursor(offset, size, total int) *int {
	next := offset + size
	if next < total {
		return &next
	}
	return nil
}

// LessID orders identifiers numerically when both are integers and
// lexically otherwise.
func LessID(a, b string) bool {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}

func sorted(all []models.Product, less func(a, b models.Product) bool) []models.Product {
	out := append([]models.Product(nil), all...)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func head(ps []models.Product, limit int) []models.Product {
	if limit >= 0 && len(ps) > limit {
		ps = ps[:limit]
	}
	if ps == nil {
		return []models.Product{}
	}
	return ps
}

func byID(a, b models.Product) bool { return LessID(a.ID, b.ID) }

func newestFirst(a, b models.Product) bool {
	if !a.DateAdded.Equal(b.DateAdded) {
		return a.DateAdded.After(b.DateAdded)
	}
	return LessID(b.ID, a.ID)
}

// Page returns the products at [offset, offset+size) in ascending id order.
func Page(all []models.Product, offset, size int) models.ProductPage {
	if offset < 0 {
		offset = 0
	}
	size = Limit(size)
	ps := sorted(all, byID)
	total := len(ps)
	var items []models.Product
	if offset < total {
		end := offset + size
		if end > total {
			end = total
		}
		items = ps[offset:end]
	}
	return models.ProductPage{
		Products: head(items, -1),
		LastKey:  Cursor(offset, size, total),
		Total:    total,
	}
}

// Featured returns featured products, newest first.
func Featured(all []models.Product, limit int) []models.Product {
	var fs []models.Product
	for _, p := range all {
		if p.IsFeatured {
			fs = append(fs, p)
		}
	}
	return head(sorted(fs, newestFirst), Limit(limit))
}

// Recent returns all products, newest first.
func Recent(all []models.Product, limit int) []models.Product {
	return head(sorted(all, newestFirst), Limit(limit))
}

// Query normalizes a search query: surrounding whitespace is dropped and the
// rest lowercased. Every store searches with the normalized form.
func Query(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Matches reports whether p's lowercase name contains q, case-insensitively.
// An empty query matches everything.
func Matches(p models.Product, q string) bool {
	return strings.Contains(p.NameLower, Query(q))
}

// Search returns products whose name contains q, ordered by lowercase name.
func Search(all []models.Product, q string, limit int) []models.Product {
	var hits []models.Product
	for _, p := range all {
		if Matches(p, q) {
			hits = append(hits, p)
		}
	}
	return head(sorted(hits, func(a, b models.Product) bool {
		if a.NameLower != b.NameLower {
			return a.NameLower < b.NameLower
		}
		return LessID(a.ID, b.ID)
	}), Limit(limit))
}

// SampleCount is the size of the demo catalog.
const SampleCount = 24

// Samples returns the demo catalog seeded into an empty store. Sample i was
// added i hours before now and every fifth one is featured.
func Samples(now time.Time) []models.Product {
	out := make([]models.Product, 0, SampleCount)
	for i := 1; i <= SampleCount; i++ {
		p := models.NewProduct("", models.ProductInput{
			Name:            fmt.Sprintf("Sample Product %d", i),
			Brand:           "Sample Brand",
			Price:           float64(10 + i),
			MaxQuantity:     10,
			Description:     "Local demo product",
			IsFeatured:      i%5 == 0,
			Quantity:        50,
			Image:           fmt.Sprintf("/static/salt-image-%d.png", (i%9)+1),
			ImageCollection: []models.Image{},
		}, now.Add(-time.Duration(i)*time.Hour))
		out = append(out, p)
	}
	return out
}
