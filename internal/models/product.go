package models

import (
	"strings"
	"time"

	"github.com/baharkarakas/shop-backend/internal/apperr"
)

type Image struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Product struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	NameLower       string    `json:"nameLower"`
	Brand           string    `json:"brand"`
	Price           float64   `json:"price"`
	MaxQuantity     int       `json:"maxQuantity"`
	Description     string    `json:"description"`
	IsFeatured      bool      `json:"isFeatured"`
	Quantity        int       `json:"quantity"`
	Image           string    `json:"image"`
	ImageCollection []Image   `json:"imageCollection"`
	DateAdded       time.Time `json:"dateAdded"`
}

// ProductInput is the mutable part of a product. Create and update both take
// the whole input; absent fields fall back to their zero values.
type ProductInput struct {
	Name            string  `json:"name"`
	Brand           string  `json:"brand"`
	Price           float64 `json:"price"`
	MaxQuantity     int     `json:"maxQuantity"`
	Description     string  `json:"description"`
	IsFeatured      bool    `json:"isFeatured"`
	Quantity        int     `json:"quantity"`
	Image           string  `json:"image"`
	ImageCollection []Image `json:"imageCollection"`
}

func (in ProductInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Invalid("name: required")
	}
	if in.Price < 0 {
		return apperr.Invalid("price: must be >= 0")
	}
	if in.Quantity < 0 {
		return apperr.Invalid("quantity: must be >= 0")
	}
	if in.MaxQuantity < 0 {
		return apperr.Invalid("maxQuantity: must be >= 0")
	}
	return nil
}

// Apply replaces every mutable field of p with in and recomputes NameLower.
func (p *Product) Apply(in ProductInput) {
	p.Name = in.Name
	p.NameLower = strings.ToLower(in.Name)
	p.Brand = in.Brand
	p.Price = in.Price
	p.MaxQuantity = in.MaxQuantity
	p.Description = in.Description
	p.IsFeatured = in.IsFeatured
	p.Quantity = in.Quantity
	p.Image = in.Image
	p.ImageCollection = append([]Image{}, in.ImageCollection...)
}

// Input returns the mutable subset of p.
func (p Product) Input() ProductInput {
	return ProductInput{
		Name:            p.Name,
		Brand:           p.Brand,
		Price:           p.Price,
		MaxQuantity:     p.MaxQuantity,
		Description:     p.Description,
		IsFeatured:      p.IsFeatured,
		Quantity:        p.Quantity,
		Image:           p.Image,
		ImageCollection: p.ImageCollection,
	}
}

// NewProduct stamps a fresh product from in.
func NewProduct(id string, in ProductInput, now time.Time) Product {
	p := Product{ID: id, DateAdded: now.UTC()}
	p.Apply(in)
	return p
}

// ProductPage is one page of the offset-paged listing. LastKey is the offset of
// the next page, or nil when this page is the last one.
type ProductPage struct {
	Products []Product `json:"products"`
	LastKey  *int      `json:"lastKey"`
	Total    int       `json:"total"`
}
