package repository

import (
	"context"

	"github.com/baharkarakas/shop-backend/internal/models"
)

// Users stores accounts. Lookups of absent rows return apperr.ErrNotFound.
type Users interface {
	// CreateWithBasket inserts u and its empty basket as one unit. A taken
	// email is apperr.ErrConflict and leaves nothing behind.
	CreateWithBasket(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) error
}

// Baskets stores one line-item list per user. Save overwrites.
type Baskets interface {
	Get(ctx context.Context, userID string) ([]models.LineItem, error)
	Save(ctx context.Context, userID string, items []models.LineItem) error
}

type Products interface {
	List(ctx context.Context, offset, limit int) (models.ProductPage, error)
	Featured(ctx context.Context, limit int) ([]models.Product, error)
	Recent(ctx context.Context, limit int) ([]models.Product, error)
	Search(ctx context.Context, query string, limit int) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (models.Product, error)
	Create(ctx context.Context, p models.Product) (models.Product, error)
	Update(ctx context.Context, p models.Product) error
	// Delete succeeds whether or not id exists.
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type Orders interface {
	Create(ctx context.Context, o models.Order) (models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}

// Set bundles one implementation of every repository.
type Set struct {
	Users     Users
	Baskets   Baskets
	Products  Products
	Orders    Orders
	AuditLogs AuditLogs
}
