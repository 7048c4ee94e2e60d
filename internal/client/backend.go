// Package client is the data access facade the front end talks to. Three
// adapters implement Backend: one over the HTTP API, one over local key-value
// storage and one over Redis. Callers never branch on which one they hold.
package client

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"

	"github.com/baharkarakas/shop-backend/internal/apperr"
	"github.com/baharkarakas/shop-backend/internal/models"
)

type Identity interface {
	CreateAccount(ctx context.Context, in models.SignupInput) (models.PublicUser, error)
	SignIn(ctx context.Context, email, password string) (models.PublicUser, error)
	SignOut(ctx context.Context) error
	// SignInWithProvider fails with apperr.ErrNotSupported unless a social
	// identity backend is wired up.
	SignInWithProvider(ctx context.Context, provider string) (models.PublicUser, error)
	PasswordReset(ctx context.Context, email string) error
	PasswordUpdate(ctx context.Context, password string) error
}

type Accounts interface {
	GetUser(ctx context.Context, id string) (models.Profile, error)
	UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) error
	GetBasket(ctx context.Context, id string) ([]models.LineItem, error)
	SaveBasketItems(ctx context.Context, id string, items []models.LineItem) error
}

type Catalog interface {
	GetProduct(ctx context.Context, id string) (models.Product, error)
	GetProducts(ctx context.Context, offset int) (models.ProductPage, error)
	SearchProducts(ctx context.Context, q string) ([]models.Product, error)
	GetFeaturedProducts(ctx context.Context, n int) ([]models.Product, error)
	GetRecommendedProducts(ctx context.Context, n int) ([]models.Product, error)
	// AddProduct stores in under key where the backend honours caller keys;
	// the HTTP API assigns its own id. The stored product is returned.
	AddProduct(ctx context.Context, key string, in models.ProductInput) (models.Product, error)
	EditProduct(ctx context.Context, id string, in models.ProductInput) error
	RemoveProduct(ctx context.Context, id string) error
}

type Orders interface {
	CreateOrder(ctx context.Context, in models.OrderInput) (models.Order, error)
	ListOrders(ctx context.Context, userID string) ([]models.Order, error)
}

type Images interface {
	// StoreImage returns a reference the front end can put in an <img>.
	StoreImage(ctx context.Context, key, folder, contentType string, data []byte) (string, error)
	DeleteImage(ctx context.Context, key, folder string) error
}

type Backend interface {
	Identity
	Accounts
	Catalog
	Orders
	Images
	Session() *Session
	GenerateKey() string
	Close() error
}

// NewKey returns a time-ordered UUIDv7, usable as a product id before the
// record is written.
func NewKey() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// DataURL inlines data as a base64 data: URL.
func DataURL(contentType string, data []byte) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Authorize applies the server's ownership rule: the signed-in user may act
// on their own records, admins on anyone's.
func Authorize(current *models.PublicUser, userID string) error {
	if current == nil {
		return apperr.ErrUnauthorized
	}
	if current.ID != userID && current.Role != models.RoleAdmin {
		return apperr.New(apperr.ErrForbidden, "not allowed to access this user")
	}
	return nil
}

// RequireAdmin guards catalog mutations.
func RequireAdmin(current *models.PublicUser) error {
	if current == nil {
		return apperr.ErrUnauthorized
	}
	if current.Role != models.RoleAdmin {
		return apperr.New(apperr.ErrForbidden, "requires role ADMIN")
	}
	return nil
}

// IsAdminEmail matches email exactly against a configured allow list.
func IsAdminEmail(admins []string, email string) bool {
	for _, a := range admins {
		if strings.TrimSpace(a) == email {
			return true
		}
	}
	return false
}

var socialProviders = map[string]bool{"google": true, "facebook": true, "github": true}

// UnsupportedProvider is the result every adapter gives for social sign-in.
func UnsupportedProvider(provider string) error {
	if !socialProviders[strings.ToLower(provider)] {
		return apperr.Invalid("unknown provider %q", provider)
	}
	return apperr.New(apperr.ErrNotSupported, provider+" sign-in is not available")
}
