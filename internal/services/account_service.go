package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/baharkarakas/shop-backend/internal/apperr"
	"github.com/baharkarakas/shop-backend/internal/models"
	repo "github.com/baharkarakas/shop-backend/internal/repository"
)

type AccountService struct {
	users   repo.Users
	baskets repo.Baskets
	log     *slog.Logger
}

func NewAccountService(users repo.Users, baskets repo.Baskets, log *slog.Logger) *AccountService {
	return &AccountService{users: users, baskets: baskets, log: log}
}

// Profile loads the user and the basket concurrently. A user without a
// basket row reads as an empty basket.
func (s *AccountService) Profile(ctx context.Context, id string) (models.Profile, error) {
	var (
		u     models.User
		items []models.LineItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		u, err = s.users.GetByID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.baskets.Get(gctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			items, err = []models.LineItem{}, nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Profile{}, fmt.Errorf("profile %s: %w", id, err)
	}
	return models.Profile{PublicUser: u.Public(), Basket: items}, nil
}

// UpdateProfile replaces every profile field; omitted ones reset to defaults.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) error {
	if err := s.users.UpdateProfile(ctx, id, p.Normalized()); err != nil {
		return fmt.Errorf("update profile %s: %w", id, err)
	}
	s.log.Debug("profile updated", "user_id", id)
	return nil
}

func (s *AccountService) Basket(ctx context.Context, id string) ([]models.LineItem, error) {
	items, err := s.baskets.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("basket %s: %w", id, err)
	}
	return items, nil
}

// SaveBasket overwrites the stored basket with items.
func (s *AccountService) SaveBasket(ctx context.Context, id string, items []models.LineItem) error {
	if items == nil {
		items = []models.LineItem{}
	}
	for _, it := range items {
		if it.ProductID == "" {
			return apperr.Invalid("basket: productId required")
		}
		if it.Quantity < 0 {
			return apperr.Invalid("basket: qty must be >= 0")
		}
	}
	if err := s.baskets.Save(ctx, id, items); err != nil {
		return fmt.Errorf("save basket %s: %w", id, err)
	}
	return nil
}
