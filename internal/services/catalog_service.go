package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/baharkarakas/shop-backend/internal/catalog"
	"github.com/baharkarakas/shop-backend/internal/metrics"
	"github.com/baharkarakas/shop-backend/internal/models"
	repo "github.com/baharkarakas/shop-backend/internal/repository"
)

type CatalogService struct {
	products repo.Products
	audit    *Auditor
	log      *slog.Logger
	now      func() time.Time
}

func NewCatalogService(products repo.Products, audit *Auditor, log *slog.Logger) *CatalogService {
	return &CatalogService{products: products, audit: audit, log: log, now: time.Now}
}

func (s *CatalogService) List(ctx context.Context, offset, limit int) (models.ProductPage, error) {
	if offset < 0 {
		offset = 0
	}
	page, err := s.products.List(ctx, offset, catalog.Limit(limit))
	if err != nil {
		return models.ProductPage{}, fmt.Errorf("list products: %w", err)
	}
	return page, nil
}

func (s *CatalogService) Featured(ctx context.Context, limit int) ([]models.Product, error) {
	return s.products.Featured(ctx, catalog.Limit(limit))
}

// Recommended is currently the most recently added products.
func (s *CatalogService) Recommended(ctx context.Context, limit int) ([]models.Product, error) {
	return s.products.Recent(ctx, catalog.Limit(limit))
}

func (s *CatalogService) Search(ctx context.Context, q string, limit int) ([]models.Product, error) {
	return s.products.Search(ctx, catalog.Query(q), catalog.Limit(limit))
}

func (s *CatalogService) Get(ctx context.Context, id string) (models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return models.Product{}, fmt.Errorf("product %s: %w", id, err)
	}
	return p, nil
}

func (s *CatalogService) Create(ctx context.Context, actorID string, in models.ProductInput) (models.Product, error) {
	if err := in.Validate(); err != nil {
		return models.Product{}, err
	}
	p, err := s.products.Create(ctx, models.NewProduct("", in, s.now()))
	if err != nil {
		s.log.Error("product create failed", "err", err)
		return models.Product{}, err
	}
	s.mutated("create", p.ID, actorID)
	return p, nil
}

// Update is a full replace of the mutable fields.
func (s *CatalogService) Update(ctx context.Context, actorID, id string, in models.ProductInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("product %s: %w", id, err)
	}
	p.Apply(in)
	if err := s.products.Update(ctx, p); err != nil {
		return fmt.Errorf("product %s: %w", id, err)
	}
	s.mutated("update", id, actorID)
	return nil
}

// Delete succeeds for ids that do not exist.
func (s *CatalogService) Delete(ctx context.Context, actorID, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("product %s: %w", id, err)
	}
	s.mutated("delete", id, actorID)
	return nil
}

// SeedSamples fills an empty catalog with the demo products and reports how
// many were inserted.
func (s *CatalogService) SeedSamples(ctx context.Context) (int, error) {
	n, err := s.products.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	for i, p := range catalog.Samples(s.now()) {
		if _, err := s.products.Create(ctx, p); err != nil {
			return i, fmt.Errorf("seed: %w", err)
		}
	}
	s.log.Info("seeded sample products", "count", catalog.SampleCount)
	return catalog.SampleCount, nil
}

func (s *CatalogService) mutated(action, id, actorID string) {
	metrics.CatalogMutations.WithLabelValues(action).Inc()
	s.log.Info("product "+action, "product_id", id, "actor", actorID)
	s.audit.Record("product", id, action, actorID, nil)
}
