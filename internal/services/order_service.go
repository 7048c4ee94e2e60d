package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/baharkarakas/shop-backend/internal/metrics"
	"github.com/baharkarakas/shop-backend/internal/models"
	repo "github.com/baharkarakas/shop-backend/internal/repository"
)

type OrderService struct {
	orders repo.Orders
	audit  *Auditor
	log    *slog.Logger
	now    func() time.Time
}

func NewOrderService(orders repo.Orders, audit *Auditor, log *slog.Logger) *OrderService {
	return &OrderService{orders: orders, audit: audit, log: log, now: time.Now}
}

// Create records the order as given. Stock and the amount are not checked
// against the catalog.
func (s *OrderService) Create(ctx context.Context, actorID string, in models.OrderInput) (models.Order, error) {
	if err := in.Validate(); err != nil {
		return models.Order{}, err
	}
	o, err := s.orders.Create(ctx, models.NewOrder("", in, s.now()))
	if err != nil {
		return models.Order{}, fmt.Errorf("create order: %w", err)
	}
	metrics.OrdersCreated.Inc()
	s.log.Info("order created", "order_id", o.ID, "user_id", o.UserID, "items", len(o.Items))
	s.audit.Record("order", o.ID, "create", actorID, map[string]any{"amount": o.Amount, "items": len(o.Items)})
	return o, nil
}

// List returns the user's orders newest first.
func (s *OrderService) List(ctx context.Context, userID string) ([]models.Order, error) {
	out, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}
