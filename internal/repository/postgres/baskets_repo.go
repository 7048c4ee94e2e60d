package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/baharkarakas/shop-backend/internal/apperr"
	"github.com/baharkarakas/shop-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type basketsRepo struct{ pool *pgxpool.Pool }

func (r *basketsRepo) Get(ctx context.Context, userID string) ([]models.LineItem, error) {
	n, ok := parseID(userID)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT items FROM baskets WHERE user_id=$1`, n).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("baskets: get: %w", err)
	}
	items := []models.LineItem{}
	if err := decodeJSON(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Save replaces the stored list wholesale.
func (r *basketsRepo) Save(ctx context.Context, userID string, items []models.LineItem) error {
	n, ok := parseID(userID)
	if !ok {
		return apperr.ErrNotFound
	}
	if items == nil {
		items = []models.LineItem{}
	}
	raw, err := encodeJSON(items)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE baskets SET items=$2 WHERE user_id=$1`, n, raw)
	if err != nil {
		return fmt.Errorf("baskets: save: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
