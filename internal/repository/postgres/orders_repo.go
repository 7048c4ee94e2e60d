package postgres

import (
	"context"
	"fmt"

	"github.com/baharkarakas/shop-backend/internal/apperr"
	"github.com/baharkarakas/shop-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ordersRepo struct{ pool *pgxpool.Pool }

const orderCols = `id, user_id, items, amount, shipping, payment, date_created`

func scanOrder(row pgx.Row) (models.Order, error) {
	var (
		o                        models.Order
		id, userID               int64
		items, shipping, payment []byte
	)
	if err := row.Scan(&id, &userID, &items, &o.Amount, &shipping, &payment, &o.DateCreated); err != nil {
		return models.Order{}, err
	}
	o.ID = formatID(id)
	o.UserID = formatID(userID)
	o.Items = []models.LineItem{}
	for _, f := range []struct {
		raw []byte
		dst any
	}{{items, &o.Items}, {shipping, &o.Shipping}, {payment, &o.Payment}} {
		if err := decodeJSON(f.raw, f.dst); err != nil {
			return models.Order{}, err
		}
	}
	return o, nil
}

func (r *ordersRepo) Create(ctx context.Context, o models.Order) (models.Order, error) {
	uid, ok := parseID(o.UserID)
	if !ok {
		return models.Order{}, apperr.New(apperr.ErrNotFound, "user not found")
	}
	items, err := encodeJSON(o.Items)
	if err != nil {
		return models.Order{}, err
	}
	shipping, err := encodeJSON(o.Shipping)
	if err != nil {
		return models.Order{}, err
	}
	payment, err := encodeJSON(o.Payment)
	if err != nil {
		return models.Order{}, err
	}
	created, err := scanOrder(r.pool.QueryRow(ctx,
		`INSERT INTO orders (user_id, items, amount, shipping, payment, date_created)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING `+orderCols,
		uid, items, o.Amount, shipping, payment, o.DateCreated,
	))
	if err != nil {
		if pgCode(err) == "23503" {
			return models.Order{}, apperr.New(apperr.ErrNotFound, "user not found")
		}
		return models.Order{}, fmt.Errorf("orders: insert: %w", err)
	}
	return created, nil
}

func (r *ordersRepo) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	out := []models.Order{}
	uid, ok := parseID(userID)
	if !ok {
		return out, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderCols+`
		   FROM orders
		  WHERE user_id=$1
		  ORDER BY date_created DESC, id DESC`,
		uid,
	)
	if err != nil {
		return nil, fmt.Errorf("orders: list: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
