package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/baharkarakas/shop-backend/internal/apperr"
	"github.com/baharkarakas/shop-backend/internal/catalog"
	"github.com/baharkarakas/shop-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type productsRepo struct{ pool *pgxpool.Pool }

const productCols = `id, name, name_lower, brand, price, max_quantity, description, is_featured, quantity, image, image_collection, date_added`

func scanProduct(row pgx.Row) (models.Product, error) {
	var (
		p      models.Product
		id     int64
		images []byte
	)
	err := row.Scan(&id, &p.Name, &p.NameLower, &p.Brand, &p.Price, &p.MaxQuantity, &p.Description,
		&p.IsFeatured, &p.Quantity, &p.Image, &images, &p.DateAdded)
	if err != nil {
		return models.Product{}, err
	}
	p.ID = formatID(id)
	p.ImageCollection = []models.Image{}
	if err := decodeJSON(images, &p.ImageCollection); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

func (r *productsRepo) query(ctx context.Context, q string, args ...any) ([]models.Product, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("products: query: %w", err)
	}
	defer rows.Close()

	out := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *productsRepo) List(ctx context.Context, offset, limit int) (models.ProductPage, error) {
	if offset < 0 {
		offset = 0
	}
	limit = catalog.Limit(limit)
	items, err := r.query(ctx, `SELECT `+productCols+` FROM products ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return models.ProductPage{}, err
	}
	total, err := r.Count(ctx)
	if err != nil {
		return models.ProductPage{}, err
	}
	return models.ProductPage{Products: items, LastKey: catalog.Cursor(offset, limit, total), Total: total}, nil
}

func (r *productsRepo) Featured(ctx context.Context, limit int) ([]models.Product, error) {
	return r.query(ctx, `SELECT `+productCols+` FROM products WHERE is_featured ORDER BY date_added DESC, id DESC LIMIT $1`, catalog.Limit(limit))
}

func (r *productsRepo) Recent(ctx context.Context, limit int) ([]models.Product, error) {
	return r.query(ctx, `SELECT `+productCols+` FROM products ORDER BY date_added DESC, id DESC LIMIT $1`, catalog.Limit(limit))
}

// Search uses strpos rather than LIKE so that % and _ in the query match
// literally.
func (r *productsRepo) Search(ctx context.Context, query string, limit int) ([]models.Product, error) {
	return r.query(ctx,
		`SELECT `+productCols+` FROM products WHERE strpos(name_lower, $1) > 0 ORDER BY name_lower, id LIMIT $2`,
		catalog.Query(query), catalog.Limit(limit))
}

func (r *productsRepo) GetByID(ctx context.Context, id string) (models.Product, error) {
	n, ok := parseID(id)
	if !ok {
		return models.Product{}, apperr.ErrNotFound
	}
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, n))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Product{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("products: get: %w", err)
	}
	return p, nil
}

func (r *productsRepo) Create(ctx context.Context, p models.Product) (models.Product, error) {
	images, err := encodeJSON(nonNilImages(p.ImageCollection))
	if err != nil {
		return models.Product{}, err
	}
	created, err := scanProduct(r.pool.QueryRow(ctx,
		`INSERT INTO products (name, name_lower, brand, price, max_quantity, description, is_featured, quantity, image, image_collection, date_added)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 RETURNING `+productCols,
		p.Name, p.NameLower, p.Brand, p.Price, p.MaxQuantity, p.Description, p.IsFeatured, p.Quantity, p.Image, images, p.DateAdded,
	))
	if err != nil {
		return models.Product{}, fmt.Errorf("products: insert: %w", err)
	}
	return created, nil
}

func (r *productsRepo) Update(ctx context.Context, p models.Product) error {
	n, ok := parseID(p.ID)
	if !ok {
		return apperr.ErrNotFound
	}
	images, err := encodeJSON(nonNilImages(p.ImageCollection))
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE products
		    SET name=$2, name_lower=$3, brand=$4, price=$5, max_quantity=$6, description=$7,
		        is_featured=$8, quantity=$9, image=$10, image_collection=$11
		  WHERE id=$1`,
		n, p.Name, p.NameLower, p.Brand, p.Price, p.MaxQuantity, p.Description, p.IsFeatured, p.Quantity, p.Image, images,
	)
	if err != nil {
		return fmt.Errorf("products: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *productsRepo) Delete(ctx context.Context, id string) error {
	n, ok := parseID(id)
	if !ok {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, n); err != nil {
		return fmt.Errorf("products: delete: %w", err)
	}
	return nil
}

func (r *productsRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(1) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("products: count: %w", err)
	}
	return n, nil
}

func nonNilImages(in []models.Image) []models.Image {
	if in == nil {
		return []models.Image{}
	}
	return in
}
