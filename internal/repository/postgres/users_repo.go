// internal/repository/postgres/users_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/baharkarakas/shop-backend/internal/apperr"
	"github.com/baharkarakas/shop-backend/internal/models"
	"github.com/baharkarakas/shop-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type usersRepo struct{ pool *pgxpool.Pool }

func NewUsers(pool *pgxpool.Pool) repository.Users {
	return &usersRepo{pool: pool}
}

const userCols = `id, email, password_hash, role, fullname, avatar, banner, address, mobile, date_joined`

func scanUser(row pgx.Row) (models.User, error) {
	var (
		u      models.User
		id     int64
		mobile []byte
	)
	err := row.Scan(&id, &u.Email, &u.PasswordHash, &u.Role, &u.Fullname, &u.Avatar, &u.Banner, &u.Address, &mobile, &u.DateJoined)
	if err != nil {
		return models.User{}, err
	}
	u.ID = formatID(id)
	if err := decodeJSON(mobile, &u.Mobile); err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (r *usersRepo) CreateWithBasket(ctx context.Context, u models.User) (models.User, error) {
	mobile, err := encodeJSON(u.Mobile)
	if err != nil {
		return models.User{}, err
	}
	var created models.User
	err = withTx(ctx, r.pool, func(tx pgx.Tx) error {
		created, err = scanUser(tx.QueryRow(ctx,
			`INSERT INTO users (email, password_hash, role, fullname, avatar, banner, address, mobile, date_joined)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			 RETURNING `+userCols,
			u.Email, u.PasswordHash, string(u.Role), u.Fullname, u.Avatar, u.Banner, u.Address, mobile, u.DateJoined,
		))
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.New(apperr.ErrConflict, "Email already in use")
			}
			return fmt.Errorf("users: insert: %w", err)
		}
		id, _ := parseID(created.ID)
		if _, err := tx.Exec(ctx, `INSERT INTO baskets (user_id, items) VALUES ($1, '[]'::jsonb)`, id); err != nil {
			return fmt.Errorf("users: create basket: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return created, nil
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	n, ok := parseID(id)
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, n)
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.getOne(ctx, `SELECT `+userCols+` FROM users WHERE email=$1`, email)
}

func (r *usersRepo) getOne(ctx context.Context, q string, arg any) (models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, q, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("users: get: %w", err)
	}
	return u, nil
}

func (r *usersRepo) UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) error {
	n, ok := parseID(id)
	if !ok {
		return apperr.ErrNotFound
	}
	p = p.Normalized()
	mobile, err := encodeJSON(p.Mobile)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET fullname=$2, avatar=$3, banner=$4, address=$5, mobile=$6 WHERE id=$1`,
		n, p.Fullname, p.Avatar, p.Banner, p.Address, mobile,
	)
	if err != nil {
		return fmt.Errorf("users: update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
