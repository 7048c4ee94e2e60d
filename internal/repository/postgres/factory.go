package postgres

import (
	repo "github.com/baharkarakas/shop-backend/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositories(pool *pgxpool.Pool) repo.Set {
	return repo.Set{
		Users:     &usersRepo{pool},
		Baskets:   &basketsRepo{pool},
		Products:  &productsRepo{pool},
		Orders:    &ordersRepo{pool},
		AuditLogs: &auditLogsRepo{pool},
	}
}
