package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/baharkarakas/shop-backend/internal/apperr"
	"github.com/baharkarakas/shop-backend/internal/catalog"
	"github.com/baharkarakas/shop-backend/internal/db"
	"github.com/baharkarakas/shop-backend/internal/models"
	"github.com/baharkarakas/shop-backend/internal/repository"
)

// testPool connects to TEST_DATABASE_URL, or to a throwaway postgres:16
// container when TEST_PG_CONTAINER=1. Without either the test is skipped.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		if os.Getenv("TEST_PG_CONTAINER") != "1" {
			t.Skip("set TEST_DATABASE_URL or TEST_PG_CONTAINER=1 to run postgres tests")
		}
		ctr, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("shop"),
			tcpostgres.WithUsername("shop"),
			tcpostgres.WithPassword("shop"),
			tcpostgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
		t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })
		dsn, err = ctr.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.RunMigrations(ctx, pool))
	// Twice: already-applied files are skipped.
	require.NoError(t, db.RunMigrations(ctx, pool))

	_, err = pool.Exec(ctx, `TRUNCATE audit_logs, orders, baskets, products, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

func TestUsersAndBaskets(t *testing.T) {
	repos := NewRepositories(testPool(t))
	ctx := context.Background()

	u, err := repos.Users.CreateWithBasket(ctx, models.User{Email: "a@shop.test", PasswordHash: "h", Role: models.RoleUser, DateJoined: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)

	items, err := repos.Baskets.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = repos.Users.CreateWithBasket(ctx, models.User{Email: "a@shop.test", PasswordHash: "h", Role: models.RoleUser})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	got, err := repos.Users.GetByEmail(ctx, "a@shop.test")
	require.NoError(t, err)
	assert.Equal(t, "h", got.PasswordHash)

	require.NoError(t, repos.Users.UpdateProfile(ctx, u.ID, models.ProfileUpdate{Fullname: "Ada", Address: "Elm"}))
	got, err = repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Fullname)
	assert.ErrorIs(t, repos.Users.UpdateProfile(ctx, "999", models.ProfileUpdate{}), apperr.ErrNotFound)

	basket := []models.LineItem{{ProductID: "7", Quantity: 2}}
	require.NoError(t, repos.Baskets.Save(ctx, u.ID, basket))
	items, err = repos.Baskets.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, basket, items)
	assert.ErrorIs(t, repos.Baskets.Save(ctx, "999", basket), apperr.ErrNotFound)
}

func TestProductsPagingSearchAndDelete(t *testing.T) {
	repos := NewRepositories(testPool(t))
	ctx := context.Background()
	seed(t, repos)

	page, err := repos.Products.List(ctx, 0, catalog.DefaultPageSize)
	require.NoError(t, err)
	assert.Len(t, page.Products, 12)
	assert.Equal(t, catalog.SampleCount, page.Total)
	require.NotNil(t, page.LastKey)
	assert.Equal(t, 12, *page.LastKey)
	assert.Equal(t, "1", page.Products[0].ID)

	page, err = repos.Products.List(ctx, 12, catalog.DefaultPageSize)
	require.NoError(t, err)
	assert.Nil(t, page.LastKey)

	hits, err := repos.Products.Search(ctx, "SAMPLE product 5", 12)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Sample Product 5", hits[0].Name)

	feat, err := repos.Products.Featured(ctx, 12)
	require.NoError(t, err)
	assert.Len(t, feat, 4)

	p := hits[0]
	p.Apply(models.ProductInput{Name: "Renamed"})
	require.NoError(t, repos.Products.Update(ctx, p))
	got, err := repos.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.NameLower)
	assert.False(t, got.IsFeatured)

	require.NoError(t, repos.Products.Delete(ctx, p.ID))
	require.NoError(t, repos.Products.Delete(ctx, p.ID))
	_, err = repos.Products.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, repos.Products.Update(ctx, p), apperr.ErrNotFound)

	n, err := repos.Products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalog.SampleCount-1, n)
}

func TestOrdersAndAudit(t *testing.T) {
	repos := NewRepositories(testPool(t))
	ctx := context.Background()

	u, err := repos.Users.CreateWithBasket(ctx, models.User{Email: "o@shop.test", PasswordHash: "h", Role: models.RoleUser})
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 1; i <= 2; i++ {
		_, err := repos.Orders.Create(ctx, models.NewOrder("", models.OrderInput{
			UserID: u.ID,
			Items:  []models.LineItem{{ProductID: "1", Quantity: i}},
			Amount: float64(i),
		}, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	orders, err := repos.Orders.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, 2.0, orders[0].Amount)

	_, err = repos.Orders.Create(ctx, models.NewOrder("", models.OrderInput{UserID: "999"}, base))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, repos.AuditLogs.Create(ctx, models.AuditLog{
		EntityType: "order", EntityID: orders[0].ID, Action: "order:create", ActorID: u.ID,
		Details: map[string]any{"amount": 2.0},
	}))
}

func seed(t *testing.T, repos repository.Set) {
	t.Helper()
	for _, p := range catalog.Samples(time.Now()) {
		_, err := repos.Products.Create(context.Background(), p)
		require.NoError(t, err)
	}
}
