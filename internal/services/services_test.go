package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/baharkarakas/shop-backend/internal/apperr"
	"github.com/baharkarakas/shop-backend/internal/auth"
	"github.com/baharkarakas/shop-backend/internal/logger"
	"github.com/baharkarakas/shop-backend/internal/models"
	"github.com/baharkarakas/shop-backend/internal/repository/memory"
)

func init() { auth.Cost = bcrypt.MinCost }

type fixture struct {
	store    *memory.Store
	auth     *AuthService
	accounts *AccountService
	catalog  *CatalogService
	orders   *OrderService
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	repos := store.Repositories()
	log := logger.Discard()
	audit := NewAuditor(repos.AuditLogs, nil, log)
	tm := auth.NewTokenManager("test-secret", "shop-test", time.Hour)
	isAdmin := func(email string) bool { return email == "admin@shop.test" }
	return fixture{
		store:    store,
		auth:     NewAuthService(repos.Users, tm, isAdmin, audit, log),
		accounts: NewAccountService(repos.Users, repos.Baskets, log),
		catalog:  NewCatalogService(repos.Products, audit, log),
		orders:   NewOrderService(repos.Orders, audit, log),
	}
}

func TestSignupCreatesEmptyBasket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.auth.Signup(ctx, models.SignupInput{Email: " ann@shop.test ", Password: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "ann@shop.test", res.User.Email)
	assert.Equal(t, models.RoleUser, res.User.Role)
	assert.Equal(t, "User", res.User.Fullname)
	assert.Equal(t, models.DefaultAvatar, res.User.Avatar)

	items, err := f.accounts.Basket(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSignupTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Signup(ctx, models.SignupInput{Email: "dup@shop.test", Password: "pw"})
	require.NoError(t, err)
	_, err = f.auth.Signup(ctx, models.SignupInput{Email: "dup@shop.test", Password: "other"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Signup(context.Background(), models.SignupInput{Email: "x@shop.test"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestAdminEmailGetsAdminRole(t *testing.T) {
	f := newFixture(t)
	res, err := f.auth.Signup(context.Background(), models.SignupInput{Email: "admin@shop.test", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, res.User.Role)
}

func TestSigninIsGeneric(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Signup(ctx, models.SignupInput{Email: "bob@shop.test", Password: "right"})
	require.NoError(t, err)

	_, errWrongPw := f.auth.Signin(ctx, "bob@shop.test", "wrong")
	_, errNoUser := f.auth.Signin(ctx, "nobody@shop.test", "right")
	assert.ErrorIs(t, errWrongPw, apperr.ErrInvalidCredentials)
	assert.ErrorIs(t, errNoUser, apperr.ErrInvalidCredentials)
	assert.Equal(t, errWrongPw.Error(), errNoUser.Error())

	res, err := f.auth.Signin(ctx, "bob@shop.test", "right")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestProfileIncludesBasketAndUpdateIsFullReplace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.auth.Signup(ctx, models.SignupInput{Email: "p@shop.test", Password: "pw", Fullname: "Pat"})
	require.NoError(t, err)
	id := res.User.ID

	require.NoError(t, f.accounts.UpdateProfile(ctx, id, models.ProfileUpdate{
		Fullname: "Pat Q",
		Avatar:   "/a.png",
		Address:  "Street 1",
		Mobile:   &models.Mobile{Value: "+1555"},
	}))
	require.NoError(t, f.accounts.UpdateProfile(ctx, id, models.ProfileUpdate{Fullname: "Pat R"}))

	items := []models.LineItem{{ProductID: "p-1", Quantity: 2}}
	require.NoError(t, f.accounts.SaveBasket(ctx, id, items))

	prof, err := f.accounts.Profile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Pat R", prof.Fullname)
	assert.Equal(t, models.DefaultAvatar, prof.Avatar)
	assert.Equal(t, "", prof.Address)
	assert.Equal(t, models.Mobile{}, prof.Mobile)
	assert.Equal(t, items, prof.Basket)

	_, err = f.accounts.Profile(ctx, "999")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSaveBasketOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.auth.Signup(ctx, models.SignupInput{Email: "b@shop.test", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, f.accounts.SaveBasket(ctx, res.User.ID, []models.LineItem{{ProductID: "p-9", Quantity: 5}, {ProductID: "p-3", Quantity: 1}}))
	want := []models.LineItem{{ProductID: "p-1", Quantity: 2}}
	require.NoError(t, f.accounts.SaveBasket(ctx, res.User.ID, want))

	got, err := f.accounts.Basket(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.ErrorIs(t, f.accounts.SaveBasket(ctx, "404", want), apperr.ErrNotFound)
	assert.ErrorIs(t, f.accounts.SaveBasket(ctx, res.User.ID, []models.LineItem{{Quantity: 1}}), apperr.ErrInvalidInput)
}

func seeded(t *testing.T) fixture {
	t.Helper()
	f := newFixture(t)
	n, err := f.catalog.SeedSamples(context.Background())
	require.NoError(t, err)
	require.Equal(t, 24, n)
	return f
}

func TestSeedOnlyIntoEmptyCatalog(t *testing.T) {
	f := seeded(t)
	n, err := f.catalog.SeedSamples(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListPaging(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()

	first, err := f.catalog.List(ctx, 0, 12)
	require.NoError(t, err)
	require.Len(t, first.Products, 12)
	require.NotNil(t, first.LastKey)
	assert.Equal(t, 12, *first.LastKey)
	assert.Equal(t, 24, first.Total)
	for i := 1; i < len(first.Products); i++ {
		assert.Less(t, idNum(first.Products[i-1].ID), idNum(first.Products[i].ID))
	}

	second, err := f.catalog.List(ctx, 12, 12)
	require.NoError(t, err)
	assert.Len(t, second.Products, 12)
	assert.Nil(t, second.LastKey)
	assert.Equal(t, 24, second.Total)
}

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	f := seeded(t)
	got, err := f.catalog.Search(context.Background(), "SAMPLE product 5", 12)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Sample Product 5", got[0].Name)

	all, err := f.catalog.Search(context.Background(), "", 100)
	require.NoError(t, err)
	assert.Len(t, all, 24)
}

func TestFeaturedAndRecommended(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()

	feat, err := f.catalog.Featured(ctx, 12)
	require.NoError(t, err)
	require.Len(t, feat, 4)
	assert.Equal(t, "Sample Product 5", feat[0].Name)
	for _, p := range feat {
		assert.True(t, p.IsFeatured)
	}

	rec, err := f.catalog.Recommended(ctx, 3)
	require.NoError(t, err)
	require.Len(t, rec, 3)
	assert.Equal(t, "Sample Product 1", rec[0].Name)
}

func TestUpdateIsFullReplace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.catalog.Create(ctx, "1", models.ProductInput{
		Name:        "Old Name",
		Brand:       "Acme",
		Price:       9,
		Description: "desc",
		IsFeatured:  true,
	})
	require.NoError(t, err)

	in := models.ProductInput{Name: "New NAME", Price: 3, ImageCollection: []models.Image{{ID: "i", URL: "/i.png"}}}
	require.NoError(t, f.catalog.Update(ctx, "1", p.ID, in))

	got, err := f.catalog.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, in, got.Input())
	assert.Equal(t, "new name", got.NameLower)
	assert.Equal(t, p.DateAdded, got.DateAdded)

	assert.ErrorIs(t, f.catalog.Update(ctx, "1", "999", in), apperr.ErrNotFound)
	assert.ErrorIs(t, f.catalog.Update(ctx, "1", p.ID, models.ProductInput{}), apperr.ErrInvalidInput)
}

func TestDeleteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	assert.NoError(t, f.catalog.Delete(ctx, "1", "12345"))

	p, err := f.catalog.Create(ctx, "1", models.ProductInput{Name: "Gone"})
	require.NoError(t, err)
	require.NoError(t, f.catalog.Delete(ctx, "1", p.ID))
	_, err = f.catalog.Get(ctx, p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestOrdersSnapshotAndAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.auth.Signup(ctx, models.SignupInput{Email: "o@shop.test", Password: "pw"})
	require.NoError(t, err)
	uid := res.User.ID

	o, err := f.orders.Create(ctx, uid, models.OrderInput{
		UserID: uid,
		Items:  []models.LineItem{{ProductID: "1", Quantity: 1, Price: 11}},
		Amount: 11,
	})
	require.NoError(t, err)
	assert.Equal(t, 11.0, o.Amount)

	_, err = f.orders.Create(ctx, uid, models.OrderInput{UserID: uid, Amount: 1})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = f.orders.Create(ctx, uid, models.OrderInput{UserID: uid, Items: o.Items, Amount: -1})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	list, err := f.orders.List(ctx, uid)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, o.ID, list[0].ID)

	var actions []string
	for _, e := range f.store.AuditEntries() {
		actions = append(actions, e.EntityType+":"+e.Action)
	}
	assert.Equal(t, []string{"user:signup", "order:create"}, actions)
}

func idNum(id string) int {
	n := 0
	for _, c := range id {
		n = n*10 + int(c-'0')
	}
	return n
}
