package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/baharkarakas/shop-backend/internal/auth"
	"github.com/baharkarakas/shop-backend/internal/config"
	"github.com/baharkarakas/shop-backend/internal/logger"
	"github.com/baharkarakas/shop-backend/internal/models"
	"github.com/baharkarakas/shop-backend/internal/repository"
	"github.com/baharkarakas/shop-backend/internal/repository/memory"
	"github.com/baharkarakas/shop-backend/internal/services"
)

func init() { auth.Cost = bcrypt.MinCost }

const adminEmail = "admin@shop.test"

// countingUsers records every call that reaches the user store.
type countingUsers struct {
	repository.Users
	calls atomic.Int32
}

func (c *countingUsers) GetByID(ctx context.Context, id string) (models.User, error) {
	c.calls.Add(1)
	return c.Users.GetByID(ctx, id)
}

type countingOrders struct {
	repository.Orders
	calls atomic.Int32
}

func (c *countingOrders) Create(ctx context.Context, o models.Order) (models.Order, error) {
	c.calls.Add(1)
	return c.Orders.Create(ctx, o)
}

func (c *countingOrders) ListByUser(ctx context.Context, id string) ([]models.Order, error) {
	c.calls.Add(1)
	return c.Orders.ListByUser(ctx, id)
}

type testServer struct {
	srv    *httptest.Server
	users  *countingUsers
	orders *countingOrders
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repos := memory.New().Repositories()
	users := &countingUsers{Users: repos.Users}
	orders := &countingOrders{Orders: repos.Orders}
	log := logger.Discard()
	cfg := config.Config{CORSOrigins: []string{"*"}, AdminEmails: []string{adminEmail}}
	tm := auth.NewTokenManager("router-secret", "shop-test", time.Hour)
	audit := services.NewAuditor(repos.AuditLogs, nil, log)

	catalogSvc := services.NewCatalogService(repos.Products, audit, log)
	_, err := catalogSvc.SeedSamples(context.Background())
	require.NoError(t, err)

	h := NewRouter(RouterDeps{
		Cfg:      cfg,
		Tokens:   tm,
		Auth:     services.NewAuthService(users, tm, cfg.IsAdminEmail, audit, log),
		Accounts: services.NewAccountService(users, repos.Baskets, log),
		Catalog:  catalogSvc,
		Orders:   services.NewOrderService(orders, audit, log),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, users: users, orders: orders}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type authResp struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

type errResp struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (s *testServer) signup(t *testing.T, email string) authResp {
	t.Helper()
	var res authResp
	code := s.do(t, http.MethodPost, "/auth/signup", "", map[string]string{"email": email, "password": "pw"}, &res)
	require.Equal(t, http.StatusCreated, code)
	return res
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.srv.Client().Get(s.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignupSigninMe(t *testing.T) {
	s := newTestServer(t)
	reg := s.signup(t, "ann@shop.test")
	assert.NotEmpty(t, reg.Token)

	var prof struct {
		Profile models.Profile `json:"profile"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/users/"+reg.User.ID, reg.Token, nil, &prof))
	assert.NotNil(t, prof.Profile.Basket)
	assert.Empty(t, prof.Profile.Basket)

	var e errResp
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/auth/signup", "", map[string]string{"email": "ann@shop.test", "password": "x"}, &e))
	assert.Equal(t, "conflict", e.Code)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/auth/signin", "", map[string]string{"email": "ann@shop.test", "password": "bad"}, &e))
	assert.Equal(t, "invalid_credentials", e.Code)

	var in authResp
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/auth/signin", "", map[string]string{"email": "ann@shop.test", "password": "pw"}, &in))

	var me struct {
		User models.PublicUser `json:"user"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/auth/me", in.Token, nil, &me))
	assert.Equal(t, reg.User.ID, me.User.ID)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/auth/me", "garbage", nil, &e))
	assert.Equal(t, "invalid_token", e.Code)
}

func TestProtectedRoutesRejectBeforePersistence(t *testing.T) {
	s := newTestServer(t)
	routes := []struct{ method, path string }{
		{http.MethodGet, "/auth/me"},
		{http.MethodGet, "/users/1"},
		{http.MethodPut, "/users/1"},
		{http.MethodPut, "/users/1/basket"},
		{http.MethodPost, "/products"},
		{http.MethodPut, "/products/1"},
		{http.MethodDelete, "/products/1"},
		{http.MethodPost, "/orders"},
		{http.MethodGet, "/orders?userId=1"},
	}
	for _, rt := range routes {
		var e errResp
		code := s.do(t, rt.method, rt.path, "", map[string]any{"userId": "1", "items": []any{map[string]any{"productId": "1", "qty": 1}}}, &e)
		assert.Equal(t, http.StatusUnauthorized, code, rt.path)
		assert.Equal(t, "unauthorized", e.Code, rt.path)
	}
	assert.Zero(t, s.users.calls.Load())
	assert.Zero(t, s.orders.calls.Load())
}

func TestProductListingContract(t *testing.T) {
	s := newTestServer(t)

	var page models.ProductPage
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/products?offset=0&limit=12", "", nil, &page))
	assert.Len(t, page.Products, 12)
	require.NotNil(t, page.LastKey)
	assert.Equal(t, 12, *page.LastKey)
	assert.Equal(t, 24, page.Total)
	assert.Equal(t, "1", page.Products[0].ID)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/products?offset=12", "", nil, &page))
	assert.Len(t, page.Products, 12)
	assert.Nil(t, page.LastKey)
	assert.Equal(t, 24, page.Total)

	var list struct {
		Products []models.Product `json:"products"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/products/search?q=sample%20product%205&limit=12", "", nil, &list))
	require.Len(t, list.Products, 1)
	assert.Equal(t, "Sample Product 5", list.Products[0].Name)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/products/search?q=%20sample%20product%205%20", "", nil, &list))
	require.Len(t, list.Products, 1)
	assert.Equal(t, "Sample Product 5", list.Products[0].Name)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/products/featured?limit=2", "", nil, &list))
	assert.Len(t, list.Products, 2)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/products/recommended", "", nil, &list))
	assert.Len(t, list.Products, 12)

	var one struct {
		Product models.Product `json:"product"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/products/3", "", nil, &one))
	assert.Equal(t, "Sample Product 3", one.Product.Name)

	var e errResp
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/products/999", "", nil, &e))
	assert.Equal(t, "not_found", e.Code)
}

func TestProductMutationsRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "user@shop.test")
	admin := s.signup(t, adminEmail)
	in := models.ProductInput{Name: "Trail Shoe", Brand: "Acme", Price: 80, Quantity: 3, ImageCollection: []models.Image{}}

	var e errResp
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/products", user.Token, in, &e))
	assert.Equal(t, "forbidden", e.Code)

	var created struct {
		ID      string         `json:"id"`
		Product models.Product `json:"product"`
	}
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/products", admin.Token, in, &created))
	assert.Equal(t, "trail shoe", created.Product.NameLower)

	upd := models.ProductInput{Name: "Road SHOE", Price: 70, ImageCollection: []models.Image{}}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/products/"+created.ID, admin.Token, upd, nil))

	var got struct {
		Product models.Product `json:"product"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/products/"+created.ID, "", nil, &got))
	assert.Equal(t, upd, got.Product.Input())
	assert.Equal(t, "road shoe", got.Product.NameLower)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/products/"+created.ID, admin.Token, nil, nil))
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/products/"+created.ID, admin.Token, nil, nil))
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/products/123456", admin.Token, nil, nil))

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/products", admin.Token, models.ProductInput{Price: -1}, &e))
}

func TestAdminEmailCaseVariantIsPlainUser(t *testing.T) {
	s := newTestServer(t)
	admin := s.signup(t, adminEmail)
	require.Equal(t, models.RoleAdmin, admin.User.Role)

	variant := s.signup(t, "ADMIN@shop.test")
	assert.Equal(t, models.RoleUser, variant.User.Role)
	assert.NotEqual(t, admin.User.ID, variant.User.ID)

	in := models.ProductInput{Name: "Nope", ImageCollection: []models.Image{}}
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/products", variant.Token, in, nil))
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/users/"+admin.User.ID, variant.Token, nil, nil))
}

func TestBasketRoundTripAndOwnership(t *testing.T) {
	s := newTestServer(t)
	a := s.signup(t, "a@shop.test")
	b := s.signup(t, "b@shop.test")

	basket := map[string]any{"basket": []map[string]any{{"productId": "p-1", "qty": 2, "maxQuantity": 5}}}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/users/"+a.User.ID+"/basket", a.Token, basket, nil))

	var prof struct {
		Profile models.Profile `json:"profile"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/users/"+a.User.ID, a.Token, nil, &prof))
	assert.Equal(t, []models.LineItem{{
		ProductID: "p-1",
		Quantity:  2,
		Extra:     map[string]json.RawMessage{"maxQuantity": json.RawMessage("5")},
	}}, prof.Profile.Basket)

	var e errResp
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/users/"+a.User.ID, b.Token, nil, &e))
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPut, "/users/"+a.User.ID+"/basket", b.Token, basket, &e))

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/users/"+a.User.ID, a.Token, map[string]any{"fullname": "Ann"}, nil))
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/users/"+a.User.ID, a.Token, nil, &prof))
	assert.Equal(t, "Ann", prof.Profile.Fullname)
	assert.Equal(t, models.DefaultAvatar, prof.Profile.Banner)
}

func TestOrders(t *testing.T) {
	s := newTestServer(t)
	a := s.signup(t, "buyer@shop.test")
	other := s.signup(t, "other@shop.test")

	for i := 1; i <= 2; i++ {
		var created struct {
			ID    string       `json:"id"`
			Order models.Order `json:"order"`
		}
		body := map[string]any{
			"items":    []map[string]any{{"productId": fmt.Sprint(i), "qty": i}},
			"amount":   float64(10 * i),
			"shipping": map[string]any{"fullname": "Buyer", "isInternational": false},
			"payment":  map[string]any{"type": "card", "cardnumber": "4111"},
		}
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/orders", a.Token, body, &created))
		assert.Equal(t, a.User.ID, created.Order.UserID)
		assert.Equal(t, "4111", created.Order.Payment.CardNumber)
	}

	var list struct {
		Orders []models.Order `json:"orders"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/orders?userId="+a.User.ID, a.Token, nil, &list))
	require.Len(t, list.Orders, 2)
	assert.Equal(t, 20.0, list.Orders[0].Amount)

	var e errResp
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/orders?userId="+a.User.ID, other.Token, nil, &e))
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/orders", other.Token, map[string]any{
		"userId": a.User.ID,
		"items":  []map[string]any{{"productId": "1", "qty": 1}},
	}, &e))
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/orders", a.Token, map[string]any{"amount": 1}, &e))
}
