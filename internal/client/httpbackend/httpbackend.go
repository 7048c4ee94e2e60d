// Package httpbackend implements client.Backend over the shop HTTP API.
package httpbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/baharkarakas/shop-backend/internal/apperr"
	"github.com/baharkarakas/shop-backend/internal/catalog"
	"github.com/baharkarakas/shop-backend/internal/client"
	"github.com/baharkarakas/shop-backend/internal/config"
	"github.com/baharkarakas/shop-backend/internal/models"
	"github.com/baharkarakas/shop-backend/internal/telemetry"
)

type Backend struct {
	base    string
	hc      *http.Client
	session *client.Session

	mu    sync.RWMutex
	token string
}

var _ client.Backend = (*Backend)(nil)

// New builds the adapter. A nil hc gets a traced default client. When
// cfg.Token is set the session is restored from /auth/me during
// initialization.
func New(ctx context.Context, cfg config.ClientConfig, hc *http.Client) *Backend {
	if hc == nil {
		hc = telemetry.Client(nil)
	}
	b := &Backend{
		base:    strings.TrimRight(cfg.APIBaseURL, "/"),
		hc:      hc,
		session: client.NewSession(),
		token:   cfg.Token,
	}
	b.session.Initialize(ctx, cfg.SessionDelay, b.restore)
	return b
}

func (b *Backend) Session() *client.Session { return b.session }

func (b *Backend) GenerateKey() string { return client.NewKey() }

func (b *Backend) Close() error {
	b.session.Close()
	return nil
}

// Token returns the bearer token currently held, empty when signed out.
func (b *Backend) Token() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token
}

func (b *Backend) setToken(t string) {
	b.mu.Lock()
	b.token = t
	b.mu.Unlock()
}

func (b *Backend) restore(ctx context.Context) (*models.PublicUser, error) {
	if b.Token() == "" {
		return nil, nil
	}
	var out struct {
		User models.PublicUser `json:"user"`
	}
	if err := b.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		b.setToken("")
		return nil, err
	}
	return &out.User, nil
}

// do sends a JSON request and decodes a JSON response into out. Transport
// failures are ErrUnavailable; error bodies are mapped back to apperr kinds.
func (b *Backend) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.base+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := b.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := b.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", apperr.ErrUnavailable, method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	kind := apperr.FromCode(body.Code)
	if kind == nil {
		kind = apperr.FromStatus(resp.StatusCode)
	}
	if body.Message == "" {
		body.Message = kind.Error()
	}
	return apperr.New(kind, body.Message)
}

// ---------- identity ----------

type authResp struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

func (b *Backend) authenticate(ctx context.Context, path string, body any) (models.PublicUser, error) {
	var out authResp
	if err := b.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return models.PublicUser{}, err
	}
	b.setToken(out.Token)
	b.session.Set(&out.User)
	return out.User, nil
}

func (b *Backend) CreateAccount(ctx context.Context, in models.SignupInput) (models.PublicUser, error) {
	return b.authenticate(ctx, "/auth/signup", in)
}

func (b *Backend) SignIn(ctx context.Context, email, password string) (models.PublicUser, error) {
	return b.authenticate(ctx, "/auth/signin", map[string]string{"email": email, "password": password})
}

// SignOut forgets the token; tokens are stateless so nothing is sent.
func (b *Backend) SignOut(context.Context) error {
	b.setToken("")
	b.session.Set(nil)
	return nil
}

func (b *Backend) SignInWithProvider(_ context.Context, provider string) (models.PublicUser, error) {
	return models.PublicUser{}, client.UnsupportedProvider(provider)
}

// PasswordReset is a no-op: the API has no reset flow.
func (b *Backend) PasswordReset(context.Context, string) error { return nil }

// PasswordUpdate is a no-op: the API has no password change endpoint.
func (b *Backend) PasswordUpdate(context.Context, string) error { return nil }

// ---------- accounts ----------

func (b *Backend) GetUser(ctx context.Context, id string) (models.Profile, error) {
	var out struct {
		Profile models.Profile `json:"profile"`
	}
	if err := b.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &out); err != nil {
		return models.Profile{}, err
	}
	if out.Profile.Basket == nil {
		out.Profile.Basket = []models.LineItem{}
	}
	return out.Profile, nil
}

func (b *Backend) UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) error {
	if err := b.do(ctx, http.MethodPut, "/users/"+url.PathEscape(id), p, nil); err != nil {
		return err
	}
	if cur := b.session.Current(); cur != nil && cur.ID == id {
		n := p.Normalized()
		cur.Fullname, cur.Avatar, cur.Banner, cur.Address, cur.Mobile = n.Fullname, n.Avatar, n.Banner, n.Address, *n.Mobile
		b.session.Set(cur)
	}
	return nil
}

func (b *Backend) GetBasket(ctx context.Context, id string) ([]models.LineItem, error) {
	p, err := b.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Basket, nil
}

func (b *Backend) SaveBasketItems(ctx context.Context, id string, items []models.LineItem) error {
	if items == nil {
		items = []models.LineItem{}
	}
	return b.do(ctx, http.MethodPut, "/users/"+url.PathEscape(id)+"/basket", map[string]any{"basket": items}, nil)
}

// ---------- catalog ----------

type productsResp struct {
	Products []models.Product `json:"products"`
}

func (b *Backend) list(ctx context.Context, path string) ([]models.Product, error) {
	var out productsResp
	if err := b.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Products == nil {
		out.Products = []models.Product{}
	}
	return out.Products, nil
}

func (b *Backend) GetProduct(ctx context.Context, id string) (models.Product, error) {
	var out struct {
		Product models.Product `json:"product"`
	}
	if err := b.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &out); err != nil {
		return models.Product{}, err
	}
	return out.Product, nil
}

func (b *Backend) GetProducts(ctx context.Context, offset int) (models.ProductPage, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(catalog.DefaultPageSize))
	var page models.ProductPage
	if err := b.do(ctx, http.MethodGet, "/products?"+q.Encode(), nil, &page); err != nil {
		return models.ProductPage{}, err
	}
	return page, nil
}

func (b *Backend) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	q := url.Values{}
	q.Set("q", query)
	return b.list(ctx, "/products/search?"+q.Encode())
}

func (b *Backend) GetFeaturedProducts(ctx context.Context, n int) ([]models.Product, error) {
	return b.list(ctx, "/products/featured?limit="+strconv.Itoa(catalog.Limit(n)))
}

func (b *Backend) GetRecommendedProducts(ctx context.Context, n int) ([]models.Product, error) {
	return b.list(ctx, "/products/recommended?limit="+strconv.Itoa(catalog.Limit(n)))
}

// AddProduct ignores key; the server assigns ids.
func (b *Backend) AddProduct(ctx context.Context, _ string, in models.ProductInput) (models.Product, error) {
	var out struct {
		Product models.Product `json:"product"`
	}
	if err := b.do(ctx, http.MethodPost, "/products", in, &out); err != nil {
		return models.Product{}, err
	}
	return out.Product, nil
}

func (b *Backend) EditProduct(ctx context.Context, id string, in models.ProductInput) error {
	return b.do(ctx, http.MethodPut, "/products/"+url.PathEscape(id), in, nil)
}

func (b *Backend) RemoveProduct(ctx context.Context, id string) error {
	return b.do(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, nil)
}

// ---------- orders ----------

func (b *Backend) CreateOrder(ctx context.Context, in models.OrderInput) (models.Order, error) {
	var out struct {
		Order models.Order `json:"order"`
	}
	if err := b.do(ctx, http.MethodPost, "/orders", in, &out); err != nil {
		return models.Order{}, err
	}
	return out.Order, nil
}

func (b *Backend) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	var out struct {
		Orders []models.Order `json:"orders"`
	}
	if err := b.do(ctx, http.MethodGet, "/orders?userId="+url.QueryEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	if out.Orders == nil {
		out.Orders = []models.Order{}
	}
	return out.Orders, nil
}

// ---------- images ----------

// StoreImage returns a data URL; the API does not host files.
func (b *Backend) StoreImage(_ context.Context, _, _, contentType string, data []byte) (string, error) {
	return client.DataURL(contentType, data), nil
}

func (b *Backend) DeleteImage(context.Context, string, string) error { return nil }
