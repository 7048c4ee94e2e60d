// Package localbackend implements client.Backend on top of a local key-value
// Storage. Each collection is one JSON document under its own key.
package localbackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/baharkarakas/shop-backend/internal/apperr"
	"github.com/baharkarakas/shop-backend/internal/auth"
	"github.com/baharkarakas/shop-backend/internal/catalog"
	"github.com/baharkarakas/shop-backend/internal/client"
	"github.com/baharkarakas/shop-backend/internal/config"
	"github.com/baharkarakas/shop-backend/internal/models"
)

const (
	keyUsers    = "users"
	keyProducts = "products"
	keyBaskets  = "baskets"
	keyOrders   = "orders"
	keySession  = "session"
	keySeq      = "seq"
)

// storedUser keeps the hash next to the public fields; models.User hides it
// from JSON.
type storedUser struct {
	models.User
	Hash string `json:"passwordHash"`
}

type Backend struct {
	mu      sync.Mutex
	store   Storage
	admins  []string
	session *client.Session
	now     func() time.Time
}

var _ client.Backend = (*Backend)(nil)

// New opens the adapter over store, seeding the sample catalog when it is
// empty, and starts restoring the stored session.
func New(ctx context.Context, cfg config.ClientConfig, store Storage) (*Backend, error) {
	b := &Backend{store: store, admins: cfg.AdminEmails, session: client.NewSession(), now: time.Now}
	if err := b.seed(); err != nil {
		b.session.Close()
		return nil, err
	}
	b.session.Initialize(ctx, cfg.SessionDelay, b.restore)
	return b, nil
}

func (b *Backend) Session() *client.Session { return b.session }

func (b *Backend) GenerateKey() string { return client.NewKey() }

func (b *Backend) Close() error {
	b.session.Close()
	return nil
}

// ---------- storage helpers (callers hold b.mu) ----------

func (b *Backend) load(key string, v any) error {
	raw, ok, err := b.store.Get(key)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
	}
	if !ok || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: corrupt %q: %v", apperr.ErrUnavailable, key, err)
	}
	return nil
}

func (b *Backend) save(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := b.store.Set(key, raw); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			return apperr.New(apperr.ErrUnavailable, "local storage is full")
		}
		return fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
	}
	return nil
}

func (b *Backend) nextID(table string) (string, error) {
	seq := map[string]int64{}
	if err := b.load(keySeq, &seq); err != nil {
		return "", err
	}
	seq[table]++
	if err := b.save(keySeq, seq); err != nil {
		return "", err
	}
	return strconv.FormatInt(seq[table], 10), nil
}

func (b *Backend) users() ([]storedUser, error) {
	var us []storedUser
	if err := b.load(keyUsers, &us); err != nil {
		return nil, err
	}
	return us, nil
}

func (b *Backend) products() ([]models.Product, error) {
	ps := []models.Product{}
	if err := b.load(keyProducts, &ps); err != nil {
		return nil, err
	}
	return ps, nil
}

func (b *Backend) baskets() (map[string][]models.LineItem, error) {
	m := map[string][]models.LineItem{}
	if err := b.load(keyBaskets, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func findUser(us []storedUser, match func(models.User) bool) (int, bool) {
	for i, u := range us {
		if match(u.User) {
			return i, true
		}
	}
	return -1, false
}

func findProduct(ps []models.Product, id string) int {
	for i, p := range ps {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (b *Backend) seed() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ps, err := b.products()
	if err != nil || len(ps) > 0 {
		return err
	}
	for _, p := range catalog.Samples(b.now()) {
		p.ID = client.NewKey()
		ps = append(ps, p)
	}
	return b.save(keyProducts, ps)
}

// ---------- identity ----------

func (b *Backend) restore(context.Context) (*models.PublicUser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var id string
	if err := b.load(keySession, &id); err != nil || id == "" {
		return nil, err
	}
	us, err := b.users()
	if err != nil {
		return nil, err
	}
	i, ok := findUser(us, func(u models.User) bool { return u.ID == id })
	if !ok {
		_ = b.store.Remove(keySession)
		return nil, nil
	}
	pu := us[i].Public()
	return &pu, nil
}

func (b *Backend) CreateAccount(_ context.Context, in models.SignupInput) (models.PublicUser, error) {
	if err := in.Validate(); err != nil {
		return models.PublicUser{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.PublicUser{}, err
	}

	b.mu.Lock()
	us, err := b.users()
	if err != nil {
		b.mu.Unlock()
		return models.PublicUser{}, err
	}
	if _, taken := findUser(us, func(u models.User) bool { return u.Email == in.Email }); taken {
		b.mu.Unlock()
		return models.PublicUser{}, apperr.New(apperr.ErrConflict, "Email already in use")
	}
	pu, err := b.createLocked(us, in, hash)
	b.mu.Unlock()
	if err != nil {
		return models.PublicUser{}, err
	}
	b.session.Set(&pu)
	return pu, nil
}

// createLocked writes the user, then the basket, rolling the user back if the
// basket cannot be stored.
func (b *Backend) createLocked(us []storedUser, in models.SignupInput, hash string) (models.PublicUser, error) {
	id, err := b.nextID(keyUsers)
	if err != nil {
		return models.PublicUser{}, err
	}
	role := models.RoleUser
	if client.IsAdminEmail(b.admins, in.Email) {
		role = models.RoleAdmin
	}
	u := models.NewUser(in, "", role, b.now())
	u.ID = id
	if err := b.save(keyUsers, append(us, storedUser{User: u, Hash: hash})); err != nil {
		return models.PublicUser{}, err
	}
	baskets, err := b.baskets()
	if err == nil {
		baskets[id] = []models.LineItem{}
		err = b.save(keyBaskets, baskets)
	}
	if err != nil {
		_ = b.save(keyUsers, us)
		return models.PublicUser{}, err
	}
	if err := b.save(keySession, id); err != nil {
		return models.PublicUser{}, err
	}
	return u.Public(), nil
}

func (b *Backend) SignIn(_ context.Context, email, password string) (models.PublicUser, error) {
	if email == "" || password == "" {
		return models.PublicUser{}, apperr.Invalid("Email and password required")
	}
	b.mu.Lock()
	us, err := b.users()
	if err != nil {
		b.mu.Unlock()
		return models.PublicUser{}, err
	}
	i, ok := findUser(us, func(u models.User) bool { return u.Email == email })
	if !ok {
		b.mu.Unlock()
		return models.PublicUser{}, apperr.ErrInvalidCredentials
	}
	su := us[i]
	b.mu.Unlock()

	if ok, err := auth.VerifyPassword(password, su.Hash); err != nil || !ok {
		return models.PublicUser{}, apperr.ErrInvalidCredentials
	}
	b.mu.Lock()
	err = b.save(keySession, su.ID)
	b.mu.Unlock()
	if err != nil {
		return models.PublicUser{}, err
	}
	pu := su.Public()
	b.session.Set(&pu)
	return pu, nil
}

func (b *Backend) SignOut(context.Context) error {
	b.mu.Lock()
	err := b.store.Remove(keySession)
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
	}
	b.session.Set(nil)
	return nil
}

func (b *Backend) SignInWithProvider(_ context.Context, provider string) (models.PublicUser, error) {
	return models.PublicUser{}, client.UnsupportedProvider(provider)
}

// PasswordReset succeeds without doing anything; there is no mail channel.
func (b *Backend) PasswordReset(context.Context, string) error { return nil }

// PasswordUpdate succeeds without doing anything.
func (b *Backend) PasswordUpdate(context.Context, string) error { return nil }

// ---------- accounts ----------

func (b *Backend) GetUser(_ context.Context, id string) (models.Profile, error) {
	if err := client.Authorize(b.session.Current(), id); err != nil {
		return models.Profile{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	us, err := b.users()
	if err != nil {
		return models.Profile{}, err
	}
	i, ok := findUser(us, func(u models.User) bool { return u.ID == id })
	if !ok {
		return models.Profile{}, apperr.ErrNotFound
	}
	baskets, err := b.baskets()
	if err != nil {
		return models.Profile{}, err
	}
	items := baskets[id]
	if items == nil {
		items = []models.LineItem{}
	}
	return models.Profile{PublicUser: us[i].Public(), Basket: items}, nil
}

func (b *Backend) UpdateProfile(_ context.Context, id string, p models.ProfileUpdate) error {
	if err := client.Authorize(b.session.Current(), id); err != nil {
		return err
	}
	b.mu.Lock()
	us, err := b.users()
	if err != nil {
		b.mu.Unlock()
		return err
	}
	i, ok := findUser(us, func(u models.User) bool { return u.ID == id })
	if !ok {
		b.mu.Unlock()
		return apperr.ErrNotFound
	}
	p.ApplyTo(&us[i].User)
	err = b.save(keyUsers, us)
	updated := us[i].Public()
	b.mu.Unlock()
	if err != nil {
		return err
	}
	if cur := b.session.Current(); cur != nil && cur.ID == id {
		b.session.Set(&updated)
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

func (b *Backend) SaveBasketItems(_ context.Context, id string, items []models.LineItem) error {
	if err := client.Authorize(b.session.Current(), id); err != nil {
		return err
	}
	if items == nil {
		items = []models.LineItem{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	baskets, err := b.baskets()
	if err != nil {
		return err
	}
	if _, ok := baskets[id]; !ok {
		return apperr.ErrNotFound
	}
	baskets[id] = items
	return b.save(keyBaskets, baskets)
}

// ---------- catalog ----------

func (b *Backend) snapshot() ([]models.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.products()
}

func (b *Backend) GetProduct(_ context.Context, id string) (models.Product, error) {
	ps, err := b.snapshot()
	if err != nil {
		return models.Product{}, err
	}
	if i := findProduct(ps, id); i >= 0 {
		return ps[i], nil
	}
	return models.Product{}, apperr.ErrNotFound
}

func (b *Backend) GetProducts(_ context.Context, offset int) (models.ProductPage, error) {
	ps, err := b.snapshot()
	if err != nil {
		return models.ProductPage{}, err
	}
	return catalog.Page(ps, offset, catalog.DefaultPageSize), nil
}

func (b *Backend) SearchProducts(_ context.Context, q string) ([]models.Product, error) {
	ps, err := b.snapshot()
	if err != nil {
		return nil, err
	}
	return catalog.Search(ps, q, catalog.DefaultPageSize), nil
}

func (b *Backend) GetFeaturedProducts(_ context.Context, n int) ([]models.Product, error) {
	ps, err := b.snapshot()
	if err != nil {
		return nil, err
	}
	return catalog.Featured(ps, n), nil
}

func (b *Backend) GetRecommendedProducts(_ context.Context, n int) ([]models.Product, error) {
	ps, err := b.snapshot()
	if err != nil {
		return nil, err
	}
	return catalog.Recent(ps, n), nil
}

func (b *Backend) AddProduct(_ context.Context, key string, in models.ProductInput) (models.Product, error) {
	if err := client.RequireAdmin(b.session.Current()); err != nil {
		return models.Product{}, err
	}
	if err := in.Validate(); err != nil {
		return models.Product{}, err
	}
	if key == "" {
		key = client.NewKey()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ps, err := b.products()
	if err != nil {
		return models.Product{}, err
	}
	if findProduct(ps, key) >= 0 {
		return models.Product{}, apperr.New(apperr.ErrConflict, "product key already in use")
	}
	p := models.NewProduct(key, in, b.now())
	if err := b.save(keyProducts, append(ps, p)); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

func (b *Backend) EditProduct(_ context.Context, id string, in models.ProductInput) error {
	if err := client.RequireAdmin(b.session.Current()); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ps, err := b.products()
	if err != nil {
		return err
	}
	i := findProduct(ps, id)
	if i < 0 {
		return apperr.ErrNotFound
	}
	ps[i].Apply(in)
	return b.save(keyProducts, ps)
}

func (b *Backend) RemoveProduct(_ context.Context, id string) error {
	if err := client.RequireAdmin(b.session.Current()); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ps, err := b.products()
	if err != nil {
		return err
	}
	i := findProduct(ps, id)
	if i < 0 {
		return nil
	}
	return b.save(keyProducts, append(ps[:i], ps[i+1:]...))
}

// ---------- orders ----------

func (b *Backend) CreateOrder(_ context.Context, in models.OrderInput) (models.Order, error) {
	cur := b.session.Current()
	if in.UserID == "" && cur != nil {
		in.UserID = cur.ID
	}
	if err := client.Authorize(cur, in.UserID); err != nil {
		return models.Order{}, err
	}
	if err := in.Validate(); err != nil {
		return models.Order{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var orders []models.Order
	if err := b.load(keyOrders, &orders); err != nil {
		return models.Order{}, err
	}
	id, err := b.nextID(keyOrders)
	if err != nil {
		return models.Order{}, err
	}
	o := models.NewOrder(id, in, b.now())
	if err := b.save(keyOrders, append(orders, o)); err != nil {
		return models.Order{}, err
	}
	return o, nil
}

func (b *Backend) ListOrders(_ context.Context, userID string) ([]models.Order, error) {
	if err := client.Authorize(b.session.Current(), userID); err != nil {
		return nil, err
	}
	b.mu.Lock()
	var all []models.Order
	err := b.load(keyOrders, &all)
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := []models.Order{}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].UserID == userID {
			out = append(out, all[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateCreated.After(out[j].DateCreated) })
	return out, nil
}

// ---------- images ----------

// StoreImage inlines the bytes; local storage has nothing to serve files from.
func (b *Backend) StoreImage(_ context.Context, _, _, contentType string, data []byte) (string, error) {
	return client.DataURL(contentType, data), nil
}

func (b *Backend) DeleteImage(context.Context, string, string) error { return nil }
