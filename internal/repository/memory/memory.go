// Package memory is a process-local implementation of the repositories. It
// backs APP_STORE=memory and the service and handler tests.
package memory

import (
	"context"
	"maps"
	"sort"
	"strconv"
	"sync"

	"github.com/baharkarakas/shop-backend/internal/apperr"
	"github.com/baharkarakas/shop-backend/internal/catalog"
	"github.com/baharkarakas/shop-backend/internal/models"
	"github.com/baharkarakas/shop-backend/internal/repository"
)

type Store struct {
	mu       sync.RWMutex
	seq      map[string]int64
	users    map[string]models.User
	emails   map[string]string
	baskets  map[string][]models.LineItem
	products map[string]models.Product
	orders   []models.Order
	audit    []models.AuditLog
}

func New() *Store {
	return &Store{
		seq:      map[string]int64{},
		users:    map[string]models.User{},
		emails:   map[string]string{},
		baskets:  map[string][]models.LineItem{},
		products: map[string]models.Product{},
	}
}

func (s *Store) Repositories() repository.Set {
	return repository.Set{
		Users:     &usersRepo{s},
		Baskets:   &basketsRepo{s},
		Products:  &productsRepo{s},
		Orders:    &ordersRepo{s},
		AuditLogs: &auditRepo{s},
	}
}

// AuditEntries returns a copy of everything recorded so far.
func (s *Store) AuditEntries() []models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditLog(nil), s.audit...)
}

// next hands out ids per table; they only grow, so deleted ids never return.
// Callers hold s.mu.
func (s *Store) next(table string) string {
	s.seq[table]++
	return strconv.FormatInt(s.seq[table], 10)
}

func copyItems(in []models.LineItem) []models.LineItem {
	out := append([]models.LineItem{}, in...)
	for i := range out {
		out[i].Extra = maps.Clone(out[i].Extra)
	}
	return out
}

func copyProduct(p models.Product) models.Product {
	p.ImageCollection = append([]models.Image{}, p.ImageCollection...)
	return p
}

// ---------- users ----------

type usersRepo struct{ s *Store }

func (r *usersRepo) CreateWithBasket(_ context.Context, u models.User) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.emails[u.Email]; taken {
		return models.User{}, apperr.New(apperr.ErrConflict, "Email already in use")
	}
	u.ID = r.s.next("users")
	r.s.users[u.ID] = u
	r.s.emails[u.Email] = u.ID
	r.s.baskets[u.ID] = []models.LineItem{}
	return u, nil
}

func (r *usersRepo) GetByID(_ context.Context, id string) (models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	return u, nil
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	r.s.mu.RLock()
	id, ok := r.s.emails[email]
	r.s.mu.RUnlock()
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *usersRepo) UpdateProfile(_ context.Context, id string, p models.ProfileUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return apperr.ErrNotFound
	}
	p.ApplyTo(&u)
	r.s.users[id] = u
	return nil
}

// ---------- baskets ----------

type basketsRepo struct{ s *Store }

func (r *basketsRepo) Get(_ context.Context, userID string) ([]models.LineItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	items, ok := r.s.baskets[userID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return copyItems(items), nil
}

func (r *basketsRepo) Save(_ context.Context, userID string, items []models.LineItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.baskets[userID]; !ok {
		return apperr.ErrNotFound
	}
	r.s.baskets[userID] = copyItems(items)
	return nil
}

// ---------- products ----------

type productsRepo struct{ s *Store }

func (r *productsRepo) all() []models.Product {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		out = append(out, copyProduct(p))
	}
	return out
}

func (r *productsRepo) List(_ context.Context, offset, limit int) (models.ProductPage, error) {
	return catalog.Page(r.all(), offset, limit), nil
}

func (r *productsRepo) Featured(_ context.Context, limit int) ([]models.Product, error) {
	return catalog.Featured(r.all(), limit), nil
}

func (r *productsRepo) Recent(_ context.Context, limit int) ([]models.Product, error) {
	return catalog.Recent(r.all(), limit), nil
}

func (r *productsRepo) Search(_ context.Context, q string, limit int) ([]models.Product, error) {
	return catalog.Search(r.all(), q, limit), nil
}

func (r *productsRepo) GetByID(_ context.Context, id string) (models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return models.Product{}, apperr.ErrNotFound
	}
	return copyProduct(p), nil
}

func (r *productsRepo) Create(_ context.Context, p models.Product) (models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p = copyProduct(p)
	p.ID = r.s.next("products")
	r.s.products[p.ID] = p
	return copyProduct(p), nil
}

func (r *productsRepo) Update(_ context.Context, p models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.products[p.ID]
	if !ok {
		return apperr.ErrNotFound
	}
	p.DateAdded = cur.DateAdded
	r.s.products[p.ID] = copyProduct(p)
	return nil
}

func (r *productsRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.products, id)
	return nil
}

func (r *productsRepo) Count(context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.products), nil
}

// ---------- orders ----------

type ordersRepo struct{ s *Store }

func (r *ordersRepo) Create(_ context.Context, o models.Order) (models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[o.UserID]; !ok {
		return models.Order{}, apperr.New(apperr.ErrNotFound, "user not found")
	}
	o.ID = r.s.next("orders")
	o.Items = copyItems(o.Items)
	r.s.orders = append(r.s.orders, o)
	return o, nil
}

// ListByUser walks the log backwards so that the newest order comes first,
// with later inserts winning ties on DateCreated.
func (r *ordersRepo) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Order{}
	for i := len(r.s.orders) - 1; i >= 0; i-- {
		if o := r.s.orders[i]; o.UserID == userID {
			o.Items = copyItems(o.Items)
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].DateCreated.After(orders[j].DateCreated) })
}

// ---------- audit ----------

type auditRepo struct{ s *Store }

func (r *auditRepo) Create(_ context.Context, l models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = r.s.next("audit_logs")
	r.s.audit = append(r.s.audit, l)
	return nil
}
