// Package redisbackend implements client.Backend against a managed Redis.
//
// Layout, under the configured namespace:
//
//	seq:users, seq:orders          INCR counters
//	user:{id}, email:{email}       account JSON and the unique email index
//	basket:{id}                    basket JSON
//	product:{id}                   product JSON
//	products:id|date|featured|name sorted sets for listing and search
//	order:{id}, orders:user:{id}   order JSON and a per-user date index
//	session:{token}                user id, expires with the session
//	reset:{token}                  user id, one hour
//	image:{folder}:{key}           hash of content type and bytes
package redisbackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/baharkarakas/shop-backend/internal/apperr"
	"github.com/baharkarakas/shop-backend/internal/auth"
	"github.com/baharkarakas/shop-backend/internal/client"
	"github.com/baharkarakas/shop-backend/internal/config"
	"github.com/baharkarakas/shop-backend/internal/models"
)

const (
	SessionTTL = 7 * 24 * time.Hour
	ResetTTL   = time.Hour
)

type storedUser struct {
	models.User
	Hash string `json:"passwordHash"`
}

type Backend struct {
	rdb       *redis.Client
	ns        string
	imageBase string
	admins    []string
	notify    func(ctx context.Context, email, token string) error
	session   *client.Session
	now       func() time.Time

	mu    sync.RWMutex
	token string
}

var _ client.Backend = (*Backend)(nil)

// New connects using cfg.RedisURL unless rdb is given, seeds an empty catalog
// and restores the session for cfg.Token.
func New(ctx context.Context, cfg config.ClientConfig, rdb *redis.Client) (*Backend, error) {
	if rdb == nil {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		rdb = redis.NewClient(opt)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, unavailable(err)
	}

	ns := cfg.RedisNamespace
	if ns == "" {
		ns = "shop"
	}
	b := &Backend{
		rdb:       rdb,
		ns:        ns,
		imageBase: strings.TrimRight(cfg.ImageBaseURL, "/"),
		admins:    cfg.AdminEmails,
		notify:    cfg.ResetNotifier,
		session:   client.NewSession(),
		now:       time.Now,
		token:     cfg.Token,
	}
	if err := b.seed(ctx); err != nil {
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
	return b.rdb.Close()
}

// Token is the current session token, empty when signed out.
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

func (b *Backend) key(parts ...string) string {
	return b.ns + ":" + strings.Join(parts, ":")
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
}

func (b *Backend) getJSON(ctx context.Context, key string, v any) error {
	raw, err := b.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return apperr.ErrNotFound
	}
	if err != nil {
		return unavailable(err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return unavailable(fmt.Errorf("corrupt %s: %w", key, err))
	}
	return nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// ---------- identity ----------

func (b *Backend) userByID(ctx context.Context, id string) (storedUser, error) {
	var su storedUser
	err := b.getJSON(ctx, b.key("user", id), &su)
	return su, err
}

func (b *Backend) restore(ctx context.Context) (*models.PublicUser, error) {
	tok := b.Token()
	if tok == "" {
		return nil, nil
	}
	id, err := b.rdb.Get(ctx, b.key("session", tok)).Result()
	if err == redis.Nil {
		b.setToken("")
		return nil, apperr.New(apperr.ErrInvalidToken, "session expired")
	}
	if err != nil {
		return nil, unavailable(err)
	}
	su, err := b.userByID(ctx, id)
	if err != nil {
		return nil, err
	}
	pu := su.Public()
	return &pu, nil
}

func (b *Backend) startSession(ctx context.Context, u models.User) (models.PublicUser, error) {
	tok := uuid.NewString()
	if err := b.rdb.Set(ctx, b.key("session", tok), u.ID, SessionTTL).Err(); err != nil {
		return models.PublicUser{}, unavailable(err)
	}
	b.setToken(tok)
	pu := u.Public()
	b.session.Set(&pu)
	return pu, nil
}

// CreateAccount claims the email with SETNX, then writes the user and the
// empty basket in one MULTI. A failed MULTI releases the email again.
func (b *Backend) CreateAccount(ctx context.Context, in models.SignupInput) (models.PublicUser, error) {
	if err := in.Validate(); err != nil {
		return models.PublicUser{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.PublicUser{}, err
	}
	n, err := b.rdb.Incr(ctx, b.key("seq", "users")).Result()
	if err != nil {
		return models.PublicUser{}, unavailable(err)
	}
	id := strconv.FormatInt(n, 10)
	emailKey := b.key("email", in.Email)
	ok, err := b.rdb.SetNX(ctx, emailKey, id, 0).Result()
	if err != nil {
		return models.PublicUser{}, unavailable(err)
	}
	if !ok {
		return models.PublicUser{}, apperr.New(apperr.ErrConflict, "Email already in use")
	}

	role := models.RoleUser
	if client.IsAdminEmail(b.admins, in.Email) {
		role = models.RoleAdmin
	}
	u := models.NewUser(in, "", role, b.now())
	u.ID = id
	_, err = b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, b.key("user", id), mustJSON(storedUser{User: u, Hash: hash}), 0)
		p.Set(ctx, b.key("basket", id), "[]", 0)
		return nil
	})
	if err != nil {
		b.rdb.Del(ctx, emailKey)
		return models.PublicUser{}, unavailable(err)
	}
	return b.startSession(ctx, u)
}

func (b *Backend) SignIn(ctx context.Context, email, password string) (models.PublicUser, error) {
	if email == "" || password == "" {
		return models.PublicUser{}, apperr.Invalid("Email and password required")
	}
	id, err := b.rdb.Get(ctx, b.key("email", email)).Result()
	if err == redis.Nil {
		return models.PublicUser{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return models.PublicUser{}, unavailable(err)
	}
	su, err := b.userByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.PublicUser{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return models.PublicUser{}, err
	}
	if ok, err := auth.VerifyPassword(password, su.Hash); err != nil || !ok {
		return models.PublicUser{}, apperr.ErrInvalidCredentials
	}
	return b.startSession(ctx, su.User)
}

func (b *Backend) SignOut(ctx context.Context) error {
	if tok := b.Token(); tok != "" {
		if err := b.rdb.Del(ctx, b.key("session", tok)).Err(); err != nil {
			return unavailable(err)
		}
	}
	b.setToken("")
	b.session.Set(nil)
	return nil
}

func (b *Backend) SignInWithProvider(_ context.Context, provider string) (models.PublicUser, error) {
	return models.PublicUser{}, client.UnsupportedProvider(provider)
}

// PasswordReset issues a one-hour reset token for a known email and hands it
// to the configured notifier. Unknown emails succeed silently so the call
// cannot be used to enumerate accounts. Without a notifier nothing is issued.
func (b *Backend) PasswordReset(ctx context.Context, email string) error {
	if b.notify == nil {
		return nil
	}
	id, err := b.rdb.Get(ctx, b.key("email", email)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return unavailable(err)
	}
	tok := uuid.NewString()
	key := b.key("reset", tok)
	if err := b.rdb.Set(ctx, key, id, ResetTTL).Err(); err != nil {
		return unavailable(err)
	}
	if err := b.notify(ctx, email, tok); err != nil {
		b.rdb.Del(ctx, key)
		return fmt.Errorf("%w: reset notification: %v", apperr.ErrUnavailable, err)
	}
	return nil
}

// ConfirmPasswordReset consumes a reset token and sets a new password.
func (b *Backend) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	id, err := b.rdb.GetDel(ctx, b.key("reset", token)).Result()
	if err == redis.Nil {
		return apperr.New(apperr.ErrInvalidToken, "reset link expired")
	}
	if err != nil {
		return unavailable(err)
	}
	return b.setPassword(ctx, id, password)
}

// PasswordUpdate rehashes the signed-in user's password.
func (b *Backend) PasswordUpdate(ctx context.Context, password string) error {
	cur := b.session.Current()
	if cur == nil {
		return apperr.ErrUnauthorized
	}
	return b.setPassword(ctx, cur.ID, password)
}

func (b *Backend) setPassword(ctx context.Context, id, password string) error {
	if password == "" {
		return apperr.Invalid("password required")
	}
	su, err := b.userByID(ctx, id)
	if err != nil {
		return err
	}
	if su.Hash, err = auth.HashPassword(password); err != nil {
		return err
	}
	if err := b.rdb.Set(ctx, b.key("user", id), mustJSON(su), 0).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// ---------- accounts ----------

func (b *Backend) GetUser(ctx context.Context, id string) (models.Profile, error) {
	if err := client.Authorize(b.session.Current(), id); err != nil {
		return models.Profile{}, err
	}
	su, err := b.userByID(ctx, id)
	if err != nil {
		return models.Profile{}, err
	}
	items := []models.LineItem{}
	if err := b.getJSON(ctx, b.key("basket", id), &items); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return models.Profile{}, err
	}
	return models.Profile{PublicUser: su.Public(), Basket: items}, nil
}

func (b *Backend) UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) error {
	if err := client.Authorize(b.session.Current(), id); err != nil {
		return err
	}
	su, err := b.userByID(ctx, id)
	if err != nil {
		return err
	}
	p.ApplyTo(&su.User)
	if err := b.rdb.Set(ctx, b.key("user", id), mustJSON(su), 0).Err(); err != nil {
		return unavailable(err)
	}
	if cur := b.session.Current(); cur != nil && cur.ID == id {
		pu := su.Public()
		b.session.Set(&pu)
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

// SaveBasketItems overwrites the basket; it only writes when the basket
// already exists.
func (b *Backend) SaveBasketItems(ctx context.Context, id string, items []models.LineItem) error {
	if err := client.Authorize(b.session.Current(), id); err != nil {
		return err
	}
	if items == nil {
		items = []models.LineItem{}
	}
	ok, err := b.rdb.SetXX(ctx, b.key("basket", id), mustJSON(items), 0).Result()
	if err != nil {
		return unavailable(err)
	}
	if !ok {
		return apperr.ErrNotFound
	}
	return nil
}

// ---------- orders ----------

func (b *Backend) CreateOrder(ctx context.Context, in models.OrderInput) (models.Order, error) {
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
	n, err := b.rdb.Incr(ctx, b.key("seq", "orders")).Result()
	if err != nil {
		return models.Order{}, unavailable(err)
	}
	o := models.NewOrder(strconv.FormatInt(n, 10), in, b.now())
	_, err = b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, b.key("order", o.ID), mustJSON(o), 0)
		p.ZAdd(ctx, b.key("orders", "user", o.UserID), &redis.Z{Score: float64(o.DateCreated.UnixNano()), Member: o.ID})
		return nil
	})
	if err != nil {
		return models.Order{}, unavailable(err)
	}
	return o, nil
}

func (b *Backend) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	if err := client.Authorize(b.session.Current(), userID); err != nil {
		return nil, err
	}
	ids, err := b.rdb.ZRevRange(ctx, b.key("orders", "user", userID), 0, -1).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	out := []models.Order{}
	err = b.mget(ctx, "order", ids, func(raw []byte) error {
		var o models.Order
		if err := json.Unmarshal(raw, &o); err != nil {
			return err
		}
		out = append(out, o)
		return nil
	})
	return out, err
}

// mget loads prefix:{id} for each id, skipping ids whose value has vanished.
func (b *Backend) mget(ctx context.Context, prefix string, ids []string, each func([]byte) error) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = b.key(prefix, id)
	}
	vals, err := b.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return unavailable(err)
	}
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if err := each([]byte(s)); err != nil {
			return unavailable(err)
		}
	}
	return nil
}
