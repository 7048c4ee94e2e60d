package redisbackend

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/baharkarakas/shop-backend/internal/apperr"
	"github.com/baharkarakas/shop-backend/internal/catalog"
	"github.com/baharkarakas/shop-backend/internal/client"
	"github.com/baharkarakas/shop-backend/internal/models"
)

// Members of products:name are "{nameLower}\x00{id}" with score 0, so a plain
// ZRANGE walks them in name order.
const nameSep = "\x00"

func nameMember(p models.Product) string { return p.NameLower + nameSep + p.ID }

// index writes p and its sorted-set entries into pipe.
func (b *Backend) index(ctx context.Context, pipe redis.Pipeliner, p models.Product) {
	dated := &redis.Z{Score: float64(p.DateAdded.UnixMilli()), Member: p.ID}
	pipe.Set(ctx, b.key("product", p.ID), mustJSON(p), 0)
	pipe.ZAdd(ctx, b.key("products", "id"), &redis.Z{Score: 0, Member: p.ID})
	pipe.ZAdd(ctx, b.key("products", "date"), dated)
	pipe.ZAdd(ctx, b.key("products", "name"), &redis.Z{Score: 0, Member: nameMember(p)})
	if p.IsFeatured {
		pipe.ZAdd(ctx, b.key("products", "featured"), dated)
	} else {
		pipe.ZRem(ctx, b.key("products", "featured"), p.ID)
	}
}

func (b *Backend) unindex(ctx context.Context, pipe redis.Pipeliner, p models.Product) {
	pipe.Del(ctx, b.key("product", p.ID))
	pipe.ZRem(ctx, b.key("products", "id"), p.ID)
	pipe.ZRem(ctx, b.key("products", "date"), p.ID)
	pipe.ZRem(ctx, b.key("products", "featured"), p.ID)
	pipe.ZRem(ctx, b.key("products", "name"), nameMember(p))
}

func (b *Backend) seed(ctx context.Context) error {
	n, err := b.rdb.ZCard(ctx, b.key("products", "id")).Result()
	if err != nil {
		return unavailable(err)
	}
	if n > 0 {
		return nil
	}
	_, err = b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range catalog.Samples(b.now()) {
			p.ID = client.NewKey()
			b.index(ctx, pipe, p)
		}
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (b *Backend) productsByID(ctx context.Context, ids []string) ([]models.Product, error) {
	out := make([]models.Product, 0, len(ids))
	err := b.mget(ctx, "product", ids, func(raw []byte) error {
		var p models.Product
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

func (b *Backend) GetProduct(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	if err := b.getJSON(ctx, b.key("product", id), &p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

// GetProducts pages in id order; ids compare as strings here.
func (b *Backend) GetProducts(ctx context.Context, offset int) (models.ProductPage, error) {
	if offset < 0 {
		offset = 0
	}
	size := catalog.DefaultPageSize
	set := b.key("products", "id")
	total, err := b.rdb.ZCard(ctx, set).Result()
	if err != nil {
		return models.ProductPage{}, unavailable(err)
	}
	ids, err := b.rdb.ZRange(ctx, set, int64(offset), int64(offset+size-1)).Result()
	if err != nil {
		return models.ProductPage{}, unavailable(err)
	}
	ps, err := b.productsByID(ctx, ids)
	if err != nil {
		return models.ProductPage{}, err
	}
	return models.ProductPage{Products: ps, LastKey: catalog.Cursor(offset, size, int(total)), Total: int(total)}, nil
}

func (b *Backend) newest(ctx context.Context, set string, n int) ([]models.Product, error) {
	ids, err := b.rdb.ZRevRange(ctx, b.key("products", set), 0, int64(catalog.Limit(n)-1)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	return b.productsByID(ctx, ids)
}

func (b *Backend) GetFeaturedProducts(ctx context.Context, n int) ([]models.Product, error) {
	return b.newest(ctx, "featured", n)
}

func (b *Backend) GetRecommendedProducts(ctx context.Context, n int) ([]models.Product, error) {
	return b.newest(ctx, "date", n)
}

// SearchProducts scans the name index in order and keeps substring hits.
func (b *Backend) SearchProducts(ctx context.Context, q string) ([]models.Product, error) {
	needle := catalog.Query(q)
	members, err := b.rdb.ZRange(ctx, b.key("products", "name"), 0, -1).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	var ids []string
	for _, m := range members {
		name, id, ok := strings.Cut(m, nameSep)
		if !ok || !strings.Contains(name, needle) {
			continue
		}
		ids = append(ids, id)
		if len(ids) == catalog.DefaultPageSize {
			break
		}
	}
	return b.productsByID(ctx, ids)
}

func (b *Backend) AddProduct(ctx context.Context, key string, in models.ProductInput) (models.Product, error) {
	if err := client.RequireAdmin(b.session.Current()); err != nil {
		return models.Product{}, err
	}
	if err := in.Validate(); err != nil {
		return models.Product{}, err
	}
	if key == "" {
		key = client.NewKey()
	}
	p := models.NewProduct(key, in, b.now())
	ok, err := b.rdb.SetNX(ctx, b.key("product", key), mustJSON(p), 0).Result()
	if err != nil {
		return models.Product{}, unavailable(err)
	}
	if !ok {
		return models.Product{}, apperr.New(apperr.ErrConflict, "product key already in use")
	}
	if _, err := b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		b.index(ctx, pipe, p)
		return nil
	}); err != nil {
		return models.Product{}, unavailable(err)
	}
	return p, nil
}

func (b *Backend) EditProduct(ctx context.Context, id string, in models.ProductInput) error {
	if err := client.RequireAdmin(b.session.Current()); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}
	old, err := b.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	p := old
	p.Apply(in)
	_, err = b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, b.key("products", "name"), nameMember(old))
		b.index(ctx, pipe, p)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (b *Backend) RemoveProduct(ctx context.Context, id string) error {
	if err := client.RequireAdmin(b.session.Current()); err != nil {
		return err
	}
	p, err := b.GetProduct(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		b.unindex(ctx, pipe, p)
		return nil
	}); err != nil {
		return unavailable(err)
	}
	return nil
}
