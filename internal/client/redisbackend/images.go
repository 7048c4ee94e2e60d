package redisbackend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"

	"github.com/baharkarakas/shop-backend/internal/apperr"
)

// StoreImage keeps the bytes in Redis and returns the URL ImageHandler serves
// them under.
func (b *Backend) StoreImage(ctx context.Context, key, folder, contentType string, data []byte) (string, error) {
	if key == "" || folder == "" {
		return "", apperr.Invalid("image key and folder required")
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	err := b.rdb.HSet(ctx, b.key("image", folder, key), "type", contentType, "data", data).Err()
	if err != nil {
		return "", unavailable(err)
	}
	return b.imageBase + "/" + url.PathEscape(folder) + "/" + url.PathEscape(key), nil
}

// DeleteImage succeeds whether or not the image exists.
func (b *Backend) DeleteImage(ctx context.Context, key, folder string) error {
	if err := b.rdb.Del(ctx, b.key("image", folder, key)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// ImageHandler serves GET /{folder}/{key} from the image hashes written by
// StoreImage. Mount it at the path of ImageBaseURL.
func ImageHandler(rdb *redis.Client, namespace string) http.Handler {
	if namespace == "" {
		namespace = "shop"
	}
	b := &Backend{rdb: rdb, ns: namespace}
	r := chi.NewRouter()
	r.Get("/{folder}/{key}", func(w http.ResponseWriter, r *http.Request) {
		vals, err := rdb.HGetAll(r.Context(), b.key("image", chi.URLParam(r, "folder"), chi.URLParam(r, "key"))).Result()
		if err != nil {
			http.Error(w, "image store unavailable", http.StatusServiceUnavailable)
			return
		}
		data, ok := vals["data"]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", vals["type"])
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write([]byte(data))
	})
	return r
}
