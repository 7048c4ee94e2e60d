// Command shopctl drives the data access layer from the command line against
// any of the client backends.
//
//	shopctl [-backend http|local|redis] [-token T] <command> [args]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/baharkarakas/shop-backend/internal/apperr"
	"github.com/baharkarakas/shop-backend/internal/client"
	"github.com/baharkarakas/shop-backend/internal/client/factory"
	"github.com/baharkarakas/shop-backend/internal/client/redisbackend"
	"github.com/baharkarakas/shop-backend/internal/config"
	"github.com/baharkarakas/shop-backend/internal/logger"
	"github.com/baharkarakas/shop-backend/internal/models"
)

const usage = `commands:
  products [-offset N]        list one page of products
  featured [-n N]             featured products
  recommended [-n N]          recommended products
  search QUERY                search by name
  product ID                  one product
  signup -email E -password P [-name N]
  signin -email E -password P
  profile                     signed-in user's profile and basket
  orders                      signed-in user's orders
  reset -email E              request a password reset (redis backend)
  confirm-reset -code C -password P
  key                         print a new product key
  images -addr :4001          serve images stored by the redis backend`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		logger.NewWithWriter("dev", os.Stderr).Error("shopctl failed", "err", err, "code", apperr.Code(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("shopctl", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "http, local or redis")
	fs.StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "API base URL for the http backend")
	fs.StringVar(&cfg.Token, "token", cfg.Token, "session token to restore")
	fs.StringVar(&cfg.LocalPath, "local", cfg.LocalPath, "file for the local backend, empty for memory")
	fs.StringVar(&cfg.RedisURL, "redis", cfg.RedisURL, "redis URL for the redis backend")
	fs.Usage = func() {
		fmt.Fprintln(out, "usage: shopctl [flags] <command> [args]")
		fs.PrintDefaults()
		fmt.Fprintln(out, usage)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	if cmd == "images" {
		return serveImages(ctx, cfg, rest)
	}

	cfg.ResetNotifier = func(_ context.Context, email, token string) error {
		logger.NewWithWriter("dev", os.Stderr).Info("password reset issued", "email", email, "code", token)
		return nil
	}
	b, err := factory.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	select {
	case <-b.Session().Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := b.Session().RestoreErr(); err != nil {
		logger.NewWithWriter("dev", os.Stderr).Warn("session not restored", "err", err)
	}

	res, err := dispatch(ctx, b, cmd, rest)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func dispatch(ctx context.Context, b client.Backend, cmd string, args []string) (any, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	offset := fs.Int("offset", 0, "page offset")
	n := fs.Int("n", 12, "number of products")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	name := fs.String("name", "", "full name")
	code := fs.String("code", "", "password reset code")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch cmd {
	case "products":
		return b.GetProducts(ctx, *offset)
	case "featured":
		return b.GetFeaturedProducts(ctx, *n)
	case "recommended":
		return b.GetRecommendedProducts(ctx, *n)
	case "search":
		return b.SearchProducts(ctx, strings.Join(fs.Args(), " "))
	case "product":
		if fs.NArg() != 1 {
			return nil, apperr.Invalid("product: want exactly one id")
		}
		return b.GetProduct(ctx, fs.Arg(0))
	case "signup":
		u, err := b.CreateAccount(ctx, models.SignupInput{Email: *email, Password: *password, Fullname: *name})
		return withToken(b, u), err
	case "signin":
		u, err := b.SignIn(ctx, *email, *password)
		return withToken(b, u), err
	case "profile":
		cur := b.Session().Current()
		if cur == nil {
			return nil, apperr.ErrUnauthorized
		}
		return b.GetUser(ctx, cur.ID)
	case "orders":
		cur := b.Session().Current()
		if cur == nil {
			return nil, apperr.ErrUnauthorized
		}
		return b.ListOrders(ctx, cur.ID)
	case "reset":
		return map[string]bool{"ok": true}, b.PasswordReset(ctx, *email)
	case "confirm-reset":
		rb, ok := b.(interface {
			ConfirmPasswordReset(ctx context.Context, token, password string) error
		})
		if !ok {
			return nil, apperr.New(apperr.ErrNotSupported, "backend has no password reset")
		}
		return map[string]bool{"ok": true}, rb.ConfirmPasswordReset(ctx, *code, *password)
	case "key":
		return map[string]string{"key": b.GenerateKey()}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

// withToken adds the session token for backends that hand one out, so it can
// be passed back with -token.
func withToken(b client.Backend, u models.PublicUser) any {
	res := map[string]any{"user": u}
	if tb, ok := b.(interface{ Token() string }); ok {
		res["token"] = tb.Token()
	}
	return res
}

func serveImages(ctx context.Context, cfg config.ClientConfig, args []string) error {
	fs := flag.NewFlagSet("images", flag.ContinueOnError)
	addr := fs.String("addr", ":4001", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return err
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	var prefix string
	if u, err := url.Parse(cfg.ImageBaseURL); err == nil {
		prefix = strings.TrimRight(u.Path, "/")
	}
	mux := http.NewServeMux()
	mux.Handle(prefix+"/", http.StripPrefix(prefix, redisbackend.ImageHandler(rdb, cfg.RedisNamespace)))

	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log := logger.New("dev")
	log.Info("serving images", "addr", *addr, "prefix", prefix)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
