package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/repository"
)

type productJSON struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Category      string          `json:"category"`
	Image         string          `json:"image"`
	TrackQuantity bool            `json:"trackQuantity"`
	Stock         int             `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		adminKey     string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "customer API key to seed (or STORE_SEED_API_KEY env)")
	flag.StringVar(&adminKey, "admin-key", "", "admin API key to seed (or STORE_SEED_ADMIN_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STORE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("STORE_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or STORE_SEED_API_KEY")
		os.Exit(1)
	}
	if adminKey == "" {
		adminKey = os.Getenv("STORE_SEED_ADMIN_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STORE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, adminKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, adminKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, repository.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, repository.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKeys(ctx, repository.NewAPIKeyRepository(pool), apiKey, adminKey, pepper); err != nil {
		return errors.Wrap(err, "seed api keys")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *repository.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if err := repo.Upsert(ctx, product.Product{
			ID:            p.ID,
			Name:          p.Name,
			Price:         p.Price,
			Category:      p.Category,
			Image:         p.Image,
			TrackQuantity: p.TrackQuantity,
			Stock:         p.Stock,
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedCoupons(ctx context.Context, repo *repository.CouponRepository) error {
	slog.Info("seeding demo coupons")

	coupons := []coupon.Rule{
		{
			Code:        "WELCOME10",
			Type:        coupon.DiscountPercentage,
			Value:       decimal.NewFromInt(10),
			Active:      true,
			Description: "Welcome: 10% off your order",
		},
		{
			Code:        "SAVE20",
			Type:        coupon.DiscountFixed,
			Value:       decimal.NewFromInt(20),
			MinPurchase: decimal.NewFromInt(50),
			Active:      true,
			Description: "$20 off orders over $50",
		},
		{
			Code:        "HALFOFF",
			Type:        coupon.DiscountPercentage,
			Value:       decimal.NewFromInt(50),
			MaxDiscount: decimal.NewFromInt(30),
			UsageLimit:  100,
			Active:      true,
			Description: "50% off, capped at $30, first 100 uses",
		},
	}

	for _, c := range coupons {
		if err := repo.Upsert(ctx, c); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}

		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("description", c.Description))
	}

	return nil
}

func seedAPIKeys(ctx context.Context, repo *repository.APIKeyRepository, apiKey, adminKey, pepper string) error {
	slog.Info("seeding API keys")

	if err := repo.Upsert(ctx, auth.APIKeyInfo{
		ID:      "default",
		KeyHash: hashKey(apiKey, pepper),
		UserID:  "demo-user",
		Name:    "Default customer key",
	}); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}
	slog.Info("upserted API key", slog.String("id", "default"))

	if adminKey == "" {
		slog.Info("no admin key provided, skipping")
		return nil
	}

	if err := repo.Upsert(ctx, auth.APIKeyInfo{
		ID:      "admin",
		KeyHash: hashKey(adminKey, pepper),
		UserID:  "admin-user",
		Name:    "Admin key",
		Admin:   true,
	}); err != nil {
		return errors.Wrap(err, "upsert admin API key")
	}
	slog.Info("upserted API key", slog.String("id", "admin"))

	return nil
}

func hashKey(key, pepper string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
