// Command coupon-ingest bulk-imports coupon rules from gzipped NDJSON files.
// Files are parsed concurrently; a bloom filter suppresses duplicate codes
// across files before they reach the database. Upserts are idempotent, so a
// rare bloom false positive only skips a redundant write on re-import.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.0001
	progressEvery = 100_000
)

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		slog.Error("usage: coupon-ingest [flags] <rules.ndjson.gz> ...")
		os.Exit(1)
	}

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := repository.NewCouponRepository(pool)

	rules := make(chan coupon.Rule, 1024)

	g, ctx := errgroup.WithContext(ctx)

	// Parsers fan out over input files.
	parsers, pctx := errgroup.WithContext(ctx)
	for _, f := range files {
		parsers.Go(parseFile(pctx, f, rules))
	}
	g.Go(func() error {
		defer close(rules)
		return parsers.Wait()
	})

	// A single writer owns the bloom filter and the database connection, so
	// deduplication needs no locking.
	g.Go(writeRules(ctx, repo, rules))

	return g.Wait()
}

// parseFile streams one gzipped NDJSON file and sends decoded rules.
func parseFile(ctx context.Context, path string, out chan<- coupon.Rule) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var count uint64
		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			rule, err := decodeRule(line)
			if err != nil {
				return errors.Wrapf(err, "decode rule in %s", path)
			}
			if rule.Code == "" {
				continue
			}

			select {
			case out <- rule:
			case <-ctx.Done():
				return ctx.Err()
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("parse progress", slog.String("file", path), slog.Uint64("rules", count))
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("parse complete", slog.String("file", path), slog.Uint64("rules", count))
		return nil
	}
}

// writeRules drains the channel, skipping codes already seen, and upserts the
// rest.
func writeRules(ctx context.Context, repo *repository.CouponRepository, rules <-chan coupon.Rule) func() error {
	return func() error {
		seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var written uint64

		for rule := range rules {
			code := strings.ToUpper(rule.Code)
			if seen.TestString(code) {
				continue
			}
			seen.AddString(code)

			rule.Code = code
			if err := repo.Upsert(ctx, rule); err != nil {
				return errors.Wrapf(err, "upsert coupon %s", code)
			}

			written++
			if written%progressEvery == 0 {
				slog.Info("write progress", slog.Uint64("written", written))
			}
		}

		slog.Info("write complete", slog.Uint64("written", written))
		return nil
	}
}

// decodeRule parses a single NDJSON line like:
//
//	{"code":"SAVE20","type":"fixed","value":"20","minPurchase":"50",
//	 "usageLimit":100,"validUntil":"2026-12-31T23:59:59Z","active":true,
//	 "description":"$20 off orders over $50"}
func decodeRule(line []byte) (coupon.Rule, error) {
	rule := coupon.Rule{Active: true}

	d := jx.DecodeBytes(line)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			v, err := d.Str()
			rule.Code = v
			return err
		case "type":
			v, err := d.Str()
			rule.Type = coupon.DiscountType(v)
			return err
		case "value":
			return decodeDecimal(d, &rule.Value)
		case "minPurchase":
			return decodeDecimal(d, &rule.MinPurchase)
		case "maxDiscount":
			return decodeDecimal(d, &rule.MaxDiscount)
		case "usageLimit":
			v, err := d.Int()
			rule.UsageLimit = v
			return err
		case "validFrom":
			return decodeTime(d, &rule.ValidFrom)
		case "validUntil":
			return decodeTime(d, &rule.ValidUntil)
		case "active":
			v, err := d.Bool()
			rule.Active = v
			return err
		case "description":
			v, err := d.Str()
			rule.Description = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return coupon.Rule{}, err
	}

	if rule.Type != coupon.DiscountPercentage && rule.Type != coupon.DiscountFixed {
		return coupon.Rule{}, errors.Errorf("coupon %q: unknown discount type %q", rule.Code, rule.Type)
	}
	return rule, nil
}

// decodeDecimal accepts both JSON numbers and strings holding a decimal.
func decodeDecimal(d *jx.Decoder, out *decimal.Decimal) error {
	var (
		raw string
		err error
	)
	switch d.Next() {
	case jx.String:
		raw, err = d.Str()
	default:
		var num jx.Num
		num, err = d.Num()
		raw = num.String()
	}
	if err != nil {
		return err
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	*out = v
	return nil
}

func decodeTime(d *jx.Decoder, out **time.Time) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	raw, err := d.Str()
	if err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return err
	}
	*out = &t
	return nil
}
