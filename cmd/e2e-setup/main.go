package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"student-writer-backend/internal/config"
	"student-writer-backend/internal/infra/db/postgres"
	"student-writer-backend/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
)

// This script prepares a clean, predictable database state for manual
// end-to-end testing: schema, empty tables, and a seeded test code.
func main() {
	ctx := context.Background()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	seed := flag.Bool("seed", true, "seed the TEST-100 redemption code")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	// --- Connect to Postgres ---
	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	// --- Connect to Redis ---
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	// 1. Clean the Redis cache (locks, rate-limit windows).
	log.Println("[1/4] Wiping Redis cache...")
	if err := redisClient.FlushDB(ctx); err != nil {
		log.Fatalf("failed to flush redis: %v", err)
	}

	// 2. Ensure the schema exists.
	log.Println("[2/4] Applying schema...")
	if err := applySchema(ctx, pool); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	// 3. Clean the database completely.
	log.Println("[3/4] Wiping all existing database data...")
	_, err = pool.Exec(ctx, `
		TRUNCATE redemption_codes, payment_orders RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	// 4. Seed a known code for manual redemption tests.
	if *seed {
		log.Println("[4/4] Seeding test redemption code...")
		seedTestCode(ctx, pool, cfg.Code.DefaultQuota)
	} else {
		log.Println("[4/4] Skipping seed data")
	}

	log.Println("--- ✅ E2E Environment Setup Complete ---")
}

func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	schema, err := os.ReadFile(filepath.Join("deploy", "postgres", "init.sql"))
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, string(schema))
	return err
}

// seedTestCode inserts the fixed operator test code so redemption flows can
// be exercised without a real payment.
func seedTestCode(ctx context.Context, pool *pgxpool.Pool, quota int) {
	if quota <= 0 {
		quota = 100
	}
	_, err := pool.Exec(ctx, `
		INSERT INTO redemption_codes (id, code, quota)
		VALUES (gen_random_uuid(), 'TEST-100', $1)
		ON CONFLICT (code) DO NOTHING;
	`, quota)
	if err != nil {
		log.Printf("failed to seed test code: %v", err)
	}
}
