package main

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

type shopSeed struct {
	ID       string
	Name     string
	Timezone string
}

// applyMigrations runs every *.sql file in dir in lexical order.
func applyMigrations(ctx context.Context, db *sql.DB, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations found in %s", dir)
	}
	sort.Strings(files)

	for _, file := range files {
		body, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("failed to apply %s: %w", filepath.Base(file), err)
		}
		logger.Log.Info().Str("file", filepath.Base(file)).Msg("Applied migration")
	}
	return nil
}

// seedShop replaces the shop's catalog and sales history with in. Products
// are derived from recipes and sales since the CSV layout has no product file.
func seedShop(ctx context.Context, db *sql.DB, shop shopSeed, in forecast.Input) error {
	if shop.Name == "" {
		shop.Name = shop.ID
	}
	if shop.Timezone == "" {
		shop.Timezone = "UTC"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	logger.Log.Info().Str("shop", shop.ID).Msg("Starting database seeding...")

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO shops (id, name, timezone)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, timezone = EXCLUDED.timezone
	`, shop.ID, shop.Name, shop.Timezone); err != nil {
		return fmt.Errorf("failed to seed shop: %w", err)
	}

	known := make(map[string]bool, len(in.Ingredients))
	for _, ing := range in.Ingredients {
		known[ing.ID] = true
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ingredients (id, shop_id, name, stock_current, reorder_point)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET stock_current = EXCLUDED.stock_current,
				reorder_point = EXCLUDED.reorder_point
		`, ing.ID, shop.ID, ing.ID, ing.StockCurrent, ing.ReorderPoint); err != nil {
			return fmt.Errorf("failed to seed ingredient %s: %w", ing.ID, err)
		}
	}

	products := make(map[string]struct{})
	for _, r := range in.Recipes {
		products[r.ProductID] = struct{}{}
	}
	for _, s := range in.Sales {
		products[s.ProductID] = struct{}{}
	}
	for _, id := range slices.Sorted(maps.Keys(products)) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO products (id, shop_id, name)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING
		`, id, shop.ID, id); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", id, err)
		}
	}

	for _, r := range in.Recipes {
		if !known[r.IngredientID] {
			logger.Log.Warn().Str("product", r.ProductID).Str("ingredient", r.IngredientID).Msg("Skipping recipe line for unknown ingredient")
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recipe_items (product_id, ingredient_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (product_id, ingredient_id) DO UPDATE SET quantity = EXCLUDED.quantity
		`, r.ProductID, r.IngredientID, r.Quantity); err != nil {
			return fmt.Errorf("failed to seed recipe item: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE shop_id = $1`, shop.ID); err != nil {
		return fmt.Errorf("failed to clear sales: %w", err)
	}
	for _, s := range in.Sales {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sales (shop_id, product_id, quantity, sold_at, source)
			VALUES ($1, $2, $3, $4, $5)
		`, shop.ID, s.ProductID, s.Quantity, s.SoldAt, string(domain.SaleSourcePOS)); err != nil {
			return fmt.Errorf("failed to seed sale: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Log.Info().
		Str("shop", shop.ID).
		Int("ingredients", len(in.Ingredients)).
		Int("products", len(products)).
		Int("sales", len(in.Sales)).
		Msg("Database seeding completed successfully")
	return nil
}
