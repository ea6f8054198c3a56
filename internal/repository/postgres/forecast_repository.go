package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/repository"
	"github.com/shopspring/decimal"
)

type forecastRepository struct {
	db *DB
}

func NewForecastRepository(db *DB) repository.ForecastRepository {
	return &forecastRepository{db: db}
}

func (r *forecastRepository) ListShops(ctx context.Context) ([]domain.Shop, error) {
	query := `
		SELECT id, name, timezone, created_at
		FROM shops
		ORDER BY id
	`

	var shops []domain.Shop
	err := r.db.withLimit(ctx, func() error {
		return r.db.SelectContext(ctx, &shops, query)
	})
	if err != nil {
		return nil, fmt.Errorf("error listing shops: %w", err)
	}

	return shops, nil
}

func (r *forecastRepository) GetShop(ctx context.Context, shopID string) (*domain.Shop, error) {
	query := `
		SELECT id, name, timezone, created_at
		FROM shops
		WHERE id = $1
	`

	var shop domain.Shop
	err := r.db.withLimit(ctx, func() error {
		return r.db.GetContext(ctx, &shop, query, shopID)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrShopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting shop %s: %w", shopID, err)
	}

	return &shop, nil
}

func (r *forecastRepository) ListSales(ctx context.Context, shopID string) ([]domain.Sale, error) {
	query := `
		SELECT id, shop_id, product_id, quantity, sold_at, source
		FROM sales
		WHERE shop_id = $1
		ORDER BY sold_at
	`

	var sales []domain.Sale
	err := r.db.withLimit(ctx, func() error {
		return r.db.SelectContext(ctx, &sales, query, shopID)
	})
	if err != nil {
		return nil, fmt.Errorf("error listing sales: %w", err)
	}

	return sales, nil
}

func (r *forecastRepository) ListSalesBetween(ctx context.Context, shopID string, from, to time.Time) ([]domain.Sale, error) {
	query := `
		SELECT id, shop_id, product_id, quantity, sold_at, source
		FROM sales
		WHERE shop_id = $1 AND sold_at >= $2 AND sold_at <= $3
		ORDER BY sold_at
	`

	sales := []domain.Sale{}
	err := r.db.withLimit(ctx, func() error {
		return r.db.SelectContext(ctx, &sales, query, shopID, from, to)
	})
	if err != nil {
		return nil, fmt.Errorf("error listing sales between %s and %s: %w", from.Format(time.RFC3339), to.Format(time.RFC3339), err)
	}

	return sales, nil
}

func (r *forecastRepository) ListRecipeItems(ctx context.Context, shopID string) ([]domain.RecipeItem, error) {
	query := `
		SELECT ri.product_id, ri.ingredient_id, ri.quantity
		FROM recipe_items ri
		JOIN products p ON p.id = ri.product_id
		WHERE p.shop_id = $1
	`

	var items []domain.RecipeItem
	err := r.db.withLimit(ctx, func() error {
		return r.db.SelectContext(ctx, &items, query, shopID)
	})
	if err != nil {
		return nil, fmt.Errorf("error listing recipe items: %w", err)
	}

	return items, nil
}

func (r *forecastRepository) ListIngredients(ctx context.Context, shopID string) ([]domain.Ingredient, error) {
	query := `
		SELECT id, shop_id, name, unit, stock_current, reorder_point
		FROM ingredients
		WHERE shop_id = $1
		ORDER BY name, id
	`

	var ingredients []domain.Ingredient
	err := r.db.withLimit(ctx, func() error {
		return r.db.SelectContext(ctx, &ingredients, query, shopID)
	})
	if err != nil {
		return nil, fmt.Errorf("error listing ingredients: %w", err)
	}

	return ingredients, nil
}

type recipeLine struct {
	ingredientID string
	shopID       string
	quantity     decimal.Decimal
}

func (r *forecastRepository) RecordSale(ctx context.Context, shopID string, sale domain.NewSale) (*domain.RecordedSale, error) {
	soldAt := time.Now().UTC()
	if sale.SoldAt != nil {
		soldAt = *sale.SoldAt
	}
	source := sale.Source
	if source == "" {
		source = domain.SaleSourceManual
	}

	result := &domain.RecordedSale{}
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var productID string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM products WHERE id = $1 AND shop_id = $2`,
			sale.ProductID, shopID,
		).Scan(&productID)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to look up product: %w", err)
		}

		lines, err := loadRecipeLines(ctx, tx, productID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return repository.ErrProductHasNoRecipe
		}

		sold := decimal.NewFromInt(int64(sale.Quantity))
		for _, line := range lines {
			if line.shopID != shopID {
				continue
			}
			deduct := line.quantity.Mul(sold)

			var newStock decimal.Decimal
			err := tx.QueryRowContext(ctx, `
				UPDATE ingredients
				SET stock_current = stock_current - $1
				WHERE id = $2
				RETURNING stock_current
			`, deduct, line.ingredientID).Scan(&newStock)
			if err != nil {
				return fmt.Errorf("failed to deduct stock for %s: %w", line.ingredientID, err)
			}
			if newStock.IsNegative() {
				result.LowStockWarning = true
			}

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO inventory_adjustments (ingredient_id, delta, reason, created_at)
				VALUES ($1, $2, 'sale', NOW())
			`, line.ingredientID, deduct.Neg()); err != nil {
				return fmt.Errorf("failed to insert inventory adjustment: %w", err)
			}
		}

		result.Sale = domain.Sale{
			ShopID:    shopID,
			ProductID: productID,
			Quantity:  sale.Quantity,
			SoldAt:    soldAt,
			Source:    source,
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO sales (shop_id, product_id, quantity, sold_at, source)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, shopID, productID, sale.Quantity, soldAt, string(source)).Scan(&result.Sale.ID)
		if err != nil {
			return fmt.Errorf("failed to insert sale: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *forecastRepository) AdjustStock(ctx context.Context, shopID, ingredientID string, delta decimal.Decimal, reason string) (*domain.AdjustedStock, error) {
	result := &domain.AdjustedStock{}
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		ing := &result.Ingredient
		err := tx.QueryRowContext(ctx, `
			UPDATE ingredients
			SET stock_current = stock_current + $1
			WHERE id = $2 AND shop_id = $3
			RETURNING id, shop_id, name, unit, stock_current, reorder_point
		`, delta, ingredientID, shopID).Scan(&ing.ID, &ing.ShopID, &ing.Name, &ing.Unit, &ing.StockCurrent, &ing.ReorderPoint)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrIngredientNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to adjust stock for %s: %w", ingredientID, err)
		}

		adj := &result.Adjustment
		adj.IngredientID, adj.Delta, adj.Reason = ing.ID, delta, reason
		err = tx.QueryRowContext(ctx, `
			INSERT INTO inventory_adjustments (ingredient_id, delta, reason, created_at)
			VALUES ($1, $2, $3, NOW())
			RETURNING id, created_at
		`, ing.ID, delta, reason).Scan(&adj.ID, &adj.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert inventory adjustment: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func loadRecipeLines(ctx context.Context, tx *sql.Tx, productID string) ([]recipeLine, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT ri.ingredient_id, i.shop_id, ri.quantity
		FROM recipe_items ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.product_id = $1
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	defer rows.Close()

	var lines []recipeLine
	for rows.Next() {
		var line recipeLine
		if err := rows.Scan(&line.ingredientID, &line.shopID, &line.quantity); err != nil {
			return nil, fmt.Errorf("failed to scan recipe line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recipe: %w", err)
	}

	return lines, nil
}
