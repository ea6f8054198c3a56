// internal/repository/forecast_repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrShopNotFound       = errors.New("shop not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductHasNoRecipe = errors.New("product has no recipe")
	ErrIngredientNotFound = errors.New("ingredient not found")
)

// ForecastRepository supplies one shop's forecasting inputs and records
// sales against its stock.
type ForecastRepository interface {
	ListShops(ctx context.Context) ([]domain.Shop, error)
	GetShop(ctx context.Context, shopID string) (*domain.Shop, error)
	ListSales(ctx context.Context, shopID string) ([]domain.Sale, error)
	// ListSalesBetween returns the shop's sales with from <= sold_at <= to,
	// oldest first.
	ListSalesBetween(ctx context.Context, shopID string, from, to time.Time) ([]domain.Sale, error)
	ListRecipeItems(ctx context.Context, shopID string) ([]domain.RecipeItem, error)
	ListIngredients(ctx context.Context, shopID string) ([]domain.Ingredient, error)

	// RecordSale stores the sale and deducts recipe usage from ingredient
	// stock in one transaction.
	RecordSale(ctx context.Context, shopID string, sale domain.NewSale) (*domain.RecordedSale, error)

	// AdjustStock adds delta to the ingredient's stock and stores the
	// adjustment row in one transaction. An ingredient outside the shop is
	// ErrIngredientNotFound.
	AdjustStock(ctx context.Context, shopID, ingredientID string, delta decimal.Decimal, reason string) (*domain.AdjustedStock, error)
}
