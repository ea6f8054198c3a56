// internal/domain/models.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shop owns ingredients, products and sales. Timezone is an IANA zone name.
type Shop struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Timezone  string    `json:"timezone" db:"timezone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Ingredient is a stocked raw material. Stock columns are NUMERIC.
type Ingredient struct {
	ID           string          `json:"id" db:"id"`
	ShopID       string          `json:"shop_id" db:"shop_id"`
	Name         string          `json:"name" db:"name"`
	Unit         string          `json:"unit" db:"unit"`
	StockCurrent decimal.Decimal `json:"stock_current" db:"stock_current"`
	ReorderPoint decimal.Decimal `json:"reorder_point" db:"reorder_point"`
}

// RecipeItem is one line of a product's recipe.
type RecipeItem struct {
	ProductID    string          `json:"product_id" db:"product_id"`
	IngredientID string          `json:"ingredient_id" db:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity" db:"quantity"`
}

// SaleSource tells where a sale was recorded.
type SaleSource string

const (
	SaleSourcePOS    SaleSource = "POS"
	SaleSourceManual SaleSource = "MANUAL"
)

// Sale is a recorded sale of Quantity units of a product.
type Sale struct {
	ID        int64      `json:"id" db:"id"`
	ShopID    string     `json:"shop_id" db:"shop_id"`
	ProductID string     `json:"product_id" db:"product_id"`
	Quantity  int        `json:"quantity" db:"quantity"`
	SoldAt    time.Time  `json:"sold_at" db:"sold_at"`
	Source    SaleSource `json:"source" db:"source"`
}

// NewSale is the payload for recording a sale.
type NewSale struct {
	ProductID string     `json:"product_id" binding:"required" validate:"required"`
	Quantity  int        `json:"quantity" binding:"required,gte=1" validate:"gte=1"`
	SoldAt    *time.Time `json:"sold_at"`
	Source    SaleSource `json:"source"`
}

// RecordedSale is the outcome of recording a sale.
type RecordedSale struct {
	Sale            Sale `json:"sale"`
	LowStockWarning bool `json:"low_stock_warning,omitempty"`
}

// InventoryAdjustment is one signed change to an ingredient's stock.
type InventoryAdjustment struct {
	ID           int64           `json:"id" db:"id"`
	IngredientID string          `json:"ingredient_id" db:"ingredient_id"`
	Delta        decimal.Decimal `json:"delta" db:"delta"`
	Reason       string          `json:"reason" db:"reason"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// NewAdjustment is the payload for a manual stock correction. Delta is a
// pointer so a missing value is distinguishable from zero.
type NewAdjustment struct {
	Delta  *float64 `json:"delta"`
	Reason string   `json:"reason"`
}

// AdjustedStock is the ingredient after an adjustment plus the stored row.
type AdjustedStock struct {
	Ingredient Ingredient          `json:"ingredient"`
	Adjustment InventoryAdjustment `json:"adjustment"`
}
