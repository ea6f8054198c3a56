package forecast

import "time"

// SaleRecord is one historical sale event.
type SaleRecord struct {
	ProductID string    `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=1"`
	SoldAt    time.Time `json:"soldAt" validate:"required"`
}

// RecipeRecord means one unit of ProductID consumes Quantity units of IngredientID.
type RecipeRecord struct {
	ProductID    string  `json:"productId" validate:"required"`
	IngredientID string  `json:"ingredientId" validate:"required"`
	Quantity     float64 `json:"quantity" validate:"gte=0"`
}

// IngredientRecord is an on-hand stock snapshot for one ingredient.
type IngredientRecord struct {
	ID           string  `json:"id" validate:"required"`
	StockCurrent float64 `json:"stockCurrent"`
	ReorderPoint float64 `json:"reorderPoint"`
}

// Input holds everything a single forecast run needs.
//
// Days must be 7 or 30; callers coerce other values with NormalizeDays
// before invoking the engine. Timezone is an IANA zone name such as
// "America/New_York".
type Input struct {
	Sales       []SaleRecord
	Recipes     []RecipeRecord
	Ingredients []IngredientRecord
	Timezone    string
	Days        int
}

// DailyUsage is the projected consumption for one calendar day in shop time.
type DailyUsage struct {
	Date         string             `json:"date"`
	ByIngredient map[string]float64 `json:"byIngredient"`
}

// Output is the forecast result. SuggestedReorderDate is nil when no
// ingredient reaches its reorder point within the horizon.
type Output struct {
	Daily                    []DailyUsage       `json:"daily"`
	TotalUsageByIngredient   map[string]float64 `json:"totalUsageByIngredient"`
	SuggestedReorderDate     *string            `json:"suggestedReorderDate"`
	SuggestedReorderQuantity map[string]float64 `json:"suggestedReorderQuantity"`
}

const (
	// HorizonWeek is the default forecast horizon.
	HorizonWeek = 7
	// HorizonMonth is the extended forecast horizon.
	HorizonMonth = 30
)

// NormalizeDays coerces a requested horizon to one the engine supports.
// Only 30 is kept as is; every other value becomes 7.
func NormalizeDays(days int) int {
	if days == HorizonMonth {
		return HorizonMonth
	}
	return HorizonWeek
}
