package forecast

import "math"

// ReorderSuggestion is the outcome of simulating stock over the horizon.
type ReorderSuggestion struct {
	// Date is the first day any ingredient's running stock is at or below
	// its reorder point, or nil if none does.
	Date *string
	// Quantity has an entry for every ingredient with usage or a positive
	// reorder point.
	Quantity map[string]float64
}

// AnalyzeReorder walks daily usage in date order, depleting each
// ingredient's stock, and derives the reorder date and quantities.
func AnalyzeReorder(daily []DailyUsage, totals map[string]float64, ingredients []IngredientRecord) ReorderSuggestion {
	running := make(map[string]float64, len(ingredients))
	for _, ing := range ingredients {
		running[ing.ID] = ing.StockCurrent
	}

	var date *string
	for _, day := range daily {
		for _, ing := range ingredients {
			running[ing.ID] -= day.ByIngredient[ing.ID]
			if date == nil && running[ing.ID] <= ing.ReorderPoint {
				d := day.Date
				date = &d
			}
		}
	}

	quantity := make(map[string]float64)
	for _, ing := range ingredients {
		total := totals[ing.ID]
		switch {
		case total > 0 && ing.StockCurrent < total:
			quantity[ing.ID] = math.Max(ing.ReorderPoint, math.Ceil(total-ing.StockCurrent))
		case ing.ReorderPoint > 0:
			quantity[ing.ID] = math.Max(0, math.Ceil(ing.ReorderPoint-running[ing.ID]))
		}
	}

	return ReorderSuggestion{Date: date, Quantity: quantity}
}
