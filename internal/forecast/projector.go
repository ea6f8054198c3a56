package forecast

// DemandModel resolves the expected units sold for a product on a weekday.
type DemandModel struct {
	Weekday  WeekdayAverages
	Trailing TrailingAverages
}

// Demand prefers the product's weekday average, falls back to the trailing
// window average, and finally to zero.
func (m DemandModel) Demand(productID string, weekday int) float64 {
	if avg, ok := m.Weekday.Lookup(productID, weekday); ok {
		return avg
	}
	if avg, ok := m.Trailing.Lookup(productID); ok {
		return avg
	}
	return 0
}

// UsageProjector turns product demand into per-ingredient usage per day.
type UsageProjector struct {
	Demand  DemandModel
	Recipes RecipeBook
	// IngredientIDs is the ordered set of known ingredients. Recipe lines
	// pointing anywhere else are dropped.
	IngredientIDs []string
}

// Project returns one DailyUsage per day starting at today plus the running
// totals. Every known ingredient appears in every map, zero or not.
func (p UsageProjector) Project(today string, days int) ([]DailyUsage, map[string]float64, error) {
	known := make(map[string]struct{}, len(p.IngredientIDs))
	totals := make(map[string]float64, len(p.IngredientIDs))
	for _, id := range p.IngredientIDs {
		known[id] = struct{}{}
		totals[id] = 0
	}

	products := p.Recipes.Products()
	daily := make([]DailyUsage, 0, max(days, 0))
	for i := 0; i < days; i++ {
		date, err := AddDays(today, i)
		if err != nil {
			return nil, nil, err
		}
		wd, err := WeekdayOf(date)
		if err != nil {
			return nil, nil, err
		}

		byIngredient := make(map[string]float64, len(p.IngredientIDs))
		for _, id := range p.IngredientIDs {
			byIngredient[id] = 0
		}

		for _, productID := range products {
			qty := p.Demand.Demand(productID, wd)
			for ingredientID, perUnit := range p.Recipes[productID] {
				if _, ok := known[ingredientID]; !ok {
					continue
				}
				byIngredient[ingredientID] += qty * perUnit
			}
		}

		for _, id := range p.IngredientIDs {
			totals[id] += byIngredient[id]
		}
		daily = append(daily, DailyUsage{Date: date, ByIngredient: byIngredient})
	}

	return daily, totals, nil
}
