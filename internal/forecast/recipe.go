package forecast

import "sort"

// RecipeBook maps productID -> ingredientID -> units consumed per unit sold.
type RecipeBook map[string]map[string]float64

// ExpandRecipes builds a RecipeBook. Duplicate (product, ingredient) pairs
// keep the last quantity seen.
func ExpandRecipes(recipes []RecipeRecord) RecipeBook {
	out := make(RecipeBook)
	for _, r := range recipes {
		items, ok := out[r.ProductID]
		if !ok {
			items = make(map[string]float64)
			out[r.ProductID] = items
		}
		items[r.IngredientID] = r.Quantity
	}
	return out
}

// Products returns the product ids with a recipe, sorted.
func (b RecipeBook) Products() []string {
	return sortedKeys(b)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
