// Package forecast projects per-ingredient consumption from sales history
// and recipes, and derives reorder suggestions.
//
// The engine is a pure computation: it performs no I/O, keeps no state
// between calls and is safe for concurrent use.
package forecast

import (
	"fmt"
	"time"
)

// Engine runs forecasts against a clock.
type Engine struct {
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the source of the current instant.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine that uses the wall clock unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Forecast runs the engine with the wall clock.
func Forecast(in Input) (*Output, error) {
	return NewEngine().Forecast(in)
}

// Forecast projects usage for in.Days days starting today in in.Timezone.
// The only error it returns is for an unknown timezone.
func (e *Engine) Forecast(in Input) (*Output, error) {
	cal, err := NewCalendar(in.Timezone)
	if err != nil {
		return nil, err
	}
	today := cal.Today(e.now())

	trailing, err := BuildTrailingAverages(in.Sales, cal, today)
	if err != nil {
		return nil, fmt.Errorf("trailing averages: %w", err)
	}

	ingredients := uniqueIngredients(in.Ingredients)
	ids := make([]string, len(ingredients))
	for i, ing := range ingredients {
		ids[i] = ing.ID
	}

	projector := UsageProjector{
		Demand: DemandModel{
			Weekday:  BuildWeekdayAverages(in.Sales, cal),
			Trailing: trailing,
		},
		Recipes:       ExpandRecipes(in.Recipes),
		IngredientIDs: ids,
	}
	daily, totals, err := projector.Project(today, in.Days)
	if err != nil {
		return nil, fmt.Errorf("project usage: %w", err)
	}

	reorder := AnalyzeReorder(daily, totals, ingredients)

	return &Output{
		Daily:                    daily,
		TotalUsageByIngredient:   totals,
		SuggestedReorderDate:     reorder.Date,
		SuggestedReorderQuantity: reorder.Quantity,
	}, nil
}

// uniqueIngredients keeps first-seen order; a repeated id takes the values
// of its last record.
func uniqueIngredients(in []IngredientRecord) []IngredientRecord {
	index := make(map[string]int, len(in))
	out := make([]IngredientRecord, 0, len(in))
	for _, ing := range in {
		if i, ok := index[ing.ID]; ok {
			out[i] = ing
			continue
		}
		index[ing.ID] = len(out)
		out = append(out, ing)
	}
	return out
}
