package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/andresuchdata/stockcast/internal/metrics"
	"github.com/andresuchdata/stockcast/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidInput wraps request payloads that fail validation.
var ErrInvalidInput = errors.New("invalid input")

type ForecastService struct {
	repo            repository.ForecastRepository
	cache           cache.ForecastCache
	validate        *validator.Validate
	defaultTimezone string
	now             func() time.Time
}

type Option func(*ForecastService)

// WithClock fixes the instant used for "today" in both cache keys and the engine.
func WithClock(now func() time.Time) Option {
	return func(s *ForecastService) {
		s.now = now
	}
}

func NewForecastService(repo repository.ForecastRepository, cacheImpl cache.ForecastCache, defaultTimezone string, opts ...Option) *ForecastService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopForecastCache()
	}
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}

	s := &ForecastService{
		repo:            repo,
		cache:           cacheImpl,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		defaultTimezone: defaultTimezone,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetForecast returns the forecast for a shop over days (coerced to 7 or 30).
func (s *ForecastService) GetForecast(ctx context.Context, shopID string, days int) (*forecast.Output, error) {
	start := time.Now()
	days = forecast.NormalizeDays(days)
	daysLabel := strconv.Itoa(days)

	out, outcome, err := s.getForecast(ctx, shopID, days)
	metrics.ForecastRuns.WithLabelValues(outcome, daysLabel).Inc()
	if err != nil {
		return nil, err
	}
	if outcome == metrics.OutcomeComputed {
		metrics.ForecastDuration.WithLabelValues(daysLabel).Observe(time.Since(start).Seconds())
	}
	return out, nil
}

func (s *ForecastService) getForecast(ctx context.Context, shopID string, days int) (*forecast.Output, string, error) {
	shop, err := s.repo.GetShop(ctx, shopID)
	if err != nil {
		return nil, metrics.OutcomeError, err
	}

	timezone := shop.Timezone
	if timezone == "" {
		timezone = s.defaultTimezone
	}
	cal, err := forecast.NewCalendar(timezone)
	if err != nil {
		return nil, metrics.OutcomeError, fmt.Errorf("shop %s: %w", shopID, err)
	}
	now := s.now()
	key := cache.ForecastKey{ShopID: shopID, Days: days, Date: cal.Today(now)}

	if out, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		return out, metrics.OutcomeCacheHit, nil
	} else if err != nil {
		metrics.ForecastCacheErrors.WithLabelValues("get").Inc()
		log.Warn().Err(err).Str("shop_id", shopID).Msg("forecast: cache get failed")
	}

	input, err := s.loadInput(ctx, shopID)
	if err != nil {
		return nil, metrics.OutcomeError, err
	}
	input.Timezone = timezone
	input.Days = days

	engine := forecast.NewEngine(forecast.WithClock(func() time.Time { return now }))
	out, err := engine.Forecast(input)
	if err != nil {
		return nil, metrics.OutcomeError, fmt.Errorf("shop %s: %w", shopID, err)
	}

	log.Debug().
		Str("shop_id", shopID).
		Int("days", days).
		Int("sales", len(input.Sales)).
		Int("ingredients", len(input.Ingredients)).
		Msg("forecast computed")

	if err := s.cache.Set(ctx, key, out); err != nil {
		metrics.ForecastCacheErrors.WithLabelValues("set").Inc()
		log.Warn().Err(err).Str("shop_id", shopID).Msg("forecast: cache set failed")
	}

	return out, metrics.OutcomeComputed, nil
}

// loadInput fetches the shop's sales, recipes and ingredients concurrently.
func (s *ForecastService) loadInput(ctx context.Context, shopID string) (forecast.Input, error) {
	var (
		sales       []domain.Sale
		recipes     []domain.RecipeItem
		ingredients []domain.Ingredient
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = s.repo.ListSales(gctx, shopID)
		return err
	})
	g.Go(func() error {
		var err error
		recipes, err = s.repo.ListRecipeItems(gctx, shopID)
		return err
	})
	g.Go(func() error {
		var err error
		ingredients, err = s.repo.ListIngredients(gctx, shopID)
		return err
	})
	if err := g.Wait(); err != nil {
		return forecast.Input{}, err
	}

	return s.buildInput(shopID, sales, recipes, ingredients), nil
}

// buildInput converts stored rows into engine records, dropping rows that
// fail shape validation.
func (s *ForecastService) buildInput(shopID string, sales []domain.Sale, recipes []domain.RecipeItem, ingredients []domain.Ingredient) forecast.Input {
	input := forecast.Input{
		Sales:       make([]forecast.SaleRecord, 0, len(sales)),
		Recipes:     make([]forecast.RecipeRecord, 0, len(recipes)),
		Ingredients: make([]forecast.IngredientRecord, 0, len(ingredients)),
	}
	dropped := 0

	for _, sale := range sales {
		rec := forecast.SaleRecord{
			ProductID: sale.ProductID,
			Quantity:  sale.Quantity,
			SoldAt:    sale.SoldAt,
		}
		if err := s.validate.Struct(rec); err != nil {
			dropped++
			continue
		}
		input.Sales = append(input.Sales, rec)
	}

	for _, item := range recipes {
		rec := forecast.RecipeRecord{
			ProductID:    item.ProductID,
			IngredientID: item.IngredientID,
			Quantity:     item.Quantity.InexactFloat64(),
		}
		if err := s.validate.Struct(rec); err != nil {
			dropped++
			continue
		}
		input.Recipes = append(input.Recipes, rec)
	}

	for _, ing := range ingredients {
		rec := forecast.IngredientRecord{
			ID:           ing.ID,
			StockCurrent: ing.StockCurrent.InexactFloat64(),
			ReorderPoint: ing.ReorderPoint.InexactFloat64(),
		}
		if err := s.validate.Struct(rec); err != nil {
			dropped++
			continue
		}
		input.Ingredients = append(input.Ingredients, rec)
	}

	if dropped > 0 {
		log.Warn().Str("shop_id", shopID).Int("dropped", dropped).Msg("forecast: skipped malformed rows")
	}
	return input
}

// ListShopIDs returns every shop id in a stable order.
func (s *ForecastService) ListShopIDs(ctx context.Context) ([]string, error) {
	shops, err := s.repo.ListShops(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(shops))
	for i, shop := range shops {
		ids[i] = shop.ID
	}
	return ids, nil
}

// RecordSale stores a sale, deducts ingredient stock and drops the shop's
// cached forecasts.
func (s *ForecastService) RecordSale(ctx context.Context, shopID string, sale domain.NewSale) (*domain.RecordedSale, error) {
	if err := s.validate.Struct(sale); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	sale.Source = domain.ParseSaleSource(string(sale.Source))

	recorded, err := s.repo.RecordSale(ctx, shopID, sale)
	if err != nil {
		return nil, err
	}
	metrics.SalesRecorded.WithLabelValues(string(recorded.Sale.Source)).Inc()

	if err := s.InvalidateForecast(ctx, shopID); err != nil {
		log.Warn().Err(err).Str("shop_id", shopID).Msg("forecast: cache invalidation failed")
	}
	return recorded, nil
}

// AdjustStock applies a manual stock correction and drops the shop's cached
// forecasts, since reorder advice depends on current stock.
func (s *ForecastService) AdjustStock(ctx context.Context, shopID, ingredientID string, adj domain.NewAdjustment) (*domain.AdjustedStock, error) {
	if adj.Delta == nil || math.IsNaN(*adj.Delta) || math.IsInf(*adj.Delta, 0) {
		return nil, fmt.Errorf("%w: delta (number) required", ErrInvalidInput)
	}
	reason := strings.TrimSpace(adj.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason required", ErrInvalidInput)
	}

	adjusted, err := s.repo.AdjustStock(ctx, shopID, ingredientID, decimal.NewFromFloat(*adj.Delta), reason)
	if err != nil {
		return nil, err
	}

	if err := s.InvalidateForecast(ctx, shopID); err != nil {
		log.Warn().Err(err).Str("shop_id", shopID).Msg("forecast: cache invalidation failed")
	}
	return adjusted, nil
}

// ListSales returns the shop's sales sold between from and to inclusive.
func (s *ForecastService) ListSales(ctx context.Context, shopID string, from, to time.Time) ([]domain.Sale, error) {
	return s.repo.ListSalesBetween(ctx, shopID, from, to)
}

// InvalidateForecast drops every cached forecast of the shop.
func (s *ForecastService) InvalidateForecast(ctx context.Context, shopID string) error {
	if err := s.cache.InvalidateShop(ctx, shopID); err != nil {
		metrics.ForecastCacheErrors.WithLabelValues("invalidate").Inc()
		return err
	}
	return nil
}
