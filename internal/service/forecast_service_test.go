package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu          sync.Mutex
	shops       map[string]domain.Shop
	sales       []domain.Sale
	recipes     []domain.RecipeItem
	ingredients []domain.Ingredient
	listErr     error
	loads       int
	recorded    []domain.NewSale
	adjusted    []decimal.Decimal
}

func (f *fakeRepo) ListShops(ctx context.Context) ([]domain.Shop, error) {
	shops := make([]domain.Shop, 0, len(f.shops))
	for _, shop := range f.shops {
		shops = append(shops, shop)
	}
	sort.Slice(shops, func(i, j int) bool { return shops[i].ID < shops[j].ID })
	return shops, nil
}

func (f *fakeRepo) GetShop(ctx context.Context, shopID string) (*domain.Shop, error) {
	shop, ok := f.shops[shopID]
	if !ok {
		return nil, repository.ErrShopNotFound
	}
	return &shop, nil
}

func (f *fakeRepo) ListSales(ctx context.Context, shopID string) ([]domain.Sale, error) {
	f.mu.Lock()
	f.loads++
	f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.sales, nil
}

func (f *fakeRepo) ListRecipeItems(ctx context.Context, shopID string) ([]domain.RecipeItem, error) {
	return f.recipes, nil
}

func (f *fakeRepo) ListIngredients(ctx context.Context, shopID string) ([]domain.Ingredient, error) {
	return f.ingredients, nil
}

func (f *fakeRepo) RecordSale(ctx context.Context, shopID string, sale domain.NewSale) (*domain.RecordedSale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, sale)
	return &domain.RecordedSale{Sale: domain.Sale{ID: int64(len(f.recorded)), ShopID: shopID, ProductID: sale.ProductID, Quantity: sale.Quantity, Source: sale.Source}}, nil
}

func (f *fakeRepo) ListSalesBetween(ctx context.Context, shopID string, from, to time.Time) ([]domain.Sale, error) {
	var out []domain.Sale
	for _, sale := range f.sales {
		if !sale.SoldAt.Before(from) && !sale.SoldAt.After(to) {
			out = append(out, sale)
		}
	}
	return out, nil
}

func (f *fakeRepo) AdjustStock(ctx context.Context, shopID, ingredientID string, delta decimal.Decimal, reason string) (*domain.AdjustedStock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, ing := range f.ingredients {
		if ing.ID != ingredientID {
			continue
		}
		f.ingredients[i].StockCurrent = ing.StockCurrent.Add(delta)
		f.adjusted = append(f.adjusted, delta)
		return &domain.AdjustedStock{
			Ingredient: f.ingredients[i],
			Adjustment: domain.InventoryAdjustment{ID: int64(len(f.adjusted)), IngredientID: ingredientID, Delta: delta, Reason: reason},
		}, nil
	}
	return nil, repository.ErrIngredientNotFound
}

func newFakeRepo(t *testing.T) *fakeRepo {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	soldAt := func(date string) time.Time {
		d, err := time.ParseInLocation("2006-01-02", date, loc)
		require.NoError(t, err)
		return d.Add(9 * time.Hour)
	}

	return &fakeRepo{
		shops: map[string]domain.Shop{
			"shop-1":   {ID: "shop-1", Name: "Demo Coffee Shop", Timezone: "America/New_York"},
			"shop-nz":  {ID: "shop-nz", Name: "No Zone"},
			"shop-bad": {ID: "shop-bad", Name: "Broken", Timezone: "Nowhere/Special"},
		},
		sales: []domain.Sale{
			{ProductID: "latte", Quantity: 10, SoldAt: soldAt("2024-01-08")},
			{ProductID: "latte", Quantity: 0, SoldAt: soldAt("2024-01-09")},
		},
		recipes: []domain.RecipeItem{
			{ProductID: "latte", IngredientID: "milk", Quantity: decimal.NewFromInt(200)},
		},
		ingredients: []domain.Ingredient{
			{ID: "milk", StockCurrent: decimal.NewFromInt(10000), ReorderPoint: decimal.NewFromInt(2000)},
		},
	}
}

// mondayNoon is Monday 2024-01-15 12:00 in New York.
var mondayNoon = time.Date(2024, 1, 15, 17, 0, 0, 0, time.UTC)

func fixedClock() Option {
	return WithClock(func() time.Time { return mondayNoon })
}

func TestForecastService_GetForecast(t *testing.T) {
	repo := newFakeRepo(t)
	svc := NewForecastService(repo, nil, "UTC", fixedClock())

	out, err := svc.GetForecast(context.Background(), "shop-1", 7)
	require.NoError(t, err)

	require.Len(t, out.Daily, 7)
	assert.Equal(t, "2024-01-15", out.Daily[0].Date)
	// Monday bucket from Jan 8; the zero-quantity row is dropped
	assert.InDelta(t, 2000.0, out.Daily[0].ByIngredient["milk"], 1e-9)
	// other weekdays fall back to the trailing average of 10
	assert.InDelta(t, 2000.0, out.Daily[1].ByIngredient["milk"], 1e-9)
	assert.InDelta(t, 14000.0, out.TotalUsageByIngredient["milk"], 1e-9)
	require.NotNil(t, out.SuggestedReorderDate)
	assert.Equal(t, "2024-01-18", *out.SuggestedReorderDate)
	assert.Equal(t, 4000.0, out.SuggestedReorderQuantity["milk"])
}

func TestForecastService_DaysAreNormalized(t *testing.T) {
	svc := NewForecastService(newFakeRepo(t), nil, "UTC", fixedClock())

	out, err := svc.GetForecast(context.Background(), "shop-1", 30)
	require.NoError(t, err)
	assert.Len(t, out.Daily, 30)

	out, err = svc.GetForecast(context.Background(), "shop-1", 14)
	require.NoError(t, err)
	assert.Len(t, out.Daily, 7)
}

func TestForecastService_DefaultTimezone(t *testing.T) {
	svc := NewForecastService(newFakeRepo(t), nil, "Asia/Tokyo", fixedClock())

	out, err := svc.GetForecast(context.Background(), "shop-nz", 7)
	require.NoError(t, err)
	// 17:00 UTC is already Tuesday in Tokyo
	assert.Equal(t, "2024-01-16", out.Daily[0].Date)
}

func TestForecastService_Errors(t *testing.T) {
	repo := newFakeRepo(t)
	svc := NewForecastService(repo, nil, "UTC", fixedClock())

	_, err := svc.GetForecast(context.Background(), "missing", 7)
	assert.ErrorIs(t, err, repository.ErrShopNotFound)

	_, err = svc.GetForecast(context.Background(), "shop-bad", 7)
	assert.Error(t, err)

	repo.listErr = errors.New("connection reset")
	_, err = svc.GetForecast(context.Background(), "shop-1", 7)
	assert.ErrorContains(t, err, "connection reset")
}

func TestForecastService_UsesCache(t *testing.T) {
	repo := newFakeRepo(t)
	svc := NewForecastService(repo, cache.NewMemoryForecastCache(8, time.Minute), "UTC", fixedClock())
	ctx := context.Background()

	first, err := svc.GetForecast(ctx, "shop-1", 7)
	require.NoError(t, err)
	second, err := svc.GetForecast(ctx, "shop-1", 7)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.loads)

	_, err = svc.GetForecast(ctx, "shop-1", 30)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.loads)
}

func TestForecastService_RecordSaleInvalidatesCache(t *testing.T) {
	repo := newFakeRepo(t)
	svc := NewForecastService(repo, cache.NewMemoryForecastCache(8, time.Minute), "UTC", fixedClock())
	ctx := context.Background()

	_, err := svc.GetForecast(ctx, "shop-1", 7)
	require.NoError(t, err)

	recorded, err := svc.RecordSale(ctx, "shop-1", domain.NewSale{ProductID: "latte", Quantity: 2, Source: "pos"})
	require.NoError(t, err)
	assert.Equal(t, domain.SaleSourcePOS, recorded.Sale.Source)

	_, err = svc.GetForecast(ctx, "shop-1", 7)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.loads)
}

func TestForecastService_RecordSaleValidation(t *testing.T) {
	repo := newFakeRepo(t)
	svc := NewForecastService(repo, nil, "UTC", fixedClock())

	_, err := svc.RecordSale(context.Background(), "shop-1", domain.NewSale{ProductID: "latte", Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.RecordSale(context.Background(), "shop-1", domain.NewSale{Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, repo.recorded)
}

func TestForecastService_ListShopIDs(t *testing.T) {
	svc := NewForecastService(newFakeRepo(t), nil, "UTC")

	ids, err := svc.ListShopIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"shop-1", "shop-bad", "shop-nz"}, ids)
}

func TestForecastService_AdjustStockInvalidatesCache(t *testing.T) {
	repo := newFakeRepo(t)
	svc := NewForecastService(repo, cache.NewMemoryForecastCache(8, time.Minute), "UTC", fixedClock())
	ctx := context.Background()

	before, err := svc.GetForecast(ctx, "shop-1", 7)
	require.NoError(t, err)
	require.NotNil(t, before.SuggestedReorderDate)

	delta := 20000.0
	adjusted, err := svc.AdjustStock(ctx, "shop-1", "milk", domain.NewAdjustment{Delta: &delta, Reason: "  delivery \n"})
	require.NoError(t, err)
	assert.Equal(t, "delivery", adjusted.Adjustment.Reason)
	assert.True(t, decimal.NewFromInt(30000).Equal(adjusted.Ingredient.StockCurrent))

	after, err := svc.GetForecast(ctx, "shop-1", 7)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.loads)
	assert.Nil(t, after.SuggestedReorderDate)
}

func TestForecastService_AdjustStockValidation(t *testing.T) {
	repo := newFakeRepo(t)
	svc := NewForecastService(repo, nil, "UTC", fixedClock())
	ctx := context.Background()
	delta := -5.0

	_, err := svc.AdjustStock(ctx, "shop-1", "milk", domain.NewAdjustment{Reason: "spill"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AdjustStock(ctx, "shop-1", "milk", domain.NewAdjustment{Delta: &delta, Reason: " \t "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, repo.adjusted)

	_, err = svc.AdjustStock(ctx, "shop-1", "beans", domain.NewAdjustment{Delta: &delta, Reason: "spill"})
	assert.ErrorIs(t, err, repository.ErrIngredientNotFound)
}

func TestForecastService_ListSales(t *testing.T) {
	svc := NewForecastService(newFakeRepo(t), nil, "UTC")

	from := time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	sales, err := svc.ListSales(context.Background(), "shop-1", from, to)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, 0, sales[0].Quantity)
}
