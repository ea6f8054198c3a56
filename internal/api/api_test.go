package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/andresuchdata/stockcast/internal/repository"
	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeForecastService struct {
	gotShop     string
	gotDays     int
	gotSale     domain.NewSale
	gotAdjust   domain.NewAdjustment
	gotIngr     string
	gotFrom     time.Time
	gotTo       time.Time
	invalidated string
	err         error
}

func (f *fakeForecastService) GetForecast(ctx context.Context, shopID string, days int) (*forecast.Output, error) {
	f.gotShop, f.gotDays = shopID, days
	if f.err != nil {
		return nil, f.err
	}
	return &forecast.Output{
		Daily: []forecast.DailyUsage{
			{Date: "2024-01-15", ByIngredient: map[string]float64{"milk": 200}},
		},
		TotalUsageByIngredient:   map[string]float64{"milk": 200},
		SuggestedReorderQuantity: map[string]float64{},
	}, nil
}

func (f *fakeForecastService) RecordSale(ctx context.Context, shopID string, sale domain.NewSale) (*domain.RecordedSale, error) {
	f.gotShop, f.gotSale = shopID, sale
	if f.err != nil {
		return nil, f.err
	}
	return &domain.RecordedSale{Sale: domain.Sale{ID: 7, ShopID: shopID, ProductID: sale.ProductID, Quantity: sale.Quantity}}, nil
}

func (f *fakeForecastService) InvalidateForecast(ctx context.Context, shopID string) error {
	f.invalidated = shopID
	return f.err
}

func (f *fakeForecastService) AdjustStock(ctx context.Context, shopID, ingredientID string, adj domain.NewAdjustment) (*domain.AdjustedStock, error) {
	f.gotShop, f.gotIngr, f.gotAdjust = shopID, ingredientID, adj
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AdjustedStock{
		Ingredient: domain.Ingredient{ID: ingredientID, ShopID: shopID, StockCurrent: decimal.NewFromInt(1500)},
		Adjustment: domain.InventoryAdjustment{ID: 3, IngredientID: ingredientID, Delta: decimal.NewFromFloat(*adj.Delta), Reason: adj.Reason},
	}, nil
}

func (f *fakeForecastService) ListSales(ctx context.Context, shopID string, from, to time.Time) ([]domain.Sale, error) {
	f.gotShop, f.gotFrom, f.gotTo = shopID, from, to
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetForecast(t *testing.T) {
	svc := &fakeForecastService{}
	router := NewRouter(&Services{ForecastService: svc}, nil)

	rec := serve(router, http.MethodGet, "/api/v1/shops/shop-1/forecast?days=30", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shop-1", svc.gotShop)
	assert.Equal(t, 30, svc.gotDays)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.JSONEq(t, `[{"date":"2024-01-15","byIngredient":{"milk":200}}]`, string(body["daily"]))
	assert.JSONEq(t, `{"milk":200}`, string(body["totalUsageByIngredient"]))
	assert.Equal(t, "null", string(body["suggestedReorderDate"]))
}

func TestGetForecast_DaysCoercion(t *testing.T) {
	tests := map[string]int{
		"":            7,
		"?days=7":     7,
		"?days=30":    30,
		"?days=14":    7,
		"?days=abc":   7,
		"?days=-30":   7,
		"?days=030":   7,
		"?days=%2B30": 7,
		"?days= 30":   7,
		"?days= 30 ":  7,
		"?days=30.0":  7,
	}

	for query, want := range tests {
		svc := &fakeForecastService{}
		router := NewRouter(&Services{ForecastService: svc}, nil)

		rec := serve(router, http.MethodGet, "/api/v1/shops/shop-1/forecast"+strings.ReplaceAll(query, " ", "%20"), "")
		require.Equal(t, http.StatusOK, rec.Code, query)
		assert.Equal(t, want, svc.gotDays, query)
	}
}

func TestGetForecast_Errors(t *testing.T) {
	svc := &fakeForecastService{err: repository.ErrShopNotFound}
	router := NewRouter(&Services{ForecastService: svc}, nil)

	rec := serve(router, http.MethodGet, "/api/v1/shops/missing/forecast", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Shop not found")

	svc.err = errors.New("db down")
	rec = serve(router, http.MethodGet, "/api/v1/shops/shop-1/forecast", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecordSale(t *testing.T) {
	svc := &fakeForecastService{}
	router := NewRouter(&Services{ForecastService: svc}, nil)

	rec := serve(router, http.MethodPost, "/api/v1/shops/shop-1/sales", `{"product_id":"latte","quantity":2,"source":"POS"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "latte", svc.gotSale.ProductID)
	assert.Equal(t, 2, svc.gotSale.Quantity)
	assert.Contains(t, rec.Body.String(), `"id":7`)
}

func TestRecordSale_Errors(t *testing.T) {
	svc := &fakeForecastService{}
	router := NewRouter(&Services{ForecastService: svc}, nil)

	rec := serve(router, http.MethodPost, "/api/v1/shops/shop-1/sales", `{"product_id":"latte","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodPost, "/api/v1/shops/shop-1/sales", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.err = repository.ErrProductNotFound
	rec = serve(router, http.MethodPost, "/api/v1/shops/shop-1/sales", `{"product_id":"ghost","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	svc.err = repository.ErrProductHasNoRecipe
	rec = serve(router, http.MethodPost, "/api/v1/shops/shop-1/sales", `{"product_id":"water","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.err = service.ErrInvalidInput
	rec = serve(router, http.MethodPost, "/api/v1/shops/shop-1/sales", `{"product_id":"latte","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdjustStock(t *testing.T) {
	svc := &fakeForecastService{}
	router := NewRouter(&Services{ForecastService: svc}, nil)

	rec := serve(router, http.MethodPost, "/api/v1/shops/shop-1/ingredients/milk/adjustments", `{"delta":500,"reason":"delivery"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shop-1", svc.gotShop)
	assert.Equal(t, "milk", svc.gotIngr)
	require.NotNil(t, svc.gotAdjust.Delta)
	assert.Equal(t, 500.0, *svc.gotAdjust.Delta)

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "milk", body["ingredient"]["id"])
	assert.Equal(t, "delivery", body["adjustment"]["reason"])
}

func TestAdjustStock_Errors(t *testing.T) {
	svc := &fakeForecastService{}
	router := NewRouter(&Services{ForecastService: svc}, nil)
	target := "/api/v1/shops/shop-1/ingredients/milk/adjustments"

	rec := serve(router, http.MethodPost, target, `{"delta":"lots","reason":"delivery"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodPost, target, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.err = service.ErrInvalidInput
	rec = serve(router, http.MethodPost, target, `{"delta":1,"reason":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.err = repository.ErrIngredientNotFound
	rec = serve(router, http.MethodPost, "/api/v1/shops/shop-1/ingredients/other-shops-milk/adjustments", `{"delta":1,"reason":"count"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ingredient not found")

	svc.err = errors.New("db down")
	rec = serve(router, http.MethodPost, target, `{"delta":1,"reason":"count"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListSales(t *testing.T) {
	svc := &fakeForecastService{}
	router := NewRouter(&Services{ForecastService: svc}, nil)

	rec := serve(router, http.MethodGet, "/api/v1/shops/shop-1/sales?from=2024-01-01&to=2024-01-31T23:59:59Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), svc.gotFrom)
	assert.True(t, time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC).Equal(svc.gotTo))
}

func TestListSales_BadBounds(t *testing.T) {
	for _, query := range []string{
		"",
		"?from=2024-01-01",
		"?to=2024-01-31",
		"?from=yesterday&to=2024-01-31",
		"?from=2024-01-01&to=2024-13-45",
	} {
		svc := &fakeForecastService{}
		router := NewRouter(&Services{ForecastService: svc}, nil)

		rec := serve(router, http.MethodGet, "/api/v1/shops/shop-1/sales"+query, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		assert.Empty(t, svc.gotShop, query)
	}
}

func TestInvalidateForecast(t *testing.T) {
	svc := &fakeForecastService{}
	router := NewRouter(&Services{ForecastService: svc}, nil)

	rec := serve(router, http.MethodDelete, "/api/v1/shops/shop-1/forecast/cache", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "shop-1", svc.invalidated)
}

func TestHealthAndMetrics(t *testing.T) {
	router := NewRouter(nil, []string{"*"})

	rec := serve(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stockcast_http_requests_total")
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, allowAll := normalizeAllowedOrigins([]string{"https://a.example, https://b.example", " "})
	assert.False(t, allowAll)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, origins)

	_, allowAll = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, allowAll)
}
