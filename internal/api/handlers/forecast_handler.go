package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/andresuchdata/stockcast/internal/repository"
	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ForecastService is what the handler needs from the service layer.
type ForecastService interface {
	GetForecast(ctx context.Context, shopID string, days int) (*forecast.Output, error)
	RecordSale(ctx context.Context, shopID string, sale domain.NewSale) (*domain.RecordedSale, error)
	InvalidateForecast(ctx context.Context, shopID string) error
	AdjustStock(ctx context.Context, shopID, ingredientID string, adj domain.NewAdjustment) (*domain.AdjustedStock, error)
	ListSales(ctx context.Context, shopID string, from, to time.Time) ([]domain.Sale, error)
}

type ForecastHandler struct {
	service ForecastService
}

func NewForecastHandler(service ForecastService) *ForecastHandler {
	return &ForecastHandler{service: service}
}

// parseDays selects 30 only for the exact string "30"; anything else means 7.
func parseDays(c *gin.Context) int {
	if c.DefaultQuery("days", "7") == "30" {
		return forecast.HorizonMonth
	}
	return forecast.HorizonWeek
}

func (h *ForecastHandler) GetForecast(c *gin.Context) {
	shopID := c.Param("shop_id")
	days := parseDays(c)

	out, err := h.service.GetForecast(c.Request.Context(), shopID, days)
	if err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			errorResponse(c, http.StatusNotFound, "Shop not found", err)
			return
		}
		errorResponse(c, http.StatusInternalServerError, "failed to compute forecast", err)
		return
	}

	c.JSON(http.StatusOK, out)
}

func (h *ForecastHandler) RecordSale(c *gin.Context) {
	shopID := c.Param("shop_id")

	var req domain.NewSale
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid sale payload", err)
		return
	}

	recorded, err := h.service.RecordSale(c.Request.Context(), shopID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			errorResponse(c, http.StatusBadRequest, "invalid sale payload", err)
		case errors.Is(err, repository.ErrProductNotFound):
			errorResponse(c, http.StatusNotFound, "Product not found", err)
		case errors.Is(err, repository.ErrProductHasNoRecipe):
			errorResponse(c, http.StatusBadRequest, "Product has no recipe", err)
		default:
			errorResponse(c, http.StatusInternalServerError, "failed to record sale", err)
		}
		return
	}

	c.JSON(http.StatusCreated, recorded)
}

func (h *ForecastHandler) InvalidateForecast(c *gin.Context) {
	shopID := c.Param("shop_id")

	if err := h.service.InvalidateForecast(c.Request.Context(), shopID); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to invalidate forecast cache", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ForecastHandler) AdjustStock(c *gin.Context) {
	shopID := c.Param("shop_id")
	ingredientID := c.Param("ingredient_id")

	var req domain.NewAdjustment
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid adjustment payload", err)
		return
	}

	adjusted, err := h.service.AdjustStock(c.Request.Context(), shopID, ingredientID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			errorResponse(c, http.StatusBadRequest, "invalid adjustment payload", err)
		case errors.Is(err, repository.ErrIngredientNotFound):
			errorResponse(c, http.StatusNotFound, "Ingredient not found", err)
		default:
			errorResponse(c, http.StatusInternalServerError, "failed to adjust stock", err)
		}
		return
	}

	c.JSON(http.StatusOK, adjusted)
}

func (h *ForecastHandler) ListSales(c *gin.Context) {
	shopID := c.Param("shop_id")

	rawFrom, rawTo := c.Query("from"), c.Query("to")
	if rawFrom == "" || rawTo == "" {
		errorResponse(c, http.StatusBadRequest, "from and to are required", errors.New("missing from or to"))
		return
	}
	from, err := parseTimeBound(rawFrom)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid from or to date", err)
		return
	}
	to, err := parseTimeBound(rawTo)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid from or to date", err)
		return
	}

	sales, err := h.service.ListSales(c.Request.Context(), shopID, from, to)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to list sales", err)
		return
	}
	if sales == nil {
		sales = []domain.Sale{}
	}

	c.JSON(http.StatusOK, sales)
}

// parseTimeBound accepts an RFC 3339 timestamp or a bare date, read as UTC midnight.
func parseTimeBound(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", value)
}

func errorResponse(c *gin.Context, statusCode int, message string, err error) {
	event := log.Warn()
	if statusCode >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Str("path", c.FullPath()).Int("status", statusCode).Msg(message)

	c.JSON(statusCode, gin.H{"error": message, "details": err.Error()})
}
