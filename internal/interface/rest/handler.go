package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/memorialnav/candle-ledger"
	"github.com/memorialnav/candle-ledger/internal/domain"
	"github.com/memorialnav/candle-ledger/internal/interface/rest/middleware"
	"github.com/memorialnav/candle-ledger/internal/interface/rest/presenter"
	"github.com/memorialnav/candle-ledger/internal/usecase"
)

type HealthChecker interface {
	Check(ctx context.Context) error
}

type Handler struct {
	candle       *usecase.CandleUsecase
	health       HealthChecker
	authRequired bool
}

func NewHandler(
	candle *usecase.CandleUsecase,
	health HealthChecker,
	authRequired bool,
) *Handler {
	return &Handler{
		candle:       candle,
		health:       health,
		authRequired: authRequired,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/health", h.handleHealth)

	candles := api.Group("/candles")
	candles.POST("/light", h.handleLight)
	candles.GET("/grave/:graveId", h.handleListByGrave)
	candles.GET("/candle-count/:graveType/:graveId", h.handleCount)
	candles.GET("/status/:graveType/:graveId/:userId", h.handleStatus)
}

func (h *Handler) handleLight(c echo.Context) error {
	ctx := c.Request().Context()

	var req candle.LightRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	if h.authRequired {
		requester, ok := middleware.RequesterID(ctx)
		if !ok {
			return presenter.Unauthorized(c, "authentication required")
		}
		if requester != req.UserID {
			return presenter.Forbidden(c, "userId does not match the authenticated user")
		}
	}

	result, err := h.candle.Light(ctx, usecase.LightInput{
		GraveID:    req.GraveID,
		GraveType:  req.GraveType,
		UserID:     req.UserID,
		UserName:   req.UserName,
		UserAvatar: req.UserAvatar,
	})
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, candle.LightResponse{
		Success:     true,
		Candles:     toWireCandles(result.Candles),
		CandleCount: result.CandleCount,
	})
}

func (h *Handler) handleListByGrave(c echo.Context) error {
	ctx := c.Request().Context()

	candles, err := h.candle.ListByGrave(ctx, c.Param("graveId"))
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, candle.CandlesResponse{Candles: toWireCandles(candles)})
}

func (h *Handler) handleCount(c echo.Context) error {
	ctx := c.Request().Context()

	count, err := h.candle.Count(ctx, c.Param("graveType"), c.Param("graveId"))
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, candle.CandleCountResponse{CandleCount: count})
}

func (h *Handler) handleStatus(c echo.Context) error {
	ctx := c.Request().Context()

	status, err := h.candle.Status(ctx, c.Param("graveType"), c.Param("graveId"), c.Param("userId"))
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, candle.StatusResponse{
		State:      string(status.State),
		LitAt:      status.LitAt,
		RetryAfter: candle.RetryAfterSeconds(status.RetryAfter),
	})
}

func (h *Handler) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.health.Check(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, candle.HealthResponse{Status: "unavailable", Error: err.Error()})
	}
	return presenter.OK(c, candle.HealthResponse{Status: "ok"})
}

func toWireCandles(candles []domain.Candle) []candle.Candle {
	out := make([]candle.Candle, 0, len(candles))
	for _, c := range candles {
		out = append(out, candle.Candle{
			GraveID:    c.GraveID,
			GraveType:  c.GraveType.String(),
			UserID:     c.UserID,
			UserName:   c.UserName,
			UserAvatar: c.UserAvatar,
			LitAt:      c.LitAt,
		})
	}
	return out
}
