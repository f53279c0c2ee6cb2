package presenter

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/memorialnav/candle-ledger"
	"github.com/memorialnav/candle-ledger/internal/domain"
)

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func BadRequest(c echo.Context, err error) error {
	logger(c).Debug().Err(err).Msg("bad request")
	return c.JSON(http.StatusBadRequest, candle.ErrorResponse{Error: err.Error()})
}

func BadRequestMessage(c echo.Context, msg string) error {
	logger(c).Debug().Str("reason", msg).Msg("bad request")
	return c.JSON(http.StatusBadRequest, candle.ErrorResponse{Error: msg})
}

func NotFound(c echo.Context, msg string) error {
	logger(c).Debug().Str("reason", msg).Msg("not found")
	return c.JSON(http.StatusNotFound, candle.ErrorResponse{Error: msg})
}

func Unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, candle.ErrorResponse{Error: msg})
}

func Forbidden(c echo.Context, msg string) error {
	return c.JSON(http.StatusForbidden, candle.ErrorResponse{Error: msg})
}

// RateLimited answers 403 with the wait in seconds, both in the body and
// in the Retry-After header.
func RateLimited(c echo.Context, litAt time.Time, retryAfter time.Duration) error {
	secs := candle.RetryAfterSeconds(retryAfter)
	c.Response().Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	return c.JSON(http.StatusForbidden, candle.ErrorResponse{
		Error:      "a candle was already lit on this grave, try again later",
		RetryAfter: &secs,
		LitAt:      &litAt,
	})
}

// InternalError logs err and hides it from the caller.
func InternalError(c echo.Context, err error) error {
	logger(c).Error().Stack().Err(err).Msg("internal error")
	return c.JSON(http.StatusInternalServerError, candle.ErrorResponse{Error: "internal server error"})
}

// Error maps a usecase error onto its HTTP response.
func Error(c echo.Context, err error) error {
	var rl domain.RateLimitedError
	var nf domain.NotFoundError
	switch {
	case errors.As(err, &rl):
		return RateLimited(c, rl.LitAt, rl.RetryAfter)
	case errors.Is(err, domain.ErrInvalidCategory):
		return BadRequestMessage(c, "invalid grave type")
	case errors.Is(err, domain.ErrInvalidRequest):
		return BadRequest(c, err)
	case errors.As(err, &nf):
		return NotFound(c, nf.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return Unauthorized(c, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		return Forbidden(c, "forbidden")
	}
	return InternalError(c, err)
}

func logger(c echo.Context) *zerolog.Logger {
	return zerolog.Ctx(c.Request().Context())
}
