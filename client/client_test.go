package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorialnav/candle-ledger"
)

func TestLightRemembersCooldown(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/api/candles/light", r.URL.Path)
		assert.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))

		var req candle.LightRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(candle.LightResponse{
			Success:     true,
			Candles:     []candle.Candle{{GraveID: req.GraveID, UserID: req.UserID, LitAt: time.Now()}},
			CandleCount: 1,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, Options{Token: "tkn"})
	req := candle.LightRequest{GraveID: "g1", GraveType: "adult", UserID: "u1", UserName: "U"}

	res, err := c.Light(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.CandleCount)

	_, err = c.Light(context.Background(), req)
	require.True(t, errors.Is(err, ErrCoolingDown))
	var cd CoolingDownError
	require.True(t, errors.As(err, &cd))
	assert.InDelta(t, float64(24*time.Hour), float64(cd.Remaining), float64(time.Minute))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second attempt never reaches the server")

	// other users are unaffected
	req.UserID = "u2"
	_, err = c.Light(context.Background(), req)
	require.NoError(t, err)
}

func TestLightRateLimitedByServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		retry := int64(600)
		w.Header().Set("Retry-After", "600")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(candle.ErrorResponse{Error: "cooldown", RetryAfter: &retry})
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})
	_, err := c.Light(context.Background(), candle.LightRequest{GraveID: "g1", UserID: "u1"})
	var cd CoolingDownError
	require.True(t, errors.As(err, &cd))
	assert.Equal(t, 10*time.Minute, cd.Remaining)
	assert.Greater(t, c.Remaining("g1", "u1"), 9*time.Minute)
}

func TestCountAndList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/candles/candle-count/bone/b1":
			_, _ = w.Write([]byte(`{"CandleCount":12}`))
		case "/api/candles/grave/b1":
			_, _ = w.Write([]byte(`{"candles":[{"graveId":"b1","userId":"u1","userName":"U","graveType":"bone","litAt":"2024-11-01T08:00:00Z"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"grave not found"}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", Options{})
	n, err := c.Count(context.Background(), "bone", "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	list, err := c.ListByGrave(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "u1", list[0].UserID)

	_, err = c.Count(context.Background(), "adult", "zz")
	var apiErr APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "grave not found", apiErr.Message)
}
