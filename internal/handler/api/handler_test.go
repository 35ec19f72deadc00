package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SolPulse/internal/domain/models"
	domrepo "SolPulse/internal/domain/repository"
	"SolPulse/internal/service/live"
	"SolPulse/internal/service/ratelimit"
	"SolPulse/internal/services/scoring"
	"SolPulse/internal/usecase"
	xhttp "SolPulse/pkg/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)

type fakeRankings struct {
	res       models.TopMemeResponse
	err       error
	lastLimit int
}

func (f *fakeRankings) TopMeme(_ context.Context, limit int) (models.TopMemeResponse, error) {
	f.lastLimit = limit
	return f.res, f.err
}

type fakeRefresher struct {
	res        models.RefreshResponse
	err        error
	lastReason string
}

func (f *fakeRefresher) Refresh(_ context.Context, reason string) (models.RefreshResponse, error) {
	f.lastReason = reason
	return f.res, f.err
}

type fakeTokens struct {
	clock   models.TokenClock
	details models.TokenDetails
	err     error
}

func (f *fakeTokens) Clock(context.Context, string) (models.TokenClock, error) {
	return f.clock, f.err
}

func (f *fakeTokens) Details(context.Context, string) (models.TokenDetails, error) {
	return f.details, f.err
}

type fakeNetwork struct {
	pulse models.NetworkPulse
	stats models.NetworkStats
	err   error
}

func (f *fakeNetwork) Pulse(context.Context) (models.NetworkPulse, error) { return f.pulse, f.err }

func (f *fakeNetwork) Stats(context.Context) (models.NetworkStats, error) { return f.stats, f.err }

type fakeHealth struct{ err error }

func (f fakeHealth) Health(context.Context) error { return f.err }

type fakeLatest struct {
	snap models.RankingSnapshot
	err  error
}

func (f fakeLatest) LatestRanking(context.Context) (models.RankingSnapshot, error) {
	return f.snap, f.err
}

func serve(handlers ...xhttp.Handler) *echo.Echo {
	e := echo.New()
	for _, h := range handlers {
		h.RegisterRoutes(e)
	}
	return e
}

func call(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, xhttp.APIResponse) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var resp xhttp.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func firstErrorCode(t *testing.T, resp xhttp.APIResponse) string {
	t.Helper()
	errs, ok := resp.Data.([]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	require.NotEmpty(t, errs)
	return errs[0].(map[string]interface{})["code"].(string)
}

func TestTopMeme(t *testing.T) {
	r := &fakeRankings{res: models.TopMemeResponse{
		Rankings:    []models.ScoredToken{{Rank: 1, TokenAddress: "bonk", Score: 71.25}},
		LastUpdated: t0,
	}}
	e := serve(NewRankingsHandler(nil, r, &fakeRefresher{}, nil))

	rec, resp := call(t, e, http.MethodGet, "/api/v1/top-meme?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, r.lastLimit)
	data := resp.Data.(map[string]interface{})
	rankings := data["rankings"].([]interface{})
	require.Len(t, rankings, 1)
	assert.Equal(t, "bonk", rankings[0].(map[string]interface{})["token_address"])
	assert.Equal(t, false, data["cached"])
	assert.NotContains(t, data, "stale")
	assert.Empty(t, rec.Header().Get("Warning"))
}

func TestTopMemeDefaultLimit(t *testing.T) {
	for _, target := range []string{"/api/v1/top-meme", "/api/v1/top-meme?limit=0"} {
		r := &fakeRankings{}
		e := serve(NewRankingsHandler(nil, r, &fakeRefresher{}, nil))

		rec, _ := call(t, e, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.Equal(t, 50, r.lastLimit, target)
	}
}

func TestTopMemeRejectsBadLimit(t *testing.T) {
	e := serve(NewRankingsHandler(nil, &fakeRankings{}, &fakeRefresher{}, nil))

	rec, resp := call(t, e, http.MethodGet, "/api/v1/top-meme?limit=-5", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ERR_GTE", firstErrorCode(t, resp))

	rec, _ = call(t, e, http.MethodGet, "/api/v1/top-meme?limit=many", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTopMemeStale(t *testing.T) {
	r := &fakeRankings{res: models.TopMemeResponse{LastUpdated: t0, Cached: true, Stale: true}}
	e := serve(NewRankingsHandler(nil, r, &fakeRefresher{}, nil))

	rec, resp := call(t, e, http.MethodGet, "/api/v1/top-meme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp.Data.(map[string]interface{})["stale"])
	assert.NotEmpty(t, rec.Header().Get("Warning"))
}

func TestTopMemeErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"no stale copy", fmt.Errorf("%w: %w", usecase.ErrRankingsUnavailable, scoring.ErrMetricsStoreUnavailable), http.StatusServiceUnavailable},
		{"store down", scoring.ErrMetricsStoreUnavailable, http.StatusServiceUnavailable},
		{"unexpected", errors.New("bug"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := serve(NewRankingsHandler(nil, &fakeRankings{err: tc.err}, &fakeRefresher{}, nil))
			rec, resp := call(t, e, http.MethodGet, "/api/v1/top-meme", "")
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.status, resp.Status)
		})
	}
}

func TestRefresh(t *testing.T) {
	f := &fakeRefresher{res: models.RefreshResponse{Queued: true}}
	e := serve(NewRankingsHandler(nil, &fakeRankings{}, f, ratelimit.New(5, 1)))

	rec, resp := call(t, e, http.MethodPost, "/api/v1/refresh", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "manual", f.lastReason)
	assert.Equal(t, true, resp.Data.(map[string]interface{})["queued"])

	rec, _ = call(t, e, http.MethodPost, "/api/v1/refresh", `{"reason":"listing"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "listing", f.lastReason)
}

func TestRefreshRateLimited(t *testing.T) {
	now := t0
	limiter := ratelimit.New(1, 0.1, ratelimit.WithClock(func() time.Time { return now }))
	f := &fakeRefresher{res: models.RefreshResponse{Queued: true}}
	e := serve(NewRankingsHandler(nil, &fakeRankings{}, f, limiter))

	rec, _ := call(t, e, http.MethodPost, "/api/v1/refresh", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec, resp := call(t, e, http.MethodPost, "/api/v1/refresh", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, xhttp.CodeTooManyRequests, firstErrorCode(t, resp))

	now = now.Add(10 * time.Second)
	rec, _ = call(t, e, http.MethodPost, "/api/v1/refresh", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestRefreshFailure(t *testing.T) {
	f := &fakeRefresher{err: errors.New("redis down")}
	e := serve(NewRankingsHandler(nil, &fakeRankings{}, f, nil))

	rec, _ := call(t, e, http.MethodPost, "/api/v1/refresh", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTokenClock(t *testing.T) {
	tk := &fakeTokens{clock: models.TokenClock{TokenAddress: "bonk", PeakHour: "10:00"}}
	e := serve(NewTokensHandler(nil, tk))

	rec, resp := call(t, e, http.MethodGet, "/api/v1/token/bonk/clock", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "bonk", data["token_address"])
	assert.Equal(t, "10:00", data["peak_hour"])
}

func TestTokenDetails(t *testing.T) {
	tk := &fakeTokens{details: models.TokenDetails{
		Token:   models.TokenMetadata{TokenAddress: "bonk", Symbol: "BONK"},
		Metrics: models.TokenMetrics{Volume24h: 700},
	}}
	e := serve(NewTokensHandler(nil, tk))

	rec, resp := call(t, e, http.MethodGet, "/api/v1/token/bonk/details", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "BONK", data["token"].(map[string]interface{})["symbol"])
	assert.EqualValues(t, 700, data["metrics"].(map[string]interface{})["volume_24h_usd"])
}

func TestTokenErrors(t *testing.T) {
	e := serve(NewTokensHandler(nil, &fakeTokens{err: fmt.Errorf("token x: %w", domrepo.ErrNotFound)}))
	for _, path := range []string{"/api/v1/token/unknown/clock", "/api/v1/token/unknown/details"} {
		rec, resp := call(t, e, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, xhttp.CodeNotFound, firstErrorCode(t, resp), path)
	}

	rec, _ := call(t, e, http.MethodGet, "/api/v1/token/not-alnum!/clock", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	e = serve(NewTokensHandler(nil, &fakeTokens{err: fmt.Errorf("get token samples: %w", errors.New("timeout"))}))
	rec, _ = call(t, e, http.MethodGet, "/api/v1/token/bonk/clock", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNetworkPulse(t *testing.T) {
	nw := &fakeNetwork{pulse: models.NetworkPulse{
		HourlyStats: []models.NetworkHourlyStat{{Hour: t0, TotalTransactions: 900}},
		PeakHour:    models.NetworkPeakHour{Hour: t0, HourLabel: "12:00", TotalTransactions: 900},
		Summary:     models.NetworkSummary{TotalTransactions24h: 900, AvgUniqueWallets: 12},
	}}
	e := serve(NewNetworkHandler(nil, nw))

	rec, resp := call(t, e, http.MethodGet, "/api/v1/network/pulse", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.Len(t, data["hourly_stats"], 1)
	assert.Equal(t, "12:00", data["peak_hour"].(map[string]interface{})["hour_label"])
	assert.EqualValues(t, 12, data["summary"].(map[string]interface{})["avg_unique_wallets"])
}

func TestNetworkStats(t *testing.T) {
	nw := &fakeNetwork{stats: models.NetworkStats{Timestamp: t0, TransactionsLastHour: 7200, EstimatedTPS: 2}}
	e := serve(NewNetworkHandler(nil, nw))

	rec, resp := call(t, e, http.MethodGet, "/api/v1/network/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.EqualValues(t, 7200, data["transactions_last_hour"])
	assert.EqualValues(t, 2, data["estimated_tps"])
}

func TestNetworkErrors(t *testing.T) {
	e := serve(NewNetworkHandler(nil, &fakeNetwork{err: fmt.Errorf("network pulse: %w", domrepo.ErrNotFound)}))
	for _, path := range []string{"/api/v1/network/pulse", "/api/v1/network/stats"} {
		rec, resp := call(t, e, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, xhttp.CodeNotFound, firstErrorCode(t, resp), path)
		assert.Contains(t, rec.Body.String(), "no network data available", path)
	}

	e = serve(NewNetworkHandler(nil, &fakeNetwork{err: errors.New("connection refused")}))
	rec, _ := call(t, e, http.MethodGet, "/api/v1/network/stats", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec, _ := call(t, serve(NewHealthHandler(nil, fakeHealth{})), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp := call(t, serve(NewHealthHandler(nil, fakeHealth{err: errors.New("no route to host")})), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, xhttp.CodeServiceUnavailable, firstErrorCode(t, resp))
	assert.NotContains(t, rec.Body.String(), "no route to host")
}

func TestLiveSendsLatestSnapshotFirst(t *testing.T) {
	hub := live.NewHub(nil, time.Minute)
	t.Cleanup(hub.Close)
	latest := fakeLatest{snap: models.RankingSnapshot{
		RankingTime: t0,
		Rankings:    []models.ScoredToken{{Rank: 1, TokenAddress: "bonk"}},
	}}
	srv := httptest.NewServer(serve(NewLiveHandler(nil, hub, latest)))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws/rankings", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg struct {
		Type    string                 `json:"type"`
		Payload models.RankingSnapshot `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, live.TypeRankingsUpdated, msg.Type)
	require.Len(t, msg.Payload.Rankings, 1)
	assert.Equal(t, "bonk", msg.Payload.Rankings[0].TokenAddress)
}

func TestLiveWithoutStoredSnapshot(t *testing.T) {
	h := NewLiveHandler(nil, live.NewHub(nil, time.Minute), fakeLatest{err: domrepo.ErrNotFound})
	assert.Nil(t, h.initial(context.Background()))

	h = NewLiveHandler(nil, live.NewHub(nil, time.Minute), fakeLatest{err: errors.New("db down")})
	assert.Nil(t, h.initial(context.Background()))
}
