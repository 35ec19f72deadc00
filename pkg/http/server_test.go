package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listRequest struct {
	Limit int    `query:"limit" default:"50" validate:"gte=1"`
	Sort  string `query:"sort" default:"score" validate:"oneof=score volume"`
}

type testHandler struct{}

func (testHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/items", func(c echo.Context) error {
		req := &listRequest{}
		if verr := ReadAndValidateRequest(c, req); verr != nil {
			return BadRequestResponse(c, verr)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/down", func(c echo.Context) error {
		return AppErrorResponse(c, ServiceUnavailableError("store down").WithError(errors.New("dial tcp")))
	})
	e.GET("/boom", func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("plain"))
	})
	e.GET("/panic", func(c echo.Context) error {
		panic("kaboom")
	})
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer([]Handler{testHandler{}}, WithRegistry(prometheus.NewRegistry()))
}

func do(t *testing.T, s *Server, method, target string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var body APIResponse
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestReadAndValidateRequestDefaults(t *testing.T) {
	s := newTestServer(t)
	rec, body := do(t, s, http.MethodGet, "/items")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, body.Status)
	data := body.Data.(map[string]interface{})
	assert.EqualValues(t, 50, data["Limit"])
	assert.Equal(t, "score", data["Sort"])
}

func TestReadAndValidateRequestRejects(t *testing.T) {
	s := newTestServer(t)
	rec, body := do(t, s, http.MethodGet, "/items?limit=-3")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errs := body.Data.([]interface{})
	require.Len(t, errs, 1)
	first := errs[0].(map[string]interface{})
	assert.Equal(t, "ERR_GTE", first["code"])
	assert.Equal(t, "limit", first["field"])
}

func TestReadAndValidateRequestBindError(t *testing.T) {
	s := newTestServer(t)
	rec, body := do(t, s, http.MethodGet, "/items?limit=abc")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errs := body.Data.([]interface{})
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_UNKNOWN", errs[0].(map[string]interface{})["code"])
}

func TestAppErrorResponseStatus(t *testing.T) {
	s := newTestServer(t)

	rec, body := do(t, s, http.MethodGet, "/down")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, http.StatusServiceUnavailable, body.Status)
	assert.NotContains(t, rec.Body.String(), "dial tcp")
	assert.Contains(t, rec.Body.String(), CodeServiceUnavailable)

	rec, _ = do(t, s, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	s := newTestServer(t)
	rec, body := do(t, s, http.MethodGet, "/panic")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, http.StatusInternalServerError, body.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodGet, "/items")

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/items",status="200"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/items", nil)
	req.Header.Set("Origin", "https://solpulse.app")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://solpulse.app", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Warning")
}
