package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexcourt/config"
	deliverycontext "lexcourt/internal/delivery/context"
	"lexcourt/internal/domain/constants"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(t *testing.T, mw echo.MiddlewareFunc, req *http.Request, h echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, mw(h)(c))

	return rec
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantSame bool
	}{
		{name: "reuses client id", header: "abc-123", wantSame: true},
		{name: "generates when missing", header: ""},
		{name: "rejects spaces", header: "abc 123"},
		{name: "rejects oversize", header: strings.Repeat("a", maxRequestIDLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(deliverycontext.HeaderXRequestID, tt.header)
			}

			var fromCtx string
			var logger *slog.Logger
			rec := serve(t, NewRequestIDMiddleware(discardLogger()).Process, req, func(c echo.Context) error {
				fromCtx = deliverycontext.GetRequestIDFromContext(c.Request().Context())
				logger = deliverycontext.GetLogger(c.Request().Context())

				return nil
			})

			got := rec.Header().Get(deliverycontext.HeaderXRequestID)
			assert.Equal(t, got, fromCtx)
			assert.NotNil(t, logger)
			if tt.wantSame {
				assert.Equal(t, tt.header, got)
			} else {
				assert.NotEqual(t, tt.header, got)
				assert.NotEmpty(t, got)
			}
		})
	}
}

func TestClientMiddleware_IssuesCookie(t *testing.T) {
	cfg := &config.Config{}
	cfg.HTTP.SecureCookies = true

	var clientID string
	rec := serve(t, NewClientMiddleware(cfg).Process, httptest.NewRequest(http.MethodGet, "/", nil), func(c echo.Context) error {
		clientID = deliverycontext.GetClientID(c)
		assert.Equal(t, clientID, deliverycontext.GetClientIDFromContext(c.Request().Context()))

		return nil
	})

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, constants.ClientCookieName, cookies[0].Name)
	assert.Equal(t, clientID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)

	_, err := ksuid.Parse(clientID)
	assert.NoError(t, err)
}

func TestClientMiddleware_ReusesValidCookie(t *testing.T) {
	existing := ksuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: constants.ClientCookieName, Value: existing})

	var clientID string
	rec := serve(t, NewClientMiddleware(&config.Config{}).Process, req, func(c echo.Context) error {
		clientID = deliverycontext.GetClientID(c)

		return nil
	})

	assert.Equal(t, existing, clientID)
	assert.Empty(t, rec.Result().Cookies())
}

func TestClientMiddleware_ReplacesForgedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: constants.ClientCookieName, Value: "not-a-ksuid"})

	var clientID string
	rec := serve(t, NewClientMiddleware(&config.Config{}).Process, req, func(c echo.Context) error {
		clientID = deliverycontext.GetClientID(c)

		return nil
	})

	assert.NotEqual(t, "not-a-ksuid", clientID)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		debug   bool
		path    string
		status  int
		wantLog bool
	}{
		{name: "quiet on success", status: http.StatusOK, path: "/cases"},
		{name: "logs client errors", status: http.StatusNotFound, path: "/cases", wantLog: true},
		{name: "debug logs success", debug: true, status: http.StatusOK, path: "/cases", wantLog: true},
		{name: "debug skips health", debug: true, status: http.StatusOK, path: "/health"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cfg := &config.Config{}
			cfg.Env.Debug = tt.debug
			mw := NewLoggerMiddleware(slog.New(slog.NewJSONHandler(&buf, nil)), cfg, "/health")

			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, tt.path, nil), rec)
			c.SetPath(tt.path)

			err := mw.Handle(func(c echo.Context) error {
				return c.NoContent(tt.status)
			})(c)
			require.NoError(t, err)

			if tt.wantLog {
				assert.Contains(t, buf.String(), `"route":"`+tt.path+`"`)
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestLoggerMiddleware_UsesHTTPErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	mw := NewLoggerMiddleware(slog.New(slog.NewJSONHandler(&buf, nil)), &config.Config{})

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	err := mw.Handle(func(echo.Context) error {
		return echo.NewHTTPError(http.StatusForbidden)
	})(c)

	assert.Error(t, err)
	assert.Contains(t, buf.String(), `"status":403`)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}
