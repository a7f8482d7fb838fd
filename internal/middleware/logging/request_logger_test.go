package loggingmw

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/accounts/internal/logging"
)

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var last map[string]any
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		last = rec
	}
	require.NotNil(t, last, "no log records")
	return last
}

func TestRequestLogger_Success(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	e := echo.New()
	e.Use(echomw.RequestID())
	e.Use(RequestLogger(logging.NewWithWriter(&buf, "debug")))
	e.GET("/account/:id", func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("inside handler")
		return c.String(http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/account/42", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	out := lastRecord(t, &buf)
	assert.Equal(t, "request completed", out["msg"])
	assert.Equal(t, "INFO", out["level"])
	assert.Equal(t, "/account/:id", out["path"])
	assert.Equal(t, "/account/42", out["url"])
	assert.EqualValues(t, 200, out["status"])
	assert.NotEmpty(t, out["request_id"])
	assert.Contains(t, buf.String(), `"msg":"inside handler"`)
}

func TestRequestLogger_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		level  string
	}{
		{name: "client error", err: echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized"), status: 401, level: "WARN"},
		{name: "server error", err: errors.New("boom"), status: 500, level: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			e := echo.New()
			e.Use(RequestLogger(logging.NewWithWriter(&buf, "info")))
			e.GET("/", func(echo.Context) error { return tt.err })

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.status, rec.Code)

			out := lastRecord(t, &buf)
			assert.Equal(t, tt.level, out["level"])
			assert.EqualValues(t, tt.status, out["status"])
		})
	}
}
