package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	cases := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "info"},
		{http.StatusUnauthorized, "warn"},
		{http.StatusInternalServerError, "error"},
	}

	for _, tc := range cases {
		var buf bytes.Buffer
		e := echo.New()
		e.Use(RequestLogger(zerolog.New(&buf)))
		e.GET("/probe", func(c echo.Context) error {
			return c.NoContent(tc.status)
		})

		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		line := strings.TrimSpace(buf.String())
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("status %d: invalid log line %q: %v", tc.status, line, err)
		}
		if entry["level"] != tc.level || entry["uri"] != "/probe" || entry["status"] != float64(tc.status) {
			t.Fatalf("status %d: unexpected entry %+v", tc.status, entry)
		}
	}
}
