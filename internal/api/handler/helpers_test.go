package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/finaidhub/hub/internal/api/middleware"
	"github.com/finaidhub/hub/internal/core/domain"
	"github.com/finaidhub/hub/internal/core/ports"
)

type stubAuthService struct {
	loginFn  func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error)
	logoutFn func(ctx context.Context, p domain.Principal) error
}

func (s *stubAuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	return s.loginFn(ctx, in)
}

func (s *stubAuthService) Logout(ctx context.Context, p domain.Principal) error {
	return s.logoutFn(ctx, p)
}

type stubUserService struct {
	inviteFn    func(ctx context.Context, actor domain.Principal, in ports.InviteInput) (*domain.Identity, error)
	listFn      func(ctx context.Context, actor domain.Principal, f domain.IdentityFilter) (*ports.ListUsersResult, error)
	getFn       func(ctx context.Context, actor domain.Principal, id string) (*domain.Identity, error)
	setStatusFn func(ctx context.Context, actor domain.Principal, id string, s domain.Status) (*domain.Identity, error)
	changePwFn  func(ctx context.Context, actor domain.Principal, current, next string) error
}

func (s *stubUserService) Invite(ctx context.Context, actor domain.Principal, in ports.InviteInput) (*domain.Identity, error) {
	return s.inviteFn(ctx, actor, in)
}

func (s *stubUserService) List(ctx context.Context, actor domain.Principal, f domain.IdentityFilter) (*ports.ListUsersResult, error) {
	return s.listFn(ctx, actor, f)
}

func (s *stubUserService) Get(ctx context.Context, actor domain.Principal, id string) (*domain.Identity, error) {
	return s.getFn(ctx, actor, id)
}

func (s *stubUserService) SetStatus(ctx context.Context, actor domain.Principal, id string, st domain.Status) (*domain.Identity, error) {
	return s.setStatusFn(ctx, actor, id, st)
}

func (s *stubUserService) ChangePassword(ctx context.Context, actor domain.Principal, current, next string) error {
	return s.changePwFn(ctx, actor, current, next)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

// newRequestContext builds a context for method/target with an optional JSON body.
func newRequestContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withPrincipal(c echo.Context, p domain.Principal) {
	c.Set(middleware.KeyPrincipal, p)
	c.Set(middleware.KeyUserID, p.UserID)
	c.Set(middleware.KeyRole, string(p.Role))
}

// serve runs h and renders any returned error the way the API error handler does.
func serve(t *testing.T, h echo.HandlerFunc, c echo.Context) {
	t.Helper()
	if err := h(c); err != nil {
		code, msg, _ := Resolve(err)
		if werr := WriteError(c, code, msg); werr != nil {
			t.Fatalf("write error: %v", werr)
		}
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return resp
}
