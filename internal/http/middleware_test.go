package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/attendant-coordinator/internal/application"
)

type sessionValidatorStub struct {
	principal application.Principal
	err       error
}

func (s *sessionValidatorStub) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	if s.err != nil {
		return application.Principal{}, s.err
	}
	return s.principal, nil
}

func TestRequireSession_MissingToken(t *testing.T) {
	t.Parallel()

	middleware := RequireSession(&sessionValidatorStub{}, nil)
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireSession_ExpiredSession(t *testing.T) {
	t.Parallel()

	middleware := RequireSession(&sessionValidatorStub{err: application.ErrSessionExpired}, nil)
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	resp := decodeErrorResponse(t, rec)
	if resp.ErrorCode != "AUTH_SESSION_EXPIRED" {
		t.Errorf("expected AUTH_SESSION_EXPIRED, got %q", resp.ErrorCode)
	}
}

func TestRequireSession_StoresPrincipal(t *testing.T) {
	t.Parallel()

	validator := &sessionValidatorStub{principal: application.Principal{UserID: "user-1", Role: application.RoleOverseer}}
	middleware := RequireSession(validator, nil)

	var seen application.Principal
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen.UserID != "user-1" || seen.Role != application.RoleOverseer {
		t.Fatalf("unexpected principal %+v", seen)
	}
}

func TestRequireSession_CookieTokenAccepted(t *testing.T) {
	t.Parallel()

	validator := &sessionValidatorStub{principal: application.Principal{UserID: "user-1", Role: application.RoleAttendant}}
	middleware := RequireSession(validator, nil)
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_BelowMinimumRejected(t *testing.T) {
	t.Parallel()

	middleware := RequireRole(application.RoleAdmin, nil)
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	ctx := ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1", Role: application.RoleOverseer})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req.WithContext(ctx))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	resp := decodeErrorResponse(t, rec)
	if resp.ErrorCode != "AUTH_UNAUTHORIZED" {
		t.Errorf("expected AUTH_UNAUTHORIZED, got %q", resp.ErrorCode)
	}
}

func TestRequireRole_AtOrAboveMinimumAllowed(t *testing.T) {
	t.Parallel()

	middleware := RequireRole(application.RoleKeyman, nil)
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, role := range []application.Role{application.RoleKeyman, application.RoleOverseer, application.RoleAdmin} {
		req := httptest.NewRequest(http.MethodPost, "/api/counts/count-1/positions", nil)
		ctx := ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1", Role: role})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req.WithContext(ctx))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for role %s, got %d", role, rec.Code)
		}
	}
}

func TestRouter_PublicRoutesBypassSessionCheck(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterConfig{
		Auth:     NewAuthHandler(&authServiceStub{authErr: application.ErrInvalidCredentials}, nil),
		Users:    NewUserHandler(&userServiceStub{}, nil),
		Sessions: &sessionValidatorStub{err: application.ErrUnauthorized},
	})

	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// 400 for the empty body, not 401 from the session middleware.
	if rec.Code == http.StatusNotFound {
		t.Fatalf("expected /sessions to be routed, got 404")
	}
}

func TestRouter_APIRequiresSession(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterConfig{
		Events:   NewEventHandler(nil, nil, nil),
		Sessions: &sessionValidatorStub{err: application.ErrUnauthorized},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRouter_AdminRoutesRequireAdminRole(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterConfig{
		Users:    NewUserHandler(&userServiceStub{}, nil),
		Sessions: &sessionValidatorStub{principal: application.Principal{UserID: "user-1", Role: application.RoleOverseer}},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-admin, got %d", rec.Code)
	}
}
