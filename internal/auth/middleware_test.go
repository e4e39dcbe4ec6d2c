package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthMiddleware(t *testing.T) {
	secret := []byte("test-secret")
	mw := NewMiddleware(secret, NewDefaultPolicy([]string{"/healthz"}, nil))
	var seen Identity
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		method string
		path   string
		role   Role
		want   int
	}{
		{name: "no token", method: http.MethodPost, path: "/api/v1/projects/p-1/debtor-imports", want: http.StatusUnauthorized},
		{name: "exempt", method: http.MethodGet, path: "/healthz", want: http.StatusOK},
		{name: "viewer cannot import", method: http.MethodPost, path: "/api/v1/projects/p-1/debtor-imports", role: RoleViewer, want: http.StatusForbidden},
		{name: "accountant cannot import", method: http.MethodPost, path: "/api/v1/projects/p-1/debtor-imports", role: RoleAccountant, want: http.StatusForbidden},
		{name: "accountant validates", method: http.MethodPost, path: "/api/v1/projects/p-1/debtor-imports/validate", role: RoleAccountant, want: http.StatusOK},
		{name: "viewer cannot validate", method: http.MethodPost, path: "/api/v1/projects/p-1/debtor-imports/validate", role: RoleViewer, want: http.StatusForbidden},
		{name: "admin imports", method: http.MethodPost, path: "/api/v1/projects/p-1/debtor-imports", role: RoleAdmin, want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.role != "" {
				token, err := IssueJWT(secret, "tenant-a", "user-1", tc.role, time.Hour)
				if err != nil {
					t.Fatalf("issue token: %v", err)
				}
				req.Header.Set("Authorization", "Bearer "+token)
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			if resp.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.Code)
			}
		})
	}
	if seen.TenantID != "tenant-a" || seen.Subject != "user-1" || seen.Role != RoleAdmin {
		t.Fatalf("identity not propagated: %+v", seen)
	}
}

func TestParseJWTRejectsBadTokens(t *testing.T) {
	secret := []byte("test-secret")
	expired, err := IssueJWT(secret, "tenant-a", "user-1", RoleAdmin, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseJWT(expired, secret); err == nil {
		t.Fatalf("expected expired token to fail")
	}
	other, err := IssueJWT([]byte("other-secret"), "tenant-a", "user-1", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseJWT(other, secret); err == nil {
		t.Fatalf("expected signature mismatch to fail")
	}
	noTenant, err := IssueJWT(secret, "", "user-1", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseJWT(noTenant, secret); err == nil {
		t.Fatalf("expected missing tenant to fail")
	}
}

func TestNormalizeRole(t *testing.T) {
	if role, ok := NormalizeRole(" Admin "); !ok || role != RoleAdmin {
		t.Fatalf("expected admin, got %q %v", role, ok)
	}
	if _, ok := NormalizeRole("operator"); ok {
		t.Fatalf("operator is not a back-office role")
	}
	if !RoleAtLeast(RoleAdmin, RoleAccountant) || RoleAtLeast(RoleViewer, RoleAccountant) {
		t.Fatalf("unexpected role ordering")
	}
}
