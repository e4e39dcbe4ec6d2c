package audit

import (
	"context"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded first hop", headers: map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, remote: "1.1.1.1:80", want: "10.0.0.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": " 10.0.0.9 "}, remote: "1.1.1.1:80", want: "10.0.0.9"},
		{name: "forwarded skips junk", headers: map[string]string{"X-Forwarded-For": "unknown, 10.0.0.3:5000"}, remote: "1.1.1.1:80", want: "10.0.0.3"},
		{name: "remote addr", remote: "192.168.1.5:4431", want: "192.168.1.5"},
		{name: "ipv6 remote", remote: "[::1]:4431", want: "::1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/projects/p-1/debtor-imports", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestOriginFromRequest(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/projects/p-1/debtor-imports", nil)
	req.RemoteAddr = "10.1.2.3:999"
	req.Header.Set("User-Agent", "importer/1.0")
	origin := OriginFromRequest(req)
	if origin.IP != "10.1.2.3" || origin.UserAgent != "importer/1.0" {
		t.Fatalf("unexpected origin: %+v", origin)
	}
	if got := OriginFromRequest(nil); got != (Origin{}) {
		t.Fatalf("expected empty origin, got %+v", got)
	}
}

func TestMemoryLogFillsDefaults(t *testing.T) {
	log := NewMemoryLog()
	if err := log.Log(context.Background(), Entry{Action: "debtor_import.run", Metadata: []byte(`{"imported":2}`)}); err != nil {
		t.Fatalf("log: %v", err)
	}
	entries := log.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ID == "" || entries[0].CreatedAt.IsZero() || entries[0].PayloadDigest == "" {
		t.Fatalf("defaults not applied: %+v", entries[0])
	}
}
