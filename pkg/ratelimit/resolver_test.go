package ratelimit

import (
	"net/http/httptest"
	"testing"
)

func TestResolveIdentifier(t *testing.T) {
	tests := []struct {
		name         string
		principalID  string
		forwardedFor string
		realIP       string
		want         string
	}{
		{
			name:        "authenticated principal wins",
			principalID: "alice",
			want:        "user:alice",
		},
		{
			name:         "principal beats proxy headers",
			principalID:  "alice",
			forwardedFor: "203.0.113.9",
			realIP:       "198.51.100.4",
			want:         "user:alice",
		},
		{
			name:         "first forwarded-for hop",
			forwardedFor: "203.0.113.9, 198.51.100.4, 192.0.2.1",
			want:         "ip:203.0.113.9",
		},
		{
			name:         "forwarded-for is trimmed",
			forwardedFor: "  203.0.113.9  ,198.51.100.4",
			want:         "ip:203.0.113.9",
		},
		{
			name:   "real-ip fallback",
			realIP: "198.51.100.4",
			want:   "ip:198.51.100.4",
		},
		{
			name: "nothing available",
			want: "ip:unknown",
		},
		{
			name:         "malformed header passes through",
			forwardedFor: "not-an-address",
			want:         "ip:not-an-address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveIdentifier(tt.principalID, tt.forwardedFor, tt.realIP)
			if got != tt.want {
				t.Errorf("ResolveIdentifier() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultIdentifierFunc(t *testing.T) {
	t.Run("user id header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/v1/data/items", nil)
		r.Header.Set("X-User-ID", "alice")
		if got := DefaultIdentifierFunc(r); got != "user:alice" {
			t.Errorf("got %q, want user:alice", got)
		}
	})

	t.Run("forwarded for", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/v1/data/items", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		if got := DefaultIdentifierFunc(r); got != "ip:203.0.113.9" {
			t.Errorf("got %q, want ip:203.0.113.9", got)
		}
	})

	t.Run("remote addr fallback", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/v1/data/items", nil)
		r.RemoteAddr = "192.0.2.7:54321"
		if got := DefaultIdentifierFunc(r); got != "ip:192.0.2.7" {
			t.Errorf("got %q, want ip:192.0.2.7", got)
		}
	})
}
