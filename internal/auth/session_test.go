package auth

import (
	"crypto/sha256"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// --- GenerateToken ---

func TestGenerateToken(t *testing.T) {
	t.Run("hash matches SHA-256 of token", func(t *testing.T) {
		token, hash, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken returned error: %v", err)
		}
		if *hash != sha256.Sum256(token[:]) {
			t.Error("hash does not match SHA-256 of token")
		}
	})

	t.Run("tokens are unique", func(t *testing.T) {
		a, _, _ := GenerateToken()
		b, _, _ := GenerateToken()
		if *a == *b {
			t.Error("two tokens should differ")
		}
	})
}

// --- Cookies ---

func TestSessionCookieRoundTrip(t *testing.T) {
	token, hash, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	w := httptest.NewRecorder()
	SetSessionCookie(w, *token, time.Now().Add(time.Hour))

	c := findCookie(w, sessionCookie)
	if c == nil {
		t.Fatal("cookie not set")
	}
	if c.MaxAge <= 3500 || c.MaxAge > 3600 {
		t.Errorf("MaxAge: expected about 3600, got %d", c.MaxAge)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	key, err := tokenHashFromRequest(r)
	if err != nil {
		t.Fatalf("tokenHashFromRequest: %v", err)
	}
	if key != cacheKey(hash[:]) {
		t.Errorf("key: expected %q, got %q", cacheKey(hash[:]), key)
	}
}

func TestClearSessionCookie(t *testing.T) {
	w := httptest.NewRecorder()
	ClearSessionCookie(w)

	c := findCookie(w, sessionCookie)
	if c == nil {
		t.Fatal("cookie not set")
	}
	if c.Value != "" || c.MaxAge >= 0 {
		t.Errorf("expected empty expired cookie, got value=%q MaxAge=%d", c.Value, c.MaxAge)
	}
}
