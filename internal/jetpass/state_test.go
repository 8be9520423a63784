// state_test.go -- unit tests for JOSECodec.
package jetpass

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func testKey() []byte { return bytes.Repeat([]byte{0x42}, stateKeySize) }

func newCodec(t *testing.T, key []byte, purpose string) *JOSECodec {
	t.Helper()
	c, err := NewJOSECodec(key, purpose, time.Minute)
	if err != nil {
		t.Fatalf("NewJOSECodec: %v", err)
	}
	return c
}

func sampleProperties() *Properties {
	p := NewProperties()
	p.RedirectURI = "https://app.test/after?x=1"
	p.Set("zeta", "1")
	p.Set(correlationKey, "corr")
	p.Set("alpha", "two words")
	return p
}

// --- Round trip ---

func TestJOSECodec_RoundTrip(t *testing.T) {
	c := newCodec(t, testKey(), "purpose")
	in := sampleProperties()

	state, err := c.Protect(in)
	if err != nil {
		t.Fatalf("Protect: %v", err)
	}
	if strings.ContainsAny(state, "+/= ") {
		t.Errorf("state: expected URL-safe characters, got %q", state)
	}

	out, err := c.Unprotect(state)
	if err != nil {
		t.Fatalf("Unprotect: %v", err)
	}
	if !out.Equal(in) {
		t.Errorf("round trip: expected %v (%q), got %v (%q)", in.Keys(), in.RedirectURI, out.Keys(), out.RedirectURI)
	}
}

func TestJOSECodec_RoundTripEmpty(t *testing.T) {
	c := newCodec(t, testKey(), "purpose")

	state, err := c.Protect(NewProperties())
	if err != nil {
		t.Fatalf("Protect: %v", err)
	}
	out, err := c.Unprotect(state)
	if err != nil {
		t.Fatalf("Unprotect: %v", err)
	}
	if out.Len() != 0 || out.RedirectURI != "" {
		t.Errorf("expected empty bag, got %d keys, RedirectURI %q", out.Len(), out.RedirectURI)
	}
}

func TestJOSECodec_StatesDiffer(t *testing.T) {
	c := newCodec(t, testKey(), "purpose")
	a, _ := c.Protect(sampleProperties())
	b, _ := c.Protect(sampleProperties())
	if a == b {
		t.Error("expected a fresh nonce per state")
	}
}

// --- Rejection ---

func TestJOSECodec_Rejects(t *testing.T) {
	c := newCodec(t, testKey(), "purpose")
	valid, err := c.Protect(sampleProperties())
	if err != nil {
		t.Fatalf("Protect: %v", err)
	}

	tampered := func() string {
		parts := strings.Split(valid, ".")
		ct := []byte(parts[3])
		i := len(ct) / 2
		if ct[i] == 'A' {
			ct[i] = 'B'
		} else {
			ct[i] = 'A'
		}
		parts[3] = string(ct)
		return strings.Join(parts, ".")
	}()

	otherKey := bytes.Repeat([]byte{0x24}, stateKeySize)

	tests := []struct {
		name  string
		codec *JOSECodec
		state string
	}{
		{"empty", c, ""},
		{"garbage", c, "not-a-jwe"},
		{"tampered ciphertext", c, tampered},
		{"wrong key", newCodec(t, otherKey, "purpose"), valid},
		{"wrong purpose", newCodec(t, testKey(), "other-purpose"), valid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := tc.codec.Unprotect(tc.state)
			if !errors.Is(err, ErrInvalidState) {
				t.Errorf("expected ErrInvalidState, got %v", err)
			}
			if p != nil {
				t.Error("expected nil properties")
			}
		})
	}
}

func TestJOSECodec_Expired(t *testing.T) {
	c := newCodec(t, testKey(), "purpose")
	issued := time.Now()
	c.now = func() time.Time { return issued }
	state, err := c.Protect(sampleProperties())
	if err != nil {
		t.Fatalf("Protect: %v", err)
	}

	c.now = func() time.Time { return issued.Add(30 * time.Second) }
	if _, err := c.Unprotect(state); err != nil {
		t.Errorf("within TTL: expected success, got %v", err)
	}

	c.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := c.Unprotect(state); !errors.Is(err, ErrInvalidState) {
		t.Errorf("after TTL: expected ErrInvalidState, got %v", err)
	}
}

// --- Construction ---

func TestNewJOSECodec_KeySize(t *testing.T) {
	if _, err := NewJOSECodec([]byte("short"), "purpose", time.Minute); err == nil {
		t.Error("expected error for a short key")
	}
}

func TestNewJOSECodecFromSecret(t *testing.T) {
	t.Run("empty secret", func(t *testing.T) {
		if _, err := NewJOSECodecFromSecret(nil, "purpose", time.Minute); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("same secret and purpose interoperate", func(t *testing.T) {
		a, err := NewJOSECodecFromSecret([]byte("s3cret"), "purpose", time.Minute)
		if err != nil {
			t.Fatalf("NewJOSECodecFromSecret: %v", err)
		}
		b, err := NewJOSECodecFromSecret([]byte("s3cret"), "purpose", time.Minute)
		if err != nil {
			t.Fatalf("NewJOSECodecFromSecret: %v", err)
		}
		state, err := a.Protect(sampleProperties())
		if err != nil {
			t.Fatalf("Protect: %v", err)
		}
		if _, err := b.Unprotect(state); err != nil {
			t.Errorf("Unprotect: %v", err)
		}
	})

	t.Run("different purpose derives a different key", func(t *testing.T) {
		a, _ := NewJOSECodecFromSecret([]byte("s3cret"), "one", time.Minute)
		b, _ := NewJOSECodecFromSecret([]byte("s3cret"), "two", time.Minute)
		if bytes.Equal(a.key, b.key) {
			t.Error("expected distinct keys")
		}
	})

	t.Run("zero ttl uses default", func(t *testing.T) {
		c, _ := NewJOSECodecFromSecret([]byte("s3cret"), "purpose", 0)
		if c.ttl != DefaultStateTTL {
			t.Errorf("ttl: expected %v, got %v", DefaultStateTTL, c.ttl)
		}
	})
}
