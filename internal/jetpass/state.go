// state.go -- Protects the property bag into the opaque state parameter.
//
// The default codec encrypts the bag into a compact JWE (dir + A256GCM) holding a
// JWT, so the state is confidential, tamper-evident, and expires on its own.
package jetpass

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"golang.org/x/crypto/hkdf"
)

// StateCodec turns properties into a URL-safe opaque string and back.
// Unprotect returns a nil bag and an error wrapping ErrInvalidState for any input it
// did not produce or that is no longer valid.
type StateCodec interface {
	Protect(p *Properties) (string, error)
	Unprotect(state string) (*Properties, error)
}

// DefaultStateTTL bounds how long a user may stay at the provider.
const DefaultStateTTL = 15 * time.Minute

// stateKeySize is the A256GCM key length.
const stateKeySize = 32

// JOSECodec is the default StateCodec.
type JOSECodec struct {
	key     []byte
	purpose string
	ttl     time.Duration
	enc     jose.Encrypter
	now     func() time.Time
}

// stateClaims is the private part of the state token.
type stateClaims struct {
	Properties *Properties `json:"props"`
}

// NewJOSECodec builds a codec from a 32-byte key. purpose is bound into the token
// audience so states minted for one handler are rejected by another.
func NewJOSECodec(key []byte, purpose string, ttl time.Duration) (*JOSECodec, error) {
	if len(key) != stateKeySize {
		return nil, fmt.Errorf("state key must be %d bytes, got %d", stateKeySize, len(key))
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	enc, err := jose.NewEncrypter(jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: key},
		(&jose.EncrypterOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating state encrypter: %w", err)
	}
	return &JOSECodec{key: key, purpose: purpose, ttl: ttl, enc: enc, now: time.Now}, nil
}

// NewJOSECodecFromSecret derives the key from an arbitrary-length secret with HKDF-SHA256.
func NewJOSECodecFromSecret(secret []byte, purpose string, ttl time.Duration) (*JOSECodec, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("state secret is empty")
	}
	key := make([]byte, stateKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(purpose)), key); err != nil {
		return nil, fmt.Errorf("deriving state key: %w", err)
	}
	return NewJOSECodec(key, purpose, ttl)
}

// newEphemeralCodec returns a codec keyed with random bytes that live only as long
// as the process.
func newEphemeralCodec(purpose string) (*JOSECodec, error) {
	key := make([]byte, stateKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating state key: %w", err)
	}
	return NewJOSECodec(key, purpose, DefaultStateTTL)
}

// Protect encrypts p into a compact JWE.
func (c *JOSECodec) Protect(p *Properties) (string, error) {
	now := c.now()
	std := jwt.Claims{
		Audience: jwt.Audience{c.purpose},
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(c.ttl)),
	}
	out, err := jwt.Encrypted(c.enc).Claims(std).Claims(stateClaims{Properties: p}).Serialize()
	if err != nil {
		return "", fmt.Errorf("protecting state: %w", err)
	}
	return out, nil
}

// Unprotect decrypts and validates a state produced by Protect.
func (c *JOSECodec) Unprotect(state string) (*Properties, error) {
	if state == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidState)
	}
	tok, err := jwt.ParseEncrypted(state, []jose.KeyAlgorithm{jose.DIRECT}, []jose.ContentEncryption{jose.A256GCM})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	var std jwt.Claims
	var priv stateClaims
	if err := tok.Claims(c.key, &std, &priv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if err := std.ValidateWithLeeway(jwt.Expected{
		AnyAudience: jwt.Audience{c.purpose},
		Time:        c.now(),
	}, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if priv.Properties == nil {
		return nil, fmt.Errorf("%w: no properties", ErrInvalidState)
	}
	return priv.Properties, nil
}
