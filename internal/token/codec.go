package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"inkpost.dev/internal/cryptox"
)

var (
	// ErrTokenExpired reports a correctly signed token past its exp claim.
	ErrTokenExpired = errors.New("token: expired")
	// ErrTokenInvalid covers bad signatures, malformed segments and unexpected algorithms.
	ErrTokenInvalid = errors.New("token: invalid")
	// ErrPayload reports an embedded payload that does not decrypt or decode.
	ErrPayload = errors.New("token: payload unreadable")
)

// Key pairs a signing secret with the only algorithm it may be used with.
type Key struct {
	Secret    []byte
	Algorithm jwt.SigningMethod
}

// HS256 returns an HMAC-SHA256 key for secret.
func HS256(secret string) Key {
	return Key{Secret: []byte(secret), Algorithm: jwt.SigningMethodHS256}
}

// Claims is the signed claim set. Data carries the base64 ciphertext of the
// serialised payload; everything else is standard registered claims.
type Claims struct {
	Data string `json:"data"`
	jwt.RegisteredClaims
}

// Codec builds and parses signed tokens whose body is an encrypted payload.
// The payload key is independent of any signing key; an empty payload key
// selects the cipher's default key.
type Codec struct {
	cipher     cryptox.Cipher
	payloadKey string
	now        func() time.Time
}

// NewCodec returns a Codec encrypting payloads with c under payloadKey.
func NewCodec(c cryptox.Cipher, payloadKey string, now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{cipher: c, payloadKey: payloadKey, now: now}
}

// Build serialises payload to JSON, encrypts and base64-encodes it into the
// data claim, and signs a token valid for ttl from now.
func (c *Codec) Build(payload any, key Key, ttl time.Duration) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	sealed, err := c.cipher.EncryptWithKey(raw, c.payloadKey)
	if err != nil {
		return "", fmt.Errorf("encrypt payload: %w", err)
	}

	now := c.now()
	claims := Claims{
		Data: base64.StdEncoding.EncodeToString(sealed),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(key.Algorithm, claims).SignedString(key.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, algorithm and expiry. It fails with
// ErrTokenExpired or ErrTokenInvalid; any other outcome is a success.
func (c *Codec) Parse(tokenString string, key Key) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return key.Secret, nil },
		jwt.WithValidMethods([]string{key.Algorithm.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	case !parsed.Valid:
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Open decrypts the data claim and decodes it into v.
func (c *Codec) Open(claims *Claims, v any) error {
	sealed, err := base64.StdEncoding.DecodeString(claims.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPayload, err)
	}
	raw, err := c.cipher.DecryptWithKey(sealed, c.payloadKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPayload, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrPayload, err)
	}
	return nil
}
