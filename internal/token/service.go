// Package token issues and verifies the access and refresh tokens handed to
// clients. Token bodies carry the caller's payload encrypted, so the claims
// segment never exposes the email in clear text.
package token

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"inkpost.dev/internal/cryptox"
	"inkpost.dev/internal/obs"
)

const (
	// AccessTTL bounds the lifetime of access tokens.
	AccessTTL = 30 * time.Minute
	// RefreshTTL bounds the lifetime of refresh tokens.
	RefreshTTL = 30 * 24 * time.Hour
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// Payload is the application data embedded, encrypted, in every token.
type Payload struct {
	Email string `json:"email"`
}

// Config carries the process-wide secrets. They are read-only once the
// Service is constructed.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	// PayloadKey encrypts token payloads. Empty selects Cipher's default key.
	PayloadKey string
	Cipher     cryptox.Cipher
}

// Service issues and verifies access and refresh tokens. It holds no mutable
// state and is safe for concurrent use.
type Service struct {
	codec      *Codec
	access     Key
	refresh    Key
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	log        *zap.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithClock overrides the time source used for iat, exp and expiry checks.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithLogger sets the logger; the shared obs logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) error {
		if l != nil {
			s.log = l
		}
		return nil
	}
}

// NewService validates cfg and returns a ready Service.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	access := strings.TrimSpace(cfg.AccessSecret)
	refresh := strings.TrimSpace(cfg.RefreshSecret)
	switch {
	case access == "":
		return nil, errors.New("token: access secret is required")
	case refresh == "":
		return nil, errors.New("token: refresh secret is required")
	case access == refresh:
		return nil, errors.New("token: access and refresh secrets must differ")
	case cfg.PayloadKey == "" && !cfg.Cipher.HasDefault():
		return nil, errors.New("token: payload key or default key is required")
	}

	s := &Service{
		access:     HS256(cfg.AccessSecret),
		refresh:    HS256(cfg.RefreshSecret),
		accessTTL:  AccessTTL,
		refreshTTL: RefreshTTL,
		now:        time.Now,
		log:        obs.Logger(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.codec = NewCodec(cfg.Cipher, cfg.PayloadKey, s.now)
	s.log = s.log.Named("token")
	return s, nil
}

// IssueAccessToken signs a short-lived access token for p.
func (s *Service) IssueAccessToken(p Payload) (string, error) {
	s.log.Debug("issuing access token", zap.String("email", p.Email))
	return s.codec.Build(p, s.access, s.accessTTL)
}

// IssueRefreshToken signs a long-lived refresh token for p.
func (s *Service) IssueRefreshToken(p Payload) (string, error) {
	s.log.Debug("issuing refresh token", zap.String("email", p.Email))
	return s.codec.Build(p, s.refresh, s.refreshTTL)
}

// VerifyAccessToken classifies an access token.
func (s *Service) VerifyAccessToken(tok string) Result {
	return s.verify(kindAccess, tok, s.access)
}

// VerifyRefreshToken classifies a refresh token.
func (s *Service) VerifyRefreshToken(tok string) Result {
	return s.verify(kindRefresh, tok, s.refresh)
}

func (s *Service) verify(kind, tok string, key Key) Result {
	res := s.classify(kind, tok, key)
	obs.ObserveTokenVerification(kind, StatusOf(res))
	return res
}

func (s *Service) classify(kind, tok string, key Key) Result {
	claims, err := s.codec.Parse(tok, key)
	if errors.Is(err, ErrTokenExpired) {
		s.log.Warn("token expired", zap.String("kind", kind))
		return Expired{}
	}
	if err != nil {
		s.log.Warn("token rejected", zap.String("kind", kind), zap.Error(err))
		return Invalid{}
	}

	// A correctly signed token whose payload cannot be read is treated as
	// Invalid; it never yields Valid with an empty email.
	var p Payload
	if err := s.codec.Open(claims, &p); err != nil {
		s.log.Warn("token payload rejected", zap.String("kind", kind), zap.Error(err))
		return Invalid{}
	}
	if strings.TrimSpace(p.Email) == "" {
		s.log.Warn("token payload missing email", zap.String("kind", kind))
		return Invalid{}
	}
	return Valid{Email: p.Email}
}
