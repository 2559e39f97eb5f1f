// Package auth implements account flows: signup, login and access token
// refresh on top of the token service.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"inkpost.dev/internal/blog"
	"inkpost.dev/internal/obs"
	"inkpost.dev/internal/token"
)

const (
	// MinPasswordLength is the shortest accepted password after trimming.
	MinPasswordLength = 6
	// MaxPasswordBytes is the longest password bcrypt will hash.
	MaxPasswordBytes = 72
)

// Tokens issues and verifies the token pair.
type Tokens interface {
	IssueAccessToken(token.Payload) (string, error)
	IssueRefreshToken(token.Payload) (string, error)
	VerifyRefreshToken(string) token.Result
}

// TokenPair is returned by a successful login.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// Service wires user storage, password hashing and token issuance.
type Service struct {
	users  blog.UserStore
	tokens Tokens
	log    *zap.Logger
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithLogger sets the logger; the shared obs logger is used otherwise.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService constructs Service.
func NewService(users blog.UserStore, tokens Tokens, opts ...ServiceOption) *Service {
	s := &Service{users: users, tokens: tokens, log: obs.Logger()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("auth")
	return s
}

// SignUp registers a new account.
func (s *Service) SignUp(ctx context.Context, email, password string) (*blog.User, error) {
	email, password, err := validateCredentials(email, password)
	if err != nil {
		return nil, err
	}
	_, err = s.users.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		s.log.Warn("signup rejected: email already exists", zap.String("email", email))
		return nil, ErrAlreadyExists
	case !errors.Is(err, blog.ErrNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &blog.User{Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, blog.ErrDuplicate) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", zap.String("email", email), zap.String("user_id", u.ID))
	return u, nil
}

// Login checks credentials and issues an access/refresh pair. An unknown
// email and a wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email, password, err := validateCredentials(email, password)
	if err != nil {
		return TokenPair{}, err
	}
	u, err := s.users.FindUserByEmail(ctx, email)
	if errors.Is(err, blog.ErrNotFound) {
		s.log.Warn("login rejected: user not found", zap.String("email", email))
		return TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := VerifyPassword(u.PasswordHash, password); err != nil {
		s.log.Warn("login rejected: invalid password", zap.String("email", email))
		return TokenPair{}, ErrInvalidCredentials
	}

	payload := token.Payload{Email: u.Email}
	access, err := s.tokens.IssueAccessToken(payload)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(payload)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token carrying
// the same email. It returns the email alongside the token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", "", invalid("Refresh token is required")
	}
	switch r := s.tokens.VerifyRefreshToken(refreshToken).(type) {
	case token.Valid:
		access, err := s.tokens.IssueAccessToken(token.Payload{Email: r.Email})
		if err != nil {
			return "", "", fmt.Errorf("issue access token: %w", err)
		}
		s.log.Info("access token refreshed", zap.String("email", r.Email))
		return access, r.Email, nil
	case token.Expired:
		return "", "", ErrRefreshExpired
	default:
		return "", "", ErrRefreshInvalid
	}
}

func validateCredentials(email, password string) (string, string, error) {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	switch {
	case email == "":
		return "", "", invalid("Email is required")
	case !validEmail(email):
		return "", "", invalid("Invalid email format")
	case password == "":
		return "", "", invalid("Password is required")
	case len([]rune(password)) < MinPasswordLength:
		return "", "", invalid(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	case len(password) > MaxPasswordBytes:
		return "", "", invalid(fmt.Sprintf("Password must be at most %d bytes", MaxPasswordBytes))
	}
	return email, password, nil
}

// validEmail accepts a bare addr-spec with a dotted domain.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
