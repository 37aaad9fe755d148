// Package tokens issues the stateless, single-purpose tokens emailed to users
// for confirming their address and resetting their password.
//
// A token is an HS256 JWT whose signing key is derived from the server secret
// and the user's current state (password hash, active flag and email). Nothing
// is stored: validation re-derives the key from the state loaded at check time,
// so any change to that state invalidates every token issued before it.
package tokens

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/lojafacil/lojas-backend/pkg/config"
)

// Purpose scopes a token to a single flow.
type Purpose string

const (
	PurposeEmailConfirmation Purpose = "email-confirmation"
	PurposePasswordReset     Purpose = "password-reset"
)

func (p Purpose) IsValid() bool {
	switch p {
	case PurposeEmailConfirmation, PurposePasswordReset:
		return true
	default:
		return false
	}
}

// ErrInvalid is returned for every rejected token. Callers must not reveal
// which check failed.
var ErrInvalid = errors.New("invalid token")

const (
	defaultTTL = 72 * time.Hour
	keyLen     = 32
)

var signingMethod = jwt.SigningMethodHS256

// Subject is the user state a token is bound to.
type Subject struct {
	UserID       uuid.UUID
	Email        string
	PasswordHash string
	IsActive     bool
}

// Generator makes and checks tokens. It is safe for concurrent use.
type Generator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option customises a Generator.
type Option func(*Generator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

func NewGenerator(cfg config.TokensConfig, opts ...Option) (*Generator, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	g := &Generator{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// TTL reports how long a freshly made token stays valid.
func (g *Generator) TTL() time.Duration {
	return g.ttl
}

// Make issues a token for purpose bound to the subject's current state.
func (g *Generator) Make(purpose Purpose, subject Subject) (string, error) {
	if !purpose.IsValid() {
		return "", fmt.Errorf("unknown token purpose %q", purpose)
	}
	if subject.UserID == uuid.Nil {
		return "", fmt.Errorf("token subject requires a user id")
	}

	key, err := g.deriveKey(purpose, subject)
	if err != nil {
		return "", err
	}

	issuedAt := g.now().UTC().Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Subject:   subject.UserID.String(),
		Audience:  jwt.ClaimStrings{string(purpose)},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(g.ttl)),
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Check reports whether token was issued for purpose against the subject's
// current state and has not expired. Every failure returns ErrInvalid.
func (g *Generator) Check(purpose Purpose, subject Subject, token string) error {
	if !purpose.IsValid() || subject.UserID == uuid.Nil || strings.TrimSpace(token) == "" {
		return ErrInvalid
	}

	key, err := g.deriveKey(purpose, subject)
	if err != nil {
		return ErrInvalid
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithAudience(string(purpose)),
		jwt.WithSubject(subject.UserID.String()),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(g.now),
	)
	claims := &jwt.RegisteredClaims{}
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}); err != nil {
		return ErrInvalid
	}
	return nil
}

func (g *Generator) deriveKey(purpose Purpose, subject Subject) ([]byte, error) {
	info := strings.Join([]string{
		string(purpose),
		subject.UserID.String(),
		strings.ToLower(strings.TrimSpace(subject.Email)),
		subject.PasswordHash,
		strconv.FormatBool(subject.IsActive),
	}, "\x00")

	key := make([]byte, keyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, g.secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("deriving token key: %w", err)
	}
	return key, nil
}
