package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionPayload captures the data available when minting a session token.
type SessionPayload struct {
	UserID   uuid.UUID
	AccessID string
}

// SessionClaims is the typed JWT stored in the session cookie. The jti is the
// key of the server-side session record.
type SessionClaims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}
