// Package auth provides password hashing, JWT issuance/validation and the
// bearer-token middleware that protects the user API.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. Client registers via POST /register (password is bcrypt-hashed and stored)
// 2. Client logs in via POST /login with email + password
// 3. Server verifies the password and issues a JWT access token (1 hour by default)
// 4. Client sends "Authorization: Bearer <token>" on every protected request
// 5. RequireBearer validates the JWT and puts the Claims in the request context
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims (data) → {"sub":"42","email":"a@x.com","exp":1234567890,...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// The server can verify the signature without any DB lookup, just the secret.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

// DefaultTokenTTL is the access token lifetime when none is configured.
const DefaultTokenTTL = time.Hour

const issuer = "user-service"

var (
	// ErrInvalidToken covers every verification failure. Expired tokens
	// wrap it too, so errors.Is(err, ErrInvalidToken) is the single check
	// callers need.
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrInvalidToken)
)

// Claims is the identity carried inside an access token.
type Claims struct {
	UserID int64
	Email  string
}

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens and the
// lifetime of issued tokens. The same secret must be used for both
// operations. Keep it safe, rotate it periodically in production.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and token lifetime.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
//
// A non-positive ttl falls back to DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL reports how long issued tokens stay valid.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// tokenClaims is the JWT payload. It embeds jwt.RegisteredClaims which
// includes standard fields like Issuer, Subject, ExpiresAt, IssuedAt and ID.
//
// The user id travels in "sub" (as a decimal string, per RFC 7519) and the
// email in a private "email" claim.
type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issue creates and signs a new access token for the given identity.
//
// Signing algorithm: HS256 (HMAC-SHA256). Every token gets a unique "jti"
// (an xid) so two tokens issued in the same second are still distinct.
func (s *TokenService) Issue(c Claims) (string, error) {
	return s.IssueWithTTL(c, s.ttl)
}

// IssueWithTTL creates a token with a custom lifetime.
// Used in tests (a negative ttl produces an already-expired token).
func (s *TokenService) IssueWithTTL(c Claims, ttl time.Duration) (string, error) {
	now := time.Now()

	tc := tokenClaims{
		Email: c.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   strconv.FormatInt(c.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tc)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and verifies a JWT string and returns the identity it carries.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is present and in the future)
//   - Issuer matches (prevents tokens minted for other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// On top of that the subject must be a positive integer id.
func (s *TokenService) Verify(tokenStr string) (Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&tokenClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return Claims{}, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}

	id, err := strconv.ParseInt(tc.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Claims{}, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, tc.Subject)
	}

	return Claims{UserID: id, Email: tc.Email}, nil
}
