package security

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const selectionAudience = "tenant-selection"

// SessionClaims represents the identity provider's access token claims
type SessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// SelectionClaims binds a selected tenant to the user who selected it
type SelectionClaims struct {
	TenantID uuid.UUID `json:"tenant_id"`
	jwt.RegisteredClaims
}

// JWTManager verifies provider-issued session tokens and signs the
// selected-tenant cookie with the portal's own key
type JWTManager struct {
	secret          []byte
	selectionSecret []byte
	issuer          string
	selectionTTL    time.Duration
}

// NewJWTManager creates a new JWT manager. secret is the identity
// provider's signing key; selectionSecret signs tenant selections. An empty
// issuer disables the issuer check on session tokens.
func NewJWTManager(secret, selectionSecret, issuer string, selectionTTL time.Duration) *JWTManager {
	return &JWTManager{
		secret:          []byte(secret),
		selectionSecret: []byte(selectionSecret),
		issuer:          issuer,
		selectionTTL:    selectionTTL,
	}
}

// GenerateAccessToken signs a session token the way the identity provider
// does. Used by tooling and tests.
func (m *JWTManager) GenerateAccessToken(userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateAccessToken validates a session token and returns the session
func (m *JWTManager) ValidateAccessToken(tokenString string) (*domain.Session, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, hmacKey(m.secret), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if slices.Contains(claims.Audience, selectionAudience) {
		return nil, errors.New("selection token used as session")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in token: %w", err)
	}

	return &domain.Session{UserID: userID, Email: claims.Email}, nil
}

// GenerateTenantSelection signs the selected tenant for one user
func (m *JWTManager) GenerateTenantSelection(userID, tenantID uuid.UUID) (string, error) {
	now := time.Now()
	claims := SelectionClaims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{selectionAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.selectionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.selectionSecret)
}

// ValidateTenantSelection returns the tenant in a selection token. The
// token must have been issued to userID.
func (m *JWTManager) ValidateTenantSelection(tokenString string, userID uuid.UUID) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SelectionClaims{}, hmacKey(m.selectionSecret),
		jwt.WithAudience(selectionAudience),
		jwt.WithSubject(userID.String()),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse selection: %w", err)
	}

	claims, ok := token.Claims.(*SelectionClaims)
	if !ok || !token.Valid {
		return uuid.Nil, errors.New("invalid selection")
	}

	return claims.TenantID, nil
}

func hmacKey(secret []byte) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}
}
