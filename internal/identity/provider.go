package identity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an account in the identity provider
type User struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	InvitedAt *time.Time `json:"invited_at,omitempty"`
}

// Provider is the subset of the identity provider admin API the portal uses
type Provider interface {
	// FindUserByEmail returns nil when no account has the email.
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	// InviteUser creates a pending account and sends an invitation email.
	// It fails with domain.ErrAlreadyRegistered when the email is taken.
	InviteUser(ctx context.Context, email string, metadata map[string]any) (*User, error)
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
