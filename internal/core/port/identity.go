package port

import (
	"context"

	"github.com/sorenkv/glance/internal/core/domain"
)

// IdentityResolver turns a bearer credential into a trusted user identity.
// Authentication itself is an external concern; the core only consumes the
// resolved identifier.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (domain.UserID, error)
}
