package auth

import (
	"context"

	"github.com/gin-gonic/gin"
)

const CtxIdentityKey = "identity"

// Identity is the caller resolved from a bearer credential.
type Identity struct {
	UserID int64
	Name   string
	Email  string
	// Role comes from the token, not the current user row.
	Role string
}

func (i *Identity) IsLibrarian() bool { return i != nil && i.Role == RoleLibrarian }

// IdentityResolver loads the user behind a token subject. It returns
// (nil, nil) when the user no longer exists.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, userID int64) (*Identity, error)
}

// IdentityFrom returns the identity stored by RequireAuth.
func IdentityFrom(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*Identity)
	return id, ok && id != nil
}
