package account

import (
	"context"
	"fmt"

	"github.com/korjavin/loversspace/pkg/models"
)

// Principal is the authenticated user of a request together with their
// partner, if bound. Records owned by either of them are in scope.
type Principal struct {
	User    models.User
	Partner *models.User
}

// ID returns the id of the acting user
func (p Principal) ID() int64 {
	return p.User.ID
}

// Owners returns the user ids whose records this principal may see
func (p Principal) Owners() []int64 {
	if p.Partner != nil {
		return []int64{p.User.ID, p.Partner.ID}
	}
	return []int64{p.User.ID}
}

// Owns reports whether a record owned by ownerID is in scope
func (p Principal) Owns(ownerID int64) bool {
	return ownerID == p.User.ID || (p.Partner != nil && ownerID == p.Partner.ID)
}

// CoupleKey identifies the shared dataset; it is the same for both partners
func (p Principal) CoupleKey() string {
	if p.Partner == nil {
		return fmt.Sprintf("%d", p.User.ID)
	}
	a, b := p.User.ID, p.Partner.ID
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d-%d", a, b)
}

// NameOf returns the display name of an owner in scope
func (p Principal) NameOf(ownerID int64) string {
	if p.Partner != nil && ownerID == p.Partner.ID {
		return p.Partner.Name()
	}
	return p.User.Name()
}

type ctxKey string

const principalContextKey ctxKey = "loversspace.account.principal"

// WithPrincipal returns a context carrying the principal
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFrom returns the principal stored by WithPrincipal
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}
