// Package account models storefront accounts and the capabilities derived
// from their tier and roles.
package account

import (
	"context"
	"slices"
	"time"

	"github.com/noah-isme/ecofor-market/internal/db"
)

// Account is the authenticated principal attached to a request.
type Account struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Tier      string    `json:"tier"`
	Roles     []string  `json:"roles"`
	Rut       string    `json:"rut,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromRow converts a stored account.
func FromRow(row db.Account) Account {
	roles := row.Roles
	if roles == nil {
		roles = []string{}
	}
	return Account{
		ID:        row.ID,
		Username:  row.Username,
		Email:     row.Email,
		Tier:      row.Tier,
		Roles:     roles,
		Rut:       row.Rut.String,
		CreatedAt: row.CreatedAt,
	}
}

// IsBusiness reports whether the account buys as an empresa and therefore
// gets volume discounts and VAT-exclusive invoices.
func (a Account) IsBusiness() bool {
	return a.Tier == db.TierEmpresa
}

// HasRole reports whether the account holds role.
func (a Account) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

// IsStaff reports whether the account is an admin or customer-support member.
func (a Account) IsStaff() bool {
	return a.HasRole(db.RoleAdmin) || a.HasRole(db.RoleCustomerSupport)
}

// DisplayName is the name printed on documents.
func (a Account) DisplayName() string {
	if a.Username != "" {
		return a.Username
	}
	return a.Email
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying a.
func NewContext(ctx context.Context, a Account) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the account stored by NewContext.
func FromContext(ctx context.Context) (Account, bool) {
	a, ok := ctx.Value(ctxKey{}).(Account)
	return a, ok
}
