package account

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecofor-market/internal/db"
)

func TestCapabilities(t *testing.T) {
	retail := FromRow(db.Account{ID: 1, Username: "ana", Tier: db.TierRetail})
	require.False(t, retail.IsBusiness())
	require.False(t, retail.IsStaff())
	require.NotNil(t, retail.Roles)

	empresa := FromRow(db.Account{ID: 2, Username: "limpiezas-sur", Tier: db.TierEmpresa, Rut: pgtype.Text{String: "76.123.456-7", Valid: true}})
	require.True(t, empresa.IsBusiness())
	require.Equal(t, "76.123.456-7", empresa.Rut)

	support := FromRow(db.Account{ID: 3, Tier: db.TierRetail, Roles: []string{db.RoleCustomerSupport}})
	require.True(t, support.IsStaff())
	require.False(t, support.HasRole(db.RoleAdmin))
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)

	ctx := NewContext(context.Background(), Account{ID: 9, Email: "x@ecofor.cl"})
	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, int64(9), got.ID)
	require.Equal(t, "x@ecofor.cl", got.DisplayName())
}
