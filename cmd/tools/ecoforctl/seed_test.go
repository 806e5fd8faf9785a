package main

import (
	"context"
	"errors"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/db/dbtest"
)

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := dbtest.New()
	opts := SeedOptions{AdminPassword: "admin-pass-1", SupportPassword: "support-pass-1"}

	res, err := Seed(ctx, store, opts)
	require.NoError(t, err)
	require.Equal(t, len(sampleProducts), res.Products)
	require.Equal(t, 2, res.Accounts)

	res, err = Seed(ctx, store, opts)
	require.NoError(t, err)
	require.Zero(t, res.Products)
	require.Zero(t, res.Accounts)

	total, err := store.CountProducts(ctx, db.ListProductsParams{})
	require.NoError(t, err)
	require.EqualValues(t, len(sampleProducts), total)

	admin, err := store.GetAccountByUsername(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, []string{db.RoleAdmin}, admin.Roles)
	ok, err := argon2id.ComparePasswordAndHash("admin-pass-1", admin.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	support, err := store.GetAccountByUsername(ctx, "soporte")
	require.NoError(t, err)
	require.Equal(t, []string{db.RoleCustomerSupport}, support.Roles)
}

func TestSeedSkipProducts(t *testing.T) {
	store := dbtest.New()
	res, err := Seed(context.Background(), store, SeedOptions{
		AdminPassword:   "admin-pass-1",
		SupportPassword: "support-pass-1",
		SkipProducts:    true,
	})
	require.NoError(t, err)
	require.Zero(t, res.Products)
	require.Equal(t, 2, res.Accounts)
}

func TestSeedRejectsShortPassword(t *testing.T) {
	store := dbtest.New()
	_, err := Seed(context.Background(), store, SeedOptions{AdminPassword: "short", SupportPassword: "support-pass-1", SkipProducts: true})
	require.ErrorContains(t, err, "admin")

	_, err = store.GetAccountByUsername(context.Background(), "admin")
	require.ErrorIs(t, err, db.ErrNoRows)
}

func TestSeedPropagatesStoreErrors(t *testing.T) {
	store := dbtest.New()
	boom := errors.New("boom")
	store.FailOn("CreateProduct", boom)

	_, err := Seed(context.Background(), store, SeedOptions{AdminPassword: "admin-pass-1", SupportPassword: "support-pass-1"})
	require.ErrorIs(t, err, boom)
}

func TestAppCommands(t *testing.T) {
	app := newApp()
	var names []string
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"migrate", "seed"}, names)

	var subs []string
	for _, c := range app.Commands[0].Subcommands {
		subs = append(subs, c.Name)
	}
	require.Equal(t, []string{"up", "down", "version"}, subs)
}
