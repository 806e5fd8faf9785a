package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/money"
)

// seedStore is the slice of db.Querier the seeder touches.
type seedStore interface {
	ListProducts(ctx context.Context, arg db.ListProductsParams) ([]db.Product, error)
	CreateProduct(ctx context.Context, arg db.CreateProductParams) (db.Product, error)
	GetAccountByUsername(ctx context.Context, username string) (db.Account, error)
	CreateAccount(ctx context.Context, arg db.CreateAccountParams) (db.Account, error)
}

type SeedOptions struct {
	AdminPassword   string
	SupportPassword string
	SkipProducts    bool
}

type SeedResult struct {
	Products int
	Accounts int
}

type sampleProduct struct {
	name, description, category string
	price                       int64
	stock                       int
	discount                    int32
}

var sampleProducts = []sampleProduct{
	{"Papel higiénico jumbo 4x250m", "Rollo doble hoja para dispensador jumbo", "higienicos", 18990, 40, 0},
	{"Toalla interfoliada 20x250", "Caja de toallas de papel interfoliadas", "toallas_papel", 21490, 25, 10},
	{"Servilleta cocktail 500u", "Servilleta blanca una hoja", "servilletas", 2990, 120, 0},
	{"Dispensador papel jumbo", "Dispensador de ABS con llave", "dispensadores", 15990, 12, 0},
	{"Contenedor 120L con ruedas", "Contenedor plástico con tapa", "contenedores", 54990, 6, 5},
	{"Limpiador multiuso 5L", "Limpiador concentrado aroma lavanda", "limpiadores", 8990, 60, 0},
	{"Cera autobrillo pisos 5L", "Cera para pisos de vinilo y flexit", "pisos", 12490, 30, 15},
	{"Desodorante ambiental 360cc", "Aerosol aroma cítrico", "desodorante", 2490, 80, 0},
	{"Guante nitrilo talla M 100u", "Guante desechable sin polvo", "epp", 6990, 50, 0},
	{"Vaso polipapel 8oz 50u", "Vaso para bebidas calientes", "horeca", 3490, 100, 0},
}

// Seed inserts the sample catalog and the staff accounts. Rows that already
// exist by name or username are left untouched.
func Seed(ctx context.Context, q seedStore, opts SeedOptions) (SeedResult, error) {
	var res SeedResult
	if !opts.SkipProducts {
		for _, p := range sampleProducts {
			created, err := seedProduct(ctx, q, p)
			if err != nil {
				return res, err
			}
			if created {
				res.Products++
			}
		}
	}

	staff := []struct {
		username, email, password, role string
	}{
		{"admin", "admin@ecoformarket.cl", opts.AdminPassword, db.RoleAdmin},
		{"soporte", "soporte@ecoformarket.cl", opts.SupportPassword, db.RoleCustomerSupport},
	}
	for _, s := range staff {
		_, err := q.GetAccountByUsername(ctx, s.username)
		if err == nil {
			continue
		}
		if !errors.Is(err, db.ErrNoRows) {
			return res, fmt.Errorf("lookup %s: %w", s.username, err)
		}
		if len(s.password) < 8 {
			return res, fmt.Errorf("password for %s must be at least 8 characters", s.username)
		}
		hash, err := argon2id.CreateHash(s.password, argon2id.DefaultParams)
		if err != nil {
			return res, fmt.Errorf("hash %s password: %w", s.username, err)
		}
		if _, err := q.CreateAccount(ctx, db.CreateAccountParams{
			Username:     s.username,
			Email:        s.email,
			PasswordHash: hash,
			Tier:         db.TierRetail,
			Roles:        []string{s.role},
			Rut:          pgtype.Text{},
		}); err != nil {
			return res, fmt.Errorf("create %s: %w", s.username, err)
		}
		res.Accounts++
	}
	return res, nil
}

func seedProduct(ctx context.Context, q seedStore, p sampleProduct) (bool, error) {
	existing, err := q.ListProducts(ctx, db.ListProductsParams{Search: p.name, Limit: 50})
	if err != nil {
		return false, fmt.Errorf("lookup product %q: %w", p.name, err)
	}
	for _, e := range existing {
		if strings.EqualFold(e.Name, p.name) {
			return false, nil
		}
	}
	discount := pgtype.Int4{}
	if p.discount > 0 {
		discount = pgtype.Int4{Int32: p.discount, Valid: true}
	}
	if _, err := q.CreateProduct(ctx, db.CreateProductParams{
		Name:        p.name,
		Description: p.description,
		Price:       money.FromInt(p.price),
		Stock:       p.stock,
		Category:    p.category,
		Active:      true,
		DiscountPct: discount,
	}); err != nil {
		return false, fmt.Errorf("create product %q: %w", p.name, err)
	}
	return true, nil
}
