package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/common"
	"github.com/noah-isme/ecofor-market/internal/db"
)

const (
	defaultAccessTTL = 12 * time.Hour
	minPasswordLen   = 8
	uniqueViolation  = "23505"
)

var rutPattern = regexp.MustCompile(`^\d{1,2}\.?\d{3}\.?\d{3}-[\dkK]$`)

// Service registers accounts, verifies credentials and resolves tokens back
// to accounts.
type Service struct {
	queries db.Querier
	tokens  Tokens
}

// Config configures the auth service.
type Config struct {
	Queries        db.Querier
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
}

// RegisterInput is the payload accepted by Register.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Tier     string `json:"tier"`
	Rut      string `json:"rut"`
}

// LoginResult bundles the access token returned after a successful login.
type LoginResult struct {
	Account     account.Account `json:"account"`
	AccessToken string          `json:"accessToken"`
	ExpiresAt   time.Time       `json:"expiresAt"`
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("auth: queries is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = defaultAccessTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "ecofor-market"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "ecofor-storefront"
	}
	return &Service{
		queries: cfg.Queries,
		tokens: Tokens{
			Secret:    []byte(secret),
			Issuer:    issuer,
			Audience:  audience,
			TTL:       ttl,
			ClockSkew: max(cfg.ClockSkew, 0),
		},
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.tokens.Now = now
	}
}

// Register creates a customer account. Empresa accounts must carry a RUT.
func (s *Service) Register(ctx context.Context, in RegisterInput) (account.Account, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return account.Account{}, validation("username", "username is required")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return account.Account{}, validation("email", "email is invalid")
	}
	if len(in.Password) < minPasswordLen {
		return account.Account{}, validation("password", "password must be at least 8 characters")
	}
	tier := strings.ToLower(strings.TrimSpace(in.Tier))
	if tier == "" {
		tier = db.TierRetail
	}
	var rut pgtype.Text
	switch tier {
	case db.TierRetail:
	case db.TierEmpresa:
		value := strings.TrimSpace(in.Rut)
		if !rutPattern.MatchString(value) {
			return account.Account{}, validation("rut", "a valid RUT is required for empresa accounts")
		}
		rut = pgtype.Text{String: strings.ToUpper(value), Valid: true}
	default:
		return account.Account{}, validation("tier", "tier must be retail or empresa")
	}

	hash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
	if err != nil {
		return account.Account{}, fmt.Errorf("hash password: %w", err)
	}
	row, err := s.queries.CreateAccount(ctx, db.CreateAccountParams{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Tier:         tier,
		Rut:          rut,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return account.Account{}, common.NewAppError("USERNAME_TAKEN", "username is already registered", http.StatusConflict, err)
		}
		return account.Account{}, fmt.Errorf("create account: %w", err)
	}
	return account.FromRow(row), nil
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, errInvalidCredentials
	}
	row, err := s.queries.GetAccountByUsername(ctx, username)
	if err != nil {
		if db.IsNotFound(err) {
			return LoginResult{}, errInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("load account: %w", err)
	}
	ok, err := argon2id.ComparePasswordAndHash(password, row.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, errInvalidCredentials
	}
	token, expiresAt, err := s.tokens.Issue(row.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	return LoginResult{Account: account.FromRow(row), AccessToken: token, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves an access token to its account.
func (s *Service) Authenticate(ctx context.Context, token string) (account.Account, error) {
	id, err := s.tokens.Parse(token)
	if err != nil {
		return account.Account{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	row, err := s.queries.GetAccountByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return account.Account{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
		}
		return account.Account{}, fmt.Errorf("load account: %w", err)
	}
	return account.FromRow(row), nil
}

var errInvalidCredentials = common.NewAppError("INVALID_CREDENTIALS", "invalid username or password", http.StatusUnauthorized, nil)

func validation(field, message string) *common.AppError {
	return &common.AppError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"field": field},
	}
}
