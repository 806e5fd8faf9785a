package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Tokens issues and verifies HS256 access tokens whose subject is the
// account id.
type Tokens struct {
	Secret    []byte
	Issuer    string
	Audience  string
	TTL       time.Duration
	ClockSkew time.Duration
	Now       func() time.Time
}

func (t Tokens) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// Issue signs a token for accountID.
func (t Tokens) Issue(accountID int64) (string, time.Time, error) {
	if len(t.Secret) == 0 {
		return "", time.Time{}, errors.New("auth: signing secret not configured")
	}
	now := t.now()
	expiresAt := now.Add(t.TTL)
	tok, err := jwt.NewBuilder().
		Subject(strconv.FormatInt(accountID, 10)).
		Issuer(t.Issuer).
		Audience([]string{t.Audience}).
		IssuedAt(now).
		NotBefore(now.Add(-t.ClockSkew)).
		Expiration(expiresAt).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, t.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

// Parse verifies raw and returns the account id it was issued for.
func (t Tokens) Parse(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("auth: empty token")
	}
	alg, err := tokenAlgorithm(raw)
	if err != nil {
		return 0, err
	}
	if alg != jwa.HS256 {
		return 0, fmt.Errorf("auth: unexpected token algorithm %s", alg)
	}
	tok, err := jwt.ParseString(raw, jwt.WithKey(jwa.HS256, t.Secret), jwt.WithValidate(false))
	if err != nil {
		return 0, err
	}
	if err := t.validate(tok); err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(tok.Subject(), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("auth: invalid subject")
	}
	return id, nil
}

func (t Tokens) validate(tok jwt.Token) error {
	opts := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(t.now)),
	}
	if t.ClockSkew > 0 {
		opts = append(opts, jwt.WithAcceptableSkew(t.ClockSkew))
	}
	if t.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.Issuer))
	}
	if t.Audience != "" {
		opts = append(opts, jwt.WithAudience(t.Audience))
	}
	return jwt.Validate(tok, opts...)
}

// tokenAlgorithm reads the signing algorithm from the protected headers and
// rejects unsigned or mixed-algorithm tokens.
func tokenAlgorithm(raw string) (jwa.SignatureAlgorithm, error) {
	msg, err := jws.ParseString(raw)
	if err != nil {
		return "", err
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var alg jwa.SignatureAlgorithm
	for _, sig := range sigs {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		got := headers.Algorithm()
		switch {
		case got == "":
			return "", errors.New("auth: token missing algorithm")
		case got == jwa.NoSignature:
			return "", errors.New("auth: token uses none algorithm")
		case alg == "":
			alg = got
		case alg != got:
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return alg, nil
}
