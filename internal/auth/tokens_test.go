package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

func testTokens(now time.Time) Tokens {
	return Tokens{
		Secret:    []byte("test-secret"),
		Issuer:    "ecofor-market",
		Audience:  "ecofor-storefront",
		TTL:       time.Hour,
		ClockSkew: time.Second,
		Now:       func() time.Time { return now },
	}
}

func TestTokensRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tokens := testTokens(now)
	raw, exp, err := tokens.Issue(42)
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Hour), exp)

	id, err := tokens.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
}

func TestTokensExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	raw, _, err := testTokens(now).Issue(7)
	require.NoError(t, err)

	_, err = testTokens(now.Add(2 * time.Hour)).Parse(raw)
	require.Error(t, err)
}

func TestTokensWrongSecretOrAudience(t *testing.T) {
	now := time.Now()
	raw, _, err := testTokens(now).Issue(7)
	require.NoError(t, err)

	other := testTokens(now)
	other.Secret = []byte("other")
	_, err = other.Parse(raw)
	require.Error(t, err)

	other = testTokens(now)
	other.Audience = "backoffice"
	_, err = other.Parse(raw)
	require.Error(t, err)
}

func TestTokensRejectForeignAlgorithm(t *testing.T) {
	now := time.Now()
	tok, err := jwt.NewBuilder().Subject("7").Issuer("ecofor-market").Audience([]string{"ecofor-storefront"}).
		IssuedAt(now).Expiration(now.Add(time.Minute)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS512, []byte("test-secret")))
	require.NoError(t, err)

	_, err = testTokens(now).Parse(string(signed))
	require.ErrorContains(t, err, "unexpected token algorithm")
}

func TestTokensRejectGarbage(t *testing.T) {
	_, err := testTokens(time.Now()).Parse("")
	require.Error(t, err)
	_, err = testTokens(time.Now()).Parse("not.a.token")
	require.Error(t, err)
}
