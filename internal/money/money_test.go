package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestExcludeVATTruncates(t *testing.T) {
	require.Equal(t, int64(1000), FromInt(1190).ExcludeVAT().Int64())
	// 999 / 1.19 = 839.49...
	require.Equal(t, int64(839), FromInt(999).ExcludeVAT().Int64())
	// 1189 / 1.19 = 999.15...
	require.Equal(t, int64(999), FromInt(1189).ExcludeVAT().Int64())
}

func TestApplyDiscountTruncates(t *testing.T) {
	rate := decimal.RequireFromString("0.07")
	require.Equal(t, int64(930), FromInt(1000).ApplyDiscount(rate).Int64())
	// 839 * 0.93 = 780.27
	require.Equal(t, int64(780), FromInt(839).ApplyDiscount(rate).Int64())
}

func TestRateTruncates(t *testing.T) {
	rate := decimal.RequireFromString("0.12")
	// 1999 * 0.12 = 239.88
	require.Equal(t, int64(239), FromInt(1999).Rate(rate).Int64())
}

func TestTimesAndArithmetic(t *testing.T) {
	m := FromInt(1190).Times(3)
	require.Equal(t, int64(3570), m.Int64())
	require.Equal(t, int64(3000), m.Sub(FromInt(570)).Int64())
	require.Equal(t, int64(3571), m.Add(FromInt(1)).Int64())
}

func TestFormatCLP(t *testing.T) {
	cases := map[int64]string{
		0:        "$0",
		990:      "$990",
		1190:     "$1.190",
		93000:    "$93.000",
		1234567:  "$1.234.567",
		-8330:    "-$8.330",
		10000000: "$10.000.000",
	}
	for in, want := range cases {
		require.Equal(t, want, FromInt(in).FormatCLP(), "amount %d", in)
	}
}

func TestJSONRoundsToNumber(t *testing.T) {
	raw, err := json.Marshal(map[string]Money{"total": FromInt(93000)})
	require.NoError(t, err)
	require.JSONEq(t, `{"total":93000}`, string(raw))

	var decoded struct {
		Total Money `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"total":"1190.75"}`), &decoded))
	require.Equal(t, int64(1190), decoded.Total.Int64())
}

func TestParse(t *testing.T) {
	m, err := Parse("100000.00")
	require.NoError(t, err)
	require.Equal(t, 0, m.Cmp(FromInt(100000)))

	_, err = Parse("abc")
	require.Error(t, err)
}
