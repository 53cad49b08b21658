package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNaira(t *testing.T) {
	a, err := ParseNaira("1250.5")
	require.NoError(t, err)
	assert.Equal(t, Amount(125050), a)

	a, err = ParseNaira("100")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), a.Kobo())

	_, err = ParseNaira("10.505")
	require.Error(t, err)

	_, err = ParseNaira("ten")
	require.Error(t, err)
}

func TestAmount_String(t *testing.T) {
	assert.Equal(t, "60.00", Amount(6000).String())
	assert.Equal(t, "0.07", Amount(7).String())
	assert.Equal(t, "-1.50", Amount(-150).String())
}

func TestAmount_JSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		Amount Amount `json:"amount"`
	}{Amount: 123456})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"1234.56"}`, string(payload))

	var fromString struct {
		Amount Amount `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"40"}`), &fromString))
	assert.Equal(t, Amount(4000), fromString.Amount)

	var fromNumber struct {
		Amount Amount `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount":12.25}`), &fromNumber))
	assert.Equal(t, Amount(1225), fromNumber.Amount)

	var bad struct {
		Amount Amount `json:"amount"`
	}
	require.Error(t, json.Unmarshal([]byte(`{"amount":"1.001"}`), &bad))
}

func TestQuoteTrade(t *testing.T) {
	// 150 USD at N1,450.50/$ = N217,575.00
	got, err := QuoteTrade(decimal.RequireFromString("150"), Amount(145050))
	require.NoError(t, err)
	assert.Equal(t, Amount(21757500), got)

	// Fractions of a kobo are dropped.
	got, err = QuoteTrade(decimal.RequireFromString("0.333"), Amount(100))
	require.NoError(t, err)
	assert.Equal(t, Amount(33), got)
}

func TestQuoteTrade_Overflow(t *testing.T) {
	_, err := QuoteTrade(decimal.RequireFromString("1e15"), Amount(150000))
	require.ErrorIs(t, err, ErrAmountOutOfRange)
}

func TestParseNaira_OutOfRange(t *testing.T) {
	// One kobo past MaxUint64 would wrap to 0.01 under a plain int64 conversion.
	_, err := ParseNaira("184467440737095516.17")
	require.ErrorIs(t, err, ErrAmountOutOfRange)

	_, err = ParseNaira("-184467440737095516.17")
	require.ErrorIs(t, err, ErrAmountOutOfRange)

	top, err := ParseNaira("92233720368547758.07")
	require.NoError(t, err)
	assert.Equal(t, Amount(math.MaxInt64), top)

	_, err = ParseNaira("92233720368547758.08")
	require.ErrorIs(t, err, ErrAmountOutOfRange)

	var body struct {
		Amount Amount `json:"amount"`
	}
	require.Error(t, json.Unmarshal([]byte(`{"amount":"100000000000000000000"}`), &body))
	require.Error(t, json.Unmarshal([]byte(`{"amount":100000000000000000000}`), &body))
}
