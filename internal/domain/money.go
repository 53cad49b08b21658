package domain

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// KoboPerNaira is the number of minor units in one naira.
const KoboPerNaira = 100

var koboScale = decimal.NewFromInt(KoboPerNaira)

// ErrAmountOutOfRange is returned when a value does not fit in int64 kobo.
var ErrAmountOutOfRange = errors.New("amount out of range")

// Amount is a naira value stored as BIGINT kobo to avoid floating point errors.
// It crosses the API boundary as a decimal naira string.
type Amount int64

// ParseNaira parses a decimal naira string such as "1250.50" into kobo.
// Values with more than two fractional digits are rejected.
func ParseNaira(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return FromDecimal(d)
}

// FromDecimal converts a naira decimal into kobo.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if !d.Equal(d.Truncate(2)) {
		return 0, fmt.Errorf("amount %s has more than two decimal places", d.String())
	}
	return toKobo(d.Mul(koboScale))
}

func toKobo(kobo decimal.Decimal) (Amount, error) {
	if !kobo.BigInt().IsInt64() {
		return 0, ErrAmountOutOfRange
	}
	return Amount(kobo.IntPart()), nil
}

// Kobo returns the raw minor-unit value.
func (a Amount) Kobo() int64 {
	return int64(a)
}

// Decimal returns the naira value.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(a)).Div(koboScale)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

// UnmarshalJSON accepts either a JSON string or a JSON number in naira.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
		raw = unquoted
	}
	parsed, err := ParseNaira(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// QuoteTrade converts a USD amount at a naira-per-dollar rate into kobo, rounding down.
func QuoteTrade(usd decimal.Decimal, rate Amount) (Amount, error) {
	naira := usd.Mul(rate.Decimal())
	return toKobo(naira.Mul(koboScale).Floor())
}
