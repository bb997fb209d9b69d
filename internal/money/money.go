package money

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code supported by the ledger.
type Currency string

const (
	RUB Currency = "RUB"
	USD Currency = "USD"
)

const (
	// Scale is the number of fractional digits kept for balances and amounts.
	Scale = 2
	// MaxDigits bounds the total number of digits of a stored value.
	MaxDigits = 10

	// maxCoefficientDigits caps the significant digits looked at before any
	// rescaling, so trailing zeros such as "1.500" still pass.
	maxCoefficientDigits = 2 * MaxDigits
)

var (
	// ErrUnknownCurrency is returned for codes outside the supported set.
	ErrUnknownCurrency = errors.New("unknown currency")
	// ErrTooManyDecimals is returned when a value carries more than Scale fractional digits.
	ErrTooManyDecimals = fmt.Errorf("no more than %d decimal places allowed", Scale)
	// ErrTooManyDigits is returned when a value exceeds MaxDigits total digits.
	ErrTooManyDigits = fmt.Errorf("no more than %d digits in total allowed", MaxDigits)
)

// Limit is the smallest magnitude that no longer fits the storage precision.
var Limit = decimal.New(1, MaxDigits-Scale)

var supported = map[Currency]string{
	RUB: "Russian Ruble",
	USD: "US Dollar",
}

// ParseCurrency normalises and validates a currency code.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if _, ok := supported[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return c, nil
}

// Name returns the display name of the currency.
func (c Currency) Name() string {
	return supported[c]
}

// Check reports whether v fits the ledger's fixed-point precision. Values are
// never rounded to make them fit. Only the coefficient and exponent are
// inspected, so values like 1e-99999999 are rejected without rescaling.
func Check(v decimal.Decimal) error {
	_, _, err := reduce(v)
	return err
}

// reduce strips trailing zeros from v's coefficient down to Scale fractional
// digits and validates the result.
func reduce(v decimal.Decimal) (*big.Int, int32, error) {
	coef := v.Coefficient()
	exp := v.Exponent()
	if coef.Sign() == 0 {
		return coef, 0, nil
	}
	digits := len(new(big.Int).Abs(coef).String())
	if digits > maxCoefficientDigits {
		return nil, 0, ErrTooManyDigits
	}

	ten := big.NewInt(10)
	q, r := new(big.Int), new(big.Int)
	for exp < -Scale {
		q.QuoRem(coef, ten, r)
		if r.Sign() != 0 {
			break
		}
		coef.Set(q)
		exp++
		digits--
	}
	if exp < -Scale {
		return nil, 0, ErrTooManyDecimals
	}
	// |coef * 10^exp| < 10^(MaxDigits-Scale)
	if int64(digits)+int64(exp) > MaxDigits-Scale {
		return nil, 0, ErrTooManyDigits
	}
	return coef, exp, nil
}

// Fits reports whether the integer part of v stays within the storage bound.
// v must already have passed Check.
func Fits(v decimal.Decimal) bool {
	return v.Abs().LessThan(Limit)
}

// Normalize returns v rescaled to exactly Scale fractional digits. Callers
// run Check first, so no precision is lost.
func Normalize(v decimal.Decimal) decimal.Decimal {
	coef, exp, err := reduce(v)
	if err != nil {
		return v.Round(Scale)
	}
	return decimal.NewFromBigInt(coef, exp).Round(Scale)
}

// Format renders v with exactly Scale fractional digits.
func Format(v decimal.Decimal) string {
	return v.StringFixed(Scale)
}
