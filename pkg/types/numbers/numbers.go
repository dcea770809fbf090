// Package numbers provides the fixed-point Amount type used for every stake,
// portion and fee value in the ledger.
//
// An Amount is an arbitrary precision integer that carries 18 implied decimal
// places, i.e. 1.0 == 10^18. Amounts are values: every operation returns a new
// Amount and never mutates its receiver.
package numbers

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the number of implied decimal places carried by an Amount.
const Decimals = 18

// displayDigits is how many fractional digits Format renders.
const displayDigits = 6

var (
	ErrUnderflow      = errors.New("amount underflow")
	ErrDivisionByZero = errors.New("amount division by zero")
	ErrInvalidAmount  = errors.New("invalid amount")
)

var unitInt = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// Amount is an integer scaled by 10^18. The zero value is a valid zero.
type Amount struct {
	v *big.Int
}

// Zero returns the zero amount.
func Zero() Amount {
	return Amount{}
}

// Unit returns 1.0, i.e. 10^18 least-precision units.
func Unit() Amount {
	return Amount{v: new(big.Int).Set(unitInt)}
}

// NewAmount returns an amount of n least-precision units.
func NewAmount(n int64) Amount {
	return Amount{v: big.NewInt(n)}
}

// NewAmountFromBigInt copies b into a new Amount.
func NewAmountFromBigInt(b *big.Int) Amount {
	if b == nil {
		return Zero()
	}
	return Amount{v: new(big.Int).Set(b)}
}

// ParseAmount parses a raw (already scaled) amount.
//
// Subgraph exports occasionally render large integers in decimal or scientific
// notation, so anything that decimal can parse is accepted as long as it
// denotes an integer.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero(), fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	if b, ok := new(big.Int).SetString(s, 10); ok {
		return Amount{v: b}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero(), fmt.Errorf("%w: '%s': %v", ErrInvalidAmount, s, err)
	}
	if !d.Equal(d.Truncate(0)) {
		return Zero(), fmt.Errorf("%w: '%s' is not an integer", ErrInvalidAmount, s)
	}
	return Amount{v: d.BigInt()}, nil
}

// MustParseAmount is ParseAmount for constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) int() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// BigInt returns a copy of the underlying integer.
func (a Amount) BigInt() *big.Int {
	return new(big.Int).Set(a.int())
}

func (a Amount) Add(b Amount) Amount {
	return Amount{v: new(big.Int).Add(a.int(), b.int())}
}

// Sub returns a - b, or ErrUnderflow if the result would be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	r := new(big.Int).Sub(a.int(), b.int())
	if r.Sign() < 0 {
		return Zero(), fmt.Errorf("%w: %s - %s", ErrUnderflow, a.String(), b.String())
	}
	return Amount{v: r}, nil
}

// SubUnchecked returns a - b even when the result is negative.
func (a Amount) SubUnchecked(b Amount) Amount {
	return Amount{v: new(big.Int).Sub(a.int(), b.int())}
}

func (a Amount) Mul(b Amount) Amount {
	return Amount{v: new(big.Int).Mul(a.int(), b.int())}
}

// Div returns a / b truncated toward zero.
func (a Amount) Div(b Amount) (Amount, error) {
	if b.IsZero() {
		return Zero(), ErrDivisionByZero
	}
	return Amount{v: new(big.Int).Quo(a.int(), b.int())}, nil
}

// MulDiv returns a * b / c truncated toward zero, without rounding the
// intermediate product.
func (a Amount) MulDiv(b, c Amount) (Amount, error) {
	return a.Mul(b).Div(c)
}

func (a Amount) IsZero() bool {
	return a.int().Sign() == 0
}

func (a Amount) IsNegative() bool {
	return a.int().Sign() < 0
}

func (a Amount) IsPositive() bool {
	return a.int().Sign() > 0
}

// Cmp returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.int().Cmp(b.int())
}

func (a Amount) Equal(b Amount) bool {
	return a.Cmp(b) == 0
}

func (a Amount) GreaterThan(b Amount) bool {
	return a.Cmp(b) > 0
}

func (a Amount) LessThan(b Amount) bool {
	return a.Cmp(b) < 0
}

// Abs returns |a|.
func (a Amount) Abs() Amount {
	return Amount{v: new(big.Int).Abs(a.int())}
}

// String returns the raw integer in base 10.
func (a Amount) String() string {
	return a.int().String()
}

// Format renders the amount as "left.right" where left is the integer part
// and right the first six fractional digits, truncated.
//
// A non-zero amount whose first six fractional digits are all zero renders
// as ".000001" so it never reads as an exact zero.
func (a Amount) Format() string {
	sign := ""
	if a.IsNegative() {
		sign = "-"
	}
	left, rem := new(big.Int).QuoRem(new(big.Int).Abs(a.int()), unitInt, new(big.Int))

	right := strings.Repeat("0", displayDigits)
	if rem.Sign() != 0 {
		digits := rem.String()
		padded := strings.Repeat("0", Decimals-len(digits)) + digits
		right = padded[:displayDigits]
		if right == strings.Repeat("0", displayDigits) {
			right = strings.Repeat("0", displayDigits-1) + "1"
		}
	}
	return fmt.Sprintf("%s%s.%s", sign, left.String(), right)
}

// MarshalJSON encodes the amount as a quoted base-10 string so no consumer
// ever round-trips it through a float.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidAmount, string(data))
		}
		s = n.String()
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalCSV renders the display format in CSV exports.
func (a Amount) MarshalCSV() (string, error) {
	return a.Format(), nil
}

// Value stores the amount as numeric text.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan reads a numeric column.
func (a *Amount) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*a = Zero()
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		*a = NewAmount(v)
		return nil
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidAmount, src)
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Sum adds up every amount.
func Sum(amounts ...Amount) Amount {
	total := new(big.Int)
	for _, a := range amounts {
		total.Add(total, a.int())
	}
	return Amount{v: total}
}
