// Package price implements fixed-point price arithmetic on 128-bit signed
// integers with 8 decimal places. All operations are checked: results that
// leave the 128-bit range fail with ErrOverflow instead of wrapping or
// saturating.
package price

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Decimals is the number of fixed-point decimal places carried by a Price.
const Decimals = 8

var (
	// ErrOverflow indicates a result outside the signed 128-bit range.
	ErrOverflow = errors.New("price: arithmetic overflow")

	// ErrDivideByZero indicates a division by a zero price.
	ErrDivideByZero = errors.New("price: division by zero")

	// ErrInvalidDecimal indicates an unparseable decimal string.
	ErrInvalidDecimal = errors.New("price: invalid decimal string")
)

var (
	maxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	unitInt   = big.NewInt(100_000_000)
)

// Price is a signed 128-bit fixed-point value with 8 decimal places.
// The zero value is a valid Price of zero. Price values are immutable;
// every operation returns a fresh value.
type Price struct {
	v big.Int
}

// Unit returns 1.0 in fixed-point representation (10^8 raw units).
func Unit() Price {
	return FromRaw(100_000_000)
}

// Zero returns the zero price.
func Zero() Price {
	return Price{}
}

// FromRaw builds a Price from raw fixed-point units (1 == 10^-8).
func FromRaw(raw int64) Price {
	var p Price
	p.v.SetInt64(raw)
	return p
}

// FromInt builds a Price from a whole number of price units.
func FromInt(n int64) (Price, error) {
	var p Price
	p.v.Mul(big.NewInt(n), unitInt)
	if !p.inRange() {
		return Price{}, ErrOverflow
	}
	return p, nil
}

// ParseDecimal parses a decimal string like "1.5" or "-0.00000001" into a
// Price. At most 8 fractional digits are accepted.
func ParseDecimal(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Price{}, ErrInvalidDecimal
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" && frac == "" {
		return Price{}, ErrInvalidDecimal
	}
	if len(frac) > Decimals {
		return Price{}, fmt.Errorf("%w: more than %d fractional digits", ErrInvalidDecimal, Decimals)
	}
	digits := whole + frac + strings.Repeat("0", Decimals-len(frac))
	var p Price
	if _, ok := p.v.SetString(digits, 10); !ok {
		return Price{}, ErrInvalidDecimal
	}
	if neg {
		p.v.Neg(&p.v)
	}
	if !p.inRange() {
		return Price{}, ErrOverflow
	}
	return p, nil
}

func (p Price) inRange() bool {
	return p.v.Cmp(minInt128) >= 0 && p.v.Cmp(maxInt128) <= 0
}

// Raw returns the raw fixed-point units as int64 when they fit, along with
// a flag indicating whether they did.
func (p Price) Raw() (int64, bool) {
	if !p.v.IsInt64() {
		return 0, false
	}
	return p.v.Int64(), true
}

// Cmp compares p to q the way big.Int.Cmp does.
func (p Price) Cmp(q Price) int {
	return p.v.Cmp(&q.v)
}

// IsZero reports whether the price is exactly zero.
func (p Price) IsZero() bool {
	return p.v.Sign() == 0
}

// IsNegative reports whether the price is below zero.
func (p Price) IsNegative() bool {
	return p.v.Sign() < 0
}

// IsPositive reports whether the price is above zero.
func (p Price) IsPositive() bool {
	return p.v.Sign() > 0
}

// Add returns p + q, failing with ErrOverflow outside the 128-bit range.
func (p Price) Add(q Price) (Price, error) {
	var r Price
	r.v.Add(&p.v, &q.v)
	if !r.inRange() {
		return Price{}, ErrOverflow
	}
	return r, nil
}

// Sub returns p - q, failing with ErrOverflow outside the 128-bit range.
func (p Price) Sub(q Price) (Price, error) {
	var r Price
	r.v.Sub(&p.v, &q.v)
	if !r.inRange() {
		return Price{}, ErrOverflow
	}
	return r, nil
}

// MulRaw returns p * n for an integer factor n.
func (p Price) MulRaw(n int64) (Price, error) {
	var r Price
	r.v.Mul(&p.v, big.NewInt(n))
	if !r.inRange() {
		return Price{}, ErrOverflow
	}
	return r, nil
}

// MulDiv returns p * mul / div computed at full intermediate precision.
// The quotient truncates toward zero at the fixed-point resolution; only
// the final result is range-checked, so intermediates never overflow.
func (p Price) MulDiv(mul, div Price) (Price, error) {
	if div.v.Sign() == 0 {
		return Price{}, ErrDivideByZero
	}
	var r Price
	r.v.Mul(&p.v, &mul.v)
	r.v.Quo(&r.v, &div.v)
	if !r.inRange() {
		return Price{}, ErrOverflow
	}
	return r, nil
}

// Scale returns p scaled by the ratio num/den using full-precision
// intermediates. Used for percentage adjustments like a 110% floor markup.
func (p Price) Scale(num, den int64) (Price, error) {
	if den == 0 {
		return Price{}, ErrDivideByZero
	}
	var r Price
	r.v.Mul(&p.v, big.NewInt(num))
	r.v.Quo(&r.v, big.NewInt(den))
	if !r.inRange() {
		return Price{}, ErrOverflow
	}
	return r, nil
}

// Clamp returns p bounded to [lo, hi]. The upper bound wins when the
// bounds cross.
func (p Price) Clamp(lo, hi Price) Price {
	r := p
	if r.Cmp(lo) < 0 {
		r = lo
	}
	if r.Cmp(hi) > 0 {
		r = hi
	}
	return r
}

// String renders the price as a decimal with up to 8 fractional digits,
// trailing zeros trimmed.
func (p Price) String() string {
	var q, rem big.Int
	q.QuoRem(&p.v, unitInt, &rem)
	if rem.Sign() == 0 {
		return q.String()
	}
	sign := ""
	if p.v.Sign() < 0 {
		sign = "-"
		q.Abs(&q)
		rem.Abs(&rem)
	}
	frac := strings.TrimRight(fmt.Sprintf("%08s", rem.String()), "0")
	return fmt.Sprintf("%s%s.%s", sign, q.String(), frac)
}

// MarshalBinary encodes the price as a sign byte followed by the
// big-endian magnitude. Used by the state codec.
func (p Price) MarshalBinary() ([]byte, error) {
	sign := byte(0)
	if p.v.Sign() < 0 {
		sign = 1
	}
	var abs big.Int
	abs.Abs(&p.v)
	return append([]byte{sign}, abs.Bytes()...), nil
}

// UnmarshalBinary decodes the MarshalBinary representation.
func (p *Price) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return errors.New("price: empty binary representation")
	}
	p.v.SetBytes(data[1:])
	if data[0] == 1 {
		p.v.Neg(&p.v)
	}
	if !p.inRange() {
		return ErrOverflow
	}
	return nil
}

// MarshalText renders the decimal form for JSON surfaces.
func (p Price) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses the decimal form.
func (p *Price) UnmarshalText(data []byte) error {
	parsed, err := ParseDecimal(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
