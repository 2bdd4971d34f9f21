package bank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Rate is an exact non-negative rational. The zero value is a rate of 0.
type Rate struct {
	r *big.Rat
}

func NewRate(num, den int64) (Rate, error) {
	if den == 0 {
		return Rate{}, fmt.Errorf("%w: zero denominator", ErrInvalidRate)
	}
	r := big.NewRat(num, den)
	if r.Sign() < 0 {
		return Rate{}, fmt.Errorf("%w: %s is negative", ErrInvalidRate, r.RatString())
	}
	return Rate{r: r}, nil
}

// ParseRate parses a decimal ("0.08", "8e-2") or fraction ("2/25") into an
// exact rate.
func ParseRate(s string) (Rate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Rate{}, fmt.Errorf("%w: empty", ErrInvalidRate)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Rate{}, fmt.Errorf("%w: cannot parse %q", ErrInvalidRate, s)
	}
	if r.Sign() < 0 {
		return Rate{}, fmt.Errorf("%w: %q is negative", ErrInvalidRate, s)
	}
	return Rate{r: r}, nil
}

// MustParseRate is like ParseRate but panics on malformed input. It is meant
// for rates written as literals.
func MustParseRate(s string) Rate {
	r, err := ParseRate(s)
	if err != nil {
		panic(err)
	}
	return r
}

// RateFromFloat converts f through its shortest decimal representation, so
// 0.08 becomes exactly 2/25 rather than the nearest binary fraction.
func RateFromFloat(f float64) (Rate, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Rate{}, fmt.Errorf("%w: %v is not finite", ErrInvalidRate, f)
	}
	return ParseRate(strconv.FormatFloat(f, 'g', -1, 64))
}

func (r Rate) rat() *big.Rat {
	if r.r == nil {
		return new(big.Rat)
	}
	return r.r
}

// Num returns a copy of the numerator in lowest terms.
func (r Rate) Num() *big.Int {
	return new(big.Int).Set(r.rat().Num())
}

// Denom returns a copy of the denominator in lowest terms, always positive.
func (r Rate) Denom() *big.Int {
	return new(big.Int).Set(r.rat().Denom())
}

func (r Rate) IsZero() bool {
	return r.rat().Sign() == 0
}

// String renders the rate as a fraction, or as an integer when the
// denominator is 1.
func (r Rate) String() string {
	return r.rat().RatString()
}

func (r Rate) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rate) UnmarshalText(text []byte) error {
	parsed, err := ParseRate(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// UnmarshalJSON accepts both a string ("0.08", "2/25") and a bare number.
// A bare number is parsed from its literal text, never through float64.
func (r *Rate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return r.UnmarshalText([]byte(s))
	}
	return r.UnmarshalText(data)
}

var rateOne = big.NewRat(1, 1)

// unit reports whether r lies in [0,1].
func (r Rate) unit() bool {
	return r.rat().Sign() >= 0 && r.rat().Cmp(rateOne) <= 0
}
