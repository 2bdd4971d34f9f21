package bank

import (
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// sdkmath.Int panics once a result leaves its 256-bit range. Every sum and
// product here goes through big.Int first and is bounded on the way back,
// so overflow surfaces as ErrArithmetic instead.

// SafeAdd returns a+b.
func SafeAdd(a, b sdkmath.Int) (sdkmath.Int, error) {
	return bounded(new(big.Int).Add(bigOf(a), bigOf(b)))
}

// SafeSub returns a-b.
func SafeSub(a, b sdkmath.Int) (sdkmath.Int, error) {
	return bounded(new(big.Int).Sub(bigOf(a), bigOf(b)))
}

func bounded(v *big.Int) (sdkmath.Int, error) {
	if v.BitLen() > sdkmath.MaxBitLen {
		return sdkmath.Int{}, fmt.Errorf("%w: %s exceeds %d bits", ErrArithmetic, v, sdkmath.MaxBitLen)
	}
	return sdkmath.NewIntFromBigInt(v), nil
}

// bigOf returns a copy of a as big.Int, zero for a nil Int.
func bigOf(a sdkmath.Int) *big.Int {
	if a.IsNil() {
		return new(big.Int)
	}
	return a.BigInt()
}

// ceilDiv returns n/d rounded towards positive infinity. n must be
// non-negative and d positive.
func ceilDiv(n, d *big.Int) (*big.Int, error) {
	if d.Sign() <= 0 {
		return nil, fmt.Errorf("%w: divide by %s", ErrArithmetic, d)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative dividend %s", ErrArithmetic, n)
	}
	q, m := new(big.Int).QuoRem(n, d, new(big.Int))
	if m.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q, nil
}
