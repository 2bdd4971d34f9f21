package bank

import (
	"cmp"
	"fmt"
	"slices"

	sdkmath "cosmossdk.io/math"
)

type AccountDenom struct {
	Address string
	Denom   string
}

// DeltaMap accumulates signed balance changes. An absent key is zero.
type DeltaMap map[AccountDenom]sdkmath.Int

func (m DeltaMap) Add(address, denom string, amount sdkmath.Int) error {
	key := AccountDenom{Address: address, Denom: denom}
	v, ok := m[key]
	if !ok {
		v = sdkmath.ZeroInt()
	}
	sum, err := SafeAdd(v, amount)
	if err != nil {
		return fmt.Errorf("change of %s in %s: %w", address, denom, err)
	}
	m[key] = sum
	return nil
}

func (m DeltaMap) Sub(address, denom string, amount sdkmath.Int) error {
	return m.Add(address, denom, negate(amount))
}

func negate(a sdkmath.Int) sdkmath.Int {
	if a.IsNil() {
		return sdkmath.ZeroInt()
	}
	return a.Neg()
}

// Keys returns the keys sorted by address, then denom.
func (m DeltaMap) Keys() []AccountDenom {
	keys := make([]AccountDenom, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b AccountDenom) int {
		if c := cmp.Compare(a.Address, b.Address); c != 0 {
			return c
		}
		return cmp.Compare(a.Denom, b.Denom)
	})
	return keys
}

// Balances materializes the non-zero changes, one Balance per address,
// sorted by address and then denom.
func (m DeltaMap) Balances() Balances {
	var out Balances
	for _, k := range m.Keys() {
		v := m[k]
		if v.IsZero() {
			continue
		}
		if n := len(out); n == 0 || out[n-1].Address != k.Address {
			out = append(out, Balance{Address: k.Address})
		}
		last := &out[len(out)-1]
		last.Coins = append(last.Coins, NewCoinFromInt(k.Denom, v))
	}
	return out
}
