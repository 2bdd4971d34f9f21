package bank

import (
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// Coin is an amount of a single denom. Amounts held in balances and in
// transaction entries are non-negative; amounts in a change set are signed.
type Coin struct {
	Denom  string      `json:"denom"`
	Amount sdkmath.Int `json:"amount"`
}

func NewCoin(denom string, amount int64) Coin {
	return Coin{Denom: denom, Amount: sdkmath.NewInt(amount)}
}

func NewCoinFromInt(denom string, amount sdkmath.Int) Coin {
	return Coin{Denom: denom, Amount: amount}
}

// Value returns the amount, treating a nil amount as zero.
func (c Coin) Value() sdkmath.Int {
	if c.Amount.IsNil() {
		return sdkmath.ZeroInt()
	}
	return c.Amount
}

func (c Coin) String() string {
	return fmt.Sprintf("%s%s", c.Value(), c.Denom)
}

type Coins []Coin

// Find returns the first coin of the given denom.
func (cs Coins) Find(denom string) (Coin, bool) {
	for _, c := range cs {
		if c.Denom == denom {
			return c, true
		}
	}
	return Coin{}, false
}

// AmountOf returns the first amount held in denom, or zero.
func (cs Coins) AmountOf(denom string) sdkmath.Int {
	c, ok := cs.Find(denom)
	if !ok {
		return sdkmath.ZeroInt()
	}
	return c.Value()
}

// Balance is the set of coins held by, sent from or sent to one address.
type Balance struct {
	Address string `json:"address"`
	Coins   Coins  `json:"coins"`
}

type Balances []Balance

// Find returns the first balance of the given address.
func (bs Balances) Find(address string) (Balance, bool) {
	for _, b := range bs {
		if b.Address == address {
			return b, true
		}
	}
	return Balance{}, false
}

// CoinSum sums the amounts of denom across all balances. Each balance
// contributes its first coin of that denom.
func (bs Balances) CoinSum(denom string) (sdkmath.Int, error) {
	return bs.sum(denom, func(Balance) bool { return true })
}

// NonIssuerCoinSum is CoinSum over the balances whose address is not the
// issuer of def.
func (bs Balances) NonIssuerCoinSum(def DenomDefinition) (sdkmath.Int, error) {
	return bs.sum(def.Denom, func(b Balance) bool { return b.Address != def.Issuer })
}

func (bs Balances) sum(denom string, include func(Balance) bool) (sdkmath.Int, error) {
	sum := new(big.Int)
	for _, b := range bs {
		if !include(b) {
			continue
		}
		if c, ok := b.Coins.Find(denom); ok {
			sum.Add(sum, bigOf(c.Amount))
		}
	}
	return bounded(sum)
}

// AmountOf returns the amount of denom held by address in the first
// matching balance, or zero.
func (bs Balances) AmountOf(address, denom string) sdkmath.Int {
	b, ok := bs.Find(address)
	if !ok {
		return sdkmath.ZeroInt()
	}
	return b.Coins.AmountOf(denom)
}

// Addresses lists the distinct addresses in order of first appearance.
func (bs Balances) Addresses() []string {
	seen := make(map[string]struct{}, len(bs))
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		if _, ok := seen[b.Address]; ok {
			continue
		}
		seen[b.Address] = struct{}{}
		out = append(out, b.Address)
	}
	return out
}
