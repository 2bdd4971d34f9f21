package bank

import (
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// Fee is what one input entry pays on top of its principal in one denom.
type Fee struct {
	Address    string
	Denom      string
	Burn       sdkmath.Int
	Commission sdkmath.Int
}

// Fees distributes the burn and commission of def across the inputs of tx.
//
// Only the matched part of the transfer between non-issuers is charged: each
// non-issuer input of amount a pays ceil(a*rate*num/den), where num and den
// are the smaller and the larger of the non-issuer input and output sums.
// Inputs from the issuer get a zero Fee. The result follows input order and
// has one entry per input that holds the denom.
func Fees(def DenomDefinition, tx MultiSend) ([]Fee, error) {
	num, den, err := feeScale(def, tx)
	if err != nil {
		return nil, fmt.Errorf("fee scale of %s: %w", def.Denom, err)
	}

	var fees []Fee
	for _, in := range tx.Inputs {
		c, ok := in.Coins.Find(def.Denom)
		if !ok {
			continue
		}
		fee := Fee{
			Address:    in.Address,
			Denom:      def.Denom,
			Burn:       sdkmath.ZeroInt(),
			Commission: sdkmath.ZeroInt(),
		}
		if in.Address != def.Issuer {
			if fee.Burn, err = share(c.Value(), def.BurnRate, num, den); err != nil {
				return nil, fmt.Errorf("burn share of %s in %s: %w", in.Address, def.Denom, err)
			}
			if fee.Commission, err = share(c.Value(), def.CommissionRate, num, den); err != nil {
				return nil, fmt.Errorf("commission share of %s in %s: %w", in.Address, def.Denom, err)
			}
		}
		fees = append(fees, fee)
	}
	return fees, nil
}

// feeScale returns the proportional factor num/den applied to every
// non-issuer input of def. den is zero when nothing qualifies for fees.
func feeScale(def DenomDefinition, tx MultiSend) (num, den sdkmath.Int, err error) {
	in, err := tx.Inputs.NonIssuerCoinSum(def)
	if err != nil {
		return num, den, err
	}
	out, err := tx.Outputs.NonIssuerCoinSum(def)
	if err != nil {
		return num, den, err
	}
	if in.GT(out) {
		return out, in, nil
	}
	return in, out, nil
}

// share computes ceil(amount * rate * num / den) exactly. The product is
// formed unbounded and only the quotient has to fit.
func share(amount sdkmath.Int, rate Rate, num, den sdkmath.Int) (sdkmath.Int, error) {
	if den.IsZero() || num.IsZero() || rate.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	n := new(big.Int).Mul(bigOf(amount), rate.Num())
	n.Mul(n, bigOf(num))
	d := new(big.Int).Mul(rate.Denom(), bigOf(den))
	q, err := ceilDiv(n, d)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return bounded(q)
}
