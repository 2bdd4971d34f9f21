package bank

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// CalculateBalanceChanges computes the balance changes a multisend causes,
// negative for deductions and positive for credits, or rejects it.
//
// Only the denoms in definitions are processed; coins of any other denom in
// tx are ignored. For each definition the inputs and outputs must balance
// (ErrInputOutputMismatch). Every non-issuer sender then pays its burn and
// commission share on top of the principal and the commission is credited to
// the issuer. Once all denoms are processed, every deduction is checked
// against original (ErrInsufficientBalance). Amounts that leave the 256-bit
// range fail with ErrArithmetic.
//
// The arguments are not modified and the result is sorted by address, then
// denom, with zero changes omitted.
func CalculateBalanceChanges(original Balances, definitions []DenomDefinition, tx MultiSend) (Balances, error) {
	changes := make(DeltaMap)
	for _, def := range definitions {
		if err := checkConservation(def.Denom, tx); err != nil {
			return nil, err
		}
		if err := processInputs(def, tx, changes); err != nil {
			return nil, err
		}
		if err := processOutputs(def, tx, changes); err != nil {
			return nil, err
		}
	}

	if err := checkSolvency(original, changes); err != nil {
		return nil, err
	}
	return changes.Balances(), nil
}

func checkConservation(denom string, tx MultiSend) error {
	in, err := tx.Inputs.CoinSum(denom)
	if err != nil {
		return fmt.Errorf("inputs of %s: %w", denom, err)
	}
	out, err := tx.Outputs.CoinSum(denom)
	if err != nil {
		return fmt.Errorf("outputs of %s: %w", denom, err)
	}
	if !in.Equal(out) {
		return fmt.Errorf("%w: %s: inputs %s, outputs %s", ErrInputOutputMismatch, denom, in, out)
	}
	return nil
}

func processInputs(def DenomDefinition, tx MultiSend, changes DeltaMap) error {
	fees, err := Fees(def, tx)
	if err != nil {
		return err
	}
	// Fees holds one entry per input holding the denom, in input order.
	i := 0
	for _, in := range tx.Inputs {
		c, ok := in.Coins.Find(def.Denom)
		if !ok {
			continue
		}
		fee := fees[i]
		i++

		total, err := SafeAdd(c.Value(), fee.Burn)
		if err == nil {
			total, err = SafeAdd(total, fee.Commission)
		}
		if err != nil {
			return fmt.Errorf("debit of %s in %s: %w", in.Address, def.Denom, err)
		}
		if err := changes.Sub(in.Address, def.Denom, total); err != nil {
			return err
		}
		if err := changes.Add(def.Issuer, def.Denom, fee.Commission); err != nil {
			return err
		}
	}
	return nil
}

func processOutputs(def DenomDefinition, tx MultiSend, changes DeltaMap) error {
	for _, out := range tx.Outputs {
		if c, ok := out.Coins.Find(def.Denom); ok {
			if err := changes.Add(out.Address, def.Denom, c.Value()); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkSolvency(original Balances, changes DeltaMap) error {
	available := indexBalances(original)
	for _, k := range changes.Keys() {
		delta := changes[k]
		if !delta.IsNegative() {
			continue
		}
		required := delta.Neg()
		have, ok := available[k]
		if !ok {
			have = sdkmath.ZeroInt()
		}
		if have.LT(required) {
			return fmt.Errorf("%w: %s needs %s%s, has %s%s",
				ErrInsufficientBalance, k.Address, required, k.Denom, have, k.Denom)
		}
	}
	return nil
}

// indexBalances keys the first amount of every (address, denom) pair.
func indexBalances(bs Balances) map[AccountDenom]sdkmath.Int {
	idx := make(map[AccountDenom]sdkmath.Int)
	for _, b := range bs {
		for _, c := range b.Coins {
			k := AccountDenom{Address: b.Address, Denom: c.Denom}
			if _, ok := idx[k]; ok {
				continue
			}
			idx[k] = c.Value()
		}
	}
	return idx
}

// TotalBurn returns how much of denom a change set removes from
// circulation, the negated sum of its changes in that denom.
func TotalBurn(changes Balances, denom string) (sdkmath.Int, error) {
	sum, err := changes.CoinSum(denom)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return sum.Neg(), nil
}
