package bank

import "fmt"

// MultiSend moves coins of any number of denoms from a set of input
// addresses to a set of output addresses. For every denom the inputs and
// the outputs must add up to the same amount.
type MultiSend struct {
	Inputs  Balances `json:"inputs"`
	Outputs Balances `json:"outputs"`
}

// Denoms lists the distinct denoms referenced by the inputs and outputs in
// order of first appearance.
func (m MultiSend) Denoms() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, bs := range []Balances{m.Inputs, m.Outputs} {
		for _, b := range bs {
			for _, c := range b.Coins {
				if _, ok := seen[c.Denom]; ok {
					continue
				}
				seen[c.Denom] = struct{}{}
				out = append(out, c.Denom)
			}
		}
	}
	return out
}

// ValidateBasic performs the stateless checks an admission layer runs before
// calculating balance changes: both sides present, addresses and denoms set,
// amounts non-negative and every denom at most once per entry.
func (m MultiSend) ValidateBasic() error {
	if len(m.Inputs) == 0 {
		return fmt.Errorf("%w: no inputs", ErrInvalidMultiSend)
	}
	if len(m.Outputs) == 0 {
		return fmt.Errorf("%w: no outputs", ErrInvalidMultiSend)
	}
	if err := validateEntries("input", m.Inputs); err != nil {
		return err
	}
	return validateEntries("output", m.Outputs)
}

func validateEntries(side string, bs Balances) error {
	for i, b := range bs {
		if b.Address == "" {
			return fmt.Errorf("%w: %s %d: empty address", ErrInvalidMultiSend, side, i)
		}
		seen := make(map[string]struct{}, len(b.Coins))
		for _, c := range b.Coins {
			if c.Denom == "" {
				return fmt.Errorf("%w: %s %s: empty denom", ErrInvalidMultiSend, side, b.Address)
			}
			if c.Value().IsNegative() {
				return fmt.Errorf("%w: %s %s: negative amount %s", ErrInvalidMultiSend, side, b.Address, c)
			}
			if _, ok := seen[c.Denom]; ok {
				return fmt.Errorf("%w: %s %s: duplicate denom %s", ErrInvalidMultiSend, side, b.Address, c.Denom)
			}
			seen[c.Denom] = struct{}{}
		}
	}
	return nil
}
