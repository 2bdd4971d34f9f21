package bank

import "fmt"

// DenomDefinition carries the issuer-defined attributes of a denom.
//
// BurnRate and CommissionRate apply on every transfer that is not from the
// issuer: the sender pays amount*rate on top of the transferred amount,
// rounded up. The burnt part leaves circulation, the commission is credited
// to Issuer.
type DenomDefinition struct {
	Denom          string `json:"denom"`
	Issuer         string `json:"issuer"`
	BurnRate       Rate   `json:"burn_rate"`
	CommissionRate Rate   `json:"commission_rate"`
}

func (d DenomDefinition) Validate() error {
	if d.Denom == "" {
		return fmt.Errorf("%w: empty denom", ErrInvalidDefinition)
	}
	if d.Issuer == "" {
		return fmt.Errorf("%w: %s: empty issuer", ErrInvalidDefinition, d.Denom)
	}
	if !d.BurnRate.unit() {
		return fmt.Errorf("%w: %s: burn rate %s outside [0,1]", ErrInvalidDefinition, d.Denom, d.BurnRate)
	}
	if !d.CommissionRate.unit() {
		return fmt.Errorf("%w: %s: commission rate %s outside [0,1]", ErrInvalidDefinition, d.Denom, d.CommissionRate)
	}
	return nil
}

// ValidateDefinitions checks every definition and that no denom is defined
// twice. The sum of both rates may exceed 1.
func ValidateDefinitions(defs []DenomDefinition) error {
	seen := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return err
		}
		if _, ok := seen[d.Denom]; ok {
			return fmt.Errorf("%w: %s defined more than once", ErrInvalidDefinition, d.Denom)
		}
		seen[d.Denom] = struct{}{}
	}
	return nil
}
