package ledger

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/eigerco/multisend/internal/bank"
	"github.com/eigerco/multisend/internal/store"
	"github.com/eigerco/multisend/pkg/log"
)

var ErrUnknownDenom = errors.New("denom has no definition")

// Store is the part of the ledger store the processor needs.
type Store interface {
	Definition(denom string) (bank.DenomDefinition, error)
	Balances(addresses ...string) (bank.Balances, error)
	ApplyChanges(changes bank.Balances) error
}

type Options struct {
	// Strict rejects a multisend that moves a denom without a definition.
	// Otherwise such coins are left untouched, as the calculation skips them.
	Strict bool
}

// Processor admits multisend transactions against a ledger store.
type Processor struct {
	store Store
	opts  Options
}

func NewProcessor(s Store, opts Options) *Processor {
	return &Processor{store: s, opts: opts}
}

// Process validates tx, calculates its balance changes against the current
// balances of its senders and applies them. The applied changes are
// returned.
func (p *Processor) Process(tx bank.MultiSend) (bank.Balances, error) {
	if err := tx.ValidateBasic(); err != nil {
		return nil, err
	}

	defs, err := p.definitions(tx)
	if err != nil {
		return nil, err
	}

	// Only inputs can end up with a negative change.
	original, err := p.store.Balances(tx.Inputs.Addresses()...)
	if err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}

	changes, err := bank.CalculateBalanceChanges(original, defs, tx)
	if err != nil {
		log.Ledger.Warn().Err(err).
			Int("inputs", len(tx.Inputs)).
			Int("outputs", len(tx.Outputs)).
			Msg("multisend rejected")
		return nil, err
	}

	if err := p.store.ApplyChanges(changes); err != nil {
		return nil, fmt.Errorf("apply changes: %w", err)
	}

	for _, def := range defs {
		burnt, err := bank.TotalBurn(changes, def.Denom)
		if err != nil || burnt.IsZero() {
			continue
		}
		event := log.Ledger.Debug().
			Str("denom", def.Denom).
			Stringer("burnt", burnt)
		if c, err := commission(changes, tx, def); err == nil {
			event = event.Stringer("commission", c)
		}
		event.Msg("fees charged")
	}
	log.Ledger.Info().
		Int("accounts", len(changes)).
		Strs("denoms", denoms(defs)).
		Msg("multisend applied")

	return changes, nil
}

// definitions loads the definition of every denom tx moves.
func (p *Processor) definitions(tx bank.MultiSend) ([]bank.DenomDefinition, error) {
	var defs []bank.DenomDefinition
	for _, denom := range tx.Denoms() {
		def, err := p.store.Definition(denom)
		if errors.Is(err, store.ErrDefinitionNotFound) {
			if p.opts.Strict {
				return nil, fmt.Errorf("%w: %s", ErrUnknownDenom, denom)
			}
			log.Ledger.Debug().Str("denom", denom).Msg("skipping denom without definition")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load definition: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// commission is what the issuer gained beyond its own net transfer.
func commission(changes bank.Balances, tx bank.MultiSend, def bank.DenomDefinition) (sdkmath.Int, error) {
	c, err := bank.SafeSub(changes.AmountOf(def.Issuer, def.Denom), tx.Outputs.AmountOf(def.Issuer, def.Denom))
	if err != nil {
		return c, err
	}
	return bank.SafeAdd(c, tx.Inputs.AmountOf(def.Issuer, def.Denom))
}

func denoms(defs []bank.DenomDefinition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Denom
	}
	return out
}
