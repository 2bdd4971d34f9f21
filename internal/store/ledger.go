package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	sdkmath "cosmossdk.io/math"

	"github.com/eigerco/multisend/internal/bank"
	"github.com/eigerco/multisend/pkg/db"
	"github.com/eigerco/multisend/pkg/db/pebble"
)

var (
	ErrLedgerClosed       = errors.New("ledger store is closed")
	ErrDefinitionNotFound = errors.New("denom definition not found")
	ErrNegativeBalance    = errors.New("negative balance")
)

// Ledger persists account balances, denom definitions and the circulating
// supply of every denom.
type Ledger struct {
	db     db.KVStore
	closed atomic.Bool
	// serializes the read-modify-write in ApplyChanges
	mu sync.Mutex
}

type balanceRecord struct {
	Address string      `json:"address"`
	Denom   string      `json:"denom"`
	Amount  sdkmath.Int `json:"amount"`
}

// NewLedger creates a new ledger store using KVStore
func NewLedger(db db.KVStore) *Ledger {
	return &Ledger{db: db}
}

// PutDefinition validates and stores a denom definition, replacing any
// previous definition of the same denom.
func (l *Ledger) PutDefinition(def bank.DenomDefinition) error {
	if l.closed.Load() {
		return ErrLedgerClosed
	}
	if err := def.Validate(); err != nil {
		return err
	}
	bytes, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}
	if err := l.db.Put(definitionKey(def.Denom), bytes); err != nil {
		return fmt.Errorf("put definition: %w", err)
	}
	return nil
}

// Definition retrieves the definition of denom
func (l *Ledger) Definition(denom string) (bank.DenomDefinition, error) {
	if l.closed.Load() {
		return bank.DenomDefinition{}, ErrLedgerClosed
	}
	bytes, err := l.db.Get(definitionKey(denom))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return bank.DenomDefinition{}, fmt.Errorf("%w: %s", ErrDefinitionNotFound, denom)
		}
		return bank.DenomDefinition{}, fmt.Errorf("get definition: %w", err)
	}
	var def bank.DenomDefinition
	if err := json.Unmarshal(bytes, &def); err != nil {
		return bank.DenomDefinition{}, fmt.Errorf("unmarshal definition: %w", err)
	}
	return def, nil
}

// Definitions returns every stored definition ordered by denom.
func (l *Ledger) Definitions() ([]bank.DenomDefinition, error) {
	if l.closed.Load() {
		return nil, ErrLedgerClosed
	}
	prefix := []byte{prefixDefinition}
	iter, err := l.db.NewIterator(prefix, db.PrefixEnd(prefix))
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck

	var defs []bank.DenomDefinition
	for iter.Next() {
		value, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read definition: %w", err)
		}
		var def bank.DenomDefinition
		if err := json.Unmarshal(value, &def); err != nil {
			return nil, fmt.Errorf("unmarshal definition: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Balance returns the amount of denom held by address, zero if none.
func (l *Ledger) Balance(address, denom string) (sdkmath.Int, error) {
	if l.closed.Load() {
		return sdkmath.Int{}, ErrLedgerClosed
	}
	return l.amount(balanceKey(address, denom))
}

// AccountBalance returns every non-zero coin held by address, ordered by
// denom.
func (l *Ledger) AccountBalance(address string) (bank.Balance, error) {
	if l.closed.Load() {
		return bank.Balance{}, ErrLedgerClosed
	}
	prefix := accountPrefix(address)
	iter, err := l.db.NewIterator(prefix, db.PrefixEnd(prefix))
	if err != nil {
		return bank.Balance{}, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck

	balance := bank.Balance{Address: address}
	for iter.Next() {
		value, err := iter.Value()
		if err != nil {
			return bank.Balance{}, fmt.Errorf("read balance: %w", err)
		}
		var rec balanceRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return bank.Balance{}, fmt.Errorf("unmarshal balance: %w", err)
		}
		balance.Coins = append(balance.Coins, bank.NewCoinFromInt(rec.Denom, rec.Amount))
	}
	return balance, nil
}

// Balances snapshots the accounts of the given addresses, in order, so the
// result can be passed as the original balances of a calculation.
func (l *Ledger) Balances(addresses ...string) (bank.Balances, error) {
	out := make(bank.Balances, 0, len(addresses))
	for _, a := range addresses {
		b, err := l.AccountBalance(a)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Supply returns the circulating amount of denom.
func (l *Ledger) Supply(denom string) (sdkmath.Int, error) {
	if l.closed.Load() {
		return sdkmath.Int{}, ErrLedgerClosed
	}
	return l.amount(supplyKey(denom))
}

// Credit mints coins into the account of address.
func (l *Ledger) Credit(address string, coins bank.Coins) error {
	for _, c := range coins {
		if c.Value().IsNegative() {
			return fmt.Errorf("credit %s to %s: negative amount", c, address)
		}
	}
	return l.ApplyChanges(bank.Balances{{Address: address, Coins: coins}})
}

// ApplyChanges adds a set of signed balance changes in one atomic batch.
// Nothing is written when any resulting balance would be negative. The
// supply of every denom moves by the sum of its changes, so a change set
// that burns lowers it by the burnt amount. A balance or supply leaving the
// 256-bit range fails with bank.ErrArithmetic.
func (l *Ledger) ApplyChanges(changes bank.Balances) error {
	if l.closed.Load() {
		return ErrLedgerClosed
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	type pending struct {
		rec balanceRecord
		key []byte
	}
	var (
		order    []string
		balances = make(map[string]*pending)
		supply   = make(map[string]sdkmath.Int)
		denoms   []string
	)
	for _, b := range changes {
		for _, c := range b.Coins {
			key := balanceKey(b.Address, c.Denom)
			p, ok := balances[string(key)]
			if !ok {
				current, err := l.amount(key)
				if err != nil {
					return err
				}
				p = &pending{key: key, rec: balanceRecord{Address: b.Address, Denom: c.Denom, Amount: current}}
				balances[string(key)] = p
				order = append(order, string(key))
			}
			amount, err := bank.SafeAdd(p.rec.Amount, c.Value())
			if err != nil {
				return fmt.Errorf("balance of %s in %s: %w", b.Address, c.Denom, err)
			}
			p.rec.Amount = amount

			s, ok := supply[c.Denom]
			if !ok {
				s = sdkmath.ZeroInt()
				denoms = append(denoms, c.Denom)
			}
			if supply[c.Denom], err = bank.SafeAdd(s, c.Value()); err != nil {
				return fmt.Errorf("supply change of %s: %w", c.Denom, err)
			}
		}
	}

	batch := l.db.NewBatch()
	defer batch.Close() //nolint:errcheck

	for _, k := range order {
		p := balances[k]
		if p.rec.Amount.IsNegative() {
			return fmt.Errorf("%w: %s would hold %s%s", ErrNegativeBalance, p.rec.Address, p.rec.Amount, p.rec.Denom)
		}
		if p.rec.Amount.IsZero() {
			if err := batch.Delete(p.key); err != nil {
				return fmt.Errorf("delete balance: %w", err)
			}
			continue
		}
		bytes, err := json.Marshal(p.rec)
		if err != nil {
			return fmt.Errorf("marshal balance: %w", err)
		}
		if err := batch.Put(p.key, bytes); err != nil {
			return fmt.Errorf("put balance: %w", err)
		}
	}

	for _, denom := range denoms {
		current, err := l.amount(supplyKey(denom))
		if err != nil {
			return err
		}
		current, err = bank.SafeAdd(current, supply[denom])
		if err != nil {
			return fmt.Errorf("supply of %s: %w", denom, err)
		}
		if current.IsNegative() {
			return fmt.Errorf("%w: supply of %s would be %s", ErrNegativeBalance, denom, current)
		}
		if err := batch.Put(supplyKey(denom), []byte(current.String())); err != nil {
			return fmt.Errorf("put supply: %w", err)
		}
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf(ErrFailedBatchCommit, err)
	}
	return nil
}

// amount reads either a balance record or a supply value, zero if absent.
func (l *Ledger) amount(key []byte) (sdkmath.Int, error) {
	bytes, err := l.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return sdkmath.ZeroInt(), nil
		}
		return sdkmath.Int{}, fmt.Errorf("get %s: %w", PrefixToString(key[0]), err)
	}
	if key[0] == prefixSupply {
		v, ok := sdkmath.NewIntFromString(string(bytes))
		if !ok {
			return sdkmath.Int{}, fmt.Errorf("unmarshal supply: invalid amount %q", bytes)
		}
		return v, nil
	}
	var rec balanceRecord
	if err := json.Unmarshal(bytes, &rec); err != nil {
		return sdkmath.Int{}, fmt.Errorf("unmarshal balance: %w", err)
	}
	if rec.Amount.IsNil() {
		return sdkmath.ZeroInt(), nil
	}
	return rec.Amount, nil
}

// Close closes the underlying store. Closing twice is a no-op.
func (l *Ledger) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	return l.db.Close()
}
