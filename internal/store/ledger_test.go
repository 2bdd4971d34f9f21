package store

import (
	"math/big"
	"testing"

	sdkmath "cosmossdk.io/math"

	"github.com/eigerco/multisend/internal/bank"
	"github.com/eigerco/multisend/pkg/db/pebble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	l := NewLedger(kv)
	t.Cleanup(func() { l.Close() }) //nolint:errcheck
	return l
}

func testDefinition(denom, issuer string) bank.DenomDefinition {
	return bank.DenomDefinition{
		Denom:          denom,
		Issuer:         issuer,
		BurnRate:       bank.MustParseRate("0.08"),
		CommissionRate: bank.MustParseRate("0.12"),
	}
}

func Test_PutGetDefinition(t *testing.T) {
	l := newLedger(t)
	def := testDefinition("denom1", "issuer_account_A")
	require.NoError(t, l.PutDefinition(def))

	got, err := l.Definition("denom1")
	require.NoError(t, err)
	assert.Equal(t, "denom1", got.Denom)
	assert.Equal(t, "issuer_account_A", got.Issuer)
	assert.Equal(t, def.BurnRate.String(), got.BurnRate.String())
	assert.Equal(t, def.CommissionRate.String(), got.CommissionRate.String())

	_, err = l.Definition("denom2")
	require.ErrorIs(t, err, ErrDefinitionNotFound)
}

func Test_PutDefinitionRejectsInvalid(t *testing.T) {
	l := newLedger(t)
	def := testDefinition("denom1", "")
	require.ErrorIs(t, l.PutDefinition(def), bank.ErrInvalidDefinition)
}

func Test_Definitions(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.PutDefinition(testDefinition("denom2", "B")))
	require.NoError(t, l.PutDefinition(testDefinition("denom1", "A")))

	// Balances live under another prefix and must not show up.
	require.NoError(t, l.Credit("account1", bank.Coins{bank.NewCoin("denom1", 5)}))

	defs, err := l.Definitions()
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "denom1", defs[0].Denom)
	assert.Equal(t, "denom2", defs[1].Denom)
}

func Test_CreditAndBalances(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.Credit("account1", bank.Coins{bank.NewCoin("denom2", 20), bank.NewCoin("denom1", 10)}))
	require.NoError(t, l.Credit("account1", bank.Coins{bank.NewCoin("denom1", 5)}))
	require.NoError(t, l.Credit("account2", bank.Coins{bank.NewCoin("denom1", 7)}))

	b, err := l.Balance("account1", "denom1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), b.Int64())

	b, err = l.Balance("nobody", "denom1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.Int64())

	acc, err := l.AccountBalance("account1")
	require.NoError(t, err)
	assert.Equal(t, bank.Balance{
		Address: "account1",
		Coins:   bank.Coins{bank.NewCoin("denom1", 15), bank.NewCoin("denom2", 20)},
	}, acc)

	snapshot, err := l.Balances("account2", "nobody")
	require.NoError(t, err)
	assert.Equal(t, bank.Balances{
		{Address: "account2", Coins: bank.Coins{bank.NewCoin("denom1", 7)}},
		{Address: "nobody"},
	}, snapshot)

	supply, err := l.Supply("denom1")
	require.NoError(t, err)
	assert.Equal(t, int64(22), supply.Int64())

	require.Error(t, l.Credit("account1", bank.Coins{bank.NewCoin("denom1", -1)}))
}

func Test_ApplyChanges(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.Credit("account1", bank.Coins{bank.NewCoin("denom1", 1000)}))

	changes := bank.Balances{
		{Address: "account1", Coins: bank.Coins{bank.NewCoin("denom1", -1000)}},
		{Address: "account_recipient", Coins: bank.Coins{bank.NewCoin("denom1", 900)}},
		{Address: "issuer", Coins: bank.Coins{bank.NewCoin("denom1", 60)}},
	}
	require.NoError(t, l.ApplyChanges(changes))

	acc, err := l.AccountBalance("account1")
	require.NoError(t, err)
	assert.Empty(t, acc.Coins, "zero balances are removed")

	b, err := l.Balance("account_recipient", "denom1")
	require.NoError(t, err)
	assert.Equal(t, int64(900), b.Int64())

	supply, err := l.Supply("denom1")
	require.NoError(t, err)
	assert.Equal(t, int64(960), supply.Int64())
}

func Test_ApplyChangesIsAtomic(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.Credit("account1", bank.Coins{bank.NewCoin("denom1", 10)}))

	changes := bank.Balances{
		{Address: "account_recipient", Coins: bank.Coins{bank.NewCoin("denom1", 11)}},
		{Address: "account1", Coins: bank.Coins{bank.NewCoin("denom1", -11)}},
	}
	err := l.ApplyChanges(changes)
	require.ErrorIs(t, err, ErrNegativeBalance)

	b, err := l.Balance("account_recipient", "denom1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.Int64())
	b, err = l.Balance("account1", "denom1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), b.Int64())
}

func Test_ApplyChangesSumsRepeatedKeys(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.Credit("account1", bank.Coins{bank.NewCoin("denom1", 10)}))

	changes := bank.Balances{
		{Address: "account1", Coins: bank.Coins{bank.NewCoin("denom1", -8)}},
		{Address: "account1", Coins: bank.Coins{bank.NewCoin("denom1", 5)}},
	}
	require.NoError(t, l.ApplyChanges(changes))

	b, err := l.Balance("account1", "denom1")
	require.NoError(t, err)
	assert.Equal(t, "7", b.String())
}

func Test_ApplyChangesOverflow(t *testing.T) {
	l := newLedger(t)
	top := sdkmath.NewIntFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)))
	require.NoError(t, l.Credit("account1", bank.Coins{bank.NewCoinFromInt("denom1", top)}))

	err := l.Credit("account2", bank.Coins{bank.NewCoin("denom1", 1)})
	require.ErrorIs(t, err, bank.ErrArithmetic)

	err = l.Credit("account1", bank.Coins{bank.NewCoin("denom1", 1)})
	require.ErrorIs(t, err, bank.ErrArithmetic)

	b, err := l.Balance("account1", "denom1")
	require.NoError(t, err)
	assert.Equal(t, top.String(), b.String())
	supply, err := l.Supply("denom1")
	require.NoError(t, err)
	assert.Equal(t, top.String(), supply.String())
	b, err = l.Balance("account2", "denom1")
	require.NoError(t, err)
	assert.True(t, b.IsZero())
}

func Test_LedgerClosed(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.Close())
	// Closing a closed ledger should have no effect/error
	require.NoError(t, l.Close())

	_, err := l.Balance("account1", "denom1")
	require.ErrorIs(t, err, ErrLedgerClosed)
	_, err = l.Definition("denom1")
	require.ErrorIs(t, err, ErrLedgerClosed)
	_, err = l.Definitions()
	require.ErrorIs(t, err, ErrLedgerClosed)
	_, err = l.Supply("denom1")
	require.ErrorIs(t, err, ErrLedgerClosed)
	require.ErrorIs(t, l.ApplyChanges(nil), ErrLedgerClosed)
	require.ErrorIs(t, l.PutDefinition(testDefinition("denom1", "A")), ErrLedgerClosed)
}

func Test_Keys(t *testing.T) {
	assert.Equal(t, "balance", PrefixToString(balanceKey("a", "d")[0]))
	assert.Equal(t, "definition", PrefixToString(definitionKey("d")[0]))
	assert.Equal(t, "supply", PrefixToString(supplyKey("d")[0]))
	assert.Equal(t, "unknown", PrefixToString(0xff))

	// Fixed-width account prefix keeps one account's denoms together.
	assert.Len(t, accountPrefix("a"), 33)
	assert.Equal(t, accountPrefix("a"), balanceKey("a", "denom1")[:33])
	assert.NotEqual(t, accountPrefix("a"), accountPrefix("b"))
}
