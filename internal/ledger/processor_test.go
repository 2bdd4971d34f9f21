package ledger

import (
	"errors"
	"testing"

	"github.com/eigerco/multisend/internal/bank"
	"github.com/eigerco/multisend/internal/store"
	"github.com/eigerco/multisend/pkg/db/pebble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *store.Ledger {
	t.Helper()
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	l := store.NewLedger(kv)
	t.Cleanup(func() { l.Close() }) //nolint:errcheck

	require.NoError(t, l.PutDefinition(bank.DenomDefinition{
		Denom:          "denom1",
		Issuer:         "issuer_account_A",
		BurnRate:       bank.MustParseRate("0.08"),
		CommissionRate: bank.MustParseRate("0.12"),
	}))
	require.NoError(t, l.Credit("account1", bank.Coins{bank.NewCoin("denom1", 1_000_000)}))
	require.NoError(t, l.Credit("account2", bank.Coins{bank.NewCoin("denom1", 1_000_000)}))
	return l
}

func coin(denom string, amount int64) bank.Coins {
	return bank.Coins{bank.NewCoin(denom, amount)}
}

func balance(t *testing.T, l *store.Ledger, address, denom string) int64 {
	t.Helper()
	b, err := l.Balance(address, denom)
	require.NoError(t, err)
	return b.Int64()
}

func TestProcess_AppliesChanges(t *testing.T) {
	l := newStore(t)
	p := NewProcessor(l, Options{})

	tx := bank.MultiSend{
		Inputs: bank.Balances{
			{Address: "account1", Coins: coin("denom1", 650)},
			{Address: "account2", Coins: coin("denom1", 350)},
		},
		Outputs: bank.Balances{
			{Address: "account_recipient", Coins: coin("denom1", 500)},
			{Address: "issuer_account_A", Coins: coin("denom1", 500)},
		},
	}
	changes, err := p.Process(tx)
	require.NoError(t, err)
	assert.Equal(t, int64(-715), changes.AmountOf("account1", "denom1").Int64())

	assert.Equal(t, int64(1_000_000-715), balance(t, l, "account1", "denom1"))
	assert.Equal(t, int64(1_000_000-385), balance(t, l, "account2", "denom1"))
	assert.Equal(t, int64(500), balance(t, l, "account_recipient", "denom1"))
	assert.Equal(t, int64(560), balance(t, l, "issuer_account_A", "denom1"))

	supply, err := l.Supply("denom1")
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000-40), supply.Int64())
}

func TestProcess_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		tx      bank.MultiSend
		wantErr error
	}{
		{
			name: "invalid multisend",
			tx: bank.MultiSend{
				Inputs: bank.Balances{{Address: "account1", Coins: coin("denom1", 10)}},
			},
			wantErr: bank.ErrInvalidMultiSend,
		},
		{
			name: "insufficient balance",
			tx: bank.MultiSend{
				Inputs:  bank.Balances{{Address: "account3", Coins: coin("denom1", 10)}},
				Outputs: bank.Balances{{Address: "account1", Coins: coin("denom1", 10)}},
			},
			wantErr: bank.ErrInsufficientBalance,
		},
		{
			name: "mismatch",
			tx: bank.MultiSend{
				Inputs:  bank.Balances{{Address: "account1", Coins: coin("denom1", 10)}},
				Outputs: bank.Balances{{Address: "account2", Coins: coin("denom1", 11)}},
			},
			wantErr: bank.ErrInputOutputMismatch,
		},
		{
			name: "unknown denom in strict mode",
			opts: Options{Strict: true},
			tx: bank.MultiSend{
				Inputs:  bank.Balances{{Address: "account1", Coins: bank.Coins{bank.NewCoin("denom1", 10), bank.NewCoin("denom9", 1)}}},
				Outputs: bank.Balances{{Address: "account2", Coins: bank.Coins{bank.NewCoin("denom1", 10), bank.NewCoin("denom9", 1)}}},
			},
			wantErr: ErrUnknownDenom,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := newStore(t)
			p := NewProcessor(l, tc.opts)

			_, err := p.Process(tc.tx)
			require.ErrorIs(t, err, tc.wantErr)

			// Nothing was applied.
			assert.Equal(t, int64(1_000_000), balance(t, l, "account1", "denom1"))
			assert.Equal(t, int64(1_000_000), balance(t, l, "account2", "denom1"))
		})
	}
}

func TestProcess_SkipsUnknownDenom(t *testing.T) {
	l := newStore(t)
	p := NewProcessor(l, Options{})

	tx := bank.MultiSend{
		Inputs:  bank.Balances{{Address: "account1", Coins: bank.Coins{bank.NewCoin("denom1", 100), bank.NewCoin("denom9", 1)}}},
		Outputs: bank.Balances{{Address: "account2", Coins: bank.Coins{bank.NewCoin("denom1", 100), bank.NewCoin("denom9", 1)}}},
	}
	changes, err := p.Process(tx)
	require.NoError(t, err)
	assert.Equal(t, bank.Balances{
		{Address: "account1", Coins: coin("denom1", -120)},
		{Address: "account2", Coins: coin("denom1", 100)},
		{Address: "issuer_account_A", Coins: coin("denom1", 12)},
	}, changes)
	assert.Equal(t, int64(0), balance(t, l, "account2", "denom9"))
}

type failingStore struct {
	Store
	err error
}

func (f failingStore) ApplyChanges(bank.Balances) error {
	return f.err
}

func TestProcess_ApplyFailure(t *testing.T) {
	boom := errors.New("disk full")
	p := NewProcessor(failingStore{Store: newStore(t), err: boom}, Options{})

	tx := bank.MultiSend{
		Inputs:  bank.Balances{{Address: "account1", Coins: coin("denom1", 10)}},
		Outputs: bank.Balances{{Address: "account2", Coins: coin("denom1", 10)}},
	}
	_, err := p.Process(tx)
	require.ErrorIs(t, err, boom)
}

func TestCommission(t *testing.T) {
	def := bank.DenomDefinition{Denom: "denom1", Issuer: "issuer"}
	tx := bank.MultiSend{
		Inputs:  bank.Balances{{Address: "issuer", Coins: coin("denom1", 30)}},
		Outputs: bank.Balances{{Address: "issuer", Coins: coin("denom1", 50)}},
	}
	changes := bank.Balances{{Address: "issuer", Coins: coin("denom1", 27)}}
	c, err := commission(changes, tx, def)
	require.NoError(t, err)
	assert.Equal(t, int64(7), c.Int64())
}
