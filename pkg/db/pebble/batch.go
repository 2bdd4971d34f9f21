package pebble

import (
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/eigerco/multisend/pkg/db"
)

type Batch struct {
	store  *KVStore
	batch  *pebble.Batch
	done   atomic.Bool
	closed atomic.Bool
}

func (p *KVStore) NewBatch() db.Batch {
	return &Batch{
		store: p,
		batch: p.db.NewBatch(),
	}
}

func (b *Batch) Put(key, value []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	return b.batch.Set(key, value, nil)
}

func (b *Batch) Delete(key []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	return b.batch.Delete(key, nil)
}

func (b *Batch) Commit() error {
	if b.done.Load() {
		return ErrBatchDone
	}

	b.store.mu.RLock()
	defer b.store.mu.RUnlock()
	if b.store.closed {
		return ErrClosed
	}

	if err := b.batch.Commit(pebble.Sync); err != nil {
		return err
	}
	b.done.Store(true)
	return nil
}

// Close releases the batch. Uncommitted operations are discarded.
func (b *Batch) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.done.Store(true)
	return b.batch.Close()
}
