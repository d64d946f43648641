package ledger

import (
	"github.com/venuecore/ticketd/internal/core/state"
	"github.com/venuecore/ticketd/internal/storage/kvstore"
)

// StoreView adapts a kvstore.Store to the state.View interface, with
// atomic batch commits for overlays.
type StoreView struct {
	store *kvstore.Store
}

// NewStoreView wraps a store.
func NewStoreView(store *kvstore.Store) *StoreView {
	return &StoreView{store: store}
}

// Get implements state.View.
func (s *StoreView) Get(key state.DataKey) ([]byte, bool, error) {
	return s.store.Get(key)
}

// Set implements state.View.
func (s *StoreView) Set(key state.DataKey, value []byte) error {
	return s.store.Put(key, value)
}

// Has implements state.View.
func (s *StoreView) Has(key state.DataKey) (bool, error) {
	return s.store.Has(key)
}

// ApplyWrites implements state.Committer; the writes land as one batch.
func (s *StoreView) ApplyWrites(writes []state.Write) error {
	ops := make([]kvstore.Op, 0, len(writes))
	for _, w := range writes {
		ops = append(ops, kvstore.Op{Key: w.Key, Value: w.Value})
	}
	return s.store.ApplyBatch(ops)
}
