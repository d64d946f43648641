package state

// View provides read/write access to the keyed state namespace.
type View interface {
	// Get returns the value stored under key, with found reporting
	// whether the key exists.
	Get(key DataKey) (value []byte, found bool, err error)

	// Set stores value under key, overwriting any existing value.
	Set(key DataKey, value []byte) error

	// Has reports whether a value exists under key.
	Has(key DataKey) (bool, error)
}

// Committer is implemented by base views that can apply a set of writes
// as one atomic unit.
type Committer interface {
	ApplyWrites(writes []Write) error
}

// Write is one staged key/value mutation.
type Write struct {
	Key   DataKey
	Value []byte
}

// Overlay is a staged-write view over a base View. Reads see staged
// writes first, then the base. Nothing reaches the base until Commit;
// discarding the overlay on a failed operation leaves the base untouched.
type Overlay struct {
	base   View
	writes map[string][]byte
	order  []string
}

// NewOverlay creates an empty overlay over base.
func NewOverlay(base View) *Overlay {
	return &Overlay{
		base:   base,
		writes: make(map[string][]byte),
	}
}

// Get returns the staged value if one exists, otherwise reads the base.
func (o *Overlay) Get(key DataKey) ([]byte, bool, error) {
	if v, ok := o.writes[string(key)]; ok {
		return v, true, nil
	}
	return o.base.Get(key)
}

// Set stages a write. The first write to a key records its ordering so
// Commit replays mutations deterministically.
func (o *Overlay) Set(key DataKey, value []byte) error {
	k := string(key)
	if _, seen := o.writes[k]; !seen {
		o.order = append(o.order, k)
	}
	o.writes[k] = value
	return nil
}

// Has reports key existence through the staged writes and the base.
func (o *Overlay) Has(key DataKey) (bool, error) {
	if _, ok := o.writes[string(key)]; ok {
		return true, nil
	}
	return o.base.Has(key)
}

// Pending returns the number of staged writes.
func (o *Overlay) Pending() int {
	return len(o.writes)
}

// Commit applies all staged writes to the base view. When the base
// implements Committer the writes land as a single atomic batch;
// otherwise they are applied in staging order.
func (o *Overlay) Commit() error {
	if len(o.writes) == 0 {
		return nil
	}
	writes := make([]Write, 0, len(o.order))
	for _, k := range o.order {
		writes = append(writes, Write{Key: DataKey(k), Value: o.writes[k]})
	}
	if c, ok := o.base.(Committer); ok {
		return c.ApplyWrites(writes)
	}
	for _, w := range writes {
		if err := o.base.Set(w.Key, w.Value); err != nil {
			return err
		}
	}
	return nil
}
