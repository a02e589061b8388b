package storage

import "errors"

// PrefixDB namespaces a DB under a fixed key prefix. One data directory
// holds the state of every network this way.
type PrefixDB struct {
	inner  DB
	prefix []byte
}

// NewPrefixDB wraps inner so every key is stored under prefix.
func NewPrefixDB(inner DB, prefix []byte) *PrefixDB {
	return &PrefixDB{inner: inner, prefix: clone(prefix)}
}

func (p *PrefixDB) key(k []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(k))
	out = append(out, p.prefix...)
	return append(out, k...)
}

func (p *PrefixDB) Get(key []byte) ([]byte, error) { return p.inner.Get(p.key(key)) }

func (p *PrefixDB) Put(key, value []byte) error { return p.inner.Put(p.key(key), value) }

func (p *PrefixDB) Delete(key []byte) error { return p.inner.Delete(p.key(key)) }

// DeleteAll removes every key in the namespace in one batch. The inner
// store must be able to scan and batch.
func (p *PrefixDB) DeleteAll() error {
	scanner, ok := p.inner.(Scanner)
	if !ok {
		return errors.New("storage: store cannot scan keys")
	}
	batcher, ok := p.inner.(Batcher)
	if !ok {
		return errors.New("storage: store cannot batch writes")
	}
	b := batcher.NewBatch()
	if err := scanner.ForEach(p.prefix, func(key, _ []byte) error {
		return b.Delete(key)
	}); err != nil {
		b.Discard()
		return err
	}
	return b.Commit()
}

// Close does nothing; the inner DB owns the handle.
func (p *PrefixDB) Close() error { return nil }
