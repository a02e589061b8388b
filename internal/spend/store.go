package spend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/Klingon-tech/cat721-cli/internal/log"
	"github.com/Klingon-tech/cat721-cli/internal/storage"
	"github.com/Klingon-tech/cat721-cli/pkg/crypto"
	"github.com/Klingon-tech/cat721-cli/pkg/types"
)

const snapshotVersion = 1

var snapshotKey = []byte("spend/snapshot")

// ErrCorruptSnapshot is returned when a stored snapshot fails its checksum
// or cannot be parsed.
var ErrCorruptSnapshot = errors.New("corrupt spend snapshot")

type snapshot struct {
	Version int              `json:"version"`
	Height  uint64           `json:"height"`
	Spends  []types.Outpoint `json:"spends"`
}

// Store keeps the whole spent set under a single key. Every save
// rewrites the full set in one Put.
//
// Value layout: [32: blake3(payload)][payload JSON].
type Store struct {
	db storage.DB
}

// NewStore wraps db.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// Open returns a tracker backed by db, loading the last snapshot if any.
func Open(db storage.DB, threshold uint64) (*Tracker, error) {
	st := NewStore(db)
	t := NewTracker(threshold)
	t.store = st

	snap, ok, err := st.load()
	if err != nil {
		return nil, err
	}
	if ok {
		t.height = snap.Height
		for _, op := range snap.Spends {
			t.spent[op] = struct{}{}
		}
		log.Spend.Debug().Uint64("height", snap.Height).Int("spends", len(snap.Spends)).Msg("Loaded spend snapshot")
	}
	return t, nil
}

func (s *Store) load() (snapshot, bool, error) {
	var snap snapshot
	raw, err := s.db.Get(snapshotKey)
	if errors.Is(err, storage.ErrNotFound) {
		return snap, false, nil
	}
	if err != nil {
		return snap, false, fmt.Errorf("read spend snapshot: %w", err)
	}
	if len(raw) < 32 {
		return snap, false, fmt.Errorf("%w: %d bytes", ErrCorruptSnapshot, len(raw))
	}
	sum, payload := raw[:32], raw[32:]
	want := crypto.Checksum(payload)
	if !bytes.Equal(sum, want[:]) {
		return snap, false, fmt.Errorf("%w: checksum mismatch", ErrCorruptSnapshot)
	}
	if err := json.Unmarshal(payload, &snap); err != nil {
		return snap, false, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if snap.Version != snapshotVersion {
		return snap, false, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, snap.Version)
	}
	return snap, true, nil
}

func (s *Store) save(snap snapshot) error {
	sort.Slice(snap.Spends, func(i, j int) bool { return snap.Spends[i].Less(snap.Spends[j]) })
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode spend snapshot: %w", err)
	}
	sum := crypto.Checksum(payload)
	value := make([]byte, 0, len(sum)+len(payload))
	value = append(value, sum[:]...)
	value = append(value, payload...)
	if err := s.db.Put(snapshotKey, value); err != nil {
		return fmt.Errorf("write spend snapshot: %w", err)
	}
	return nil
}
