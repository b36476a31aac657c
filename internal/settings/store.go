package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/JonMunkholm/dsimport/internal/core"
)

var (
	bucketPreferences = []byte("preferences")
	bucketPresets     = []byte("presets")
	keyPreferences    = []byte("default")
)

// BoltStore keeps preferences in a bbolt file.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens or creates the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketPreferences, bucketPresets} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create settings buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Load(_ context.Context) (Preferences, bool, error) {
	var (
		p     Preferences
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketPreferences).Get(keyPreferences)
		if data == nil {
			return nil
		}
		found = true
		// Start from defaults so fields added later keep sane values.
		p = Defaults()
		return json.Unmarshal(data, &p)
	})
	if err != nil {
		return Preferences{}, false, err
	}
	return p, found, nil
}

func (s *BoltStore) Save(_ context.Context, p Preferences) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPreferences).Put(keyPreferences, data)
	})
}

// ListPresets returns all presets ordered by name.
func (s *BoltStore) ListPresets(_ context.Context) ([]core.MappingPreset, error) {
	presets := []core.MappingPreset{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPresets).ForEach(func(k, v []byte) error {
			var p core.MappingPreset
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("decode preset %s: %w", k, err)
			}
			presets = append(presets, p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortPresets(presets)
	return presets, nil
}

// PutPreset inserts or replaces the preset with p.ID.
func (s *BoltStore) PutPreset(_ context.Context, p core.MappingPreset) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPresets).Put([]byte(p.ID), data)
	})
}

// DeletePreset removes the preset with id.
func (s *BoltStore) DeletePreset(_ context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPresets)
		if b.Get([]byte(id)) == nil {
			return core.ErrPresetNotFound
		}
		return b.Delete([]byte(id))
	})
}

// Close releases the file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// MemoryStore keeps preferences and presets in memory.
type MemoryStore struct {
	mu      sync.Mutex
	prefs   *Preferences
	presets map[string]core.MappingPreset
}

func (m *MemoryStore) Load(_ context.Context) (Preferences, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs == nil {
		return Preferences{}, false, nil
	}
	return *m.prefs, true, nil
}

func (m *MemoryStore) Save(_ context.Context, p Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = &p
	return nil
}

func (m *MemoryStore) ListPresets(_ context.Context) ([]core.MappingPreset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	presets := make([]core.MappingPreset, 0, len(m.presets))
	for _, p := range m.presets {
		presets = append(presets, p)
	}
	sortPresets(presets)
	return presets, nil
}

func (m *MemoryStore) PutPreset(_ context.Context, p core.MappingPreset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.presets == nil {
		m.presets = make(map[string]core.MappingPreset)
	}
	m.presets[p.ID] = p
	return nil
}

func (m *MemoryStore) DeletePreset(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.presets[id]; !ok {
		return core.ErrPresetNotFound
	}
	delete(m.presets, id)
	return nil
}

func sortPresets(presets []core.MappingPreset) {
	sort.Slice(presets, func(i, j int) bool {
		if presets[i].Name != presets[j].Name {
			return presets[i].Name < presets[j].Name
		}
		return presets[i].ID < presets[j].ID
	})
}
