package appstate

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	bucketName   = "vibe"
	stateKey     = "vibe-app-storage"
	legacyKey    = "ACCESS_TOKEN"
	stateVersion = 0
)

// persistedState is the JSON layout of the structured key.
type persistedState struct {
	State struct {
		Token   *string `json:"token"`
		IsAdmin bool    `json:"isAdmin"`
		Theme   Theme   `json:"theme"`
	} `json:"state"`
	Version int `json:"version"`
}

func encodeState(st State) ([]byte, error) {
	var p persistedState
	if st.Token != "" {
		tok := st.Token
		p.State.Token = &tok
	}
	p.State.IsAdmin = st.IsAdmin
	p.State.Theme = st.Theme
	p.Version = stateVersion
	return json.Marshal(p)
}

func decodeState(raw []byte) (State, error) {
	var p persistedState
	if err := json.Unmarshal(raw, &p); err != nil {
		return State{}, err
	}
	st := State{IsAdmin: p.State.IsAdmin, Theme: p.State.Theme}
	if p.State.Token != nil {
		st.Token = *p.State.Token
	}
	return st, nil
}

// BoltPersister keeps the state in a bbolt file.
type BoltPersister struct {
	db *bolt.DB
}

// OpenBolt opens or creates the state file at path.
func OpenBolt(path string) (*BoltPersister, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create state bucket: %w", err)
	}
	return &BoltPersister{db: db}, nil
}

func (b *BoltPersister) Load() (Snapshot, error) {
	var snap Snapshot
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket([]byte(bucketName))
		if bk == nil {
			return nil
		}
		if raw := bk.Get([]byte(stateKey)); raw != nil {
			st, err := decodeState(raw)
			if err != nil {
				// a corrupt entry resets to defaults
				st = State{}
			}
			snap.State = st
		}
		if raw := bk.Get([]byte(legacyKey)); raw != nil {
			snap.LegacyToken = string(raw)
		}
		return nil
	})
	return snap, err
}

func (b *BoltPersister) Save(snap Snapshot) error {
	raw, err := encodeState(snap.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bk, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		if err := bk.Put([]byte(stateKey), raw); err != nil {
			return err
		}
		if snap.LegacyToken == "" {
			return bk.Delete([]byte(legacyKey))
		}
		return bk.Put([]byte(legacyKey), []byte(snap.LegacyToken))
	})
}

func (b *BoltPersister) Close() error {
	return b.db.Close()
}

// MemoryPersister keeps the snapshot in memory.
type MemoryPersister struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewMemoryPersister(initial Snapshot) *MemoryPersister {
	return &MemoryPersister{snap: initial}
}

func (m *MemoryPersister) Load() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, nil
}

func (m *MemoryPersister) Save(snap Snapshot) error {
	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()
	return nil
}
