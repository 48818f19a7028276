package appstate

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func TestTokenPrecedence(t *testing.T) {
	cases := []struct {
		name string
		snap Snapshot
		want string
	}{
		{"empty falls back to default", Snapshot{}, DefaultToken},
		{"legacy only", Snapshot{LegacyToken: "legacy"}, "legacy"},
		{"structured wins", Snapshot{State: State{Token: "new"}, LegacyToken: "legacy"}, "new"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Open(NewMemoryPersister(tc.snap))
			require.NoError(t, err)
			assert.Equal(t, tc.want, s.Token())
		})
	}
}

func TestSetTokenDerivesAdmin(t *testing.T) {
	p := NewMemoryPersister(Snapshot{})
	s, err := Open(p)
	require.NoError(t, err)
	assert.False(t, s.IsAdmin())
	assert.Equal(t, ThemeSystem, s.Theme())

	require.NoError(t, s.SetToken("abc"))
	assert.True(t, s.IsAdmin())
	assert.Equal(t, "abc", s.Token())
	saved, _ := p.Load()
	assert.Equal(t, "abc", saved.State.Token)
	assert.Equal(t, "abc", saved.LegacyToken)

	require.NoError(t, s.SetToken(""))
	assert.False(t, s.IsAdmin())
	assert.Equal(t, DefaultToken, s.Token())
}

func TestSetTheme(t *testing.T) {
	s, err := Open(NewMemoryPersister(Snapshot{}))
	require.NoError(t, err)
	require.NoError(t, s.SetTheme(ThemeDark))
	assert.Equal(t, ThemeDark, s.Theme())
	assert.ErrorIs(t, s.SetTheme("neon"), ErrInvalidTheme)
	assert.Equal(t, ThemeDark, s.Theme())
}

type failingPersister struct{ MemoryPersister }

func (f *failingPersister) Save(Snapshot) error { return errors.New("disk full") }

func TestFailedSaveKeepsState(t *testing.T) {
	s, err := Open(&failingPersister{})
	require.NoError(t, err)
	assert.ErrorContains(t, s.SetToken("x"), "disk full")
	assert.Equal(t, DefaultToken, s.Token())
	assert.False(t, s.IsAdmin())
}

func TestBoltPersisterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	p, err := OpenBolt(path)
	require.NoError(t, err)
	s, err := Open(p)
	require.NoError(t, err)
	require.NoError(t, s.SetToken("persisted"))
	require.NoError(t, s.SetTheme(ThemeLight))
	require.NoError(t, p.Close())

	p, err = OpenBolt(path)
	require.NoError(t, err)
	defer p.Close()
	s, err = Open(p)
	require.NoError(t, err)
	assert.Equal(t, State{Token: "persisted", IsAdmin: true, Theme: ThemeLight}, s.State())

	err = p.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket([]byte(bucketName))
		assert.JSONEq(t,
			`{"state":{"token":"persisted","isAdmin":true,"theme":"light"},"version":0}`,
			string(bk.Get([]byte(stateKey))))
		assert.Equal(t, "persisted", string(bk.Get([]byte(legacyKey))))
		return nil
	})
	require.NoError(t, err)
}

func TestBoltPersisterReadsLegacyKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	p, err := OpenBolt(path)
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(legacyKey), []byte("old-token"))
	}))

	s, err := Open(p)
	require.NoError(t, err)
	assert.Equal(t, "old-token", s.Token())

	require.NoError(t, s.SetToken(""))
	snap, err := p.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.LegacyToken)
}

func TestEncodeClearedTokenAsNull(t *testing.T) {
	raw, err := encodeState(State{Theme: ThemeSystem})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":{"token":null,"isAdmin":false,"theme":"system"},"version":0}`, string(raw))
}
