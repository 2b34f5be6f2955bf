package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unclesp1d3r/bitrecover/lib/candidate"
	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
	"github.com/unclesp1d3r/bitrecover/lib/hashrecord"
	"github.com/unclesp1d3r/bitrecover/lib/testhelpers"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()

	s, err := New(testhelpers.SampleRecord(t, hashrecord.UserPasswordFast), candidate.Spec{
		Type: candidate.TypeMask,
		Mask: "?d?d",
	})
	require.NoError(t, err)

	return s
}

func TestNew(t *testing.T) {
	record := testhelpers.SampleRecord(t, hashrecord.UserPasswordFast)

	s, err := New(record, candidate.Spec{Type: candidate.TypeDictionary, Wordlist: "words.txt"})
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, record.String(), s.Hash)
	assert.Equal(t, record.Fingerprint(), s.Fingerprint)
	assert.Equal(t, StatusPaused, s.Status)
	assert.Zero(t, s.Checkpoint)
	assert.False(t, s.StartedAt.IsZero())

	parsed, err := s.Record()
	require.NoError(t, err)
	assert.Equal(t, record.String(), parsed.String())

	_, err = New(record, candidate.Spec{Type: "prince"})
	require.ErrorIs(t, err, cserrors.ErrUnsupportedStrategy)

	_, err = New(nil, candidate.Spec{Type: candidate.TypeMask, Mask: "?d"})
	require.Error(t, err)
}

func TestTransition(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusRunning, StatusRunning, true},
		{StatusRunning, StatusPaused, true},
		{StatusRunning, StatusFound, true},
		{StatusRunning, StatusExhausted, true},
		{StatusPaused, StatusRunning, true},
		{StatusPaused, StatusFound, false},
		{StatusPaused, StatusExhausted, false},
		{StatusPaused, StatusPaused, false},
		{StatusFound, StatusRunning, false},
		{StatusFound, StatusPaused, false},
		{StatusExhausted, StatusRunning, false},
		{StatusExhausted, StatusFound, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			s := &Session{ID: "x", Status: tt.from}

			err := s.Transition(tt.to)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, s.Status)
				assert.False(t, s.UpdatedAt.IsZero())

				return
			}

			require.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, s.Status)
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusFound.Terminal())
	assert.True(t, StatusExhausted.Terminal())
	assert.False(t, StatusPaused.Terminal())
	assert.False(t, StatusRunning.Terminal())

	assert.True(t, StatusPaused.Resumable())
	assert.True(t, StatusRunning.Resumable())
	assert.False(t, StatusFound.Resumable())
}

func TestClone(t *testing.T) {
	s := newTestSession(t)
	s.Strategy = candidate.Spec{
		Type: candidate.TypeHybrid,
		Parts: []candidate.Spec{
			{Type: candidate.TypeMask, Mask: "?1", Charsets: []string{"ab"}, Increment: &candidate.Increment{Min: 1}},
		},
	}

	c := s.Clone()
	c.Checkpoint = 99
	c.Strategy.Parts[0].Charsets[0] = "zz"
	c.Strategy.Parts[0].Increment.Min = 5

	assert.Zero(t, s.Checkpoint)
	assert.Equal(t, "ab", s.Strategy.Parts[0].Charsets[0])
	assert.Equal(t, 1, s.Strategy.Parts[0].Increment.Min)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "sessions")

	store, err := NewFileStore(dir)
	require.NoError(t, err)

	s := newTestSession(t)
	s.Checkpoint = 42
	s.LastError = "hashcat exited with code -2"
	require.NoError(t, store.Save(ctx, s))

	loaded, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)
	assert.Equal(t, s.Hash, loaded.Hash)
	assert.Equal(t, s.Strategy, loaded.Strategy)
	assert.Equal(t, uint64(42), loaded.Checkpoint)
	assert.Equal(t, s.LastError, loaded.LastError)
	assert.True(t, s.StartedAt.Equal(loaded.StartedAt))

	// Overwrite leaves no temp file behind.
	s.Checkpoint = 50
	require.NoError(t, store.Save(ctx, s))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, s.ID+".json", entries[0].Name())

	loaded, err = store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), loaded.Checkpoint)

	_, err = store.Load(ctx, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.Load(ctx, "../escape")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreListSkipsCorruptFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := &FileStore{Dir: dir}

	first := newTestSession(t)
	second := newTestSession(t)
	second.StartedAt = first.StartedAt.Add(time.Second)

	require.NoError(t, store.Save(ctx, second))
	require.NoError(t, store.Save(ctx, first))
	testhelpers.CreateTestFile(t, dir, "broken.json", "{not json")
	testhelpers.CreateTestFile(t, dir, "notes.txt", "ignored")

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)

	empty := &FileStore{Dir: filepath.Join(dir, "missing")}
	all, err = empty.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s := newTestSession(t)
	require.NoError(t, store.Save(ctx, s))

	// Mutating the caller's copy does not change the stored one.
	s.Checkpoint = 7

	loaded, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Zero(t, loaded.Checkpoint)
	assert.Equal(t, 1, store.Saves())

	_, err = store.Load(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a := newTestSession(t)
	a.ID = "aaaa1111"
	b := newTestSession(t)
	b.ID = "aaaa2222"

	require.NoError(t, store.Save(ctx, a))
	require.NoError(t, store.Save(ctx, b))

	got, err := Resolve(ctx, store, "aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	got, err = Resolve(ctx, store, "aaaa2")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = Resolve(ctx, store, "aaaa")
	require.ErrorIs(t, err, ErrAmbiguous)

	_, err = Resolve(ctx, store, "bbbb")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLock(t *testing.T) {
	dir := t.TempDir()

	unlock, err := Lock(dir, "session-a")
	require.NoError(t, err)

	// This process is alive, so a second lock fails.
	_, err = Lock(dir, "session-a")
	require.ErrorIs(t, err, ErrLocked)

	// Other sessions are independent.
	unlockB, err := Lock(dir, "session-b")
	require.NoError(t, err)
	require.NoError(t, unlockB())

	require.NoError(t, unlock())
	assert.NoFileExists(t, filepath.Join(dir, "session-a.pid"))

	unlock, err = Lock(dir, "session-a")
	require.NoError(t, err)
	require.NoError(t, unlock())
	require.NoError(t, unlock(), "unlock is idempotent")
}

func TestLockReplacesStaleFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{name: "dead pid", content: "2147483646"},
		{name: "garbage", content: "not-a-pid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testhelpers.CreateTestFile(t, dir, "stale.pid", tt.content)

			unlock, err := Lock(dir, "stale")
			require.NoError(t, err)

			data, err := os.ReadFile(filepath.Join(dir, "stale.pid"))
			require.NoError(t, err)
			assert.NotEqual(t, tt.content, string(data))

			require.NoError(t, unlock())
		})
	}
}
