package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")
	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	defer backend.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_PathIsFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(tmpFile, []byte("x"), 0644))

	backend, err := OpenBackend(tmpFile, false)
	assert.Error(t, err)
	assert.Nil(t, backend)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	assert.False(t, backend.IsClosed())
	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())
}

func TestBackend_WithTxAfterClose(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	require.NoError(t, stores.Close())

	called := false
	err = stores.Backend.WithTx(func(tx *badger.Txn) error {
		called = true
		return nil
	}, false)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.False(t, called)

	err = stores.Vectors.UpsertEmbedding(context.Background(), core.RecordKindJournal, "u1", "a", []float32{1})
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestOpenStores(t *testing.T) {
	stores, err := OpenStores(t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, stores.Journals)
	assert.NotNil(t, stores.Conversations)
	assert.NotNil(t, stores.Vectors)
	require.NoError(t, stores.Close())
	assert.True(t, stores.Backend.IsClosed())
}

func TestMakeKey(t *testing.T) {
	t.Run("separator stripped from segments", func(t *testing.T) {
		a := makeJournalKey("u\x001", "id")
		b := makeJournalKey("u1", "id")
		assert.Equal(t, a, b)
	})

	t.Run("open key is prefix of closed key", func(t *testing.T) {
		prefix := makePartialJournalAttributeKey("u1", fieldTags, "work")
		key := makeJournalAttributeKey("u1", fieldTags, "work", "j1")
		assert.Equal(t, prefix, key[:len(prefix)])
		assert.Equal(t, "j1", lastSegment(key))
	})

	t.Run("value prefixes do not collide", func(t *testing.T) {
		prefix := makePartialJournalAttributeKey("u1", fieldTags, "work")
		other := makeJournalAttributeKey("u1", fieldTags, "workout", "j1")
		assert.NotEqual(t, prefix, other[:len(prefix)])
	})

	t.Run("journal prefix excludes attribute keys", func(t *testing.T) {
		prefix := makeKey(true, journalPrefix)
		attr := makeJournalAttributeKey("u1", fieldMood, "calm", "j1")
		assert.NotEqual(t, prefix, attr[:len(prefix)])
	})
}

func TestAttributeEntries(t *testing.T) {
	entries := attributeEntries(core.Metadata{
		Date:        "2025-09-10",
		Mood:        " Calm ",
		People:      []string{"Sam", ""},
		Emotions:    []string{"relief"},
		StressLevel: core.StressLevelLow,
	})

	assert.ElementsMatch(t, [][2]string{
		{fieldPeople, "sam"},
		{fieldEmotions, "relief"},
		{fieldDate, "2025-09-10"},
		{fieldMood, "calm"},
		{fieldStressLevel, "low"},
	}, entries)
}
