package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	src := strings.Join([]string{
		"alice:secret",
		"bob:hunter2",
		"not a pair",
		"",
		"carol:pa:ss:word",
		"bob:changed",
		"dave:crlf\r",
		":blankuser",
		"eve:",
	}, "\n")

	store, stats, err := Parse(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, 6, stats.Entries)
	assert.Equal(t, []string{"bob"}, stats.Duplicates)
	assert.Equal(t, []int{3}, stats.Malformed)

	t.Run("exact match", func(t *testing.T) {
		assert.True(t, store.Verify("alice", "secret"))
		assert.False(t, store.Verify("alice", "Secret"))
		assert.False(t, store.Verify("alice", "secret "))
	})

	t.Run("last duplicate wins", func(t *testing.T) {
		assert.False(t, store.Verify("bob", "hunter2"))
		assert.True(t, store.Verify("bob", "changed"))
	})

	t.Run("first colon is the delimiter", func(t *testing.T) {
		assert.True(t, store.Verify("carol", "pa:ss:word"))
	})

	t.Run("carriage return is dropped", func(t *testing.T) {
		assert.True(t, store.Verify("dave", "crlf"))
	})

	t.Run("empty fields are ordinary values", func(t *testing.T) {
		assert.True(t, store.Verify("", "blankuser"))
		assert.True(t, store.Verify("eve", ""))
		assert.False(t, store.Verify("", ""))
	})

	t.Run("unknown user", func(t *testing.T) {
		assert.False(t, store.Verify("mallory", "secret"))
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	require.NoError(t, os.WriteFile(path, []byte("alice:secret\nbob:hunter2\n"), 0600))

	store, stats, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 2, store.Len())
	assert.True(t, store.Verify("bob", "hunter2"))
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnreadable))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFromMapCopies(t *testing.T) {
	users := map[string]string{"alice": "secret"}
	store := FromMap(users)
	users["alice"] = "other"

	assert.True(t, store.Verify("alice", "secret"))
}

func TestNilStoreRejects(t *testing.T) {
	var store *Store
	assert.False(t, store.Verify("alice", "secret"))
	assert.Equal(t, 0, store.Len())
}
