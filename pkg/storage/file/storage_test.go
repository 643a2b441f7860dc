// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-seckeychain.
//
// go-seckeychain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package file

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-seckeychain/pkg/storage"
)

func newTestStorage(t *testing.T) (*FileStorage, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := NewWithFs(fs, "/var/lib/seckeychain")
	require.NoError(t, err)
	return s, fs
}

func TestNew_EmptyRoot(t *testing.T) {
	_, err := NewWithFs(afero.NewMemMapFs(), "")
	assert.Error(t, err)
}

func TestFileStorage_PutGetDelete(t *testing.T) {
	s, fs := newTestStorage(t)

	key := storage.ItemPath("group", "genp", "message", "alice")
	require.NoError(t, s.Put(key, []byte("hello"), nil))

	got, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	info, err := fs.Stat("/var/lib/seckeychain/" + key)
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode().Perm().String())

	exists, err := s.Exists(key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(key))
	_, err = s.Get(key)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.Delete(key), storage.ErrNotFound)
}

func TestFileStorage_Overwrite(t *testing.T) {
	s, _ := newTestStorage(t)

	require.NoError(t, s.Put("a/b", []byte("one"), nil))
	require.NoError(t, s.Put("a/b", []byte("two"), nil))

	got, err := s.Get("a/b")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)

	keys, err := s.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b"}, keys)
}

func TestFileStorage_List(t *testing.T) {
	s, _ := newTestStorage(t)

	require.NoError(t, s.Put(storage.ItemPath("g", "genp", "b", ""), []byte("b"), nil))
	require.NoError(t, s.Put(storage.ItemPath("g", "genp", "a", ""), []byte("a"), nil))
	require.NoError(t, s.Put(storage.ItemPath("g", "keys", "k", ""), []byte("k"), nil))

	keys, err := storage.ListItems(s, "g", "genp")
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.True(t, keys[0] < keys[1])

	_, _, label, _, err := storage.ParseItemPath(keys[0])
	require.NoError(t, err)
	assert.Equal(t, "a", label)
}

func TestFileStorage_RejectsTraversal(t *testing.T) {
	s, _ := newTestStorage(t)

	for _, key := range []string{"", "../escape", "a/../../b", "/abs", "a\x00b", "x.tmp"} {
		assert.ErrorIs(t, s.Put(key, []byte("x"), nil), storage.ErrInvalidKey, key)
	}
}

func TestFileStorage_Permissions(t *testing.T) {
	s, fs := newTestStorage(t)

	require.NoError(t, s.Put("pub", []byte("x"), &storage.Options{Permissions: 0644}))
	info, err := fs.Stat("/var/lib/seckeychain/pub")
	require.NoError(t, err)
	assert.Equal(t, "-rw-r--r--", info.Mode().Perm().String())
}

func TestFileStorage_Closed(t *testing.T) {
	s, _ := newTestStorage(t)
	require.NoError(t, s.Close())

	_, err := s.Get("k")
	assert.ErrorIs(t, err, storage.ErrClosed)
	assert.ErrorIs(t, s.Put("k", nil, nil), storage.ErrClosed)
}
