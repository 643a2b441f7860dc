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

package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemPath_RoundTrip(t *testing.T) {
	cases := []struct{ scope, class, label, account string }{
		{"group.example", "genp", "message", "alice"},
		{"", "keys", "", ""},
		{"a/b", "genp", "../../etc/passwd", "x\x00y"},
	}
	for _, c := range cases {
		key := ItemPath(c.scope, c.class, c.label, c.account)
		assert.Equal(t, 4, strings.Count(key, "/"))
		assert.NotContains(t, key, "..")
		assert.True(t, strings.HasPrefix(key, ItemPrefix(c.scope, c.class)))

		scope, class, label, account, err := ParseItemPath(key)
		require.NoError(t, err)
		assert.Equal(t, c.scope, scope)
		assert.Equal(t, c.class, class)
		assert.Equal(t, c.label, label)
		assert.Equal(t, c.account, account)
	}
}

func TestItemPrefix_IsolatesScopes(t *testing.T) {
	assert.False(t, strings.HasPrefix(ItemPath("group.b", "genp", "l", "a"), ItemPrefix("group.a", "genp")))
	assert.False(t, strings.HasPrefix(ItemPath("group", "genp", "l", "a"), ItemPrefix("group", "keys")))
}

func TestParseItemPath_Invalid(t *testing.T) {
	for _, key := range []string{"", "items/a", "other/_/genp/_/_", "items/x/genp/_/_", "items/_/genp/_!!/_"} {
		_, _, _, _, err := ParseItemPath(key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestListItems(t *testing.T) {
	backend := NewMemory()
	require.NoError(t, backend.Put(ItemPath("g", "genp", "one", ""), []byte("1"), nil))
	require.NoError(t, backend.Put(ItemPath("g", "genp", "two", ""), []byte("2"), nil))
	require.NoError(t, backend.Put(ItemPath("g", "keys", "k", ""), []byte("k"), nil))
	require.NoError(t, backend.Put(ItemPath("h", "genp", "one", ""), []byte("1"), nil))

	keys, err := ListItems(backend, "g", "genp")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}
