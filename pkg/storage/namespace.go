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
	"encoding/base64"
	"fmt"
	"strings"
)

// ItemsRoot is the key prefix under which all secure items are stored.
const ItemsRoot = "items"

// Every segment is prefixed so that an empty attribute still produces a
// non-empty path element.
const segmentPrefix = "_"

// ItemPath returns the storage key for an item:
//
//	items/{scope}/{class}/{label}/{account}
//
// Scope, label and account are encoded so arbitrary strings, including the
// empty string, are safe as path elements.
func ItemPath(scope, class, label, account string) string {
	return strings.Join([]string{
		ItemsRoot,
		encodeSegment(scope),
		class,
		encodeSegment(label),
		encodeSegment(account),
	}, "/")
}

// ItemPrefix returns the key prefix covering every item of class in scope.
func ItemPrefix(scope, class string) string {
	return strings.Join([]string{ItemsRoot, encodeSegment(scope), class}, "/") + "/"
}

// ParseItemPath reverses ItemPath.
func ParseItemPath(key string) (scope, class, label, account string, err error) {
	parts := strings.Split(key, "/")
	if len(parts) != 5 || parts[0] != ItemsRoot {
		return "", "", "", "", fmt.Errorf("%w: %q is not an item path", ErrInvalidKey, key)
	}
	if scope, err = decodeSegment(parts[1]); err != nil {
		return "", "", "", "", err
	}
	if label, err = decodeSegment(parts[3]); err != nil {
		return "", "", "", "", err
	}
	if account, err = decodeSegment(parts[4]); err != nil {
		return "", "", "", "", err
	}
	return scope, parts[2], label, account, nil
}

// ListItems returns the keys of every item of class in scope.
func ListItems(backend Backend, scope, class string) ([]string, error) {
	return backend.List(ItemPrefix(scope, class))
}

func encodeSegment(s string) string {
	return segmentPrefix + base64.RawURLEncoding.EncodeToString([]byte(s))
}

func decodeSegment(s string) (string, error) {
	if !strings.HasPrefix(s, segmentPrefix) {
		return "", fmt.Errorf("%w: malformed segment %q", ErrInvalidKey, s)
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(s, segmentPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: malformed segment %q: %v", ErrInvalidKey, s, err)
	}
	return string(b), nil
}
