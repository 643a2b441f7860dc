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
// Package record models the things a keychain stores.
//
// A Record is a closed sum type with exactly two variants: *Blob, an opaque
// byte payload addressed by label and account, and *KeyMember, one half of
// an asymmetric keypair addressed by label. A record without a payload is a
// template that only identifies a store slot; a record with a payload is a
// value to persist or a result that was just loaded.
//
// Consumers switch exhaustively over the variants:
//
//	switch r := rec.(type) {
//	case *record.Blob:
//	    ...
//	case *record.KeyMember:
//	    ...
//	}
//
// Empty labels and accounts are unset. Unset attributes match any value on
// lookups and are stored as empty on save.
package record

import (
	"bytes"
	"fmt"

	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
)

// Unset is printed in place of an absent label or account.
const Unset = "<unset>"

// Record is either a *Blob or a *KeyMember.
type Record interface {
	// Label identifies the record within its kind and scope.
	Label() string

	// Account qualifies blob labels. Always empty for keys.
	Account() string

	fmt.Stringer

	sealed()
}

// Blob is a generic secret: ciphertext, plaintext, or an encoded primitive.
type Blob struct {
	label   string
	account string
	data    []byte
	present bool
}

// NewBlob creates a blob value. A nil payload creates a template; an empty,
// non-nil payload is a present but empty value.
func NewBlob(data []byte, label, account string) *Blob {
	return &Blob{
		label:   label,
		account: account,
		data:    bytes.Clone(data),
		present: data != nil,
	}
}

// BlobRef creates a blob template identifying a slot.
func BlobRef(label, account string) *Blob {
	return &Blob{label: label, account: account}
}

func (b *Blob) Label() string { return b.label }
func (b *Blob) Account() string { return b.account }

// Data returns a copy of the payload and whether one is present.
func (b *Blob) Data() ([]byte, bool) {
	if !b.present {
		return nil, false
	}
	if b.data == nil {
		return []byte{}, true
	}
	return bytes.Clone(b.data), true
}

// WithData returns a blob with the same identity carrying data.
func (b *Blob) WithData(data []byte) *Blob {
	if data == nil {
		data = []byte{}
	}
	return NewBlob(data, b.label, b.account)
}

func (b *Blob) String() string {
	payload := "no data"
	if b.present {
		payload = fmt.Sprintf("%d bytes", len(b.data))
	}
	return fmt.Sprintf("data(label: %s, account: %s, %s)", orUnset(b.label), orUnset(b.account), payload)
}

func (*Blob) sealed() {}

// KeyMember is one half of an asymmetric keypair. The handle, when present,
// is an opaque reference owned by the store.
type KeyMember struct {
	label string
	key   securestore.KeyHandle
}

// NewKey creates a key value around a live handle.
func NewKey(key securestore.KeyHandle, label string) *KeyMember {
	return &KeyMember{label: label, key: key}
}

// KeyRef creates a key template identifying a slot.
func KeyRef(label string) *KeyMember {
	return &KeyMember{label: label}
}

func (k *KeyMember) Label() string { return k.label }
func (k *KeyMember) Account() string { return "" }

// Key returns the live handle, or nil for a template.
func (k *KeyMember) Key() securestore.KeyHandle {
	return k.key
}

// WithKey returns a key member with the same label referencing key.
func (k *KeyMember) WithKey(key securestore.KeyHandle) *KeyMember {
	return NewKey(key, k.label)
}

func (k *KeyMember) String() string {
	state := "no key"
	if k.key != nil {
		state = k.key.KeyClass().String() + " key"
	}
	return fmt.Sprintf("key(label: %s, %s)", orUnset(k.label), state)
}

func (*KeyMember) sealed() {}

// KeyOf returns the handle carried by r, or nil when r is not a key member
// or carries none.
func KeyOf(r Record) securestore.KeyHandle {
	if k, ok := r.(*KeyMember); ok {
		return k.key
	}
	return nil
}

// DataOf returns the payload carried by r. The second return is false when r
// is not a blob or is a template.
func DataOf(r Record) ([]byte, bool) {
	if b, ok := r.(*Blob); ok {
		return b.Data()
	}
	return nil, false
}

// WithData returns a copy of r carrying data. Fails for key members.
func WithData(r Record, data []byte) (Record, bool) {
	b, ok := r.(*Blob)
	if !ok {
		return nil, false
	}
	return b.WithData(data), true
}

// WithKey returns a copy of r referencing key. Fails for blobs.
func WithKey(r Record, key securestore.KeyHandle) (Record, bool) {
	k, ok := r.(*KeyMember)
	if !ok {
		return nil, false
	}
	return k.WithKey(key), true
}

// Derive returns a template of the same kind whose label, and account for
// blobs, carry suffix. Absent attributes are replaced by Unset first.
func Derive(r Record, suffix string) Record {
	switch r := r.(type) {
	case *Blob:
		return BlobRef(orUnset(r.label)+suffix, orUnset(r.account)+suffix)
	case *KeyMember:
		return KeyRef(orUnset(r.label) + suffix)
	default:
		return nil
	}
}

func orUnset(s string) string {
	if s == "" {
		return Unset
	}
	return s
}
