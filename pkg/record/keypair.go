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
package record

import (
	"errors"

	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
)

// ErrNotKeyMember is returned when a keypair half is not a *KeyMember.
var ErrNotKeyMember = errors.New("record: keypair halves must be key members")

// Keypair is an ordered private/public pair of key members. SecureEnclave
// marks the private half as hardware backed: it never leaves the secure
// element and is persisted by the store itself.
type Keypair struct {
	prv           *KeyMember
	pub           *KeyMember
	secureEnclave bool
}

// NewKeypair pairs two records. Both must be non-nil key members.
func NewKeypair(prv, pub Record, secureEnclave bool) (*Keypair, error) {
	p, ok := prv.(*KeyMember)
	if !ok || p == nil {
		return nil, ErrNotKeyMember
	}
	q, ok := pub.(*KeyMember)
	if !ok || q == nil {
		return nil, ErrNotKeyMember
	}
	return &Keypair{prv: p, pub: q, secureEnclave: secureEnclave}, nil
}

// NewKeypairFromLabels creates the label-only intent for a keypair.
func NewKeypairFromLabels(prv, pub string, secureEnclave bool) *Keypair {
	return &Keypair{
		prv:           KeyRef(prv),
		pub:           KeyRef(pub),
		secureEnclave: secureEnclave,
	}
}

// Private returns the private half.
func (k *Keypair) Private() *KeyMember { return k.prv }

// Public returns the public half.
func (k *Keypair) Public() *KeyMember { return k.pub }

// SecureEnclave reports whether the private half is hardware backed.
func (k *Keypair) SecureEnclave() bool { return k.secureEnclave }

// WithHandles returns a keypair with the same labels referencing the given
// handles.
func (k *Keypair) WithHandles(prv, pub securestore.KeyHandle) *Keypair {
	return &Keypair{
		prv:           k.prv.WithKey(prv),
		pub:           k.pub.WithKey(pub),
		secureEnclave: k.secureEnclave,
	}
}

// Templates returns a keypair with the same labels and no handles.
func (k *Keypair) Templates() *Keypair {
	return NewKeypairFromLabels(k.prv.label, k.pub.label, k.secureEnclave)
}

// Derive returns the template keypair whose labels carry suffix, hardware
// backed regardless of k.
func (k *Keypair) Derive(suffix string) *Keypair {
	return NewKeypairFromLabels(orUnset(k.prv.label)+suffix, orUnset(k.pub.label)+suffix, true)
}

func (k *Keypair) String() string {
	return "keypair(" + k.prv.String() + ", " + k.pub.String() + ")"
}
