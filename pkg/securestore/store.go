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

// Package securestore defines the contracts of the collaborators the keychain
// is built on: a secure item store keyed by class, label and account and
// partitioned by access group, an asymmetric cipher primitive operating on
// opaque key handles, and the status codes both report.
//
// Implementations own all key material. Callers only ever hold KeyHandle
// references, which must not be copied by value or assumed to be exportable.
package securestore

import (
	"crypto/ecdsa"

	"github.com/jeremyhahn/go-seckeychain/pkg/auth"
)

// Class is the kind of a stored item.
type Class int

const (
	// ClassGenericPassword items hold opaque byte payloads.
	ClassGenericPassword Class = iota + 1

	// ClassKey items hold asymmetric key material.
	ClassKey
)

func (c Class) String() string {
	switch c {
	case ClassGenericPassword:
		return "genp"
	case ClassKey:
		return "keys"
	default:
		return "unknown"
	}
}

// KeyClass distinguishes the halves of a keypair.
type KeyClass int

const (
	KeyClassNone KeyClass = iota
	KeyClassPublic
	KeyClassPrivate
)

func (k KeyClass) String() string {
	switch k {
	case KeyClassPublic:
		return "public"
	case KeyClassPrivate:
		return "private"
	default:
		return "none"
	}
}

// Token identifies where private key material lives.
type Token int

const (
	// TokenNone keeps key material in conventional storage.
	TokenNone Token = iota

	// TokenSecureEnclave keeps private key material inside the secure
	// element. It is never exported, only referenced.
	TokenSecureEnclave
)

func (t Token) String() string {
	if t == TokenSecureEnclave {
		return "secure-enclave"
	}
	return "none"
}

// KeyType is the asymmetric algorithm family of a generated keypair.
type KeyType int

const (
	// KeyTypeECSECPrimeRandom is an elliptic curve key over a NIST prime curve.
	KeyTypeECSECPrimeRandom KeyType = iota + 1
)

// Algorithm selects the asymmetric encryption suite.
type Algorithm int

const (
	// AlgorithmECIESCofactorX963SHA256AESGCM is cofactor ECDH, the ANSI X9.63
	// KDF over SHA-256, and AES-GCM.
	AlgorithmECIESCofactorX963SHA256AESGCM Algorithm = iota + 1

	// AlgorithmECIESHKDFSHA256AESGCM is ECDH, HKDF-SHA256, and AES-256-GCM.
	AlgorithmECIESHKDFSHA256AESGCM
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmECIESCofactorX963SHA256AESGCM:
		return "ecies-cofactor-x963-sha256-aesgcm"
	case AlgorithmECIESHKDFSHA256AESGCM:
		return "ecies-hkdf-sha256-aesgcm"
	default:
		return "unknown"
	}
}

// AuthenticationUI controls whether the store may prompt the user while
// resolving a protected item.
type AuthenticationUI int

const (
	AuthenticationUIDefault AuthenticationUI = iota
	AuthenticationUIAllow
	AuthenticationUIFail
)

// ReturnType selects what a Get returns.
type ReturnType int

const (
	ReturnData ReturnType = iota + 1
	ReturnRef
	ReturnAttributes
)

// MatchLimit bounds how many items a Get may match.
type MatchLimit int

const (
	MatchLimitOne MatchLimit = iota + 1
	MatchLimitAll
)

// Identity locates an item within its class and scope. Empty fields match
// any value on lookups and are stored as empty on insert.
type Identity struct {
	Label   string
	Account string
}

// Matches reports whether an item identity satisfies this lookup identity.
func (i Identity) Matches(item Identity) bool {
	if i.Label != "" && i.Label != item.Label {
		return false
	}
	if i.Account != "" && i.Account != item.Account {
		return false
	}
	return true
}

// KeyHandle is an opaque reference to key material owned by a store.
type KeyHandle interface {
	// KeyClass reports which half of a keypair the handle refers to.
	KeyClass() KeyClass

	// Token reports where the private material lives.
	Token() Token

	// Public returns the public half. Public material is always exportable.
	Public() *ecdsa.PublicKey

	// Equal reports whether both handles refer to the same key.
	Equal(other KeyHandle) bool
}

// Value is the payload of an item: data for generic passwords, a key handle
// for keys.
type Value struct {
	Data []byte
	Key  KeyHandle
}

// Item is an insert request.
type Item struct {
	Class Class
	Identity
	Scope          string
	Value          Value
	Accessible     auth.Accessibility
	Synchronizable bool
}

// GetOptions tune a lookup.
type GetOptions struct {
	Context          *auth.Context
	AuthenticationUI AuthenticationUI
	Return           ReturnType
	MatchLimit       MatchLimit
}

// Attributes describe a stored item without its payload.
type Attributes struct {
	Class      Class
	Label      string
	Account    string
	Scope      string
	KeyClass   KeyClass
	Token      Token
	Accessible auth.Accessibility
}

// Result is the outcome of a successful lookup.
type Result struct {
	Data       []byte
	Key        KeyHandle
	Attributes Attributes
}

// PrivateKeyAttributes configure the private half of a generated keypair.
type PrivateKeyAttributes struct {
	Label            string
	Permanent        bool
	Context          *auth.Context
	AuthenticationUI AuthenticationUI
	AccessControl    *auth.AccessControl
	Accessible       auth.Accessibility
}

// PublicKeyAttributes configure the public half of a generated keypair.
type PublicKeyAttributes struct {
	Label      string
	Accessible auth.Accessibility
}

// KeyPairDescriptor is a combined keypair generation request.
type KeyPairDescriptor struct {
	KeyType        KeyType
	KeySizeInBits  int
	Token          Token
	Scope          string
	Synchronizable bool
	Private        PrivateKeyAttributes
	Public         PublicKeyAttributes
}

// Store is the secure item store. Every method is a single blocking
// operation; there are no multi-item transactions.
type Store interface {
	// Put inserts a new item. Returns StatusDuplicateItem if an item with
	// the same identity already exists.
	Put(item *Item) error

	// Overwrite replaces the payload of every item matching the identity.
	// Returns StatusItemNotFound if nothing matches.
	Overwrite(class Class, id Identity, scope string, value Value) error

	// Delete removes every item matching the identity. Returns
	// StatusItemNotFound if nothing matches.
	Delete(class Class, id Identity, scope string) error

	// Get returns the first item matching the identity. Returns
	// StatusItemNotFound if nothing matches.
	Get(class Class, id Identity, scope string, opts *GetOptions) (*Result, error)

	// DeleteAll removes every item of the class in the scope.
	DeleteAll(class Class, scope string) error

	// Enumerate lists the attributes of every item of the class in the scope.
	Enumerate(class Class, scope string) ([]Attributes, error)

	// GenerateKeyPair creates a keypair. Hardware backed permanent private
	// keys are persisted by the store itself; other halves are returned as
	// transient handles for the caller to save.
	GenerateKeyPair(desc *KeyPairDescriptor) (prv KeyHandle, pub KeyHandle, err error)
}

// Cipher is the asymmetric encryption primitive.
type Cipher interface {
	// Encrypt seals plaintext to the public key.
	Encrypt(pub KeyHandle, alg Algorithm, plaintext []byte) ([]byte, error)

	// Decrypt opens ciphertext with the private key. Protected keys are
	// authorized against the context the handle was resolved with.
	Decrypt(prv KeyHandle, alg Algorithm, ciphertext []byte) ([]byte, error)
}
