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
package keychain

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-seckeychain/pkg/auth"
	"github.com/jeremyhahn/go-seckeychain/pkg/record"
	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
)

// KeySizeInBits is the width of every generated keypair.
const KeySizeInBits = 256

// QueryErrorKind classifies store statuses.
type QueryErrorKind int

const (
	// QueryInvalidRecord reports an access control or policy combination
	// the store or hardware does not support.
	QueryInvalidRecord QueryErrorKind = iota + 1
	QueryMissingEntitlement
	QueryDuplicateItem
	QueryNotFound
	// QueryOther passes the status through opaquely.
	QueryOther
)

func (k QueryErrorKind) String() string {
	switch k {
	case QueryInvalidRecord:
		return "invalid record"
	case QueryMissingEntitlement:
		return "missing entitlement"
	case QueryDuplicateItem:
		return "duplicate item"
	case QueryNotFound:
		return "not found"
	default:
		return "other"
	}
}

// QueryError is a classified store failure.
type QueryError struct {
	Kind   QueryErrorKind
	Status securestore.Status
	Err    error
}

func newQueryError(err error) *QueryError {
	status, ok := securestore.StatusOf(err)
	if !ok {
		return &QueryError{Kind: QueryOther, Err: err}
	}
	qerr := &QueryError{Status: status, Err: err}
	switch status {
	case securestore.StatusInvalidRecord:
		qerr.Kind = QueryInvalidRecord
	case securestore.StatusMissingEntitlement:
		qerr.Kind = QueryMissingEntitlement
	case securestore.StatusDuplicateItem:
		qerr.Kind = QueryDuplicateItem
	case securestore.StatusItemNotFound:
		qerr.Kind = QueryNotFound
	default:
		qerr.Kind = QueryOther
	}
	return qerr
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("keychain: query failed: %s (OSStatus %d)", e.Kind, int32(e.Status))
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

type operation int

const (
	opAdd operation = iota + 1
	opUpdate
	opDelete
	opLoad
	opGenerate
	opDeleteAll
	opAll
)

// query is a single primitive store call.
type query struct {
	op    operation
	class securestore.Class
	id    securestore.Identity
	scope string
	value securestore.Value
	get   *securestore.GetOptions
	pair  *securestore.KeyPairDescriptor
}

// queryResult holds whatever the executed primitive produced.
type queryResult struct {
	found *securestore.Result
	attrs []securestore.Attributes
	prv   securestore.KeyHandle
	pub   securestore.KeyHandle
}

func classOf(r record.Record) (securestore.Class, bool) {
	switch r.(type) {
	case *record.Blob:
		return securestore.ClassGenericPassword, true
	case *record.KeyMember:
		return securestore.ClassKey, true
	default:
		return 0, false
	}
}

func identityOf(r record.Record) securestore.Identity {
	return securestore.Identity{Label: r.Label(), Account: r.Account()}
}

// valueOf returns the payload a save or update writes. Blobs need data and
// key members need a live handle.
func valueOf(r record.Record) (securestore.Value, error) {
	switch r := r.(type) {
	case *record.Blob:
		if data, ok := r.Data(); ok {
			return securestore.Value{Data: data}, nil
		}
	case *record.KeyMember:
		if key := r.Key(); key != nil {
			return securestore.Value{Key: key}, nil
		}
	default:
		return securestore.Value{}, invalid()
	}
	return securestore.Value{}, general(nil, "Empty data")
}

func buildSave(r record.Record, scope string) (*query, error) {
	value, err := valueOf(r)
	if err != nil {
		return nil, err
	}
	class, _ := classOf(r)
	return &query{op: opAdd, class: class, id: identityOf(r), scope: scope, value: value}, nil
}

// buildUpdate overwrites only the value; label and account locate the item.
func buildUpdate(r record.Record, scope string) (*query, error) {
	value, err := valueOf(r)
	if err != nil {
		return nil, err
	}
	class, _ := classOf(r)
	return &query{op: opUpdate, class: class, id: identityOf(r), scope: scope, value: value}, nil
}

func buildDelete(r record.Record, scope string) (*query, error) {
	class, ok := classOf(r)
	if !ok {
		return nil, invalid()
	}
	return &query{op: opDelete, class: class, id: identityOf(r), scope: scope}, nil
}

func buildDeleteAll(class securestore.Class, scope string) *query {
	return &query{op: opDeleteAll, class: class, scope: scope}
}

func buildAll(class securestore.Class, scope string) *query {
	return &query{
		op:    opAll,
		class: class,
		scope: scope,
		get: &securestore.GetOptions{
			Return:     securestore.ReturnAttributes,
			MatchLimit: securestore.MatchLimitAll,
		},
	}
}

// buildLoad requests a handle for keys and at most one payload for blobs.
// The context is attached when present; interactive authentication is only
// allowed when it carries no preloaded application password.
func buildLoad(r record.Record, scope string, ctx *auth.Context) (*query, error) {
	class, ok := classOf(r)
	if !ok {
		return nil, invalid()
	}
	opts := &securestore.GetOptions{
		Return:     securestore.ReturnData,
		MatchLimit: securestore.MatchLimitOne,
	}
	if class == securestore.ClassKey {
		opts.Return = securestore.ReturnRef
	}
	if ctx != nil {
		opts.Context = ctx
		if !ctx.IsCredentialSet(auth.CredentialApplicationPassword) {
			opts.AuthenticationUI = securestore.AuthenticationUIAllow
		}
	}
	return &query{op: opLoad, class: class, id: identityOf(r), scope: scope, get: opts}, nil
}

// buildGenerate describes a permanent 256-bit EC keypair. With a context the
// private half is guarded by an access control derived from it; without one
// it is only accessible while the device is unlocked.
func buildGenerate(kp *record.Keypair, scope string, ctx *auth.Context) (*query, error) {
	desc := &securestore.KeyPairDescriptor{
		KeyType:       securestore.KeyTypeECSECPrimeRandom,
		KeySizeInBits: KeySizeInBits,
		Scope:         scope,
		Private: securestore.PrivateKeyAttributes{
			Label:     kp.Private().Label(),
			Permanent: true,
		},
		Public: securestore.PublicKeyAttributes{
			Label:      kp.Public().Label(),
			Accessible: auth.AccessibleAlwaysThisDeviceOnly,
		},
	}
	if kp.SecureEnclave() {
		desc.Token = securestore.TokenSecureEnclave
	}

	if ctx != nil {
		desc.Private.Context = ctx
		if !ctx.IsCredentialSet(auth.CredentialApplicationPassword) {
			desc.Private.AuthenticationUI = securestore.AuthenticationUIAllow
		}
		ac, err := ctx.AccessControl()
		if err != nil {
			return nil, accessControlError(err, ctx.AccessControlFlags())
		}
		desc.Private.AccessControl = ac
	} else {
		desc.Private.Accessible = auth.AccessibleWhenUnlockedThisDeviceOnly
	}

	return &query{op: opGenerate, class: securestore.ClassKey, scope: scope, pair: desc}, nil
}

func accessControlError(err error, flags auth.AccessControlFlags) error {
	if errors.Is(err, auth.ErrInvalidAccessControl) {
		return inconsistency(err, "Couldn't create access control with flags %s", flags)
	}
	return fromError(err, fmt.Sprintf("Tried creating access control object with flags %s and protection %s",
		flags, auth.AccessibleWhenUnlockedThisDeviceOnly))
}

// execute runs the query against store. Deletes treat a missing item as
// success; not found is only reported on load paths.
func (q *query) execute(store securestore.Store) (*queryResult, *QueryError) {
	switch q.op {
	case opAdd:
		err := store.Put(&securestore.Item{
			Class:    q.class,
			Identity: q.id,
			Scope:    q.scope,
			Value:    q.value,
		})
		if err != nil {
			return nil, newQueryError(err)
		}
		return &queryResult{}, nil

	case opUpdate:
		if err := store.Overwrite(q.class, q.id, q.scope, q.value); err != nil {
			return nil, newQueryError(err)
		}
		return &queryResult{}, nil

	case opDelete, opDeleteAll:
		var err error
		if q.op == opDelete {
			err = store.Delete(q.class, q.id, q.scope)
		} else {
			err = store.DeleteAll(q.class, q.scope)
		}
		if err != nil && !errors.Is(err, securestore.StatusItemNotFound) {
			return nil, newQueryError(err)
		}
		return &queryResult{}, nil

	case opLoad:
		found, err := store.Get(q.class, q.id, q.scope, q.get)
		if err != nil {
			return nil, newQueryError(err)
		}
		if found == nil {
			return nil, &QueryError{Kind: QueryNotFound, Status: securestore.StatusItemNotFound}
		}
		return &queryResult{found: found}, nil

	case opGenerate:
		prv, pub, err := store.GenerateKeyPair(q.pair)
		if err != nil {
			return nil, newQueryError(err)
		}
		if prv == nil || pub == nil {
			return nil, &QueryError{Kind: QueryOther, Err: errors.New("store returned no key handles")}
		}
		return &queryResult{prv: prv, pub: pub}, nil

	case opAll:
		attrs, err := store.Enumerate(q.class, q.scope)
		if err != nil && !errors.Is(err, securestore.StatusItemNotFound) {
			return nil, newQueryError(err)
		}
		return &queryResult{attrs: attrs}, nil
	}

	return nil, &QueryError{Kind: QueryOther, Status: securestore.StatusUnimplemented}
}
