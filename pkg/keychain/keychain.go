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
	"crypto/rand"
	"io"
	"time"

	"github.com/jeremyhahn/go-seckeychain/pkg/auth"
	"github.com/jeremyhahn/go-seckeychain/pkg/logging"
	"github.com/jeremyhahn/go-seckeychain/pkg/metrics"
	"github.com/jeremyhahn/go-seckeychain/pkg/record"
	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
	"github.com/jeremyhahn/go-seckeychain/pkg/validation"
)

// Config configures a Keychain.
type Config struct {
	// AccessGroup partitions every store operation. Keychains with different
	// access groups are isolated even over the same store.
	AccessGroup string

	// Store is the secure item store. Required.
	Store securestore.Store

	// Cipher is the asymmetric encryption primitive. Defaults to Store when
	// it implements securestore.Cipher.
	Cipher securestore.Cipher

	// Algorithm selects the encryption suite. Defaults to
	// securestore.AlgorithmECIESCofactorX963SHA256AESGCM.
	Algorithm securestore.Algorithm

	// Random is the entropy source for self-test nonces. Defaults to
	// crypto/rand.Reader.
	Random io.Reader

	Logger *logging.Logger
}

// Keychain is the façade over a secure store. Operations are synchronous
// and each one is a short sequence of single-item store calls; the store
// offers no transactions across them.
type Keychain struct {
	accessGroup string
	store       securestore.Store
	cipher      securestore.Cipher
	algorithm   securestore.Algorithm
	random      io.Reader
	logger      *logging.Logger
}

// New creates a Keychain.
func New(config *Config) (*Keychain, error) {
	if config == nil || config.Store == nil {
		return nil, ErrStoreRequired
	}

	cipher := config.Cipher
	if cipher == nil {
		c, ok := config.Store.(securestore.Cipher)
		if !ok {
			return nil, ErrCipherRequired
		}
		cipher = c
	}

	algorithm := config.Algorithm
	if algorithm == 0 {
		algorithm = securestore.AlgorithmECIESCofactorX963SHA256AESGCM
	}
	random := config.Random
	if random == nil {
		random = rand.Reader
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	return &Keychain{
		accessGroup: config.AccessGroup,
		store:       config.Store,
		cipher:      cipher,
		algorithm:   algorithm,
		random:      random,
		logger:      logger.With("access_group", config.AccessGroup),
	}, nil
}

// AccessGroup returns the partition this keychain operates in.
func (k *Keychain) AccessGroup() string {
	return k.accessGroup
}

// instrument records metrics for a public operation.
func (k *Keychain) instrument(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		metrics.RecordError(op, KindOf(err).String())
		k.logger.Debugf("keychain: %s failed: %v", op, err)
	}
	metrics.RecordOperation(op, status, time.Since(start).Seconds())
	return err
}

// Save persists a record. It fails with KindDuplicateItem when a record
// with the same identity exists, for keys and blobs alike.
func (k *Keychain) Save(r record.Record) error {
	return k.instrument(metrics.OpSave, func() error {
		return k.save(r)
	})
}

func (k *Keychain) save(r record.Record) error {
	if err := k.validateNotFound(r, nil); err != nil {
		return err
	}
	q, err := buildSave(r, k.accessGroup)
	if err != nil {
		return err
	}
	if _, qerr := q.execute(k.store); qerr != nil {
		return writeError("save", r, qerr)
	}
	return nil
}

// Update saves a blob, overwriting the payload if the identity exists. Key
// records are not supported. Save failures other than a duplicate are
// returned unchanged.
func (k *Keychain) Update(r record.Record) error {
	return k.instrument(metrics.OpUpdate, func() error {
		return k.update(r)
	})
}

func (k *Keychain) update(r record.Record) error {
	switch r.(type) {
	case *record.Blob:
	case *record.KeyMember:
		return general(nil, "Couldn't update record. Not supported.")
	default:
		return invalid()
	}

	err := k.save(r)
	if KindOf(err) != KindDuplicateItem {
		return err
	}

	q, err := buildUpdate(r, k.accessGroup)
	if err != nil {
		return err
	}
	if _, qerr := q.execute(k.store); qerr != nil {
		return writeError("update", r, qerr)
	}
	return nil
}

// Load resolves a record. Keys come back with a live handle bound to ctx,
// blobs with their payload.
func (k *Keychain) Load(r record.Record, ctx *auth.Context) (record.Record, error) {
	var loaded record.Record
	err := k.instrument(metrics.OpLoad, func() error {
		var err error
		loaded, err = k.load(r, ctx)
		return err
	})
	return loaded, err
}

func (k *Keychain) load(r record.Record, ctx *auth.Context) (record.Record, error) {
	q, err := buildLoad(r, k.accessGroup, ctx)
	if err != nil {
		return nil, err
	}
	res, qerr := q.execute(k.store)
	if qerr != nil {
		if qerr.Kind == QueryNotFound {
			return nil, notFound(qerr, "Couldn't get data for record: %s", r)
		}
		return nil, general(qerr, "Couldn't get data for record: %s. Status: %d", r, qerr.Status)
	}

	switch r := r.(type) {
	case *record.KeyMember:
		if res.found.Key == nil {
			return nil, general(nil, "Internal error")
		}
		return r.WithKey(res.found.Key), nil
	case *record.Blob:
		return r.WithData(res.found.Data), nil
	default:
		return nil, invalid()
	}
}

// Delete removes a record by identity. Deleting an absent record succeeds.
func (k *Keychain) Delete(r record.Record) error {
	return k.instrument(metrics.OpDelete, func() error {
		return k.delete(r)
	})
}

func (k *Keychain) delete(r record.Record) error {
	q, err := buildDelete(r, k.accessGroup)
	if err != nil {
		return err
	}
	if _, qerr := q.execute(k.store); qerr != nil {
		if qerr.Kind == QueryInvalidRecord {
			return general(qerr, "Couldn't delete key. It's possible that the access control you have provided isn't supported on this OS and/or hardware.")
		}
		return general(qerr, "Couldn't delete key. OSStatus: %d", qerr.Status)
	}
	return nil
}

// discard deletes records best effort. Failures are logged and dropped so
// they never mask the error that triggered the cleanup.
func (k *Keychain) discard(records ...record.Record) {
	for _, r := range records {
		if err := k.delete(r); err != nil {
			k.logger.Warnf("keychain: cleanup of %s failed: %v", validation.SanitizeForLog(r.String()), err)
		}
	}
}

// Generate creates the keypair described by kp under ctx and returns it with
// live handles. The public half is always saved; the private half is saved
// only when it is not hardware backed, since the secure element persists
// its own keys. Once generation starts, any failure deletes both halves
// before the error is returned.
func (k *Keychain) Generate(kp *record.Keypair, ctx *auth.Context) (*record.Keypair, error) {
	var generated *record.Keypair
	err := k.instrument(metrics.OpGenerate, func() error {
		var err error
		generated, err = k.generate(kp, ctx)
		return err
	})
	return generated, err
}

func (k *Keychain) generate(kp *record.Keypair, ctx *auth.Context) (_ *record.Keypair, err error) {
	if kp == nil {
		return nil, invalid()
	}
	if err := k.validateNotFound(kp.Private(), ctx); err != nil {
		return nil, err
	}
	if err := k.validateNotFound(kp.Public(), ctx); err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			k.discard(kp.Private(), kp.Public())
		}
	}()

	q, err := buildGenerate(kp, k.accessGroup, ctx)
	if err != nil {
		return nil, err
	}
	res, qerr := q.execute(k.store)
	if qerr != nil {
		return nil, writeError("generate", kp.Private(), qerr)
	}

	updated := kp.WithHandles(res.prv, res.pub)
	if !kp.SecureEnclave() {
		if err := k.save(updated.Private()); err != nil {
			return nil, err
		}
	}
	if err := k.save(updated.Public()); err != nil {
		return nil, err
	}

	k.logger.Debugf("keychain: generated keypair %s", validation.SanitizeForLog(kp.String()))
	return updated, nil
}

// Reset deletes every item and key in the access group. Failures are
// ignored.
func (k *Keychain) Reset() {
	_ = k.instrument(metrics.OpReset, func() error {
		for _, class := range []securestore.Class{securestore.ClassGenericPassword, securestore.ClassKey} {
			if _, qerr := buildDeleteAll(class, k.accessGroup).execute(k.store); qerr != nil {
				k.logger.Debugf("keychain: reset of %s ignored error: %v", class, qerr)
			}
		}
		return nil
	})
}

// List returns the attributes of every item of class in the access group.
func (k *Keychain) List(class securestore.Class) ([]securestore.Attributes, error) {
	var attrs []securestore.Attributes
	err := k.instrument(metrics.OpList, func() error {
		res, qerr := buildAll(class, k.accessGroup).execute(k.store)
		if qerr != nil {
			return general(qerr, "Couldn't list records. OSStatus: %d", qerr.Status)
		}
		attrs = res.attrs
		metrics.SetItemsTotal(class.String(), float64(len(attrs)))
		return nil
	})
	return attrs, err
}

// validateNotFound fails with KindDuplicateItem when r already exists.
func (k *Keychain) validateNotFound(r record.Record, ctx *auth.Context) error {
	q, err := buildLoad(r, k.accessGroup, ctx)
	if err != nil {
		return err
	}
	_, qerr := q.execute(k.store)
	if qerr == nil {
		if _, ok := r.(*record.KeyMember); ok {
			return duplicate(nil, "Duplicate key. Label: %s", orEmpty(r.Label()))
		}
		return duplicate(nil, "Duplicate item. Label: %s. Account: %s", orEmpty(r.Label()), orEmpty(r.Account()))
	}
	if qerr.Kind == QueryNotFound {
		return nil
	}
	return general(qerr, "Couldn't get data for record: %s. Status: %d", r, qerr.Status)
}

// writeError translates a failed save, update or generate.
func writeError(verb string, r record.Record, qerr *QueryError) error {
	switch qerr.Kind {
	case QueryInvalidRecord:
		return general(qerr, "Couldn't %s record. It's possible that the access control you have provided isn't supported on this OS and/or hardware.", verb)
	case QueryMissingEntitlement:
		return general(qerr, "Couldn't %s record. Missing entitlement.", verb)
	case QueryDuplicateItem:
		return duplicate(qerr, "Couldn't %s record. Duplicate item.", verb)
	case QueryNotFound:
		return notFound(qerr, "Couldn't get data for record: %s", r)
	default:
		return general(qerr, "Couldn't %s record. OSStatus: %d. Record: %s", verb, qerr.Status, r)
	}
}

func orEmpty(s string) string {
	if s == "" {
		return "<empty>"
	}
	return s
}
