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
	"bytes"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-seckeychain/pkg/auth"
	"github.com/jeremyhahn/go-seckeychain/pkg/metrics"
	"github.com/jeremyhahn/go-seckeychain/pkg/record"
	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
)

// ChangeSuffix is appended to the labels of the temporary keypair, and to
// the label and account of the backup, that Change creates.
const ChangeSuffix = "-change"

// ErrRecoveryRequired matches a *RotationError: the original keypair is
// gone and the verified backup is the only copy of the item.
var ErrRecoveryRequired = errors.New("keychain: change interrupted, recover from backup")

// RotationPhase is the step of Change that failed after the original
// keypair was committed for deletion.
type RotationPhase int

const (
	// PhasePrepare means a backup from an earlier change exists and the
	// item could not be verified under the old keypair.
	PhasePrepare RotationPhase = iota + 1

	// PhaseGenerate means the final keypair could not be generated.
	PhaseGenerate

	// PhaseSave means the re-encrypted item could not be saved.
	PhaseSave

	// PhaseVerify means the saved item did not decrypt to the plaintext.
	PhaseVerify
)

func (p RotationPhase) String() string {
	switch p {
	case PhasePrepare:
		return "prepare"
	case PhaseGenerate:
		return "generate"
	case PhaseSave:
		return "save"
	case PhaseVerify:
		return "verify"
	default:
		return "unknown"
	}
}

// RotationError reports a Change that cannot simply be retried. The item
// is recoverable by decrypting Backup with BackupKeys, which RecoverChange
// does.
type RotationError struct {
	Phase      RotationPhase
	BackupKeys *record.Keypair
	Backup     record.Record
	Err        error
}

func (e *RotationError) Error() string {
	return fmt.Sprintf("keychain: change failed during %s, recover %s with %s: %v",
		e.Phase, e.Backup, e.BackupKeys, e.Err)
}

func (e *RotationError) Unwrap() error {
	return e.Err
}

// Is matches ErrRecoveryRequired.
func (e *RotationError) Is(target error) bool {
	return target == ErrRecoveryRequired
}

// Change re-encrypts item, currently encrypted to keys under oldCtx, to a
// new keypair with the same labels guarded by newCtx.
//
// The plaintext is decrypted once, backed up under a temporary hardware
// keypair and verified before the original item and keypair are deleted.
// A failure before that point leaves the original untouched, removes the
// temporary keypair and backup, and is safe to retry. A failure after it is
// a *RotationError; the backup is kept. The backup is also kept after
// success so the caller can confirm the result before calling
// DiscardChangeBackup.
//
// Change must not be interrupted: it does not take a context.Context.
func (k *Keychain) Change(keys *record.Keypair, item record.Record, oldCtx, newCtx *auth.Context) error {
	err := k.instrument(metrics.OpChange, func() error {
		return k.change(keys, item, oldCtx, newCtx)
	})
	metrics.RecordRotation(rotationOutcome(err))
	return err
}

func rotationOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeCompleted
	case errors.Is(err, ErrRecoveryRequired):
		return metrics.OutcomeRecoveryRequired
	default:
		return metrics.OutcomeAborted
	}
}

func (k *Keychain) change(keys *record.Keypair, item record.Record, oldCtx, newCtx *auth.Context) error {
	if err := k.checkRotationTarget(keys, item, "change keys"); err != nil {
		return err
	}
	tempKeys := keys.Derive(ChangeSuffix)
	backup := record.Derive(item, ChangeSuffix)
	log := k.logger.With("item", item.Label())

	// The new context must drive the secure element before anything is touched.
	if err := k.verifySecureEnclave(newCtx); err != nil {
		return err
	}

	if err := k.checkStaleBackup(keys, item, tempKeys, backup, oldCtx); err != nil {
		return err
	}
	k.discard(tempKeys.Private(), tempKeys.Public(), backup)
	temp, err := k.generate(tempKeys, newCtx)
	if err != nil {
		return err
	}
	log.Debugf("keychain: change: temporary keypair generated")

	committed := false
	defer func() {
		if !committed {
			k.discard(tempKeys.Private(), tempKeys.Public(), backup)
		}
	}()

	decrypted, err := k.loadAndDecrypt(keys.Private(), item, oldCtx)
	if err != nil {
		return err
	}
	plaintext, ok := record.DataOf(decrypted)
	if !ok {
		return inconsistency(nil, "Can't verify backup")
	}

	backupValue, _ := record.WithData(backup, plaintext)
	if err := k.encryptAndSave(temp.Public(), backupValue, newCtx); err != nil {
		return err
	}
	restored, err := k.loadAndDecrypt(temp.Private(), backup, newCtx)
	if err != nil {
		return err
	}
	if data, ok := record.DataOf(restored); !ok || !bytes.Equal(data, plaintext) {
		return inconsistency(nil, "Can't verify backup")
	}
	log.Debugf("keychain: change: backup verified")

	// Destructive phase. From here on the verified backup is the recovery
	// path, so deletes are best effort.
	committed = true
	k.discard(item, keys.Private(), keys.Public())

	if err := k.reencrypt(keys, item, plaintext, newCtx, tempKeys, backup); err != nil {
		log.Warnf("keychain: change: %v", err)
		return err
	}
	log.Infof("keychain: change: completed, backup %s retained", backup.Label())
	return nil
}

// checkRotationTarget requires the rotated item and keypair to name exactly
// one item each. Store deletes treat an empty label or account as a
// wildcard, so an under-specified target would take the backup and the
// temporary keys down with it in the destructive phase.
func (k *Keychain) checkRotationTarget(keys *record.Keypair, item record.Record, verb string) error {
	if keys == nil || item == nil {
		return invalid()
	}
	if b, ok := item.(*record.Blob); !ok || b == nil {
		return general(nil, "Couldn't %s. Item must be a data record.", verb)
	}
	if item.Label() == "" {
		return general(nil, "Couldn't %s. Item must have a label.", verb)
	}
	if keys.Private().Label() == "" || keys.Public().Label() == "" {
		return general(nil, "Couldn't %s. Keypair must have private and public labels.", verb)
	}
	if keys.Private().Label() == keys.Public().Label() {
		return general(nil, "Couldn't %s. Keypair labels must differ.", verb)
	}

	res, qerr := buildAll(securestore.ClassGenericPassword, k.accessGroup).execute(k.store)
	if qerr != nil {
		return general(qerr, "Couldn't %s. OSStatus: %d", verb, qerr.Status)
	}
	want := securestore.Identity{Label: item.Label(), Account: item.Account()}
	matches := 0
	for _, a := range res.attrs {
		if want.Matches(securestore.Identity{Label: a.Label, Account: a.Account}) {
			matches++
		}
	}
	if matches > 1 {
		return general(nil, "Couldn't %s. %s matches %d items, give its account.", verb, item, matches)
	}
	return nil
}

// checkStaleBackup refuses to discard a backup left by an earlier change
// unless the item still decrypts under the old keypair. Authentication
// failures are returned as is; nothing has been modified.
func (k *Keychain) checkStaleBackup(keys *record.Keypair, item record.Record, tempKeys *record.Keypair, backup record.Record, oldCtx *auth.Context) error {
	exists, err := k.exists(backup)
	if err != nil || !exists {
		return err
	}
	if _, err := k.loadAndDecrypt(keys.Private(), item, oldCtx); err != nil {
		if KindOf(err) == KindAuthentication {
			return err
		}
		return &RotationError{Phase: PhasePrepare, BackupKeys: tempKeys, Backup: backup, Err: err}
	}
	k.logger.Warnf("keychain: discarding backup %s of an earlier change", backup.Label())
	return nil
}

// reencrypt generates keys under ctx, saves item encrypted to them and
// verifies it decrypts to plaintext. Failures leave the backup in place.
func (k *Keychain) reencrypt(keys *record.Keypair, item record.Record, plaintext []byte, ctx *auth.Context, tempKeys *record.Keypair, backup record.Record) error {
	recovery := func(phase RotationPhase, err error) error {
		return &RotationError{Phase: phase, BackupKeys: tempKeys, Backup: backup, Err: err}
	}

	newKeys, err := k.generate(keys.Templates(), ctx)
	if err != nil {
		return recovery(PhaseGenerate, err)
	}

	value, _ := record.WithData(item, plaintext)
	if err := k.encryptAndSave(newKeys.Public(), value, ctx); err != nil {
		return recovery(PhaseSave, err)
	}

	restored, err := k.loadAndDecrypt(newKeys.Private(), record.BlobRef(item.Label(), item.Account()), ctx)
	if err != nil {
		return recovery(PhaseVerify, err)
	}
	if data, ok := record.DataOf(restored); !ok || !bytes.Equal(data, plaintext) {
		return recovery(PhaseVerify, inconsistency(nil, "Something went wrong"))
	}
	return nil
}

func (k *Keychain) exists(r record.Record) (bool, error) {
	_, err := k.load(r, nil)
	switch {
	case err == nil:
		return true, nil
	case KindOf(err) == KindNotFound:
		return false, nil
	default:
		return false, err
	}
}

// RecoverChange completes a Change that failed with a *RotationError. It
// decrypts the backup with the temporary keypair under newCtx, replaces any
// partial result with a fresh keypair and item, verifies it, and then
// discards the backup.
func (k *Keychain) RecoverChange(keys *record.Keypair, item record.Record, newCtx *auth.Context) error {
	err := k.instrument(metrics.OpRecoverChange, func() error {
		return k.recoverChange(keys, item, newCtx)
	})
	metrics.RecordRotation(rotationOutcome(err))
	return err
}

func (k *Keychain) recoverChange(keys *record.Keypair, item record.Record, newCtx *auth.Context) error {
	if err := k.checkRotationTarget(keys, item, "recover change"); err != nil {
		return err
	}
	tempKeys := keys.Derive(ChangeSuffix)
	backup := record.Derive(item, ChangeSuffix)

	restored, err := k.loadAndDecrypt(tempKeys.Private(), backup, newCtx)
	if err != nil {
		return err
	}
	plaintext, ok := record.DataOf(restored)
	if !ok {
		return inconsistency(nil, "Can't verify backup")
	}

	k.discard(item, keys.Private(), keys.Public())
	if err := k.reencrypt(keys, item, plaintext, newCtx, tempKeys, backup); err != nil {
		return err
	}
	k.discard(tempKeys.Private(), tempKeys.Public(), backup)
	k.logger.Infof("keychain: recovered change of %s", item.Label())
	return nil
}

// DiscardChangeBackup deletes the temporary keypair and backup a completed
// Change leaves behind.
func (k *Keychain) DiscardChangeBackup(keys *record.Keypair, item record.Record) error {
	return k.instrument(metrics.OpDiscardBackup, func() error {
		if keys == nil || item == nil {
			return invalid()
		}
		tempKeys := keys.Derive(ChangeSuffix)
		return errors.Join(
			k.delete(tempKeys.Private()),
			k.delete(tempKeys.Public()),
			k.delete(record.Derive(item, ChangeSuffix)),
		)
	})
}
