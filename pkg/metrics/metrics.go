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
// Package metrics provides Prometheus instrumentation for keychain operations.
// It exposes operation counters, latency histograms, error counters by
// failure kind, and rotation outcomes.
package metrics

import (
	"io"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const (
	// Namespace is the Prometheus namespace for all keychain metrics
	Namespace = "seckeychain"

	// Label names
	LabelOperation = "operation"
	LabelStatus    = "status"
	LabelErrorType = "error_type"
	LabelOutcome   = "outcome"
	LabelClass     = "class"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Operation names
	OpSave           = "save"
	OpUpdate         = "update"
	OpLoad           = "load"
	OpDelete         = "delete"
	OpGenerate       = "generate"
	OpVerify         = "verify_secure_enclave"
	OpEncrypt        = "encrypt"
	OpDecrypt        = "decrypt"
	OpEncryptAndSave = "encrypt_and_save"
	OpLoadAndDecrypt = "load_and_decrypt"
	OpChange         = "change"
	OpRecoverChange  = "recover_change"
	OpDiscardBackup  = "discard_change_backup"
	OpReset          = "reset"
	OpList           = "list"

	// Rotation outcomes
	OutcomeCompleted        = "completed"
	OutcomeAborted          = "aborted"
	OutcomeRecoveryRequired = "recovery_required"
)

var (
	// OperationsTotal tracks the total number of keychain operations by type and status.
	// Use RecordOperation to increment this counter with the appropriate labels.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of keychain operations by type and status",
		},
		[]string{LabelOperation, LabelStatus},
	)

	// OperationDuration tracks the duration of keychain operations in seconds.
	// Buckets cover software store lookups through secure element rotations.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of keychain operations in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{LabelOperation},
	)

	// ErrorsTotal tracks the total number of errors by operation and error type.
	// Error types are the keychain error kinds (e.g., "not_found", "duplicate_item").
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation and error type",
		},
		[]string{LabelOperation, LabelErrorType},
	)

	// RotationsTotal tracks change operations by outcome. A recovery_required
	// outcome means a verified backup is the only copy of the item.
	RotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rotations_total",
			Help:      "Total number of change operations by outcome",
		},
		[]string{LabelOutcome},
	)

	// ItemsTotal tracks the number of items per class seen by the last listing.
	ItemsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "items_total",
			Help:      "Number of items per class in the access group",
		},
		[]string{LabelClass},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordOperation records a keychain operation with its duration and status.
//
// Example:
//
//	start := time.Now()
//	err := kc.Save(rec)
//	status := StatusSuccess
//	if err != nil {
//	    status = StatusError
//	}
//	RecordOperation(OpSave, status, time.Since(start).Seconds())
func RecordOperation(operation, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordError records an error of errorType during operation.
func RecordError(operation, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordRotation records the outcome of a change operation.
func RecordRotation(outcome string) {
	if !enabled.Load() {
		return
	}
	RotationsTotal.WithLabelValues(outcome).Inc()
}

// SetItemsTotal sets the number of items of class.
func SetItemsTotal(class string, count float64) {
	if !enabled.Load() {
		return
	}
	ItemsTotal.WithLabelValues(class).Set(count)
}

// WriteText writes every registered metric to w in the Prometheus text
// exposition format.
func WriteText(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
