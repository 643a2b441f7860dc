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
package metrics

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsEnabled(t *testing.T) {
	// Metrics should be enabled by default
	if !IsEnabled() {
		t.Error("Expected metrics to be enabled by default")
	}

	Disable()
	if IsEnabled() {
		t.Error("Expected metrics to be disabled after Disable()")
	}

	Enable()
	if !IsEnabled() {
		t.Error("Expected metrics to be enabled after Enable()")
	}
}

func TestRecordOperation(t *testing.T) {
	Enable()

	OperationsTotal.Reset()
	OperationDuration.Reset()

	RecordOperation(OpSave, StatusSuccess, 0.01)

	if count := testutil.CollectAndCount(OperationsTotal); count != 1 {
		t.Errorf("Expected 1 operation recorded, got %d", count)
	}
	if count := testutil.CollectAndCount(OperationDuration); count != 1 {
		t.Errorf("Expected 1 histogram sample, got %d", count)
	}

	RecordOperation(OpSave, StatusSuccess, 0.02)
	RecordOperation(OpLoad, StatusError, 0.001)

	if v := testutil.ToFloat64(OperationsTotal.WithLabelValues(OpSave, StatusSuccess)); v != 2 {
		t.Errorf("Expected 2 successful saves, got %v", v)
	}
	if count := testutil.CollectAndCount(OperationsTotal); count != 2 {
		t.Errorf("Expected 2 label sets, got %d", count)
	}
}

func TestRecordOperationWhenDisabled(t *testing.T) {
	Disable()
	defer Enable()

	OperationsTotal.Reset()

	RecordOperation(OpGenerate, StatusSuccess, 0.5)

	if count := testutil.CollectAndCount(OperationsTotal); count != 0 {
		t.Errorf("Expected 0 operations when disabled, got %d", count)
	}
}

func TestRecordError(t *testing.T) {
	Enable()
	ErrorsTotal.Reset()

	RecordError(OpSave, "duplicate_item")
	RecordError(OpSave, "duplicate_item")
	RecordError(OpLoad, "not_found")

	if v := testutil.ToFloat64(ErrorsTotal.WithLabelValues(OpSave, "duplicate_item")); v != 2 {
		t.Errorf("Expected 2 duplicate errors, got %v", v)
	}
	if v := testutil.ToFloat64(ErrorsTotal.WithLabelValues(OpLoad, "not_found")); v != 1 {
		t.Errorf("Expected 1 not found error, got %v", v)
	}
}

func TestRecordRotation(t *testing.T) {
	Enable()
	RotationsTotal.Reset()

	RecordRotation(OutcomeCompleted)
	RecordRotation(OutcomeRecoveryRequired)

	if v := testutil.ToFloat64(RotationsTotal.WithLabelValues(OutcomeRecoveryRequired)); v != 1 {
		t.Errorf("Expected 1 recovery_required rotation, got %v", v)
	}
}

func TestSetItemsTotal(t *testing.T) {
	Enable()
	ItemsTotal.Reset()

	SetItemsTotal("genp", 3)
	SetItemsTotal("genp", 1)

	if v := testutil.ToFloat64(ItemsTotal.WithLabelValues("genp")); v != 1 {
		t.Errorf("Expected gauge to hold the last value, got %v", v)
	}
}

func TestWriteText(t *testing.T) {
	Enable()
	OperationsTotal.Reset()
	RecordOperation(OpReset, StatusSuccess, 0.001)

	var buf bytes.Buffer
	if err := WriteText(&buf); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "seckeychain_operations_total") {
		t.Errorf("Expected operations counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, `operation="reset"`) {
		t.Errorf("Expected reset label in output")
	}
}
