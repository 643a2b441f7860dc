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
package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jeremyhahn/go-seckeychain/pkg/auth"
	"github.com/jeremyhahn/go-seckeychain/pkg/keychain"
	"github.com/jeremyhahn/go-seckeychain/pkg/record"
	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
)

func TestPrinter_Success(t *testing.T) {
	var buf bytes.Buffer
	if err := NewPrinter("json", &buf).PrintSuccess("done"); err != nil {
		t.Fatalf("PrintSuccess() error = %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out["status"] != "success" || out["message"] != "done" {
		t.Errorf("unexpected output: %v", out)
	}

	if err := NewPrinter("yaml", &buf).PrintSuccess("done"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestPrinter_DataJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewPrinter("json", &buf).PrintData("note", "alice", []byte("hi")); err != nil {
		t.Fatalf("PrintData() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"data": "aGk="`) {
		t.Errorf("payload not base64 encoded: %s", buf.String())
	}
}

func TestPrinter_Attributes(t *testing.T) {
	attrs := []securestore.Attributes{{
		Class:      securestore.ClassKey,
		Label:      "prv",
		KeyClass:   securestore.KeyClassPrivate,
		Token:      securestore.TokenSecureEnclave,
		Accessible: auth.AccessibleWhenUnlockedThisDeviceOnly,
	}}

	var buf bytes.Buffer
	if err := NewPrinter("text", &buf).PrintAttributes(attrs); err != nil {
		t.Fatalf("PrintAttributes() error = %v", err)
	}
	for _, want := range []string{"prv", "private", "secure-enclave", "1 item(s)"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q: %s", want, buf.String())
		}
	}

	buf.Reset()
	if err := NewPrinter("json", &buf).PrintAttributes(attrs); err != nil {
		t.Fatalf("PrintAttributes() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"accessible": "whenUnlockedThisDeviceOnly"`) {
		t.Errorf("unexpected JSON: %s", buf.String())
	}
}

func TestPrinter_ErrorKind(t *testing.T) {
	err := &keychain.Error{Kind: keychain.KindNotFound, Message: "Couldn't find note"}

	var buf bytes.Buffer
	if perr := NewPrinter("json", &buf).PrintError(err); perr != nil {
		t.Fatalf("PrintError() error = %v", perr)
	}
	var out map[string]interface{}
	if jerr := json.Unmarshal(buf.Bytes(), &out); jerr != nil {
		t.Fatalf("invalid JSON: %v", jerr)
	}
	if out["kind"] != keychain.KindNotFound.String() {
		t.Errorf("kind = %v, want %v", out["kind"], keychain.KindNotFound.String())
	}
}

func TestRecoveryHints_Rotation(t *testing.T) {
	err := &keychain.RotationError{
		Phase:      keychain.PhaseSave,
		BackupKeys: record.NewKeypairFromLabels("prv-change", "pub-change", true),
		Backup:     record.BlobRef("secret-change", "<unset>-change"),
		Err:        errors.New("disk full"),
	}

	hints := recoveryHints(err)
	if len(hints) < 2 {
		t.Fatalf("hints = %v, want recovery instructions", hints)
	}
	if !strings.Contains(hints[0], "secret-change") || !strings.Contains(hints[1], "recover") {
		t.Errorf("unexpected hints: %v", hints)
	}

	if hints := recoveryHints(errors.New("plain")); len(hints) != 0 {
		t.Errorf("plain error produced hints: %v", hints)
	}
}
