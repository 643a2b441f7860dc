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
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/jeremyhahn/go-seckeychain/pkg/keychain"
	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

var (
	okFmt   = color.New(color.FgGreen).SprintFunc()
	errFmt  = color.New(color.FgRed, color.Bold).SprintFunc()
	hintFmt = color.New(color.FgYellow).SprintFunc()
	dimFmt  = color.New(color.Faint).SprintFunc()
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, okFmt(message))
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error with its kind and any recovery hint
func (p *Printer) PrintError(err error) error {
	hints := recoveryHints(err)
	switch p.format {
	case OutputFormatJSON:
		out := map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
		var kerr *keychain.Error
		if errors.As(err, &kerr) {
			out["kind"] = kerr.Kind.String()
		}
		if len(hints) > 0 {
			out["hints"] = hints
		}
		return p.printJSON(out)
	default:
		fmt.Fprintf(p.writer, "%s %v\n", errFmt("Error:"), err)
		for _, hint := range hints {
			fmt.Fprintf(p.writer, "  %s\n", hintFmt(hint))
		}
		return nil
	}
}

// recoveryHints explains how to act on err.
func recoveryHints(err error) []string {
	var hints []string
	var rerr *keychain.RotationError
	if errors.As(err, &rerr) {
		hints = append(hints,
			fmt.Sprintf("change interrupted during %s; the item is kept in backup %q", rerr.Phase, rerr.Backup.Label()),
			"run 'seckeychain recover' with the new password to finish the change")
	}
	if suggestion := keychain.RecoverySuggestion(err); suggestion != "" {
		hints = append(hints, suggestion)
	}
	return hints
}

// PrintData prints a loaded or decrypted payload
func (p *Printer) PrintData(label, account string, data []byte) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"label":   label,
			"account": account,
			"data":    base64.StdEncoding.EncodeToString(data),
		})
	case OutputFormatText:
		_, err := p.writer.Write(append(data, '\n'))
		return err
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintAttributes prints stored item attributes
func (p *Printer) PrintAttributes(attrs []securestore.Attributes) error {
	switch p.format {
	case OutputFormatJSON:
		items := make([]map[string]interface{}, len(attrs))
		for i, a := range attrs {
			items[i] = map[string]interface{}{
				"class":      a.Class.String(),
				"label":      a.Label,
				"account":    a.Account,
				"key_class":  a.KeyClass.String(),
				"token":      a.Token.String(),
				"accessible": a.Accessible.String(),
			}
		}
		return p.printJSON(map[string]interface{}{
			"items": items,
		})
	case OutputFormatText:
		if len(attrs) == 0 {
			fmt.Fprintln(p.writer, "No items found")
			return nil
		}
		fmt.Fprintf(p.writer, "%-30s %-20s %-8s %-15s\n", "LABEL", "ACCOUNT", "KEY", "TOKEN")
		fmt.Fprintln(p.writer, strings.Repeat("-", 76))
		for _, a := range attrs {
			fmt.Fprintf(p.writer, "%-30s %-20s %-8s %-15s\n", a.Label, orDash(a.Account), a.KeyClass, a.Token)
		}
		fmt.Fprintln(p.writer, dimFmt(fmt.Sprintf("%d item(s)", len(attrs))))
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// printJSON prints data as indented JSON
func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
