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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jeremyhahn/go-seckeychain/pkg/auth"
)

// stdin is shared so consecutive prompts on a pipe read consecutive lines.
var stdin = bufio.NewReader(os.Stdin)

// readSecret prompts on stderr and reads a line without echo when stdin is
// a terminal, or the next line of stdin otherwise.
func readSecret(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		return b, nil
	}

	line, err := stdin.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return nil, fmt.Errorf("reading password from stdin: %w", err)
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

// readValue returns arg when given, otherwise all of stdin.
func readValue(args []string, i int) ([]byte, error) {
	if len(args) > i {
		return []byte(args[i]), nil
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return readSecret("Enter value: ")
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return []byte(strings.TrimRight(string(b), "\n")), nil
}

// passwordContext builds an authentication context carrying the password
// bound to key, prompting when none was given.
func passwordContext(key, prompt string) (*auth.Context, error) {
	pw := []byte(v.GetString(key))
	if len(pw) == 0 {
		var err error
		if pw, err = readSecret(prompt); err != nil {
			return nil, err
		}
	}
	if len(pw) == 0 {
		return nil, fmt.Errorf("%s must not be empty", key)
	}
	ctx := auth.NewContext()
	ctx.SetCredential(pw, auth.CredentialApplicationPassword)
	clear(pw)
	return ctx, nil
}
