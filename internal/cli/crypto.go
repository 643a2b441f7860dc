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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-seckeychain/pkg/record"
)

var (
	cryptoKey     string
	cryptoAccount string
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt <label> [value]",
	Short: "Encrypt a value to a public key and store it",
	Long: `Encrypt a value to the public key named by --key and save the ciphertext
under label. Saving over an existing item is an error.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readValue(args, 1)
		if err != nil {
			return err
		}
		sess, err := session()
		if err != nil {
			return err
		}
		defer sess.Close()

		item := record.NewBlob(data, args[0], cryptoAccount)
		if err := sess.Keychain.EncryptAndSave(record.KeyRef(cryptoKey), item, nil); err != nil {
			return err
		}
		return printer(cmd).PrintSuccess(fmt.Sprintf("Encrypted %s to %s", item, cryptoKey))
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt <label>",
	Short: "Load an item and decrypt it with a private key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := passwordContext("password", "Key password: ")
		if err != nil {
			return err
		}
		sess, err := session()
		if err != nil {
			return err
		}
		defer sess.Close()

		plain, err := sess.Keychain.LoadAndDecrypt(record.KeyRef(cryptoKey), record.BlobRef(args[0], cryptoAccount), ctx)
		if err != nil {
			return err
		}
		data, _ := record.DataOf(plain)
		return printer(cmd).PrintData(args[0], cryptoAccount, data)
	},
}

func init() {
	encryptCmd.Flags().StringVar(&cryptoKey, "key", "", "label of the public key")
	decryptCmd.Flags().StringVar(&cryptoKey, "key", "", "label of the private key")
	for _, cmd := range []*cobra.Command{encryptCmd, decryptCmd} {
		cmd.Flags().StringVar(&cryptoAccount, "account", "", "account of the item")
		_ = cmd.MarkFlagRequired("key")
	}
}
