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

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-seckeychain/pkg/auth"
	"github.com/jeremyhahn/go-seckeychain/pkg/record"
)

var (
	noSecureEnclave bool
	pemPassword     string
)

var generateCmd = &cobra.Command{
	Use:   "generate <private-label> <public-label>",
	Short: "Generate a keypair",
	Long: `Generate a P-256 keypair. The private key is kept in the secure element
and guarded by the password unless --no-secure-enclave is set. Generating
over an existing keypair is an error and keeps the existing keys.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var ctx *auth.Context
		if !noSecureEnclave {
			var err error
			if ctx, err = passwordContext("password", "Key password: "); err != nil {
				return err
			}
		}
		sess, err := session()
		if err != nil {
			return err
		}
		defer sess.Close()

		kp := record.NewKeypairFromLabels(args[0], args[1], !noSecureEnclave)
		if _, err := sess.Keychain.Generate(kp, ctx); err != nil {
			return err
		}
		return printer(cmd).PrintSuccess(fmt.Sprintf("Generated %s", kp))
	},
}

var importCmd = &cobra.Command{
	Use:   "import <private-label> <public-label> <pem-file>",
	Short: "Import a PEM encoded EC private key",
	Long: `Import an EC private key from a PEM file (SEC 1 or PKCS #8, optionally
encrypted with --pem-password) and save both halves as software keys.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := afero.ReadFile(fs, args[2])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[2], err)
		}
		sess, err := session()
		if err != nil {
			return err
		}
		defer sess.Close()

		prv, pub, err := sess.Store.ImportPrivateKeyPEM(data, []byte(pemPassword))
		if err != nil {
			return err
		}
		if err := sess.Keychain.Save(record.NewKey(prv, args[0])); err != nil {
			return err
		}
		if err := sess.Keychain.Save(record.NewKey(pub, args[1])); err != nil {
			_ = sess.Keychain.Delete(record.KeyRef(args[0]))
			return err
		}
		return printer(cmd).PrintSuccess(fmt.Sprintf("Imported %s and %s", args[0], args[1]))
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the secure element can encrypt and decrypt",
	Long: `Generate a throwaway keypair under the password, round trip a random
nonce through it and remove it again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := passwordContext("password", "Password: ")
		if err != nil {
			return err
		}
		sess, err := session()
		if err != nil {
			return err
		}
		defer sess.Close()

		if err := sess.Keychain.VerifySecureEnclave(ctx); err != nil {
			return err
		}
		return printer(cmd).PrintSuccess("Secure element verified")
	},
}

func init() {
	generateCmd.Flags().BoolVar(&noSecureEnclave, "no-secure-enclave", false, "generate a software keypair")
	importCmd.Flags().StringVar(&pemPassword, "pem-password", "", "password of an encrypted PKCS #8 key")
}
