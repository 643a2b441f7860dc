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
	changePrivate string
	changePublic  string
	changeAccount string
)

var changeCmd = &cobra.Command{
	Use:   "change <label>",
	Short: "Re-encrypt an item under a fresh keypair and password",
	Long: `Rotate the keypair protecting an item. The item is first backed up under
a temporary keypair guarded by the new password. If the change is
interrupted after the originals are removed, run 'recover' with the new
password to finish it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		oldCtx, err := passwordContext("old-password", "Current password: ")
		if err != nil {
			return err
		}
		newCtx, err := passwordContext("new-password", "New password: ")
		if err != nil {
			return err
		}
		sess, err := session()
		if err != nil {
			return err
		}
		defer sess.Close()

		keys := record.NewKeypairFromLabels(changePrivate, changePublic, true)
		item := record.BlobRef(args[0], changeAccount)
		if err := sess.Keychain.Change(keys, item, oldCtx, newCtx); err != nil {
			return err
		}
		return printer(cmd).PrintSuccess(fmt.Sprintf("Changed keys of %s", item))
	},
}

var recoverCmd = &cobra.Command{
	Use:   "recover <label>",
	Short: "Finish an interrupted change from its backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := passwordContext("password", "New password: ")
		if err != nil {
			return err
		}
		sess, err := session()
		if err != nil {
			return err
		}
		defer sess.Close()

		keys := record.NewKeypairFromLabels(changePrivate, changePublic, true)
		item := record.BlobRef(args[0], changeAccount)
		if err := sess.Keychain.RecoverChange(keys, item, ctx); err != nil {
			return err
		}
		return printer(cmd).PrintSuccess(fmt.Sprintf("Recovered %s", item))
	},
}

var discardBackupCmd = &cobra.Command{
	Use:   "discard-backup <label>",
	Short: "Remove the backup and temporary keys left by a change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := session()
		if err != nil {
			return err
		}
		defer sess.Close()

		keys := record.NewKeypairFromLabels(changePrivate, changePublic, true)
		item := record.BlobRef(args[0], changeAccount)
		if err := sess.Keychain.DiscardChangeBackup(keys, item); err != nil {
			return err
		}
		return printer(cmd).PrintSuccess(fmt.Sprintf("Discarded backup of %s", item))
	},
}

func init() {
	for _, cmd := range []*cobra.Command{changeCmd, recoverCmd, discardBackupCmd} {
		cmd.Flags().StringVar(&changePrivate, "private", "", "label of the private key")
		cmd.Flags().StringVar(&changePublic, "public", "", "label of the public key")
		cmd.Flags().StringVar(&changeAccount, "account", "", "account of the item")
		_ = cmd.MarkFlagRequired("private")
		_ = cmd.MarkFlagRequired("public")
	}
	changeCmd.Flags().String("old-password", "", "current password (prompted when empty)")
	changeCmd.Flags().String("new-password", "", "new password (prompted when empty)")
	_ = v.BindPFlag("old-password", changeCmd.Flags().Lookup("old-password"))
	_ = v.BindPFlag("new-password", changeCmd.Flags().Lookup("new-password"))
}
