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
	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
)

var (
	recordAccount string
	saveUpdate    bool
	deleteKey     bool
	listKeys      bool
	resetYes      bool
)

var saveCmd = &cobra.Command{
	Use:   "save <label> [value]",
	Short: "Store a data item",
	Long: `Store a data item under label and --account. The value is read from
stdin when not given. An existing item is an error unless --update is set.`,
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

		item := record.NewBlob(data, args[0], recordAccount)
		if saveUpdate {
			err = sess.Keychain.Update(item)
		} else {
			err = sess.Keychain.Save(item)
		}
		if err != nil {
			return err
		}
		return printer(cmd).PrintSuccess(fmt.Sprintf("Saved %s", item))
	},
}

var loadCmd = &cobra.Command{
	Use:   "load <label>",
	Short: "Print a data item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := session()
		if err != nil {
			return err
		}
		defer sess.Close()

		loaded, err := sess.Keychain.Load(record.BlobRef(args[0], recordAccount), nil)
		if err != nil {
			return err
		}
		data, _ := record.DataOf(loaded)
		return printer(cmd).PrintData(args[0], recordAccount, data)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <label>",
	Short: "Delete a data item or key",
	Long:  `Delete a data item, or with --key a key. Deleting a missing item succeeds.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := session()
		if err != nil {
			return err
		}
		defer sess.Close()

		var r record.Record = record.BlobRef(args[0], recordAccount)
		if deleteKey {
			r = record.KeyRef(args[0])
		}
		if err := sess.Keychain.Delete(r); err != nil {
			return err
		}
		return printer(cmd).PrintSuccess(fmt.Sprintf("Deleted %s", r))
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List data items, or keys with --keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := session()
		if err != nil {
			return err
		}
		defer sess.Close()

		class := securestore.ClassGenericPassword
		if listKeys {
			class = securestore.ClassKey
		}
		attrs, err := sess.Keychain.List(class)
		if err != nil {
			return err
		}
		return printer(cmd).PrintAttributes(attrs)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every item and key in the access group",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return fmt.Errorf("refusing to reset without --yes")
		}
		sess, err := session()
		if err != nil {
			return err
		}
		defer sess.Close()

		sess.Keychain.Reset()
		return printer(cmd).PrintSuccess(fmt.Sprintf("Reset access group %s", sess.Keychain.AccessGroup()))
	},
}

func init() {
	for _, cmd := range []*cobra.Command{saveCmd, loadCmd, deleteCmd} {
		cmd.Flags().StringVar(&recordAccount, "account", "", "account of the item")
	}
	saveCmd.Flags().BoolVar(&saveUpdate, "update", false, "overwrite an existing item")
	deleteCmd.Flags().BoolVar(&deleteKey, "key", false, "delete a key instead of a data item")
	listCmd.Flags().BoolVar(&listKeys, "keys", false, "list keys instead of data items")
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm the reset")
}
