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

package software

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/jeremyhahn/go-seckeychain/pkg/auth"
	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
)

const itemVersion = 1

// itemRecord is the persisted form of one item. The scope and the identity
// are also encoded in the storage key; they are repeated here so a record
// read back on its own is self-describing.
type itemRecord struct {
	Version        int                  `cbor:"1,keyasint"`
	Class          securestore.Class    `cbor:"2,keyasint"`
	Label          string               `cbor:"3,keyasint,omitempty"`
	Account        string               `cbor:"4,keyasint,omitempty"`
	Accessible     auth.Accessibility   `cbor:"5,keyasint,omitempty"`
	Synchronizable bool                 `cbor:"6,keyasint,omitempty"`
	Data           []byte               `cbor:"7,keyasint,omitempty"`
	KeyClass       securestore.KeyClass `cbor:"8,keyasint,omitempty"`
	Token          securestore.Token    `cbor:"9,keyasint,omitempty"`
	Curve          string               `cbor:"10,keyasint,omitempty"`
	Public         []byte               `cbor:"11,keyasint,omitempty"`
	Private        []byte               `cbor:"12,keyasint,omitempty"`
	Sealed         []byte               `cbor:"13,keyasint,omitempty"`
	Policy         []byte               `cbor:"14,keyasint,omitempty"`
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("software store: cbor encoder: %v", err))
	}
}

func encodeItem(rec *itemRecord) ([]byte, error) {
	rec.Version = itemVersion
	data, err := encMode.Marshal(rec)
	if err != nil {
		return nil, securestore.NewPlatformError(securestore.DomainOSStatus, int(securestore.StatusAllocate), err)
	}
	return data, nil
}

func decodeItem(data []byte) (*itemRecord, error) {
	var rec itemRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, securestore.NewPlatformError(securestore.DomainOSStatus, int(securestore.StatusDecode), err)
	}
	if rec.Version != itemVersion {
		return nil, securestore.NewPlatformError(securestore.DomainOSStatus, int(securestore.StatusDecode),
			fmt.Errorf("unsupported item version %d", rec.Version))
	}
	return &rec, nil
}

func (r *itemRecord) attributes(scope string) securestore.Attributes {
	return securestore.Attributes{
		Class:      r.Class,
		Label:      r.Label,
		Account:    r.Account,
		Scope:      scope,
		KeyClass:   r.KeyClass,
		Token:      r.Token,
		Accessible: r.Accessible,
	}
}
