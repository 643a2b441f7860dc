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
package record

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"
)

// Primitive is the set of types a blob payload can be decoded into.
// Integers and booleans use a fixed-width little-endian layout; int and uint
// are 64 bits wide.
type Primitive interface {
	[]byte | string | bool |
		int8 | int16 | int32 | int64 | int |
		uint8 | uint16 | uint32 | uint64 | uint
}

// Encode returns the byte layout of v.
func Encode[T Primitive](v T) []byte {
	switch v := any(v).(type) {
	case []byte:
		return bytes.Clone(v)
	case string:
		return []byte(v)
	case bool:
		if v {
			return []byte{1}
		}
		return []byte{0}
	case int8:
		return []byte{byte(v)}
	case uint8:
		return []byte{v}
	case int16:
		return binary.LittleEndian.AppendUint16(nil, uint16(v))
	case uint16:
		return binary.LittleEndian.AppendUint16(nil, v)
	case int32:
		return binary.LittleEndian.AppendUint32(nil, uint32(v))
	case uint32:
		return binary.LittleEndian.AppendUint32(nil, v)
	case int64:
		return binary.LittleEndian.AppendUint64(nil, uint64(v))
	case uint64:
		return binary.LittleEndian.AppendUint64(nil, v)
	case int:
		return binary.LittleEndian.AppendUint64(nil, uint64(v))
	case uint:
		return binary.LittleEndian.AppendUint64(nil, uint64(v))
	}
	return nil
}

// Decode reads a T from data. It fails when data is shorter than the width
// of T or, for strings, is not valid UTF-8. Trailing bytes are ignored.
func Decode[T Primitive](data []byte) (T, bool) {
	var zero T
	var out any

	switch any(zero).(type) {
	case []byte:
		out = bytes.Clone(data)
		if data == nil {
			out = []byte{}
		}
	case string:
		if !utf8.Valid(data) {
			return zero, false
		}
		out = string(data)
	case bool:
		if len(data) < 1 {
			return zero, false
		}
		out = data[0] != 0
	case int8:
		if len(data) < 1 {
			return zero, false
		}
		out = int8(data[0])
	case uint8:
		if len(data) < 1 {
			return zero, false
		}
		out = data[0]
	case int16:
		if len(data) < 2 {
			return zero, false
		}
		out = int16(binary.LittleEndian.Uint16(data))
	case uint16:
		if len(data) < 2 {
			return zero, false
		}
		out = binary.LittleEndian.Uint16(data)
	case int32:
		if len(data) < 4 {
			return zero, false
		}
		out = int32(binary.LittleEndian.Uint32(data))
	case uint32:
		if len(data) < 4 {
			return zero, false
		}
		out = binary.LittleEndian.Uint32(data)
	case int64:
		if len(data) < 8 {
			return zero, false
		}
		out = int64(binary.LittleEndian.Uint64(data))
	case uint64:
		if len(data) < 8 {
			return zero, false
		}
		out = binary.LittleEndian.Uint64(data)
	case int:
		if len(data) < 8 {
			return zero, false
		}
		out = int(binary.LittleEndian.Uint64(data))
	case uint:
		if len(data) < 8 {
			return zero, false
		}
		out = uint(binary.LittleEndian.Uint64(data))
	default:
		return zero, false
	}
	return out.(T), true
}

// Value decodes the payload of a blob record. It fails for key members,
// templates, and payloads Decode rejects.
func Value[T Primitive](r Record) (T, bool) {
	data, ok := DataOf(r)
	if !ok {
		var zero T
		return zero, false
	}
	return Decode[T](data)
}

// NewValue creates a blob carrying the encoded v.
func NewValue[T Primitive](v T, label, account string) *Blob {
	return NewBlob(Encode(v), label, account)
}

// NewString creates a blob carrying s as UTF-8.
func NewString(s, label, account string) *Blob {
	return NewValue(s, label, account)
}

// NewBool creates a blob carrying a one byte boolean.
func NewBool(v bool, label, account string) *Blob {
	return NewValue(v, label, account)
}

// NewInt64 creates a blob carrying a little-endian int64.
func NewInt64(v int64, label, account string) *Blob {
	return NewValue(v, label, account)
}

// NewUint32 creates a blob carrying a little-endian uint32.
func NewUint32(v uint32, label, account string) *Blob {
	return NewValue(v, label, account)
}
