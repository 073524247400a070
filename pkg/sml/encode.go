package sml

import (
	"encoding/binary"
	"fmt"
)

// Marshal returns the wire encoding of a single node. A frame payload
// is the concatenation of marshalled top-level messages, each followed
// by an end-of-message terminator.
func Marshal(n *Node) ([]byte, error) {
	return appendNode(nil, n)
}

func appendNode(dst []byte, n *Node) ([]byte, error) {
	switch n.Type {
	case TypeEndOfMessage:
		return append(dst, endOfMsg), nil
	case TypeOctetString:
		dst = appendTL(dst, tlOctetString, len(n.Bytes), true)
		return append(dst, n.Bytes...), nil
	case TypeBoolean:
		dst = appendTL(dst, tlBoolean, 1, true)
		if n.Bool {
			return append(dst, 0x01), nil
		}
		return append(dst, 0x00), nil
	case TypeInteger:
		data := beIntBytes(n.Int)
		dst = appendTL(dst, tlInteger, len(data), true)
		return append(dst, data...), nil
	case TypeUnsigned:
		data := beUintBytes(n.Uint)
		dst = appendTL(dst, tlUnsigned, len(data), true)
		return append(dst, data...), nil
	case TypeList:
		dst = appendTL(dst, tlList, len(n.Children), false)
		var err error
		for i := range n.Children {
			if dst, err = appendNode(dst, &n.Children[i]); err != nil {
				return nil, err
			}
		}
		return dst, nil
	default:
		return nil, fmt.Errorf("cannot marshal node type %s", n.Type)
	}
}

// appendTL emits the type/length bytes. For primitives the declared
// length counts the TL bytes themselves (includeTL); for lists it is
// the plain element count.
func appendTL(dst []byte, typ byte, n int, includeTL bool) []byte {
	nTL := 1
	for {
		declared := n
		if includeTL {
			declared = n + nTL
		}
		if declared < 1<<(4*nTL) {
			for i := nTL - 1; i >= 0; i-- {
				b := byte(declared>>(4*i)) & 0x0f
				if i == nTL-1 {
					b |= typ << 4
				}
				if i > 0 {
					b |= tlContinue
				}
				dst = append(dst, b)
			}
			return dst
		}
		nTL++
	}
}

// beIntBytes encodes v big-endian in the narrowest of 1/2/4/8 bytes.
func beIntBytes(v int64) []byte {
	switch {
	case v >= -0x80 && v < 0x80:
		return []byte{byte(v)}
	case v >= -0x8000 && v < 0x8000:
		return []byte{byte(v >> 8), byte(v)}
	case v >= -0x80000000 && v < 0x80000000:
		return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	default:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(v))
		return b
	}
}

func beUintBytes(v uint64) []byte {
	switch {
	case v < 0x100:
		return []byte{byte(v)}
	case v < 0x10000:
		return []byte{byte(v >> 8), byte(v)}
	case v < 0x100000000:
		return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	default:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, v)
		return b
	}
}

// BuildFrame wraps a TLV payload in the transport framing: start
// marker, padding to a 4-byte boundary, end marker with fill count and
// CRC. The inverse of Reader+Decode, used by tests and simulators.
func BuildFrame(payload []byte) []byte {
	fill := (4 - len(payload)%4) % 4

	buf := make([]byte, 0, startMarkerLen+len(payload)+fill+endMarkerLen)
	buf = append(buf, startMarker...)
	buf = append(buf, payload...)
	for i := 0; i < fill; i++ {
		buf = append(buf, 0x00)
	}
	buf = append(buf, endEscape...)
	buf = append(buf, byte(fill))

	crc := Checksum(buf)
	return binary.LittleEndian.AppendUint16(buf, crc)
}
