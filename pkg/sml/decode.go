package sml

import (
	"encoding/binary"
	"fmt"
)

// maxDepth bounds list nesting so corrupted input cannot exhaust the
// call stack. A DWS7612 message nests four levels deep.
const maxDepth = 16

// Type nibbles of the first TL byte (bits 6..4).
const (
	tlOctetString = 0x0
	tlBoolean     = 0x4
	tlInteger     = 0x5
	tlUnsigned    = 0x6
	tlList        = 0x7

	tlContinue = 0x80 // another TL byte follows
	endOfMsg   = 0x00
)

// Decode validates the frame checksum and parses the TLV payload into
// a value tree. The returned root is a synthetic List holding the
// top-level messages of the frame.
func Decode(f *Frame) (*Node, error) {
	raw := f.Raw
	if len(raw) < startMarkerLen+endMarkerLen {
		return nil, fmt.Errorf("%w: frame shorter than markers", ErrMalformedMessage)
	}

	// Integrity gate: nothing past this point may operate on a frame
	// whose CRC does not match.
	want := binary.LittleEndian.Uint16(raw[len(raw)-2:])
	if Checksum(raw[:len(raw)-2]) != want {
		return nil, fmt.Errorf("%w: got %04x, frame carries %04x",
			ErrChecksumMismatch, Checksum(raw[:len(raw)-2]), want)
	}

	payload := f.Payload()
	if f.FillCount > 3 {
		return nil, fmt.Errorf("%w: fill count %d", ErrMalformedMessage, f.FillCount)
	}
	if int(f.FillCount) > len(payload) {
		return nil, fmt.Errorf("%w: fill count exceeds payload", ErrMalformedMessage)
	}
	payload = payload[:len(payload)-int(f.FillCount)]

	d := decoder{buf: payload}
	root := &Node{Type: TypeList}
	for d.pos < len(d.buf) {
		n, err := d.parseNode(1)
		if err != nil {
			return nil, err
		}
		if n.Type == TypeEndOfMessage {
			// Message terminator, not a data element.
			continue
		}
		root.Children = append(root.Children, n)
	}
	return root, nil
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) parseNode(depth int) (Node, error) {
	if depth > maxDepth {
		return Node{}, fmt.Errorf("%w: nesting deeper than %d", ErrMalformedMessage, maxDepth)
	}
	if d.pos >= len(d.buf) {
		return Node{}, fmt.Errorf("%w: truncated element", ErrMalformedMessage)
	}

	tl := d.buf[d.pos]
	if tl == endOfMsg {
		d.pos++
		return Node{Type: TypeEndOfMessage}, nil
	}

	typ := (tl >> 4) & 0x07
	length := int(tl & 0x0f)
	tlBytes := 1
	for tl&tlContinue != 0 {
		if tlBytes > 4 {
			return Node{}, fmt.Errorf("%w: length field too long", ErrMalformedMessage)
		}
		if d.pos+tlBytes >= len(d.buf) {
			return Node{}, fmt.Errorf("%w: truncated length field", ErrMalformedMessage)
		}
		tl = d.buf[d.pos+tlBytes]
		length = length<<4 | int(tl&0x0f)
		tlBytes++
	}
	d.pos += tlBytes

	if typ == tlList {
		// For lists the declared length is the element count; each
		// element occupies at least one byte.
		if length > len(d.buf)-d.pos {
			return Node{}, fmt.Errorf("%w: list of %d elements exceeds remaining %d bytes",
				ErrMalformedMessage, length, len(d.buf)-d.pos)
		}
		children := make([]Node, 0, length)
		for i := 0; i < length; i++ {
			child, err := d.parseNode(depth + 1)
			if err != nil {
				return Node{}, err
			}
			if child.Type == TypeEndOfMessage {
				// Terminates the sibling sequence early.
				break
			}
			children = append(children, child)
		}
		return Node{Type: TypeList, Children: children}, nil
	}

	// For primitives the declared length includes the TL bytes.
	content := length - tlBytes
	if content < 0 || content > len(d.buf)-d.pos {
		return Node{}, fmt.Errorf("%w: declared length %d exceeds remaining bytes", ErrMalformedMessage, length)
	}
	data := d.buf[d.pos : d.pos+content]
	d.pos += content

	switch typ {
	case tlOctetString:
		b := make([]byte, len(data))
		copy(b, data)
		return Node{Type: TypeOctetString, Bytes: b}, nil
	case tlBoolean:
		if content != 1 {
			return Node{}, fmt.Errorf("%w: boolean with %d content bytes", ErrMalformedMessage, content)
		}
		return Node{Type: TypeBoolean, Bool: data[0] != 0}, nil
	case tlInteger:
		if content < 1 || content > 8 {
			return Node{}, fmt.Errorf("%w: integer with %d content bytes", ErrMalformedMessage, content)
		}
		return Node{Type: TypeInteger, Int: beInt(data)}, nil
	case tlUnsigned:
		if content < 1 || content > 8 {
			return Node{}, fmt.Errorf("%w: unsigned with %d content bytes", ErrMalformedMessage, content)
		}
		return Node{Type: TypeUnsigned, Uint: beUint(data)}, nil
	default:
		return Node{}, fmt.Errorf("%w: unsupported type nibble %#x", ErrMalformedMessage, typ)
	}
}

// beInt decodes a big-endian two's complement integer of 1-8 bytes.
func beInt(data []byte) int64 {
	v := int64(int8(data[0]))
	for _, b := range data[1:] {
		v = v<<8 | int64(b)
	}
	return v
}

func beUint(data []byte) uint64 {
	var v uint64
	for _, b := range data {
		v = v<<8 | uint64(b)
	}
	return v
}
