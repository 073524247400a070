// Package sml implements the transport framing and data layer of the
// Smart Message Language protocol as emitted by the DWS7612.2 meter:
// frame extraction from a serial byte stream, CRC validation and TLV
// decoding into a value tree, plus the matching encoder.
package sml

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	escByte       = 0x1b
	versionByte   = 0x01
	terminatorTag = 0x1a

	startMarkerLen = 8 // 4 escape bytes + 4 version bytes
	endMarkerLen   = 8 // 4 escape bytes + terminator + fill count + 2 CRC bytes

	// DefaultMaxFrameSize bounds buffered bytes per frame. A DWS7612
	// message is a few hundred bytes; 8 KiB leaves ample headroom.
	DefaultMaxFrameSize = 8192
)

var (
	startMarker = []byte{escByte, escByte, escByte, escByte, versionByte, versionByte, versionByte, versionByte}
	endEscape   = []byte{escByte, escByte, escByte, escByte, terminatorTag}
)

// Frame is one delimited transmission unit, start marker through CRC.
type Frame struct {
	Raw       []byte
	FillCount byte
	CRC       uint16 // as transmitted, little-endian on the wire
}

// Payload returns the bytes between the markers, padding included.
// Decode validates the fill count and strips the padding.
func (f *Frame) Payload() []byte {
	return f.Raw[startMarkerLen : len(f.Raw)-endMarkerLen]
}

// Reader extracts SML frames from a byte channel. It keeps an internal
// buffer across calls so a frame split over multiple reads, or a stream
// entered mid-frame, is handled transparently.
type Reader struct {
	r            io.Reader
	buf          []byte
	MaxFrameSize int
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, MaxFrameSize: DefaultMaxFrameSize}
}

// ReadFrame scans the channel for the next complete frame. It returns
// ErrTimeout once deadline has passed, or when the channel reports EOF
// before a frame is complete (a serial port with an inter-character
// timeout reads as EOF when the meter goes quiet). A zero deadline
// means no time bound.
func (r *Reader) ReadFrame(deadline time.Time) (*Frame, error) {
	chunk := make([]byte, 512)
	for {
		if fr, err := r.tryFrame(); fr != nil || err != nil {
			return fr, err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		n, err := r.r.Read(chunk)
		if n > 0 {
			r.buf = append(r.buf, chunk[:n]...)
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: channel idle", ErrTimeout)
			}
			return nil, err
		}
	}
}

func (r *Reader) tryFrame() (*Frame, error) {
	// Sync to the start marker, discarding leading noise. Keep a
	// potential marker prefix at the tail so a marker split across
	// reads is not lost.
	i := bytes.Index(r.buf, startMarker)
	if i < 0 {
		if len(r.buf) > startMarkerLen-1 {
			r.buf = r.buf[len(r.buf)-(startMarkerLen-1):]
		}
		return nil, nil
	}
	if i > 0 {
		r.buf = r.buf[i:]
	}

	// The escape byte is reserved for the fixed marker positions only,
	// so the first end escape after the start marker is the real end.
	// Payload bytes in between pass through verbatim.
	j := bytes.Index(r.buf[startMarkerLen:], endEscape)
	if j < 0 {
		if r.MaxFrameSize > 0 && len(r.buf) > r.MaxFrameSize {
			r.buf = nil
			return nil, ErrFrameTooLarge
		}
		return nil, nil
	}

	total := startMarkerLen + j + len(endEscape) + 3 // fill count + 2 CRC bytes
	if r.MaxFrameSize > 0 && total > r.MaxFrameSize {
		r.buf = r.buf[total-3:]
		return nil, ErrFrameTooLarge
	}
	if len(r.buf) < total {
		return nil, nil
	}

	raw := make([]byte, total)
	copy(raw, r.buf[:total])
	r.buf = r.buf[total:]

	return &Frame{
		Raw:       raw,
		FillCount: raw[total-3],
		CRC:       binary.LittleEndian.Uint16(raw[total-2:]),
	}, nil
}
