package sml

import "github.com/sigurn/crc16"

// The SML transport layer uses CRC-16/X-25: polynomial 0x1021 reflected,
// init 0xFFFF, final xor 0xFFFF.
var crcTable = crc16.MakeTable(crc16.CRC16_X_25)

// Checksum computes the transport CRC over data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}
