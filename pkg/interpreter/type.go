package interpreter

import (
	"encoding/json"
	"log"
	"time"
)

// OBIS identifies a metering register, six bytes A-B:C.D.E*F.
type OBIS [6]byte

// Well-known registers of the DWS7612.2.
var (
	PositiveActiveEnergy = OBIS{0x01, 0x00, 0x01, 0x08, 0x00, 0xff} // 1-0:1.8.0
	NegativeActiveEnergy = OBIS{0x01, 0x00, 0x02, 0x08, 0x00, 0xff} // 1-0:2.8.0
)

// Reading is one extracted register value. Physical value is
// Raw * 10^Scaler; immutable once produced.
type Reading struct {
	OBIS   OBIS    `json:"obis"`
	Raw    int64   `json:"raw"`
	Scaler int8    `json:"scaler"`
	Unit   uint8   `json:"unit"`
	Value  float64 `json:"value"`
}

// PollResult is the outcome of one acquisition cycle.
type PollResult struct {
	Timestamp time.Time `json:"timestamp"`
	Readings  []Reading `json:"readings"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

func (r *PollResult) ToJsonBytes() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		log.Printf("Failed to marshal poll result: %v", err)
		return []byte("{}")
	}
	return data
}

func PollResultFromJsonBytes(data []byte) *PollResult {
	var r PollResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil
	}
	return &r
}
