// Package interpreter turns decoded SML value trees into typed
// register readings.
package interpreter

import (
	"fmt"
	"math"

	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/sml"
)

// ParseOBIS parses the display form "A-B:C.D.E", e.g. "1-0:1.8.0".
// The sixth byte (billing period) is fixed to 0xff as the meter
// transmits it.
func ParseOBIS(s string) (OBIS, error) {
	var a, b, c, d, e int
	if _, err := fmt.Sscanf(s, "%d-%d:%d.%d.%d", &a, &b, &c, &d, &e); err != nil {
		return OBIS{}, fmt.Errorf("invalid OBIS code %q: %w", s, err)
	}
	for _, v := range []int{a, b, c, d, e} {
		if v < 0 || v > 255 {
			return OBIS{}, fmt.Errorf("invalid OBIS code %q: group out of range", s)
		}
	}
	return OBIS{byte(a), byte(b), byte(c), byte(d), byte(e), 0xff}, nil
}

func (o OBIS) String() string {
	return fmt.Sprintf("%d-%d:%d.%d.%d", o[0], o[1], o[2], o[3], o[4])
}

func (o OBIS) MarshalJSON() ([]byte, error) {
	return []byte(`"` + o.String() + `"`), nil
}

func (o *OBIS) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid OBIS json: %s", data)
	}
	parsed, err := ParseOBIS(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// A value list entry of the SML GetList response carries
// [objName, status, valTime, unit, scaler, value, valueSignature].
const listEntryLen = 7

// Extract walks the tree and returns a Reading for every value list
// entry whose identifier is in wanted. Entries for other registers,
// and entries not matching the expected shape, are skipped so firmware
// adding registers does not break extraction. No match is not an
// error; the result is simply empty.
func Extract(root *sml.Node, wanted []OBIS) []Reading {
	var readings []Reading
	walk(root, wanted, &readings)
	return readings
}

func walk(n *sml.Node, wanted []OBIS, out *[]Reading) {
	switch n.Type {
	case sml.TypeList:
		if r, ok := readingFromEntry(n, wanted); ok {
			*out = append(*out, r)
			return
		}
		for i := range n.Children {
			walk(&n.Children[i], wanted, out)
		}
	case sml.TypeOctetString, sml.TypeBoolean, sml.TypeInteger, sml.TypeUnsigned, sml.TypeEndOfMessage:
		// Leaves carry no entries of their own.
	}
}

func readingFromEntry(n *sml.Node, wanted []OBIS) (Reading, bool) {
	if len(n.Children) != listEntryLen {
		return Reading{}, false
	}
	name := &n.Children[0]
	if name.Type != sml.TypeOctetString || len(name.Bytes) != len(OBIS{}) {
		return Reading{}, false
	}
	var id OBIS
	copy(id[:], name.Bytes)

	matched := false
	for _, w := range wanted {
		if id == w {
			matched = true
			break
		}
	}
	if !matched {
		return Reading{}, false
	}

	raw, ok := n.Children[5].AsInt64()
	if !ok {
		return Reading{}, false
	}

	// Unit and scaler may be omitted (empty optional) for
	// dimensionless registers; the scaler then defaults to zero.
	var scaler int8
	if v, ok := n.Children[4].AsInt64(); ok {
		scaler = int8(v)
	}
	var unit uint8
	if v, ok := n.Children[3].AsInt64(); ok {
		unit = uint8(v)
	}

	return Reading{
		OBIS:   id,
		Raw:    raw,
		Scaler: scaler,
		Unit:   unit,
		Value:  float64(raw) * math.Pow10(int(scaler)),
	}, true
}
