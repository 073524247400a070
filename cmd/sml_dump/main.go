// sml_dump decodes a captured SML frame and prints the value tree.
// Input is a binary or hex dump, from a file or stdin:
//
//	sml_dump -hex capture.txt
//	cat capture.bin | sml_dump
package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/interpreter"
	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/sml"
)

func main() {
	hexInput := flag.Bool("hex", false, "input is a hex string instead of raw bytes")
	flag.Parse()

	var in io.Reader = os.Stdin
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(in)
	if err != nil {
		log.Fatal(err)
	}
	if *hexInput {
		cleaned := strings.Join(strings.Fields(string(data)), "")
		if data, err = hex.DecodeString(cleaned); err != nil {
			log.Fatalf("bad hex input: %v", err)
		}
	}

	reader := sml.NewReader(bytes.NewReader(data))
	for {
		frame, err := reader.ReadFrame(time.Time{})
		if err != nil {
			if errors.Is(err, sml.ErrTimeout) {
				return
			}
			log.Fatalf("frame: %v", err)
		}

		fmt.Printf("Frame: %d bytes, fill %d, crc %04x\n", len(frame.Raw), frame.FillCount, frame.CRC)
		tree, err := sml.Decode(frame)
		if err != nil {
			log.Fatalf("decode: %v", err)
		}
		fmt.Print(tree.Dump())

		wanted := []interpreter.OBIS{interpreter.PositiveActiveEnergy, interpreter.NegativeActiveEnergy}
		for _, rd := range interpreter.Extract(tree, wanted) {
			fmt.Printf("%s: raw=%d scaler=%d unit=%d value=%.3f\n", rd.OBIS, rd.Raw, rd.Scaler, rd.Unit, rd.Value)
		}
	}
}
