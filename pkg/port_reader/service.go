// Package port_reader opens the serial channel to the meter's optical
// interface and locates the device by its USB name when configured.
package port_reader

import (
	"fmt"
	"log"
	"os/exec"
	"strings"

	"github.com/jacobsa/go-serial/serial"
)

// Open opens the IR read head at 9600 8N1, the fixed line parameters of
// the DWS7612.2 optical interface. The inter-character timeout makes
// reads return instead of blocking forever when the meter goes quiet,
// so the frame reader can enforce its own deadline.
func Open(device string) (*SerialChannel, error) {
	options := serial.OpenOptions{
		PortName:              device,
		BaudRate:              9600,
		DataBits:              8,
		StopBits:              1,
		InterCharacterTimeout: 500,
		MinimumReadSize:       0,
	}

	port, err := serial.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", device, err)
	}

	log.Printf("Connected to meter on %s", device)
	return &SerialChannel{device: device, port: port}, nil
}

// FindPortByName resolves a USB device name (e.g. "FT232R") to its tty
// device path by scanning the kernel log, matching how the deployment
// scripts located the read head.
func FindPortByName(deviceName string) (string, error) {
	out, err := exec.Command("sh", "-c", "dmesg | grep -i "+shellQuote(deviceName)).Output()
	if err != nil {
		return "", fmt.Errorf("device %q not found in kernel log: %w", deviceName, err)
	}
	return parseTTYFromLog(string(out), deviceName)
}

func parseTTYFromLog(out, deviceName string) (string, error) {
	x := strings.Index(out, "tty")
	if x < 0 {
		return "", fmt.Errorf("no tty assignment found for device %q", deviceName)
	}
	port := "/dev/" + out[x:]
	if sp := strings.IndexAny(port[len("/dev/"):], " \r\n:"); sp >= 0 {
		port = port[:len("/dev/")+sp]
	}
	return port, nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
