package port_reader

import "io"

// SerialChannel is the optical read head. Opened once at startup and
// held for the process lifetime; Close releases it on every exit path.
type SerialChannel struct {
	device string
	port   io.ReadWriteCloser
}

func (c *SerialChannel) Device() string {
	return c.device
}

func (c *SerialChannel) Read(p []byte) (int, error) {
	return c.port.Read(p)
}

func (c *SerialChannel) Close() error {
	return c.port.Close()
}
