// internal/serialport/serialport.go
package serialport

import (
	"fmt"

	"go.bug.st/serial"

	"solarmon/internal/collector"
)

// Dialer opens the configured serial port as a collector link. serial.Port
// already satisfies collector.Link (Read/Write/Close plus SetReadTimeout).
type Dialer struct {
	Port string
	Baud int
}

// Dial opens the port and discards whatever the device buffered while the
// host was away, so the first parsed line is a complete one.
func (d Dialer) Dial() (collector.Link, error) {
	mode := &serial.Mode{BaudRate: d.Baud}
	port, err := serial.Open(d.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Port, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("reset input buffer: %w", err)
	}
	return port, nil
}
