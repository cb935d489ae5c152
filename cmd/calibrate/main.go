// v1
// cmd/calibrate/main.go
//
// Calibration helper for the Arduino + Pi solar monitor.
//
// Usage examples:
//
//	calibrate --port /dev/ttyACM0 --zero-current
//	calibrate --measured-voltage 38.4 --reported-voltage 37.9
//	calibrate --measured-current 8.3 --reported-current 7.9
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.bug.st/serial"

	"solarmon/internal/calib"
)

const replyTimeout = 2 * time.Second

func main() {
	port := flag.String("port", "/dev/ttyACM0", "serial port of the sensor device")
	baud := flag.Int("baud", 115200, "baud rate")
	zeroCurrent := flag.Bool("zero-current", false, "send CAL_ZERO so the device re-zeroes its current sensor")
	measuredVoltage := flag.Float64("measured-voltage", 0, "voltage measured with a reference instrument")
	reportedVoltage := flag.Float64("reported-voltage", 0, "voltage the device reported at the same moment")
	measuredCurrent := flag.Float64("measured-current", 0, "current measured with a reference instrument")
	reportedCurrent := flag.Float64("reported-current", 0, "current the device reported at the same moment")
	flag.Parse()

	ran := false

	if *zeroCurrent {
		ran = true
		if err := sendCommand(*port, *baud, "CAL_ZERO"); err != nil {
			fmt.Fprintf(os.Stderr, "calibrate: %v\n", err)
			os.Exit(1)
		}
	}

	if flagProvided("measured-voltage") && flagProvided("reported-voltage") {
		ran = true
		gain, err := calib.Gain(*measuredVoltage, *reportedVoltage)
		if err != nil {
			fmt.Fprintf(os.Stderr, "calibrate: voltage gain: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Suggested calibration.voltage_gain = %.6f\n", gain)
	}

	if flagProvided("measured-current") && flagProvided("reported-current") {
		ran = true
		gain, err := calib.Gain(*measuredCurrent, *reportedCurrent)
		if err != nil {
			fmt.Fprintf(os.Stderr, "calibrate: current gain: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Suggested calibration.current_gain = %.6f\n", gain)
	}

	if !ran {
		flag.Usage()
		os.Exit(2)
	}
}

func flagProvided(name string) bool {
	provided := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			provided = true
		}
	})
	return provided
}

// sendCommand writes one command line to the device and prints the first
// reply line, bounded by the read timeout so a silent device cannot hang
// the helper.
func sendCommand(portName string, baud int, command string) error {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return fmt.Errorf("open %s: %w", portName, err)
	}
	defer port.Close()

	if err := port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("reset input buffer: %w", err)
	}
	if err := port.SetReadTimeout(replyTimeout); err != nil {
		return fmt.Errorf("set read timeout: %w", err)
	}
	if _, err := port.Write([]byte(command + "\n")); err != nil {
		return fmt.Errorf("write command: %w", err)
	}

	reply, err := readLine(port)
	if err != nil {
		return err
	}
	fmt.Printf("Device reply: %s\n", reply)
	return nil
}

// readLine collects bytes until a newline or the read timeout elapses. A
// timed-out read comes back empty, which ends the wait with whatever the
// device managed to send.
func readLine(port serial.Port) (string, error) {
	var line []byte
	buf := make([]byte, 64)
	for {
		n, err := port.Read(buf)
		if err != nil {
			return "", fmt.Errorf("read reply: %w", err)
		}
		if n == 0 {
			break
		}
		line = append(line, buf[:n]...)
		if bytes.IndexByte(line, '\n') >= 0 {
			break
		}
	}
	if idx := bytes.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(string(line)), nil
}
