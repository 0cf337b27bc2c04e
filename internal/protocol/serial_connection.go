// internal/protocol/serial_connection.go
package protocol

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// SerialLink implements Link over the DUT serial console
type SerialLink struct {
	port     serial.Port
	name     string
	logger   *zap.Logger
	counters linkCounters

	mutex    sync.Mutex
	deadline time.Time
}

// OpenSerial opens the serial control link
func OpenSerial(config SerialConfig, logger *zap.Logger) (*SerialLink, error) {
	logger = logger.With(
		zap.String("protocol", "serial"),
		zap.String("port", config.Port),
	)
	logger.Info("Opening serial port", zap.Int("baud_rate", config.BaudRate))

	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
	}

	switch config.StopBits {
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}

	switch config.Parity {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}

	port, err := serial.Open(config.Port, mode)
	if err != nil {
		logger.Error("Failed to open serial port", zap.Error(err))
		return nil, &ConnectionError{Op: "open", Address: config.Port, Err: err}
	}

	logger.Info("Serial port opened successfully")
	return &SerialLink{port: port, name: config.Port, logger: logger}, nil
}

// Read reads from the port, honouring the current deadline
func (sl *SerialLink) Read(p []byte) (int, error) {
	sl.mutex.Lock()
	deadline := sl.deadline
	sl.mutex.Unlock()

	timeout := serial.NoTimeout
	if !deadline.IsZero() {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return 0, os.ErrDeadlineExceeded
		}
	}
	if err := sl.port.SetReadTimeout(timeout); err != nil {
		return 0, fmt.Errorf("failed to set read timeout: %w", err)
	}

	n, err := sl.port.Read(p)
	// The port reports a timeout as an empty read
	if n == 0 && err == nil && len(p) > 0 {
		err = os.ErrDeadlineExceeded
	}
	sl.counters.recordRead(n, err)
	return n, err
}

// Write writes to the port
func (sl *SerialLink) Write(p []byte) (int, error) {
	n, err := sl.port.Write(p)
	sl.counters.recordWrite(n, err)
	if err != nil {
		sl.logger.Error("Serial write failed", zap.Error(err))
	}
	return n, err
}

// SetDeadline records the deadline applied to subsequent reads
func (sl *SerialLink) SetDeadline(t time.Time) error {
	sl.mutex.Lock()
	defer sl.mutex.Unlock()
	sl.deadline = t
	return nil
}

// Close closes the port
func (sl *SerialLink) Close() error {
	if err := sl.port.Close(); err != nil {
		sl.logger.Error("Failed to close serial port", zap.Error(err))
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	sl.logger.Info("Serial port closed successfully")
	return nil
}

// Kind returns the transport name
func (sl *SerialLink) Kind() string {
	return "serial"
}

// Stats returns the link counters
func (sl *SerialLink) Stats() LinkStats {
	return sl.counters.snapshot()
}
