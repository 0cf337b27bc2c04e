// internal/protocol/errors.go
package protocol

import (
	"errors"
	"fmt"
)

// ErrSessionBroken is wrapped by every call made after a fatal link failure
var ErrSessionBroken = errors.New("session is no longer usable")

// ConnectionError is a socket or port failure. The session must be rebuilt.
type ConnectionError struct {
	Op      string
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Address != "" {
		return fmt.Sprintf("dut connection %s %s: %v", e.Op, e.Address, e.Err)
	}
	return fmt.Sprintf("dut connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError is a malformed response line. The stream is desynchronized.
type ProtocolError struct {
	Line string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed response %q: %v", e.Line, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// DeviceError is a response carrying is_error=true
type DeviceError struct {
	Command string
	Detail  string
}

func (e *DeviceError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("dut rejected %s (%s)", e.Command, e.Detail)
	}
	return fmt.Sprintf("dut rejected %s", e.Command)
}

// TransferIncompleteError is a file copy that ended before file_size bytes arrived
type TransferIncompleteError struct {
	FileName string
	Received uint64
	Expected uint64
	Err      error
}

func (e *TransferIncompleteError) Error() string {
	msg := fmt.Sprintf("incomplete transfer of %s: received %d of %d bytes", e.FileName, e.Received, e.Expected)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransferIncompleteError) Unwrap() error { return e.Err }

// FileIOError is a local filesystem failure
type FileIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileIOError) Unwrap() error { return e.Err }

// IsFatal reports whether err leaves the session unusable
func IsFatal(err error) bool {
	var connErr *ConnectionError
	var protoErr *ProtocolError
	return errors.As(err, &connErr) || errors.As(err, &protoErr)
}
