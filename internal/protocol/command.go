// internal/protocol/command.go
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownCommand is returned when decoding a tag outside the command set
var ErrUnknownCommand = errors.New("unknown command")

// Command is one operation understood by the DUT control agent.
// The set is closed: only the types in this file implement it.
type Command interface {
	// Tag returns the wire discriminator
	Tag() string

	// payload returns the tagged value, or false for unit commands
	payload() (any, bool)
}

// DumpIQ asks the DUT to write an I/Q capture to fileName
type DumpIQ struct {
	Band5G   bool   `json:"band_5g"`
	FileName string `json:"file_name"`
}

// DelFiles removes previously dumped files on the DUT
type DelFiles struct{}

// CopyFiles asks the DUT to stream fileName back after the response line
type CopyFiles struct {
	FileName string
}

// SetReg writes a hardware register
type SetReg struct {
	Addr  uint32 `json:"addr"`
	Value uint32 `json:"value"`
}

// ShellCmd runs a shell command on the DUT
type ShellCmd struct {
	Text string
}

// ATEInit initialises the ATE command channel
type ATEInit struct{}

// ATECmd runs a generic ATE command
type ATECmd struct {
	Cmd  string   `json:"cmd"`
	Args []string `json:"args"`
}

func (DumpIQ) Tag() string    { return "DumpIQ" }
func (DelFiles) Tag() string  { return "DelFiles" }
func (CopyFiles) Tag() string { return "CopyFiles" }
func (SetReg) Tag() string    { return "SetReg" }
func (ShellCmd) Tag() string  { return "ShellCmd" }
func (ATEInit) Tag() string   { return "ATEInit" }
func (ATECmd) Tag() string    { return "ATECmd" }

func (c DumpIQ) payload() (any, bool)    { return c, true }
func (DelFiles) payload() (any, bool)    { return nil, false }
func (c CopyFiles) payload() (any, bool) { return c.FileName, true }
func (c SetReg) payload() (any, bool)    { return c, true }
func (c ShellCmd) payload() (any, bool)  { return c.Text, true }
func (ATEInit) payload() (any, bool)     { return nil, false }

func (c ATECmd) payload() (any, bool) {
	if c.Args == nil {
		c.Args = []string{}
	}
	return c, true
}

// EncodeCommand renders cmd in its externally tagged form, without the trailing newline.
// Unit commands encode as a bare string, the rest as a single-key object.
func EncodeCommand(cmd Command) ([]byte, error) {
	if cmd == nil {
		return nil, fmt.Errorf("nil command")
	}

	value, ok := cmd.payload()
	if !ok {
		return marshal(cmd.Tag())
	}

	body, err := marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", cmd.Tag(), err)
	}
	return marshal(map[string]json.RawMessage{cmd.Tag(): body})
}

// marshal encodes without HTML escaping; shell commands carry '>' redirections
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeCommand parses one command line
func DecodeCommand(line []byte) (Command, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, fmt.Errorf("empty command line")
	}

	if line[0] == '"' {
		var tag string
		if err := json.Unmarshal(line, &tag); err != nil {
			return nil, fmt.Errorf("invalid command: %w", err)
		}
		switch tag {
		case "DelFiles":
			return DelFiles{}, nil
		case "ATEInit":
			return ATEInit{}, nil
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, tag)
		}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(line, &envelope); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}
	if len(envelope) != 1 {
		return nil, fmt.Errorf("invalid command: expected exactly one tag, got %d", len(envelope))
	}

	for tag, raw := range envelope {
		var (
			cmd    Command
			target any
		)
		switch tag {
		case "DumpIQ":
			c := &DumpIQ{}
			cmd, target = c, c
		case "CopyFiles":
			c := &CopyFiles{}
			cmd, target = c, &c.FileName
		case "SetReg":
			c := &SetReg{}
			cmd, target = c, c
		case "ShellCmd":
			c := &ShellCmd{}
			cmd, target = c, &c.Text
		case "ATECmd":
			c := &ATECmd{}
			cmd, target = c, c
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, tag)
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", tag, err)
		}
		return deref(cmd), nil
	}
	return nil, fmt.Errorf("invalid command")
}

// deref turns the pointer used while decoding back into the value form
func deref(cmd Command) Command {
	switch c := cmd.(type) {
	case *DumpIQ:
		return *c
	case *CopyFiles:
		return *c
	case *SetReg:
		return *c
	case *ShellCmd:
		return *c
	case *ATECmd:
		return *c
	}
	return cmd
}

// Response is the single reply line the DUT sends for every command
type Response struct {
	IsError  bool   `json:"is_error"`
	FileSize uint64 `json:"file_size"`
}

// EncodeResponse renders a response line, without the trailing newline
func EncodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

// DecodeResponse parses one response line. Both fields are required.
func DecodeResponse(line []byte) (Response, error) {
	var wire struct {
		IsError  *bool   `json:"is_error"`
		FileSize *uint64 `json:"file_size"`
	}

	trimmed := bytes.TrimSpace(line)
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return Response{}, &ProtocolError{Line: string(trimmed), Err: err}
	}
	if wire.IsError == nil || wire.FileSize == nil {
		return Response{}, &ProtocolError{Line: string(trimmed), Err: errors.New("missing is_error or file_size")}
	}

	return Response{IsError: *wire.IsError, FileSize: *wire.FileSize}, nil
}
