// internal/protocol/connection.go
package protocol

import "time"

// LinkConfig selects and configures the transport to the DUT
type LinkConfig struct {
	Kind   string       `json:"kind"`
	TCP    TCPConfig    `json:"tcp"`
	Serial SerialConfig `json:"serial"`
}

// Address returns a human readable endpoint for logging
func (c LinkConfig) Address() string {
	if c.Kind == "serial" {
		return c.Serial.Port
	}
	return c.TCP.Address
}

// SerialConfig represents serial console configuration
type SerialConfig struct {
	Port     string `json:"port"`
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// TCPConfig represents TCP connection configuration
type TCPConfig struct {
	Address        string        `json:"address"`
	KeepAlive      bool          `json:"keep_alive"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
}
