// internal/protocol/factory.go
package protocol

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Dial opens the link selected by config.Kind
func Dial(ctx context.Context, config LinkConfig, logger *zap.Logger) (Link, error) {
	switch config.Kind {
	case "", "tcp":
		if config.TCP.Address == "" {
			return nil, fmt.Errorf("tcp address is required")
		}
		return DialTCP(ctx, config.TCP, logger)
	case "serial":
		if config.Serial.Port == "" {
			return nil, fmt.Errorf("serial port is required")
		}
		if config.Serial.BaudRate == 0 {
			config.Serial.BaudRate = 115200
		}
		if config.Serial.DataBits == 0 {
			config.Serial.DataBits = 8
		}
		return OpenSerial(config.Serial, logger)
	default:
		return nil, fmt.Errorf("unsupported link type: %s", config.Kind)
	}
}
