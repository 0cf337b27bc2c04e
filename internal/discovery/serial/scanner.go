// internal/discovery/serial/scanner.go
package serial

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"iqdump-service/internal/discovery"
)

// Scanner lists serial ports a DUT console may be attached to
type Scanner struct {
	logger    *zap.Logger
	config    *Config
	listPorts func() ([]string, error)
}

// Config for serial scanner
type Config struct {
	PortPatterns []string `json:"port_patterns"`
}

// NewScanner creates a new serial scanner
func NewScanner(logger *zap.Logger, config *Config) *Scanner {
	if config == nil {
		config = &Config{PortPatterns: getDefaultPortPatterns()}
	}

	return &Scanner{
		logger:    logger.With(zap.String("scanner", "serial")),
		config:    config,
		listPorts: serial.GetPortsList,
	}
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return "serial"
}

// IsAvailable checks if serial scanning is available
func (s *Scanner) IsAvailable() bool {
	return true
}

// Scan lists the serial ports matching the configured patterns
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ports, err := s.listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports: %w", err)
	}

	var found []*discovery.Candidate
	for _, port := range s.filterPorts(ports) {
		found = append(found, &discovery.Candidate{
			Link:    "serial",
			Address: port,
		})
	}

	s.logger.Info("Serial scan completed",
		zap.Int("ports", len(ports)),
		zap.Int("candidates", len(found)),
	)
	return found, nil
}

// filterPorts keeps the ports matching any pattern; no patterns keeps all
func (s *Scanner) filterPorts(ports []string) []string {
	if len(s.config.PortPatterns) == 0 {
		return ports
	}

	var filtered []string
	for _, port := range ports {
		for _, pattern := range s.config.PortPatterns {
			if ok, _ := filepath.Match(pattern, port); ok || strings.EqualFold(pattern, port) {
				filtered = append(filtered, port)
				break
			}
		}
	}
	return filtered
}

func getDefaultPortPatterns() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"COM*"}
	case "darwin":
		return []string{"/dev/cu.usbserial*", "/dev/cu.usbmodem*"}
	default:
		return []string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/ttyS*"}
	}
}
