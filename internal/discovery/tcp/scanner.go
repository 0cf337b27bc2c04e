// internal/discovery/tcp/scanner.go
package tcp

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sort"
	"strconv"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"iqdump-service/internal/discovery"
)

// maxHosts bounds a single scan
const maxHosts = 4096

// Scanner probes networks for an open DUT control port
type Scanner struct {
	logger *zap.Logger
	config *Config
}

// Config for TCP scanner
type Config struct {
	Networks    []string      `json:"networks"`
	Port        int           `json:"port"`
	ConnTimeout time.Duration `json:"connection_timeout"`
	Workers     int           `json:"workers"`
}

// NewScanner creates a new TCP scanner
func NewScanner(logger *zap.Logger, config *Config) *Scanner {
	if config == nil {
		config = &Config{
			Networks:    []string{"192.168.1.0/24"},
			Port:        9600,
			ConnTimeout: 500 * time.Millisecond,
			Workers:     64,
		}
	}

	return &Scanner{
		logger: logger.With(zap.String("scanner", "tcp")),
		config: config,
	}
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return "tcp"
}

// IsAvailable reports whether there is anything to probe
func (s *Scanner) IsAvailable() bool {
	return len(s.config.Networks) > 0
}

// Scan connects to the control port of every host in the configured networks.
// The probe only opens and closes the connection; no command is sent.
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.Candidate, error) {
	hosts, err := Hosts(s.config.Networks)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Starting TCP scan",
		zap.Strings("networks", s.config.Networks),
		zap.Int("port", s.config.Port),
		zap.Int("hosts", len(hosts)),
	)

	workers := s.config.Workers
	if workers < 1 {
		workers = 1
	}

	p := pool.NewWithResults[*discovery.Candidate]().WithMaxGoroutines(workers)
	for _, host := range hosts {
		host := host
		p.Go(func() *discovery.Candidate {
			return s.probe(ctx, host)
		})
	}

	var found []*discovery.Candidate
	for _, c := range p.Wait() {
		if c != nil {
			found = append(found, c)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Address < found[j].Address })

	if err := ctx.Err(); err != nil {
		return found, err
	}

	s.logger.Info("TCP scan completed", zap.Int("candidates", len(found)))
	return found, nil
}

func (s *Scanner) probe(ctx context.Context, host netip.Addr) *discovery.Candidate {
	if ctx.Err() != nil {
		return nil
	}

	address := net.JoinHostPort(host.String(), strconv.Itoa(s.config.Port))
	dialer := net.Dialer{Timeout: s.config.ConnTimeout}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil
	}
	latency := time.Since(start)
	_ = conn.Close()

	s.logger.Debug("Control port open", zap.String("address", address), zap.Duration("latency", latency))
	return &discovery.Candidate{
		Link:    "tcp",
		Address: address,
		Latency: latency,
	}
}

// Hosts expands CIDR prefixes and bare addresses into probe targets.
// Network and broadcast addresses are skipped for IPv4 prefixes shorter than /31.
func Hosts(networks []string) ([]netip.Addr, error) {
	var hosts []netip.Addr
	seen := make(map[netip.Addr]bool)

	add := func(a netip.Addr) error {
		if seen[a] {
			return nil
		}
		if len(hosts) >= maxHosts {
			return fmt.Errorf("scan covers more than %d hosts", maxHosts)
		}
		seen[a] = true
		hosts = append(hosts, a)
		return nil
	}

	for _, network := range networks {
		if addr, err := netip.ParseAddr(network); err == nil {
			if err := add(addr); err != nil {
				return nil, err
			}
			continue
		}

		prefix, err := netip.ParsePrefix(network)
		if err != nil {
			return nil, fmt.Errorf("invalid network %q: %w", network, err)
		}
		prefix = prefix.Masked()

		bits := prefix.Addr().BitLen()
		if bits-prefix.Bits() > 12 {
			return nil, fmt.Errorf("network %s is too large to scan", prefix)
		}

		first := prefix.Addr()
		skipEdges := first.Is4() && prefix.Bits() < 31
		for a := first; prefix.Contains(a); a = a.Next() {
			if skipEdges && (a == first || !prefix.Contains(a.Next())) {
				continue
			}
			if err := add(a); err != nil {
				return nil, err
			}
		}
	}

	return hosts, nil
}
