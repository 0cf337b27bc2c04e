// internal/service/discovery_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"iqdump-service/internal/config"
	"iqdump-service/internal/discovery"
	"iqdump-service/internal/discovery/serial"
	"iqdump-service/internal/discovery/tcp"
	"iqdump-service/internal/sweep"
	"iqdump-service/internal/utils"
)

// DiscoveryResult lists the endpoints found by one scan
type DiscoveryResult struct {
	Scanners   []string               `json:"scanners"`
	Candidates []*discovery.Candidate `json:"candidates"`
	Duration   time.Duration          `json:"duration"`
}

// DiscoveryService locates DUT control endpoints
type DiscoveryService struct {
	scannerManager *discovery.ScannerManager
	logger         *utils.ServiceLogger
}

// NewDiscoveryService creates a discovery service with the tcp and serial scanners
func NewDiscoveryService(cfg *config.DiscoveryConfig, logger *zap.Logger) *DiscoveryService {
	ds := &DiscoveryService{
		scannerManager: discovery.NewScannerManager(logger),
		logger:         utils.NewServiceLogger(logger, "discovery-service"),
	}

	ds.scannerManager.RegisterScanner(tcp.NewScanner(logger, &tcp.Config{
		Networks:    cfg.Networks,
		Port:        cfg.Port,
		ConnTimeout: cfg.ConnTimeout,
		Workers:     cfg.Workers,
	}))
	ds.scannerManager.RegisterScanner(serial.NewScanner(logger, &serial.Config{
		PortPatterns: cfg.SerialPatterns,
	}))

	ds.logger.Info("Discovery scanners initialized",
		zap.Strings("available_scanners", ds.scannerManager.GetAvailableScanners()),
	)
	return ds
}

// Scan runs one scanner, or all of them when scannerType is empty
func (ds *DiscoveryService) Scan(ctx context.Context, scannerType string) (*DiscoveryResult, error) {
	start := time.Now()
	result := &DiscoveryResult{}

	var (
		found []*discovery.Candidate
		err   error
	)
	if scannerType == "" {
		result.Scanners = ds.scannerManager.GetAvailableScanners()
		found, err = ds.scannerManager.ScanAll(ctx)
	} else {
		if !ds.supports(scannerType) {
			return nil, &sweep.ConfigError{Reason: fmt.Sprintf("unknown scanner %q", scannerType)}
		}
		result.Scanners = []string{scannerType}
		found, err = ds.scannerManager.ScanByType(ctx, scannerType)
	}
	if err != nil {
		return nil, fmt.Errorf("discovery scan failed: %w", err)
	}

	if found == nil {
		found = []*discovery.Candidate{}
	}
	result.Candidates = found
	result.Duration = time.Since(start)

	ds.logger.Info("Discovery scan completed",
		zap.Strings("scanners", result.Scanners),
		zap.Int("candidates", len(found)),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func (ds *DiscoveryService) supports(scannerType string) bool {
	for _, t := range ds.scannerManager.GetAvailableScanners() {
		if t == scannerType {
			return true
		}
	}
	return false
}
