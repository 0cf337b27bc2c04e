// internal/service/dut_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"iqdump-service/internal/capture"
	"iqdump-service/internal/config"
	"iqdump-service/internal/driver/siwifi"
	"iqdump-service/internal/events"
	"iqdump-service/internal/model"
	"iqdump-service/internal/protocol"
	"iqdump-service/internal/repository"
	"iqdump-service/internal/sweep"
	"iqdump-service/internal/utils"
)

// ErrNotConnected is returned for device operations without an open session
var ErrNotConnected = errors.New("dut is not connected")

// DutService owns the session to the DUT and serializes every device operation on it
type DutService struct {
	config    *config.Config
	repo      repository.SweepRepository
	publisher events.Publisher
	catalog   *capture.Catalog
	phy       *siwifi.PhyIndex
	logger    *utils.ServiceLogger

	mutex       sync.Mutex
	session     *protocol.Session
	driver      *siwifi.Driver
	link        protocol.LinkConfig
	connectedAt time.Time
}

// DutStatus is a snapshot of the DUT connection
type DutStatus struct {
	Connected   bool               `json:"connected"`
	Address     string             `json:"address,omitempty"`
	Link        string             `json:"link,omitempty"`
	ConnectedAt *time.Time         `json:"connected_at,omitempty"`
	Broken      string             `json:"broken,omitempty"`
	Phy         map[string]int     `json:"phy"`
	Captures    int                `json:"captures"`
	Stats       protocol.LinkStats `json:"stats"`
}

// SweepOutcome is a finished sweep with its persisted record
type SweepOutcome struct {
	Run    *model.SweepRun `json:"run"`
	Result *sweep.Result   `json:"result"`
}

// SweepDetails is a persisted run with its iterations
type SweepDetails struct {
	Run        *model.SweepRun         `json:"run"`
	Iterations []*model.SweepIteration `json:"iterations"`
}

// NewDutService creates a DUT service. publisher may be nil.
func NewDutService(
	repo repository.SweepRepository,
	publisher events.Publisher,
	catalog *capture.Catalog,
	phy *siwifi.PhyIndex,
	config *config.Config,
	logger *zap.Logger,
) *DutService {
	if catalog == nil {
		catalog = capture.NewCatalog()
	}
	if phy == nil {
		phy = siwifi.NewPhyIndex()
	}
	return &DutService{
		config:    config,
		repo:      repo,
		publisher: publisher,
		catalog:   catalog,
		phy:       phy,
		logger:    utils.NewServiceLogger(logger, "dut-service"),
	}
}

// LinkConfigFromConfig builds the transport settings, overriding the TCP address when given
func LinkConfigFromConfig(cfg *config.DUTConfig, address string) protocol.LinkConfig {
	if address == "" {
		address = cfg.Address
	}
	return protocol.LinkConfig{
		Kind: cfg.Link,
		TCP: protocol.TCPConfig{
			Address:        address,
			KeepAlive:      cfg.KeepAlive,
			ConnectTimeout: cfg.ConnectTimeout,
		},
		Serial: protocol.SerialConfig{
			Port:     cfg.Serial.Port,
			BaudRate: cfg.Serial.BaudRate,
			DataBits: cfg.Serial.DataBits,
			StopBits: cfg.Serial.StopBits,
			Parity:   cfg.Serial.Parity,
		},
	}
}

// SessionOptionsFromConfig builds the session settings
func SessionOptionsFromConfig(cfg *config.DUTConfig) protocol.SessionOptions {
	return protocol.SessionOptions{
		OutputDir:       cfg.OutputDir,
		BufferSize:      cfg.CopyBufferSize,
		RequestTimeout:  cfg.RequestTimeout,
		TransferTimeout: cfg.TransferTimeout,
	}
}

// Catalog returns the captured file catalog shared with the analysis service
func (ds *DutService) Catalog() *capture.Catalog {
	return ds.catalog
}

// Connect opens a session to the DUT, replacing any existing one
func (ds *DutService) Connect(ctx context.Context, address string) (*DutStatus, error) {
	link := LinkConfigFromConfig(&ds.config.DUT, address)

	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	if ds.session != nil {
		ds.closeLocked("reconnect")
	}

	session, err := protocol.Connect(ctx, link, SessionOptionsFromConfig(&ds.config.DUT), ds.logger.Logger)
	if err != nil {
		return nil, err
	}

	ds.session = session
	ds.driver = siwifi.NewDriver(session, ds.phy, ds.logger.Logger)
	ds.link = link
	ds.connectedAt = time.Now()

	ds.publish(model.EventDutConnected, model.JSONObject{
		"address": link.Address(),
		"link":    link.Kind,
	})
	return ds.statusLocked(), nil
}

// Disconnect closes the session if one is open
func (ds *DutService) Disconnect() error {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	if ds.session == nil {
		return ErrNotConnected
	}
	return ds.closeLocked("requested")
}

// Close releases the session on shutdown
func (ds *DutService) Close() {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	if ds.session != nil {
		ds.closeLocked("shutdown")
	}
}

func (ds *DutService) closeLocked(reason string) error {
	address := ds.link.Address()
	err := ds.session.Close()
	ds.session, ds.driver = nil, nil

	ds.publish(model.EventDutDisconnected, model.JSONObject{
		"address": address,
		"reason":  reason,
	})
	return err
}

// Status returns the current connection snapshot
func (ds *DutService) Status() *DutStatus {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()
	return ds.statusLocked()
}

func (ds *DutService) statusLocked() *DutStatus {
	status := &DutStatus{
		Phy:      make(map[string]int),
		Captures: ds.catalog.Len(),
	}
	for band, idx := range ds.phy.Snapshot() {
		status.Phy[band.String()] = idx
	}
	if ds.session == nil {
		return status
	}

	connectedAt := ds.connectedAt
	status.Connected = true
	status.Address = ds.link.Address()
	status.Link = ds.link.Kind
	status.ConnectedAt = &connectedAt
	status.Stats = ds.session.Stats()
	if err := ds.session.Err(); err != nil {
		status.Broken = err.Error()
	}
	return status
}

// withDriver runs fn with exclusive use of the device
func (ds *DutService) withDriver(fn func(d *siwifi.Driver) error) error {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	if ds.driver == nil {
		return ErrNotConnected
	}
	return fn(ds.driver)
}

// ATEInit initialises the ATE channel of the DUT
func (ds *DutService) ATEInit(ctx context.Context) error {
	return ds.withDriver(func(d *siwifi.Driver) error {
		ok, err := d.ATEInit(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return &protocol.DeviceError{Command: "ATEInit"}
		}
		ds.logger.Info("ATE initialised")
		return nil
	})
}

// ShutDownBand takes band offline
func (ds *DutService) ShutDownBand(ctx context.Context, band model.Band) error {
	return ds.bandOperation(ctx, band, "shut_down", (*siwifi.Driver).ShutDownBand)
}

// ShutUpBand brings band back online under a new phy index
func (ds *DutService) ShutUpBand(ctx context.Context, band model.Band) error {
	return ds.bandOperation(ctx, band, "shut_up", (*siwifi.Driver).ShutUpBand)
}

// OpenRx starts continuous receive on band
func (ds *DutService) OpenRx(ctx context.Context, band model.Band) error {
	return ds.bandOperation(ctx, band, "open_rx", (*siwifi.Driver).OpenRx)
}

// CloseRx stops continuous receive on band
func (ds *DutService) CloseRx(ctx context.Context, band model.Band) error {
	return ds.bandOperation(ctx, band, "close_rx", (*siwifi.Driver).CloseRx)
}

func (ds *DutService) bandOperation(
	ctx context.Context,
	band model.Band,
	action string,
	op func(*siwifi.Driver, context.Context, model.Band) error,
) error {
	if !band.IsValid() {
		return &sweep.ConfigError{Reason: fmt.Sprintf("unknown band %q", band)}
	}

	return ds.withDriver(func(d *siwifi.Driver) error {
		if err := op(d, ctx, band); err != nil {
			return err
		}
		ds.publish(model.EventBandChanged, model.JSONObject{
			"band":   band.String(),
			"action": action,
			"phy":    ds.phy.Current(band),
		})
		return nil
	})
}

// RunSweep sweeps one gain stage of one band over the range spanned by req.Values.
// The run and every iteration are recorded; successful captures join the catalog.
func (ds *DutService) RunSweep(ctx context.Context, req *model.SweepRequest) (*SweepOutcome, error) {
	valueRange, err := sweep.RangeFromValues(req.Values)
	if err != nil {
		return nil, err
	}
	plan := sweep.Plan{Band: req.Band, Stage: req.Stage, Range: valueRange}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	ds.mutex.Lock()
	defer ds.mutex.Unlock()
	if ds.driver == nil {
		return nil, ErrNotConnected
	}

	run := &model.SweepRun{
		ID:        uuid.New(),
		Band:      plan.Band,
		Stage:     plan.Stage,
		MinValue:  valueRange.Min,
		MaxValue:  valueRange.Max,
		Requested: model.JSONObject{"values": requestedValues(req.Values)},
		Status:    model.SweepStatusRunning,
		StartedAt: time.Now(),
	}
	if err := ds.repo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record sweep run: %w", err)
	}

	opLogger := utils.NewOperationLogger(ds.logger.Logger, "sweep", run.ID.String())
	opLogger.Start(
		zap.String("band", plan.Band.String()),
		zap.String("stage", plan.Stage.String()),
		zap.String("range", valueRange.String()),
	)
	ds.publish(model.EventSweepStarted, model.JSONObject{
		"run_id": run.ID.String(),
		"band":   plan.Band.String(),
		"stage":  plan.Stage.String(),
		"min":    valueRange.Min,
		"max":    valueRange.Max,
	})

	recorder := &sweepRecorder{ds: ds, run: run, total: valueRange.Len(), logger: opLogger}
	result, runErr := sweep.NewOrchestrator(ds.driver, recorder, ds.logger.Logger).Run(ctx, plan)

	finishedAt := time.Now()
	run.FinishedAt = &finishedAt
	run.Status = model.SweepStatusCompleted
	if runErr != nil {
		run.Status = model.SweepStatusAborted
		msg := runErr.Error()
		run.ErrorMessage = &msg
	}

	// The run may have been cancelled; its record is still closed
	if err := ds.repo.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		ds.logger.Error("Failed to record sweep result", zap.Error(err), zap.String("run_id", run.ID.String()))
	}

	ds.publish(model.EventSweepFinished, model.JSONObject{
		"run_id":    run.ID.String(),
		"status":    string(run.Status),
		"succeeded": run.Succeeded,
		"failed":    run.Failed,
	})

	if runErr != nil {
		opLogger.Error(runErr, zap.Int("succeeded", run.Succeeded), zap.Int("failed", run.Failed))
		return &SweepOutcome{Run: run, Result: result}, runErr
	}
	opLogger.Success(zap.Int("succeeded", run.Succeeded), zap.Int("failed", run.Failed))
	return &SweepOutcome{Run: run, Result: result}, nil
}

// GetSweep returns a recorded run with its iterations
func (ds *DutService) GetSweep(ctx context.Context, id uuid.UUID) (*SweepDetails, error) {
	run, err := ds.repo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	iterations, err := ds.repo.ListIterations(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SweepDetails{Run: run, Iterations: iterations}, nil
}

// ListSweeps lists recorded runs, newest first
func (ds *DutService) ListSweeps(ctx context.Context, filter *repository.SweepFilter) ([]*model.SweepRun, int, error) {
	return ds.repo.ListRuns(ctx, filter)
}

// requestedValues widens the values so they encode as a JSON array rather than base64
func requestedValues(values []uint8) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}

func (ds *DutService) publish(eventType model.EventType, data model.JSONObject) {
	if ds.publisher == nil {
		return
	}
	ds.publisher.Publish(model.NewEvent(eventType, "dut-service", data))
}

// sweepRecorder persists and publishes every iteration of one run
type sweepRecorder struct {
	ds     *DutService
	run    *model.SweepRun
	total  int
	logger *utils.OperationLogger
}

func (r *sweepRecorder) OnIteration(plan sweep.Plan, it sweep.IterationResult) {
	record := &model.SweepIteration{
		ID:         uuid.New(),
		RunID:      r.run.ID,
		Value:      it.Value,
		FileName:   it.FileName,
		Status:     model.IterationStatusSucceeded,
		DurationMs: int(it.Duration.Milliseconds()),
		CreatedAt:  time.Now(),
	}
	if it.Succeeded() {
		path := it.LocalPath
		record.LocalPath = &path
		r.ds.catalog.Add(path)
		r.run.Succeeded++
	} else {
		r.run.Failed++
		record.Status = model.IterationStatusFailed
	}
	if it.Err != nil {
		step := string(it.FailedAt)
		msg := it.Err.Error()
		record.FailedAt = &step
		record.ErrorMessage = &msg
	}

	if err := r.ds.repo.AddIteration(context.Background(), record); err != nil {
		r.ds.logger.Warn("Failed to record sweep iteration", zap.Error(err), zap.Uint8("value", it.Value))
	}

	done := r.run.Total()
	r.logger.Progress("Sweep progress", float64(done)/float64(r.total),
		zap.Uint8("value", it.Value),
		zap.String("status", string(record.Status)),
	)

	data := model.JSONObject{
		"run_id":    r.run.ID.String(),
		"band":      plan.Band.String(),
		"stage":     plan.Stage.String(),
		"value":     it.Value,
		"file_name": it.FileName,
		"status":    string(record.Status),
		"done":      done,
		"total":     r.total,
	}
	if record.ErrorMessage != nil {
		data["error"] = *record.ErrorMessage
		data["failed_at"] = *record.FailedAt
	}
	r.ds.publish(model.EventSweepIteration, data)
}
