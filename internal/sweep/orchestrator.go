// Package sweep drives one gain stage of one band through a range of values,
// capturing and fetching an I/Q dump per value.
//
// Each value runs SetGain, Capture, Transfer and Cleanup in that order. A failure in any
// step abandons that value only; the run moves on to the next value. Only a broken link
// or a cancelled context ends the run early.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"iqdump-service/internal/model"
	"iqdump-service/internal/protocol"
)

// Device is the set of board operations a sweep needs
type Device interface {
	FixGain(ctx context.Context, band model.Band, fem, lna, vga uint8) error
	DumpIQ(ctx context.Context, band model.Band, fileName string) (bool, error)
	CopyFile(ctx context.Context, fileName string) (string, error)
	DeleteRemoteFiles(ctx context.Context) (bool, error)
}

// Observer is notified after every iteration
type Observer interface {
	OnIteration(plan Plan, result IterationResult)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(plan Plan, result IterationResult)

func (f ObserverFunc) OnIteration(plan Plan, result IterationResult) { f(plan, result) }

// Plan is one sweep: a band, the stage being varied and its range
type Plan struct {
	Band  model.Band      `json:"band"`
	Stage model.GainStage `json:"stage"`
	Range Range           `json:"range"`
}

// Validate checks the plan before any device I/O
func (p Plan) Validate() error {
	if !p.Band.IsValid() {
		return &ConfigError{Reason: fmt.Sprintf("unknown band %q", p.Band)}
	}
	if !p.Stage.IsValid() {
		return &ConfigError{Reason: fmt.Sprintf("unknown gain stage %q", p.Stage)}
	}
	if p.Range.Len() == 0 {
		return &ConfigError{Reason: fmt.Sprintf("range %s is empty", p.Range)}
	}
	return nil
}

// Step names the phase an iteration failed in
type Step string

const (
	StepSetGain  Step = "set_gain"
	StepCapture  Step = "capture"
	StepTransfer Step = "transfer"
	StepCleanup  Step = "cleanup"
)

// IterationResult is the outcome of one swept value
type IterationResult struct {
	Value     uint8         `json:"value"`
	FileName  string        `json:"file_name"`
	LocalPath string        `json:"local_path,omitempty"`
	FailedAt  Step          `json:"failed_at,omitempty"`
	Err       error         `json:"-"`
	Duration  time.Duration `json:"duration"`
}

// Succeeded reports whether the capture reached the local output directory
func (r IterationResult) Succeeded() bool {
	return r.LocalPath != ""
}

// Result is the outcome of a sweep
type Result struct {
	Plan       Plan              `json:"plan"`
	Iterations []IterationResult `json:"iterations"`
	Aborted    bool              `json:"aborted"`
}

// Files returns the local paths of the successful captures, in sweep order
func (r *Result) Files() []string {
	var files []string
	for _, it := range r.Iterations {
		if it.Succeeded() {
			files = append(files, it.LocalPath)
		}
	}
	return files
}

// Failed counts iterations that did not produce a capture
func (r *Result) Failed() int {
	n := 0
	for _, it := range r.Iterations {
		if !it.Succeeded() {
			n++
		}
	}
	return n
}

// Orchestrator runs sweeps against one device
type Orchestrator struct {
	device   Device
	observer Observer
	logger   *zap.Logger
}

// NewOrchestrator creates an orchestrator; observer may be nil
func NewOrchestrator(device Device, observer Observer, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		device:   device,
		observer: observer,
		logger:   logger.With(zap.String("component", "sweep")),
	}
}

// Run sweeps plan.Range in ascending order. The returned error is non-nil only when the
// run stopped early; Result then holds the iterations completed so far.
func (o *Orchestrator) Run(ctx context.Context, plan Plan) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger.With(
		zap.String("band", plan.Band.String()),
		zap.String("stage", plan.Stage.String()),
		zap.String("range", plan.Range.String()),
	)
	logger.Info("Sweep started")

	result := &Result{Plan: plan, Iterations: make([]IterationResult, 0, plan.Range.Len())}
	for _, v := range plan.Range.Values() {
		if err := ctx.Err(); err != nil {
			result.Aborted = true
			logger.Warn("Sweep cancelled", zap.Uint8("value", v), zap.Error(err))
			return result, err
		}

		it := o.iterate(ctx, plan, v)
		result.Iterations = append(result.Iterations, it)
		if o.observer != nil {
			o.observer.OnIteration(plan, it)
		}

		if it.Err != nil {
			logger.Warn("Sweep iteration failed",
				zap.Uint8("value", v),
				zap.String("step", string(it.FailedAt)),
				zap.Error(it.Err),
			)
			if protocol.IsFatal(it.Err) || isContextErr(it.Err) {
				result.Aborted = true
				logger.Error("Sweep aborted", zap.Error(it.Err))
				return result, it.Err
			}
		}
	}

	logger.Info("Sweep finished",
		zap.Int("iterations", len(result.Iterations)),
		zap.Int("failed", result.Failed()),
	)
	return result, nil
}

// iterate runs SetGain, Capture, Transfer and Cleanup for one value
func (o *Orchestrator) iterate(ctx context.Context, plan Plan, v uint8) IterationResult {
	start := time.Now()
	it := IterationResult{Value: v, FileName: FileName(plan.Band, plan.Stage, v)}
	fail := func(step Step, err error) IterationResult {
		it.FailedAt, it.Err, it.Duration = step, err, time.Since(start)
		return it
	}

	fem, lna, vga := Gains(plan.Stage, v)
	if err := o.device.FixGain(ctx, plan.Band, fem, lna, vga); err != nil {
		return fail(StepSetGain, err)
	}

	ok, err := o.device.DumpIQ(ctx, plan.Band, it.FileName)
	if err != nil {
		return fail(StepCapture, err)
	}
	if !ok {
		return fail(StepCapture, &protocol.DeviceError{Command: "DumpIQ", Detail: it.FileName})
	}

	localPath, err := o.device.CopyFile(ctx, it.FileName)
	if err != nil {
		return fail(StepTransfer, err)
	}
	it.LocalPath = localPath

	ok, err = o.device.DeleteRemoteFiles(ctx)
	if err != nil {
		return fail(StepCleanup, err)
	}
	if !ok {
		// The capture is already local
		o.logger.Warn("Remote cleanup reported an error", zap.String("file_name", it.FileName))
	}

	it.Duration = time.Since(start)
	return it
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
