// internal/service/plan_service.go
package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"iqdump-service/internal/model"
	"iqdump-service/internal/sweep"
	"iqdump-service/internal/utils"
)

// StepAction names one production plan step
type StepAction string

const (
	StepATEInit  StepAction = "ate_init"
	StepShutDown StepAction = "shut_down"
	StepShutUp   StepAction = "shut_up"
	StepOpenRx   StepAction = "open_rx"
	StepCloseRx  StepAction = "close_rx"
	StepSweep    StepAction = "sweep"
	StepParse    StepAction = "parse"
)

// PlanStep is one step of a production plan
type PlanStep struct {
	Action StepAction      `yaml:"action" json:"action"`
	Band   model.Band      `yaml:"band,omitempty" json:"band,omitempty"`
	Stage  model.GainStage `yaml:"stage,omitempty" json:"stage,omitempty"`
	Values []uint8         `yaml:"values,omitempty" json:"values,omitempty"`
}

func (s PlanStep) String() string {
	switch s.Action {
	case StepSweep:
		return fmt.Sprintf("%s %s %s %v", s.Action, s.Band, s.Stage, s.Values)
	case StepATEInit, StepParse:
		return string(s.Action)
	default:
		return fmt.Sprintf("%s %s", s.Action, s.Band)
	}
}

// ProductionPlan is an ordered list of bench steps
type ProductionPlan struct {
	Name  string     `yaml:"name" json:"name"`
	Steps []PlanStep `yaml:"steps" json:"steps"`
}

// StepReport is the outcome of one executed step
type StepReport struct {
	Index    int              `json:"index"`
	Step     PlanStep         `json:"step"`
	Error    string           `json:"error,omitempty"`
	Duration time.Duration    `json:"duration"`
	Sweep    *SweepOutcome    `json:"sweep,omitempty"`
	Analysis *AnalysisOutcome `json:"analysis,omitempty"`
}

// PlanReport is the outcome of a production plan
type PlanReport struct {
	Name      string        `json:"name"`
	Steps     []StepReport  `json:"steps"`
	Completed bool          `json:"completed"`
	Duration  time.Duration `json:"duration"`
}

// fullRange returns the sweep values of a stage over its whole production range
func fullRange(from, to uint8) []uint8 {
	values := make([]uint8, 0, int(to)-int(from)+1)
	for v := int(from); v <= int(to); v++ {
		values = append(values, uint8(v))
	}
	return values
}

// DefaultPlan is the production run: LB is characterised with HB down, then HB with LB down
func DefaultPlan() *ProductionPlan {
	sweeps := func(band model.Band) []PlanStep {
		return []PlanStep{
			{Action: StepSweep, Band: band, Stage: model.GainStageFem, Values: fullRange(0, 1)},
			{Action: StepSweep, Band: band, Stage: model.GainStageLna, Values: fullRange(1, 7)},
			{Action: StepSweep, Band: band, Stage: model.GainStageVga, Values: fullRange(1, 20)},
		}
	}

	steps := []PlanStep{
		{Action: StepATEInit},
		{Action: StepShutDown, Band: model.BandHB},
		{Action: StepOpenRx, Band: model.BandLB},
	}
	steps = append(steps, sweeps(model.BandLB)...)
	steps = append(steps,
		PlanStep{Action: StepCloseRx, Band: model.BandLB},
		PlanStep{Action: StepShutUp, Band: model.BandHB},
		PlanStep{Action: StepShutDown, Band: model.BandLB},
		PlanStep{Action: StepOpenRx, Band: model.BandHB},
	)
	steps = append(steps, sweeps(model.BandHB)...)
	steps = append(steps, PlanStep{Action: StepParse})

	return &ProductionPlan{Name: "production", Steps: steps}
}

// ParsePlan decodes and validates a YAML plan
func ParsePlan(data []byte) (*ProductionPlan, error) {
	var plan ProductionPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, &sweep.ConfigError{Reason: fmt.Sprintf("invalid plan: %v", err)}
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// LoadPlan reads a YAML plan file
func LoadPlan(path string) (*ProductionPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return ParsePlan(data)
}

// Validate normalises band and stage names and checks every step before anything runs
func (p *ProductionPlan) Validate() error {
	if len(p.Steps) == 0 {
		return &sweep.ConfigError{Reason: "plan has no steps"}
	}

	for i := range p.Steps {
		step := &p.Steps[i]
		invalid := func(format string, args ...any) error {
			return &sweep.ConfigError{Reason: fmt.Sprintf("step %d (%s): %s", i+1, step.Action, fmt.Sprintf(format, args...))}
		}

		switch step.Action {
		case StepATEInit, StepParse:
			continue
		case StepShutDown, StepShutUp, StepOpenRx, StepCloseRx, StepSweep:
		default:
			return invalid("unknown action")
		}

		band, err := model.ParseBand(string(step.Band))
		if err != nil {
			return invalid("%v", err)
		}
		step.Band = band

		if step.Action != StepSweep {
			continue
		}
		stage, err := model.ParseGainStage(string(step.Stage))
		if err != nil {
			return invalid("%v", err)
		}
		step.Stage = stage
		if _, err := sweep.RangeFromValues(step.Values); err != nil {
			return invalid("%v", err)
		}
	}
	return nil
}

// PlanService runs production plans against the DUT
type PlanService struct {
	dut      *DutService
	analysis *AnalysisService
	logger   *utils.ServiceLogger
}

// NewPlanService creates a plan service
func NewPlanService(dut *DutService, analysis *AnalysisService, logger *zap.Logger) *PlanService {
	return &PlanService{
		dut:      dut,
		analysis: analysis,
		logger:   utils.NewServiceLogger(logger, "plan-service"),
	}
}

// Execute runs the plan steps in order. A sweep that finishes with failed values does not
// stop the plan; any step returning an error does.
func (ps *PlanService) Execute(ctx context.Context, plan *ProductionPlan) (*PlanReport, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	planReport := &PlanReport{Name: plan.Name}
	opLogger := utils.NewOperationLogger(ps.logger.Logger, "plan", plan.Name)
	opLogger.Start(zap.Int("steps", len(plan.Steps)))

	for i, step := range plan.Steps {
		stepStart := time.Now()
		stepReport := StepReport{Index: i + 1, Step: step}

		err := ps.executeStep(ctx, step, &stepReport)
		stepReport.Duration = time.Since(stepStart)
		if err != nil {
			stepReport.Error = err.Error()
		}
		planReport.Steps = append(planReport.Steps, stepReport)

		if err != nil {
			planReport.Duration = time.Since(start)
			opLogger.Error(err, zap.Int("step", i+1), zap.String("action", step.String()))
			return planReport, fmt.Errorf("step %d (%s): %w", i+1, step, err)
		}
		opLogger.Progress("Plan step finished", float64(i+1)/float64(len(plan.Steps)),
			zap.String("action", step.String()),
		)
	}

	planReport.Completed = true
	planReport.Duration = time.Since(start)
	opLogger.Success()
	return planReport, nil
}

func (ps *PlanService) executeStep(ctx context.Context, step PlanStep, stepReport *StepReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch step.Action {
	case StepATEInit:
		return ps.dut.ATEInit(ctx)
	case StepShutDown:
		return ps.dut.ShutDownBand(ctx, step.Band)
	case StepShutUp:
		return ps.dut.ShutUpBand(ctx, step.Band)
	case StepOpenRx:
		return ps.dut.OpenRx(ctx, step.Band)
	case StepCloseRx:
		return ps.dut.CloseRx(ctx, step.Band)
	case StepSweep:
		outcome, err := ps.dut.RunSweep(ctx, &model.SweepRequest{
			Band:   step.Band,
			Stage:  step.Stage,
			Values: step.Values,
		})
		stepReport.Sweep = outcome
		return err
	case StepParse:
		outcome, err := ps.analysis.Run(ctx, ps.dut.Catalog(), nil)
		stepReport.Analysis = outcome
		return err
	default:
		return &sweep.ConfigError{Reason: fmt.Sprintf("unknown action %q", step.Action)}
	}
}
