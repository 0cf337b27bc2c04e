package sweep

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iqdump-service/internal/model"
	"iqdump-service/internal/protocol"
)

type gainCall struct {
	band          model.Band
	fem, lna, vga uint8
}

// fakeDevice fails chosen steps for chosen file names
type fakeDevice struct {
	gains      []gainCall
	dumps      []string
	copies     []string
	deletes    int
	gainErr    map[uint8]error // keyed by the swept value
	dumpFail   map[string]bool
	copyErr    map[string]error
	currentVal uint8
	sweptStage model.GainStage
}

func (f *fakeDevice) FixGain(_ context.Context, band model.Band, fem, lna, vga uint8) error {
	f.gains = append(f.gains, gainCall{band, fem, lna, vga})
	switch f.sweptStage {
	case model.GainStageFem:
		f.currentVal = fem
	case model.GainStageLna:
		f.currentVal = lna
	default:
		f.currentVal = vga
	}
	return f.gainErr[f.currentVal]
}

func (f *fakeDevice) DumpIQ(_ context.Context, _ model.Band, fileName string) (bool, error) {
	f.dumps = append(f.dumps, fileName)
	return !f.dumpFail[fileName], nil
}

func (f *fakeDevice) CopyFile(_ context.Context, fileName string) (string, error) {
	f.copies = append(f.copies, fileName)
	if err := f.copyErr[fileName]; err != nil {
		return "", err
	}
	return "iq_dump/" + fileName, nil
}

func (f *fakeDevice) DeleteRemoteFiles(context.Context) (bool, error) {
	f.deletes++
	return true, nil
}

func TestRunVisitsEveryValue(t *testing.T) {
	dev := &fakeDevice{sweptStage: model.GainStageVga}
	var observed []uint8
	orch := NewOrchestrator(dev, ObserverFunc(func(_ Plan, it IterationResult) {
		observed = append(observed, it.Value)
	}), nil)

	result, err := orch.Run(context.Background(), Plan{Band: model.BandHB, Stage: model.GainStageVga, Range: Range{Min: 1, Max: 3}})
	require.NoError(t, err)

	assert.Equal(t, []gainCall{
		{model.BandHB, 0, 0, 1},
		{model.BandHB, 0, 0, 2},
		{model.BandHB, 0, 0, 3},
	}, dev.gains)
	assert.Equal(t, []string{"hb_iq_0_0_01.txt", "hb_iq_0_0_02.txt", "hb_iq_0_0_03.txt"}, dev.dumps)
	assert.Equal(t, dev.dumps, dev.copies)
	assert.Equal(t, 3, dev.deletes)
	assert.Equal(t, []uint8{1, 2, 3}, observed)
	assert.Equal(t, []string{"iq_dump/hb_iq_0_0_01.txt", "iq_dump/hb_iq_0_0_02.txt", "iq_dump/hb_iq_0_0_03.txt"}, result.Files())
	assert.False(t, result.Aborted)
}

func TestRunIsolatesRecoverableFailures(t *testing.T) {
	dev := &fakeDevice{
		sweptStage: model.GainStageLna,
		gainErr:    map[uint8]error{2: &protocol.DeviceError{Command: "SetReg"}},
		dumpFail:   map[string]bool{"lb_iq_0_4_00.txt": true},
		copyErr: map[string]error{
			"lb_iq_0_5_00.txt": &protocol.TransferIncompleteError{FileName: "lb_iq_0_5_00.txt", Received: 1, Expected: 2},
			"lb_iq_0_6_00.txt": &protocol.FileIOError{Op: "create", Path: "x", Err: errors.New("denied")},
		},
	}
	orch := NewOrchestrator(dev, nil, nil)

	result, err := orch.Run(context.Background(), Plan{Band: model.BandLB, Stage: model.GainStageLna, Range: Range{Min: 1, Max: 7}})
	require.NoError(t, err)
	require.Len(t, result.Iterations, 7)
	assert.Len(t, dev.gains, 7)

	failedAt := map[uint8]Step{}
	for _, it := range result.Iterations {
		if it.Err != nil {
			failedAt[it.Value] = it.FailedAt
		}
	}
	assert.Equal(t, map[uint8]Step{2: StepSetGain, 4: StepCapture, 5: StepTransfer, 6: StepTransfer}, failedAt)
	assert.Equal(t, 4, result.Failed())

	// Cleanup only follows a successful transfer
	assert.Equal(t, 3, dev.deletes)
	assert.Equal(t, []string{"lb_iq_0_1_00.txt", "lb_iq_0_3_00.txt", "lb_iq_0_7_00.txt"}, []string{
		result.Iterations[0].FileName, result.Iterations[2].FileName, result.Iterations[6].FileName,
	})
}

func TestRunAbortsOnConnectionError(t *testing.T) {
	linkErr := &protocol.ConnectionError{Op: "read", Err: errors.New("reset")}
	dev := &fakeDevice{
		sweptStage: model.GainStageVga,
		copyErr:    map[string]error{"hb_iq_0_0_03.txt": linkErr},
	}
	orch := NewOrchestrator(dev, nil, nil)

	result, err := orch.Run(context.Background(), Plan{Band: model.BandHB, Stage: model.GainStageVga, Range: Range{Min: 1, Max: 20}})
	require.ErrorIs(t, err, linkErr)
	assert.True(t, result.Aborted)
	assert.Len(t, result.Iterations, 3)
	assert.Len(t, dev.gains, 3)
}

func TestRunAbortsOnProtocolError(t *testing.T) {
	dev := &fakeDevice{
		sweptStage: model.GainStageFem,
		gainErr:    map[uint8]error{0: &protocol.ProtocolError{Line: "??", Err: errors.New("bad")}},
	}
	orch := NewOrchestrator(dev, nil, nil)

	result, err := orch.Run(context.Background(), Plan{Band: model.BandHB, Stage: model.GainStageFem, Range: Range{Min: 0, Max: 1}})
	require.Error(t, err)
	assert.Len(t, result.Iterations, 1)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	dev := &fakeDevice{sweptStage: model.GainStageVga}
	ctx, cancel := context.WithCancel(context.Background())
	orch := NewOrchestrator(dev, ObserverFunc(func(_ Plan, it IterationResult) {
		if it.Value == 2 {
			cancel()
		}
	}), nil)

	result, err := orch.Run(ctx, Plan{Band: model.BandHB, Stage: model.GainStageVga, Range: Range{Min: 1, Max: 5}})
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, result.Aborted)
	assert.Len(t, result.Iterations, 2)
}

func TestRunRejectsInvalidPlan(t *testing.T) {
	orch := NewOrchestrator(&fakeDevice{}, nil, nil)

	tests := []Plan{
		{Band: "XB", Stage: model.GainStageVga, Range: Range{Min: 1, Max: 2}},
		{Band: model.BandHB, Stage: "pa", Range: Range{Min: 1, Max: 2}},
		{Band: model.BandHB, Stage: model.GainStageVga, Range: Range{Min: 3, Max: 2}},
	}
	for _, plan := range tests {
		_, err := orch.Run(context.Background(), plan)
		var cfgErr *ConfigError
		assert.True(t, errors.As(err, &cfgErr), "%+v", plan)
	}
}

func TestRangeFromValues(t *testing.T) {
	r, err := RangeFromValues([]uint8{5, 1, 9})
	require.NoError(t, err)
	assert.Equal(t, Range{Min: 1, Max: 9}, r)
	// Gaps between supplied values are swept too
	assert.Equal(t, []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9}, r.Values())

	_, err = RangeFromValues(nil)
	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = NewRange(4, 3)
	assert.True(t, errors.As(err, &cfgErr))
}

func TestRangeFullByte(t *testing.T) {
	r := Range{Min: 250, Max: 255}
	assert.Equal(t, []uint8{250, 251, 252, 253, 254, 255}, r.Values())
	assert.Equal(t, 256, Range{Min: 0, Max: 255}.Len())
}

func TestFileName(t *testing.T) {
	tests := []struct {
		band  model.Band
		stage model.GainStage
		value uint8
		want  string
	}{
		{model.BandHB, model.GainStageFem, 1, "hb_iq_1_0_00.txt"},
		{model.BandLB, model.GainStageLna, 7, "lb_iq_0_7_00.txt"},
		{model.BandHB, model.GainStageVga, 5, "hb_iq_0_0_05.txt"},
		{model.BandLB, model.GainStageVga, 20, "lb_iq_0_0_20.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			name := FileName(tt.band, tt.stage, tt.value)
			assert.Equal(t, tt.want, name)

			file, err := ParseFileName("iq_dump/" + name)
			require.NoError(t, err)
			assert.Equal(t, tt.band, file.Band)
			assert.Equal(t, tt.stage, file.Stage)
			assert.Equal(t, tt.value, file.Value)
		})
	}

	_, err := ParseFileName("report.txt")
	assert.Error(t, err)
}
