package siwifi

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iqdump-service/internal/model"
	"iqdump-service/internal/protocol"
)

// recorder answers every request and remembers what was sent
type recorder struct {
	commands []protocol.Command
	failAt   map[int]bool // command index answered with is_error
	err      error
}

func (r *recorder) Request(_ context.Context, cmd protocol.Command) (protocol.Response, error) {
	idx := len(r.commands)
	r.commands = append(r.commands, cmd)
	if r.err != nil {
		return protocol.Response{}, r.err
	}
	return protocol.Response{IsError: r.failAt[idx]}, nil
}

func (r *recorder) CopyFile(_ context.Context, fileName string) (string, error) {
	r.commands = append(r.commands, protocol.CopyFiles{FileName: fileName})
	return "./iq_dump/" + fileName, r.err
}

func newDriver(r *recorder) (*Driver, *PhyIndex) {
	phy := NewPhyIndex()
	return NewDriver(r, phy, nil), phy
}

func TestPackGain(t *testing.T) {
	assert.Equal(t, uint16(0x0602), PackGain(1, 0, 1))
	assert.Equal(t, uint16(0x0400), PackGain(0, 0, 0))
	// Bits outside each field are ignored
	assert.Equal(t, PackGain(1, 7, 31), PackGain(0xFF, 0xFF, 0xFF))

	seen := make(map[uint16][3]uint8)
	for fem := uint8(0); fem < 2; fem++ {
		for lna := uint8(0); lna < 8; lna++ {
			for vga := uint8(0); vga < 32; vga++ {
				code := PackGain(fem, lna, vga)
				prev, dup := seen[code]
				require.False(t, dup, "code %#x for %v and %v", code, prev, [3]uint8{fem, lna, vga})
				seen[code] = [3]uint8{fem, lna, vga}
			}
		}
	}
	assert.Len(t, seen, 2*8*32)
}

func TestFixGainWritesFourWordsInOrder(t *testing.T) {
	r := &recorder{}
	d, _ := newDriver(r)

	require.NoError(t, d.FixGain(context.Background(), model.BandHB, 1, 0, 1))

	assert.Equal(t, []protocol.Command{
		protocol.SetReg{Addr: 0x30c02f88, Value: 0x2d170d17},
		protocol.SetReg{Addr: 0x30c02f88, Value: 0x3d171d17},
		protocol.SetReg{Addr: 0x30c02f88, Value: 0x26020602},
		protocol.SetReg{Addr: 0x30c02f88, Value: 0x36021602},
	}, r.commands)
}

func TestFixGainUsesBandRegister(t *testing.T) {
	r := &recorder{}
	d, _ := newDriver(r)

	require.NoError(t, d.FixGain(context.Background(), model.BandLB, 0, 3, 12))
	require.Len(t, r.commands, 4)
	for _, cmd := range r.commands {
		assert.Equal(t, uint32(0x20c02f88), cmd.(protocol.SetReg).Addr)
	}
}

func TestFixGainStopsAtDeviceError(t *testing.T) {
	r := &recorder{failAt: map[int]bool{1: true}}
	d, _ := newDriver(r)

	err := d.FixGain(context.Background(), model.BandHB, 0, 0, 5)
	var devErr *protocol.DeviceError
	require.True(t, errors.As(err, &devErr))
	assert.Len(t, r.commands, 2)
}

func TestDumpIQArmsEngineWithCurrentPhy(t *testing.T) {
	tests := []struct {
		band  model.Band
		shell string
	}{
		{model.BandHB, "echo 0 1 0 15 0 e000 0 2 0  1 0 0 0 > /sys/kernel/debug/ieee80211/phy1/siwifi/iq_engine"},
		{model.BandLB, "echo 0 1 0 15 0 1c000 0 2 0  1 0 0 0 > /sys/kernel/debug/ieee80211/phy0/siwifi/iq_engine"},
	}

	for _, tt := range tests {
		t.Run(tt.band.String(), func(t *testing.T) {
			r := &recorder{}
			d, _ := newDriver(r)

			ok, err := d.DumpIQ(context.Background(), tt.band, "x.txt")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []protocol.Command{
				protocol.ShellCmd{Text: tt.shell},
				protocol.DumpIQ{Band5G: tt.band == model.BandHB, FileName: "x.txt"},
			}, r.commands)
		})
	}
}

func TestDumpIQReportsDumpFailure(t *testing.T) {
	// A failed arm is tolerated, a failed dump is not
	r := &recorder{failAt: map[int]bool{0: true}}
	d, _ := newDriver(r)
	ok, err := d.DumpIQ(context.Background(), model.BandHB, "a.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	r = &recorder{failAt: map[int]bool{1: true}}
	d, _ = newDriver(r)
	ok, err = d.DumpIQ(context.Background(), model.BandHB, "a.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShutUpBandAdvancesPhy(t *testing.T) {
	r := &recorder{}
	d, phy := newDriver(r)
	ctx := context.Background()

	require.NoError(t, d.ShutUpBand(ctx, model.BandHB))
	assert.Equal(t, []protocol.Command{
		protocol.ShellCmd{Text: "echo 30000000.wmac > /sys/bus/platform/drivers/siwifi_umac/bind"},
		protocol.ATECmd{Cmd: "ifconfig", Args: []string{"wlan0", "up"}},
	}, r.commands)
	assert.Equal(t, 2, phy.Current(model.BandHB))
	assert.Equal(t, 0, phy.Current(model.BandLB))

	require.NoError(t, d.ShutUpBand(ctx, model.BandLB))
	assert.Equal(t, 3, phy.Current(model.BandLB))

	r.commands = nil
	_, err := d.DumpIQ(ctx, model.BandLB, "lb.txt")
	require.NoError(t, err)
	assert.Contains(t, r.commands[0].(protocol.ShellCmd).Text, "/phy3/")
}

func TestShutUpBandFailureKeepsPhy(t *testing.T) {
	r := &recorder{failAt: map[int]bool{1: true}}
	d, phy := newDriver(r)

	err := d.ShutUpBand(context.Background(), model.BandHB)
	var devErr *protocol.DeviceError
	require.True(t, errors.As(err, &devErr))
	assert.Equal(t, 1, phy.Current(model.BandHB))
}

func TestShutDownBand(t *testing.T) {
	r := &recorder{}
	d, _ := newDriver(r)

	require.NoError(t, d.ShutDownBand(context.Background(), model.BandLB))
	assert.Equal(t, []protocol.Command{
		protocol.ShellCmd{Text: "echo 20000000.wmac > /sys/bus/platform/drivers/siwifi_umac/unbind"},
		protocol.SetReg{Addr: 0x04e00030, Value: 0xffff},
		protocol.SetReg{Addr: 0x04e00478, Value: 7},
		protocol.SetReg{Addr: 0x04e004c8, Value: 7},
	}, r.commands)
}

func TestRxCommands(t *testing.T) {
	r := &recorder{}
	d, _ := newDriver(r)
	ctx := context.Background()

	require.NoError(t, d.OpenRx(ctx, model.BandLB))
	require.NoError(t, d.CloseRx(ctx, model.BandHB))
	require.NoError(t, d.OpenRx(ctx, model.BandHB))

	assert.Equal(t, []protocol.Command{
		protocol.ATECmd{Cmd: "ate_cmd", Args: []string{"wlan1", "fastconfig", "-f", "2412", "-c", "2412", "-w", "1", "-u", "1", "-r"}},
		protocol.ATECmd{Cmd: "ate_cmd", Args: []string{"wlan0", "fastconfig", "-k"}},
		protocol.ATECmd{Cmd: "ate_cmd", Args: []string{"wlan0", "fastconfig", "-f", "5180", "-c", "5180", "-w", "1", "-u", "1", "-r"}},
	}, r.commands)
}

func TestLinkErrorsPropagate(t *testing.T) {
	linkErr := &protocol.ConnectionError{Op: "read", Err: errors.New("reset")}
	d, _ := newDriver(&recorder{err: linkErr})

	err := d.FixGain(context.Background(), model.BandHB, 0, 0, 0)
	assert.True(t, protocol.IsFatal(err))

	_, err = d.DumpIQ(context.Background(), model.BandHB, "a.txt")
	assert.True(t, protocol.IsFatal(err))
}

func TestUnknownBand(t *testing.T) {
	d, _ := newDriver(&recorder{})
	assert.Error(t, d.OpenRx(context.Background(), model.Band("MB")))
}

func TestPhyIndexConcurrentAdvance(t *testing.T) {
	phy := NewPhyIndex()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			phy.Advance(model.BandHB)
		}()
	}
	wg.Wait()

	assert.Equal(t, map[model.Band]int{model.BandHB: 51, model.BandLB: 0}, phy.Snapshot())
}
