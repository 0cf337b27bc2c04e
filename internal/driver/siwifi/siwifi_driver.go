// internal/driver/siwifi/siwifi_driver.go
package siwifi

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"iqdump-service/internal/model"
	"iqdump-service/internal/protocol"
)

// Requester is the part of protocol.Session the driver needs
type Requester interface {
	Request(ctx context.Context, cmd protocol.Command) (protocol.Response, error)
	CopyFile(ctx context.Context, fileName string) (string, error)
}

// Driver runs the siwifi bring-up, gain and capture procedures over a session
type Driver struct {
	session Requester
	phy     *PhyIndex
	logger  *zap.Logger
}

// NewDriver creates a driver. phy is shared by every driver talking to the same board.
func NewDriver(session Requester, phy *PhyIndex, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		session: session,
		phy:     phy,
		logger:  logger.With(zap.String("driver", "siwifi")),
	}
}

// ATEInit initialises the ATE channel
func (d *Driver) ATEInit(ctx context.Context) (bool, error) {
	resp, err := d.session.Request(ctx, protocol.ATEInit{})
	if err != nil {
		return false, err
	}
	return !resp.IsError, nil
}

// DeleteRemoteFiles removes dumped captures on the board
func (d *Driver) DeleteRemoteFiles(ctx context.Context) (bool, error) {
	resp, err := d.session.Request(ctx, protocol.DelFiles{})
	if err != nil {
		return false, err
	}
	return !resp.IsError, nil
}

// CopyFile fetches a dumped capture into the local output directory
func (d *Driver) CopyFile(ctx context.Context, fileName string) (string, error) {
	return d.session.CopyFile(ctx, fileName)
}

// DumpIQ arms the iq engine of band and dumps a capture to fileName on the board
func (d *Driver) DumpIQ(ctx context.Context, band model.Band, fileName string) (bool, error) {
	profile, err := profileFor(band)
	if err != nil {
		return false, err
	}

	phy := d.phy.Current(band)
	arm, err := d.session.Request(ctx, protocol.ShellCmd{Text: iqEngineCommand(profile, phy)})
	if err != nil {
		return false, fmt.Errorf("arm iq engine: %w", err)
	}
	if arm.IsError {
		// The dump itself reports whether a capture was produced
		d.logger.Warn("IQ engine arm reported an error",
			zap.String("band", band.String()),
			zap.Int("phy", phy),
		)
	}

	resp, err := d.session.Request(ctx, protocol.DumpIQ{Band5G: band.Is5G(), FileName: fileName})
	if err != nil {
		return false, fmt.Errorf("dump iq: %w", err)
	}
	return !resp.IsError, nil
}

// FixGain overrides the receive gain of band with four register writes
func (d *Driver) FixGain(ctx context.Context, band model.Band, fem, lna, vga uint8) error {
	profile, err := profileFor(band)
	if err != nil {
		return err
	}

	words := gainWords(PackGain(fem, lna, vga))
	commands := make([]protocol.Command, 0, len(words))
	for _, word := range words {
		commands = append(commands, protocol.SetReg{Addr: profile.GainRegister, Value: word})
	}

	d.logger.Debug("Fixing gain",
		zap.String("band", band.String()),
		zap.Uint8("fem", fem),
		zap.Uint8("lna", lna),
		zap.Uint8("vga", vga),
	)
	return d.sendCommands(ctx, "fix gain", commands)
}

// ShutDownBand unbinds the band's driver and parks its RF registers
func (d *Driver) ShutDownBand(ctx context.Context, band model.Band) error {
	profile, err := profileFor(band)
	if err != nil {
		return err
	}

	commands := []protocol.Command{protocol.ShellCmd{Text: driverBindCommand(profile, "unbind")}}
	for _, reg := range SHUTDOWN_REGISTERS {
		commands = append(commands, protocol.SetReg{Addr: reg.Addr, Value: reg.Value})
	}

	if err := d.sendCommands(ctx, "shut down "+band.String(), commands); err != nil {
		return err
	}
	d.logger.Info("Band shut down", zap.String("band", band.String()))
	return nil
}

// ShutUpBand rebinds the band's driver and brings its interface up.
// The kernel assigns a new phy number, which later captures must use.
func (d *Driver) ShutUpBand(ctx context.Context, band model.Band) error {
	profile, err := profileFor(band)
	if err != nil {
		return err
	}

	commands := []protocol.Command{
		protocol.ShellCmd{Text: driverBindCommand(profile, "bind")},
		protocol.ATECmd{Cmd: "ifconfig", Args: []string{profile.Interface, "up"}},
	}
	if err := d.sendCommands(ctx, "shut up "+band.String(), commands); err != nil {
		return err
	}

	phy := d.phy.Advance(band)
	d.logger.Info("Band brought up", zap.String("band", band.String()), zap.Int("phy", phy))
	return nil
}

// OpenRx starts continuous receive on band
func (d *Driver) OpenRx(ctx context.Context, band model.Band) error {
	profile, err := profileFor(band)
	if err != nil {
		return err
	}
	return d.sendCommands(ctx, "open rx "+band.String(), []protocol.Command{
		protocol.ATECmd{Cmd: "ate_cmd", Args: rxOpenArgs(profile)},
	})
}

// CloseRx stops continuous receive on band
func (d *Driver) CloseRx(ctx context.Context, band model.Band) error {
	profile, err := profileFor(band)
	if err != nil {
		return err
	}
	return d.sendCommands(ctx, "close rx "+band.String(), []protocol.Command{
		protocol.ATECmd{Cmd: "ate_cmd", Args: rxCloseArgs(profile)},
	})
}
