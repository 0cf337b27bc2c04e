// internal/driver/siwifi/siwifi_helper.go
package siwifi

import (
	"context"
	"fmt"
	"strings"

	"iqdump-service/internal/model"
	"iqdump-service/internal/protocol"
)

// PackGain packs the three gain stages into the 16-bit override code.
// vga occupies bits 1-5, lna bits 6-8, fem bit 9; bit 10 enables the override.
func PackGain(fem, lna, vga uint8) uint16 {
	code := uint16(fem&0x1)<<8 | uint16(lna&0x7)<<5 | uint16(vga&0x1F)
	return code<<1 | 1<<10
}

// gainWords returns the four register values that apply code
func gainWords(code uint16) [4]uint32 {
	c := uint32(code)
	return [4]uint32{
		GAIN_UNLOCK_WORDS[0],
		GAIN_UNLOCK_WORDS[1],
		(c|0x2000)<<16 | c,
		(c|0x3000)<<16 | (c | 0x1000),
	}
}

func profileFor(band model.Band) (BandProfile, error) {
	profile, ok := BAND_PROFILES[band]
	if !ok {
		return BandProfile{}, fmt.Errorf("unknown band %q", band)
	}
	return profile, nil
}

func iqEngineCommand(profile BandProfile, phy int) string {
	return fmt.Sprintf(iqEngineArgs, profile.IQEngineMask, phy)
}

// driverBindCommand binds or unbinds the band's wmac device
func driverBindCommand(profile BandProfile, action string) string {
	return fmt.Sprintf("echo %s > %s/%s", profile.WmacDevice, umacDriverPath, action)
}

func rxOpenArgs(profile BandProfile) []string {
	return strings.Fields(fmt.Sprintf("%s fastconfig -f %d -c %d -w 1 -u 1 -r",
		profile.Interface, profile.RxChannelMHz, profile.RxChannelMHz))
}

func rxCloseArgs(profile BandProfile) []string {
	return []string{profile.Interface, "fastconfig", "-k"}
}

// sendCommands issues commands in order, stopping at the first failure
func (d *Driver) sendCommands(ctx context.Context, step string, commands []protocol.Command) error {
	for _, cmd := range commands {
		resp, err := d.session.Request(ctx, cmd)
		if err != nil {
			return fmt.Errorf("%s: %w", step, err)
		}
		if resp.IsError {
			return &protocol.DeviceError{Command: cmd.Tag(), Detail: step}
		}
	}
	return nil
}
