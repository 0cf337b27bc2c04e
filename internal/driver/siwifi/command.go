// internal/driver/siwifi/command.go
package siwifi

import "iqdump-service/internal/model"

// BandProfile holds the per-band literals used to drive the radio
type BandProfile struct {
	GainRegister uint32 // base address of the fixed-gain override
	WmacDevice   string // platform device bound to the siwifi_umac driver
	Interface    string // network interface brought up by ATE
	IQEngineMask string // capture mask written to the iq_engine debug file
	RxChannelMHz int    // fastconfig channel for continuous receive
}

// BAND_PROFILES contains the register and path constants for each band
var BAND_PROFILES = map[model.Band]BandProfile{
	model.BandHB: {
		GainRegister: 0x30c02f88,
		WmacDevice:   "30000000.wmac",
		Interface:    "wlan0",
		IQEngineMask: "e000",
		RxChannelMHz: 5180,
	},
	model.BandLB: {
		GainRegister: 0x20c02f88,
		WmacDevice:   "20000000.wmac",
		Interface:    "wlan1",
		IQEngineMask: "1c000",
		RxChannelMHz: 2412,
	},
}

// GAIN_UNLOCK_WORDS are written before the gain code, in this order
var GAIN_UNLOCK_WORDS = [2]uint32{0x2d170d17, 0x3d171d17}

// SHUTDOWN_REGISTERS are written after unbinding a band, in this order
var SHUTDOWN_REGISTERS = []struct {
	Addr  uint32
	Value uint32
}{
	{Addr: 0x04e00030, Value: 0xffff},
	{Addr: 0x04e00478, Value: 0x7},
	{Addr: 0x04e004c8, Value: 0x7},
}

const (
	umacDriverPath = "/sys/bus/platform/drivers/siwifi_umac"
	iqEnginePath   = "/sys/kernel/debug/ieee80211/phy%d/siwifi/iq_engine"
	iqEngineArgs   = "echo 0 1 0 15 0 %s 0 2 0  1 0 0 0 > " + iqEnginePath
)
