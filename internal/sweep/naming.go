package sweep

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"iqdump-service/internal/model"
)

// Gains returns the (fem, lna, vga) triple for value v on stage, other stages held at 0
func Gains(stage model.GainStage, v uint8) (fem, lna, vga uint8) {
	switch stage {
	case model.GainStageFem:
		return v, 0, 0
	case model.GainStageLna:
		return 0, v, 0
	default:
		return 0, 0, v
	}
}

// FileName builds the capture name for value v, e.g. hb_iq_0_3_00.txt
func FileName(band model.Band, stage model.GainStage, v uint8) string {
	fem, lna, vga := Gains(stage, v)
	return fmt.Sprintf("%s_iq_%d_%d_%02d.txt", band.FilePrefix(), fem, lna, vga)
}

// CapturedFile is a local capture with the metadata recovered from its name
type CapturedFile struct {
	Path  string          `json:"path"`
	Band  model.Band      `json:"band"`
	Stage model.GainStage `json:"stage"`
	Value uint8           `json:"value"`
	Fem   uint8           `json:"fem"`
	Lna   uint8           `json:"lna"`
	Vga   uint8           `json:"vga"`
}

// ParseFileName recovers band and gain settings from a capture path.
// An all-zero name is attributed to the fem stage.
func ParseFileName(path string) (CapturedFile, error) {
	name := strings.TrimSuffix(filepath.Base(path), ".txt")
	parts := strings.Split(name, "_")
	if len(parts) != 5 || parts[1] != "iq" {
		return CapturedFile{}, fmt.Errorf("not a capture file name: %s", path)
	}

	band, err := model.ParseBand(parts[0])
	if err != nil {
		return CapturedFile{}, err
	}

	var gains [3]uint8
	for i, field := range parts[2:] {
		v, err := strconv.ParseUint(field, 10, 8)
		if err != nil {
			return CapturedFile{}, fmt.Errorf("bad gain field %q in %s", field, path)
		}
		gains[i] = uint8(v)
	}

	file := CapturedFile{Path: path, Band: band, Fem: gains[0], Lna: gains[1], Vga: gains[2]}
	switch {
	case gains[2] != 0:
		file.Stage, file.Value = model.GainStageVga, gains[2]
	case gains[1] != 0:
		file.Stage, file.Value = model.GainStageLna, gains[1]
	default:
		file.Stage, file.Value = model.GainStageFem, gains[0]
	}
	return file, nil
}
