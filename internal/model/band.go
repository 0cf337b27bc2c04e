// internal/model/band.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Band represents one of the two RF paths of the DUT
type Band string

const (
	BandHB Band = "HB"
	BandLB Band = "LB"
)

// Bands lists every band in report order
var Bands = []Band{BandHB, BandLB}

// ParseBand parses a band name case-insensitively
func ParseBand(s string) (Band, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HB":
		return BandHB, nil
	case "LB":
		return BandLB, nil
	default:
		return "", fmt.Errorf("unknown band %q", s)
	}
}

func (b Band) String() string {
	return string(b)
}

// FilePrefix returns the lowercase prefix used in capture file names
func (b Band) FilePrefix() string {
	return strings.ToLower(string(b))
}

// Is5G reports whether the band is the 5 GHz path
func (b Band) Is5G() bool {
	return b == BandHB
}

// IsValid checks that the band is one of the known values
func (b Band) IsValid() bool {
	return b == BandHB || b == BandLB
}

// GainStage represents the analog gain stage being swept
type GainStage string

const (
	GainStageFem GainStage = "fem"
	GainStageLna GainStage = "lna"
	GainStageVga GainStage = "vga"
)

// ParseGainStage parses a gain stage name case-insensitively
func ParseGainStage(s string) (GainStage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fem":
		return GainStageFem, nil
	case "lna":
		return GainStageLna, nil
	case "vga":
		return GainStageVga, nil
	default:
		return "", fmt.Errorf("unknown gain stage %q", s)
	}
}

func (g GainStage) String() string {
	return string(g)
}

// IsValid checks that the stage is one of the known values
func (g GainStage) IsValid() bool {
	return g == GainStageFem || g == GainStageLna || g == GainStageVga
}

// JSONObject type for PostgreSQL JSONB objects
type JSONObject map[string]interface{}

func (j *JSONObject) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONObject) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}
