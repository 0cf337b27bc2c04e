// internal/driver/siwifi/phy.go
package siwifi

import (
	"sync"

	"iqdump-service/internal/model"
)

// PhyIndex tracks which ieee80211 phy number the kernel assigned to each band.
// Every rebind of a band creates a new phy, numbered after the highest one seen.
type PhyIndex struct {
	mutex sync.Mutex
	hb    int
	lb    int
}

// NewPhyIndex returns the numbering after a fresh boot
func NewPhyIndex() *PhyIndex {
	return &PhyIndex{hb: 1, lb: 0}
}

// Current returns the phy number of band
func (p *PhyIndex) Current(band model.Band) int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if band == model.BandHB {
		return p.hb
	}
	return p.lb
}

// Advance records a successful bring-up of band and returns its new phy number
func (p *PhyIndex) Advance(band model.Band) int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	next := max(p.hb, p.lb) + 1
	if band == model.BandHB {
		p.hb = next
	} else {
		p.lb = next
	}
	return next
}

// Snapshot returns both phy numbers
func (p *PhyIndex) Snapshot() map[model.Band]int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return map[model.Band]int{model.BandHB: p.hb, model.BandLB: p.lb}
}
