// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventDutConnected     EventType = "dut.connected"
	EventDutDisconnected  EventType = "dut.disconnected"
	EventBandChanged      EventType = "dut.band_changed"
	EventSweepStarted     EventType = "sweep.started"
	EventSweepIteration   EventType = "sweep.iteration"
	EventSweepFinished    EventType = "sweep.finished"
	EventAnalysisFinished EventType = "analysis.finished"
)

// Event represents something that happened on the test bench
type Event struct {
	ID        uuid.UUID  `json:"id"`
	Type      EventType  `json:"type"`
	Data      JSONObject `json:"data"`
	Timestamp time.Time  `json:"timestamp"`
	Source    string     `json:"source"`
}

// NewEvent creates an event stamped with a fresh ID and the current time
func NewEvent(eventType EventType, source string, data JSONObject) Event {
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
		Source:    source,
	}
}
