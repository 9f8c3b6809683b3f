package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventCycleClosed is the type of the event published when a cycle closes.
const EventCycleClosed = "cycle.closed"

// PersonSettlement is the settled figure of one person, in minor units.
// Amount is a decimal string because dependent benefits can be fractional.
type PersonSettlement struct {
	Person    string `json:"person"`
	Dependent bool   `json:"dependent"`
	Amount    string `json:"amount"`
}

// CycleClosedEvent announces that a cycle closed and its successor opened.
type CycleClosedEvent struct {
	EventID             string             `json:"eventId"`
	Type                string             `json:"type"`
	Start               string             `json:"start"`
	End                 string             `json:"end"`
	NextStart           string             `json:"nextStart"`
	TotalCollectedCents int64              `json:"totalCollectedCents"`
	Settlements         []PersonSettlement `json:"settlements"`
	Timestamp           time.Time          `json:"timestamp"`
}

// NewCycleClosedEvent creates an event with a fresh id.
func NewCycleClosedEvent(start, end, nextStart string, totalCollectedCents int64, settlements []PersonSettlement) *CycleClosedEvent {
	if settlements == nil {
		settlements = []PersonSettlement{}
	}
	return &CycleClosedEvent{
		EventID:             uuid.NewString(),
		Type:                EventCycleClosed,
		Start:               start,
		End:                 end,
		NextStart:           nextStart,
		TotalCollectedCents: totalCollectedCents,
		Settlements:         settlements,
		Timestamp:           time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *CycleClosedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CycleClosedEventFromJSON parses an event and checks its type and id.
func CycleClosedEventFromJSON(data []byte) (*CycleClosedEvent, error) {
	var msg CycleClosedEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type != EventCycleClosed {
		return nil, fmt.Errorf("unexpected event type %q", msg.Type)
	}
	if _, err := uuid.Parse(msg.EventID); err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", msg.EventID, err)
	}
	return &msg, nil
}
