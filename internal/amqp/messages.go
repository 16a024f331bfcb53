package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action names the kind of change a BillEventMessage reports.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// BillEventMessage announces a committed change to one bill. It carries only
// identifiers; consumers re-read the bill from the store.
type BillEventMessage struct {
	ID        int64     `json:"id"`
	Action    Action    `json:"action"`
	Version   int64     `json:"version"`
	DueDate   string    `json:"due_date"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBillEventMessage(id int64, action Action, version int64, dueDate string) *BillEventMessage {
	return &BillEventMessage{
		ID:        id,
		Action:    action,
		Version:   version,
		DueDate:   dueDate,
		Timestamp: time.Now().UTC(),
	}
}

func (m *BillEventMessage) Validate() error {
	if m.ID <= 0 {
		return fmt.Errorf("invalid bill id %d", m.ID)
	}
	switch m.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return nil
	default:
		return fmt.Errorf("unknown action %q", m.Action)
	}
}

func (m *BillEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BillEventMessageFromJSON decodes and validates a message body.
func BillEventMessageFromJSON(data []byte) (*BillEventMessage, error) {
	var msg BillEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
