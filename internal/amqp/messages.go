package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// BudgetEventMessage announces a committed change to a user's budget. It
// names the affected day only; consumers reload state from storage.
type BudgetEventMessage struct {
	UserID            string    `json:"userId"`
	Date              string    `json:"date,omitempty"` // YYYY-MM-DD, empty for summary-level events
	Action            string    `json:"action"`
	SavingsDeltaCents int64     `json:"savingsDeltaCents,omitempty"`
	Warnings          []string  `json:"warnings,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

func NewBudgetEventMessage(userID, date, action string, savingsDeltaCents int64) *BudgetEventMessage {
	return &BudgetEventMessage{
		UserID:            userID,
		Date:              date,
		Action:            action,
		SavingsDeltaCents: savingsDeltaCents,
		Timestamp:         time.Now(),
	}
}

func (m *BudgetEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetEventMessageFromJSON decodes a message and checks it names a user
// and an action.
func BudgetEventMessageFromJSON(data []byte) (*BudgetEventMessage, error) {
	var msg BudgetEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" || msg.Action == "" {
		return nil, fmt.Errorf("budget event missing user or action")
	}
	return &msg, nil
}
