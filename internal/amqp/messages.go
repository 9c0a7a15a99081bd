package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	// EventInvoicePaid follows a committed invoice settlement.
	EventInvoicePaid           EventType = "invoice.paid"
	// EventBatchCreated follows a committed installment or recurrence batch.
	EventBatchCreated          EventType = "batch.created"
	EventGoalContributed       EventType = "goal.contributed"
	EventInvestmentContributed EventType = "investment.contributed"
)

// LedgerEvent announces a committed write. It carries ids only; consumers
// read the rows back from storage.
type LedgerEvent struct {
	Type      EventType       `json:"type"`
	FamilyID  int64           `json:"family_id"`
	MemberID  int64           `json:"member_id"`
	CardID    int64           `json:"card_id,omitempty"`
	GroupID   uuid.UUID       `json:"group_id,omitempty"`
	RowIDs    []int64         `json:"row_ids,omitempty"`
	TargetID  int64           `json:"target_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewLedgerEvent(typ EventType, familyID, memberID int64) *LedgerEvent {
	return &LedgerEvent{
		Type:      typ,
		FamilyID:  familyID,
		MemberID:  memberID,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
