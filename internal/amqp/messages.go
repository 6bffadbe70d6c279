package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"costledger/internal/core"
)

// CostAddedMessage announces a cost that was just stored. It carries enough
// to locate the affected month; consumers read anything else from the store.
type CostAddedMessage struct {
	ID        int64           `json:"id"`
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	Currency  string          `json:"currency"`
	Sum       decimal.Decimal `json:"sum"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewCostAddedMessage builds the event for a stored record.
func NewCostAddedMessage(rec core.StoredRecord) *CostAddedMessage {
	return &CostAddedMessage{
		ID:        rec.ID,
		Year:      rec.Year,
		Month:     rec.Month,
		Currency:  rec.Currency,
		Sum:       rec.Sum,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *CostAddedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CostAddedMessageFromJSON decodes and checks a message body.
func CostAddedMessageFromJSON(data []byte) (*CostAddedMessage, error) {
	var msg CostAddedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("invalid cost id %d", msg.ID)
	}
	if msg.Month < 1 || msg.Month > 12 {
		return nil, fmt.Errorf("invalid month %d", msg.Month)
	}
	return &msg, nil
}
