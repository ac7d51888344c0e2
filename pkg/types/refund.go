package types

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// RefundRecord is a gateway refund captured against a payment. Amount is in minor units.
type RefundRecord struct {
	RefundID  string    `json:"refundId"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type RefundRecords []RefundRecord

func (r RefundRecords) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

func (r *RefundRecords) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded RefundRecords
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*r = decoded
	return nil
}

// Total sums the refunded minor units.
func (r RefundRecords) Total() int64 {
	var total int64
	for _, rec := range r {
		total += rec.Amount
	}
	return total
}
