package types

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
)

// OrderStatusEntry records one status change on an order.
type OrderStatusEntry struct {
	Status    enums.OrderStatus `json:"status"`
	Note      string            `json:"note,omitempty"`
	ChangedBy *uuid.UUID        `json:"changedBy,omitempty"`
	ChangedAt time.Time         `json:"changedAt"`
}

// OrderStatusHistory is append-only and persisted as JSONB.
type OrderStatusHistory []OrderStatusEntry

func (h OrderStatusHistory) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h)
}

func (h *OrderStatusHistory) Scan(value interface{}) error {
	if value == nil {
		*h = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded OrderStatusHistory
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*h = decoded
	return nil
}

// Append returns a copy of the history with the entry added.
func (h OrderStatusHistory) Append(status enums.OrderStatus, note string, changedBy *uuid.UUID, at time.Time) OrderStatusHistory {
	out := make(OrderStatusHistory, 0, len(h)+1)
	out = append(out, h...)
	return append(out, OrderStatusEntry{
		Status:    status,
		Note:      note,
		ChangedBy: changedBy,
		ChangedAt: at.UTC(),
	})
}
