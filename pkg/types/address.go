package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is the structured shipping address stored as JSONB on orders and deliveries.
type Address struct {
	FullName   string  `json:"fullName" validate:"required"`
	Phone      string  `json:"phone" validate:"required"`
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	Landmark   *string `json:"landmark,omitempty"`
	City       string  `json:"city" validate:"required"`
	State      string  `json:"state" validate:"required"`
	PostalCode string  `json:"postalCode" validate:"required"`
	Country    string  `json:"country"`
}

// Validate reports the first missing required field.
func (a Address) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"fullName", a.FullName},
		{"phone", a.Phone},
		{"line1", a.Line1},
		{"city", a.City},
		{"state", a.State},
		{"postalCode", a.PostalCode},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("address: missing %s", field.name)
		}
	}
	return nil
}

// Normalized trims fields and defaults the country.
func (a Address) Normalized() Address {
	a.FullName = strings.TrimSpace(a.FullName)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.TrimSpace(a.Country)
	if a.Country == "" {
		a.Country = "IN"
	}
	return a
}

func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded Address
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*a = decoded
	return nil
}
