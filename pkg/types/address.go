package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Address mirrors the shipping_address_t composite Postgres type. It is a
// snapshot taken at order creation; the order never reads the address book
// again.
type Address struct {
	Recipient  string  `json:"recipient"`
	Phone      string  `json:"phone"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

// Value marshals Address into a Postgres composite literal.
func (a Address) Value() (driver.Value, error) {
	if strings.TrimSpace(a.Recipient) == "" {
		return nil, fmt.Errorf("address: missing recipient")
	}
	if strings.TrimSpace(a.Line1) == "" {
		return nil, fmt.Errorf("address: missing line1")
	}
	if strings.TrimSpace(a.City) == "" {
		return nil, fmt.Errorf("address: missing city")
	}
	if strings.TrimSpace(a.State) == "" {
		return nil, fmt.Errorf("address: missing state")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		return nil, fmt.Errorf("address: missing postal_code")
	}

	country := strings.TrimSpace(a.Country)
	if country == "" {
		country = "IN"
	}

	parts := []string{
		quoteCompositeString(a.Recipient),
		quoteCompositeString(a.Phone),
		quoteCompositeString(a.Line1),
		quoteCompositeNullable(a.Line2),
		quoteCompositeString(a.City),
		quoteCompositeString(a.State),
		quoteCompositeString(a.PostalCode),
		quoteCompositeString(country),
	}

	return "(" + strings.Join(parts, ",") + ")", nil
}

// Scan decodes the Postgres composite literal.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}

	raw, ok := toString(value)
	if !ok {
		return fmt.Errorf("address: unsupported scan type %T", value)
	}

	fields, err := parseComposite(raw, 8)
	if err != nil {
		return err
	}

	a.Recipient = fields[0]
	a.Phone = fields[1]
	a.Line1 = fields[2]
	a.Line2 = newCompositeNullable(fields[3])
	a.City = fields[4]
	a.State = fields[5]
	a.PostalCode = fields[6]

	country := strings.TrimSpace(fields[7])
	if country == "" || isCompositeNull(fields[7]) {
		country = "IN"
	}
	a.Country = country

	return nil
}
