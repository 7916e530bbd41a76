package domain

import (
	"encoding/json"
	"time"
)

// Equipment is a tool or machine tracked for technicians.
type Equipment struct {
	ID           string     `json:"id,omitempty"`
	Name         string     `json:"name"                   validate:"required"`
	Type         string     `json:"type"                   validate:"required"`
	SerialNumber string     `json:"serialNumber,omitempty"`
	Status       string     `json:"status,omitempty"       validate:"omitempty,oneof=available in_use maintenance retired"`
	AssignedTo   string     `json:"assignedTo,omitempty"`
	LastService  *time.Time `json:"lastService,omitempty"`
}

// Product is an item sold by a supplier.
type Product struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"                  validate:"required"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Price       float64 `json:"price"                 validate:"gte=0"`
	Stock       int     `json:"stock"                 validate:"gte=0"`
	Supplier    string  `json:"supplier,omitempty"`
}

// OrderLine is one product line of an order.
type OrderLine struct {
	Product  string  `json:"product"  validate:"required"`
	Quantity int     `json:"quantity" validate:"gt=0"`
	Price    float64 `json:"price"    validate:"gte=0"`
}

// Order is a client order.
type Order struct {
	ID        string      `json:"id,omitempty"`
	Client    string      `json:"client"              validate:"required"`
	Items     []OrderLine `json:"items"               validate:"required,min=1,dive"`
	Status    string      `json:"status,omitempty"    validate:"omitempty,oneof=pending confirmed in_progress completed cancelled"`
	Total     float64     `json:"total"`
	CreatedAt *time.Time  `json:"createdAt,omitempty"`
}

// Delivery tracks the shipment of an order.
type Delivery struct {
	ID            string     `json:"id,omitempty"`
	Order         string     `json:"order"                   validate:"required"`
	Address       string     `json:"address"                 validate:"required"`
	Status        string     `json:"status,omitempty"        validate:"omitempty,oneof=pending in_transit delivered failed"`
	ScheduledDate *time.Time `json:"scheduledDate,omitempty"`
	Technician    string     `json:"technician,omitempty"`
}

// Account is the admin view of a user record.
type Account struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email"               validate:"required,email"`
	Role      Role   `json:"role"                validate:"required,oneof=admin technicien client fournisseur"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
	Password  string `json:"password,omitempty"`
}

// The backend keys records by "_id"; the dashboard serves them as "id" and
// accepts either on input.

func (e *Equipment) UnmarshalJSON(data []byte) error {
	type alias Equipment
	return decodeRecord(data, (*alias)(e), &e.ID)
}

func (p *Product) UnmarshalJSON(data []byte) error {
	type alias Product
	return decodeRecord(data, (*alias)(p), &p.ID)
}

func (o *Order) UnmarshalJSON(data []byte) error {
	type alias Order
	return decodeRecord(data, (*alias)(o), &o.ID)
}

func (d *Delivery) UnmarshalJSON(data []byte) error {
	type alias Delivery
	return decodeRecord(data, (*alias)(d), &d.ID)
}

func (a *Account) UnmarshalJSON(data []byte) error {
	type alias Account
	return decodeRecord(data, (*alias)(a), &a.ID)
}

func decodeRecord(data []byte, v any, id *string) error {
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	if *id != "" {
		return nil
	}
	var aux struct {
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*id = aux.MongoID
	return nil
}
