package models

import (
	"time"
)

// Order represents a placed pizza order. Every order belongs to exactly one
// customer; the payment reference stays nil until a payment is reconciled
// against the order's business key.
type Order struct {
	ID           int64     `json:"id,omitempty"`
	PizzaType    string    `json:"pizzaType,omitempty"`
	PizzaSize    string    `json:"pizzaSize,omitempty"`
	PizzaSauce   string    `json:"pizzaSauce,omitempty"`
	PizzaCrust   string    `json:"pizzaCrust,omitempty"`
	PizzaTopping string    `json:"pizzaTopping,omitempty"`
	PizzaPrice   string    `json:"pizzaPrice,omitempty"`
	BusinessKey  string    `json:"businessKey,omitempty"`
	CreatedAt    time.Time `json:"creationTimestamp,omitempty"`
	Customer     *Customer `json:"customer,omitempty"`
	Payment      *Payment  `json:"payment,omitempty"`
}

// Unpaid reports whether the order has no payment attached
func (o *Order) Unpaid() bool {
	return o.Payment == nil
}

// OrderRequest is the flat order-placement payload: pizza attributes, the
// caller-supplied business key, and the customer fields in one object. The
// pizza attributes are opaque strings and are not validated.
type OrderRequest struct {
	PizzaType    string `json:"pizzaType"`
	PizzaSize    string `json:"pizzaSize"`
	PizzaSauce   string `json:"pizzaSauce"`
	PizzaCrust   string `json:"pizzaCrust"`
	PizzaTopping string `json:"pizzaTopping"`
	PizzaPrice   string `json:"pizzaPrice"`
	BusinessKey  string `json:"businessKey"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Address      string `json:"address"`
	Email        string `json:"email"`
}

// ToOrder converts the flat request into an Order aggregate with its
// embedded customer candidate
func (req *OrderRequest) ToOrder() *Order {
	return &Order{
		PizzaType:    req.PizzaType,
		PizzaSize:    req.PizzaSize,
		PizzaSauce:   req.PizzaSauce,
		PizzaCrust:   req.PizzaCrust,
		PizzaTopping: req.PizzaTopping,
		PizzaPrice:   req.PizzaPrice,
		BusinessKey:  req.BusinessKey,
		Customer: &Customer{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Address:   req.Address,
			Email:     req.Email,
		},
	}
}

// CreateResponse is returned from order and payment creation endpoints
type CreateResponse struct {
	ID int64 `json:"id"`
}
