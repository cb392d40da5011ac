package models

import (
	"time"
)

// OrderCreatedMessage is published when an order is placed
type OrderCreatedMessage struct {
	OrderID       int64     `json:"order_id"`
	BusinessKey   string    `json:"business_key"`
	CustomerID    int64     `json:"customer_id"`
	CustomerEmail string    `json:"customer_email"`
	PizzaType     string    `json:"pizza_type"`
	Timestamp     time.Time `json:"timestamp"`
}

// PaymentAttachedMessage is published after a payment is reconciled.
// OrderID is zero and Linked false when no order matched the business key.
type PaymentAttachedMessage struct {
	PaymentID   int64     `json:"payment_id"`
	BusinessKey string    `json:"business_key"`
	OrderID     int64     `json:"order_id,omitempty"`
	Linked      bool      `json:"linked"`
	Receipt     bool      `json:"receipt"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewOrderCreatedMessage builds the event for a persisted order
func NewOrderCreatedMessage(order *Order) *OrderCreatedMessage {
	msg := &OrderCreatedMessage{
		OrderID:     order.ID,
		BusinessKey: order.BusinessKey,
		PizzaType:   order.PizzaType,
		Timestamp:   time.Now().UTC(),
	}
	if order.Customer != nil {
		msg.CustomerID = order.Customer.ID
		msg.CustomerEmail = order.Customer.Email
	}
	return msg
}

// NewPaymentAttachedMessage builds the event for a persisted payment
func NewPaymentAttachedMessage(payment *Payment, businessKey string, orderID int64) *PaymentAttachedMessage {
	return &PaymentAttachedMessage{
		PaymentID:   payment.ID,
		BusinessKey: businessKey,
		OrderID:     orderID,
		Linked:      orderID != 0,
		Receipt:     payment.Receipt,
		Timestamp:   time.Now().UTC(),
	}
}
