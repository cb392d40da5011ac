package models

import (
	"time"
)

// Payment represents a received payment. The Order field is the derived
// back-reference to the order that points at this payment; it is computed
// from the order side on read, never stored, and its own Payment field is
// left nil to keep the serialized aggregate acyclic.
type Payment struct {
	ID        int64     `json:"id,omitempty"`
	Payment   string    `json:"payment,omitempty"`
	Receipt   bool      `json:"receipt"`
	CreatedAt time.Time `json:"creationTimestamp,omitempty"`
	Order     *Order    `json:"order,omitempty"`
}

// PaymentRequest is the payment payload: a payment method/reference string
// and whether a receipt was requested
type PaymentRequest struct {
	Payment string `json:"payment"`
	Receipt bool   `json:"receipt"`
}

// ToPayment converts the request into a Payment record
func (req *PaymentRequest) ToPayment() *Payment {
	return &Payment{
		Payment: req.Payment,
		Receipt: req.Receipt,
	}
}
