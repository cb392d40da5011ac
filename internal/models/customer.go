package models

// Customer represents a pizza customer. Customers are deduplicated by email
// at order placement: the email is a best-effort natural key, not a stored
// uniqueness constraint.
type Customer struct {
	ID        int64  `json:"id,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Address   string `json:"address,omitempty"`
	Email     string `json:"email,omitempty"`
}
