package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pizza-api/internal/database"
	"pizza-api/internal/logger"
	"pizza-api/internal/models"
)

// CustomerDirectory resolves customer records by email. The email is not a
// stored uniqueness constraint: resolution reuses the first stored match and
// never merges duplicates already present.
type CustomerDirectory struct {
	logger *logger.Logger
}

// NewCustomerDirectory creates a new customer directory
func NewCustomerDirectory(log *logger.Logger) *CustomerDirectory {
	return &CustomerDirectory{logger: log}
}

// Resolve persists the candidate customer, reusing the id of the first
// stored customer with the same email. The candidate's fields overwrite the
// stored ones even when stale. Runs on the caller's querier so it can join
// a surrounding transaction.
func (d *CustomerDirectory) Resolve(ctx context.Context, q database.Querier, candidate *models.Customer) (*models.Customer, error) {
	resolved := *candidate

	var existingID int64
	err := q.QueryRow(ctx, database.FindCustomerByEmailSQL, candidate.Email).Scan(&existingID)
	switch {
	case err == nil:
		resolved.ID = existingID
		if _, err := q.Exec(ctx, database.UpdateCustomerSQL,
			resolved.FirstName, resolved.LastName, resolved.Address, resolved.Email, resolved.ID); err != nil {
			return nil, fmt.Errorf("failed to update customer: %w", err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		err := q.QueryRow(ctx, database.InsertCustomerSQL,
			resolved.FirstName, resolved.LastName, resolved.Address, resolved.Email).Scan(&resolved.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert customer: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to look up customer by email: %w", err)
	}

	return &resolved, nil
}

// GetByID returns the customer with the given id
func (d *CustomerDirectory) GetByID(ctx context.Context, q database.Querier, id int64) (*models.Customer, error) {
	var customer models.Customer
	err := q.QueryRow(ctx, database.GetCustomerByIDSQL, id).Scan(
		&customer.ID, &customer.FirstName, &customer.LastName, &customer.Address, &customer.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &customer, nil
}
