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

// PaymentStore persists payments. The order-to-payment link lives on the
// order row; attaching is a single find-and-link statement in the same
// transaction as the payment insert.
type PaymentStore struct {
	db     *database.DB
	logger *logger.Logger
}

// NewPaymentStore creates a new payment store
func NewPaymentStore(db *database.DB, log *logger.Logger) *PaymentStore {
	return &PaymentStore{
		db:     db,
		logger: log,
	}
}

// CreateAndLink inserts the payment and attaches it to the first order
// carrying the business key, both in one transaction. The payment is
// persisted even when no order matches; the returned order id is zero in
// that case.
func (s *PaymentStore) CreateAndLink(ctx context.Context, payment *models.Payment, businessKey string) (*models.Payment, int64, error) {
	created := *payment
	var linkedOrderID int64

	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, database.InsertPaymentSQL, created.Payment, created.Receipt).
			Scan(&created.ID, &created.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}

		err = tx.QueryRow(ctx, database.LinkPaymentToOrderSQL, created.ID, businessKey).Scan(&linkedOrderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// No order carries this business key. The payment stays
				// persisted and unlinked.
				return nil
			}
			return fmt.Errorf("failed to link payment to order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return &created, linkedOrderID, nil
}

// GetByID returns the payment together with its derived back-reference: the
// order pointing at it, if any, materialized without a nested payment to
// keep the result acyclic.
func (s *PaymentStore) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Pool.QueryRow(ctx, database.GetPaymentByIDSQL, id).Scan(
		&payment.ID, &payment.Payment, &payment.Receipt, &payment.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	var (
		order    models.Order
		customer models.Customer
	)
	err = s.db.Pool.QueryRow(ctx, database.GetOrderByPaymentIDSQL, id).Scan(
		&order.ID, &order.PizzaType, &order.PizzaSize, &order.PizzaSauce, &order.PizzaCrust,
		&order.PizzaTopping, &order.PizzaPrice, &order.BusinessKey, &order.CreatedAt,
		&customer.ID, &customer.FirstName, &customer.LastName, &customer.Address, &customer.Email)
	switch {
	case err == nil:
		order.Customer = &customer
		payment.Order = &order
	case errors.Is(err, pgx.ErrNoRows):
		// Unlinked payment
	default:
		return nil, fmt.Errorf("failed to get order for payment: %w", err)
	}

	return &payment, nil
}

// Update overwrites the payment method and receipt flag by id. The creation
// timestamp is immutable.
func (s *PaymentStore) Update(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	tag, err := s.db.Pool.Exec(ctx, database.UpdatePaymentSQL, payment.Payment, payment.Receipt, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, payment.ID)
}

// Delete removes the payment by id. Orders referencing it revert to unpaid
// through the schema's ON DELETE SET NULL.
func (s *PaymentStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Pool.Exec(ctx, database.DeletePaymentSQL, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
