package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pizza-api/internal/database"
	"pizza-api/internal/logger"
	"pizza-api/internal/models"
)

// OrderStore persists orders and serves the filtered order lookups. Writes
// that touch more than one record (order plus its customer) run inside a
// single transaction.
type OrderStore struct {
	db        *database.DB
	customers *CustomerDirectory
	logger    *logger.Logger
}

// NewOrderStore creates a new order store
func NewOrderStore(db *database.DB, customers *CustomerDirectory, log *logger.Logger) *OrderStore {
	return &OrderStore{
		db:        db,
		customers: customers,
		logger:    log,
	}
}

// Create resolves the order's customer by email and inserts the order,
// unpaid, in one transaction. The returned aggregate carries the assigned
// ids and creation timestamp.
func (s *OrderStore) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	created := *order
	created.Payment = nil

	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		customer, err := s.customers.Resolve(ctx, tx, order.Customer)
		if err != nil {
			return err
		}
		created.Customer = customer

		err = tx.QueryRow(ctx, database.InsertOrderSQL,
			created.PizzaType, created.PizzaSize, created.PizzaSauce, created.PizzaCrust,
			created.PizzaTopping, created.PizzaPrice, created.BusinessKey, customer.ID,
		).Scan(&created.ID, &created.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &created, nil
}

// GetByID returns the full order aggregate, customer and payment included
func (s *OrderStore) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	order, err := scanOrderAggregate(s.db.Pool.QueryRow(ctx, database.GetOrderByIDSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// Update overwrites the order's pizza attributes and business key by id.
// The customer is re-resolved by email from the supplied aggregate, so an
// update carrying a different email re-links the order. The creation
// timestamp and the payment reference are left untouched.
func (s *OrderStore) Update(ctx context.Context, order *models.Order) (*models.Order, error) {
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var exists int
		err := tx.QueryRow(ctx, "SELECT 1 FROM orders WHERE id = $1", order.ID).Scan(&exists)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to check order: %w", err)
		}

		customer, err := s.customers.Resolve(ctx, tx, order.Customer)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, database.UpdateOrderSQL,
			order.PizzaType, order.PizzaSize, order.PizzaSauce, order.PizzaCrust,
			order.PizzaTopping, order.PizzaPrice, order.BusinessKey, customer.ID, order.ID)
		if err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, order.ID)
}

// Delete removes the order by id
func (s *OrderStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Pool.Exec(ctx, database.DeleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Find returns order aggregates matching the optional filters: customer
// email equality, unpaid only, both conjunctively, or all orders when
// neither filter is set.
func (s *OrderStore) Find(ctx context.Context, email string, unpaidOnly bool) ([]models.Order, error) {
	var (
		sql  string
		args []any
	)
	switch {
	case email != "" && unpaidOnly:
		sql, args = database.FindUnpaidOrdersByEmailSQL, []any{email}
	case email != "":
		sql, args = database.FindOrdersByEmailSQL, []any{email}
	case unpaidOnly:
		sql = database.FindUnpaidOrdersSQL
	default:
		sql = database.FindAllOrdersSQL
	}

	rows, err := s.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrderAggregate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// BusinessKeyInUse reports whether another order already carries the given
// business key. excludeOrderID skips the order being updated; pass zero
// when creating.
func (s *OrderStore) BusinessKeyInUse(ctx context.Context, businessKey string, excludeOrderID int64) (bool, error) {
	var count int
	err := s.db.Pool.QueryRow(ctx, database.CountOrdersByBusinessKeySQL, businessKey, excludeOrderID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count orders by business key: %w", err)
	}
	return count > 0, nil
}

// scanRow is satisfied by both pgx.Row and pgx.Rows
type scanRow interface {
	Scan(dest ...any) error
}

// scanOrderAggregate scans one joined orders/customers/payments row
func scanOrderAggregate(row scanRow) (*models.Order, error) {
	var (
		order    models.Order
		customer models.Customer

		paymentID        *int64
		paymentMethod    *string
		paymentReceipt   *bool
		paymentCreatedAt *time.Time
	)

	err := row.Scan(
		&order.ID, &order.PizzaType, &order.PizzaSize, &order.PizzaSauce, &order.PizzaCrust,
		&order.PizzaTopping, &order.PizzaPrice, &order.BusinessKey, &order.CreatedAt,
		&customer.ID, &customer.FirstName, &customer.LastName, &customer.Address, &customer.Email,
		&paymentID, &paymentMethod, &paymentReceipt, &paymentCreatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Customer = &customer
	if paymentID != nil {
		order.Payment = &models.Payment{
			ID:        *paymentID,
			Payment:   *paymentMethod,
			Receipt:   *paymentReceipt,
			CreatedAt: *paymentCreatedAt,
		}
	}
	return &order, nil
}
