package order

import (
	"context"
	"errors"
	"fmt"

	"pizza-api/internal/logger"
	"pizza-api/internal/metrics"
	"pizza-api/internal/models"
)

// ErrDuplicateBusinessKey is returned when an order placement or edit would
// give two orders the same business key. A later payment can only be
// reconciled against one order, so the collision is rejected up front.
var ErrDuplicateBusinessKey = errors.New("business key already in use")

// OrderStorage is the order side of the storage collaborator
type OrderStorage interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	Update(ctx context.Context, order *models.Order) (*models.Order, error)
	Delete(ctx context.Context, id int64) error
	Find(ctx context.Context, email string, unpaidOnly bool) ([]models.Order, error)
	BusinessKeyInUse(ctx context.Context, businessKey string, excludeOrderID int64) (bool, error)
}

// PaymentStorage is the payment side of the storage collaborator
type PaymentStorage interface {
	CreateAndLink(ctx context.Context, payment *models.Payment, businessKey string) (*models.Payment, int64, error)
	GetByID(ctx context.Context, id int64) (*models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	Delete(ctx context.Context, id int64) error
}

// EventPublisher publishes order lifecycle events
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, msg *models.OrderCreatedMessage) error
	PublishPaymentAttached(ctx context.Context, msg *models.PaymentAttachedMessage) error
}

// Service is the reconciliation service: it creates orders (resolving their
// customers), attaches payments to orders by business key, and serves the
// filtered order queries.
type Service struct {
	orders    OrderStorage
	payments  PaymentStorage
	publisher EventPublisher
	logger    *logger.Logger
}

// NewService creates a new reconciliation service
func NewService(orders OrderStorage, payments PaymentStorage, publisher EventPublisher, log *logger.Logger) *Service {
	return &Service{
		orders:    orders,
		payments:  payments,
		publisher: publisher,
		logger:    log,
	}
}

// CreateOrder resolves the embedded customer by email and persists the
// order without a payment. The returned aggregate carries all assigned ids.
func (s *Service) CreateOrder(ctx context.Context, req *models.OrderRequest, requestID string) (*models.Order, error) {
	if req.BusinessKey != "" {
		inUse, err := s.orders.BusinessKeyInUse(ctx, req.BusinessKey, 0)
		if err != nil {
			return nil, fmt.Errorf("check business key: %w", err)
		}
		if inUse {
			return nil, ErrDuplicateBusinessKey
		}
	}

	order, err := s.orders.Create(ctx, req.ToOrder())
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	metrics.OrdersCreated.Inc()
	s.logger.Info("order_created", "Order created", requestID, map[string]interface{}{
		"order_id":     order.ID,
		"customer_id":  order.Customer.ID,
		"business_key": order.BusinessKey,
	})

	// Event delivery is best-effort; the order is already committed.
	if err := s.publisher.PublishOrderCreated(ctx, models.NewOrderCreatedMessage(order)); err != nil {
		s.logger.Error("event_publish_failed", "Failed to publish order.created", requestID, err, map[string]interface{}{
			"order_id": order.ID,
		})
	}

	return order, nil
}

// AttachPayment persists the payment and links it to the first order
// carrying the business key. When no order matches, the payment is still
// persisted and returned; the missed link is not an error.
func (s *Service) AttachPayment(ctx context.Context, req *models.PaymentRequest, businessKey, requestID string) (*models.Payment, error) {
	payment, orderID, err := s.payments.CreateAndLink(ctx, req.ToPayment(), businessKey)
	if err != nil {
		return nil, fmt.Errorf("attach payment: %w", err)
	}

	linked := orderID != 0
	metrics.PaymentsAttached.WithLabelValues(fmt.Sprintf("%t", linked)).Inc()
	if linked {
		s.logger.Info("payment_attached", "Payment attached to order", requestID, map[string]interface{}{
			"payment_id":   payment.ID,
			"order_id":     orderID,
			"business_key": businessKey,
		})
	} else {
		s.logger.Info("payment_unlinked", "No order matched business key, payment kept", requestID, map[string]interface{}{
			"payment_id":   payment.ID,
			"business_key": businessKey,
		})
	}

	if err := s.publisher.PublishPaymentAttached(ctx, models.NewPaymentAttachedMessage(payment, businessKey, orderID)); err != nil {
		s.logger.Error("event_publish_failed", "Failed to publish payment.attached", requestID, err, map[string]interface{}{
			"payment_id": payment.ID,
		})
	}

	return payment, nil
}

// GetOrder returns the order aggregate by id
func (s *Service) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// UpdateOrder overwrites the order's attributes by id. The caller supplies
// the complete state; the payment reference and creation timestamp are kept.
func (s *Service) UpdateOrder(ctx context.Context, id int64, req *models.OrderRequest, requestID string) (*models.Order, error) {
	if req.BusinessKey != "" {
		inUse, err := s.orders.BusinessKeyInUse(ctx, req.BusinessKey, id)
		if err != nil {
			return nil, fmt.Errorf("check business key: %w", err)
		}
		if inUse {
			return nil, ErrDuplicateBusinessKey
		}
	}

	order := req.ToOrder()
	order.ID = id

	updated, err := s.orders.Update(ctx, order)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_updated", "Order updated", requestID, map[string]interface{}{
		"order_id": id,
	})
	return updated, nil
}

// DeleteOrder removes the order by id
func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	return s.orders.Delete(ctx, id)
}

// GetPayment returns the payment with its derived order back-reference
func (s *Service) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	return s.payments.GetByID(ctx, id)
}

// UpdatePayment overwrites the payment's method and receipt flag by id
func (s *Service) UpdatePayment(ctx context.Context, id int64, req *models.PaymentRequest) (*models.Payment, error) {
	payment := req.ToPayment()
	payment.ID = id
	return s.payments.Update(ctx, payment)
}

// DeletePayment removes the payment by id
func (s *Service) DeletePayment(ctx context.Context, id int64) error {
	return s.payments.Delete(ctx, id)
}

// ListOrders returns orders filtered by optional customer email and
// unpaid-only flags; both together combine conjunctively
func (s *Service) ListOrders(ctx context.Context, email string, unpaidOnly bool) ([]models.Order, error) {
	return s.orders.Find(ctx, email, unpaidOnly)
}
