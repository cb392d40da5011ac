package order

import (
	"context"
	"testing"
	"time"

	"pizza-api/internal/logger"
	"pizza-api/internal/models"
	"pizza-api/internal/storage"
)

// fakeStore is an in-memory stand-in for the storage collaborator. It
// mirrors the persistence semantics: email dedup picks the first stored
// match, linking picks the first order carrying the business key, and
// deleting a payment reverts its order to unpaid.
type fakeStore struct {
	customers []*models.Customer
	orders    []*models.Order
	payments  []*models.Payment

	nextCustomerID int64
	nextOrderID    int64
	nextPaymentID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (f *fakeStore) resolveCustomer(candidate *models.Customer) *models.Customer {
	for _, c := range f.customers {
		if c.Email == candidate.Email {
			c.FirstName = candidate.FirstName
			c.LastName = candidate.LastName
			c.Address = candidate.Address
			return c
		}
	}
	f.nextCustomerID++
	stored := &models.Customer{
		ID:        f.nextCustomerID,
		FirstName: candidate.FirstName,
		LastName:  candidate.LastName,
		Address:   candidate.Address,
		Email:     candidate.Email,
	}
	f.customers = append(f.customers, stored)
	return stored
}

func (f *fakeStore) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	customer := f.resolveCustomer(order.Customer)

	f.nextOrderID++
	stored := &models.Order{
		ID:           f.nextOrderID,
		PizzaType:    order.PizzaType,
		PizzaSize:    order.PizzaSize,
		PizzaSauce:   order.PizzaSauce,
		PizzaCrust:   order.PizzaCrust,
		PizzaTopping: order.PizzaTopping,
		PizzaPrice:   order.PizzaPrice,
		BusinessKey:  order.BusinessKey,
		CreatedAt:    time.Now().UTC(),
		Customer:     customer,
	}
	f.orders = append(f.orders, stored)

	copied := *stored
	return &copied, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	for _, o := range f.orders {
		if o.ID == id {
			copied := *o
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) Update(ctx context.Context, order *models.Order) (*models.Order, error) {
	for _, o := range f.orders {
		if o.ID == order.ID {
			o.PizzaType = order.PizzaType
			o.PizzaSize = order.PizzaSize
			o.PizzaSauce = order.PizzaSauce
			o.PizzaCrust = order.PizzaCrust
			o.PizzaTopping = order.PizzaTopping
			o.PizzaPrice = order.PizzaPrice
			o.BusinessKey = order.BusinessKey
			o.Customer = f.resolveCustomer(order.Customer)
			copied := *o
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) Delete(ctx context.Context, id int64) error {
	for i, o := range f.orders {
		if o.ID == id {
			f.orders = append(f.orders[:i], f.orders[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeStore) Find(ctx context.Context, email string, unpaidOnly bool) ([]models.Order, error) {
	result := []models.Order{}
	for _, o := range f.orders {
		if email != "" && o.Customer.Email != email {
			continue
		}
		if unpaidOnly && o.Payment != nil {
			continue
		}
		result = append(result, *o)
	}
	return result, nil
}

func (f *fakeStore) BusinessKeyInUse(ctx context.Context, businessKey string, excludeOrderID int64) (bool, error) {
	for _, o := range f.orders {
		if o.BusinessKey == businessKey && o.ID != excludeOrderID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateAndLink(ctx context.Context, payment *models.Payment, businessKey string) (*models.Payment, int64, error) {
	f.nextPaymentID++
	stored := &models.Payment{
		ID:        f.nextPaymentID,
		Payment:   payment.Payment,
		Receipt:   payment.Receipt,
		CreatedAt: time.Now().UTC(),
	}
	f.payments = append(f.payments, stored)

	for _, o := range f.orders {
		if o.BusinessKey == businessKey {
			o.Payment = stored
			copied := *stored
			return &copied, o.ID, nil
		}
	}
	copied := *stored
	return &copied, 0, nil
}

func (f *fakeStore) getPayment(id int64) *models.Payment {
	for _, p := range f.payments {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (f *fakeStore) GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	p := f.getPayment(id)
	if p == nil {
		return nil, storage.ErrNotFound
	}
	copied := *p
	for _, o := range f.orders {
		if o.Payment != nil && o.Payment.ID == id {
			back := *o
			back.Payment = nil
			copied.Order = &back
			break
		}
	}
	return &copied, nil
}

func (f *fakeStore) UpdatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	p := f.getPayment(payment.ID)
	if p == nil {
		return nil, storage.ErrNotFound
	}
	p.Payment = payment.Payment
	p.Receipt = payment.Receipt
	return f.GetPaymentByID(ctx, payment.ID)
}

func (f *fakeStore) DeletePayment(ctx context.Context, id int64) error {
	for i, p := range f.payments {
		if p.ID == id {
			f.payments = append(f.payments[:i], f.payments[i+1:]...)
			for _, o := range f.orders {
				if o.Payment != nil && o.Payment.ID == id {
					o.Payment = nil
				}
			}
			return nil
		}
	}
	return storage.ErrNotFound
}

// paymentStorageAdapter exposes the fake's payment methods under the
// PaymentStorage interface names
type paymentStorageAdapter struct{ *fakeStore }

func (a paymentStorageAdapter) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	return a.GetPaymentByID(ctx, id)
}

func (a paymentStorageAdapter) Update(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	return a.UpdatePayment(ctx, payment)
}

func (a paymentStorageAdapter) Delete(ctx context.Context, id int64) error {
	return a.DeletePayment(ctx, id)
}

// fakePublisher records published events
type fakePublisher struct {
	orderEvents   []*models.OrderCreatedMessage
	paymentEvents []*models.PaymentAttachedMessage
}

func (f *fakePublisher) PublishOrderCreated(ctx context.Context, msg *models.OrderCreatedMessage) error {
	f.orderEvents = append(f.orderEvents, msg)
	return nil
}

func (f *fakePublisher) PublishPaymentAttached(ctx context.Context, msg *models.PaymentAttachedMessage) error {
	f.paymentEvents = append(f.paymentEvents, msg)
	return nil
}

func newTestService() (*Service, *fakeStore, *fakePublisher) {
	store := newFakeStore()
	publisher := &fakePublisher{}
	svc := NewService(store, paymentStorageAdapter{store}, publisher, logger.New("test"))
	return svc, store, publisher
}

func orderRequest(email, businessKey string) *models.OrderRequest {
	return &models.OrderRequest{
		PizzaType:   "Margherita",
		PizzaSize:   "large",
		BusinessKey: businessKey,
		FirstName:   "John",
		LastName:    "Doe",
		Address:     "123 Main St",
		Email:       email,
	}
}

func TestCreateOrder_NewCustomerPerFreshEmail(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.CreateOrder(ctx, orderRequest("a@x.com", "BK1"), "req-1")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	second, err := svc.CreateOrder(ctx, orderRequest("b@x.com", "BK2"), "req-2")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	if first.Customer.ID == 0 || second.Customer.ID == 0 {
		t.Fatalf("expected customer ids to be assigned, got %d and %d", first.Customer.ID, second.Customer.ID)
	}
	if first.Customer.ID == second.Customer.ID {
		t.Errorf("expected distinct customers for distinct emails, both got id %d", first.Customer.ID)
	}
}

func TestCreateOrder_ReusesCustomerByEmail(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.CreateOrder(ctx, orderRequest("a@x.com", "BK1"), "req-1")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	req := orderRequest("a@x.com", "BK2")
	req.FirstName = "Johnny"
	second, err := svc.CreateOrder(ctx, req, "req-2")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	if second.Customer.ID != first.Customer.ID {
		t.Errorf("expected customer id %d to be reused, got %d", first.Customer.ID, second.Customer.ID)
	}
	if second.ID == first.ID {
		t.Errorf("expected a new order id, both got %d", first.ID)
	}
	// Candidate fields overwrite the stored customer
	if second.Customer.FirstName != "Johnny" {
		t.Errorf("expected candidate first name to overwrite, got %q", second.Customer.FirstName)
	}
}

func TestCreateOrder_DuplicateBusinessKeyRejected(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateOrder(ctx, orderRequest("a@x.com", "BK1"), "req-1"); err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	_, err := svc.CreateOrder(ctx, orderRequest("b@x.com", "BK1"), "req-2")
	if err != ErrDuplicateBusinessKey {
		t.Fatalf("expected ErrDuplicateBusinessKey, got %v", err)
	}
}

func TestCreateOrder_EmptyBusinessKeysDoNotCollide(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateOrder(ctx, orderRequest("a@x.com", ""), "req-1"); err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if _, err := svc.CreateOrder(ctx, orderRequest("b@x.com", ""), "req-2"); err != nil {
		t.Fatalf("expected orders without business keys to coexist, got %v", err)
	}
}

func TestAttachPayment_LinksOrderByBusinessKey(t *testing.T) {
	svc, _, publisher := newTestService()
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, orderRequest("a@x.com", "BK1"), "req-1")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	payment, err := svc.AttachPayment(ctx, &models.PaymentRequest{Payment: "VISA", Receipt: true}, "BK1", "req-2")
	if err != nil {
		t.Fatalf("AttachPayment returned error: %v", err)
	}
	if payment.ID == 0 {
		t.Fatalf("expected payment id to be assigned")
	}

	got, err := svc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder returned error: %v", err)
	}
	if got.Payment == nil || got.Payment.ID != payment.ID {
		t.Fatalf("expected order %d to reference payment %d, got %+v", order.ID, payment.ID, got.Payment)
	}

	unpaid, err := svc.ListOrders(ctx, "", true)
	if err != nil {
		t.Fatalf("ListOrders returned error: %v", err)
	}
	if len(unpaid) != 0 {
		t.Errorf("expected no unpaid orders, got %d", len(unpaid))
	}

	if len(publisher.paymentEvents) != 1 {
		t.Fatalf("expected one payment event, got %d", len(publisher.paymentEvents))
	}
	if !publisher.paymentEvents[0].Linked || publisher.paymentEvents[0].OrderID != order.ID {
		t.Errorf("expected linked event for order %d, got %+v", order.ID, publisher.paymentEvents[0])
	}
}

func TestAttachPayment_UnmatchedKeyKeepsPayment(t *testing.T) {
	svc, _, publisher := newTestService()
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, orderRequest("a@x.com", "BK1"), "req-1")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	payment, err := svc.AttachPayment(ctx, &models.PaymentRequest{Payment: "MASTER", Receipt: false}, "UNKNOWN", "req-2")
	if err != nil {
		t.Fatalf("expected unmatched business key to succeed, got %v", err)
	}

	// The payment is persisted and readable by id
	stored, err := svc.GetPayment(ctx, payment.ID)
	if err != nil {
		t.Fatalf("GetPayment returned error: %v", err)
	}
	if stored.Order != nil {
		t.Errorf("expected no derived order for unlinked payment, got %+v", stored.Order)
	}

	// No order was mutated
	got, err := svc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder returned error: %v", err)
	}
	if got.Payment != nil {
		t.Errorf("expected order %d to stay unpaid, got payment %+v", order.ID, got.Payment)
	}

	if len(publisher.paymentEvents) != 1 || publisher.paymentEvents[0].Linked {
		t.Errorf("expected one unlinked payment event, got %+v", publisher.paymentEvents)
	}
}

func TestListOrders_Filters(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateOrder(ctx, orderRequest("a@x.com", "BK1"), "req-1"); err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if _, err := svc.CreateOrder(ctx, orderRequest("a@x.com", "BK2"), "req-2"); err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if _, err := svc.CreateOrder(ctx, orderRequest("b@x.com", "BK3"), "req-3"); err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if _, err := svc.AttachPayment(ctx, &models.PaymentRequest{Payment: "VISA"}, "BK1", "req-4"); err != nil {
		t.Fatalf("AttachPayment returned error: %v", err)
	}

	tests := []struct {
		name       string
		email      string
		unpaidOnly bool
		want       int
	}{
		{"all orders", "", false, 3},
		{"by email", "a@x.com", false, 2},
		{"unpaid only", "", true, 2},
		{"unpaid by email", "a@x.com", true, 1},
		{"unknown email", "nobody@x.com", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, err := svc.ListOrders(ctx, tt.email, tt.unpaidOnly)
			if err != nil {
				t.Fatalf("ListOrders returned error: %v", err)
			}
			if len(orders) != tt.want {
				t.Errorf("ListOrders(%q, %t) returned %d orders, want %d", tt.email, tt.unpaidOnly, len(orders), tt.want)
			}
		})
	}
}

func TestReconciliationScenario(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.CreateOrder(ctx, orderRequest("a@x.com", "BK1"), "req-1")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if first.ID != 1 || first.Customer.ID != 1 {
		t.Fatalf("expected order 1 with customer 1, got order %d customer %d", first.ID, first.Customer.ID)
	}

	second, err := svc.CreateOrder(ctx, orderRequest("a@x.com", "BK2"), "req-2")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if second.ID != 2 || second.Customer.ID != 1 {
		t.Fatalf("expected order 2 with customer 1, got order %d customer %d", second.ID, second.Customer.ID)
	}

	if _, err := svc.AttachPayment(ctx, &models.PaymentRequest{Payment: "VISA", Receipt: true}, "BK1", "req-3"); err != nil {
		t.Fatalf("AttachPayment returned error: %v", err)
	}

	unpaid, err := svc.ListOrders(ctx, "", true)
	if err != nil {
		t.Fatalf("ListOrders returned error: %v", err)
	}
	if len(unpaid) != 1 || unpaid[0].ID != second.ID {
		t.Fatalf("expected only order %d unpaid, got %+v", second.ID, unpaid)
	}
}

func TestGetOrder_Idempotent(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, orderRequest("a@x.com", "BK1"), "req-1")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	first, err := svc.GetOrder(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetOrder returned error: %v", err)
	}
	second, err := svc.GetOrder(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetOrder returned error: %v", err)
	}

	if *first.Customer != *second.Customer {
		t.Errorf("customer changed between reads: %+v vs %+v", first.Customer, second.Customer)
	}
	first.Customer, second.Customer = nil, nil
	if *first != *second {
		t.Errorf("order changed between reads: %+v vs %+v", first, second)
	}
}

func TestUpdateOrder_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.UpdateOrder(context.Background(), 42, orderRequest("a@x.com", ""), "req-1")
	if err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeletePayment_RevertsOrderToUnpaid(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, orderRequest("a@x.com", "BK1"), "req-1")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	payment, err := svc.AttachPayment(ctx, &models.PaymentRequest{Payment: "VISA"}, "BK1", "req-2")
	if err != nil {
		t.Fatalf("AttachPayment returned error: %v", err)
	}

	if err := svc.DeletePayment(ctx, payment.ID); err != nil {
		t.Fatalf("DeletePayment returned error: %v", err)
	}

	got, err := svc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder returned error: %v", err)
	}
	if got.Payment != nil {
		t.Errorf("expected order to revert to unpaid, got payment %+v", got.Payment)
	}

	if err := svc.DeletePayment(ctx, payment.ID); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
