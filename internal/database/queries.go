package database

// Customer queries
const (
	FindCustomerByEmailSQL = `
		SELECT id FROM customers WHERE email = $1 ORDER BY id ASC LIMIT 1`

	InsertCustomerSQL = `
		INSERT INTO customers (first_name, last_name, address, email)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	UpdateCustomerSQL = `
		UPDATE customers SET first_name = $1, last_name = $2, address = $3, email = $4
		WHERE id = $5`

	GetCustomerByIDSQL = `
		SELECT id, first_name, last_name, address, email
		FROM customers WHERE id = $1`
)

// Order queries. Reads materialize the full aggregate: the owning customer
// and, when linked, the payment.
const (
	orderAggregateSelect = `
		SELECT o.id, o.pizza_type, o.pizza_size, o.pizza_sauce, o.pizza_crust,
			   o.pizza_topping, o.pizza_price, o.business_key, o.created_at,
			   c.id, c.first_name, c.last_name, c.address, c.email,
			   p.id, p.payment, p.receipt, p.created_at
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		LEFT JOIN payments p ON p.id = o.payment_id`

	InsertOrderSQL = `
		INSERT INTO orders (pizza_type, pizza_size, pizza_sauce, pizza_crust,
			pizza_topping, pizza_price, business_key, customer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	GetOrderByIDSQL = orderAggregateSelect + `
		WHERE o.id = $1`

	UpdateOrderSQL = `
		UPDATE orders SET pizza_type = $1, pizza_size = $2, pizza_sauce = $3,
			pizza_crust = $4, pizza_topping = $5, pizza_price = $6,
			business_key = $7, customer_id = $8
		WHERE id = $9`

	DeleteOrderSQL = `
		DELETE FROM orders WHERE id = $1`

	FindAllOrdersSQL = orderAggregateSelect + `
		ORDER BY o.id ASC`

	FindOrdersByEmailSQL = orderAggregateSelect + `
		WHERE c.email = $1
		ORDER BY o.id ASC`

	FindUnpaidOrdersSQL = orderAggregateSelect + `
		WHERE o.payment_id IS NULL
		ORDER BY o.id ASC`

	FindUnpaidOrdersByEmailSQL = orderAggregateSelect + `
		WHERE c.email = $1 AND o.payment_id IS NULL
		ORDER BY o.id ASC`

	CountOrdersByBusinessKeySQL = `
		SELECT COUNT(*) FROM orders WHERE business_key = $1 AND id <> $2`

	// Single-statement find-and-link: the first order carrying the business
	// key gets its payment reference set in one atomic write.
	LinkPaymentToOrderSQL = `
		UPDATE orders SET payment_id = $1
		WHERE id = (
			SELECT id FROM orders WHERE business_key = $2 ORDER BY id ASC LIMIT 1
		)
		RETURNING id`
)

// Payment queries
const (
	InsertPaymentSQL = `
		INSERT INTO payments (payment, receipt)
		VALUES ($1, $2)
		RETURNING id, created_at`

	GetPaymentByIDSQL = `
		SELECT id, payment, receipt, created_at
		FROM payments WHERE id = $1`

	UpdatePaymentSQL = `
		UPDATE payments SET payment = $1, receipt = $2
		WHERE id = $3`

	DeletePaymentSQL = `
		DELETE FROM payments WHERE id = $1`

	// The order side owns the reference; the payment's order is derived.
	GetOrderByPaymentIDSQL = `
		SELECT o.id, o.pizza_type, o.pizza_size, o.pizza_sauce, o.pizza_crust,
			   o.pizza_topping, o.pizza_price, o.business_key, o.created_at,
			   c.id, c.first_name, c.last_name, c.address, c.email
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.payment_id = $1
		ORDER BY o.id ASC
		LIMIT 1`
)
