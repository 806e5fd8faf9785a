package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/ecofor-market/internal/money"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const foreignKeyViolation = "23503"

const productColumns = `id, name, description, price, stock, category, active, discount_pct, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p     Product
		price int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Stock, &p.Category, &p.Active, &p.DiscountPct, &p.CreatedAt, &p.UpdatedAt)
	p.Price = money.FromInt(price)
	return p, err
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()
	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const getProduct = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

func (q *Queries) GetProduct(ctx context.Context, id int64) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const getProductForUpdate = `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

func (q *Queries) GetProductForUpdate(ctx context.Context, id int64) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProductForUpdate, id))
}

const productFilter = `
WHERE ($1 = '' OR category = $1)
  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%' OR category ILIKE '%' || $2 || '%')
  AND (NOT $3::boolean OR (active AND stock > 0))`

const listProducts = `SELECT ` + productColumns + ` FROM products` + productFilter + `
ORDER BY created_at DESC, id DESC
LIMIT $4 OFFSET $5`

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, arg.Category, arg.Search, arg.OnlyAvailable, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

const countProducts = `SELECT count(*) FROM products` + productFilter

func (q *Queries) CountProducts(ctx context.Context, arg ListProductsParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countProducts, arg.Category, arg.Search, arg.OnlyAvailable).Scan(&n)
	return n, err
}

const createProduct = `INSERT INTO products (name, description, price, stock, category, active, discount_pct)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + productColumns

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, createProduct,
		arg.Name, arg.Description, arg.Price.Int64(), arg.Stock, arg.Category, arg.Active, arg.DiscountPct))
}

const updateProduct = `UPDATE products
SET name = $2, description = $3, price = $4, stock = $5, category = $6, active = $7, discount_pct = $8, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, updateProduct,
		arg.ID, arg.Name, arg.Description, arg.Price.Int64(), arg.Stock, arg.Category, arg.Active, arg.DiscountPct))
}

const deleteProduct = `DELETE FROM products WHERE id = $1`

func (q *Queries) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, deleteProduct, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return fmt.Errorf("delete product %d: %w", id, ErrReferenced)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

const decrementStock = `UPDATE products
SET stock = GREATEST(stock - $2, 0), updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

// DecrementStock lowers stock by qty, flooring at zero.
func (q *Queries) DecrementStock(ctx context.Context, id int64, qty int) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, decrementStock, id, qty))
}

const accountColumns = `id, username, email, password_hash, tier, roles, rut, created_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Tier, &a.Roles, &a.Rut, &a.CreatedAt)
	return a, err
}

const createAccount = `INSERT INTO accounts (username, email, password_hash, tier, roles, rut)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + accountColumns

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	roles := arg.Roles
	if roles == nil {
		roles = []string{}
	}
	return scanAccount(q.db.QueryRow(ctx, createAccount, arg.Username, arg.Email, arg.PasswordHash, arg.Tier, roles, arg.Rut))
}

const getAccountByID = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

func (q *Queries) GetAccountByID(ctx context.Context, id int64) (Account, error) {
	return scanAccount(q.db.QueryRow(ctx, getAccountByID, id))
}

const getAccountByUsername = `SELECT ` + accountColumns + ` FROM accounts WHERE lower(username) = lower($1)`

func (q *Queries) GetAccountByUsername(ctx context.Context, username string) (Account, error) {
	return scanAccount(q.db.QueryRow(ctx, getAccountByUsername, username))
}

const listAccountsByRole = `SELECT ` + accountColumns + ` FROM accounts WHERE $1 = ANY(roles) ORDER BY id`

func (q *Queries) ListAccountsByRole(ctx context.Context, role string) ([]Account, error) {
	rows, err := q.db.Query(ctx, listAccountsByRole, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const orderColumns = `id, account_id, estado, total, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o     Order
		total int64
	)
	err := row.Scan(&o.ID, &o.AccountID, &o.Estado, &total, &o.CreatedAt, &o.UpdatedAt)
	o.Total = money.FromInt(total)
	return o, err
}

const createOrder = `INSERT INTO orders (account_id, estado, total)
VALUES ($1, $2, $3)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder, arg.AccountID, arg.Estado, arg.Total.Int64()))
}

const createOrderItem = `INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, product_id, product_name, quantity, unit_price`

func scanOrderItem(row pgx.Row) (OrderItem, error) {
	var (
		it    OrderItem
		price int64
	)
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &price)
	it.UnitPrice = money.FromInt(price)
	return it, err
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.ProductID, arg.ProductName, arg.Quantity, arg.UnitPrice.Int64()))
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listOrderItems = `SELECT id, order_id, product_id, product_name, quantity, unit_price
FROM order_items WHERE order_id = $1 ORDER BY product_id`

func (q *Queries) ListOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const listOrdersByAccount = `SELECT ` + orderColumns + ` FROM orders WHERE account_id = $1 ORDER BY created_at DESC, id DESC`

func (q *Queries) ListOrdersByAccount(ctx context.Context, accountID int64) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByAccount, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const markOrderPaid = `UPDATE orders SET estado = 'pagado', updated_at = now() WHERE id = $1 AND estado <> 'pagado'`

// MarkOrderPaid moves the order to pagado and reports how many rows changed.
// Zero means the order was already paid.
func (q *Queries) MarkOrderPaid(ctx context.Context, id int64) (int64, error) {
	tag, err := q.db.Exec(ctx, markOrderPaid, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const invoiceColumns = `id, account_id, issued_at, total_bruto::text, total_descuento::text, total_sin_iva::text, total_final::text`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var (
		inv                           Invoice
		bruto, descuento, sinIva, fin string
	)
	if err := row.Scan(&inv.ID, &inv.AccountID, &inv.IssuedAt, &bruto, &descuento, &sinIva, &fin); err != nil {
		return Invoice{}, err
	}
	var err error
	if inv.TotalBruto, err = money.Parse(bruto); err != nil {
		return Invoice{}, err
	}
	if inv.TotalDescuento, err = money.Parse(descuento); err != nil {
		return Invoice{}, err
	}
	if inv.TotalSinIva, err = money.Parse(sinIva); err != nil {
		return Invoice{}, err
	}
	if inv.TotalFinal, err = money.Parse(fin); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

const createInvoice = `INSERT INTO invoices (account_id, total_bruto, total_descuento, total_sin_iva, total_final)
VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5::numeric)
RETURNING ` + invoiceColumns

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, createInvoice, arg.AccountID,
		arg.TotalBruto.String(), arg.TotalDescuento.String(), arg.TotalSinIva.String(), arg.TotalFinal.String()))
}

const invoiceLineColumns = `id, invoice_id, product_id, name, quantity, unit_price::text, discount::text, subtotal::text`

func scanInvoiceLine(row pgx.Row) (InvoiceLine, error) {
	var (
		l                         InvoiceLine
		price, discount, subtotal string
	)
	if err := row.Scan(&l.ID, &l.InvoiceID, &l.ProductID, &l.Name, &l.Quantity, &price, &discount, &subtotal); err != nil {
		return InvoiceLine{}, err
	}
	var err error
	if l.UnitPrice, err = money.Parse(price); err != nil {
		return InvoiceLine{}, err
	}
	if l.Discount, err = money.Parse(discount); err != nil {
		return InvoiceLine{}, err
	}
	if l.Subtotal, err = money.Parse(subtotal); err != nil {
		return InvoiceLine{}, err
	}
	return l, nil
}

const createInvoiceLine = `INSERT INTO invoice_lines (invoice_id, product_id, name, quantity, unit_price, discount, subtotal)
VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric)
RETURNING ` + invoiceLineColumns

func (q *Queries) CreateInvoiceLine(ctx context.Context, arg CreateInvoiceLineParams) (InvoiceLine, error) {
	return scanInvoiceLine(q.db.QueryRow(ctx, createInvoiceLine, arg.InvoiceID, arg.ProductID, arg.Name, arg.Quantity,
		arg.UnitPrice.String(), arg.Discount.String(), arg.Subtotal.String()))
}

const getInvoice = `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

func (q *Queries) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoice, id))
}

const listInvoiceLines = `SELECT ` + invoiceLineColumns + ` FROM invoice_lines WHERE invoice_id = $1 ORDER BY product_id`

func (q *Queries) ListInvoiceLines(ctx context.Context, invoiceID int64) ([]InvoiceLine, error) {
	rows, err := q.db.Query(ctx, listInvoiceLines, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InvoiceLine
	for rows.Next() {
		l, err := scanInvoiceLine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

const listInvoicesByAccount = `SELECT ` + invoiceColumns + ` FROM invoices WHERE account_id = $1 ORDER BY issued_at DESC, id DESC`

func (q *Queries) ListInvoicesByAccount(ctx context.Context, accountID int64) ([]Invoice, error) {
	rows, err := q.db.Query(ctx, listInvoicesByAccount, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, inv)
	}
	return items, rows.Err()
}

const messageColumns = `id, sender_id, recipient_id, subject, body, order_id, created_at`

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Subject, &m.Body, &m.OrderID, &m.CreatedAt)
	return m, err
}

const createMessage = `INSERT INTO messages (sender_id, recipient_id, subject, body, order_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + messageColumns

func (q *Queries) CreateMessage(ctx context.Context, arg CreateMessageParams) (Message, error) {
	return scanMessage(q.db.QueryRow(ctx, createMessage, arg.SenderID, arg.RecipientID, arg.Subject, arg.Body, arg.OrderID))
}

const listMessagesByRecipient = `SELECT ` + messageColumns + ` FROM messages WHERE recipient_id = $1 ORDER BY created_at DESC, id DESC`

func (q *Queries) ListMessagesByRecipient(ctx context.Context, recipientID int64) ([]Message, error) {
	rows, err := q.db.Query(ctx, listMessagesByRecipient, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const reportColumns = `id, kind, product_id, description, account_id, created_at`

func scanReport(row pgx.Row) (ProductReport, error) {
	var r ProductReport
	err := row.Scan(&r.ID, &r.Kind, &r.ProductID, &r.Description, &r.AccountID, &r.CreatedAt)
	return r, err
}

const createProductReport = `INSERT INTO product_reports (kind, product_id, description, account_id)
VALUES ($1, $2, $3, $4)
RETURNING ` + reportColumns

func (q *Queries) CreateProductReport(ctx context.Context, arg CreateProductReportParams) (ProductReport, error) {
	return scanReport(q.db.QueryRow(ctx, createProductReport, arg.Kind, arg.ProductID, arg.Description, arg.AccountID))
}

const listProductReports = `SELECT ` + reportColumns + ` FROM product_reports ORDER BY created_at DESC, id DESC LIMIT $1`

func (q *Queries) ListProductReports(ctx context.Context, limit int32) ([]ProductReport, error) {
	rows, err := q.db.Query(ctx, listProductReports, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ProductReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const insertDomainEvent = `INSERT INTO domain_events (topic, aggregate_id, payload)
VALUES ($1, $2, $3)
RETURNING id, topic, aggregate_id, payload, occurred_at`

func (q *Queries) InsertDomainEvent(ctx context.Context, arg InsertDomainEventParams) (DomainEvent, error) {
	var ev DomainEvent
	err := q.db.QueryRow(ctx, insertDomainEvent, arg.Topic, arg.AggregateID, arg.Payload).
		Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	return ev, err
}
