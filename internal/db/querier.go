package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrNoRows is returned when a lookup matches nothing.
	ErrNoRows = pgx.ErrNoRows
	// ErrReferenced is returned when a delete would orphan dependent rows.
	ErrReferenced = errors.New("db: row is still referenced")
	// ErrImmutable is returned when a write targets an append-only table.
	ErrImmutable = errors.New("db: row is immutable")
)

// Querier lists every query the application runs.
type Querier interface {
	GetProduct(ctx context.Context, id int64) (Product, error)
	GetProductForUpdate(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error)
	CountProducts(ctx context.Context, arg ListProductsParams) (int64, error)
	CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error)
	UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	DecrementStock(ctx context.Context, id int64, qty int) (Product, error)

	CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error)
	GetAccountByID(ctx context.Context, id int64) (Account, error)
	GetAccountByUsername(ctx context.Context, username string) (Account, error)
	ListAccountsByRole(ctx context.Context, role string) ([]Account, error)

	CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error)
	CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	ListOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error)
	ListOrdersByAccount(ctx context.Context, accountID int64) ([]Order, error)
	MarkOrderPaid(ctx context.Context, id int64) (int64, error)

	CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error)
	CreateInvoiceLine(ctx context.Context, arg CreateInvoiceLineParams) (InvoiceLine, error)
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListInvoiceLines(ctx context.Context, invoiceID int64) ([]InvoiceLine, error)
	ListInvoicesByAccount(ctx context.Context, accountID int64) ([]Invoice, error)

	CreateMessage(ctx context.Context, arg CreateMessageParams) (Message, error)
	ListMessagesByRecipient(ctx context.Context, recipientID int64) ([]Message, error)

	CreateProductReport(ctx context.Context, arg CreateProductReportParams) (ProductReport, error)
	ListProductReports(ctx context.Context, limit int32) ([]ProductReport, error)

	InsertDomainEvent(ctx context.Context, arg InsertDomainEventParams) (DomainEvent, error)
}

// Store is a Querier that can also run a function inside a single
// transaction. The transaction commits when fn returns nil and rolls back
// otherwise.
type Store interface {
	Querier
	ExecTx(ctx context.Context, fn func(Querier) error) error
}

// IsNotFound reports whether err means a lookup matched nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoRows)
}

var _ Querier = (*Queries)(nil)
