package dbtest

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/ecofor-market/internal/db"
)

var (
	errDuplicate  = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	errForeignKey = &pgconn.PgError{Code: "23503", Message: "insert or update violates foreign key constraint"}
)

func (s *Store) GetProduct(ctx context.Context, id int64) (db.Product, error) {
	var out db.Product
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.GetProduct(ctx, id)
		return err
	})
	return out, err
}

func (s *Store) GetProductForUpdate(ctx context.Context, id int64) (db.Product, error) {
	var out db.Product
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.GetProductForUpdate(ctx, id)
		return err
	})
	return out, err
}

func (s *Store) ListProducts(ctx context.Context, arg db.ListProductsParams) ([]db.Product, error) {
	var out []db.Product
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.ListProducts(ctx, arg)
		return err
	})
	return out, err
}

func (s *Store) CountProducts(ctx context.Context, arg db.ListProductsParams) (int64, error) {
	var out int64
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.CountProducts(ctx, arg)
		return err
	})
	return out, err
}

func (s *Store) CreateProduct(ctx context.Context, arg db.CreateProductParams) (db.Product, error) {
	var out db.Product
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.CreateProduct(ctx, arg)
		return err
	})
	return out, err
}

func (s *Store) UpdateProduct(ctx context.Context, arg db.UpdateProductParams) (db.Product, error) {
	var out db.Product
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.UpdateProduct(ctx, arg)
		return err
	})
	return out, err
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	return s.locked(func(q *state) error { return q.DeleteProduct(ctx, id) })
}

func (s *Store) DecrementStock(ctx context.Context, id int64, qty int) (db.Product, error) {
	var out db.Product
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.DecrementStock(ctx, id, qty)
		return err
	})
	return out, err
}

func (s *Store) CreateAccount(ctx context.Context, arg db.CreateAccountParams) (db.Account, error) {
	var out db.Account
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.CreateAccount(ctx, arg)
		return err
	})
	return out, err
}

func (s *Store) GetAccountByID(ctx context.Context, id int64) (db.Account, error) {
	var out db.Account
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.GetAccountByID(ctx, id)
		return err
	})
	return out, err
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (db.Account, error) {
	var out db.Account
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.GetAccountByUsername(ctx, username)
		return err
	})
	return out, err
}

func (s *Store) ListAccountsByRole(ctx context.Context, role string) ([]db.Account, error) {
	var out []db.Account
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.ListAccountsByRole(ctx, role)
		return err
	})
	return out, err
}

func (s *Store) CreateOrder(ctx context.Context, arg db.CreateOrderParams) (db.Order, error) {
	var out db.Order
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.CreateOrder(ctx, arg)
		return err
	})
	return out, err
}

func (s *Store) CreateOrderItem(ctx context.Context, arg db.CreateOrderItemParams) (db.OrderItem, error) {
	var out db.OrderItem
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.CreateOrderItem(ctx, arg)
		return err
	})
	return out, err
}

func (s *Store) GetOrder(ctx context.Context, id int64) (db.Order, error) {
	var out db.Order
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.GetOrder(ctx, id)
		return err
	})
	return out, err
}

func (s *Store) GetOrderForUpdate(ctx context.Context, id int64) (db.Order, error) {
	var out db.Order
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.GetOrderForUpdate(ctx, id)
		return err
	})
	return out, err
}

func (s *Store) ListOrderItems(ctx context.Context, orderID int64) ([]db.OrderItem, error) {
	var out []db.OrderItem
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.ListOrderItems(ctx, orderID)
		return err
	})
	return out, err
}

func (s *Store) ListOrdersByAccount(ctx context.Context, accountID int64) ([]db.Order, error) {
	var out []db.Order
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.ListOrdersByAccount(ctx, accountID)
		return err
	})
	return out, err
}

func (s *Store) MarkOrderPaid(ctx context.Context, id int64) (int64, error) {
	var out int64
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.MarkOrderPaid(ctx, id)
		return err
	})
	return out, err
}

func (s *Store) CreateInvoice(ctx context.Context, arg db.CreateInvoiceParams) (db.Invoice, error) {
	var out db.Invoice
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.CreateInvoice(ctx, arg)
		return err
	})
	return out, err
}

func (s *Store) CreateInvoiceLine(ctx context.Context, arg db.CreateInvoiceLineParams) (db.InvoiceLine, error) {
	var out db.InvoiceLine
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.CreateInvoiceLine(ctx, arg)
		return err
	})
	return out, err
}

func (s *Store) GetInvoice(ctx context.Context, id int64) (db.Invoice, error) {
	var out db.Invoice
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.GetInvoice(ctx, id)
		return err
	})
	return out, err
}

func (s *Store) ListInvoiceLines(ctx context.Context, invoiceID int64) ([]db.InvoiceLine, error) {
	var out []db.InvoiceLine
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.ListInvoiceLines(ctx, invoiceID)
		return err
	})
	return out, err
}

func (s *Store) ListInvoicesByAccount(ctx context.Context, accountID int64) ([]db.Invoice, error) {
	var out []db.Invoice
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.ListInvoicesByAccount(ctx, accountID)
		return err
	})
	return out, err
}

func (s *Store) CreateMessage(ctx context.Context, arg db.CreateMessageParams) (db.Message, error) {
	var out db.Message
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.CreateMessage(ctx, arg)
		return err
	})
	return out, err
}

func (s *Store) ListMessagesByRecipient(ctx context.Context, recipientID int64) ([]db.Message, error) {
	var out []db.Message
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.ListMessagesByRecipient(ctx, recipientID)
		return err
	})
	return out, err
}

func (s *Store) CreateProductReport(ctx context.Context, arg db.CreateProductReportParams) (db.ProductReport, error) {
	var out db.ProductReport
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.CreateProductReport(ctx, arg)
		return err
	})
	return out, err
}

func (s *Store) ListProductReports(ctx context.Context, limit int32) ([]db.ProductReport, error) {
	var out []db.ProductReport
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.ListProductReports(ctx, limit)
		return err
	})
	return out, err
}

func (s *Store) InsertDomainEvent(ctx context.Context, arg db.InsertDomainEventParams) (db.DomainEvent, error) {
	var out db.DomainEvent
	err := s.locked(func(q *state) error {
		var err error
		out, err = q.InsertDomainEvent(ctx, arg)
		return err
	})
	return out, err
}

var _ db.Store = (*Store)(nil)
var _ db.Querier = (*state)(nil)
