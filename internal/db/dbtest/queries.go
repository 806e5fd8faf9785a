package dbtest

import (
	"context"
	"slices"
	"strings"

	"github.com/noah-isme/ecofor-market/internal/db"
)

func (q *state) GetProduct(_ context.Context, id int64) (db.Product, error) {
	if err := q.fail("GetProduct"); err != nil {
		return db.Product{}, err
	}
	p, ok := q.products[id]
	if !ok {
		return db.Product{}, db.ErrNoRows
	}
	return p, nil
}

func (q *state) GetProductForUpdate(ctx context.Context, id int64) (db.Product, error) {
	if err := q.fail("GetProductForUpdate"); err != nil {
		return db.Product{}, err
	}
	return q.GetProduct(ctx, id)
}

func (q *state) filterProducts(arg db.ListProductsParams) []db.Product {
	var out []db.Product
	for _, p := range q.products {
		if matchesProduct(p, arg) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b db.Product) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
	return out
}

func (q *state) ListProducts(_ context.Context, arg db.ListProductsParams) ([]db.Product, error) {
	if err := q.fail("ListProducts"); err != nil {
		return nil, err
	}
	all := q.filterProducts(arg)
	start := min(int(arg.Offset), len(all))
	end := len(all)
	if arg.Limit > 0 {
		end = min(start+int(arg.Limit), len(all))
	}
	return all[start:end], nil
}

func (q *state) CountProducts(_ context.Context, arg db.ListProductsParams) (int64, error) {
	if err := q.fail("CountProducts"); err != nil {
		return 0, err
	}
	return int64(len(q.filterProducts(arg))), nil
}

func (q *state) CreateProduct(_ context.Context, arg db.CreateProductParams) (db.Product, error) {
	if err := q.fail("CreateProduct"); err != nil {
		return db.Product{}, err
	}
	now := q.owner.now()
	p := db.Product{
		ID:          q.next(),
		Name:        arg.Name,
		Description: arg.Description,
		Price:       arg.Price,
		Stock:       arg.Stock,
		Category:    arg.Category,
		Active:      arg.Active,
		DiscountPct: arg.DiscountPct,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	q.products[p.ID] = p
	return p, nil
}

func (q *state) UpdateProduct(_ context.Context, arg db.UpdateProductParams) (db.Product, error) {
	if err := q.fail("UpdateProduct"); err != nil {
		return db.Product{}, err
	}
	p, ok := q.products[arg.ID]
	if !ok {
		return db.Product{}, db.ErrNoRows
	}
	p.Name = arg.Name
	p.Description = arg.Description
	p.Price = arg.Price
	p.Stock = arg.Stock
	p.Category = arg.Category
	p.Active = arg.Active
	p.DiscountPct = arg.DiscountPct
	p.UpdatedAt = q.owner.now()
	q.products[p.ID] = p
	return p, nil
}

func (q *state) DeleteProduct(_ context.Context, id int64) error {
	if err := q.fail("DeleteProduct"); err != nil {
		return err
	}
	if _, ok := q.products[id]; !ok {
		return db.ErrNoRows
	}
	for _, it := range q.orderItems {
		if it.ProductID == id {
			return db.ErrReferenced
		}
	}
	delete(q.products, id)
	return nil
}

func (q *state) DecrementStock(_ context.Context, id int64, qty int) (db.Product, error) {
	if err := q.fail("DecrementStock"); err != nil {
		return db.Product{}, err
	}
	p, ok := q.products[id]
	if !ok {
		return db.Product{}, db.ErrNoRows
	}
	p.Stock = max(p.Stock-qty, 0)
	p.UpdatedAt = q.owner.now()
	q.products[id] = p
	return p, nil
}

func (q *state) CreateAccount(_ context.Context, arg db.CreateAccountParams) (db.Account, error) {
	if err := q.fail("CreateAccount"); err != nil {
		return db.Account{}, err
	}
	for _, a := range q.accounts {
		if strings.EqualFold(a.Username, arg.Username) {
			return db.Account{}, errDuplicate
		}
	}
	a := db.Account{
		ID:           q.next(),
		Username:     arg.Username,
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Tier:         arg.Tier,
		Roles:        slices.Clone(arg.Roles),
		Rut:          arg.Rut,
		CreatedAt:    q.owner.now(),
	}
	q.accounts[a.ID] = a
	return a, nil
}

func (q *state) GetAccountByID(_ context.Context, id int64) (db.Account, error) {
	if err := q.fail("GetAccountByID"); err != nil {
		return db.Account{}, err
	}
	a, ok := q.accounts[id]
	if !ok {
		return db.Account{}, db.ErrNoRows
	}
	return a, nil
}

func (q *state) GetAccountByUsername(_ context.Context, username string) (db.Account, error) {
	if err := q.fail("GetAccountByUsername"); err != nil {
		return db.Account{}, err
	}
	for _, a := range q.accounts {
		if strings.EqualFold(a.Username, username) {
			return a, nil
		}
	}
	return db.Account{}, db.ErrNoRows
}

func (q *state) ListAccountsByRole(_ context.Context, role string) ([]db.Account, error) {
	if err := q.fail("ListAccountsByRole"); err != nil {
		return nil, err
	}
	var out []db.Account
	for _, a := range sortedValues(q.accounts, func(a db.Account) int64 { return a.ID }) {
		if slices.Contains(a.Roles, role) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (q *state) CreateOrder(_ context.Context, arg db.CreateOrderParams) (db.Order, error) {
	if err := q.fail("CreateOrder"); err != nil {
		return db.Order{}, err
	}
	now := q.owner.now()
	o := db.Order{
		ID:        q.next(),
		AccountID: arg.AccountID,
		Estado:    arg.Estado,
		Total:     arg.Total,
		CreatedAt: now,
		UpdatedAt: now,
	}
	q.orders[o.ID] = o
	return o, nil
}

func (q *state) CreateOrderItem(_ context.Context, arg db.CreateOrderItemParams) (db.OrderItem, error) {
	if err := q.fail("CreateOrderItem"); err != nil {
		return db.OrderItem{}, err
	}
	if _, ok := q.orders[arg.OrderID]; !ok {
		return db.OrderItem{}, errForeignKey
	}
	if _, ok := q.products[arg.ProductID]; !ok {
		return db.OrderItem{}, errForeignKey
	}
	it := db.OrderItem{
		ID:          q.next(),
		OrderID:     arg.OrderID,
		ProductID:   arg.ProductID,
		ProductName: arg.ProductName,
		Quantity:    arg.Quantity,
		UnitPrice:   arg.UnitPrice,
	}
	q.orderItems[it.ID] = it
	return it, nil
}

func (q *state) GetOrder(_ context.Context, id int64) (db.Order, error) {
	if err := q.fail("GetOrder"); err != nil {
		return db.Order{}, err
	}
	o, ok := q.orders[id]
	if !ok {
		return db.Order{}, db.ErrNoRows
	}
	return o, nil
}

func (q *state) GetOrderForUpdate(ctx context.Context, id int64) (db.Order, error) {
	if err := q.fail("GetOrderForUpdate"); err != nil {
		return db.Order{}, err
	}
	return q.GetOrder(ctx, id)
}

func (q *state) ListOrderItems(_ context.Context, orderID int64) ([]db.OrderItem, error) {
	if err := q.fail("ListOrderItems"); err != nil {
		return nil, err
	}
	var out []db.OrderItem
	for _, it := range q.orderItems {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b db.OrderItem) int { return int(a.ProductID - b.ProductID) })
	return out, nil
}

func (q *state) ListOrdersByAccount(_ context.Context, accountID int64) ([]db.Order, error) {
	if err := q.fail("ListOrdersByAccount"); err != nil {
		return nil, err
	}
	var out []db.Order
	for _, o := range q.orders {
		if o.AccountID == accountID {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b db.Order) int { return int(b.ID - a.ID) })
	return out, nil
}

func (q *state) MarkOrderPaid(_ context.Context, id int64) (int64, error) {
	if err := q.fail("MarkOrderPaid"); err != nil {
		return 0, err
	}
	o, ok := q.orders[id]
	if !ok || o.Estado == db.EstadoPagado {
		return 0, nil
	}
	o.Estado = db.EstadoPagado
	o.UpdatedAt = q.owner.now()
	q.orders[id] = o
	return 1, nil
}

func (q *state) CreateInvoice(_ context.Context, arg db.CreateInvoiceParams) (db.Invoice, error) {
	if err := q.fail("CreateInvoice"); err != nil {
		return db.Invoice{}, err
	}
	inv := db.Invoice{
		ID:             q.next(),
		AccountID:      arg.AccountID,
		IssuedAt:       q.owner.now(),
		TotalBruto:     arg.TotalBruto,
		TotalDescuento: arg.TotalDescuento,
		TotalSinIva:    arg.TotalSinIva,
		TotalFinal:     arg.TotalFinal,
	}
	q.invoices[inv.ID] = inv
	return inv, nil
}

func (q *state) CreateInvoiceLine(_ context.Context, arg db.CreateInvoiceLineParams) (db.InvoiceLine, error) {
	if err := q.fail("CreateInvoiceLine"); err != nil {
		return db.InvoiceLine{}, err
	}
	if _, ok := q.invoices[arg.InvoiceID]; !ok {
		return db.InvoiceLine{}, errForeignKey
	}
	l := db.InvoiceLine{
		ID:        q.next(),
		InvoiceID: arg.InvoiceID,
		ProductID: arg.ProductID,
		Name:      arg.Name,
		Quantity:  arg.Quantity,
		UnitPrice: arg.UnitPrice,
		Discount:  arg.Discount,
		Subtotal:  arg.Subtotal,
	}
	q.invoiceLines[l.ID] = l
	return l, nil
}

func (q *state) GetInvoice(_ context.Context, id int64) (db.Invoice, error) {
	if err := q.fail("GetInvoice"); err != nil {
		return db.Invoice{}, err
	}
	inv, ok := q.invoices[id]
	if !ok {
		return db.Invoice{}, db.ErrNoRows
	}
	return inv, nil
}

func (q *state) ListInvoiceLines(_ context.Context, invoiceID int64) ([]db.InvoiceLine, error) {
	if err := q.fail("ListInvoiceLines"); err != nil {
		return nil, err
	}
	var out []db.InvoiceLine
	for _, l := range q.invoiceLines {
		if l.InvoiceID == invoiceID {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b db.InvoiceLine) int { return int(a.ProductID - b.ProductID) })
	return out, nil
}

func (q *state) ListInvoicesByAccount(_ context.Context, accountID int64) ([]db.Invoice, error) {
	if err := q.fail("ListInvoicesByAccount"); err != nil {
		return nil, err
	}
	var out []db.Invoice
	for _, inv := range q.invoices {
		if inv.AccountID == accountID {
			out = append(out, inv)
		}
	}
	slices.SortFunc(out, func(a, b db.Invoice) int { return int(b.ID - a.ID) })
	return out, nil
}

func (q *state) CreateMessage(_ context.Context, arg db.CreateMessageParams) (db.Message, error) {
	if err := q.fail("CreateMessage"); err != nil {
		return db.Message{}, err
	}
	m := db.Message{
		ID:          q.next(),
		SenderID:    arg.SenderID,
		RecipientID: arg.RecipientID,
		Subject:     arg.Subject,
		Body:        arg.Body,
		OrderID:     arg.OrderID,
		CreatedAt:   q.owner.now(),
	}
	q.messages[m.ID] = m
	return m, nil
}

func (q *state) ListMessagesByRecipient(_ context.Context, recipientID int64) ([]db.Message, error) {
	if err := q.fail("ListMessagesByRecipient"); err != nil {
		return nil, err
	}
	var out []db.Message
	for _, m := range q.messages {
		if m.RecipientID == recipientID {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b db.Message) int { return int(b.ID - a.ID) })
	return out, nil
}

func (q *state) CreateProductReport(_ context.Context, arg db.CreateProductReportParams) (db.ProductReport, error) {
	if err := q.fail("CreateProductReport"); err != nil {
		return db.ProductReport{}, err
	}
	r := db.ProductReport{
		ID:          q.next(),
		Kind:        arg.Kind,
		ProductID:   arg.ProductID,
		Description: arg.Description,
		AccountID:   arg.AccountID,
		CreatedAt:   q.owner.now(),
	}
	q.reports[r.ID] = r
	return r, nil
}

func (q *state) ListProductReports(_ context.Context, limit int32) ([]db.ProductReport, error) {
	if err := q.fail("ListProductReports"); err != nil {
		return nil, err
	}
	out := sortedValues(q.reports, func(r db.ProductReport) int64 { return r.ID })
	slices.Reverse(out)
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (q *state) InsertDomainEvent(_ context.Context, arg db.InsertDomainEventParams) (db.DomainEvent, error) {
	if err := q.fail("InsertDomainEvent"); err != nil {
		return db.DomainEvent{}, err
	}
	ev := db.DomainEvent{
		ID:          q.next(),
		Topic:       arg.Topic,
		AggregateID: arg.AggregateID,
		Payload:     append([]byte(nil), arg.Payload...),
		OccurredAt:  q.owner.now(),
	}
	q.events[ev.ID] = ev
	return ev, nil
}
