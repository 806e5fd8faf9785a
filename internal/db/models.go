package db

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/ecofor-market/internal/money"
)

// Order states.
const (
	EstadoCotizacion = "cotizacion"
	EstadoPendiente  = "pendiente"
	EstadoPagado     = "pagado"
)

// Account tiers and staff roles.
const (
	TierRetail  = "retail"
	TierEmpresa = "empresa"

	RoleAdmin           = "admin"
	RoleCustomerSupport = "customer-support"
)

// Report kinds.
const (
	ReportStock     = "STOCK"
	ReportDescuento = "DESCUENTO"
)

type Product struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       money.Money `json:"price"`
	Stock       int         `json:"stock"`
	Category    string      `json:"category"`
	Active      bool        `json:"active"`
	DiscountPct pgtype.Int4 `json:"discountPct"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type Account struct {
	ID           int64       `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Tier         string      `json:"tier"`
	Roles        []string    `json:"roles"`
	Rut          pgtype.Text `json:"rut"`
	CreatedAt    time.Time   `json:"createdAt"`
}

type Order struct {
	ID        int64       `json:"id"`
	AccountID int64       `json:"accountId"`
	Estado    string      `json:"estado"`
	Total     money.Money `json:"total"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type OrderItem struct {
	ID          int64       `json:"id"`
	OrderID     int64       `json:"orderId"`
	ProductID   int64       `json:"productId"`
	ProductName string      `json:"productName"`
	Quantity    int         `json:"quantity"`
	UnitPrice   money.Money `json:"unitPrice"`
}

type Invoice struct {
	ID             int64       `json:"id"`
	AccountID      int64       `json:"accountId"`
	IssuedAt       time.Time   `json:"issuedAt"`
	TotalBruto     money.Money `json:"totalBruto"`
	TotalDescuento money.Money `json:"totalDescuento"`
	TotalSinIva    money.Money `json:"totalSinIva"`
	TotalFinal     money.Money `json:"totalFinal"`
}

type InvoiceLine struct {
	ID        int64       `json:"id"`
	InvoiceID int64       `json:"invoiceId"`
	ProductID int64       `json:"productId"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	UnitPrice money.Money `json:"unitPrice"`
	Discount  money.Money `json:"discount"`
	Subtotal  money.Money `json:"subtotal"`
}

type Message struct {
	ID          int64       `json:"id"`
	SenderID    int64       `json:"senderId"`
	RecipientID int64       `json:"recipientId"`
	Subject     string      `json:"subject"`
	Body        string      `json:"body"`
	OrderID     pgtype.Int8 `json:"orderId"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type ProductReport struct {
	ID          int64       `json:"id"`
	Kind        string      `json:"kind"`
	ProductID   int64       `json:"productId"`
	Description string      `json:"description"`
	AccountID   pgtype.Int8 `json:"accountId"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type DomainEvent struct {
	ID          int64     `json:"id"`
	Topic       string    `json:"topic"`
	AggregateID int64     `json:"aggregateId"`
	Payload     []byte    `json:"payload"`
	OccurredAt  time.Time `json:"occurredAt"`
}

type ListProductsParams struct {
	Category      string
	Search        string
	OnlyAvailable bool
	Limit         int32
	Offset        int32
}

type CreateProductParams struct {
	Name        string
	Description string
	Price       money.Money
	Stock       int
	Category    string
	Active      bool
	DiscountPct pgtype.Int4
}

type UpdateProductParams struct {
	ID          int64
	Name        string
	Description string
	Price       money.Money
	Stock       int
	Category    string
	Active      bool
	DiscountPct pgtype.Int4
}

type CreateAccountParams struct {
	Username     string
	Email        string
	PasswordHash string
	Tier         string
	Roles        []string
	Rut          pgtype.Text
}

type CreateOrderParams struct {
	AccountID int64
	Estado    string
	Total     money.Money
}

type CreateOrderItemParams struct {
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   money.Money
}

type CreateInvoiceParams struct {
	AccountID      int64
	TotalBruto     money.Money
	TotalDescuento money.Money
	TotalSinIva    money.Money
	TotalFinal     money.Money
}

type CreateInvoiceLineParams struct {
	InvoiceID int64
	ProductID int64
	Name      string
	Quantity  int
	UnitPrice money.Money
	Discount  money.Money
	Subtotal  money.Money
}

type CreateMessageParams struct {
	SenderID    int64
	RecipientID int64
	Subject     string
	Body        string
	OrderID     pgtype.Int8
}

type CreateProductReportParams struct {
	Kind        string
	ProductID   int64
	Description string
	AccountID   pgtype.Int8
}

type InsertDomainEventParams struct {
	Topic       string
	AggregateID int64
	Payload     []byte
}
