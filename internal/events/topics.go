package events

// Topic constants for domain events emitted by the storefront.
const (
	TopicOrderPaid        = "order.paid"
	TopicQuoteCreated     = "quote.created"
	TopicQuoteRequested   = "quote.requested"
	TopicPaymentConfirmed = "payment.confirmed"
	TopicInvoiceGenerated = "invoice.generated"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicOrderPaid,
		TopicQuoteCreated,
		TopicQuoteRequested,
		TopicPaymentConfirmed,
		TopicInvoiceGenerated,
	}
}
