package tasks

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/ecofor-market/internal/events"
)

func subjectFor(topic string, aggregateID int64) string {
	switch topic {
	case events.TopicOrderPaid:
		return fmt.Sprintf("Pedido #%d confirmado", aggregateID)
	case events.TopicQuoteCreated:
		return fmt.Sprintf("Cotización #%d registrada", aggregateID)
	case events.TopicQuoteRequested:
		return fmt.Sprintf("Nueva solicitud de cotización #%d", aggregateID)
	case events.TopicPaymentConfirmed:
		return fmt.Sprintf("Pago del pedido #%d recibido", aggregateID)
	case events.TopicInvoiceGenerated:
		return fmt.Sprintf("Factura #%d emitida", aggregateID)
	default:
		return "Notificación " + topic
	}
}

func bodyFor(p EventPayload, fields map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>%s</p>", subjectFor(p.Topic, p.AggregateID))
	fmt.Fprintf(&b, "<p>Fecha: %s</p>", p.OccurredAt.In(time.UTC).Format("02-01-2006 15:04"))
	for _, key := range []string{"estado", "total", "totalFinal", "items", "lines"} {
		if v, ok := fields[key]; ok {
			fmt.Fprintf(&b, "<p>%s: %v</p>", key, v)
		}
	}
	b.WriteString("<p>Ecofor Market</p>")
	return b.String()
}

func stringField(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := fields[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func int64Field(fields map[string]any, key string) int64 {
	switch v := fields[key].(type) {
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}
