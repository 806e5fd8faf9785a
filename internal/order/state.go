package order

import "github.com/noah-isme/ecofor-market/internal/db"

// Rank orders estados along the lifecycle. Unknown estados rank below all.
func Rank(estado string) int {
	switch estado {
	case db.EstadoCotizacion:
		return 0
	case db.EstadoPendiente:
		return 1
	case db.EstadoPagado:
		return 2
	default:
		return -1
	}
}

// CanTransition reports whether an order may move from one estado to another.
// Transitions only move forward and pagado is terminal.
func CanTransition(from, to string) bool {
	if Rank(from) < 0 || Rank(to) < 0 {
		return false
	}
	return Rank(to) > Rank(from)
}
