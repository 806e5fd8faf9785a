// Package dbtest provides an in-memory db.Store for service tests.
package dbtest

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/ecofor-market/internal/db"
)

// Store keeps every table in memory. ExecTx holds a single mutex for the
// whole callback and restores a snapshot when the callback fails, so
// transactions are serialized and all-or-nothing.
type Store struct {
	mu    sync.Mutex
	st    *state
	now   func() time.Time
	fails map[string]error
}

// New returns an empty store.
func New() *Store {
	s := &Store{now: time.Now, fails: map[string]error{}}
	s.st = newState(s)
	return s
}

// FailOn makes the named query return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fails, op)
		return
	}
	s.fails[op] = err
}

// SetNow overrides the clock used for timestamps.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// ExecTx implements db.Store.
func (s *Store) ExecTx(ctx context.Context, fn func(db.Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(s.st); err != nil {
		s.st = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Seed helpers bypass validation and are meant for test setup only.

// SeedProduct inserts p, assigning an id when p.ID is zero.
func (s *Store) SeedProduct(p db.Product) db.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.st.seq++
		p.ID = s.st.seq
	} else if p.ID > s.st.seq {
		s.st.seq = p.ID
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
		p.UpdatedAt = p.CreatedAt
	}
	s.st.products[p.ID] = p
	return p
}

// SeedAccount inserts a.
func (s *Store) SeedAccount(a db.Account) db.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		s.st.seq++
		a.ID = s.st.seq
	} else if a.ID > s.st.seq {
		s.st.seq = a.ID
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	s.st.accounts[a.ID] = a
	return a
}

// Orders returns every stored order ordered by id.
func (s *Store) Orders() []db.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.st.orders, func(o db.Order) int64 { return o.ID })
}

// Invoices returns every stored invoice ordered by id.
func (s *Store) Invoices() []db.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.st.invoices, func(i db.Invoice) int64 { return i.ID })
}

// Messages returns every stored message ordered by id.
func (s *Store) Messages() []db.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.st.messages, func(m db.Message) int64 { return m.ID })
}

// Events returns every stored domain event ordered by id.
func (s *Store) Events() []db.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.st.events, func(e db.DomainEvent) int64 { return e.ID })
}

// Stock returns the current stock of a product, or -1 when it is missing.
func (s *Store) Stock(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.products[productID]
	if !ok {
		return -1
	}
	return p.Stock
}

func (s *Store) locked(fn func(q *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

type state struct {
	owner        *Store
	seq          int64
	products     map[int64]db.Product
	accounts     map[int64]db.Account
	orders       map[int64]db.Order
	orderItems   map[int64]db.OrderItem
	invoices     map[int64]db.Invoice
	invoiceLines map[int64]db.InvoiceLine
	messages     map[int64]db.Message
	reports      map[int64]db.ProductReport
	events       map[int64]db.DomainEvent
}

func newState(owner *Store) *state {
	return &state{
		owner:        owner,
		products:     map[int64]db.Product{},
		accounts:     map[int64]db.Account{},
		orders:       map[int64]db.Order{},
		orderItems:   map[int64]db.OrderItem{},
		invoices:     map[int64]db.Invoice{},
		invoiceLines: map[int64]db.InvoiceLine{},
		messages:     map[int64]db.Message{},
		reports:      map[int64]db.ProductReport{},
		events:       map[int64]db.DomainEvent{},
	}
}

func (q *state) clone() *state {
	return &state{
		owner:        q.owner,
		seq:          q.seq,
		products:     maps.Clone(q.products),
		accounts:     maps.Clone(q.accounts),
		orders:       maps.Clone(q.orders),
		orderItems:   maps.Clone(q.orderItems),
		invoices:     maps.Clone(q.invoices),
		invoiceLines: maps.Clone(q.invoiceLines),
		messages:     maps.Clone(q.messages),
		reports:      maps.Clone(q.reports),
		events:       maps.Clone(q.events),
	}
}

func (q *state) next() int64 {
	q.seq++
	return q.seq
}

func (q *state) fail(op string) error {
	if err, ok := q.owner.fails[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func sortedValues[T any](m map[int64]T, id func(T) int64) []T {
	out := slices.Collect(maps.Values(m))
	slices.SortFunc(out, func(a, b T) int {
		switch {
		case id(a) < id(b):
			return -1
		case id(a) > id(b):
			return 1
		}
		return 0
	})
	return out
}

func matchesProduct(p db.Product, arg db.ListProductsParams) bool {
	if arg.Category != "" && p.Category != arg.Category {
		return false
	}
	if arg.OnlyAvailable && (!p.Active || p.Stock <= 0) {
		return false
	}
	if arg.Search != "" {
		needle := strings.ToLower(arg.Search)
		hay := strings.ToLower(p.Name + "\x00" + p.Description + "\x00" + p.Category)
		if !strings.Contains(hay, needle) {
			return false
		}
	}
	return true
}
