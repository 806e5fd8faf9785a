package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/ecofor-market/internal/db"
)

var (
	// ErrProductNotFound indicates the product to add does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrLineNotFound indicates the product is not in the cart.
	ErrLineNotFound = errors.New("product not in cart")
	// ErrNoSession is returned when no session id is available.
	ErrNoSession = errors.New("cart session missing")
)

// ProductSource loads catalog products. db.Querier satisfies it.
type ProductSource interface {
	GetProduct(ctx context.Context, id int64) (db.Product, error)
}

// Service binds session ids to stored carts.
type Service struct {
	Store    Store
	Products ProductSource
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	return nil
}

// Get returns the session's cart.
func (s *Service) Get(ctx context.Context, sessionID string) (Cart, error) {
	if err := s.ready(); err != nil {
		return Cart{}, err
	}
	if sessionID == "" {
		return Cart{}, ErrNoSession
	}
	return s.Store.Load(ctx, sessionID)
}

// Add looks up the product and adds qty units of it.
func (s *Service) Add(ctx context.Context, sessionID string, productID int64, qty int) (Cart, error) {
	if err := s.ready(); err != nil {
		return Cart{}, err
	}
	if s.Products == nil {
		return Cart{}, errors.New("cart product source not configured")
	}
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	product, err := s.Products.GetProduct(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return Cart{}, ErrProductNotFound
		}
		return Cart{}, fmt.Errorf("load product: %w", err)
	}
	if err := c.Add(product, qty); err != nil {
		return Cart{}, err
	}
	if err := s.Store.Save(ctx, sessionID, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Decrement removes one unit of productID.
func (s *Service) Decrement(ctx context.Context, sessionID string, productID int64) (Cart, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) bool { return c.Decrement(productID) })
}

// Remove drops productID from the cart.
func (s *Service) Remove(ctx context.Context, sessionID string, productID int64) (Cart, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) bool { return c.Remove(productID) })
}

// Clear empties the session's cart.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if sessionID == "" {
		return ErrNoSession
	}
	return s.Store.Delete(ctx, sessionID)
}

func (s *Service) mutate(ctx context.Context, sessionID string, fn func(*Cart) bool) (Cart, error) {
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	if !fn(&c) {
		return c, ErrLineNotFound
	}
	if err := s.Store.Save(ctx, sessionID, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}
