package market

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore implements Store with in-memory storage, for tests and local
// development. A single mutex stands in for the row locks of the Postgres
// store; each operation is atomic under it.
type MemStore struct {
	mu       sync.Mutex
	products map[string]*Product
	requests map[string]*Request
	carts    map[string]*Cart
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		products: make(map[string]*Product),
		requests: make(map[string]*Request),
		carts:    make(map[string]*Cart),
	}
}

// SeedProduct inserts or replaces a product. Missing ids get one assigned.
func (s *MemStore) SeedProduct(p Product) Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.products[p.ID] = &p
	return p
}

func (s *MemStore) GetProduct(_ context.Context, id string) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return *p, nil
}

func (s *MemStore) GetProducts(_ context.Context, ids []string) (map[string]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = *p
		}
	}
	return out, nil
}

func (s *MemStore) ListProducts(_ context.Context) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	return out, nil
}

func (s *MemStore) GetRequest(_ context.Context, id string) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return *q, nil
}

func (s *MemStore) CreateRequest(_ context.Context, in CreateRequestInput) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[in.ProductID]
	if !ok {
		return Request{}, ErrNotFound
	}
	info, err := validateCreate(*p, in)
	if err != nil {
		return Request{}, err
	}

	p.Stock -= in.Quantity
	now := time.Now()
	q := &Request{
		ID:              uuid.NewString(),
		ProductID:       in.ProductID,
		UserID:          in.UserID,
		Quantity:        in.Quantity,
		Status:          StatusPending,
		ReservationInfo: info,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.requests[q.ID] = q
	return *q, nil
}

func (s *MemStore) ApproveRequest(_ context.Context, id string) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	if !CanTransition(q.Status, StatusApproved) {
		return Request{}, ErrBadTransition
	}
	q.Status = StatusApproved
	q.UpdatedAt = time.Now()
	return *q, nil
}

func (s *MemStore) DeleteRequest(_ context.Context, id string) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	if p, ok := s.products[q.ProductID]; ok {
		p.Stock += q.Quantity
	}
	delete(s.requests, id)
	return *q, nil
}

func (s *MemStore) ListRequests(_ context.Context, userID string) ([]Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, q := range s.requests {
		if q.UserID == userID {
			out = append(out, *q)
		}
	}
	return out, nil
}

// cart returns the user's cart, creating it lazily.
func (s *MemStore) cart(userID string) *Cart {
	c, ok := s.carts[userID]
	if !ok {
		now := time.Now()
		c = &Cart{UserID: userID, Items: map[string]int{}, CreatedAt: now, UpdatedAt: now}
		s.carts[userID] = c
	}
	return c
}

func (s *MemStore) GetCart(_ context.Context, userID string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[userID]; ok {
		cp := *c
		cp.Items = make(map[string]int, len(c.Items))
		for k, v := range c.Items {
			cp.Items[k] = v
		}
		return cp, nil
	}
	return Cart{UserID: userID, Items: map[string]int{}}, nil
}

func (s *MemStore) AddCartItem(_ context.Context, userID, productID string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return ErrNotFound
	}
	c := s.cart(userID)
	if err := c.Add(*p, amount); err != nil {
		return err
	}
	c.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) RemoveCartItem(_ context.Context, userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cart(userID)
	if err := c.Remove(productID); err != nil {
		return err
	}
	c.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) ClearCart(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cart(userID)
	c.Clear()
	c.UpdatedAt = time.Now()
	return nil
}

// Checkout validates every line first and only then applies any mutation, so
// a shortage on one line leaves stock and cart untouched for all of them.
func (s *MemStore) Checkout(_ context.Context, userID string) ([]Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cart(userID)
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	// first pass: validate all lines
	for _, pid := range c.SortedProductIDs() {
		qty := c.Items[pid]
		p, ok := s.products[pid]
		if !ok {
			return nil, ErrNotFound
		}
		if qty > p.Stock {
			return nil, &InsufficientStockError{ProductID: pid, Requested: qty, Available: p.Stock}
		}
	}

	// second pass: reserve and create requests
	now := time.Now()
	created := make([]Request, 0, len(c.Items))
	for _, pid := range c.SortedProductIDs() {
		qty := c.Items[pid]
		s.products[pid].Stock -= qty
		q := &Request{
			ID:        uuid.NewString(),
			ProductID: pid,
			UserID:    userID,
			Quantity:  qty,
			Status:    StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.requests[q.ID] = q
		created = append(created, *q)
	}

	c.Clear()
	c.UpdatedAt = now
	return created, nil
}
