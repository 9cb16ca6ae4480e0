package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
)

// memStore implements repository.Store in memory with transaction semantics
// close enough to Postgres for the properties under test: stock deltas apply
// under a store-wide lock when AdjustStock runs (serializing concurrent
// placements) and are undone on rollback; order rows become visible only on
// commit.
type memStore struct {
	mu       sync.Mutex
	products map[int64]*domain.Product
	orders   map[int64]*domain.Order
	events   []*repository.OrderEvent

	nextProductID int64
	nextOrderID   int64
	nextItemID    int64

	// Failure injection and hooks.
	BeginErr       error
	InsertOrderErr error
	InsertItemsErr error
	RecordEventErr error
	CommitErr      error
	OnBeginTx      func() // runs after the pre-check, before the atomic section

	Commits   int
	Rollbacks int
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[int64]*domain.Product),
		orders:   make(map[int64]*domain.Order),
	}
}

func (m *memStore) addProduct(name string, price float64, stock int) *domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextProductID++
	p := &domain.Product{
		ID:    m.nextProductID,
		Name:  name,
		Price: price,
		Stock: stock,
	}
	m.products[p.ID] = p
	return p
}

func (m *memStore) stockOf(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func copyProduct(p *domain.Product) *domain.Product {
	cp := *p
	return &cp
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp
}

func (m *memStore) ListProducts(_ context.Context, limit, offset int) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Product
	for id := int64(1); id <= m.nextProductID; id++ {
		if p, ok := m.products[id]; ok {
			out = append(out, copyProduct(p))
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return copyProduct(p), nil
}

func (m *memStore) CreateProduct(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextProductID++
	product.ID = m.nextProductID
	m.products[product.ID] = copyProduct(product)
	return nil
}

func (m *memStore) UpdateProduct(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = copyProduct(product)
	return nil
}

func (m *memStore) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	for _, order := range m.orders {
		for _, item := range order.Items {
			if item.ProductID == id {
				return repository.ErrProductInUse
			}
		}
	}
	delete(m.products, id)
	return nil
}

func (m *memStore) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (m *memStore) ListOrders(_ context.Context, limit, offset int) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for id := int64(1); id <= m.nextOrderID; id++ {
		if o, ok := m.orders[id]; ok {
			out = append(out, copyOrder(o))
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) UpdateOrderStatus(_ context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	o.Status = status
	return copyOrder(o), nil
}

func (m *memStore) DeleteOrder(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *memStore) UnprocessedOrderEvents(_ context.Context, limit int) ([]*repository.OrderEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.events) {
		limit = len(m.events)
	}
	return append([]*repository.OrderEvent(nil), m.events[:limit]...), nil
}

func (m *memStore) MarkOrderEventProcessed(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ev := range m.events {
		if ev.ID == id {
			m.events = append(m.events[:i], m.events[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memStore) RunMigrations(*repository.Credentials) error { return nil }
func (m *memStore) Close() error                                { return nil }

func (m *memStore) BeginOrderTx(context.Context) (repository.OrderTx, error) {
	if m.OnBeginTx != nil {
		m.OnBeginTx()
	}
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	return &memTx{store: m, applied: make(map[int64]int)}, nil
}

type memTx struct {
	store   *memStore
	order   *domain.Order
	items   []domain.OrderItem
	events  []*repository.OrderEvent
	applied map[int64]int // productID -> delta already applied to live stock
	done    bool
}

func (t *memTx) InsertOrder(_ context.Context, order *domain.Order) error {
	if t.store.InsertOrderErr != nil {
		return t.store.InsertOrderErr
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.nextOrderID++
	order.ID = t.store.nextOrderID
	t.order = order
	return nil
}

func (t *memTx) InsertOrderItems(_ context.Context, orderID int64, items []domain.OrderItem) ([]domain.OrderItem, error) {
	if t.store.InsertItemsErr != nil {
		return nil, t.store.InsertItemsErr
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	inserted := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		t.store.nextItemID++
		item.ID = t.store.nextItemID
		item.OrderID = orderID
		inserted = append(inserted, item)
	}
	t.items = inserted
	return inserted, nil
}

func (t *memTx) AdjustStock(_ context.Context, productID int64, delta int) (*domain.Product, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	p, ok := t.store.products[productID]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if p.Stock+delta < 0 {
		return nil, &repository.StockUnderflowError{ProductID: productID, Current: p.Stock, Delta: delta}
	}
	p.Stock += delta
	t.applied[productID] += delta
	return copyProduct(p), nil
}

func (t *memTx) RecordOrderEvent(_ context.Context, event *repository.OrderEvent) error {
	if t.store.RecordEventErr != nil {
		return t.store.RecordEventErr
	}
	t.events = append(t.events, event)
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return nil
	}
	if t.store.CommitErr != nil {
		return t.store.CommitErr
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.Commits++
	if t.order != nil {
		committed := copyOrder(t.order)
		committed.Items = append([]domain.OrderItem(nil), t.items...)
		t.store.orders[committed.ID] = committed
	}
	t.store.events = append(t.store.events, t.events...)
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.Rollbacks++
	for productID, delta := range t.applied {
		if p, ok := t.store.products[productID]; ok {
			p.Stock -= delta
		}
	}
	return nil
}

// recordingCache counts hits and invalidations for cache-behavior assertions.
type recordingCache struct {
	mu      sync.Mutex
	entries map[int64]*domain.Product
	Sets    []int64
	Deletes []int64
	GetErr  error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[int64]*domain.Product)}
}

func (c *recordingCache) Get(_ context.Context, productID int64) (*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.GetErr != nil {
		return nil, c.GetErr
	}
	p, ok := c.entries[productID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return copyProduct(p), nil
}

func (c *recordingCache) Set(_ context.Context, product *domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[product.ID] = copyProduct(product)
	c.Sets = append(c.Sets, product.ID)
	return nil
}

func (c *recordingCache) Delete(_ context.Context, productID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, productID)
	c.Deletes = append(c.Deletes, productID)
	return nil
}
