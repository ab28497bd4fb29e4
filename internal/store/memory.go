package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"stripe-checkout/internal/models"
)

// MemoryStore is a map-backed OrderStore used by tests and by local runs
// without Mongo. Orders are copied on read and write.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]models.Order
}

var _ OrderStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]models.Order)}
}

func (m *MemoryStore) Create(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = uuid.NewString()
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.PaymentStatus == "" {
		o.PaymentStatus = models.PaymentStatusPending
	}
	m.orders[o.ID] = *o
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, upd OrderUpdate) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.PaymentStatus != nil {
		o.PaymentStatus = *upd.PaymentStatus
	}
	if upd.TransactionID != nil {
		o.TransactionID = *upd.TransactionID
	}
	if upd.StripeSessionID != nil {
		o.StripeSessionID = *upd.StripeSessionID
	}
	o.UpdatedAt = time.Now().UTC()
	m.orders[id] = o
	cp := o
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Order, 0)
	for _, o := range m.orders {
		if f.Status != "" && o.PaymentStatus != f.Status {
			continue
		}
		if f.Email != "" && o.CustomerEmail != f.Email {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
