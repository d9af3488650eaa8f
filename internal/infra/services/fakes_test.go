package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"barrio-connector/internal/domain/dto"
	"barrio-connector/internal/domain/entities"
	ports "barrio-connector/internal/domain/interfaces/repository"
	Iservices "barrio-connector/internal/domain/interfaces/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func cloneConversation(c *entities.Conversation) *entities.Conversation {
	out := *c
	out.Messages = append([]entities.Message(nil), c.Messages...)
	if c.Data.Sale != nil {
		sale := *c.Data.Sale
		sale.Products = append([]entities.ProductLine(nil), c.Data.Sale.Products...)
		out.Data.Sale = &sale
	}
	if c.Data.Expense != nil {
		expense := *c.Data.Expense
		out.Data.Expense = &expense
	}
	return &out
}

type memConversations struct {
	mu    sync.Mutex
	byID  map[primitive.ObjectID]*entities.Conversation
	order []primitive.ObjectID

	// failSave makes the next Save return this error.
	failSave error
	// ignoreWindow returns active conversations regardless of since.
	ignoreWindow bool
}

func newMemConversations() *memConversations {
	return &memConversations{byID: make(map[primitive.ObjectID]*entities.Conversation)}
}

func (m *memConversations) FindActive(_ context.Context, userPhone, storeID string, since time.Time) (*entities.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var found *entities.Conversation
	for _, id := range m.order {
		c := m.byID[id]
		if c.UserPhone != userPhone || c.StoreID != storeID || c.Status != entities.StatusActive {
			continue
		}
		if !m.ignoreWindow && c.LastMessageAt.Before(since) {
			continue
		}
		if found == nil || c.LastMessageAt.After(found.LastMessageAt) {
			found = c
		}
	}
	if found == nil {
		return nil, ports.ErrNotFound
	}
	return cloneConversation(found), nil
}

func (m *memConversations) Create(_ context.Context, conv *entities.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[conv.ID]; ok {
		return ports.ErrDuplicate
	}
	m.byID[conv.ID] = cloneConversation(conv)
	m.order = append(m.order, conv.ID)
	return nil
}

func (m *memConversations) Save(_ context.Context, conv *entities.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		err := m.failSave
		m.failSave = nil
		return err
	}
	stored, ok := m.byID[conv.ID]
	if !ok || stored.Version != conv.Version {
		return ports.ErrVersionConflict
	}
	conv.Version++
	m.byID[conv.ID] = cloneConversation(conv)
	return nil
}

func (m *memConversations) UpdateStatus(_ context.Context, conv *entities.Conversation, status entities.ConversationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[conv.ID]
	if !ok || stored.Version != conv.Version {
		return ports.ErrVersionConflict
	}
	conv.Version++
	conv.Status = status
	stored.Status = status
	stored.Version = conv.Version
	return nil
}

func (m *memConversations) all() []*entities.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entities.Conversation, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, cloneConversation(m.byID[id]))
	}
	return out
}

func (m *memConversations) last() *entities.Conversation {
	all := m.all()
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

type memCatalog struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*entities.Product
}

func newMemCatalog(products ...entities.Product) *memCatalog {
	c := &memCatalog{products: make(map[primitive.ObjectID]*entities.Product)}
	for i := range products {
		p := products[i]
		c.products[p.ID] = &p
	}
	return c
}

func (c *memCatalog) ListProducts(_ context.Context, storeID string) ([]entities.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []entities.Product
	for _, p := range c.products {
		if p.StoreID == storeID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *memCatalog) FindByID(_ context.Context, storeID string, productID primitive.ObjectID) (*entities.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok || p.StoreID != storeID {
		return nil, ports.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (c *memCatalog) DecrementQuantity(_ context.Context, storeID string, productID primitive.ObjectID, amount entities.Amount) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok || p.StoreID != storeID {
		return ports.ErrNotFound
	}
	p.Quantity = entities.NewAmount(p.Quantity.Sub(amount.Decimal))
	return nil
}

func (c *memCatalog) quantity(id primitive.ObjectID) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products[id].Quantity.String()
}

type memDirectory struct {
	entries []entities.Counterparty
}

func newMemDirectory(storeID string, names ...string) *memDirectory {
	d := &memDirectory{}
	for _, n := range names {
		d.entries = append(d.entries, entities.Counterparty{ID: primitive.NewObjectID(), StoreID: storeID, Name: n})
	}
	return d
}

func (d *memDirectory) ResolveByName(_ context.Context, storeID, name string) (*entities.Counterparty, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for i := range d.entries {
		e := d.entries[i]
		if e.StoreID == storeID && strings.Contains(strings.ToLower(e.Name), needle) {
			return &e, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (d *memDirectory) List(_ context.Context, storeID string, limit int64) ([]entities.Counterparty, error) {
	var out []entities.Counterparty
	for _, e := range d.entries {
		if e.StoreID == storeID && int64(len(out)) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

type memLedger[T any] struct {
	mu      sync.Mutex
	records []T
	keyOf   func(*T) (storeID, commitKey string)

	// failInsert makes every Insert return this error.
	failInsert error
}

func newMemSales() *memLedger[entities.Sale] {
	return &memLedger[entities.Sale]{keyOf: func(s *entities.Sale) (string, string) { return s.StoreID, s.CommitKey }}
}

func newMemExpenses() *memLedger[entities.Expense] {
	return &memLedger[entities.Expense]{keyOf: func(e *entities.Expense) (string, string) { return e.StoreID, e.CommitKey }}
}

func (l *memLedger[T]) Insert(_ context.Context, record *T) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failInsert != nil {
		return l.failInsert
	}
	store, key := l.keyOf(record)
	for i := range l.records {
		s, k := l.keyOf(&l.records[i])
		if key != "" && s == store && k == key {
			return ports.ErrDuplicate
		}
	}
	l.records = append(l.records, *record)
	return nil
}

func (l *memLedger[T]) FindByCommitKey(_ context.Context, storeID, commitKey string) (*T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.records {
		s, k := l.keyOf(&l.records[i])
		if s == storeID && k == commitKey {
			r := l.records[i]
			return &r, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (l *memLedger[T]) all() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.records...)
}

type memDebts struct {
	mu    sync.Mutex
	debts []entities.Debt

	// failInsert makes every Insert return this error.
	failInsert error
}

func (d *memDebts) Insert(_ context.Context, debt *entities.Debt) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failInsert != nil {
		return d.failInsert
	}
	for _, existing := range d.debts {
		if debt.CommitKey != "" && existing.StoreID == debt.StoreID && existing.CommitKey == debt.CommitKey {
			return ports.ErrDuplicate
		}
	}
	d.debts = append(d.debts, *debt)
	return nil
}

func (d *memDebts) all() []entities.Debt {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]entities.Debt(nil), d.debts...)
}

type extractStep struct {
	res Iservices.ExtractionResult
	err error
}

func answer(message, data string, ready bool) extractStep {
	return extractStep{res: Iservices.ExtractionResult{
		Message: message,
		Data:    json.RawMessage(data),
		Ready:   ready,
		Raw:     message,
	}}
}

func failure(err error) extractStep {
	return extractStep{err: err}
}

type scriptedExtractor struct {
	mu       sync.Mutex
	steps    []extractStep
	requests []Iservices.ExtractionRequest
}

func (s *scriptedExtractor) push(steps ...extractStep) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, steps...)
}

func (s *scriptedExtractor) Extract(_ context.Context, req Iservices.ExtractionRequest) (Iservices.ExtractionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.steps) == 0 {
		return Iservices.ExtractionResult{}, errors.New("unexpected extraction")
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.res, step.err
}

func (s *scriptedExtractor) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.TransactionCommittedEvent
	err    error
}

func (p *recordingPublisher) PublishCommitted(_ context.Context, event dto.TransactionCommittedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}
