// Package journal is the Update/Log append-only record of every operation
// (spec §3, §5) plus a broadcast Broker so live log streams (UI/CLI
// followers) can watch an Update progress. Grounded on the teacher's
// pkg/events/events.go Broker shape, retargeted from cluster Events to
// Komodo Updates.
package journal

import (
	"sync"
	"time"

	"github.com/komodo-io/komodo-core/internal/domain"
)

// Subscriber is a channel that receives Update snapshots as they change.
type Subscriber chan *domain.Update

// Broker distributes Update broadcasts to any number of live subscribers.
// Publish never blocks on a slow subscriber — a full subscriber buffer just
// drops that broadcast, matching the teacher's best-effort delivery.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]bool
}

// NewBroker builds an empty broker.
func NewBroker() *Broker {
	return &Broker{subscribers: make(map[Subscriber]bool)}
}

// Subscribe opens a new subscription with a per-subscriber buffer.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe closes sub and stops delivering to it.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[sub]; ok {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish broadcasts a snapshot of u to every subscriber.
func (b *Broker) Publish(u *domain.Update) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subscribers {
		select {
		case sub <- u:
		default:
		}
	}
}

// SubscriberCount reports the number of live subscriptions.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// updateStore is the subset of *store.Store the journal needs, declared
// locally to avoid an import cycle (internal/store never imports journal).
type updateStore interface {
	PutUpdate(u *domain.Update) error
	GetUpdate(id string) (*domain.Update, error)
}

// Journal persists Updates and broadcasts every mutation through Broker.
type Journal struct {
	store  updateStore
	broker *Broker
}

// New builds a Journal backed by store, broadcasting through broker.
func New(store updateStore, broker *Broker) *Journal {
	return &Journal{store: store, broker: broker}
}

// Begin creates and persists a new Update in InProgress status, publishing
// its initial state.
func (j *Journal) Begin(id string, target domain.Target, operation, operator string) (*domain.Update, error) {
	u := &domain.Update{
		Id:        id,
		Target:    target,
		Operation: operation,
		Status:    domain.UpdateInProgress,
		StartTs:   time.Now(),
		Operator:  operator,
	}
	if err := j.store.PutUpdate(u); err != nil {
		return nil, err
	}
	j.broker.Publish(u)
	return u, nil
}

// AppendLog appends a Log entry to u, persists, and re-broadcasts — callers
// hold the only reference to u during an operation, so this mutates and
// saves in one step (spec §5 "Ordering": logs are appended in the order
// stages execute, never reordered).
func (j *Journal) AppendLog(u *domain.Update, l domain.Log) error {
	u.AppendLog(l)
	if err := j.store.PutUpdate(u); err != nil {
		return err
	}
	j.broker.Publish(u)
	return nil
}

// Finalize closes out u (spec §4.3: success = all(logs[i].success)),
// persists, and broadcasts the terminal state.
func (j *Journal) Finalize(u *domain.Update) error {
	u.Finalize(time.Now())
	if err := j.store.PutUpdate(u); err != nil {
		return err
	}
	j.broker.Publish(u)
	return nil
}

// Get loads a persisted Update by id.
func (j *Journal) Get(id string) (*domain.Update, error) {
	return j.store.GetUpdate(id)
}
