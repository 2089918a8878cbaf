// Package registry holds the per-worker pools of handler instances keyed
// by (category, method, required auth level), as described in spec §4.6.
package registry

import (
	"reflect"
	"sync"

	"github.com/arkeindustries/requestcore/internal/notify"
	"github.com/arkeindustries/requestcore/internal/wire"
)

// Handler is the contract every RPC handler must satisfy (spec §6,
// "Handler → codec contract").
type Handler interface {
	Deserialize(r *wire.Reader) error
	IsValid() uint16
	Process(authenticatedID uint64) uint16
	Serialize(w *wire.Writer) error

	// AuthenticatedID and SetAuthenticatedID let dispatch observe whether a
	// handler changed the connection's login state (spec §4.6 step 9).
	AuthenticatedID() uint64
	SetAuthenticatedID(uint64)

	// TakeNotifications drains and clears the handler's pending
	// notification outbox.
	TakeNotifications() []notify.Notification
}

// Base is the bookkeeping every concrete handler needs that has nothing to
// do with its own declared parameters: the connection's authenticated id
// and the handler's pending-notification outbox (spec §3 "Handler
// instance"). Concrete handlers embed it to satisfy the matching half of
// the Handler interface without repeating this plumbing.
type Base struct {
	authenticatedID uint64
	outbox          []notify.Notification
}

func (b *Base) AuthenticatedID() uint64      { return b.authenticatedID }
func (b *Base) SetAuthenticatedID(id uint64) { b.authenticatedID = id }

// TakeNotifications drains and clears the outbox (spec §4.6 step 10).
func (b *Base) TakeNotifications() []notify.Notification {
	out := b.outbox
	b.outbox = nil
	return out
}

// Notify enqueues a notification for delivery after a successful commit
// (spec §3 "Notification").
func (b *Base) Notify(targetAuthenticatedID uint64, frame []byte) {
	b.outbox = append(b.outbox, notify.Notification{TargetAuthenticatedID: targetAuthenticatedID, Frame: frame})
}

// Key packs (category, method) into the registry lookup key.
type Key uint16

// MakeKey packs a category/method pair the way spec §6 describes: "packed
// as u16 for registry lookup".
func MakeKey(category, method uint8) Key {
	return Key(uint16(category)<<8 | uint16(method))
}

// Factory constructs one fresh handler instance. Registered once per
// (category, method); invoked once per worker slot at registration time.
type Factory func() Handler

type pool struct {
	instances []Handler
}

// Registry is the process-wide table of handler pools, split into the two
// disjoint keyspaces spec §4.6 describes: handlers callable while
// unauthenticated, and handlers callable once logged in.
type Registry struct {
	workers int

	mu              sync.RWMutex
	unauthenticated map[Key]*pool
	authenticated   map[Key]*pool
}

// New returns a Registry sized for workers worker slots.
func New(workers int) *Registry {
	return &Registry{
		workers:         workers,
		unauthenticated: make(map[Key]*pool),
		authenticated:   make(map[Key]*pool),
	}
}

// RegisterUnauthenticated adds a handler callable when a connection's
// authenticated_id == 0.
func (r *Registry) RegisterUnauthenticated(category, method uint8, f Factory) {
	r.register(r.unauthenticated, category, method, f)
}

// RegisterAuthenticated adds a handler callable when a connection's
// authenticated_id != 0.
func (r *Registry) RegisterAuthenticated(category, method uint8, f Factory) {
	r.register(r.authenticated, category, method, f)
}

func (r *Registry) register(m map[Key]*pool, category, method uint8, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := MakeKey(category, method)
	instances := make([]Handler, r.workers)
	for i := range instances {
		instances[i] = f()
	}
	m[key] = &pool{instances: instances}
}

// Lookup resolves the worker-local handler instance for (category, method)
// against the keyspace selected by authenticatedID, per spec §4.6 step 2.
// It returns (nil, false) when the key is absent from the applicable map —
// the caller should respond invalid_request_type.
func (r *Registry) Lookup(category, method uint8, authenticatedID uint64, worker int) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m := r.unauthenticated
	if authenticatedID != 0 {
		m = r.authenticated
	}
	p, ok := m[MakeKey(category, method)]
	if !ok || worker < 0 || worker >= len(p.instances) {
		return nil, false
	}
	return p.instances[worker], true
}

// ResetFields zero-initializes the addressable struct value underlying a
// handler instance between requests, the way a pooled handler is "reused
// across requests on that worker (fields are overwritten by
// deserialization)" per spec §3 — for handlers whose output fields need a
// clean slate beyond what Deserialize overwrites. Dispatch does not call it.
func ResetFields(v reflect.Value) {
	v.Set(reflect.Zero(v.Type()))
}
