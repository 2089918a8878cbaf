package dispatch

import (
	"errors"

	"github.com/arkeindustries/requestcore/internal/db"
	"github.com/arkeindustries/requestcore/internal/notify"
	"github.com/arkeindustries/requestcore/internal/registry"
	"github.com/arkeindustries/requestcore/internal/wire"
	"github.com/arkeindustries/requestcore/pkg/log"
)

// Session is the dispatch-visible slice of a connection's state: the
// channel notifications are delivered on, and the authenticated id the
// connection currently carries. The transport owns the connection's
// lifetime and framing; dispatch only reads and updates AuthenticatedID
// in step 9 of the sequence below.
type Session struct {
	Conn            notify.Conn
	AuthenticatedID uint64
}

// Observer receives dispatch lifecycle events for metrics/logging. A nil
// Observer is valid; every method is called unconditionally by Worker, so
// NoopObserver exists to avoid nil checks at every call site.
type Observer interface {
	RequestHandled(category, method uint8, code uint16)
	RetryLater(category, method uint8)

	// Observe marks the start of one Handle call and returns a func to
	// call when it completes, for latency collection.
	Observe(category, method uint8) func()
}

// NoopObserver discards every event.
type NoopObserver struct{}

func (NoopObserver) RequestHandled(category, method uint8, code uint16) {}
func (NoopObserver) RetryLater(category, method uint8)                  {}
func (NoopObserver) Observe(category, method uint8) func()              { return func() {} }

// Worker owns the per-worker resources spec §5 requires exclusive
// ownership of: one database context and one handler-pool slot index. A
// Worker is never touched by more than one goroutine at a time — callers
// must serialize requests per worker themselves (the transport's queue
// does this).
type Worker struct {
	Index    int
	Registry *registry.Registry
	DB       *db.Context
	FanOut   *notify.FanOut
	Observer Observer
}

// NewWorker returns a Worker for the given slot index. obs may be nil, in
// which case events are discarded.
func NewWorker(index int, reg *registry.Registry, dbCtx *db.Context, fanOut *notify.FanOut, obs Observer) *Worker {
	if obs == nil {
		obs = NoopObserver{}
	}
	return &Worker{Index: index, Registry: reg, DB: dbCtx, FanOut: fanOut, Observer: obs}
}

// Handle runs the full dispatch sequence of spec §4.6 for one request and
// returns the response frame to write back, or nil when the handler chose
// CodeNoResponse. It never returns an error: every failure mode has a
// defined response code.
func (w *Worker) Handle(session *Session, req Request) []byte {
	defer w.Observer.Observe(req.Category, req.Method)()

	handler, ok := w.Registry.Lookup(req.Category, req.Method, session.AuthenticatedID, w.Index)
	if !ok {
		w.Observer.RequestHandled(req.Category, req.Method, CodeInvalidRequestType)
		return EncodeResponseFrame(CodeInvalidRequestType, nil)
	}

	if err := handler.Deserialize(wire.NewReader(req.Payload)); err != nil {
		w.Observer.RequestHandled(req.Category, req.Method, CodeInvalidParameters)
		return EncodeResponseFrame(CodeInvalidParameters, nil)
	}

	if code := handler.IsValid(); code != CodeSuccess {
		w.Observer.RequestHandled(req.Category, req.Method, code)
		return EncodeResponseFrame(code, nil)
	}

	startAuth := session.AuthenticatedID
	handler.SetAuthenticatedID(startAuth)

	if err := w.DB.Begin(); err != nil {
		log.Errorf("dispatch: begin transaction: %v", err)
		w.Observer.RequestHandled(req.Category, req.Method, CodeServerError)
		return EncodeResponseFrame(CodeServerError, nil)
	}

	code, syncConflict := w.process(handler, startAuth)
	if syncConflict {
		_ = w.DB.Rollback()
		w.Observer.RetryLater(req.Category, req.Method)
		return EncodeResponseFrame(CodeRetryLater, nil)
	}

	if code == CodeSuccess {
		if err := w.DB.Commit(); err != nil {
			_ = w.DB.Rollback()
			if errors.Is(err, db.ErrSyncConflict) {
				w.Observer.RetryLater(req.Category, req.Method)
				return EncodeResponseFrame(CodeRetryLater, nil)
			}
			log.Errorf("dispatch: commit transaction: %v", err)
			w.Observer.RequestHandled(req.Category, req.Method, CodeServerError)
			return EncodeResponseFrame(CodeServerError, nil)
		}
	} else {
		_ = w.DB.Rollback()
	}

	w.Observer.RequestHandled(req.Category, req.Method, code)

	var payload []byte
	if code == CodeSuccess {
		writer := wire.NewWriter()
		if err := handler.Serialize(writer); err != nil {
			log.Errorf("dispatch: serialize response: %v", err)
			return EncodeResponseFrame(CodeServerError, nil)
		}
		payload = writer.Bytes()

		w.applyAuthTransition(session, handler, startAuth)
		w.drainNotifications(handler)
	}

	if code == CodeNoResponse {
		return nil
	}
	return EncodeResponseFrame(code, payload)
}

// process invokes handler.Process, catching the one condition spec §7
// permits a handler to throw across the dispatch boundary: a
// synchronization conflict, signalled by panicking with an error
// satisfying errors.Is(err, db.ErrSyncConflict). Any other panic is not
// dispatch's to handle and propagates to the caller.
func (w *Worker) process(handler registry.Handler, authenticatedID uint64) (code uint16, syncConflict bool) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok && errors.Is(err, db.ErrSyncConflict) {
				syncConflict = true
				return
			}
			panic(r)
		}
	}()
	code = handler.Process(authenticatedID)
	return
}

// applyAuthTransition implements spec §4.6 step 9: if the handler changed
// authenticated_id from its value at call start, treat 0 -> id as a login
// and id -> 0 as a logout.
func (w *Worker) applyAuthTransition(session *Session, handler registry.Handler, startAuth uint64) {
	endAuth := handler.AuthenticatedID()
	if endAuth == startAuth {
		return
	}
	if startAuth == 0 && endAuth != 0 {
		w.FanOut.Login(endAuth, session.Conn)
	} else if startAuth != 0 && endAuth == 0 {
		w.FanOut.Logout(startAuth, session.Conn)
	}
	session.AuthenticatedID = endAuth
}

// drainNotifications implements spec §4.6 step 10.
func (w *Worker) drainNotifications(handler registry.Handler) {
	for _, n := range handler.TakeNotifications() {
		w.FanOut.Send(n.TargetAuthenticatedID, n.Frame)
	}
}
