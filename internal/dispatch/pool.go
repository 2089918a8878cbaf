package dispatch

import (
	"sync"

	"github.com/arkeindustries/requestcore/internal/db"
	"github.com/arkeindustries/requestcore/internal/notify"
	"github.com/arkeindustries/requestcore/internal/registry"
)

// job is one request waiting for a worker, grounded on the
// channel-of-jobs/N-goroutine-consumers shape memorystore.ReceiveNats uses
// for its own worker pool.
type job struct {
	session *Session
	request Request
	result  chan []byte
}

// Pool is N workers, each with its own database context and handler-pool
// slot, consuming requests off a shared channel (spec §5 "N worker
// threads... each request is assigned to exactly one worker for its
// entire lifetime").
type Pool struct {
	jobs    chan job
	wg      sync.WaitGroup
	Workers []*Worker
}

// NewPool starts one goroutine per entry in dbContexts, each wrapping a
// Worker at that slot index. len(dbContexts) is the configured worker
// count; every worker shares the same Registry and FanOut, as spec §5
// describes for the two process-wide shared structures.
func NewPool(reg *registry.Registry, dbContexts []*db.Context, fanOut *notify.FanOut, obs Observer) *Pool {
	p := &Pool{jobs: make(chan job, len(dbContexts)*4)}

	for i, dbCtx := range dbContexts {
		w := NewWorker(i, reg, dbCtx, fanOut, obs)
		p.Workers = append(p.Workers, w)
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			for j := range p.jobs {
				j.result <- w.Handle(j.session, j.request)
			}
		}(w)
	}
	return p
}

// Submit enqueues req for session and blocks until the worker that
// processed it returns a response frame (nil for CodeNoResponse). The
// caller — a transport's per-connection read loop — is itself the thing
// serializing requests for a given session.
func (p *Pool) Submit(session *Session, req Request) []byte {
	result := make(chan []byte, 1)
	p.jobs <- job{session: session, request: req, result: result}
	return <-result
}

// Close stops accepting new requests and waits for in-flight ones to
// finish. Workers in the middle of Handle always complete and commit
// (spec §5 "Cancellation: none at the request level").
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
