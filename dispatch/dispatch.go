// Package dispatch implements the ODM core: an actor-style front end that
// accepts logical operations, resolves the target alias and model
// metadata, drives id generation, and forwards to the resolved pool.
// Grounded on the teacher's database/helper/helper.go channel-actor
// pattern (already generalized once in package pool); dispatch adds the
// create-path sequencing (ensure_table_and_indexes, id strip/generate)
// spec section 4.9 describes, and decouples caller goroutines from pool
// references the way the teacher's model.RecordChan consumer decouples
// seed-data producers from the database goroutine.
package dispatch

import (
	"context"
	"sync"

	"github.com/forbearing/quickdb/adapter"
	"github.com/forbearing/quickdb/dbconfig"
	"github.com/forbearing/quickdb/idgen"
	"github.com/forbearing/quickdb/logger"
	"github.com/forbearing/quickdb/manager"
	"github.com/forbearing/quickdb/pool"
	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/qvalue"
	"github.com/forbearing/quickdb/quickdberr"
	"github.com/forbearing/quickdb/registry"
	"github.com/forbearing/quickdb/schema"
)

type opKind int

const (
	opCreate opKind = iota
	opCreateMany
	opFind
	opFindByID
	opFindWithGroups
	opCount
	opUpdate
	opUpdateWithOperations
	opUpdateByID
	opDelete
	opDeleteByID
)

// request is one enum-variant-shaped unit of work, carrying whichever
// fields its opKind needs and a one-shot response channel.
type request struct {
	kind  opKind
	ctx   context.Context
	alias string
	table string

	data       map[string]qvalue.Value
	rows       []map[string]qvalue.Value
	batchSize  int
	id         string
	conditions []query.QueryCondition
	group      query.QueryConditionGroup
	opts       query.Options
	ops        []query.UpdateOperation

	respCh chan result
}

type result struct {
	value any
	found bool
	err   error
}

// Core is the dispatch actor: an unbounded request queue plus a drain
// loop that hands each request to its own goroutine, so a slow pool
// acquisition never blocks the next caller's enqueue.
type Core struct {
	mgr   *manager.Manager
	reqCh chan *request

	closeCh   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New builds a Core dispatching against mgr. The request queue is
// "unbounded" in the sense the spec means it: a large buffer plus a
// drain loop that never itself waits on pool work, so enqueue practically
// never blocks a well-behaved caller.
func New(mgr *manager.Manager) *Core {
	c := &Core{
		mgr:     mgr,
		reqCh:   make(chan *request, 4096),
		closeCh: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.drain()
	return c
}

// Default is the process-wide dispatch core over manager.Default, the
// instance the bridge and cmd/quickdb-bench packages operate against.
var Default = New(manager.Default)

func (c *Core) drain() {
	defer c.wg.Done()
	for {
		select {
		case req := <-c.reqCh:
			go c.execute(req)
		case <-c.closeCh:
			return
		}
	}
}

// Close stops the drain loop. In-flight requests already hand off to
// their own goroutine and complete independently.
func (c *Core) Close() {
	c.closeOnce.Do(func() { close(c.closeCh) })
	c.wg.Wait()
}

// submit enqueues req and awaits its one-shot response, or ctx
// cancellation — matching "callers drop their receiver to cancel; the
// dispatcher's send still proceeds but the response is discarded".
func (c *Core) submit(req *request) (any, bool, error) {
	req.respCh = make(chan result, 1)
	select {
	case c.reqCh <- req:
	case <-c.closeCh:
		return nil, false, quickdberr.Connection(nil, "dispatch core is closed")
	}
	select {
	case r := <-req.respCh:
		return r.value, r.found, r.err
	case <-req.ctx.Done():
		return nil, false, quickdberr.Connection(req.ctx.Err(), "await dispatch result for table %q", req.table)
	}
}

// resolve looks up the pool for alias and the registered metadata for
// table; every operation routes through this so an unregistered
// collection fails uniformly regardless of which method is called.
func (c *Core) resolve(alias, table string) (*pool.Pool, *schema.ModelMeta, error) {
	p, err := c.mgr.Resolve(alias)
	if err != nil {
		return nil, nil, err
	}
	meta, err := registry.MustLookup(table)
	if err != nil {
		return nil, nil, err
	}
	return p, meta, nil
}

func (c *Core) execute(req *request) {
	p, meta, err := c.resolve(req.alias, req.table)
	if err != nil {
		req.respCh <- result{err: err}
		return
	}

	switch req.kind {
	case opCreate:
		c.executeCreate(req, p, meta)
	case opCreateMany:
		c.executeCreateMany(req, p, meta)
	case opFind:
		v, err := p.Submit(req.ctx, func(ctx context.Context, a adapter.Adapter) (any, error) {
			return a.Find(ctx, req.table, req.conditions, req.opts, meta)
		})
		req.respCh <- result{value: v, err: err}
	case opFindWithGroups:
		v, err := p.Submit(req.ctx, func(ctx context.Context, a adapter.Adapter) (any, error) {
			return a.FindWithGroups(ctx, req.table, req.group, req.opts, meta)
		})
		req.respCh <- result{value: v, err: err}
	case opFindByID:
		type foundRow struct {
			row qvalue.Value
			ok  bool
		}
		v, err := p.Submit(req.ctx, func(ctx context.Context, a adapter.Adapter) (any, error) {
			row, ok, err := a.FindByID(ctx, req.table, req.id, meta)
			return foundRow{row, ok}, err
		})
		if err != nil {
			req.respCh <- result{err: err}
			return
		}
		fr := v.(foundRow)
		req.respCh <- result{value: fr.row, found: fr.ok}
	case opCount:
		v, err := p.Submit(req.ctx, func(ctx context.Context, a adapter.Adapter) (any, error) {
			return a.Count(ctx, req.table, req.conditions)
		})
		req.respCh <- result{value: v, err: err}
	case opUpdate:
		v, err := p.Submit(req.ctx, func(ctx context.Context, a adapter.Adapter) (any, error) {
			return a.Update(ctx, req.table, req.conditions, req.data, meta)
		})
		req.respCh <- result{value: v, err: err}
	case opUpdateWithOperations:
		v, err := p.Submit(req.ctx, func(ctx context.Context, a adapter.Adapter) (any, error) {
			return a.UpdateWithOperations(ctx, req.table, req.conditions, req.ops, meta)
		})
		req.respCh <- result{value: v, err: err}
	case opUpdateByID:
		v, err := p.Submit(req.ctx, func(ctx context.Context, a adapter.Adapter) (any, error) {
			return a.UpdateByID(ctx, req.table, req.id, req.data, meta)
		})
		if err != nil {
			req.respCh <- result{err: err}
			return
		}
		req.respCh <- result{found: v.(bool)}
	case opDelete:
		v, err := p.Submit(req.ctx, func(ctx context.Context, a adapter.Adapter) (any, error) {
			return a.Delete(ctx, req.table, req.conditions)
		})
		req.respCh <- result{value: v, err: err}
	case opDeleteByID:
		v, err := p.Submit(req.ctx, func(ctx context.Context, a adapter.Adapter) (any, error) {
			return a.DeleteByID(ctx, req.table, req.id)
		})
		if err != nil {
			req.respCh <- result{err: err}
			return
		}
		req.respCh <- result{found: v.(bool)}
	default:
		req.respCh <- result{err: quickdberr.Other(nil, "unknown dispatch operation kind %d", req.kind)}
	}
}

// executeCreate implements the six-step create sequence from section 4.9:
// ensure the table exists, resolve the id strategy, strip or assign an
// id, then forward to the pool.
func (c *Core) executeCreate(req *request, p *pool.Pool, meta *schema.ModelMeta) {
	c.ensureTable(req.ctx, p, req.table)

	gen, err := c.mgr.IDGenerator(req.alias)
	if err != nil {
		req.respCh <- result{err: err}
		return
	}

	data := req.data
	if err := assignOrStripID(data, gen); err != nil {
		req.respCh <- result{err: err}
		return
	}

	v, err := p.Submit(req.ctx, func(ctx context.Context, a adapter.Adapter) (any, error) {
		return a.Create(ctx, req.table, data, meta)
	})
	req.respCh <- result{value: v, err: err}
}

func (c *Core) executeCreateMany(req *request, p *pool.Pool, meta *schema.ModelMeta) {
	c.ensureTable(req.ctx, p, req.table)

	gen, err := c.mgr.IDGenerator(req.alias)
	if err != nil {
		req.respCh <- result{err: err}
		return
	}

	for _, row := range req.rows {
		if err := assignOrStripID(row, gen); err != nil {
			req.respCh <- result{err: err}
			return
		}
	}

	v, err := p.Submit(req.ctx, func(ctx context.Context, a adapter.Adapter) (any, error) {
		return a.CreateMany(ctx, req.table, req.rows, meta, req.batchSize)
	})
	req.respCh <- result{value: v, err: err}
}

// ensureTable triggers ensure_table_and_indexes best-effort: failures are
// logged, not surfaced, per "adapters may auto-create".
func (c *Core) ensureTable(ctx context.Context, p *pool.Pool, table string) {
	if err := registry.EnsureTableAndIndexes(ctx, p.Adapter(), table); err != nil {
		logger.Dispatch.Warnw("ensure_table_and_indexes failed, proceeding", "table", table, "error", err)
	}
}

// assignOrStripID applies step 4/5 of the create sequence in place: strip
// id/_id for AutoIncrement, else generate one when absent.
func assignOrStripID(data map[string]qvalue.Value, gen *idgen.Generator) error {
	const idField = "id"
	if gen.Kind() == dbconfig.IDAutoIncrement {
		delete(data, idField)
		delete(data, "_id")
		return nil
	}
	if hasValidID(data[idField]) {
		return nil
	}
	id, err := gen.Next()
	if err != nil {
		return err
	}
	data[idField] = qvalue.String(id)
	return nil
}

// hasValidID reports whether v is a non-empty string or a positive
// integer, the spec's "no valid id is present" test.
func hasValidID(v qvalue.Value) bool {
	if v.IsNull() {
		return false
	}
	if s, ok := v.AsString(); ok {
		return s != ""
	}
	if i, ok := v.AsI64(); ok {
		return i > 0
	}
	if u, ok := v.AsU64(); ok {
		return u > 0
	}
	return false
}
