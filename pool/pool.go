// Package pool implements the per-alias connection pool: an operation
// channel in front of a single adapter instance, bounding in-flight work
// with a semaphore, retrying connection-class errors with backoff, and running
// periodic health/keepalive/cleanup probes. Grounded on the teacher's
// database/helper/helper.go InitDatabase goroutine-plus-channel pattern
// (model.TableChan/model.RecordChan there; Pool's opCh here), generalized
// from "create tables and seed records" to "run any adapter operation".
package pool

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/forbearing/quickdb/adapter"
	"github.com/forbearing/quickdb/dbconfig"
	"github.com/forbearing/quickdb/logger"
	"github.com/forbearing/quickdb/quickdberr"
)

// Operation is one unit of work submitted to a Pool: it receives the
// submitting caller's context unchanged (the pool adds no timeout of its
// own) and the adapter being pooled, and returns an arbitrary result.
type Operation func(ctx context.Context, a adapter.Adapter) (any, error)

type request struct {
	ctx    context.Context
	op     Operation
	respCh chan response
}

type response struct {
	value any
	err   error
}

// Stats is a point-in-time snapshot of a Pool's in-flight/waiting state.
type Stats struct {
	InUse   int64
	Waiting int64
	MaxConns int
}

// Pool owns one alias's adapter instance and fronts it with an operation
// channel, per the spec's "pool exposes an operation channel rather than
// raw connections" rule.
type Pool struct {
	Alias   string
	adapter adapter.Adapter
	cfg     dbconfig.PoolConfig

	sem *semaphore.Weighted

	opCh chan request

	inUse   int64
	waiting int64
	mu      sync.Mutex // guards inUse/waiting

	closeCh chan struct{}
	wg      sync.WaitGroup
	closeOnce sync.Once
}

// New builds a Pool over adapter a, starting its dispatcher and
// health/cleanup background loops. Close must be called to release them.
func New(alias string, a adapter.Adapter, cfg dbconfig.PoolConfig) *Pool {
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 1
	}
	p := &Pool{
		Alias:   alias,
		adapter: a,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(maxConns)),
		opCh:    make(chan request, maxConns*4),
		closeCh: make(chan struct{}),
	}
	p.wg.Add(3)
	go p.dispatchLoop()
	go p.keepaliveLoop()
	go p.cleanupLoop()
	return p
}

// Submit runs op against the pool's adapter, retrying up to
// cfg.MaxRetries times with cfg.RetryInterval backoff on connection-class
// errors. Submission itself blocks only on the channel send; execution
// happens on a goroutine released by the pool's semaphore once a slot is
// free, bounding in-flight operations to cfg.MaxConns.
func (p *Pool) Submit(ctx context.Context, op Operation) (any, error) {
	respCh := make(chan response, 1)
	select {
	case p.opCh <- request{ctx: ctx, op: op, respCh: respCh}:
	case <-ctx.Done():
		return nil, quickdberr.Connection(ctx.Err(), "submit operation to pool %q", p.Alias)
	case <-p.closeCh:
		return nil, quickdberr.Connection(nil, "pool %q is closed", p.Alias)
	}
	select {
	case r := <-respCh:
		return r.value, r.err
	case <-ctx.Done():
		return nil, quickdberr.Connection(ctx.Err(), "await operation on pool %q", p.Alias)
	}
}

func (p *Pool) dispatchLoop() {
	defer p.wg.Done()
	for {
		select {
		case req := <-p.opCh:
			p.mu.Lock()
			p.waiting++
			p.mu.Unlock()

			if err := p.sem.Acquire(req.ctx, 1); err != nil {
				p.mu.Lock()
				p.waiting--
				p.mu.Unlock()
				req.respCh <- response{err: quickdberr.Connection(err, "acquire pool %q slot", p.Alias)}
				continue
			}
			p.mu.Lock()
			p.waiting--
			p.inUse++
			p.mu.Unlock()

			go p.execute(req)
		case <-p.closeCh:
			return
		}
	}
}

func (p *Pool) execute(req request) {
	defer func() {
		p.sem.Release(1)
		p.mu.Lock()
		p.inUse--
		p.mu.Unlock()
	}()

	maxRetries := p.cfg.MaxRetries
	retryInterval := p.cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = 100 * time.Millisecond
	}

	var value any
	var err error
retryLoop:
	for attempt := 0; attempt <= maxRetries; attempt++ {
		value, err = req.op(req.ctx, p.adapter)
		if err == nil || !quickdberr.Is(err, quickdberr.KindConnection) {
			break
		}
		if attempt < maxRetries {
			logger.Pool.Warnw("retrying pool operation after connection error", "alias", p.Alias, "attempt", attempt+1, "error", err)
			select {
			case <-time.After(retryInterval):
			case <-req.ctx.Done():
				err = quickdberr.Connection(req.ctx.Err(), "pool %q operation cancelled during retry backoff", p.Alias)
				break retryLoop
			}
		}
	}
	req.respCh <- response{value: value, err: err}
}

// keepaliveLoop pings the adapter at cfg.KeepaliveInterval, logging (not
// surfacing) failures, per "periodic keepalive probes idle connections".
func (p *Pool) keepaliveLoop() {
	defer p.wg.Done()
	interval := p.cfg.KeepaliveInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			timeout := p.cfg.HealthCheckTimeout
			if timeout <= 0 {
				timeout = 5 * time.Second
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			err := p.adapter.Health(ctx)
			cancel()
			if err != nil {
				logger.Pool.Warnw("pool keepalive health check failed", "alias", p.Alias, "error", err)
			}
		case <-p.closeCh:
			return
		}
	}
}

// cleanupLoop runs every 300s, per "a background task cleans expired/idle
// connections every 300s". Actual connection lifetime (idle timeout, max
// lifetime) is delegated to the adapter's own database/sql pool tuning
// (set at Open time); this loop's job is to surface pool-level stats so
// a caller's manager.Stats(alias) reflects current load.
func (p *Pool) cleanupLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(300 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s := p.Stats()
			logger.Pool.Debugw("pool cleanup tick", "alias", p.Alias, "in_use", s.InUse, "waiting", s.Waiting)
		case <-p.closeCh:
			return
		}
	}
}

// Stats returns the pool's current in-use/waiting counts.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{InUse: p.inUse, Waiting: p.waiting, MaxConns: p.cfg.MaxConns}
}

// Health delegates to the underlying adapter's connectivity probe.
func (p *Pool) Health(ctx context.Context) error {
	return p.adapter.Health(ctx)
}

// Adapter exposes the pooled adapter directly for callers (the dispatch
// core) that need the full adapter.Adapter surface rather than the
// Submit/Operation indirection, e.g. schema DDL during ensure_table.
func (p *Pool) Adapter() adapter.Adapter { return p.adapter }

// Close stops the background loops and closes the underlying adapter.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() { close(p.closeCh) })
	p.wg.Wait()
	return p.adapter.Close()
}
