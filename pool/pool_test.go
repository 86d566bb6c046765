package pool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/quickdb/adapter"
	"github.com/forbearing/quickdb/dbconfig"
	"github.com/forbearing/quickdb/quickdberr"
)

// stubAdapter is a no-op adapter.Adapter used to exercise Pool in
// isolation from any real backend. Only Health is meaningfully
// implemented; every other method is unused by these tests.
type stubAdapter struct {
	adapter.Adapter
	healthErr error
	healthHits int32
}

func (s *stubAdapter) Health(ctx context.Context) error {
	atomic.AddInt32(&s.healthHits, 1)
	return s.healthErr
}

func (s *stubAdapter) Close() error { return nil }

func TestPoolSubmitRunsOperation(t *testing.T) {
	a := &stubAdapter{}
	p := New("test", a, dbconfig.PoolConfig{MaxConns: 2, MaxRetries: 1, RetryInterval: time.Millisecond})
	defer p.Close()

	v, err := p.Submit(context.Background(), func(ctx context.Context, ad adapter.Adapter) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestPoolSubmitRetriesConnectionErrors(t *testing.T) {
	a := &stubAdapter{}
	p := New("test", a, dbconfig.PoolConfig{MaxConns: 2, MaxRetries: 3, RetryInterval: time.Millisecond})
	defer p.Close()

	var calls int32
	v, err := p.Submit(context.Background(), func(ctx context.Context, ad adapter.Adapter) (any, error) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			return nil, quickdberr.Connection(nil, "transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, int32(3), calls)
}

func TestPoolSubmitDoesNotRetryNonConnectionErrors(t *testing.T) {
	a := &stubAdapter{}
	p := New("test", a, dbconfig.PoolConfig{MaxConns: 2, MaxRetries: 3, RetryInterval: time.Millisecond})
	defer p.Close()

	var calls int32
	_, err := p.Submit(context.Background(), func(ctx context.Context, ad adapter.Adapter) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, quickdberr.Query(nil, "bad sql")
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	a := &stubAdapter{}
	p := New("test", a, dbconfig.PoolConfig{MaxConns: 1, MaxRetries: 0})
	defer p.Close()

	var inFlight int32
	var maxSeen int32
	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, _ = p.Submit(context.Background(), func(ctx context.Context, ad adapter.Adapter) (any, error) {
				n := atomic.AddInt32(&inFlight, 1)
				if n > atomic.LoadInt32(&maxSeen) {
					atomic.StoreInt32(&maxSeen, n)
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil, nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 3; i++ {
		<-done
	}
	assert.LessOrEqual(t, maxSeen, int32(1))
}
