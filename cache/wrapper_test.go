package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/quickdb/adapter"
	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/qvalue"
	"github.com/forbearing/quickdb/schema"
)

// countingAdapter is a minimal in-memory adapter.Adapter stub that counts
// calls, letting wrapper tests assert cache hits skip the underlying
// adapter entirely.
type countingAdapter struct {
	adapter.Adapter
	findCalls      int
	findByIDCalls  int
	record         qvalue.Value
	rows           []qvalue.Value
}

func (a *countingAdapter) FindByID(ctx context.Context, table, id string, meta *schema.ModelMeta) (qvalue.Value, bool, error) {
	a.findByIDCalls++
	return a.record, true, nil
}

func (a *countingAdapter) Find(ctx context.Context, table string, conditions []query.QueryCondition, opts query.Options, meta *schema.ModelMeta) ([]qvalue.Value, error) {
	a.findCalls++
	return a.rows, nil
}

func (a *countingAdapter) Create(ctx context.Context, table string, data map[string]qvalue.Value, meta *schema.ModelMeta) (qvalue.Value, error) {
	return qvalue.Value{}, nil
}

func (a *countingAdapter) UpdateByID(ctx context.Context, table, id string, data map[string]qvalue.Value, meta *schema.ModelMeta) (bool, error) {
	return true, nil
}

func TestCachedAdapterFindByIDHitsCacheOnSecondCall(t *testing.T) {
	mgr := newTestManager(t)
	inner := &countingAdapter{record: qvalue.Map(qvalue.MapEntry{Key: "id", Value: qvalue.I64(1)})}
	ca := NewCachedAdapter(inner, mgr, 0, "")

	_, _, err := ca.FindByID(context.Background(), "users", "1", nil)
	require.NoError(t, err)
	_, _, err = ca.FindByID(context.Background(), "users", "1", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.findByIDCalls, "second FindByID must be served from cache")
}

func TestCachedAdapterCreateInvalidatesQueryCacheNotRecordCache(t *testing.T) {
	mgr := newTestManager(t)
	inner := &countingAdapter{
		record: qvalue.Map(qvalue.MapEntry{Key: "id", Value: qvalue.I64(1)}),
		rows:   []qvalue.Value{qvalue.Map(qvalue.MapEntry{Key: "id", Value: qvalue.I64(1)})},
	}
	ca := NewCachedAdapter(inner, mgr, 0, "")

	_, _, err := ca.FindByID(context.Background(), "users", "1", nil)
	require.NoError(t, err)
	_, err = ca.Find(context.Background(), "users", nil, query.Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.findCalls)

	_, err = ca.Create(context.Background(), "users", nil, nil)
	require.NoError(t, err)

	// Query cache invalidated: Find hits the adapter again.
	_, err = ca.Find(context.Background(), "users", nil, query.Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.findCalls)

	// Record cache preserved: FindByID still served from cache.
	_, _, err = ca.FindByID(context.Background(), "users", "1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.findByIDCalls)
}

func TestCachedAdapterUpdateByIDInvalidatesRecord(t *testing.T) {
	mgr := newTestManager(t)
	inner := &countingAdapter{record: qvalue.Map(qvalue.MapEntry{Key: "id", Value: qvalue.I64(1)})}
	ca := NewCachedAdapter(inner, mgr, 0, "")

	_, _, err := ca.FindByID(context.Background(), "users", "1", nil)
	require.NoError(t, err)
	_, err = ca.UpdateByID(context.Background(), "users", "1", map[string]qvalue.Value{"name": qvalue.String("B")}, nil)
	require.NoError(t, err)

	_, _, err = ca.FindByID(context.Background(), "users", "1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.findByIDCalls, "record cache must be invalidated by update_by_id")
}
