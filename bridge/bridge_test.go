package bridge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/quickdb/dispatch"
	"github.com/forbearing/quickdb/manager"
)

func newTestBridge(t *testing.T, alias string) *Bridge {
	t.Helper()
	mgr := manager.New()
	core := dispatch.New(mgr)
	t.Cleanup(func() {
		core.Close()
		mgr.Shutdown(context.Background())
	})
	b := New(core, mgr)

	addBody, err := json.Marshal(map[string]any{
		"database": map[string]any{
			"alias":       alias,
			"db_type":     "sqlite",
			"sqlite_path": ":memory:",
			"id_strategy": "uuid",
		},
	})
	require.NoError(t, err)
	resp, err := b.Dispatch("add_database", addBody)
	require.NoError(t, err)
	var addResp response
	require.NoError(t, json.Unmarshal(resp, &addResp))
	require.True(t, addResp.Success, addResp.Error)

	regBody, err := json.Marshal(map[string]any{
		"table": "gadgets",
		"fields": map[string]any{
			"name": map[string]any{"kind": "string"},
		},
	})
	require.NoError(t, err)
	resp, err = b.Dispatch("register_model", regBody)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(resp, &addResp))
	require.True(t, addResp.Success, addResp.Error)

	return b
}

func TestBridgeUnknownActionReturnsEnvelopeError(t *testing.T) {
	b := newTestBridge(t, "bridge-unknown")
	resp, err := b.Dispatch("not_a_real_action", nil)
	require.NoError(t, err)
	var r response
	require.NoError(t, json.Unmarshal(resp, &r))
	assert.False(t, r.Success)
	assert.NotEmpty(t, r.Error)
}

func TestBridgeInvalidJSONReturnsEnvelopeError(t *testing.T) {
	b := newTestBridge(t, "bridge-badjson")
	resp, err := b.Dispatch("find", []byte("{not json"))
	require.NoError(t, err)
	var r response
	require.NoError(t, json.Unmarshal(resp, &r))
	assert.False(t, r.Success)
}

func TestBridgeCreateFindByIDRoundTrip(t *testing.T) {
	b := newTestBridge(t, "bridge-crud")

	createBody, err := json.Marshal(map[string]any{
		"alias": "bridge-crud",
		"table": "gadgets",
		"id":    "g1",
		"data": map[string]any{
			"id":   map[string]any{"kind": 5, "val": "g1"}, // KindString
			"name": map[string]any{"kind": 5, "val": "widget"},
		},
	})
	require.NoError(t, err)
	resp, err := b.Dispatch("create", createBody)
	require.NoError(t, err)
	var createResp response
	require.NoError(t, json.Unmarshal(resp, &createResp))
	require.True(t, createResp.Success, createResp.Error)

	findBody, err := json.Marshal(map[string]any{
		"alias": "bridge-crud",
		"table": "gadgets",
		"id":    "g1",
	})
	require.NoError(t, err)
	resp, err = b.Dispatch("find_by_id", findBody)
	require.NoError(t, err)
	var findResp response
	require.NoError(t, json.Unmarshal(resp, &findResp))
	require.True(t, findResp.Success, findResp.Error)
	require.NotNil(t, findResp.Data)
}

func TestBridgeCountAfterCreate(t *testing.T) {
	b := newTestBridge(t, "bridge-count")

	for i := 0; i < 2; i++ {
		body, err := json.Marshal(map[string]any{
			"alias": "bridge-count",
			"table": "gadgets",
			"data": map[string]any{
				"name": map[string]any{"kind": 5, "val": "item"},
			},
		})
		require.NoError(t, err)
		resp, err := b.Dispatch("create", body)
		require.NoError(t, err)
		var r response
		require.NoError(t, json.Unmarshal(resp, &r))
		require.True(t, r.Success, r.Error)
	}

	countBody, err := json.Marshal(map[string]any{
		"alias": "bridge-count",
		"table": "gadgets",
	})
	require.NoError(t, err)
	resp, err := b.Dispatch("count", countBody)
	require.NoError(t, err)
	var r response
	require.NoError(t, json.Unmarshal(resp, &r))
	require.True(t, r.Success, r.Error)
	assert.EqualValues(t, 2, r.Data)
}
