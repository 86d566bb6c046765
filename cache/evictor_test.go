package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUEvictorEvictsLeastRecentlyUsed(t *testing.T) {
	e := newLRUEvictor(2)
	e.set("a", payload{value: 1})
	e.set("b", payload{value: 2})
	e.get("a") // touch a, making b the LRU candidate
	e.set("c", payload{value: 3})

	_, aOk := e.get("a")
	_, bOk := e.get("b")
	_, cOk := e.get("c")
	assert.True(t, aOk)
	assert.False(t, bOk)
	assert.True(t, cOk)
}

func TestFIFOEvictorEvictsOldestInsert(t *testing.T) {
	e := newFIFOEvictor(2)
	e.set("a", payload{value: 1})
	e.set("b", payload{value: 2})
	e.get("a") // FIFO ignores access order
	e.set("c", payload{value: 3})

	_, aOk := e.get("a")
	_, bOk := e.get("b")
	_, cOk := e.get("c")
	assert.False(t, aOk)
	assert.True(t, bOk)
	assert.True(t, cOk)
}

func TestLFUEvictorEvictsLeastFrequentlyUsed(t *testing.T) {
	e := newLFUEvictor(2)
	e.set("a", payload{value: 1})
	e.set("b", payload{value: 2})
	e.get("a")
	e.get("a") // a now has higher frequency than b
	e.set("c", payload{value: 3})

	_, aOk := e.get("a")
	_, bOk := e.get("b")
	_, cOk := e.get("c")
	assert.True(t, aOk)
	assert.False(t, bOk)
	assert.True(t, cOk)
}

func TestEvictorDeleteAndPurge(t *testing.T) {
	for _, policy := range []string{"lru", "lfu", "fifo"} {
		e := newEvictor(policy, 10)
		e.set("a", payload{value: 1})
		e.delete("a")
		_, ok := e.get("a")
		assert.False(t, ok, "policy %s", policy)

		e.set("b", payload{value: 2})
		e.purge()
		assert.Equal(t, 0, e.len(), "policy %s", policy)
	}
}
