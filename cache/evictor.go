package cache

import (
	"container/list"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// payload is what an evictor stores per key: the cached value (either a
// record qvalue.Value or a []qvalue.Value query result, left as `any` so
// one evictor implementation serves both), plus its expiry.
type payload struct {
	value     any
	expiresAt time.Time
}

func (p payload) expired(now time.Time) bool {
	return !p.expiresAt.IsZero() && now.After(p.expiresAt)
}

// evictor is the L1 eviction-policy contract; lruEvictor, lfuEvictor, and
// fifoEvictor each implement it behind Manager so the bounded-capacity
// policy is swappable per dbconfig.CacheConfig.Policy.
type evictor interface {
	get(key string) (payload, bool)
	set(key string, p payload)
	delete(key string)
	keys() []string
	len() int
	purge()
}

// newEvictor builds the evictor named by policy, defaulting to LRU for an
// unrecognized name.
func newEvictor(policy string, capacity int) evictor {
	switch policy {
	case "lfu":
		return newLFUEvictor(capacity)
	case "fifo":
		return newFIFOEvictor(capacity)
	default:
		return newLRUEvictor(capacity)
	}
}

// lruEvictor wraps hashicorp/golang-lru/v2, the direct teacher dependency
// already present for this exact purpose.
type lruEvictor struct {
	c *lru.Cache[string, payload]
}

func newLRUEvictor(capacity int) *lruEvictor {
	if capacity <= 0 {
		capacity = 1
	}
	c, _ := lru.New[string, payload](capacity)
	return &lruEvictor{c: c}
}

func (e *lruEvictor) get(key string) (payload, bool) { return e.c.Get(key) }
func (e *lruEvictor) set(key string, p payload)      { e.c.Add(key, p) }
func (e *lruEvictor) delete(key string)              { e.c.Remove(key) }
func (e *lruEvictor) keys() []string                 { return e.c.Keys() }
func (e *lruEvictor) len() int                       { return e.c.Len() }
func (e *lruEvictor) purge()                         { e.c.Purge() }

// fifoEvictor evicts the oldest-inserted key once capacity is exceeded,
// regardless of access pattern. No ecosystem FIFO cache library appears
// in the retrieved pack, so this is hand-rolled on container/list, the
// standard library's doubly linked list.
type fifoEvictor struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	elems    map[string]*list.Element
	data     map[string]payload
}

func newFIFOEvictor(capacity int) *fifoEvictor {
	if capacity <= 0 {
		capacity = 1
	}
	return &fifoEvictor{
		capacity: capacity,
		order:    list.New(),
		elems:    make(map[string]*list.Element),
		data:     make(map[string]payload),
	}
}

func (e *fifoEvictor) get(key string) (payload, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.data[key]
	return p, ok
}

func (e *fifoEvictor) set(key string, p payload) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.data[key]; !exists {
		if e.order.Len() >= e.capacity {
			oldest := e.order.Front()
			if oldest != nil {
				oldKey := oldest.Value.(string)
				e.order.Remove(oldest)
				delete(e.elems, oldKey)
				delete(e.data, oldKey)
			}
		}
		e.elems[key] = e.order.PushBack(key)
	}
	e.data[key] = p
}

func (e *fifoEvictor) delete(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if el, ok := e.elems[key]; ok {
		e.order.Remove(el)
		delete(e.elems, key)
	}
	delete(e.data, key)
}

func (e *fifoEvictor) keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.data))
	for k := range e.data {
		out = append(out, k)
	}
	return out
}

func (e *fifoEvictor) len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.data)
}

func (e *fifoEvictor) purge() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.order.Init()
	e.elems = make(map[string]*list.Element)
	e.data = make(map[string]payload)
}

// lfuEvictor implements the classic O(1) least-frequently-used algorithm:
// keys are bucketed by access frequency, each bucket an LRU-ordered list,
// so both "find the least frequent key" and "bump a key's frequency" are
// constant time. No ecosystem LFU cache library appears in the retrieved
// pack.
type lfuEvictor struct {
	mu        sync.Mutex
	capacity  int
	minFreq   int
	data      map[string]payload
	keyFreq   map[string]int
	freqOrder map[int]*list.List
	freqElem  map[string]*list.Element
}

func newLFUEvictor(capacity int) *lfuEvictor {
	if capacity <= 0 {
		capacity = 1
	}
	return &lfuEvictor{
		capacity:  capacity,
		data:      make(map[string]payload),
		keyFreq:   make(map[string]int),
		freqOrder: make(map[int]*list.List),
		freqElem:  make(map[string]*list.Element),
	}
}

func (e *lfuEvictor) touch(key string) {
	freq := e.keyFreq[key]
	if bucket, ok := e.freqOrder[freq]; ok {
		if el, ok := e.freqElem[key]; ok {
			bucket.Remove(el)
			if bucket.Len() == 0 {
				delete(e.freqOrder, freq)
				if e.minFreq == freq {
					e.minFreq++
				}
			}
		}
	}
	newFreq := freq + 1
	e.keyFreq[key] = newFreq
	if _, ok := e.freqOrder[newFreq]; !ok {
		e.freqOrder[newFreq] = list.New()
	}
	e.freqElem[key] = e.freqOrder[newFreq].PushBack(key)
}

func (e *lfuEvictor) get(key string) (payload, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.data[key]
	if !ok {
		return payload{}, false
	}
	e.touch(key)
	return p, true
}

func (e *lfuEvictor) set(key string, p payload) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.data[key]; exists {
		e.data[key] = p
		e.touch(key)
		return
	}
	if len(e.data) >= e.capacity {
		bucket := e.freqOrder[e.minFreq]
		if bucket != nil && bucket.Len() > 0 {
			front := bucket.Front()
			evictKey := front.Value.(string)
			bucket.Remove(front)
			delete(e.data, evictKey)
			delete(e.keyFreq, evictKey)
			delete(e.freqElem, evictKey)
		}
	}
	e.data[key] = p
	e.keyFreq[key] = 1
	if _, ok := e.freqOrder[1]; !ok {
		e.freqOrder[1] = list.New()
	}
	e.freqElem[key] = e.freqOrder[1].PushBack(key)
	e.minFreq = 1
}

func (e *lfuEvictor) delete(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	freq, ok := e.keyFreq[key]
	if !ok {
		return
	}
	if bucket, ok := e.freqOrder[freq]; ok {
		if el, ok := e.freqElem[key]; ok {
			bucket.Remove(el)
		}
	}
	delete(e.data, key)
	delete(e.keyFreq, key)
	delete(e.freqElem, key)
}

func (e *lfuEvictor) keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.data))
	for k := range e.data {
		out = append(out, k)
	}
	return out
}

func (e *lfuEvictor) len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.data)
}

func (e *lfuEvictor) purge() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data = make(map[string]payload)
	e.keyFreq = make(map[string]int)
	e.freqOrder = make(map[int]*list.List)
	e.freqElem = make(map[string]*list.Element)
	e.minFreq = 0
}
